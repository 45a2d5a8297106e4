package gas

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
	"github.com/rs/zerolog"

	"github.com/docuchain/notary/x/chain"
)

// Estimate is an EIP-1559 fee quote for a single transaction.
type Estimate struct {
	GasLimit             uint64   `json:"gas_limit"`
	MaxFeePerGas         *big.Int `json:"max_fee_per_gas"`
	MaxPriorityFeePerGas *big.Int `json:"max_priority_fee_per_gas"`
	EstimatedCostEth     string   `json:"estimated_cost_eth"`
	UsingFallback        bool     `json:"using_fallback"`
}

// Estimator produces fee quotes from live network conditions, degrading
// to configured fallback values when the node cannot be queried. An
// estimation failure never blocks submission.
type Estimator struct {
	cfg    Config
	client chain.Client
	log    zerolog.Logger
}

func NewEstimator(cfg Config, client chain.Client, log zerolog.Logger) *Estimator {
	return &Estimator{
		cfg:    cfg,
		client: client,
		log:    log.With().Str("component", "gas-estimator").Logger(),
	}
}

// Estimate quotes the cost of sending calldata from `from` to `to`.
// Any RPC failure yields the fallback quote with UsingFallback set.
func (e *Estimator) Estimate(ctx context.Context, from, to common.Address, calldata []byte) Estimate {
	tip, err := e.client.SuggestGasTipCap(ctx)
	if err != nil {
		e.log.Warn().Err(err).Msg("gas tip suggestion failed, using fallback estimate")
		return e.Fallback()
	}

	head, err := e.client.HeaderByNumber(ctx, nil)
	if err != nil || head.BaseFee == nil {
		e.log.Warn().Err(err).Msg("base fee lookup failed, using fallback estimate")
		return e.Fallback()
	}

	// maxFee = 2*baseFee + tip keeps the quote valid across base fee swings.
	maxFee := new(big.Int).Add(new(big.Int).Mul(head.BaseFee, big.NewInt(2)), tip)

	limit, err := e.client.EstimateGas(ctx, ethereum.CallMsg{
		From: from,
		To:   &to,
		Data: calldata,
	})
	if err != nil {
		e.log.Warn().Err(err).Msg("gas limit estimation failed, using fallback estimate")
		return e.Fallback()
	}
	limit += limit * e.cfg.LimitBufferPct / 100

	est := Estimate{
		GasLimit:             limit,
		MaxFeePerGas:         maxFee,
		MaxPriorityFeePerGas: tip,
		EstimatedCostEth:     costEth(limit, maxFee),
	}

	e.log.Debug().
		Uint64("gas_limit", limit).
		Str("max_fee_per_gas", maxFee.String()).
		Str("max_priority_fee_per_gas", tip.String()).
		Str("estimated_cost_eth", est.EstimatedCostEth).
		Msg("gas estimated")

	return est
}

// Fallback returns the configured conservative quote.
func (e *Estimator) Fallback() Estimate {
	maxFee := gweiToWei(e.cfg.FallbackMaxFeeGwei)
	return Estimate{
		GasLimit:             e.cfg.FallbackGasLimit,
		MaxFeePerGas:         maxFee,
		MaxPriorityFeePerGas: gweiToWei(e.cfg.FallbackPriorityFeeGwei),
		EstimatedCostEth:     costEth(e.cfg.FallbackGasLimit, maxFee),
		UsingFallback:        true,
	}
}

func gweiToWei(gwei uint64) *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(gwei), big.NewInt(params.GWei))
}

// costEth renders gasLimit*maxFee as a decimal ETH string.
func costEth(gasLimit uint64, maxFee *big.Int) string {
	wei := new(big.Int).Mul(new(big.Int).SetUint64(gasLimit), maxFee)
	cost := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(params.Ether))
	return cost.Text('f', 8)
}
