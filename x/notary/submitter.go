package notary

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"

	"github.com/docuchain/notary/x/chain"
	"github.com/docuchain/notary/x/gas"
)

// Submitter sends notarization transactions and waits for inclusion.
type Submitter interface {
	From() common.Address
	Submit(ctx context.Context, docHash common.Hash, metadata string) (common.Hash, gas.Estimate, error)
	WaitReceipt(ctx context.Context, txHash common.Hash, pollInterval time.Duration) (*types.Receipt, error)
}

// EthSubmitter signs and sends registry transactions over a chain.Client.
type EthSubmitter struct {
	client    chain.Client
	signer    chain.Signer
	contract  *RegistryBinding
	estimator *gas.Estimator
	chainID   *big.Int
	log       zerolog.Logger
}

func NewEthSubmitter(
	client chain.Client,
	signer chain.Signer,
	contract *RegistryBinding,
	estimator *gas.Estimator,
	chainID uint64,
	log zerolog.Logger,
) *EthSubmitter {
	return &EthSubmitter{
		client:    client,
		signer:    signer,
		contract:  contract,
		estimator: estimator,
		chainID:   new(big.Int).SetUint64(chainID),
		log:       log.With().Str("component", "eth-submitter").Logger(),
	}
}

func (s *EthSubmitter) From() common.Address {
	return s.signer.Address()
}

// Submit builds, signs and sends a notarize transaction. The gas
// estimate may be the fallback quote; that alone never aborts the send.
func (s *EthSubmitter) Submit(ctx context.Context, docHash common.Hash, metadata string) (common.Hash, gas.Estimate, error) {
	calldata, err := s.contract.BuildNotarizeCalldata(docHash, metadata)
	if err != nil {
		return common.Hash{}, gas.Estimate{}, err
	}

	from := s.signer.Address()
	to := s.contract.Address()

	est := s.estimator.Estimate(ctx, from, to, calldata)

	nonce, err := s.client.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, est, fmt.Errorf("fetch nonce: %w", err)
	}

	unsigned := types.NewTx(&types.DynamicFeeTx{
		ChainID:   s.chainID,
		Nonce:     nonce,
		GasTipCap: est.MaxPriorityFeePerGas,
		GasFeeCap: est.MaxFeePerGas,
		Gas:       est.GasLimit,
		To:        &to,
		Value:     big.NewInt(0),
		Data:      calldata,
	})

	signed, err := s.signer.SignTx(unsigned)
	if err != nil {
		return common.Hash{}, est, fmt.Errorf("sign transaction: %w", err)
	}

	if err := s.client.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, est, fmt.Errorf("send transaction: %w", err)
	}

	s.log.Info().
		Str("doc_hash", docHash.Hex()).
		Str("tx_hash", signed.Hash().Hex()).
		Uint64("nonce", nonce).
		Uint64("gas_limit", est.GasLimit).
		Bool("using_fallback_gas", est.UsingFallback).
		Msg("notarize transaction sent")

	return signed.Hash(), est, nil
}

// WaitReceipt polls for the transaction receipt until the context is
// canceled or its deadline passes.
func (s *EthSubmitter) WaitReceipt(ctx context.Context, txHash common.Hash, pollInterval time.Duration) (*types.Receipt, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := s.client.TransactionReceipt(ctx, txHash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			s.log.Debug().Err(err).Str("tx_hash", txHash.Hex()).Msg("receipt poll failed, retrying")
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

var _ Submitter = (*EthSubmitter)(nil)
