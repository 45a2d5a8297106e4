package gas

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/docuchain/notary/x/chain"
)

type stubChainClient struct {
	tip     *big.Int
	tipErr  error
	baseFee *big.Int
	headErr error
	limit   uint64
	estErr  error
}

func (s *stubChainClient) ChainID(context.Context) (*big.Int, error) { return big.NewInt(1), nil }

func (s *stubChainClient) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return 0, nil
}

func (s *stubChainClient) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return s.tip, s.tipErr
}

func (s *stubChainClient) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	if s.headErr != nil {
		return nil, s.headErr
	}
	return &types.Header{BaseFee: s.baseFee}, nil
}

func (s *stubChainClient) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return s.limit, s.estErr
}

func (s *stubChainClient) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	return nil, nil
}

func (s *stubChainClient) SendTransaction(context.Context, *types.Transaction) error { return nil }

func (s *stubChainClient) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	return nil, nil
}

var _ chain.Client = (*stubChainClient)(nil)

func TestEstimateLive(t *testing.T) {
	t.Parallel()

	client := &stubChainClient{
		tip:     big.NewInt(2 * params.GWei),
		baseFee: big.NewInt(10 * params.GWei),
		limit:   100_000,
	}
	e := NewEstimator(DefaultConfig(), client, zerolog.Nop())

	est := e.Estimate(context.Background(), common.Address{}, common.Address{}, nil)

	require.False(t, est.UsingFallback)
	// 100k plus the 15% buffer.
	require.Equal(t, uint64(115_000), est.GasLimit)
	// maxFee = 2*baseFee + tip.
	require.Equal(t, big.NewInt(22*params.GWei), est.MaxFeePerGas)
	require.Equal(t, big.NewInt(2*params.GWei), est.MaxPriorityFeePerGas)
	// 115000 * 22 gwei = 0.00253 ETH.
	require.Equal(t, "0.00253000", est.EstimatedCostEth)
}

func TestEstimateFallback(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	wantMaxFee := new(big.Int).Mul(big.NewInt(30), big.NewInt(params.GWei))
	wantTip := new(big.Int).Mul(big.NewInt(10), big.NewInt(params.GWei))

	check := func(t *testing.T, est Estimate) {
		t.Helper()
		require.True(t, est.UsingFallback)
		require.Equal(t, uint64(400_000), est.GasLimit)
		require.Equal(t, wantMaxFee, est.MaxFeePerGas)
		require.Equal(t, wantTip, est.MaxPriorityFeePerGas)
		require.Equal(t, "0.01200000", est.EstimatedCostEth)
	}

	t.Run("tip suggestion fails", func(t *testing.T) {
		client := &stubChainClient{tipErr: errors.New("rpc error")}
		e := NewEstimator(cfg, client, zerolog.Nop())
		check(t, e.Estimate(context.Background(), common.Address{}, common.Address{}, nil))
	})

	t.Run("header fetch fails", func(t *testing.T) {
		client := &stubChainClient{tip: big.NewInt(1), headErr: errors.New("rpc error")}
		e := NewEstimator(cfg, client, zerolog.Nop())
		check(t, e.Estimate(context.Background(), common.Address{}, common.Address{}, nil))
	})

	t.Run("pre-london header has no base fee", func(t *testing.T) {
		client := &stubChainClient{tip: big.NewInt(1), baseFee: nil}
		e := NewEstimator(cfg, client, zerolog.Nop())
		check(t, e.Estimate(context.Background(), common.Address{}, common.Address{}, nil))
	})

	t.Run("gas limit estimation fails", func(t *testing.T) {
		client := &stubChainClient{
			tip:     big.NewInt(1),
			baseFee: big.NewInt(1),
			estErr:  errors.New("execution reverted"),
		}
		e := NewEstimator(cfg, client, zerolog.Nop())
		check(t, e.Estimate(context.Background(), common.Address{}, common.Address{}, nil))
	})
}

func TestFallbackMatchesConfig(t *testing.T) {
	t.Parallel()

	cfg := Config{
		LimitBufferPct:          20,
		FallbackGasLimit:        500_000,
		FallbackMaxFeeGwei:      40,
		FallbackPriorityFeeGwei: 5,
	}
	e := NewEstimator(cfg, &stubChainClient{}, zerolog.Nop())

	est := e.Fallback()
	require.True(t, est.UsingFallback)
	require.Equal(t, uint64(500_000), est.GasLimit)
	require.Equal(t, new(big.Int).Mul(big.NewInt(40), big.NewInt(params.GWei)), est.MaxFeePerGas)
	require.Equal(t, new(big.Int).Mul(big.NewInt(5), big.NewInt(params.GWei)), est.MaxPriorityFeePerGas)
}
