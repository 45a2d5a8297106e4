package notary

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/docuchain/notary/x/chain"
	"github.com/docuchain/notary/x/gas"
)

// mockEthClient implements chain.Client for submitter and verifier tests.
type mockEthClient struct {
	mu sync.Mutex

	chainID *big.Int
	nonce   uint64
	tip     *big.Int
	baseFee *big.Int
	gasEst  uint64

	nonceErr error
	sendErr  error

	callOutput []byte
	callErr    error

	receipts    []*types.Receipt
	receiptErrs []error

	sent []*types.Transaction
}

func (m *mockEthClient) ChainID(context.Context) (*big.Int, error) {
	return m.chainID, nil
}

func (m *mockEthClient) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	if m.nonceErr != nil {
		return 0, m.nonceErr
	}
	return m.nonce, nil
}

func (m *mockEthClient) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return m.tip, nil
}

func (m *mockEthClient) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return &types.Header{BaseFee: m.baseFee}, nil
}

func (m *mockEthClient) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return m.gasEst, nil
}

func (m *mockEthClient) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	if m.callErr != nil {
		return nil, m.callErr
	}
	return m.callOutput, nil
}

func (m *mockEthClient) SendTransaction(_ context.Context, tx *types.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, tx)
	return nil
}

func (m *mockEthClient) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.receiptErrs) > 0 {
		err := m.receiptErrs[0]
		m.receiptErrs = m.receiptErrs[1:]
		return nil, err
	}
	if len(m.receipts) > 0 {
		r := m.receipts[0]
		m.receipts = m.receipts[1:]
		return r, nil
	}
	return nil, ethereum.NotFound
}

var _ chain.Client = (*mockEthClient)(nil)

func newTestSubmitter(t *testing.T, client *mockEthClient) *EthSubmitter {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	const chainID = uint64(84532)
	signer := chain.NewLocalECDSASigner(new(big.Int).SetUint64(chainID), key)

	binding, err := NewRegistryBinding(testContractAddr)
	require.NoError(t, err)

	estimator := gas.NewEstimator(gas.DefaultConfig(), client, zerolog.Nop())
	return NewEthSubmitter(client, signer, binding, estimator, chainID, zerolog.Nop())
}

func TestEthSubmitterSubmit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	client := &mockEthClient{
		chainID: big.NewInt(84532),
		nonce:   7,
		tip:     big.NewInt(2_000_000_000),
		baseFee: big.NewInt(10_000_000_000),
		gasEst:  100_000,
	}
	sub := newTestSubmitter(t, client)

	docHash := common.HexToHash("0x" + strings.Repeat("ee", 32))
	txHash, est, err := sub.Submit(ctx, docHash, `{"file_name":"contract.pdf"}`)
	require.NoError(t, err)
	require.False(t, est.UsingFallback)

	require.Len(t, client.sent, 1)
	sent := client.sent[0]
	require.Equal(t, txHash, sent.Hash())
	require.Equal(t, types.DynamicFeeTxType, int(sent.Type()))
	require.Equal(t, uint64(7), sent.Nonce())
	require.Equal(t, est.GasLimit, sent.Gas())
	require.Equal(t, est.MaxFeePerGas, sent.GasFeeCap())
	require.Equal(t, est.MaxPriorityFeePerGas, sent.GasTipCap())
	require.Equal(t, common.HexToAddress(testContractAddr), *sent.To())

	// Signature recovers to the signer's address.
	from, err := types.Sender(types.LatestSignerForChainID(big.NewInt(84532)), sent)
	require.NoError(t, err)
	require.Equal(t, sub.From(), from)
}

func TestEthSubmitterSubmitErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	docHash := common.HexToHash("0x" + strings.Repeat("ee", 32))

	t.Run("nonce failure", func(t *testing.T) {
		client := &mockEthClient{
			tip:      big.NewInt(1),
			baseFee:  big.NewInt(1),
			gasEst:   21000,
			nonceErr: errors.New("node unavailable"),
		}
		sub := newTestSubmitter(t, client)
		_, _, err := sub.Submit(ctx, docHash, "{}")
		require.ErrorContains(t, err, "fetch nonce")
	})

	t.Run("send failure", func(t *testing.T) {
		client := &mockEthClient{
			tip:     big.NewInt(1),
			baseFee: big.NewInt(1),
			gasEst:  21000,
			sendErr: errors.New("insufficient funds"),
		}
		sub := newTestSubmitter(t, client)
		_, _, err := sub.Submit(ctx, docHash, "{}")
		require.ErrorContains(t, err, "send transaction")
	})
}

func TestWaitReceiptRetriesUntilFound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	want := &types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(42)}
	client := &mockEthClient{
		receiptErrs: []error{ethereum.NotFound, ethereum.NotFound},
		receipts:    []*types.Receipt{want},
	}
	sub := newTestSubmitter(t, client)

	receipt, err := sub.WaitReceipt(ctx, common.HexToHash("0x01"), time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, want, receipt)
}

func TestWaitReceiptHonorsContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	client := &mockEthClient{} // never produces a receipt
	sub := newTestSubmitter(t, client)

	_, err := sub.WaitReceipt(ctx, common.HexToHash("0x01"), time.Millisecond)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
