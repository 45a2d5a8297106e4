package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Client is the narrow slice of an Ethereum JSON-RPC client the notary
// service depends on. *ethclient.Client satisfies it; tests provide stubs.
type Client interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Dial connects to the RPC endpoint and verifies the remote chain id
// matches the configured one.
func Dial(ctx context.Context, rpcEndpoint string, wantChainID uint64) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rpcEndpoint)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rpcEndpoint, err)
	}

	if wantChainID != 0 {
		remote, err := client.ChainID(ctx)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("query chain id: %w", err)
		}
		if remote.Uint64() != wantChainID {
			client.Close()
			return nil, fmt.Errorf("chain id mismatch: node reports %d, configured %d", remote.Uint64(), wantChainID)
		}
	}

	return client, nil
}

var _ Client = (*ethclient.Client)(nil)
