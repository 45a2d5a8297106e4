package chain

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer signs transactions for a fixed chain id.
type Signer interface {
	Address() common.Address
	SignTx(tx *types.Transaction) (*types.Transaction, error)
}

// LocalECDSASigner signs with an in-memory secp256k1 key.
type LocalECDSASigner struct {
	chainID *big.Int
	key     *ecdsa.PrivateKey
	addr    common.Address
}

// NewLocalECDSASigner wraps a raw private key.
func NewLocalECDSASigner(chainID *big.Int, key *ecdsa.PrivateKey) *LocalECDSASigner {
	return &LocalECDSASigner{
		chainID: chainID,
		key:     key,
		addr:    crypto.PubkeyToAddress(key.PublicKey),
	}
}

// NewLocalECDSASignerFromHex parses a hex-encoded private key, with or
// without a 0x prefix.
func NewLocalECDSASignerFromHex(chainID *big.Int, pkHex string) (*LocalECDSASigner, error) {
	pkHex = strings.TrimPrefix(strings.TrimSpace(pkHex), "0x")
	if pkHex == "" {
		return nil, errors.New("private key is empty")
	}
	raw, err := hex.DecodeString(pkHex)
	if err != nil {
		return nil, fmt.Errorf("decode private key hex: %w", err)
	}
	key, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return NewLocalECDSASigner(chainID, key), nil
}

func (s *LocalECDSASigner) Address() common.Address {
	return s.addr
}

func (s *LocalECDSASigner) SignTx(tx *types.Transaction) (*types.Transaction, error) {
	return types.SignTx(tx, types.LatestSignerForChainID(s.chainID), s.key)
}
