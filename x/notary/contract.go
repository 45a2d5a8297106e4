package notary

import (
	_ "embed"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Notary registry ABI JSON embedded at compile time
//
//go:embed abi/notary_registry.json
var notaryRegistryABIJSON string

// RegistryBinding provides calldata building and result decoding for the
// on-chain notary registry contract.
type RegistryBinding struct {
	address common.Address
	abi     abi.ABI
}

// NewRegistryBinding parses the embedded ABI and validates the contract
// address.
func NewRegistryBinding(contractAddr string) (*RegistryBinding, error) {
	if strings.TrimSpace(contractAddr) == "" {
		return nil, fmt.Errorf("contract address cannot be empty")
	}
	if !common.IsHexAddress(contractAddr) {
		return nil, fmt.Errorf("invalid contract address: %s", contractAddr)
	}

	parsedABI, err := abi.JSON(strings.NewReader(notaryRegistryABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse notary registry ABI: %w", err)
	}

	return &RegistryBinding{
		address: common.HexToAddress(contractAddr),
		abi:     parsedABI,
	}, nil
}

// Address returns the Ethereum address of the registry contract.
func (b *RegistryBinding) Address() common.Address {
	return b.address
}

// ABI returns the parsed ABI of the registry contract.
func (b *RegistryBinding) ABI() abi.ABI {
	return b.abi
}

// BuildNotarizeCalldata encodes a notarize(docHash, metadata) call.
func (b *RegistryBinding) BuildNotarizeCalldata(docHash common.Hash, metadata string) ([]byte, error) {
	data, err := b.abi.Pack("notarize", [32]byte(docHash), metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to pack notarize calldata: %w", err)
	}
	return data, nil
}

// BuildVerifyCalldata encodes a verify(docHash) call.
func (b *RegistryBinding) BuildVerifyCalldata(docHash common.Hash) ([]byte, error) {
	data, err := b.abi.Pack("verify", [32]byte(docHash))
	if err != nil {
		return nil, fmt.Errorf("failed to pack verify calldata: %w", err)
	}
	return data, nil
}

// UnpackVerify decodes the return data of a verify(docHash) call.
func (b *RegistryBinding) UnpackVerify(output []byte) (exists bool, timestamp *big.Int, submitter common.Address, err error) {
	values, err := b.abi.Unpack("verify", output)
	if err != nil {
		return false, nil, common.Address{}, fmt.Errorf("failed to unpack verify output: %w", err)
	}
	if len(values) != 3 {
		return false, nil, common.Address{}, fmt.Errorf("unexpected verify output arity: %d", len(values))
	}

	exists, ok := values[0].(bool)
	if !ok {
		return false, nil, common.Address{}, fmt.Errorf("unexpected type for verify exists flag")
	}
	timestamp, ok = values[1].(*big.Int)
	if !ok {
		return false, nil, common.Address{}, fmt.Errorf("unexpected type for verify timestamp")
	}
	submitter, ok = values[2].(common.Address)
	if !ok {
		return false, nil, common.Address{}, fmt.Errorf("unexpected type for verify submitter")
	}

	return exists, timestamp, submitter, nil
}

// ParseDocHash validates and normalizes a 0x-prefixed 32-byte hex string.
func ParseDocHash(raw string) (common.Hash, error) {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return common.Hash{}, ErrInvalidHash
	}
	if len(s) != 2+2*common.HashLength {
		return common.Hash{}, ErrInvalidHash
	}
	raw2 := s[2:]
	for _, c := range raw2 {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return common.Hash{}, ErrInvalidHash
		}
	}
	return common.HexToHash(s), nil
}
