package notary

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestVerifierVerify(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	binding, err := NewRegistryBinding(testContractAddr)
	require.NoError(t, err)

	docHash := "0x" + strings.Repeat("1a", 32)
	submitter := common.HexToAddress("0x000000000000000000000000000000000000cafe")
	notarizedAt := int64(1_725_000_000)

	t.Run("notarized", func(t *testing.T) {
		output, err := binding.ABI().Methods["verify"].Outputs.Pack(
			true, big.NewInt(notarizedAt), submitter)
		require.NoError(t, err)

		v := NewVerifier(&mockEthClient{callOutput: output}, binding, zerolog.Nop())
		result, err := v.Verify(ctx, docHash)
		require.NoError(t, err)
		require.True(t, result.Notarized)
		require.Equal(t, docHash, result.Hash)
		require.Equal(t, submitter.Hex(), result.Submitter)
		require.Equal(t, time.Unix(notarizedAt, 0).UTC(), result.NotarizedAt)
	})

	t.Run("not notarized", func(t *testing.T) {
		output, err := binding.ABI().Methods["verify"].Outputs.Pack(
			false, big.NewInt(0), common.Address{})
		require.NoError(t, err)

		v := NewVerifier(&mockEthClient{callOutput: output}, binding, zerolog.Nop())
		result, err := v.Verify(ctx, docHash)
		require.NoError(t, err)
		require.False(t, result.Notarized)
		require.Empty(t, result.Submitter)
		require.True(t, result.NotarizedAt.IsZero())
	})

	t.Run("invalid hash", func(t *testing.T) {
		v := NewVerifier(&mockEthClient{}, binding, zerolog.Nop())
		_, err := v.Verify(ctx, "not-a-hash")
		require.ErrorIs(t, err, ErrInvalidHash)
	})

	t.Run("rpc failure", func(t *testing.T) {
		v := NewVerifier(&mockEthClient{callErr: errors.New("connection refused")}, binding, zerolog.Nop())
		_, err := v.Verify(ctx, docHash)
		require.ErrorContains(t, err, "verify call failed")
	})
}
