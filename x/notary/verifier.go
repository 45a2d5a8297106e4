package notary

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/rs/zerolog"

	"github.com/docuchain/notary/x/chain"
)

// Verifier answers whether a document hash has been notarized, querying
// the registry contract read-only.
type Verifier struct {
	client   chain.Client
	contract *RegistryBinding
	log      zerolog.Logger
}

func NewVerifier(client chain.Client, contract *RegistryBinding, log zerolog.Logger) *Verifier {
	return &Verifier{
		client:   client,
		contract: contract,
		log:      log.With().Str("component", "notary-verifier").Logger(),
	}
}

// Verify queries the registry's verify(docHash) view function.
func (v *Verifier) Verify(ctx context.Context, docHash string) (VerifyResult, error) {
	parsed, err := ParseDocHash(docHash)
	if err != nil {
		return VerifyResult{}, err
	}

	calldata, err := v.contract.BuildVerifyCalldata(parsed)
	if err != nil {
		return VerifyResult{}, err
	}

	to := v.contract.Address()
	output, err := v.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: calldata}, nil)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("verify call failed: %w", err)
	}

	exists, timestamp, submitter, err := v.contract.UnpackVerify(output)
	if err != nil {
		return VerifyResult{}, err
	}

	result := VerifyResult{
		Hash:      normalizeHash(parsed.Hex()),
		Notarized: exists,
	}
	if exists {
		if timestamp != nil && timestamp.IsInt64() {
			result.NotarizedAt = time.Unix(timestamp.Int64(), 0).UTC()
		}
		result.Submitter = submitter.Hex()
	}

	v.log.Debug().
		Str("doc_hash", result.Hash).
		Bool("notarized", result.Notarized).
		Msg("on-chain verification completed")

	return result, nil
}
