package notary

import "errors"

var (
	// ErrWalletNotConnected indicates no chain client/signer is configured.
	ErrWalletNotConnected = errors.New("notary: wallet not connected")

	// ErrMissingHash indicates a submission without a document hash.
	ErrMissingHash = errors.New("notary: document hash is required")

	// ErrMissingFileName indicates a submission without a file name.
	ErrMissingFileName = errors.New("notary: file name is required")

	// ErrInvalidHash indicates a malformed document hash.
	ErrInvalidHash = errors.New("notary: document hash must be a 0x-prefixed 32-byte hex string")

	// ErrAlreadyNotarized indicates the hash already has a confirmed
	// transaction and must not be resubmitted.
	ErrAlreadyNotarized = errors.New("notary: document hash already notarized")

	// ErrSubmissionInFlight indicates a transaction for this hash is
	// still pending or confirming.
	ErrSubmissionInFlight = errors.New("notary: submission already in flight for this hash")

	// ErrConfirmTimeout indicates the confirmation wait exceeded its deadline.
	ErrConfirmTimeout = errors.New("notary: timed out waiting for confirmation")

	// ErrTxNotFound indicates an unknown transaction id.
	ErrTxNotFound = errors.New("notary: transaction not found")
)
