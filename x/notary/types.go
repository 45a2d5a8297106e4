package notary

import (
	"time"
)

// Status is the lifecycle state of a notarization transaction.
//
// Valid transitions: pending -> confirming -> confirmed,
// pending -> failed, confirming -> failed. Confirmed and failed are
// terminal.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirming Status = "confirming"
	StatusConfirmed  Status = "confirmed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusFailed
}

// canTransition encodes the allowed edges of the lifecycle.
func (s Status) canTransition(to Status) bool {
	switch s {
	case StatusPending:
		return to == StatusConfirming || to == StatusFailed
	case StatusConfirming:
		return to == StatusConfirmed || to == StatusFailed
	default:
		return false
	}
}

// Transaction tracks one document hash through the notarization
// lifecycle. Owned by the Tracker; callers only ever see copies.
type Transaction struct {
	ID          string    `json:"id"`
	Hash        string    `json:"hash"` // 0x-prefixed document content hash
	FileName    string    `json:"file_name"`
	Status      Status    `json:"status"`
	TxHash      string    `json:"tx_hash,omitempty"`
	BlockNumber uint64    `json:"block_number,omitempty"`
	GasUsed     uint64    `json:"gas_used,omitempty"`
	ExplorerURL string    `json:"explorer_url,omitempty"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Stats aggregates the tracked transaction list.
type Stats struct {
	Total       int     `json:"total"`
	Confirmed   int     `json:"confirmed"`
	Pending     int     `json:"pending"` // pending + confirming
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"success_rate"` // confirmed/total*100, 0 when total is 0
	Healthy     bool    `json:"healthy"`
}

// EventType tags lifecycle events.
type EventType string

const (
	EventSubmitted  EventType = "submitted"
	EventConfirming EventType = "confirming"
	EventConfirmed  EventType = "confirmed"
	EventFailed     EventType = "failed"
)

// Event is one step of a transaction's lifecycle, carrying a snapshot
// of the transaction at the time of the transition.
type Event struct {
	Type EventType   `json:"type"`
	Tx   Transaction `json:"transaction"`
	Time time.Time   `json:"time"`
}

// VerifyResult is the outcome of an on-chain existence query.
type VerifyResult struct {
	Hash        string    `json:"hash"`
	Notarized   bool      `json:"notarized"`
	NotarizedAt time.Time `json:"notarized_at,omitempty"`
	Submitter   string    `json:"submitter,omitempty"`
}
