package notary

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// Store persists lifecycle transitions so the notarized set survives
// restarts. Implementations must be safe for concurrent use.
type Store interface {
	SaveTransaction(ctx context.Context, tx *Transaction) error
	UpdateTransaction(ctx context.Context, tx *Transaction) error
	ConfirmedHashes(ctx context.Context) ([]string, error)
}

// Option configures the tracker.
type Option func(*Tracker)

// WithStore enables persistence of lifecycle transitions.
func WithStore(store Store) Option {
	return func(t *Tracker) { t.store = store }
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(t *Tracker) { t.metrics = m }
}

// WithClock overrides the time source. Tests use this.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// Tracker owns every NotarizeTransaction for its lifetime and drives the
// pending -> confirming -> confirmed/failed state machine. Each document
// hash is tracked independently; there is no ordering across hashes.
type Tracker struct {
	mu  sync.RWMutex
	ctx context.Context
	log zerolog.Logger

	cfg       Config
	submitter Submitter
	store     Store
	metrics   *Metrics
	now       func() time.Time

	txs       map[string]*Transaction // id -> transaction
	order     []string                // ids in creation order
	inflight  map[string]string       // doc hash -> active tx id
	notarized map[string]bool         // doc hashes with a confirmed tx

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int

	entropyMu sync.Mutex
	entropy   *ulid.MonotonicEntropy

	wg sync.WaitGroup
}

// NewTracker creates a tracker. The submitter may be nil when no wallet
// is configured; submissions are then rejected with ErrWalletNotConnected.
func NewTracker(ctx context.Context, cfg Config, submitter Submitter, log zerolog.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		ctx:       ctx,
		log:       log.With().Str("component", "notary-tracker").Logger(),
		cfg:       cfg,
		submitter: submitter,
		now:       time.Now,
		txs:       make(map[string]*Transaction),
		inflight:  make(map[string]string),
		notarized: make(map[string]bool),
		subs:      make(map[int]chan Event),
		entropy:   ulid.Monotonic(rand.Reader, 0),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Restore rebuilds the notarized set from confirmed transactions in the
// store. Call once before accepting submissions.
func (t *Tracker) Restore(ctx context.Context) error {
	if t.store == nil {
		return nil
	}
	hashes, err := t.store.ConfirmedHashes(ctx)
	if err != nil {
		return fmt.Errorf("restore notarized set: %w", err)
	}

	t.mu.Lock()
	for _, h := range hashes {
		t.notarized[normalizeHash(h)] = true
	}
	count := len(t.notarized)
	t.mu.Unlock()

	t.log.Info().Int("notarized_hashes", count).Msg("notarized set restored")
	return nil
}

// Submit validates preconditions, registers a pending transaction and
// starts the submission flow. It returns a snapshot of the new
// transaction immediately; progress is observable via Subscribe and Get.
func (t *Tracker) Submit(ctx context.Context, docHash, fileName string) (Transaction, error) {
	if t.submitter == nil {
		return Transaction{}, ErrWalletNotConnected
	}
	if strings.TrimSpace(docHash) == "" {
		return Transaction{}, ErrMissingHash
	}
	if strings.TrimSpace(fileName) == "" {
		return Transaction{}, ErrMissingFileName
	}

	parsed, err := ParseDocHash(docHash)
	if err != nil {
		return Transaction{}, err
	}
	key := normalizeHash(parsed.Hex())

	t.mu.Lock()
	if t.notarized[key] {
		t.mu.Unlock()
		return Transaction{}, ErrAlreadyNotarized
	}
	if _, busy := t.inflight[key]; busy {
		t.mu.Unlock()
		return Transaction{}, ErrSubmissionInFlight
	}

	tx := &Transaction{
		ID:        t.newID(),
		Hash:      key,
		FileName:  fileName,
		Status:    StatusPending,
		CreatedAt: t.now(),
		UpdatedAt: t.now(),
	}
	t.txs[tx.ID] = tx
	t.order = append(t.order, tx.ID)
	t.inflight[key] = tx.ID
	snapshot := *tx
	t.mu.Unlock()

	t.persist(ctx, &snapshot, true)
	if t.metrics != nil {
		t.metrics.RecordSubmitted()
	}
	t.emit(EventSubmitted, snapshot)

	t.log.Info().
		Str("id", snapshot.ID).
		Str("doc_hash", key).
		Str("file_name", fileName).
		Msg("notarization submitted")

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.run(snapshot.ID, parsed, fileName)
	}()

	return snapshot, nil
}

// run drives a single transaction from pending to a terminal state.
func (t *Tracker) run(id string, docHash common.Hash, fileName string) {
	start := t.now()

	metadata, _ := json.Marshal(map[string]any{
		"file_name": fileName,
		"timestamp": start.UTC().Format(time.RFC3339),
	})

	txHash, est, err := t.submitter.Submit(t.ctx, docHash, string(metadata))
	if err != nil {
		t.fail(id, err.Error())
		return
	}
	if est.UsingFallback && t.metrics != nil {
		t.metrics.RecordFallbackEstimate()
	}

	explorerURL := fmt.Sprintf("%s/tx/%s", strings.TrimRight(t.cfg.ExplorerBase, "/"), txHash.Hex())
	ok := t.transition(id, StatusConfirming, func(tx *Transaction) {
		tx.TxHash = txHash.Hex()
		tx.ExplorerURL = explorerURL
	})
	if !ok {
		return
	}

	waitCtx, cancel := context.WithTimeout(t.ctx, t.cfg.ConfirmTimeout)
	defer cancel()

	receipt, err := t.submitter.WaitReceipt(waitCtx, txHash, t.cfg.PollInterval)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			t.fail(id, ErrConfirmTimeout.Error())
		} else {
			t.fail(id, err.Error())
		}
		return
	}

	if receipt.Status == types.ReceiptStatusFailed {
		t.fail(id, "transaction reverted on-chain")
		return
	}

	t.transition(id, StatusConfirmed, func(tx *Transaction) {
		if receipt.BlockNumber != nil {
			tx.BlockNumber = receipt.BlockNumber.Uint64()
		}
		tx.GasUsed = receipt.GasUsed
	})

	if t.metrics != nil {
		t.metrics.ObserveGasUsed(receipt.GasUsed)
		t.metrics.ObserveConfirmDuration(t.now().Sub(start))
	}
}

// transition applies a state change, enforcing the lifecycle edges.
// Returns false when the transaction is unknown or already terminal.
func (t *Tracker) transition(id string, to Status, mutate func(*Transaction)) bool {
	t.mu.Lock()
	tx, exists := t.txs[id]
	if !exists || !tx.Status.canTransition(to) {
		var from Status
		if exists {
			from = tx.Status
		}
		t.mu.Unlock()
		if exists {
			t.log.Warn().
				Str("id", id).
				Str("from", string(from)).
				Str("to", string(to)).
				Msg("illegal lifecycle transition ignored")
		}
		return false
	}

	tx.Status = to
	tx.UpdatedAt = t.now()
	if mutate != nil {
		mutate(tx)
	}
	if to == StatusConfirmed {
		t.notarized[tx.Hash] = true
	}
	if to.Terminal() {
		delete(t.inflight, tx.Hash)
	}
	snapshot := *tx
	t.mu.Unlock()

	t.persist(t.ctx, &snapshot, false)
	if t.metrics != nil {
		t.metrics.RecordTransition(to)
	}
	t.emit(eventFor(to), snapshot)

	evt := t.log.Info()
	if to == StatusFailed {
		evt = t.log.Warn()
	}
	evt.
		Str("id", snapshot.ID).
		Str("doc_hash", snapshot.Hash).
		Str("status", string(to)).
		Str("tx_hash", snapshot.TxHash).
		Uint64("block_number", snapshot.BlockNumber).
		Str("error", snapshot.Error).
		Msg("notarization transition")

	return true
}

// fail moves a transaction to failed, capturing the error verbatim.
func (t *Tracker) fail(id, message string) {
	t.transition(id, StatusFailed, func(tx *Transaction) {
		tx.Error = message
	})
}

// Get returns a snapshot of a transaction by id.
func (t *Tracker) Get(id string) (Transaction, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	tx, exists := t.txs[id]
	if !exists {
		return Transaction{}, ErrTxNotFound
	}
	return *tx, nil
}

// List returns snapshots of all transactions, newest first.
func (t *Tracker) List() []Transaction {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Transaction, 0, len(t.order))
	for i := len(t.order) - 1; i >= 0; i-- {
		out = append(out, *t.txs[t.order[i]])
	}
	return out
}

// IsNotarized reports whether the hash has a confirmed transaction.
func (t *Tracker) IsNotarized(docHash string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.notarized[normalizeHash(docHash)]
}

// Stats derives aggregate counters over the tracked list.
func (t *Tracker) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := Stats{Healthy: true}
	for _, id := range t.order {
		switch t.txs[id].Status {
		case StatusConfirmed:
			s.Confirmed++
		case StatusFailed:
			s.Failed++
		default:
			s.Pending++
		}
	}
	s.Total = len(t.order)
	if s.Total > 0 {
		s.SuccessRate = float64(s.Confirmed) / float64(s.Total) * 100
	}

	// Healthy means no failures among the most recent HealthWindow
	// transactions.
	window := t.cfg.HealthWindow
	if window > 0 {
		start := len(t.order) - window
		if start < 0 {
			start = 0
		}
		for _, id := range t.order[start:] {
			if t.txs[id].Status == StatusFailed {
				s.Healthy = false
				break
			}
		}
	}
	return s
}

// Subscribe returns a lifecycle event channel and an unsubscribe
// function. Slow consumers drop events rather than block the tracker.
func (t *Tracker) Subscribe() (<-chan Event, func()) {
	t.subMu.Lock()
	defer t.subMu.Unlock()

	id := t.nextSub
	t.nextSub++
	ch := make(chan Event, 16)
	t.subs[id] = ch

	return ch, func() {
		t.subMu.Lock()
		defer t.subMu.Unlock()
		if existing, exists := t.subs[id]; exists {
			delete(t.subs, id)
			close(existing)
		}
	}
}

// Stop waits for in-flight submission goroutines to settle.
func (t *Tracker) Stop(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Tracker) emit(typ EventType, tx Transaction) {
	event := Event{Type: typ, Tx: tx, Time: t.now()}

	t.subMu.Lock()
	defer t.subMu.Unlock()
	for id, ch := range t.subs {
		select {
		case ch <- event:
		default:
			t.log.Warn().Int("subscriber", id).Str("event", string(typ)).Msg("event dropped, slow subscriber")
		}
	}
}

func (t *Tracker) persist(ctx context.Context, tx *Transaction, create bool) {
	if t.store == nil {
		return
	}
	var err error
	if create {
		err = t.store.SaveTransaction(ctx, tx)
	} else {
		err = t.store.UpdateTransaction(ctx, tx)
	}
	if err != nil {
		t.log.Error().Err(err).Str("id", tx.ID).Msg("failed to persist transaction")
	}
}

func (t *Tracker) newID() string {
	t.entropyMu.Lock()
	defer t.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t.now().UTC()), t.entropy).String()
}

func eventFor(s Status) EventType {
	switch s {
	case StatusConfirming:
		return EventConfirming
	case StatusConfirmed:
		return EventConfirmed
	default:
		return EventFailed
	}
}

func normalizeHash(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}
