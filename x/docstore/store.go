package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/docuchain/notary/x/notary"
)

// Config locates the embedded database.
type Config struct {
	// Path to the SQLite database file. ":memory:" works for tests.
	Path string `mapstructure:"path" yaml:"path"`
}

func DefaultConfig() Config {
	return Config{Path: "data/notary.db"}
}

// Document is a stored upload record.
type Document struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id,omitempty"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type,omitempty"`
	Hash        string    `json:"hash"`
	Status      string    `json:"status"`
	IPFSCID     string    `json:"ipfs_cid,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store persists documents and notarization transactions in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path, applies pragmas
// and initializes the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path required")
	}

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &Store{db: db}
	if err := store.applyPragmas(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) applyPragmas(ctx context.Context) error {
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := s.db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}
	return nil
}

func (s *Store) initSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id            TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL DEFAULT '',
	name          TEXT NOT NULL,
	size          INTEGER NOT NULL,
	content_type  TEXT NOT NULL DEFAULT '',
	hash          TEXT NOT NULL,
	status        TEXT NOT NULL,
	ipfs_cid      TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_user ON documents(user_id);
CREATE INDEX IF NOT EXISTS idx_documents_hash ON documents(hash);

CREATE TABLE IF NOT EXISTS notarize_transactions (
	id            TEXT PRIMARY KEY,
	hash          TEXT NOT NULL,
	file_name     TEXT NOT NULL,
	status        TEXT NOT NULL,
	tx_hash       TEXT NOT NULL DEFAULT '',
	block_number  INTEGER NOT NULL DEFAULT 0,
	gas_used      INTEGER NOT NULL DEFAULT 0,
	explorer_url  TEXT NOT NULL DEFAULT '',
	error         TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMP NOT NULL,
	updated_at    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ntx_hash ON notarize_transactions(hash);
CREATE INDEX IF NOT EXISTS idx_ntx_status ON notarize_transactions(status);
`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// SaveDocument inserts an upload record.
func (s *Store) SaveDocument(ctx context.Context, doc *Document) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO documents (id, user_id, name, size, content_type, hash, status, ipfs_cid, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.UserID, doc.Name, doc.Size, doc.ContentType, doc.Hash, doc.Status, doc.IPFSCID, doc.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// ListDocuments returns documents, optionally filtered by user id,
// newest first.
func (s *Store) ListDocuments(ctx context.Context, userID string) ([]Document, error) {
	query := `SELECT id, user_id, name, size, content_type, hash, status, ipfs_cid, created_at
FROM documents`
	args := []any{}
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.UserID, &d.Name, &d.Size, &d.ContentType, &d.Hash, &d.Status, &d.IPFSCID, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// SaveTransaction inserts a new lifecycle record.
func (s *Store) SaveTransaction(ctx context.Context, tx *notary.Transaction) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO notarize_transactions (id, hash, file_name, status, tx_hash, block_number, gas_used, explorer_url, error, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.Hash, tx.FileName, string(tx.Status), tx.TxHash, tx.BlockNumber, tx.GasUsed,
		tx.ExplorerURL, tx.Error, tx.CreatedAt.UTC(), tx.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// UpdateTransaction persists a lifecycle transition.
func (s *Store) UpdateTransaction(ctx context.Context, tx *notary.Transaction) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE notarize_transactions
SET status = ?, tx_hash = ?, block_number = ?, gas_used = ?, explorer_url = ?, error = ?, updated_at = ?
WHERE id = ?`,
		string(tx.Status), tx.TxHash, tx.BlockNumber, tx.GasUsed, tx.ExplorerURL, tx.Error, tx.UpdatedAt.UTC(), tx.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("update transaction: no row with id %s", tx.ID)
	}
	return nil
}

// ConfirmedHashes returns the distinct document hashes with a confirmed
// transaction. The tracker rebuilds its notarized set from this on boot.
func (s *Store) ConfirmedHashes(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT hash FROM notarize_transactions WHERE status = ?`, string(notary.StatusConfirmed))
	if err != nil {
		return nil, fmt.Errorf("query confirmed hashes: %w", err)
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("scan hash: %w", err)
		}
		hashes = append(hashes, h)
	}
	return hashes, rows.Err()
}

// ListTransactions returns all lifecycle records, newest first.
func (s *Store) ListTransactions(ctx context.Context) ([]notary.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, hash, file_name, status, tx_hash, block_number, gas_used, explorer_url, error, created_at, updated_at
FROM notarize_transactions ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []notary.Transaction
	for rows.Next() {
		var tx notary.Transaction
		var status string
		if err := rows.Scan(&tx.ID, &tx.Hash, &tx.FileName, &status, &tx.TxHash, &tx.BlockNumber,
			&tx.GasUsed, &tx.ExplorerURL, &tx.Error, &tx.CreatedAt, &tx.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx.Status = notary.Status(status)
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

var _ notary.Store = (*Store)(nil)
