package docstore

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/docuchain/notary/x/notary"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenValidation(t *testing.T) {
	t.Parallel()

	_, err := Open("  ")
	require.Error(t, err)
}

func TestSaveAndListDocuments(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := openTestStore(t)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	docs := []Document{
		{ID: "d1", UserID: "alice", Name: "lease.pdf", Size: 100, Hash: "0xaa", Status: "completed", CreatedAt: base},
		{ID: "d2", UserID: "bob", Name: "will.pdf", Size: 200, Hash: "0xbb", Status: "completed", CreatedAt: base.Add(time.Minute)},
		{ID: "d3", UserID: "alice", Name: "deed.pdf", Size: 300, Hash: "0xcc", Status: "completed", IPFSCID: "QmX", CreatedAt: base.Add(2 * time.Minute)},
	}
	for i := range docs {
		require.NoError(t, store.SaveDocument(ctx, &docs[i]))
	}

	t.Run("all newest first", func(t *testing.T) {
		got, err := store.ListDocuments(ctx, "")
		require.NoError(t, err)
		require.Len(t, got, 3)
		require.Equal(t, "d3", got[0].ID)
		require.Equal(t, "d1", got[2].ID)
		require.Equal(t, "QmX", got[0].IPFSCID)
	})

	t.Run("filtered by user", func(t *testing.T) {
		got, err := store.ListDocuments(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, got, 2)
		for _, d := range got {
			require.Equal(t, "alice", d.UserID)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		got, err := store.ListDocuments(ctx, "nobody")
		require.NoError(t, err)
		require.Empty(t, got)
	})
}

func TestTransactionLifecyclePersistence(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := openTestStore(t)

	now := time.Now().UTC().Truncate(time.Second)
	tx := notary.Transaction{
		ID:        "01J0TEST",
		Hash:      "0x" + strings.Repeat("ab", 32),
		FileName:  "contract.pdf",
		Status:    notary.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, store.SaveTransaction(ctx, &tx))

	tx.Status = notary.StatusConfirming
	tx.TxHash = "0x" + strings.Repeat("cd", 32)
	tx.ExplorerURL = "https://sepolia.basescan.org/tx/" + tx.TxHash
	tx.UpdatedAt = now.Add(time.Second)
	require.NoError(t, store.UpdateTransaction(ctx, &tx))

	tx.Status = notary.StatusConfirmed
	tx.BlockNumber = 12345
	tx.GasUsed = 85000
	tx.UpdatedAt = now.Add(2 * time.Second)
	require.NoError(t, store.UpdateTransaction(ctx, &tx))

	list, err := store.ListTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	got := list[0]
	require.Equal(t, notary.StatusConfirmed, got.Status)
	require.Equal(t, tx.TxHash, got.TxHash)
	require.Equal(t, uint64(12345), got.BlockNumber)
	require.Equal(t, uint64(85000), got.GasUsed)
	require.Equal(t, tx.ExplorerURL, got.ExplorerURL)
	require.Empty(t, got.Error)
}

func TestUpdateTransactionMissingRow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := openTestStore(t)

	tx := notary.Transaction{ID: "missing", Status: notary.StatusFailed, UpdatedAt: time.Now()}
	err := store.UpdateTransaction(ctx, &tx)
	require.ErrorContains(t, err, "no row with id")
}

func TestConfirmedHashes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := openTestStore(t)

	now := time.Now().UTC()
	save := func(id, hash string, status notary.Status) {
		tx := notary.Transaction{
			ID: id, Hash: hash, FileName: "f.pdf", Status: status,
			CreatedAt: now, UpdatedAt: now,
		}
		require.NoError(t, store.SaveTransaction(ctx, &tx))
	}

	confirmedHash := "0x" + strings.Repeat("11", 32)
	save("t1", confirmedHash, notary.StatusConfirmed)
	save("t2", confirmedHash, notary.StatusConfirmed) // re-notarization attempt, same hash
	save("t3", "0x"+strings.Repeat("22", 32), notary.StatusFailed)
	save("t4", "0x"+strings.Repeat("33", 32), notary.StatusPending)

	hashes, err := store.ConfirmedHashes(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{confirmedHash}, hashes)
}

func TestPing(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	require.NoError(t, store.Ping(context.Background()))
}
