package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	ledger, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { ledger.Close() })
	return ledger
}

func TestLedgerRecordAndQuery(t *testing.T) {
	ledger := openTestLedger(t)

	ok, err := ledger.IsProcessed("1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, ledger.Record(Entry{
		DocumentID: "1",
		Title:      "Steuerbescheid 2024",
		Success:    true,
	}))

	ok, err = ledger.IsProcessed("1")
	require.NoError(t, err)
	assert.True(t, ok)

	entry, err := ledger.Get("1")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "Steuerbescheid 2024", entry.Title)
	assert.True(t, entry.Success)
	assert.False(t, entry.ProcessedAt.IsZero(), "timestamp should be filled in")

	missing, err := ledger.Get("404")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestLedgerRecordReplacesByID(t *testing.T) {
	ledger := openTestLedger(t)

	require.NoError(t, ledger.Record(Entry{DocumentID: "1", Success: false, Error: "timeout"}))
	require.NoError(t, ledger.Record(Entry{DocumentID: "1", Success: true}))

	entry, err := ledger.Get("1")
	require.NoError(t, err)
	assert.True(t, entry.Success)
	assert.Empty(t, entry.Error)

	stats, err := ledger.Statistics()
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 1, Successful: 1}, stats)
}

func TestLedgerListOrder(t *testing.T) {
	ledger := openTestLedger(t)

	base := time.Now()
	require.NoError(t, ledger.Record(Entry{DocumentID: "1", ProcessedAt: base.Add(-time.Hour)}))
	require.NoError(t, ledger.Record(Entry{DocumentID: "2", ProcessedAt: base}))
	require.NoError(t, ledger.Record(Entry{DocumentID: "3", ProcessedAt: base.Add(-time.Minute)}))

	entries, err := ledger.List()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "2", entries[0].DocumentID)
	assert.Equal(t, "3", entries[1].DocumentID)
	assert.Equal(t, "1", entries[2].DocumentID)
}

func TestLedgerReset(t *testing.T) {
	ledger := openTestLedger(t)

	require.NoError(t, ledger.Record(Entry{DocumentID: "1", Success: true}))
	require.NoError(t, ledger.Record(Entry{DocumentID: "2", Success: false, Error: "boom"}))

	require.NoError(t, ledger.Reset("1"))
	ok, err := ledger.IsProcessed("1")
	require.NoError(t, err)
	assert.False(t, ok)

	stats, err := ledger.Statistics()
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 1, Failed: 1}, stats)

	require.NoError(t, ledger.ResetAll())
	stats, err = ledger.Statistics()
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)

	assert.Error(t, ledger.Record(Entry{DocumentID: ""}))
}
