// Package history persists a ledger of classified documents so that
// repeated batch runs skip work already done. Entries survive restarts and
// keep the raw classification result for inspection.
package history

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

const keyPrefix = "doc/"

// Entry records one processing attempt for a document.
type Entry struct {
	DocumentID  string    `json:"document_id"`
	Title       string    `json:"title"`
	ProcessedAt time.Time `json:"processed_at"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	// Result carries the classification outcome, when any.
	Result json.RawMessage `json:"result,omitempty"`
}

// Stats summarizes the ledger.
type Stats struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// Ledger is a badger-backed processing log.
type Ledger struct {
	db *badger.DB
}

// Open opens (or creates) the ledger at the given directory.
func Open(path string) (*Ledger, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open history ledger at %s: %w", path, err)
	}
	return &Ledger{db: db}, nil
}

// Record upserts the processing entry for a document.
func (l *Ledger) Record(entry Entry) error {
	if entry.DocumentID == "" {
		return fmt.Errorf("document id is required")
	}
	if entry.ProcessedAt.IsZero() {
		entry.ProcessedAt = time.Now()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal history entry: %w", err)
	}
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+entry.DocumentID), data)
	})
}

// IsProcessed reports whether the document has a ledger entry.
func (l *Ledger) IsProcessed(documentID string) (bool, error) {
	var found bool
	err := l.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(keyPrefix + documentID))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	return found, err
}

// Get returns the ledger entry for a document, or nil when none exists.
func (l *Ledger) Get(documentID string) (*Entry, error) {
	var entry *Entry
	err := l.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + documentID))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var e Entry
			if err := json.Unmarshal(val, &e); err != nil {
				return err
			}
			entry = &e
			return nil
		})
	})
	return entry, err
}

// List returns all entries, most recently processed first.
func (l *Ledger) List() ([]Entry, error) {
	var entries []Entry
	err := l.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var e Entry
				if err := json.Unmarshal(val, &e); err != nil {
					return err
				}
				entries = append(entries, e)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ProcessedAt.After(entries[j].ProcessedAt)
	})
	return entries, nil
}

// Reset removes the entry for a document so it is processed again.
func (l *Ledger) Reset(documentID string) error {
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(keyPrefix + documentID))
	})
}

// ResetAll drops every ledger entry.
func (l *Ledger) ResetAll() error {
	return l.db.DropAll()
}

// Statistics summarizes the ledger.
func (l *Ledger) Statistics() (Stats, error) {
	entries, err := l.List()
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{Total: len(entries)}
	for _, e := range entries {
		if e.Success {
			stats.Successful++
		} else {
			stats.Failed++
		}
	}
	return stats, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}
