// Package history records the configuration documents the console committed
// to the gateway, so an operator can see what changed and when.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/flemzord/sclaw-console/internal/confdoc"
	"github.com/flemzord/sclaw-console/internal/configsync"
)

// ErrNotFound is returned by Get when no entry has the requested id.
var ErrNotFound = errors.New("history: entry not found")

// Entry is one committed configuration document.
type Entry struct {
	ID        int64     `json:"id"`
	Op        string    `json:"op"`
	Hash      string    `json:"hash,omitempty"`
	Path      string    `json:"path,omitempty"`
	Raw       string    `json:"raw"`
	CreatedAt time.Time `json:"created_at"`
}

// Document decodes the stored raw JSON.
func (e Entry) Document() (confdoc.Document, error) {
	return confdoc.Parse([]byte(e.Raw))
}

// Store persists history entries.
// Implementations must be safe for concurrent use.
type Store interface {
	// Record appends e and returns its assigned id. A zero CreatedAt is
	// replaced by the current time.
	Record(ctx context.Context, e Entry) (int64, error)

	// List returns at most limit entries, newest first. A non-positive limit
	// returns every entry.
	List(ctx context.Context, limit int) ([]Entry, error)

	// Get returns the entry with the given id or ErrNotFound.
	Get(ctx context.Context, id int64) (Entry, error)

	// Prune keeps the newest keep entries and returns how many were removed.
	Prune(ctx context.Context, keep int) (int, error)

	Close() error
}

// EntryFromSnapshot builds the entry recorded after op committed snap.
func EntryFromSnapshot(op string, snap configsync.Snapshot) (Entry, error) {
	raw, err := confdoc.Marshal(snap.Document)
	if err != nil {
		return Entry{}, err
	}
	created := snap.LoadedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return Entry{
		Op:        op,
		Hash:      snap.Hash,
		Path:      snap.Path,
		Raw:       string(raw),
		CreatedAt: created,
	}, nil
}
