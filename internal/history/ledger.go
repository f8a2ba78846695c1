package history

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"eta-moderator/internal/storage"
)

type Persister interface {
	Load(ctx context.Context, name string, v any) error
	Save(ctx context.Context, name string, v any) error
}

// Ledger owns the history document. Mutations run one at a time and only
// become visible once the document has been persisted.
type Ledger struct {
	mu    sync.RWMutex
	store Persister
	doc   Document
}

// Open loads the persisted history, creating an empty one if none exists.
func Open(ctx context.Context, store Persister) (*Ledger, error) {
	doc := NewDocument()
	err := store.Load(ctx, storage.DocHistory, &doc)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		doc = NewDocument()
		if err := store.Save(ctx, storage.DocHistory, doc); err != nil {
			return nil, fmt.Errorf("create history: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("load history: %w", err)
	}
	doc.normalize()
	return &Ledger{store: store, doc: doc}, nil
}

// Record appends rec with its statistics and persists the result.
func (l *Ledger) Record(ctx context.Context, rec TimeoutRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.doc.Apply(rec)
	if err := l.store.Save(ctx, storage.DocHistory, l.doc); err != nil {
		l.doc.revert(rec)
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

// Reset replaces the history with an empty document.
func (l *Ledger) Reset(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	empty := NewDocument()
	if err := l.store.Save(ctx, storage.DocHistory, empty); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	l.doc = empty
	return nil
}

// Snapshot returns a deep copy of the current document.
func (l *Ledger) Snapshot() Document {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.doc.Clone()
}

// View runs fn against the live document under the read lock. fn must not
// retain or modify it.
func (l *Ledger) View(fn func(doc *Document)) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	fn(&l.doc)
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.doc.Timeouts)
}
