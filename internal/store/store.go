// Package store implements the application hook pkg/dag calls once a
// delta's causal dependencies are satisfied (spec.md §4.2, §6
// "Applier"). It decodes the delta's payload as an internal/crdtdoc
// Patch, applies it to the named document's persisted state, and
// maintains a Merkle content hash over the whole document space — the
// three responsibilities spec.md explicitly delegates to the applier
// rather than the DAG engine.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v3"

	"github.com/rechain/deltasync/internal/crdtdoc"
	"github.com/rechain/deltasync/internal/merkle"
	"github.com/rechain/deltasync/pkg/delta"
)

const documentKeyPrefix = "doc/"

// BadgerApplier persists crdtdoc.Document state in BadgerDB and keeps
// a merkle.Tree content hash in sync with it. It implements
// dag.Applier.
type BadgerApplier struct {
	db *badger.DB

	mu   sync.RWMutex
	tree *merkle.Tree
}

// Open opens (creating if absent) a BadgerDB at path and builds the
// initial content hash over whatever documents are already there.
func Open(path string) (*BadgerApplier, error) {
	return open(badger.DefaultOptions(path))
}

// OpenInMemory opens a BadgerDB with no on-disk footprint, for tests
// and ephemeral single-process use.
func OpenInMemory() (*BadgerApplier, error) {
	return open(badger.DefaultOptions("").WithInMemory(true))
}

func open(opts badger.Options) (*BadgerApplier, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("store: open badger: %w", err)
	}

	a := &BadgerApplier{db: db}
	if err := a.rebuildTree(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return a, nil
}

// Close releases the underlying BadgerDB handle.
func (a *BadgerApplier) Close() error {
	return a.db.Close()
}

// Apply implements dag.Applier: decode the patch, merge it into the
// named document's persisted state, persist the result, and refresh
// the content hash.
func (a *BadgerApplier) Apply(_ context.Context, d *delta.Delta) error {
	patch, err := crdtdoc.UnmarshalPatch(d.Payload)
	if err != nil {
		return fmt.Errorf("store: delta %s: %w", d.ID, err)
	}
	if patch.DocID == "" {
		return fmt.Errorf("store: delta %s: patch has no doc_id", d.ID)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	doc, err := a.loadDocument(patch.DocID)
	if err != nil {
		return err
	}
	if err := doc.Apply(patch); err != nil {
		return fmt.Errorf("store: delta %s: %w", d.ID, err)
	}
	if err := a.saveDocument(patch.DocID, doc); err != nil {
		return err
	}
	return a.rebuildTreeLocked()
}

// RootHash returns the current content hash over all persisted
// documents, for comparison against a peer replica's hash.
func (a *BadgerApplier) RootHash() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.tree.RootHash()
}

// Document returns a snapshot of docID's persisted state, for the
// query surface (internal/api) to expose read-only.
func (a *BadgerApplier) Document(docID string) (*crdtdoc.Document, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.loadDocument(docID)
}

func (a *BadgerApplier) loadDocument(docID string) (*crdtdoc.Document, error) {
	doc := crdtdoc.NewDocument()

	err := a.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(documentKey(docID))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, doc)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("store: load document %s: %w", docID, err)
	}
	return doc, nil
}

func (a *BadgerApplier) saveDocument(docID string, doc *crdtdoc.Document) error {
	encoded, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("store: encode document %s: %w", docID, err)
	}
	err = a.db.Update(func(txn *badger.Txn) error {
		return txn.Set(documentKey(docID), encoded)
	})
	if err != nil {
		return fmt.Errorf("store: save document %s: %w", docID, err)
	}
	return nil
}

// rebuildTree acquires the write lock and rebuilds the content hash.
// Used only at startup, before concurrent access is possible.
func (a *BadgerApplier) rebuildTree() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rebuildTreeLocked()
}

func (a *BadgerApplier) rebuildTreeLocked() error {
	data := make(map[string][]byte)
	err := a.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(documentKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.KeyCopy(nil))
			err := item.Value(func(val []byte) error {
				data[key] = append([]byte(nil), val...)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store: scan documents: %w", err)
	}

	tree, err := merkle.New(data)
	if err != nil {
		return fmt.Errorf("store: rebuild content hash: %w", err)
	}
	a.tree = tree
	return nil
}

func documentKey(docID string) []byte {
	return []byte(documentKeyPrefix + docID)
}
