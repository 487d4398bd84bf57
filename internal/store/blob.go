// SPDX-License-Identifier: MIT

package store

import (
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/loomverse/studio/internal/log"
)

// BlobStore holds artifact payloads in an embedded badger database, keyed
// by recording id.
type BlobStore struct {
	db *badger.DB
}

// NewBlobStore opens (or creates) the blob database at path.
func NewBlobStore(path string) (*BlobStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: open blobs at %s: %v", ErrPersistence, path, err)
	}
	logger := log.WithComponent("store")
	logger.Info().Str("event", "store.blobs_open").Str("path", path).Msg("blob store ready")
	return &BlobStore{db: db}, nil
}

func (b *BlobStore) Close() error { return b.db.Close() }

func blobKey(id string) []byte { return []byte("blob:" + id) }

// Put stores the payload for a recording, replacing any previous one.
func (b *BlobStore) Put(id string, data []byte) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(blobKey(id), data)
	})
	if err != nil {
		return fmt.Errorf("%w: put blob %s: %v", ErrPersistence, id, err)
	}
	return nil
}

// Get returns the payload for a recording.
func (b *BlobStore) Get(id string) ([]byte, error) {
	var out []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(blobKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			out = append([]byte(nil), val...)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get blob %s: %v", ErrPersistence, id, err)
	}
	return out, nil
}

// Delete removes the payload for a recording. Deleting a missing blob is
// not an error.
func (b *BlobStore) Delete(id string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(blobKey(id))
	})
	if err != nil {
		return fmt.Errorf("%w: delete blob %s: %v", ErrPersistence, id, err)
	}
	return nil
}
