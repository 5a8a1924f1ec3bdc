// Copyright 2024 Driftwatch Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package storage persists reconciler bookkeeping (most importantly
// the set of accounts seen on-chain) so that a restarted watcher can
// resume its inactive sweep without replaying the whole chain.
package storage

import (
	"context"
	"fmt"
	"path"
	"sync"

	"github.com/dgraph-io/badger/v2"
)

// Database is implemented by BadgerStorage.
type Database interface {
	NewDatabaseTransaction(ctx context.Context, write bool) DatabaseTransaction
	Set(ctx context.Context, key []byte, value []byte) error
	Get(ctx context.Context, key []byte) (bool, []byte, error)
	Scan(ctx context.Context, prefix []byte) ([]*ScanItem, error)
	Encoder() *Encoder
	Close(ctx context.Context) error
}

// DatabaseTransaction is implemented by BadgerTransaction.
type DatabaseTransaction interface {
	Set(ctx context.Context, key []byte, value []byte) error
	Get(ctx context.Context, key []byte) (bool, []byte, error)
	Delete(ctx context.Context, key []byte) error
	Scan(ctx context.Context, prefix []byte) ([]*ScanItem, error)
	Commit(ctx context.Context) error
	Discard(ctx context.Context)
}

// ScanItem is a key-value pair returned by Scan.
type ScanItem struct {
	Key   []byte
	Value []byte
}

// BadgerStorage is a wrapper around Badger DB
// that implements the Database interface.
type BadgerStorage struct {
	db      *badger.DB
	encoder *Encoder

	writer sync.Mutex
}

func defaultBadgerOptions(dir string) badger.Options {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	// LoadBloomsOnOpen=false will improve the db startup speed
	opts.LoadBloomsOnOpen = false

	// The reconciler registry is small, so we keep the
	// memtable configuration modest.
	opts.NumMemtables = 1
	opts.NumLevelZeroTables = 1
	opts.NumLevelZeroTablesStall = 2

	return opts
}

// NewBadgerStorage creates a new BadgerStorage.
func NewBadgerStorage(ctx context.Context, dir string) (Database, error) {
	db, err := badger.Open(defaultBadgerOptions(path.Clean(dir)))
	if err != nil {
		return nil, fmt.Errorf("could not open badger database: %w", err)
	}

	return &BadgerStorage{
		db:      db,
		encoder: NewEncoder(),
	}, nil
}

// Encoder returns the BadgerStorage encoder.
func (b *BadgerStorage) Encoder() *Encoder {
	return b.encoder
}

// Close closes the database to prevent corruption.
// The caller should defer this in main.
func (b *BadgerStorage) Close(ctx context.Context) error {
	if err := b.db.Close(); err != nil {
		return fmt.Errorf("unable to close database: %w", err)
	}

	return nil
}

// BadgerTransaction is a wrapper around a Badger
// DB transaction that implements the DatabaseTransaction
// interface.
type BadgerTransaction struct {
	db  *BadgerStorage
	txn *badger.Txn

	holdsLock bool
}

// NewDatabaseTransaction creates a new BadgerTransaction.
// If the transaction will not modify any values, pass
// in false for the write parameter (this allows for
// optimization within the Badger DB).
func (b *BadgerStorage) NewDatabaseTransaction(
	ctx context.Context,
	write bool,
) DatabaseTransaction {
	if write {
		// To avoid database commit conflicts,
		// we need to lock the writer.
		b.writer.Lock()
	}

	return &BadgerTransaction{
		db:        b,
		txn:       b.db.NewTransaction(write),
		holdsLock: write,
	}
}

// Commit attempts to commit and discard the transaction.
func (b *BadgerTransaction) Commit(context.Context) error {
	err := b.txn.Commit()

	// It is possible that we may accidentally call commit twice.
	// In this case, we only unlock if we hold the lock to avoid a panic.
	if b.holdsLock {
		b.holdsLock = false
		b.db.writer.Unlock()
	}

	if err != nil {
		return fmt.Errorf("unable to commit transaction: %w", err)
	}

	return nil
}

// Discard discards an open transaction. All transactions
// must be either discarded or committed.
func (b *BadgerTransaction) Discard(context.Context) {
	b.txn.Discard()
	if b.holdsLock {
		b.holdsLock = false
		b.db.writer.Unlock()
	}
}

// Set changes the value of the key to the value within a transaction.
func (b *BadgerTransaction) Set(
	ctx context.Context,
	key []byte,
	value []byte,
) error {
	return b.txn.Set(key, value)
}

// Get accesses the value of the key within a transaction.
func (b *BadgerTransaction) Get(
	ctx context.Context,
	key []byte,
) (bool, []byte, error) {
	var value []byte
	item, err := b.txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return false, nil, nil
	} else if err != nil {
		return false, nil, err
	}

	err = item.Value(func(v []byte) error {
		value = make([]byte, len(v))
		copy(value, v)
		return nil
	})
	if err != nil {
		return false, nil, err
	}

	return true, value, nil
}

// Delete removes the key and its value within the transaction.
func (b *BadgerTransaction) Delete(ctx context.Context, key []byte) error {
	return b.txn.Delete(key)
}

// Scan retrieves all elements with a given prefix in a database
// transaction.
func (b *BadgerTransaction) Scan(
	ctx context.Context,
	prefix []byte,
) ([]*ScanItem, error) {
	values := []*ScanItem{}
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false

	it := b.txn.NewIterator(opts)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		k := item.KeyCopy(nil)
		v, err := item.ValueCopy(nil)
		if err != nil {
			return nil, fmt.Errorf("unable to get value for key %s: %w", string(k), err)
		}

		values = append(values, &ScanItem{
			Key:   k,
			Value: v,
		})
	}

	return values, nil
}

// Set changes the value of the key to the value in its own transaction.
func (b *BadgerStorage) Set(
	ctx context.Context,
	key []byte,
	value []byte,
) error {
	txn := b.NewDatabaseTransaction(ctx, true)
	defer txn.Discard(ctx)

	if err := txn.Set(ctx, key, value); err != nil {
		return err
	}

	return txn.Commit(ctx)
}

// Get fetches the value of a key in its own transaction.
func (b *BadgerStorage) Get(
	ctx context.Context,
	key []byte,
) (bool, []byte, error) {
	txn := b.NewDatabaseTransaction(ctx, false)
	defer txn.Discard(ctx)

	return txn.Get(ctx, key)
}

// Scan retrieves all elements with a given prefix in its
// own transaction.
func (b *BadgerStorage) Scan(
	ctx context.Context,
	prefix []byte,
) ([]*ScanItem, error) {
	txn := b.NewDatabaseTransaction(ctx, false)
	defer txn.Discard(ctx)

	return txn.Scan(ctx, prefix)
}
