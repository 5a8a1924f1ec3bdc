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

package storage

import (
	"context"
	"fmt"

	"github.com/neilotoole/errgroup"

	"github.com/driftwatch/driftwatch/types"
	"github.com/driftwatch/driftwatch/utils"
)

const (
	accountNamespace = "seen-account"

	// bootstrapGoroutines is the number of goroutines
	// used to seed the registry during Bootstrap.
	bootstrapGoroutines = 8

	bootstrapQueueSize = 32
)

// AccountStorage is a registry of every account-currency pair
// observed by the reconciler. It backs the inactive sweep across
// restarts: accounts loaded from here are handed to the reconciler
// as seen accounts instead of waiting to re-observe a balance
// change for each one.
type AccountStorage struct {
	db Database

	// m coordinates concurrent writes from the active
	// reconciliation workers.
	m *utils.MutexMap
}

// NewAccountStorage returns a new AccountStorage.
func NewAccountStorage(db Database) *AccountStorage {
	return &AccountStorage{
		db: db,
		m:  utils.NewMutexMap(utils.DefaultShards),
	}
}

func getAccountKey(accountCurrency *types.AccountCurrency) []byte {
	return []byte(fmt.Sprintf("%s/%s", accountNamespace, types.Hash(accountCurrency)))
}

// MarkSeen records that an account-currency pair has been
// observed. Marking the same pair twice is a no-op.
func (a *AccountStorage) MarkSeen(
	ctx context.Context,
	accountCurrency *types.AccountCurrency,
) error {
	identifier := types.Hash(accountCurrency)
	a.m.Lock(identifier, false)
	defer a.m.Unlock(identifier)

	encoded, err := a.db.Encoder().Encode(accountCurrency)
	if err != nil {
		return fmt.Errorf(
			"unable to encode account %s: %w",
			types.AccountString(accountCurrency.Account),
			err,
		)
	}

	if err := a.db.Set(ctx, getAccountKey(accountCurrency), encoded); err != nil {
		return fmt.Errorf(
			"unable to store account %s: %w",
			types.AccountString(accountCurrency.Account),
			err,
		)
	}

	return nil
}

// GetAllAccountCurrency scans the registry for all
// stored account-currency pairs.
func (a *AccountStorage) GetAllAccountCurrency(
	ctx context.Context,
) ([]*types.AccountCurrency, error) {
	items, err := a.db.Scan(ctx, []byte(accountNamespace))
	if err != nil {
		return nil, fmt.Errorf("unable to scan accounts: %w", err)
	}

	accounts := make([]*types.AccountCurrency, len(items))
	for i, item := range items {
		var accountCurrency types.AccountCurrency
		if err := a.db.Encoder().Decode(item.Value, &accountCurrency); err != nil {
			return nil, fmt.Errorf(
				"unable to decode account key %s: %w",
				string(item.Key),
				err,
			)
		}

		accounts[i] = &accountCurrency
	}

	return accounts, nil
}

// Bootstrap seeds the registry with a collection of
// account-currency pairs (usually sourced from a genesis
// allocation or a previous watcher's export).
func (a *AccountStorage) Bootstrap(
	ctx context.Context,
	accountCurrencies []*types.AccountCurrency,
) error {
	g, gctx := errgroup.WithContextN(ctx, bootstrapGoroutines, bootstrapQueueSize)
	for i := range accountCurrencies {
		accountCurrency := accountCurrencies[i]
		g.Go(func() error {
			return a.MarkSeen(gctx, accountCurrency)
		})
	}

	return g.Wait()
}
