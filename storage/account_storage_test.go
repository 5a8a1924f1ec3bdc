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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/driftwatch/driftwatch/types"
	"github.com/driftwatch/driftwatch/utils"
)

func TestAccountStorage(t *testing.T) {
	ctx := context.Background()

	newDir, err := utils.CreateTempDir()
	assert.NoError(t, err)
	defer utils.RemoveTempDir(newDir)

	database, err := NewBadgerStorage(ctx, newDir)
	assert.NoError(t, err)
	defer database.Close(ctx)

	storage := NewAccountStorage(database)

	account1 := &types.AccountCurrency{
		Account: &types.AccountIdentifier{
			Address: "addr 1",
		},
		Currency: &types.Currency{
			Symbol:   "BTC",
			Decimals: 8,
		},
	}
	account2 := &types.AccountCurrency{
		Account: &types.AccountIdentifier{
			Address: "addr 2",
			SubAccount: &types.SubAccountIdentifier{
				Address: "staked",
			},
		},
		Currency: &types.Currency{
			Symbol:   "ETH",
			Decimals: 18,
		},
	}

	t.Run("empty registry", func(t *testing.T) {
		accounts, err := storage.GetAllAccountCurrency(ctx)
		assert.NoError(t, err)
		assert.Len(t, accounts, 0)
	})

	t.Run("mark accounts seen", func(t *testing.T) {
		assert.NoError(t, storage.MarkSeen(ctx, account1))
		assert.NoError(t, storage.MarkSeen(ctx, account2))

		accounts, err := storage.GetAllAccountCurrency(ctx)
		assert.NoError(t, err)
		assert.ElementsMatch(t, []*types.AccountCurrency{account1, account2}, accounts)
	})

	t.Run("marking seen is idempotent", func(t *testing.T) {
		assert.NoError(t, storage.MarkSeen(ctx, account1))

		accounts, err := storage.GetAllAccountCurrency(ctx)
		assert.NoError(t, err)
		assert.Len(t, accounts, 2)
	})
}

func TestAccountStorageBootstrap(t *testing.T) {
	ctx := context.Background()

	newDir, err := utils.CreateTempDir()
	assert.NoError(t, err)
	defer utils.RemoveTempDir(newDir)

	database, err := NewBadgerStorage(ctx, newDir)
	assert.NoError(t, err)
	defer database.Close(ctx)

	storage := NewAccountStorage(database)

	seed := make([]*types.AccountCurrency, 100)
	for i := range seed {
		seed[i] = &types.AccountCurrency{
			Account: &types.AccountIdentifier{
				Address: fmt.Sprintf("addr %d", i),
			},
			Currency: &types.Currency{
				Symbol:   "BTC",
				Decimals: 8,
			},
		}
	}

	assert.NoError(t, storage.Bootstrap(ctx, seed))

	accounts, err := storage.GetAllAccountCurrency(ctx)
	assert.NoError(t, err)
	assert.ElementsMatch(t, seed, accounts)
}
