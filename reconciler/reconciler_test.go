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

package reconciler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	mocks "github.com/driftwatch/driftwatch/mocks/reconciler"
	"github.com/driftwatch/driftwatch/parser"
	"github.com/driftwatch/driftwatch/types"
)

var (
	networkIdentifier = &types.NetworkIdentifier{
		Blockchain: "bitcoin",
		Network:    "mainnet",
	}

	accountCurrency = &types.AccountCurrency{
		Account: &types.AccountIdentifier{
			Address: "acct 1",
		},
		Currency: &types.Currency{
			Symbol:   "BTC",
			Decimals: 8,
		},
	}
)

func TestNewReconciler(t *testing.T) {
	var (
		mockHelper  = &mocks.Helper{}
		mockHandler = &mocks.Handler{}
		mockFetcher = &mocks.Fetcher{}

		accountCurrencies = []*types.AccountCurrency{accountCurrency}
	)

	tests := map[string]struct {
		options []Option

		expected *Reconciler
	}{
		"no options": {
			expected: New(networkIdentifier, mockHelper, mockHandler, mockFetcher),
		},
		"with reconciler concurrency": {
			options: []Option{
				WithActiveConcurrency(100),
				WithInactiveConcurrency(200),
			},
			expected: func() *Reconciler {
				r := New(networkIdentifier, mockHelper, mockHandler, mockFetcher)
				r.activeConcurrency = 100
				r.inactiveConcurrency = 200

				return r
			}(),
		},
		"with interesting accounts": {
			options: []Option{
				WithInterestingAccounts(accountCurrencies),
			},
			expected: func() *Reconciler {
				r := New(networkIdentifier, mockHelper, mockHandler, mockFetcher)
				r.interestingAccounts = accountCurrencies

				return r
			}(),
		},
		"with seen accounts": {
			options: []Option{
				WithSeenAccounts(accountCurrencies),
			},
			expected: func() *Reconciler {
				r := New(networkIdentifier, mockHelper, mockHandler, mockFetcher)
				r.inactiveQueue = []*InactiveEntry{
					{
						Entry: accountCurrency,
					},
				}
				r.seenAccounts = map[string]struct{}{
					types.Hash(accountCurrency): {},
				}

				return r
			}(),
		},
		"without lookupBalanceByBlock": {
			options: []Option{
				WithBacklogSize(100),
				WithLookupBalanceByBlock(false),
			},
			expected: func() *Reconciler {
				r := New(networkIdentifier, mockHelper, mockHandler, mockFetcher)
				r.lookupBalanceByBlock = false
				r.backlogSize = 100
				r.changeQueue = make(chan *parser.BalanceChange, 100)

				return r
			}(),
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			result := New(
				networkIdentifier,
				mockHelper,
				mockHandler,
				mockFetcher,
				test.options...,
			)
			assert.Equal(t, test.expected.network, result.network)
			assert.Equal(t, test.expected.activeConcurrency, result.activeConcurrency)
			assert.Equal(t, test.expected.inactiveConcurrency, result.inactiveConcurrency)
			assert.Equal(t, test.expected.interestingAccounts, result.interestingAccounts)
			assert.Equal(t, test.expected.seenAccounts, result.seenAccounts)
			assert.ElementsMatch(t, test.expected.inactiveQueue, result.inactiveQueue)
			assert.Equal(t, test.expected.lookupBalanceByBlock, result.lookupBalanceByBlock)
			assert.Equal(t, cap(test.expected.changeQueue), cap(result.changeQueue))
		})
	}
}

func TestContainsAccountCurrency(t *testing.T) {
	currency1 := &types.Currency{
		Symbol:   "Blah",
		Decimals: 2,
	}
	currency2 := &types.Currency{
		Symbol:   "Blah2",
		Decimals: 2,
	}
	acctSlice := []*types.AccountCurrency{
		{
			Account: &types.AccountIdentifier{
				Address: "test",
			},
			Currency: currency1,
		},
		{
			Account: &types.AccountIdentifier{
				Address: "cool",
				SubAccount: &types.SubAccountIdentifier{
					Address: "test2",
				},
			},
			Currency: currency1,
		},
		{
			Account: &types.AccountIdentifier{
				Address: "cool",
				SubAccount: &types.SubAccountIdentifier{
					Address: "test2",
					Metadata: map[string]interface{}{
						"neat": "stuff",
					},
				},
			},
			Currency: currency1,
		},
	}

	accts := map[string]struct{}{}
	for _, acct := range acctSlice {
		accts[types.Hash(acct)] = struct{}{}
	}

	t.Run("Non-existent account", func(t *testing.T) {
		assert.False(t, ContainsAccountCurrency(accts, &types.AccountCurrency{
			Account: &types.AccountIdentifier{
				Address: "blah",
			},
			Currency: currency1,
		}))
	})

	t.Run("Basic account", func(t *testing.T) {
		assert.True(t, ContainsAccountCurrency(accts, &types.AccountCurrency{
			Account: &types.AccountIdentifier{
				Address: "test",
			},
			Currency: currency1,
		}))
	})

	t.Run("Basic account with bad currency", func(t *testing.T) {
		assert.False(t, ContainsAccountCurrency(accts, &types.AccountCurrency{
			Account: &types.AccountIdentifier{
				Address: "test",
			},
			Currency: currency2,
		}))
	})

	t.Run("Account with subaccount", func(t *testing.T) {
		assert.True(t, ContainsAccountCurrency(accts, &types.AccountCurrency{
			Account: &types.AccountIdentifier{
				Address: "cool",
				SubAccount: &types.SubAccountIdentifier{
					Address: "test2",
				},
			},
			Currency: currency1,
		}))
	})

	t.Run("Account with subaccount and metadata", func(t *testing.T) {
		assert.True(t, ContainsAccountCurrency(accts, &types.AccountCurrency{
			Account: &types.AccountIdentifier{
				Address: "cool",
				SubAccount: &types.SubAccountIdentifier{
					Address: "test2",
					Metadata: map[string]interface{}{
						"neat": "stuff",
					},
				},
			},
			Currency: currency1,
		}))
	})

	t.Run("Account with subaccount and unique metadata", func(t *testing.T) {
		assert.False(t, ContainsAccountCurrency(accts, &types.AccountCurrency{
			Account: &types.AccountIdentifier{
				Address: "cool",
				SubAccount: &types.SubAccountIdentifier{
					Address: "test2",
					Metadata: map[string]interface{}{
						"neater": "stuff",
					},
				},
			},
			Currency: currency1,
		}))
	})
}

func TestCompareBalance(t *testing.T) {
	var (
		account1 = &types.AccountIdentifier{
			Address: "blah",
		}

		currency1 = &types.Currency{
			Symbol:   "curr1",
			Decimals: 4,
		}

		amount1 = &types.Amount{
			Value:    "100",
			Currency: currency1,
		}

		block0 = &types.BlockIdentifier{
			Hash:  "block0",
			Index: 0,
		}

		block1 = &types.BlockIdentifier{
			Hash:  "block1",
			Index: 1,
		}

		block2 = &types.BlockIdentifier{
			Hash:  "block2",
			Index: 2,
		}

		ctx = context.Background()

		mh = &mocks.Helper{}
	)

	reconciler := New(
		networkIdentifier,
		mh,
		&mocks.Handler{},
		&mocks.Fetcher{},
	)

	t.Run("No head block yet", func(t *testing.T) {
		mh.On("CurrentBlock", ctx).Return(nil, errors.New("no head block")).Once()

		difference, cachedBalance, headIndex, err := reconciler.CompareBalance(
			ctx,
			account1,
			currency1,
			amount1.Value,
			block1,
		)
		assert.Equal(t, "0", difference)
		assert.Equal(t, "", cachedBalance)
		assert.Equal(t, int64(0), headIndex)
		assert.Error(t, err)
	})

	t.Run("Live block is ahead of head block", func(t *testing.T) {
		mh.On("CurrentBlock", ctx).Return(block0, nil).Once()

		difference, cachedBalance, headIndex, err := reconciler.CompareBalance(
			ctx,
			account1,
			currency1,
			amount1.Value,
			block1,
		)
		assert.Equal(t, "0", difference)
		assert.Equal(t, "", cachedBalance)
		assert.Equal(t, int64(0), headIndex)
		assert.True(t, errors.Is(err, ErrHeadBlockBehindLive))
	})

	t.Run("Live block is not in store", func(t *testing.T) {
		mh.On("CurrentBlock", ctx).Return(block2, nil).Once()
		mh.On("BlockExists", ctx, block1).Return(false, nil).Once()

		difference, cachedBalance, headIndex, err := reconciler.CompareBalance(
			ctx,
			account1,
			currency1,
			amount1.Value,
			block1,
		)
		assert.Equal(t, "0", difference)
		assert.Equal(t, "", cachedBalance)
		assert.Equal(t, int64(2), headIndex)
		assert.True(t, errors.Is(err, ErrBlockGone))
	})

	t.Run("Account updated after live block", func(t *testing.T) {
		mh.On("CurrentBlock", ctx).Return(block2, nil).Once()
		mh.On("BlockExists", ctx, block0).Return(true, nil).Once()
		mh.On("ComputedBalance", ctx, account1, currency1, block2).Return(
			amount1,
			block1,
			nil,
		).Once()

		difference, cachedBalance, headIndex, err := reconciler.CompareBalance(
			ctx,
			account1,
			currency1,
			amount1.Value,
			block0,
		)
		assert.Equal(t, "0", difference)
		assert.Equal(t, "", cachedBalance)
		assert.Equal(t, int64(2), headIndex)
		assert.True(t, errors.Is(err, ErrAccountUpdated))
	})

	t.Run("Account balance matches", func(t *testing.T) {
		mh.On("CurrentBlock", ctx).Return(block2, nil).Once()
		mh.On("BlockExists", ctx, block1).Return(true, nil).Once()
		mh.On("ComputedBalance", ctx, account1, currency1, block2).Return(
			amount1,
			block1,
			nil,
		).Once()

		difference, cachedBalance, headIndex, err := reconciler.CompareBalance(
			ctx,
			account1,
			currency1,
			amount1.Value,
			block1,
		)
		assert.Equal(t, "0", difference)
		assert.Equal(t, "100", cachedBalance)
		assert.Equal(t, int64(2), headIndex)
		assert.NoError(t, err)
	})

	t.Run("Account balance mismatch", func(t *testing.T) {
		mh.On("CurrentBlock", ctx).Return(block2, nil).Once()
		mh.On("BlockExists", ctx, block1).Return(true, nil).Once()
		mh.On("ComputedBalance", ctx, account1, currency1, block2).Return(
			amount1,
			block1,
			nil,
		).Once()

		difference, cachedBalance, headIndex, err := reconciler.CompareBalance(
			ctx,
			account1,
			currency1,
			"150",
			block1,
		)
		assert.Equal(t, "-50", difference)
		assert.Equal(t, "100", cachedBalance)
		assert.Equal(t, int64(2), headIndex)
		assert.NoError(t, err)
	})

	mh.AssertExpectations(t)
}

func TestInactiveAccountQueue(t *testing.T) {
	var (
		r = New(
			networkIdentifier,
			&mocks.Helper{},
			&mocks.Handler{},
			&mocks.Fetcher{},
		)

		block = &types.BlockIdentifier{
			Hash:  "block 1",
			Index: 1,
		}

		accountCurrency2 = &types.AccountCurrency{
			Account: &types.AccountIdentifier{
				Address: "acct 2",
			},
			Currency: &types.Currency{
				Symbol:   "ETH",
				Decimals: 18,
			},
		}

		block2 = &types.BlockIdentifier{
			Hash:  "block 2",
			Index: 2,
		}
	)

	t.Run("new account in active reconciliation", func(t *testing.T) {
		r.inactiveAccountQueue(false, accountCurrency, block)
		assert.Equal(t, []*InactiveEntry{
			{
				Entry:     accountCurrency,
				LastCheck: block,
			},
		}, r.inactiveQueue)
		assert.True(t, ContainsAccountCurrency(r.seenAccounts, accountCurrency))
	})

	t.Run("another new account in active reconciliation", func(t *testing.T) {
		r.inactiveAccountQueue(false, accountCurrency2, block2)
		assert.Equal(t, []*InactiveEntry{
			{
				Entry:     accountCurrency,
				LastCheck: block,
			},
			{
				Entry:     accountCurrency2,
				LastCheck: block2,
			},
		}, r.inactiveQueue)
		assert.True(t, ContainsAccountCurrency(r.seenAccounts, accountCurrency2))
	})

	t.Run("previous account in active reconciliation", func(t *testing.T) {
		r.inactiveAccountQueue(false, accountCurrency, block2)
		assert.Equal(t, []*InactiveEntry{
			{
				Entry:     accountCurrency,
				LastCheck: block,
			},
			{
				Entry:     accountCurrency2,
				LastCheck: block2,
			},
		}, r.inactiveQueue)
	})

	t.Run("previous account in inactive reconciliation", func(t *testing.T) {
		r.inactiveAccountQueue(true, accountCurrency, block2)
		assert.Equal(t, []*InactiveEntry{
			{
				Entry:     accountCurrency,
				LastCheck: block,
			},
			{
				Entry:     accountCurrency2,
				LastCheck: block2,
			},
			{
				Entry:     accountCurrency,
				LastCheck: block2,
			},
		}, r.inactiveQueue)
	})
}

func TestQueueChanges(t *testing.T) {
	var (
		block = &types.BlockIdentifier{
			Hash:  "block 1",
			Index: 1,
		}

		mockHandler = &mocks.Handler{}
	)

	t.Run("interesting account synthesized when absent", func(t *testing.T) {
		r := New(
			networkIdentifier,
			&mocks.Helper{},
			mockHandler,
			&mocks.Fetcher{},
			WithInterestingAccounts([]*types.AccountCurrency{accountCurrency}),
			WithBacklogSize(10),
			WithLookupBalanceByBlock(false),
		)

		err := r.QueueChanges(context.Background(), block, []*parser.BalanceChange{})
		assert.NoError(t, err)

		assert.Len(t, r.changeQueue, 1)
		change := <-r.changeQueue
		assert.Equal(t, &parser.BalanceChange{
			Account:    accountCurrency.Account,
			Currency:   accountCurrency.Currency,
			Difference: "0",
			Block:      block,
		}, change)
	})

	t.Run("stale changes dropped below high water mark", func(t *testing.T) {
		r := New(
			networkIdentifier,
			&mocks.Helper{},
			mockHandler,
			&mocks.Fetcher{},
			WithBacklogSize(10),
			WithLookupBalanceByBlock(false),
		)
		r.raiseHighWaterMark(100)

		err := r.QueueChanges(context.Background(), block, []*parser.BalanceChange{
			{
				Account:    accountCurrency.Account,
				Currency:   accountCurrency.Currency,
				Difference: "100",
				Block:      block,
			},
		})
		assert.NoError(t, err)

		// The change is not enqueued but the account is still
		// seeded for the inactive sweep.
		assert.Len(t, r.changeQueue, 0)
		assert.True(t, ContainsAccountCurrency(r.seenAccounts, accountCurrency))
		assert.Len(t, r.inactiveQueue, 1)
	})

	t.Run("backlog full triggers skip", func(t *testing.T) {
		r := New(
			networkIdentifier,
			&mocks.Helper{},
			mockHandler,
			&mocks.Fetcher{},
			WithBacklogSize(1),
			WithLookupBalanceByBlock(false),
		)

		mockHandler.On(
			"ReconciliationSkipped",
			mock.Anything,
			ActiveReconciliation,
			accountCurrency.Account,
			accountCurrency.Currency,
			BacklogFull,
		).Return(nil).Once()

		err := r.QueueChanges(context.Background(), block, []*parser.BalanceChange{
			{
				Account:    accountCurrency.Account,
				Currency:   accountCurrency.Currency,
				Difference: "100",
				Block:      block,
			},
			{
				Account:    accountCurrency.Account,
				Currency:   accountCurrency.Currency,
				Difference: "150",
				Block:      block,
			},
		})
		assert.NoError(t, err)
		assert.Len(t, r.changeQueue, 1)
	})

	t.Run("backlog full halts when requested", func(t *testing.T) {
		r := New(
			networkIdentifier,
			&mocks.Helper{},
			mockHandler,
			&mocks.Fetcher{},
			WithBacklogSize(1),
			WithLookupBalanceByBlock(false),
		)

		mockHandler.On(
			"ReconciliationSkipped",
			mock.Anything,
			ActiveReconciliation,
			accountCurrency.Account,
			accountCurrency.Currency,
			BacklogFull,
		).Return(errors.New("halt")).Once()

		err := r.QueueChanges(context.Background(), block, []*parser.BalanceChange{
			{
				Account:    accountCurrency.Account,
				Currency:   accountCurrency.Currency,
				Difference: "100",
				Block:      block,
			},
			{
				Account:    accountCurrency.Account,
				Currency:   accountCurrency.Currency,
				Difference: "150",
				Block:      block,
			},
		})
		assert.True(t, errors.Is(err, ErrHaltRequested))
	})

	mockHandler.AssertExpectations(t)
}

func TestReconcile_SuccessOnlyActive(t *testing.T) {
	var (
		account = &types.AccountIdentifier{
			Address: "acct 1",
		}

		currency = &types.Currency{
			Symbol:   "BTC",
			Decimals: 8,
		}

		block = &types.BlockIdentifier{
			Hash:  "block 1",
			Index: 1,
		}

		headBlock = &types.BlockIdentifier{
			Hash:  "block 2",
			Index: 2,
		}

		mockHelper  = &mocks.Helper{}
		mockHandler = &mocks.Handler{}
		mockFetcher = &mocks.Fetcher{}
	)

	r := New(
		networkIdentifier,
		mockHelper,
		mockHandler,
		mockFetcher,
		WithActiveConcurrency(1),
		WithInactiveConcurrency(0),
	)
	ctx, cancel := context.WithCancel(context.Background())

	mockFetcher.On(
		"AccountBalanceRetry",
		mock.Anything,
		networkIdentifier,
		account,
		types.ConstructPartialBlockIdentifier(block),
	).Return(block, []*types.Amount{{Value: "100", Currency: currency}}, nil).Once()
	mockHelper.On("CurrentBlock", mock.Anything).Return(headBlock, nil).Once()
	mockHelper.On("BlockExists", mock.Anything, block).Return(true, nil).Once()
	mockHelper.On("ComputedBalance", mock.Anything, account, currency, headBlock).Return(
		&types.Amount{Value: "100", Currency: currency},
		block,
		nil,
	).Once()
	mockHandler.On(
		"ReconciliationSucceeded",
		mock.Anything,
		ActiveReconciliation,
		account,
		currency,
		"100",
		block,
	).Return(nil).Once()

	go func() {
		err := r.Reconcile(ctx)
		assert.True(t, errors.Is(err, context.Canceled))
	}()

	err := r.QueueChanges(ctx, block, []*parser.BalanceChange{
		{
			Account:    account,
			Currency:   currency,
			Difference: "100",
			Block:      block,
		},
	})
	assert.NoError(t, err)

	time.Sleep(1 * time.Second)
	cancel()

	mockHelper.AssertExpectations(t)
	mockHandler.AssertExpectations(t)
	mockFetcher.AssertExpectations(t)
}

func TestReconcile_FailureHalts(t *testing.T) {
	var (
		account = &types.AccountIdentifier{
			Address: "acct 1",
		}

		currency = &types.Currency{
			Symbol:   "BTC",
			Decimals: 8,
		}

		block = &types.BlockIdentifier{
			Hash:  "block 1",
			Index: 1,
		}

		headBlock = &types.BlockIdentifier{
			Hash:  "block 2",
			Index: 2,
		}

		mockHelper  = &mocks.Helper{}
		mockHandler = &mocks.Handler{}
		mockFetcher = &mocks.Fetcher{}
	)

	r := New(
		networkIdentifier,
		mockHelper,
		mockHandler,
		mockFetcher,
		WithActiveConcurrency(1),
		WithInactiveConcurrency(0),
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mockFetcher.On(
		"AccountBalanceRetry",
		mock.Anything,
		networkIdentifier,
		account,
		types.ConstructPartialBlockIdentifier(block),
	).Return(block, []*types.Amount{{Value: "105", Currency: currency}}, nil).Once()
	mockHelper.On("CurrentBlock", mock.Anything).Return(headBlock, nil).Once()
	mockHelper.On("BlockExists", mock.Anything, block).Return(true, nil).Once()
	mockHelper.On("ComputedBalance", mock.Anything, account, currency, headBlock).Return(
		&types.Amount{Value: "100", Currency: currency},
		block,
		nil,
	).Once()
	mockHandler.On(
		"ReconciliationFailed",
		mock.Anything,
		ActiveReconciliation,
		account,
		currency,
		"100",
		"105",
		block,
	).Return(errors.New("mismatch observed")).Once()

	reconcileErr := make(chan error)
	go func() {
		reconcileErr <- r.Reconcile(ctx)
	}()

	err := r.QueueChanges(ctx, block, []*parser.BalanceChange{
		{
			Account:    account,
			Currency:   currency,
			Difference: "100",
			Block:      block,
		},
	})
	assert.NoError(t, err)

	err = <-reconcileErr
	assert.True(t, errors.Is(err, ErrHaltRequested))
	assert.Contains(t, err.Error(), "mismatch observed")

	mockHelper.AssertExpectations(t)
	mockHandler.AssertExpectations(t)
	mockFetcher.AssertExpectations(t)
}

func TestReconcile_OrphanedBlockSkipped(t *testing.T) {
	var (
		account = &types.AccountIdentifier{
			Address: "acct 1",
		}

		currency = &types.Currency{
			Symbol:   "BTC",
			Decimals: 8,
		}

		block = &types.BlockIdentifier{
			Hash:  "block 1",
			Index: 1,
		}

		mockHelper  = &mocks.Helper{}
		mockHandler = &mocks.Handler{}
		mockFetcher = &mocks.Fetcher{}
	)

	r := New(
		networkIdentifier,
		mockHelper,
		mockHandler,
		mockFetcher,
		WithActiveConcurrency(1),
		WithInactiveConcurrency(0),
	)
	ctx, cancel := context.WithCancel(context.Background())

	mockFetcher.On(
		"AccountBalanceRetry",
		mock.Anything,
		networkIdentifier,
		account,
		types.ConstructPartialBlockIdentifier(block),
	).Return(nil, nil, errors.New("block not found")).Once()
	mockHelper.On("BlockExists", mock.Anything, block).Return(false, nil).Once()
	mockHandler.On(
		"ReconciliationSkipped",
		mock.Anything,
		ActiveReconciliation,
		account,
		currency,
		BlockGone,
	).Return(nil).Once()

	go func() {
		err := r.Reconcile(ctx)
		assert.True(t, errors.Is(err, context.Canceled))
	}()

	err := r.QueueChanges(ctx, block, []*parser.BalanceChange{
		{
			Account:    account,
			Currency:   currency,
			Difference: "100",
			Block:      block,
		},
	})
	assert.NoError(t, err)

	time.Sleep(1 * time.Second)
	cancel()

	mockHelper.AssertExpectations(t)
	mockHandler.AssertExpectations(t)
	mockFetcher.AssertExpectations(t)
}

func TestReconcile_FaultDoesNotHalt(t *testing.T) {
	var (
		account = &types.AccountIdentifier{
			Address: "acct 1",
		}

		account2 = &types.AccountIdentifier{
			Address: "acct 2",
		}

		currency = &types.Currency{
			Symbol:   "BTC",
			Decimals: 8,
		}

		block = &types.BlockIdentifier{
			Hash:  "block 1",
			Index: 1,
		}

		headBlock = &types.BlockIdentifier{
			Hash:  "block 2",
			Index: 2,
		}

		mockHelper  = &mocks.Helper{}
		mockHandler = &mocks.Handler{}
		mockFetcher = &mocks.Fetcher{}
	)

	r := New(
		networkIdentifier,
		mockHelper,
		mockHandler,
		mockFetcher,
		WithActiveConcurrency(1),
		WithInactiveConcurrency(0),
	)
	ctx, cancel := context.WithCancel(context.Background())

	// The first account returns a balance response missing the
	// requested currency. The loop reports the fault and keeps
	// reconciling the second account.
	mockFetcher.On(
		"AccountBalanceRetry",
		mock.Anything,
		networkIdentifier,
		account,
		types.ConstructPartialBlockIdentifier(block),
	).Return(block, []*types.Amount{}, nil).Once()
	mockFetcher.On(
		"AccountBalanceRetry",
		mock.Anything,
		networkIdentifier,
		account2,
		types.ConstructPartialBlockIdentifier(block),
	).Return(block, []*types.Amount{{Value: "200", Currency: currency}}, nil).Once()
	mockHelper.On("CurrentBlock", mock.Anything).Return(headBlock, nil).Once()
	mockHelper.On("BlockExists", mock.Anything, block).Return(true, nil).Once()
	mockHelper.On("ComputedBalance", mock.Anything, account2, currency, headBlock).Return(
		&types.Amount{Value: "200", Currency: currency},
		block,
		nil,
	).Once()
	mockHandler.On(
		"ReconciliationSucceeded",
		mock.Anything,
		ActiveReconciliation,
		account2,
		currency,
		"200",
		block,
	).Return(nil).Once()

	go func() {
		err := r.Reconcile(ctx)
		assert.True(t, errors.Is(err, context.Canceled))
	}()

	err := r.QueueChanges(ctx, block, []*parser.BalanceChange{
		{
			Account:    account,
			Currency:   currency,
			Difference: "100",
			Block:      block,
		},
		{
			Account:    account2,
			Currency:   currency,
			Difference: "200",
			Block:      block,
		},
	})
	assert.NoError(t, err)

	time.Sleep(1 * time.Second)
	cancel()

	mockHelper.AssertExpectations(t)
	mockHandler.AssertExpectations(t)
	mockFetcher.AssertExpectations(t)
}

func TestReconcile_HighWaterMark(t *testing.T) {
	var (
		account = &types.AccountIdentifier{
			Address: "acct 1",
		}

		currency = &types.Currency{
			Symbol:   "BTC",
			Decimals: 8,
		}

		block = &types.BlockIdentifier{
			Hash:  "block 1",
			Index: 1,
		}

		mockHelper  = &mocks.Helper{}
		mockHandler = &mocks.Handler{}
		mockFetcher = &mocks.Fetcher{}
	)

	r := New(
		networkIdentifier,
		mockHelper,
		mockHandler,
		mockFetcher,
		WithActiveConcurrency(1),
		WithInactiveConcurrency(0),
		WithBacklogSize(10),
		WithLookupBalanceByBlock(false),
	)
	r.raiseHighWaterMark(100)
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		err := r.Reconcile(ctx)
		assert.True(t, errors.Is(err, context.Canceled))
	}()

	// The stale change is dropped at enqueue time so no
	// balance lookup is ever attempted.
	err := r.QueueChanges(ctx, block, []*parser.BalanceChange{
		{
			Account:    account,
			Currency:   currency,
			Difference: "100",
			Block:      block,
		},
	})
	assert.NoError(t, err)

	time.Sleep(500 * time.Millisecond)
	cancel()

	mockFetcher.AssertNotCalled(
		t,
		"AccountBalanceRetry",
		mock.Anything,
		mock.Anything,
		mock.Anything,
		mock.Anything,
	)
	mockHandler.AssertNotCalled(
		t,
		"ReconciliationSkipped",
		mock.Anything,
		mock.Anything,
		mock.Anything,
		mock.Anything,
		mock.Anything,
	)
}

func TestAccountReconciliation_HeadBehindLive(t *testing.T) {
	var (
		account = &types.AccountIdentifier{
			Address: "acct 1",
		}

		currency = &types.Currency{
			Symbol:   "BTC",
			Decimals: 8,
		}

		liveBlock = &types.BlockIdentifier{
			Hash:  "block 100",
			Index: 100,
		}
	)

	t.Run("far behind raises high water mark and skips", func(t *testing.T) {
		var (
			mockHelper  = &mocks.Helper{}
			mockHandler = &mocks.Handler{}
		)

		r := New(
			networkIdentifier,
			mockHelper,
			mockHandler,
			&mocks.Fetcher{},
			WithWaitToCheckDiff(10),
		)

		// The indexed head is 50 blocks behind the live block,
		// well past the lag we are willing to wait out.
		mockHelper.On("CurrentBlock", mock.Anything).Return(
			&types.BlockIdentifier{Hash: "block 50", Index: 50},
			nil,
		).Once()
		mockHandler.On(
			"ReconciliationSkipped",
			mock.Anything,
			ActiveReconciliation,
			account,
			currency,
			HeadBehind,
		).Return(nil).Once()

		err := r.accountReconciliation(
			context.Background(),
			account,
			currency,
			"100",
			liveBlock,
			false,
		)
		assert.NoError(t, err)
		assert.Equal(t, int64(100), r.HighWaterMark())

		mockHelper.AssertExpectations(t)
		mockHandler.AssertExpectations(t)
	})

	t.Run("small lag waits for the indexer to catch up", func(t *testing.T) {
		var (
			mockHelper  = &mocks.Helper{}
			mockHandler = &mocks.Handler{}
		)

		r := New(
			networkIdentifier,
			mockHelper,
			mockHandler,
			&mocks.Fetcher{},
			WithWaitToCheckDiff(10),
			WithWaitToCheckDiffSleep(10*time.Millisecond),
		)

		// The first comparison sees the head 5 blocks behind the
		// live block, inside the wait window. After one sleep the
		// head has caught up and the check completes normally.
		mockHelper.On("CurrentBlock", mock.Anything).Return(
			&types.BlockIdentifier{Hash: "block 95", Index: 95},
			nil,
		).Once()
		mockHelper.On("CurrentBlock", mock.Anything).Return(liveBlock, nil).Once()
		mockHelper.On("BlockExists", mock.Anything, liveBlock).Return(true, nil).Once()
		mockHelper.On("ComputedBalance", mock.Anything, account, currency, liveBlock).Return(
			&types.Amount{Value: "100", Currency: currency},
			liveBlock,
			nil,
		).Once()
		mockHandler.On(
			"ReconciliationSucceeded",
			mock.Anything,
			ActiveReconciliation,
			account,
			currency,
			"100",
			liveBlock,
		).Return(nil).Once()

		err := r.accountReconciliation(
			context.Background(),
			account,
			currency,
			"100",
			liveBlock,
			false,
		)
		assert.NoError(t, err)
		assert.Equal(t, int64(-1), r.HighWaterMark())

		mockHelper.AssertExpectations(t)
		mockHandler.AssertExpectations(t)
	})
}

func TestReconcile_InactiveFrequencyBoundary(t *testing.T) {
	var (
		currency = &types.Currency{
			Symbol:   "BTC",
			Decimals: 8,
		}

		lastCheck = &types.BlockIdentifier{
			Hash:  "block 0",
			Index: 0,
		}
	)

	t.Run("head exactly at frequency boundary is not eligible", func(t *testing.T) {
		var (
			mockHelper  = &mocks.Helper{}
			mockHandler = &mocks.Handler{}
			mockFetcher = &mocks.Fetcher{}
		)

		r := New(
			networkIdentifier,
			mockHelper,
			mockHandler,
			mockFetcher,
			WithActiveConcurrency(0),
			WithInactiveConcurrency(1),
			WithInactiveFrequency(100),
		)
		r.inactiveAccountQueue(true, accountCurrency, lastCheck)

		head := &types.BlockIdentifier{Hash: "block 100", Index: 100}
		mockHelper.On("CurrentBlock", mock.Anything).Return(head, nil)

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			err := r.Reconcile(ctx)
			assert.True(t, errors.Is(err, context.Canceled))
		}()

		time.Sleep(500 * time.Millisecond)
		cancel()

		mockFetcher.AssertNotCalled(
			t,
			"AccountBalanceRetry",
			mock.Anything,
			mock.Anything,
			mock.Anything,
			mock.Anything,
		)
		assert.Len(t, r.inactiveQueue, 1)
	})

	t.Run("head past frequency boundary triggers reconciliation", func(t *testing.T) {
		var (
			mockHelper  = &mocks.Helper{}
			mockHandler = &mocks.Handler{}
			mockFetcher = &mocks.Fetcher{}
		)

		r := New(
			networkIdentifier,
			mockHelper,
			mockHandler,
			mockFetcher,
			WithActiveConcurrency(0),
			WithInactiveConcurrency(1),
			WithInactiveFrequency(100),
		)
		r.inactiveAccountQueue(true, accountCurrency, lastCheck)

		head := &types.BlockIdentifier{Hash: "block 101", Index: 101}
		mockHelper.On("CurrentBlock", mock.Anything).Return(head, nil)
		mockFetcher.On(
			"AccountBalanceRetry",
			mock.Anything,
			networkIdentifier,
			accountCurrency.Account,
			types.ConstructPartialBlockIdentifier(head),
		).Return(head, []*types.Amount{{Value: "500", Currency: currency}}, nil).Once()
		mockHelper.On("BlockExists", mock.Anything, head).Return(true, nil).Once()
		mockHelper.On(
			"ComputedBalance",
			mock.Anything,
			accountCurrency.Account,
			accountCurrency.Currency,
			head,
		).Return(&types.Amount{Value: "500", Currency: currency}, lastCheck, nil).Once()
		mockHandler.On(
			"ReconciliationSucceeded",
			mock.Anything,
			InactiveReconciliation,
			accountCurrency.Account,
			accountCurrency.Currency,
			"500",
			head,
		).Return(nil).Once()

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			err := r.Reconcile(ctx)
			assert.True(t, errors.Is(err, context.Canceled))
		}()

		time.Sleep(1 * time.Second)
		cancel()

		mockHandler.AssertExpectations(t)
		mockFetcher.AssertExpectations(t)

		// The account is re-enqueued with its new last check so
		// it will be swept again.
		r.inactiveQueueMutex.Lock(false)
		defer r.inactiveQueueMutex.Unlock()
		assert.Len(t, r.inactiveQueue, 1)
		assert.Equal(t, head, r.inactiveQueue[0].LastCheck)
	})
}
