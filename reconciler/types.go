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
	"time"

	"github.com/driftwatch/driftwatch/parser"
	"github.com/driftwatch/driftwatch/types"
	"github.com/driftwatch/driftwatch/utils"
)

const (
	// ActiveReconciliation is included in the reconciliation
	// result if reconciliation was triggered by an observed
	// balance change.
	ActiveReconciliation = "ACTIVE"

	// InactiveReconciliation is included in the reconciliation
	// result if reconciliation was part of the periodic sweep
	// of all seen accounts.
	InactiveReconciliation = "INACTIVE"
)

// A reconciliation attempt can terminate without a success or
// failure. These causes identify why an attempt was skipped.
const (
	// BlockGone is when the block where a reconciliation
	// is supposed to happen is orphaned.
	BlockGone = "BLOCK_GONE"

	// HeadBehind is when the indexed head (where balances
	// were last computed) is too far behind the block
	// returned by the live balance fetch.
	HeadBehind = "HEAD_BEHIND"

	// AccountUpdated is when the account was updated at a
	// height later than the height the live balance was
	// captured at, making the comparison meaningless.
	AccountUpdated = "ACCOUNT_UPDATED"

	// BacklogFull is when the reconciliation backlog is full
	// and an active change had to be dropped.
	BacklogFull = "BACKLOG_FULL"
)

const (
	// defaultBacklogSize is the limit of account lookups
	// that can be enqueued to reconcile before new
	// requests are dropped.
	defaultBacklogSize = 50000

	// defaultWaitToCheckDiff is the syncing difference (live-head)
	// to retry instead of giving up. In other words, if the
	// indexed head is behind the live head by < waitToCheckDiff
	// we should try again after sleeping.
	defaultWaitToCheckDiff = 10

	// defaultWaitToCheckDiffSleep is the amount of time to wait
	// to check a balance difference if the indexer is within
	// waitToCheckDiff from the block a balance was queried at.
	defaultWaitToCheckDiffSleep = 5 * time.Second

	// zeroString is a string of value 0.
	zeroString = "0"

	// inactiveReconciliationSleep is used as the time.Duration
	// to sleep when there are no seen accounts ready to reconcile.
	inactiveReconciliationSleep = 1 * time.Second

	// defaultInactiveFrequency is the minimum
	// number of blocks the reconciler should wait between
	// inactive reconciliations for each account.
	defaultInactiveFrequency = 200

	// defaultReconcilerConcurrency is the number of goroutines
	// to start for each of active and inactive reconciliation.
	defaultReconcilerConcurrency = 8
)

// Helper functions are used by Reconciler to compare
// computed balances from a block with balances computed
// by the node. Defining an interface allows the client to
// determine what sort of storage layer they want to use to
// provide the required information.
type Helper interface {
	CurrentBlock(
		ctx context.Context,
	) (*types.BlockIdentifier, error)

	BlockExists(
		ctx context.Context,
		block *types.BlockIdentifier,
	) (bool, error)

	ComputedBalance(
		ctx context.Context,
		account *types.AccountIdentifier,
		currency *types.Currency,
		headBlock *types.BlockIdentifier,
	) (*types.Amount, *types.BlockIdentifier, error)
}

// Fetcher is the live network source used to retrieve node
// balances. Implementations own their own transient-retry
// policy; any error returned here is considered final for
// the attempt.
type Fetcher interface {
	AccountBalanceRetry(
		ctx context.Context,
		network *types.NetworkIdentifier,
		account *types.AccountIdentifier,
		block *types.PartialBlockIdentifier,
	) (*types.BlockIdentifier, []*types.Amount, error)
}

// Handler is called by Reconciler after a reconciliation
// attempt terminates. Each attempt produces exactly one
// callback: succeeded, failed, or skipped. Returning a
// non-nil error from any callback halts reconciliation.
type Handler interface {
	ReconciliationSucceeded(
		ctx context.Context,
		reconciliationType string,
		account *types.AccountIdentifier,
		currency *types.Currency,
		balance string,
		block *types.BlockIdentifier,
	) error

	ReconciliationFailed(
		ctx context.Context,
		reconciliationType string,
		account *types.AccountIdentifier,
		currency *types.Currency,
		computedBalance string,
		liveBalance string,
		block *types.BlockIdentifier,
	) error

	ReconciliationSkipped(
		ctx context.Context,
		reconciliationType string,
		account *types.AccountIdentifier,
		currency *types.Currency,
		cause string,
	) error
}

// InactiveEntry is used to track the last
// time that an *types.AccountCurrency was reconciled.
type InactiveEntry struct {
	Entry     *types.AccountCurrency
	LastCheck *types.BlockIdentifier
}

// Reconciler contains all logic to reconcile balances of
// indexed accounts with the balances computed by the node.
type Reconciler struct {
	network *types.NetworkIdentifier
	helper  Helper
	handler Handler
	fetcher Fetcher

	lookupBalanceByBlock bool
	interestingAccounts  []*types.AccountCurrency
	backlogSize          int
	changeQueue          chan *parser.BalanceChange
	inactiveFrequency    int64
	waitToCheckDiff      int64
	waitToCheckDiffSleep time.Duration
	debugLogging         bool

	// Reconciler concurrency is separated between
	// active and inactive concurrency to allow for
	// fine-grained tuning of reconciler behavior.
	// When there are many transactions in a block
	// on a resource-constrained machine (laptop),
	// it is useful to allocate more resources to
	// active reconciliation as it is synchronous
	// (when lookupBalanceByBlock is enabled).
	activeConcurrency   int
	inactiveConcurrency int

	// highWaterMark is used to skip requests when
	// we are very far behind the live head. It is
	// only ever read and written atomically.
	highWaterMark int64

	// seenAccounts are stored for inactive account
	// reconciliation. seenAccounts must be stored
	// separately from inactiveQueue to prevent duplicate
	// accounts from being added to the inactive reconciliation
	// queue. If this is not done, it is possible a goroutine
	// could be processing an account (not in the queue) when
	// we do a lookup to determine if we should add to the queue.
	seenAccounts  map[string]struct{}
	inactiveQueue []*InactiveEntry

	// inactiveQueueMutex guards both seenAccounts and
	// inactiveQueue. Active-path seeding takes priority
	// over the inactive sweep because it blocks the caller
	// feeding us balance changes.
	inactiveQueueMutex *utils.PriorityMutex
}

// ContainsAccountCurrency returns a boolean indicating if a
// AccountCurrency set already contains an Account and Currency combination.
func ContainsAccountCurrency(
	m map[string]struct{},
	change *types.AccountCurrency,
) bool {
	_, exists := m[types.Hash(change)]
	return exists
}
