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
	"time"

	"github.com/driftwatch/driftwatch/parser"
	"github.com/driftwatch/driftwatch/types"
)

// Option is used to overwrite default values in
// Reconciler construction. Any Option not provided
// falls back to the default value.
type Option func(r *Reconciler)

// WithActiveConcurrency overrides the default active
// concurrency.
func WithActiveConcurrency(concurrency int) Option {
	return func(r *Reconciler) {
		r.activeConcurrency = concurrency
	}
}

// WithInactiveConcurrency overrides the default inactive
// concurrency.
func WithInactiveConcurrency(concurrency int) Option {
	return func(r *Reconciler) {
		r.inactiveConcurrency = concurrency
	}
}

// WithInterestingAccounts adds interesting accounts
// to check at each block.
func WithInterestingAccounts(interesting []*types.AccountCurrency) Option {
	return func(r *Reconciler) {
		r.interestingAccounts = interesting
	}
}

// WithSeenAccounts adds accounts to the seenAccounts
// set and inactiveQueue for inactive reconciliation.
// This is used to restore the inactive rotation from a
// previous run.
func WithSeenAccounts(seen []*types.AccountCurrency) Option {
	return func(r *Reconciler) {
		for _, acct := range seen {
			// When block is not set, it is assumed that the account
			// should be checked as soon as possible.
			r.inactiveQueue = append(r.inactiveQueue, &InactiveEntry{
				Entry: acct,
			})
			r.seenAccounts[types.Hash(acct)] = struct{}{}
		}
	}
}

// WithLookupBalanceByBlock sets lookupBalanceByBlock
// and instantiates the correct changeQueue.
func WithLookupBalanceByBlock(lookup bool) Option {
	return func(r *Reconciler) {
		// When lookupBalanceByBlock is disabled, we must check
		// balance changes asynchronously. Using a buffered
		// channel allows us to add balance changes without blocking.
		if !lookup {
			r.changeQueue = make(chan *parser.BalanceChange, r.backlogSize)
		}

		// We don't do anything if lookup == true because the default
		// is already to create a non-buffered channel.
		r.lookupBalanceByBlock = lookup
	}
}

// WithBacklogSize overrides the default backlog size
// used when lookupBalanceByBlock is disabled. It must
// be provided before WithLookupBalanceByBlock(false)
// to take effect.
func WithBacklogSize(size int) Option {
	return func(r *Reconciler) {
		r.backlogSize = size
	}
}

// WithInactiveFrequency overrides the default minimum
// number of blocks the reconciler should wait between
// inactive reconciliations for each account.
func WithInactiveFrequency(blocks int64) Option {
	return func(r *Reconciler) {
		r.inactiveFrequency = blocks
	}
}

// WithWaitToCheckDiff overrides the default block lag
// below which an active check waits for the indexer to
// catch up instead of giving up.
func WithWaitToCheckDiff(blocks int64) Option {
	return func(r *Reconciler) {
		r.waitToCheckDiff = blocks
	}
}

// WithWaitToCheckDiffSleep overrides the default amount
// of time to sleep while waiting for lag to close.
func WithWaitToCheckDiffSleep(d time.Duration) Option {
	return func(r *Reconciler) {
		r.waitToCheckDiffSleep = d
	}
}

// WithDebugLogging determines if verbose log output
// should be printed while reconciling.
func WithDebugLogging(debugLogging bool) Option {
	return func(r *Reconciler) {
		r.debugLogging = debugLogging
	}
}
