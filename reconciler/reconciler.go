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

// Package reconciler continuously verifies that balances computed
// by an indexer match the balances computed by the node it indexes.
// It runs two perpetual verification strategies: active checks
// triggered by observed balance changes and an inactive sweep that
// re-verifies every seen account on a confirmation-depth cadence.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/fatih/color"
	"golang.org/x/sync/errgroup"

	"github.com/driftwatch/driftwatch/parser"
	"github.com/driftwatch/driftwatch/types"
	"github.com/driftwatch/driftwatch/utils"
)

// New creates a new Reconciler.
func New(
	network *types.NetworkIdentifier,
	helper Helper,
	handler Handler,
	fetcher Fetcher,
	options ...Option,
) *Reconciler {
	r := &Reconciler{
		network:              network,
		helper:               helper,
		handler:              handler,
		fetcher:              fetcher,
		inactiveFrequency:    defaultInactiveFrequency,
		waitToCheckDiff:      defaultWaitToCheckDiff,
		waitToCheckDiffSleep: defaultWaitToCheckDiffSleep,
		activeConcurrency:    defaultReconcilerConcurrency,
		inactiveConcurrency:  defaultReconcilerConcurrency,
		backlogSize:          defaultBacklogSize,
		highWaterMark:        -1,
		seenAccounts:         map[string]struct{}{},
		inactiveQueue:        []*InactiveEntry{},
		inactiveQueueMutex:   utils.NewPriorityMutex(),

		// When lookupBalanceByBlock is enabled, we check
		// balance changes synchronously.
		lookupBalanceByBlock: true,
		changeQueue:          make(chan *parser.BalanceChange),
	}

	for _, opt := range options {
		opt(r)
	}

	return r
}

// HighWaterMark returns the block index below which
// active balance changes are dropped as stale. It is
// -1 until the reconciler has fallen behind the live
// head at least once.
func (r *Reconciler) HighWaterMark() int64 {
	return atomic.LoadInt64(&r.highWaterMark)
}

// raiseHighWaterMark raises the high water mark to index.
// The mark is only ever raised, never lowered, even when
// called concurrently.
func (r *Reconciler) raiseHighWaterMark(index int64) {
	for {
		current := atomic.LoadInt64(&r.highWaterMark)
		if index <= current {
			return
		}

		if atomic.CompareAndSwapInt64(&r.highWaterMark, current, index) {
			return
		}
	}
}

// QueueChanges enqueues a slice of *parser.BalanceChanges
// for reconciliation.
func (r *Reconciler) QueueChanges(
	ctx context.Context,
	block *types.BlockIdentifier,
	balanceChanges []*parser.BalanceChange,
) error {
	// Ensure all interestingAccounts are checked
	for _, account := range r.interestingAccounts {
		skipAccount := false
		// Look through balance changes for account + currency
		for _, change := range balanceChanges {
			if types.Hash(account) == types.Hash(&types.AccountCurrency{
				Account:  change.Account,
				Currency: change.Currency,
			}) {
				skipAccount = true
				break
			}
		}

		// Account changed on this block
		if skipAccount {
			continue
		}

		// If account + currency not found, add with difference 0
		balanceChanges = append(balanceChanges, &parser.BalanceChange{
			Account:    account.Account,
			Currency:   account.Currency,
			Difference: zeroString,
			Block:      block,
		})
	}

	for _, change := range balanceChanges {
		// Add all seen accounts to inactive reconciler queue.
		//
		// Note: accounts are only added if they have not been seen before.
		r.inactiveAccountQueue(false, &types.AccountCurrency{
			Account:  change.Account,
			Currency: change.Currency,
		}, block)

		if !r.lookupBalanceByBlock {
			// All changes will have the same block. Continue
			// if we are too far behind to start reconciling.
			//
			// Note: we don't return here so that we can ensure
			// all seen accounts are added to the inactiveQueue.
			if block.Index < r.HighWaterMark() {
				continue
			}

			select {
			case r.changeQueue <- change:
			default:
				if err := r.handleSkip(
					ctx,
					ActiveReconciliation,
					&types.AccountCurrency{
						Account:  change.Account,
						Currency: change.Currency,
					},
					BacklogFull,
				); err != nil {
					return err
				}
			}
		} else {
			// Block until all checked for a block or context is Done
			select {
			case r.changeQueue <- change:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return nil
}

// CompareBalance checks to see if the computed balance of an account
// is equal to the live balance of an account. This function ensures
// balance is checked correctly in the case of orphaned blocks.
func (r *Reconciler) CompareBalance(
	ctx context.Context,
	account *types.AccountIdentifier,
	currency *types.Currency,
	amount string,
	liveBlock *types.BlockIdentifier,
) (string, string, int64, error) {
	// Head block should be set before we CompareBalance
	head, err := r.helper.CurrentBlock(ctx)
	if err != nil {
		return zeroString, "", 0, fmt.Errorf(
			"unable to get current block for reconciliation: %w",
			err,
		)
	}

	// Check if live block is < head (or wait)
	if liveBlock.Index > head.Index {
		return zeroString, "", head.Index, fmt.Errorf(
			"%w live block %d > head block %d",
			ErrHeadBlockBehindLive,
			liveBlock.Index,
			head.Index,
		)
	}

	// Check if live block is in store (ensure not reorged)
	exists, err := r.helper.BlockExists(ctx, liveBlock)
	if err != nil {
		return zeroString, "", 0, fmt.Errorf(
			"unable to check if block exists %s: %w",
			types.PrintStruct(liveBlock),
			err,
		)
	}
	if !exists {
		return zeroString, "", head.Index, fmt.Errorf(
			"%w %s",
			ErrBlockGone,
			types.PrintStruct(liveBlock),
		)
	}

	// Check if live block < computed head
	computedBalance, computedBlock, err := r.helper.ComputedBalance(
		ctx,
		account,
		currency,
		head,
	)
	if err != nil {
		return zeroString, "", head.Index, fmt.Errorf(
			"unable to get computed balance for %s:%s: %w",
			types.AccountString(account),
			types.CurrencyString(currency),
			err,
		)
	}

	if liveBlock.Index < computedBlock.Index {
		return zeroString, "", head.Index, fmt.Errorf(
			"%w %s updated at %d",
			ErrAccountUpdated,
			types.AccountString(account),
			computedBlock.Index,
		)
	}

	difference, err := types.SubtractValues(computedBalance.Value, amount)
	if err != nil {
		return "", "", -1, err
	}

	return difference, computedBalance.Value, head.Index, nil
}

// bestLiveBalance returns the balance for an account
// at either the current block (if lookupBalanceByBlock is
// disabled) or at some historical block.
func (r *Reconciler) bestLiveBalance(
	ctx context.Context,
	account *types.AccountIdentifier,
	currency *types.Currency,
	block *types.BlockIdentifier,
) (*types.Amount, *types.BlockIdentifier, error) {
	// Use the current balance to reconcile balances when lookupBalanceByBlock
	// is disabled. This could be the case when a node does not
	// support historical balance lookups.
	var lookupBlock *types.PartialBlockIdentifier
	if r.lookupBalanceByBlock {
		lookupBlock = types.ConstructPartialBlockIdentifier(block)
	}

	liveBlock, liveBalances, err := r.fetcher.AccountBalanceRetry(
		ctx,
		r.network,
		account,
		lookupBlock,
	)
	if err != nil {
		// If there is a reorg, there is a chance that balance
		// lookup can fail if we try to query an orphaned block.
		// If this is the case, we continue reconciling.
		exists, existsErr := r.helper.BlockExists(ctx, block)
		if existsErr != nil || !exists {
			return nil, nil, ErrBlockGone
		}

		return nil, nil, err
	}

	liveAmount := types.ExtractAmount(liveBalances, currency)
	if liveAmount == nil {
		return nil, nil, fmt.Errorf(
			"%w: %s in balance response for %s",
			ErrCurrencyNotFound,
			types.CurrencyString(currency),
			types.AccountString(account),
		)
	}

	return liveAmount, liveBlock, nil
}

// handleSkip dispatches the skip callback for an attempt
// that terminated without a success or failure.
func (r *Reconciler) handleSkip(
	ctx context.Context,
	reconciliationType string,
	accountCurrency *types.AccountCurrency,
	cause string,
) error {
	if r.debugLogging {
		log.Printf(
			"skipping %s reconciliation for %s: %s\n",
			reconciliationType,
			types.PrintStruct(accountCurrency),
			cause,
		)
	}

	if err := r.handler.ReconciliationSkipped(
		ctx,
		reconciliationType,
		accountCurrency.Account,
		accountCurrency.Currency,
		cause,
	); err != nil {
		return fmt.Errorf("%w: %s", ErrHaltRequested, err.Error())
	}

	return nil
}

// accountReconciliation returns an error if the provided
// AccountCurrency's live balance cannot be reconciled
// with the computed balance. Every terminating attempt
// dispatches exactly one handler callback: succeeded,
// failed, or skipped.
func (r *Reconciler) accountReconciliation(
	ctx context.Context,
	account *types.AccountIdentifier,
	currency *types.Currency,
	liveAmount string,
	liveBlock *types.BlockIdentifier,
	inactive bool,
) error {
	accountCurrency := &types.AccountCurrency{
		Account:  account,
		Currency: currency,
	}

	reconciliationType := ActiveReconciliation
	if inactive {
		reconciliationType = InactiveReconciliation
	}

	for ctx.Err() == nil {
		difference, computedBalance, headIndex, err := r.CompareBalance(
			ctx,
			account,
			currency,
			liveAmount,
			liveBlock,
		)
		if err != nil {
			if errors.Is(err, ErrHeadBlockBehindLive) {
				// This error will only occur when lookupBalanceByBlock
				// is disabled and the indexer is behind the current block of
				// the node. This error should never occur when
				// lookupBalanceByBlock is enabled.
				diff := liveBlock.Index - headIndex
				if diff < r.waitToCheckDiff {
					if sleepErr := utils.ContextSleep(ctx, r.waitToCheckDiffSleep); sleepErr != nil {
						return sleepErr
					}
					continue
				}

				// Don't wait to check if we are very far behind. Set
				// a highWaterMark to not accept any new reconciliation
				// requests unless they happened after this point.
				if r.debugLogging {
					log.Printf(
						"skipping reconciliation for %s: %d blocks behind\n",
						types.PrettyPrintStruct(accountCurrency),
						diff,
					)
				}

				r.raiseHighWaterMark(liveBlock.Index)
				return r.handleSkip(ctx, reconciliationType, accountCurrency, HeadBehind)
			}

			if errors.Is(err, ErrBlockGone) {
				// Either the block has not been processed in a re-org yet
				// or the block was orphaned
				return r.handleSkip(ctx, reconciliationType, accountCurrency, BlockGone)
			}

			if errors.Is(err, ErrAccountUpdated) {
				// If account was updated, it must be
				// enqueued again
				return r.handleSkip(ctx, reconciliationType, accountCurrency, AccountUpdated)
			}

			return err
		}

		if difference != zeroString {
			if err := r.handler.ReconciliationFailed(
				ctx,
				reconciliationType,
				accountCurrency.Account,
				accountCurrency.Currency,
				computedBalance,
				liveAmount,
				liveBlock,
			); err != nil { // error only returned if we should exit on failure
				return fmt.Errorf("%w: %s", ErrHaltRequested, err.Error())
			}

			return nil
		}

		if err := r.handler.ReconciliationSucceeded(
			ctx,
			reconciliationType,
			accountCurrency.Account,
			accountCurrency.Currency,
			liveAmount,
			liveBlock,
		); err != nil {
			return fmt.Errorf("%w: %s", ErrHaltRequested, err.Error())
		}

		return nil
	}

	return ctx.Err()
}

// inactiveAccountQueue adds an *types.AccountCurrency to the
// inactive reconciliation queue. On the active path, accounts
// are only seeded the first time they are seen. On the inactive
// path, accounts are always re-enqueued so they rotate forever.
func (r *Reconciler) inactiveAccountQueue(
	inactive bool,
	accountCurrency *types.AccountCurrency,
	liveBlock *types.BlockIdentifier,
) {
	// The active path blocks the caller feeding us balance
	// changes, so it takes priority over the inactive sweep.
	r.inactiveQueueMutex.Lock(!inactive)

	// Only enqueue the first time we see an account on an active reconciliation.
	shouldEnqueueInactive := false
	if !inactive && !ContainsAccountCurrency(r.seenAccounts, accountCurrency) {
		r.seenAccounts[types.Hash(accountCurrency)] = struct{}{}
		shouldEnqueueInactive = true
	}

	if inactive || shouldEnqueueInactive {
		r.inactiveQueue = append(r.inactiveQueue, &InactiveEntry{
			Entry:     accountCurrency,
			LastCheck: liveBlock,
		})
	}

	r.inactiveQueueMutex.Unlock()
}

// reconcileChange drives a single balance change through
// balance retrieval and the comparison state machine.
func (r *Reconciler) reconcileChange(
	ctx context.Context,
	change *parser.BalanceChange,
) error {
	amount, block, err := r.bestLiveBalance(
		ctx,
		change.Account,
		change.Currency,
		change.Block,
	)
	if errors.Is(err, ErrBlockGone) {
		return r.handleSkip(ctx, ActiveReconciliation, &types.AccountCurrency{
			Account:  change.Account,
			Currency: change.Currency,
		}, BlockGone)
	}

	if err != nil {
		return fmt.Errorf("unable to lookup live balance: %w", err)
	}

	return r.accountReconciliation(
		ctx,
		change.Account,
		change.Currency,
		amount.Value,
		block,
		false,
	)
}

// fault reports an error that terminated a single reconciliation
// attempt. One bad account must not halt reconciliation for every
// other account, so faults are reported and the loop continues.
func (r *Reconciler) fault(reconciliationType string, err error) {
	color.Red("%s reconciliation fault: %s", reconciliationType, err.Error())
}

// reconcileActiveAccounts selects an account
// from the Reconciler account queue and
// reconciles the balance. This is useful
// for detecting if balance changes in operations
// were correct.
func (r *Reconciler) reconcileActiveAccounts(
	ctx context.Context,
) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case balanceChange := <-r.changeQueue:
			if balanceChange.Block.Index < r.HighWaterMark() {
				if err := r.handleSkip(ctx, ActiveReconciliation, &types.AccountCurrency{
					Account:  balanceChange.Account,
					Currency: balanceChange.Currency,
				}, HeadBehind); err != nil {
					return err
				}
				continue
			}

			err := r.reconcileChange(ctx, balanceChange)
			switch {
			case err == nil:
			case errors.Is(err, ErrHaltRequested), ctx.Err() != nil:
				return err
			default:
				r.fault(ActiveReconciliation, err)
			}
		}
	}
}

// shouldAttemptInactiveReconciliation returns a boolean indicating whether
// inactive reconciliation should be attempted based on syncing status.
func (r *Reconciler) shouldAttemptInactiveReconciliation(
	ctx context.Context,
) (bool, *types.BlockIdentifier) {
	head, err := r.helper.CurrentBlock(ctx)
	// When we first start syncing, this loop may run before the
	// genesis block is synced. If this is the case, we should sleep
	// and try again later instead of exiting.
	if err != nil {
		if r.debugLogging {
			log.Println("waiting to start inactive reconciliation until a block is synced...")
		}

		return false, nil
	}

	if head.Index < r.HighWaterMark() {
		if r.debugLogging {
			log.Println(
				"waiting to continue inactive reconciliation until reaching high water mark...",
			)
		}

		return false, nil
	}

	return true, head
}

// reconcileInactiveAccounts selects the next ready account
// from the inactive queue and reconciles the balance. This
// is useful for detecting balance changes that were missed
// by the indexer entirely (silent drift).
func (r *Reconciler) reconcileInactiveAccounts(
	ctx context.Context,
) error {
	for ctx.Err() == nil {
		shouldAttempt, head := r.shouldAttemptInactiveReconciliation(ctx)
		if !shouldAttempt {
			if err := utils.ContextSleep(ctx, inactiveReconciliationSleep); err != nil {
				return err
			}
			continue
		}

		r.inactiveQueueMutex.Lock(false)
		queueLen := len(r.inactiveQueue)
		if queueLen == 0 {
			r.inactiveQueueMutex.Unlock()
			if r.debugLogging {
				log.Println(
					"no accounts ready for inactive reconciliation (0 accounts in queue)",
				)
			}
			if err := utils.ContextSleep(ctx, inactiveReconciliationSleep); err != nil {
				return err
			}
			continue
		}

		nextAcct := r.inactiveQueue[0]
		nextValidIndex := int64(-1)
		if nextAcct.LastCheck != nil { // block is nil when loaded from a previous run
			nextValidIndex = nextAcct.LastCheck.Index + r.inactiveFrequency
		}

		if nextValidIndex >= head.Index {
			r.inactiveQueueMutex.Unlock()
			if r.debugLogging {
				log.Printf(
					"no accounts ready for inactive reconciliation (%d accounts in queue, will reconcile next account at index %d)\n",
					queueLen,
					nextValidIndex,
				)
			}
			if err := utils.ContextSleep(ctx, inactiveReconciliationSleep); err != nil {
				return err
			}
			continue
		}

		r.inactiveQueue = r.inactiveQueue[1:]
		r.inactiveQueueMutex.Unlock()

		amount, block, err := r.bestLiveBalance(
			ctx,
			nextAcct.Entry.Account,
			nextAcct.Entry.Currency,
			head,
		)
		switch {
		case err == nil:
			err = r.accountReconciliation(
				ctx,
				nextAcct.Entry.Account,
				nextAcct.Entry.Currency,
				amount.Value,
				block,
				true,
			)
		case errors.Is(err, ErrBlockGone):
			err = r.handleSkip(ctx, InactiveReconciliation, nextAcct.Entry, BlockGone)
		default:
			err = fmt.Errorf("unable to lookup live balance: %w", err)
		}

		// Always re-enqueue accounts after they have been inactively
		// reconciled. If we don't re-enqueue, we will never check
		// these accounts again.
		if block == nil {
			block = head
		}
		r.inactiveAccountQueue(true, nextAcct.Entry, block)

		switch {
		case err == nil:
		case errors.Is(err, ErrHaltRequested), ctx.Err() != nil:
			return err
		default:
			r.fault(InactiveReconciliation, err)
		}
	}

	return ctx.Err()
}

// Reconcile starts the active and inactive Reconciler goroutines.
// If any goroutine errs, the function will return an error.
func (r *Reconciler) Reconcile(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for j := 0; j < r.activeConcurrency; j++ {
		g.Go(func() error {
			return r.reconcileActiveAccounts(ctx)
		})
	}

	for j := 0; j < r.inactiveConcurrency; j++ {
		g.Go(func() error {
			return r.reconcileInactiveAccounts(ctx)
		})
	}

	return g.Wait()
}
