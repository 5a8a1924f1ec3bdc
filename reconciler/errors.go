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
	"errors"

	utils "github.com/driftwatch/driftwatch/errors"
)

var (
	// ErrHeadBlockBehindLive is returned when the indexed
	// head is behind the live head. Sometimes, it is
	// preferable to sleep and wait to catch up when
	// we are close to the live head (waitToCheckDiff).
	ErrHeadBlockBehindLive = errors.New("head block behind")

	// ErrAccountUpdated is returned when the
	// account was updated at a height later than
	// the live height (when the account balance was fetched).
	ErrAccountUpdated = errors.New("account updated")

	// ErrBlockGone is returned when the live block is
	// not greater than the indexed head but the block
	// does not exist in the store. This likely means
	// that the block was orphaned.
	ErrBlockGone = errors.New("block gone")

	// ErrCurrencyNotFound is returned when the fetched
	// live balance list is missing the currency under
	// reconciliation. This indicates an upstream data
	// defect, not a transient race, so it is never retried.
	ErrCurrencyNotFound = errors.New("currency not found")

	// ErrHaltRequested is returned when a Handler callback
	// returns an error, indicating the client wants
	// reconciliation to stop.
	ErrHaltRequested = errors.New("halt requested")
)

// Err takes an error as an argument and returns
// whether or not the error is one thrown by the reconciler package.
func Err(err error) bool {
	reconcilerErrors := []error{
		ErrHeadBlockBehindLive,
		ErrAccountUpdated,
		ErrBlockGone,
		ErrCurrencyNotFound,
		ErrHaltRequested,
	}

	return utils.FindError(reconcilerErrors, err)
}
