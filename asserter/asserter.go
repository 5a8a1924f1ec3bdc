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

// Package asserter validates that objects returned by a node
// API are well-formed before they are consumed by the rest
// of the engine. A malformed response caught here surfaces
// as an assertion failure instead of a confusing downstream
// reconciliation fault.
package asserter

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/driftwatch/driftwatch/types"
)

var (
	// ErrAmountValueMissing is returned when an amount
	// has no value.
	ErrAmountValueMissing = errors.New("Amount.Value is missing")

	// ErrAmountIsNotInt is returned when an amount value
	// is not a base-10 integer string.
	ErrAmountIsNotInt = errors.New("Amount.Value is not an integer")

	// ErrAmountCurrencyIsNil is returned when an amount
	// has no currency.
	ErrAmountCurrencyIsNil = errors.New("Amount.Currency is nil")

	// ErrCurrencyDuplicate is returned when a balance response
	// contains multiple amounts for the same currency.
	ErrCurrencyDuplicate = errors.New("duplicate currency")

	// ErrReturnedBlockHashMismatch is returned when a historical
	// balance response is for a different block hash than requested.
	ErrReturnedBlockHashMismatch = errors.New("returned block hash does not match request")

	// ErrReturnedBlockIndexMismatch is returned when a historical
	// balance response is for a different block index than requested.
	ErrReturnedBlockIndexMismatch = errors.New("returned block index does not match request")
)

// BlockIdentifier ensures a *types.BlockIdentifier
// is well-formatted.
func BlockIdentifier(blockIdentifier *types.BlockIdentifier) error {
	if blockIdentifier == nil {
		return errors.New("BlockIdentifier is nil")
	}

	if blockIdentifier.Hash == "" {
		return errors.New("BlockIdentifier.Hash is missing")
	}

	if blockIdentifier.Index < 0 {
		return errors.New("BlockIdentifier.Index is negative")
	}

	return nil
}

// PartialBlockIdentifier ensures a *types.PartialBlockIdentifier
// is well-formatted.
func PartialBlockIdentifier(blockIdentifier *types.PartialBlockIdentifier) error {
	if blockIdentifier == nil {
		return errors.New("PartialBlockIdentifier is nil")
	}

	if blockIdentifier.Hash != nil && *blockIdentifier.Hash != "" {
		return nil
	}

	if blockIdentifier.Index != nil && *blockIdentifier.Index >= 0 {
		return nil
	}

	return errors.New("neither PartialBlockIdentifier.Hash nor PartialBlockIdentifier.Index is set")
}

// AccountIdentifier ensures a *types.AccountIdentifier
// has an address and a valid subaccount (if present).
func AccountIdentifier(account *types.AccountIdentifier) error {
	if account == nil {
		return errors.New("Account is nil")
	}

	if account.Address == "" {
		return errors.New("Account.Address is missing")
	}

	if account.SubAccount == nil {
		return nil
	}

	if account.SubAccount.Address == "" {
		return errors.New("Account.SubAccount.Address is missing")
	}

	return nil
}

// Amount ensures a *types.Amount has an integer value
// and a populated currency.
func Amount(amount *types.Amount) error {
	if amount == nil || amount.Value == "" {
		return ErrAmountValueMissing
	}

	if _, ok := new(big.Int).SetString(amount.Value, 10); !ok {
		return fmt.Errorf("%w: %s", ErrAmountIsNotInt, amount.Value)
	}

	if amount.Currency == nil {
		return ErrAmountCurrencyIsNil
	}

	if amount.Currency.Symbol == "" {
		return errors.New("Amount.Currency.Symbol is empty")
	}

	if amount.Currency.Decimals < 0 {
		return errors.New("Amount.Currency.Decimals must be >= 0")
	}

	return nil
}

// AssertUniqueAmounts returns an error if a slice
// of *types.Amount is invalid or contains more than
// one amount for the same currency.
func AssertUniqueAmounts(amounts []*types.Amount) error {
	seen := map[string]struct{}{}
	for _, amount := range amounts {
		if err := Amount(amount); err != nil {
			return err
		}

		key := types.Hash(amount.Currency)
		if _, exists := seen[key]; exists {
			return fmt.Errorf(
				"%w: %s",
				ErrCurrencyDuplicate,
				types.CurrencyString(amount.Currency),
			)
		}

		seen[key] = struct{}{}
	}

	return nil
}

// AccountBalanceResponse returns an error if the provided
// *types.AccountBalanceResponse is malformed or does not
// correspond to the requested block.
func AccountBalanceResponse(
	requestBlock *types.PartialBlockIdentifier,
	response *types.AccountBalanceResponse,
) error {
	if response == nil {
		return errors.New("AccountBalanceResponse is nil")
	}

	if err := BlockIdentifier(response.BlockIdentifier); err != nil {
		return fmt.Errorf(
			"block identifier %s is invalid: %w",
			types.PrintStruct(response.BlockIdentifier),
			err,
		)
	}

	if err := AssertUniqueAmounts(response.Balances); err != nil {
		return fmt.Errorf(
			"balance amounts %s are invalid: %w",
			types.PrintStruct(response.Balances),
			err,
		)
	}

	if requestBlock == nil {
		return nil
	}

	if requestBlock.Hash != nil && *requestBlock.Hash != response.BlockIdentifier.Hash {
		return fmt.Errorf(
			"requested block hash %s, but got %s: %w",
			*requestBlock.Hash,
			response.BlockIdentifier.Hash,
			ErrReturnedBlockHashMismatch,
		)
	}

	if requestBlock.Index != nil && *requestBlock.Index != response.BlockIdentifier.Index {
		return fmt.Errorf(
			"requested block index %d, but got %d: %w",
			*requestBlock.Index,
			response.BlockIdentifier.Index,
			ErrReturnedBlockIndexMismatch,
		)
	}

	return nil
}
