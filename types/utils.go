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

package types

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log"
	"math/big"
)

// ConstructPartialBlockIdentifier constructs a *PartialBlockIdentifier
// from a *BlockIdentifier.
//
// It is useful to have this helper when making historical balance
// requests with the fetcher.
func ConstructPartialBlockIdentifier(
	blockIdentifier *BlockIdentifier,
) *PartialBlockIdentifier {
	return &PartialBlockIdentifier{
		Hash:  &blockIdentifier.Hash,
		Index: &blockIdentifier.Index,
	}
}

// hashBytes returns a hex-encoded sha256 hash of the provided
// byte slice.
func hashBytes(data []byte) string {
	h := sha256.New()
	_, err := h.Write(data)
	if err != nil {
		log.Fatal(fmt.Errorf("%w: unable to hash data %s", err, string(data)))
	}

	return fmt.Sprintf("%x", h.Sum(nil))
}

// Hash returns a deterministic hash for any interface.
// This works because Golang's JSON marshaler sorts all map keys, recursively.
// Source: https://golang.org/pkg/encoding/json/#Marshal
//
// It is important to note that any interface that is a slice
// or contains slices will not be equal if the slice ordering is
// different.
func Hash(i interface{}) string {
	// Convert interface to JSON object (not necessarily ordered if struct
	// contains json.RawMessage)
	a, err := json.Marshal(i)
	if err != nil {
		log.Fatal(fmt.Errorf("%w: unable to marshal %+v", err, i))
	}

	// Convert JSON object to interface (all json.RawMessage converted to go types)
	var b interface{}
	if err := json.Unmarshal(a, &b); err != nil {
		log.Fatal(fmt.Errorf("%w: unable to unmarshal %+v", err, a))
	}

	// Convert interface to JSON object (all map keys ordered)
	c, err := json.Marshal(b)
	if err != nil {
		log.Fatal(fmt.Errorf("%w: unable to marshal %+v", err, b))
	}

	return hashBytes(c)
}

// AddValues adds string amounts using
// big.Int.
func AddValues(
	a string,
	b string,
) (string, error) {
	aVal, ok := new(big.Int).SetString(a, 10)
	if !ok {
		return "", fmt.Errorf("%s is not an integer", a)
	}

	bVal, ok := new(big.Int).SetString(b, 10)
	if !ok {
		return "", fmt.Errorf("%s is not an integer", b)
	}

	newVal := new(big.Int).Add(aVal, bVal)
	return newVal.String(), nil
}

// SubtractValues subtracts a-b using
// big.Int.
func SubtractValues(
	a string,
	b string,
) (string, error) {
	aVal, ok := new(big.Int).SetString(a, 10)
	if !ok {
		return "", fmt.Errorf("%s is not an integer", a)
	}

	bVal, ok := new(big.Int).SetString(b, 10)
	if !ok {
		return "", fmt.Errorf("%s is not an integer", b)
	}

	newVal := new(big.Int).Sub(aVal, bVal)
	return newVal.String(), nil
}

// NegateValue flips the sign of a string amount
// using big.Int.
func NegateValue(
	val string,
) (string, error) {
	existing, ok := new(big.Int).SetString(val, 10)
	if !ok {
		return "", fmt.Errorf("%s is not an integer", val)
	}

	return new(big.Int).Neg(existing).String(), nil
}

// ExtractAmount returns the *Amount for a particular
// *Currency from a slice of balances, if it exists.
func ExtractAmount(
	balances []*Amount,
	currency *Currency,
) *Amount {
	for _, balance := range balances {
		if Hash(balance.Currency) != Hash(currency) {
			continue
		}

		return balance
	}

	return nil
}

// AccountString returns a human-readable representation of a
// *AccountIdentifier.
func AccountString(account *AccountIdentifier) string {
	if account.SubAccount == nil {
		return account.Address
	}

	if account.SubAccount.Metadata == nil {
		return fmt.Sprintf(
			"%s:%s",
			account.Address,
			account.SubAccount.Address,
		)
	}

	return fmt.Sprintf(
		"%s:%s:%+v",
		account.Address,
		account.SubAccount.Address,
		account.SubAccount.Metadata,
	)
}

// CurrencyString returns a human-readable representation
// of a *Currency.
func CurrencyString(currency *Currency) string {
	if currency.Metadata == nil {
		return fmt.Sprintf("%s:%d", currency.Symbol, currency.Decimals)
	}

	return fmt.Sprintf(
		"%s:%d:%+v",
		currency.Symbol,
		currency.Decimals,
		currency.Metadata,
	)
}

// PrintStruct marshals a struct to JSON and returns it
// as a string without newlines.
func PrintStruct(val interface{}) string {
	str, err := json.Marshal(val)
	if err != nil {
		log.Fatal(err)
	}

	return string(str)
}

// PrettyPrintStruct marshals a struct to JSON and returns
// it as an indented string.
func PrettyPrintStruct(val interface{}) string {
	prettyStruct, err := json.MarshalIndent(
		val,
		"",
		" ",
	)
	if err != nil {
		log.Fatal(err)
	}

	return string(prettyStruct)
}
