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

// AccountCurrency is a simple struct combining
// a *AccountIdentifier and *Currency. This can
// be useful for looking up balances. Identity is
// structural: use Hash for map keys and set
// membership, never pointer comparison.
type AccountCurrency struct {
	Account  *AccountIdentifier `json:"account_identifier,omitempty"`
	Currency *Currency          `json:"currency,omitempty"`
}
