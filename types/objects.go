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

// Currency is composed of a canonical Symbol and Decimals.
// Currencies with the same Symbol but different Decimals
// are not considered equal.
type Currency struct {
	Symbol string `json:"symbol"`

	// Decimals is the number of decimal places in the standard
	// unit representation of the amount (i.e. BTC has 8 decimals).
	Decimals int32 `json:"decimals"`

	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Amount is some value of a Currency. Value is an
// arbitrary-precision, base-10 integer encoded as a string
// in atomic units. Fractional representations are never used.
type Amount struct {
	Value    string                 `json:"value"`
	Currency *Currency              `json:"currency"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Operation contains all balance-changing information
// within a transaction.
type Operation struct {
	OperationIdentifier *OperationIdentifier   `json:"operation_identifier"`
	Type                string                 `json:"type"`
	Status              *string                `json:"status,omitempty"`
	Account             *AccountIdentifier     `json:"account,omitempty"`
	Amount              *Amount                `json:"amount,omitempty"`
	Metadata            map[string]interface{} `json:"metadata,omitempty"`
}

// Transaction contains an array of Operations that are
// attributable to the same TransactionIdentifier.
type Transaction struct {
	TransactionIdentifier *TransactionIdentifier `json:"transaction_identifier"`
	Operations            []*Operation           `json:"operations"`
	Metadata              map[string]interface{} `json:"metadata,omitempty"`
}

// Block is an array of Transactions that occurred at
// a particular BlockIdentifier.
type Block struct {
	BlockIdentifier       *BlockIdentifier       `json:"block_identifier"`
	ParentBlockIdentifier *BlockIdentifier       `json:"parent_block_identifier"`
	Timestamp             int64                  `json:"timestamp"`
	Transactions          []*Transaction         `json:"transactions"`
	Metadata              map[string]interface{} `json:"metadata,omitempty"`
}

// Error is returned by a node API when a request fails.
// If Retriable is true, the request may succeed if
// submitted again.
type Error struct {
	Code      int32                  `json:"code"`
	Message   string                 `json:"message"`
	Retriable bool                   `json:"retriable"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// AccountBalanceRequest is utilized to make a balance
// request on the /account/balance endpoint of a node API.
// If a PartialBlockIdentifier is populated, a historical
// balance query should be performed.
type AccountBalanceRequest struct {
	NetworkIdentifier *NetworkIdentifier      `json:"network_identifier"`
	AccountIdentifier *AccountIdentifier      `json:"account_identifier"`
	BlockIdentifier   *PartialBlockIdentifier `json:"block_identifier,omitempty"`
	Currencies        []*Currency             `json:"currencies,omitempty"`
}

// AccountBalanceResponse is returned on the
// /account/balance endpoint. The returned BlockIdentifier
// specifies the block at which the balances were computed.
type AccountBalanceResponse struct {
	BlockIdentifier *BlockIdentifier       `json:"block_identifier"`
	Balances        []*Amount              `json:"balances"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}
