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

// NetworkIdentifier specifies which network a particular
// object is associated with.
type NetworkIdentifier struct {
	Blockchain string `json:"blockchain"`
	Network    string `json:"network"`

	// SubNetworkIdentifier is populated when a network
	// is shard-based or has sub-networks.
	SubNetworkIdentifier *SubNetworkIdentifier `json:"sub_network_identifier,omitempty"`
}

// SubNetworkIdentifier optionally refines a NetworkIdentifier.
type SubNetworkIdentifier struct {
	Network  string                 `json:"network"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// BlockIdentifier uniquely identifies a block
// in a particular network.
type BlockIdentifier struct {
	// Index is the block height.
	Index int64 `json:"index"`

	Hash string `json:"hash"`
}

// PartialBlockIdentifier is used to query for a historical
// block by index, by hash, or by both. If neither property
// is specified, it is assumed the client is requesting the
// current block.
type PartialBlockIdentifier struct {
	Index *int64  `json:"index,omitempty"`
	Hash  *string `json:"hash,omitempty"`
}

// AccountIdentifier uniquely identifies an account
// within a network. All provided fields are utilized
// to determine uniqueness.
type AccountIdentifier struct {
	Address string `json:"address"`

	// SubAccount is populated when an address is
	// not sufficient to uniquely specify an account.
	SubAccount *SubAccountIdentifier `json:"sub_account,omitempty"`

	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// SubAccountIdentifier uniquely identifies an account
// partition (i.e. a delegated stake) within an account.
type SubAccountIdentifier struct {
	Address  string                 `json:"address"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// TransactionIdentifier uniquely identifies a transaction
// in a particular network and block or in the mempool.
type TransactionIdentifier struct {
	Hash string `json:"hash"`
}

// OperationIdentifier uniquely identifies an operation
// within a transaction.
type OperationIdentifier struct {
	Index        int64  `json:"index"`
	NetworkIndex *int64 `json:"network_index,omitempty"`
}
