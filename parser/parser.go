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

// Package parser turns indexed blocks into the balance-change
// events consumed by the reconciler.
package parser

import (
	"github.com/driftwatch/driftwatch/types"
)

// ExemptOperation is a function that returns a boolean indicating
// if the operation should be skipped eventhough it passes other
// checks indiciating it should be considered a balance change.
type ExemptOperation func(*types.Operation) bool

// Parser extracts balance changes from indexed blocks.
type Parser struct {
	// SuccessStatuses is the set of operation statuses
	// considered successful on this network. An operation
	// with any other status does not change a balance.
	SuccessStatuses []string

	ExemptFunc ExemptOperation
}

// New creates a new Parser.
func New(
	successStatuses []string,
	exemptFunc ExemptOperation,
) *Parser {
	return &Parser{
		SuccessStatuses: successStatuses,
		ExemptFunc:      exemptFunc,
	}
}

// operationSuccessful returns a boolean indicating
// if an operation's status is in SuccessStatuses.
func (p *Parser) operationSuccessful(status *string) bool {
	if status == nil {
		return false
	}

	for _, s := range p.SuccessStatuses {
		if s == *status {
			return true
		}
	}

	return false
}
