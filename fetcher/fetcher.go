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

// Package fetcher wraps a node API client with retry logic
// and response validation. The reconciler consumes it through
// the reconciler.Fetcher interface.
package fetcher

import (
	"context"
	"time"

	"github.com/driftwatch/driftwatch/types"
)

const (
	// DefaultElapsedTime is the default limit on time
	// spent retrying a fetch.
	DefaultElapsedTime = 1 * time.Minute

	// DefaultRetries is the default number of times to
	// attempt a retry on a failed request.
	DefaultRetries = 10
)

// Client is the low-level node API client the Fetcher
// retries over. Implementations own transport concerns
// (HTTP, gRPC, in-process); the Fetcher owns retries and
// response validation.
type Client interface {
	AccountBalance(
		ctx context.Context,
		request *types.AccountBalanceRequest,
	) (*types.AccountBalanceResponse, *types.Error, error)
}

// Fetcher contains all logic to communicate with a node API.
type Fetcher struct {
	client           Client
	maxRetries       uint64
	retryElapsedTime time.Duration

	// forceRetry treats every error as retriable. This is
	// useful when accessing a node implementation via a load
	// balancer where there may be periods of inconsistency.
	forceRetry bool
}

// New constructs a new Fetcher with provided options.
func New(
	client Client,
	options ...Option,
) *Fetcher {
	f := &Fetcher{
		client:           client,
		maxRetries:       DefaultRetries,
		retryElapsedTime: DefaultElapsedTime,
	}

	// Override defaults with any provided options
	for _, opt := range options {
		opt(f)
	}

	return f
}
