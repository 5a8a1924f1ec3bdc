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

package fetcher

import (
	"time"
)

// Option is used to overwrite default values in
// Fetcher construction. Any Option not provided
// falls back to the default value.
type Option func(f *Fetcher)

// WithMaxRetries overrides the default number of retries on
// a request.
func WithMaxRetries(maxRetries uint64) Option {
	return func(f *Fetcher) {
		f.maxRetries = maxRetries
	}
}

// WithRetryElapsedTime overrides the default max elapsed time
// to retry a request.
func WithRetryElapsedTime(retryElapsedTime time.Duration) Option {
	return func(f *Fetcher) {
		f.retryElapsedTime = retryElapsedTime
	}
}

// WithForceRetry overrides the default
// retry handling logic and treats every error
// as retriable.
func WithForceRetry() Option {
	return func(f *Fetcher) {
		f.forceRetry = true
	}
}
