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
	"context"
	"errors"
	"io"
	"log"
	"net"
	"syscall"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/driftwatch/driftwatch/types"
	"github.com/driftwatch/driftwatch/utils"
)

// backoffRetries creates the backoff.BackOff struct used by all
// *Retry functions in the fetcher.
func backoffRetries(
	maxElapsedTime time.Duration,
	maxRetries uint64,
) backoff.BackOff {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.MaxElapsedTime = maxElapsedTime
	return backoff.WithMaxRetries(exponentialBackoff, maxRetries)
}

// transientError returns a boolean indicating if a request
// should be retried because of a transport-level failure
// independent of the node's own retriable classification.
func transientError(err error) bool {
	if errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return false
}

// retriable returns a boolean indicating if a failed request
// should be attempted again.
func (f *Fetcher) retriable(clientErr *types.Error, err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}

	if f.forceRetry {
		return true
	}

	return (clientErr != nil && clientErr.Retriable) || transientError(err)
}

// tryAgain handles a backoff and prints error messages depending
// on the fetchMsg. The backoff sleep is abandoned as soon as the
// context is canceled.
func tryAgain(
	ctx context.Context,
	fetchMsg string,
	thisBackoff backoff.BackOff,
	err error,
) bool {
	nextBackoff := thisBackoff.NextBackOff()
	if nextBackoff == backoff.Stop {
		return false
	}

	log.Printf("%s: retrying fetch for %s after %fs\n", err.Error(), fetchMsg, nextBackoff.Seconds())
	if sleepErr := utils.ContextSleep(ctx, nextBackoff); sleepErr != nil {
		return false
	}

	return true
}
