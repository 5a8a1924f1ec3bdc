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
	"errors"

	utils "github.com/driftwatch/driftwatch/errors"
)

var (
	// ErrRequestFailed is returned when a request fails.
	ErrRequestFailed = errors.New("request failed")

	// ErrExhaustedRetries is returned when a request with retries
	// fails because it was attempted too many times.
	ErrExhaustedRetries = errors.New("retries exhausted")

	// ErrAssertionFailed is returned when a fetch succeeds
	// but the response fails assertion.
	ErrAssertionFailed = errors.New("assertion failed")
)

// Err takes an error as an argument and returns
// whether or not the error is one thrown by the fetcher package.
func Err(err error) bool {
	fetcherErrors := []error{
		ErrRequestFailed,
		ErrExhaustedRetries,
		ErrAssertionFailed,
	}

	return utils.FindError(fetcherErrors, err)
}
