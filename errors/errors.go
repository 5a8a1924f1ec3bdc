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

package errors

import "errors"

// FindError returns whether the given error is equal to
// one of the provided errors according to errors.Is. It
// backs the Err helper exposed by each package so callers
// can check error package membership without enumerating
// every sentinel themselves.
func FindError(errorList []error, err error) bool {
	if err == nil {
		return false
	}

	for _, e := range errorList {
		if errors.Is(err, e) {
			return true
		}
	}

	return false
}
