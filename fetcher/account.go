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
	"fmt"

	"github.com/fatih/color"

	"github.com/driftwatch/driftwatch/asserter"
	"github.com/driftwatch/driftwatch/types"
)

// AccountBalance returns the validated response
// from the AccountBalance method. If block is populated,
// a historical balance query is performed.
func (f *Fetcher) AccountBalance(
	ctx context.Context,
	network *types.NetworkIdentifier,
	account *types.AccountIdentifier,
	block *types.PartialBlockIdentifier,
) (*types.BlockIdentifier, []*types.Amount, error) {
	response, clientErr, err := f.client.AccountBalance(ctx,
		&types.AccountBalanceRequest{
			NetworkIdentifier: network,
			AccountIdentifier: account,
			BlockIdentifier:   block,
		},
	)
	if err != nil {
		return nil, nil, &requestError{clientErr: clientErr, err: err}
	}

	if err := asserter.AccountBalanceResponse(block, response); err != nil {
		return nil, nil, fmt.Errorf(
			"%w: %s",
			ErrAssertionFailed,
			err.Error(),
		)
	}

	return response.BlockIdentifier, response.Balances, nil
}

// requestError pairs a transport error with the structured
// error (if any) returned by the node, so the retry loop can
// consult the node's retriable classification.
type requestError struct {
	clientErr *types.Error
	err       error
}

func (e *requestError) Error() string {
	if e.clientErr != nil {
		return fmt.Sprintf("%s: %s", e.err.Error(), types.PrintStruct(e.clientErr))
	}

	return e.err.Error()
}

func (e *requestError) Unwrap() error {
	return e.err
}

// AccountBalanceRetry retrieves the validated AccountBalance
// with a specified number of retries and max elapsed time.
func (f *Fetcher) AccountBalanceRetry(
	ctx context.Context,
	network *types.NetworkIdentifier,
	account *types.AccountIdentifier,
	block *types.PartialBlockIdentifier,
) (*types.BlockIdentifier, []*types.Amount, error) {
	backoffRetries := backoffRetries(
		f.retryElapsedTime,
		f.maxRetries,
	)

	for ctx.Err() == nil {
		responseBlock, balances, err := f.AccountBalance(
			ctx,
			network,
			account,
			block,
		)
		if err == nil {
			return responseBlock, balances, nil
		}

		// Assertion failures are never retriable: the node is
		// responding, just incorrectly.
		if Err(err) {
			return nil, nil, err
		}

		var reqErr *requestError
		var clientErr *types.Error
		if errors.As(err, &reqErr) {
			clientErr = reqErr.clientErr
		}

		if !f.retriable(clientErr, err) {
			color.Red("%s: %s", ErrRequestFailed.Error(), err.Error())
			return nil, nil, fmt.Errorf("%w: %s", ErrRequestFailed, err.Error())
		}

		if !tryAgain(ctx, fmt.Sprintf("account %s", types.AccountString(account)), backoffRetries, err) {
			break
		}
	}

	if ctx.Err() != nil {
		return nil, nil, ctx.Err()
	}

	return nil, nil, fmt.Errorf(
		"%w: unable to fetch balance for account %s",
		ErrExhaustedRetries,
		types.AccountString(account),
	)
}
