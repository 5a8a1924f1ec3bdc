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

package storage

import (
	"fmt"

	"github.com/DataDog/zstd"
	msgpack "github.com/vmihailenco/msgpack/v5"
)

// Encoder handles the serialization of values
// written to and read from the database. Values are
// msgpack-encoded and then zstd-compressed to keep the
// on-disk footprint of long-running watchers small.
type Encoder struct{}

// NewEncoder returns a new *Encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Encode serializes and compresses an object.
func (e *Encoder) Encode(object interface{}) ([]byte, error) {
	encoded, err := msgpack.Marshal(object)
	if err != nil {
		return nil, fmt.Errorf("unable to encode object: %w", err)
	}

	compressed, err := zstd.Compress(nil, encoded)
	if err != nil {
		return nil, fmt.Errorf("unable to compress object: %w", err)
	}

	return compressed, nil
}

// Decode decompresses and deserializes an object.
func (e *Encoder) Decode(data []byte, object interface{}) error {
	decompressed, err := zstd.Decompress(nil, data)
	if err != nil {
		return fmt.Errorf("unable to decompress object: %w", err)
	}

	if err := msgpack.Unmarshal(decompressed, object); err != nil {
		return fmt.Errorf("unable to decode object: %w", err)
	}

	return nil
}
