// Copyright 2025 Faktenforum
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storage

import "errors"

var (
	// ErrNotFound indicates that the requested claim, chunk or job does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrStorageClosed is returned by operations on a closed store.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrSerializationFailed wraps encode and decode failures of stored values.
	ErrSerializationFailed = errors.New("serialization failed")

	// ErrTruncatedData indicates a key or value shorter than its encoding requires.
	ErrTruncatedData = errors.New("truncated data")

	// ErrDimensionMismatch indicates a vector whose length differs from the
	// store's configured dimensionality.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrTextSearchMismatch indicates a lexical index built with a different
	// text-search configuration than the configured one.
	ErrTextSearchMismatch = errors.New("text search config mismatch")

	// ErrJobFinished is returned by a job write that would move a terminal
	// job to another status.
	ErrJobFinished = errors.New("job already finished")
)
