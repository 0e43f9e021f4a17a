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

package search

import "errors"

var (
	// ErrCandidateSearcherRequired is returned when a candidate searcher is not provided.
	ErrCandidateSearcherRequired = errors.New("candidate searcher required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrEmptyQuery is returned when the query has no non-space characters.
	ErrEmptyQuery = errors.New("query cannot be empty")

	// ErrLanguageNotIndexed is returned when a request language maps to a
	// text-search configuration other than the one chunks are indexed with.
	ErrLanguageNotIndexed = errors.New("language not indexed")

	// ErrInvalidChunkType is returned for a chunk type filter other than overview or fact_detail.
	ErrInvalidChunkType = errors.New("invalid chunk type")
)
