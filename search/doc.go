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

// Package search provides hybrid vector and full-text search over claim chunks.
//
// The Searcher fetches two candidate lists from the store, one by cosine
// similarity to the query embedding and one by full-text relevance, both
// restricted by the same filters and over-fetched by a configurable factor.
// The lists are combined with Reciprocal Rank Fusion:
//
//	score = weightVec/(k + vecRank) + weightFts/(k + ftsRank)
//
// where a list the chunk is absent from contributes nothing. The fused
// ranking is cut to the requested limit, hydrated, and grouped by claim. A
// claim scores as its best chunk.
package search
