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

// Package ai provides the embedding abstraction used by checkbot-rag.
//
// The Embedder interface converts chunk and query text into fixed-dimension
// vectors. Config describes an OpenAI-compatible provider, and
// RetryWithBackoff gives provider calls bounded, exponentially spaced retries.
//
// # Implementation Packages
//
//   - ai/openai: production implementation on top of go-openai
//   - ai/mock: deterministic test double
//
// Public constructors (openai.NewEmbedder) return the ai.Embedder interface.
// mock.NewMockEmbedder returns the concrete type so tests can inject behaviour
// and inspect call counts.
//
// # Usage Example
//
//	cfg := ai.NewConfig(ai.WithAPIKey(key))
//	embedder, err := openai.NewEmbedder(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	vectors, err := embedder.EmbedTexts(ctx, []string{"first", "second"})
package ai
