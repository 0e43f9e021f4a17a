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

// Package openai implements ai.Embedder against OpenAI-compatible embedding
// APIs (OpenAI, OpenRouter, Scaleway and similar) using go-openai.
//
// Inputs are sent in sub-batches of Config.BatchSize. Each request is retried
// with exponential backoff, and the returned vectors are re-ordered by the
// index the provider tags them with. A reduced output size is requested
// through the dimensions parameter unless it equals the model's native size.
//
// # Usage
//
//	cfg := ai.NewConfig(
//	    ai.WithBaseURL("https://api.scaleway.ai/v1"),
//	    ai.WithAPIKey(key),
//	)
//	embedder, err := openai.NewEmbedder(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	vector, err := embedder.EmbedText(ctx, "Der Mond ist aus Käse")
package openai
