// Copyright 2025 Poiesic Systems
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


// Package ai provides abstractions for the embedding service used by pairfinder.
//
// This package defines the interfaces the search pipeline and the ingestion
// commands depend on, so that neither is coupled to a particular embedding
// backend.
//
//   - Embedder: Generates vector embeddings from text
//   - AIProvider: Owns an Embedder and its configuration
//
// # Implementation Packages
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, openai.NewEmbedder) return
// INTERFACE types. Test utility constructors (mock.NewMockEmbedder) return
// CONCRETE types to enable test assertions and behavior injection.
//
// # Retries
//
// Nothing retries by default. Config.MaxAttempts opts into bounded retries
// with exponential backoff through RetryWithBackoff.
package ai
