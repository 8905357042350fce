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


// Package search implements the similarity search pipeline.
//
// A search runs four sequential stages on the caller's goroutine:
//   - language detection of the user input
//   - embedding of the raw input
//   - cosine-distance ranking against the target language's embedding column
//   - assembly of full records in rank order
//
// The query is embedded as-is and compared against the target column, so a
// Chinese query with target english is matched against english_embedding.
// This relies on the embedding model placing both languages in one space.
package search
