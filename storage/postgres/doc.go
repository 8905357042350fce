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


// Package postgres implements the pair repository on PostgreSQL with the
// pgvector extension, using the trans_agent table layout.
//
// Ranking is pushed down to the database with the cosine distance operator
// (<=>). Rows whose selected embedding column is NULL are filtered out and
// ties are broken by ascending id.
package postgres
