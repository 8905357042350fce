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


package core

import (
	"fmt"
	"strings"
)

// ValidateTopK checks that k lies within [MinTopK, MaxTopK].
func ValidateTopK(k int) error {
	if k < MinTopK || k > MaxTopK {
		return invalidInput("top_k must be between %d and %d, got %d", MinTopK, MaxTopK, k)
	}
	return nil
}

// ValidatePairID rejects ids that can never be assigned by a store.
func ValidatePairID(id ID) error {
	if id < 1 {
		return invalidInput("pair_id must be a positive integer, got %d", id)
	}
	return nil
}

// ValidateSearchQuery validates a SearchQuery according to domain rules.
//
// Validation rules:
//   - UserInput must contain a non-whitespace character
//   - TargetLanguage must be chinese or english
//   - TopK must lie within [MinTopK, MaxTopK]
func ValidateSearchQuery(q *SearchQuery) error {
	if q == nil {
		return invalidInput("query is nil")
	}
	if strings.TrimSpace(q.UserInput) == "" {
		return invalidInput("user_input must not be empty")
	}
	if !q.TargetLanguage.Valid() {
		return invalidInput("target_language must be %q or %q, got %q", LanguageChinese, LanguageEnglish, q.TargetLanguage)
	}
	return ValidateTopK(q.TopK)
}

// ValidatePair validates a TranslationPair before it is written to a store.
//
// Validation rules:
//   - At least one of EnglishText and ChineseText must be non-empty
//   - A populated embedding must accompany the text it was computed from
//
// NOT validated:
//   - Id (assigned by the store)
//   - Embedding dimensions (checked against the configured model by the writer)
func ValidatePair(p *TranslationPair) error {
	if p == nil {
		return fmt.Errorf("%w: pair is nil", ErrInvalidPair)
	}
	if strings.TrimSpace(p.EnglishText) == "" && strings.TrimSpace(p.ChineseText) == "" {
		return fmt.Errorf("%w: english_text and chinese_text are both empty", ErrInvalidPair)
	}
	if p.EnglishEmbedding != nil && strings.TrimSpace(p.EnglishText) == "" {
		return fmt.Errorf("%w: english_embedding without english_text", ErrInvalidPair)
	}
	if p.ChineseEmbedding != nil && strings.TrimSpace(p.ChineseText) == "" {
		return fmt.Errorf("%w: chinese_embedding without chinese_text", ErrInvalidPair)
	}
	return nil
}
