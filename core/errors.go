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
	"errors"
	"fmt"
)

// Domain error kinds. Every error leaving the search pipeline wraps exactly one of these.
var (
	// ErrInvalidInput indicates the request itself is malformed; retrying will not help.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmbeddingUnavailable indicates the embedding endpoint failed, timed out or
	// returned an unusable vector.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")

	// ErrStoreUnavailable indicates the corpus store could not be read.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrNotFound indicates a point lookup for an id that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidPair indicates a TranslationPair failed validation before insertion.
	ErrInvalidPair = errors.New("invalid translation pair")
)

// Kind is the machine-readable name of an error category.
type Kind string

const (
	KindInvalidInput         Kind = "InvalidInput"
	KindEmbeddingUnavailable Kind = "EmbeddingUnavailable"
	KindStoreUnavailable     Kind = "StoreUnavailable"
	KindNotFound             Kind = "NotFound"
	KindInternal             Kind = "Internal"
)

// KindOf classifies err. Errors that wrap none of the domain sentinels are Internal.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidPair):
		return KindInvalidInput
	case errors.Is(err, ErrEmbeddingUnavailable):
		return KindEmbeddingUnavailable
	case errors.Is(err, ErrStoreUnavailable):
		return KindStoreUnavailable
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	}
	return KindInternal
}

// IsRetryable reports whether err is a transport failure the caller may retry.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindEmbeddingUnavailable, KindStoreUnavailable:
		return true
	}
	return false
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
