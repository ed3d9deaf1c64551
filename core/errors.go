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

// Failure kinds, one per handling scope.
var (
	// ErrConfiguration indicates missing or invalid startup configuration. Fatal.
	ErrConfiguration = errors.New("configuration error")

	// ErrFeed indicates a store directory or product feed could not be read.
	ErrFeed = errors.New("feed failure")

	// ErrEmbedding indicates the embedding service did not return a usable vector.
	ErrEmbedding = errors.New("embedding failure")

	// ErrPersistence indicates the knowledge base rejected a read, write or commit.
	ErrPersistence = errors.New("persistence failure")

	// ErrCycle indicates a sync cycle could not complete.
	ErrCycle = errors.New("cycle failure")
)

// Domain validation errors
var (
	// ErrInvalidStore indicates a Store failed validation.
	ErrInvalidStore = errors.New("invalid store")

	// ErrInvalidProduct indicates a Product failed validation.
	ErrInvalidProduct = errors.New("invalid product")

	// ErrEmptyProductID indicates a product without identity.
	ErrEmptyProductID = errors.New("product id cannot be empty")
)

// FailureKind classifies a Failure.
type FailureKind int

const (
	KindConfiguration FailureKind = iota + 1
	KindFeed
	KindEmbedding
	KindPersistence
	KindCycle
)

func (k FailureKind) sentinel() error {
	switch k {
	case KindConfiguration:
		return ErrConfiguration
	case KindFeed:
		return ErrFeed
	case KindEmbedding:
		return ErrEmbedding
	case KindPersistence:
		return ErrPersistence
	case KindCycle:
		return ErrCycle
	default:
		return nil
	}
}

func (k FailureKind) String() string {
	if s := k.sentinel(); s != nil {
		return s.Error()
	}
	return fmt.Sprintf("FailureKind(%d)", int(k))
}

// Failure is a classified error carrying the unit of work it belongs to.
// errors.Is(f, ErrFeed) and friends match on Kind.
type Failure struct {
	Kind  FailureKind
	Scope string // store, feed or product identity; may be empty
	Err   error
}

// NewFailure wraps err as a Failure of the given kind.
func NewFailure(kind FailureKind, scope string, err error) *Failure {
	return &Failure{Kind: kind, Scope: scope, Err: err}
}

func (f *Failure) Error() string {
	msg := f.Kind.String()
	if f.Scope != "" {
		msg += " [" + f.Scope + "]"
	}
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Is matches the sentinel of the failure kind.
func (f *Failure) Is(target error) bool {
	s := f.Kind.sentinel()
	return s != nil && s == target
}

// KindOf returns the kind of the first Failure in err's chain, or 0.
func KindOf(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return 0
}
