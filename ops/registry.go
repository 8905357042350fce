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


// Package ops is the dispatch table of externally callable operations.
//
// Each Operation pairs a name and JSON input schema with a handler taking raw
// JSON arguments. The MCP server and the CLI both route through a Registry,
// so every transport exposes the same operations with the same validation.
package ops

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/pairfinder/core"
)

// ErrUnknownOperation is returned by Call for names that are not registered.
var ErrUnknownOperation = errors.New("unknown operation")

// Handler executes an operation with raw JSON arguments.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

// Operation is one entry of the dispatch table.
type Operation struct {
	Name        string
	Description string
	InputSchema json.RawMessage
	Handler     Handler
}

// Registry holds operations in registration order.
type Registry struct {
	ops    []*Operation
	byName map[string]*Operation
	logger *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*Operation),
		logger: slog.Default().With("component", "ops"),
	}
}

// Register adds op. Registering a duplicate name is an error.
func (r *Registry) Register(op *Operation) error {
	if op == nil || op.Name == "" || op.Handler == nil {
		return errors.New("ops: operation needs a name and a handler")
	}
	if _, dup := r.byName[op.Name]; dup {
		return fmt.Errorf("ops: operation %q already registered", op.Name)
	}
	r.ops = append(r.ops, op)
	r.byName[op.Name] = op
	return nil
}

// MustRegister is Register that panics on error.
func (r *Registry) MustRegister(op *Operation) {
	if err := r.Register(op); err != nil {
		panic(err)
	}
}

// Lookup returns the named operation.
func (r *Registry) Lookup(name string) (*Operation, bool) {
	op, ok := r.byName[name]
	return op, ok
}

// Operations returns all operations in registration order.
func (r *Registry) Operations() []*Operation {
	return append([]*Operation(nil), r.ops...)
}

// Call dispatches to the named operation. Nil or empty args are treated as {}.
func (r *Registry) Call(ctx context.Context, name string, args json.RawMessage) (any, error) {
	op, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %w %q", core.ErrInvalidInput, ErrUnknownOperation, name)
	}
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	r.logger.Debug("dispatching operation", "operation", name)
	return op.Handler(ctx, args)
}

// ErrorBody is the wire form of a failed operation.
type ErrorBody struct {
	Kind      core.Kind `json:"kind"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
}

// ErrorResponse wraps ErrorBody under an "error" key.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// RenderError converts err into its wire form.
func RenderError(err error) *ErrorResponse {
	return &ErrorResponse{Error: ErrorBody{
		Kind:      core.KindOf(err),
		Message:   err.Error(),
		Retryable: core.IsRetryable(err),
	}}
}
