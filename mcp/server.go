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


// Package mcp exposes the operation registry and the pair resources over the
// Model Context Protocol.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/poiesic/pairfinder/core"
	"github.com/poiesic/pairfinder/ops"
)

// Transport names accepted by Serve.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Lookup is what the resource handlers read from.
type Lookup interface {
	Search(ctx context.Context, q *core.SearchQuery) (*core.SearchResult, error)
	GetPair(ctx context.Context, id core.ID) (*core.TranslationPair, error)
}

// Server wraps the MCP server around an operation registry.
type Server struct {
	mcp      *gomcp.Server
	registry *ops.Registry
	lookup   Lookup
	health   http.Handler
	logger   *slog.Logger
}

// ServerOption configures optional Server dependencies.
type ServerOption func(*Server)

// WithHealthHandler mounts h at /healthz when serving over HTTP.
func WithHealthHandler(h http.Handler) ServerOption {
	return func(s *Server) {
		s.health = h
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates an MCP server exposing every operation in registry as a
// tool and the translation and search resources backed by lookup.
func NewServer(registry *ops.Registry, lookup Lookup, name, version string, opts ...ServerOption) (*Server, error) {
	if registry == nil {
		return nil, fmt.Errorf("operation registry is required")
	}
	if lookup == nil {
		return nil, fmt.Errorf("lookup is required")
	}

	s := &Server{
		mcp: gomcp.NewServer(
			&gomcp.Implementation{
				Name:    name,
				Version: version,
			},
			nil,
		),
		registry: registry,
		lookup:   lookup,
		logger:   slog.Default().With("component", "mcp"),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Serve runs the server on the named transport until ctx is cancelled.
// addr is only used by the HTTP transport.
func (s *Server) Serve(ctx context.Context, transport, addr string) error {
	switch transport {
	case "", TransportStdio:
		s.logger.Info("serving over stdio")
		return s.mcp.Run(ctx, &gomcp.StdioTransport{})
	case TransportHTTP:
		return s.serveHTTP(ctx, addr)
	}
	return fmt.Errorf("%w: unknown transport %q", core.ErrInvalidInput, transport)
}

// Handler returns the HTTP handler serving streamable MCP at / and, when
// configured, the health report at /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	if s.health != nil {
		mux.Handle("/healthz", s.health)
	}
	mux.Handle("/", gomcp.NewStreamableHTTPHandler(func(*http.Request) *gomcp.Server {
		return s.mcp
	}, nil))
	return mux
}

func (s *Server) serveHTTP(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("serving over http", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
