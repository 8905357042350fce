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


// Package pairfinder wires the corpus store, the embedding provider and the
// search pipeline into a Service exposed through the operation registry.
package pairfinder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/pairfinder/ai"
	"github.com/poiesic/pairfinder/ai/openai"
	"github.com/poiesic/pairfinder/config"
	"github.com/poiesic/pairfinder/core"
	"github.com/poiesic/pairfinder/health"
	"github.com/poiesic/pairfinder/ingestion"
	"github.com/poiesic/pairfinder/mcp"
	"github.com/poiesic/pairfinder/ops"
	"github.com/poiesic/pairfinder/search"
	"github.com/poiesic/pairfinder/storage"
	"github.com/poiesic/pairfinder/storage/badger"
	"github.com/poiesic/pairfinder/storage/postgres"
)

const (
	ServiceName        = "Search Similar Tool MCP Server"
	ServiceVersion     = "1.0.0"
	ServiceDescription = "Vector similarity search over English/Chinese translation pairs"
)

// Service owns a corpus store and an embedding provider.
// It is safe for concurrent use.
type Service struct {
	repo     storage.PairRepository
	provider ai.AIProvider
	searcher *search.Searcher
	checker  *health.Checker
	registry *ops.Registry
	logger   *slog.Logger
}

var _ ops.Backend = (*Service)(nil)

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	searchOpts []search.Option
	logger     *slog.Logger
}

// WithSearchOptions passes options to the underlying searcher.
func WithSearchOptions(opts ...search.Option) ServiceOption {
	return func(o *serviceOptions) {
		o.searchOpts = append(o.searchOpts, opts...)
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(o *serviceOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Open builds a Service from cfg. The caller must Close it.
func Open(cfg *config.Config, opts ...ServiceOption) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	repo, err := OpenStore(&cfg.Store)
	if err != nil {
		return nil, err
	}

	provider, err := openai.NewProvider(cfg.AIConfig())
	if err != nil {
		repo.Close()
		return nil, err
	}

	svc, err := NewService(repo, provider, opts...)
	if err != nil {
		provider.Close()
		repo.Close()
		return nil, err
	}
	return svc, nil
}

// OpenStore opens the corpus store selected by cfg.Driver.
func OpenStore(cfg *config.StoreConfig) (storage.PairRepository, error) {
	switch cfg.Driver {
	case config.DriverBadger:
		path, err := config.ExpandPath(cfg.Path)
		if err != nil {
			return nil, err
		}
		repo, err := badger.NewRepository(path)
		if err != nil {
			return nil, fmt.Errorf("%w: open badger store: %w", core.ErrStoreUnavailable, err)
		}
		return repo, nil
	case config.DriverPostgres:
		var opts []postgres.Option
		if cfg.Table != "" {
			opts = append(opts, postgres.WithTable(cfg.Table))
		}
		if cfg.AutoMigrate {
			opts = append(opts, postgres.WithAutoMigrate())
		}
		return postgres.Open(cfg.DSN, opts...)
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

// NewService assembles a Service around an open store and provider.
// Ownership of both passes to the Service.
func NewService(repo storage.PairRepository, provider ai.AIProvider, opts ...ServiceOption) (*Service, error) {
	options := &serviceOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}

	searchOpts := append([]search.Option{search.WithLogger(options.logger.With("component", "searcher"))}, options.searchOpts...)
	searcher, err := search.NewSearcher(repo, provider, searchOpts...)
	if err != nil {
		return nil, err
	}

	checker := health.NewChecker(ServiceName, ServiceVersion)
	checker.RegisterCheck("store", health.StoreCheck(repo, repo.Describe()))
	checker.RegisterCheck("embedding", health.EmbedderCheck(provider.Embedder(), provider.Model()))

	s := &Service{
		repo:     repo,
		provider: provider,
		searcher: searcher,
		checker:  checker,
		logger:   options.logger,
	}
	s.registry = ops.NewDefaultRegistry(s, ops.Meta{
		Name:        ServiceName,
		Version:     ServiceVersion,
		Description: ServiceDescription,
	})
	return s, nil
}

// Close releases the provider and the store.
func (s *Service) Close() error {
	if err := s.provider.Close(); err != nil {
		s.logger.Error("error closing AI provider", "err", err)
	}
	if err := s.repo.Close(); err != nil {
		s.logger.Error("error closing store", "err", err)
		return err
	}
	return nil
}

// Search runs a similarity search.
func (s *Service) Search(ctx context.Context, q *core.SearchQuery) (*core.SearchResult, error) {
	return s.searcher.Search(ctx, q)
}

// GetPair looks up a pair by id.
func (s *Service) GetPair(ctx context.Context, id core.ID) (*core.TranslationPair, error) {
	return s.searcher.GetPair(ctx, id)
}

// Health runs every registered health check.
func (s *Service) Health(ctx context.Context) *health.Report {
	return s.checker.Run(ctx)
}

// StoreDescription describes the store without credentials.
func (s *Service) StoreDescription() string {
	return s.repo.Describe()
}

// EmbeddingModel returns the configured embedding model.
func (s *Service) EmbeddingModel() string {
	return s.provider.Model()
}

// EmbeddingDimensions returns the expected vector length.
func (s *Service) EmbeddingDimensions() int {
	return s.provider.Embedder().Dimensions()
}

// Registry returns the operation dispatch table.
func (s *Service) Registry() *ops.Registry {
	return s.registry
}

// Repository returns the underlying store.
func (s *Service) Repository() storage.PairRepository {
	return s.repo
}

// NewMCPServer creates an MCP server over this service with /healthz mounted.
func (s *Service) NewMCPServer() (*mcp.Server, error) {
	return mcp.NewServer(s.registry, s, ServiceName, ServiceVersion,
		mcp.WithHealthHandler(s.checker.Handler()),
		mcp.WithLogger(s.logger.With("component", "mcp")))
}

// NewIngestionPipeline creates a corpus maintenance pipeline over this service's store.
func (s *Service) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	return ingestion.NewPipeline(s.repo, s.provider, opts...)
}
