package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/pairfinder/ai"
	"github.com/poiesic/pairfinder/core"
	"github.com/poiesic/pairfinder/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of search spans.
const TracerName = "github.com/poiesic/pairfinder/search"

// Searcher runs the similarity search pipeline.
// It holds no per-request state and is safe for concurrent use.
type Searcher struct {
	ranker    *Ranker
	assembler *Assembler
	embedder  ai.Embedder
	monitor   SearchMonitor
	tracer    trace.Tracer
	logger    *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithMonitor installs a monitor used by every Search call.
func WithMonitor(monitor SearchMonitor) Option {
	return func(s *Searcher) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		s.monitor = monitor
		return nil
	}
}

// WithTracer overrides the tracer obtained from the global provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Searcher) error {
		s.tracer = tracer
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(reader storage.PairReader, provider ai.AIProvider, opts ...Option) (*Searcher, error) {
	if reader == nil {
		return nil, ErrRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	ranker, err := NewRanker(reader)
	if err != nil {
		return nil, err
	}
	assembler, err := NewAssembler(reader)
	if err != nil {
		return nil, err
	}

	s := &Searcher{
		ranker:    ranker,
		assembler: assembler,
		embedder:  provider.Embedder(),
		monitor:   &noopMonitor{},
		tracer:    otel.Tracer(TracerName),
		logger:    slog.Default().With("component", "searcher"),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Search finds the pairs most similar to q.UserInput in q.TargetLanguage's
// embedding column.
func (s *Searcher) Search(ctx context.Context, q *core.SearchQuery) (*core.SearchResult, error) {
	return s.SearchWithMonitor(ctx, q, s.monitor)
}

// SearchWithMonitor is Search with a per-call monitor.
func (s *Searcher) SearchWithMonitor(ctx context.Context, q *core.SearchQuery, monitor SearchMonitor) (result *core.SearchResult, err error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	logger := s.logger.With("request_id", uuid.NewString())
	started := time.Now()

	ctx, span := s.tracer.Start(ctx, "search.similar_pairs", trace.WithSpanKind(trace.SpanKindInternal))
	defer func() {
		endSpan(span, err)
		if err != nil {
			logger.Warn("search failed", "kind", core.KindOf(err), "err", err)
		}
	}()

	if err = core.ValidateSearchQuery(q); err != nil {
		return nil, err
	}
	monitor.Start(q)
	span.SetAttributes(
		attribute.String("search.target_language", string(q.TargetLanguage)),
		attribute.Int("search.top_k", q.TopK),
	)

	queryLanguage, err := s.detect(ctx, q.UserInput)
	if err != nil {
		return nil, err
	}
	monitor.AfterDetect(queryLanguage)

	vector, err := s.embed(ctx, q.UserInput)
	if err != nil {
		return nil, err
	}
	monitor.AfterEmbed(len(vector))

	column := q.TargetLanguage.Column()
	ranked, err := s.rank(ctx, vector, column, q.TopK)
	if err != nil {
		return nil, err
	}
	monitor.AfterRank(ranked)

	pairs, err := s.assemble(ctx, ranked, q.TopK)
	if err != nil {
		return nil, err
	}

	result = &core.SearchResult{
		Pairs:          pairs,
		TotalFound:     len(pairs),
		QueryLanguage:  queryLanguage,
		TargetLanguage: q.TargetLanguage,
	}
	span.SetAttributes(
		attribute.String("search.query_language", string(queryLanguage)),
		attribute.Int("search.hits", result.TotalFound),
	)
	monitor.Finish(result)

	logger.Debug("search complete",
		"query_language", queryLanguage,
		"target_language", q.TargetLanguage,
		"column", column,
		"top_k", q.TopK,
		"hits", result.TotalFound,
		"elapsed", time.Since(started))
	return result, nil
}

// GetPair looks up a single pair by id.
func (s *Searcher) GetPair(ctx context.Context, id core.ID) (pair *core.TranslationPair, err error) {
	ctx, span := s.tracer.Start(ctx, "search.get_pair", trace.WithAttributes(attribute.Int64("pair.id", int64(id))))
	defer func() { endSpan(span, err) }()

	return s.assembler.GetByID(ctx, id)
}

func (s *Searcher) detect(ctx context.Context, text string) (core.Language, error) {
	_, span := s.tracer.Start(ctx, "search.detect")
	lang, err := core.DetectLanguage(text)
	endSpan(span, err)
	return lang, err
}

func (s *Searcher) embed(ctx context.Context, text string) ([]float32, error) {
	ctx, span := s.tracer.Start(ctx, "search.embed", trace.WithSpanKind(trace.SpanKindClient))
	vector, err := s.embedder.EmbedText(ctx, text)
	if err == nil {
		if err = core.CheckVector(vector); err != nil {
			err = fmt.Errorf("%w: %w", core.ErrEmbeddingUnavailable, err)
			vector = nil
		}
	}
	if err == nil {
		span.SetAttributes(attribute.Int("embedding.dimensions", len(vector)))
	}
	endSpan(span, err)
	return vector, err
}

func (s *Searcher) rank(ctx context.Context, vector []float32, column core.Column, topK int) ([]core.RankedID, error) {
	ctx, span := s.tracer.Start(ctx, "search.rank", trace.WithAttributes(attribute.String("search.column", string(column))))
	ranked, err := s.ranker.Rank(ctx, vector, column, topK)
	if err == nil {
		span.SetAttributes(attribute.Int("search.ranked", len(ranked)))
	}
	endSpan(span, err)
	return ranked, err
}

func (s *Searcher) assemble(ctx context.Context, ranked []core.RankedID, topK int) ([]*core.ScoredPair, error) {
	ctx, span := s.tracer.Start(ctx, "search.assemble")
	pairs, err := s.assembler.Assemble(ctx, ranked, topK)
	endSpan(span, err)
	return pairs, err
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("error.kind", string(core.KindOf(err))))
	}
	span.End()
}
