package ops

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/poiesic/pairfinder/core"
	"github.com/poiesic/pairfinder/health"
)

// Operation names.
const (
	OpSearchSimilarPairs = "search_similar_pairs"
	OpGetTranslationPair = "get_translation_pair"
	OpHealthCheck        = "health_check"
	OpGetServiceInfo     = "get_service_info"
)

// Backend is what the operations need from the service.
type Backend interface {
	Search(ctx context.Context, q *core.SearchQuery) (*core.SearchResult, error)
	GetPair(ctx context.Context, id core.ID) (*core.TranslationPair, error)
	Health(ctx context.Context) *health.Report
	StoreDescription() string
	EmbeddingModel() string
	EmbeddingDimensions() int
}

// Meta identifies the service in get_service_info.
type Meta struct {
	Name        string
	Version     string
	Description string
}

// SearchArgs are the arguments of search_similar_pairs.
type SearchArgs struct {
	UserInput      string `json:"user_input"`
	TargetLanguage string `json:"target_language"`
	TopK           *int   `json:"top_k,omitempty"`
}

// GetPairArgs are the arguments of get_translation_pair.
type GetPairArgs struct {
	PairID *int64 `json:"pair_id"`
}

const searchSchema = `{
  "type": "object",
  "properties": {
    "user_input": {"type": "string", "description": "The text to search for similar translations"},
    "target_language": {"type": "string", "enum": ["chinese", "english"], "description": "Language column to match against"},
    "top_k": {"type": "integer", "minimum": 1, "maximum": 20, "default": 5, "description": "Number of similar pairs to retrieve"}
  },
  "required": ["user_input", "target_language"]
}`

const getPairSchema = `{
  "type": "object",
  "properties": {
    "pair_id": {"type": "integer", "minimum": 1, "description": "The ID of the translation pair to retrieve"}
  },
  "required": ["pair_id"]
}`

const emptySchema = `{"type": "object", "properties": {}}`

// NewDefaultRegistry registers the four service operations against b.
func NewDefaultRegistry(b Backend, meta Meta) *Registry {
	r := NewRegistry()
	r.MustRegister(&Operation{
		Name:        OpSearchSimilarPairs,
		Description: "Finds the top-k closest translation pairs based on embedding similarity",
		InputSchema: json.RawMessage(searchSchema),
		Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
			q, err := ParseSearchArgs(args)
			if err != nil {
				return nil, err
			}
			result, err := b.Search(ctx, q)
			if err != nil {
				return nil, err
			}
			return NewSearchResponse(result), nil
		},
	})
	r.MustRegister(&Operation{
		Name:        OpGetTranslationPair,
		Description: "Retrieves a specific translation pair by ID",
		InputSchema: json.RawMessage(getPairSchema),
		Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
			id, err := ParseGetPairArgs(args)
			if err != nil {
				return nil, err
			}
			pair, err := b.GetPair(ctx, id)
			if err != nil {
				return nil, err
			}
			return NewPair(pair), nil
		},
	})
	r.MustRegister(&Operation{
		Name:        OpHealthCheck,
		Description: "Health check for the corpus store and the embedding endpoint",
		InputSchema: json.RawMessage(emptySchema),
		Handler: func(ctx context.Context, _ json.RawMessage) (any, error) {
			return NewHealthResponse(b.Health(ctx)), nil
		},
	})
	r.MustRegister(&Operation{
		Name:        OpGetServiceInfo,
		Description: "Returns information about the service and available tools",
		InputSchema: json.RawMessage(emptySchema),
		Handler: func(context.Context, json.RawMessage) (any, error) {
			tools := make(map[string]string)
			for _, op := range r.Operations() {
				tools[op.Name] = op.Description
			}
			return &ServiceInfo{
				Service:     meta.Name,
				Version:     meta.Version,
				Description: meta.Description,
				Tools:       tools,
				Store:       StoreInfo{Description: b.StoreDescription()},
				Embedding:   EmbeddingInfo{Model: b.EmbeddingModel(), Dimensions: b.EmbeddingDimensions()},
			}, nil
		},
	})
	return r
}

// ParseSearchArgs decodes and validates search_similar_pairs arguments.
// A missing top_k defaults to core.DefaultTopK; out of range values are rejected.
func ParseSearchArgs(raw json.RawMessage) (*core.SearchQuery, error) {
	var args SearchArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("%w: malformed arguments: %w", core.ErrInvalidInput, err)
	}
	lang, err := core.ParseLanguage(args.TargetLanguage)
	if err != nil {
		return nil, err
	}
	topK := core.DefaultTopK
	if args.TopK != nil {
		topK = *args.TopK
	}
	q := &core.SearchQuery{UserInput: args.UserInput, TargetLanguage: lang, TopK: topK}
	if err := core.ValidateSearchQuery(q); err != nil {
		return nil, err
	}
	return q, nil
}

// ParseGetPairArgs decodes and validates get_translation_pair arguments.
func ParseGetPairArgs(raw json.RawMessage) (core.ID, error) {
	var args GetPairArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return 0, fmt.Errorf("%w: malformed arguments: %w", core.ErrInvalidInput, err)
	}
	if args.PairID == nil {
		return 0, fmt.Errorf("%w: pair_id is required", core.ErrInvalidInput)
	}
	id := core.ID(*args.PairID)
	if err := core.ValidatePairID(id); err != nil {
		return 0, err
	}
	return id, nil
}
