package ops

import (
	"time"

	"github.com/poiesic/pairfinder/core"
	"github.com/poiesic/pairfinder/health"
)

// Metadata carries record bookkeeping.
type Metadata struct {
	CreatedAt *string `json:"created_at"`
}

// Pair is the wire form of a translation pair. Embeddings are never exposed.
type Pair struct {
	ID            core.ID  `json:"id"`
	GLNumber      *string  `json:"gl_number"`
	RowNumber     *string  `json:"row_number"`
	Version       *string  `json:"version"`
	EffectiveDate *string  `json:"effective_date"`
	EnglishText   string   `json:"english_text"`
	ChineseText   string   `json:"chinese_text"`
	Context       string   `json:"context,omitempty"`
	Score         *float64 `json:"score,omitempty"`
	Distance      *float64 `json:"distance,omitempty"`
	Metadata      Metadata `json:"metadata"`
}

// SearchResponse is the result of search_similar_pairs.
type SearchResponse struct {
	Pairs          []*Pair       `json:"pairs"`
	TotalFound     int           `json:"total_found"`
	QueryLanguage  core.Language `json:"query_language"`
	TargetLanguage core.Language `json:"target_language"`
}

// HealthResponse is the result of health_check.
type HealthResponse struct {
	Status  health.Status           `json:"status"`
	Service string                  `json:"service"`
	Details map[string]health.Check `json:"details"`
}

// ServiceInfo is the result of get_service_info.
type ServiceInfo struct {
	Service     string            `json:"service"`
	Version     string            `json:"version"`
	Description string            `json:"description"`
	Tools       map[string]string `json:"tools"`
	Store       StoreInfo         `json:"store"`
	Embedding   EmbeddingInfo     `json:"embedding"`
}

// StoreInfo describes the corpus store without credentials.
type StoreInfo struct {
	Description string `json:"description"`
}

// EmbeddingInfo describes the configured embedding model.
type EmbeddingInfo struct {
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
}

// NewPair converts a stored pair to its wire form.
func NewPair(p *core.TranslationPair) *Pair {
	out := &Pair{
		ID:            p.Id,
		GLNumber:      nullable(p.GLNumber),
		RowNumber:     nullable(p.RowNumber),
		Version:       nullable(p.Version),
		EffectiveDate: nullable(p.EffectiveDate),
		EnglishText:   p.EnglishText,
		ChineseText:   p.ChineseText,
	}
	if !p.CreatedAt.IsZero() {
		ts := p.CreatedAt.UTC().Format(time.RFC3339Nano)
		out.Metadata.CreatedAt = &ts
	}
	return out
}

// NewScoredPair converts a search hit. Context is the text in the target language.
func NewScoredPair(sp *core.ScoredPair, target core.Language) *Pair {
	out := NewPair(sp.Pair)
	out.Context = sp.Pair.Text(target)
	score, distance := sp.Score, sp.Distance
	out.Score = &score
	out.Distance = &distance
	return out
}

// NewSearchResponse converts a search result.
func NewSearchResponse(r *core.SearchResult) *SearchResponse {
	pairs := make([]*Pair, len(r.Pairs))
	for i, sp := range r.Pairs {
		pairs[i] = NewScoredPair(sp, r.TargetLanguage)
	}
	return &SearchResponse{
		Pairs:          pairs,
		TotalFound:     r.TotalFound,
		QueryLanguage:  r.QueryLanguage,
		TargetLanguage: r.TargetLanguage,
	}
}

// NewHealthResponse flattens a health report keyed by check name.
func NewHealthResponse(r *health.Report) *HealthResponse {
	details := make(map[string]health.Check, len(r.Checks))
	for _, c := range r.Checks {
		details[c.Name] = c
	}
	return &HealthResponse{Status: r.Status, Service: r.Service, Details: details}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
