package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/pairfinder/core"
	"github.com/poiesic/pairfinder/health"
	"github.com/poiesic/pairfinder/ops"
)

type fakeBackend struct {
	pairs     map[core.ID]*core.TranslationPair
	lastQuery *core.SearchQuery
	searchErr error
}

func (f *fakeBackend) Search(_ context.Context, q *core.SearchQuery) (*core.SearchResult, error) {
	f.lastQuery = q
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	result := &core.SearchResult{Pairs: []*core.ScoredPair{}, TargetLanguage: q.TargetLanguage}
	if p, ok := f.pairs[1]; ok {
		result.Pairs = append(result.Pairs, &core.ScoredPair{Pair: p, Score: 0.9, Distance: 0.1})
	}
	result.TotalFound = len(result.Pairs)
	result.QueryLanguage, _ = core.DetectLanguage(q.UserInput)
	return result, nil
}

func (f *fakeBackend) GetPair(_ context.Context, id core.ID) (*core.TranslationPair, error) {
	if err := core.ValidatePairID(id); err != nil {
		return nil, err
	}
	p, ok := f.pairs[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return p, nil
}

func (f *fakeBackend) Health(context.Context) *health.Report {
	return &health.Report{Status: health.StatusHealthy, Service: "pairfinder"}
}

func (f *fakeBackend) StoreDescription() string { return "badger (in-memory)" }
func (f *fakeBackend) EmbeddingModel() string   { return "mock" }
func (f *fakeBackend) EmbeddingDimensions() int { return 8 }

func makeServer(t *testing.T, opts ...ServerOption) (*Server, *fakeBackend) {
	t.Helper()
	backend := &fakeBackend{pairs: map[core.ID]*core.TranslationPair{
		1: {Id: 1, GLNumber: "1001", EnglishText: "Cash on hand", ChineseText: "库存现金"},
	}}
	registry := ops.NewDefaultRegistry(backend, ops.Meta{Name: "pairfinder", Version: "1.0.0"})
	s, err := NewServer(registry, backend, "pairfinder", "1.0.0", opts...)
	require.NoError(t, err)
	return s, backend
}

func callTool(t *testing.T, s *Server, name string, args any) *gomcp.CallToolResult {
	t.Helper()
	argsJSON, err := json.Marshal(args)
	require.NoError(t, err)

	req := &gomcp.CallToolRequest{
		Params: &gomcp.CallToolParamsRaw{
			Name:      name,
			Arguments: argsJSON,
		},
	}
	result, err := s.toolHandler(name)(context.Background(), req)
	require.NoError(t, err, "operation failures are tool results, not protocol errors")
	require.Len(t, result.Content, 1)
	return result
}

func resultText(t *testing.T, r *gomcp.CallToolResult) string {
	t.Helper()
	text, ok := r.Content[0].(*gomcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestNewServer_RequiresDependencies(t *testing.T) {
	_, err := NewServer(nil, &fakeBackend{}, "x", "1")
	assert.Error(t, err)
	_, err = NewServer(ops.NewRegistry(), nil, "x", "1")
	assert.Error(t, err)
}

func TestSearchTool(t *testing.T) {
	s, backend := makeServer(t)

	result := callTool(t, s, ops.OpSearchSimilarPairs, map[string]any{
		"user_input":      "cash",
		"target_language": "chinese",
		"top_k":           3,
	})
	assert.False(t, result.IsError)
	assert.Equal(t, 3, backend.lastQuery.TopK)

	var resp ops.SearchResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &resp))
	require.Len(t, resp.Pairs, 1)
	assert.Equal(t, "库存现金", resp.Pairs[0].Context)
	assert.Equal(t, core.LanguageEnglish, resp.QueryLanguage)
}

func TestSearchTool_Errors(t *testing.T) {
	s, backend := makeServer(t)

	result := callTool(t, s, ops.OpSearchSimilarPairs, map[string]any{
		"user_input":      "cash",
		"target_language": "english",
		"top_k":           50,
	})
	assert.True(t, result.IsError)
	var body ops.ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &body))
	assert.Equal(t, core.KindInvalidInput, body.Error.Kind)
	assert.False(t, body.Error.Retryable)

	backend.searchErr = errors.Join(core.ErrStoreUnavailable, errors.New("connection reset"))
	result = callTool(t, s, ops.OpSearchSimilarPairs, map[string]any{
		"user_input":      "cash",
		"target_language": "english",
	})
	assert.True(t, result.IsError)
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &body))
	assert.Equal(t, core.KindStoreUnavailable, body.Error.Kind)
	assert.True(t, body.Error.Retryable)
}

func TestGetTranslationPairTool(t *testing.T) {
	s, _ := makeServer(t)

	result := callTool(t, s, ops.OpGetTranslationPair, map[string]any{"pair_id": 1})
	assert.False(t, result.IsError)
	assert.Contains(t, resultText(t, result), `"gl_number": "1001"`)

	result = callTool(t, s, ops.OpGetTranslationPair, map[string]any{"pair_id": 2})
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), `"kind": "NotFound"`)
}

func TestServiceInfoTool(t *testing.T) {
	s, _ := makeServer(t)

	result := callTool(t, s, ops.OpGetServiceInfo, map[string]any{})
	var info ops.ServiceInfo
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &info))
	assert.Len(t, info.Tools, 4)
	assert.Equal(t, "badger (in-memory)", info.Store.Description)
}

func readResource(t *testing.T, handler gomcp.ResourceHandler, uri string) string {
	t.Helper()
	res, err := handler(context.Background(), &gomcp.ReadResourceRequest{
		Params: &gomcp.ReadResourceParams{URI: uri},
	})
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	assert.Equal(t, uri, res.Contents[0].URI)
	return res.Contents[0].Text
}

func TestTranslationResource(t *testing.T) {
	s, _ := makeServer(t)

	text := readResource(t, s.handleTranslation, "translation://1")
	assert.Contains(t, text, "Translation Pair #1:")
	assert.Contains(t, text, "English Text: Cash on hand")
	assert.Contains(t, text, "Version: N/A")

	assert.Equal(t, "Translation pair with ID 7 not found", readResource(t, s.handleTranslation, "translation://7"))

	_, err := s.handleTranslation(context.Background(), &gomcp.ReadResourceRequest{
		Params: &gomcp.ReadResourceParams{URI: "translation://abc"},
	})
	assert.Error(t, err)
}

func TestSearchResource(t *testing.T) {
	s, backend := makeServer(t)

	text := readResource(t, s.handleSearch, "search://results/cash%20on%20hand")
	assert.Equal(t, "cash on hand", backend.lastQuery.UserInput)
	assert.Equal(t, core.LanguageChinese, backend.lastQuery.TargetLanguage, "english queries search chinese")
	assert.Equal(t, core.DefaultTopK, backend.lastQuery.TopK)
	assert.Contains(t, text, "Search Results for: 'cash on hand'")
	assert.Contains(t, text, "1. Translation Pair #1")

	readResource(t, s.handleSearch, "search://results/现金")
	assert.Equal(t, core.LanguageEnglish, backend.lastQuery.TargetLanguage, "chinese queries search english")

	delete(backend.pairs, 1)
	assert.Equal(t, "No search results found for: 'cash'", readResource(t, s.handleSearch, "search://results/cash"))
}

func TestHTTPHandler_Healthz(t *testing.T) {
	checker := health.NewChecker("pairfinder", "1.0.0")
	checker.RegisterCheck("store", func(context.Context) health.Check {
		return health.Check{Status: health.StatusUnhealthy, Message: "down"}
	})
	s, _ := makeServer(t, WithHealthHandler(checker.Handler()))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"unhealthy"`)
}

func TestServe_UnknownTransport(t *testing.T) {
	s, _ := makeServer(t)
	err := s.Serve(context.Background(), "carrier-pigeon", "")
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestServe_HTTPShutdown(t *testing.T) {
	s, _ := makeServer(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, TransportHTTP, "127.0.0.1:0") }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
