package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/poiesic/pairfinder/core"
	"github.com/poiesic/pairfinder/search"
)

const (
	translationPrefix = "translation://"
	searchPrefix      = "search://results/"
	textMIME          = "text/plain"
)

func (s *Server) registerResources() {
	s.mcp.AddResourceTemplate(&gomcp.ResourceTemplate{
		Name:        "translation_pair",
		Description: "A translation pair formatted as text",
		URITemplate: translationPrefix + "{pair_id}",
		MIMEType:    textMIME,
	}, s.handleTranslation)

	s.mcp.AddResourceTemplate(&gomcp.ResourceTemplate{
		Name:        "search_results",
		Description: "Top matches for a query, searched against the opposite language",
		URITemplate: searchPrefix + "{query}",
		MIMEType:    textMIME,
	}, s.handleSearch)
}

func (s *Server) handleTranslation(ctx context.Context, req *gomcp.ReadResourceRequest) (*gomcp.ReadResourceResult, error) {
	uri := req.Params.URI
	id, err := strconv.ParseInt(strings.TrimPrefix(uri, translationPrefix), 10, 64)
	if err != nil || !strings.HasPrefix(uri, translationPrefix) {
		return nil, gomcp.ResourceNotFoundError(uri)
	}

	pair, err := s.lookup.GetPair(ctx, core.ID(id))
	switch {
	case errors.Is(err, core.ErrNotFound), errors.Is(err, core.ErrInvalidInput):
		return textResource(uri, fmt.Sprintf("Translation pair with ID %d not found", id)), nil
	case err != nil:
		return nil, err
	}
	return textResource(uri, search.FormatPair(pair)), nil
}

func (s *Server) handleSearch(ctx context.Context, req *gomcp.ReadResourceRequest) (*gomcp.ReadResourceResult, error) {
	uri := req.Params.URI
	if !strings.HasPrefix(uri, searchPrefix) {
		return nil, gomcp.ResourceNotFoundError(uri)
	}
	query, err := url.PathUnescape(strings.TrimPrefix(uri, searchPrefix))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidInput, err)
	}

	detected, err := core.DetectLanguage(query)
	if err != nil {
		return textResource(uri, search.FormatResults(query, nil)), nil
	}
	result, err := s.lookup.Search(ctx, &core.SearchQuery{
		UserInput:      query,
		TargetLanguage: detected.Opposite(),
		TopK:           core.DefaultTopK,
	})
	if err != nil {
		return nil, err
	}
	return textResource(uri, search.FormatResults(query, result)), nil
}

func textResource(uri, text string) *gomcp.ReadResourceResult {
	return &gomcp.ReadResourceResult{
		Contents: []*gomcp.ResourceContents{{URI: uri, MIMEType: textMIME, Text: text}},
	}
}
