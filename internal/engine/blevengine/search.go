package blevengine

import (
	"context"
	"fmt"
	"slices"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"
	htmlformat "github.com/blevesearch/bleve/v2/search/highlight/format/html"
	simplefragmenter "github.com/blevesearch/bleve/v2/search/highlight/fragmenter/simple"
	simplehighlighter "github.com/blevesearch/bleve/v2/search/highlight/highlighter/simple"
	"github.com/blevesearch/bleve/v2/search/query"
	index "github.com/blevesearch/bleve_index_api"
	"github.com/sha1n/yari-search/internal/engine"
)

// Search runs a full-text request across every copy of the index.
func (e *Engine) Search(ctx context.Context, name string, req *engine.SearchRequest) (*engine.SearchResponse, error) {
	idx, indexes, err := e.reader(name)
	if err != nil {
		return nil, err
	}

	searchReq, err := buildRequest(req)
	if err != nil {
		return nil, err
	}

	results, err := idx.SearchInContext(ctx, searchReq)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	resp := &engine.SearchResponse{
		Total: results.Total,
		Took:  results.Took,
		Hits:  make([]engine.Hit, 0, len(results.Hits)),
	}

	var highlighter *simplehighlighter.Highlighter
	if req.Highlight != nil {
		highlighter = newHighlighter(req.Highlight)
	}

	for _, match := range results.Hits {
		hit := engine.Hit{
			ID:     match.ID,
			Score:  match.Score,
			Fields: match.Fields,
		}
		if hit.Fields == nil {
			hit.Fields = map[string]any{}
		}
		if highlighter != nil {
			hit.Fragments = highlight(highlighter, indexes, match, req.Highlight)
		}
		resp.Hits = append(resp.Hits, hit)
	}

	return resp, nil
}

// buildRequest translates an engine request into a Bleve request.
func buildRequest(req *engine.SearchRequest) (*bleve.SearchRequest, error) {
	q, err := buildQuery(req)
	if err != nil {
		return nil, err
	}

	searchReq := bleve.NewSearchRequestOptions(q, req.Size, req.From, false)
	searchReq.Fields = returnedFields(req.Source)

	if len(req.Sort) > 0 {
		order := make([]string, 0, len(req.Sort))
		for _, s := range req.Sort {
			if s.Desc {
				order = append(order, "-"+s.Field)
			} else {
				order = append(order, s.Field)
			}
		}
		searchReq.SortBy(order)
	}

	if req.Highlight != nil {
		// Locations drive the highlighter
		searchReq.IncludeLocations = true
	}

	return searchReq, nil
}

// buildQuery matches the text on any of the fields and applies exact filters.
func buildQuery(req *engine.SearchRequest) (query.Query, error) {
	var searchQuery query.Query
	switch {
	case len(req.IDs) > 0:
		searchQuery = bleve.NewDocIDQuery(req.IDs)
	case req.Query == "" || len(req.Fields) == 0:
		searchQuery = bleve.NewMatchNoneQuery()
	default:
		matches := make([]query.Query, 0, len(req.Fields))
		for _, field := range req.Fields {
			match := bleve.NewMatchQuery(req.Query)
			match.SetField(field)
			matches = append(matches, match)
		}
		searchQuery = bleve.NewDisjunctionQuery(matches...)
	}

	if len(req.Filters) == 0 {
		return searchQuery, nil
	}

	must := []query.Query{searchQuery}
	for _, filter := range req.Filters {
		switch v := filter.Value.(type) {
		case string:
			termQuery := bleve.NewTermQuery(v)
			termQuery.SetField(filter.Field)
			must = append(must, termQuery)
		case bool:
			boolQuery := bleve.NewBoolFieldQuery(v)
			boolQuery.SetField(filter.Field)
			must = append(must, boolQuery)
		default:
			return nil, fmt.Errorf("unsupported filter value %T for field %s", filter.Value, filter.Field)
		}
	}

	return bleve.NewConjunctionQuery(must...), nil
}

// returnedFields applies source includes and excludes to the stored fields.
func returnedFields(source engine.Source) []string {
	fields := source.Includes
	if len(fields) == 0 {
		fields = storedFields
	}

	result := make([]string, 0, len(fields))
	for _, field := range fields {
		if !slices.Contains(source.Excludes, field) {
			result = append(result, field)
		}
	}
	return result
}

func newHighlighter(h *engine.Highlight) *simplehighlighter.Highlighter {
	return simplehighlighter.NewHighlighter(
		simplefragmenter.NewFragmenter(h.FragmentSize),
		htmlformat.NewFragmentFormatter(h.PreTag, h.PostTag),
		simplehighlighter.DefaultSeparator,
	)
}

// highlight returns up to h.Fragments excerpts for every highlighted field
// that has term locations in the match.
func highlight(highlighter *simplehighlighter.Highlighter, indexes []bleve.Index, match *search.DocumentMatch, h *engine.Highlight) map[string][]string {
	var doc index.Document
	for _, idx := range indexes {
		if d, err := idx.Document(match.ID); err == nil && d != nil {
			doc = d
			break
		}
	}
	if doc == nil {
		return nil
	}

	var fragments map[string][]string
	for _, field := range h.Fields {
		if len(match.Locations[field]) == 0 {
			continue
		}

		best := highlighter.BestFragmentsInField(match, doc, field, h.Fragments)
		if len(best) == 0 {
			continue
		}
		if fragments == nil {
			fragments = make(map[string][]string)
		}
		fragments[field] = best
	}

	return fragments
}
