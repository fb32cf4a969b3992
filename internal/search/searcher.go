package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sha1n/yari-search/internal/domain"
	"github.com/sha1n/yari-search/internal/engine"
)

// ErrPageNotFound indicates no indexed page has the requested URL.
var ErrPageNotFound = errors.New("page not found")

// Result is one hit, decoded.
type Result struct {
	Document domain.Document
	Score    float64

	// TitleFragments and BodyFragments hold highlighted excerpts, if requested.
	TitleFragments []string
	BodyFragments  []string
}

// Response is the outcome of Searcher.Search.
type Response struct {
	Total uint64
	Took  time.Duration

	TitleSuggestions []engine.SuggestEntry
	BodySuggestions  []engine.SuggestEntry

	Results []Result
}

// Searcher runs queries against one index.
type Searcher struct {
	engine engine.Engine
	index  string
	debug  io.Writer
	now    func() time.Time
}

// NewSearcher creates a searcher. debug receives the requests of Debug
// searches and may be nil.
func NewSearcher(eng engine.Engine, index string, debug io.Writer) *Searcher {
	if debug == nil {
		debug = io.Discard
	}
	return &Searcher{
		engine: eng,
		index:  index,
		debug:  debug,
		now:    time.Now,
	}
}

// Index returns the name of the searched index.
func (s *Searcher) Index() string {
	return s.index
}

// Search runs the suggesters and the search for text. Took is measured
// around the search call, as seen by the client.
func (s *Searcher) Search(ctx context.Context, text string, opts Options) (*Response, error) {
	suggestReqs := BuildSuggest(text)
	searchReq := BuildSearch(text, opts)

	if opts.Debug {
		if err := s.writeDebug(suggestReqs, searchReq); err != nil {
			return nil, err
		}
	}

	suggestions, err := s.engine.Suggest(ctx, s.index, suggestReqs)
	if err != nil {
		return nil, fmt.Errorf("suggest failed: %w", err)
	}

	start := s.now()
	resp, err := s.engine.Search(ctx, s.index, searchReq)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	took := s.now().Sub(start)

	result := &Response{
		Total:            resp.Total,
		Took:             took,
		TitleSuggestions: suggestions[TitleSuggester],
		BodySuggestions:  suggestions[BodySuggester],
		Results:          make([]Result, 0, len(resp.Hits)),
	}
	for _, hit := range resp.Hits {
		result.Results = append(result.Results, Result{
			Document:       domain.DocumentFromFields(hit.ID, hit.Fields),
			Score:          hit.Score,
			TitleFragments: hit.Fragments[domain.FieldTitle],
			BodyFragments:  hit.Fragments[domain.FieldBody],
		})
	}
	return result, nil
}

// Complete returns titles starting with prefix, most popular first.
func (s *Searcher) Complete(ctx context.Context, prefix string, size int) ([]engine.SuggestOption, error) {
	suggestions, err := s.engine.Suggest(ctx, s.index, BuildCompletion(prefix, size))
	if err != nil {
		return nil, fmt.Errorf("completion failed: %w", err)
	}

	var options []engine.SuggestOption
	for _, entry := range suggestions[TitleSuggester] {
		options = append(options, entry.Options...)
	}
	return options, nil
}

// Get returns the indexed page with the given canonical URL.
func (s *Searcher) Get(ctx context.Context, url string) (*Result, error) {
	resp, err := s.engine.Search(ctx, s.index, BuildGet(url))
	if err != nil {
		return nil, fmt.Errorf("lookup failed: %w", err)
	}
	if len(resp.Hits) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrPageNotFound, url)
	}
	hit := resp.Hits[0]
	return &Result{
		Document: domain.DocumentFromFields(hit.ID, hit.Fields),
		Score:    hit.Score,
	}, nil
}

type debugRequest struct {
	Index   string                  `json:"index"`
	Suggest []engine.SuggestRequest `json:"suggest"`
	Search  *engine.SearchRequest   `json:"search"`
}

func (s *Searcher) writeDebug(suggest []engine.SuggestRequest, req *engine.SearchRequest) error {
	data, err := json.MarshalIndent(debugRequest{Index: s.index, Suggest: suggest, Search: req}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	if _, err := fmt.Fprintln(s.debug, string(data)); err != nil {
		return fmt.Errorf("failed to write request: %w", err)
	}
	return nil
}
