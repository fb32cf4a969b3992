// Package search builds the suggestion and search requests for a free-text
// query and runs them against an engine.
package search

import (
	"strings"

	"github.com/sha1n/yari-search/internal/domain"
	"github.com/sha1n/yari-search/internal/engine"
)

const (
	PreTag       = "<mark>"
	PostTag      = "</mark>"
	Fragments    = 4
	FragmentSize = 80

	// TitleSuggester and BodySuggester name the term suggesters.
	TitleSuggester = "title_suggestions"
	BodySuggester  = "body_suggestions"

	SuggestSize = 5

	DefaultSize = 10
)

// SearchFields are matched with equal weight.
var SearchFields = []string{domain.FieldTitle, domain.FieldBody}

// Options shapes a search.
type Options struct {
	// Locale restricts hits to one locale. Matched case-insensitively.
	Locale string

	Size int
	From int

	// Highlight requests excerpts with matched terms marked.
	Highlight bool

	// Debug writes the constructed requests before running them.
	Debug bool

	// IncludeArchived keeps archived pages in the results.
	IncludeArchived bool

	// IncludeBody returns the page body with each hit.
	IncludeBody bool
}

// BuildSearch returns the request for text: a match on title or body,
// ordered by relevance and then popularity.
func BuildSearch(text string, opts Options) *engine.SearchRequest {
	size := opts.Size
	if size <= 0 {
		size = DefaultSize
	}

	req := &engine.SearchRequest{
		Query:  text,
		Fields: SearchFields,
		Sort: []engine.SortField{
			{Field: engine.ScoreField, Desc: true},
			{Field: domain.FieldPopularity, Desc: true},
		},
		From: max(opts.From, 0),
		Size: size,
	}

	if opts.Locale != "" {
		req.Filters = append(req.Filters, engine.Filter{Field: domain.FieldLocale, Value: strings.ToLower(opts.Locale)})
	}
	if !opts.IncludeArchived {
		req.Filters = append(req.Filters, engine.Filter{Field: domain.FieldArchived, Value: false})
	}

	if !opts.IncludeBody && !opts.Highlight {
		req.Source.Excludes = []string{domain.FieldBody}
	}

	if opts.Highlight {
		req.Highlight = &engine.Highlight{
			Fields:       SearchFields,
			PreTag:       PreTag,
			PostTag:      PostTag,
			Fragments:    Fragments,
			FragmentSize: FragmentSize,
		}
	}

	return req
}

// BuildSuggest returns the term suggesters for text, titles first.
func BuildSuggest(text string) []engine.SuggestRequest {
	return []engine.SuggestRequest{
		{Name: TitleSuggester, Text: text, Field: domain.FieldTitle, Kind: engine.SuggestTerm, Size: SuggestSize},
		{Name: BodySuggester, Text: text, Field: domain.FieldBody, Kind: engine.SuggestTerm, Size: SuggestSize},
	}
}

// BuildCompletion returns a title completion suggester for prefix.
func BuildCompletion(prefix string, size int) []engine.SuggestRequest {
	if size <= 0 {
		size = SuggestSize
	}
	return []engine.SuggestRequest{
		{Name: TitleSuggester, Text: prefix, Field: domain.FieldTitleSuggest, Kind: engine.SuggestCompletion, Size: size},
	}
}

// BuildGet returns a request for the page with the given canonical URL,
// body included.
func BuildGet(url string) *engine.SearchRequest {
	return &engine.SearchRequest{
		IDs:  []string{url},
		Size: 1,
	}
}
