// Package engine defines the narrow contract between yari-search and the
// search engine that owns ranking, analysis, highlighting and suggestions.
package engine

import (
	"context"
	"errors"
	"iter"
	"time"

	"github.com/sha1n/yari-search/internal/domain"
)

// BulkChunkSize is the number of items submitted to the engine per request.
const BulkChunkSize = 100

var (
	// ErrIndexNotFound indicates the named index does not exist
	ErrIndexNotFound = errors.New("index not found")

	// ErrIndexExists indicates the named index already exists
	ErrIndexExists = errors.New("index already exists")

	// ErrUnknownAnalyzer indicates the named analyzer is not registered
	ErrUnknownAnalyzer = errors.New("unknown analyzer")
)

// Engine is the search engine as seen by the loader, the query side and the CLI.
type Engine interface {
	// Health reports the engine's readiness.
	Health(ctx context.Context) (Health, error)

	// CreateIndex creates an empty index with the document schema.
	CreateIndex(ctx context.Context, name string) error

	// DeleteIndex removes an index and all of its documents.
	DeleteIndex(ctx context.Context, name string) error

	// Bulk streams items into the index in chunks of BulkChunkSize.
	// onResult is called once per item after its chunk has been submitted.
	// A chunk that cannot be submitted at all is returned as an error.
	Bulk(ctx context.Context, name string, items iter.Seq[BulkItem], onResult func(BulkResult)) error

	Search(ctx context.Context, name string, req *SearchRequest) (*SearchResponse, error)

	// Suggest runs every suggester and returns entries keyed by suggester name.
	Suggest(ctx context.Context, name string, reqs []SuggestRequest) (map[string][]SuggestEntry, error)

	// Analyze runs a named analyzer over text.
	Analyze(ctx context.Context, name, analyzer, text string) ([]Token, error)

	// Count returns the number of documents in the index.
	Count(ctx context.Context, name string) (uint64, error)

	Close() error
}

// Status is the coarse health of an engine.
type Status string

const (
	StatusGreen  Status = "green"
	StatusYellow Status = "yellow"
	StatusRed    Status = "red"
)

// Health is the result of an engine health check.
type Health struct {
	Status Status   `json:"status"`
	Hosts  []string `json:"hosts"`
	Reason string   `json:"reason,omitempty"`
}

// Acceptable reports whether the engine is usable for indexing.
func (h Health) Acceptable() bool {
	return h.Status == StatusGreen || h.Status == StatusYellow
}

// BulkItem is one document to index. Path is the source file it came from,
// carried through to the result so callers can record per-file state.
type BulkItem struct {
	Document domain.Document
	Path     string
}

// BulkResult is the outcome of a single bulk item.
type BulkResult struct {
	ID   string
	Path string
	Err  error
}

// OK reports whether the item was indexed.
func (r BulkResult) OK() bool {
	return r.Err == nil
}

// SortField orders hits by a field. The pseudo field "_score" orders by relevance.
type SortField struct {
	Field string `json:"field"`
	Desc  bool   `json:"desc"`
}

// ScoreField is the pseudo field name for relevance.
const ScoreField = "_score"

// Filter restricts hits to documents whose field equals Value exactly.
// Value is a string or a bool.
type Filter struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

// Highlight configures excerpt generation.
type Highlight struct {
	Fields       []string `json:"fields"`
	PreTag       string   `json:"pre_tag"`
	PostTag      string   `json:"post_tag"`
	Fragments    int      `json:"number_of_fragments"`
	FragmentSize int      `json:"fragment_size"`
}

// Source selects which stored fields are returned with each hit.
type Source struct {
	Includes []string `json:"includes,omitempty"`
	Excludes []string `json:"excludes,omitempty"`
}

// SearchRequest is an engine-neutral full-text query.
type SearchRequest struct {
	Query string `json:"query"`

	// IDs, when set, selects these documents instead of matching Query.
	IDs []string `json:"ids,omitempty"`

	Fields    []string    `json:"fields"`
	Filters   []Filter    `json:"filters,omitempty"`
	Sort      []SortField `json:"sort"`
	From      int         `json:"from"`
	Size      int         `json:"size"`
	Source    Source      `json:"_source"`
	Highlight *Highlight  `json:"highlight,omitempty"`
}

// Hit is one matching document.
type Hit struct {
	ID     string         `json:"id"`
	Score  float64        `json:"score"`
	Fields map[string]any `json:"fields"`

	// Fragments holds highlighted excerpts keyed by field.
	Fragments map[string][]string `json:"fragments,omitempty"`
}

// SearchResponse is the result of a SearchRequest.
type SearchResponse struct {
	Total uint64        `json:"total"`
	Took  time.Duration `json:"took"`
	Hits  []Hit         `json:"hits"`
}

// SuggestKind selects how suggestion candidates are generated.
type SuggestKind string

const (
	// SuggestTerm proposes corrections for misspelled terms.
	SuggestTerm SuggestKind = "term"

	// SuggestCompletion proposes values by prefix.
	SuggestCompletion SuggestKind = "completion"
)

// SuggestRequest is a named suggester.
type SuggestRequest struct {
	Name  string      `json:"name"`
	Text  string      `json:"text"`
	Field string      `json:"field"`
	Kind  SuggestKind `json:"kind"`
	Size  int         `json:"size"`
}

// SuggestEntry holds the candidates for one token of the suggested text.
type SuggestEntry struct {
	Text    string          `json:"text"`
	Offset  int             `json:"offset"`
	Length  int             `json:"length"`
	Options []SuggestOption `json:"options"`
}

// SuggestOption is a single candidate with a score in [0, 1].
type SuggestOption struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
	Freq  uint64  `json:"freq,omitempty"`
}

// Token is one analyzer output token.
type Token struct {
	Term     string `json:"term"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Position int    `json:"position"`
	Type     string `json:"type"`
}
