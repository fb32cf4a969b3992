// Package enginetest provides an in-memory engine.Engine for tests.
package enginetest

import (
	"context"
	"fmt"
	"iter"
	"sync"

	"github.com/sha1n/yari-search/internal/domain"
	"github.com/sha1n/yari-search/internal/engine"
)

// FakeEngine records calls and returns configured responses.
// This is exported for use in tests of packages that depend on engine.Engine.
type FakeEngine struct {
	mu sync.Mutex

	// HealthStatus is returned by Health. Defaults to green.
	HealthStatus engine.Status
	HealthErr    error

	// FailIDs makes Bulk report an error for these document IDs.
	FailIDs map[string]error
	BulkErr error

	SearchResponse *engine.SearchResponse
	SearchErr      error

	Suggestions map[string][]engine.SuggestEntry
	SuggestErr  error

	Tokens     []engine.Token
	AnalyzeErr error

	indexes  map[string]map[string]domain.Document
	calls    []Call
	searches []*engine.SearchRequest
	suggests [][]engine.SuggestRequest
	closed   bool
}

// Call records a method invocation.
type Call struct {
	Method string
	Index  string
}

// New creates an empty fake engine.
func New() *FakeEngine {
	return &FakeEngine{
		HealthStatus: engine.StatusGreen,
		FailIDs:      make(map[string]error),
		indexes:      make(map[string]map[string]domain.Document),
	}
}

var _ engine.Engine = (*FakeEngine)(nil)

func (f *FakeEngine) record(method, index string) {
	f.calls = append(f.calls, Call{Method: method, Index: index})
}

func (f *FakeEngine) Health(_ context.Context) (engine.Health, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Health", "")
	return engine.Health{Status: f.HealthStatus}, f.HealthErr
}

func (f *FakeEngine) CreateIndex(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateIndex", name)
	if _, ok := f.indexes[name]; ok {
		return fmt.Errorf("%w: %s", engine.ErrIndexExists, name)
	}
	f.indexes[name] = make(map[string]domain.Document)
	return nil
}

func (f *FakeEngine) DeleteIndex(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DeleteIndex", name)
	if _, ok := f.indexes[name]; !ok {
		return fmt.Errorf("%w: %s", engine.ErrIndexNotFound, name)
	}
	delete(f.indexes, name)
	return nil
}

func (f *FakeEngine) Bulk(ctx context.Context, name string, items iter.Seq[engine.BulkItem], onResult func(engine.BulkResult)) error {
	f.mu.Lock()
	f.record("Bulk", name)
	docs, ok := f.indexes[name]
	bulkErr := f.BulkErr
	f.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", engine.ErrIndexNotFound, name)
	}

	for item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		if bulkErr != nil {
			return bulkErr
		}

		result := engine.BulkResult{ID: item.Document.ID, Path: item.Path}
		f.mu.Lock()
		if err, fail := f.FailIDs[item.Document.ID]; fail {
			result.Err = err
		} else {
			docs[item.Document.ID] = item.Document
		}
		f.mu.Unlock()

		if onResult != nil {
			onResult(result)
		}
	}
	return nil
}

func (f *FakeEngine) Search(_ context.Context, name string, req *engine.SearchRequest) (*engine.SearchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Search", name)
	f.searches = append(f.searches, req)
	if f.SearchErr != nil {
		return nil, f.SearchErr
	}
	if f.SearchResponse == nil {
		return &engine.SearchResponse{}, nil
	}
	return f.SearchResponse, nil
}

func (f *FakeEngine) Suggest(_ context.Context, name string, reqs []engine.SuggestRequest) (map[string][]engine.SuggestEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Suggest", name)
	f.suggests = append(f.suggests, reqs)
	if f.SuggestErr != nil {
		return nil, f.SuggestErr
	}
	return f.Suggestions, nil
}

func (f *FakeEngine) Analyze(_ context.Context, name, analyzer, text string) ([]engine.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Analyze", name)
	return f.Tokens, f.AnalyzeErr
}

func (f *FakeEngine) Count(_ context.Context, name string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Count", name)
	docs, ok := f.indexes[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", engine.ErrIndexNotFound, name)
	}
	return uint64(len(docs)), nil
}

func (f *FakeEngine) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// AddIndex creates an index holding docs.
func (f *FakeEngine) AddIndex(name string, docs ...domain.Document) {
	f.mu.Lock()
	defer f.mu.Unlock()
	index := make(map[string]domain.Document, len(docs))
	for _, doc := range docs {
		index[doc.ID] = doc
	}
	f.indexes[name] = index
}

// Documents returns the documents stored in an index.
func (f *FakeEngine) Documents(name string) map[string]domain.Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.indexes[name]
}

// HasIndex reports whether the index exists.
func (f *FakeEngine) HasIndex(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.indexes[name]
	return ok
}

// GetCalls returns the methods called, in order.
func (f *FakeEngine) GetCalls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Methods returns just the method names of GetCalls.
func (f *FakeEngine) Methods() []string {
	calls := f.GetCalls()
	methods := make([]string, len(calls))
	for i, c := range calls {
		methods[i] = c.Method
	}
	return methods
}

// Searches returns every search request received.
func (f *FakeEngine) Searches() []*engine.SearchRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.searches
}

// SuggestRequests returns every batch of suggesters received.
func (f *FakeEngine) SuggestRequests() [][]engine.SuggestRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.suggests
}

// Closed reports whether Close was called.
func (f *FakeEngine) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
