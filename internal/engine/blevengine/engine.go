// Package blevengine implements engine.Engine on embedded Bleve indexes.
//
// Each host is a directory holding one "<name>.bleve" index per index name.
// Writes always go to the first host. Reads span every host that has the
// index, combined with a bleve.IndexAlias.
package blevengine

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/sha1n/yari-search/internal/engine"
)

// IndexSuffix is the suffix for index directories
const IndexSuffix = ".bleve"

// Engine is a Bleve-backed engine.Engine. Index handles are opened once and
// shared, since an index directory cannot be opened twice by one process.
type Engine struct {
	hosts []string

	mu      sync.Mutex
	handles map[string]bleve.Index
}

var _ engine.Engine = (*Engine)(nil)

// Open creates an engine over the given host directories.
// The primary (first) host is created if it does not exist.
func Open(hosts []string) (*Engine, error) {
	if len(hosts) == 0 {
		return nil, errors.New("at least one host is required")
	}
	if err := os.MkdirAll(hosts[0], 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", hosts[0], err)
	}

	return &Engine{
		hosts:   hosts,
		handles: make(map[string]bleve.Index),
	}, nil
}

// indexPath returns the path to an index on a host.
func indexPath(host, name string) string {
	return filepath.Join(host, name+IndexSuffix)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Health checks that the primary host is a writable directory and that
// every secondary host is reachable.
func (e *Engine) Health(ctx context.Context) (engine.Health, error) {
	health := engine.Health{Status: engine.StatusGreen, Hosts: e.hosts}

	primary := e.hosts[0]
	info, err := os.Stat(primary)
	if err != nil {
		health.Status = engine.StatusRed
		health.Reason = fmt.Sprintf("primary host %s is not accessible: %v", primary, err)
		return health, nil
	}
	if !info.IsDir() {
		health.Status = engine.StatusRed
		health.Reason = fmt.Sprintf("primary host %s is not a directory", primary)
		return health, nil
	}

	probe, err := os.CreateTemp(primary, ".health-*")
	if err != nil {
		health.Status = engine.StatusRed
		health.Reason = fmt.Sprintf("primary host %s is not writable: %v", primary, err)
		return health, nil
	}
	_ = probe.Close()
	_ = os.Remove(probe.Name())

	for _, host := range e.hosts[1:] {
		if !exists(host) {
			health.Status = engine.StatusYellow
			health.Reason = fmt.Sprintf("secondary host %s is not accessible", host)
			break
		}
	}

	return health, nil
}

// CreateIndex creates an empty index on the primary host.
func (e *Engine) CreateIndex(ctx context.Context, name string) error {
	path := indexPath(e.hosts[0], name)

	e.mu.Lock()
	defer e.mu.Unlock()

	if exists(path) {
		return fmt.Errorf("%w: %s", engine.ErrIndexExists, name)
	}

	indexMapping, err := CreateIndexMapping()
	if err != nil {
		return err
	}

	index, err := bleve.New(path, indexMapping)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	e.handles[path] = index
	return nil
}

// DeleteIndex removes the index from the primary host.
func (e *Engine) DeleteIndex(ctx context.Context, name string) error {
	path := indexPath(e.hosts[0], name)

	e.mu.Lock()
	defer e.mu.Unlock()

	if !exists(path) {
		return fmt.Errorf("%w: %s", engine.ErrIndexNotFound, name)
	}

	if index, ok := e.handles[path]; ok {
		if err := index.Close(); err != nil {
			slog.Warn("Failed to close index before delete", "path", path, "error", err)
		}
		delete(e.handles, path)
	}

	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to delete index: %w", err)
	}
	return nil
}

// handle returns the shared handle for an index path. Callers hold e.mu.
func (e *Engine) handle(path string) (bleve.Index, error) {
	if index, ok := e.handles[path]; ok {
		return index, nil
	}

	index, err := bleve.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index %s: %w", path, err)
	}
	e.handles[path] = index
	return index, nil
}

// writer returns the primary index for name.
func (e *Engine) writer(name string) (bleve.Index, error) {
	path := indexPath(e.hosts[0], name)

	e.mu.Lock()
	defer e.mu.Unlock()

	if !exists(path) {
		return nil, fmt.Errorf("%w: %s", engine.ErrIndexNotFound, name)
	}
	return e.handle(path)
}

// readers returns every host's copy of the index, primary first.
func (e *Engine) readers(name string) ([]bleve.Index, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var indexes []bleve.Index
	for _, host := range e.hosts {
		path := indexPath(host, name)
		if !exists(path) {
			continue
		}
		index, err := e.handle(path)
		if err != nil {
			return nil, err
		}
		indexes = append(indexes, index)
	}

	if len(indexes) == 0 {
		return nil, fmt.Errorf("%w: %s", engine.ErrIndexNotFound, name)
	}
	return indexes, nil
}

// reader returns a single searchable view over all copies of the index.
func (e *Engine) reader(name string) (bleve.Index, []bleve.Index, error) {
	indexes, err := e.readers(name)
	if err != nil {
		return nil, nil, err
	}
	if len(indexes) == 1 {
		return indexes[0], indexes, nil
	}
	return bleve.NewIndexAlias(indexes...), indexes, nil
}

// Bulk indexes items in batches of engine.BulkChunkSize.
func (e *Engine) Bulk(ctx context.Context, name string, items iter.Seq[engine.BulkItem], onResult func(engine.BulkResult)) error {
	index, err := e.writer(name)
	if err != nil {
		return err
	}

	batch := index.NewBatch()
	pending := make([]engine.BulkResult, 0, engine.BulkChunkSize)

	flush := func() error {
		if batch.Size() > 0 {
			if err := index.Batch(batch); err != nil {
				return fmt.Errorf("batch index failed: %w", err)
			}
		}
		for _, result := range pending {
			if onResult != nil {
				onResult(result)
			}
		}
		batch.Reset()
		pending = pending[:0]
		return nil
	}

	for item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}

		result := engine.BulkResult{ID: item.Document.ID, Path: item.Path}
		if item.Document.ID == "" {
			result.Err = errors.New("document has no id")
		} else if err := batch.Index(item.Document.ID, item.Document); err != nil {
			result.Err = fmt.Errorf("failed to map document: %w", err)
		}
		pending = append(pending, result)

		if len(pending) >= engine.BulkChunkSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}

	return flush()
}

// Count returns the number of documents across all copies of the index.
func (e *Engine) Count(ctx context.Context, name string) (uint64, error) {
	index, _, err := e.reader(name)
	if err != nil {
		return 0, err
	}
	count, err := index.DocCount()
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

// Analyze runs one of the index's analyzers over text.
func (e *Engine) Analyze(ctx context.Context, name, analyzer, text string) ([]engine.Token, error) {
	indexes, err := e.readers(name)
	if err != nil {
		return nil, err
	}

	a := indexes[0].Mapping().AnalyzerNamed(analyzer)
	if a == nil {
		return nil, fmt.Errorf("%w: %s", engine.ErrUnknownAnalyzer, analyzer)
	}

	stream := a.Analyze([]byte(text))
	tokens := make([]engine.Token, 0, len(stream))
	for _, t := range stream {
		tokens = append(tokens, engine.Token{
			Term:     string(t.Term),
			Start:    t.Start,
			End:      t.End,
			Position: t.Position,
			Type:     tokenType(t.Type),
		})
	}
	return tokens, nil
}

func tokenType(t analysis.TokenType) string {
	switch t {
	case analysis.AlphaNumeric:
		return "<ALPHANUM>"
	case analysis.Ideographic:
		return "<IDEOGRAPHIC>"
	case analysis.Numeric:
		return "<NUM>"
	default:
		return "word"
	}
}

// Close closes every open index handle.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var errs []error
	for path, index := range e.handles {
		if err := index.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close %s: %w", path, err))
		}
		delete(e.handles, path)
	}
	return errors.Join(errs...)
}
