// Package loader bulk-loads a documentation build root into a search index.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/sha1n/yari-search/internal/docs"
	"github.com/sha1n/yari-search/internal/engine"
	"github.com/sha1n/yari-search/internal/kvstore"
)

var (
	// ErrBuildRootMissing indicates the build root does not exist or is not a directory
	ErrBuildRootMissing = errors.New("build root does not exist")

	// ErrUnhealthy indicates the engine is not ready for indexing
	ErrUnhealthy = errors.New("engine is not healthy")

	// ErrLocked indicates another run is indexing the same index
	ErrLocked = errors.New("index is locked by another process")

	// ErrPartialFailure indicates some documents were not indexed
	ErrPartialFailure = errors.New("some documents failed to index")
)

// Progress receives one tick per processed document.
type Progress interface {
	Start(total int)
	Increment()
	Done()
}

type noProgress struct{}

func (noProgress) Start(int)  {}
func (noProgress) Increment() {}
func (noProgress) Done()      {}

// Options controls a single indexing run.
type Options struct {
	BuildRoot string
	Index     string

	// StateDir holds the lock file, the manifest and the per-file state.
	StateDir string

	// Update keeps the existing index instead of recreating it.
	Update bool

	// ChangedOnly skips files that have not changed since they were last
	// indexed. Only meaningful with Update.
	ChangedOnly bool

	StripHTML bool

	Progress Progress
	Out      io.Writer
}

// Summary is the outcome of a run.
type Summary struct {
	RunID   string
	Found   int
	Indexed int
	Failed  int
	Skipped int

	// Forgotten counts tracked files that left the build root (update runs only).
	Forgotten int
	Duration  time.Duration
}

// Loader indexes build roots into an engine.
type Loader struct {
	engine engine.Engine
	now    func() time.Time
}

// New creates a loader for the given engine.
func New(eng engine.Engine) *Loader {
	return &Loader{
		engine: eng,
		now:    time.Now,
	}
}

// Run walks the build root and loads every document into the index.
// Nothing is mutated unless the build root exists and the engine is healthy.
func (l *Loader) Run(ctx context.Context, opts Options) (summary *Summary, err error) {
	if opts.Progress == nil {
		opts.Progress = noProgress{}
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}

	info, err := os.Stat(opts.BuildRoot)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrBuildRootMissing, opts.BuildRoot)
	}

	health, err := l.engine.Health(ctx)
	if err != nil {
		return nil, fmt.Errorf("health check failed: %w", err)
	}
	if !health.Acceptable() {
		return nil, fmt.Errorf("%w: status %s not green or yellow", ErrUnhealthy, health.Status)
	}

	found, err := docs.Count(opts.BuildRoot)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(opts.Out, "Found %s documents to index\n", humanize.Comma(int64(found)))

	lock := NewIndexLock(opts.StateDir, opts.Index)
	if err := lock.Acquire(); err != nil {
		return nil, err
	}
	defer func() {
		if releaseErr := lock.Release(); releaseErr != nil {
			slog.Error("Failed to release index lock", "path", lock.Path(), "error", releaseErr)
		}
	}()

	store, err := kvstore.Open(filepath.Join(opts.StateDir, kvstore.Filename))
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()

	run := RunRecord{
		ID:        uuid.NewString(),
		BuildRoot: opts.BuildRoot,
		Update:    opts.Update,
		StartedAt: l.now(),
		Found:     found,
	}
	defer func() {
		run.FinishedAt = l.now()
		if err != nil {
			run.Error = err.Error()
		}
		l.recordRun(opts, run)
	}()

	if opts.Update {
		err = l.ensureIndex(ctx, opts, store)
	} else {
		err = l.recreate(ctx, opts.Index, store)
	}
	if err != nil {
		return nil, err
	}

	summary = &Summary{RunID: run.ID, Found: found}
	if err := l.load(ctx, opts, store, summary); err != nil {
		run.Indexed, run.Failed, run.Skipped = summary.Indexed, summary.Failed, summary.Skipped
		return summary, err
	}
	summary.Duration = l.now().Sub(run.StartedAt)
	run.Indexed, run.Failed, run.Skipped = summary.Indexed, summary.Failed, summary.Skipped

	fmt.Fprintf(opts.Out, "Took %.1f seconds to index %s documents\n",
		summary.Duration.Seconds(), humanize.Comma(int64(summary.Indexed)))
	if summary.Skipped > 0 {
		fmt.Fprintf(opts.Out, "Skipped %s unchanged documents\n", humanize.Comma(int64(summary.Skipped)))
	}
	if summary.Forgotten > 0 {
		fmt.Fprintf(opts.Out, "Forgot %s files no longer in the build root\n", humanize.Comma(int64(summary.Forgotten)))
	}
	if summary.Failed > 0 {
		fmt.Fprintf(opts.Out, "Failed to index %s documents\n", humanize.Comma(int64(summary.Failed)))
		return summary, fmt.Errorf("%w: %d of %d", ErrPartialFailure, summary.Failed, found)
	}

	return summary, nil
}

// recreate drops and recreates the index and forgets its file state.
func (l *Loader) recreate(ctx context.Context, index string, store *kvstore.Store) error {
	if err := l.engine.DeleteIndex(ctx, index); err != nil && !errors.Is(err, engine.ErrIndexNotFound) {
		return fmt.Errorf("failed to delete index: %w", err)
	}
	if err := l.engine.CreateIndex(ctx, index); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	if err := store.Reset(index); err != nil {
		return fmt.Errorf("failed to reset file state: %w", err)
	}
	return nil
}

// ensureIndex creates a missing index for an update run. File state
// recorded for an index that no longer exists is dropped with it.
func (l *Loader) ensureIndex(ctx context.Context, opts Options, store *kvstore.Store) error {
	_, err := l.engine.Count(ctx, opts.Index)
	if err == nil {
		return nil
	}
	if !errors.Is(err, engine.ErrIndexNotFound) {
		return fmt.Errorf("failed to check index: %w", err)
	}

	fmt.Fprintf(opts.Out, "Index %s does not exist, creating it\n", opts.Index)
	if err := l.engine.CreateIndex(ctx, opts.Index); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	if err := store.Reset(opts.Index); err != nil {
		return fmt.Errorf("failed to reset file state: %w", err)
	}
	return nil
}

// forget drops the state of tracked files that were not seen in this run.
func forget(store *kvstore.Store, index string, seen map[string]struct{}) (int, error) {
	keys, err := store.Keys(index)
	if err != nil {
		return 0, fmt.Errorf("failed to list file state: %w", err)
	}
	forgotten := 0
	for _, key := range keys {
		if _, ok := seen[key]; ok {
			continue
		}
		if err := store.Delete(index, key); err != nil {
			return forgotten, err
		}
		slog.Debug("Forgot removed file", "path", key)
		forgotten++
	}
	return forgotten, nil
}

// load streams documents from the build root through the engine's bulk API.
func (l *Loader) load(ctx context.Context, opts Options, store *kvstore.Store, summary *Summary) error {
	var walkErr error
	modTimes := make(map[string]time.Time)
	seen := make(map[string]struct{})
	changedOnly := opts.Update && opts.ChangedOnly
	mapOpts := docs.Options{StripHTML: opts.StripHTML}

	items := func(yield func(engine.BulkItem) bool) {
		for path, err := range docs.Walk(opts.BuildRoot) {
			if err != nil {
				walkErr = err
				return
			}

			info, err := os.Stat(path)
			if err != nil {
				walkErr = fmt.Errorf("failed to stat %s: %w", path, err)
				return
			}
			seen[path] = struct{}{}

			if changedOnly {
				state, err := store.Get(opts.Index, path)
				if err == nil && !state.Changed(info.ModTime()) {
					summary.Skipped++
					opts.Progress.Increment()
					continue
				}
			}

			doc, err := docs.ReadDocument(path, mapOpts)
			if err != nil {
				walkErr = err
				return
			}

			modTimes[path] = info.ModTime()
			if !yield(engine.BulkItem{Document: doc, Path: path}) {
				return
			}
		}
	}

	onResult := func(result engine.BulkResult) {
		defer opts.Progress.Increment()

		modTime := modTimes[result.Path]
		delete(modTimes, result.Path)

		if !result.OK() {
			summary.Failed++
			slog.Warn("Failed to index document", "id", result.ID, "path", result.Path, "error", result.Err)
			return
		}

		summary.Indexed++
		state := kvstore.FileState{DocumentID: result.ID, ModTime: modTime, LastIndexed: l.now()}
		if err := store.Set(opts.Index, result.Path, state); err != nil {
			slog.Error("Failed to record file state", "path", result.Path, "error", err)
		}
	}

	opts.Progress.Start(summary.Found)
	err := l.engine.Bulk(ctx, opts.Index, items, onResult)
	opts.Progress.Done()

	if err != nil {
		return fmt.Errorf("bulk indexing failed: %w", err)
	}
	if walkErr != nil {
		return walkErr
	}

	if opts.Update {
		forgotten, err := forget(store, opts.Index, seen)
		summary.Forgotten = forgotten
		if err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) recordRun(opts Options, run RunRecord) {
	path := filepath.Join(opts.StateDir, ManifestFilename)
	manifest, err := LoadManifest(path)
	if err != nil {
		slog.Error("Failed to load manifest, starting a new one", "path", path, "error", err)
		manifest = NewManifest()
	}
	manifest.SetLastRun(opts.Index, run)
	if err := manifest.Save(path); err != nil {
		slog.Error("Failed to save manifest", "path", path, "error", err)
	}
}

// History is what the state directory knows about an index.
type History struct {
	// LastRun is nil when the index was never loaded.
	LastRun *RunRecord

	// Failing maps every other index whose last run failed to its error.
	Failing map[string]string

	// TrackedFiles is the number of files with recorded state.
	TrackedFiles int
}

// ReadHistory reads the run manifest and the file state of an index.
func ReadHistory(stateDir, index string) (History, error) {
	var history History

	manifest, err := LoadManifest(filepath.Join(stateDir, ManifestFilename))
	if err != nil {
		return history, err
	}
	if run, ok := manifest.LastRun(index); ok {
		history.LastRun = &run
	}
	history.Failing = manifest.RunsWithErrors()
	delete(history.Failing, index)

	path := filepath.Join(stateDir, kvstore.Filename)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return history, nil
		}
		return history, fmt.Errorf("failed to stat file state: %w", err)
	}
	store, err := kvstore.Open(path)
	if err != nil {
		return history, err
	}
	defer func() { _ = store.Close() }()

	history.TrackedFiles, err = store.Count(index)
	return history, err
}
