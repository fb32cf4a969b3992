package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/sha1n/yari-search/internal/docs"
	"github.com/sha1n/yari-search/internal/domain"
	"github.com/sha1n/yari-search/internal/engine"
	"github.com/sha1n/yari-search/internal/engine/enginetest"
)

const testIndex = "yari_doc"

type countingProgress struct {
	total int
	ticks int
	done  bool
}

func (p *countingProgress) Start(total int) { p.total = total }
func (p *countingProgress) Increment()      { p.ticks++ }
func (p *countingProgress) Done()           { p.done = true }

// writeBuildRoot creates one index.json per URL and returns the build root.
func writeBuildRoot(t *testing.T, urls ...string) string {
	t.Helper()
	root := t.TempDir()
	for i, url := range urls {
		writeRecord(t, root, url, fmt.Sprintf("Page %d", i))
	}
	return root
}

func writeRecord(t *testing.T, root, url, title string) string {
	t.Helper()
	path := filepath.Join(root, strings.ToLower(url), docs.MarkerFilename)
	content := fmt.Sprintf(`{"doc": {"mdn_url": %q, "title": %q, "popularity": 0.5, "isArchive": false,
		"body": [{"type": "prose", "value": {"content": "<p>About %s</p>"}}]}}`, url, title, title)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testOptions(t *testing.T, root string) (Options, *bytes.Buffer, *countingProgress) {
	t.Helper()
	var out bytes.Buffer
	progress := &countingProgress{}
	return Options{
		BuildRoot: root,
		Index:     testIndex,
		StateDir:  t.TempDir(),
		StripHTML: true,
		Progress:  progress,
		Out:       &out,
	}, &out, progress
}

// lastRun returns the recorded last run of the test index.
func lastRun(t *testing.T, stateDir string) RunRecord {
	t.Helper()
	history, err := ReadHistory(stateDir, testIndex)
	if err != nil {
		t.Fatalf("ReadHistory failed: %v", err)
	}
	if history.LastRun == nil {
		t.Fatal("Expected a recorded run")
	}
	return *history.LastRun
}

var threeURLs = []string{
	"/en-US/docs/Web/CSS/color",
	"/en-US/docs/Web/HTML/Element/video",
	"/fr/docs/Glossary/HTML",
}

func TestRun_FreshIndex(t *testing.T) {
	eng := enginetest.New()
	opts, out, progress := testOptions(t, writeBuildRoot(t, threeURLs...))

	summary, err := New(eng).Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.Found != 3 || summary.Indexed != 3 || summary.Failed != 0 || summary.Skipped != 0 {
		t.Errorf("Unexpected summary: %+v", summary)
	}
	if summary.RunID == "" {
		t.Error("Expected a run ID")
	}

	expected := []string{"Health", "DeleteIndex", "CreateIndex", "Bulk"}
	if methods := eng.Methods(); !slices.Equal(methods, expected) {
		t.Errorf("Expected calls %v, got %v", expected, methods)
	}

	stored := eng.Documents(testIndex)
	if len(stored) != 3 {
		t.Fatalf("Expected 3 stored documents, got %d", len(stored))
	}
	doc := stored["/en-US/docs/Web/CSS/color"]
	if doc.Locale != "en-us" || doc.Slug != "Web/CSS/color" || doc.Body != "About Page 0" {
		t.Errorf("Unexpected document: %+v", doc)
	}

	output := out.String()
	if !strings.Contains(output, "Found 3 documents to index\n") {
		t.Errorf("Expected found line, got %q", output)
	}
	if !strings.Contains(output, "seconds to index 3 documents\n") {
		t.Errorf("Expected timing line, got %q", output)
	}

	if progress.total != 3 || progress.ticks != 3 || !progress.done {
		t.Errorf("Unexpected progress: %+v", progress)
	}

	run := lastRun(t, opts.StateDir)
	if run.ID != summary.RunID || run.Indexed != 3 || run.Found != 3 || run.Error != "" {
		t.Errorf("Unexpected run record: %+v", run)
	}
}

func TestRun_RecreatesExistingIndex(t *testing.T) {
	eng := enginetest.New()
	eng.AddIndex(testIndex, domain.Document{ID: "/en-US/docs/Stale"})
	opts, _, _ := testOptions(t, writeBuildRoot(t, threeURLs[:1]...))

	if _, err := New(eng).Run(context.Background(), opts); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	stored := eng.Documents(testIndex)
	if _, ok := stored["/en-US/docs/Stale"]; ok {
		t.Error("Expected stale document to be dropped with the index")
	}
	if len(stored) != 1 {
		t.Errorf("Expected 1 document, got %d", len(stored))
	}
}

func TestRun_UpdateKeepsIndex(t *testing.T) {
	eng := enginetest.New()
	eng.AddIndex(testIndex, domain.Document{ID: "/en-US/docs/Existing"})
	opts, _, _ := testOptions(t, writeBuildRoot(t, threeURLs...))
	opts.Update = true

	if _, err := New(eng).Run(context.Background(), opts); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	methods := eng.Methods()
	if slices.Contains(methods, "DeleteIndex") || slices.Contains(methods, "CreateIndex") {
		t.Errorf("Expected no recreation in update mode, got %v", methods)
	}
	if n := len(eng.Documents(testIndex)); n != 4 {
		t.Errorf("Expected existing plus 3 new documents, got %d", n)
	}
}

func TestRun_BuildRootMissing(t *testing.T) {
	eng := enginetest.New()
	opts, _, _ := testOptions(t, filepath.Join(t.TempDir(), "nope"))

	_, err := New(eng).Run(context.Background(), opts)
	if !errors.Is(err, ErrBuildRootMissing) {
		t.Errorf("Expected ErrBuildRootMissing, got %v", err)
	}
	if len(eng.GetCalls()) != 0 {
		t.Errorf("Expected no engine calls, got %v", eng.Methods())
	}
}

func TestRun_Unhealthy(t *testing.T) {
	eng := enginetest.New()
	eng.HealthStatus = engine.StatusRed
	eng.AddIndex(testIndex, domain.Document{ID: "/en-US/docs/Keep"})
	opts, out, _ := testOptions(t, writeBuildRoot(t, threeURLs...))

	_, err := New(eng).Run(context.Background(), opts)
	if !errors.Is(err, ErrUnhealthy) {
		t.Fatalf("Expected ErrUnhealthy, got %v", err)
	}
	if !strings.Contains(err.Error(), "status red not green or yellow") {
		t.Errorf("Unexpected message: %v", err)
	}
	if methods := eng.Methods(); !slices.Equal(methods, []string{"Health"}) {
		t.Errorf("Expected only a health check, got %v", methods)
	}
	if len(eng.Documents(testIndex)) != 1 {
		t.Error("Expected index to be untouched")
	}
	if out.Len() != 0 {
		t.Errorf("Expected no output, got %q", out.String())
	}
}

func TestRun_YellowIsAcceptable(t *testing.T) {
	eng := enginetest.New()
	eng.HealthStatus = engine.StatusYellow
	opts, _, _ := testOptions(t, writeBuildRoot(t, threeURLs...))

	if _, err := New(eng).Run(context.Background(), opts); err != nil {
		t.Errorf("Expected yellow health to be accepted, got %v", err)
	}
}

func TestRun_HealthError(t *testing.T) {
	eng := enginetest.New()
	eng.HealthErr = errors.New("unreachable")
	opts, _, _ := testOptions(t, writeBuildRoot(t, threeURLs...))

	if _, err := New(eng).Run(context.Background(), opts); err == nil {
		t.Error("Expected health error to abort the run")
	}
}

func TestRun_PartialFailure(t *testing.T) {
	eng := enginetest.New()
	eng.FailIDs["/en-US/docs/Web/HTML/Element/video"] = errors.New("mapper_parsing_exception")
	opts, out, progress := testOptions(t, writeBuildRoot(t, threeURLs...))

	summary, err := New(eng).Run(context.Background(), opts)
	if !errors.Is(err, ErrPartialFailure) {
		t.Fatalf("Expected ErrPartialFailure, got %v", err)
	}
	if summary.Indexed != 2 || summary.Failed != 1 {
		t.Errorf("Unexpected summary: %+v", summary)
	}
	if progress.ticks != 3 {
		t.Errorf("Expected one tick per document, got %d", progress.ticks)
	}
	if !strings.Contains(out.String(), "Failed to index 1 documents") {
		t.Errorf("Expected failure count in output, got %q", out.String())
	}

	run := lastRun(t, opts.StateDir)
	if run.Failed != 1 || run.Error == "" {
		t.Errorf("Expected failure recorded in manifest, got %+v", run)
	}
}

func TestRun_BulkError(t *testing.T) {
	eng := enginetest.New()
	eng.BulkErr = errors.New("connection reset")
	opts, _, _ := testOptions(t, writeBuildRoot(t, threeURLs...))

	_, err := New(eng).Run(context.Background(), opts)
	if err == nil || !strings.Contains(err.Error(), "connection reset") {
		t.Errorf("Expected wrapped bulk error, got %v", err)
	}
}

func TestRun_MappingErrorAborts(t *testing.T) {
	eng := enginetest.New()
	root := writeBuildRoot(t, threeURLs...)
	badPath := filepath.Join(root, "zz", docs.MarkerFilename)
	if err := os.MkdirAll(filepath.Dir(badPath), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(badPath, []byte(`{"no_doc": true}`), 0644); err != nil {
		t.Fatal(err)
	}
	opts, _, _ := testOptions(t, root)

	_, err := New(eng).Run(context.Background(), opts)

	var mappingErr *docs.MappingError
	if !errors.As(err, &mappingErr) {
		t.Fatalf("Expected MappingError, got %v", err)
	}
	if mappingErr.Path != badPath {
		t.Errorf("Expected path %s, got %s", badPath, mappingErr.Path)
	}

	run := lastRun(t, opts.StateDir)
	if run.Error == "" {
		t.Error("Expected the error to be recorded")
	}
}

func TestRun_Locked(t *testing.T) {
	eng := enginetest.New()
	opts, _, _ := testOptions(t, writeBuildRoot(t, threeURLs...))

	held := NewIndexLock(opts.StateDir, testIndex)
	if err := held.Acquire(); err != nil {
		t.Fatalf("Failed to take lock: %v", err)
	}
	defer releaseLock(t, held)

	_, err := New(eng).Run(context.Background(), opts)
	if !errors.Is(err, ErrLocked) {
		t.Errorf("Expected ErrLocked, got %v", err)
	}
	if slices.Contains(eng.Methods(), "DeleteIndex") {
		t.Error("Expected no mutation while locked")
	}
}

func TestRun_ChangedOnly(t *testing.T) {
	eng := enginetest.New()
	root := writeBuildRoot(t, threeURLs...)
	opts, _, _ := testOptions(t, root)

	l := New(eng)
	if _, err := l.Run(context.Background(), opts); err != nil {
		t.Fatalf("First run failed: %v", err)
	}

	opts.Update = true
	opts.ChangedOnly = true
	summary, err := l.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if summary.Skipped != 3 || summary.Indexed != 0 {
		t.Errorf("Expected all documents skipped, got %+v", summary)
	}

	// Touch one file into the future
	path := filepath.Join(root, "fr", "docs", "glossary", "html", docs.MarkerFilename)
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}

	summary, err = l.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Third run failed: %v", err)
	}
	if summary.Skipped != 2 || summary.Indexed != 1 {
		t.Errorf("Expected only the touched document, got %+v", summary)
	}
}

func TestRun_ChangedOnlyRequiresUpdate(t *testing.T) {
	eng := enginetest.New()
	opts, _, _ := testOptions(t, writeBuildRoot(t, threeURLs...))

	l := New(eng)
	if _, err := l.Run(context.Background(), opts); err != nil {
		t.Fatal(err)
	}

	// Without --update the index is rebuilt, so nothing can be skipped
	opts.ChangedOnly = true
	summary, err := l.Run(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Skipped != 0 || summary.Indexed != 3 {
		t.Errorf("Expected full reindex, got %+v", summary)
	}
}

func TestRun_EmptyBuildRoot(t *testing.T) {
	eng := enginetest.New()
	opts, out, _ := testOptions(t, t.TempDir())

	summary, err := New(eng).Run(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Found != 0 || summary.Indexed != 0 {
		t.Errorf("Unexpected summary: %+v", summary)
	}
	if !strings.Contains(out.String(), "Found 0 documents to index") {
		t.Errorf("Unexpected output: %q", out.String())
	}
}

func TestRun_UpdateCreatesMissingIndex(t *testing.T) {
	eng := enginetest.New()
	opts, out, _ := testOptions(t, writeBuildRoot(t, threeURLs...))
	opts.Update = true

	summary, err := New(eng).Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Indexed != 3 {
		t.Errorf("Expected 3 indexed documents, got %+v", summary)
	}

	expected := []string{"Health", "Count", "CreateIndex", "Bulk"}
	if methods := eng.Methods(); !slices.Equal(methods, expected) {
		t.Errorf("Expected calls %v, got %v", expected, methods)
	}
	if !strings.Contains(out.String(), "Index yari_doc does not exist, creating it") {
		t.Errorf("Expected creation notice, got %q", out.String())
	}
}

func TestRun_UpdateForgetsRemovedFiles(t *testing.T) {
	eng := enginetest.New()
	root := writeBuildRoot(t, threeURLs...)
	opts, out, _ := testOptions(t, root)

	l := New(eng)
	if _, err := l.Run(context.Background(), opts); err != nil {
		t.Fatalf("First run failed: %v", err)
	}

	removed := filepath.Join(root, "fr")
	if err := os.RemoveAll(removed); err != nil {
		t.Fatal(err)
	}

	opts.Update = true
	opts.ChangedOnly = true
	summary, err := l.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Update run failed: %v", err)
	}
	if summary.Forgotten != 1 || summary.Skipped != 2 {
		t.Errorf("Expected one forgotten file and two skipped, got %+v", summary)
	}
	if !strings.Contains(out.String(), "Forgot 1 files no longer in the build root") {
		t.Errorf("Expected forgotten line, got %q", out.String())
	}

	history, err := ReadHistory(opts.StateDir, testIndex)
	if err != nil {
		t.Fatal(err)
	}
	if history.TrackedFiles != 2 {
		t.Errorf("Expected 2 tracked files, got %d", history.TrackedFiles)
	}

	// Nothing left to forget
	summary, err = l.Run(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Forgotten != 0 {
		t.Errorf("Expected nothing forgotten, got %+v", summary)
	}
}

func TestReadHistory(t *testing.T) {
	stateDir := t.TempDir()

	history, err := ReadHistory(stateDir, testIndex)
	if err != nil {
		t.Fatalf("ReadHistory on empty state failed: %v", err)
	}
	if history.LastRun != nil || history.TrackedFiles != 0 || len(history.Failing) != 0 {
		t.Errorf("Expected empty history, got %+v", history)
	}

	eng := enginetest.New()
	opts, _, _ := testOptions(t, writeBuildRoot(t, threeURLs...))
	opts.StateDir = stateDir
	if _, err := New(eng).Run(context.Background(), opts); err != nil {
		t.Fatal(err)
	}

	eng.BulkErr = errors.New("connection reset")
	opts.Index = "other_index"
	if _, err := New(eng).Run(context.Background(), opts); err == nil {
		t.Fatal("Expected the other index run to fail")
	}

	history, err = ReadHistory(stateDir, testIndex)
	if err != nil {
		t.Fatal(err)
	}
	if history.LastRun == nil || history.LastRun.Indexed != 3 {
		t.Errorf("Unexpected last run: %+v", history.LastRun)
	}
	if history.TrackedFiles != 3 {
		t.Errorf("Expected 3 tracked files, got %d", history.TrackedFiles)
	}
	if msg, ok := history.Failing["other_index"]; !ok || !strings.Contains(msg, "connection reset") {
		t.Errorf("Expected other_index to be failing, got %v", history.Failing)
	}
	if _, ok := history.Failing[testIndex]; ok {
		t.Error("Expected the read index to be excluded from failing indexes")
	}
}
