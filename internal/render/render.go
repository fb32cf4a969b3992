// Package render writes search results, suggestions and status to a terminal.
package render

import (
	"fmt"
	"html"
	"io"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"
	"github.com/sha1n/yari-search/internal/engine"
	"github.com/sha1n/yari-search/internal/loader"
	"github.com/sha1n/yari-search/internal/search"
)

const (
	// SuggestionThreshold is the minimum score of a displayed suggestion.
	SuggestionThreshold = 0.75

	TitleWidth = 50
	SlugWidth  = 70
)

// FilterSuggestions keeps options scoring above SuggestionThreshold,
// de-duplicated case-insensitively. The first-seen spelling wins and
// groups are scanned in order.
func FilterSuggestions(groups ...[]engine.SuggestEntry) []string {
	seen := make(map[string]bool)
	var suggestions []string

	for _, entries := range groups {
		for _, entry := range entries {
			for _, option := range entry.Options {
				if option.Score <= SuggestionThreshold {
					continue
				}
				key := strings.ToLower(option.Text)
				if seen[key] {
					continue
				}
				seen[key] = true
				suggestions = append(suggestions, option.Text)
			}
		}
	}
	return suggestions
}

// Renderer writes human-readable output.
type Renderer struct {
	out    io.Writer
	styles Styles
}

// New creates a renderer writing to out.
func New(out io.Writer) *Renderer {
	return &Renderer{out: out, styles: NewStyles(out)}
}

// Suggestions prints the "Did you mean..." block. Nothing is printed for
// an empty list.
func (r *Renderer) Suggestions(suggestions []string) {
	if len(suggestions) == 0 {
		return
	}
	fmt.Fprintln(r.out, r.styles.Header.Render("Did you mean..."))
	for _, s := range suggestions {
		fmt.Fprintln(r.out, "\t"+r.styles.Suggestion.Render(s)+"?")
	}
}

// Summary prints the hit count and the client-side latency.
func (r *Renderer) Summary(total uint64, took time.Duration) {
	ms := float64(took.Microseconds()) / 1000
	fmt.Fprintf(r.out, "%s pages found in %.1fms\n", humanize.Comma(int64(total)), ms)
}

// Hits prints one line per result, followed by its body excerpts when
// highlights are shown.
func (r *Renderer) Hits(results []search.Result, showHighlights bool) {
	for _, result := range results {
		r.hit(result, showHighlights)
	}
}

func (r *Renderer) hit(result search.Result, showHighlights bool) {
	doc := result.Document

	var line strings.Builder
	if doc.Archived {
		line.WriteString(r.styles.Archived.Render("Archived "))
	}

	if showHighlights && len(result.TitleFragments) > 0 {
		line.WriteString(Column(r.mark(result.TitleFragments[0]), TitleWidth))
		line.WriteString(r.styles.Hit.Render(Column(doc.Slug, SlugWidth)))
	} else {
		line.WriteString(r.styles.Hit.Render(Column(doc.Title, TitleWidth) + Column(doc.Slug, SlugWidth)))
	}
	line.WriteString(FormatPopularity(doc.Popularity))
	fmt.Fprintln(r.out, line.String())

	if !showHighlights {
		return
	}
	for _, fragment := range result.BodyFragments {
		fmt.Fprintln(r.out, r.mark(fragment))
	}
	fmt.Fprintln(r.out)
}

// mark styles highlight markers, decodes entities and flattens a fragment to one line.
func (r *Renderer) mark(fragment string) string {
	var sb strings.Builder
	rest := fragment
	for {
		start := strings.Index(rest, search.PreTag)
		if start < 0 {
			break
		}
		end := strings.Index(rest[start:], search.PostTag)
		if end < 0 {
			break
		}
		end += start

		sb.WriteString(html.UnescapeString(rest[:start]))
		sb.WriteString(r.styles.Mark.Render(html.UnescapeString(rest[start+len(search.PreTag) : end])))
		rest = rest[end+len(search.PostTag):]
	}
	sb.WriteString(html.UnescapeString(rest))

	return strings.ReplaceAll(strings.TrimSpace(sb.String()), "\n", " ")
}

// Column pads or truncates s to exactly width terminal cells.
func Column(s string, width int) string {
	if ansi.StringWidth(s) > width {
		s = ansi.Truncate(s, width, "")
	}
	if pad := width - ansi.StringWidth(s); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s
}

// FormatPopularity rounds to 6 decimals without trailing zeros.
func FormatPopularity(p float64) string {
	return strconv.FormatFloat(math.Round(p*1e6)/1e6, 'f', -1, 64)
}

// Tokens prints analyzer output, one token per line.
func (r *Renderer) Tokens(tokens []engine.Token) {
	for _, t := range tokens {
		fmt.Fprintf(r.out, "%-4d %s %s %s\n",
			t.Position,
			r.styles.Hit.Render(Column(t.Term, 24)),
			Column(fmt.Sprintf("%d-%d", t.Start, t.End), 10),
			r.styles.Muted.Render(t.Type))
	}
}

// Completions prints completion options, one per line.
func (r *Renderer) Completions(options []engine.SuggestOption) {
	for _, option := range options {
		fmt.Fprintln(r.out, option.Text)
	}
}

// Status is the information shown by the status command.
type Status struct {
	Health engine.Health
	Index  string

	// Documents is nil when the index does not exist.
	Documents *uint64

	LastRun *loader.RunRecord

	// TrackedFiles is the number of files with recorded state.
	TrackedFiles int

	// Failing lists other indexes whose last run failed.
	Failing map[string]string
}

// Status prints engine health, index size and the last indexing run.
func (r *Renderer) Status(s Status) {
	health := string(s.Health.Status)
	switch s.Health.Status {
	case engine.StatusGreen:
		health = r.styles.Good.Render(health)
	case engine.StatusYellow:
		health = r.styles.Warning.Render(health)
	default:
		health = r.styles.Bad.Render(health)
	}
	fmt.Fprintf(r.out, "Health:    %s\n", health)
	if s.Health.Reason != "" {
		fmt.Fprintf(r.out, "           %s\n", r.styles.Muted.Render(s.Health.Reason))
	}
	fmt.Fprintf(r.out, "Hosts:     %s\n", strings.Join(s.Health.Hosts, ", "))

	if s.Documents == nil {
		fmt.Fprintf(r.out, "Index:     %s (missing)\n", s.Index)
	} else {
		fmt.Fprintf(r.out, "Index:     %s (%s documents)\n", s.Index, humanize.Comma(int64(*s.Documents)))
	}

	fmt.Fprintf(r.out, "Tracked:   %s files\n", humanize.Comma(int64(s.TrackedFiles)))

	if s.LastRun == nil {
		fmt.Fprintln(r.out, "Last run:  never")
	} else {
		run := s.LastRun
		fmt.Fprintf(r.out, "Last run:  %s (%s, took %.1fs)\n",
			run.ID, humanize.Time(run.FinishedAt), run.Duration().Seconds())
		fmt.Fprintf(r.out, "           %s indexed, %s failed, %s skipped of %s found in %s\n",
			humanize.Comma(int64(run.Indexed)), humanize.Comma(int64(run.Failed)),
			humanize.Comma(int64(run.Skipped)), humanize.Comma(int64(run.Found)), run.BuildRoot)
		if run.Error != "" {
			fmt.Fprintf(r.out, "           %s\n", r.styles.Bad.Render(run.Error))
		}
	}

	if len(s.Failing) == 0 {
		return
	}
	names := slices.Sorted(maps.Keys(s.Failing))
	fmt.Fprintln(r.out, "Failing:")
	for _, name := range names {
		fmt.Fprintf(r.out, "  %s: %s\n", name, r.styles.Bad.Render(s.Failing[name]))
	}
}
