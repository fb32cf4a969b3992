package docs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sha1n/yari-search/internal/domain"
)

// docsSeparator splits a canonical URL into locale and slug.
const docsSeparator = "/docs/"

var (
	// ErrMissingDoc indicates the top-level "doc" object is absent
	ErrMissingDoc = errors.New(`missing top-level "doc" key`)

	// ErrBadURL indicates a canonical URL that cannot be split into locale and slug
	ErrBadURL = errors.New("canonical URL cannot be split into locale and slug")
)

// MappingError reports a source file that could not be turned into a document.
type MappingError struct {
	Path string
	Err  error
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("failed to map %s: %v", e.Path, e.Err)
}

func (e *MappingError) Unwrap() error {
	return e.Err
}

// Options controls how source records are mapped.
type Options struct {
	// StripHTML reduces each prose block to plain text.
	StripHTML bool
}

// ReadDocument reads and maps a single index.json file.
func ReadDocument(path string, opts Options) (domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, &MappingError{Path: path, Err: err}
	}

	doc, err := MapRecord(data, opts)
	if err != nil {
		return domain.Document{}, &MappingError{Path: path, Err: err}
	}
	return doc, nil
}

// MapRecord maps the raw JSON of a source record into a Document.
func MapRecord(data []byte, opts Options) (domain.Document, error) {
	var record domain.SourceRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return domain.Document{}, fmt.Errorf("invalid JSON: %w", err)
	}
	if record.Doc == nil {
		return domain.Document{}, ErrMissingDoc
	}
	src := record.Doc

	locale, slug, err := SplitURL(src.MDNURL)
	if err != nil {
		return domain.Document{}, err
	}

	body, err := proseBody(src.Body, opts.StripHTML)
	if err != nil {
		return domain.Document{}, err
	}

	return domain.Document{
		ID:           src.MDNURL,
		Title:        src.Title,
		TitleSuggest: src.Title,
		Body:         body,
		Locale:       locale,
		Slug:         slug,
		Popularity:   src.Popularity,
		Archived:     src.IsArchive,
	}, nil
}

// SplitURL splits "/<locale>/docs/<slug>" into a lowercased locale and the slug.
// URLs without a leading slash, or with zero or several "/docs/" separators,
// are rejected.
func SplitURL(url string) (locale, slug string, err error) {
	if !strings.HasPrefix(url, "/") || strings.Count(url, docsSeparator) != 1 {
		return "", "", fmt.Errorf("%w: %q", ErrBadURL, url)
	}

	before, after, _ := strings.Cut(url, docsSeparator)
	locale = strings.TrimPrefix(before, "/")
	if locale == "" || strings.Contains(locale, "/") || after == "" {
		return "", "", fmt.Errorf("%w: %q", ErrBadURL, url)
	}

	return strings.ToLower(locale), after, nil
}

// proseBody joins the content of all prose blocks with newlines.
func proseBody(blocks []domain.BodyBlock, strip bool) (string, error) {
	var parts []string
	for _, block := range blocks {
		if block.Type != domain.BlockTypeProse {
			continue
		}

		var value domain.ProseValue
		if err := json.Unmarshal(block.Value, &value); err != nil {
			return "", fmt.Errorf("invalid prose block: %w", err)
		}

		content := value.Content
		if strip {
			content = StripHTML(content)
			if content == "" {
				continue
			}
		}
		parts = append(parts, content)
	}
	return strings.Join(parts, "\n"), nil
}
