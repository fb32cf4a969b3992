package blevengine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/sha1n/yari-search/internal/domain"
	"github.com/sha1n/yari-search/internal/engine"
)

const (
	// minSuggestLength is the shortest token that gets term suggestions.
	minSuggestLength = 4

	// maxEdits is the largest edit distance of a term suggestion.
	maxEdits = 2

	defaultSuggestSize = 5
)

// Suggest runs term and completion suggesters against the index.
func (e *Engine) Suggest(ctx context.Context, name string, reqs []engine.SuggestRequest) (map[string][]engine.SuggestEntry, error) {
	idx, indexes, err := e.reader(name)
	if err != nil {
		return nil, err
	}

	result := make(map[string][]engine.SuggestEntry, len(reqs))
	// Dictionaries are shared by suggesters on the same field
	dicts := make(map[string]map[string]uint64)

	for _, req := range reqs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		size := req.Size
		if size <= 0 {
			size = defaultSuggestSize
		}

		switch req.Kind {
		case engine.SuggestTerm, "":
			dict, ok := dicts[req.Field]
			if !ok {
				dict, err = fieldDictionary(indexes, req.Field)
				if err != nil {
					return nil, err
				}
				dicts[req.Field] = dict
			}
			entries, err := termSuggestions(indexes[0], dict, req, size)
			if err != nil {
				return nil, err
			}
			result[req.Name] = entries

		case engine.SuggestCompletion:
			entry, err := completion(ctx, idx, req, size)
			if err != nil {
				return nil, err
			}
			result[req.Name] = []engine.SuggestEntry{entry}

		default:
			return nil, fmt.Errorf("unsupported suggester kind %q", req.Kind)
		}
	}

	return result, nil
}

// fieldDictionary collects every indexed term of a field with its document frequency.
func fieldDictionary(indexes []bleve.Index, field string) (map[string]uint64, error) {
	dict := make(map[string]uint64)
	for _, idx := range indexes {
		fieldDict, err := idx.FieldDict(field)
		if err != nil {
			return nil, fmt.Errorf("failed to read dictionary for %s: %w", field, err)
		}

		entry, err := fieldDict.Next()
		for err == nil && entry != nil {
			dict[entry.Term] += entry.Count
			entry, err = fieldDict.Next()
		}
		_ = fieldDict.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read dictionary for %s: %w", field, err)
		}
	}
	return dict, nil
}

// termSuggestions proposes dictionary terms for every analyzed token of the
// text that is long enough and absent from the dictionary.
func termSuggestions(idx bleve.Index, dict map[string]uint64, req engine.SuggestRequest, size int) ([]engine.SuggestEntry, error) {
	indexMapping := idx.Mapping()
	analyzer := indexMapping.AnalyzerNamed(indexMapping.AnalyzerNameForPath(req.Field))
	if analyzer == nil {
		return nil, fmt.Errorf("%w: for field %s", engine.ErrUnknownAnalyzer, req.Field)
	}

	tokens := analyzer.Analyze([]byte(req.Text))
	entries := make([]engine.SuggestEntry, 0, len(tokens))
	for _, token := range tokens {
		term := string(token.Term)
		entry := engine.SuggestEntry{
			Text:    req.Text[token.Start:token.End],
			Offset:  token.Start,
			Length:  token.End - token.Start,
			Options: []engine.SuggestOption{},
		}

		if utf8.RuneCountInString(term) >= minSuggestLength {
			if _, found := dict[term]; !found {
				entry.Options = candidates(dict, term, size)
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// candidates returns the closest dictionary terms sharing the first character.
func candidates(dict map[string]uint64, term string, size int) []engine.SuggestOption {
	first, _ := utf8.DecodeRuneInString(term)
	termLen := utf8.RuneCountInString(term)

	var options []engine.SuggestOption
	for candidate, freq := range dict {
		if r, _ := utf8.DecodeRuneInString(candidate); r != first {
			continue
		}
		candidateLen := utf8.RuneCountInString(candidate)
		if abs(candidateLen-termLen) > maxEdits {
			continue
		}

		distance := search.LevenshteinDistance(term, candidate)
		if distance == 0 || distance > maxEdits {
			continue
		}

		options = append(options, engine.SuggestOption{
			Text:  candidate,
			Score: 1 - float64(distance)/float64(max(termLen, candidateLen)),
			Freq:  freq,
		})
	}

	sort.Slice(options, func(i, j int) bool {
		if options[i].Score != options[j].Score {
			return options[i].Score > options[j].Score
		}
		if options[i].Freq != options[j].Freq {
			return options[i].Freq > options[j].Freq
		}
		return options[i].Text < options[j].Text
	})

	if len(options) > size {
		options = options[:size]
	}
	return options
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// completion returns the most popular titles starting with the text.
func completion(ctx context.Context, idx bleve.Index, req engine.SuggestRequest, size int) (engine.SuggestEntry, error) {
	entry := engine.SuggestEntry{
		Text:    req.Text,
		Length:  len(req.Text),
		Options: []engine.SuggestOption{},
	}

	prefix := strings.ToLower(req.Text)
	if prefix == "" {
		return entry, nil
	}

	prefixQuery := bleve.NewPrefixQuery(prefix)
	prefixQuery.SetField(req.Field)

	searchReq := bleve.NewSearchRequestOptions(prefixQuery, size, 0, false)
	searchReq.Fields = []string{domain.FieldTitle}
	searchReq.SortBy([]string{"-" + domain.FieldPopularity})

	results, err := idx.SearchInContext(ctx, searchReq)
	if err != nil {
		return entry, fmt.Errorf("completion failed: %w", err)
	}

	for _, hit := range results.Hits {
		title, _ := hit.Fields[domain.FieldTitle].(string)
		if title == "" {
			continue
		}
		entry.Options = append(entry.Options, engine.SuggestOption{Text: title, Score: 1})
	}
	return entry, nil
}
