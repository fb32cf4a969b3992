package blevengine

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/analysis/char/html"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/token/porter"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/single"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/sha1n/yari-search/internal/domain"
)

const (
	// BodyAnalyzer strips markup, folds diacritics, drops English stop words and stems.
	BodyAnalyzer = "yari_body"

	// TitleAnalyzer is BodyAnalyzer without markup stripping, stop words or stemming.
	TitleAnalyzer = "yari_title"

	// SuggestAnalyzer keeps the whole value as one lowercased token for prefix completion.
	SuggestAnalyzer = "yari_suggest"
)

var customAnalyzers = map[string]map[string]any{
	BodyAnalyzer: {
		"type":          custom.Name,
		"char_filters":  []string{html.Name},
		"tokenizer":     unicode.Name,
		"token_filters": []string{lowercase.Name, FoldName, en.StopName, porter.Name},
	},
	TitleAnalyzer: {
		"type":          custom.Name,
		"tokenizer":     unicode.Name,
		"token_filters": []string{lowercase.Name, FoldName},
	},
	SuggestAnalyzer: {
		"type":          custom.Name,
		"tokenizer":     single.Name,
		"token_filters": []string{lowercase.Name},
	},
}

// CreateIndexMapping creates the Bleve index mapping for documentation pages.
func CreateIndexMapping() (mapping.IndexMapping, error) {
	indexMapping := bleve.NewIndexMapping()
	for name, config := range customAnalyzers {
		if err := indexMapping.AddCustomAnalyzer(name, config); err != nil {
			return nil, fmt.Errorf("failed to add analyzer %s: %w", name, err)
		}
	}

	docMapping := bleve.NewDocumentMapping()
	docMapping.Dynamic = false

	// ID - stored but not indexed (we use the document ID)
	idField := bleve.NewTextFieldMapping()
	idField.Index = false
	idField.Store = true
	docMapping.AddFieldMappingsAt(domain.FieldID, idField)

	titleField := bleve.NewTextFieldMapping()
	titleField.Analyzer = TitleAnalyzer
	titleField.Store = true
	titleField.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt(domain.FieldTitle, titleField)

	// Completion target, never returned
	suggestField := bleve.NewTextFieldMapping()
	suggestField.Analyzer = SuggestAnalyzer
	suggestField.Store = false
	suggestField.IncludeInAll = false
	docMapping.AddFieldMappingsAt(domain.FieldTitleSuggest, suggestField)

	bodyField := bleve.NewTextFieldMapping()
	bodyField.Analyzer = BodyAnalyzer
	bodyField.Store = true
	bodyField.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt(domain.FieldBody, bodyField)

	for _, name := range []string{domain.FieldLocale, domain.FieldSlug} {
		field := bleve.NewTextFieldMapping()
		field.Analyzer = keyword.Name
		field.Store = true
		field.IncludeInAll = false
		docMapping.AddFieldMappingsAt(name, field)
	}

	popularityField := bleve.NewNumericFieldMapping()
	popularityField.Store = true
	popularityField.IncludeInAll = false
	docMapping.AddFieldMappingsAt(domain.FieldPopularity, popularityField)

	archivedField := bleve.NewBooleanFieldMapping()
	archivedField.Store = true
	archivedField.IncludeInAll = false
	docMapping.AddFieldMappingsAt(domain.FieldArchived, archivedField)

	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = standard.Name

	return indexMapping, nil
}

// storedFields are returned with hits when a request has no explicit includes.
var storedFields = []string{
	domain.FieldTitle,
	domain.FieldBody,
	domain.FieldLocale,
	domain.FieldSlug,
	domain.FieldPopularity,
	domain.FieldArchived,
}
