package domain

import "encoding/json"

// SourceRecord is the content of a single index.json file produced by the
// documentation build. Only the fields the indexer needs are decoded.
type SourceRecord struct {
	Doc *SourceDoc `json:"doc"`
}

// SourceDoc is the "doc" object of a SourceRecord.
type SourceDoc struct {
	// MDNURL is the canonical URL, e.g. "/en-US/docs/Web/CSS/color".
	MDNURL     string      `json:"mdn_url"`
	Title      string      `json:"title"`
	Popularity float64     `json:"popularity"`
	IsArchive  bool        `json:"isArchive"`
	Body       []BodyBlock `json:"body"`
}

// BodyBlock is one typed section of a page body. Value is kept raw because
// its shape depends on Type; only prose blocks are decoded.
type BodyBlock struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// ProseValue is the value of a BodyBlock whose type is BlockTypeProse.
type ProseValue struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// BlockTypeProse marks narrative body blocks, the only ones that are indexed.
const BlockTypeProse = "prose"

// Document is the record submitted to the search engine for one page.
// It is built per source file during an indexing pass and then discarded.
type Document struct {
	// ID is the canonical URL and the engine's document key.
	ID string `json:"id"`

	Title string `json:"title"`

	// TitleSuggest mirrors Title into the completion field.
	TitleSuggest string `json:"title_suggest"`

	// Body is the newline-joined prose content, optionally stripped of markup.
	Body string `json:"body"`

	// Locale is the lowercased path segment before "/docs/".
	Locale string `json:"locale"`

	// Slug is everything after "/docs/".
	Slug string `json:"slug"`

	Popularity float64 `json:"popularity"`
	Archived   bool    `json:"archived"`
}

// Field name constants shared by the schema, the query builder and the renderer.
const (
	FieldID           = "id"
	FieldTitle        = "title"
	FieldTitleSuggest = "title_suggest"
	FieldBody         = "body"
	FieldLocale       = "locale"
	FieldSlug         = "slug"
	FieldPopularity   = "popularity"
	FieldArchived     = "archived"
)

// DocumentFromFields rebuilds a Document from the stored fields an engine
// returns for a hit. Missing or mistyped fields are left at their zero value.
func DocumentFromFields(id string, fields map[string]any) Document {
	doc := Document{ID: id}
	doc.Title, _ = fields[FieldTitle].(string)
	doc.Body, _ = fields[FieldBody].(string)
	doc.Locale, _ = fields[FieldLocale].(string)
	doc.Slug, _ = fields[FieldSlug].(string)
	doc.Archived, _ = fields[FieldArchived].(bool)

	switch p := fields[FieldPopularity].(type) {
	case float64:
		doc.Popularity = p
	case float32:
		doc.Popularity = float64(p)
	case int:
		doc.Popularity = float64(p)
	}
	return doc
}
