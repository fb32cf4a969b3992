package domain

import (
	"encoding/json"
	"testing"
)

func TestSourceRecord_Unmarshal(t *testing.T) {
	data := `{
		"doc": {
			"mdn_url": "/en-US/docs/Web/CSS/color",
			"title": "color",
			"popularity": 0.42,
			"isArchive": true,
			"body": [
				{"type": "prose", "value": {"id": "syntax", "content": "<p>Sets the color.</p>"}},
				{"type": "browser_compatibility", "value": {"query": "css.properties.color"}},
				{"type": "specifications", "value": [1, 2, 3]}
			]
		}
	}`

	var record SourceRecord
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if record.Doc == nil {
		t.Fatal("Expected doc to be decoded")
	}
	if record.Doc.MDNURL != "/en-US/docs/Web/CSS/color" {
		t.Errorf("MDNURL = %q", record.Doc.MDNURL)
	}
	if record.Doc.Popularity != 0.42 {
		t.Errorf("Popularity = %v, want 0.42", record.Doc.Popularity)
	}
	if !record.Doc.IsArchive {
		t.Error("Expected IsArchive to be true")
	}
	if len(record.Doc.Body) != 3 {
		t.Fatalf("Body blocks = %d, want 3", len(record.Doc.Body))
	}

	var prose ProseValue
	if err := json.Unmarshal(record.Doc.Body[0].Value, &prose); err != nil {
		t.Fatalf("Prose value unmarshal failed: %v", err)
	}
	if prose.Content != "<p>Sets the color.</p>" {
		t.Errorf("Content = %q", prose.Content)
	}
}

func TestSourceRecord_MissingDoc(t *testing.T) {
	var record SourceRecord
	if err := json.Unmarshal([]byte(`{"other": {}}`), &record); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if record.Doc != nil {
		t.Error("Expected nil doc when the key is absent")
	}
}

func TestDocumentFromFields(t *testing.T) {
	fields := map[string]any{
		FieldTitle:      "color",
		FieldSlug:       "Web/CSS/color",
		FieldLocale:     "en-us",
		FieldPopularity: 0.42,
		FieldArchived:   true,
		FieldBody:       "Sets the color.",
	}

	doc := DocumentFromFields("/en-US/docs/Web/CSS/color", fields)

	if doc.ID != "/en-US/docs/Web/CSS/color" {
		t.Errorf("ID = %q", doc.ID)
	}
	if doc.Title != "color" || doc.Slug != "Web/CSS/color" || doc.Locale != "en-us" {
		t.Errorf("Unexpected text fields: %+v", doc)
	}
	if doc.Popularity != 0.42 {
		t.Errorf("Popularity = %v", doc.Popularity)
	}
	if !doc.Archived {
		t.Error("Expected Archived to be true")
	}
	if doc.Body != "Sets the color." {
		t.Errorf("Body = %q", doc.Body)
	}
}

func TestDocumentFromFields_MissingAndMistyped(t *testing.T) {
	doc := DocumentFromFields("x", map[string]any{
		FieldTitle:      42,
		FieldPopularity: "high",
	})

	if doc.Title != "" {
		t.Errorf("Expected empty title for mistyped field, got %q", doc.Title)
	}
	if doc.Popularity != 0 {
		t.Errorf("Expected zero popularity, got %v", doc.Popularity)
	}
	if doc.Archived {
		t.Error("Expected Archived to default to false")
	}
}
