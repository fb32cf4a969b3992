package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/yari-search/internal/engine"
	"github.com/sha1n/yari-search/internal/engine/enginetest"
	"github.com/sha1n/yari-search/internal/search"
)

func setupReadHandler(eng *enginetest.FakeEngine) *ReadHandler {
	return NewReadHandler(search.NewSearcher(eng, "yari_doc", nil))
}

func TestReadHandler_Validation(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		errContains string
	}{
		{"empty", "  ", "URL cannot be empty"},
		{"no docs segment", "/en-US/Web/CSS/color", "Invalid URL"},
		{"relative", "en-US/docs/Web", "Invalid URL"},
		{"no slug", "/en-US/docs/", "Invalid URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := enginetest.New()
			handler := setupReadHandler(eng)

			result, _, err := handler.Handle(context.Background(), &mcp.CallToolRequest{}, ReadArgument{URL: tt.url})
			if err != nil {
				t.Fatalf("Handle returned error: %v", err)
			}
			if !result.IsError {
				t.Fatal("Expected error result")
			}
			if !strings.Contains(extractTextContent(result), tt.errContains) {
				t.Errorf("Expected %q, got %q", tt.errContains, extractTextContent(result))
			}
			if len(eng.Searches()) != 0 {
				t.Error("Expected no lookup for an invalid URL")
			}
		})
	}
}

func TestReadHandler_Found(t *testing.T) {
	eng := enginetest.New()
	page := hit("/en-US/docs/Web/CSS/color", "color", "Web/CSS/color", 0.42)
	page.Fields["body"] = "Sets the foreground color of text."
	page.Fields["archived"] = true
	eng.SearchResponse = &engine.SearchResponse{Total: 1, Hits: []engine.Hit{page}}
	handler := setupReadHandler(eng)

	result, _, err := handler.Handle(context.Background(), &mcp.CallToolRequest{}, ReadArgument{URL: "/en-US/docs/Web/CSS/color"})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if result.IsError {
		t.Fatalf("Expected success, got: %s", extractTextContent(result))
	}

	text := extractTextContent(result)
	for _, want := range []string{
		"# color",
		"**URL**: /en-US/docs/Web/CSS/color",
		"**Popularity**: 0.42",
		"**Archived**",
		"Sets the foreground color of text.",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in output, got:\n%s", want, text)
		}
	}
	if strings.Contains(text, "truncated") {
		t.Error("Expected no truncation for a short body")
	}

	req := eng.Searches()[0]
	if len(req.IDs) != 1 || req.IDs[0] != "/en-US/docs/Web/CSS/color" {
		t.Errorf("Expected lookup by URL, got %+v", req.IDs)
	}
}

func TestReadHandler_Truncates(t *testing.T) {
	eng := enginetest.New()
	page := hit("/en-US/docs/Web/CSS/color", "color", "Web/CSS/color", 0.42)
	page.Fields["body"] = strings.Repeat("a", MaxBodySize+10)
	eng.SearchResponse = &engine.SearchResponse{Total: 1, Hits: []engine.Hit{page}}
	handler := setupReadHandler(eng)

	result, _, err := handler.Handle(context.Background(), &mcp.CallToolRequest{}, ReadArgument{URL: "/en-US/docs/Web/CSS/color"})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}

	text := extractTextContent(result)
	if strings.Contains(text, strings.Repeat("a", MaxBodySize+1)) {
		t.Error("Expected body to be truncated")
	}
	if !strings.Contains(text, "truncated at 65536 bytes of 65546") {
		t.Errorf("Expected truncation note, got tail: %q", text[len(text)-80:])
	}
}

func TestReadHandler_NotFound(t *testing.T) {
	eng := enginetest.New()
	handler := setupReadHandler(eng)

	result, _, err := handler.Handle(context.Background(), &mcp.CallToolRequest{}, ReadArgument{URL: "/en-US/docs/Missing"})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if !result.IsError || !strings.Contains(extractTextContent(result), "Page not found: /en-US/docs/Missing") {
		t.Errorf("Expected not-found error, got: %s", extractTextContent(result))
	}
}

func TestReadHandler_EngineError(t *testing.T) {
	eng := enginetest.New()
	eng.SearchErr = errors.New("index closed")
	handler := setupReadHandler(eng)

	result, _, err := handler.Handle(context.Background(), &mcp.CallToolRequest{}, ReadArgument{URL: "/en-US/docs/Web"})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if !result.IsError || !strings.Contains(extractTextContent(result), "Read failed") {
		t.Errorf("Expected read failure, got: %s", extractTextContent(result))
	}
}

func TestReadHandler_GetToolDefinition(t *testing.T) {
	tool := setupReadHandler(enginetest.New()).GetToolDefinition()
	if tool.Name != "read_doc" {
		t.Errorf("Expected read_doc, got %s", tool.Name)
	}
}
