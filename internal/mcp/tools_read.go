package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/yari-search/internal/docs"
	"github.com/sha1n/yari-search/internal/render"
	"github.com/sha1n/yari-search/internal/search"
)

// MaxBodySize caps the body characters returned by read_doc.
const MaxBodySize = 64 * 1024

// ReadArgument defines read parameters.
type ReadArgument struct {
	URL string `json:"url" jsonschema_description:"Canonical page URL as returned by search_docs (e.g., /en-US/docs/Web/CSS/color)"`
}

// ReadHandler handles the read_doc MCP tool.
type ReadHandler struct {
	searcher *search.Searcher
}

// NewReadHandler creates a new read handler.
func NewReadHandler(searcher *search.Searcher) *ReadHandler {
	return &ReadHandler{
		searcher: searcher,
	}
}

// Handle looks up a page and returns its indexed content.
func (h *ReadHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args ReadArgument) (*mcp.CallToolResult, any, error) {
	url := strings.TrimSpace(args.URL)
	if url == "" {
		return errorResult("URL cannot be empty"), nil, nil
	}

	// Same shape check the indexer applies to every page
	if _, _, err := docs.SplitURL(url); err != nil {
		return errorResult(fmt.Sprintf("Invalid URL: %s", err)), nil, nil
	}

	result, err := h.searcher.Get(ctx, url)
	if errors.Is(err, search.ErrPageNotFound) {
		return errorResult(fmt.Sprintf("Page not found: %s", url)), nil, nil
	}
	if err != nil {
		return errorResult(fmt.Sprintf("Read failed: %s", err)), nil, nil
	}

	doc := result.Document
	body := doc.Body
	truncated := false
	if len(body) > MaxBodySize {
		body = strings.ToValidUTF8(body[:MaxBodySize], "")
		truncated = true
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s\n\n", doc.Title))
	sb.WriteString(fmt.Sprintf("**URL**: %s\n", doc.ID))
	sb.WriteString(fmt.Sprintf("**Slug**: %s | **Locale**: %s | **Popularity**: %s\n",
		doc.Slug, doc.Locale, render.FormatPopularity(doc.Popularity)))
	if doc.Archived {
		sb.WriteString("**Archived**\n")
	}
	sb.WriteString("\n")
	sb.WriteString(body)
	sb.WriteString("\n")
	if truncated {
		sb.WriteString(fmt.Sprintf("\n... truncated at %d bytes of %d\n", MaxBodySize, len(doc.Body)))
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: sb.String()},
		},
	}, nil, nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *ReadHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "read_doc",
		Description: "Read the indexed text of a documentation page by its canonical URL",
	}
}

// RegisterReadTool registers the read tool with an MCP server.
func RegisterReadTool(server *mcp.Server, searcher *search.Searcher) {
	handler := NewReadHandler(searcher)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}
