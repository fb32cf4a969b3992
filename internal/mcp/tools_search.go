package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/yari-search/internal/render"
	"github.com/sha1n/yari-search/internal/search"
)

// MaxSize caps the number of hits a tool call can request.
const MaxSize = 50

// SearchArgument defines search parameters.
type SearchArgument struct {
	Query  string `json:"query" jsonschema_description:"Free-text query matched against page titles and bodies"`
	Locale string `json:"locale,omitempty" jsonschema_description:"Restrict results to one locale, e.g. en-US"`
	Size   int    `json:"size,omitempty" jsonschema_description:"Maximum number of results"`
}

// SearchHandler handles the search_docs MCP tool.
type SearchHandler struct {
	searcher    *search.Searcher
	defaultSize int
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(searcher *search.Searcher, defaultSize int) *SearchHandler {
	if defaultSize <= 0 {
		defaultSize = search.DefaultSize
	}
	return &SearchHandler{
		searcher:    searcher,
		defaultSize: defaultSize,
	}
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
		IsError: true,
	}
}

// Handle executes the search and returns formatted results.
func (h *SearchHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args SearchArgument) (*mcp.CallToolResult, any, error) {
	query := strings.TrimSpace(args.Query)
	if query == "" {
		return errorResult("Query cannot be empty"), nil, nil
	}

	size := args.Size
	if size <= 0 {
		size = h.defaultSize
	}
	size = min(size, MaxSize)

	resp, err := h.searcher.Search(ctx, query, search.Options{
		Locale:    args.Locale,
		Size:      size,
		Highlight: true,
	})
	if err != nil {
		return errorResult(fmt.Sprintf("Search failed: %s", err)), nil, nil
	}

	return formatResults(resp, query), nil, nil
}

// formatResults formats a search response as Markdown.
func formatResults(resp *search.Response, query string) *mcp.CallToolResult {
	var sb strings.Builder

	if suggestions := render.FilterSuggestions(resp.TitleSuggestions, resp.BodySuggestions); len(suggestions) > 0 {
		sb.WriteString(fmt.Sprintf("Did you mean: %s?\n\n", strings.Join(suggestions, ", ")))
	}

	if resp.Total == 0 {
		sb.WriteString(fmt.Sprintf("No results found for query: %s", query))
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: sb.String()},
			},
		}
	}

	sb.WriteString(fmt.Sprintf("Found %d results for '%s':\n\n", resp.Total, query))

	for i, result := range resp.Results {
		doc := result.Document
		sb.WriteString(fmt.Sprintf("### %d. %s\n", i+1, doc.Title))
		sb.WriteString(fmt.Sprintf("**Slug**: %s | **Locale**: %s | **Popularity**: %s\n",
			doc.Slug, doc.Locale, render.FormatPopularity(doc.Popularity)))
		if doc.Archived {
			sb.WriteString("**Archived**\n")
		}
		sb.WriteString(fmt.Sprintf("**URL**: %s\n", doc.ID))

		if len(result.BodyFragments) > 0 {
			fragment := strings.NewReplacer(search.PreTag, "**", search.PostTag, "**", "\n", " ").Replace(result.BodyFragments[0])
			sb.WriteString("\n> ")
			sb.WriteString(strings.TrimSpace(fragment))
			sb.WriteString("\n")
		}

		sb.WriteString("\n")
	}

	if resp.Total > uint64(len(resp.Results)) {
		sb.WriteString(fmt.Sprintf("... and %d more results\n", resp.Total-uint64(len(resp.Results))))
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: sb.String()},
		},
	}
}

// GetToolDefinition returns the MCP tool definition.
func (h *SearchHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "search_docs",
		Description: "Search the indexed documentation pages by title and body, most relevant and popular first",
	}
}

// RegisterSearchTool registers the search tool with an MCP server.
func RegisterSearchTool(server *mcp.Server, searcher *search.Searcher, defaultSize int) {
	handler := NewSearchHandler(searcher, defaultSize)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}
