package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/yari-search/internal/search"
)

// ServerConfig contains configuration for creating an MCP server
type ServerConfig struct {
	Name    string
	Version string

	// Searcher backs the search_docs and read_doc tools. They are not
	// registered when nil.
	Searcher *search.Searcher

	// DefaultSize is used when a call does not pass a size.
	DefaultSize int
}

// CreateServer creates and configures the MCP server
func CreateServer(cfg ServerConfig) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	if cfg.Searcher != nil {
		RegisterSearchTool(s, cfg.Searcher, cfg.DefaultSize)
		RegisterReadTool(s, cfg.Searcher)
	}

	return s
}
