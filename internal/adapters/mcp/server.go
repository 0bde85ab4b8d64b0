package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"docsearch/internal/core/ports"
)

// Server exposes the document index to MCP clients over stdio. Tool
// calls run under a single configured owner id: the MCP transport has
// no per-request identity.
type Server struct {
	searcher ports.DocumentSearcher
	reader   ports.DocumentReader
	ownerID  string
	mcp      *server.MCPServer
}

func NewServer(searcher ports.DocumentSearcher, reader ports.DocumentReader, ownerID, version string) *Server {
	s := &Server{
		searcher: searcher,
		reader:   reader,
		ownerID:  ownerID,
	}

	mcpServer := server.NewMCPServer(
		"docsearch",
		version,
		server.WithToolCapabilities(false),
	)

	mcpServer.AddTool(
		mcp.NewTool("search_documents",
			mcp.WithDescription("Search the document index by meaning. Returns ranked documents with previews, at most one result per document."),
			mcp.WithString("query",
				mcp.Required(),
				mcp.Description("Natural-language search query."),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of results, defaults to 20."),
			),
		),
		s.handleSearch,
	)

	mcpServer.AddTool(
		mcp.NewTool("recent_documents",
			mcp.WithDescription("List the most recently uploaded documents, newest first."),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of documents, defaults to 20."),
			),
		),
		s.handleRecent,
	)

	s.mcp = mcpServer
	return s
}

// ServeStdio blocks until the client disconnects or ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	return server.ServeStdio(s.mcp, server.WithStdioContextFunc(
		func(context.Context) context.Context { return ctx },
	))
}

func (s *Server) handleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	query, _ := args["query"].(string)
	if query == "" {
		return mcp.NewToolResultError("query is required"), nil
	}

	results, err := s.searcher.Search(ctx, s.ownerID, query, intArg(args, "limit"))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	payload, err := json.Marshal(map[string]any{
		"results": results,
		"total":   len(results),
	})
	if err != nil {
		return nil, fmt.Errorf("encode search results: %w", err)
	}
	return mcp.NewToolResultText(string(payload)), nil
}

func (s *Server) handleRecent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, err := s.reader.ListRecent(ctx, s.ownerID, intArg(req.GetArguments(), "limit"))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list recent documents failed: %v", err)), nil
	}

	payload, err := json.Marshal(map[string]any{"documents": docs})
	if err != nil {
		return nil, fmt.Errorf("encode documents: %w", err)
	}
	return mcp.NewToolResultText(string(payload)), nil
}

// intArg tolerates the float64 numbers JSON decoding produces.
func intArg(args map[string]any, name string) int {
	switch v := args[name].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
