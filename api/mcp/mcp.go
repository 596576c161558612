// Package mcp provides an MCP (Model Context Protocol) server exposing
// the redial memory layer to external agents and tooling.
package mcp

import (
	"errors"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/redialhq/redial/pkg/memstore"
	"github.com/redialhq/redial/pkg/profile"
	"github.com/redialhq/redial/pkg/utils"
)

type Config struct {
	// Memories is the long-term memory store to search.
	Memories memstore.Store

	// Profiles enables the caller_profile tool when set.
	Profiles profile.Store

	// Noop for empty MCP server
	Noop bool

	// Logger is the configured zap logger
	Logger *zap.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the memory search tool.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "redial",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if c.Noop {
		// return the empty MCP server with no tools configured
		// if the noop flag is set (i.e., MCP capabilities are disabled)
		s.mcpServer = mcpServer
		return s, nil
	}

	if c.Memories == nil {
		return nil, errors.New("memory store is required")
	}
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        memorySearchToolName,
		Description: memorySearchDescription,
	}, s.handleMemorySearch)

	if c.Profiles != nil {
		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        callerProfileToolName,
			Description: callerProfileDescription,
		}, s.handleCallerProfile)
	}

	s.mcpServer = mcpServer

	// Create a streamable HTTP net/http handler for stateless operations
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}
