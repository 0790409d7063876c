// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes date checks and the run history via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/chrono/internal/api"
	"github.com/starford/chrono/internal/ledger"
	"github.com/starford/chrono/internal/processing"
	"github.com/starford/chrono/internal/storage"
)

// RulesURI addresses the date rules resource.
const RulesURI = "chrono://date-rules"

// RunLister is the part of the run ledger the server reads.
type RunLister interface {
	ListRuns(limit int) ([]ledger.Run, error)
}

// Server wraps the MCP server with the chrono tools.
type Server struct {
	mcp     *server.MCPServer
	store   storage.Provider
	rules   processing.SkipRules
	checker api.Checker
	runs    RunLister
}

// New creates a new MCP server. list_runs is only registered when runs is non-nil.
func New(store storage.Provider, rules processing.SkipRules, checker api.Checker, runs RunLister) *Server {
	s := &Server{store: store, rules: rules, checker: checker, runs: runs}

	s.mcp = server.NewMCPServer(
		"Chrono",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("check_dates",
		mcp.WithDescription("Report what a run would do to the date and updated keys of one document, without writing it."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path relative to the content root (e.g. blog/post.md)")),
	), s.checkDates)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List the documents a run would process, optionally within a folder."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("get_date_rules",
		mcp.WithDescription("Returns the rules used to reconcile date and updated."),
	), s.getDateRules)

	if runs != nil {
		s.mcp.AddTool(mcp.NewTool("list_runs",
			mcp.WithDescription("List recent runs with their file counts, newest first."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of runs (default 20)")),
		), s.listRuns)
	}

	s.mcp.AddResource(
		mcp.NewResource(RulesURI, "Date Rules",
			mcp.WithResourceDescription("How date and updated are derived from git history."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readRulesResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) checkDates(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p = path.Clean(strings.TrimPrefix(p, "./"))
	if path.IsAbs(p) || p == ".." || strings.HasPrefix(p, "../") {
		return mcp.NewToolResultError(fmt.Sprintf("path must be relative to the content root: %s", p)), nil
	}

	out, err := s.checker.Check(ctx, p)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if out.Status == processing.StatusSkipped {
		return mcp.NewToolResultError(fmt.Sprintf("not a processed document: %s", p)), nil
	}
	return jsonResult(api.NewCheckResponse(out))
}

func (s *Server) listDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder := ""
	if f, err := req.RequireString("folder"); err == nil {
		folder = f
	}

	files, err := s.store.List(folder)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var paths []string
	for _, f := range files {
		if !s.rules.ShouldSkip(f.Path) {
			paths = append(paths, f.Path)
		}
	}
	if len(paths) == 0 {
		return mcp.NewToolResultText("no documents found"), nil
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) listRuns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runs, err := s.runs.ListRuns(req.GetInt("limit", 20))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if runs == nil {
		runs = []ledger.Run{}
	}
	return jsonResult(runs)
}

func (s *Server) getDateRules(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DateRules), nil
}

func (s *Server) readRulesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	if req.Params.URI != RulesURI {
		return nil, errors.New("unknown resource: " + req.Params.URI)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      RulesURI,
			MIMEType: "text/markdown",
			Text:     DateRules,
		},
	}, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcpserver: encode result: %w", err)
	}
	return mcp.NewToolResultText(string(out)), nil
}
