// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the notewatch settings panel for LLM integration via stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/notewatch/internal/apperr"
	"github.com/starford/notewatch/internal/parser"
	"github.com/starford/notewatch/internal/settings"
)

// LogFormatURI identifies the log format resource.
const LogFormatURI = "notewatch://log-format"

// folderLimit caps list_folders output.
const folderLimit = 50

// Service is what the tools need from the settings controller.
type Service interface {
	Settings() settings.Settings
	Patch(ctx context.Context, r settings.Record) (settings.Settings, error)
	SetLogDir(ctx context.Context, dir string) (settings.Settings, error)
	Folders(query string, limit int) ([]string, error)
	ReadLog() (*parser.Document, error)
	LogPath() string
}

// Server wraps the MCP server with the notewatch tools.
type Server struct {
	mcp *server.MCPServer
	svc Service
}

// New creates a new MCP server with all tools registered.
func New(svc Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Note Watch",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_settings",
		mcp.WithDescription("Return the current notification and logging settings as JSON."),
	), s.getSettings)

	s.mcp.AddTool(mcp.NewTool("update_setting",
		mcp.WithDescription("Change one setting. Toggles ("+strings.Join(toggleKeys, ", ")+") take true or false; "+
			settings.KeyLogDir+" takes a vault folder path. The change takes effect immediately."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Setting key")),
		mcp.WithString("value", mcp.Required(), mcp.Description("New value")),
	), s.updateSetting)

	s.mcp.AddTool(mcp.NewTool("list_folders",
		mcp.WithDescription("List vault folders that can hold the log document, best fuzzy match first."),
		mcp.WithString("query", mcp.Description("Optional fuzzy filter (empty for all)")),
	), s.listFolders)

	s.mcp.AddTool(mcp.NewTool("set_log_dir",
		mcp.WithDescription("Choose the existing vault folder the log document is written to."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault folder path, e.g. Logs/NoteWatch")),
	), s.setLogDir)

	s.mcp.AddTool(mcp.NewTool("read_log",
		mcp.WithDescription("Read the log entries, newest first. See the "+LogFormatURI+" resource for the format."),
	), s.readLog)

	s.mcp.AddResource(
		mcp.NewResource(LogFormatURI, "Log Format",
			mcp.WithResourceDescription("Layout and phrasing of the note-watch.md log document."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readLogFormatResource,
	)

	return s
}

var toggleKeys = []string{
	settings.KeyNotifyOnCreate,
	settings.KeyNotifyOnDelete,
	settings.KeyNotifyOnMove,
	settings.KeyNotifyOnModify,
	settings.KeyLogEvents,
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) getSettings(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Settings()), nil
}

func (s *Server) updateSetting(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, ok := req.GetArguments()["value"]
	if !ok {
		return mcp.NewToolResultError(`required argument "value" not found`), nil
	}

	if name == settings.KeyLogDir {
		dir, ok := raw.(string)
		if !ok {
			return mcp.NewToolResultError(settings.KeyLogDir + " must be a string"), nil
		}
		return s.applyLogDir(ctx, dir), nil
	}

	value, err := coerceToggle(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", name, err)), nil
	}
	updated, err := s.svc.Patch(ctx, settings.Record{name: value})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(updated), nil
}

// coerceToggle accepts a JSON boolean or its string spelling.
func coerceToggle(raw any) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, fmt.Errorf("want true or false, got %q", v)
		}
		return b, nil
	}
	return false, fmt.Errorf("want true or false, got %T", raw)
}

func (s *Server) listFolders(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folders, err := s.svc.Folders(req.GetString("query", ""), folderLimit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(folders) == 0 {
		return mcp.NewToolResultText("no folders found"), nil
	}
	return mcp.NewToolResultText(strings.Join(folders, "\n")), nil
}

func (s *Server) setLogDir(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.applyLogDir(ctx, path), nil
}

func (s *Server) applyLogDir(ctx context.Context, dir string) *mcp.CallToolResult {
	updated, err := s.svc.SetLogDir(ctx, dir)
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("folder not found: %s", dir))
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText("Log directory set to: " + updated.LogDir)
}

func (s *Server) readLog(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, err := s.svc.ReadLog()
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultText(fmt.Sprintf("no log yet at %s", s.svc.LogPath())), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(doc.Entries) == 0 {
		return mcp.NewToolResultText("log is empty"), nil
	}
	return mcp.NewToolResultText(strings.Join(doc.Entries, "\n")), nil
}

func (s *Server) readLogFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      LogFormatURI,
			MIMEType: "text/markdown",
			Text:     LogFormatContract,
		},
	}, nil
}
