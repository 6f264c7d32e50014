// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes checkmark tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/checkmark/internal/apperr"
	"github.com/starford/checkmark/internal/models"
	"github.com/starford/checkmark/internal/pipeline"
	"github.com/starford/checkmark/internal/taskservice"
	"github.com/starford/checkmark/internal/view"
)

const (
	viewSyntaxURI = "checkmark://view-syntax"
	taskFormatURI = "checkmark://task-format"
)

// Server wraps the MCP server with checkmark tools.
type Server struct {
	mcp  *server.MCPServer
	svc  *taskservice.Service
	view *taskservice.View
}

type taskList struct {
	Tasks   []models.Task      `json:"tasks"`
	Summary pipeline.Summary   `json:"summary"`
	Scan    taskservice.Status `json:"scan"`
}

// New creates a new MCP server with all checkmark tools registered.
func New(svc *taskservice.Service, v *taskservice.View, version string) *Server {
	s := &Server{svc: svc, view: v}

	s.mcp = server.NewMCPServer(
		"checkmark",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("List checkbox tasks from the vault, filtered and sorted. "+
			"Filters use the view block directives; see get_view_syntax."),
		mcp.WithString("status", mcp.Description("all, done or undone")),
		mcp.WithString("sort", mcp.Description("date or file")),
		mcp.WithString("search", mcp.Description("Case-insensitive substring of the task text")),
		mcp.WithString("categories", mcp.Description("Comma separated category names")),
		mcp.WithString("exclude_tags", mcp.Description("Comma separated tags to exclude")),
		mcp.WithString("exclude_folders", mcp.Description("Comma separated folders to exclude")),
		mcp.WithString("date", mcp.Description("Relative range, e.g. 'next 2 weeks'")),
		mcp.WithString("from", mcp.Description("Inclusive lower bound, YYYY-MM-DD")),
		mcp.WithString("to", mcp.Description("Inclusive upper bound, YYYY-MM-DD")),
	), s.listTasks)

	s.mcp.AddTool(mcp.NewTool("toggle_task",
		mcp.WithDescription("Flip a task between done and not done."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Document path as returned by list_tasks")),
		mcp.WithNumber("line", mcp.Required(), mcp.Description("Zero-based line as returned by list_tasks")),
	), s.toggleTask)

	s.mcp.AddTool(mcp.NewTool("change_task_date",
		mcp.WithDescription("Replace the date of a task, or append one if it has none."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Document path as returned by list_tasks")),
		mcp.WithNumber("line", mcp.Required(), mcp.Description("Zero-based line as returned by list_tasks")),
		mcp.WithString("date", mcp.Required(), mcp.Description("New date, YYYY-MM-DD")),
	), s.changeTaskDate)

	s.mcp.AddTool(mcp.NewTool("list_categories",
		mcp.WithDescription("List known ==Category== names."),
		mcp.WithString("query", mcp.Description("Optional case-insensitive substring filter")),
	), s.listCategories)

	s.mcp.AddTool(mcp.NewTool("refresh_tasks",
		mcp.WithDescription("Rescan the vault. Call after editing documents by other means."),
	), s.refreshTasks)

	s.mcp.AddTool(mcp.NewTool("get_view_syntax",
		mcp.WithDescription("Returns the view block syntax and the task line format."),
	), s.getViewSyntax)

	s.mcp.AddResource(
		mcp.NewResource(viewSyntaxURI, "View Block Syntax",
			mcp.WithResourceDescription("Directives accepted by a checkmark view block."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readViewSyntaxResource,
	)
	s.mcp.AddResource(
		mcp.NewResource(taskFormatURI, "Task Line Format",
			mcp.WithResourceDescription("How task lines, categories, dates and tags are written."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readTaskFormatResource,
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

// ensureScanned runs the first scan lazily.
func (s *Server) ensureScanned(ctx context.Context) error {
	if s.view.Status().ScanID != "" {
		return nil
	}
	_, err := s.view.Refresh(ctx)
	return err
}

func (s *Server) listTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.ensureScanned(ctx); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	b := s.view.Block()
	for arg, key := range map[string]string{
		"status":          "status",
		"sort":            "sort",
		"search":          "search",
		"exclude_tags":    "exclude-tags",
		"exclude_folders": "exclude-folders",
		"date":            "date",
		"from":            "from",
		"to":              "to",
	} {
		v := req.GetString(arg, "")
		if v == "" {
			continue
		}
		if !b.Set(key, v) {
			return mcp.NewToolResultError(fmt.Sprintf("invalid %s: %q", arg, v)), nil
		}
	}
	if cats := req.GetString("categories", ""); cats != "" {
		b.Categories = nil
		for _, c := range strings.Split(cats, ",") {
			b.AddCategory(c)
		}
	}

	ts := s.view.TasksFor(b)
	return jsonResult(taskList{
		Tasks:   ts,
		Summary: pipeline.Summarize(ts),
		Scan:    s.view.Status(),
	}), nil
}

// jsonResult renders v as indented JSON text, or a tool error when v
// cannot be encoded.
func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err))
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) toggleTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, line, errResult := taskRef(req)
	if errResult != nil {
		return errResult, nil
	}
	if err := s.ensureScanned(ctx); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	t, err := s.view.ToggleStatus(ctx, path, line)
	if err != nil {
		return toolError(path, line, err), nil
	}
	state := "not done"
	if t.Done {
		state = "done"
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s:%d is now %s", path, line, state)), nil
}

func (s *Server) changeTaskDate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, line, errResult := taskRef(req)
	if errResult != nil {
		return errResult, nil
	}
	date, err := req.RequireString("date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.ensureScanned(ctx); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	t, err := s.view.ChangeDate(ctx, path, line, date)
	if err != nil {
		return toolError(path, line, err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s:%d date set to %s", path, line, t.Date)), nil
}

func (s *Server) listCategories(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.ensureScanned(ctx); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	names := s.svc.SuggestCategories(req.GetString("query", ""))
	if len(names) == 0 {
		return mcp.NewToolResultText("no categories found"), nil
	}
	return mcp.NewToolResultText(strings.Join(names, "\n")), nil
}

func (s *Server) refreshTasks(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.view.Refresh(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	msg := fmt.Sprintf("scanned %d documents, %d tasks", st.Documents, st.Tasks)
	if st.Partial {
		msg += fmt.Sprintf(" (%d documents could not be read)", st.Failures)
	}
	return mcp.NewToolResultText(msg), nil
}

func (s *Server) getViewSyntax(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(view.Syntax + "\n" + TaskFormatContract), nil
}

func (s *Server) readViewSyntaxResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      viewSyntaxURI,
			MIMEType: "text/markdown",
			Text:     view.Syntax,
		},
	}, nil
}

func (s *Server) readTaskFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      taskFormatURI,
			MIMEType: "text/markdown",
			Text:     TaskFormatContract,
		},
	}, nil
}

func taskRef(req mcp.CallToolRequest) (string, int, *mcp.CallToolResult) {
	path, err := req.RequireString("path")
	if err != nil {
		return "", 0, mcp.NewToolResultError(err.Error())
	}
	line, err := req.RequireInt("line")
	if err != nil {
		return "", 0, mcp.NewToolResultError(err.Error())
	}
	if line < 0 {
		return "", 0, mcp.NewToolResultError("line must not be negative")
	}
	return path, line, nil
}

func toolError(path string, line int, err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("no task at %s:%d in the latest scan; call refresh_tasks", path, line))
	}
	return mcp.NewToolResultError(err.Error())
}
