// Package mcpapi provides a stateless MCP streamable-HTTP adapter.
package mcpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/hylla/folio/internal/adapters/server/common"
	"github.com/hylla/folio/internal/app"
)

// Config captures MCP transport configuration.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// Handler wraps one stateless MCP streamable HTTP handler.
type Handler struct {
	httpHandler http.Handler
}

// NewHandler builds one stateless MCP adapter exposing the folio.* activity tools.
func NewHandler(cfg Config, service common.ActivityService) (*Handler, error) {
	if service == nil {
		return nil, fmt.Errorf("activity service is required")
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerActivityTools(mcpSrv, service)
	registerLifecycleTools(mcpSrv, service)
	registerLinkTools(mcpSrv, service)
	registerInsightTools(mcpSrv, service)

	streamable := mcpserver.NewStreamableHTTPServer(
		mcpSrv,
		mcpserver.WithEndpointPath(cfg.EndpointPath),
		mcpserver.WithStateLess(true),
	)
	return &Handler{httpHandler: streamable}, nil
}

// ServeHTTP handles one MCP streamable HTTP request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.httpHandler == nil {
		http.Error(w, "mcp handler unavailable", http.StatusServiceUnavailable)
		return
	}
	h.httpHandler.ServeHTTP(w, r)
}

// normalizeConfig applies deterministic defaults to MCP adapter config.
func normalizeConfig(cfg Config) Config {
	cfg.ServerName = strings.TrimSpace(cfg.ServerName)
	if cfg.ServerName == "" {
		cfg.ServerName = "folio"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	cfg.EndpointPath = strings.TrimSpace(cfg.EndpointPath)
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/mcp"
	}
	cfg.EndpointPath = "/" + strings.Trim(cfg.EndpointPath, "/")
	return cfg
}

// registerActivityTools registers list/get/create/update/delete tools.
func registerActivityTools(srv *mcpserver.MCPServer, service common.ActivityService) {
	srv.AddTool(
		mcp.NewTool(
			"folio.list",
			mcp.WithDescription("List activities, most recently updated first."),
			mcp.WithString("view", mcp.Description("Lifecycle view"), mcp.Enum("active", "archived", "trashed", "all")),
			mcp.WithString("query", mcp.Description("Case-insensitive title/content filter")),
			mcp.WithString("range", mcp.Description("Updated-at window"), mcp.Enum("all", "7days", "30days")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			records, err := service.ListActivities(ctx, common.ListActivitiesRequest{
				View:  req.GetString("view", ""),
				Query: req.GetString("query", ""),
				Range: req.GetString("range", ""),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("list", map[string]any{"activities": records})
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"folio.get",
			mcp.WithDescription("Return one activity by id."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Activity id")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id, err := req.RequireString("id")
			if err != nil {
				return invalidRequestToolResult(err), nil
			}
			record, err := service.GetActivity(ctx, id)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("get", record)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"folio.create",
			mcp.WithDescription("Create an Active activity. A uuid is generated when id is omitted."),
			mcp.WithString("id", mcp.Description("Optional activity id")),
			mcp.WithString("title", mcp.Description("Title")),
			mcp.WithString("content", mcp.Description("Markdown content")),
			mcp.WithString("flat_color", mcp.Description("Card color hex or transparent")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args common.CreateActivityRequest
			if err := req.BindArguments(&args); err != nil {
				return invalidRequestToolResult(err), nil
			}
			record, err := service.CreateActivity(ctx, args)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("create", record)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"folio.update",
			mcp.WithDescription("Update title, content, or color. Omitted fields are unchanged."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Activity id")),
			mcp.WithString("title", mcp.Description("New title")),
			mcp.WithString("content", mcp.Description("New markdown content")),
			mcp.WithString("flat_color", mcp.Description("New card color")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args struct {
				ID        string  `json:"id"`
				Title     *string `json:"title"`
				Content   *string `json:"content"`
				FlatColor *string `json:"flat_color"`
			}
			if err := req.BindArguments(&args); err != nil {
				return invalidRequestToolResult(err), nil
			}
			if strings.TrimSpace(args.ID) == "" {
				return mcp.NewToolResultError(`invalid_request: required argument "id" not found`), nil
			}
			record, err := service.UpdateActivity(ctx, args.ID, common.UpdateActivityRequest{
				Title:     args.Title,
				Content:   args.Content,
				FlatColor: args.FlatColor,
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("update", record)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"folio.delete",
			mcp.WithDescription("Permanently delete one activity. Missing ids succeed."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Activity id")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id, err := req.RequireString("id")
			if err != nil {
				return invalidRequestToolResult(err), nil
			}
			if err := service.DeleteActivity(ctx, id); err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("delete", map[string]any{"id": id, "deleted": true})
		},
	)
}

// registerLifecycleTools registers archive/trash/restore/duplicate tools.
func registerLifecycleTools(srv *mcpserver.MCPServer, service common.ActivityService) {
	tools := []struct {
		name        string
		description string
		call        func(context.Context, string) (app.ActivityRecord, error)
	}{
		{"archive", "Toggle an activity between Active and Archived.", service.ArchiveActivity},
		{"trash", "Move an activity to the trash.", service.TrashActivity},
		{"restore", "Restore an archived or trashed activity to Active.", service.RestoreActivity},
		{"duplicate", "Copy an activity under a new id with a (Copy) title suffix.", service.DuplicateActivity},
	}
	for _, tool := range tools {
		srv.AddTool(
			mcp.NewTool(
				"folio."+tool.name,
				mcp.WithDescription(tool.description),
				mcp.WithString("id", mcp.Required(), mcp.Description("Activity id")),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				id, err := req.RequireString("id")
				if err != nil {
					return invalidRequestToolResult(err), nil
				}
				record, err := tool.call(ctx, id)
				if err != nil {
					return toolResultFromError(err), nil
				}
				return jsonResult(tool.name, record)
			},
		)
	}
}

// jsonResult encodes one structured tool result.
func jsonResult(tool string, payload any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s result: %w", tool, err)
	}
	return result, nil
}

// toolResultFromError maps service errors into MCP-visible tool errors.
func toolResultFromError(err error) *mcp.CallToolResult {
	if err == nil {
		return mcp.NewToolResultError("internal_error: unknown error")
	}
	return mcp.NewToolResultError(common.ErrorCode(err) + ": " + err.Error())
}
