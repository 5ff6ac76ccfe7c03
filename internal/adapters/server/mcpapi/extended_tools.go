package mcpapi

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/hylla/folio/internal/adapters/server/common"
)

// registerLinkTools registers link/unlink/linked/switch_focus tools.
func registerLinkTools(srv *mcpserver.MCPServer, service common.ActivityService) {
	srv.AddTool(
		mcp.NewTool(
			"folio.link",
			mcp.WithDescription("Append a one-directional link from id to target_id. At most 5 links per activity."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Source activity id")),
			mcp.WithString("target_id", mcp.Required(), mcp.Description("Target activity id")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id, targetID, bad := requirePair(req, "id", "target_id")
			if bad != nil {
				return bad, nil
			}
			record, err := service.LinkActivity(ctx, id, targetID)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("link", record)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"folio.unlink",
			mcp.WithDescription("Remove target_id from the links of id. Absent links are a no-op."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Source activity id")),
			mcp.WithString("target_id", mcp.Required(), mcp.Description("Linked activity id")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id, targetID, bad := requirePair(req, "id", "target_id")
			if bad != nil {
				return bad, nil
			}
			record, err := service.UnlinkActivity(ctx, id, targetID)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("unlink", record)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"folio.linked",
			mcp.WithDescription("Resolve the linked activities of id in link order."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Activity id")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id, err := req.RequireString("id")
			if err != nil {
				return invalidRequestToolResult(err), nil
			}
			records, err := service.LinkedActivities(ctx, id)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("linked", map[string]any{"activities": records})
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"folio.switch_focus",
			mcp.WithDescription("Switch editing from current_id to target_id. The target gains a back-link to current_id at the front; its oldest link is dropped when full."),
			mcp.WithString("current_id", mcp.Required(), mcp.Description("Activity being left")),
			mcp.WithString("target_id", mcp.Required(), mcp.Description("Activity to focus")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			currentID, targetID, bad := requirePair(req, "current_id", "target_id")
			if bad != nil {
				return bad, nil
			}
			record, err := service.SwitchFocus(ctx, currentID, targetID)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("switch_focus", record)
		},
	)
}

// registerInsightTools registers text analysis, paste check, and stats tools.
func registerInsightTools(srv *mcpserver.MCPServer, service common.ActivityService) {
	srv.AddTool(
		mcp.NewTool(
			"folio.analyze_text",
			mcp.WithDescription("Compute word, sentence, reading-time, and readability metrics. Pass id to analyze a stored activity or text for ad-hoc content."),
			mcp.WithString("id", mcp.Description("Stored activity id")),
			mcp.WithString("text", mcp.Description("Content to analyze when id is omitted")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var (
				analysis common.TextAnalysis
				err      error
			)
			if id := strings.TrimSpace(req.GetString("id", "")); id != "" {
				analysis, err = service.AnalyzeActivity(ctx, id)
			} else {
				analysis, err = service.AnalyzeText(ctx, req.GetString("text", ""))
			}
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("analyze_text", analysis)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"folio.check_paste",
			mcp.WithDescription("Report whether text duplicates an existing activity other than current_id."),
			mcp.WithString("current_id", mcp.Description("Activity being edited")),
			mcp.WithString("text", mcp.Required(), mcp.Description("Pasted text")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			text, err := req.RequireString("text")
			if err != nil {
				return invalidRequestToolResult(err), nil
			}
			result, err := service.CheckPaste(ctx, common.PasteCheckRequest{
				CurrentID: req.GetString("current_id", ""),
				Text:      text,
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("check_paste", result)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"folio.stats",
			mcp.WithDescription("Return writing history: totals, last seven days, streak, and best weekday."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			stats, err := service.HistoryStats(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("stats", stats)
		},
	)
}

// requirePair reads two required string arguments or returns the tool error to send.
func requirePair(req mcp.CallToolRequest, first, second string) (string, string, *mcp.CallToolResult) {
	a, err := req.RequireString(first)
	if err != nil {
		return "", "", invalidRequestToolResult(err)
	}
	b, err := req.RequireString(second)
	if err != nil {
		return "", "", invalidRequestToolResult(err)
	}
	return a, b, nil
}

// invalidRequestToolResult wraps argument-binding failures as deterministic tool errors.
func invalidRequestToolResult(err error) *mcp.CallToolResult {
	if err == nil {
		return mcp.NewToolResultError("invalid_request: malformed arguments")
	}
	return mcp.NewToolResultError("invalid_request: " + err.Error())
}
