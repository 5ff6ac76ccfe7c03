// Package common provides transport-agnostic server contracts used by HTTP and MCP adapters.
package common

import (
	"context"
	"errors"
	"io"

	"github.com/hylla/folio/internal/app"
	"github.com/hylla/folio/internal/editor"
	"github.com/hylla/folio/internal/textmetrics"
)

// ErrInvalidRequest reports malformed transport input.
var ErrInvalidRequest = errors.New("invalid request")

// ErrNotFound reports missing transport-visible resources.
var ErrNotFound = errors.New("not found")

// ErrLinkRejected reports a link write refused by the link rules.
var ErrLinkRejected = errors.New("link rejected")

// ErrInvalidTransition reports a lifecycle change the current state does not allow.
var ErrInvalidTransition = errors.New("invalid transition")

// ErrUnavailable reports a storage engine failure.
var ErrUnavailable = errors.New("storage unavailable")

// Stable error codes shared by the HTTP envelope and MCP tool results.
const (
	CodeInvalidRequest     = "invalid_request"
	CodeNotFound           = "not_found"
	CodeLinkRejected       = "link_rejected"
	CodeInvalidTransition  = "invalid_transition"
	CodeStorageUnavailable = "storage_unavailable"
	CodeInternal           = "internal_error"
)

// ErrorCode classifies err into one stable code.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrLinkRejected):
		return CodeLinkRejected
	case errors.Is(err, ErrInvalidTransition):
		return CodeInvalidTransition
	case errors.Is(err, ErrUnavailable):
		return CodeStorageUnavailable
	case errors.Is(err, ErrInvalidRequest):
		return CodeInvalidRequest
	default:
		return CodeInternal
	}
}

// ListActivitiesRequest carries dashboard query filters.
type ListActivitiesRequest struct {
	View  string `json:"view,omitempty"`
	Query string `json:"query,omitempty"`
	Range string `json:"range,omitempty"`
}

// CreateActivityRequest creates one record. An empty ID is replaced with a generated one.
type CreateActivityRequest struct {
	ID        string `json:"id,omitempty"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	FlatColor string `json:"flat_color,omitempty"`
}

// UpdateActivityRequest holds a partial update. Nil fields are left unchanged.
type UpdateActivityRequest struct {
	Title     *string `json:"title,omitempty"`
	Content   *string `json:"content,omitempty"`
	FlatColor *string `json:"flat_color,omitempty"`
}

// LinkRequest names the other end of a link or focus switch.
type LinkRequest struct {
	TargetID string `json:"target_id"`
}

// ColorRequest replaces the card color tag.
type ColorRequest struct {
	Color string `json:"color"`
}

// PasteCheckRequest asks whether pasted text duplicates an existing record.
type PasteCheckRequest struct {
	CurrentID string `json:"current_id"`
	Text      string `json:"text"`
}

// PasteCheckResult reports the suggested link target, if any.
type PasteCheckResult struct {
	Matched bool          `json:"matched"`
	Match   *editor.Match `json:"match,omitempty"`
}

// TextAnalysis bundles metrics and top keywords for one content string.
type TextAnalysis struct {
	Metrics  textmetrics.Metrics   `json:"metrics"`
	Keywords []textmetrics.Keyword `json:"keywords"`
}

// Document is one rendered single-record export.
type Document struct {
	Filename string `json:"filename"`
	Format   string `json:"format"`
	Body     string `json:"body"`
}

// ActivityService is the operation surface both transports serve.
type ActivityService interface {
	ListActivities(context.Context, ListActivitiesRequest) ([]app.ActivityRecord, error)
	GetActivity(context.Context, string) (app.ActivityRecord, error)
	CreateActivity(context.Context, CreateActivityRequest) (app.ActivityRecord, error)
	UpdateActivity(context.Context, string, UpdateActivityRequest) (app.ActivityRecord, error)
	ArchiveActivity(context.Context, string) (app.ActivityRecord, error)
	TrashActivity(context.Context, string) (app.ActivityRecord, error)
	RestoreActivity(context.Context, string) (app.ActivityRecord, error)
	DuplicateActivity(context.Context, string) (app.ActivityRecord, error)
	SetActivityColor(context.Context, string, string) (app.ActivityRecord, error)
	DeleteActivity(context.Context, string) error
	DeleteAllActivities(context.Context) (app.BatchResult, error)
	LinkedActivities(context.Context, string) ([]app.ActivityRecord, error)
	LinkActivity(context.Context, string, string) (app.ActivityRecord, error)
	UnlinkActivity(context.Context, string, string) (app.ActivityRecord, error)
	SwitchFocus(context.Context, string, string) (app.ActivityRecord, error)
	AnalyzeActivity(context.Context, string) (TextAnalysis, error)
	AnalyzeText(context.Context, string) (TextAnalysis, error)
	ExportDocument(context.Context, string, string) (Document, error)
	CheckPaste(context.Context, PasteCheckRequest) (PasteCheckResult, error)
	ExportActivities(context.Context) ([]app.ActivityRecord, error)
	ImportActivities(context.Context, io.Reader) (app.ImportSummary, error)
	HistoryStats(context.Context) (app.History, error)
}
