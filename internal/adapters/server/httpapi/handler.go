// Package httpapi provides the REST HTTP adapter for the server surfaces.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hylla/folio/internal/adapters/server/common"
	"github.com/hylla/folio/internal/app"
)

// maxRequestBodyBytes limits decoded JSON payload size for fail-closed request handling.
const maxRequestBodyBytes int64 = 1 << 20

// maxImportBodyBytes limits backup uploads, which carry full note bodies.
const maxImportBodyBytes int64 = 32 << 20

// Handler serves the versioned API subrouter mounted under `/api/v1`.
type Handler struct {
	service common.ActivityService
	appName string
	now     func() time.Time
}

// APIError represents one structured API failure response.
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Hint    string         `json:"hint,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

// ErrorEnvelope wraps one structured API error.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// NewHandler constructs one HTTP API adapter. appName names backup downloads.
func NewHandler(service common.ActivityService, appName string) *Handler {
	return &Handler{
		service: service,
		appName: strings.TrimSpace(appName),
		now:     time.Now,
	}
}

// ServeHTTP routes one versioned API request to the matching handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeJSONError(w, http.StatusServiceUnavailable, APIError{
			Code:    common.CodeStorageUnavailable,
			Message: "activity service is not configured",
		})
		return
	}

	path := normalizePath(r.URL.Path)
	switch path {
	case "activities":
		switch r.Method {
		case http.MethodGet:
			h.handleListActivities(w, r)
		case http.MethodPost:
			h.handleCreateActivity(w, r)
		case http.MethodDelete:
			h.handleDeleteAllActivities(w, r)
		default:
			writeMethodNotAllowed(w, http.MethodGet, http.MethodPost, http.MethodDelete)
		}
		return
	case "paste/check":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w, http.MethodPost)
			return
		}
		h.handleCheckPaste(w, r)
		return
	case "export":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		h.handleExportActivities(w, r)
		return
	case "import":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w, http.MethodPost)
			return
		}
		h.handleImportActivities(w, r)
		return
	case "stats":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		h.handleHistoryStats(w, r)
		return
	}

	id, rest, ok := resolveActivityPath(path)
	if !ok {
		writeJSONError(w, http.StatusNotFound, APIError{
			Code:    common.CodeNotFound,
			Message: "endpoint not found",
		})
		return
	}
	h.routeActivity(w, r, id, rest)
}

// routeActivity serves `/activities/{id}` and its sub-resources.
func (h *Handler) routeActivity(w http.ResponseWriter, r *http.Request, id string, rest []string) {
	if len(rest) == 0 {
		switch r.Method {
		case http.MethodGet:
			record, err := h.service.GetActivity(r.Context(), id)
			writeResult(w, http.StatusOK, record, err)
		case http.MethodPatch:
			h.handleUpdateActivity(w, r, id)
		case http.MethodDelete:
			if err := h.service.DeleteActivity(r.Context(), id); err != nil {
				writeErrorFrom(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			writeMethodNotAllowed(w, http.MethodGet, http.MethodPatch, http.MethodDelete)
		}
		return
	}

	action := rest[0]
	if len(rest) == 2 && action == "links" {
		if r.Method != http.MethodDelete {
			writeMethodNotAllowed(w, http.MethodDelete)
			return
		}
		record, err := h.service.UnlinkActivity(r.Context(), id, rest[1])
		writeResult(w, http.StatusOK, record, err)
		return
	}
	if len(rest) != 1 {
		writeJSONError(w, http.StatusNotFound, APIError{Code: common.CodeNotFound, Message: "endpoint not found"})
		return
	}

	switch action {
	case "archive", "trash", "restore", "duplicate":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w, http.MethodPost)
			return
		}
		h.handleLifecycle(w, r, id, action)
	case "color":
		if r.Method != http.MethodPut {
			writeMethodNotAllowed(w, http.MethodPut)
			return
		}
		var req common.ColorRequest
		if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
			writeErrorFrom(w, err)
			return
		}
		record, err := h.service.SetActivityColor(r.Context(), id, req.Color)
		writeResult(w, http.StatusOK, record, err)
	case "links":
		switch r.Method {
		case http.MethodGet:
			linked, err := h.service.LinkedActivities(r.Context(), id)
			if err != nil {
				writeErrorFrom(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"activities": linked})
		case http.MethodPost:
			var req common.LinkRequest
			if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
				writeErrorFrom(w, err)
				return
			}
			record, err := h.service.LinkActivity(r.Context(), id, req.TargetID)
			writeResult(w, http.StatusOK, record, err)
		default:
			writeMethodNotAllowed(w, http.MethodGet, http.MethodPost)
		}
	case "focus":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w, http.MethodPost)
			return
		}
		var req common.LinkRequest
		if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
			writeErrorFrom(w, err)
			return
		}
		record, err := h.service.SwitchFocus(r.Context(), id, req.TargetID)
		writeResult(w, http.StatusOK, record, err)
	case "metrics":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		analysis, err := h.service.AnalyzeActivity(r.Context(), id)
		writeResult(w, http.StatusOK, analysis, err)
	case "export":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		h.handleExportDocument(w, r, id)
	default:
		writeJSONError(w, http.StatusNotFound, APIError{Code: common.CodeNotFound, Message: "endpoint not found"})
	}
}

// handleListActivities serves GET `/activities`.
func (h *Handler) handleListActivities(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	records, err := h.service.ListActivities(r.Context(), common.ListActivitiesRequest{
		View:  strings.TrimSpace(query.Get("view")),
		Query: query.Get("q"),
		Range: strings.TrimSpace(query.Get("range")),
	})
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"activities": records,
	})
}

// handleCreateActivity serves POST `/activities`.
func (h *Handler) handleCreateActivity(w http.ResponseWriter, r *http.Request) {
	var req common.CreateActivityRequest
	if err := decodeOptionalJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	record, err := h.service.CreateActivity(r.Context(), req)
	writeResult(w, http.StatusCreated, record, err)
}

// handleDeleteAllActivities serves DELETE `/activities`.
func (h *Handler) handleDeleteAllActivities(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.DeleteAllActivities(r.Context())
	writeResult(w, http.StatusOK, result, err)
}

// handleUpdateActivity serves PATCH `/activities/{id}`.
func (h *Handler) handleUpdateActivity(w http.ResponseWriter, r *http.Request, id string) {
	var req common.UpdateActivityRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	record, err := h.service.UpdateActivity(r.Context(), id, req)
	writeResult(w, http.StatusOK, record, err)
}

// handleLifecycle serves POST `/activities/{id}/{archive|trash|restore|duplicate}`.
func (h *Handler) handleLifecycle(w http.ResponseWriter, r *http.Request, id, action string) {
	var (
		record app.ActivityRecord
		err    error
		status = http.StatusOK
	)
	switch action {
	case "archive":
		record, err = h.service.ArchiveActivity(r.Context(), id)
	case "trash":
		record, err = h.service.TrashActivity(r.Context(), id)
	case "restore":
		record, err = h.service.RestoreActivity(r.Context(), id)
	case "duplicate":
		record, err = h.service.DuplicateActivity(r.Context(), id)
		status = http.StatusCreated
	}
	writeResult(w, status, record, err)
}

// handleExportDocument serves GET `/activities/{id}/export?format=md|txt` as a download.
func (h *Handler) handleExportDocument(w http.ResponseWriter, r *http.Request, id string) {
	doc, err := h.service.ExportDocument(r.Context(), id, r.URL.Query().Get("format"))
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	contentType := "text/plain; charset=utf-8"
	if doc.Format == string(app.ExportMarkdown) {
		contentType = "text/markdown; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, doc.Body)
}

// handleCheckPaste serves POST `/paste/check`.
func (h *Handler) handleCheckPaste(w http.ResponseWriter, r *http.Request) {
	var req common.PasteCheckRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	result, err := h.service.CheckPaste(r.Context(), req)
	writeResult(w, http.StatusOK, result, err)
}

// handleExportActivities serves GET `/export` as a backup download.
func (h *Handler) handleExportActivities(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.ExportActivities(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", app.BackupFilename(h.appName, h.now())))
	writeJSON(w, http.StatusOK, records)
}

// handleImportActivities serves POST `/import` with a backup array body.
func (h *Handler) handleImportActivities(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxImportBodyBytes)
	defer reader.Close()
	summary, err := h.service.ImportActivities(r.Context(), reader)
	writeResult(w, http.StatusOK, summary, err)
}

// handleHistoryStats serves GET `/stats`.
func (h *Handler) handleHistoryStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.HistoryStats(r.Context())
	writeResult(w, http.StatusOK, stats, err)
}

// resolveActivityPath parses `activities/{id}[/...]` into the id and trailing segments.
func resolveActivityPath(path string) (string, []string, bool) {
	const prefix = "activities/"
	if !strings.HasPrefix(path, prefix) {
		return "", nil, false
	}
	parts := strings.Split(strings.TrimPrefix(path, prefix), "/")
	id := strings.TrimSpace(parts[0])
	if id == "" || len(parts) > 3 {
		return "", nil, false
	}
	rest := parts[1:]
	for _, part := range rest {
		if strings.TrimSpace(part) == "" {
			return "", nil, false
		}
	}
	return id, rest, true
}

// normalizePath canonicalizes one request path for route matching.
func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	path = strings.Trim(path, "/")
	return path
}

// writeResult writes payload with statusCode, or the mapped error when err is set.
func writeResult(w http.ResponseWriter, statusCode int, payload any, err error) {
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, statusCode, payload)
}

// writeErrorFrom maps adapter errors into structured HTTP responses.
func writeErrorFrom(w http.ResponseWriter, err error) {
	if err == nil {
		writeJSONError(w, http.StatusInternalServerError, APIError{
			Code:    common.CodeInternal,
			Message: "unknown error",
		})
		return
	}
	code := common.ErrorCode(err)
	switch code {
	case common.CodeNotFound:
		writeJSONError(w, http.StatusNotFound, APIError{Code: code, Message: err.Error()})
	case common.CodeLinkRejected:
		writeJSONError(w, http.StatusConflict, APIError{
			Code:    code,
			Message: err.Error(),
			Hint:    "Links must target another record, appear once, and stay within the link limit.",
		})
	case common.CodeInvalidTransition:
		writeJSONError(w, http.StatusConflict, APIError{
			Code:    code,
			Message: err.Error(),
			Hint:    "Restore a trashed record before archiving it.",
		})
	case common.CodeStorageUnavailable:
		writeJSONError(w, http.StatusServiceUnavailable, APIError{Code: code, Message: err.Error()})
	case common.CodeInvalidRequest:
		writeJSONError(w, http.StatusBadRequest, APIError{Code: code, Message: err.Error()})
	default:
		writeJSONError(w, http.StatusInternalServerError, APIError{Code: common.CodeInternal, Message: err.Error()})
	}
}

// writeMethodNotAllowed writes a structured 405 response with `Allow` headers.
func writeMethodNotAllowed(w http.ResponseWriter, methods ...string) {
	if len(methods) > 0 {
		w.Header().Set("Allow", strings.Join(methods, ", "))
	}
	writeJSONError(w, http.StatusMethodNotAllowed, APIError{
		Code:    "method_not_allowed",
		Message: "method not allowed",
	})
}

// writeJSONError writes one structured error envelope.
func writeJSONError(w http.ResponseWriter, statusCode int, apiErr APIError) {
	writeJSON(w, statusCode, ErrorEnvelope{Error: apiErr})
}

// writeJSON writes one JSON response envelope.
func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":{"code":"encode_error","message":"%s"}}`, err.Error()), http.StatusInternalServerError)
	}
}

// decodeJSONBody decodes one required JSON request body with strict shape checks.
func decodeJSONBody(ctx context.Context, w http.ResponseWriter, r *http.Request, out any) error {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	defer reader.Close()

	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("decode request body: %w", errors.Join(common.ErrInvalidRequest, err))
	}
	// Reject trailing payloads so malformed JSON bodies fail closed.
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode request body: trailing content: %w", common.ErrInvalidRequest)
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("request canceled: %w", ctx.Err())
	default:
		return nil
	}
}

// decodeOptionalJSONBody decodes one optional JSON body and ignores empty payloads.
func decodeOptionalJSONBody(ctx context.Context, w http.ResponseWriter, r *http.Request, out any) error {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	defer reader.Close()

	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()
	err := decoder.Decode(out)
	if err == nil {
		select {
		case <-ctx.Done():
			return fmt.Errorf("request canceled: %w", ctx.Err())
		default:
			return nil
		}
	}
	if errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("decode request body: %w", errors.Join(common.ErrInvalidRequest, err))
}
