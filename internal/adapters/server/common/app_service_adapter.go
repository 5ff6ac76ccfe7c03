package common

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hylla/folio/internal/app"
	"github.com/hylla/folio/internal/domain"
	"github.com/hylla/folio/internal/editor"
	"github.com/hylla/folio/internal/textmetrics"
)

// keywordLimit bounds the keyword list returned with text analysis.
const keywordLimit = 10

// AppServiceAdapter maps transport contracts onto app.Service activity APIs.
type AppServiceAdapter struct {
	service  *app.Service
	detector *editor.PasteDetector
	idGen    app.IDGenerator
	clock    app.Clock
}

// AdapterOption customizes an AppServiceAdapter.
type AdapterOption func(*AppServiceAdapter)

// WithIDGenerator replaces the uuid generator used for omitted create ids.
func WithIDGenerator(idGen app.IDGenerator) AdapterOption {
	return func(a *AppServiceAdapter) {
		if idGen != nil {
			a.idGen = idGen
		}
	}
}

// WithClock replaces the clock used for stats.
func WithClock(clock app.Clock) AdapterOption {
	return func(a *AppServiceAdapter) {
		if clock != nil {
			a.clock = clock
		}
	}
}

// NewAppServiceAdapter builds one common adapter over an app.Service instance.
// Paste checks run with the explicit editor configuration cfg.
func NewAppServiceAdapter(service *app.Service, cfg editor.Config, opts ...AdapterOption) *AppServiceAdapter {
	a := &AppServiceAdapter{
		service: service,
		idGen:   uuid.NewString,
		clock:   time.Now,
	}
	if service != nil {
		a.detector = editor.NewPasteDetector(service, cfg)
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ListActivities searches records with dashboard filters.
func (a *AppServiceAdapter) ListActivities(ctx context.Context, in ListActivitiesRequest) ([]app.ActivityRecord, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	view, err := app.ParseView(in.View)
	if err != nil {
		return nil, mapAppError("list activities", err)
	}
	dateRange, err := app.ParseDateRange(in.Range)
	if err != nil {
		return nil, mapAppError("list activities", err)
	}
	activities, err := a.service.SearchActivities(ctx, app.ListFilter{
		View:  view,
		Query: in.Query,
		Range: dateRange,
		Now:   a.clock(),
	})
	if err != nil {
		return nil, mapAppError("list activities", err)
	}
	return app.RecordsFromDomain(activities), nil
}

// GetActivity returns one record or ErrNotFound.
func (a *AppServiceAdapter) GetActivity(ctx context.Context, id string) (app.ActivityRecord, error) {
	if err := a.ready(); err != nil {
		return app.ActivityRecord{}, err
	}
	return found("get activity", id)(a.service.GetActivity(ctx, id))
}

// CreateActivity stores a new Active record.
func (a *AppServiceAdapter) CreateActivity(ctx context.Context, in CreateActivityRequest) (app.ActivityRecord, error) {
	if err := a.ready(); err != nil {
		return app.ActivityRecord{}, err
	}
	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = a.idGen()
	}
	activity, err := a.service.CreateActivity(ctx, app.CreateActivityInput{
		ID:        id,
		Title:     in.Title,
		Content:   in.Content,
		FlatColor: in.FlatColor,
	})
	if err != nil {
		return app.ActivityRecord{}, mapAppError("create activity", err)
	}
	return app.RecordFromDomain(activity), nil
}

// UpdateActivity applies a partial title/content/color change.
func (a *AppServiceAdapter) UpdateActivity(ctx context.Context, id string, in UpdateActivityRequest) (app.ActivityRecord, error) {
	if err := a.ready(); err != nil {
		return app.ActivityRecord{}, err
	}
	if in.Title == nil && in.Content == nil && in.FlatColor == nil {
		return app.ActivityRecord{}, fmt.Errorf("update activity: %w: no fields to update", ErrInvalidRequest)
	}
	return found("update activity", id)(a.service.UpdateActivity(ctx, id, app.UpdateActivityInput{
		Title:     in.Title,
		Content:   in.Content,
		FlatColor: in.FlatColor,
	}))
}

// ArchiveActivity toggles between Active and Archived.
func (a *AppServiceAdapter) ArchiveActivity(ctx context.Context, id string) (app.ActivityRecord, error) {
	if err := a.ready(); err != nil {
		return app.ActivityRecord{}, err
	}
	return found("archive activity", id)(a.service.ArchiveActivity(ctx, id))
}

// TrashActivity soft-deletes one record.
func (a *AppServiceAdapter) TrashActivity(ctx context.Context, id string) (app.ActivityRecord, error) {
	if err := a.ready(); err != nil {
		return app.ActivityRecord{}, err
	}
	return found("trash activity", id)(a.service.TrashActivity(ctx, id))
}

// RestoreActivity returns one record to Active.
func (a *AppServiceAdapter) RestoreActivity(ctx context.Context, id string) (app.ActivityRecord, error) {
	if err := a.ready(); err != nil {
		return app.ActivityRecord{}, err
	}
	return found("restore activity", id)(a.service.RestoreActivity(ctx, id))
}

// DuplicateActivity copies one record under a generated id.
func (a *AppServiceAdapter) DuplicateActivity(ctx context.Context, id string) (app.ActivityRecord, error) {
	if err := a.ready(); err != nil {
		return app.ActivityRecord{}, err
	}
	return found("duplicate activity", id)(a.service.DuplicateActivity(ctx, id))
}

// SetActivityColor replaces the card color tag.
func (a *AppServiceAdapter) SetActivityColor(ctx context.Context, id, color string) (app.ActivityRecord, error) {
	if err := a.ready(); err != nil {
		return app.ActivityRecord{}, err
	}
	return found("set activity color", id)(a.service.SetActivityColor(ctx, id, color))
}

// DeleteActivity removes one record permanently. Missing ids succeed.
func (a *AppServiceAdapter) DeleteActivity(ctx context.Context, id string) error {
	if err := a.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("delete activity: %w: id is required", ErrInvalidRequest)
	}
	return mapAppError("delete activity", a.service.DeleteActivity(ctx, id))
}

// DeleteAllActivities deletes every record. Per-record failures are reported in the result.
func (a *AppServiceAdapter) DeleteAllActivities(ctx context.Context) (app.BatchResult, error) {
	if err := a.ready(); err != nil {
		return app.BatchResult{}, err
	}
	result, err := a.service.DeleteAllActivities(ctx)
	if err != nil && !errors.Is(err, app.ErrPartialBatch) {
		return app.BatchResult{}, mapAppError("delete all activities", err)
	}
	return result, nil
}

// LinkedActivities resolves the outbound links of id in order.
func (a *AppServiceAdapter) LinkedActivities(ctx context.Context, id string) ([]app.ActivityRecord, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	linked, ok, err := a.service.LinkedActivities(ctx, id)
	if err != nil {
		return nil, mapAppError("linked activities", err)
	}
	if !ok {
		return nil, notFound("linked activities", id)
	}
	return app.RecordsFromDomain(linked), nil
}

// LinkActivity appends an edge from sourceID to targetID.
func (a *AppServiceAdapter) LinkActivity(ctx context.Context, sourceID, targetID string) (app.ActivityRecord, error) {
	if err := a.ready(); err != nil {
		return app.ActivityRecord{}, err
	}
	if err := a.requireTarget(ctx, "link activity", targetID); err != nil {
		return app.ActivityRecord{}, err
	}
	return found("link activity", sourceID)(a.service.LinkActivities(ctx, sourceID, targetID))
}

// UnlinkActivity removes targetID from the source's links.
func (a *AppServiceAdapter) UnlinkActivity(ctx context.Context, sourceID, targetID string) (app.ActivityRecord, error) {
	if err := a.ready(); err != nil {
		return app.ActivityRecord{}, err
	}
	if strings.TrimSpace(targetID) == "" {
		return app.ActivityRecord{}, fmt.Errorf("unlink activity: %w: target_id is required", ErrInvalidRequest)
	}
	return found("unlink activity", sourceID)(a.service.UnlinkActivities(ctx, sourceID, targetID))
}

// SwitchFocus prepends currentID to the target's links and returns the target.
// Remote callers have no open session, so there is nothing to flush first.
func (a *AppServiceAdapter) SwitchFocus(ctx context.Context, currentID, targetID string) (app.ActivityRecord, error) {
	if err := a.ready(); err != nil {
		return app.ActivityRecord{}, err
	}
	if strings.TrimSpace(currentID) == "" {
		return app.ActivityRecord{}, fmt.Errorf("switch focus: %w: current id is required", ErrInvalidRequest)
	}
	return found("switch focus", targetID)(a.service.SwitchFocus(ctx, nil, currentID, targetID))
}

// AnalyzeActivity computes text metrics for a stored record.
func (a *AppServiceAdapter) AnalyzeActivity(ctx context.Context, id string) (TextAnalysis, error) {
	record, err := a.GetActivity(ctx, id)
	if err != nil {
		return TextAnalysis{}, err
	}
	return analyze(record.Content), nil
}

// AnalyzeText computes text metrics for arbitrary content.
func (a *AppServiceAdapter) AnalyzeText(_ context.Context, content string) (TextAnalysis, error) {
	return analyze(content), nil
}

// ExportDocument renders one record as md or txt.
func (a *AppServiceAdapter) ExportDocument(ctx context.Context, id, format string) (Document, error) {
	if err := a.ready(); err != nil {
		return Document{}, err
	}
	activity, ok, err := a.service.GetActivity(ctx, id)
	if err != nil {
		return Document{}, mapAppError("export document", err)
	}
	if !ok {
		return Document{}, notFound("export document", id)
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = string(app.ExportMarkdown)
	}
	filename, body, err := app.ExportDocument(activity, app.ExportFormat(format))
	if err != nil {
		return Document{}, mapAppError("export document", err)
	}
	return Document{Filename: filename, Format: format, Body: body}, nil
}

// CheckPaste reports whether text duplicates a record other than the current one.
func (a *AppServiceAdapter) CheckPaste(ctx context.Context, in PasteCheckRequest) (PasteCheckResult, error) {
	if err := a.ready(); err != nil {
		return PasteCheckResult{}, err
	}
	match, ok, err := a.detector.Detect(ctx, strings.TrimSpace(in.CurrentID), in.Text)
	if err != nil {
		return PasteCheckResult{}, mapAppError("check paste", err)
	}
	if !ok {
		return PasteCheckResult{}, nil
	}
	return PasteCheckResult{Matched: true, Match: &match}, nil
}

// ExportActivities returns every record in backup form.
func (a *AppServiceAdapter) ExportActivities(ctx context.Context) ([]app.ActivityRecord, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	records, err := a.service.ExportActivities(ctx)
	if err != nil {
		return nil, mapAppError("export activities", err)
	}
	return records, nil
}

// ImportActivities decodes a backup array from r and imports it best-effort.
func (a *AppServiceAdapter) ImportActivities(ctx context.Context, r io.Reader) (app.ImportSummary, error) {
	if err := a.ready(); err != nil {
		return app.ImportSummary{}, err
	}
	raw, err := app.DecodeImportPayload(r)
	if err != nil {
		return app.ImportSummary{}, mapAppError("import activities", err)
	}
	summary, err := a.service.ImportActivities(ctx, raw)
	if err != nil {
		return summary, mapAppError("import activities", err)
	}
	return summary, nil
}

// HistoryStats computes writing statistics as of now.
func (a *AppServiceAdapter) HistoryStats(ctx context.Context) (app.History, error) {
	if err := a.ready(); err != nil {
		return app.History{}, err
	}
	history, err := a.service.HistoryStats(ctx, a.clock())
	if err != nil {
		return app.History{}, mapAppError("history stats", err)
	}
	return history, nil
}

func (a *AppServiceAdapter) ready() error {
	if a == nil || a.service == nil {
		return fmt.Errorf("app service adapter is not configured: %w", ErrUnavailable)
	}
	return nil
}

// requireTarget checks that targetID names an existing record before linking to it.
func (a *AppServiceAdapter) requireTarget(ctx context.Context, operation, targetID string) error {
	if strings.TrimSpace(targetID) == "" {
		return fmt.Errorf("%s: %w: target_id is required", operation, ErrInvalidRequest)
	}
	_, ok, err := a.service.GetActivity(ctx, targetID)
	if err != nil {
		return mapAppError(operation, err)
	}
	if !ok {
		return notFound(operation, targetID)
	}
	return nil
}

// found adapts a (record, found, err) service result into a transport result.
func found(operation, id string) func(domain.Activity, bool, error) (app.ActivityRecord, error) {
	return func(activity domain.Activity, ok bool, err error) (app.ActivityRecord, error) {
		if err != nil {
			return app.ActivityRecord{}, mapAppError(operation, err)
		}
		if !ok {
			return app.ActivityRecord{}, notFound(operation, id)
		}
		return app.RecordFromDomain(activity), nil
	}
}

func notFound(operation, id string) error {
	return fmt.Errorf("%s: %w: activity %q", operation, ErrNotFound, strings.TrimSpace(id))
}

func analyze(content string) TextAnalysis {
	keywords := textmetrics.Keywords(content, keywordLimit)
	if keywords == nil {
		keywords = []textmetrics.Keyword{}
	}
	return TextAnalysis{
		Metrics:  textmetrics.Analyze(content),
		Keywords: keywords,
	}
}

// mapAppError joins the transport sentinel matching err so adapters can classify it.
func mapAppError(operation string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, app.ErrNotFound):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrNotFound, err))
	case errors.Is(err, domain.ErrSelfLinkRejected),
		errors.Is(err, domain.ErrDuplicateLinkRejected),
		errors.Is(err, domain.ErrLinkCapacityExceeded):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrLinkRejected, err))
	case errors.Is(err, domain.ErrInvalidTransition):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrInvalidTransition, err))
	case errors.Is(err, app.ErrStorageUnavailable):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrUnavailable, err))
	case errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidTimestamps),
		errors.Is(err, domain.ErrInvalidLinks),
		errors.Is(err, app.ErrInvalidFilter),
		errors.Is(err, app.ErrInvalidImportPayload),
		errors.Is(err, app.ErrInvalidImportRecord),
		errors.Is(err, app.ErrInvalidExportFormat),
		errors.Is(err, app.ErrNothingToCapture):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrInvalidRequest, err))
	default:
		return fmt.Errorf("%s: %w", operation, err)
	}
}
