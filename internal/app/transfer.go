package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/hylla/folio/internal/domain"
)

// ExportFormat selects a single-document export rendering.
type ExportFormat string

// ExportMarkdown and related constants define supported document formats.
const (
	ExportMarkdown ExportFormat = "md"
	ExportText     ExportFormat = "txt"
)

// maxExportFilenameRunes bounds the title-derived part of an export filename.
const maxExportFilenameRunes = 50

// ActivityRecord is the persisted JSON shape of one activity in backups and API payloads.
type ActivityRecord struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	Content           string    `json:"content"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
	WordCount         int       `json:"wordCount"`
	LinkedActivityIDs []string  `json:"linkedActivityIds"`
	Archived          bool      `json:"archived"`
	Deleted           bool      `json:"deleted"`
	FlatColor         string    `json:"flatColor,omitempty"`
}

// RecordFromDomain converts an activity into its JSON record.
func RecordFromDomain(a domain.Activity) ActivityRecord {
	links := a.LinkedActivityIDs
	if links == nil {
		links = []string{}
	}
	return ActivityRecord{
		ID:                a.ID,
		Title:             a.Title,
		Content:           a.Content,
		CreatedAt:         a.CreatedAt.UTC(),
		UpdatedAt:         a.UpdatedAt.UTC(),
		WordCount:         a.WordCount,
		LinkedActivityIDs: append([]string(nil), links...),
		Archived:          a.Archived,
		Deleted:           a.Deleted,
		FlatColor:         a.FlatColor,
	}
}

// RecordsFromDomain converts a list of activities.
func RecordsFromDomain(in []domain.Activity) []ActivityRecord {
	out := make([]ActivityRecord, 0, len(in))
	for _, a := range in {
		out = append(out, RecordFromDomain(a))
	}
	return out
}

// ExportActivities returns every record as backup rows, most recently updated first.
func (s *Service) ExportActivities(ctx context.Context) ([]ActivityRecord, error) {
	activities, err := s.ListActivities(ctx)
	if err != nil {
		return nil, err
	}
	return RecordsFromDomain(activities), nil
}

// BackupFilename returns the default backup file name for now.
func BackupFilename(appName string, now time.Time) string {
	if strings.TrimSpace(appName) == "" {
		appName = "folio"
	}
	return fmt.Sprintf("%s-backup-%s.json", appName, now.UTC().Format(time.DateOnly))
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9]`)

// ExportDocument renders one activity as markdown or plain text and suggests a filename.
func ExportDocument(a domain.Activity, format ExportFormat) (string, string, error) {
	var body string
	switch format {
	case ExportMarkdown:
		body = fmt.Sprintf("# %s\n\n%s", a.Title, a.Content)
	case ExportText:
		body = fmt.Sprintf("%s\n\n%s", a.Title, a.Content)
	default:
		return "", "", fmt.Errorf("%w: %q", ErrInvalidExportFormat, format)
	}
	stem := unsafeFilenameChars.ReplaceAllString(a.Title, "_")
	if runes := []rune(stem); len(runes) > maxExportFilenameRunes {
		stem = string(runes[:maxExportFilenameRunes])
	}
	if stem == "" {
		stem = "untitled"
	}
	return stem + "." + string(format), body, nil
}

// ImportIssue describes one record that was not imported.
type ImportIssue struct {
	Index  int    `json:"index"`
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// ImportSummary reports the outcome of a best-effort import.
type ImportSummary struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Failed   int           `json:"failed"`
	Issues   []ImportIssue `json:"issues,omitempty"`
}

// importRecord mirrors ActivityRecord with optional fields left unset when absent.
type importRecord struct {
	ID                string   `json:"id" validate:"notblank"`
	Title             *string  `json:"title" validate:"required"`
	Content           *string  `json:"content" validate:"required"`
	CreatedAt         string   `json:"createdAt" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	UpdatedAt         string   `json:"updatedAt" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	WordCount         int      `json:"wordCount" validate:"min=0"`
	LinkedActivityIDs []string `json:"linkedActivityIds" validate:"max=5"`
	Archived          bool     `json:"archived"`
	Deleted           bool     `json:"deleted"`
	FlatColor         string   `json:"flatColor"`
}

var importValidate *validator.Validate

func init() {
	importValidate = validator.New(validator.WithRequiredStructEnabled())
	_ = importValidate.RegisterValidation("notblank", validateNotBlank)
	importValidate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		return name
	})
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// DecodeImportPayload reads a backup file. The top level must be a JSON array.
func DecodeImportPayload(r io.Reader) ([]json.RawMessage, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read import payload: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		return nil, ErrInvalidImportPayload
	}
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImportPayload, err)
	}
	return records, nil
}

// ImportActivities upserts every valid record and skips the rest.
// Backup timestamps are preserved; wordCount and links are re-derived.
// The summary is always complete; the returned error is non-nil only for context cancellation.
func (s *Service) ImportActivities(ctx context.Context, raw []json.RawMessage) (ImportSummary, error) {
	var summary ImportSummary
	now := s.clock().UTC()
	for idx, msg := range raw {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		activity, id, err := decodeImportRecord(msg, now)
		if err != nil {
			summary.Skipped++
			summary.Issues = append(summary.Issues, ImportIssue{
				Index:  idx,
				ID:     id,
				Reason: err.Error(),
				Err:    fmt.Errorf("%w: %v", ErrInvalidImportRecord, err),
			})
			continue
		}
		if _, err := s.store(ctx, activity); err != nil {
			if errors.Is(err, ErrStorageUnavailable) {
				summary.Failed++
			} else {
				summary.Skipped++
				err = fmt.Errorf("%w: %v", ErrInvalidImportRecord, err)
			}
			summary.Issues = append(summary.Issues, ImportIssue{Index: idx, ID: activity.ID, Reason: err.Error(), Err: err})
			continue
		}
		summary.Imported++
	}
	return summary, nil
}

func decodeImportRecord(msg json.RawMessage, now time.Time) (domain.Activity, string, error) {
	var rec importRecord
	if err := json.Unmarshal(msg, &rec); err != nil {
		return domain.Activity{}, "", fmt.Errorf("decode record: %w", err)
	}
	id := strings.TrimSpace(rec.ID)
	if err := importValidate.Struct(rec); err != nil {
		return domain.Activity{}, id, describeValidation(err)
	}

	var createdAt, updatedAt time.Time
	if rec.CreatedAt != "" {
		createdAt, _ = time.Parse(time.RFC3339, rec.CreatedAt)
	}
	if rec.UpdatedAt != "" {
		updatedAt, _ = time.Parse(time.RFC3339, rec.UpdatedAt)
	}
	switch {
	case createdAt.IsZero() && updatedAt.IsZero():
		createdAt, updatedAt = now, now
	case createdAt.IsZero():
		createdAt = updatedAt
	case updatedAt.Before(createdAt):
		updatedAt = createdAt
	}

	return domain.Activity{
		ID:                id,
		Title:             *rec.Title,
		Content:           *rec.Content,
		CreatedAt:         createdAt.UTC(),
		UpdatedAt:         updatedAt.UTC(),
		LinkedActivityIDs: domain.NormalizeLinks(id, rec.LinkedActivityIDs),
		Archived:          rec.Archived,
		Deleted:           rec.Deleted,
		FlatColor:         strings.TrimSpace(rec.FlatColor),
	}, id, nil
}

func describeValidation(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Errorf("field %s is required", fe.Field())
	case "datetime":
		return fmt.Errorf("field %s must be an RFC3339 timestamp", fe.Field())
	case "max":
		return fmt.Errorf("field %s allows at most %s entries", fe.Field(), fe.Param())
	default:
		return fmt.Errorf("field %s failed %s validation", fe.Field(), fe.Tag())
	}
}
