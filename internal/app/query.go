package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hylla/folio/internal/domain"
)

// View selects records by lifecycle state.
type View string

// ViewActive and related constants define the dashboard views.
const (
	ViewActive   View = "active"
	ViewArchived View = "archived"
	ViewTrashed  View = "trashed"
	ViewAll      View = "all"
)

// DateRange limits records by how recently they were updated.
type DateRange string

// RangeAll and related constants define the dashboard date filters.
const (
	RangeAll    DateRange = "all"
	Range7Days  DateRange = "7days"
	Range30Days DateRange = "30days"
)

// ListFilter holds dashboard query options. Zero values mean active, no query, all time.
type ListFilter struct {
	View  View
	Query string
	Range DateRange
	Now   time.Time
}

// ParseView validates a view name; empty means active.
func ParseView(raw string) (View, error) {
	switch v := View(strings.ToLower(strings.TrimSpace(raw))); v {
	case "":
		return ViewActive, nil
	case ViewActive, ViewArchived, ViewTrashed, ViewAll:
		return v, nil
	default:
		return "", fmt.Errorf("%w: unknown view %q", ErrInvalidFilter, raw)
	}
}

// ParseDateRange validates a range name; empty means all.
func ParseDateRange(raw string) (DateRange, error) {
	switch r := DateRange(strings.ToLower(strings.TrimSpace(raw))); r {
	case "":
		return RangeAll, nil
	case RangeAll, Range7Days, Range30Days:
		return r, nil
	default:
		return "", fmt.Errorf("%w: unknown range %q", ErrInvalidFilter, raw)
	}
}

// NextDateRange cycles all -> 7days -> 30days -> all.
func NextDateRange(r DateRange) DateRange {
	switch r {
	case RangeAll, "":
		return Range7Days
	case Range7Days:
		return Range30Days
	default:
		return RangeAll
	}
}

// SearchActivities lists records matching filter, most recently updated first.
func (s *Service) SearchActivities(ctx context.Context, filter ListFilter) ([]domain.Activity, error) {
	view, err := ParseView(string(filter.View))
	if err != nil {
		return nil, err
	}
	dateRange, err := ParseDateRange(string(filter.Range))
	if err != nil {
		return nil, err
	}
	now := filter.Now
	if now.IsZero() {
		now = s.clock()
	}
	query := strings.ToLower(strings.TrimSpace(filter.Query))

	activities, err := s.ListActivities(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Activity, 0, len(activities))
	for _, activity := range activities {
		if !matchesView(activity, view) || !matchesRange(activity, dateRange, now) {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(activity.Title), query) &&
			!strings.Contains(strings.ToLower(activity.Content), query) {
			continue
		}
		out = append(out, activity)
	}
	return out, nil
}

func matchesView(activity domain.Activity, view View) bool {
	switch view {
	case ViewAll:
		return true
	case ViewArchived:
		return activity.State() == domain.StateArchived
	case ViewTrashed:
		return activity.State() == domain.StateTrashed
	default:
		return activity.State() == domain.StateActive
	}
}

// matchesRange compares whole days rounded up, so "7 days" includes anything updated within 7*24h.
func matchesRange(activity domain.Activity, dateRange DateRange, now time.Time) bool {
	var limit int
	switch dateRange {
	case Range7Days:
		limit = 7
	case Range30Days:
		limit = 30
	default:
		return true
	}
	diff := now.Sub(activity.UpdatedAt)
	if diff < 0 {
		diff = -diff
	}
	days := int(diff / (24 * time.Hour))
	if diff%(24*time.Hour) != 0 {
		days++
	}
	return days <= limit
}
