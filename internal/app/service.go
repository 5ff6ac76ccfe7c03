package app

import (
	"cmp"
	"context"
	"errors"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/hylla/folio/internal/domain"
	"github.com/hylla/folio/internal/textmetrics"
)

// DefaultCopySuffix is appended to the title of duplicated activities.
const DefaultCopySuffix = " (Copy)"

// DefaultClipboardMinLength is the trimmed rune count a clipboard capture must exceed.
const DefaultClipboardMinLength = 10

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	CopySuffix         string
	ClipboardMinLength int
	Logger             *log.Logger
}

// IDGenerator returns unique identifiers for new entities.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// Service owns activity records: lifecycle, links, queries, and transfer.
type Service struct {
	repo         Repository
	idGen        IDGenerator
	clock        Clock
	copySuffix   string
	clipboardMin int
	logger       *log.Logger
	listGroup    singleflight.Group
}

// NewService constructs a new value for this package.
func NewService(repo Repository, idGen IDGenerator, clock Clock, cfg ServiceConfig) *Service {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	if cfg.CopySuffix == "" {
		cfg.CopySuffix = DefaultCopySuffix
	}
	if cfg.ClipboardMinLength <= 0 {
		cfg.ClipboardMinLength = DefaultClipboardMinLength
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}
	return &Service{
		repo:         repo,
		idGen:        idGen,
		clock:        clock,
		copySuffix:   cfg.CopySuffix,
		clipboardMin: cfg.ClipboardMinLength,
		logger:       cfg.Logger,
	}
}

// CreateActivityInput holds input values for create activity operations.
type CreateActivityInput struct {
	ID        string
	Title     string
	Content   string
	FlatColor string
}

// CreateActivity stores a new Active record under the caller-supplied id.
func (s *Service) CreateActivity(ctx context.Context, in CreateActivityInput) (domain.Activity, error) {
	activity, err := domain.NewActivity(domain.ActivityInput{
		ID:        in.ID,
		Title:     in.Title,
		Content:   in.Content,
		FlatColor: in.FlatColor,
	}, s.clock())
	if err != nil {
		return domain.Activity{}, err
	}
	return s.store(ctx, activity)
}

// GetActivity returns the record for id. A missing record is reported as found=false.
func (s *Service) GetActivity(ctx context.Context, id string) (domain.Activity, bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Activity{}, false, nil
	}
	activity, err := s.repo.GetActivity(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return domain.Activity{}, false, nil
	}
	if err != nil {
		return domain.Activity{}, false, err
	}
	return activity, true, nil
}

// ListActivities returns every record ordered by updatedAt descending.
// Concurrent callers share one storage read, which outlives any single caller's
// cancellation; each caller still returns early on its own ctx.
func (s *Service) ListActivities(ctx context.Context) ([]domain.Activity, error) {
	shared := context.WithoutCancel(ctx)
	ch := s.listGroup.DoChan("activities", func() (any, error) {
		activities, err := s.repo.ListActivities(shared)
		if err != nil {
			return nil, err
		}
		sortByRecency(activities)
		return activities, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]domain.Activity)), nil
	}
}

// SaveActivity upserts activity, stamping updatedAt and recomputing wordCount.
func (s *Service) SaveActivity(ctx context.Context, activity domain.Activity) (domain.Activity, error) {
	activity.Stamp(s.clock())
	return s.store(ctx, activity)
}

// UpdateActivityInput holds a partial update. Nil fields are left unchanged.
type UpdateActivityInput struct {
	Title     *string
	Content   *string
	FlatColor *string
}

// UpdateActivity applies a partial title/content/color change through SaveActivity.
func (s *Service) UpdateActivity(ctx context.Context, id string, in UpdateActivityInput) (domain.Activity, bool, error) {
	return s.mutate(ctx, id, func(activity *domain.Activity, now time.Time) (bool, error) {
		title, content, color := activity.Title, activity.Content, activity.FlatColor
		if in.Title != nil {
			title = *in.Title
		}
		if in.Content != nil {
			content = *in.Content
		}
		if in.FlatColor != nil {
			color = *in.FlatColor
		}
		activity.SetDetails(title, content, color, now)
		return true, nil
	})
}

// SetActivityColor replaces the cosmetic color tag.
func (s *Service) SetActivityColor(ctx context.Context, id, color string) (domain.Activity, bool, error) {
	return s.mutate(ctx, id, func(activity *domain.Activity, now time.Time) (bool, error) {
		activity.SetColor(color, now)
		return true, nil
	})
}

// ArchiveActivity toggles between Active and Archived. Trashed records are rejected.
func (s *Service) ArchiveActivity(ctx context.Context, id string) (domain.Activity, bool, error) {
	return s.mutate(ctx, id, func(activity *domain.Activity, now time.Time) (bool, error) {
		if err := activity.ToggleArchive(now); err != nil {
			return false, err
		}
		return true, nil
	})
}

// TrashActivity soft-deletes a record and keeps its archived flag.
func (s *Service) TrashActivity(ctx context.Context, id string) (domain.Activity, bool, error) {
	return s.mutate(ctx, id, func(activity *domain.Activity, now time.Time) (bool, error) {
		if activity.Deleted {
			return false, nil
		}
		activity.SoftDelete(now)
		return true, nil
	})
}

// RestoreActivity returns a record to Active from any state.
func (s *Service) RestoreActivity(ctx context.Context, id string) (domain.Activity, bool, error) {
	return s.mutate(ctx, id, func(activity *domain.Activity, now time.Time) (bool, error) {
		activity.Restore(now)
		return true, nil
	})
}

// DeleteActivity removes a record permanently. Missing ids are a no-op.
func (s *Service) DeleteActivity(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	if err := s.repo.DeleteActivity(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

// DuplicateActivity copies a record under a generated id.
func (s *Service) DuplicateActivity(ctx context.Context, id string) (domain.Activity, bool, error) {
	src, found, err := s.GetActivity(ctx, id)
	if err != nil || !found {
		return domain.Activity{}, found, err
	}
	dup, err := src.Duplicate(s.idGen(), s.copySuffix, s.clock())
	if err != nil {
		return domain.Activity{}, true, err
	}
	saved, err := s.store(ctx, dup)
	if err != nil {
		return domain.Activity{}, true, err
	}
	return saved, true, nil
}

// BatchFailure records one record a batch operation could not process.
type BatchFailure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// BatchResult reports a record-by-record batch outcome.
type BatchResult struct {
	Attempted int            `json:"attempted"`
	Succeeded int            `json:"succeeded"`
	Failures  []BatchFailure `json:"failures,omitempty"`
}

// DeleteAllActivities permanently deletes every record one at a time.
// A partial run returns the result alongside an error wrapping ErrPartialBatch.
func (s *Service) DeleteAllActivities(ctx context.Context) (BatchResult, error) {
	activities, err := s.ListActivities(ctx)
	if err != nil {
		return BatchResult{}, err
	}
	result := BatchResult{Attempted: len(activities)}
	var errs []error
	for _, activity := range activities {
		if err := s.DeleteActivity(ctx, activity.ID); err != nil {
			result.Failures = append(result.Failures, BatchFailure{ID: activity.ID, Error: err.Error()})
			errs = append(errs, err)
			continue
		}
		result.Succeeded++
	}
	if len(errs) > 0 {
		return result, errors.Join(append([]error{ErrPartialBatch}, errs...)...)
	}
	return result, nil
}

// mutate loads id, applies fn, and stores the result when fn reports a change.
func (s *Service) mutate(ctx context.Context, id string, fn func(*domain.Activity, time.Time) (bool, error)) (domain.Activity, bool, error) {
	activity, found, err := s.GetActivity(ctx, id)
	if err != nil || !found {
		return domain.Activity{}, found, err
	}
	changed, err := fn(&activity, s.clock())
	if err != nil {
		return activity, true, err
	}
	if !changed {
		return activity, true, nil
	}
	saved, err := s.store(ctx, activity)
	if err != nil {
		return activity, true, err
	}
	return saved, true, nil
}

// store derives wordCount, normalizes links, validates, and writes activity.
func (s *Service) store(ctx context.Context, activity domain.Activity) (domain.Activity, error) {
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = activity.UpdatedAt
	}
	activity.WordCount = textmetrics.WordCount(activity.Content)
	activity.LinkedActivityIDs = domain.NormalizeLinks(activity.ID, activity.LinkedActivityIDs)
	if err := activity.Validate(); err != nil {
		return domain.Activity{}, err
	}
	if err := s.repo.PutActivity(ctx, activity); err != nil {
		return domain.Activity{}, err
	}
	return activity, nil
}

func sortByRecency(activities []domain.Activity) {
	slices.SortStableFunc(activities, func(a, b domain.Activity) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
