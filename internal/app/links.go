package app

import (
	"context"
	"strings"
	"time"

	"github.com/hylla/folio/internal/domain"
)

// LinkActivities appends a one-directional edge from sourceID to targetID.
// Rejections (self, duplicate, capacity) return the domain error and write nothing.
func (s *Service) LinkActivities(ctx context.Context, sourceID, targetID string) (domain.Activity, bool, error) {
	return s.mutate(ctx, sourceID, func(source *domain.Activity, now time.Time) (bool, error) {
		if err := source.AppendLink(targetID, now); err != nil {
			return false, err
		}
		return true, nil
	})
}

// UnlinkActivities removes targetID from the source's links. Absent links are a no-op.
func (s *Service) UnlinkActivities(ctx context.Context, sourceID, targetID string) (domain.Activity, bool, error) {
	targetID = strings.TrimSpace(targetID)
	return s.mutate(ctx, sourceID, func(source *domain.Activity, now time.Time) (bool, error) {
		return source.RemoveLink(targetID, now), nil
	})
}

// SwitchFocus moves editing from currentID to targetID. Pending edits are flushed
// first, then currentID is prepended to the target's links. When the target is at
// capacity its oldest link is evicted. The returned record is the new editing subject.
func (s *Service) SwitchFocus(ctx context.Context, pending Flusher, currentID, targetID string) (domain.Activity, bool, error) {
	if pending != nil {
		if _, err := pending.ForceSave(ctx); err != nil {
			return domain.Activity{}, false, err
		}
	}
	currentID = strings.TrimSpace(currentID)
	return s.mutate(ctx, targetID, func(target *domain.Activity, now time.Time) (bool, error) {
		evicted, changed := target.PrependLink(currentID, now)
		if len(evicted) > 0 {
			s.logger.Debug("focus switch evicted links", "target_id", target.ID, "source_id", currentID, "evicted", evicted)
		}
		return changed, nil
	})
}

// LinkedActivities resolves the outbound links of id in order, skipping missing records.
func (s *Service) LinkedActivities(ctx context.Context, id string) ([]domain.Activity, bool, error) {
	source, found, err := s.GetActivity(ctx, id)
	if err != nil || !found {
		return nil, found, err
	}
	out := make([]domain.Activity, 0, len(source.LinkedActivityIDs))
	for _, linkedID := range source.LinkedActivityIDs {
		linked, ok, err := s.GetActivity(ctx, linkedID)
		if err != nil {
			return nil, true, err
		}
		if ok {
			out = append(out, linked)
		}
	}
	return out, true, nil
}

// LinkCandidates lists records id may link to: not itself, not trashed, not already linked.
func (s *Service) LinkCandidates(ctx context.Context, id string) ([]domain.Activity, error) {
	source, _, err := s.GetActivity(ctx, id)
	if err != nil {
		return nil, err
	}
	activities, err := s.ListActivities(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Activity, 0, len(activities))
	for _, activity := range activities {
		if activity.ID == id || activity.Deleted || source.HasLink(activity.ID) {
			continue
		}
		out = append(out, activity)
	}
	return out, nil
}
