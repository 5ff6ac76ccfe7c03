package domain

import (
	"slices"
	"strings"
	"time"
)

// MaxLinks caps the outbound link list of one activity.
const MaxLinks = 5

// LifecycleState is derived from the archived/deleted flags and never persisted directly.
type LifecycleState string

const (
	StateActive   LifecycleState = "active"
	StateArchived LifecycleState = "archived"
	StateTrashed  LifecycleState = "trashed"
)

type Activity struct {
	ID                string
	Title             string
	Content           string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	WordCount         int
	LinkedActivityIDs []string
	Archived          bool
	Deleted           bool
	FlatColor         string
}

type ActivityInput struct {
	ID        string
	Title     string
	Content   string
	FlatColor string
}

func NewActivity(in ActivityInput, now time.Time) (Activity, error) {
	in.ID = strings.TrimSpace(in.ID)
	if in.ID == "" {
		return Activity{}, ErrInvalidID
	}
	ts := now.UTC()
	return Activity{
		ID:                in.ID,
		Title:             in.Title,
		Content:           in.Content,
		CreatedAt:         ts,
		UpdatedAt:         ts,
		LinkedActivityIDs: []string{},
		FlatColor:         normalizeColor(in.FlatColor),
	}, nil
}

// State reports the lifecycle state. Trashed wins over archived.
func (a Activity) State() LifecycleState {
	switch {
	case a.Deleted:
		return StateTrashed
	case a.Archived:
		return StateArchived
	default:
		return StateActive
	}
}

func (a *Activity) ToggleArchive(now time.Time) error {
	if a.Deleted {
		return ErrInvalidTransition
	}
	a.Archived = !a.Archived
	a.touch(now)
	return nil
}

// SoftDelete moves the record to the trash and keeps the archived flag as provenance.
func (a *Activity) SoftDelete(now time.Time) {
	a.Deleted = true
	a.touch(now)
}

func (a *Activity) Restore(now time.Time) {
	a.Deleted = false
	a.Archived = false
	a.touch(now)
}

func (a *Activity) SetDetails(title, content, color string, now time.Time) {
	a.Title = title
	a.Content = content
	a.FlatColor = normalizeColor(color)
	a.touch(now)
}

func (a *Activity) SetColor(color string, now time.Time) {
	a.FlatColor = normalizeColor(color)
	a.touch(now)
}

// Stamp advances UpdatedAt without changing any other field.
func (a *Activity) Stamp(now time.Time) {
	a.touch(now)
}

// HasLink reports whether id is in the outbound link list.
func (a Activity) HasLink(id string) bool {
	return slices.Contains(a.LinkedActivityIDs, id)
}

// AppendLink adds a one-directional edge to targetID.
func (a *Activity) AppendLink(targetID string, now time.Time) error {
	targetID = strings.TrimSpace(targetID)
	switch {
	case targetID == "":
		return ErrInvalidID
	case targetID == a.ID:
		return ErrSelfLinkRejected
	case a.HasLink(targetID):
		return ErrDuplicateLinkRejected
	case len(a.LinkedActivityIDs) >= MaxLinks:
		return ErrLinkCapacityExceeded
	}
	a.LinkedActivityIDs = append(slices.Clone(a.LinkedActivityIDs), targetID)
	a.touch(now)
	return nil
}

// RemoveLink drops targetID and reports whether anything changed.
func (a *Activity) RemoveLink(targetID string, now time.Time) bool {
	idx := slices.Index(a.LinkedActivityIDs, targetID)
	if idx < 0 {
		return false
	}
	a.LinkedActivityIDs = slices.Delete(slices.Clone(a.LinkedActivityIDs), idx, idx+1)
	a.touch(now)
	return true
}

// PrependLink puts sourceID at the head of the list and truncates to MaxLinks,
// evicting the oldest entries. It is a no-op when sourceID is already present.
func (a *Activity) PrependLink(sourceID string, now time.Time) (evicted []string, changed bool) {
	sourceID = strings.TrimSpace(sourceID)
	if sourceID == "" || sourceID == a.ID || a.HasLink(sourceID) {
		return nil, false
	}
	next := append([]string{sourceID}, a.LinkedActivityIDs...)
	if len(next) > MaxLinks {
		evicted = slices.Clone(next[MaxLinks:])
		next = next[:MaxLinks]
	}
	a.LinkedActivityIDs = next
	a.touch(now)
	return evicted, true
}

// Duplicate returns a fresh Active copy under newID.
func (a Activity) Duplicate(newID, titleSuffix string, now time.Time) (Activity, error) {
	dup, err := NewActivity(ActivityInput{
		ID:        newID,
		Title:     a.Title + titleSuffix,
		Content:   a.Content,
		FlatColor: a.FlatColor,
	}, now)
	if err != nil {
		return Activity{}, err
	}
	dup.WordCount = a.WordCount
	dup.LinkedActivityIDs = NormalizeLinks(dup.ID, a.LinkedActivityIDs)
	return dup, nil
}

func (a Activity) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return ErrInvalidID
	}
	if a.UpdatedAt.Before(a.CreatedAt) {
		return ErrInvalidTimestamps
	}
	if len(a.LinkedActivityIDs) > MaxLinks {
		return ErrInvalidLinks
	}
	seen := make(map[string]struct{}, len(a.LinkedActivityIDs))
	for _, id := range a.LinkedActivityIDs {
		if id == "" || id == a.ID {
			return ErrInvalidLinks
		}
		if _, ok := seen[id]; ok {
			return ErrInvalidLinks
		}
		seen[id] = struct{}{}
	}
	return nil
}

// NormalizeLinks keeps the first MaxLinks unique ids that are neither blank nor selfID.
func NormalizeLinks(selfID string, ids []string) []string {
	out := make([]string, 0, min(len(ids), MaxLinks))
	seen := map[string]struct{}{}
	for _, raw := range ids {
		id := strings.TrimSpace(raw)
		if id == "" || id == selfID {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
		if len(out) == MaxLinks {
			break
		}
	}
	return out
}

func (a *Activity) touch(now time.Time) {
	ts := now.UTC()
	if ts.Before(a.UpdatedAt) {
		return
	}
	a.UpdatedAt = ts
}

func normalizeColor(color string) string {
	return strings.TrimSpace(color)
}
