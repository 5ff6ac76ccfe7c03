package editor

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/coregx/ahocorasick"

	"github.com/hylla/folio/internal/domain"
)

// reverseContainmentFactor sets how much longer than PasteMinLength a paste must
// be before existing content is searched for inside it.
const reverseContainmentFactor = 4

// MatchKind names the rule that matched a paste to an existing activity.
type MatchKind string

// MatchTitle and related constants define paste match rules in precedence order.
const (
	MatchTitle                MatchKind = "title"
	MatchContentContainsPaste MatchKind = "content_contains_paste"
	MatchPasteContainsContent MatchKind = "paste_contains_content"
)

// Match is an existing activity a paste duplicates.
type Match struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	Kind  MatchKind `json:"kind"`
}

// ActivityLister is the read port the detector searches.
type ActivityLister interface {
	ListActivities(context.Context) ([]domain.Activity, error)
}

// PasteDetector decides whether pasted text duplicates an existing activity.
type PasteDetector struct {
	lister ActivityLister
	cfg    Config
}

// NewPasteDetector constructs a detector with an explicit configuration.
func NewPasteDetector(lister ActivityLister, cfg Config) *PasteDetector {
	return &PasteDetector{lister: lister, cfg: cfg.normalized()}
}

// Detect searches non-trashed activities other than currentID for one that text duplicates.
func (d *PasteDetector) Detect(ctx context.Context, currentID, text string) (Match, bool, error) {
	paste := strings.TrimSpace(text)
	pasteLen := utf8.RuneCountInString(paste)
	if !d.cfg.AutoLinkDetection || pasteLen < d.cfg.PasteMinLength {
		return Match{}, false, nil
	}

	all, err := d.lister.ListActivities(ctx)
	if err != nil {
		return Match{}, false, err
	}
	candidates := make([]domain.Activity, 0, len(all))
	for _, a := range all {
		if a.ID == currentID || a.Deleted {
			continue
		}
		candidates = append(candidates, a)
	}
	slices.SortStableFunc(candidates, func(a, b domain.Activity) int {
		return cmp.Compare(b.UpdatedAt.UnixNano(), a.UpdatedAt.UnixNano())
	})

	lowered := strings.ToLower(paste)
	for _, a := range candidates {
		if strings.EqualFold(strings.TrimSpace(a.Title), paste) {
			return matchFor(a, MatchTitle), true, nil
		}
	}
	for _, a := range candidates {
		if strings.Contains(strings.ToLower(a.Content), lowered) {
			return matchFor(a, MatchContentContainsPaste), true, nil
		}
	}
	if pasteLen < reverseContainmentFactor*d.cfg.PasteMinLength {
		return Match{}, false, nil
	}
	if idx, ok := d.findContainedCandidate(lowered, candidates); ok {
		return matchFor(candidates[idx], MatchPasteContainsContent), true, nil
	}
	return Match{}, false, nil
}

// findContainedCandidate scans the paste once for every candidate content and title
// long enough to count, returning the most recent candidate that occurs.
func (d *PasteDetector) findContainedCandidate(lowered string, candidates []domain.Activity) (int, bool) {
	patterns := make([]string, 0, len(candidates)*2)
	owners := make([]int, 0, len(candidates)*2)
	seen := map[string]struct{}{}
	for idx, a := range candidates {
		for _, field := range []string{a.Content, a.Title} {
			pattern := strings.ToLower(strings.TrimSpace(field))
			if utf8.RuneCountInString(pattern) < d.cfg.PasteMinLength {
				continue
			}
			if _, dup := seen[pattern]; dup {
				continue
			}
			seen[pattern] = struct{}{}
			patterns = append(patterns, pattern)
			owners = append(owners, idx)
		}
	}
	if len(patterns) == 0 {
		return 0, false
	}

	automaton, err := ahocorasick.NewBuilder().
		AddStrings(patterns).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
	if err != nil {
		return 0, false
	}

	best := -1
	for _, m := range automaton.FindAllOverlapping([]byte(lowered)) {
		if m.PatternID < 0 || m.PatternID >= len(owners) {
			continue
		}
		if owner := owners[m.PatternID]; best < 0 || owner < best {
			best = owner
		}
	}
	return best, best >= 0
}

func matchFor(a domain.Activity, kind MatchKind) Match {
	return Match{ID: a.ID, Title: a.Title, Kind: kind}
}
