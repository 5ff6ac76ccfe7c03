package app

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/hylla/folio/internal/domain"
)

// ClipboardNoteTitle titles activities created from clipboard captures.
const ClipboardNoteTitle = "Clipboard Note"

// CaptureClipboardNote stores clipboard text as a new Active record under id.
// Text whose trimmed length does not exceed the configured minimum returns ErrNothingToCapture.
func (s *Service) CaptureClipboardNote(ctx context.Context, id, text string) (domain.Activity, error) {
	if utf8.RuneCountInString(strings.TrimSpace(text)) <= s.clipboardMin {
		return domain.Activity{}, ErrNothingToCapture
	}
	return s.CreateActivity(ctx, CreateActivityInput{
		ID:      id,
		Title:   ClipboardNoteTitle,
		Content: text,
	})
}
