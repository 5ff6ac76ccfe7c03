package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/hylla/folio/internal/textmetrics"
)

// minPreviewWidth keeps narrow panes readable.
const minPreviewWidth = 24

// previewStyles maps the terminal background to a glamour standard style.
var previewStyles = map[bool]string{true: "dark", false: "light"}

// markdownRenderer draws activity content for the preview pane.
// The glamour renderer is rebuilt when the wrap width or background changes.
type markdownRenderer struct {
	key      previewKey
	renderer *glamour.TermRenderer
}

type previewKey struct {
	width int
	dark  bool
}

// render returns styled content; when glamour fails it falls back to a plain-text preview.
func (r *markdownRenderer) render(content string, width int, dark bool) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return ""
	}
	key := previewKey{width: max(width, minPreviewWidth), dark: dark}
	if err := r.ensure(key); err != nil {
		return textmetrics.StripMarkdown(content)
	}
	out, err := r.renderer.Render(content)
	if err != nil {
		return textmetrics.StripMarkdown(content)
	}
	return strings.TrimRight(out, "\n")
}

func (r *markdownRenderer) ensure(key previewKey) error {
	if r.renderer != nil && r.key == key {
		return nil
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(previewStyles[key.dark]),
		glamour.WithWordWrap(key.width),
	)
	if err != nil {
		return err
	}
	r.renderer, r.key = renderer, key
	return nil
}
