package tui

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/hylla/folio/internal/editor"
)

type Option func(*Model)

// WithEditorConfig sets the configuration handed to each new editor session.
func WithEditorConfig(cfg editor.Config) Option {
	return func(m *Model) {
		m.editorCfg = cfg
	}
}

// WithLogger sets the logger passed to editor sessions.
func WithLogger(logger *log.Logger) Option {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithSaveHook observes every autosave result, e.g. for metrics.
func WithSaveHook(hook func(result string)) Option {
	return func(m *Model) {
		m.saveHook = hook
	}
}

// WithSessionOptions appends options applied to every editor session.
func WithSessionOptions(opts ...editor.SessionOption) Option {
	return func(m *Model) {
		m.sessionOpts = append(m.sessionOpts, opts...)
	}
}

func WithIDGenerator(gen func() string) Option {
	return func(m *Model) {
		if gen != nil {
			m.idGen = gen
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Model) {
		if now != nil {
			m.now = now
		}
	}
}
