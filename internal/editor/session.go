package editor

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/hylla/folio/internal/domain"
	"github.com/hylla/folio/internal/textmetrics"
)

// DefaultDebounce and related constants define editor defaults.
const (
	DefaultDebounce       = 1500 * time.Millisecond
	DefaultPasteMinLength = 10
)

// Autosave results reported to the save hook.
const (
	SaveResultSaved  = "saved"
	SaveResultFailed = "failed"
)

// ErrSessionClosed and related errors describe session misuse.
var (
	ErrSessionClosed          = errors.New("editor session closed")
	ErrSessionActivityMissing = errors.New("session activity no longer exists")
)

// Config is the explicit editor configuration handed to a session at start.
type Config struct {
	Debounce          time.Duration
	AutoLinkDetection bool
	PasteMinLength    int
}

// DefaultConfig returns the editor defaults.
func DefaultConfig() Config {
	return Config{
		Debounce:          DefaultDebounce,
		AutoLinkDetection: true,
		PasteMinLength:    DefaultPasteMinLength,
	}
}

func (c Config) normalized() Config {
	if c.Debounce <= 0 {
		c.Debounce = DefaultDebounce
	}
	if c.PasteMinLength <= 0 {
		c.PasteMinLength = DefaultPasteMinLength
	}
	return c
}

// Saver persists an activity, stamping updatedAt and wordCount.
type Saver interface {
	SaveActivity(context.Context, domain.Activity) (domain.Activity, error)
}

// Linker appends a one-directional link from source to target.
type Linker interface {
	LinkActivities(ctx context.Context, sourceID, targetID string) (domain.Activity, bool, error)
}

// Timer is the stoppable handle returned by a TimerFunc.
type Timer interface {
	Stop() bool
}

// TimerFunc schedules fn after d.
type TimerFunc func(d time.Duration, fn func()) Timer

func afterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *log.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTimerFunc replaces time.AfterFunc for debounce scheduling.
func WithTimerFunc(fn TimerFunc) SessionOption {
	return func(s *Session) {
		if fn != nil {
			s.timerFunc = fn
		}
	}
}

// WithSaveHook registers a callback invoked with SaveResultSaved or SaveResultFailed after each save attempt.
func WithSaveHook(hook func(result string)) SessionOption {
	return func(s *Session) {
		s.onSave = hook
	}
}

// WithContext sets the context used for timer-driven saves.
func WithContext(ctx context.Context) SessionOption {
	return func(s *Session) {
		if ctx != nil {
			s.ctx = ctx
		}
	}
}

// WithPasteDetector enables paste link detection for the session.
func WithPasteDetector(detector *PasteDetector) SessionOption {
	return func(s *Session) {
		s.detector = detector
	}
}

// WithDocumentOptions forwards options to the session's Document.
func WithDocumentOptions(opts ...DocumentOption) SessionOption {
	return func(s *Session) {
		s.docOpts = append(s.docOpts, opts...)
	}
}

// fields is the persisted-relevant state compared against the baseline.
type fields struct {
	title   string
	content string
	color   string
}

// Session edits one activity. The Document is the source of truth while the session
// is open; content flows one way from it to storage.
type Session struct {
	mu     sync.Mutex
	saveMu sync.Mutex

	activity domain.Activity
	doc      *Document
	title    string
	color    string
	baseline fields
	timer    Timer
	gen      uint64
	closed   bool

	cfg       Config
	saver     Saver
	detector  *PasteDetector
	logger    *log.Logger
	timerFunc TimerFunc
	onSave    func(string)
	ctx       context.Context
	docOpts   []DocumentOption
}

// NewSession opens activity for editing with an explicit configuration.
func NewSession(activity domain.Activity, saver Saver, cfg Config, opts ...SessionOption) *Session {
	s := &Session{
		activity:  activity,
		title:     activity.Title,
		color:     activity.FlatColor,
		cfg:       cfg.normalized(),
		saver:     saver,
		logger:    log.New(io.Discard),
		timerFunc: afterFunc,
		ctx:       context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.doc = FromContent(activity.Content, s.docOpts...)
	s.baseline = fields{title: activity.Title, content: s.doc.Content(), color: activity.FlatColor}
	return s
}

// ID returns the id of the activity under edit.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activity.ID
}

// Config returns the configuration the session was opened with.
func (s *Session) Config() Config {
	return s.cfg
}

// Activity returns the in-memory view of the activity, including unsaved edits.
func (s *Session) Activity() domain.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.activity
	out.Title = s.title
	out.Content = s.doc.Content()
	out.FlatColor = s.color
	out.WordCount = textmetrics.WordCount(out.Content)
	out.LinkedActivityIDs = append([]string(nil), s.activity.LinkedActivityIDs...)
	return out
}

// Dirty reports whether in-memory state differs from the last persisted snapshot.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current() != s.baseline
}

// Blocks returns a copy of the current blocks.
func (s *Session) Blocks() []Block {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Blocks()
}

// Focus returns the document cursor.
func (s *Session) Focus() Cursor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Focus()
}

// SetFocus moves the document cursor without marking the session dirty.
func (s *Session) SetFocus(c Cursor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.SetFocus(c)
}

// SetTitle replaces the title and re-arms autosave.
func (s *Session) SetTitle(title string) error {
	return s.mutate(func() error {
		s.title = title
		return nil
	})
}

// SetColor replaces the color tag and re-arms autosave.
func (s *Session) SetColor(color string) error {
	return s.mutate(func() error {
		s.color = color
		return nil
	})
}

// Edit runs fn against the document and re-arms autosave.
func (s *Session) Edit(fn func(*Document) error) error {
	return s.mutate(func() error {
		return fn(s.doc)
	})
}

// InsertText inserts text at (block, offset).
func (s *Session) InsertText(block, offset int, text string) (Cursor, error) {
	var c Cursor
	err := s.mutate(func() error {
		var err error
		c, err = s.doc.InsertText(block, offset, text)
		return err
	})
	return c, err
}

// DeleteBackward removes the rune before the cursor, merging blocks at offset 0.
func (s *Session) DeleteBackward(block, offset int) (Cursor, bool, error) {
	var (
		c  Cursor
		ok bool
	)
	err := s.mutate(func() error {
		var err error
		c, ok, err = s.doc.DeleteBackward(block, offset)
		return err
	})
	return c, ok, err
}

// Split splits the block at offset.
func (s *Session) Split(block, offset int) (Cursor, error) {
	var c Cursor
	err := s.mutate(func() error {
		var err error
		c, err = s.doc.Split(block, offset)
		return err
	})
	return c, err
}

// MergeBackward merges the block into its predecessor.
func (s *Session) MergeBackward(block, offset int) (Cursor, bool, error) {
	var (
		c  Cursor
		ok bool
	)
	err := s.mutate(func() error {
		c, ok = s.doc.MergeBackward(block, offset)
		return nil
	})
	return c, ok, err
}

// NavigateUp moves focus to the previous block.
func (s *Session) NavigateUp(block, offset int) (Cursor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.NavigateUp(block, offset)
}

// NavigateDown moves focus to the next block.
func (s *Session) NavigateDown(block, offset int) (Cursor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.NavigateDown(block, offset)
}

// PasteResult reports how a paste was handled.
type PasteResult struct {
	Inserted   bool
	Cursor     Cursor
	Suggestion *Match
}

// Paste checks text against existing activities. A match is returned as a
// suggestion and nothing is inserted; otherwise the text is inserted.
func (s *Session) Paste(ctx context.Context, block, offset int, text string) (PasteResult, error) {
	if s.detector != nil && s.cfg.AutoLinkDetection {
		match, ok, err := s.detector.Detect(ctx, s.ID(), text)
		switch {
		case err != nil:
			s.logger.Warn("paste link detection failed", "activity_id", s.ID(), "err", err)
		case ok:
			return PasteResult{Suggestion: &match}, nil
		}
	}
	c, err := s.InsertText(block, offset, text)
	if err != nil {
		return PasteResult{}, err
	}
	return PasteResult{Inserted: true, Cursor: c}, nil
}

// InsertLiteral inserts pasted text without detection, for a declined suggestion.
func (s *Session) InsertLiteral(block, offset int, text string) (Cursor, error) {
	return s.InsertText(block, offset, text)
}

// AcceptLink links the session activity to the suggested match instead of inserting text.
func (s *Session) AcceptLink(ctx context.Context, linker Linker, match Match) (domain.Activity, error) {
	return s.Link(ctx, linker, match.ID)
}

// Link adds an outbound link through linker and adopts the persisted link list,
// so later autosaves do not overwrite it.
func (s *Session) Link(ctx context.Context, linker Linker, targetID string) (domain.Activity, error) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	linked, found, err := linker.LinkActivities(ctx, s.ID(), targetID)
	if err != nil {
		return domain.Activity{}, err
	}
	if !found {
		return domain.Activity{}, ErrSessionActivityMissing
	}
	s.mu.Lock()
	s.activity.LinkedActivityIDs = linked.LinkedActivityIDs
	if linked.UpdatedAt.After(s.activity.UpdatedAt) {
		s.activity.UpdatedAt = linked.UpdatedAt
	}
	s.mu.Unlock()
	return s.Activity(), nil
}

// ForceSave cancels any pending timer and saves immediately if dirty.
// Calling it with nothing changed is a no-op.
func (s *Session) ForceSave(ctx context.Context) (bool, error) {
	s.mu.Lock()
	s.stopTimerLocked()
	s.mu.Unlock()

	saved, err := s.save(ctx)
	if err != nil {
		s.mu.Lock()
		s.scheduleLocked()
		s.mu.Unlock()
	}
	return saved, err
}

// Close flushes pending edits and ends the session. When the flush fails the
// session stays open so the caller can retry.
func (s *Session) Close(ctx context.Context) error {
	if _, err := s.ForceSave(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
	s.closed = true
	return nil
}

func (s *Session) mutate(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if err := fn(); err != nil {
		return err
	}
	s.scheduleLocked()
	return nil
}

func (s *Session) current() fields {
	return fields{title: s.title, content: s.doc.Content(), color: s.color}
}

func (s *Session) scheduleLocked() {
	if s.closed {
		return
	}
	s.stopTimerLocked()
	s.gen++
	gen := s.gen
	s.timer = s.timerFunc(s.cfg.Debounce, func() { s.fire(gen) })
}

func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}

// fire runs a debounced save unless a later mutation superseded this timer.
func (s *Session) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.closed {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.mu.Unlock()

	if _, err := s.save(s.ctx); err != nil {
		s.logger.Warn("autosave failed; retrying next cycle", "activity_id", s.ID(), "err", err)
		s.mu.Lock()
		if gen == s.gen {
			s.scheduleLocked()
		}
		s.mu.Unlock()
	}
}

// save writes the state captured when it starts. Saves are serialized, so the
// last requested content wins.
func (s *Session) save(ctx context.Context) (bool, error) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	snapshot := s.current()
	if snapshot == s.baseline {
		s.mu.Unlock()
		return false, nil
	}
	next := s.activity
	next.Title = snapshot.title
	next.Content = snapshot.content
	next.FlatColor = snapshot.color
	next.LinkedActivityIDs = append([]string(nil), s.activity.LinkedActivityIDs...)
	s.mu.Unlock()

	saved, err := s.saver.SaveActivity(ctx, next)
	if err != nil {
		s.report(SaveResultFailed)
		return false, err
	}

	s.mu.Lock()
	s.activity = saved
	s.baseline = snapshot
	s.mu.Unlock()
	s.report(SaveResultSaved)
	s.logger.Debug("activity saved", "activity_id", saved.ID, "words", saved.WordCount)
	return true, nil
}

func (s *Session) report(result string) {
	if s.onSave != nil {
		s.onSave(result)
	}
}
