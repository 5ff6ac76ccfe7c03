// Package tui renders the activity dashboard and block editor.
package tui

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"io"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/hylla/folio/internal/app"
	"github.com/hylla/folio/internal/domain"
	"github.com/hylla/folio/internal/editor"
	"github.com/hylla/folio/internal/textmetrics"
)

// Service represents the activity operations used by the terminal UI.
type Service interface {
	SearchActivities(context.Context, app.ListFilter) ([]domain.Activity, error)
	ListActivities(context.Context) ([]domain.Activity, error)
	GetActivity(context.Context, string) (domain.Activity, bool, error)
	CreateActivity(context.Context, app.CreateActivityInput) (domain.Activity, error)
	SaveActivity(context.Context, domain.Activity) (domain.Activity, error)
	ArchiveActivity(context.Context, string) (domain.Activity, bool, error)
	TrashActivity(context.Context, string) (domain.Activity, bool, error)
	RestoreActivity(context.Context, string) (domain.Activity, bool, error)
	DuplicateActivity(context.Context, string) (domain.Activity, bool, error)
	SetActivityColor(context.Context, string, string) (domain.Activity, bool, error)
	DeleteActivity(context.Context, string) error
	LinkActivities(context.Context, string, string) (domain.Activity, bool, error)
	LinkedActivities(context.Context, string) ([]domain.Activity, bool, error)
	LinkCandidates(context.Context, string) ([]domain.Activity, error)
	SwitchFocus(context.Context, app.Flusher, string, string) (domain.Activity, bool, error)
	HistoryStats(context.Context, time.Time) (app.History, error)
}

// inputMode represents a selectable mode.
type inputMode int

// modeNone and related constants define package defaults.
const (
	modeNone inputMode = iota
	modeSearch
	modeNewActivity
	modeConfirmDelete
	modeStats
	modeEditor
	modeRename
	modePasteSuggestion
	modeLinkPicker
	modeFocusPicker
)

// dashboardViews is the order the view key cycles through.
var dashboardViews = []app.View{app.ViewActive, app.ViewArchived, app.ViewTrashed}

// EditorConfigMsg delivers reloaded editor settings. They apply to the next session opened.
type EditorConfigMsg struct {
	Config editor.Config
}

// Model is the bubbletea model for the dashboard and editor.
type Model struct {
	svc         Service
	idGen       func() string
	now         func() time.Time
	editorCfg   editor.Config
	logger      *log.Logger
	saveHook    func(string)
	sessionOpts []editor.SessionOption

	ready  bool
	width  int
	height int
	dark   bool
	err    error
	status string
	mode   inputMode

	help     help.Model
	keys     keyMap
	editKeys editorKeyMap

	view        app.View
	dateRange   app.DateRange
	query       string
	searchInput textinput.Model
	titleInput  textinput.Model

	activities     []domain.Activity
	selected       int
	pendingFocusID string
	confirmID      string
	history        *app.History

	session      *editor.Session
	cursor       editor.Cursor
	busy         bool
	preview      bool
	pendingPaste string
	suggestion   *editor.Match
	picker       []domain.Activity
	pickerIndex  int
	markdown     *markdownRenderer
}

// loadedMsg carries one dashboard query result.
type loadedMsg struct {
	activities []domain.Activity
	err        error
}

// actionMsg reports the outcome of a dashboard mutation.
type actionMsg struct {
	status  string
	focusID string
	err     error
}

type historyLoadedMsg struct {
	history app.History
	err     error
}

// openedMsg carries a freshly loaded record to edit.
type openedMsg struct {
	activity domain.Activity
	found    bool
	err      error
}

type candidatesMsg struct {
	mode  inputMode
	items []domain.Activity
	err   error
}

type linkedMsg struct {
	title string
	err   error
}

type focusSwitchedMsg struct {
	activity domain.Activity
	found    bool
	err      error
}

type editorClosedMsg struct {
	id   string
	quit bool
	err  error
}

// NewModel constructs the dashboard model.
func NewModel(svc Service, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	searchInput := textinput.New()
	searchInput.Prompt = "/ "
	searchInput.Placeholder = "title or content"
	searchInput.CharLimit = 120
	titleInput := textinput.New()
	titleInput.Prompt = "title: "
	titleInput.Placeholder = "untitled"
	titleInput.CharLimit = 200
	m := Model{
		svc:         svc,
		idGen:       uuid.NewString,
		now:         time.Now,
		editorCfg:   editor.DefaultConfig(),
		logger:      log.New(io.Discard),
		status:      "loading...",
		dark:        true,
		help:        h,
		keys:        newKeyMap(),
		editKeys:    newEditorKeyMap(),
		view:        app.ViewActive,
		dateRange:   app.RangeAll,
		searchInput: searchInput,
		titleInput:  titleInput,
		markdown:    &markdownRenderer{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	return m
}

// Init loads the first dashboard page and asks the terminal for its background.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadData, tea.RequestBackgroundColor)
}

// Update updates state for the requested operation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.BackgroundColorMsg:
		m.dark = msg.IsDark()
		return m, nil

	case EditorConfigMsg:
		m.editorCfg = msg.Config
		m.status = "editor settings reloaded"
		return m, nil

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.activities = msg.activities
		if m.pendingFocusID != "" {
			for idx, activity := range m.activities {
				if activity.ID == m.pendingFocusID {
					m.selected = idx
					break
				}
			}
			m.pendingFocusID = ""
		}
		m.selected = clamp(m.selected, 0, len(m.activities)-1)
		if m.status == "" || m.status == "loading..." {
			m.status = "ready"
		}
		return m, nil

	case actionMsg:
		if msg.err != nil {
			m.status = describeError(msg.err)
			return m, m.loadData
		}
		if msg.status != "" {
			m.status = msg.status
		}
		if msg.focusID != "" {
			m.pendingFocusID = msg.focusID
		}
		return m, m.loadData

	case historyLoadedMsg:
		if msg.err != nil {
			m.status = describeError(msg.err)
			m.mode = modeNone
			return m, nil
		}
		m.history = &msg.history
		m.mode = modeStats
		m.status = "history"
		return m, nil

	case openedMsg:
		switch {
		case msg.err != nil:
			m.mode = modeNone
			m.status = describeError(msg.err)
			return m, nil
		case !msg.found:
			m.mode = modeNone
			m.status = "activity no longer exists"
			return m, m.loadData
		}
		m.openSession(msg.activity)
		return m, nil

	case savedMsg, candidatesMsg, linkedMsg, focusSwitchedMsg, editorClosedMsg:
		return m.updateEditorResult(msg)

	case tea.PasteMsg:
		if m.mode == modeEditor {
			return m.handlePaste(msg.Content)
		}
		if m.mode == modeSearch || m.mode == modeNewActivity || m.mode == modeRename {
			return m.updateActiveInput(msg)
		}
		return m, nil

	case tea.KeyPressMsg:
		switch m.mode {
		case modeNone:
			return m.handleNormalModeKey(msg)
		case modeEditor, modeRename, modePasteSuggestion, modeLinkPicker, modeFocusPicker:
			return m.handleEditorKey(msg)
		default:
			return m.handleInputModeKey(msg)
		}

	default:
		if m.mode == modeSearch || m.mode == modeNewActivity || m.mode == modeRename {
			return m.updateActiveInput(msg)
		}
		return m, nil
	}
}

// loadData queries the dashboard with the current filters.
func (m Model) loadData() tea.Msg {
	activities, err := m.svc.SearchActivities(context.Background(), app.ListFilter{
		View:  m.view,
		Query: m.query,
		Range: m.dateRange,
		Now:   m.now(),
	})
	return loadedMsg{activities: activities, err: err}
}

// handleNormalModeKey handles dashboard keys.
func (m Model) handleNormalModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case msg.String() == "esc":
		if m.help.ShowAll {
			m.help.ShowAll = false
			return m, nil
		}
		if m.query != "" {
			m.query = ""
			m.searchInput.SetValue("")
			m.status = "search cleared"
			return m, m.loadData
		}
		return m, nil
	case key.Matches(msg, m.keys.reload):
		m.status = "reloading..."
		return m, m.loadData
	case key.Matches(msg, m.keys.moveDown):
		if m.selected < len(m.activities)-1 {
			m.selected++
		}
		return m, nil
	case key.Matches(msg, m.keys.moveUp):
		if m.selected > 0 {
			m.selected--
		}
		return m, nil
	case key.Matches(msg, m.keys.search):
		m.mode = modeSearch
		m.searchInput.SetValue(m.query)
		m.searchInput.CursorEnd()
		cmd := m.searchInput.Focus()
		return m, cmd
	case key.Matches(msg, m.keys.newActivity):
		m.mode = modeNewActivity
		m.titleInput.SetValue("")
		cmd := m.titleInput.Focus()
		return m, cmd
	case key.Matches(msg, m.keys.cycleView):
		m.view = nextView(m.view)
		m.selected = 0
		m.status = "view: " + string(m.view)
		return m, m.loadData
	case key.Matches(msg, m.keys.cycleRange):
		m.dateRange = app.NextDateRange(m.dateRange)
		m.selected = 0
		m.status = "range: " + string(m.dateRange)
		return m, m.loadData
	case key.Matches(msg, m.keys.stats):
		return m, m.loadHistory
	}

	activity, ok := m.selectedActivity()
	if !ok {
		if key.Matches(msg, m.keys.open, m.keys.archive, m.keys.trash, m.keys.restore, m.keys.deleteHard, m.keys.duplicate, m.keys.cycleColor) {
			m.status = "no activity selected"
		}
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.open):
		if activity.State() == domain.StateTrashed {
			m.status = "restore the activity to edit it"
			return m, nil
		}
		return m, m.openActivity(activity.ID)
	case key.Matches(msg, m.keys.archive):
		label := "archived"
		if activity.State() == domain.StateArchived {
			label = "unarchived"
		}
		return m, m.lifecycleCmd(m.svc.ArchiveActivity, activity, label)
	case key.Matches(msg, m.keys.trash):
		return m, m.lifecycleCmd(m.svc.TrashActivity, activity, "moved to trash")
	case key.Matches(msg, m.keys.restore):
		return m, m.lifecycleCmd(m.svc.RestoreActivity, activity, "restored")
	case key.Matches(msg, m.keys.duplicate):
		return m, m.duplicateCmd(activity)
	case key.Matches(msg, m.keys.cycleColor):
		return m, m.colorCmd(activity)
	case key.Matches(msg, m.keys.deleteHard):
		m.mode = modeConfirmDelete
		m.confirmID = activity.ID
		m.status = fmt.Sprintf("delete %q forever? y/n", displayTitle(activity.Title))
		return m, nil
	}
	return m, nil
}

// handleInputModeKey handles keys for dashboard prompts and panes.
func (m Model) handleInputModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeSearch:
		switch msg.String() {
		case "esc":
			m.mode = modeNone
			m.searchInput.Blur()
			return m, nil
		case "enter":
			m.mode = modeNone
			m.searchInput.Blur()
			m.query = strings.TrimSpace(m.searchInput.Value())
			m.selected = 0
			if m.query == "" {
				m.status = "search cleared"
			} else {
				m.status = "search: " + m.query
			}
			return m, m.loadData
		}
		return m.updateActiveInput(msg)

	case modeNewActivity:
		switch msg.String() {
		case "esc":
			m.mode = modeNone
			m.titleInput.Blur()
			m.status = "cancelled"
			return m, nil
		case "enter":
			m.titleInput.Blur()
			m.status = "creating..."
			return m, m.createCmd(strings.TrimSpace(m.titleInput.Value()))
		}
		return m.updateActiveInput(msg)

	case modeConfirmDelete:
		id := m.confirmID
		m.mode = modeNone
		m.confirmID = ""
		switch msg.String() {
		case "y", "Y":
			return m, m.deleteCmd(id)
		default:
			m.status = "delete cancelled"
			return m, nil
		}

	case modeStats:
		switch msg.String() {
		case "esc", "q", "s":
			m.mode = modeNone
			m.history = nil
			m.status = "ready"
		}
		return m, nil
	}
	return m, nil
}

// updateActiveInput forwards msg to whichever text input the mode owns.
func (m Model) updateActiveInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.mode {
	case modeSearch:
		m.searchInput, cmd = m.searchInput.Update(msg)
	case modeNewActivity, modeRename:
		m.titleInput, cmd = m.titleInput.Update(msg)
	}
	return m, cmd
}

// selectedActivity returns the highlighted dashboard row.
func (m Model) selectedActivity() (domain.Activity, bool) {
	if len(m.activities) == 0 {
		return domain.Activity{}, false
	}
	return m.activities[clamp(m.selected, 0, len(m.activities)-1)], true
}

// lifecycleCmd runs one lifecycle transition and reports it.
func (m Model) lifecycleCmd(op func(context.Context, string) (domain.Activity, bool, error), activity domain.Activity, label string) tea.Cmd {
	return func() tea.Msg {
		_, found, err := op(context.Background(), activity.ID)
		if err != nil {
			return actionMsg{err: err}
		}
		if !found {
			return actionMsg{status: "activity no longer exists"}
		}
		return actionMsg{status: fmt.Sprintf("%s %q", label, displayTitle(activity.Title))}
	}
}

func (m Model) duplicateCmd(activity domain.Activity) tea.Cmd {
	return func() tea.Msg {
		copied, found, err := m.svc.DuplicateActivity(context.Background(), activity.ID)
		if err != nil {
			return actionMsg{err: err}
		}
		if !found {
			return actionMsg{status: "activity no longer exists"}
		}
		return actionMsg{status: fmt.Sprintf("duplicated as %q", displayTitle(copied.Title)), focusID: copied.ID}
	}
}

func (m Model) colorCmd(activity domain.Activity) tea.Cmd {
	next := domain.NextCardColor(activity.FlatColor)
	return func() tea.Msg {
		_, found, err := m.svc.SetActivityColor(context.Background(), activity.ID, next)
		if err != nil {
			return actionMsg{err: err}
		}
		if !found {
			return actionMsg{status: "activity no longer exists"}
		}
		return actionMsg{status: "color: " + next, focusID: activity.ID}
	}
}

func (m Model) deleteCmd(id string) tea.Cmd {
	return func() tea.Msg {
		if err := m.svc.DeleteActivity(context.Background(), id); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: "deleted forever"}
	}
}

// createCmd stores a new record and opens it for editing.
func (m Model) createCmd(title string) tea.Cmd {
	id := m.idGen()
	return func() tea.Msg {
		activity, err := m.svc.CreateActivity(context.Background(), app.CreateActivityInput{ID: id, Title: title})
		return openedMsg{activity: activity, found: err == nil, err: err}
	}
}

// openActivity reloads a record before editing so the session starts from stored state.
func (m Model) openActivity(id string) tea.Cmd {
	return func() tea.Msg {
		activity, found, err := m.svc.GetActivity(context.Background(), id)
		return openedMsg{activity: activity, found: found, err: err}
	}
}

func (m Model) loadHistory() tea.Msg {
	history, err := m.svc.HistoryStats(context.Background(), m.now())
	return historyLoadedMsg{history: history, err: err}
}

// nextView cycles active -> archived -> trashed.
func nextView(current app.View) app.View {
	for idx, v := range dashboardViews {
		if v == current {
			return dashboardViews[(idx+1)%len(dashboardViews)]
		}
	}
	return app.ViewActive
}

// describeError renders service failures for the status line.
func describeError(err error) string {
	switch {
	case errors.Is(err, app.ErrStorageUnavailable):
		return "storage unavailable: " + err.Error()
	case errors.Is(err, domain.ErrInvalidTransition):
		return "not allowed: trashed activities must be restored first"
	case errors.Is(err, domain.ErrSelfLinkRejected):
		return "cannot link an activity to itself"
	case errors.Is(err, domain.ErrDuplicateLinkRejected):
		return "already linked"
	case errors.Is(err, domain.ErrLinkCapacityExceeded):
		return fmt.Sprintf("link limit reached (%d)", domain.MaxLinks)
	default:
		return "error: " + err.Error()
	}
}

// View renders the current screen.
func (m Model) View() tea.View {
	if m.err != nil {
		v := tea.NewView("error: " + m.err.Error() + "\n\npress r to retry • q quit\n")
		v.AltScreen = true
		return v
	}
	if !m.ready {
		v := tea.NewView("loading...")
		v.AltScreen = true
		return v
	}

	var content string
	switch m.mode {
	case modeEditor, modeRename, modePasteSuggestion, modeLinkPicker, modeFocusPicker:
		content = m.renderEditor()
	default:
		content = m.renderDashboard()
	}
	v := tea.NewView(content)
	v.AltScreen = true
	return v
}

// renderDashboard renders the activity list with its header, status, and help lines.
func (m Model) renderDashboard() string {
	muted := lipgloss.Color("241")
	dim := lipgloss.Color("239")
	accent := lipgloss.Color("62")
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	statusStyle := lipgloss.NewStyle().Foreground(dim)
	selectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	subStyle := lipgloss.NewStyle().Foreground(muted)

	header := titleStyle.Render("folio") + statusStyle.Render("  ["+string(m.view)+"]")
	if m.dateRange != app.RangeAll && m.dateRange != "" {
		header += statusStyle.Render("  range: " + string(m.dateRange))
	}
	if m.query != "" {
		header += statusStyle.Render("  search: " + m.query)
	}
	header += statusStyle.Render(fmt.Sprintf("  %d", len(m.activities)))

	rowWidth := max(20, m.width-6)
	lines := make([]string, 0, len(m.activities)*2)
	if len(m.activities) == 0 {
		lines = append(lines, subStyle.Render(m.emptyMessage()))
	}
	listHeight := max(2, m.height-6)
	start, end := windowBounds(len(m.activities), m.selected, max(1, listHeight/2))
	for idx := start; idx < end; idx++ {
		activity := m.activities[idx]
		prefix := "  "
		title := truncate(displayTitle(activity.Title), rowWidth)
		if idx == m.selected {
			prefix = "│ "
			title = selectedStyle.Render(title)
		}
		lines = append(lines, prefix+m.colorSwatch(activity.FlatColor)+" "+title)
		lines = append(lines, "    "+subStyle.Render(truncate(m.rowSummary(activity), rowWidth)))
	}

	sections := []string{header, "", strings.Join(lines, "\n")}
	if m.mode == modeSearch || m.mode == modeNewActivity {
		box := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(accent).Padding(0, 1)
		if m.mode == modeSearch {
			sections = append(sections, box.Render(m.searchInput.View()))
		} else {
			sections = append(sections, box.Render(m.titleInput.View()))
		}
	}
	if strings.TrimSpace(m.status) != "" && m.status != "ready" {
		sections = append(sections, statusStyle.Render(m.status))
	}
	body := strings.Join(sections, "\n")
	if m.mode == modeStats && m.history != nil {
		body = overlayOnContent(body, m.renderHistory(accent, muted), max(1, m.width), max(1, m.height-2))
	}
	return m.withHelpLine(body, m.keys)
}

// withHelpLine pins the help bubble to the bottom of the screen.
func (m Model) withHelpLine(content string, keys help.KeyMap) string {
	muted := lipgloss.Color("241")
	dim := lipgloss.Color("239")
	helpBubble := m.help
	helpBubble.SetWidth(max(0, m.width-2))
	helpLine := lipgloss.NewStyle().
		Foreground(muted).
		BorderTop(true).
		BorderForeground(dim).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(helpBubble.View(keys))
	if m.height > 0 {
		content = fitLines(content, max(0, m.height-lipgloss.Height(helpLine)))
	}
	return content + "\n" + helpLine
}

func (m Model) emptyMessage() string {
	switch {
	case m.query != "":
		return "No activities match " + m.query
	case m.view == app.ViewTrashed:
		return "Trash is empty."
	case m.view == app.ViewArchived:
		return "Nothing archived."
	default:
		return "No activities yet. Press n to write one."
	}
}

// rowSummary renders the secondary line of a dashboard row.
func (m Model) rowSummary(activity domain.Activity) string {
	parts := []string{
		fmt.Sprintf("%d words", activity.WordCount),
		activity.UpdatedAt.Local().Format("Jan 2 15:04"),
	}
	if n := len(activity.LinkedActivityIDs); n > 0 {
		parts = append(parts, fmt.Sprintf("%d links", n))
	}
	if preview := strings.Join(strings.Fields(textmetrics.StripMarkdown(activity.Content)), " "); preview != "" {
		parts = append(parts, preview)
	}
	return strings.Join(parts, " · ")
}

// colorSwatch renders a card color dot adapted to the terminal background.
func (m Model) colorSwatch(flat string) string {
	adapted := domain.AdaptiveColor(flat, m.dark)
	if adapted == domain.ColorTransparent {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Render("○")
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(adapted)).Render("●")
}

// renderHistory renders the writing history pane.
func (m Model) renderHistory(accent, muted color.Color) string {
	h := m.history
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	mutedStyle := lipgloss.NewStyle().Foreground(muted)
	lines := []string{
		titleStyle.Render("History"),
		fmt.Sprintf("%d words across %d activities", h.TotalWords, h.ActivityCount),
		mutedStyle.Render(fmt.Sprintf("active %d · archived %d · trashed %d", h.Counts.Active, h.Counts.Archived, h.Counts.Trashed)),
		fmt.Sprintf("streak: %d days", h.Streak),
	}
	if h.BestWeekday != "" {
		lines = append(lines, fmt.Sprintf("best day: %s (%d words)", h.BestWeekday, h.BestWeekdayWords))
	}
	if h.Longest != nil {
		lines = append(lines, fmt.Sprintf("longest: %s (%d words)", truncate(displayTitle(h.Longest.Title), 32), h.Longest.Words))
	}
	lines = append(lines, "", titleStyle.Render("Last 7 days"))
	peak := 0
	for _, day := range h.LastSevenDays {
		peak = max(peak, day.Words)
	}
	for _, day := range h.LastSevenDays {
		bar := ""
		if peak > 0 {
			bar = strings.Repeat("█", day.Words*20/peak)
		}
		lines = append(lines, fmt.Sprintf("%-3s %s %d", day.Day, lipgloss.NewStyle().Foreground(accent).Render(bar), day.Words))
	}
	lines = append(lines, "", mutedStyle.Render("esc close"))
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(1, 2).
		Render(strings.Join(lines, "\n"))
}

func displayTitle(title string) string {
	if strings.TrimSpace(title) == "" {
		return "Untitled"
	}
	return title
}

// clamp clamps v to [minV, maxV]; an empty range yields minV.
func clamp(v, minV, maxV int) int {
	if maxV < minV {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

// windowBounds returns the visible [start, end) slice that keeps selected in view.
func windowBounds(total, selected, windowSize int) (int, int) {
	if total <= 0 || windowSize <= 0 {
		return 0, 0
	}
	if total <= windowSize {
		return 0, total
	}
	selected = clamp(selected, 0, total-1)
	start := max(0, selected-windowSize/2)
	end := start + windowSize
	if end > total {
		end = total
		start = max(0, end-windowSize)
	}
	return start, end
}

// fitLines pads or truncates content to exactly maxLines lines.
func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		lines = append(lines, make([]string, maxLines-len(lines))...)
	}
	return strings.Join(lines, "\n")
}

// overlayOnContent centers overlay above base on a width x height canvas.
func overlayOnContent(base, overlay string, width, height int) string {
	if width <= 0 || height <= 0 {
		if strings.TrimSpace(overlay) == "" {
			return base
		}
		return overlay + "\n\n" + base
	}

	base = fitLines(base, height)
	canvas := lipgloss.NewCanvas(width, height)
	baseLayer := lipgloss.NewLayer(base).X(0).Y(0).Z(0)
	centered := lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, overlay)
	canvas.Compose(baseLayer)
	canvas.Compose(lipgloss.NewLayer(centered).X(0).Y(0).Z(10))
	return canvas.Render()
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= max {
		return s
	}
	if max <= 1 {
		return string(rs[:max])
	}
	return string(rs[:max-1]) + "…"
}
