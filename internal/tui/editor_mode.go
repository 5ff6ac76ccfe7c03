package tui

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/hylla/folio/internal/domain"
	"github.com/hylla/folio/internal/editor"
	"github.com/hylla/folio/internal/textmetrics"
)

// savedMsg reports an explicit ctrl+s flush.
type savedMsg struct {
	saved bool
	err   error
}

// openSession starts editing activity with the current editor settings.
func (m *Model) openSession(activity domain.Activity) {
	opts := []editor.SessionOption{
		editor.WithLogger(m.logger),
		editor.WithPasteDetector(editor.NewPasteDetector(m.svc, m.editorCfg)),
	}
	if m.saveHook != nil {
		opts = append(opts, editor.WithSaveHook(m.saveHook))
	}
	opts = append(opts, m.sessionOpts...)
	m.session = editor.NewSession(activity, m.svc, m.editorCfg, opts...)

	blocks := m.session.Blocks()
	last := len(blocks) - 1
	m.cursor = editor.Cursor{Block: last, Offset: utf8.RuneCountInString(blocks[last].Text), OffsetSet: true}
	_ = m.session.SetFocus(m.cursor)

	m.mode = modeEditor
	m.busy = false
	m.preview = false
	m.pendingPaste = ""
	m.suggestion = nil
	m.picker = nil
	m.pickerIndex = 0
	m.status = fmt.Sprintf("editing %q", displayTitle(activity.Title))
}

// handleEditorKey routes keys while a session is open.
func (m Model) handleEditorKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if m.session == nil {
		m.mode = modeNone
		return m, m.loadData
	}
	if m.busy {
		m.status = "saving..."
		return m, nil
	}
	switch m.mode {
	case modeRename:
		return m.handleRenameKey(msg)
	case modePasteSuggestion:
		return m.handleSuggestionKey(msg)
	case modeLinkPicker, modeFocusPicker:
		return m.handlePickerKey(msg)
	}

	switch {
	case msg.String() == "ctrl+c":
		m.busy = true
		return m, m.closeCmd(true)
	case key.Matches(msg, m.editKeys.close):
		m.busy = true
		m.status = "saving..."
		return m, m.closeCmd(false)
	case key.Matches(msg, m.editKeys.save):
		session := m.session
		return m, func() tea.Msg {
			saved, err := session.ForceSave(context.Background())
			return savedMsg{saved: saved, err: err}
		}
	case key.Matches(msg, m.editKeys.split):
		c, err := m.session.Split(m.cursor.Block, m.cursor.Offset)
		return m.afterEdit(c, err)
	case key.Matches(msg, m.editKeys.backspace):
		c, _, err := m.session.DeleteBackward(m.cursor.Block, m.cursor.Offset)
		return m.afterEdit(c, err)
	case key.Matches(msg, m.editKeys.up):
		if m.cursor.Offset > 0 {
			m.cursor.Offset = 0
			return m, nil
		}
		if c, ok := m.session.NavigateUp(m.cursor.Block, m.cursor.Offset); ok {
			m.moveCursor(c)
		}
		return m, nil
	case key.Matches(msg, m.editKeys.down):
		if end := m.blockLen(m.cursor.Block); m.cursor.Offset < end {
			m.cursor.Offset = end
			return m, nil
		}
		if c, ok := m.session.NavigateDown(m.cursor.Block, m.cursor.Offset); ok {
			m.moveCursor(c)
		}
		return m, nil
	case key.Matches(msg, m.editKeys.left):
		switch {
		case m.cursor.Offset > 0:
			m.cursor.Offset--
		case m.cursor.Block > 0:
			m.cursor.Block--
			m.cursor.Offset = m.blockLen(m.cursor.Block)
		}
		_ = m.session.SetFocus(m.cursor)
		return m, nil
	case key.Matches(msg, m.editKeys.right):
		switch {
		case m.cursor.Offset < m.blockLen(m.cursor.Block):
			m.cursor.Offset++
		case m.cursor.Block < len(m.session.Blocks())-1:
			m.cursor.Block++
			m.cursor.Offset = 0
		}
		_ = m.session.SetFocus(m.cursor)
		return m, nil
	case key.Matches(msg, m.editKeys.home):
		m.cursor.Offset = 0
		return m, nil
	case key.Matches(msg, m.editKeys.end):
		m.cursor.Offset = m.blockLen(m.cursor.Block)
		return m, nil
	case key.Matches(msg, m.editKeys.title):
		m.mode = modeRename
		m.titleInput.SetValue(m.session.Activity().Title)
		m.titleInput.CursorEnd()
		cmd := m.titleInput.Focus()
		return m, cmd
	case key.Matches(msg, m.editKeys.link):
		return m, m.loadCandidates(modeLinkPicker)
	case key.Matches(msg, m.editKeys.focus):
		return m, m.loadCandidates(modeFocusPicker)
	case key.Matches(msg, m.editKeys.preview):
		m.preview = !m.preview
		return m, nil
	case key.Matches(msg, m.editKeys.color):
		next := domain.NextCardColor(m.session.Activity().FlatColor)
		if err := m.session.SetColor(next); err != nil {
			m.status = describeError(err)
			return m, nil
		}
		m.status = "color: " + next
		return m, nil
	}

	if msg.Text == "" || msg.Mod&(tea.ModCtrl|tea.ModAlt) != 0 {
		return m, nil
	}
	c, err := m.session.InsertText(m.cursor.Block, m.cursor.Offset, msg.Text)
	return m.afterEdit(c, err)
}

// afterEdit adopts the cursor returned by a document edit.
func (m Model) afterEdit(c editor.Cursor, err error) (tea.Model, tea.Cmd) {
	if err != nil {
		m.status = describeError(err)
		return m, nil
	}
	m.moveCursor(c)
	return m, nil
}

// moveCursor applies c, keeping the caret at the end of the block when the editor leaves the offset open.
func (m *Model) moveCursor(c editor.Cursor) {
	m.cursor.Block = c.Block
	if c.OffsetSet {
		m.cursor.Offset = c.Offset
	} else {
		m.cursor.Offset = m.blockLen(c.Block)
	}
	m.cursor.OffsetSet = true
}

func (m Model) blockLen(i int) int {
	blocks := m.session.Blocks()
	if i < 0 || i >= len(blocks) {
		return 0
	}
	return utf8.RuneCountInString(blocks[i].Text)
}

func (m Model) handleRenameKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeEditor
		m.titleInput.Blur()
		return m, nil
	case "enter":
		m.mode = modeEditor
		m.titleInput.Blur()
		title := strings.TrimSpace(m.titleInput.Value())
		if err := m.session.SetTitle(title); err != nil {
			m.status = describeError(err)
			return m, nil
		}
		m.status = fmt.Sprintf("renamed to %q", displayTitle(title))
		return m, nil
	}
	return m.updateActiveInput(msg)
}

// handlePaste routes bracketed paste through link detection.
func (m Model) handlePaste(text string) (tea.Model, tea.Cmd) {
	if m.session == nil || m.busy || text == "" {
		return m, nil
	}
	result, err := m.session.Paste(context.Background(), m.cursor.Block, m.cursor.Offset, text)
	if err != nil {
		m.status = describeError(err)
		return m, nil
	}
	if result.Suggestion != nil {
		m.mode = modePasteSuggestion
		m.pendingPaste = text
		m.suggestion = result.Suggestion
		m.status = fmt.Sprintf("pasted text matches %q: link instead? y/n", displayTitle(result.Suggestion.Title))
		return m, nil
	}
	m.moveCursor(result.Cursor)
	return m, nil
}

func (m Model) handleSuggestionKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "enter":
		match := *m.suggestion
		session := m.session
		m.mode = modeEditor
		m.pendingPaste = ""
		m.suggestion = nil
		return m, func() tea.Msg {
			_, err := session.AcceptLink(context.Background(), m.svc, match)
			return linkedMsg{title: match.Title, err: err}
		}
	case "n", "N":
		text := m.pendingPaste
		m.mode = modeEditor
		m.pendingPaste = ""
		m.suggestion = nil
		c, err := m.session.InsertLiteral(m.cursor.Block, m.cursor.Offset, text)
		m.status = "pasted as text"
		return m.afterEdit(c, err)
	case "esc":
		m.mode = modeEditor
		m.pendingPaste = ""
		m.suggestion = nil
		m.status = "paste discarded"
		return m, nil
	}
	return m, nil
}

// loadCandidates fetches picker entries: linkable records or current links.
func (m Model) loadCandidates(mode inputMode) tea.Cmd {
	id := m.session.ID()
	return func() tea.Msg {
		if mode == modeLinkPicker {
			items, err := m.svc.LinkCandidates(context.Background(), id)
			return candidatesMsg{mode: mode, items: items, err: err}
		}
		items, _, err := m.svc.LinkedActivities(context.Background(), id)
		return candidatesMsg{mode: mode, items: items, err: err}
	}
}

func (m Model) handlePickerKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeEditor
		m.picker = nil
		return m, nil
	case "up", "k":
		if m.pickerIndex > 0 {
			m.pickerIndex--
		}
		return m, nil
	case "down", "j":
		if m.pickerIndex < len(m.picker)-1 {
			m.pickerIndex++
		}
		return m, nil
	case "enter":
	default:
		return m, nil
	}

	if len(m.picker) == 0 {
		m.mode = modeEditor
		return m, nil
	}
	target := m.picker[clamp(m.pickerIndex, 0, len(m.picker)-1)]
	session := m.session
	mode := m.mode
	m.mode = modeEditor
	m.picker = nil
	if mode == modeLinkPicker {
		return m, func() tea.Msg {
			_, err := session.Link(context.Background(), m.svc, target.ID)
			return linkedMsg{title: target.Title, err: err}
		}
	}
	m.busy = true
	m.status = fmt.Sprintf("opening %q...", displayTitle(target.Title))
	return m, func() tea.Msg {
		ctx := context.Background()
		activity, found, err := m.svc.SwitchFocus(ctx, session, session.ID(), target.ID)
		if err != nil {
			return focusSwitchedMsg{err: err}
		}
		if err := session.Close(ctx); err != nil {
			return focusSwitchedMsg{err: err}
		}
		return focusSwitchedMsg{activity: activity, found: found}
	}
}

// closeCmd flushes and ends the session.
func (m Model) closeCmd(quit bool) tea.Cmd {
	session := m.session
	return func() tea.Msg {
		return editorClosedMsg{id: session.ID(), quit: quit, err: session.Close(context.Background())}
	}
}

// updateEditorResult applies results of editor commands.
func (m Model) updateEditorResult(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case savedMsg:
		switch {
		case msg.err != nil:
			m.status = "save failed: " + describeError(msg.err)
		case msg.saved:
			m.status = "saved"
		default:
			m.status = "no changes"
		}
		return m, nil

	case candidatesMsg:
		if msg.err != nil {
			m.status = describeError(msg.err)
			return m, nil
		}
		if m.session == nil || m.mode != modeEditor {
			return m, nil
		}
		if len(msg.items) == 0 {
			if msg.mode == modeLinkPicker {
				m.status = "nothing to link"
			} else {
				m.status = "no linked activities"
			}
			return m, nil
		}
		m.mode = msg.mode
		m.picker = msg.items
		m.pickerIndex = 0
		return m, nil

	case linkedMsg:
		if msg.err != nil {
			m.status = describeError(msg.err)
			return m, nil
		}
		m.status = fmt.Sprintf("linked %q", displayTitle(msg.title))
		return m, nil

	case focusSwitchedMsg:
		m.busy = false
		switch {
		case msg.err != nil:
			m.status = describeError(msg.err)
			return m, nil
		case !msg.found:
			m.status = "linked activity no longer exists"
			return m, nil
		}
		m.openSession(msg.activity)
		return m, nil

	case editorClosedMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "save failed, still editing: " + describeError(msg.err)
			return m, nil
		}
		m.session = nil
		m.mode = modeNone
		m.preview = false
		m.pendingFocusID = msg.id
		m.status = "saved"
		if msg.quit {
			return m, tea.Quit
		}
		return m, m.loadData
	}
	return m, nil
}

// renderEditor renders the open session.
func (m Model) renderEditor() string {
	activity := m.session.Activity()
	muted := lipgloss.Color("241")
	dim := lipgloss.Color("239")
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	statusStyle := lipgloss.NewStyle().Foreground(dim)
	mutedStyle := lipgloss.NewStyle().Foreground(muted)

	state := "saved"
	if m.session.Dirty() {
		state = "● unsaved"
	}
	header := titleStyle.Render("folio") + "  " + m.colorSwatch(activity.FlatColor) + " " + displayTitle(activity.Title) + statusStyle.Render("  "+state)
	if n := len(activity.LinkedActivityIDs); n > 0 {
		header += statusStyle.Render(fmt.Sprintf("  links %d/%d", n, domain.MaxLinks))
	}

	bodyHeight := max(3, m.height-7)
	var body string
	if m.preview {
		body = m.markdown.render(activity.Content, max(minPreviewWidth, m.width-4), m.dark)
		if body == "" {
			body = mutedStyle.Render("(empty)")
		}
	} else {
		body = m.renderBlocks(bodyHeight)
	}

	metrics := textmetrics.Analyze(activity.Content)
	footer := mutedStyle.Render(fmt.Sprintf("%d words · %s read · %s", metrics.Words, textmetrics.FormatDuration(metrics.ReadingTime), metrics.ReadabilityLabel))

	sections := []string{header, "", fitLines(body, bodyHeight), footer}
	if overlay := m.renderEditorOverlay(); overlay != "" {
		sections = append(sections, overlay)
	}
	if strings.TrimSpace(m.status) != "" {
		sections = append(sections, statusStyle.Render(m.status))
	}
	return m.withHelpLine(strings.Join(sections, "\n"), m.editKeys)
}

// renderBlocks renders the blocks around the focused one with a block caret.
func (m Model) renderBlocks(height int) string {
	blocks := m.session.Blocks()
	caret := lipgloss.NewStyle().Reverse(true)
	gutter := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	start, end := windowBounds(len(blocks), m.cursor.Block, height)
	lines := make([]string, 0, end-start)
	for idx := start; idx < end; idx++ {
		text := blocks[idx].Text
		if idx != m.cursor.Block {
			lines = append(lines, gutter.Render("  ")+text)
			continue
		}
		runes := []rune(text)
		offset := clamp(m.cursor.Offset, 0, len(runes))
		at := " "
		rest := ""
		if offset < len(runes) {
			at = string(runes[offset])
			rest = string(runes[offset+1:])
		}
		lines = append(lines, gutter.Render("▎ ")+string(runes[:offset])+caret.Render(at)+rest)
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderEditorOverlay() string {
	box := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("62")).Padding(0, 1)
	selected := lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	switch m.mode {
	case modeRename:
		return box.Render(m.titleInput.View())
	case modePasteSuggestion:
		if m.suggestion == nil {
			return ""
		}
		return box.Render(fmt.Sprintf("Link to %q instead of pasting?\ny link · n paste as text · esc discard", displayTitle(m.suggestion.Title)))
	case modeLinkPicker, modeFocusPicker:
		heading := "Link to"
		if m.mode == modeFocusPicker {
			heading = "Open linked"
		}
		lines := []string{heading}
		start, end := windowBounds(len(m.picker), m.pickerIndex, 8)
		for idx := start; idx < end; idx++ {
			label := "  " + truncate(displayTitle(m.picker[idx].Title), max(10, m.width-12))
			if idx == m.pickerIndex {
				label = selected.Render("› " + strings.TrimPrefix(label, "  "))
			}
			lines = append(lines, label)
		}
		return box.Render(strings.Join(lines, "\n"))
	}
	return ""
}
