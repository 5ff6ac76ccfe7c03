package tui

import "charm.land/bubbles/v2/key"

// keyMap holds dashboard bindings.
type keyMap struct {
	quit        key.Binding
	reload      key.Binding
	toggleHelp  key.Binding
	moveUp      key.Binding
	moveDown    key.Binding
	open        key.Binding
	newActivity key.Binding
	search      key.Binding
	cycleView   key.Binding
	cycleRange  key.Binding
	archive     key.Binding
	trash       key.Binding
	restore     key.Binding
	deleteHard  key.Binding
	duplicate   key.Binding
	cycleColor  key.Binding
	stats       key.Binding
}

// newKeyMap constructs the dashboard key map.
func newKeyMap() keyMap {
	return keyMap{
		quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		reload:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		toggleHelp:  key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		moveUp:      key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
		moveDown:    key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "down")),
		open:        key.NewBinding(key.WithKeys("enter", "o"), key.WithHelp("enter", "open")),
		newActivity: key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new")),
		search:      key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		cycleView:   key.NewBinding(key.WithKeys("v", "tab"), key.WithHelp("v", "active/archived/trash")),
		cycleRange:  key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "date range")),
		archive:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "archive/unarchive")),
		trash:       key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "trash")),
		restore:     key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "restore")),
		deleteHard:  key.NewBinding(key.WithKeys("D", "shift+d"), key.WithHelp("D", "delete forever")),
		duplicate:   key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "duplicate")),
		cycleColor:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "cycle color")),
		stats:       key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "history")),
	}
}

// ShortHelp returns the compact dashboard help row.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.newActivity, k.open, k.search, k.cycleView, k.cycleRange, k.stats, k.toggleHelp, k.quit}
}

// FullHelp returns grouped dashboard help.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.newActivity, k.open, k.search, k.cycleView, k.cycleRange, k.stats, k.toggleHelp, k.reload, k.quit},
		{k.moveUp, k.moveDown},
		{k.archive, k.trash, k.restore, k.deleteHard, k.duplicate, k.cycleColor},
	}
}

// editorKeyMap holds block editor bindings. Printable keys insert text and are not listed.
type editorKeyMap struct {
	close     key.Binding
	save      key.Binding
	split     key.Binding
	backspace key.Binding
	up        key.Binding
	down      key.Binding
	left      key.Binding
	right     key.Binding
	home      key.Binding
	end       key.Binding
	title     key.Binding
	link      key.Binding
	focus     key.Binding
	preview   key.Binding
	color     key.Binding
}

// newEditorKeyMap constructs the editor key map.
func newEditorKeyMap() editorKeyMap {
	return editorKeyMap{
		close:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "save & close")),
		save:      key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save now")),
		split:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "split block")),
		backspace: key.NewBinding(key.WithKeys("backspace"), key.WithHelp("backspace", "delete/merge")),
		up:        key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "previous block")),
		down:      key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "next block")),
		left:      key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "left")),
		right:     key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "right")),
		home:      key.NewBinding(key.WithKeys("home", "ctrl+a"), key.WithHelp("home", "line start")),
		end:       key.NewBinding(key.WithKeys("end", "ctrl+e"), key.WithHelp("end", "line end")),
		title:     key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "rename")),
		link:      key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "link")),
		focus:     key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "open link")),
		preview:   key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("ctrl+p", "preview")),
		color:     key.NewBinding(key.WithKeys("ctrl+k"), key.WithHelp("ctrl+k", "color")),
	}
}

// ShortHelp returns the compact editor help row.
func (k editorKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.close, k.save, k.title, k.link, k.focus, k.preview, k.color}
}

// FullHelp returns grouped editor help.
func (k editorKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.close, k.save, k.title, k.color, k.preview},
		{k.split, k.backspace, k.up, k.down, k.left, k.right, k.home, k.end},
		{k.link, k.focus},
	}
}
