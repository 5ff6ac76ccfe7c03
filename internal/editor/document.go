// Package editor holds the in-memory block document, autosave session, and paste link detection.
package editor

import (
	"errors"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ErrBlockOutOfRange and related errors describe invalid cursor positions.
var (
	ErrBlockOutOfRange  = errors.New("block index out of range")
	ErrOffsetOutOfRange = errors.New("cursor offset out of range")
)

// Block is one line of an activity's content under edit.
type Block struct {
	ID   string
	Text string
}

// Cursor is a focus position. Offset counts runes; OffsetSet is false when the
// caller should keep whatever caret position the surface prefers.
type Cursor struct {
	Block     int
	Offset    int
	OffsetSet bool
}

// DocumentOption configures a Document.
type DocumentOption func(*Document)

// WithBlockIDs overrides block id generation.
func WithBlockIDs(gen func() string) DocumentOption {
	return func(d *Document) {
		if gen != nil {
			d.newID = gen
		}
	}
}

// Document is an ordered, never-empty sequence of blocks.
type Document struct {
	blocks []Block
	focus  Cursor
	newID  func() string
}

// FromContent splits content on newlines. Empty content yields one empty block.
func FromContent(content string, opts ...DocumentOption) *Document {
	d := &Document{newID: uuid.NewString}
	for _, opt := range opts {
		opt(d)
	}
	lines := strings.Split(content, "\n")
	d.blocks = make([]Block, 0, len(lines))
	for _, line := range lines {
		d.blocks = append(d.blocks, Block{ID: d.newID(), Text: line})
	}
	d.focus = Cursor{Block: 0, Offset: 0, OffsetSet: true}
	return d
}

// Content joins the blocks with newlines.
func (d *Document) Content() string {
	texts := make([]string, len(d.blocks))
	for i, b := range d.blocks {
		texts[i] = b.Text
	}
	return strings.Join(texts, "\n")
}

// Blocks returns a copy of the block list.
func (d *Document) Blocks() []Block {
	return slices.Clone(d.blocks)
}

func (d *Document) Len() int {
	return len(d.blocks)
}

// Block returns the block at index i.
func (d *Document) Block(i int) (Block, error) {
	if i < 0 || i >= len(d.blocks) {
		return Block{}, ErrBlockOutOfRange
	}
	return d.blocks[i], nil
}

// Focus returns the cursor left by the last edit or navigation.
func (d *Document) Focus() Cursor {
	return d.focus
}

// SetFocus moves the cursor, clamping the offset to the block length.
func (d *Document) SetFocus(c Cursor) error {
	if c.Block < 0 || c.Block >= len(d.blocks) {
		return ErrBlockOutOfRange
	}
	if c.OffsetSet {
		c.Offset = min(max(c.Offset, 0), runeLen(d.blocks[c.Block].Text))
	}
	d.focus = c
	return nil
}

// SetText replaces the text of block i. Embedded newlines split into new blocks after i.
func (d *Document) SetText(i int, text string) error {
	if i < 0 || i >= len(d.blocks) {
		return ErrBlockOutOfRange
	}
	lines := strings.Split(text, "\n")
	d.blocks[i].Text = lines[0]
	if len(lines) > 1 {
		extra := make([]Block, 0, len(lines)-1)
		for _, line := range lines[1:] {
			extra = append(extra, Block{ID: d.newID(), Text: line})
		}
		d.blocks = slices.Insert(d.blocks, i+1, extra...)
	}
	return nil
}

// InsertText inserts text at (i, offset). Each newline in text splits the block.
// The returned cursor sits right after the inserted text.
func (d *Document) InsertText(i, offset int, text string) (Cursor, error) {
	if err := d.checkPosition(i, offset); err != nil {
		return Cursor{}, err
	}
	runes := []rune(d.blocks[i].Text)
	head, tail := string(runes[:offset]), string(runes[offset:])
	lines := strings.Split(text, "\n")

	if len(lines) == 1 {
		d.blocks[i].Text = head + text + tail
		d.focus = Cursor{Block: i, Offset: offset + runeLen(text), OffsetSet: true}
		return d.focus, nil
	}

	last := lines[len(lines)-1]
	d.blocks[i].Text = head + lines[0]
	inserted := make([]Block, 0, len(lines)-1)
	for _, line := range lines[1 : len(lines)-1] {
		inserted = append(inserted, Block{ID: d.newID(), Text: line})
	}
	inserted = append(inserted, Block{ID: d.newID(), Text: last + tail})
	d.blocks = slices.Insert(d.blocks, i+1, inserted...)
	d.focus = Cursor{Block: i + len(inserted), Offset: runeLen(last), OffsetSet: true}
	return d.focus, nil
}

// DeleteBackward removes the rune before offset in block i. At offset 0 it merges backward.
func (d *Document) DeleteBackward(i, offset int) (Cursor, bool, error) {
	if err := d.checkPosition(i, offset); err != nil {
		return Cursor{}, false, err
	}
	if offset == 0 {
		c, ok := d.MergeBackward(i, 0)
		return c, ok, nil
	}
	runes := []rune(d.blocks[i].Text)
	d.blocks[i].Text = string(append(runes[:offset-1:offset-1], runes[offset:]...))
	d.focus = Cursor{Block: i, Offset: offset - 1, OffsetSet: true}
	return d.focus, true, nil
}

// Split divides block i at offset. The tail becomes a new block at i+1 and takes focus at offset 0.
func (d *Document) Split(i, offset int) (Cursor, error) {
	if err := d.checkPosition(i, offset); err != nil {
		return Cursor{}, err
	}
	runes := []rune(d.blocks[i].Text)
	d.blocks[i].Text = string(runes[:offset])
	d.blocks = slices.Insert(d.blocks, i+1, Block{ID: d.newID(), Text: string(runes[offset:])})
	d.focus = Cursor{Block: i + 1, Offset: 0, OffsetSet: true}
	return d.focus, nil
}

// MergeBackward joins block i into block i-1 when the cursor is at offset 0.
// An empty block is removed and focus lands at the end of the previous block;
// otherwise focus lands at the previous block's original length.
// It reports false and changes nothing for i == 0, a single block, or offset != 0.
func (d *Document) MergeBackward(i, offset int) (Cursor, bool) {
	if offset != 0 || i <= 0 || i >= len(d.blocks) || len(d.blocks) <= 1 {
		return d.focus, false
	}
	prev := d.blocks[i-1]
	joinAt := runeLen(prev.Text)
	if d.blocks[i].Text != "" {
		d.blocks[i-1].Text = prev.Text + d.blocks[i].Text
	}
	d.blocks = slices.Delete(d.blocks, i, i+1)
	d.focus = Cursor{Block: i - 1, Offset: joinAt, OffsetSet: true}
	return d.focus, true
}

// NavigateUp moves focus to block i-1 when the cursor is at offset 0.
// The offset is left unset so the surface keeps its own caret placement.
func (d *Document) NavigateUp(i, offset int) (Cursor, bool) {
	if offset != 0 || i <= 0 || i >= len(d.blocks) {
		return d.focus, false
	}
	d.focus = Cursor{Block: i - 1}
	return d.focus, true
}

// NavigateDown moves focus to the start of block i+1 when the cursor is at the end of block i.
func (d *Document) NavigateDown(i, offset int) (Cursor, bool) {
	if i < 0 || i >= len(d.blocks)-1 || offset != runeLen(d.blocks[i].Text) {
		return d.focus, false
	}
	d.focus = Cursor{Block: i + 1, Offset: 0, OffsetSet: true}
	return d.focus, true
}

func (d *Document) checkPosition(i, offset int) error {
	if i < 0 || i >= len(d.blocks) {
		return ErrBlockOutOfRange
	}
	if offset < 0 || offset > runeLen(d.blocks[i].Text) {
		return ErrOffsetOutOfRange
	}
	return nil
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
