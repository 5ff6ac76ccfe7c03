package editor

import (
	"errors"
	"fmt"
	"testing"
)

func seqIDs() DocumentOption {
	n := 0
	return WithBlockIDs(func() string {
		n++
		return fmt.Sprintf("b%d", n)
	})
}

func texts(d *Document) []string {
	out := make([]string, 0, d.Len())
	for _, b := range d.Blocks() {
		out = append(out, b.Text)
	}
	return out
}

func equalTexts(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestFromContentRoundTrip(t *testing.T) {
	cases := []string{"", "one", "a\nb", "\n", "\n\nx\n", "trailing\n", "héllo\nwörld"}
	for _, content := range cases {
		d := FromContent(content)
		if got := d.Content(); got != content {
			t.Fatalf("Content() = %q, want %q", got, content)
		}
		if d.Len() < 1 {
			t.Fatalf("FromContent(%q) produced no blocks", content)
		}
	}
	if d := FromContent(""); d.Len() != 1 {
		t.Fatalf("expected one empty block, got %d", d.Len())
	}
}

func TestSplitScenario(t *testing.T) {
	d := FromContent("ab\ncd", seqIDs())
	before := d.Blocks()

	c, err := d.Split(0, 1)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if !equalTexts(texts(d), []string{"a", "b", "cd"}) {
		t.Fatalf("unexpected blocks %#v", texts(d))
	}
	if c != (Cursor{Block: 1, Offset: 0, OffsetSet: true}) || d.Focus() != c {
		t.Fatalf("unexpected cursor %#v", c)
	}
	blocks := d.Blocks()
	if blocks[0].ID != before[0].ID || blocks[2].ID != before[1].ID {
		t.Fatal("existing block ids must be stable across split")
	}
	if blocks[1].ID == before[0].ID || blocks[1].ID == before[1].ID {
		t.Fatal("split must create a fresh block id")
	}
}

func TestSplitAtEndCreatesEmptyBlock(t *testing.T) {
	d := FromContent("abc")
	if _, err := d.Split(0, 3); err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if !equalTexts(texts(d), []string{"abc", ""}) {
		t.Fatalf("unexpected blocks %#v", texts(d))
	}
}

func TestSplitRejectsBadPositions(t *testing.T) {
	d := FromContent("abc")
	if _, err := d.Split(1, 0); !errors.Is(err, ErrBlockOutOfRange) {
		t.Fatalf("expected ErrBlockOutOfRange, got %v", err)
	}
	if _, err := d.Split(0, 4); !errors.Is(err, ErrOffsetOutOfRange) {
		t.Fatalf("expected ErrOffsetOutOfRange, got %v", err)
	}
}

func TestMergeBackwardScenario(t *testing.T) {
	d := FromContent("foo\nbar")
	c, ok := d.MergeBackward(1, 0)
	if !ok {
		t.Fatal("expected merge")
	}
	if !equalTexts(texts(d), []string{"foobar"}) {
		t.Fatalf("unexpected blocks %#v", texts(d))
	}
	if c.Block != 0 || c.Offset != 3 || !c.OffsetSet {
		t.Fatalf("unexpected cursor %#v", c)
	}
}

func TestMergeBackwardEmptyBlock(t *testing.T) {
	d := FromContent("foo\n\nbar")
	c, ok := d.MergeBackward(1, 0)
	if !ok {
		t.Fatal("expected empty block removal")
	}
	if !equalTexts(texts(d), []string{"foo", "bar"}) {
		t.Fatalf("unexpected blocks %#v", texts(d))
	}
	if c.Block != 0 || c.Offset != 3 {
		t.Fatalf("expected cursor at end of previous block, got %#v", c)
	}
}

func TestMergeBackwardNoops(t *testing.T) {
	cases := []struct {
		name    string
		content string
		block   int
		offset  int
	}{
		{name: "single empty block", content: "", block: 0, offset: 0},
		{name: "first block", content: "a\nb", block: 0, offset: 0},
		{name: "mid-block cursor", content: "a\nb", block: 1, offset: 1},
		{name: "out of range", content: "a\nb", block: 5, offset: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := FromContent(tc.content)
			if _, ok := d.MergeBackward(tc.block, tc.offset); ok {
				t.Fatal("expected no-op")
			}
			if d.Content() != tc.content {
				t.Fatalf("content changed to %q", d.Content())
			}
		})
	}
}

func TestSplitMergeInverse(t *testing.T) {
	for _, text := range []string{"hello world", "héllo", "x", ""} {
		for k := 0; k <= len([]rune(text)); k++ {
			d := FromContent(text)
			if _, err := d.Split(0, k); err != nil {
				t.Fatalf("Split(%q, %d) error = %v", text, k, err)
			}
			if _, ok := d.MergeBackward(1, 0); !ok {
				t.Fatalf("MergeBackward after Split(%q, %d) was a no-op", text, k)
			}
			if d.Content() != text || d.Len() != 1 {
				t.Fatalf("split/merge at %d produced %#v, want %q", k, texts(d), text)
			}
		}
	}
}

func TestNavigate(t *testing.T) {
	d := FromContent("one\ntwo\nthree")
	if _, ok := d.NavigateUp(0, 0); ok {
		t.Fatal("cannot navigate above the first block")
	}
	if _, ok := d.NavigateDown(2, 5); ok {
		t.Fatal("cannot navigate below the last block")
	}
	if _, ok := d.NavigateDown(0, 1); ok {
		t.Fatal("navigate down requires the cursor at the block end")
	}
	c, ok := d.NavigateDown(0, 3)
	if !ok || c != (Cursor{Block: 1, Offset: 0, OffsetSet: true}) {
		t.Fatalf("unexpected down cursor %#v (%t)", c, ok)
	}
	c, ok = d.NavigateUp(1, 0)
	if !ok || c.Block != 0 || c.OffsetSet {
		t.Fatalf("unexpected up cursor %#v (%t)", c, ok)
	}
}

func TestInsertTextMultiline(t *testing.T) {
	d := FromContent("head|tail")
	c, err := d.InsertText(0, 5, "one\ntwo\nthree ")
	if err != nil {
		t.Fatalf("InsertText() error = %v", err)
	}
	if !equalTexts(texts(d), []string{"head|one", "two", "three tail"}) {
		t.Fatalf("unexpected blocks %#v", texts(d))
	}
	if c.Block != 2 || c.Offset != 6 {
		t.Fatalf("unexpected cursor %#v", c)
	}

	c, err = d.InsertText(1, 3, "!")
	if err != nil {
		t.Fatalf("InsertText() error = %v", err)
	}
	if d.Content() != "head|one\ntwo!\nthree tail" || c.Offset != 4 {
		t.Fatalf("unexpected content %q cursor %#v", d.Content(), c)
	}
}

func TestDeleteBackward(t *testing.T) {
	d := FromContent("ab\ncd")
	c, ok, err := d.DeleteBackward(1, 1)
	if err != nil || !ok {
		t.Fatalf("DeleteBackward() ok=%t err=%v", ok, err)
	}
	if d.Content() != "ab\nd" || c.Offset != 0 {
		t.Fatalf("unexpected content %q cursor %#v", d.Content(), c)
	}
	c, ok, err = d.DeleteBackward(1, 0)
	if err != nil || !ok {
		t.Fatalf("DeleteBackward() merge ok=%t err=%v", ok, err)
	}
	if d.Content() != "abd" || c.Offset != 2 {
		t.Fatalf("unexpected merge content %q cursor %#v", d.Content(), c)
	}
}

func TestSetTextSplitsNewlines(t *testing.T) {
	d := FromContent("a\nz")
	if err := d.SetText(0, "x\ny"); err != nil {
		t.Fatalf("SetText() error = %v", err)
	}
	if d.Content() != "x\ny\nz" {
		t.Fatalf("unexpected content %q", d.Content())
	}
	if err := d.SetText(9, "x"); !errors.Is(err, ErrBlockOutOfRange) {
		t.Fatalf("expected ErrBlockOutOfRange, got %v", err)
	}
}
