package slidecast

import (
	"testing"

	"github.com/brunobiangulo/slidecast/parser"
)

func TestDeckNeighbors(t *testing.T) {
	d := &Deck{Slides: []parser.Slide{
		{FrameNumber: 1, Title: "A"},
		{FrameNumber: 2, Title: "B", SlideType: parser.SlideSection},
		{FrameNumber: 3, Title: "C"},
	}}

	tests := []struct {
		i          int
		prev, next string
	}{
		{0, "", "B"},
		{1, "A", "C"},
		{2, "B", ""},
		{3, "", ""},
		{-1, "", ""},
	}
	title := func(s *parser.Slide) string {
		if s == nil {
			return ""
		}
		return s.Title
	}
	for _, tt := range tests {
		prev, next := d.Neighbors(tt.i)
		if title(prev) != tt.prev || title(next) != tt.next {
			t.Errorf("Neighbors(%d) = %q, %q; want %q, %q", tt.i, title(prev), title(next), tt.prev, tt.next)
		}
	}

	if secs := d.Sections(); len(secs) != 1 || secs[0].Title != "B" {
		t.Errorf("Sections = %+v", secs)
	}
}

func TestDeckExportDeck(t *testing.T) {
	d := &Deck{
		Title:  "Week One",
		Author: "Ana",
		Method: "latex",
		Slides: []parser.Slide{{FrameNumber: 1, Title: parser.TitlePageTitle}},
	}
	got := d.ExportDeck()
	if got.Title != "Week One" || got.Author != "Ana" || got.Method != "latex" || len(got.Slides) != 1 {
		t.Errorf("ExportDeck = %+v", got)
	}
}
