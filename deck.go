package slidecast

import (
	"github.com/brunobiangulo/slidecast/export"
	"github.com/brunobiangulo/slidecast/parser"
)

// Deck is a parsed presentation, stored or not.
type Deck struct {
	ID           int64               `json:"id,omitempty"`
	Path         string              `json:"path"`
	Filename     string              `json:"filename"`
	Format       string              `json:"format"`
	Method       string              `json:"method"`
	Status       string              `json:"status,omitempty"`
	Title        string              `json:"title"`
	Author       string              `json:"author,omitempty"`
	PageEstimate parser.PageEstimate `json:"page_estimate"`
	Stats        parser.Stats        `json:"stats"`
	Metadata     map[string]string   `json:"metadata,omitempty"`
	Slides       []parser.Slide      `json:"slides,omitempty"`
	CreatedAt    string              `json:"created_at,omitempty"`
	UpdatedAt    string              `json:"updated_at,omitempty"`
}

// Neighbors returns the slides before and after index i. Either is nil at
// the ends of the deck or when i is out of range.
func (d *Deck) Neighbors(i int) (prev, next *parser.Slide) {
	if i < 0 || i >= len(d.Slides) {
		return nil, nil
	}
	if i > 0 {
		prev = &d.Slides[i-1]
	}
	if i+1 < len(d.Slides) {
		next = &d.Slides[i+1]
	}
	return prev, next
}

// Sections returns the section marker slides in order.
func (d *Deck) Sections() []parser.Slide {
	var out []parser.Slide
	for _, s := range d.Slides {
		if s.SlideType == parser.SlideSection {
			out = append(out, s)
		}
	}
	return out
}

// ExportDeck is the view of d written by the export package.
func (d *Deck) ExportDeck() export.Deck {
	return export.Deck{
		Title:  d.Title,
		Author: d.Author,
		Method: d.Method,
		Slides: d.Slides,
	}
}
