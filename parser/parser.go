package parser

import (
	"context"
	"errors"
)

// ErrSourceUnreadable is returned when the presentation source cannot be read.
// It distinguishes a failed read from a valid presentation with no slides.
var ErrSourceUnreadable = errors.New("parser: source unreadable")

// SlideType distinguishes content frames from section markers.
type SlideType string

const (
	SlideFrame   SlideType = "frame"
	SlideSection SlideType = "section"
)

// Titles with structural meaning.
const (
	TitlePageTitle = "Title Page"
	OutlineTitle   = "Outline"
	UntitledFrame  = "Untitled Frame"
)

// Slide is one output record: title page, outline, section marker or frame.
type Slide struct {
	FrameNumber int       `json:"frame_number"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	SlideType   SlideType `json:"slide_type"`
}

// PageEstimate is the advisory page count computed alongside a parse.
// It is reported for operators only and never changes the slide list.
type PageEstimate struct {
	Pages  int    `json:"pages"`
	Source string `json:"source"` // "pdfinfo", "native", "estimate", "disabled"
	Path   string `json:"path,omitempty"`
}

// Stats counts what the locator and normalizer saw.
type Stats struct {
	Sections        int `json:"sections"`
	Frames          int `json:"frames"`
	DroppedFrames   int `json:"dropped_frames"`
	DroppedSections int `json:"dropped_sections"`
	Survivors       int `json:"survivors"`
}

// ParseResult is what a parser produces from a presentation file.
type ParseResult struct {
	Slides       []Slide      `json:"slides"`
	Method       string       `json:"method"` // "latex", "pdf"
	Title        string       `json:"title"`
	Author       string       `json:"author,omitempty"`
	PageEstimate PageEstimate `json:"page_estimate"`
	Stats        Stats        `json:"stats"`
}

// Parser can parse a specific presentation format.
type Parser interface {
	Parse(ctx context.Context, path string) (*ParseResult, error)
	SupportedFormats() []string
}

// Options tunes labels and the advisory page estimate. The zero value is
// usable; empty fields take the defaults below.
type Options struct {
	TitleLabel  string
	AuthorLabel string
	OutlineText string

	// OutputDir is searched for <OutputDir>/temp_pdf/<base>.pdf when no
	// sibling PDF exists.
	OutputDir string

	// PageCounters are tried in order against a compiled PDF. An empty list
	// disables the query and the estimate is survivors + 2.
	PageCounters []PageCounter
}

const (
	DefaultTitleLabel  = "Título da Apresentação"
	DefaultAuthorLabel = "Autor"
	DefaultOutlineText = "This slide shows the outline of the presentation."
	DefaultDocTitle    = "Presentation Title"
)

func (o Options) withDefaults() Options {
	if o.TitleLabel == "" {
		o.TitleLabel = DefaultTitleLabel
	}
	if o.AuthorLabel == "" {
		o.AuthorLabel = DefaultAuthorLabel
	}
	if o.OutlineText == "" {
		o.OutlineText = DefaultOutlineText
	}
	if o.OutputDir == "" {
		o.OutputDir = "output"
	}
	return o
}
