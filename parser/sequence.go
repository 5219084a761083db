package parser

import (
	"log/slog"
	"sort"
	"strings"
)

// DocMeta is the document-level \title and \author.
type DocMeta struct {
	Title     string
	Author    string
	HasTitle  bool
	HasAuthor bool
}

// ScanMetadata reads the first \title and \author outside comments. Missing
// fields take DefaultDocTitle and the empty string.
func ScanMetadata(src string) DocMeta {
	masked := maskComments(src)
	meta := DocMeta{Title: DefaultDocTitle}
	if v, ok := docField(masked, "title"); ok {
		meta.Title, meta.HasTitle = v, true
	}
	if v, ok := docField(masked, "author"); ok {
		meta.Author, meta.HasAuthor = v, true
	}
	return meta
}

func docField(src, name string) (string, bool) {
	for from := 0; ; {
		at := findCommand(src, name, from)
		if at < 0 {
			return "", false
		}
		if arg, _, ok := commandArg(src, name, at); ok {
			if v := cleanDocField(arg); v != "" {
				return v, true
			}
		}
		from = at + 1
	}
}

// titlePageBody renders the synthesized Title Page content.
func titlePageBody(meta DocMeta, opts Options) string {
	body := opts.TitleLabel + ": " + meta.Title
	if meta.Author != "" {
		body += "\n" + opts.AuthorLabel + ": " + meta.Author
	}
	return body
}

// Sequence orders elements by source offset, puts the Title Page first and
// the Outline second (promoting survivors or synthesizing them), and numbers
// the result from 1.
func Sequence(elems []Element, meta DocMeta, opts Options) []Slide {
	opts = opts.withDefaults()

	sorted := make([]Element, len(elems))
	copy(sorted, elems)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var outline *Element
	rest := make([]Element, 0, len(sorted))
	promotedTitle := false
	for i := range sorted {
		e := sorted[i]
		if e.Kind == KindFrame {
			switch e.Title {
			case TitlePageTitle:
				if !promotedTitle {
					promotedTitle = true
					continue
				}
			case OutlineTitle:
				if outline == nil {
					outline = &sorted[i]
					continue
				}
			}
		}
		rest = append(rest, e)
	}

	slides := make([]Slide, 0, len(rest)+2)
	slides = append(slides, Slide{
		Title:     TitlePageTitle,
		Content:   titlePageBody(meta, opts),
		SlideType: SlideFrame,
	})

	outlineBody := opts.OutlineText
	if outline != nil && strings.TrimSpace(outline.Body) != "" {
		outlineBody = outline.Body
	}
	slides = append(slides, Slide{
		Title:     OutlineTitle,
		Content:   outlineBody,
		SlideType: SlideFrame,
	})

	for _, e := range rest {
		s := Slide{Title: e.Title, Content: e.Body, SlideType: SlideFrame}
		if e.Kind == KindSection {
			s.SlideType = SlideSection
			s.Content = e.Title
		}
		slides = append(slides, s)
	}

	for i := range slides {
		slides[i].FrameNumber = i + 1
	}

	slog.Info("sequence: slides assembled",
		"total", len(slides),
		"title_page", origin(promotedTitle),
		"outline", origin(outline != nil))
	return slides
}

func origin(promoted bool) string {
	if promoted {
		return "promoted"
	}
	return "synthesized"
}
