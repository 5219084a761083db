package parser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Script workbook layout shared with the xlsx exporter. Script writers edit
// the exported workbook and it can be read back as a deck.
const ScriptSheet = "Slides"

var ScriptColumns = []string{"Number", "Type", "Title", "Content", "Narration"}

// XLSXParser reads a script workbook written by the xlsx exporter.
type XLSXParser struct{}

func (p *XLSXParser) SupportedFormats() []string { return []string{"xlsx"} }

func (p *XLSXParser) Parse(ctx context.Context, path string) (*ParseResult, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening XLSX: %v", ErrSourceUnreadable, err)
	}
	defer f.Close()

	rows, err := f.GetRows(ScriptSheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", ScriptSheet, err)
	}
	if len(rows) == 0 || !isScriptHeader(rows[0]) {
		return nil, fmt.Errorf("sheet %q is not a slide script", ScriptSheet)
	}

	slides := slidesFromRows(rows[1:])
	result := &ParseResult{
		Slides:       slides,
		Method:       "xlsx",
		Title:        DefaultDocTitle,
		PageEstimate: PageEstimate{Pages: len(slides), Source: "native", Path: path},
		Stats:        Stats{Survivors: len(slides)},
	}
	if len(slides) > 0 && slides[0].Title == TitlePageTitle {
		result.Title, result.Author = metaFromTitlePage(slides[0].Content)
	}
	slog.Info("xlsx: script read", "path", path, "slides", len(slides))
	return result, nil
}

func isScriptHeader(row []string) bool {
	if len(row) < 4 {
		return false
	}
	for i, col := range ScriptColumns[:4] {
		if !sameFold(row[i], col) {
			return false
		}
	}
	return true
}

// slidesFromRows skips rows without a title and repeated "Title Page" or
// "Outline" rows, then renumbers from 1.
func slidesFromRows(rows [][]string) []Slide {
	cell := func(row []string, i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}
	var slides []Slide
	seen := map[string]bool{}
	for _, row := range rows {
		title := cell(row, 2)
		if title == "" {
			continue
		}
		if isSpecialTitle(title) {
			if seen[title] {
				continue
			}
			seen[title] = true
		}
		s := Slide{Title: title, Content: cell(row, 3), SlideType: SlideFrame}
		if sameFold(cell(row, 1), string(SlideSection)) {
			s.SlideType = SlideSection
			s.Content = title
		}
		s.FrameNumber = len(slides) + 1
		slides = append(slides, s)
	}
	return slides
}

// metaFromTitlePage recovers title and author from "<label>: value" lines.
func metaFromTitlePage(body string) (title, author string) {
	title = DefaultDocTitle
	lines := nonEmptyLines(body)
	if len(lines) > 0 {
		if _, v, ok := strings.Cut(lines[0], ": "); ok {
			title = v
		}
	}
	if len(lines) > 1 {
		if _, v, ok := strings.Cut(lines[1], ": "); ok {
			author = v
		}
	}
	return title, author
}
