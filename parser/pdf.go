package parser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
)

// outlineKeywords mark a second page that is a table of contents.
var outlineKeywords = []string{"outline", "contents", "agenda", "sumário", "índice", "conteúdo"}

// PDFParser recovers slides from an already compiled presentation, one page
// per slide. It shares the Slide shape with LatexParser but none of its
// structural recovery.
type PDFParser struct {
	Options Options
}

func (p *PDFParser) SupportedFormats() []string { return []string{"pdf"} }

func (p *PDFParser) Parse(ctx context.Context, path string) (*ParseResult, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening PDF: %v", ErrSourceUnreadable, err)
	}
	defer f.Close()

	totalPages := reader.NumPage()
	pages := make([]string, 0, totalPages)
	extracted := 0
	for i := 1; i <= totalPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip pages that fail to extract
			slog.Debug("pdf: page text extraction failed", "page", i, "error", err)
			pages = append(pages, "")
			continue
		}
		text = strings.TrimSpace(text)
		if text != "" {
			extracted++
		}
		pages = append(pages, text)
	}

	result := &ParseResult{
		Method:       "pdf",
		PageEstimate: PageEstimate{Pages: totalPages, Source: "native", Path: path},
	}
	if extracted == 0 {
		slog.Warn("pdf: no extractable text", "path", path, "pages", totalPages)
		result.Title = DefaultDocTitle
		return result, nil
	}

	result.Slides, result.Title, result.Author = slidesFromPages(pages, p.Options.withDefaults())
	result.Stats = Stats{Frames: len(pages), Survivors: len(result.Slides)}
	slog.Info("pdf: slides extracted", "path", path, "pages", totalPages, "slides", len(result.Slides))
	return result, nil
}

// slidesFromPages maps page texts to slides: page 1 is the title page, page
// 2 is the outline when it reads like one, every other non-empty page is a
// frame.
func slidesFromPages(pages []string, opts Options) (slides []Slide, title, author string) {
	title = DefaultDocTitle
	if len(pages) > 0 {
		lines := nonEmptyLines(pages[0])
		if len(lines) > 0 {
			title = lines[0]
		}
		if len(lines) > 1 {
			author = lines[1]
		}
	}
	slides = append(slides, Slide{
		Title:     TitlePageTitle,
		Content:   titlePageBody(DocMeta{Title: title, Author: author}, opts),
		SlideType: SlideFrame,
	})

	next := 1
	outline := Slide{Title: OutlineTitle, Content: opts.OutlineText, SlideType: SlideFrame}
	if len(pages) > 1 && looksLikeOutline(pages[1]) {
		outline.Content = strings.TrimSpace(pages[1])
		next = 2
	}
	slides = append(slides, outline)

	for _, page := range pages[min(next, len(pages)):] {
		if strings.TrimSpace(page) == "" {
			continue
		}
		slides = append(slides, pageSlide(page))
	}

	for i := range slides {
		slides[i].FrameNumber = i + 1
	}
	return slides, title, author
}

func looksLikeOutline(text string) bool {
	for _, kw := range outlineKeywords {
		if containsFold(text, kw) {
			return true
		}
	}
	return false
}

// pageSlide takes the first non-bullet line among the first three as the
// title and the lines after it as content. "Title Page" and "Outline" are
// reserved for the leading slides and never title a content page.
func pageSlide(page string) Slide {
	lines := strings.Split(strings.TrimSpace(page), "\n")
	s := Slide{Title: UntitledFrame, Content: strings.TrimSpace(page), SlideType: SlideFrame}
	for j := 0; j < min(3, len(lines)); j++ {
		line := strings.TrimSpace(lines[j])
		if line == "" || strings.HasPrefix(line, "-") || isReservedTitle(line) {
			continue
		}
		s.Title = line
		s.Content = strings.TrimSpace(strings.Join(lines[j+1:], "\n"))
		break
	}
	return s
}

func isReservedTitle(line string) bool {
	return sameFold(line, TitlePageTitle) || sameFold(line, OutlineTitle)
}

func nonEmptyLines(text string) []string {
	var out []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
