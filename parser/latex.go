package parser

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ParseSource runs the structural pipeline over LaTeX Beamer source text:
// metadata scan, locate, normalize, sequence. It never fails; malformed
// constructs are dropped and the rest is kept.
func ParseSource(src string, opts Options) *ParseResult {
	opts = opts.withDefaults()
	src = strings.TrimPrefix(src, "\ufeff")
	src = norm.NFC.String(src)

	meta := ScanMetadata(src)
	cands := Locate(src)
	elems, stats := Normalize(cands, meta)
	slides := Sequence(elems, meta, opts)

	slog.Info("latex: parse complete",
		"sections", stats.Sections, "frames", stats.Frames,
		"dropped_frames", stats.DroppedFrames, "dropped_sections", stats.DroppedSections,
		"slides", len(slides))

	return &ParseResult{
		Slides: slides,
		Method: "latex",
		Title:  meta.Title,
		Author: meta.Author,
		Stats:  stats,
	}
}

// LatexParser reads a Beamer .tex file. When the file is missing but a
// compiled PDF with the same base name sits next to it, the PDF is parsed
// instead.
type LatexParser struct {
	Options Options
}

func (p *LatexParser) SupportedFormats() []string { return []string{"tex", "latex", "ltx"} }

func (p *LatexParser) Parse(ctx context.Context, path string) (*ParseResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			sibling := strings.TrimSuffix(path, filepath.Ext(path)) + ".pdf"
			if st, serr := os.Stat(sibling); serr == nil && !st.IsDir() {
				slog.Info("latex: source missing, using compiled PDF", "path", path, "pdf", sibling)
				return (&PDFParser{Options: p.Options}).Parse(ctx, sibling)
			}
		}
		return nil, fmt.Errorf("%w: %v", ErrSourceUnreadable, err)
	}

	src := strings.ToValidUTF8(string(data), "\uFFFD")
	result := ParseSource(src, p.Options)

	opts := p.Options.withDefaults()
	result.PageEstimate = EstimatePages(ctx, opts.PageCounters, path, opts.OutputDir, result.Stats.Survivors)
	if result.PageEstimate.Pages != len(result.Slides) {
		slog.Info("latex: page count differs from slide count",
			"pages", result.PageEstimate.Pages, "slides", len(result.Slides),
			"source", result.PageEstimate.Source)
	}
	return result, nil
}
