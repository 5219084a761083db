// Package export writes parsed decks as JSON, a Markdown narration outline
// or a script workbook.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/brunobiangulo/slidecast/parser"
)

// ErrUnsupportedFormat is returned for an unknown export format.
var ErrUnsupportedFormat = errors.New("export: unsupported format")

// Format names an export encoding.
type Format string

const (
	JSON     Format = "json"
	Markdown Format = "markdown"
	XLSX     Format = "xlsx"
)

// Deck is the exportable view of a parsed presentation.
type Deck struct {
	Title  string         `json:"title"`
	Author string         `json:"author,omitempty"`
	Method string         `json:"method,omitempty"`
	Slides []parser.Slide `json:"slides"`
}

// ParseFormat accepts a format name or a common alias ("md").
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json", "":
		return JSON, nil
	case "markdown", "md":
		return Markdown, nil
	case "xlsx", "excel":
		return XLSX, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}

// ContentType is the HTTP media type for f.
func (f Format) ContentType() string {
	switch f {
	case Markdown:
		return "text/markdown; charset=utf-8"
	case XLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/json"
	}
}

// Extension is the file extension for f, without the dot.
func (f Format) Extension() string {
	if f == Markdown {
		return "md"
	}
	return string(f)
}

// Write encodes deck to w in the given format.
func Write(w io.Writer, format Format, deck Deck) error {
	switch format {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(deck)
	case Markdown:
		_, err := io.WriteString(w, renderMarkdown(deck))
		return err
	case XLSX:
		return writeXLSX(w, deck)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// renderMarkdown lays the deck out as a narration outline: sections become
// level-2 headings and every other slide a numbered level-3 heading.
func renderMarkdown(deck Deck) string {
	var sb strings.Builder
	sb.WriteString("# " + deck.Title + "\n")
	if deck.Author != "" {
		sb.WriteString("\n*" + deck.Author + "*\n")
	}

	for _, s := range deck.Slides {
		sb.WriteString("\n")
		if s.SlideType == parser.SlideSection {
			sb.WriteString("## " + s.Title + "\n")
			continue
		}
		fmt.Fprintf(&sb, "### %d. %s\n", s.FrameNumber, s.Title)
		if body := strings.TrimSpace(s.Content); body != "" {
			sb.WriteString("\n" + body + "\n")
		}
	}
	return sb.String()
}
