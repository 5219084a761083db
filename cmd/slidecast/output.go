package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/brunobiangulo/slidecast"
	"github.com/brunobiangulo/slidecast/parser"
)

var (
	// titleStyle for bold deck and slide titles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("33"))

	// dimStyle for muted metadata text
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	// sectionStyle for section marker banners
	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("33")).
			Padding(0, 2)

	// headerBoxStyle for the deck header
	headerBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("33")).
			Padding(0, 1)

	// contentStyle indents slide bodies under their titles
	contentStyle = lipgloss.NewStyle().
			PaddingLeft(4)
)

// renderDeck prints a header box followed by every slide.
func renderDeck(w io.Writer, d *slidecast.Deck) {
	header := fmt.Sprintf("%s\n%s %s  %s %s  %s %d",
		titleStyle.Render(d.Title),
		dimStyle.Render("File:"), d.Filename,
		dimStyle.Render("Method:"), d.Method,
		dimStyle.Render("Slides:"), len(d.Slides),
	)
	if d.Author != "" {
		header += fmt.Sprintf("\n%s %s", dimStyle.Render("Author:"), d.Author)
	}
	if d.PageEstimate.Source != "" {
		header += fmt.Sprintf("\n%s %d %s", dimStyle.Render("Pages:"), d.PageEstimate.Pages,
			dimStyle.Render("("+d.PageEstimate.Source+")"))
	}
	fmt.Fprintln(w, headerBoxStyle.Render(header))

	for _, s := range d.Slides {
		renderSlide(w, s)
	}
}

func renderSlide(w io.Writer, s parser.Slide) {
	if s.SlideType == parser.SlideSection {
		fmt.Fprintf(w, "\n%s %s\n", dimStyle.Render(fmt.Sprintf("%3d", s.FrameNumber)), sectionStyle.Render(s.Title))
		return
	}
	fmt.Fprintf(w, "\n%s %s\n", dimStyle.Render(fmt.Sprintf("%3d", s.FrameNumber)), titleStyle.Render(s.Title))
	if body := strings.TrimSpace(s.Content); body != "" {
		fmt.Fprintln(w, contentStyle.Render(body))
	}
}

// renderDeckList prints one line per stored deck.
func renderDeckList(w io.Writer, decks []slidecast.Deck) {
	if len(decks) == 0 {
		fmt.Fprintln(w, dimStyle.Render("no decks stored"))
		return
	}
	for _, d := range decks {
		status := successStyle.Render(d.Status)
		if d.Status != "ready" {
			status = errorStyle.Render(d.Status)
		}
		fmt.Fprintf(w, "%s %s %s %s\n",
			dimStyle.Render(fmt.Sprintf("%4d", d.ID)),
			titleStyle.Render(d.Title),
			dimStyle.Render(d.Filename),
			status,
		)
	}
}

// renderHits prints search results with a one-line content preview.
func renderHits(w io.Writer, hits []slidecast.SearchHit) {
	if len(hits) == 0 {
		fmt.Fprintln(w, dimStyle.Render("no matches"))
		return
	}
	for _, h := range hits {
		fmt.Fprintf(w, "%s %s %s\n",
			dimStyle.Render(fmt.Sprintf("%s#%d", h.Filename, h.FrameNumber)),
			titleStyle.Render(h.Title),
			dimStyle.Render(fmt.Sprintf("(deck %d)", h.DeckID)),
		)
		if preview := firstLine(h.Content, 80); preview != "" {
			fmt.Fprintln(w, contentStyle.Render(preview))
		}
	}
}

// firstLine returns the first non-empty line of s cut to max runes.
func firstLine(s string, max int) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if r := []rune(line); len(r) > max {
			return string(r[:max-1]) + "…"
		}
		return line
	}
	return ""
}
