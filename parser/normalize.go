package parser

import (
	"log/slog"
	"strings"
)

// Element is a normalized section or frame, still positioned by its source
// offset. Bodies are already cleaned.
type Element struct {
	Kind      CandidateKind
	Start     int
	Title     string
	Body      string
	TitleTier string
}

// titleRule resolves a frame title from a candidate and its cleaned body.
type titleRule struct {
	tier    string
	resolve func(c Candidate, cleaned string) (string, bool)
}

// titleChain is tried in order; the first rule that resolves wins.
var titleChain = []titleRule{
	{"special-body", specialBodyTitle},
	{"direct-title", directTitle},
	{"frametitle", embeddedFrametitle},
	{"first-line", firstContentLine},
	{"default", func(Candidate, string) (string, bool) { return UntitledFrame, true }},
}

// Normalize resolves titles and bodies, drops empty frames and structural
// false-positive sections, and keeps only the earliest Title Page and
// Outline frames.
func Normalize(cands []Candidate, meta DocMeta) ([]Element, Stats) {
	var stats Stats
	elems := make([]Element, 0, len(cands))

	for _, c := range cands {
		switch c.Kind {
		case KindSection:
			stats.Sections++
			title := cleanTitle(c.DirectTitle)
			if title == "" || isStructuralSection(title, meta) {
				slog.Info("normalize: section filtered", "title", title, "start", c.Start)
				stats.DroppedSections++
				continue
			}
			elems = append(elems, Element{
				Kind: KindSection, Start: c.Start,
				Title: title, Body: title, TitleTier: "section",
			})

		case KindFrame:
			stats.Frames++
			body := CleanContent(c.Body)
			title, tier := resolveTitle(c, body)
			if body == "" && !isSpecialTitle(title) {
				slog.Info("normalize: empty frame filtered", "title", title, "start", c.Start)
				stats.DroppedFrames++
				continue
			}
			slog.Info("normalize: frame title resolved",
				"title", title, "tier", tier, "form", c.Form, "start", c.Start)
			elems = append(elems, Element{
				Kind: KindFrame, Start: c.Start,
				Title: title, Body: body, TitleTier: tier,
			})
		}
	}

	elems, dups := dropLaterSpecials(elems)
	stats.DroppedFrames += dups
	stats.Survivors = len(elems)
	return elems, stats
}

func resolveTitle(c Candidate, cleaned string) (string, string) {
	for _, rule := range titleChain {
		raw, ok := rule.resolve(c, cleaned)
		if !ok {
			continue
		}
		if title := cleanTitle(raw); title != "" {
			return title, rule.tier
		}
	}
	return UntitledFrame, "default"
}

func specialBodyTitle(c Candidate, _ string) (string, bool) {
	compact := strings.Join(strings.Fields(removeFrametitles(maskComments(c.Body))), "")
	if compact == `\titlepage` {
		return TitlePageTitle, true
	}
	if rest, ok := strings.CutPrefix(compact, `\tableofcontents`); ok {
		if rest == "" || (strings.HasPrefix(rest, "[") && strings.HasSuffix(rest, "]") &&
			strings.Count(rest, "[") == 1) {
			return OutlineTitle, true
		}
	}
	return "", false
}

func directTitle(c Candidate, _ string) (string, bool) {
	if !c.HasDirectTitle || isStrayFragment(c.DirectTitle) {
		return "", false
	}
	return c.DirectTitle, true
}

func embeddedFrametitle(c Candidate, _ string) (string, bool) {
	return extractFrametitle(maskComments(c.Body))
}

func firstContentLine(_ Candidate, cleaned string) (string, bool) {
	for _, line := range strings.Split(cleaned, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "-") {
			return line, true
		}
	}
	return "", false
}

// isStrayFragment flags inline titles captured from mis-delimited input.
func isStrayFragment(title string) bool {
	t := strings.TrimSpace(title)
	if t == "" || t[0] == '{' || t[0] == '}' {
		return true
	}
	depth := 0
	for i := 0; i < len(t); i++ {
		switch {
		case t[i] == '{' && !escaped(t, i):
			depth++
		case t[i] == '}' && !escaped(t, i):
			depth--
			if depth < 0 {
				return true
			}
		}
	}
	return depth != 0
}

func isSpecialTitle(title string) bool {
	return title == TitlePageTitle || title == OutlineTitle
}

func isStructuralSection(title string, meta DocMeta) bool {
	if sameFold(title, TitlePageTitle) || sameFold(title, OutlineTitle) {
		return true
	}
	return meta.HasTitle && sameFold(title, meta.Title)
}

// dropLaterSpecials keeps the lowest-offset frame titled Title Page and the
// lowest-offset frame titled Outline. It does not depend on input order.
func dropLaterSpecials(elems []Element) ([]Element, int) {
	first := map[string]int{}
	for _, e := range elems {
		if e.Kind != KindFrame || !isSpecialTitle(e.Title) {
			continue
		}
		if at, ok := first[e.Title]; !ok || e.Start < at {
			first[e.Title] = e.Start
		}
	}

	out := elems[:0]
	dropped := 0
	for _, e := range elems {
		if e.Kind == KindFrame && isSpecialTitle(e.Title) && first[e.Title] != e.Start {
			slog.Info("normalize: duplicate frame filtered", "title", e.Title, "start", e.Start)
			dropped++
			continue
		}
		out = append(out, e)
	}
	return out, dropped
}
