package parser

import (
	"log/slog"
	"sort"
	"strings"
)

// CandidateKind is the semantic construct a candidate was located as.
type CandidateKind string

const (
	KindSection CandidateKind = "section"
	KindFrame   CandidateKind = "frame"
)

// Candidate is a located span prior to title and body normalization.
type Candidate struct {
	Kind           CandidateKind
	Start          int // offset of the construct in the source
	End            int // offset just past the construct
	DirectTitle    string
	HasDirectTitle bool
	Body           string
	Form           string // recognizer that produced it
}

const (
	beginFrame  = `\begin{frame}`
	endFrame    = `\end{frame}`
	endDocument = `\end{document}`
	sectionTag  = "Section:"
)

// recognizer finds every occurrence of one surface syntax in src.
type recognizer struct {
	name string
	find func(src string) []Candidate
}

// recognizers are listed by priority. Priority only decides between
// candidates that start at the same offset.
var recognizers = []recognizer{
	{"section-command", findSectionCommands},
	{"section-inline-heuristic", findInlineSectionFrames},
	{"section-frametitle-heuristic", findFrametitleSectionFrames},
	{"frame-inline-title", findInlineTitleFrames},
	{"frame-environment", findEnvironmentFrames},
	{"legacy-frame-titled", findLegacyTitledFrames},
	{"legacy-frame", findLegacyFrames},
}

// Locate scans src with every recognizer and returns the candidates whose
// source ranges do not collide. The result carries no ordering guarantee.
func Locate(src string) []Candidate {
	masked := maskComments(src)

	type ranked struct {
		c        Candidate
		priority int
	}
	var all []ranked
	for p, r := range recognizers {
		for _, c := range r.find(masked) {
			c.Form = r.name
			all = append(all, ranked{c: c, priority: p})
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].c.Start != all[j].c.Start {
			return all[i].c.Start < all[j].c.Start
		}
		return all[i].priority < all[j].priority
	})

	var claimed intervalSet
	out := make([]Candidate, 0, len(all))
	sections, frames := 0, 0
	for _, rc := range all {
		if !claimed.claim(rc.c.Start, rc.c.End) {
			slog.Debug("locate: overlapping candidate skipped",
				"form", rc.c.Form, "start", rc.c.Start)
			continue
		}
		if rc.c.Kind == KindSection {
			sections++
		} else {
			frames++
		}
		out = append(out, rc.c)
	}

	slog.Info("locate: candidates found", "sections", sections, "frames", frames,
		"matches", len(all))
	return out
}

// intervalSet holds disjoint half-open ranges sorted by start.
type intervalSet struct {
	spans [][2]int
}

// claim adds [start, end) unless it intersects a range already held.
func (s *intervalSet) claim(start, end int) bool {
	if end <= start {
		end = start + 1
	}
	i := sort.Search(len(s.spans), func(i int) bool { return s.spans[i][1] > start })
	if i < len(s.spans) && s.spans[i][0] < end {
		return false
	}
	s.spans = append(s.spans, [2]int{})
	copy(s.spans[i+1:], s.spans[i:])
	s.spans[i] = [2]int{start, end}
	return true
}

// --- sections ---

func findSectionCommands(src string) []Candidate {
	var out []Candidate
	for from := 0; ; {
		at := findCommand(src, "section", from)
		if at < 0 {
			return out
		}
		from = at + 1
		name, end, ok := commandArg(src, "section", at)
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		out = append(out, Candidate{
			Kind: KindSection, Start: at, End: end,
			DirectTitle: name, HasDirectTitle: true, Body: name,
		})
		from = end
	}
}

func findInlineSectionFrames(src string) []Candidate {
	var out []Candidate
	for _, f := range scanEnvFrames(src) {
		if !f.hasTitle {
			continue
		}
		if name, ok := sectionName(f.title); ok {
			out = append(out, sectionFromFrame(f.start, f.end, name))
		}
	}
	return out
}

func findFrametitleSectionFrames(src string) []Candidate {
	var out []Candidate
	check := func(start, end int, body string) {
		title, ok := extractFrametitle(body)
		if !ok {
			return
		}
		if name, ok := sectionName(title); ok {
			out = append(out, sectionFromFrame(start, end, name))
		}
	}
	for _, f := range scanEnvFrames(src) {
		check(f.start, f.end, f.fullBody)
	}
	for _, f := range scanLegacyFrames(src) {
		check(f.start, f.end, f.body)
	}
	return out
}

func sectionName(title string) (string, bool) {
	title = strings.TrimSpace(title)
	if !strings.HasPrefix(title, sectionTag) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(title, sectionTag)), true
}

func sectionFromFrame(start, end int, name string) Candidate {
	return Candidate{
		Kind: KindSection, Start: start, End: end,
		DirectTitle: name, HasDirectTitle: true, Body: name,
	}
}

// --- \begin{frame} ... \end{frame} ---

type envFrame struct {
	start, end int
	title      string
	hasTitle   bool
	body       string // after the inline title when there is one
	fullBody   string // everything after the frame options
}

// scanEnvFrames finds frame environments. A frame whose body runs into
// another \begin{frame} or \end{document} is missing its \end{frame} and
// is skipped.
func scanEnvFrames(src string) []envFrame {
	var frames []envFrame
	for from := 0; ; {
		k := strings.Index(src[from:], beginFrame)
		if k < 0 {
			return frames
		}
		start := from + k
		from = start + len(beginFrame)

		pos := from
		_, pos, _ = optionalGroupAt(src, pos, '<', '>')
		_, pos, _ = optionalGroupAt(src, pos, '[', ']')
		_, pos, _ = optionalGroupAt(src, pos, '<', '>')

		e := strings.Index(src[pos:], endFrame)
		if e < 0 {
			return frames
		}
		bodyEnd := pos + e
		full := src[pos:bodyEnd]
		if strings.Contains(full, beginFrame) || strings.Contains(full, endDocument) {
			continue
		}

		f := envFrame{
			start:    start,
			end:      bodyEnd + len(endFrame),
			body:     full,
			fullBody: full,
		}
		if title, after, ok := braceGroupAt(src, pos, true); ok && after <= bodyEnd {
			f.title = strings.TrimSpace(title)
			f.hasTitle = true
			f.body = src[after:bodyEnd]
		}
		frames = append(frames, f)
		from = f.end
	}
}

func findInlineTitleFrames(src string) []Candidate {
	var out []Candidate
	for _, f := range scanEnvFrames(src) {
		if !f.hasTitle {
			continue
		}
		out = append(out, Candidate{
			Kind: KindFrame, Start: f.start, End: f.end,
			DirectTitle: f.title, HasDirectTitle: true,
			Body: strings.TrimSpace(f.body),
		})
	}
	return out
}

func findEnvironmentFrames(src string) []Candidate {
	var out []Candidate
	for _, f := range scanEnvFrames(src) {
		if f.hasTitle {
			continue
		}
		out = append(out, Candidate{
			Kind: KindFrame, Start: f.start, End: f.end,
			Body: strings.TrimSpace(f.fullBody),
		})
	}
	return out
}

// --- \frame{ ... } ---

type legacyFrame struct {
	start, end int
	body       string
}

// scanLegacyFrames finds brace-matched \frame{...} commands. Unterminated
// groups are dropped and scanning resumes right after the command.
func scanLegacyFrames(src string) []legacyFrame {
	var frames []legacyFrame
	for from := 0; ; {
		at := findCommand(src, "frame", from)
		if at < 0 {
			return frames
		}
		from = at + 1
		body, end, ok := commandArg(src, "frame", at)
		if !ok {
			continue
		}
		if strings.Contains(body, beginFrame) || strings.Contains(body, endDocument) {
			continue
		}
		frames = append(frames, legacyFrame{start: at, end: end, body: body})
		from = end
	}
}

func findLegacyTitledFrames(src string) []Candidate {
	var out []Candidate
	for _, f := range scanLegacyFrames(src) {
		lead := skipWhitespace(f.body, 0)
		if findCommand(f.body, "frametitle", lead) != lead {
			continue
		}
		title, after, ok := commandArg(f.body, "frametitle", lead)
		if !ok {
			continue
		}
		out = append(out, Candidate{
			Kind: KindFrame, Start: f.start, End: f.end,
			DirectTitle: strings.TrimSpace(title), HasDirectTitle: true,
			Body: strings.TrimSpace(f.body[after:]),
		})
	}
	return out
}

func findLegacyFrames(src string) []Candidate {
	var out []Candidate
	for _, f := range scanLegacyFrames(src) {
		out = append(out, Candidate{
			Kind: KindFrame, Start: f.start, End: f.end,
			Body: strings.TrimSpace(f.body),
		})
	}
	return out
}
