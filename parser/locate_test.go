package parser

import (
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type located struct {
	Kind  CandidateKind
	Title string
	Body  string
	Form  string
}

func locateSorted(src string) []located {
	cands := Locate(src)
	sort.Slice(cands, func(i, j int) bool { return cands[i].Start < cands[j].Start })
	out := make([]located, len(cands))
	for i, c := range cands {
		out[i] = located{c.Kind, c.DirectTitle, c.Body, c.Form}
	}
	return out
}

func TestLocateForms(t *testing.T) {
	src := `\section{Intro}
\begin{frame}{A}
x
\end{frame}
\begin{frame}
\frametitle{B}
y
\end{frame}
\frame{\frametitle{C} z}
\frame{w}
`
	want := []located{
		{KindSection, "Intro", "Intro", "section-command"},
		{KindFrame, "A", "x", "frame-inline-title"},
		{KindFrame, "", "\\frametitle{B}\ny", "frame-environment"},
		{KindFrame, "C", "z", "legacy-frame-titled"},
		{KindFrame, "", "w", "legacy-frame"},
	}
	if diff := cmp.Diff(want, locateSorted(src)); diff != "" {
		t.Errorf("Locate mismatch (-want +got):\n%s", diff)
	}
}

func TestLocateSectionHeuristics(t *testing.T) {
	src := `\begin{frame}{Section: Methods}
\end{frame}
\begin{frame}
\frametitle{Section: Results}
\end{frame}
`
	want := []located{
		{KindSection, "Methods", "Methods", "section-inline-heuristic"},
		{KindSection, "Results", "Results", "section-frametitle-heuristic"},
	}
	if diff := cmp.Diff(want, locateSorted(src)); diff != "" {
		t.Errorf("Locate mismatch (-want +got):\n%s", diff)
	}
}

func TestLocateSectionInsideFrameNotCounted(t *testing.T) {
	got := locateSorted(`\begin{frame}{X}\section{Inner}text\end{frame}`)
	if len(got) != 1 || got[0].Kind != KindFrame {
		t.Errorf("expected only the frame, got %+v", got)
	}
}

func TestLocateUnbalancedLegacyFrame(t *testing.T) {
	src := "\\frame{Unbalanced { brace\n\\begin{frame}{Ok}\nfine\n\\end{frame}\n"
	got := locateSorted(src)
	want := []located{{KindFrame, "Ok", "fine", "frame-inline-title"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Locate mismatch (-want +got):\n%s", diff)
	}
}

func TestLocateRunawayFrameSkipped(t *testing.T) {
	src := "\\begin{frame}{A}\nx\n\\begin{frame}{B}\ny\n\\end{frame}\n"
	got := locateSorted(src)
	if len(got) != 1 || got[0].Title != "B" {
		t.Errorf("expected only frame B, got %+v", got)
	}
}

func TestLocateIgnoresComments(t *testing.T) {
	src := "% \\begin{frame}{Hidden}\n% \\end{frame}\n% \\section{Old}\n\\section{Live}\n"
	got := locateSorted(src)
	if len(got) != 1 || got[0].Title != "Live" {
		t.Errorf("expected only section Live, got %+v", got)
	}
}

func TestLocateEscapedFrameCommand(t *testing.T) {
	if got := Locate(`text \\frame{not a frame}`); len(got) != 0 {
		t.Errorf("escaped \\frame located: %+v", got)
	}
}

func TestIntervalSetClaim(t *testing.T) {
	var s intervalSet
	steps := []struct {
		start, end int
		want       bool
	}{
		{0, 10, true},
		{5, 8, false},
		{10, 12, true},
		{11, 11, false},
		{20, 30, true},
		{15, 21, false},
		{12, 20, true},
	}
	for _, st := range steps {
		if got := s.claim(st.start, st.end); got != st.want {
			t.Errorf("claim(%d, %d) = %v, want %v", st.start, st.end, got, st.want)
		}
	}
}
