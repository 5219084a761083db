package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/brunobiangulo/slidecast"
	"github.com/brunobiangulo/slidecast/parser"
)

const sampleTex = `\title{Week One}
\begin{document}
\begin{frame}{Limits}
$\lim_{x \to 0} x = 0$
\end{frame}
\section{Derivatives}
\begin{frame}{Rules}
\begin{itemize}
\item Sum rule
\end{itemize}
\end{frame}
\end{document}
`

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTex(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(sampleTex), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseCommandJSON(t *testing.T) {
	path := writeTex(t, t.TempDir(), "week1.tex")

	out, _, err := run(t, "parse", "--json", path)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var deck slidecast.Deck
	if err := json.Unmarshal([]byte(out), &deck); err != nil {
		t.Fatalf("decoding output: %v\n%s", err, out)
	}

	var titles []string
	for _, s := range deck.Slides {
		titles = append(titles, s.Title)
	}
	want := []string{parser.TitlePageTitle, parser.OutlineTitle, "Limits", "Derivatives", "Rules"}
	if strings.Join(titles, "|") != strings.Join(want, "|") {
		t.Errorf("titles = %v, want %v", titles, want)
	}
}

func TestParseCommandRendersAndReportsFailures(t *testing.T) {
	dir := t.TempDir()
	good := writeTex(t, dir, "good.tex")
	missing := filepath.Join(dir, "missing.tex")

	out, errOut, err := run(t, "parse", good, missing)
	if err == nil || !strings.Contains(err.Error(), "1 of 2 files failed") {
		t.Errorf("expected a failure summary, got %v", err)
	}
	for _, want := range []string{"Week One", "Limits", "Derivatives", "- Sum rule"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(errOut, "missing.tex") {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestParseCommandWritesExports(t *testing.T) {
	dir := t.TempDir()
	path := writeTex(t, dir, "week1.tex")
	outDir := filepath.Join(dir, "out")

	if _, _, err := run(t, "parse", "--out", outDir, "--format", "markdown", path); err != nil {
		t.Fatalf("parse --out: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(outDir, "week1.md"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# Week One\n") {
		t.Errorf("markdown = %q", data)
	}

	if _, _, err := run(t, "parse", "--out", outDir, "--format", "odp", path); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestParseCommandExportNamesDoNotCollide(t *testing.T) {
	dir := t.TempDir()
	for _, sub := range []string{"a", "b"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	first := writeTex(t, filepath.Join(dir, "a"), "deck.tex")
	second := writeTex(t, filepath.Join(dir, "b"), "deck.tex")
	outDir := filepath.Join(dir, "out")

	out, _, err := run(t, "parse", "--out", outDir, "--format", "md", first, second)
	if err != nil {
		t.Fatalf("parse --out: %v", err)
	}
	for _, name := range []string{"deck.md", "deck-2.md"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("%s not written: %v\n%s", name, err, out)
		}
	}
}

func TestExportName(t *testing.T) {
	taken := map[string]bool{}
	got := []string{
		exportName(taken, "deck", "md"),
		exportName(taken, "deck-2", "md"),
		exportName(taken, "deck", "md"),
		exportName(taken, "deck", "json"),
	}
	want := []string{"deck.md", "deck-2.md", "deck-3.md", "deck.json"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("exportName sequence = %v, want %v", got, want)
	}
}

func TestVersionCommand(t *testing.T) {
	out, _, err := run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "slidecast dev") {
		t.Errorf("version output = %q", out)
	}
}

func TestParseID(t *testing.T) {
	if id, err := parseID("42"); err != nil || id != 42 {
		t.Errorf("parseID(42) = %d, %v", id, err)
	}
	for _, bad := range []string{"0", "-3", "x"} {
		if _, err := parseID(bad); err == nil {
			t.Errorf("parseID(%q) accepted", bad)
		}
	}
}

func TestFirstLine(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"\n\n  first  \nsecond", 80, "first"},
		{"", 80, ""},
		{"abcdef", 4, "abc…"},
		{"ação", 4, "ação"},
	}
	for _, tt := range tests {
		if got := firstLine(tt.in, tt.max); got != tt.want {
			t.Errorf("firstLine(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
