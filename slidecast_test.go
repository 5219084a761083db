//go:build cgo

package slidecast

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/brunobiangulo/slidecast/export"
	"github.com/brunobiangulo/slidecast/parser"
)

const lectureTex = `\documentclass{beamer}
\title{Small Talk}
\author{Ana}
\begin{document}
\begin{frame}{One}
first idea
\end{frame}
\section{Next}
\begin{frame}{Two}
second idea
\end{frame}
\end{document}
`

func newTestEngine(t *testing.T) Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "test.db")
	cfg.ProbePageCount = false
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("creating engine: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func writeDeck(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func slideTitles(slides []parser.Slide) []string {
	titles := make([]string, len(slides))
	for i, s := range slides {
		titles[i] = s.Title
	}
	return titles
}

func TestEngineParseDoesNotStore(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	deck, err := e.Parse(ctx, writeDeck(t, "talk.tex", lectureTex))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []string{parser.TitlePageTitle, parser.OutlineTitle, "One", "Next", "Two"}
	if diff := cmp.Diff(want, slideTitles(deck.Slides)); diff != "" {
		t.Errorf("titles mismatch (-want +got):\n%s", diff)
	}
	if deck.Title != "Small Talk" || deck.Author != "Ana" || deck.Method != "latex" {
		t.Errorf("deck = %q, %q, %q", deck.Title, deck.Author, deck.Method)
	}
	if deck.PageEstimate != (parser.PageEstimate{Pages: 5, Source: "disabled"}) {
		t.Errorf("PageEstimate = %+v", deck.PageEstimate)
	}

	decks, err := e.ListDecks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(decks) != 0 {
		t.Errorf("Parse stored %d decks", len(decks))
	}
}

func TestEngineIngestAndGetDeck(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	path := writeDeck(t, "talk.tex", lectureTex)

	id, err := e.Ingest(ctx, path, WithMetadata(map[string]string{"course": "calc"}))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	deck, err := e.GetDeck(ctx, id)
	if err != nil {
		t.Fatalf("GetDeck: %v", err)
	}
	parsed, err := e.Parse(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(parsed.Slides, deck.Slides); diff != "" {
		t.Errorf("stored slides differ from parse (-parsed +stored):\n%s", diff)
	}
	if deck.Status != "ready" || deck.Title != "Small Talk" {
		t.Errorf("status=%q title=%q", deck.Status, deck.Title)
	}
	if deck.Stats != parsed.Stats {
		t.Errorf("stats = %+v, want %+v", deck.Stats, parsed.Stats)
	}
	if deck.Metadata["course"] != "calc" {
		t.Errorf("metadata = %v", deck.Metadata)
	}

	// Unchanged content keeps the same deck.
	again, err := e.Ingest(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if again != id {
		t.Errorf("re-ingest returned %d, want %d", again, id)
	}
}

func TestEngineUpdate(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	path := writeDeck(t, "talk.tex", lectureTex)

	id, err := e.Ingest(ctx, path)
	if err != nil {
		t.Fatal(err)
	}

	changed, err := e.Update(ctx, path)
	if err != nil || changed {
		t.Fatalf("Update unchanged = %v, %v", changed, err)
	}

	edited := strings.Replace(lectureTex, "second idea", "second idea\n\\end{frame}\n\\begin{frame}{Three}\nthird", 1)
	if err := os.WriteFile(path, []byte(edited), 0o644); err != nil {
		t.Fatal(err)
	}
	changed, err = e.Update(ctx, path)
	if err != nil || !changed {
		t.Fatalf("Update edited = %v, %v", changed, err)
	}

	deck, err := e.GetDeck(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got := deck.Slides[len(deck.Slides)-1].Title; got != "Three" {
		t.Errorf("last slide after update = %q", got)
	}

	if _, err := e.Update(ctx, writeDeck(t, "other.tex", lectureTex)); !errors.Is(err, ErrDeckNotFound) {
		t.Errorf("unknown path: expected ErrDeckNotFound, got %v", err)
	}
}

func TestEngineIngestErrors(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	if _, err := e.Ingest(ctx, writeDeck(t, "notes.txt", "plain")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
	if _, err := e.Ingest(ctx, filepath.Join(t.TempDir(), "missing.tex")); !errors.Is(err, ErrSourceUnreadable) {
		t.Errorf("expected ErrSourceUnreadable, got %v", err)
	}
	if _, err := e.GetDeck(ctx, 999); !errors.Is(err, ErrDeckNotFound) {
		t.Errorf("expected ErrDeckNotFound, got %v", err)
	}
}

func TestEngineIngestAll(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	paths := []string{
		writeDeck(t, "a.tex", lectureTex),
		filepath.Join(t.TempDir(), "gone.tex"),
		writeDeck(t, "b.tex", strings.Replace(lectureTex, "Small Talk", "Other Talk", 1)),
	}
	results := e.IngestAll(ctx, paths)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, r := range results {
		if r.Path != paths[i] {
			t.Errorf("result %d path = %q", i, r.Path)
		}
	}
	if results[0].Error != nil || results[2].Error != nil {
		t.Errorf("unexpected errors: %v, %v", results[0].Error, results[2].Error)
	}
	if !errors.Is(results[1].Error, ErrSourceUnreadable) {
		t.Errorf("missing file error = %v", results[1].Error)
	}

	decks, err := e.ListDecks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(decks) != 2 {
		t.Errorf("expected 2 stored decks, got %d", len(decks))
	}
}

func TestEngineSearchAndExport(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	id, err := e.Ingest(ctx, writeDeck(t, "talk.tex", lectureTex))
	if err != nil {
		t.Fatal(err)
	}

	hits, err := e.Search(ctx, "second", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].Title != "Two" || hits[0].DeckID != id {
		t.Fatalf("hits = %+v", hits)
	}

	var buf bytes.Buffer
	if err := e.Export(ctx, id, export.Markdown, &buf); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "# Small Talk\n") || !strings.Contains(buf.String(), "## Next\n") {
		t.Errorf("markdown = %q", buf.String())
	}

	if err := e.Export(ctx, id, export.Format("odp"), &buf); !errors.Is(err, ErrUnsupportedExport) {
		t.Errorf("expected ErrUnsupportedExport, got %v", err)
	}
}

func TestEngineDeleteAndClose(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	id, err := e.Ingest(ctx, writeDeck(t, "talk.tex", lectureTex))
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := e.Delete(ctx, id); !errors.Is(err, ErrDeckNotFound) {
		t.Errorf("second delete: expected ErrDeckNotFound, got %v", err)
	}

	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := e.ListDecks(ctx); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("after close: expected ErrStoreClosed, got %v", err)
	}
}
