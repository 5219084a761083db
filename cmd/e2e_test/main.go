// Command e2e_test runs a deck through the whole pipeline against a scratch
// database: ingest, read back, search and export. It exits non-zero on the
// first failure.
//
//	go run ./cmd/e2e_test [deck.tex]
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/brunobiangulo/slidecast"
	"github.com/brunobiangulo/slidecast/export"
)

const demoDeck = `\documentclass{beamer}
\title{Pipeline Check}
\author{slidecast}
\begin{document}
\frame{\titlepage}
\begin{frame}{Outline}\tableofcontents\end{frame}
\section{Physics}
\begin{frame}{Energy}
Mass and energy are equivalent:
$$E=mc^2$$
\end{frame}
\begin{frame}
\frametitle{Systems}
\begin{align*}
x + y &= 2 \\
x - y &= 0
\end{align*}
\end{frame}
\end{document}
`

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	tmpDir, err := os.MkdirTemp("", "slidecast-e2e-*")
	if err != nil {
		fail("creating temp dir", err)
	}
	defer os.RemoveAll(tmpDir)

	deckPath := filepath.Join(tmpDir, "pipeline.tex")
	if len(os.Args) > 1 {
		deckPath = os.Args[1]
	} else if err := os.WriteFile(deckPath, []byte(demoDeck), 0o644); err != nil {
		fail("writing demo deck", err)
	}

	cfg := slidecast.DefaultConfig()
	cfg.DBPath = filepath.Join(tmpDir, "e2e.db")
	cfg.OutputDir = filepath.Join(tmpDir, "output")

	engine, err := slidecast.New(cfg)
	if err != nil {
		fail("creating engine", err)
	}
	defer engine.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n=== INGESTING %s ===\n", deckPath)
	deckID, err := engine.Ingest(ctx, deckPath, slidecast.WithMetadata(map[string]string{"run": "e2e"}))
	if err != nil {
		fail("ingest", err)
	}

	deck, err := engine.GetDeck(ctx, deckID)
	if err != nil {
		fail("reading deck", err)
	}
	fmt.Fprintf(os.Stderr, "deck_id=%d slides=%d pages=%d (%s)\n",
		deckID, len(deck.Slides), deck.PageEstimate.Pages, deck.PageEstimate.Source)

	query := "energy"
	if len(deck.Slides) > 2 {
		query = deck.Slides[2].Title
	}
	fmt.Fprintf(os.Stderr, "\n=== SEARCHING: %s ===\n", query)
	hits, err := engine.Search(ctx, query, 5)
	if err != nil {
		fail("search", err)
	}
	if len(hits) == 0 {
		fail("search", fmt.Errorf("no hits for %q", query))
	}

	fmt.Fprintf(os.Stderr, "\n=== MARKDOWN ===\n")
	if err := engine.Export(ctx, deckID, export.Markdown, os.Stderr); err != nil {
		fail("export", err)
	}

	// Summary to stdout
	out, _ := json.MarshalIndent(map[string]any{
		"deck_id": deckID,
		"title":   deck.Title,
		"slides":  deck.Slides,
		"hits":    hits,
		"stats":   deck.Stats,
	}, "", "  ")
	fmt.Println(string(out))
}

func fail(step string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", step, err)
	os.Exit(1)
}
