package parser

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestParsePDFInfoPages(t *testing.T) {
	out := "Title:          deck\nCreator:        LaTeX with Beamer class\nPages:          12\nEncrypted:      no\n"
	n, err := parsePDFInfoPages(out)
	if err != nil {
		t.Fatalf("parsePDFInfoPages: %v", err)
	}
	if n != 12 {
		t.Errorf("pages = %d, want 12", n)
	}

	if _, err := parsePDFInfoPages("Title: x\nEncrypted: no\n"); err == nil {
		t.Error("expected error when Pages line is missing")
	}
}

func TestPDFInfoCounterMissingBinary(t *testing.T) {
	c := &PDFInfoCounter{Binary: filepath.Join(t.TempDir(), "no-such-pdfinfo"), Timeout: time.Second}
	if _, err := c.CountPages(context.Background(), "deck.pdf"); err == nil {
		t.Error("expected error for missing binary")
	}
}

func TestCompiledPDFCandidates(t *testing.T) {
	got := compiledPDFCandidates(filepath.Join("talks", "week1.tex"), "out")
	want := []string{
		filepath.Join("talks", "week1.pdf"),
		filepath.Join("out", "temp_pdf", "week1.pdf"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("candidates mismatch (-want +got):\n%s", diff)
	}
}

func TestEstimatePages(t *testing.T) {
	ctx := context.Background()

	t.Run("no counters", func(t *testing.T) {
		got := EstimatePages(ctx, nil, "deck.tex", "out", 4)
		if got != (PageEstimate{Pages: 6, Source: "disabled"}) {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("no compiled pdf", func(t *testing.T) {
		dir := t.TempDir()
		counter := &fakeCounter{pages: 9}
		got := EstimatePages(ctx, []PageCounter{counter}, filepath.Join(dir, "deck.tex"), filepath.Join(dir, "out"), 4)
		if got != (PageEstimate{Pages: 6, Source: "estimate"}) {
			t.Errorf("got %+v", got)
		}
		if counter.calls != 0 {
			t.Errorf("counter called %d times without a PDF", counter.calls)
		}
	})

	t.Run("output dir pdf", func(t *testing.T) {
		dir := t.TempDir()
		outDir := filepath.Join(dir, "out")
		pdfPath := filepath.Join(outDir, "temp_pdf", "deck.pdf")
		writeFile(t, pdfPath, "%PDF-1.4")

		got := EstimatePages(ctx, []PageCounter{&fakeCounter{pages: 11}}, filepath.Join(dir, "deck.tex"), outDir, 4)
		if got != (PageEstimate{Pages: 11, Source: "fake", Path: pdfPath}) {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("counters fail in order", func(t *testing.T) {
		dir := t.TempDir()
		pdfPath := filepath.Join(dir, "deck.pdf")
		writeFile(t, pdfPath, "%PDF-1.4")

		failing := &fakeCounter{err: errors.New("boom")}
		zero := &fakeCounter{pages: 0}
		got := EstimatePages(ctx, []PageCounter{failing, zero}, filepath.Join(dir, "deck.tex"), "", 2)
		if got != (PageEstimate{Pages: 4, Source: "estimate", Path: pdfPath}) {
			t.Errorf("got %+v", got)
		}
		if failing.calls != 1 || zero.calls != 1 {
			t.Errorf("calls = %d, %d; want 1, 1", failing.calls, zero.calls)
		}
	})
}

func TestNativeCounterRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.pdf")
	writeFile(t, path, "plain text")
	if _, err := (NativeCounter{}).CountPages(context.Background(), path); err == nil {
		t.Error("expected error for a non-PDF file")
	}
}
