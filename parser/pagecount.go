package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

// PageCounter reports the number of pages in a compiled PDF.
type PageCounter interface {
	Name() string
	CountPages(ctx context.Context, path string) (int, error)
}

// DefaultPageCountTimeout bounds a single pdfinfo call.
const DefaultPageCountTimeout = 5 * time.Second

var pdfinfoPages = regexp.MustCompile(`(?m)^Pages:\s+(\d+)`)

// PDFInfoCounter shells out to poppler's pdfinfo.
type PDFInfoCounter struct {
	Binary  string        // defaults to "pdfinfo"
	Timeout time.Duration // defaults to DefaultPageCountTimeout
}

func (c *PDFInfoCounter) Name() string { return "pdfinfo" }

func (c *PDFInfoCounter) CountPages(ctx context.Context, path string) (int, error) {
	bin := c.Binary
	if bin == "" {
		bin = "pdfinfo"
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultPageCountTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, bin, path)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("pdfinfo failed: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}
	return parsePDFInfoPages(stdout.String())
}

func parsePDFInfoPages(out string) (int, error) {
	m := pdfinfoPages.FindStringSubmatch(out)
	if m == nil {
		return 0, errors.New("pdfinfo output has no Pages line")
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("parsing page count: %w", err)
	}
	return n, nil
}

// NativeCounter reads the page tree with ledongthuc/pdf.
type NativeCounter struct{}

func (NativeCounter) Name() string { return "native" }

func (NativeCounter) CountPages(_ context.Context, path string) (int, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()
	return reader.NumPage(), nil
}

// DefaultPageCounters tries pdfinfo first, then the in-process reader.
func DefaultPageCounters(timeout time.Duration) []PageCounter {
	return []PageCounter{&PDFInfoCounter{Timeout: timeout}, NativeCounter{}}
}

// compiledPDFCandidates lists where a PDF built from sourcePath may live:
// next to the source, then under <outputDir>/temp_pdf.
func compiledPDFCandidates(sourcePath, outputDir string) []string {
	base := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	return []string{
		filepath.Join(filepath.Dir(sourcePath), base+".pdf"),
		filepath.Join(outputDir, "temp_pdf", base+".pdf"),
	}
}

func locateCompiledPDF(sourcePath, outputDir string) (string, bool) {
	for _, p := range compiledPDFCandidates(sourcePath, outputDir) {
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p, true
		}
	}
	return "", false
}

// EstimatePages reconciles the slide count with a compiled PDF of the same
// source. When no PDF is found or every counter fails, the estimate is
// survivors + 2 for the title page and outline. The result is advisory.
func EstimatePages(ctx context.Context, counters []PageCounter, sourcePath, outputDir string, survivors int) PageEstimate {
	fallback := PageEstimate{Pages: survivors + 2, Source: "estimate"}
	if len(counters) == 0 {
		return PageEstimate{Pages: survivors + 2, Source: "disabled"}
	}

	path, ok := locateCompiledPDF(sourcePath, outputDir)
	if !ok {
		slog.Warn("pagecount: compiled PDF not found, estimating",
			"source", sourcePath, "pages", fallback.Pages)
		return fallback
	}

	for _, c := range counters {
		n, err := c.CountPages(ctx, path)
		if err != nil || n <= 0 {
			slog.Warn("pagecount: counter failed", "counter", c.Name(), "path", path,
				"pages", "unknown", "error", err)
			continue
		}
		slog.Info("pagecount: compiled PDF counted", "counter", c.Name(), "path", path,
			"pages", n, "slides", survivors+2)
		return PageEstimate{Pages: n, Source: c.Name(), Path: path}
	}

	slog.Warn("pagecount: all counters failed, estimating", "path", path, "pages", fallback.Pages)
	fallback.Path = path
	return fallback
}
