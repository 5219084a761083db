package slidecast

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/brunobiangulo/slidecast/export"
	"github.com/brunobiangulo/slidecast/parser"
	"github.com/brunobiangulo/slidecast/store"
)

// Engine is the main entry point for parsing and cataloguing slide decks.
type Engine interface {
	// Parse reads a presentation without storing it.
	Parse(ctx context.Context, path string) (*Deck, error)

	// Ingest parses a presentation and stores its slides. Returns the deck
	// ID. Skips if the content hash is unchanged.
	Ingest(ctx context.Context, path string, opts ...IngestOption) (int64, error)

	// IngestAll ingests paths concurrently. One result per path, in order.
	IngestAll(ctx context.Context, paths []string, opts ...IngestOption) []IngestResult

	// Update re-checks a deck by hash. Re-ingests if changed.
	Update(ctx context.Context, path string) (bool, error)

	// UpdateAll checks all stored decks for changes.
	UpdateAll(ctx context.Context) ([]UpdateResult, error)

	// GetDeck returns a stored deck with its slides.
	GetDeck(ctx context.Context, id int64) (*Deck, error)

	// ListDecks returns all stored decks without slides.
	ListDecks(ctx context.Context) ([]Deck, error)

	// Search finds slides across all stored decks.
	Search(ctx context.Context, query string, limit int) ([]SearchHit, error)

	// Export writes a stored deck in the given format.
	Export(ctx context.Context, id int64, format export.Format, w io.Writer) error

	// Delete removes a deck and its slides.
	Delete(ctx context.Context, id int64) error

	// Store returns the underlying store for diagnostic access.
	Store() *store.Store

	// Close cleanly shuts down the engine.
	Close() error
}

// IngestResult reports the outcome of one path in IngestAll.
type IngestResult struct {
	Path   string `json:"path"`
	DeckID int64  `json:"deck_id,omitempty"`
	Error  error  `json:"-"`
}

// UpdateResult reports the outcome of a deck update check.
type UpdateResult struct {
	DeckID  int64  `json:"deck_id"`
	Path    string `json:"path"`
	Changed bool   `json:"changed"`
	Error   error  `json:"-"`
}

// SearchHit is a slide matched by Search.
type SearchHit struct {
	DeckID      int64            `json:"deck_id"`
	Filename    string           `json:"filename"`
	DeckTitle   string           `json:"deck_title"`
	FrameNumber int              `json:"frame_number"`
	Title       string           `json:"title"`
	Content     string           `json:"content"`
	SlideType   parser.SlideType `json:"slide_type"`
	Score       float64          `json:"score"`
}

// IngestOption configures ingestion behavior.
type IngestOption func(*ingestOptions)

type ingestOptions struct {
	forceReparse bool
	metadata     map[string]string
}

// WithForceReparse forces re-parsing even if the hash hasn't changed.
func WithForceReparse() IngestOption {
	return func(o *ingestOptions) { o.forceReparse = true }
}

// WithMetadata attaches custom metadata to the ingested deck.
func WithMetadata(metadata map[string]string) IngestOption {
	return func(o *ingestOptions) { o.metadata = metadata }
}

// deckMetadata is the JSON kept in decks.metadata.
type deckMetadata struct {
	Stats   parser.Stats      `json:"stats"`
	PDFPath string            `json:"pdf_path,omitempty"`
	Extra   map[string]string `json:"extra,omitempty"`
}

// engine is the concrete implementation of Engine.
type engine struct {
	cfg     Config
	store   *store.Store
	parsers *parser.Registry
	closed  atomic.Bool
}

// New creates a new slidecast engine with the given configuration.
func New(cfg Config) (Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Resolve database path from config (DBPath > DBName+StorageDir > default)
	dbPath := cfg.resolveDBPath()

	s, err := store.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	slog.Info("engine: ready", "db", dbPath, "fts", s.FullTextSearch(),
		"probe_page_count", cfg.ProbePageCount)

	return &engine{
		cfg:     cfg,
		store:   s,
		parsers: parser.NewRegistry(cfg.ParserOptions()),
	}, nil
}

// Parse runs the parser for path's extension.
func (e *engine) Parse(ctx context.Context, path string) (*Deck, error) {
	return parseFile(ctx, e.parsers, path)
}

// ParseFile parses one presentation with the given options and no store.
func ParseFile(ctx context.Context, path string, opts parser.Options) (*Deck, error) {
	return parseFile(ctx, parser.NewRegistry(opts), path)
}

func parseFile(ctx context.Context, reg *parser.Registry, path string) (*Deck, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	format := formatOf(absPath)
	p, err := reg.Get(format)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	start := time.Now()
	res, err := p.Parse(ctx, absPath)
	if err != nil {
		if errors.Is(err, parser.ErrSourceUnreadable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}

	slog.Debug("engine: parsed", "file", filepath.Base(absPath), "method", res.Method,
		"slides", len(res.Slides), "elapsed", time.Since(start).Round(time.Millisecond))

	return &Deck{
		Path:         absPath,
		Filename:     filepath.Base(absPath),
		Format:       format,
		Method:       res.Method,
		Title:        res.Title,
		Author:       res.Author,
		PageEstimate: res.PageEstimate,
		Stats:        res.Stats,
		Slides:       res.Slides,
	}, nil
}

// Ingest parses a deck and replaces its stored slides.
func (e *engine) Ingest(ctx context.Context, path string, opts ...IngestOption) (int64, error) {
	if e.closed.Load() {
		return 0, ErrStoreClosed
	}
	options := &ingestOptions{}
	for _, o := range opts {
		o(options)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("resolving path: %w", err)
	}

	hash, err := fileHash(absPath)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", parser.ErrSourceUnreadable, err)
	}

	// Check if the deck already exists with the same hash
	if !options.forceReparse {
		existing, err := e.store.GetDeckByPath(ctx, absPath)
		if err == nil && existing.ContentHash == hash && existing.Status == "ready" {
			return existing.ID, nil // no change
		}
	}

	format := formatOf(absPath)
	if _, err := e.parsers.Get(format); err != nil {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	filename := filepath.Base(absPath)
	deckID, err := e.store.UpsertDeck(ctx, store.Deck{
		Path:        absPath,
		Filename:    filename,
		Format:      format,
		ContentHash: hash,
		ParseMethod: "pending",
		Status:      "processing",
	})
	if err != nil {
		return 0, fmt.Errorf("upserting deck: %w", err)
	}

	slog.Info("ingest: parsing deck", "file", filename, "format", format, "deck_id", deckID)
	start := time.Now()

	deck, err := e.Parse(ctx, absPath)
	if err != nil {
		e.store.UpdateDeckStatus(ctx, deckID, "error")
		return 0, err
	}

	meta, _ := json.Marshal(deckMetadata{
		Stats:   deck.Stats,
		PDFPath: deck.PageEstimate.Path,
		Extra:   options.metadata,
	})
	if _, err := e.store.UpsertDeck(ctx, store.Deck{
		Path:        absPath,
		Filename:    filename,
		Format:      format,
		ContentHash: hash,
		ParseMethod: deck.Method,
		Status:      "processing",
		Title:       deck.Title,
		Author:      deck.Author,
		PageCount:   deck.PageEstimate.Pages,
		PageSource:  deck.PageEstimate.Source,
		Metadata:    string(meta),
	}); err != nil {
		return 0, fmt.Errorf("upserting deck: %w", err)
	}

	rows := make([]store.Slide, len(deck.Slides))
	for i, s := range deck.Slides {
		rows[i] = store.Slide{
			DeckID:      deckID,
			FrameNumber: s.FrameNumber,
			Title:       s.Title,
			Content:     s.Content,
			SlideType:   string(s.SlideType),
		}
	}
	if err := e.store.ReplaceSlides(ctx, deckID, rows); err != nil {
		e.store.UpdateDeckStatus(ctx, deckID, "error")
		return 0, fmt.Errorf("storing slides: %w", err)
	}

	if err := e.store.UpdateDeckStatus(ctx, deckID, "ready"); err != nil {
		return 0, fmt.Errorf("updating status: %w", err)
	}
	slog.Info("ingest: deck ready",
		"file", filename, "deck_id", deckID, "slides", len(rows),
		"pages", deck.PageEstimate.Pages, "page_source", deck.PageEstimate.Source,
		"elapsed", time.Since(start).Round(time.Millisecond))
	return deckID, nil
}

// IngestAll runs Ingest over paths with at most Config.Workers() in
// flight. A failure on one path does not stop the others.
func (e *engine) IngestAll(ctx context.Context, paths []string, opts ...IngestOption) []IngestResult {
	results := make([]IngestResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers())
	for i, path := range paths {
		g.Go(func() error {
			id, err := e.Ingest(gctx, path, opts...)
			results[i] = IngestResult{Path: path, DeckID: id, Error: err}
			if err != nil {
				slog.Warn("ingest: failed", "path", path, "error", err)
			}
			return nil
		})
	}
	g.Wait()
	return results
}

// Update checks if a deck has changed and re-ingests if needed.
func (e *engine) Update(ctx context.Context, path string) (bool, error) {
	if e.closed.Load() {
		return false, ErrStoreClosed
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("resolving path: %w", err)
	}

	deck, err := e.store.GetDeckByPath(ctx, absPath)
	if err != nil {
		return false, fmt.Errorf("%w: %s", ErrDeckNotFound, absPath)
	}

	hash, err := fileHash(absPath)
	if err != nil {
		return false, fmt.Errorf("%w: %v", parser.ErrSourceUnreadable, err)
	}

	if hash == deck.ContentHash && deck.Status == "ready" {
		return false, nil
	}

	if _, err := e.Ingest(ctx, absPath, WithForceReparse()); err != nil {
		return false, err
	}
	return true, nil
}

// UpdateAll checks all decks for changes.
func (e *engine) UpdateAll(ctx context.Context) ([]UpdateResult, error) {
	if e.closed.Load() {
		return nil, ErrStoreClosed
	}
	decks, err := e.store.ListDecks(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]UpdateResult, 0, len(decks))
	for _, d := range decks {
		changed, err := e.Update(ctx, d.Path)
		results = append(results, UpdateResult{
			DeckID:  d.ID,
			Path:    d.Path,
			Changed: changed,
			Error:   err,
		})
	}
	return results, nil
}

// GetDeck loads a deck and its slides.
func (e *engine) GetDeck(ctx context.Context, id int64) (*Deck, error) {
	if e.closed.Load() {
		return nil, ErrStoreClosed
	}
	row, err := e.store.GetDeck(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrDeckNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	rows, err := e.store.GetSlides(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading slides: %w", err)
	}

	deck := deckFromRow(row)
	deck.Slides = make([]parser.Slide, len(rows))
	for i, r := range rows {
		deck.Slides[i] = parser.Slide{
			FrameNumber: r.FrameNumber,
			Title:       r.Title,
			Content:     r.Content,
			SlideType:   parser.SlideType(r.SlideType),
		}
	}
	return deck, nil
}

// ListDecks returns all stored decks.
func (e *engine) ListDecks(ctx context.Context) ([]Deck, error) {
	if e.closed.Load() {
		return nil, ErrStoreClosed
	}
	rows, err := e.store.ListDecks(ctx)
	if err != nil {
		return nil, err
	}
	decks := make([]Deck, len(rows))
	for i := range rows {
		decks[i] = *deckFromRow(&rows[i])
	}
	return decks, nil
}

// Search runs a slide search across every stored deck.
func (e *engine) Search(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	if e.closed.Load() {
		return nil, ErrStoreClosed
	}
	results, err := e.store.SearchSlides(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("searching slides: %w", err)
	}
	hits := make([]SearchHit, len(results))
	for i, r := range results {
		hits[i] = SearchHit{
			DeckID:      r.DeckID,
			Filename:    r.Filename,
			DeckTitle:   r.DeckTitle,
			FrameNumber: r.FrameNumber,
			Title:       r.Title,
			Content:     r.Content,
			SlideType:   parser.SlideType(r.SlideType),
			Score:       r.Score,
		}
	}
	return hits, nil
}

// Export writes a stored deck to w.
func (e *engine) Export(ctx context.Context, id int64, format export.Format, w io.Writer) error {
	deck, err := e.GetDeck(ctx, id)
	if err != nil {
		return err
	}
	return export.Write(w, format, deck.ExportDeck())
}

// Delete removes a deck and all its slides.
func (e *engine) Delete(ctx context.Context, id int64) error {
	if e.closed.Load() {
		return ErrStoreClosed
	}
	err := e.store.DeleteDeck(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %d", ErrDeckNotFound, id)
	}
	return err
}

// Store returns the underlying store for diagnostic access.
func (e *engine) Store() *store.Store {
	return e.store
}

// Close shuts down the engine. Later calls return ErrStoreClosed.
func (e *engine) Close() error {
	if e.closed.Swap(true) {
		return ErrStoreClosed
	}
	return e.store.Close()
}

func deckFromRow(d *store.Deck) *Deck {
	deck := &Deck{
		ID:       d.ID,
		Path:     d.Path,
		Filename: d.Filename,
		Format:   d.Format,
		Method:   d.ParseMethod,
		Status:   d.Status,
		Title:    d.Title,
		Author:   d.Author,
		PageEstimate: parser.PageEstimate{
			Pages:  d.PageCount,
			Source: d.PageSource,
		},
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	if d.Metadata != "" {
		var meta deckMetadata
		if err := json.Unmarshal([]byte(d.Metadata), &meta); err == nil {
			deck.Stats = meta.Stats
			deck.PageEstimate.Path = meta.PDFPath
			deck.Metadata = meta.Extra
		}
	}
	return deck
}

// formatOf maps a path to a registry key: the lower-cased extension.
func formatOf(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// fileHash computes the SHA-256 hash of a file's content.
func fileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
