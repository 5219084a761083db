package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Deck represents a row in the decks table.
type Deck struct {
	ID          int64  `json:"id"`
	Path        string `json:"path"`
	Filename    string `json:"filename"`
	Format      string `json:"format"`
	ContentHash string `json:"content_hash"`
	ParseMethod string `json:"parse_method"`
	Status      string `json:"status"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	PageCount   int    `json:"page_count"`
	PageSource  string `json:"page_source"`
	Metadata    string `json:"metadata,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// Slide represents a row in the slides table.
type Slide struct {
	ID          int64  `json:"id"`
	DeckID      int64  `json:"deck_id"`
	FrameNumber int    `json:"frame_number"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	SlideType   string `json:"slide_type"`
}

// SearchResult is a slide matched by full-text search, with its deck.
type SearchResult struct {
	Slide
	Filename  string  `json:"filename"`
	DeckTitle string  `json:"deck_title"`
	Score     float64 `json:"score"`
}

// Store wraps the SQLite database for all slidecast persistence.
type Store struct {
	db  *sql.DB
	fts bool
}

// New opens (or creates) a SQLite database at the given path and
// initialises the schema. Full-text search is enabled when the SQLite build
// includes FTS5; otherwise searches fall back to substring matching.
func New(dbPath string) (*Store, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	s := &Store{db: db, fts: true}
	if _, err := db.Exec(ftsSQL); err != nil {
		slog.Warn("store: full-text search unavailable, using substring search", "error", err)
		s.fts = false
	}

	// Connection pool settings for SQLite.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// FullTextSearch reports whether slide search uses FTS5.
func (s *Store) FullTextSearch() bool {
	return s.fts
}

// --- Deck operations ---

const deckColumns = `id, path, filename, format, content_hash, parse_method, status,
	title, author, page_count, page_source, metadata, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeck(row rowScanner) (*Deck, error) {
	d := &Deck{}
	var title, author, pageSource, metadata sql.NullString
	var pageCount sql.NullInt64
	if err := row.Scan(&d.ID, &d.Path, &d.Filename, &d.Format,
		&d.ContentHash, &d.ParseMethod, &d.Status,
		&title, &author, &pageCount, &pageSource,
		&metadata, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	d.Title = title.String
	d.Author = author.String
	d.PageCount = int(pageCount.Int64)
	d.PageSource = pageSource.String
	d.Metadata = metadata.String
	return d, nil
}

// UpsertDeck inserts or updates a deck record keyed by path. Returns the
// deck ID.
func (s *Store) UpsertDeck(ctx context.Context, deck Deck) (int64, error) {
	// RETURNING reports the row id for both branches of the upsert;
	// LastInsertId does not change when the conflict path updates.
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO decks (path, filename, format, content_hash, parse_method, status,
			title, author, page_count, page_source, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			filename = excluded.filename,
			format = excluded.format,
			content_hash = excluded.content_hash,
			parse_method = excluded.parse_method,
			status = excluded.status,
			title = excluded.title,
			author = excluded.author,
			page_count = excluded.page_count,
			page_source = excluded.page_source,
			metadata = excluded.metadata,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id
	`, deck.Path, deck.Filename, deck.Format, deck.ContentHash, deck.ParseMethod, deck.Status,
		deck.Title, deck.Author, deck.PageCount, deck.PageSource, nullJSON(deck.Metadata)).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetDeck retrieves a deck by ID.
func (s *Store) GetDeck(ctx context.Context, id int64) (*Deck, error) {
	return scanDeck(s.db.QueryRowContext(ctx,
		"SELECT "+deckColumns+" FROM decks WHERE id = ?", id))
}

// GetDeckByPath retrieves a deck by its file path.
func (s *Store) GetDeckByPath(ctx context.Context, path string) (*Deck, error) {
	return scanDeck(s.db.QueryRowContext(ctx,
		"SELECT "+deckColumns+" FROM decks WHERE path = ?", path))
}

// ListDecks returns all decks, newest first.
func (s *Store) ListDecks(ctx context.Context) ([]Deck, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+deckColumns+" FROM decks ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var decks []Deck
	for rows.Next() {
		d, err := scanDeck(rows)
		if err != nil {
			return nil, err
		}
		decks = append(decks, *d)
	}
	return decks, rows.Err()
}

// UpdateDeckStatus updates just the status field.
func (s *Store) UpdateDeckStatus(ctx context.Context, id int64, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE decks SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		status, id)
	return err
}

// DeleteDeck removes a deck and its slides. Triggers clean up the FTS index.
func (s *Store) DeleteDeck(ctx context.Context, id int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM slides WHERE deck_id = ?", id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM decks WHERE id = ?", id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
}

// --- Slide operations ---

// ReplaceSlides swaps the deck's slide list for slides in one transaction.
func (s *Store) ReplaceSlides(ctx context.Context, deckID int64, slides []Slide) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM slides WHERE deck_id = ?", deckID); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO slides (deck_id, frame_number, title, content, slide_type)
			VALUES (?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, sl := range slides {
			if _, err := stmt.ExecContext(ctx,
				deckID, sl.FrameNumber, sl.Title, sl.Content, sl.SlideType); err != nil {
				return fmt.Errorf("inserting slide %d: %w", sl.FrameNumber, err)
			}
		}
		return nil
	})
}

// GetSlides returns a deck's slides ordered by frame number.
func (s *Store) GetSlides(ctx context.Context, deckID int64) ([]Slide, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, deck_id, frame_number, title, content, slide_type
		FROM slides WHERE deck_id = ? ORDER BY frame_number
	`, deckID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slides []Slide
	for rows.Next() {
		var sl Slide
		if err := rows.Scan(&sl.ID, &sl.DeckID, &sl.FrameNumber,
			&sl.Title, &sl.Content, &sl.SlideType); err != nil {
			return nil, err
		}
		slides = append(slides, sl)
	}
	return slides, rows.Err()
}

// likeEscaper makes LIKE wildcards in user terms match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// SearchSlides finds slides whose title or content match query. With FTS5
// the terms are ANDed and ranked by BM25; without it every term must
// appear as a substring.
func (s *Store) SearchSlides(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	var rows *sql.Rows
	var err error
	if s.fts {
		rows, err = s.db.QueryContext(ctx, `
			SELECT sl.id, sl.deck_id, sl.frame_number, sl.title, sl.content, sl.slide_type,
				d.filename, COALESCE(d.title, ''), f.rank
			FROM slides_fts f
			JOIN slides sl ON sl.id = f.rowid
			JOIN decks d ON d.id = sl.deck_id
			WHERE slides_fts MATCH ?
			ORDER BY f.rank
			LIMIT ?
		`, ftsQuery(terms), limit)
	} else {
		where := make([]string, len(terms))
		args := make([]any, 0, len(terms)*2+1)
		for i, term := range terms {
			where[i] = `(sl.title LIKE ? ESCAPE '\' OR sl.content LIKE ? ESCAPE '\')`
			pattern := "%" + likeEscaper.Replace(term) + "%"
			args = append(args, pattern, pattern)
		}
		args = append(args, limit)
		rows, err = s.db.QueryContext(ctx, `
			SELECT sl.id, sl.deck_id, sl.frame_number, sl.title, sl.content, sl.slide_type,
				d.filename, COALESCE(d.title, ''), 0.0
			FROM slides sl
			JOIN decks d ON d.id = sl.deck_id
			WHERE `+strings.Join(where, " AND ")+`
			ORDER BY sl.deck_id, sl.frame_number
			LIMIT ?
		`, args...)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var rank float64
		if err := rows.Scan(&r.ID, &r.DeckID, &r.FrameNumber, &r.Title, &r.Content, &r.SlideType,
			&r.Filename, &r.DeckTitle, &rank); err != nil {
			return nil, err
		}
		// FTS5 rank is negative (lower = better), convert to positive score
		r.Score = -rank
		results = append(results, r)
	}
	return results, rows.Err()
}

// ftsQuery quotes each term so user input such as "E=mc^2" is never read
// as FTS5 query syntax.
func ftsQuery(terms []string) string {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(quoted, " ")
}

// --- helpers ---

// nullJSON stores an empty metadata string as NULL.
func nullJSON(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
