package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/brunobiangulo/slidecast"
	"github.com/brunobiangulo/slidecast/export"
	"github.com/brunobiangulo/slidecast/parser"
	"github.com/brunobiangulo/slidecast/store"
)

// fakeEngine serves one in-memory deck with ID 1.
type fakeEngine struct {
	parsed   []string
	ingested []string
	deleted  []int64
	panicOn  string
}

var fakeDeck = slidecast.Deck{
	ID:     1,
	Title:  "Cálculo I",
	Method: "latex",
	Slides: []parser.Slide{
		{FrameNumber: 1, Title: parser.TitlePageTitle, Content: "Título da Apresentação: Cálculo I", SlideType: parser.SlideFrame},
		{FrameNumber: 2, Title: "Limits", Content: "FORMULA: x", SlideType: parser.SlideFrame},
	},
}

func (f *fakeEngine) Parse(_ context.Context, path string) (*slidecast.Deck, error) {
	if f.panicOn == "parse" {
		panic("boom")
	}
	if !strings.HasSuffix(path, ".tex") {
		return nil, fmt.Errorf("%w: %s", slidecast.ErrUnsupportedFormat, filepath.Ext(path))
	}
	f.parsed = append(f.parsed, filepath.Base(path))
	d := fakeDeck
	d.ID = 0
	return &d, nil
}

func (f *fakeEngine) Ingest(_ context.Context, path string, _ ...slidecast.IngestOption) (int64, error) {
	f.ingested = append(f.ingested, path)
	return 1, nil
}

func (f *fakeEngine) IngestAll(ctx context.Context, paths []string, _ ...slidecast.IngestOption) []slidecast.IngestResult {
	return nil
}

func (f *fakeEngine) Update(_ context.Context, path string) (bool, error) {
	return false, fmt.Errorf("%w: %s", slidecast.ErrDeckNotFound, path)
}

func (f *fakeEngine) UpdateAll(context.Context) ([]slidecast.UpdateResult, error) {
	return []slidecast.UpdateResult{{DeckID: 1, Path: "/a.tex", Error: slidecast.ErrSourceUnreadable}}, nil
}

func (f *fakeEngine) GetDeck(_ context.Context, id int64) (*slidecast.Deck, error) {
	if id != 1 {
		return nil, fmt.Errorf("%w: %d", slidecast.ErrDeckNotFound, id)
	}
	d := fakeDeck
	return &d, nil
}

func (f *fakeEngine) ListDecks(context.Context) ([]slidecast.Deck, error) {
	return []slidecast.Deck{fakeDeck}, nil
}

func (f *fakeEngine) Search(_ context.Context, q string, _ int) ([]slidecast.SearchHit, error) {
	if q == "limits" {
		return []slidecast.SearchHit{{DeckID: 1, FrameNumber: 2, Title: "Limits"}}, nil
	}
	return nil, nil
}

func (f *fakeEngine) Export(ctx context.Context, id int64, format export.Format, w io.Writer) error {
	d, err := f.GetDeck(ctx, id)
	if err != nil {
		return err
	}
	return export.Write(w, format, export.Deck{Title: d.Title, Slides: d.Slides})
}

func (f *fakeEngine) Delete(_ context.Context, id int64) error {
	if id != 1 {
		return fmt.Errorf("%w: %d", slidecast.ErrDeckNotFound, id)
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeEngine) Store() *store.Store { return nil }
func (f *fakeEngine) Close() error        { return nil }

func do(t *testing.T, h http.Handler, method, target string, body io.Reader, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndAuth(t *testing.T) {
	srv := newServer(&fakeEngine{}, "secret", "")

	if rec := do(t, srv, "GET", "/health", nil, nil); rec.Code != http.StatusOK {
		t.Errorf("health status = %d", rec.Code)
	}
	if rec := do(t, srv, "GET", "/decks", nil, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("missing key status = %d", rec.Code)
	}
	bad := http.Header{"Authorization": {"Bearer wrong"}}
	if rec := do(t, srv, "GET", "/decks", nil, bad); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong key status = %d", rec.Code)
	}
	good := http.Header{"Authorization": {"Bearer secret"}}
	if rec := do(t, srv, "GET", "/decks", nil, good); rec.Code != http.StatusOK {
		t.Errorf("good key status = %d", rec.Code)
	}
}

func TestParseByPath(t *testing.T) {
	eng := &fakeEngine{}
	srv := newServer(eng, "", "")

	path := filepath.Join(t.TempDir(), "talk.tex")
	if err := os.WriteFile(path, []byte(`\begin{frame}{A}b\end{frame}`), 0o644); err != nil {
		t.Fatal(err)
	}

	body, _ := json.Marshal(map[string]string{"path": path})
	rec := do(t, srv, "POST", "/parse", bytes.NewReader(body), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body)
	}
	var deck slidecast.Deck
	if err := json.Unmarshal(rec.Body.Bytes(), &deck); err != nil {
		t.Fatal(err)
	}
	if len(deck.Slides) != 2 || deck.Slides[1].Title != "Limits" {
		t.Errorf("deck = %+v", deck)
	}

	missing, _ := json.Marshal(map[string]string{"path": filepath.Join(t.TempDir(), "nope.tex")})
	if rec := do(t, srv, "POST", "/parse", bytes.NewReader(missing), nil); rec.Code != http.StatusBadRequest {
		t.Errorf("missing file status = %d", rec.Code)
	}
}

func TestParseUpload(t *testing.T) {
	eng := &fakeEngine{}
	srv := newServer(eng, "", "")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "../../lecture.tex")
	if err != nil {
		t.Fatal(err)
	}
	io.WriteString(fw, `\begin{frame}{A}b\end{frame}`)
	mw.Close()

	rec := do(t, srv, "POST", "/parse", &buf, http.Header{"Content-Type": {mw.FormDataContentType()}})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body)
	}
	if len(eng.parsed) != 1 || eng.parsed[0] != "lecture.tex" {
		t.Errorf("parsed = %v", eng.parsed)
	}
}

func TestParseUnsupportedFormat(t *testing.T) {
	srv := newServer(&fakeEngine{}, "", "")
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	body, _ := json.Marshal(map[string]string{"path": path})
	if rec := do(t, srv, "POST", "/parse", bytes.NewReader(body), nil); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestDeckRoutes(t *testing.T) {
	eng := &fakeEngine{}
	srv := newServer(eng, "", "")

	if rec := do(t, srv, "GET", "/decks/1", nil, nil); rec.Code != http.StatusOK {
		t.Errorf("get status = %d", rec.Code)
	}
	if rec := do(t, srv, "GET", "/decks/7", nil, nil); rec.Code != http.StatusNotFound {
		t.Errorf("missing deck status = %d", rec.Code)
	}
	if rec := do(t, srv, "GET", "/decks/abc", nil, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d", rec.Code)
	}
	if rec := do(t, srv, "DELETE", "/decks/1", nil, nil); rec.Code != http.StatusOK || len(eng.deleted) != 1 {
		t.Errorf("delete status = %d, deleted = %v", rec.Code, eng.deleted)
	}
}

func TestExportRoute(t *testing.T) {
	srv := newServer(&fakeEngine{}, "", "")

	rec := do(t, srv, "GET", "/decks/1/export?format=md", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/markdown") {
		t.Errorf("content type = %q", ct)
	}
	if !strings.HasPrefix(rec.Body.String(), "# Cálculo I\n") {
		t.Errorf("body = %q", rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "deck-1.md") {
		t.Errorf("disposition = %q", cd)
	}

	if rec := do(t, srv, "GET", "/decks/1/export?format=odp", nil, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown format status = %d", rec.Code)
	}
	if rec := do(t, srv, "GET", "/decks/9/export", nil, nil); rec.Code != http.StatusNotFound {
		t.Errorf("missing deck status = %d", rec.Code)
	}
}

func TestSearchRoute(t *testing.T) {
	srv := newServer(&fakeEngine{}, "", "")

	if rec := do(t, srv, "GET", "/search", nil, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("missing q status = %d", rec.Code)
	}

	rec := do(t, srv, "GET", "/search?q=limits", nil, nil)
	var out struct {
		Results []slidecast.SearchHit `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Results) != 1 || out.Results[0].Title != "Limits" {
		t.Errorf("results = %+v", out.Results)
	}

	rec = do(t, srv, "GET", "/search?q=none", nil, nil)
	if !strings.Contains(rec.Body.String(), `"results":[]`) {
		t.Errorf("empty search body = %s", rec.Body)
	}
}

func TestUpdateRoutes(t *testing.T) {
	srv := newServer(&fakeEngine{}, "", "")

	body := strings.NewReader(`{"path": "/unknown.tex"}`)
	if rec := do(t, srv, "POST", "/update", body, nil); rec.Code != http.StatusNotFound {
		t.Errorf("update status = %d", rec.Code)
	}

	rec := do(t, srv, "POST", "/update-all", nil, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "source unreadable") {
		t.Errorf("update-all = %d %s", rec.Code, rec.Body)
	}
}

func TestRecoveryAndCORS(t *testing.T) {
	srv := newServer(&fakeEngine{panicOn: "parse"}, "", "https://a.example, https://b.example")

	path := filepath.Join(t.TempDir(), "talk.tex")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	body, _ := json.Marshal(map[string]string{"path": path})
	if rec := do(t, srv, "POST", "/parse", bytes.NewReader(body), nil); rec.Code != http.StatusInternalServerError {
		t.Errorf("panic status = %d", rec.Code)
	}

	rec := do(t, srv, "OPTIONS", "/decks", nil, http.Header{"Origin": {"https://b.example"}})
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://b.example" {
		t.Errorf("allow origin = %q", got)
	}

	rec = do(t, srv, "OPTIONS", "/decks", nil, http.Header{"Origin": {"https://evil.example"}})
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unlisted origin allowed: %q", got)
	}
}
