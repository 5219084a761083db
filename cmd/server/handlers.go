package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/brunobiangulo/slidecast"
	"github.com/brunobiangulo/slidecast/export"
)

const maxUploadBytes = 100 << 20

type handler struct {
	engine slidecast.Engine
}

func newHandler(e slidecast.Engine) *handler {
	return &handler{engine: e}
}

// pathRequest is the JSON body accepted by /parse, /ingest and /update.
type pathRequest struct {
	Path     string            `json:"path"`
	Force    bool              `json:"force,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// withSource resolves the request to a local file and calls fn with it.
// A multipart "file" field is saved under a private temp directory that is
// removed afterwards; otherwise the JSON body must name an existing file.
func withSource(w http.ResponseWriter, r *http.Request, fn func(path string, req pathRequest)) {
	if err := r.ParseMultipartForm(maxUploadBytes); err == nil {
		file, header, err := r.FormFile("file")
		if err == nil {
			defer file.Close()

			tmpDir, err := os.MkdirTemp("", "slidecast-upload-")
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to process file")
				slog.Error("creating temp dir", "error", err)
				return
			}
			defer os.RemoveAll(tmpDir)

			// Sanitise filename to prevent path traversal.
			tmpPath := filepath.Join(tmpDir, filepath.Base(header.Filename))
			dst, err := os.Create(tmpPath)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to process file")
				slog.Error("creating temp file", "error", err)
				return
			}
			if _, err := io.Copy(dst, file); err != nil {
				dst.Close()
				writeError(w, http.StatusInternalServerError, "failed to save file")
				slog.Error("saving uploaded file", "error", err)
				return
			}
			dst.Close()

			fn(tmpPath, pathRequest{Force: r.FormValue("force") == "true"})
			return
		}
	}

	var req pathRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: expected multipart file or JSON with 'path'")
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	// Validate that path is a real file (prevents directory traversal probing).
	absPath, err := filepath.Abs(req.Path)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(absPath)
	if err != nil || info.IsDir() {
		writeError(w, http.StatusBadRequest, "path must be an existing file")
		return
	}
	fn(absPath, req)
}

// POST /parse
// Parses without storing and returns the deck with its slides.
func (h *handler) handleParse(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	withSource(w, r, func(path string, _ pathRequest) {
		deck, err := h.engine.Parse(ctx, path)
		if err != nil {
			writeEngineError(w, "parse failed", err)
			slog.Error("parse error", "path", path, "error", err)
			return
		}
		writeJSON(w, http.StatusOK, deck)
	})
}

// POST /ingest
func (h *handler) handleIngest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	withSource(w, r, func(path string, req pathRequest) {
		var opts []slidecast.IngestOption
		if req.Force {
			opts = append(opts, slidecast.WithForceReparse())
		}
		if req.Metadata != nil {
			opts = append(opts, slidecast.WithMetadata(req.Metadata))
		}

		deckID, err := h.engine.Ingest(ctx, path, opts...)
		if err != nil {
			writeEngineError(w, "ingestion failed", err)
			slog.Error("ingest error", "path", path, "error", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"deck_id":  deckID,
			"filename": filepath.Base(path),
		})
	})
}

// POST /update
func (h *handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	var req pathRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	changed, err := h.engine.Update(ctx, req.Path)
	if err != nil {
		writeEngineError(w, "update failed", err)
		slog.Error("update error", "path", req.Path, "error", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"path":    req.Path,
		"changed": changed,
	})
}

// POST /update-all
func (h *handler) handleUpdateAll(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Minute)
	defer cancel()

	results, err := h.engine.UpdateAll(ctx)
	if err != nil {
		writeEngineError(w, "update-all failed", err)
		slog.Error("update-all error", "error", err)
		return
	}

	type result struct {
		slidecast.UpdateResult
		Error string `json:"error,omitempty"`
	}
	out := make([]result, len(results))
	for i, res := range results {
		out[i] = result{UpdateResult: res}
		if res.Error != nil {
			out[i].Error = res.Error.Error()
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": out})
}

// GET /decks
func (h *handler) handleListDecks(w http.ResponseWriter, r *http.Request) {
	decks, err := h.engine.ListDecks(r.Context())
	if err != nil {
		writeEngineError(w, "failed to list decks", err)
		slog.Error("list decks error", "error", err)
		return
	}
	if decks == nil {
		decks = []slidecast.Deck{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"decks": decks})
}

// GET /decks/{id}
func (h *handler) handleGetDeck(w http.ResponseWriter, r *http.Request) {
	id, ok := deckID(w, r)
	if !ok {
		return
	}
	deck, err := h.engine.GetDeck(r.Context(), id)
	if err != nil {
		writeEngineError(w, "failed to load deck", err)
		return
	}
	writeJSON(w, http.StatusOK, deck)
}

// GET /decks/{id}/export?format=json|markdown|xlsx
func (h *handler) handleExport(w http.ResponseWriter, r *http.Request) {
	id, ok := deckID(w, r)
	if !ok {
		return
	}
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Buffer through a temp file so a failed export can still send an error.
	tmp, err := os.CreateTemp("", "slidecast-export-*")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if err := h.engine.Export(r.Context(), id, format, tmp); err != nil {
		writeEngineError(w, "export failed", err)
		slog.Error("export error", "deck_id", id, "format", format, "error", err)
		return
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition",
		`attachment; filename="deck-`+strconv.FormatInt(id, 10)+"."+format.Extension()+`"`)
	w.WriteHeader(http.StatusOK)
	io.Copy(w, tmp)
}

// DELETE /decks/{id}
func (h *handler) handleDeleteDeck(w http.ResponseWriter, r *http.Request) {
	id, ok := deckID(w, r)
	if !ok {
		return
	}
	if err := h.engine.Delete(r.Context(), id); err != nil {
		writeEngineError(w, "delete failed", err)
		slog.Error("delete error", "deck_id", id, "error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// GET /search?q=...&limit=N
func (h *handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	hits, err := h.engine.Search(r.Context(), q, limit)
	if err != nil {
		writeEngineError(w, "search failed", err)
		slog.Error("search error", "q", q, "error", err)
		return
	}
	if hits == nil {
		hits = []slidecast.SearchHit{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": hits})
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func deckID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid deck id")
		return 0, false
	}
	return id, true
}

// statusFor maps engine sentinel errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, slidecast.ErrDeckNotFound):
		return http.StatusNotFound
	case errors.Is(err, slidecast.ErrUnsupportedFormat),
		errors.Is(err, slidecast.ErrUnsupportedExport):
		return http.StatusBadRequest
	case errors.Is(err, slidecast.ErrSourceUnreadable),
		errors.Is(err, slidecast.ErrParsingFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, slidecast.ErrStoreClosed):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeEngineError(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status != http.StatusInternalServerError {
		msg = msg + ": " + err.Error()
	}
	writeError(w, status, msg)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
