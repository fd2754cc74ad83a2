package gateway

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/flemzord/sclaw-console/internal/confdoc"
)

const defaultHistoryPage = 20

// historyItem is a history entry without its document.
type historyItem struct {
	ID        int64     `json:"id"`
	Op        string    `json:"op"`
	Hash      string    `json:"hash,omitempty"`
	Path      string    `json:"path,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type historyDetail struct {
	historyItem
	Config confdoc.Document `json:"config"`
}

func (s *Server) handleListHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultHistoryPage
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				writeError(w, errBadRequest)
				return
			}
			limit = n
		}
		entries, err := s.opts.History.List(r.Context(), limit)
		if err != nil {
			writeError(w, err)
			return
		}
		items := make([]historyItem, 0, len(entries))
		for _, e := range entries {
			items = append(items, historyItem{ID: e.ID, Op: e.Op, Hash: e.Hash, Path: e.Path, CreatedAt: e.CreatedAt})
		}
		writeJSON(w, http.StatusOK, items)
	}
}

// handleGetHistory returns one entry with its document redacted.
func (s *Server) handleGetHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			writeError(w, errBadRequest)
			return
		}
		e, err := s.opts.History.Get(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		doc, err := e.Document()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, historyDetail{
			historyItem: historyItem{ID: e.ID, Op: e.Op, Hash: e.Hash, Path: e.Path, CreatedAt: e.CreatedAt},
			Config:      s.opts.Redactor.RedactDocument(doc),
		})
	}
}
