package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/kiranshivaraju/a1gen/internal/api/response"
	"github.com/kiranshivaraju/a1gen/pkg/models"
	"github.com/rs/zerolog"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// HistoryLister defines the interface the history handler depends on.
type HistoryLister interface {
	List(ctx context.Context, userID string) ([]models.HistoryEntry, error)
}

// NewHistoryHandler returns an http.HandlerFunc for GET /api/v1/history/{userID}.
// Entries are newest first; page and limit query parameters paginate.
func NewHistoryHandler(store HistoryLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")
		if userID == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "userID is required", nil)
			return
		}

		page := queryInt(r, "page", 1)
		limit := queryInt(r, "limit", defaultHistoryLimit)
		if page < 1 || limit < 1 || limit > maxHistoryLimit {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"page must be >= 1 and limit between 1 and 100", nil)
			return
		}

		entries, err := store.List(r.Context(), userID)
		if err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Str("user_id", userID).Msg("history lookup failed")
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load history", nil)
			return
		}

		if entries == nil {
			entries = []models.HistoryEntry{}
		}
		total := len(entries)
		start := total
		// Compared before multiplying so huge pages cannot overflow.
		if page-1 <= total/limit {
			start = min((page-1)*limit, total)
		}
		end := min(start+limit, total)

		response.Collection(w, entries[start:end], response.PaginationMeta{
			Page:    page,
			Limit:   limit,
			Total:   total,
			HasNext: end < total,
		})
	}
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return -1
	}
	return i
}
