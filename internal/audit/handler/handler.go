// Package handler exposes read access to the audit trail.
package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"legado/internal/transport/http/shared"
	dErrors "legado/pkg/domain-errors"
	"legado/pkg/platform/audit"
)

const defaultRecentLimit = 50

type Handler struct {
	logger *slog.Logger
	store  audit.Store
}

func New(store audit.Store, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, store: store}
}

// Register registers the audit read routes. Entity keys are two-part
// ("identity/V101", "asset/7"), so the entity route takes both segments.
func (h *Handler) Register(r chi.Router) {
	r.Get("/audit/entries", h.handleListRecent)
	r.Get("/audit/entries/{entityType}/{entityRef}", h.handleListByEntity)
}

type entryResponse struct {
	Seq          uint64 `json:"seq"`
	Timestamp    string `json:"timestamp"`
	Operation    string `json:"operation"`
	Category     string `json:"category"`
	Actor        string `json:"actor"`
	EntityKey    string `json:"entity_key"`
	BeforeDigest string `json:"before_digest,omitempty"`
	AfterDigest  string `json:"after_digest"`
}

func (h *Handler) handleListRecent(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer"))
			return
		}
		limit = n
	}

	entries, err := h.store.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list recent audit entries failed", "error", err.Error())
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit entries"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, toEntryResponses(entries))
}

func (h *Handler) handleListByEntity(w http.ResponseWriter, r *http.Request) {
	entityKey := chi.URLParam(r, "entityType") + "/" + chi.URLParam(r, "entityRef")

	entries, err := h.store.ListByEntity(r.Context(), entityKey)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list audit entries by entity failed",
			"entity_key", entityKey,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit entries"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, toEntryResponses(entries))
}

func toEntryResponses(entries []audit.Entry) []entryResponse {
	out := make([]entryResponse, len(entries))
	for i, entry := range entries {
		out[i] = entryResponse{
			Seq:          entry.Seq,
			Timestamp:    entry.Timestamp.UTC().Format(time.RFC3339),
			Operation:    string(entry.Operation),
			Category:     string(entry.Operation.Category()),
			Actor:        entry.Actor,
			EntityKey:    entry.EntityKey,
			BeforeDigest: entry.BeforeDigest,
			AfterDigest:  entry.AfterDigest,
		}
	}
	return out
}
