package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"portfolio-site-go/internal/events"
	"portfolio-site-go/internal/models"

	"go.uber.org/zap"
)

// CreateMetaHandler creates meta/{slug}/locales/{locale} once. Only the
// first write publishes events.MetaCreated; later writes return the stored
// document untouched.
func (h *Handler) CreateMetaHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL         string `json:"url"`
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	set := h.handleSet(r)
	if set == nil || set.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "Store unavailable")
		return
	}

	meta := models.MetaPost{
		Slug:        r.PathValue("slug"),
		Locale:      r.PathValue("locale"),
		URL:         req.URL,
		Title:       req.Title,
		Description: req.Description,
		CreatedAt:   time.Now().UTC(),
	}
	stored, created, err := set.Store.CreateMeta(r.Context(), meta)
	if err != nil {
		h.Logger.Error("create meta", zap.String("slug", meta.Slug), zap.String("locale", meta.Locale), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to create meta")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		if err := h.Publisher.Publish(r.Context(), events.MetaCreated, stored); err != nil {
			h.Logger.Error("publish meta created", zap.String("slug", stored.Slug), zap.Error(err))
		}
	}
	writeJSON(w, status, map[string]any{"created": created, "meta": stored})
}
