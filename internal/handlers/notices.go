package handlers

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// NoticeHandler returns the user's current notice, or null.
func (h *Handler) NoticeHandler(w http.ResponseWriter, r *http.Request) {
	uid := h.currentSession(r).UserID
	n, err := h.Notices.Current(r.Context(), uid)
	if err != nil {
		h.Logger.Warn("load notice", zap.String("uid", uid), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load notice")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notice": n})
}

func (h *Handler) DismissNoticeHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.Notices.Dismiss(r.Context(), h.currentSession(r).UserID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to dismiss notice")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SSEHandler streams every notice shown to the user.
func (h *Handler) SSEHandler(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}
	uid := h.currentSession(r).UserID

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	pubsub := h.Notices.Subscribe(r.Context(), uid)
	defer pubsub.Close()
	ch := pubsub.Channel()

	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", "connected", uid)
	flusher.Flush()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: notice\ndata: %s\n\n", msg.Payload)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
