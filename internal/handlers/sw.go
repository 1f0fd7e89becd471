package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"portfolio-site-go/internal/events"
)

const maxMessageBytes = 64 << 10

// replyPort collects what handlers post back to the service worker.
type replyPort struct {
	mu      sync.Mutex
	replies []any
}

func (p *replyPort) PostMessage(v any) error {
	p.mu.Lock()
	p.replies = append(p.replies, v)
	p.mu.Unlock()
	return nil
}

// ServiceWorkerMessageHandler relays a message from the service worker to
// the event registry and answers with the first reply, if any.
func (h *Handler) ServiceWorkerMessageHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxMessageBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if len(body) == 0 {
		body = []byte("null")
	}
	if !json.Valid(body) {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	port := &replyPort{}
	h.Events.Emit(r.Context(), events.Event{Name: events.Message, Payload: body, Source: port})

	port.mu.Lock()
	defer port.mu.Unlock()
	if len(port.replies) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": port.replies[0]})
}
