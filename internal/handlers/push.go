package handlers

import (
	"encoding/json"
	"net/http"

	"portfolio-site-go/internal/handles"
	"portfolio-site-go/internal/models"
	"portfolio-site-go/internal/push"

	"go.uber.org/zap"
)

const defaultLocale = "en"

type outcomeResponse struct {
	push.Outcome
	Kind        push.Kind `json:"kind,omitempty"`
	RevokeToken bool      `json:"revokeToken,omitempty"`
}

func newOutcomeResponse(out push.Outcome) outcomeResponse {
	resp := outcomeResponse{Outcome: out}
	if out.Err != nil {
		resp.Kind = push.KindOf(out.Err)
	}
	return resp
}

// handleSet waits for the shared handles. A nil set means the controller
// will treat the call as a no-op.
func (h *Handler) handleSet(r *http.Request) *handles.Set {
	set, err := h.Handles.Get(r.Context())
	if err != nil {
		h.Logger.Warn("handles unavailable", zap.Error(err))
		return nil
	}
	return set
}

// GetVAPIDKeyHandler returns the public VAPID key
func (h *Handler) GetVAPIDKeyHandler(w http.ResponseWriter, r *http.Request) {
	set := h.handleSet(r)
	if set == nil || set.Messaging == nil {
		writeError(w, http.StatusServiceUnavailable, "Web push unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"publicKey": set.Messaging.PublicKey()})
}

// SubscribePushHandler registers the browser's push subscription.
func (h *Handler) SubscribePushHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Locale string `json:"locale"`
		push.Device
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if req.Locale == "" {
		req.Locale = defaultLocale
	}

	flag := h.flag(r)
	out := h.Push.Subscribe(r.Context(), h.handleSet(r), &req.Device, h.currentSession(r), flag, req.Locale)
	h.save(w, r, flag.s)
	writeJSON(w, http.StatusOK, newOutcomeResponse(out))
}

// UnsubscribePushHandler removes every subscription of the current user and
// tells the page to drop the browser's own subscription.
func (h *Handler) UnsubscribePushHandler(w http.ResponseWriter, r *http.Request) {
	device := &push.Device{}
	flag := h.flag(r)
	out := h.Push.Unsubscribe(r.Context(), h.handleSet(r), device, h.currentSession(r), flag)
	h.save(w, r, flag.s)

	resp := newOutcomeResponse(out)
	resp.RevokeToken = device.Revoked()
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) PushStateHandler(w http.ResponseWriter, r *http.Request) {
	sess := h.currentSession(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"state":       push.StateOf(h.flag(r)),
		"initialized": h.Handles.Initialized(),
		"ready":       h.Handles.Ready(sess),
	})
}

// TestPushHandler sends a background notification to the caller's own
// subscriptions.
func (h *Handler) TestPushHandler(w http.ResponseWriter, r *http.Request) {
	sess := h.currentSession(r)
	n, err := h.Broadcaster.SendTest(r.Context(), sess.UserID, push.Payload{
		Title: "Test notification",
		Body:  "Web push is working",
		URL:   "/",
	})
	if err != nil {
		h.Logger.Warn("test push failed", zap.String("uid", sess.UserID), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "Failed to send test notification")
		return
	}
	if n == 0 {
		h.Notices.Show(r.Context(), sess.UserID, models.Alert("No subscription found for this browser"))
	}
	writeJSON(w, http.StatusOK, map[string]int{"sent": n})
}
