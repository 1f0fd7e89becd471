package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"portfolio-site-go/internal/events"
	"portfolio-site-go/internal/handles"
	"portfolio-site-go/internal/models"
	"portfolio-site-go/internal/notice"
	"portfolio-site-go/internal/push"

	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

// Publisher fans an event out to every running process.
type Publisher interface {
	Publish(ctx context.Context, name string, payload any) error
}

type Handler struct {
	Handles     *handles.Provider
	Push        *push.Controller
	Broadcaster *push.Broadcaster
	Notices     *notice.Board
	Events      *events.Registry
	Publisher   Publisher
	Sessions    sessions.Store
	Admin       models.AdminAccount
	// WebhookSecret lets the site build publish metadata without a session.
	WebhookSecret string
	Logger        *zap.Logger
}

func NewHandler(h Handler) *Handler {
	if h.Logger == nil {
		h.Logger = zap.NewNop()
	}
	h.Logger = h.Logger.Named("http")
	return &h
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Routes registers every endpoint on a new mux wrapped in the session
// middleware.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/anonymous", h.AnonymousSignInHandler)
	mux.HandleFunc("POST /api/auth/login", h.LoginHandler)
	mux.HandleFunc("POST /api/auth/2fa", h.Verify2FALoginHandler)
	mux.HandleFunc("POST /api/auth/logout", h.LogoutHandler)
	mux.HandleFunc("GET /api/auth/session", h.SessionHandler)

	mux.HandleFunc("GET /api/push/vapid", h.GetVAPIDKeyHandler)
	mux.HandleFunc("GET /api/push/state", h.PushStateHandler)
	mux.HandleFunc("POST /api/push/subscribe", h.AuthMiddleware(h.SubscribePushHandler))
	mux.HandleFunc("POST /api/push/unsubscribe", h.AuthMiddleware(h.UnsubscribePushHandler))
	mux.HandleFunc("POST /api/push/test", h.AuthMiddleware(h.TestPushHandler))

	mux.HandleFunc("GET /api/notices", h.AuthMiddleware(h.NoticeHandler))
	mux.HandleFunc("DELETE /api/notices", h.AuthMiddleware(h.DismissNoticeHandler))
	mux.HandleFunc("GET /events", h.AuthMiddleware(h.SSEHandler))

	mux.HandleFunc("POST /sw/message", h.ServiceWorkerMessageHandler)

	mux.HandleFunc("POST /api/admin/meta/{slug}/locales/{locale}", h.PublisherMiddleware(h.CreateMetaHandler))

	return h.SessionMiddleware(mux)
}
