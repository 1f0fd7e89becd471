package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"portfolio-site-go/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const (
	sessionName = "portfolio-session"

	keyUserID     = "user_id"
	keyRole       = "role"
	keyPending2FA = "pending_2fa"

	RoleAnonymous = "anonymous"
	RoleAdmin     = "admin"
)

type sessionKey struct{}

// WithSession attaches s to ctx.
func WithSession(ctx context.Context, s models.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext returns the session placed by SessionMiddleware.
func SessionFromContext(ctx context.Context) (models.Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(models.Session)
	return s, ok
}

// ContextIdentity resolves the current user from the request context.
type ContextIdentity struct{}

func (ContextIdentity) CurrentUser(ctx context.Context) models.Session {
	s, _ := SessionFromContext(ctx)
	return s
}

// NewSessionStore returns the cookie store holding sessions and the push flag.
func NewSessionStore(secret string, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

func (h *Handler) cookie(r *http.Request, name string) *sessions.Session {
	s, err := h.Sessions.Get(r, name)
	if err != nil {
		h.Logger.Debug("discarding unreadable cookie", zap.String("name", name), zap.Error(err))
	}
	return s
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request, s *sessions.Session) {
	if err := s.Save(r, w); err != nil {
		h.Logger.Warn("save session", zap.String("name", s.Name()), zap.Error(err))
	}
}

func toSession(s *sessions.Session) models.Session {
	uid, _ := s.Values[keyUserID].(string)
	role, _ := s.Values[keyRole].(string)
	return models.Session{
		UserID:     uid,
		IsLoggedIn: uid != "",
		IsAdmin:    uid != "" && role == RoleAdmin,
	}
}

func (h *Handler) currentSession(r *http.Request) models.Session {
	if s, ok := SessionFromContext(r.Context()); ok {
		return s
	}
	return toSession(h.cookie(r, sessionName))
}

// SessionMiddleware reads the session cookie into the request context.
func (h *Handler) SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := toSession(h.cookie(r, sessionName))
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
	})
}

// AuthMiddleware checks if user is signed in, anonymously or not.
func (h *Handler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.currentSession(r).Identified() {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next(w, r)
	}
}

// AdminMiddleware checks if user is the site owner.
func (h *Handler) AdminMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.currentSession(r).IsAdmin {
			writeError(w, http.StatusForbidden, "Forbidden")
			return
		}
		next(w, r)
	}
}

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request, s *sessions.Session, uid, role string) models.Session {
	delete(s.Values, keyPending2FA)
	s.Values[keyUserID] = uid
	s.Values[keyRole] = role
	h.save(w, r, s)
	return toSession(s)
}

// AnonymousSignInHandler issues a fresh anonymous identity, or returns the
// current one.
func (h *Handler) AnonymousSignInHandler(w http.ResponseWriter, r *http.Request) {
	s := h.cookie(r, sessionName)
	if cur := toSession(s); cur.Identified() {
		writeJSON(w, http.StatusOK, cur)
		return
	}
	sess := h.signIn(w, r, s, uuid.NewString(), RoleAnonymous)
	h.Logger.Info("anonymous sign-in", zap.String("uid", sess.UserID))
	writeJSON(w, http.StatusOK, sess)
}

// LoginHandler handles admin login. A configured TOTP secret makes it a
// two-step login finished by Verify2FALoginHandler.
func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	if req.Username != h.Admin.Username || !h.Admin.CheckPassword(req.Password) {
		h.Logger.Info("admin login rejected", zap.String("username", req.Username))
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	s := h.cookie(r, sessionName)
	if h.Admin.TOTPEnabled() {
		s.Values[keyPending2FA] = true
		h.save(w, r, s)
		writeJSON(w, http.StatusOK, map[string]any{"requires_2fa": true})
		return
	}

	sess := h.signIn(w, r, s, adminUID(h.Admin.Username), RoleAdmin)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "session": sess})
}

// LogoutHandler destroys the session cookie. The push flag cookie is per
// browser and survives sign-out.
func (h *Handler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	s := h.cookie(r, sessionName)
	s.Values = make(map[any]any)
	s.Options.MaxAge = -1
	h.save(w, r, s)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) SessionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.currentSession(r))
}

func adminUID(username string) string {
	return "admin:" + username
}
