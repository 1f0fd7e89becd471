package handlers

import (
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	flagSessionName   = "portfolio-push"
	keyPushSubscribed = "push_subscribed"
)

// sessionFlag keeps the push subscription bit in its own cookie so it
// belongs to the browser rather than the signed-in user.
type sessionFlag struct {
	s *sessions.Session
}

func (h *Handler) flag(r *http.Request) sessionFlag {
	return sessionFlag{s: h.cookie(r, flagSessionName)}
}

func (f sessionFlag) Subscribed() (bool, bool) {
	v, ok := f.s.Values[keyPushSubscribed].(bool)
	return v, ok
}

func (f sessionFlag) SetSubscribed(v bool) error {
	f.s.Values[keyPushSubscribed] = v
	return nil
}
