package handlers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
)

const signatureHeader = "X-Portfolio-Signature"

// validSignature checks signatureHeader against HMAC-SHA256(body, secret).
// An empty secret never validates.
func validSignature(r *http.Request, secret string) bool {
	if secret == "" {
		return false
	}
	sig := r.Header.Get(signatureHeader)
	if sig == "" {
		return false
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return false
	}
	r.Body = io.NopCloser(bytes.NewBuffer(body))

	return hmac.Equal([]byte(sig), []byte(Sign(body, secret)))
}

// Sign returns the hex HMAC-SHA256 of body.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// PublisherMiddleware admits the admin session or a request signed with
// the webhook secret.
func (h *Handler) PublisherMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if validSignature(r, h.WebhookSecret) {
			next(w, r)
			return
		}
		h.AdminMiddleware(next)(w, r)
	}
}
