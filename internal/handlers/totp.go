package handlers

import (
	"encoding/json"
	"net/http"

	"portfolio-site-go/internal/models"

	"go.uber.org/zap"
)

// Verify2FALoginHandler verifies the TOTP code for a login that already
// passed the password check.
func (h *Handler) Verify2FALoginHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	s := h.cookie(r, sessionName)
	if pending, _ := s.Values[keyPending2FA].(bool); !pending || !h.Admin.TOTPEnabled() {
		writeError(w, http.StatusUnauthorized, "Login required")
		return
	}

	if !models.VerifyTOTPCode(h.Admin.TOTPSecret, req.Code) {
		h.Logger.Info("invalid verification code", zap.String("username", h.Admin.Username))
		writeError(w, http.StatusUnauthorized, "Invalid verification code")
		return
	}

	sess := h.signIn(w, r, s, adminUID(h.Admin.Username), RoleAdmin)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "session": sess})
}
