package models

// Session is the identity attached to a browser.
type Session struct {
	UserID     string `json:"uid,omitempty"`
	IsLoggedIn bool   `json:"is_logged_in"`
	IsAdmin    bool   `json:"is_admin,omitempty"`
}

// Identified reports whether a user id is present.
func (s Session) Identified() bool {
	return s.IsLoggedIn && s.UserID != ""
}
