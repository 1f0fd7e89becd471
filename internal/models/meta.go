package models

import "time"

// MetaPost is the localized metadata document at meta/{slug}/locales/{locale}.
type MetaPost struct {
	Slug        string    `json:"slug"`
	Locale      string    `json:"locale"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Complete reports whether every field the cross-post needs is set.
func (m MetaPost) Complete() bool {
	return m.URL != "" && m.Title != "" && m.Description != ""
}
