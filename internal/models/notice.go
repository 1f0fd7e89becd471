package models

import "time"

type NoticeType string

const (
	NoticeSuccess NoticeType = "success"
	NoticeAlert   NoticeType = "alert"
)

// Notice is the single message currently shown to a user.
type Notice struct {
	Type      NoticeType `json:"type"`
	Message   string     `json:"message"`
	CreatedAt time.Time  `json:"created_at"`
}

func Success(msg string) *Notice {
	return &Notice{Type: NoticeSuccess, Message: msg, CreatedAt: time.Now().UTC()}
}

func Alert(msg string) *Notice {
	return &Notice{Type: NoticeAlert, Message: msg, CreatedAt: time.Now().UTC()}
}
