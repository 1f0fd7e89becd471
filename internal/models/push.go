package models

import (
	"sort"
	"time"
)

// TopicArticle is attached to every subscription; locale topics ride along.
const TopicArticle = "article"

// PushSubscription is the remote record kept under fcm/{token}.
type PushSubscription struct {
	Token     string    `json:"token"`
	Topics    []string  `json:"topics"`
	Endpoint  string    `json:"endpoint"`
	P256dh    string    `json:"keys_p256dh"`
	Auth      string    `json:"keys_auth"`
	CreatedAt time.Time `json:"created_at"`
}

// HasTopic reports whether the record is subscribed to topic.
func (p PushSubscription) HasTopic(topic string) bool {
	for _, t := range p.Topics {
		if t == topic {
			return true
		}
	}
	return false
}

// PushToken is what the browser's push service handed out for one device.
type PushToken struct {
	Value    string
	Endpoint string
	P256dh   string
	Auth     string
}

// MergeTopics returns the sorted set union of a and b.
func MergeTopics(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, t := range list {
			if t == "" {
				continue
			}
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}
