package store

import (
	"context"
	"errors"

	"portfolio-site-go/internal/models"
)

var ErrNotFound = errors.New("not found")

// TokenStore holds push subscription documents: fcm/{token} and the
// per-user index users/{uid}/fcm/{token}.
type TokenStore interface {
	// UpsertToken merges topics into the record by set union and reports
	// whether the token was new.
	UpsertToken(ctx context.Context, uid string, sub models.PushSubscription) (created bool, err error)
	GetToken(ctx context.Context, token string) (models.PushSubscription, error)
	ListUserTokens(ctx context.Context, uid string) ([]string, error)
	// DeleteUserToken removes users/{uid}/fcm/{token} and fcm/{token}.
	DeleteUserToken(ctx context.Context, uid, token string) error
	// DeleteToken removes fcm/{token} and any user index pointing at it.
	DeleteToken(ctx context.Context, token string) error
	// TokensByTopics returns records subscribed to every given topic.
	TokensByTopics(ctx context.Context, topics ...string) ([]models.PushSubscription, error)
}

// MetaStore holds localized post metadata: meta/{slug}/locales/{locale}.
type MetaStore interface {
	// CreateMeta inserts the document if absent. created is false when a
	// document already existed; the stored one is returned.
	CreateMeta(ctx context.Context, m models.MetaPost) (stored models.MetaPost, created bool, err error)
	GetMeta(ctx context.Context, slug, locale string) (models.MetaPost, error)
}

type Store interface {
	TokenStore
	MetaStore
	Close() error
}

var (
	_ Store = (*RedisStore)(nil)
	_ Store = (*PostgresStore)(nil)
)
