package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"portfolio-site-go/internal/models"

	"github.com/redis/go-redis/v9"
)

// Key layout:
//
//	fcm:{token}              hash  token, uid, endpoint, p256dh, auth, created_at
//	fcm:{token}:topics       set   topics
//	topic:{topic}            set   tokens
//	users:{uid}:fcm          set   tokens
//	meta:{slug}:locales:{l}  string JSON MetaPost
func tokenKey(token string) string  { return "fcm:" + token }
func topicsKey(token string) string { return "fcm:" + token + ":topics" }
func topicKey(topic string) string  { return "topic:" + topic }
func userKey(uid string) string     { return "users:" + uid + ":fcm" }
func metaKey(slug, locale string) string {
	return fmt.Sprintf("meta:%s:locales:%s", slug, locale)
}

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

const upsertRetries = 5

// UpsertToken merges sub into the stored record. A token registered under a
// new uid leaves the previous owner's set; an empty uid keeps the owner.
func (s *RedisStore) UpsertToken(ctx context.Context, uid string, sub models.PushSubscription) (bool, error) {
	key := tokenKey(sub.Token)
	now := time.Now().UTC().Format(time.RFC3339Nano)

	var created *redis.BoolCmd
	txf := func(tx *redis.Tx) error {
		prev, err := tx.HGet(ctx, key, "uid").Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			created = pipe.HSetNX(ctx, key, "created_at", now)
			fields := map[string]any{
				"token":    sub.Token,
				"endpoint": sub.Endpoint,
				"p256dh":   sub.P256dh,
				"auth":     sub.Auth,
			}
			if uid != "" {
				fields["uid"] = uid
			}
			pipe.HSet(ctx, key, fields)
			if len(sub.Topics) > 0 {
				members := make([]any, len(sub.Topics))
				for i, t := range sub.Topics {
					members[i] = t
					pipe.SAdd(ctx, topicKey(t), sub.Token)
				}
				pipe.SAdd(ctx, topicsKey(sub.Token), members...)
			}
			if uid != "" {
				if prev != "" && prev != uid {
					pipe.SRem(ctx, userKey(prev), sub.Token)
				}
				pipe.SAdd(ctx, userKey(uid), sub.Token)
			}
			return nil
		})
		return err
	}

	for i := 0; i < upsertRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("upsert token: %w", err)
		}
		return created.Val(), nil
	}
	return false, fmt.Errorf("upsert token: %w", redis.TxFailedErr)
}

func (s *RedisStore) GetToken(ctx context.Context, token string) (models.PushSubscription, error) {
	fields, err := s.client.HGetAll(ctx, tokenKey(token)).Result()
	if err != nil {
		return models.PushSubscription{}, err
	}
	if len(fields) == 0 {
		return models.PushSubscription{}, ErrNotFound
	}

	topics, err := s.client.SMembers(ctx, topicsKey(token)).Result()
	if err != nil {
		return models.PushSubscription{}, err
	}
	sort.Strings(topics)

	sub := models.PushSubscription{
		Token:    token,
		Topics:   topics,
		Endpoint: fields["endpoint"],
		P256dh:   fields["p256dh"],
		Auth:     fields["auth"],
	}
	if ts, err := time.Parse(time.RFC3339Nano, fields["created_at"]); err == nil {
		sub.CreatedAt = ts
	}
	return sub, nil
}

func (s *RedisStore) ListUserTokens(ctx context.Context, uid string) ([]string, error) {
	tokens, err := s.client.SMembers(ctx, userKey(uid)).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(tokens)
	return tokens, nil
}

func (s *RedisStore) DeleteUserToken(ctx context.Context, uid, token string) error {
	topics, err := s.client.SMembers(ctx, topicsKey(token)).Result()
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SRem(ctx, userKey(uid), token)
		for _, t := range topics {
			pipe.SRem(ctx, topicKey(t), token)
		}
		pipe.Del(ctx, tokenKey(token), topicsKey(token))
		return nil
	})
	return err
}

func (s *RedisStore) DeleteToken(ctx context.Context, token string) error {
	uid, err := s.client.HGet(ctx, tokenKey(token), "uid").Result()
	if errors.Is(err, redis.Nil) {
		uid = ""
	} else if err != nil {
		return err
	}
	return s.DeleteUserToken(ctx, uid, token)
}

func (s *RedisStore) TokensByTopics(ctx context.Context, topics ...string) ([]models.PushSubscription, error) {
	if len(topics) == 0 {
		return nil, nil
	}
	keys := make([]string, len(topics))
	for i, t := range topics {
		keys[i] = topicKey(t)
	}

	tokens, err := s.client.SInter(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(tokens)

	var subs []models.PushSubscription
	for _, token := range tokens {
		sub, err := s.GetToken(ctx, token)
		if errors.Is(err, ErrNotFound) {
			// Index outlived the record, drop it.
			for _, k := range keys {
				s.client.SRem(ctx, k, token)
			}
			continue
		} else if err != nil {
			continue
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

func (s *RedisStore) CreateMeta(ctx context.Context, m models.MetaPost) (models.MetaPost, bool, error) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(m)
	if err != nil {
		return models.MetaPost{}, false, err
	}

	ok, err := s.client.SetNX(ctx, metaKey(m.Slug, m.Locale), data, 0).Result()
	if err != nil {
		return models.MetaPost{}, false, fmt.Errorf("create meta: %w", err)
	}
	if !ok {
		existing, err := s.GetMeta(ctx, m.Slug, m.Locale)
		return existing, false, err
	}
	return m, true, nil
}

func (s *RedisStore) GetMeta(ctx context.Context, slug, locale string) (models.MetaPost, error) {
	val, err := s.client.Get(ctx, metaKey(slug, locale)).Result()
	if errors.Is(err, redis.Nil) {
		return models.MetaPost{}, ErrNotFound
	} else if err != nil {
		return models.MetaPost{}, err
	}

	var m models.MetaPost
	if err := json.Unmarshal([]byte(val), &m); err != nil {
		return models.MetaPost{}, err
	}
	return m, nil
}

// Close is a no-op; the client is shared and owned by the caller.
func (s *RedisStore) Close() error {
	return nil
}
