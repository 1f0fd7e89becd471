package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"sort"

	"portfolio-site-go/internal/models"

	"github.com/lib/pq"
)

//go:embed schema.sql
var schemaSQL string

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// RunMigrations creates tables if they don't exist. It is safe to run on
// every start.
func (s *PostgresStore) RunMigrations(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// Push token methods

func (s *PostgresStore) UpsertToken(ctx context.Context, uid string, sub models.PushSubscription) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	// xmax is zero only for a freshly inserted row.
	var created bool
	err = tx.QueryRowContext(ctx,
		`INSERT INTO fcm (token, topics, endpoint, p256dh, auth, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 ON CONFLICT (token) DO UPDATE SET
		     topics = ARRAY(SELECT DISTINCT unnest(fcm.topics || EXCLUDED.topics) ORDER BY 1),
		     endpoint = EXCLUDED.endpoint,
		     p256dh = EXCLUDED.p256dh,
		     auth = EXCLUDED.auth
		 RETURNING (xmax = 0)`,
		sub.Token, pq.Array(sub.Topics), sub.Endpoint, sub.P256dh, sub.Auth,
	).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("upsert token: %w", err)
	}

	if uid != "" {
		// A token has one owner; re-registering moves it.
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM user_fcm WHERE token = $1 AND uid <> $2`,
			sub.Token, uid,
		); err != nil {
			return false, fmt.Errorf("release previous owner: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_fcm (uid, token, created_at)
			 VALUES ($1, $2, NOW())
			 ON CONFLICT (uid, token) DO NOTHING`,
			uid, sub.Token,
		); err != nil {
			return false, fmt.Errorf("index user token: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return created, nil
}

func (s *PostgresStore) GetToken(ctx context.Context, token string) (models.PushSubscription, error) {
	var sub models.PushSubscription
	err := s.db.QueryRowContext(ctx,
		`SELECT token, topics, endpoint, p256dh, auth, created_at FROM fcm WHERE token = $1`,
		token,
	).Scan(&sub.Token, pq.Array(&sub.Topics), &sub.Endpoint, &sub.P256dh, &sub.Auth, &sub.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return models.PushSubscription{}, ErrNotFound
	}
	if err != nil {
		return models.PushSubscription{}, err
	}
	sort.Strings(sub.Topics)
	return sub, nil
}

func (s *PostgresStore) ListUserTokens(ctx context.Context, uid string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT token FROM user_fcm WHERE uid = $1 ORDER BY token`,
		uid,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("scan user token: %w", err)
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

func (s *PostgresStore) DeleteUserToken(ctx context.Context, uid, token string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_fcm WHERE uid = $1 AND token = $2`, uid, token); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM fcm WHERE token = $1`, token); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PostgresStore) DeleteToken(ctx context.Context, token string) error {
	// user_fcm rows go with it through ON DELETE CASCADE.
	_, err := s.db.ExecContext(ctx, `DELETE FROM fcm WHERE token = $1`, token)
	return err
}

func (s *PostgresStore) TokensByTopics(ctx context.Context, topics ...string) ([]models.PushSubscription, error) {
	if len(topics) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT token, topics, endpoint, p256dh, auth, created_at
		 FROM fcm WHERE topics @> $1 ORDER BY token`,
		pq.Array(topics),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []models.PushSubscription
	for rows.Next() {
		var sub models.PushSubscription
		if err := rows.Scan(&sub.Token, pq.Array(&sub.Topics), &sub.Endpoint, &sub.P256dh, &sub.Auth, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// Meta methods

func (s *PostgresStore) CreateMeta(ctx context.Context, m models.MetaPost) (models.MetaPost, bool, error) {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO meta_locales (slug, locale, url, title, description, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 ON CONFLICT (slug, locale) DO NOTHING
		 RETURNING created_at`,
		m.Slug, m.Locale, m.URL, m.Title, m.Description,
	).Scan(&m.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		existing, err := s.GetMeta(ctx, m.Slug, m.Locale)
		return existing, false, err
	}
	if err != nil {
		return models.MetaPost{}, false, fmt.Errorf("create meta: %w", err)
	}
	return m, true, nil
}

func (s *PostgresStore) GetMeta(ctx context.Context, slug, locale string) (models.MetaPost, error) {
	var m models.MetaPost
	err := s.db.QueryRowContext(ctx,
		`SELECT slug, locale, url, title, description, created_at
		 FROM meta_locales WHERE slug = $1 AND locale = $2`,
		slug, locale,
	).Scan(&m.Slug, &m.Locale, &m.URL, &m.Title, &m.Description, &m.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return models.MetaPost{}, ErrNotFound
	}
	return m, err
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
