package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"os"
	"reflect"
	"strings"
	"testing"

	"portfolio-site-go/internal/models"

	"github.com/google/uuid"
)

// newPostgresTestStore connects to DATABASE_URL and migrates twice, so every
// run also checks that migrations are idempotent.
func newPostgresTestStore(t *testing.T) *PostgresStore {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping postgres tests")
	}
	s, err := NewPostgresStore(url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	for i := 0; i < 2; i++ {
		if err := s.RunMigrations(context.Background()); err != nil {
			t.Fatalf("migrate (run %d): %v", i+1, err)
		}
	}
	return s
}

// uniqueToken returns a token that no other run shares and removes it at
// the end of the test.
func uniqueToken(t *testing.T, s *PostgresStore) string {
	t.Helper()
	token := "test-" + uuid.NewString()
	t.Cleanup(func() { s.DeleteToken(context.Background(), token) })
	return token
}

func TestPostgresUpsertTokenMergesTopics(t *testing.T) {
	s := newPostgresTestStore(t)
	ctx := context.Background()
	token := uniqueToken(t, s)

	created, err := s.UpsertToken(ctx, "", models.PushSubscription{Token: token, Topics: []string{"news"}})
	if err != nil || !created {
		t.Fatalf("first upsert created=%v err=%v, want true nil", created, err)
	}
	first, err := s.GetToken(ctx, token)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	created, err = s.UpsertToken(ctx, "", models.PushSubscription{Token: token, Topics: []string{"blog", "news"}, Endpoint: "https://push.example/x"})
	if err != nil || created {
		t.Fatalf("second upsert created=%v err=%v, want false nil", created, err)
	}
	got, err := s.GetToken(ctx, token)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if want := []string{"blog", "news"}; !reflect.DeepEqual(got.Topics, want) {
		t.Fatalf("topics = %v, want %v", got.Topics, want)
	}
	if got.Endpoint != "https://push.example/x" {
		t.Fatalf("endpoint = %q", got.Endpoint)
	}
	if !got.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("created_at moved from %v to %v", first.CreatedAt, got.CreatedAt)
	}
}

func TestPostgresUpsertMovesTokenToNewOwner(t *testing.T) {
	s := newPostgresTestStore(t)
	ctx := context.Background()
	token := uniqueToken(t, s)
	oldUID, newUID := "u-"+uuid.NewString(), "u-"+uuid.NewString()

	if _, err := s.UpsertToken(ctx, oldUID, models.PushSubscription{Token: token}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := s.UpsertToken(ctx, newUID, models.PushSubscription{Token: token}); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}

	if got, _ := s.ListUserTokens(ctx, oldUID); len(got) != 0 {
		t.Fatalf("previous owner still lists %v", got)
	}
	if got, _ := s.ListUserTokens(ctx, newUID); !reflect.DeepEqual(got, []string{token}) {
		t.Fatalf("new owner tokens = %v, want [%s]", got, token)
	}

	if _, err := s.UpsertToken(ctx, "", models.PushSubscription{Token: token}); err != nil {
		t.Fatalf("anonymous upsert: %v", err)
	}
	if got, _ := s.ListUserTokens(ctx, newUID); len(got) != 1 {
		t.Fatalf("anonymous upsert dropped owner, tokens = %v", got)
	}
}

func TestPostgresDeleteTokenCascades(t *testing.T) {
	s := newPostgresTestStore(t)
	ctx := context.Background()
	uid := "u-" + uuid.NewString()
	kept, removed := uniqueToken(t, s), uniqueToken(t, s)

	for _, tok := range []string{kept, removed} {
		if _, err := s.UpsertToken(ctx, uid, models.PushSubscription{Token: tok}); err != nil {
			t.Fatalf("upsert %s: %v", tok, err)
		}
	}
	if err := s.DeleteToken(ctx, removed); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetToken(ctx, removed); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get removed err = %v, want ErrNotFound", err)
	}
	if got, _ := s.ListUserTokens(ctx, uid); !reflect.DeepEqual(got, []string{kept}) {
		t.Fatalf("user tokens = %v, want [%s]", got, kept)
	}

	if err := s.DeleteUserToken(ctx, uid, kept); err != nil {
		t.Fatalf("delete user token: %v", err)
	}
	if got, _ := s.ListUserTokens(ctx, uid); len(got) != 0 {
		t.Fatalf("user tokens = %v, want none", got)
	}
}

func TestPostgresTokensByTopicsIntersects(t *testing.T) {
	s := newPostgresTestStore(t)
	ctx := context.Background()
	topic := "t-" + uuid.NewString()
	both, onlyOne := uniqueToken(t, s), uniqueToken(t, s)

	s.UpsertToken(ctx, "", models.PushSubscription{Token: both, Topics: []string{topic, "news"}})
	s.UpsertToken(ctx, "", models.PushSubscription{Token: onlyOne, Topics: []string{topic}})

	subs, err := s.TokensByTopics(ctx, topic, "news")
	if err != nil {
		t.Fatalf("tokens by topics: %v", err)
	}
	if len(subs) != 1 || subs[0].Token != both {
		t.Fatalf("subs = %+v, want only %s", subs, both)
	}
}

func TestPostgresCreateMetaOnlyOnce(t *testing.T) {
	s := newPostgresTestStore(t)
	ctx := context.Background()
	slug := "post-" + uuid.NewString()
	t.Cleanup(func() {
		s.db.ExecContext(context.Background(), `DELETE FROM meta_locales WHERE slug = $1`, slug)
	})

	m := models.MetaPost{Slug: slug, Locale: "en", Title: "First"}
	stored, created, err := s.CreateMeta(ctx, m)
	if err != nil || !created {
		t.Fatalf("create created=%v err=%v", created, err)
	}

	m.Title = "Second"
	again, created, err := s.CreateMeta(ctx, m)
	if err != nil || created {
		t.Fatalf("recreate created=%v err=%v, want false nil", created, err)
	}
	if again.Title != "First" || !again.CreatedAt.Equal(stored.CreatedAt) {
		t.Fatalf("recreate returned %+v, want original", again)
	}
}

// nullRowsDriver answers every query with one row of NULLs, which cannot be
// scanned into the store's string fields.
type nullRowsDriver struct{}

func (nullRowsDriver) Open(string) (driver.Conn, error) { return nullRowsConn{}, nil }

type nullRowsConn struct{}

func (nullRowsConn) Prepare(query string) (driver.Stmt, error) {
	cols := []string{"token"}
	if strings.Contains(query, "topics") {
		cols = []string{"token", "topics", "endpoint", "p256dh", "auth", "created_at"}
	}
	return nullRowsStmt{cols: cols}, nil
}
func (nullRowsConn) Close() error              { return nil }
func (nullRowsConn) Begin() (driver.Tx, error) { return nil, errors.ErrUnsupported }

type nullRowsStmt struct{ cols []string }

func (nullRowsStmt) Close() error  { return nil }
func (nullRowsStmt) NumInput() int { return -1 }
func (nullRowsStmt) Exec([]driver.Value) (driver.Result, error) {
	return driver.RowsAffected(0), nil
}
func (st nullRowsStmt) Query([]driver.Value) (driver.Rows, error) {
	return &nullRows{cols: st.cols}, nil
}

type nullRows struct {
	cols []string
	done bool
}

func (r *nullRows) Columns() []string { return r.cols }
func (*nullRows) Close() error { return nil }
func (r *nullRows) Next(dest []driver.Value) error {
	if r.done {
		return io.EOF
	}
	r.done = true
	for i := range dest {
		dest[i] = nil
	}
	return nil
}

func init() {
	sql.Register("store-null-rows", nullRowsDriver{})
}

func TestPostgresScanErrorsAreReturned(t *testing.T) {
	db, err := sql.Open("store-null-rows", "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	s := &PostgresStore{db: db}
	ctx := context.Background()

	if tokens, err := s.ListUserTokens(ctx, "u1"); err == nil {
		t.Fatalf("ListUserTokens = %v, want scan error", tokens)
	}
	if subs, err := s.TokensByTopics(ctx, "news"); err == nil {
		t.Fatalf("TokensByTopics = %v, want scan error", subs)
	}
}
