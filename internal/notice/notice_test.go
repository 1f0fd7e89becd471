package notice

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"portfolio-site-go/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func newBoard(t *testing.T) *Board {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewBoard(rdb, zap.NewNop())
}

func TestBoardReplacesNotice(t *testing.T) {
	b := newBoard(t)
	ctx := context.Background()

	if n, err := b.Current(ctx, "u1"); err != nil || n != nil {
		t.Fatalf("expected no notice, got %+v err=%v", n, err)
	}

	b.Show(ctx, "u1", models.Success("Success subscription Web Push"))
	b.Show(ctx, "u1", models.Alert("Already subscribed"))

	n, err := b.Current(ctx, "u1")
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if n == nil || n.Type != models.NoticeAlert || n.Message != "Already subscribed" {
		t.Fatalf("unexpected notice: %+v", n)
	}

	if err := b.Dismiss(ctx, "u1"); err != nil {
		t.Fatalf("dismiss: %v", err)
	}
	if n, _ := b.Current(ctx, "u1"); n != nil {
		t.Fatalf("expected notice to be dismissed, got %+v", n)
	}
}

func TestBoardIgnoresAnonymous(t *testing.T) {
	b := newBoard(t)
	ctx := context.Background()

	b.Show(ctx, "", models.Success("x"))
	b.Show(ctx, "u1", nil)
	if n, _ := b.Current(ctx, ""); n != nil {
		t.Fatalf("expected nothing stored for empty uid")
	}
}

func TestBoardPublishes(t *testing.T) {
	b := newBoard(t)
	ctx := context.Background()

	sub := b.Subscribe(ctx, "u1")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	b.Show(ctx, "u1", models.Success("hello"))

	select {
	case msg := <-sub.Channel():
		var n models.Notice
		if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if n.Message != "hello" {
			t.Fatalf("message = %q, want hello", n.Message)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for published notice")
	}
}
