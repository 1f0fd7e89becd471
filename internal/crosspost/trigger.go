package crosspost

import (
	"context"
	"encoding/json"
	"errors"

	"portfolio-site-go/internal/events"
	"portfolio-site-go/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var ErrIncompleteMeta = errors.New("meta is missing url, title or description")

// Trigger tweets newly created localized post metadata.
type Trigger struct {
	poster Poster
	posts  *prometheus.CounterVec
	logger *zap.Logger
}

func NewTrigger(poster Poster, posts *prometheus.CounterVec, logger *zap.Logger) *Trigger {
	return &Trigger{poster: poster, posts: posts, logger: logger.Named("crosspost")}
}

// OnCreate handles events.MetaCreated. Every failure is logged and
// swallowed so a bad document is never retried.
func (t *Trigger) OnCreate(ctx context.Context, ev events.Event) error {
	var m models.MetaPost
	if err := json.Unmarshal(ev.Payload, &m); err != nil {
		t.logger.Error("decode meta", zap.Error(err))
		t.count("invalid")
		return nil
	}
	log := t.logger.With(zap.String("slug", m.Slug), zap.String("locale", m.Locale))

	if !m.Complete() {
		log.Error("skip cross-post", zap.Error(ErrIncompleteMeta))
		t.count("invalid")
		return nil
	}

	status, err := Ellipsis(TemplateFor(m.Locale), Post{URL: m.URL, Title: m.Title, Description: m.Description})
	if err != nil {
		log.Error("render status", zap.Error(err))
		t.count("invalid")
		return nil
	}
	if status == "" {
		log.Info("status empty after truncation, nothing posted")
		t.count("skipped")
		return nil
	}

	if err := t.poster.Post(ctx, status); err != nil {
		log.Error("cross-post failed", zap.Error(err))
		t.count("failed")
		return nil
	}
	log.Info("cross-posted", zap.Int("weight", Weight(status)))
	t.count("posted")
	return nil
}

func (t *Trigger) count(result string) {
	if t.posts != nil {
		t.posts.WithLabelValues(result).Inc()
	}
}
