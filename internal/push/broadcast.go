package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"portfolio-site-go/internal/events"
	"portfolio-site-go/internal/handles"
	"portfolio-site-go/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Payload is the JSON body the service worker renders as a notification.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
}

// Broadcaster fans notifications out to topic subscribers.
type Broadcaster struct {
	handles    *handles.Provider
	deliveries *prometheus.CounterVec
	logger     *zap.Logger
}

func NewBroadcaster(p *handles.Provider, deliveries *prometheus.CounterVec, logger *zap.Logger) *Broadcaster {
	return &Broadcaster{handles: p, deliveries: deliveries, logger: logger.Named("broadcast")}
}

// OnMetaCreated notifies every token subscribed to the article topic and
// the post's locale.
func (b *Broadcaster) OnMetaCreated(ctx context.Context, ev events.Event) error {
	var m models.MetaPost
	if err := json.Unmarshal(ev.Payload, &m); err != nil {
		return fmt.Errorf("decode meta: %w", err)
	}
	if m.Title == "" {
		return nil
	}

	set, err := b.handles.Get(ctx)
	if err != nil {
		return err
	}
	if set.Messaging == nil {
		return nil
	}

	subs, err := set.Store.TokensByTopics(ctx, models.TopicArticle, m.Locale)
	if err != nil {
		return fmt.Errorf("load subscribers: %w", err)
	}

	payload, err := json.Marshal(Payload{Title: m.Title, Body: m.Description, URL: m.URL})
	if err != nil {
		return err
	}
	sent := b.deliver(ctx, set, subs, payload)
	b.logger.Info("article broadcast", zap.String("slug", m.Slug), zap.String("locale", m.Locale),
		zap.Int("subscribers", len(subs)), zap.Int("sent", sent))
	return nil
}

// SendTest pushes a test notification to every token the user owns.
func (b *Broadcaster) SendTest(ctx context.Context, uid string, p Payload) (int, error) {
	set, err := b.handles.Get(ctx)
	if err != nil {
		return 0, err
	}
	if set.Messaging == nil {
		return 0, ErrHandlesUnavailable
	}

	tokens, err := set.Store.ListUserTokens(ctx, uid)
	if err != nil {
		return 0, err
	}
	subs := make([]models.PushSubscription, 0, len(tokens))
	for _, t := range tokens {
		sub, err := set.Store.GetToken(ctx, t)
		if err != nil {
			continue
		}
		subs = append(subs, sub)
	}

	payload, err := json.Marshal(p)
	if err != nil {
		return 0, err
	}
	return b.deliver(ctx, set, subs, payload), nil
}

func (b *Broadcaster) deliver(ctx context.Context, set *handles.Set, subs []models.PushSubscription, payload []byte) int {
	sent := 0
	for _, sub := range subs {
		err := set.Messaging.Send(ctx, sub, payload)
		switch {
		case err == nil:
			sent++
			b.count("sent")
		case errors.Is(err, ErrSubscriptionGone):
			b.count("gone")
			if err := set.Store.DeleteToken(ctx, sub.Token); err != nil {
				b.logger.Warn("drop stale token", zap.String("token", sub.Token), zap.Error(err))
			}
		default:
			b.count("failed")
			b.logger.Warn("failed to send push", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
	}
	return sent
}

func (b *Broadcaster) count(result string) {
	if b.deliveries != nil {
		b.deliveries.WithLabelValues(result).Inc()
	}
}
