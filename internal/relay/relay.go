package relay

import (
	"context"

	"portfolio-site-go/internal/events"
	"portfolio-site-go/internal/handles"

	"go.uber.org/zap"
)

// Relay answers service worker messages with the signed-in user's id.
type Relay struct {
	handles *handles.Provider
	logger  *zap.Logger
}

func New(p *handles.Provider, logger *zap.Logger) *Relay {
	return &Relay{handles: p, logger: logger.Named("relay")}
}

// Register subscribes the relay to message events.
func (r *Relay) Register(reg *events.Registry) (off func()) {
	return reg.On(events.Message, r.OnMessage)
}

// OnMessage posts the uid back to the source port. Anonymous sources and
// sources without a port get no reply.
func (r *Relay) OnMessage(ctx context.Context, ev events.Event) error {
	if ev.Source == nil {
		return nil
	}
	set, err := r.handles.Get(ctx)
	if err != nil {
		return err
	}
	if set.Identity == nil {
		return nil
	}

	sess := set.Identity.CurrentUser(ctx)
	if !sess.Identified() {
		r.logger.Debug("message from anonymous source")
		return nil
	}
	return ev.Source.PostMessage(sess.UserID)
}
