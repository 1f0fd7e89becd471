package push

import (
	"context"
	"sync/atomic"

	"portfolio-site-go/internal/analytics"
	"portfolio-site-go/internal/handles"
	"portfolio-site-go/internal/models"
	"portfolio-site-go/internal/notice"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	MsgPermissionDenied  = "The notification permission was not granted. Please check browser settings"
	MsgSubscribed        = "Success subscription Web Push"
	MsgAlreadySubscribed = "Already subscribed"
	MsgUnsubscribed      = "Unsubscribed push message"
	MsgSomethingWrong    = "Something went wrong. This error has reported."

	deleteConcurrency = 8
)

type State string

const (
	StateUnknown      State = "unknown"
	StateSubscribing  State = "subscribing"
	StateSubscribed   State = "subscribed"
	StateUnsubscribed State = "unsubscribed"
	StateError        State = "error"
)

// StateOf maps the local flag onto a lifecycle state.
func StateOf(f Flag) State {
	if f == nil {
		return StateUnknown
	}
	v, known := f.Subscribed()
	switch {
	case !known:
		return StateUnknown
	case v:
		return StateSubscribed
	default:
		return StateUnsubscribed
	}
}

// Outcome is what a lifecycle call settled on. Err is informational: the
// controller has already surfaced whatever the user should see.
type Outcome struct {
	State  State          `json:"state"`
	Notice *models.Notice `json:"notice,omitempty"`
	Err    error          `json:"-"`
}

// Controller drives subscribe/unsubscribe. Every entry point settles into
// an Outcome; none of them return errors to the caller.
type Controller struct {
	notices   notice.Surface
	lifecycle *prometheus.CounterVec
	swURL     string
	logger    *zap.Logger
}

func NewController(notices notice.Surface, lifecycle *prometheus.CounterVec, swURL string, logger *zap.Logger) *Controller {
	return &Controller{
		notices:   notices,
		lifecycle: lifecycle,
		swURL:     swURL,
		logger:    logger.Named("push"),
	}
}

// Subscribe registers the browser's push token under the article topic and
// the given locale.
func (c *Controller) Subscribe(ctx context.Context, set *handles.Set, b Browser, sess models.Session, flag Flag, locale string) Outcome {
	if set == nil || set.Messaging == nil || set.Store == nil {
		return c.settle("subscribe", Outcome{
			State: StateOf(flag),
			Err:   &Error{Kind: KindEnvironment, Op: "subscribe", Err: ErrHandlesUnavailable},
		})
	}
	log := c.logger.With(zap.String("uid", sess.UserID), zap.String("locale", locale))
	log.Debug("lifecycle transition", zap.String("state", string(StateSubscribing)))

	reg, err := b.GetRegistration(ctx, c.swURL)
	if err != nil {
		log.Warn("service worker not found", zap.String("script", c.swURL), zap.Error(err))
		return c.settle("subscribe", Outcome{
			State: StateOf(flag),
			Err:   &Error{Kind: KindEnvironment, Op: "get registration", Err: err},
		})
	}

	token, err := b.GetToken(ctx, reg)
	if err != nil {
		log.Info("push token not granted", zap.Error(err))
		n := models.Alert(MsgPermissionDenied)
		c.notices.Show(ctx, sess.UserID, n)
		state := StateOf(flag)
		if state == StateUnknown {
			state = StateUnsubscribed
		}
		return c.settle("subscribe", Outcome{
			State:  state,
			Notice: n,
			Err:    &Error{Kind: KindPermission, Op: "get token", Err: err},
		})
	}

	record := models.PushSubscription{
		Token:    token.Value,
		Topics:   models.MergeTopics([]string{models.TopicArticle}, []string{locale}),
		Endpoint: token.Endpoint,
		P256dh:   token.P256dh,
		Auth:     token.Auth,
	}
	created, err := set.Store.UpsertToken(ctx, sess.UserID, record)
	if err != nil {
		return c.settle("subscribe", c.HandleError(ctx, set, sess, &Error{Kind: KindRemote, Op: "persist token", Err: err}))
	}

	if err := flag.SetSubscribed(true); err != nil {
		log.Warn("persist local subscription flag", zap.Error(err))
	}

	n := models.Success(MsgSubscribed)
	if !created {
		n = models.Alert(MsgAlreadySubscribed)
	}
	c.notices.Show(ctx, sess.UserID, n)
	log.Info("subscribed", zap.Bool("created", created), zap.Strings("topics", record.Topics))

	return c.settle("subscribe", Outcome{State: StateSubscribed, Notice: n})
}

// Unsubscribe deletes every token under users/{uid}/fcm, drops the
// browser's token and clears the local flag. Individual delete failures
// are logged and otherwise ignored.
func (c *Controller) Unsubscribe(ctx context.Context, set *handles.Set, b Browser, sess models.Session, flag Flag) Outcome {
	if !sess.Identified() {
		return c.settle("unsubscribe", Outcome{
			State: StateOf(flag),
			Err:   &Error{Kind: KindEnvironment, Op: "unsubscribe", Err: ErrNotIdentified},
		})
	}
	if set == nil || set.Store == nil {
		return c.settle("unsubscribe", Outcome{
			State: StateOf(flag),
			Err:   &Error{Kind: KindEnvironment, Op: "unsubscribe", Err: ErrHandlesUnavailable},
		})
	}
	log := c.logger.With(zap.String("uid", sess.UserID))

	tokens, err := set.Store.ListUserTokens(ctx, sess.UserID)
	if err != nil {
		return c.settle("unsubscribe", c.HandleError(ctx, set, sess, &Error{Kind: KindRemote, Op: "list tokens", Err: err}))
	}

	var failed atomic.Int32
	var g errgroup.Group
	g.SetLimit(deleteConcurrency)
	for _, token := range tokens {
		g.Go(func() error {
			if err := set.Store.DeleteUserToken(ctx, sess.UserID, token); err != nil {
				failed.Add(1)
				log.Warn("delete token", zap.String("token", token), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := b.DeleteToken(ctx); err != nil {
		log.Warn("delete browser token", zap.Error(err))
	}
	if err := flag.SetSubscribed(false); err != nil {
		log.Warn("clear local subscription flag", zap.Error(err))
	}

	n := models.Success(MsgUnsubscribed)
	c.notices.Show(ctx, sess.UserID, n)
	log.Info("unsubscribed", zap.Int("tokens", len(tokens)), zap.Int32("failed", failed.Load()))

	return c.settle("unsubscribe", Outcome{State: StateUnsubscribed, Notice: n})
}

// HandleError shows the generic failure notice and reports err to
// analytics. It never retries.
func (c *Controller) HandleError(ctx context.Context, set *handles.Set, sess models.Session, err error) Outcome {
	c.logger.Error("push lifecycle failed", zap.String("uid", sess.UserID), zap.Error(err))

	n := models.Alert(MsgSomethingWrong)
	c.notices.Show(ctx, sess.UserID, n)

	var a analytics.Logger
	if set != nil {
		a = set.Analytics
	}
	analytics.SafeLogEvent(ctx, a, analytics.EventException, map[string]any{
		"description": err.Error(),
		"name":        string(KindOf(err)),
	})

	return Outcome{State: StateError, Notice: n, Err: err}
}

func (c *Controller) settle(op string, o Outcome) Outcome {
	if c.lifecycle != nil {
		c.lifecycle.WithLabelValues(op, string(o.State)).Inc()
	}
	return o
}
