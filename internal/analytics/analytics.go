package analytics

import (
	"context"
	"encoding/json"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	DefaultStream = "analytics:events"
	streamMaxLen  = 10000

	EventException = "exception"
)

// Logger receives named events for later triage.
type Logger interface {
	LogEvent(ctx context.Context, name string, params map[string]any)
}

// Client appends events to a redis stream and counts them.
type Client struct {
	rdb     *redis.Client
	stream  string
	counter *prometheus.CounterVec
	logger  *zap.Logger
}

func NewClient(rdb *redis.Client, counter *prometheus.CounterVec, logger *zap.Logger) *Client {
	return &Client{
		rdb:     rdb,
		stream:  DefaultStream,
		counter: counter,
		logger:  logger.Named("analytics"),
	}
}

func (c *Client) LogEvent(ctx context.Context, name string, params map[string]any) {
	errName, _ := params["name"].(string)
	if c.counter != nil {
		c.counter.WithLabelValues(name, errName).Inc()
	}

	data, err := json.Marshal(params)
	if err != nil {
		c.logger.Warn("encode event params", zap.String("event", name), zap.Error(err))
		data = []byte("{}")
	}

	err = c.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: c.stream,
		MaxLen: streamMaxLen,
		Values: map[string]any{
			"event":  name,
			"params": string(data),
			"at":     time.Now().UTC().Format(time.RFC3339Nano),
		},
	}).Err()
	if err != nil {
		c.logger.Warn("append event", zap.String("event", name), zap.Error(err))
		return
	}
	c.logger.Debug("event logged", zap.String("event", name), zap.ByteString("params", data))
}

// SafeLogEvent forwards to l when analytics is available and drops the
// event otherwise.
func SafeLogEvent(ctx context.Context, l Logger, name string, params map[string]any) {
	if l == nil {
		return
	}
	l.LogEvent(ctx, name, params)
}
