package push

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"portfolio-site-go/internal/models"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"
)

// LoadVAPIDKeys returns the configured key pair, generating a fresh one
// when none is configured.
func LoadVAPIDKeys(publicKey, privateKey string, logger *zap.Logger) (string, string, error) {
	if publicKey != "" && privateKey != "" {
		return publicKey, privateKey, nil
	}

	logger.Warn("VAPID keys not found in environment, generating new keys")
	priv, pub, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		return "", "", fmt.Errorf("generate VAPID keys: %w", err)
	}
	logger.Info("generated VAPID keys, add them to your .env file to persist them",
		zap.String("VAPID_PUBLIC_KEY", pub),
		zap.String("VAPID_PRIVATE_KEY", priv),
	)
	return pub, priv, nil
}

// Sender delivers payloads with VAPID-signed web push requests.
type Sender struct {
	publicKey  string
	privateKey string
	subject    string
	ttl        int
	client     webpush.HTTPClient
}

func NewSender(publicKey, privateKey, subject string, ttl int) *Sender {
	return &Sender{
		publicKey:  publicKey,
		privateKey: privateKey,
		subject:    subject,
		ttl:        ttl,
	}
}

// WithHTTPClient overrides the client used to reach push services.
func (s *Sender) WithHTTPClient(c webpush.HTTPClient) *Sender {
	s.client = c
	return s
}

func (s *Sender) PublicKey() string {
	return s.publicKey
}

func (s *Sender) Send(ctx context.Context, sub models.PushSubscription, payload []byte) error {
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		HTTPClient:      s.client,
		Subscriber:      s.subject,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		TTL:             s.ttl,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return fmt.Errorf("%w: status %d", ErrSubscriptionGone, resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("push service returned status %d", resp.StatusCode)
	}
	return nil
}
