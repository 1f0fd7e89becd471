package push

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"net/url"
	"strings"

	"portfolio-site-go/internal/models"

	"github.com/SherClockHolmes/webpush-go"
)

const PermissionGranted = "granted"

// Registration is an active service worker the page can see.
type Registration struct {
	ScriptURL string
}

// Browser is the page-side half of the lifecycle: service worker lookup
// and the push token held by the browser.
type Browser interface {
	GetRegistration(ctx context.Context, scriptURL string) (*Registration, error)
	GetToken(ctx context.Context, reg *Registration) (models.PushToken, error)
	DeleteToken(ctx context.Context) error
}

// Flag is the per-browser "this device holds a push token" bit.
type Flag interface {
	// Subscribed returns the value and whether it was ever written.
	Subscribed() (value, known bool)
	SetSubscribed(v bool) error
}

// Device is the browser state reported with a single request.
type Device struct {
	ServiceWorker string                `json:"serviceWorker"`
	Permission    string                `json:"permission"`
	Subscription  *webpush.Subscription `json:"subscription"`

	revoked bool
}

func (d *Device) GetRegistration(_ context.Context, scriptURL string) (*Registration, error) {
	if d.ServiceWorker == "" || scriptPath(d.ServiceWorker) != scriptPath(scriptURL) {
		return nil, ErrNoServiceWorker
	}
	return &Registration{ScriptURL: d.ServiceWorker}, nil
}

func (d *Device) GetToken(_ context.Context, reg *Registration) (models.PushToken, error) {
	if reg == nil {
		return models.PushToken{}, ErrNoServiceWorker
	}
	if d.Permission != PermissionGranted || d.Subscription == nil || d.Subscription.Endpoint == "" {
		return models.PushToken{}, ErrPermissionDenied
	}
	return models.PushToken{
		Value:    TokenFor(d.Subscription.Endpoint),
		Endpoint: d.Subscription.Endpoint,
		P256dh:   d.Subscription.Keys.P256dh,
		Auth:     d.Subscription.Keys.Auth,
	}, nil
}

// DeleteToken marks the browser's subscription for removal; the response
// tells the page to drop it.
func (d *Device) DeleteToken(context.Context) error {
	d.revoked = true
	return nil
}

func (d *Device) Revoked() bool {
	return d.revoked
}

// TokenFor derives the stable document key for a push endpoint.
func TokenFor(endpoint string) string {
	sum := sha256.Sum256([]byte(endpoint))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func scriptPath(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		raw = u.Path
	}
	return "/" + strings.TrimLeft(raw, "/")
}
