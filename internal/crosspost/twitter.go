package crosspost

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"portfolio-site-go/internal/config"

	"github.com/dghubble/oauth1"
)

const DefaultAPIURL = "https://api.twitter.com/1.1"

// Poster publishes a status update.
type Poster interface {
	Post(ctx context.Context, status string) error
}

// TwitterClient posts to the v1.1 statuses/update endpoint with user
// context OAuth1 credentials.
type TwitterClient struct {
	config *oauth1.Config
	token  *oauth1.Token
	apiURL string
	base   *http.Client
}

func NewTwitterClient(cfg config.TwitterConfig) *TwitterClient {
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &TwitterClient{
		config: oauth1.NewConfig(cfg.AppKey, cfg.AppSecret),
		token:  oauth1.NewToken(cfg.AccessToken, cfg.AccessSecret),
		apiURL: strings.TrimRight(apiURL, "/"),
		base:   &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *TwitterClient) Post(ctx context.Context, status string) error {
	ctx = context.WithValue(ctx, oauth1.HTTPClient, c.base)
	client := c.config.Client(ctx, c.token)

	body := url.Values{"status": {status}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/statuses/update.json", strings.NewReader(body.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("post status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("post status: %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
