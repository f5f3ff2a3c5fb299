// Package notify delivers operational alerts (fills, halts, errors) to a
// Discord webhook. Delivery is best-effort: a failed post is logged and
// the trading loop moves on.
package notify

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

type Notifier interface {
	Notify(ctx context.Context, message string)
}

// Discord posts messages to a webhook URL.
type Discord struct {
	client *resty.Client
	url    string
}

func NewDiscord(webhookURL string) *Discord {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(0)
	return &Discord{client: client, url: webhookURL}
}

func (d *Discord) Notify(ctx context.Context, message string) {
	resp, err := d.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"content": message}).
		Post(d.url)
	if err != nil {
		log.Warn().Err(err).Msg("discord notify failed")
		return
	}
	if resp.StatusCode() >= 400 {
		log.Warn().Int("status", resp.StatusCode()).Msg("discord notify rejected")
	}
}

// Nop is the disabled notifier.
type Nop struct{}

func (Nop) Notify(ctx context.Context, message string) {}
