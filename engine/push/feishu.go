// Package push implements FeishuPusher, the one sink operator: it posts each
// paper's summary to a Feishu (Lark) group as an interactive card, one
// request at a time so cards land in the group in the order the items are
// given.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/paperflow/paperflow/engine/dag"
	"github.com/paperflow/paperflow/engine/paper"
)

// Pushed pairs an item with whether its push ultimately succeeded.
type Pushed struct {
	Paper paper.WithSummary
	OK    bool
}

// card is Feishu's interactive message wire format: one markdown div plus a
// plain-text header, exactly as the webhook API expects it.
type card struct {
	MsgType string    `json:"msg_type"`
	Card    cardBody  `json:"card"`
}

type cardBody struct {
	Elements []cardElement `json:"elements"`
	Header   cardHeader    `json:"header"`
}

type cardElement struct {
	Tag  string      `json:"tag"`
	Text cardContent `json:"text"`
}

type cardContent struct {
	Content string `json:"content"`
	Tag     string `json:"tag"`
}

type cardHeader struct {
	Title cardContent `json:"title"`
}

// FeishuPusher posts one card per item to WebhookURL, retrying transient
// failures and tripping a circuit breaker if the webhook is down so a long
// batch doesn't spend minutes retrying a dead endpoint.
type FeishuPusher struct {
	dag.NopLifecycle
	WebhookURL string

	client  *http.Client
	breaker *breaker
	log     *slog.Logger
}

// NewFeishuPusher builds a FeishuPusher posting to webhookURL.
func NewFeishuPusher(webhookURL string, log *slog.Logger) *FeishuPusher {
	if log == nil {
		log = slog.Default()
	}
	return &FeishuPusher{
		WebhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		breaker:    newBreaker(),
		log:        log,
	}
}

// Process pushes each item sequentially and returns a []Pushed with one
// entry per input item. A single failed push never aborts the remaining
// items — only the outcome flag reflects it, so MarkIDsAsFinished downstream
// can record just the items that actually landed.
func (p *FeishuPusher) Process(ctx context.Context, input any) (any, error) {
	items := input.([]paper.WithSummary)
	out := make([]Pushed, len(items))
	for i, item := range items {
		out[i] = Pushed{Paper: item, OK: p.pushOne(ctx, item)}
	}
	return out, nil
}

func (p *FeishuPusher) pushOne(ctx context.Context, item paper.WithSummary) bool {
	msg := card{
		MsgType: "interactive",
		Card: cardBody{
			Elements: []cardElement{{Tag: "div", Text: cardContent{Content: item.Summary, Tag: "lark_md"}}},
			Header:   cardHeader{Title: cardContent{Content: item.Title, Tag: "plain_text"}},
		},
	}

	const maxAttempts = 5
	const maxWait = 10 * time.Second
	wait := time.Second

	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err = p.breaker.call(ctx, func(ctx context.Context) error { return p.send(ctx, msg) })
		if err == nil {
			p.log.Info("push: feishu push succeeded", "id", item.ID, "title", item.Title)
			return true
		}
		if attempt == maxAttempts-1 {
			break
		}

		sleep := time.Duration(float64(wait) * (0.5 + rand.Float64()))
		if sleep > maxWait {
			sleep = maxWait
		}
		select {
		case <-ctx.Done():
			p.log.Error("push: feishu push failed", "id", item.ID, "error", ctx.Err())
			return false
		case <-time.After(sleep):
		}

		wait *= 2
		if wait > maxWait {
			wait = maxWait
		}
	}

	p.log.Error("push: feishu push failed", "id", item.ID, "error", err)
	return false
}

func (p *FeishuPusher) send(ctx context.Context, msg card) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("push: encode card: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("push: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("push: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("push: webhook status %d", resp.StatusCode)
	}
	return nil
}
