package whatsapp

//go:generate go run go.uber.org/mock/mockgen -source=./whatsapp.go -destination=./mocks/whatsapp_mock.go -package=mocks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"nivaas/config"
)

const requestTimeout = 30 * time.Second

// Button is one tappable reply option. The ID string round-trips verbatim
// through the webhook, so callers may encode structured payloads into it.
type Button struct {
	ID    string
	Title string
}

// ButtonReply is the decoded owner decision extracted from a webhook event.
type ButtonReply struct {
	ButtonID string
	Title    string
	From     string
}

// WebhookEvent mirrors the Cloud API delivery payload down to the fields the
// service consumes.
type WebhookEvent struct {
	Object string `json:"object"`
	Entry  []struct {
		ID      string `json:"id"`
		Changes []struct {
			Field string `json:"field"`
			Value struct {
				Messages []Message `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type Message struct {
	ID          string `json:"id"`
	From        string `json:"from"`
	Type        string `json:"type"`
	Interactive *struct {
		Type        string `json:"type"`
		ButtonReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"button_reply"`
	} `json:"interactive"`
}

type Client interface {
	SendText(ctx context.Context, phone, body string) error
	SendButtons(ctx context.Context, phone, body string, buttons []Button) error
}

type clientImpl struct {
	cfg    *config.Config
	client *http.Client
}

func New(cfg *config.Config) Client {
	return &clientImpl{
		cfg: cfg,
		client: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// VerifyWebhook answers the platform's subscription handshake: the challenge is
// echoed back only when the mode and token match the configured secret.
func VerifyWebhook(cfg *config.Config, mode, token, challenge string) (string, bool) {
	if mode != "subscribe" || token != cfg.WhatsApp.VerifyToken {
		return "", false
	}

	return challenge, true
}

// ExtractButtonReply pulls the owner's button decision out of a delivery event.
// It returns nil for any event that is not an interactive button reply; such
// events are expected and not an error. The message id is returned whenever one
// is present so callers can deduplicate even events they ignore.
func ExtractButtonReply(event WebhookEvent) (*ButtonReply, string) {
	for _, entry := range event.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				if msg.Interactive == nil || msg.Interactive.ButtonReply == nil {
					continue
				}

				return &ButtonReply{
					ButtonID: msg.Interactive.ButtonReply.ID,
					Title:    msg.Interactive.ButtonReply.Title,
					From:     msg.From,
				}, msg.ID
			}
		}
	}

	for _, entry := range event.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				return nil, msg.ID
			}
		}
	}

	return nil, ""
}

func (c *clientImpl) SendText(ctx context.Context, phone, body string) error {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                phone,
		"type":              "text",
		"text": map[string]any{
			"body": body,
		},
	}

	return c.send(ctx, phone, payload)
}

func (c *clientImpl) SendButtons(ctx context.Context, phone, body string, buttons []Button) error {
	actions := make([]map[string]any, 0, len(buttons))

	for _, button := range buttons {
		actions = append(actions, map[string]any{
			"type": "reply",
			"reply": map[string]any{
				"id":    button.ID,
				"title": button.Title,
			},
		})
	}

	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                phone,
		"type":              "interactive",
		"interactive": map[string]any{
			"type": "button",
			"body": map[string]any{
				"text": body,
			},
			"action": map[string]any{
				"buttons": actions,
			},
		},
	}

	return c.send(ctx, phone, payload)
}

func (c *clientImpl) send(ctx context.Context, phone string, payload map[string]any) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.cfg.WhatsApp.APIURL, c.cfg.WhatsApp.PhoneNumberID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create message request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.WhatsApp.AccessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		respBody, _ := io.ReadAll(resp.Body)
		log.Error().
			Int("status", resp.StatusCode).
			Str("phone", phone).
			Str("body", string(respBody)).
			Msg("message delivery rejected by platform")

		return fmt.Errorf("message delivery failed with status %d", resp.StatusCode)
	}

	log.Info().Str("phone", phone).Msg("message delivered to platform")

	return nil
}
