package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ipsco/fleet/modules/notifications/domain/notification"
)

const maxResponseBody = 64 << 10

type whatsAppPayload struct {
	To   string `json:"to"`
	Type string `json:"type"`
	Body string `json:"body"`
}

// WhatsAppSender posts messages to an HTTP messaging gateway.
type WhatsAppSender struct {
	url    string
	token  string
	client *http.Client
}

func NewWhatsAppSender(url, token string, client *http.Client) *WhatsAppSender {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &WhatsAppSender{url: url, token: token, client: client}
}

func (s *WhatsAppSender) Channel() notification.Channel {
	return notification.ChannelWhatsApp
}

func (s *WhatsAppSender) Send(ctx context.Context, address string, msg notification.Message) (string, error) {
	jsonData, err := json.Marshal(whatsAppPayload{
		To:   strings.TrimPrefix(address, "+"),
		Type: "text",
		Body: notification.WhatsAppBody(msg),
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return "", err
	}
	raw := strings.TrimSpace(string(body))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return raw, fmt.Errorf("whatsapp gateway returned status %d", resp.StatusCode)
	}
	return raw, nil
}
