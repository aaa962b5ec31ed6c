// Package notify announces dashboard commands to an operator chat.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"time"
)

const apiBase = "https://api.telegram.org"

// APIError is a non-200 answer from the Bot API.
type APIError struct {
	StatusCode  int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram: status %d: %s", e.StatusCode, e.Description)
}

// Notifier posts HTML messages to one Telegram chat.
type Notifier struct {
	botToken   string
	chatID     string
	httpClient *http.Client
	enabled    bool
	baseURL    string
}

// NewNotifier returns a Notifier that is disabled unless both botToken and
// chatID are set.
func NewNotifier(botToken, chatID string) *Notifier {
	return &Notifier{
		botToken:   botToken,
		chatID:     chatID,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		enabled:    botToken != "" && chatID != "",
		baseURL:    apiBase,
	}
}

func (n *Notifier) Enabled() bool { return n.enabled }

type sendMessage struct {
	ChatID              string `json:"chat_id"`
	Text                string `json:"text"`
	ParseMode           string `json:"parse_mode"`
	DisablePreview      bool   `json:"disable_web_page_preview"`
	DisableNotification bool   `json:"disable_notification,omitempty"`
}

// Send posts text to the chat with an audible notification.
func (n *Notifier) Send(ctx context.Context, text string) error {
	return n.send(ctx, text, false)
}

func (n *Notifier) send(ctx context.Context, text string, silent bool) error {
	if !n.enabled {
		return nil
	}
	payload, err := json.Marshal(sendMessage{
		ChatID:              n.chatID,
		Text:                text,
		ParseMode:           "HTML",
		DisablePreview:      true,
		DisableNotification: silent,
	})
	if err != nil {
		return fmt.Errorf("telegram: encode message: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("telegram: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: deliver to chat %s: %w", n.chatID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var body struct {
			Description string `json:"description"`
		}
		if json.NewDecoder(resp.Body).Decode(&body) == nil {
			apiErr.Description = body.Description
		}
		return apiErr
	}
	return nil
}

// NotifyCommand announces an accepted trading command. Pauses are delivered
// silently; start and stop ring the chat.
func (n *Notifier) NotifyCommand(ctx context.Context, action, message, commandID string) error {
	text := fmt.Sprintf("<b>Dashboard: %s</b>\n%s\nCommand: <code>%s</code>",
		html.EscapeString(action), html.EscapeString(message), html.EscapeString(commandID))
	return n.send(ctx, text, action == "pause")
}
