package digest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// ErrMissingCredentials signals that digest delivery is enabled without a
// bot token and chat id. Surfaced before any cycle work starts.
var ErrMissingCredentials = errors.New("telegram credentials missing")

const sendTimeout = 15 * time.Second

// TelegramSender posts digests through the Telegram bot API.
type TelegramSender struct {
	botToken string
	chatID   string
	client   *http.Client
}

// NewTelegramSender validates credentials up front.
func NewTelegramSender(botToken, chatID string) (*TelegramSender, error) {
	if botToken == "" || chatID == "" {
		return nil, ErrMissingCredentials
	}
	return &TelegramSender{
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: sendTimeout},
	}, nil
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send delivers the digest text. A failure here surfaces to the run caller
// but never undoes persisted trading decisions.
func (t *TelegramSender) Send(ctx context.Context, text string) error {
	payload, err := json.Marshal(sendMessageRequest{
		ChatID:                t.chatID,
		Text:                  text,
		DisableWebPagePreview: true,
	})
	if err != nil {
		return errors.Wrap(err, "encode telegram message")
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "build telegram request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "telegram send")
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	var out sendMessageResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return errors.Wrapf(err, "telegram response (status %d)", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK || !out.OK {
		return errors.Errorf("telegram send failed: status %d, %s", resp.StatusCode, out.Description)
	}
	return nil
}
