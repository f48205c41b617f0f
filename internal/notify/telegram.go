// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package notify delivers run progress and finished digests over
// Telegram. See docs/ARCHITECTURE § Delivery.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/pdiddy/digest-engine/internal/httputil"
	"github.com/pdiddy/digest-engine/pkg/types"
)

// telegramAPIBase is the Bot API root. Declared as a var so tests can
// substitute an httptest server.
var telegramAPIBase = "https://api.telegram.org"

// Telegram is a minimal Bot API client bound to one chat. It implements
// progress.Channel.
type Telegram struct {
	Client  *http.Client
	Token   string
	ChatID  int64
	Retries int
}

// NewTelegram builds a client from config.
func NewTelegram(cfg types.TelegramConfig) *Telegram {
	return &Telegram{
		Client: &http.Client{Timeout: 30 * time.Second},
		Token:  cfg.BotToken,
		ChatID: cfg.ChatID,
	}
}

// Send posts a new message to the chat and returns its message ID.
func (t *Telegram) Send(ctx context.Context, text string) (int64, error) {
	result, err := t.callJSON(ctx, "sendMessage", map[string]any{
		"chat_id": t.ChatID,
		"text":    text,
	})
	if err != nil {
		return 0, err
	}
	return result.MessageID, nil
}

// Edit replaces the text of a previously sent message.
func (t *Telegram) Edit(ctx context.Context, messageID int64, text string) error {
	_, err := t.callJSON(ctx, "editMessageText", map[string]any{
		"chat_id":    t.ChatID,
		"message_id": messageID,
		"text":       text,
	})
	return err
}

// SendDocument uploads content as an attached file with a caption. Used
// by the scheduler to deliver the finished digest.
func (t *Telegram) SendDocument(ctx context.Context, filename string, content []byte, caption string) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("chat_id", fmt.Sprintf("%d", t.ChatID)); err != nil {
		return fmt.Errorf("building upload: %w", err)
	}
	if caption != "" {
		if err := mw.WriteField("caption", caption); err != nil {
			return fmt.Errorf("building upload: %w", err)
		}
	}
	part, err := mw.CreateFormFile("document", filename)
	if err != nil {
		return fmt.Errorf("building upload: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return fmt.Errorf("building upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("building upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.methodURL("sendDocument"), bytes.NewReader(body.Bytes()))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	_, err = t.do(ctx, req)
	return err
}

func (t *Telegram) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", telegramAPIBase, t.Token, method)
}

// callJSON invokes a Bot API method with a JSON payload.
func (t *Telegram) callJSON(ctx context.Context, method string, payload map[string]any) (telegramMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return telegramMessage{}, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.methodURL(method), bytes.NewReader(body))
	if err != nil {
		return telegramMessage{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return t.do(ctx, req)
}

// do executes a Bot API request and decodes the standard response
// envelope. Throttled responses are retried by httputil.
func (t *Telegram) do(ctx context.Context, req *http.Request) (telegramMessage, error) {
	resp, err := httputil.DoWithRetry(ctx, t.Client, req, t.Retries)
	if err != nil {
		return telegramMessage{}, fmt.Errorf("telegram request: %w", err)
	}
	defer resp.Body.Close()

	var envelope telegramResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&envelope); err != nil {
		return telegramMessage{}, fmt.Errorf("decoding telegram response: %w", err)
	}
	if !envelope.OK {
		return telegramMessage{}, fmt.Errorf("telegram API error: %s", envelope.Description)
	}
	return envelope.Result, nil
}

// Telegram Bot API JSON structures.
type telegramResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      telegramMessage `json:"result"`
}

type telegramMessage struct {
	MessageID int64 `json:"message_id"`
}
