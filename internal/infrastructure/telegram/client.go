package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"BoardRelay/internal/domain"
	"BoardRelay/internal/ports"
)

const defaultAPIURL = "https://api.telegram.org"

// Client talks to the Telegram Bot API. Every outbound call waits on a
// shared rate limiter, so callers never need their own inter-call delays.
type Client struct {
	apiURL   string
	botToken string
	chatID   string
	client   *http.Client
	limiter  *rate.Limiter
	logger   *slog.Logger
}

var _ ports.Messenger = (*Client)(nil)

// NewClient registers bot token and chat identifier. sendInterval spaces
// consecutive API calls; zero falls back to one second.
func NewClient(apiURL, botToken, chatID string, sendInterval time.Duration, logger *slog.Logger) *Client {
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	if sendInterval <= 0 {
		sendInterval = time.Second
	}
	return &Client{
		apiURL:   strings.TrimSuffix(apiURL, "/"),
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 60 * time.Second},
		limiter:  rate.NewLimiter(rate.Every(sendInterval), 1),
		logger:   logger,
	}
}

// apiResult is the envelope every Bot API method returns.
type apiResult struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// SendText posts an HTML-formatted message to the configured chat.
func (c *Client) SendText(ctx context.Context, text string) error {
	if c.botToken == "" || c.chatID == "" {
		return fmt.Errorf("telegram client misconfigured")
	}

	form := url.Values{}
	form.Set("chat_id", c.chatID)
	form.Set("text", text)
	form.Set("parse_mode", "HTML")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.methodURL("sendMessage"), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.do(req, "sendMessage")
}

// SendMediaGroup posts a single media-group call with up to the transport
// batch limit of tagged items. Captions travel on the items themselves.
func (c *Client) SendMediaGroup(ctx context.Context, items []domain.MediaItem) error {
	if c.botToken == "" || c.chatID == "" {
		return fmt.Errorf("telegram client misconfigured")
	}
	if len(items) == 0 {
		return nil
	}

	type inputMedia struct {
		Type      string `json:"type"`
		Media     string `json:"media"`
		Caption   string `json:"caption,omitempty"`
		ParseMode string `json:"parse_mode,omitempty"`
	}

	media := make([]inputMedia, 0, len(items))
	for _, item := range items {
		m := inputMedia{Type: string(item.Type), Media: item.URL, Caption: item.Caption}
		if item.Caption != "" {
			m.ParseMode = "HTML"
		}
		media = append(media, m)
	}

	body, err := json.Marshal(map[string]any{
		"chat_id": c.chatID,
		"media":   media,
	})
	if err != nil {
		return fmt.Errorf("marshal media group: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.methodURL("sendMediaGroup"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, "sendMediaGroup")
}

// do executes one API call and classifies the outcome: transport failures
// surface as plain errors, API refusals and undecodable bodies as
// *ports.Rejection.
func (c *Client) do(req *http.Request, method string) error {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", method, err)
	}

	var result apiResult
	if err := json.Unmarshal(raw, &result); err != nil {
		c.warn(method, "malformed response", resp.StatusCode)
		return &ports.Rejection{Code: resp.StatusCode, Description: "malformed response body"}
	}
	if !result.OK {
		c.warn(method, result.Description, result.ErrorCode)
		return &ports.Rejection{Code: result.ErrorCode, Description: result.Description}
	}

	if c.logger != nil {
		c.logger.Debug("telegram call ok", "method", method)
	}
	return nil
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.apiURL, c.botToken, method)
}

func (c *Client) warn(method, desc string, code int) {
	if c.logger != nil {
		c.logger.Warn("telegram call rejected", "method", method, "code", code, "description", desc)
	}
}
