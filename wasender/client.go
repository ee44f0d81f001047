// Package wasender is a typed client for the WaSender WhatsApp API and
// the decoder for its webhook events.
package wasender

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// MediaKind selects the outbound message shape.
type MediaKind string

const (
	KindText     MediaKind = "text"
	KindImage    MediaKind = "image"
	KindVideo    MediaKind = "video"
	KindAudio    MediaKind = "audio"
	KindDocument MediaKind = "document"
)

var ErrMissingMediaURL = errors.New("wasender: media url required")

type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client

	retryCount int
	backoff    time.Duration
}

func New(baseURL, token string, maxRetries int) *Client {
	if baseURL == "" {
		baseURL = "https://www.wasenderapi.com"
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTP:       &http.Client{Timeout: 30 * time.Second},
		retryCount: maxRetries,
		backoff:    500 * time.Millisecond,
	}
}

type sendMessageRequest struct {
	To          string `json:"to"`
	Text        string `json:"text,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	VideoURL    string `json:"videoUrl,omitempty"`
	AudioURL    string `json:"audioUrl,omitempty"`
	DocumentURL string `json:"documentUrl,omitempty"`
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// FormatRecipient normalizes a JID for the send API: direct chats drop
// the @s.whatsapp.net suffix, group JIDs (@g.us) are kept whole.
func FormatRecipient(jid string) string {
	jid = strings.TrimSpace(jid)
	if strings.Contains(jid, "@s.whatsapp.net") {
		return strings.SplitN(jid, "@", 2)[0]
	}
	return jid
}

func (c *Client) SendText(ctx context.Context, to, text string) error {
	return c.send(ctx, sendMessageRequest{To: FormatRecipient(to), Text: text})
}

// SendMedia sends an image, video, audio or document message. Caption is
// ignored for kinds that do not carry one.
func (c *Client) SendMedia(ctx context.Context, to string, kind MediaKind, mediaURL, caption string) error {
	if kind == KindText {
		return c.SendText(ctx, to, caption)
	}
	if strings.TrimSpace(mediaURL) == "" {
		return fmt.Errorf("%w: kind %s", ErrMissingMediaURL, kind)
	}
	req := sendMessageRequest{To: FormatRecipient(to)}
	switch kind {
	case KindImage:
		req.ImageURL = mediaURL
		req.Text = caption
	case KindVideo:
		req.VideoURL = mediaURL
		req.Text = caption
	case KindAudio:
		req.AudioURL = mediaURL
	case KindDocument:
		req.DocumentURL = mediaURL
		req.Text = caption
	default:
		return fmt.Errorf("wasender: unsupported media kind %q", kind)
	}
	return c.send(ctx, req)
}

func (c *Client) send(ctx context.Context, body sendMessageRequest) error {
	if strings.TrimSpace(body.To) == "" {
		return errors.New("wasender: empty recipient")
	}
	var lastErr error
	for attempt := 0; attempt <= c.retryCount; attempt++ {
		err := c.doSend(ctx, body)
		if err == nil {
			return nil
		}
		if !shouldRetry(err) || attempt == c.retryCount {
			return err
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.backoff * time.Duration(attempt+1)):
		}
	}
	return fmt.Errorf("wasender send failed: %w", lastErr)
}

func (c *Client) doSend(ctx context.Context, body sendMessageRequest) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/send-message", bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return &transientError{status: resp.StatusCode, body: string(raw)}
	}
	if resp.StatusCode >= 300 {
		var env apiEnvelope
		if json.Unmarshal(raw, &env) == nil && env.Message != "" {
			return fmt.Errorf("wasender: %s (status %d)", env.Message, resp.StatusCode)
		}
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(raw))
	}
	return nil
}

// Group is one entry from the groups listing, used by operators to
// discover the staff notification group JID.
type Group struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (c *Client) Groups(ctx context.Context) ([]Group, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/groups", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(raw))
	}

	var env apiEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	var groups []Group
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &groups); err != nil {
			return nil, fmt.Errorf("decode groups: %w", err)
		}
	}
	return groups, nil
}

func shouldRetry(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	var te *transientError
	return errors.As(err, &te)
}

type transientError struct {
	status int
	body   string
}

func (e *transientError) Error() string {
	return fmt.Sprintf("transient status %d: %s", e.status, e.body)
}
