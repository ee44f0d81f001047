// Package gemini implements llm.Client against the Generative Language
// API (models/{model}:generateContent).
package gemini

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

	"github.com/zaprelay/zaprelay/llm"
)

type Client struct {
	BaseURL string
	APIKey  string
	Model   string
	HTTP    *http.Client

	retryCount int
	backoff    time.Duration
}

func New(baseURL, apiKey, model string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		Model:      model,
		HTTP:       &http.Client{Timeout: timeout},
		retryCount: 2,
		backoff:    500 * time.Millisecond,
	}
}

type generateContentRequest struct {
	SystemInstruction *content  `json:"system_instruction,omitempty"`
	Contents          []content `json:"contents"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

func (c *Client) Generate(ctx context.Context, req llm.Request) (llm.Result, error) {
	if c.APIKey == "" {
		return llm.Result{}, errors.New("gemini: missing api key")
	}
	model := req.Model
	if model == "" {
		model = c.Model
	}
	if model == "" {
		return llm.Result{}, errors.New("gemini: missing model")
	}

	start := time.Now()
	body := buildRequest(req)

	var lastErr error
	for attempt := 0; attempt <= c.retryCount; attempt++ {
		res, err := c.doRequest(ctx, model, body)
		if err == nil {
			res.Duration = time.Since(start)
			return res, nil
		}
		if !shouldRetry(err) || attempt == c.retryCount {
			return llm.Result{}, err
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return llm.Result{}, ctx.Err()
		case <-time.After(c.backoff * time.Duration(attempt+1)):
		}
	}
	return llm.Result{}, fmt.Errorf("gemini request failed: %w", lastErr)
}

func buildRequest(req llm.Request) generateContentRequest {
	out := generateContentRequest{}
	if req.System != "" {
		out.SystemInstruction = &content{Parts: []part{{Text: req.System}}}
	}
	out.Contents = make([]content, 0, len(req.History)+1)
	for _, msg := range req.History {
		role := "user"
		if msg.Role == llm.RoleAssistant {
			// The API names the assistant side "model".
			role = "model"
		}
		out.Contents = append(out.Contents, content{Role: role, Parts: []part{{Text: msg.Content}}})
	}
	out.Contents = append(out.Contents, content{Role: "user", Parts: []part{{Text: req.Prompt}}})
	return out
}

func (c *Client) doRequest(ctx context.Context, model string, body generateContentRequest) (llm.Result, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return llm.Result{}, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.BaseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return llm.Result{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.APIKey)

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return llm.Result{}, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return llm.Result{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return llm.Result{}, &transientError{status: resp.StatusCode, body: string(raw)}
	}

	var out generateContentResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return llm.Result{}, fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode >= 300 {
		if out.Error != nil {
			return llm.Result{}, fmt.Errorf("gemini: %s (status %d)", out.Error.Message, resp.StatusCode)
		}
		return llm.Result{}, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(raw))
	}

	text := extractText(out)
	if strings.TrimSpace(text) == "" {
		return llm.Result{}, errors.New("gemini: empty candidates")
	}

	return llm.Result{
		Text: strings.TrimSpace(text),
		Usage: llm.Usage{
			InputTokens:  out.UsageMetadata.PromptTokenCount,
			OutputTokens: out.UsageMetadata.CandidatesTokenCount,
			TotalTokens:  out.UsageMetadata.TotalTokenCount,
		},
	}, nil
}

func extractText(out generateContentResponse) string {
	if len(out.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
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
