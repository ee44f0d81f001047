package llm

import (
	"context"
	"time"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

type Result struct {
	Text     string
	Usage    Usage
	Duration time.Duration
}

type Request struct {
	Model string
	// System carries the persona instruction; it is not part of History.
	System string
	// History holds prior user/assistant pairs, oldest first, including
	// any few-shot examples prepended by the caller.
	History []Message
	Prompt  string
}

type Client interface {
	Generate(ctx context.Context, req Request) (Result, error)
}
