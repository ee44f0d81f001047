// Package relay implements the turn-processing pipeline: menu
// resolution, generation fallback, escalation, chunked paced delivery
// and history persistence for one inbound message.
package relay

import (
	"context"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zaprelay/zaprelay/conversation"
	"github.com/zaprelay/zaprelay/llm"
)

// Sender is the outbound transport capability the pipeline needs.
type Sender interface {
	SendText(ctx context.Context, to, text string) error
}

// Inbound is one qualifying webhook message handed to the pipeline.
type Inbound struct {
	SenderJID string
	MessageID string
	Text      string
}

// Outcome reports what one turn did, mostly for tests and logs.
type Outcome struct {
	Reply      string
	Decision   Decision
	ChunksSent int
	Aborted    bool
}

type Config struct {
	MaxLinesPerChunk int
	MaxCharsPerLine  int
	DelayMin         time.Duration
	DelayMax         time.Duration
	NotifyGroupID    string
	GenerateTimeout  time.Duration
}

// Service orchestrates a single conversation turn end to end. All
// collaborators are injected; configuration is immutable after New.
type Service struct {
	persona Persona
	history *conversation.Store
	gen     llm.Client
	sender  Sender
	cfg     Config
	logger  *slog.Logger
}

// NewService wires the pipeline. gen may be nil when no generation
// backend is configured; free-form turns then degrade to the apology
// reply while menu turns keep working.
func NewService(persona Persona, history *conversation.Store, gen llm.Client, sender Sender, cfg Config, logger *slog.Logger) *Service {
	if cfg.GenerateTimeout <= 0 {
		cfg.GenerateTimeout = 90 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		persona: persona,
		history: history,
		gen:     gen,
		sender:  sender,
		cfg:     cfg,
		logger:  logger,
	}
}

// ProcessTurn runs the whole pipeline for one inbound message. It never
// returns an error to the transport layer: every failure either
// degrades the reply or aborts the turn with a log line.
func (s *Service) ProcessTurn(ctx context.Context, in Inbound) Outcome {
	turnID := uuid.NewString()
	logger := s.logger.With("turn_id", turnID, "sender", DisplayNumber(in.SenderJID))

	history := s.history.Load(in.SenderJID)

	var reply string
	var decision Decision

	// Greeting wins over option match; both win over generation.
	if s.persona.Menu.IsGreeting(in.Text) {
		reply = s.persona.Menu.WelcomeMessage
		if reply != "" {
			logger.Info("menu_greeting", "keywords", len(s.persona.Menu.GreetingKeywords))
		}
	}
	if reply == "" {
		if key, ok := s.persona.Menu.MatchOption(in.Text); ok {
			if resp, found := s.persona.Menu.ResponseFor(key); found {
				reply = resp
				decision = s.persona.EvaluateMenu(key)
				logger.Info("menu_option_selected", "option", key, "escalate", decision.ShouldNotify)
			}
		}
	}
	if reply == "" {
		reply = s.generateReply(ctx, logger, in.Text, history)
		decision = s.persona.EvaluateReply(reply)
	}

	if strings.TrimSpace(reply) == "" {
		logger.Error("turn_aborted", "reason", "no reply produced")
		return Outcome{Aborted: true}
	}

	chunks := SplitMessage(reply, s.cfg.MaxLinesPerChunk, s.cfg.MaxCharsPerLine)
	sent := 0
	for i, chunk := range chunks {
		if err := s.sender.SendText(ctx, in.SenderJID, chunk); err != nil {
			// Remaining chunks are abandoned; pacing depends on order
			// and a stalled transport will not recover mid-turn.
			logger.Error("chunk_send_failed", "chunk", i+1, "chunks_total", len(chunks), "error", err.Error())
			break
		}
		sent++
		if i < len(chunks)-1 {
			if err := s.pace(ctx); err != nil {
				logger.Warn("pacing_interrupted", "error", err.Error())
				break
			}
		}
	}

	// The full intended reply is persisted even when delivery stopped
	// early, so the model sees what it already said.
	if _, err := s.history.Append(ctx, in.SenderJID, in.Text, reply); err != nil {
		logger.Error("history_append_failed", "error", err.Error())
	}

	if decision.ShouldNotify {
		s.notifyStaff(ctx, logger, in, decision)
	}

	logger.Info("turn_completed", "chunks_sent", sent, "chunks_total", len(chunks), "escalated", decision.ShouldNotify)
	return Outcome{Reply: reply, Decision: decision, ChunksSent: sent}
}

func (s *Service) generateReply(ctx context.Context, logger *slog.Logger, text string, history []conversation.Turn) string {
	if s.gen == nil {
		logger.Error("generate_unavailable", "reason", "no generation client configured")
		return s.persona.Apologies.notConfigured()
	}

	genCtx, cancel := context.WithTimeout(ctx, s.cfg.GenerateTimeout)
	defer cancel()

	messages := s.persona.FewShotHistory()
	for _, turn := range history {
		messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Text})
	}

	res, err := s.gen.Generate(genCtx, llm.Request{
		System:  s.persona.SystemPrompt(),
		History: messages,
		Prompt:  text,
	})
	if err != nil {
		logger.Error("generate_failed", "error", err.Error())
		return s.persona.Apologies.requestFailed()
	}
	// Blank output is a generation failure, not a skipped turn: the user
	// asked a question and still gets an answer.
	if strings.TrimSpace(res.Text) == "" {
		logger.Error("generate_empty_response")
		return s.persona.Apologies.emptyResponse()
	}
	logger.Debug("generate_ok", "tokens", res.Usage.TotalTokens, "duration", res.Duration.String())
	return res.Text
}

// pace sleeps a randomized delay between consecutive chunks so replies
// read as typed, not dumped.
func (s *Service) pace(ctx context.Context) error {
	min, max := s.cfg.DelayMin, s.cfg.DelayMax
	if max <= min {
		max = min
	}
	delay := min
	if span := int64(max - min); span > 0 {
		delay += time.Duration(rand.Int63n(span + 1))
	}
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// notifyStaff sends the escalation notice to the staff group. Failures
// are logged only; the notice never blocks or reverses the reply flow.
func (s *Service) notifyStaff(ctx context.Context, logger *slog.Logger, in Inbound, decision Decision) {
	if strings.TrimSpace(s.cfg.NotifyGroupID) == "" {
		logger.Warn("notify_skipped", "reason", "notify.group_id not configured")
		return
	}
	msg := NotificationMessage(in.SenderJID, in.Text, decision.ReasonLabel, time.Now())
	if err := s.sender.SendText(ctx, s.cfg.NotifyGroupID, msg); err != nil {
		logger.Error("notify_failed", "group", s.cfg.NotifyGroupID, "error", err.Error())
		return
	}
	logger.Info("notify_sent", "group", s.cfg.NotifyGroupID, "reason", decision.ReasonLabel)
}
