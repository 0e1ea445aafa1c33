package policy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/policysimplify/internal/config"
)

// Default truncation limits, in characters, for text sent to the model.
const (
	DefaultSummaryMaxChars   = 12000
	DefaultChecklistMaxChars = 10000
	DefaultRiskMaxChars      = 8000
)

// Limits caps how much policy text each prompt carries.
type Limits struct {
	SummaryMaxChars   int
	ChecklistMaxChars int
	RiskMaxChars      int
}

// Analyst produces the plain-English outputs shown on a policy card.
type Analyst struct {
	chat   ChatClient
	limits Limits
	logger *zap.Logger
}

// Option configures an Analyst.
type Option func(*Analyst)

// WithLogger sets the analyst logger.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Analyst) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithLimits overrides the truncation limits. Non-positive values keep the default.
func WithLimits(l Limits) Option {
	return func(a *Analyst) {
		if l.SummaryMaxChars > 0 {
			a.limits.SummaryMaxChars = l.SummaryMaxChars
		}
		if l.ChecklistMaxChars > 0 {
			a.limits.ChecklistMaxChars = l.ChecklistMaxChars
		}
		if l.RiskMaxChars > 0 {
			a.limits.RiskMaxChars = l.RiskMaxChars
		}
	}
}

// NewAnalyst creates an analyst on top of chat.
func NewAnalyst(chat ChatClient, opts ...Option) *Analyst {
	a := &Analyst{
		chat: chat,
		limits: Limits{
			SummaryMaxChars:   DefaultSummaryMaxChars,
			ChecklistMaxChars: DefaultChecklistMaxChars,
			RiskMaxChars:      DefaultRiskMaxChars,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// New builds an Analyst backed by OpenAIChat from configuration.
func New(cfg config.LLMConfig, logger *zap.Logger) (*Analyst, error) {
	chat, err := NewOpenAIChat(ChatConfig{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Timeout:     time.Duration(cfg.TimeoutSecs) * time.Second,
		Temperature: cfg.Temperature,
		MaxRetries:  2,
	})
	if err != nil {
		return nil, err
	}
	return NewAnalyst(chat,
		WithLogger(logger),
		WithLimits(Limits{
			SummaryMaxChars:   cfg.SummaryMaxChars,
			ChecklistMaxChars: cfg.ChecklistMaxChars,
			RiskMaxChars:      cfg.RiskMaxChars,
		}),
	), nil
}

// Summarize returns bullet-point summary text for the policy.
func (a *Analyst) Summarize(ctx context.Context, text string) (string, error) {
	user := "POLICY TEXT (truncated):\n" + truncate(text, a.limits.SummaryMaxChars)
	out, err := a.complete(ctx, "summary", summarySystem, user)
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	return out, nil
}

// Checklist returns compliance checklist bullets derived from the text and its summary.
func (a *Analyst) Checklist(ctx context.Context, text, summary string) (string, error) {
	user := "POLICY TEXT (truncated):\n" + truncate(text, a.limits.ChecklistMaxChars) +
		"\n\nSUMMARY:\n" + summary +
		"\n\nReturn a concise checklist as bullet points."
	out, err := a.complete(ctx, "checklist", checklistSystem, user)
	if err != nil {
		return "", fmt.Errorf("checklist: %w", err)
	}
	return out, nil
}

// AssessRisk returns the raw risk note: a label line followed by a short reason.
func (a *Analyst) AssessRisk(ctx context.Context, text, summary string) (string, error) {
	user := "POLICY TEXT (truncated):\n" + truncate(text, a.limits.RiskMaxChars) +
		"\n\nSUMMARY:\n" + summary
	out, err := a.complete(ctx, "risk", riskSystem, user)
	if err != nil {
		return "", fmt.Errorf("assess risk: %w", err)
	}
	return out, nil
}

// Answer replies to question using only the given context snippets.
func (a *Analyst) Answer(ctx context.Context, snippets []string, question string) (string, error) {
	var b strings.Builder
	b.WriteString("CONTEXT:\n")
	for i, s := range snippets {
		fmt.Fprintf(&b, "[%d] %s\n\n", i+1, strings.TrimSpace(s))
	}
	b.WriteString("QUESTION:\n")
	b.WriteString(strings.TrimSpace(question))
	out, err := a.complete(ctx, "answer", answerSystem, b.String())
	if err != nil {
		return "", fmt.Errorf("answer: %w", err)
	}
	return out, nil
}

func (a *Analyst) complete(ctx context.Context, kind, system, user string) (string, error) {
	start := time.Now()
	out, err := a.chat.Complete(ctx, system, user)
	if err != nil {
		a.logger.Warn("chat completion failed", zap.String("kind", kind), zap.Error(err))
		return "", err
	}
	a.logger.Debug("chat completion",
		zap.String("kind", kind),
		zap.Int("prompt_chars", len(user)),
		zap.Duration("took", time.Since(start)))
	return out, nil
}

// truncate keeps at most n runes of s.
func truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
