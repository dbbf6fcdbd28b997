package llm

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/adhyaay-karnwal/athas/internal/metrics"
)

// InstrumentedModel wraps a Model and records latency, outcome and a short
// preview of every call.
type InstrumentedModel struct {
	Inner  Model
	Logger *zap.Logger
}

func NewInstrumentedModel(inner Model, logger *zap.Logger) *InstrumentedModel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstrumentedModel{Inner: inner, Logger: logger}
}

func (m *InstrumentedModel) Generate(ctx context.Context, prompt string, options *Options) (*Response, error) {
	start := time.Now()
	resp, err := m.Inner.Generate(ctx, prompt, options)
	m.observe("generate", start, len(prompt), resp, err)
	return resp, err
}

func (m *InstrumentedModel) Chat(ctx context.Context, messages []Message, options *Options) (*Response, error) {
	chars := 0
	for _, msg := range messages {
		chars += len(msg.Content)
	}
	start := time.Now()
	resp, err := m.Inner.Chat(ctx, messages, options)
	m.observe("chat", start, chars, resp, err)
	return resp, err
}

func (m *InstrumentedModel) observe(kind string, start time.Time, promptChars int, resp *Response, err error) {
	elapsed := time.Since(start)
	metrics.LLMDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	if err != nil {
		metrics.LLMRequests.WithLabelValues(kind, "error").Inc()
		m.Logger.Warn("llm call failed",
			zap.String("kind", kind),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return
	}
	metrics.LLMRequests.WithLabelValues(kind, "ok").Inc()
	fields := []zap.Field{
		zap.String("kind", kind),
		zap.Duration("elapsed", elapsed),
		zap.Int("prompt_chars", promptChars),
	}
	if resp != nil {
		fields = append(fields,
			zap.String("finish_reason", resp.FinishReason),
			zap.String("text_preview", clip(resp.Text, 256)))
	}
	m.Logger.Debug("llm call", fields...)
}

func clip(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}
