package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/artemshloyda/rtconvert/internal/policy"
)

// DefaultTimeout - время ожидания ответа советника по умолчанию.
const DefaultTimeout = 10 * time.Second

// Config - параметры подключения к OpenAI-совместимому API.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// LLM - советник на основе языковой модели.
type LLM struct {
	model   llms.Model
	timeout time.Duration
	logger  *slog.Logger
}

// Option настраивает LLM.
type Option func(*LLM)

// WithTimeout задаёт время ожидания ответа.
func WithTimeout(d time.Duration) Option {
	return func(l *LLM) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithLogger задаёт логгер.
func WithLogger(logger *slog.Logger) Option {
	return func(l *LLM) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLLM создаёт советника поверх модели langchaingo.
func NewLLM(model llms.Model, opts ...Option) *LLM {
	l := &LLM{
		model:   model,
		timeout: DefaultTimeout,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewOpenAI создаёт советника для OpenAI-совместимого API.
func NewOpenAI(cfg Config, opts ...Option) (*LLM, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, &Error{Kind: ErrUnavailable, Err: errors.New("не задан API ключ")}
	}

	clientOpts := []openai.Option{openai.WithToken(apiKey)}
	if m := strings.TrimSpace(cfg.Model); m != "" {
		clientOpts = append(clientOpts, openai.WithModel(m))
	}
	if u := strings.TrimSpace(cfg.BaseURL); u != "" {
		clientOpts = append(clientOpts, openai.WithBaseURL(u))
	}

	model, err := openai.New(clientOpts...)
	if err != nil {
		return nil, &Error{Kind: ErrUnavailable, Err: fmt.Errorf("создание клиента: %w", err)}
	}

	return NewLLM(model, append([]Option{WithTimeout(cfg.Timeout)}, opts...)...), nil
}

// Recommend делает ровно один вызов модели и проверяет ответ.
func (l *LLM) Recommend(ctx context.Context, req Request) (policy.Recommendation, error) {
	if l == nil || l.model == nil {
		return policy.Recommendation{}, &Error{Kind: ErrUnavailable, Err: errors.New("модель не настроена")}
	}

	userPrompt, err := buildUserPrompt(req)
	if err != nil {
		return policy.Recommendation{}, &Error{Kind: ErrUnavailable, Err: err}
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, buildSystemPrompt()),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}

	content, err := l.generate(ctx, messages)
	if err != nil {
		return policy.Recommendation{}, err
	}

	rec, err := ParseResponse(content)
	if err != nil {
		l.logger.Warn("ответ советника отклонён", "error", err, "content", truncate(content, 200))
		return policy.Recommendation{}, err
	}

	l.logger.Debug("рекомендация советника",
		"file", req.FileName,
		"goal", req.Goal,
		"format", rec.Format,
		"quality", rec.Quality,
	)
	return rec, nil
}

// HealthCheck проверяет, что ключ и модель работают.
func (l *LLM) HealthCheck(ctx context.Context) error {
	if l == nil || l.model == nil {
		return &Error{Kind: ErrUnavailable, Err: errors.New("модель не настроена")}
	}

	content, err := l.generate(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, "You must respond with JSON only."),
		llms.TextParts(llms.ChatMessageTypeHuman, `Respond with {"ok":true}`),
	})
	if err != nil {
		return err
	}

	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &parsed); err != nil {
		return malformed("", fmt.Errorf("разбор ответа: %w", err))
	}
	if !parsed.OK {
		return malformed("ok", errors.New("неожиданный ответ"))
	}
	return nil
}

// generate выполняет один вызов модели с таймаутом и возвращает текст первого варианта.
func (l *LLM) generate(ctx context.Context, messages []llms.MessageContent) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	start := time.Now()
	resp, err := l.model.GenerateContent(ctx, messages,
		llms.WithJSONMode(),
		llms.WithTemperature(0),
	)
	l.logger.Debug("вызов советника", "duration", time.Since(start), "error", err)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", &Error{Kind: ErrTimeout, Err: err}
		}
		return "", &Error{Kind: ErrUnavailable, Err: err}
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return "", malformed("", errors.New("пустой список вариантов"))
	}
	return resp.Choices[0].Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
