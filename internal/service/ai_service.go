package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"quizforge_backend/internal/config"
	"quizforge_backend/pkg/monitoring"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	providerTimeout    = 90 * time.Second
	providerRetryDelay = time.Second
	defaultMaxTokens   = 4096
)

// AIService is the client for the OpenAI-compatible text-generation
// provider. It owns the generation prompt and the single bounded retry on
// transient failures; it persists nothing. Provider settings can be swapped
// at runtime by the config hot-reload watcher.
type AIService struct {
	mu     sync.RWMutex
	cfg    config.AIConfig
	client *openai.Client
	sleep  func(time.Duration)
}

func NewAIService(cfg config.AIConfig) *AIService {
	return &AIService{cfg: cfg, client: newProviderClient(cfg), sleep: time.Sleep}
}

func newProviderClient(cfg config.AIConfig) *openai.Client {
	if cfg.APIKey == "" {
		return nil
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientCfg)
}

// UpdateConfig replaces the provider settings. In-flight requests keep the
// client they started with.
func (s *AIService) UpdateConfig(cfg config.AIConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	s.client = newProviderClient(cfg)
}

func (s *AIService) snapshot() (*openai.Client, config.AIConfig) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client, s.cfg
}

// GenerateQuiz asks the provider for a quiz skeleton and returns its raw
// text output. The content must already be validated.
func (s *AIService) GenerateQuiz(ctx context.Context, mode GenerationMode, content string) (string, error) {
	client, cfg := s.snapshot()
	if client == nil {
		return "", ErrProviderMisconfigured
	}

	systemPrompt, userPrompt := buildGenerationPrompt(mode, content)

	return callWithRetry(ctx, s.sleep, func(ctx context.Context) (string, error) {
		return complete(ctx, client, cfg, systemPrompt, userPrompt)
	})
}

func complete(ctx context.Context, client *openai.Client, cfg config.AIConfig, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, providerTimeout)
	defer cancel()

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		MaxTokens:   maxTokens,
		Temperature: 0.7,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", classifyProviderError(err)
	}

	if len(resp.Choices) == 0 {
		return "", &ProviderError{Kind: ProviderUnavailable, Err: errors.New("provider returned no choices")}
	}

	return resp.Choices[0].Message.Content, nil
}

// classifyProviderError maps a raw provider failure onto the error taxonomy.
// Rate limiting and timeouts are transient; everything else fails fast.
func classifyProviderError(err error) *ProviderError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 429 {
			if code, ok := apiErr.Code.(string); ok && code == "insufficient_quota" {
				return &ProviderError{Kind: ProviderQuotaExceeded, Err: err}
			}
			return &ProviderError{Kind: ProviderRateLimited, Transient: true, Err: err}
		}
		return &ProviderError{Kind: ProviderUnavailable, Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &ProviderError{Kind: ProviderUnavailable, Transient: true, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &ProviderError{Kind: ProviderUnavailable, Transient: true, Err: err}
	}

	return &ProviderError{Kind: ProviderUnavailable, Err: err}
}

// callWithRetry runs fn and retries it exactly once, after a short delay,
// when the failure is transient. The policy lives here so it can be tested
// without a network.
func callWithRetry(ctx context.Context, sleep func(time.Duration), fn func(context.Context) (string, error)) (string, error) {
	out, err := fn(ctx)
	if err == nil {
		return out, nil
	}

	var provErr *ProviderError
	if !errors.As(err, &provErr) || !provErr.Transient {
		return "", err
	}

	monitoring.ProviderRetryCounter.Inc()
	sleep(providerRetryDelay)
	return fn(ctx)
}

func buildGenerationPrompt(mode GenerationMode, content string) (string, string) {
	system := fmt.Sprintf(
		"You are a quiz author. You produce multiple-choice quizzes as a single JSON object and nothing else: "+
			"no prose, no markdown, no code fences. The object has the fields \"title\" (string), "+
			"\"description\" (string) and \"questions\" (array). Each question has \"question\" (string), "+
			"\"explanation\" (string, may be empty) and \"options\" (array of exactly %d objects with "+
			"\"text\" (string) and \"isCorrect\" (boolean)). Produce exactly %d questions. "+
			"Exactly one option per question has isCorrect set to true.",
		OptionsPerQuestion, QuestionsPerQuiz,
	)

	var user string
	switch mode {
	case ModeTopic:
		user = fmt.Sprintf("Create a quiz about the following topic:\n\n%s", content)
	default:
		user = fmt.Sprintf("Create a quiz that tests comprehension of the following text:\n\n%s", content)
	}

	return system, user
}
