package ai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/benvon/trip-planner/internal/models"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"
)

const (
	// DefaultOpenAIModel is the default model to use
	DefaultOpenAIModel = "gpt-4o-mini"
	// DefaultOpenAIBaseURL is the default OpenAI API base URL
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout is the default timeout for API calls
	DefaultTimeout = 30 * time.Second

	// DefaultMaxOutputTokens bounds the generated response length
	DefaultMaxOutputTokens = 1000
	// DefaultTemperature is fixed so responses stay comparable across turns
	DefaultTemperature = 0.7

	systemMessage = "You are a travel-planning assistant guiding a user through " +
		"planning a trip. Continue the prior conversation naturally; never repeat " +
		"trip logistics the user already knows. Be concise and concrete."
)

// LiveModelProvider implements ResponseProvider against the OpenAI API
type LiveModelProvider struct {
	client          openai.Client
	model           string
	maxOutputTokens int
	temperature     float64
	logger          *zap.Logger
	debugMode       bool
}

// NewLiveModelProvider creates a live provider
func NewLiveModelProvider(apiKey string, model string) *LiveModelProvider {
	return NewLiveModelProviderWithLogger(apiKey, DefaultOpenAIBaseURL, model, nil, false)
}

// NewLiveModelProviderWithLogger creates a live provider with logger support
func NewLiveModelProviderWithLogger(apiKey string, baseURL string, model string, logger *zap.Logger, debugMode bool) *LiveModelProvider {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}

	httpClient := &http.Client{
		Timeout: DefaultTimeout,
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(httpClient),
	)

	return &LiveModelProvider{
		client:          client,
		model:           model,
		maxOutputTokens: DefaultMaxOutputTokens,
		temperature:     DefaultTemperature,
		logger:          logger,
		debugMode:       debugMode,
	}
}

// Generate sends the composed prompt to the completion endpoint
func (p *LiveModelProvider) Generate(ctx context.Context, prompt string, phase models.Phase) (*ModelResult, error) {
	requestID := ExtractRequestID(ctx)
	sessionID := ExtractSessionID(ctx)

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemMessage),
		openai.UserMessage(prompt),
	}

	req := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(p.model),
		Messages:    messages,
		MaxTokens:   openai.Int(int64(p.maxOutputTokens)),
		Temperature: openai.Float(p.temperature),
	}

	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_request",
			zap.String("operation", "generate"),
			zap.String("model", p.model),
			zap.String("phase", string(phase)),
			zap.Int("prompt_length", len(prompt)),
			zap.String("prompt_preview", SanitizePrompt(prompt, true)),
			zap.String("session_id", sessionID),
			zap.String("request_id", requestID),
		)
	}

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, req)
	latency := time.Since(start)

	if err != nil {
		if p.logger != nil && p.debugMode {
			p.logger.Debug("llm_api_error",
				zap.String("operation", "generate"),
				zap.String("model", p.model),
				zap.Error(err),
				zap.String("session_id", sessionID),
				zap.String("request_id", requestID),
				zap.Int64("latency_ms", latency.Milliseconds()),
			)
		}
		if apiErr := ExtractAPIError(err); apiErr != nil {
			return nil, fmt.Errorf("failed to generate response: %w", apiErr)
		}
		return nil, fmt.Errorf("failed to generate response: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, ErrNoChoicesInResponse
	}

	content := resp.Choices[0].Message.Content

	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_response",
			zap.String("operation", "generate"),
			zap.String("model", p.model),
			zap.Int("response_length", len(content)),
			zap.String("response_preview", SanitizeResponse(content, true)),
			zap.String("session_id", sessionID),
			zap.String("request_id", requestID),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}

	return &ModelResult{
		Text:       content,
		TokensUsed: int(resp.Usage.TotalTokens),
		Confidence: LiveConfidence,
		ModelUsed:  p.model,
	}, nil
}

// RegisterOpenAI registers the OpenAI provider with the registry
func RegisterOpenAI(registry *ProviderRegistry) {
	registry.Register("openai", func(config map[string]string) (ResponseProvider, error) {
		apiKey, ok := config["api_key"]
		if !ok || apiKey == "" {
			return nil, fmt.Errorf("openai api_key is required")
		}

		model := config["model"]
		baseURL := config["base_url"]

		return NewLiveModelProviderWithLogger(apiKey, baseURL, model, nil, false), nil
	})
}

var _ ResponseProvider = (*LiveModelProvider)(nil)
