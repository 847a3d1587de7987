package service

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

	"go.uber.org/zap"

	"github.com/mrbrocoli/grocer/backend/internal/types"
)

const (
	defaultLLMAPIURL      = "https://api.groq.com/openai/v1/chat/completions"
	defaultLLMModel       = "llama3-8b-8192"
	defaultLLMMaxTokens   = 1000
	defaultLLMTemperature = 0.2
	defaultLLMTimeout     = 30 * time.Second
)

const planSystemPrompt = `You are Mr. Brocoli, a helpful grocery planning assistant. Given a user's dietary goal and budget, generate a grocery plan.

Respond ONLY with a JSON object, no markdown and no commentary, using exactly this structure:
{
  "summary": "Brief description of the grocery plan",
  "ingredients": [
    {
      "name": "Ingredient name",
      "quantity": "Amount needed, e.g. 1 lb",
      "price": "Estimated price in dollars, e.g. 5.99",
      "category": "One of: Protein, Vegetable, Grain, Dairy, Pantry, Herb/Spice, Fruit"
    }
  ],
  "totalCost": "Total estimated cost, e.g. 42.50",
  "tips": ["Helpful shopping or meal prep tips"]
}

Keep prices realistic and the total within the user's budget. If the budget is tight, suggest budget-friendly alternatives.`

// GenerationError reports a failed call to the text generation service
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return "plan generation failed: " + e.Err.Error()
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// IsGenerationError reports whether err is or wraps a GenerationError
func IsGenerationError(err error) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr)
}

// LLMConfig configures the text generation client
type LLMConfig struct {
	APIKey      string
	APIURL      string
	Model       string
	MaxTokens   int
	// Temperature is optional; nil selects the default. Zero is a valid setting.
	Temperature *float64
	Timeout     time.Duration
}

// Message represents a message in the chat
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request represents a chat completion request
type Request struct {
	Model          string            `json:"model"`
	Messages       []Message         `json:"messages"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
	Temperature    float64           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// LLMService requests grocery plans from an OpenAI-compatible chat
// completions API (Groq by default).
type LLMService struct {
	apiKey      string
	apiURL      string
	model       string
	maxTokens   int
	temperature float64
	timeout     time.Duration
	client      *http.Client
	logger      *zap.Logger
}

// NewLLMService creates a new LLMService instance
func NewLLMService(cfg LLMConfig, logger *zap.Logger) (*LLMService, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("LLM API key must be set")
	}
	if cfg.APIURL == "" {
		cfg.APIURL = defaultLLMAPIURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultLLMModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultLLMMaxTokens
	}
	temperature := defaultLLMTemperature
	if cfg.Temperature != nil {
		if *cfg.Temperature < 0 {
			return nil, fmt.Errorf("LLM temperature must not be negative")
		}
		temperature = *cfg.Temperature
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultLLMTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &LLMService{
		apiKey:      strings.TrimSpace(cfg.APIKey),
		apiURL:      cfg.APIURL,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: temperature,
		timeout:     cfg.Timeout,
		client:      &http.Client{},
		logger:      logger.Named("llm"),
	}, nil
}

// BuildPlanMessages returns the system and user messages for a plan request.
func BuildPlanMessages(prompt string, budget float64) []Message {
	user := fmt.Sprintf("My goal: %s\nMy budget: $%.2f (%s budget)\n\nPlease create a grocery plan for me.",
		strings.TrimSpace(prompt), budget, types.TierForBudget(budget))
	return []Message{
		{Role: "system", Content: planSystemPrompt},
		{Role: "user", Content: user},
	}
}

// RequestPlan asks the model for a grocery plan and returns the raw completion text.
func (s *LLMService) RequestPlan(ctx context.Context, prompt string, budget float64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	reqBody := Request{
		Model:    s.model,
		Messages: BuildPlanMessages(prompt, budget),
		ResponseFormat: map[string]string{
			"type": "json_object",
		},
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", &GenerationError{Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", &GenerationError{Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return "", &GenerationError{Err: fmt.Errorf("failed to send request: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &GenerationError{Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("completion request failed",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", truncate(body, 512)))
		return "", &GenerationError{Err: fmt.Errorf("API request failed with status %d", resp.StatusCode)}
	}

	var result chatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", &GenerationError{Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if len(result.Choices) == 0 {
		return "", &GenerationError{Err: fmt.Errorf("no response from API")}
	}

	content := result.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", &GenerationError{Err: fmt.Errorf("empty completion content")}
	}

	s.logger.Debug("completion received",
		zap.Duration("duration", time.Since(start)),
		zap.Int("content_length", len(content)))

	return content, nil
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
