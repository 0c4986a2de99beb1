package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/salescoach-team/coaching-engine/pkg/callcontext"
	"github.com/salescoach-team/coaching-engine/pkg/config"
)

// CompletionClient is a minimal client for Groq-style chat completion calls
// used for live suggestion generation and sentiment classification.
type CompletionClient struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewCompletionClient creates a completion client using values from the
// provided config. Pass a nil config to fall back to environment variables.
func NewCompletionClient(cfg *config.AIConfig) *CompletionClient {
	var apiKey string
	if cfg != nil {
		apiKey = cfg.APIKey
	}
	if apiKey == "" {
		apiKey = os.Getenv("AI_API_KEY")
	}

	var base string
	if cfg != nil && cfg.BaseURL != "" {
		base = cfg.BaseURL
	} else {
		base = os.Getenv("AI_API_URL")
		if base == "" {
			base = "https://api.groq.com"
		}
	}

	model := "llama-3.1-70b-versatile"
	if cfg != nil && cfg.Model != "" {
		model = cfg.Model
	}

	timeout := 10 * time.Second
	if cfg != nil && cfg.RequestTimeout > 0 {
		timeout = cfg.RequestTimeout
	}

	return &CompletionClient{
		apiKey:  apiKey,
		baseURL: base,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

// ChatRequest is the shape for chat completion requests
type ChatRequest struct {
	Model       string      `json:"model,omitempty"`
	Messages    interface{} `json:"messages,omitempty"`
	Temperature float64     `json:"temperature,omitempty"`
	MaxTokens   int         `json:"max_tokens,omitempty"`
}

// ChatResponse is a minimal response shape
type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// SuggestionResult is the structured suggestion object the completion
// collaborator returns. NoSuggestion set means the model explicitly declined.
type SuggestionResult struct {
	NoSuggestion bool    `json:"no_suggestion"`
	Type         string  `json:"type"`
	Content      string  `json:"content"`
	Reasoning    string  `json:"reasoning"`
	Confidence   float64 `json:"confidence"`
	Priority     string  `json:"priority"`
}

// SentimentResult is the structured classifier response for one chunk.
type SentimentResult struct {
	Score      float64  `json:"score"`
	Label      string   `json:"label"`
	Confidence float64  `json:"confidence"`
	Emotions   []string `json:"emotions"`
}

const suggestionSystemPrompt = `You are a real-time sales call coach. Given the recent conversation, produce at most ONE actionable coaching suggestion for the sales rep.
Respond with JSON only:
{"no_suggestion": false, "type": "<question|objection_handler|talking_point|warning|encouragement|next_step>", "content": "<what the rep should say or do>", "reasoning": "<one sentence why>", "confidence": <0.0-1.0>, "priority": "<low|medium|high>"}
If nothing is worth suggesting right now, respond with {"no_suggestion": true}.`

const sentimentSystemPrompt = `You are a sentiment classifier for sales call fragments. Respond with JSON only:
{"score": <-1.0 to 1.0>, "label": "<positive|neutral|negative>", "confidence": <0.0-1.0>, "emotions": ["<emotion>", ...]}`

// GenerateSuggestion asks the completion service for one coaching suggestion
// over the provided conversation context.
func (c *CompletionClient) GenerateSuggestion(ctx context.Context, conversation string, hint string) (*SuggestionResult, error) {
	userPrompt := fmt.Sprintf("Recent conversation:\n%s", conversation)
	if hint != "" {
		userPrompt += fmt.Sprintf("\n\nThe rep asked for help with: %s", hint)
	}

	content, err := c.complete(ctx, suggestionSystemPrompt, userPrompt, 0.4, 500)
	if err != nil {
		return nil, err
	}

	var result SuggestionResult
	if err := json.Unmarshal([]byte(extractJSON(content)), &result); err != nil {
		return nil, fmt.Errorf("failed to parse suggestion response: %w", err)
	}
	return &result, nil
}

// ClassifySentiment classifies the emotional tone of a single transcript
// fragment. Callers substitute a neutral default on any error.
func (c *CompletionClient) ClassifySentiment(ctx context.Context, text string) (*SentimentResult, error) {
	content, err := c.complete(ctx, sentimentSystemPrompt, text, 0.0, 200)
	if err != nil {
		return nil, err
	}

	var result SentimentResult
	if err := json.Unmarshal([]byte(extractJSON(content)), &result); err != nil {
		return nil, fmt.Errorf("failed to parse sentiment response: %w", err)
	}
	if result.Score < -1 || result.Score > 1 {
		return nil, fmt.Errorf("sentiment score %f out of range", result.Score)
	}
	return &result, nil
}

// complete sends one chat completion request with a short retry on transient
// failures and returns the assistant content.
func (c *CompletionClient) complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64, maxTokens int) (string, error) {
	reqBody := ChatRequest{
		Model: c.model,
		Messages: []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	var content string
	operation := func() error {
		out, err := c.post(ctx, b)
		if err != nil {
			if callcontext.IsRetryable(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		content = out
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 300 * time.Millisecond
	policy.MaxInterval = 2 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, 2), ctx)); err != nil {
		return "", err
	}
	return content, nil
}

// post performs one HTTP round trip to the chat completion endpoint.
func (c *CompletionClient) post(ctx context.Context, b []byte) (string, error) {
	endpoint := c.baseURL + "/openai/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("completion service returned status %d", resp.StatusCode)
	}

	var cr ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", err
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("empty response from completion service")
	}
	return cr.Choices[0].Message.Content, nil
}

// extractJSON strips markdown code fences the model sometimes wraps around
// JSON responses.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		if idx := strings.LastIndex(content, "```"); idx != -1 {
			content = content[:idx]
		}
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		if idx := strings.LastIndex(content, "```"); idx != -1 {
			content = content[:idx]
		}
	}

	return strings.TrimSpace(content)
}
