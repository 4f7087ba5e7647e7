// Package ai implements the optional suggestion provider on top of an
// OpenAI-compatible chat completion API.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/wellspring-io/wellspring/engine"
)

// Config holds the suggestion provider configuration.
type Config struct {
	BaseURL           string
	APIKey            string
	ChatModel         string
	MaxRetries        int
	Timeout           time.Duration
	RequestsPerMinute int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:           "https://api.openai.com/v1",
		APIKey:            "",
		ChatModel:         "gpt-4o-mini",
		MaxRetries:        3,
		Timeout:           30 * time.Second,
		RequestsPerMinute: 30,
	}
}

// Provider generates recommendations through a chat completion model. It
// satisfies the engine's suggestion provider contract: every failure comes
// back as an error, never a panic, and the engine treats errors as "no
// suggestions".
type Provider struct {
	client  *openai.Client
	config  *Config
	limiter *rate.Limiter
}

var _ engine.SuggestionProvider = (*Provider)(nil)

// NewProvider creates a new suggestion provider.
func NewProvider(cfg *Config) (*Provider, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = "gpt-4o-mini"
	}
	if cfg.RequestsPerMinute == 0 {
		cfg.RequestsPerMinute = 30
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &Provider{
		client:  openai.NewClientWithConfig(clientConfig),
		config:  cfg,
		limiter: rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60), cfg.RequestsPerMinute),
	}, nil
}

func (p *Provider) GeneratePersonalized(ctx context.Context, input *engine.SuggestionInput) (*engine.SuggestionResult, error) {
	return p.generate(ctx, input, engine.CategoryActivity,
		"Suggest wellness activities this user is likely to complete, based on their interaction history and current context.")
}

func (p *Provider) GenerateContent(ctx context.Context, input *engine.SuggestionInput) (*engine.SuggestionResult, error) {
	return p.generate(ctx, input, engine.CategoryContent,
		"Suggest wellness content matched to this user's patterns, mood and time of day.")
}

func (p *Provider) GenerateAdaptations(ctx context.Context, input *engine.SuggestionInput) (*engine.SuggestionResult, error) {
	return p.generate(ctx, input, engine.CategoryContent,
		"Suggest context-specific adjustments for this user's current time of day and mood. Favor calming content for distress moods and late-night hours.")
}

func (p *Provider) GeneratePeers(ctx context.Context, input *engine.SuggestionInput) ([]engine.Recommendation, error) {
	result, err := p.generate(ctx, input, engine.CategoryPeer,
		"Suggest peer connections for this user. Each suggestion must carry a peerId.")
	if err != nil {
		return nil, err
	}
	peers := make([]engine.Recommendation, 0, len(result.Suggestions))
	for _, rec := range result.Suggestions {
		if rec.PeerID == "" {
			continue
		}
		peers = append(peers, rec)
	}
	return peers, nil
}

const systemPrompt = `You are the recommendation backend of a wellness app.
Respond with a single JSON object of the form
{"suggestions":[{"type":"...","score":0.0,"reason":"...","peerId":"..."}],"confidence":0.0}.
Scores and confidence are between 0 and 1. Use snake_case activity type names
such as breathing_exercise, meditation, gratitude_journal. peerId is only set
for peer suggestions. Do not include any text outside the JSON object.`

func (p *Provider) generate(ctx context.Context, input *engine.SuggestionInput, category engine.Category, instruction string) (*engine.SuggestionResult, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	payload, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to encode suggestion input: %w", err)
	}

	var content string
	err = p.doWithRetry(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()

		resp, err := p.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
			Model: p.config.ChatModel,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: instruction + "\n\nEngine state:\n" + string(payload)},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		})
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("empty chat response")
		}
		content = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("suggestion request failed: %w", err)
	}

	result, err := parseSuggestions(content, category)
	if err != nil {
		return nil, fmt.Errorf("malformed suggestion response: %w", err)
	}
	return result, nil
}

type rawSuggestion struct {
	Type   string  `json:"type"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
	PeerID string  `json:"peerId"`
}

type rawResponse struct {
	Suggestions []rawSuggestion `json:"suggestions"`
	Confidence  float64         `json:"confidence"`
}

// parseSuggestions decodes a model response into a suggestion result.
// Suggestions without a type are dropped; scores are clamped to [0,1].
func parseSuggestions(content string, category engine.Category) (*engine.SuggestionResult, error) {
	content = strings.TrimSpace(content)
	// Some models wrap JSON in a code fence despite instructions.
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var raw rawResponse
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &raw); err != nil {
		return nil, err
	}

	result := &engine.SuggestionResult{Confidence: clamp01(raw.Confidence)}
	for _, s := range raw.Suggestions {
		if s.Type == "" {
			continue
		}
		score := clamp01(s.Score)
		result.Suggestions = append(result.Suggestions, engine.Recommendation{
			Category:   category,
			Type:       s.Type,
			Score:      score,
			Reason:     s.Reason,
			Priority:   priorityForScore(score),
			Source:     engine.SourceAI,
			Confidence: clamp01(raw.Confidence),
			PeerID:     s.PeerID,
		})
	}
	return result, nil
}

func priorityForScore(score float64) engine.Priority {
	switch {
	case score >= 0.75:
		return engine.PriorityHigh
	case score >= 0.45:
		return engine.PriorityMedium
	default:
		return engine.PriorityLow
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// doWithRetry executes a function with exponential backoff retry.
func (p *Provider) doWithRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < p.config.MaxRetries; attempt++ {
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			if attempt < p.config.MaxRetries-1 {
				waitTime := time.Duration(math.Pow(2, float64(attempt))) * time.Second
				slog.Debug("suggestion request failed, retrying",
					"attempt", attempt+1,
					"wait_time", waitTime,
					"error", err)
				select {
				case <-time.After(waitTime):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
	return lastErr
}
