package view

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/HanzoRazer/emo-options-bot-sub000/internal/model"
)

const classifySystemPrompt = `You are a market view classifier for an options desk.
Given a natural-language market opinion, respond with a single JSON object:
{"symbol": "<ticker>", "outlook": "<bullish|bearish|neutral|volatile|range>",
 "confidence": <0.0-1.0>, "notes": "<one-sentence summary of the thesis>"}
If the text names a symbol, use it; otherwise use the hint symbol.
Respond with JSON only.`

// RemoteProvider classifies market views through a chat-completions gateway.
type RemoteProvider struct {
	endpoint    string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

// RemoteConfig contains configuration for the remote provider
type RemoteConfig struct {
	Endpoint    string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// NewRemoteProvider creates a provider backed by a chat-completions endpoint
func NewRemoteProvider(config RemoteConfig) *RemoteProvider {
	if config.Endpoint == "" {
		config.Endpoint = "http://localhost:8080/v1/chat/completions"
	}
	if config.Model == "" {
		config.Model = "claude-sonnet-4-20250514"
	}
	if config.Temperature == 0 {
		config.Temperature = 0.2
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 500
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}

	return &RemoteProvider{
		endpoint:    config.Endpoint,
		apiKey:      config.APIKey,
		model:       config.Model,
		temperature: config.Temperature,
		maxTokens:   config.MaxTokens,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// viewPayload is the JSON shape the provider is prompted to return.
type viewPayload struct {
	Symbol     string  `json:"symbol"`
	Outlook    string  `json:"outlook"`
	Confidence float64 `json:"confidence"`
	Notes      string  `json:"notes"`
}

// Classify sends the opinion text to the gateway and parses the structured view
func (p *RemoteProvider) Classify(ctx context.Context, text string, hint Hint) (*model.MarketView, error) {
	userPrompt := text
	if hint.Symbol != "" {
		userPrompt = fmt.Sprintf("Symbol hint: %s\n", hint.Symbol) + userPrompt
	}
	if hint.Horizon != "" {
		userPrompt = fmt.Sprintf("Horizon hint: %s\n", hint.Horizon) + userPrompt
	}

	request := chatRequest{
		Model:       p.model,
		Messages:    []chatMessage{{Role: "system", Content: classifySystemPrompt}, {Role: "user", Content: userPrompt}},
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.endpoint, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	log.Debug().
		Str("endpoint", p.endpoint).
		Str("model", p.model).
		Msg("Sending classification request")

	start := time.Now()
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if err := json.Unmarshal(body, &errResp); err != nil {
			return nil, fmt.Errorf("provider error (status %d): %s", resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("provider error: %s", errResp.Error.Message)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in provider response")
	}

	log.Debug().
		Str("model", chatResp.Model).
		Int("prompt_tokens", chatResp.Usage.PromptTokens).
		Int("completion_tokens", chatResp.Usage.CompletionTokens).
		Dur("duration", time.Since(start)).
		Msg("Classification request completed")

	var payload viewPayload
	content := extractJSONFromMarkdown(chatResp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse view payload: %w", err)
	}

	outlook := model.Outlook(strings.ToLower(strings.TrimSpace(payload.Outlook)))
	if !outlook.Valid() {
		return nil, fmt.Errorf("%w: unrecognized outlook %q", ErrFallbackRequired, payload.Outlook)
	}

	symbol := strings.ToUpper(strings.TrimSpace(payload.Symbol))
	if symbol == "" {
		symbol = strings.ToUpper(hint.Symbol)
	}
	if symbol == "" {
		return nil, fmt.Errorf("%w: provider returned no symbol", ErrFallbackRequired)
	}

	return &model.MarketView{
		Symbol:     symbol,
		Outlook:    outlook,
		Confidence: payload.Confidence,
		Notes:      payload.Notes,
		Source:     model.SourceProvider,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// extractJSONFromMarkdown extracts JSON from markdown code blocks
func extractJSONFromMarkdown(content string) string {
	start := -1

	contentBytes := []byte(content)
	if idx := bytes.Index(contentBytes, []byte("```json")); idx >= 0 {
		start = idx + 7
	} else if idx := bytes.Index(contentBytes, []byte("```")); idx >= 0 {
		start = idx + 3
	}

	if start >= 0 {
		if idx := bytes.Index(contentBytes[start:], []byte("```")); idx >= 0 {
			content = content[start : start+idx]
		}
	}

	return strings.TrimSpace(content)
}
