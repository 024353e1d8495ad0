package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// AnthropicVersion は Messages API の anthropic-version ヘッダーの値
const AnthropicVersion = "2023-06-01"

const (
	DefaultAnthropicModel   = "claude-sonnet-4-20250514"
	DefaultAnthropicBaseURL = "https://api.anthropic.com"
)

// AnthropicProvider は Messages API への raw HTTP クライアント実装
type AnthropicProvider struct {
	APIKey     string
	Model      string
	BaseURL    string
	httpClient *http.Client
}

// NewAnthropic は AnthropicProvider を生成する。タイムアウトは Service の context で掛ける。
func NewAnthropic(apiKey, model, baseURL string) *AnthropicProvider {
	if model == "" {
		model = DefaultAnthropicModel
	}
	if baseURL == "" {
		baseURL = DefaultAnthropicBaseURL
	}
	return &AnthropicProvider{
		APIKey:     apiKey,
		Model:      model,
		BaseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

// WithHTTPClient は差し替え用（テストで httptest サーバーを向ける）
func (p *AnthropicProvider) WithHTTPClient(hc *http.Client) *AnthropicProvider {
	p.httpClient = hc
	return p
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete は 1 メッセージを送り、最初のテキストブロックを返す
func (p *AnthropicProvider) Complete(ctx context.Context, prompt Prompt) (string, error) {
	if p.APIKey == "" {
		return "", ErrNotConfigured
	}

	maxTokens := prompt.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1000
	}
	jsonBody, err := json.Marshal(anthropicRequest{
		Model:       p.Model,
		MaxTokens:   maxTokens,
		Temperature: prompt.Temperature,
		System:      prompt.Instruction,
		Messages:    []anthropicMessage{{Role: "user", Content: prompt.Text}},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/v1/messages", bytes.NewReader(jsonBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.APIKey)
	req.Header.Set("anthropic-version", AnthropicVersion)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	var result anthropicResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("anthropic: HTTP %d: decode response: %w", resp.StatusCode, err)
	}
	if result.Error != nil {
		return "", fmt.Errorf("anthropic: HTTP %d %s: %s", resp.StatusCode, result.Error.Type, result.Error.Message)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("anthropic: HTTP %d", resp.StatusCode)
	}
	for _, block := range result.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", errors.New("anthropic: no text content in response")
}
