package classifier

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiProvider は google.golang.org/genai を使った Gemini 実装
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGemini は Gemini Developer API 向けのクライアントを生成する。apiKey が空なら Complete は ErrNotConfigured を返す。
func NewGemini(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	if model == "" {
		model = DefaultGeminiModel
	}
	if apiKey == "" {
		return &GeminiProvider{model: model}, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: new client: %w", err)
	}
	return &GeminiProvider{client: client, model: model}, nil
}

func (p *GeminiProvider) Name() string { return "gemini" }

// Complete は GenerateContent を呼び、応答テキストを返す
func (p *GeminiProvider) Complete(ctx context.Context, prompt Prompt) (string, error) {
	if p.client == nil {
		return "", ErrNotConfigured
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(prompt.Temperature)),
		ResponseMIMEType: "application/json",
	}
	if prompt.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(prompt.MaxTokens)
	}
	if prompt.Instruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(prompt.Instruction, genai.RoleUser)
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, []*genai.Content{genai.NewContentFromText(prompt.Text, genai.RoleUser)}, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("gemini: empty response")
	}
	return text, nil
}
