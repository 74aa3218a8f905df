package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"
)

// GenAIGenerator 基于官方 google.golang.org/genai SDK 的实现
type GenAIGenerator struct {
	client *genai.Client
}

// NewGenAIGenerator baseURL 为空时使用 SDK 默认地址
func NewGenAIGenerator(ctx context.Context, apiKey, baseURL string, httpClient *http.Client) (*GenAIGenerator, error) {
	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GenAIGenerator{client: client}, nil
}

// Generate 以 JSON 模式 + responseSchema 调用 GenerateContent
func (g *GenAIGenerator) Generate(ctx context.Context, instruction string, schema map[string]any, model string) (string, error) {
	responseSchema, err := mapToGenaiSchema(schema)
	if err != nil {
		return "", fmt.Errorf("invalid response schema: %w", err)
	}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema,
	}

	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(instruction), config)
	if err != nil {
		return "", toUpstreamError(err)
	}
	return resp.Text(), nil
}

// toUpstreamError 把 SDK 的 APIError 统一为 UpstreamError，其他错误原样返回
func toUpstreamError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &UpstreamError{StatusCode: apiErr.Code, Body: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &UpstreamError{StatusCode: apiErrPtr.Code, Body: apiErrPtr.Message}
	}
	return fmt.Errorf("genai request failed: %w", err)
}
