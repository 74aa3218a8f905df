package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"universe-gateway/core/utils"
)

const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// maxResponseBytes 单次响应体读取上限
const maxResponseBytes = 4 << 20

// GeminiRESTGenerator 直接调用 Gemini REST generateContent 接口
type GeminiRESTGenerator struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewGeminiRESTGenerator(apiKey, baseURL string, client *http.Client) *GeminiRESTGenerator {
	if baseURL == "" {
		baseURL = DefaultGeminiBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &GeminiRESTGenerator{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
	}
}

// Generate 发送一次结构化输出请求，返回候选文本
func (g *GeminiRESTGenerator) Generate(ctx context.Context, instruction string, schema map[string]any, model string) (string, error) {
	req, err := g.buildRequest(ctx, instruction, schema, model)
	if err != nil {
		return "", err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read gemini response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		upErr := &UpstreamError{
			StatusCode: resp.StatusCode,
			Body:       string(bodyBytes),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
		var geminiErr GeminiErrorResponse
		if json.Unmarshal(bodyBytes, &geminiErr) == nil && geminiErr.Error.Message != "" {
			upErr.Body = geminiErr.Error.Message
		}
		return "", upErr
	}

	var geminiResp GeminiResponse
	if err := json.Unmarshal(bodyBytes, &geminiResp); err != nil {
		// 200 但响应体不是 Gemini 结构，把原文交给上层按格式错误处理
		return string(bodyBytes), nil
	}
	return candidateText(geminiResp), nil
}

func (g *GeminiRESTGenerator) buildRequest(ctx context.Context, instruction string, schema map[string]any, model string) (*http.Request, error) {
	responseSchema := utils.CloneSchema(schema)
	utils.SanitizeJSONSchema(responseSchema)
	utils.UpperCaseSchemaTypes(responseSchema)

	geminiReq := GeminiRequest{
		Contents: []GeminiContent{
			{Role: "user", Parts: []GeminiPart{{Text: instruction}}},
		},
		GenerationConfig: &GeminiConfig{
			CandidateCount:   1,
			ResponseMimeType: "application/json",
			ResponseSchema:   responseSchema,
		},
	}

	reqBodyBytes, err := json.Marshal(geminiReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal gemini request: %w", err)
	}

	u, err := url.Parse(fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, url.PathEscape(model)))
	if err != nil {
		return nil, fmt.Errorf("invalid upstream url: %w", err)
	}
	q := u.Query()
	q.Set("key", g.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(reqBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// candidateText 拼接第一个候选的文本片段，跳过 thinking 片段
func candidateText(resp GeminiResponse) string {
	if len(resp.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	return b.String()
}
