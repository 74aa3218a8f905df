package adapter

import (
	"context"
	"fmt"
	"net/http"
)

// Generator 与 core.Generator 方法集一致，adapter 包不反向依赖 core
type Generator interface {
	Generate(ctx context.Context, instruction string, schema map[string]any, model string) (string, error)
}

const (
	BackendGenAI = "genai"
	BackendREST  = "rest"
)

// New 按 backend 创建远端生成实现。apiKey 为空时返回 nil，由调用方按“未配置”处理
func New(ctx context.Context, backend, apiKey, baseURL string, client *http.Client) (Generator, error) {
	if apiKey == "" {
		return nil, nil
	}
	switch backend {
	case BackendREST:
		return NewGeminiRESTGenerator(apiKey, baseURL, client), nil
	case BackendGenAI, "":
		return NewGenAIGenerator(ctx, apiKey, baseURL, client)
	default:
		return nil, fmt.Errorf("unknown generator backend %q", backend)
	}
}
