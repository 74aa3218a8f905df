package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"universe-gateway/core/adapter"
	"universe-gateway/core/utils"
)

var (
	ErrNotConfigured  = errors.New("generative capability not configured")
	ErrCredentialHeld = errors.New("credential in cooldown or rejected")
	ErrEmptyResponse  = errors.New("empty response from model")
	ErrSchemaMismatch = errors.New("response does not match schema")
)

// defaultCooldown 429 且上游未给出 Retry-After 时的冷却时长
const defaultCooldown = 30 * time.Second

// NewHTTPClient 创建出站 HTTP Client，超时由请求 Context 控制
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 0,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 60 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   20,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   5 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// OutcomeKind 一次远端调用的结果分类
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeMalformed
	OutcomeTransportFailure
	OutcomeUnconfigured
	OutcomeCooldown
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeMalformed:
		return "malformed"
	case OutcomeTransportFailure:
		return "transport_failure"
	case OutcomeUnconfigured:
		return "unconfigured"
	case OutcomeCooldown:
		return "cooldown"
	default:
		return "unknown"
	}
}

// Outcome 内部结果，不暴露给展示层
type Outcome struct {
	Kind    OutcomeKind
	Payload json.RawMessage // 仅 Success 时有值，已通过 schema 形状校验
	Err     error
	Latency time.Duration
}

// GenerativeClient 单次请求远端能力，强制 JSON 输出并做形状校验。不重试
type GenerativeClient struct {
	generator    Generator
	keyManager   KeyManager
	credentialID string
	timeout      time.Duration
	logger       *logrus.Logger
}

// NewGenerativeClient generator 为 nil 表示未配置凭证
func NewGenerativeClient(generator Generator, apiKey string, km KeyManager, timeout time.Duration, logger *logrus.Logger) *GenerativeClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if km == nil {
		km = NewKeyStateManager()
	}
	return &GenerativeClient{
		generator:    generator,
		keyManager:   km,
		credentialID: credentialID(apiKey),
		timeout:      timeout,
		logger:       logger,
	}
}

// Configured 是否存在可用的远端能力
func (c *GenerativeClient) Configured() bool {
	return c.generator != nil
}

// CredentialStatus 当前凭证的冷却状态
func (c *GenerativeClient) CredentialStatus() KeyStatusType {
	return c.keyManager.Status(c.credentialID)
}

// ResetCredential 清除冷却或失效标记，下一次请求会重新访问上游
func (c *GenerativeClient) ResetCredential() {
	c.keyManager.MarkAvailable(c.credentialID)
	c.logger.Info("Credential state reset")
}

// Execute 执行一次请求并分类结果
func (c *GenerativeClient) Execute(ctx context.Context, spec RequestSpec) Outcome {
	entry := c.logger.WithFields(logrus.Fields{
		"kind":       spec.Kind,
		"model":      spec.Model,
		"request_id": RequestIDFrom(ctx),
	})

	if c.generator == nil {
		entry.Warn("No API key configured, skipping remote generation")
		return Outcome{Kind: OutcomeUnconfigured, Err: ErrNotConfigured}
	}
	if !c.keyManager.IsAvailable(c.credentialID) {
		entry.Warn("Credential in cooldown or rejected, skipping remote generation")
		return Outcome{Kind: OutcomeCooldown, Err: ErrCredentialHeld}
	}

	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	text, err := c.generator.Generate(callCtx, spec.Instruction, spec.Schema, spec.Model)
	latency := time.Since(start)
	if errors.Is(err, ErrCircuitOpen) {
		entry.Warn("Circuit breaker open, skipping remote generation")
		return Outcome{Kind: OutcomeCooldown, Err: err, Latency: latency}
	}
	if err != nil {
		c.observeFailure(err)
		entry.WithError(err).WithField("latency", latency).Error("Generative request failed")
		return Outcome{Kind: OutcomeTransportFailure, Err: err, Latency: latency}
	}

	payload, err := parsePayload(text, spec.Schema)
	if err != nil {
		entry.WithError(err).WithField("latency", latency).Warn("Malformed generative response")
		return Outcome{Kind: OutcomeMalformed, Err: err, Latency: latency}
	}

	entry.WithField("latency", latency).Debug("Generative request succeeded")
	return Outcome{Kind: OutcomeSuccess, Payload: payload, Latency: latency}
}

// observeFailure 根据上游状态码更新凭证状态
func (c *GenerativeClient) observeFailure(err error) {
	var upErr *adapter.UpstreamError
	if !errors.As(err, &upErr) {
		return
	}
	switch {
	case upErr.RateLimited():
		d := upErr.RetryAfter
		if d <= 0 {
			d = defaultCooldown
		}
		c.keyManager.MarkCooldown(c.credentialID, d)
		c.logger.Warnf("Credential rate limited, cooling down for %v", d)
	case upErr.Unauthorized():
		c.keyManager.MarkDead(c.credentialID)
		c.logger.Errorf("Credential rejected by upstream (status %d), disabling remote generation", upErr.StatusCode)
	}
}

// parsePayload 清理并解析响应文本，按 schema 检查形状
func parsePayload(text string, schema map[string]any) (json.RawMessage, error) {
	cleaned := utils.ExtractJSON(text)
	if cleaned == "" {
		return nil, ErrEmptyResponse
	}
	var v any
	if err := json.Unmarshal([]byte(cleaned), &v); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if err := validateShape(schema, v); err != nil {
		return nil, err
	}
	return json.RawMessage(cleaned), nil
}

// validateShape 最低要求是字段存在，不做完整的类型检查
// 数组元素的必填字段交给 ResultEnricher 逐条处理
func validateShape(schema map[string]any, v any) error {
	switch schema["type"] {
	case "array":
		if _, ok := v.([]any); !ok {
			return fmt.Errorf("%w: expected array, got %s", ErrSchemaMismatch, jsonKind(v))
		}
	case "object":
		obj, ok := v.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: expected object, got %s", ErrSchemaMismatch, jsonKind(v))
		}
		for _, name := range utils.RequiredFields(schema) {
			if val, ok := obj[name]; !ok || val == nil {
				return fmt.Errorf("%w: missing required field %q", ErrSchemaMismatch, name)
			}
		}
	}
	return nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// credentialID 凭证指纹，避免在内存状态表里保存明文
func credentialID(apiKey string) string {
	if apiKey == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:6])
}
