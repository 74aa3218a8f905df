package models

import "strings"

// FeedRequest POST /api/feed 请求体
type FeedRequest struct {
	Interests []string `json:"interests" binding:"omitempty,max=20,dive,max=64"`
}

// FeedResponse Feed 响应
type FeedResponse struct {
	Nodes []UniverseNode `json:"nodes"`
}

// MaxPromptLength 共创 prompt 的最大字符数，需与 CoCreateRequest 的 binding 标签一致
const MaxPromptLength = 2000

// CoCreateRequest POST /api/cocreate 请求体
type CoCreateRequest struct {
	Prompt string `json:"prompt" binding:"required,max=2000"`
}

// SessionFrame WebSocket 会话中的请求/响应帧
type SessionFrame struct {
	Type      string            `json:"type"` // feed / cocreate / error / busy
	Interests []string          `json:"interests,omitempty"`
	Prompt    string            `json:"prompt,omitempty"`
	Nodes     []UniverseNode    `json:"nodes,omitempty"`
	Content   *GeneratedContent `json:"content,omitempty"`
	Message   string            `json:"message,omitempty"`
}

// ContentTypeInfo 内容类型描述
type ContentTypeInfo struct {
	Type ContentType `json:"type"`
	Icon string      `json:"icon"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail 错误详情
type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status     string `json:"status"`
	Service    string `json:"service"`
	Configured bool   `json:"configured"`
	Model      string `json:"model"`
	Timestamp  int64  `json:"timestamp"`
}

// AdminStatsResponse 管理员统计响应
type AdminStatsResponse struct {
	Outcomes      []AdminOutcomeStats `json:"outcomes"`
	TotalRequests int64               `json:"total_requests"`
	Timestamp     int64               `json:"timestamp"`
}

// AdminOutcomeStats 单个 (kind, outcome) 的统计
type AdminOutcomeStats struct {
	Kind          string  `json:"kind"`
	Outcome       string  `json:"outcome"`
	RequestCount  int64   `json:"request_count"`
	DroppedTotal  int64   `json:"dropped_total"`
	FallbackCount int64   `json:"fallback_count"`
	AvgLatency    float64 `json:"avg_latency"`
}

// AdminCredentialResponse 凭证状态
type AdminCredentialResponse struct {
	Configured bool   `json:"configured"`
	Status     string `json:"status"`
	Timestamp  int64  `json:"timestamp"`
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(message, errType string) ErrorResponse {
	return ErrorResponse{
		Error: ErrorDetail{Message: message, Type: errType},
	}
}

// NormalizeInterests 清理兴趣标签：去空白、去空项、去重（保持顺序）
func NormalizeInterests(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[strings.ToLower(s)] {
			continue
		}
		seen[strings.ToLower(s)] = true
		out = append(out, s)
	}
	return out
}
