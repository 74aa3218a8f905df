package adapter

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// UpstreamError 上游返回非成功状态码
type UpstreamError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration // 0 表示上游没有给出
}

func (e *UpstreamError) Error() string {
	body := e.Body
	if len(body) > 300 {
		body = body[:300] + "...(truncated)"
	}
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, body)
}

// RateLimited 配额或限流
func (e *UpstreamError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// Unauthorized 凭证被拒绝
func (e *UpstreamError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// parseRetryAfter 只支持秒数形式的 Retry-After
func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
