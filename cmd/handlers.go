package main

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"universe-gateway/core"
	"universe-gateway/models"
)

const serviceName = "Universe Content Gateway"

// handleRoot 处理根路径请求
func handleRoot(s *server) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":    serviceName,
			"version": "1.0.0",
			"endpoints": gin.H{
				"feed":          "/api/feed",
				"cocreate":      "/api/cocreate",
				"content_types": "/api/content-types",
				"session":       "/ws/universe",
				"health":        "/health",
				"dashboard":     "/dashboard",
				"admin_stats":   "/admin/stats",
			},
			"configured": s.service.Configured(),
			"timestamp":  time.Now().Unix(),
		})
	}
}

// handleHealth 处理健康检查。未配置凭证仍然是健康的，只是只返回兜底内容
func handleHealth(s *server) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.HealthResponse{
			Status:     "healthy",
			Service:    serviceName,
			Configured: s.service.Configured(),
			Model:      s.service.Model(),
			Timestamp:  time.Now().Unix(),
		})
	}
}

// handleGetFeed GET /api/feed?interests=a,b
func handleGetFeed(s *server) gin.HandlerFunc {
	return func(c *gin.Context) {
		var interests []string
		for _, v := range c.QueryArray("interests") {
			interests = append(interests, strings.Split(v, ",")...)
		}
		nodes := s.service.GetFeed(c.Request.Context(), models.NormalizeInterests(interests))
		c.JSON(http.StatusOK, models.FeedResponse{Nodes: nodes})
	}
}

// handlePostFeed POST /api/feed，请求体可以为空
func handlePostFeed(s *server) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.FeedRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, models.NewErrorResponse("Invalid feed request: "+err.Error(), "invalid_request_error"))
			return
		}
		nodes := s.service.GetFeed(c.Request.Context(), models.NormalizeInterests(req.Interests))
		c.JSON(http.StatusOK, models.FeedResponse{Nodes: nodes})
	}
}

// handleCoCreate POST /api/cocreate，空 prompt 在这里拒绝，不会到达模型
func handleCoCreate(s *server) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CoCreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.NewErrorResponse("Invalid co-creation request: "+err.Error(), "invalid_request_error"))
			return
		}
		prompt := strings.TrimSpace(req.Prompt)
		if prompt == "" {
			c.JSON(http.StatusBadRequest, models.NewErrorResponse("prompt must not be empty", "invalid_request_error"))
			return
		}
		c.JSON(http.StatusOK, s.service.CoCreate(c.Request.Context(), prompt))
	}
}

// handleContentTypes 列出内容类型及图标
func handleContentTypes() gin.HandlerFunc {
	return func(c *gin.Context) {
		types := models.AllContentTypes()
		out := make([]models.ContentTypeInfo, 0, len(types))
		for _, t := range types {
			out = append(out, models.ContentTypeInfo{Type: t, Icon: t.Icon()})
		}
		c.JSON(http.StatusOK, gin.H{"types": out})
	}
}

// handleAdminStats 按 (kind, outcome) 聚合的生成统计
func handleAdminStats(s *server) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.db == nil {
			c.JSON(http.StatusServiceUnavailable, models.NewErrorResponse("Telemetry persistence is disabled", "unavailable_error"))
			return
		}

		stats, err := core.LoadOutcomeStats(s.db)
		if err != nil {
			c.JSON(http.StatusInternalServerError, models.NewErrorResponse("Failed to query stats: "+err.Error(), "server_error"))
			return
		}

		resp := models.AdminStatsResponse{
			Outcomes:  make([]models.AdminOutcomeStats, 0, len(stats)),
			Timestamp: time.Now().Unix(),
		}
		for _, st := range stats {
			resp.TotalRequests += st.RequestCount
			resp.Outcomes = append(resp.Outcomes, models.AdminOutcomeStats{
				Kind:          st.Kind,
				Outcome:       st.Outcome,
				RequestCount:  st.RequestCount,
				DroppedTotal:  st.DroppedTotal,
				FallbackCount: st.FallbackCount,
				AvgLatency:    st.AvgLatency(),
			})
		}
		c.JSON(http.StatusOK, resp)
	}
}

// handleAdminLogs 最近的生成日志，?limit= 默认 100
func handleAdminLogs(s *server) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.db == nil {
			c.JSON(http.StatusServiceUnavailable, models.NewErrorResponse("Telemetry persistence is disabled", "unavailable_error"))
			return
		}

		limit := 100
		if v := c.Query("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				c.JSON(http.StatusBadRequest, models.NewErrorResponse("invalid limit: must be a positive number", "invalid_request_error"))
				return
			}
			limit = n
		}

		logs, err := core.RecentGenerationLogs(s.db, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, models.NewErrorResponse("Failed to query logs: "+err.Error(), "server_error"))
			return
		}
		c.JSON(http.StatusOK, gin.H{"logs": logs, "count": len(logs)})
	}
}

// handleAdminCredential 查看凭证冷却状态
func handleAdminCredential(s *server) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.AdminCredentialResponse{
			Configured: s.service.Configured(),
			Status:     s.service.CredentialStatus(),
			Timestamp:  time.Now().Unix(),
		})
	}
}

// handleAdminResetCredential 解除 401/403 后的失效标记或 429 冷却
func handleAdminResetCredential(s *server) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.service.Configured() {
			c.JSON(http.StatusConflict, models.NewErrorResponse("No API key configured", "invalid_request_error"))
			return
		}
		s.service.ResetCredential()
		s.log.WithField("client_ip", c.ClientIP()).Info("Credential reset by admin")
		c.JSON(http.StatusOK, models.AdminCredentialResponse{
			Configured: true,
			Status:     s.service.CredentialStatus(),
			Timestamp:  time.Now().Unix(),
		})
	}
}
