package models

import (
	"time"

	"gorm.io/gorm"
)

// GenerationLog 单次生成请求的遥测记录 (只记录结果元数据，不保存生成内容)
type GenerationLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	RequestID string    `json:"request_id,omitempty"`
	Kind      string    `gorm:"index" json:"kind"`    // feed / cocreate
	Outcome   string    `gorm:"index" json:"outcome"` // success / malformed / transport_failure / unconfigured / cooldown
	Model     string    `json:"model"`
	Duration  int64     `json:"duration"` // 毫秒
	Records   int       `json:"records"`
	Dropped   int       `json:"dropped"`
	Fallback  bool      `json:"fallback"`
	ErrorMsg  string    `json:"error_msg,omitempty"`
}

// OutcomeStats 按 (kind, outcome) 聚合的统计
type OutcomeStats struct {
	gorm.Model
	Kind          string  `gorm:"uniqueIndex:idx_kind_outcome;not null" json:"kind"`
	Outcome       string  `gorm:"uniqueIndex:idx_kind_outcome;not null" json:"outcome"`
	RequestCount  int64   `gorm:"default:0" json:"request_count"`
	DroppedTotal  int64   `gorm:"default:0" json:"dropped_total"`
	FallbackCount int64   `gorm:"default:0" json:"fallback_count"`
	TotalLatency  float64 `gorm:"default:0" json:"total_latency"` // 毫秒
}

// AvgLatency 平均延迟 (毫秒)
func (s OutcomeStats) AvgLatency() float64 {
	if s.RequestCount == 0 {
		return 0
	}
	return s.TotalLatency / float64(s.RequestCount)
}

// AutoMigrate 自动迁移遥测表结构
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&GenerationLog{},
		&OutcomeStats{},
	)
}
