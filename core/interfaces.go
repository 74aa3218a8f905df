package core

import (
	"context"
	"time"

	"universe-gateway/models"
)

// Generator 远端生成能力的抽象：输入指令与输出 schema，返回应为 JSON 的文本
// adapter 包中的 GenAI / REST 实现均满足该接口
type Generator interface {
	Generate(ctx context.Context, instruction string, schema map[string]any, model string) (string, error)
}

// KeyManager 抽象凭证状态管理
type KeyManager interface {
	IsAvailable(key string) bool
	MarkCooldown(key string, duration time.Duration)
	MarkDead(key string)
	MarkAvailable(key string)
	Status(key string) KeyStatusType
}

// OutcomeRecorder 生成结果遥测的接收方
type OutcomeRecorder interface {
	Record(entry *models.GenerationLog)
}

// RandomSource 可注入的随机源，用于坐标与图片合成
// *rand.Rand (math/rand/v2) 直接满足该接口
type RandomSource interface {
	Float64() float64
}

// ContentGateway 暴露给展示层的两个操作，均不会失败
type ContentGateway interface {
	GetFeed(ctx context.Context, interests []string) []models.UniverseNode
	CoCreate(ctx context.Context, prompt string) models.GeneratedContent
}
