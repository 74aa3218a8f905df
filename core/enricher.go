package core

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"universe-gateway/models"
)

const placeholderImageBase = "https://picsum.photos/400/300"

// globalRandom 使用 math/rand/v2 的全局源，并发安全
type globalRandom struct{}

func (globalRandom) Float64() float64 { return rand.Float64() }

// ResultEnricher 为模型输出补齐客户端字段：ID、布局坐标、占位图
type ResultEnricher struct {
	rnd    RandomSource
	now    func() time.Time
	logger *logrus.Logger

	mu        sync.Mutex
	lastStamp int64 // 上一批使用的毫秒时间戳，保证跨批次 ID 不冲突
}

// EnricherOption 配置 ResultEnricher
type EnricherOption func(*ResultEnricher)

// WithRandomSource 注入随机源 (测试用固定种子)
func WithRandomSource(r RandomSource) EnricherOption {
	return func(e *ResultEnricher) {
		e.rnd = r
	}
}

// WithClock 注入时钟
func WithClock(now func() time.Time) EnricherOption {
	return func(e *ResultEnricher) {
		e.now = now
	}
}

func NewResultEnricher(logger *logrus.Logger, opts ...EnricherOption) *ResultEnricher {
	e := &ResultEnricher{
		rnd:    globalRandom{},
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EnrichFeed 逐条校验并补齐字段，缺字段的记录被丢弃而不是让整批失败
// 返回补齐后的节点以及被丢弃的条数
func (e *ResultEnricher) EnrichFeed(records []models.RawNode) ([]models.UniverseNode, int) {
	stamp := e.nextStamp()
	nodes := make([]models.UniverseNode, 0, len(records))
	dropped := 0

	for i, raw := range records {
		if err := raw.Validate(); err != nil {
			dropped++
			e.logger.WithFields(logrus.Fields{
				"index":  i,
				"reason": err.Error(),
			}).Warn("Dropping incomplete generated record")
			continue
		}
		ct, _ := models.ParseContentType(*raw.Type)
		nodes = append(nodes, models.UniverseNode{
			ID:          fmt.Sprintf("node-%d-%d", stamp, i),
			Title:       *raw.Title,
			Description: *raw.Description,
			Type:        ct,
			Creator:     *raw.Creator,
			Color:       *raw.Color,
			Coordinates: models.Coordinates{
				X: e.rnd.Float64()*80 - 40,
				Y: e.rnd.Float64()*60 - 30,
				Z: e.rnd.Float64() * 20,
			},
			ImageURL: e.imageURL(i),
		})
	}

	if dropped > 0 {
		e.logger.WithFields(logrus.Fields{
			"dropped": dropped,
			"kept":    len(nodes),
		}).Warn("Generated batch had incomplete records")
	}
	return nodes, dropped
}

// imageURL 占位图按批内序号参数化，附加随机小数避免浏览器缓存命中同一张图
func (e *ResultEnricher) imageURL(index int) string {
	seed := float64(index) + e.rnd.Float64()
	return placeholderImageBase + "?random=" + strconv.FormatFloat(seed, 'f', 6, 64)
}

// nextStamp 返回严格递增的毫秒时间戳
func (e *ResultEnricher) nextStamp() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	stamp := e.now().UnixMilli()
	if stamp <= e.lastStamp {
		stamp = e.lastStamp + 1
	}
	e.lastStamp = stamp
	return stamp
}
