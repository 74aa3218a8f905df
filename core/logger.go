package core

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"universe-gateway/models"
)

// AsyncOutcomeLogger 异步遥测记录器：批量写入生成日志并更新聚合统计
type AsyncOutcomeLogger struct {
	db        *gorm.DB
	logChan   chan *models.GenerationLog
	logger    *logrus.Logger
	batchSize int
	flushTime time.Duration
	keepRows  int
	wg        sync.WaitGroup
	quit      chan struct{}
	closeOnce sync.Once
}

// NewAsyncOutcomeLogger 创建并启动后台写入 Worker
func NewAsyncOutcomeLogger(db *gorm.DB, logger *logrus.Logger) *AsyncOutcomeLogger {
	l := &AsyncOutcomeLogger{
		db:        db,
		logChan:   make(chan *models.GenerationLog, 1000), // 缓冲 1000 条
		logger:    logger,
		batchSize: 100,
		flushTime: 5 * time.Second,
		keepRows:  1000, // 只保留最新的 1000 条日志
		quit:      make(chan struct{}),
	}
	l.startWorker()
	return l
}

// Record 提交日志到队列，队列满或已关闭时丢弃，不阻塞请求
func (l *AsyncOutcomeLogger) Record(entry *models.GenerationLog) {
	select {
	case <-l.quit:
		return
	default:
	}
	select {
	case l.logChan <- entry:
	default:
		l.logger.Warn("Telemetry channel full, dropping generation log")
	}
}

func (l *AsyncOutcomeLogger) startWorker() {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.workerLoop()
	}()
}

func (l *AsyncOutcomeLogger) workerLoop() {
	var batch []*models.GenerationLog
	ticker := time.NewTicker(l.flushTime)
	defer ticker.Stop()

	for {
		select {
		case entry := <-l.logChan:
			batch = append(batch, entry)
			if len(batch) >= l.batchSize {
				l.flush(batch)
				batch = nil
			}
		case <-ticker.C:
			if len(batch) > 0 {
				l.flush(batch)
				batch = nil
			}
		case <-l.quit:
			// 退出前取完队列中剩余的日志
			for {
				select {
				case entry := <-l.logChan:
					batch = append(batch, entry)
				default:
					l.flush(batch)
					return
				}
			}
		}
	}
}

// flush 批量写入日志、裁剪旧记录、累加统计
func (l *AsyncOutcomeLogger) flush(entries []*models.GenerationLog) {
	if len(entries) == 0 {
		return
	}

	if err := l.db.CreateInBatches(entries, len(entries)).Error; err != nil {
		l.logger.Errorf("[Telemetry] Failed to flush generation logs: %v", err)
	}
	l.prune()

	type key struct{ kind, outcome string }
	deltas := make(map[key]*models.OutcomeStats)
	for _, e := range entries {
		k := key{e.Kind, e.Outcome}
		d, ok := deltas[k]
		if !ok {
			d = &models.OutcomeStats{Kind: e.Kind, Outcome: e.Outcome}
			deltas[k] = d
		}
		d.RequestCount++
		d.DroppedTotal += int64(e.Dropped)
		d.TotalLatency += float64(e.Duration)
		if e.Fallback {
			d.FallbackCount++
		}
	}

	for _, d := range deltas {
		err := l.db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "kind"}, {Name: "outcome"}},
			DoUpdates: clause.Assignments(map[string]any{
				"request_count":  gorm.Expr("request_count + ?", d.RequestCount),
				"dropped_total":  gorm.Expr("dropped_total + ?", d.DroppedTotal),
				"fallback_count": gorm.Expr("fallback_count + ?", d.FallbackCount),
				"total_latency":  gorm.Expr("total_latency + ?", d.TotalLatency),
				"updated_at":     time.Now(),
			}),
		}).Create(d).Error
		if err != nil {
			l.logger.Errorf("[Telemetry] Failed to update outcome stats %s/%s: %v", d.Kind, d.Outcome, err)
		}
	}
}

// prune 只保留最新的 keepRows 条日志
func (l *AsyncOutcomeLogger) prune() {
	var pivotID uint
	err := l.db.Model(&models.GenerationLog{}).
		Select("id").Order("id desc").Offset(l.keepRows).Limit(1).
		Scan(&pivotID).Error
	if err != nil || pivotID == 0 {
		return
	}
	if err := l.db.Where("id <= ?", pivotID).Delete(&models.GenerationLog{}).Error; err != nil {
		l.logger.Errorf("[Telemetry] Failed to prune generation logs: %v", err)
	}
}

// Close 刷新剩余日志并停止 Worker，可重复调用
func (l *AsyncOutcomeLogger) Close() {
	l.closeOnce.Do(func() {
		close(l.quit)
		l.wg.Wait()
	})
}

// LoadOutcomeStats 读取全部聚合统计
func LoadOutcomeStats(db *gorm.DB) ([]models.OutcomeStats, error) {
	var stats []models.OutcomeStats
	err := db.Order("kind, outcome").Find(&stats).Error
	return stats, err
}

// RecentGenerationLogs 读取最近的生成日志
func RecentGenerationLogs(db *gorm.DB, limit int) ([]models.GenerationLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var logs []models.GenerationLog
	err := db.Order("id desc").Limit(limit).Find(&logs).Error
	return logs, err
}
