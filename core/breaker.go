package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// ErrCircuitOpen 熔断器打开，请求未发出
var ErrCircuitOpen = errors.New("circuit breaker open")

// BreakerConfig 熔断参数。连续失败 Failures 次后打开，OpenTimeout 后半开试探
type BreakerConfig struct {
	Failures    uint32
	OpenTimeout time.Duration
}

// BreakerGenerator 给 Generator 加熔断：上游持续失败时直接短路，不再等待超时
type BreakerGenerator struct {
	next Generator
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerGenerator(next Generator, cfg BreakerConfig, logger *logrus.Logger) *BreakerGenerator {
	if cfg.Failures == 0 {
		cfg.Failures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	return &BreakerGenerator{
		next: next,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "generator",
			MaxRequests: 1,
			Timeout:     cfg.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= cfg.Failures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.WithFields(logrus.Fields{
					"breaker": name,
					"from":    from.String(),
					"to":      to.String(),
				}).Warn("Circuit breaker state changed")
			},
			// 调用方主动取消不算上游故障
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
		}),
	}
}

func (b *BreakerGenerator) Generate(ctx context.Context, instruction string, schema map[string]any, model string) (string, error) {
	out, err := b.cb.Execute(func() (any, error) {
		return b.next.Generate(ctx, instruction, schema, model)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

// State 当前熔断状态，用于健康检查
func (b *BreakerGenerator) State() string {
	return b.cb.State().String()
}
