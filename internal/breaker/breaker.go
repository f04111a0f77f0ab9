// Package breaker оборачивает sony/gobreaker для вызовов внешних систем.
package breaker

import (
	"errors"
	"time"

	"refill-pricing/internal/config"
	"refill-pricing/internal/logger"
	"refill-pricing/internal/metrics"

	"github.com/sony/gobreaker"
)

// ErrOpen возвращается, когда цепь разомкнута и вызов не выполнялся.
var ErrOpen = errors.New("circuit breaker is open")

// Breaker оборачивает gobreaker и логирует смену состояния
type Breaker struct {
	cb   *gobreaker.CircuitBreaker
	name string
}

// New создаёт breaker по конфигурации. m может быть nil.
func New(name string, cfg *config.BreakerConfig, log *logger.Logger, m *metrics.Metrics) *Breaker {
	threshold := cfg.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    time.Duration(cfg.IntervalSeconds) * time.Second,
		Timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if log != nil {
				log.WithField("breaker", name).
					WithField("from", from.String()).
					WithField("to", to.String()).
					Warn("Circuit breaker state changed")
			}
			if m != nil {
				m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
	}

	if m != nil {
		m.CircuitBreakerState.WithLabelValues(name).Set(float64(gobreaker.StateClosed))
	}

	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings), name: name}
}

// Do выполняет fn через breaker.
func (b *Breaker) Do(fn func() error) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrOpen
	}
	return err
}

// State возвращает текущее состояние в виде строки.
func (b *Breaker) State() string {
	return b.cb.State().String()
}

// Name возвращает имя breaker.
func (b *Breaker) Name() string {
	return b.name
}
