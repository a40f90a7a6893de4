package retry

import (
	"math"
	"time"

	"booksync/internal/domain/settings"
	"booksync/internal/domain/sync"
)

// Mode режим автоматических повторов
type Mode string

const (
	ModeManual     Mode = "manual"
	ModeMaxRetries Mode = "max_retries"
	ModeIndefinite Mode = "indefinite"
)

// DefaultMaxBackoff потолок задержки, если в настройках он не задан
const DefaultMaxBackoff = 24 * time.Hour

// Policy политика повторов для неудачных синхронизаций
type Policy struct {
	Mode     Mode
	MaxCount int
	Backoff  time.Duration
	// MaxBackoff потолок задержки, 0 снимает ограничение
	MaxBackoff time.Duration
}

// PolicyFrom политика из бизнес-настроек. Отрицательный потолок снимает ограничение.
func PolicyFrom(cfg settings.Retry) Policy {
	p := Policy{
		Mode:       Mode(cfg.Mode),
		MaxCount:   cfg.MaxCount,
		Backoff:    time.Duration(cfg.BackoffMinutes) * time.Minute,
		MaxBackoff: time.Duration(cfg.MaxBackoffMinutes) * time.Minute,
	}
	switch {
	case cfg.MaxBackoffMinutes == 0:
		p.MaxBackoff = DefaultMaxBackoff
	case cfg.MaxBackoffMinutes < 0:
		p.MaxBackoff = 0
	}
	return p
}

// CanRetry допускает ли политика еще одну попытку
func (p Policy) CanRetry(state *sync.State) bool {
	switch p.Mode {
	case ModeMaxRetries:
		return state.RetryCount < p.MaxCount
	case ModeIndefinite:
		return true
	default:
		return false
	}
}

// Delay задержка перед попыткой: Backoff * 2^retryCount, не больше MaxBackoff
func (p Policy) Delay(retryCount int) time.Duration {
	if p.Backoff <= 0 {
		return 0
	}
	if retryCount < 0 {
		retryCount = 0
	}

	limit := time.Duration(math.MaxInt64)
	if p.MaxBackoff > 0 {
		limit = p.MaxBackoff
	}

	// сдвиг без переполнения
	delay := p.Backoff
	for i := 0; i < retryCount; i++ {
		if delay > limit/2 {
			return limit
		}
		delay *= 2
	}
	if delay > limit {
		return limit
	}
	return delay
}

// ShouldRetryNow наступило ли время следующей попытки
func (p Policy) ShouldRetryNow(state *sync.State, now time.Time) bool {
	if state.LastSyncAttempt == nil {
		return true
	}
	return !now.Before(state.LastSyncAttempt.Add(p.Delay(state.RetryCount)))
}

// NextAttempt время, когда попытка станет возможной
func (p Policy) NextAttempt(state *sync.State) time.Time {
	if state.LastSyncAttempt == nil {
		return time.Time{}
	}
	return state.LastSyncAttempt.Add(p.Delay(state.RetryCount))
}
