package retry

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/suchimauz/docplanner-slots-gateway/internal/core/domain"
	"github.com/suchimauz/docplanner-slots-gateway/internal/core/ports/out"
)

type permanentError struct {
	err error
}

func (e *permanentError) Error() string {
	return e.err.Error()
}

func (e *permanentError) Unwrap() error {
	return e.err
}

// Permanent помечает ошибку как не подлежащую повтору
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent: ошибки входных данных и некорректные данные от внешнего сервиса не ретраятся
func IsPermanent(err error) bool {
	var p *permanentError
	if errors.As(err, &p) {
		return true
	}

	var dataErr *domain.UpstreamDataError
	return errors.Is(err, domain.ErrInvalidInput) || errors.As(err, &dataErr)
}

func unwrapPermanent(err error) error {
	var p *permanentError
	if errors.As(err, &p) {
		return p.err
	}
	return err
}

type waitFunc func(ctx context.Context, d time.Duration) error

// Executor выполняет вызов до 1+retryCount раз, перед повтором n ждет initialDelaySeconds^n секунд
type Executor struct {
	retryCount          int
	initialDelaySeconds float64
	logger              out.LoggerPort
	wait                waitFunc
}

func NewExecutor(retryCount int, initialDelaySeconds float64, logger out.LoggerPort) *Executor {
	if retryCount < 0 {
		retryCount = 0
	}
	if initialDelaySeconds < 0 {
		initialDelaySeconds = 0
	}

	return &Executor{
		retryCount:          retryCount,
		initialDelaySeconds: initialDelaySeconds,
		logger:              logger.WithModule("RetryExecutor"),
		wait:                sleep,
	}
}

func (e *Executor) RetryCount() int {
	return e.retryCount
}

// Delay задержка перед повтором с номером attempt (с 1)
func (e *Executor) Delay(attempt int) time.Duration {
	seconds := math.Pow(e.initialDelaySeconds, float64(attempt))
	return time.Duration(seconds * float64(time.Second))
}

func Do[T any](ctx context.Context, e *Executor, operation string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= e.retryCount; attempt++ {
		if attempt > 0 {
			delay := e.Delay(attempt)
			e.logger.Warn("retry.attempt", out.LogFields{
				"operation":  operation,
				"attempt":    attempt,
				"maxRetries": e.retryCount,
				"delay":      delay.String(),
				"error":      lastErr.Error(),
			})

			if err := e.wait(ctx, delay); err != nil {
				e.logger.Warn("retry.aborted", out.LogFields{
					"operation": operation,
					"attempt":   attempt,
					"error":     err.Error(),
				})
				return zero, errors.Join(lastErr, err)
			}
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}

		if IsPermanent(err) {
			return zero, unwrapPermanent(err)
		}
		lastErr = err
	}

	e.logger.Error("retry.exhausted", out.LogFields{
		"operation": operation,
		"attempts":  e.retryCount + 1,
		"error":     lastErr.Error(),
	})

	return zero, lastErr
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
