package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

type BreakerSettings struct {
	Name     string
	Failures uint32
	Timeout  time.Duration
}

func newBreaker(s BreakerSettings, log *zap.Logger) *gobreaker.CircuitBreaker {
	if s.Failures == 0 {
		s.Failures = 5
	}
	if s.Timeout == 0 {
		s.Timeout = 30 * time.Second
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.Failures
		},
		// a picture without a face is an answer, not an outage
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNoFaceDetected) || errors.Is(err, ErrInvalidImage)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change",
				zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
}

func execute(cb *gobreaker.CircuitBreaker, fn func() (*FaceAnalysis, error)) (*FaceAnalysis, error) {
	out, err := cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrClassifierUnavailable, err)
	}
	if err != nil {
		return nil, err
	}
	return out.(*FaceAnalysis), nil
}
