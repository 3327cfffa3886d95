package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/SscSPs/swap_exchange_app/internal/core/domain"
	portssvc "github.com/SscSPs/swap_exchange_app/internal/core/ports/services"
	"github.com/SscSPs/swap_exchange_app/internal/middleware"
	"github.com/SscSPs/swap_exchange_app/internal/platform/metrics"
)

// Clock returns the current time. Tests replace it to control expiry.
type Clock func() time.Time

// BaseService provides common functionality for all services
type BaseService struct {
	clock    Clock
	metrics  *metrics.Metrics
	notifier portssvc.QuoteNotifier
}

// ServiceOption configures the shared parts of a service.
type ServiceOption func(*BaseService)

// WithClock overrides the time source.
func WithClock(clock Clock) ServiceOption {
	return func(s *BaseService) {
		s.clock = clock
	}
}

// WithMetrics attaches the prometheus recorder.
func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *BaseService) {
		s.metrics = m
	}
}

// WithNotifier attaches the change hub that receives every persisted mutation.
func WithNotifier(n portssvc.QuoteNotifier) ServiceOption {
	return func(s *BaseService) {
		s.notifier = n
	}
}

func newBaseService(options []ServiceOption) BaseService {
	base := BaseService{clock: time.Now}
	for _, option := range options {
		option(&base)
	}
	if base.clock == nil {
		base.clock = time.Now
	}
	return base
}

// Now returns the service clock in UTC.
func (s *BaseService) Now() time.Time {
	return s.clock().UTC()
}

// GetLogger gets the logger from context or returns a default one
func (s *BaseService) GetLogger(ctx context.Context) *slog.Logger {
	return middleware.GetLoggerFromCtx(ctx)
}

// LogError logs an error with consistent formatting
func (s *BaseService) LogError(ctx context.Context, err error, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	args := make([]any, 0, len(keyvals)+2)
	args = append(args, slog.String("error", err.Error()))
	args = append(args, keyvals...)
	logger.Error(msg, args...)
}

// LogInfo logs an info message with consistent formatting
func (s *BaseService) LogInfo(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Info(msg, keyvals...)
}

// LogDebug logs a debug message with consistent formatting
func (s *BaseService) LogDebug(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Debug(msg, keyvals...)
}

// publish hands a persisted quote to the notifier, if any.
func (s *BaseService) publish(q *domain.Quote) {
	if s.notifier != nil && q != nil {
		s.notifier.Publish(*q)
	}
}

// recordTransition counts a status change. No-op when the status did not move.
func (s *BaseService) recordTransition(from, to domain.QuoteStatus, trigger string) {
	if from == to {
		return
	}
	s.metrics.QuoteTransition(string(to), trigger)
}
