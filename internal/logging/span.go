package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Span times one multi-step operation and logs its outcome when it ends.
// Spans reuse the request id as their trace id so a request's spans group
// together.
type Span struct {
	name   string
	logger *slog.Logger
	start  time.Time
	err    error
}

// StartSpan derives a child span from ctx. The returned context carries a
// logger tagged with the trace and span ids plus any extra attributes.
func StartSpan(ctx context.Context, name string, args ...any) (context.Context, *Span) {
	if ctx == nil {
		ctx = context.Background()
	}

	logger := FromContext(ctx)
	if TraceIDFromContext(ctx) == "" {
		traceID := RequestIDFromContext(ctx)
		if traceID == "" {
			traceID = uuid.NewString()
		}
		ctx = withValue(ctx, traceIDKey, traceID)
		logger = logger.With(slog.String("trace_id", traceID))
	}

	spanID := uuid.NewString()
	logger = logger.With(slog.String("span_id", spanID), slog.String("span_name", name))
	if parent := SpanIDFromContext(ctx); parent != "" {
		logger = logger.With(slog.String("parent_span_id", parent))
	}
	if len(args) > 0 {
		logger = logger.With(args...)
	}

	ctx = WithLogger(ctx, logger)
	ctx = withValue(ctx, spanIDKey, spanID)
	return ctx, &Span{name: name, logger: logger, start: time.Now()}
}

// Fail marks the span as failed; End then logs err at warn level.
func (s *Span) Fail(err error) {
	if s != nil && err != nil {
		s.err = err
	}
}

// End logs the span duration.
func (s *Span) End() {
	if s == nil {
		return
	}
	elapsed := slog.Duration("duration", time.Since(s.start))
	if s.err != nil {
		s.logger.Warn("span failed", elapsed, slog.Any("error", s.err))
		return
	}
	s.logger.Info("span completed", elapsed)
}
