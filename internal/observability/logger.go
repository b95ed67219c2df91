package observability

import (
	"context"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/trace"
)

// NewLogger returns a JSON logger on stdout. Records logged with an active
// span carry its trace_id and span_id; debug records are kept only in dev.
func NewLogger(env string) *slog.Logger {
	return newLogger(os.Stdout, env)
}

func newLogger(w io.Writer, env string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if env == "dev" {
		opts.Level = slog.LevelDebug
	}
	return slog.New(spanAttrs{slog.NewJSONHandler(w, opts)})
}

// spanAttrs decorates a handler with the span context found in ctx.
type spanAttrs struct {
	slog.Handler
}

func (h spanAttrs) Handle(ctx context.Context, rec slog.Record) error {
	if span := trace.SpanContextFromContext(ctx); span.IsValid() {
		rec.AddAttrs(
			slog.String("trace_id", span.TraceID().String()),
			slog.String("span_id", span.SpanID().String()),
		)
	}
	return h.Handler.Handle(ctx, rec)
}

func (h spanAttrs) WithAttrs(attrs []slog.Attr) slog.Handler {
	return spanAttrs{h.Handler.WithAttrs(attrs)}
}

func (h spanAttrs) WithGroup(name string) slog.Handler {
	return spanAttrs{h.Handler.WithGroup(name)}
}
