package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/angelmondragon/kitchenstock-backend/pkg/env"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Options configures the structured logger.
type Options struct {
	ServiceName string
	Level       zerolog.Level
	WarnStack   bool
	Output      io.Writer
}

type Logger struct {
	base      *zerolog.Logger
	warnStack bool
}

type ctxKey struct{}

func New(opts Options) *Logger {
	if opts.Level == zerolog.NoLevel {
		opts.Level = zerolog.InfoLevel
	}

	var output io.Writer = opts.Output
	if output == nil {
		output = os.Stdout
	}
	format := env.First("json", "KITCHENSTOCK_LOG_FORMAT", "LOG_FORMAT")
	if format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: "15:04:05",
			NoColor:    false,
		}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano

	logger := zerolog.
		New(output).
		With().
		Timestamp().
		Str("service", opts.ServiceName).
		Logger().
		Level(opts.Level)

	return &Logger{
		base:      &logger,
		warnStack: opts.WarnStack,
	}
}

func ParseLevel(value string) zerolog.Level {
	levelString := strings.ToLower(strings.TrimSpace(value))
	if levelString == "" {
		return zerolog.InfoLevel
	}
	if lvl, err := zerolog.ParseLevel(levelString); err == nil {
		return lvl
	}
	return zerolog.InfoLevel
}

func (l *Logger) loggerFromContext(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		return l.base
	}
	if entry, ok := ctx.Value(ctxKey{}).(*zerolog.Logger); ok {
		return entry
	}
	return l.base
}

func (l *Logger) attach(ctx context.Context, entry zerolog.Logger) context.Context {
	entr := entry
	return context.WithValue(ctx, ctxKey{}, &entr)
}

func (l *Logger) WithField(ctx context.Context, key string, value any) context.Context {
	if l == nil {
		return ctx
	}
	entry := l.loggerFromContext(ctx)
	return l.attach(ctx, entry.With().Interface(key, value).Logger())
}

func (l *Logger) WithFields(ctx context.Context, fields map[string]any) context.Context {
	if l == nil {
		return ctx
	}
	entry := l.loggerFromContext(ctx)
	builder := entry.With()
	for k, v := range fields {
		builder = builder.Interface(k, v)
	}
	return l.attach(ctx, builder.Logger())
}

func (l *Logger) WithRequestID(ctx context.Context, requestID string) context.Context {
	return l.WithField(ctx, "request_id", requestID)
}

// WithActor tags entries with the staff member driving the request.
func (l *Logger) WithActor(ctx context.Context, actor string) context.Context {
	return l.WithField(ctx, "actor", actor)
}

func (l *Logger) WithOrderID(ctx context.Context, orderID string) context.Context {
	return l.WithField(ctx, "order_id", orderID)
}

func (l *Logger) WithIngredientID(ctx context.Context, ingredientID string) context.Context {
	return l.WithField(ctx, "ingredient_id", ingredientID)
}

// WithOrder binds an order and the staff member acting on it in one step.
func (l *Logger) WithOrder(ctx context.Context, orderID, actor string) context.Context {
	return l.WithFields(ctx, map[string]any{"order_id": orderID, "actor": actor})
}

// WithTransition records a status move. from and to are usually typed enums,
// so they are rendered with their string form.
func (l *Logger) WithTransition(ctx context.Context, from, to fmt.Stringer) context.Context {
	return l.WithFields(ctx, map[string]any{"from": from.String(), "to": to.String()})
}

// WithStockBatch tags a ledger batch touching items ingredient lines.
func (l *Logger) WithStockBatch(ctx context.Context, event string, items int) context.Context {
	return l.WithFields(ctx, map[string]any{"event": event, "items": items})
}

// Info, Warn and Error are no-ops on a nil *Logger so optional loggers need no guards.
// Entries written inside a sampled span carry trace_id and span_id.
func (l *Logger) Info(ctx context.Context, msg string) {
	if l == nil {
		return
	}
	withTrace(ctx, l.loggerFromContext(ctx).Info()).Msg(msg)
}

func (l *Logger) Warn(ctx context.Context, msg string) {
	if l == nil {
		return
	}
	event := withTrace(ctx, l.loggerFromContext(ctx).Warn())
	if l.warnStack {
		event = event.Str("stack", stackTrace())
	}
	event.Msg(msg)
}

func (l *Logger) Error(ctx context.Context, msg string, err error) {
	if l == nil {
		return
	}
	event := withTrace(ctx, l.loggerFromContext(ctx).Error())
	if err != nil {
		event = event.Err(err)
	}
	event.Str("stack", stackTrace()).Msg(msg)
}

func withTrace(ctx context.Context, event *zerolog.Event) *zerolog.Event {
	if ctx == nil {
		return event
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return event
	}
	return event.Str("trace_id", sc.TraceID().String()).Str("span_id", sc.SpanID().String())
}

func stackTrace() string {
	return strings.TrimSpace(string(debug.Stack()))
}
