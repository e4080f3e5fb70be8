// Package logging defines the structured-logging capability injected into
// every component at construction time. There is no package-level logger.
package logging

import "context"

// Logger is a context-aware, leveled, structured logger. The variadic args
// are key-value pairs:
//
//	log.Info(ctx, "upload complete", "key", key, "bytes", nbytes)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always carries the given key-value
	// pairs.
	With(args ...any) Logger
}
