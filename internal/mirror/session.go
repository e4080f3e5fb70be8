package mirror

import (
	"context"
	"errors"
	"fmt"

	"github.com/studio1767/s3mirror/internal/logging"
	"github.com/studio1767/s3mirror/internal/s3io"
)

// errSourceVanished marks a failure caused by the local file disappearing
// mid-operation. It is never retried and callers translate it into a skip.
var errSourceVanished = errors.New("source file vanished")

// Session is the retry state a worker carries against the store: the
// current handle, the connector that replaces it, and the attempt bound.
// A failed attempt drops the handle so the next one dials fresh.
type Session struct {
	connect s3io.Connector
	cl      s3io.Client
	retries int
	log     logging.Logger
}

func NewSession(connect s3io.Connector, retries int, log logging.Logger) *Session {
	return &Session{
		connect: connect,
		retries: retries,
		log:     log,
	}
}

// Client returns the current handle, dialing if none is held.
func (s *Session) Client(ctx context.Context) (s3io.Client, error) {
	if s.cl != nil {
		return s.cl, nil
	}

	cl, err := s.connect.Connect(ctx)
	if err != nil {
		return nil, err
	}

	s.cl = cl
	return cl, nil
}

// Drop discards the current handle; the next Client call reconnects.
func (s *Session) Drop() {
	s.cl = nil
}

// WithRetry runs op up to the configured attempt bound, reconnecting with a
// fresh handle after every failure. A vanished source file stops the loop
// immediately. Exhausting the bound returns the last error wrapped.
func (s *Session) WithRetry(ctx context.Context, desc string, op func(cl s3io.Client) error) error {
	var lastErr error

	for attempt := 1; attempt <= s.retries; attempt++ {
		cl, err := s.Client(ctx)
		if err != nil {
			lastErr = err
			s.log.Warn(ctx, "store connection failed", "op", desc, "attempt", attempt, "error", err)
			s.Drop()
			continue
		}

		err = op(cl)
		if err == nil {
			return nil
		}
		if errors.Is(err, errSourceVanished) {
			return err
		}

		lastErr = err
		s.log.Warn(ctx, "store operation failed", "op", desc, "attempt", attempt, "error", err)
		s.Drop()
	}

	return fmt.Errorf("%s: retries exhausted after %d attempts: %w", desc, s.retries, lastErr)
}
