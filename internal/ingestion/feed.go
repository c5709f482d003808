package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"solana-token-screener/internal/config"
	"solana-token-screener/internal/storage"
)

const (
	maxDialRetries = 5
	baseRetryDelay = 500 * time.Millisecond
)

// Feed subscribes to a websocket trade feed and enqueues every raw
// message as an ingest job. It does not parse payloads; validation
// happens in the worker so a malformed message becomes a visible failed
// job instead of a dropped frame.
type Feed struct {
	url    string
	source string
	jobs   storage.IngestJobStore
	logger zerolog.Logger
	dialer *websocket.Dialer
}

// NewFeed creates a websocket feed for the configured URL.
func NewFeed(cfg config.WorkerConfig, jobs storage.IngestJobStore, logger zerolog.Logger) *Feed {
	return &Feed{
		url:    cfg.FeedURL,
		source: cfg.Source,
		jobs:   jobs,
		logger: logger,
		dialer: websocket.DefaultDialer,
	}
}

// Run connects and enqueues messages until the context ends, redialing
// with exponential backoff when the connection drops.
func (f *Feed) Run(ctx context.Context) error {
	for {
		conn, err := f.dial(ctx)
		if err != nil {
			return err
		}
		f.logger.Info().Str("url", f.url).Msg("feed connected")

		err = f.consume(ctx, conn)
		conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.logger.Warn().Err(err).Msg("feed connection lost, redialing")
	}
}

// dial connects with exponential backoff: 500ms, 1s, 2s, 4s, 8s.
func (f *Feed) dial(ctx context.Context) (*websocket.Conn, error) {
	var lastErr error
	for attempt := 0; attempt < maxDialRetries; attempt++ {
		conn, _, err := f.dialer.DialContext(ctx, f.url, nil)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		delay := baseRetryDelay * time.Duration(1<<attempt)
		f.logger.Warn().
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Err(err).
			Msg("feed dial failed")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("dial %s: %w", f.url, lastErr)
}

// consume reads messages until the connection breaks or the context
// ends. The reader goroutine is the only place that touches conn reads;
// cancellation closes the connection to unblock it.
func (f *Feed) consume(ctx context.Context, conn *websocket.Conn) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		jobID, err := f.jobs.Enqueue(ctx, f.source, msg)
		if err != nil {
			return fmt.Errorf("enqueue: %w", err)
		}
		f.logger.Debug().Int64("job", jobID).Int("bytes", len(msg)).Msg("feed message enqueued")
	}
}
