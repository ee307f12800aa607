package engine

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const defaultPollInterval = 5 * time.Second

// PollingSource refreshes on a fixed interval.
type PollingSource struct {
	Interval time.Duration
}

func (p PollingSource) Run(ctx context.Context, refresh func(context.Context)) error {
	interval := p.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			refresh(ctx)
		}
	}
}

// StreamSource refreshes whenever the gateway pushes a chat message over its
// websocket stream. While the stream is down it redials every Retry and
// refreshes after each attempt, so the room keeps updating as if polled.
type StreamSource struct {
	URL    string
	Header http.Header
	Dialer *websocket.Dialer
	Retry  time.Duration
	Logger zerolog.Logger
}

func (s StreamSource) Run(ctx context.Context, refresh func(context.Context)) error {
	if s.URL == "" {
		return errors.New("stream url is empty")
	}
	dialer := s.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	retry := s.Retry
	if retry <= 0 {
		retry = defaultPollInterval
	}
	logger := s.Logger.With().Str("component", "chat_stream").Logger()

	for {
		conn, _, err := dialer.DialContext(ctx, s.URL, s.Header)
		if err == nil {
			logger.Debug().Str("url", s.URL).Msg("chat stream connected")
			refresh(ctx)
			err = s.consume(ctx, conn, refresh)
			logger.Debug().Err(err).Msg("chat stream closed")
		} else {
			logger.Debug().Err(err).Msg("chat stream dial failed")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retry):
			refresh(ctx)
		}
	}
}

func (s StreamSource) consume(ctx context.Context, conn *websocket.Conn, refresh func(context.Context)) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			_ = conn.Close()
		case <-done:
			_ = conn.Close()
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return err
		}
		refresh(ctx)
	}
}
