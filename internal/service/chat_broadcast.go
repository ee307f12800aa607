package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lostfound-api/internal/dto"
	"github.com/noah-isme/lostfound-api/internal/observability"
)

const (
	chatSendBufferSize = 32
	chatPingInterval   = 30 * time.Second
)

// ChatBroadcaster fans new chat messages out to stream subscribers on this node
// and, when Redis or NATS are configured, to the other gateway nodes.
type ChatBroadcaster struct {
	mu          sync.RWMutex
	subscribers map[*chatSubscriber]struct{}
	redis       *redis.Client
	redisTopic  string
	nats        *nats.Conn
	natsSubject string
	nodeID      string
	logger      zerolog.Logger
}

type chatSubscriber struct {
	send chan dto.ChatMessageResponse
	once sync.Once
}

type chatEvent struct {
	Source  string                  `json:"source"`
	Message dto.ChatMessageResponse `json:"message"`
	SentAt  time.Time               `json:"sent_at"`
}

// NewChatBroadcaster builds a broadcaster. Both transports are optional.
func NewChatBroadcaster(redisClient *redis.Client, natsConn *nats.Conn, channelBase string, logger zerolog.Logger) *ChatBroadcaster {
	b := &ChatBroadcaster{
		subscribers: make(map[*chatSubscriber]struct{}),
		redis:       redisClient,
		nats:        natsConn,
		nodeID:      uuid.NewString(),
		logger:      logger.With().Str("component", "chat_broadcaster").Logger(),
	}
	if channelBase != "" {
		b.redisTopic = channelBase + ":chat"
		b.natsSubject = strings.ReplaceAll(channelBase, ":", ".") + ".chat"
	}
	return b
}

// Start consumes remote events until ctx is cancelled.
func (b *ChatBroadcaster) Start(ctx context.Context) {
	if b.redis != nil && b.redisTopic != "" {
		go b.consumeRedis(ctx)
	}
	if b.nats != nil && b.natsSubject != "" {
		b.consumeNATS(ctx)
	}
}

// Subscribe registers a local listener. The returned func releases it.
func (b *ChatBroadcaster) Subscribe() (<-chan dto.ChatMessageResponse, func()) {
	sub := &chatSubscriber{send: make(chan dto.ChatMessageResponse, chatSendBufferSize)}

	b.mu.Lock()
	b.subscribers[sub] = struct{}{}
	b.mu.Unlock()

	return sub.send, func() {
		sub.once.Do(func() {
			b.mu.Lock()
			delete(b.subscribers, sub)
			b.mu.Unlock()
			close(sub.send)
		})
	}
}

// Publish delivers message locally and forwards it to peer nodes.
func (b *ChatBroadcaster) Publish(ctx context.Context, message dto.ChatMessageResponse) {
	b.deliver(message)
	if err := b.forward(ctx, message); err != nil {
		b.logger.Warn().Err(err).Msg("failed to publish chat event")
	}
}

func (b *ChatBroadcaster) deliver(message dto.ChatMessageResponse) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub.send <- message:
		default:
			b.logger.Warn().Str("message_id", message.ID).Msg("dropping chat message for slow subscriber")
		}
	}
}

func (b *ChatBroadcaster) forward(ctx context.Context, message dto.ChatMessageResponse) error {
	if b.redisTopic == "" && b.natsSubject == "" {
		return nil
	}

	payload, err := json.Marshal(chatEvent{Source: b.nodeID, Message: message, SentAt: time.Now().UTC()})
	if err != nil {
		return err
	}

	if b.redis != nil && b.redisTopic != "" {
		if err := b.redis.Publish(ctx, b.redisTopic, payload).Err(); err != nil {
			return err
		}
	}
	if b.nats != nil && b.natsSubject != "" {
		if err := b.nats.Publish(b.natsSubject, payload); err != nil {
			return err
		}
	}
	return nil
}

func (b *ChatBroadcaster) consumeRedis(ctx context.Context) {
	pubsub := b.redis.Subscribe(ctx, b.redisTopic)
	defer func() {
		_ = pubsub.Close()
	}()
	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			b.logger.Error().Err(err).Msg("chat redis subscription closed")
			return
		}
		b.handleEvent([]byte(msg.Payload))
	}
}

func (b *ChatBroadcaster) consumeNATS(ctx context.Context) {
	sub, err := b.nats.Subscribe(b.natsSubject, func(msg *nats.Msg) {
		b.handleEvent(msg.Data)
	})
	if err != nil {
		b.logger.Error().Err(err).Msg("failed to subscribe to nats chat subject")
		return
	}
	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			b.logger.Warn().Err(err).Msg("failed to drain chat nats subscription")
		}
	}()
}

// handleEvent relays a peer's message to local subscribers. Events that
// originated on this node were already delivered by Publish.
func (b *ChatBroadcaster) handleEvent(data []byte) {
	var event chatEvent
	if err := json.Unmarshal(data, &event); err != nil {
		b.logger.Warn().Err(err).Msg("invalid chat event")
		return
	}
	if event.Source == b.nodeID {
		return
	}
	b.deliver(event.Message)
}

// ServeStream pushes every new chat message to conn as JSON until the peer
// goes away. Inbound frames are read only to notice the close.
func (b *ChatBroadcaster) ServeStream(conn *websocket.Conn) {
	messages, release := b.Subscribe()
	defer release()

	observability.ChatStreams().Inc()
	defer observability.ChatStreams().Dec()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(chatPingInterval)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-messages:
			if !ok {
				return
			}
			if err := conn.WriteJSON(message); err != nil {
				b.logger.Debug().Err(err).Msg("chat stream write loop terminated")
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				b.logger.Debug().Err(err).Msg("chat stream ping failed")
				return
			}
		case <-closed:
			return
		}
	}
}
