package realtime

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Pusher is the fanout side of the realtime channel.
type Pusher interface {
	Push(ctx context.Context, recipientID string, payload []byte) error
}

type envelope struct {
	Origin      string          `json:"origin"`
	RecipientID string          `json:"recipient_id"`
	Payload     json.RawMessage `json:"payload"`
}

// Bridge routes pushes through redis pub/sub so a notification produced on
// one instance reaches sessions connected to any other. Without a redis
// client it degrades to local-only delivery through the hub.
type Bridge struct {
	client  *redis.Client
	channel string
	origin  string
	hub     *Hub
	logger  *zap.Logger
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewBridge wires the bridge. client may be nil.
func NewBridge(client *redis.Client, channel string, hub *Hub, logger *zap.Logger) *Bridge {
	return &Bridge{
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		hub:     hub,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Push publishes the payload for the recipient. Local sessions are always
// attempted directly; the redis publish extends reach to other instances.
// The origin tag keeps the subscriber loop from re-delivering our own
// messages locally.
func (b *Bridge) Push(ctx context.Context, recipientID string, payload []byte) error {
	b.hub.Push(recipientID, payload)

	if b.client == nil {
		return nil
	}
	msg, err := json.Marshal(envelope{Origin: b.origin, RecipientID: recipientID, Payload: payload})
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, msg).Err()
}

// Run subscribes to the bridge channel and feeds remote pushes into the
// local hub until Close is called. No-op without a redis client.
func (b *Bridge) Run(ctx context.Context) {
	if b.client == nil {
		close(b.done)
		return
	}
	ctx, b.cancel = context.WithCancel(ctx)
	sub := b.client.Subscribe(ctx, b.channel)

	go func() {
		defer close(b.done)
		defer func() { _ = sub.Close() }()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var env envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					b.logger.Warn("malformed bridge message", zap.Error(err))
					continue
				}
				if env.Origin == b.origin {
					continue
				}
				b.hub.Push(env.RecipientID, env.Payload)
			}
		}
	}()
}

// Close stops the subscriber loop.
func (b *Bridge) Close() {
	if b.cancel != nil {
		b.cancel()
	}
	<-b.done
}
