// Package queue forwards queued MMDS actions to a Redis list for an
// out-of-process executor.
//
// Each action is pushed with RPUSH as one msgpack-encoded Envelope, so a
// consumer popping from the left sees actions in the order they were accepted.
// Immediate actions are never forwarded; they must run on the calling path.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/solatis/mmdsgate/internal/types"
)

// ErrImmediate is returned when an immediate-mode request is offered to the queue.
var ErrImmediate = errors.New("immediate actions cannot be queued")

// Envelope is the msgpack record pushed for each queued action.
type Envelope struct {
	RequestID   string `msgpack:"request_id"`
	ClientID    string `msgpack:"client_id,omitempty"`
	Action      string `msgpack:"action"`
	Mode        string `msgpack:"mode"`
	Payload     []byte `msgpack:"payload,omitempty"`
	TimestampMs int64  `msgpack:"timestamp_ms"`
}

// Publisher pushes queued actions onto a Redis list.
type Publisher struct {
	rdb   redis.UniversalClient
	queue string
	now   func() time.Time
}

// NewPublisher returns a publisher writing to the list named queue.
func NewPublisher(rdb redis.UniversalClient, queue string) (*Publisher, error) {
	if rdb == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}
	if queue == "" {
		return nil, fmt.Errorf("queue name cannot be empty")
	}
	return &Publisher{rdb: rdb, queue: queue, now: time.Now}, nil
}

// Dial parses redisURL, checks connectivity and returns a publisher that
// owns the client. Close releases it.
func Dial(ctx context.Context, redisURL, queue string) (*Publisher, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewPublisher(rdb, queue)
}

// Publish encodes req and appends it to the queue.
func (p *Publisher) Publish(ctx context.Context, id types.RequestID, clientID string, req types.ParsedRequest) error {
	if req.Mode != types.ModeQueued {
		return ErrImmediate
	}
	payload, err := req.Payload()
	if err != nil {
		return err
	}

	b, err := msgpack.Marshal(&Envelope{
		RequestID:   string(id),
		ClientID:    clientID,
		Action:      req.Action.Kind(),
		Mode:        string(req.Mode),
		Payload:     payload,
		TimestampMs: p.now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	if err := p.rdb.RPush(ctx, p.queue, b).Err(); err != nil {
		return fmt.Errorf("push to %s: %w", p.queue, err)
	}
	return nil
}

// Depth reports the number of actions waiting in the queue.
func (p *Publisher) Depth(ctx context.Context) (int64, error) {
	return p.rdb.LLen(ctx, p.queue).Result()
}

// Close closes the underlying client.
func (p *Publisher) Close() error {
	return p.rdb.Close()
}

// DecodeEnvelope decodes one queue entry.
func DecodeEnvelope(b []byte) (Envelope, error) {
	var e Envelope
	if err := msgpack.Unmarshal(b, &e); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	return e, nil
}
