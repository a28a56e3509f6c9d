// Package queue carries domain events from the API to the worker and to in-process
// subscribers.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Event types published by the core.
const (
	TypeQRCreated          = "qr.created"
	TypeAttendanceRecorded = "attendance.recorded"
	TypeAttendanceUpdated  = "attendance.updated"
)

// DefaultKey is the redis list used for domain events.
const DefaultKey = "checkclass:events"

// Message is one event. Body is the JSON encoding of the event payload.
type Message struct {
	ID   string          `json:"id,omitempty"`
	Type string          `json:"type"`
	At   time.Time       `json:"at"`
	Body json.RawMessage `json:"body"`
}

// NewMessage JSON-encodes v as the body of a message of type typ.
func NewMessage(typ string, v any) (Message, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return Message{}, err
	}
	return Message{ID: uuid.NewString(), Type: typ, At: time.Now().UTC(), Body: body}, nil
}

// Decode unmarshals the JSON body into v.
func (m Message) Decode(v any) error {
	return json.Unmarshal(m.Body, v)
}

// Publisher is the producing side of a queue.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// Queue is a publisher that can also be drained.
type Queue interface {
	Publisher
	// Consume delivers messages until ctx is done, then closes the channel.
	Consume(ctx context.Context) (<-chan Message, error)
}

// Fanout publishes every message to all publishers and returns the first error.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, msg Message) error {
	var first error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, msg); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// InMemory is a bounded channel queue for single-process deployments and tests.
type InMemory struct {
	ch chan Message
}

func NewInMemory(size int) *InMemory {
	return &InMemory{ch: make(chan Message, size)}
}

// Publish blocks while the buffer is full, until ctx is done.
func (q *InMemory) Publish(ctx context.Context, msg Message) error {
	select {
	case q.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *InMemory) Consume(ctx context.Context) (<-chan Message, error) {
	out := make(chan Message)
	go pump(ctx, out, func(ctx context.Context) (Message, bool) {
		select {
		case msg := <-q.ch:
			return msg, true
		case <-ctx.Done():
			return Message{}, false
		}
	})
	return out, nil
}

// pump forwards what next yields into out until next gives up or ctx is done.
func pump(ctx context.Context, out chan<- Message, next func(context.Context) (Message, bool)) {
	defer close(out)
	for {
		msg, ok := next(ctx)
		if !ok {
			return
		}
		select {
		case out <- msg:
		case <-ctx.Done():
			return
		}
	}
}

// RedisQueue is a redis list: LPUSH to publish, BRPOP to consume. Entries are JSON messages.
type RedisQueue struct {
	client *redis.Client
	key    string
	wait   time.Duration
}

func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = DefaultKey
	}
	return &RedisQueue{client: client, key: key, wait: 5 * time.Second}
}

func (q *RedisQueue) Publish(ctx context.Context, msg Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.key, raw).Err()
}

// Consume skips entries that are not JSON messages.
func (q *RedisQueue) Consume(ctx context.Context) (<-chan Message, error) {
	out := make(chan Message)
	go pump(ctx, out, q.pop)
	return out, nil
}

func (q *RedisQueue) pop(ctx context.Context) (Message, bool) {
	for {
		res, err := q.client.BRPop(ctx, q.wait, q.key).Result()
		switch {
		case ctx.Err() != nil:
			return Message{}, false
		case errors.Is(err, redis.Nil):
			continue
		case err != nil:
			// connection trouble: wait a little instead of spinning
			select {
			case <-time.After(time.Second):
				continue
			case <-ctx.Done():
				return Message{}, false
			}
		}
		if len(res) != 2 {
			continue
		}
		var msg Message
		if json.Unmarshal([]byte(res[1]), &msg) != nil || msg.Type == "" {
			continue
		}
		return msg, true
	}
}
