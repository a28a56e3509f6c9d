package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	ClassID string `json:"classId"`
}

func TestNewMessageStampsIDAndTime(t *testing.T) {
	a, err := NewMessage(TypeQRCreated, payload{ClassID: "math101"})
	require.NoError(t, err)
	b, err := NewMessage(TypeQRCreated, payload{ClassID: "math101"})
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.At.IsZero())
	assert.JSONEq(t, `{"classId":"math101"}`, string(a.Body))
}

func TestInMemoryRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q := NewInMemory(4)

	msg, err := NewMessage(TypeAttendanceRecorded, payload{ClassID: "math101"})
	require.NoError(t, err)
	require.NoError(t, q.Publish(ctx, msg))

	ch, err := q.Consume(ctx)
	require.NoError(t, err)
	select {
	case got := <-ch:
		var p payload
		require.NoError(t, got.Decode(&p))
		assert.Equal(t, TypeAttendanceRecorded, got.Type)
		assert.Equal(t, "math101", p.ClassID)
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}
}

func TestRedisQueueRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q := NewRedisQueue(client, "test:events")
	q.wait = 100 * time.Millisecond

	msg, err := NewMessage(TypeQRCreated, payload{ClassID: "physics201"})
	require.NoError(t, err)
	_, err = mr.Lpush("test:events", "not json")
	require.NoError(t, err)
	require.NoError(t, q.Publish(ctx, msg))

	ch, err := q.Consume(ctx)
	require.NoError(t, err)
	select {
	case got := <-ch:
		assert.Equal(t, msg.ID, got.ID)
		assert.Equal(t, msg.Type, got.Type)
		assert.True(t, msg.At.Equal(got.At))
		var p payload
		require.NoError(t, got.Decode(&p))
		assert.Equal(t, "physics201", p.ClassID)
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
}

type failing struct{ err error }

func (f failing) Publish(context.Context, Message) error { return f.err }

func TestFanoutReturnsFirstErrorAndDeliversToAll(t *testing.T) {
	ctx := context.Background()
	mem := NewInMemory(1)
	boom := errors.New("boom")
	err := Fanout{failing{boom}, nil, mem}.Publish(ctx, Message{Type: "x"})
	assert.ErrorIs(t, err, boom)
	assert.Len(t, mem.ch, 1)
}
