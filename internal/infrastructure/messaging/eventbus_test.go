package messaging

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/learnhub/internal/domain/shared"
	"github.com/alem-hub/learnhub/pkg/circuitbreaker"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestInMemoryEventBus_SyncDelivery(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{})
	defer bus.Close()

	var got []shared.EventType
	require.NoError(t, bus.Subscribe(shared.EventPointsAwarded, func(e shared.Event) error {
		got = append(got, e.EventType())
		return nil
	}))
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		got = append(got, "all:"+e.EventType())
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewPointsAwardedEvent("acc-1", 500, 500, "course_completed", t0)))
	require.NoError(t, bus.Publish(shared.NewLevelUpEvent("acc-1", 1, 2, t0)))

	assert.Equal(t, []shared.EventType{
		shared.EventPointsAwarded,
		"all:" + shared.EventPointsAwarded,
		"all:" + shared.EventLevelUp,
	}, got)

	snap := bus.Metrics().Snapshot()
	assert.Equal(t, int64(2), snap.TotalPublished)
	assert.Equal(t, int64(3), snap.HandlerExecutions)
}

func TestInMemoryEventBus_HandlerFailuresAreContained(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{})
	defer bus.Close()

	calls := 0
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { return errors.New("boom") }))
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { panic("oops") }))
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { calls++; return nil }))

	assert.NoError(t, bus.Publish(shared.NewLevelUpEvent("acc-1", 1, 2, t0)))
	assert.Equal(t, 1, calls)
	assert.Equal(t, int64(2), bus.Metrics().Snapshot().HandlerFailures)
}

func TestInMemoryEventBus_AsyncCloseWaitsForHandlers(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: true, WorkerPoolSize: 2})

	var handled atomic.Int32
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		time.Sleep(5 * time.Millisecond)
		handled.Add(1)
		return nil
	}))

	for i := 0; i < 10; i++ {
		require.NoError(t, bus.Publish(shared.NewLevelUpEvent("acc-1", 1, 2, t0)))
	}
	require.NoError(t, bus.Close())

	assert.Equal(t, int32(10), handled.Load())
	assert.ErrorIs(t, bus.Publish(shared.NewLevelUpEvent("acc-1", 1, 2, t0)), ErrEventBusClosed)
	assert.ErrorIs(t, bus.SubscribeAll(func(shared.Event) error { return nil }), ErrEventBusClosed)
}

func TestInMemoryEventBus_RejectsNil(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{})
	defer bus.Close()

	assert.Error(t, bus.Publish(nil))
	assert.Error(t, bus.Subscribe(shared.EventLevelUp, nil))
}

// fakeRedis routes published messages to every subscriber, like a single
// Redis server shared by several instances.
type fakeRedis struct {
	mu        sync.Mutex
	subs      []chan RedisMessage
	published []string
	failNext  bool
	down      bool
	attempts  int
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.down {
		return errors.New("connection refused")
	}
	if f.failNext {
		f.failNext = false
		return errors.New("connection refused")
	}
	payload := message.(string)
	f.published = append(f.published, payload)
	for _, ch := range f.subs {
		ch <- RedisMessage{Channel: channel, Payload: payload}
	}
	return nil
}

func (f *fakeRedis) Subscribe(ctx context.Context, channels ...string) (<-chan RedisMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan RedisMessage, 16)
	f.subs = append(f.subs, ch)
	return ch, nil
}

func (f *fakeRedis) Close() error { return nil }

func TestRedisEventBus_FansOutToOtherInstances(t *testing.T) {
	server := &fakeRedis{}

	a, err := NewRedisEventBus(RedisEventBusConfig{Client: server, InstanceID: "a"})
	require.NoError(t, err)
	defer a.Close()
	b, err := NewRedisEventBus(RedisEventBusConfig{Client: server, InstanceID: "b"})
	require.NoError(t, err)
	defer b.Close()

	var localA atomic.Int32
	require.NoError(t, a.SubscribeAll(func(shared.Event) error { localA.Add(1); return nil }))

	remote := make(chan shared.Event, 1)
	require.NoError(t, b.Subscribe(shared.EventEnrollmentCompleted, func(e shared.Event) error {
		remote <- e
		return nil
	}))

	require.NoError(t, a.Publish(shared.NewEnrollmentCompletedEvent("enr-1", "acc-1", "course-1", true, t0)))

	select {
	case e := <-remote:
		assert.Equal(t, shared.EventEnrollmentCompleted, e.EventType())
		assert.Equal(t, "enr-1", e.AggregateID())
		assert.True(t, e.OccurredAt().Equal(t0))
		assert.Equal(t, "course-1", e.Payload()["course_id"])
		assert.Equal(t, true, e.Payload()["rewarded"])
	case <-time.After(time.Second):
		t.Fatal("remote instance did not receive the event")
	}

	// Own event comes back from Redis but is delivered locally only once.
	require.Eventually(t, func() bool { return localA.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), localA.Load())
}

func TestRedisEventBus_PublishFailureStillDeliversLocally(t *testing.T) {
	server := &fakeRedis{failNext: true}
	bus, err := NewRedisEventBus(RedisEventBusConfig{Client: server})
	require.NoError(t, err)
	defer bus.Close()

	delivered := make(chan struct{}, 1)
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { delivered <- struct{}{}; return nil }))

	err = bus.Publish(shared.NewLevelUpEvent("acc-1", 1, 2, t0))
	assert.Error(t, err)

	select {
	case <-delivered:
	case <-time.After(time.Second):
		t.Fatal("local handler not called")
	}
}

func TestRedisEventBus_BreakerSkipsRedisWhileOpen(t *testing.T) {
	server := &fakeRedis{down: true}
	breaker := circuitbreaker.New("test", circuitbreaker.WithFailureThreshold(2), circuitbreaker.WithCoolDown(time.Hour))
	bus, err := NewRedisEventBus(RedisEventBusConfig{Client: server, Breaker: breaker})
	require.NoError(t, err)
	defer bus.Close()

	var delivered atomic.Int32
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { delivered.Add(1); return nil }))

	for i := 0; i < 4; i++ {
		assert.Error(t, bus.Publish(shared.NewLevelUpEvent("acc-1", 1, 2, t0)))
	}
	assert.Equal(t, circuitbreaker.StateOpen, bus.BreakerState())

	server.mu.Lock()
	attempts := server.attempts
	server.mu.Unlock()
	assert.Equal(t, 2, attempts)

	err = bus.Publish(shared.NewLevelUpEvent("acc-1", 2, 3, t0))
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	require.Eventually(t, func() bool { return delivered.Load() == 5 }, time.Second, 5*time.Millisecond)
}

func TestDecodeEnvelope_RejectsGarbage(t *testing.T) {
	_, err := decodeEnvelope("not json")
	assert.Error(t, err)

	_, err = decodeEnvelope(`{"id":"x"}`)
	assert.Error(t, err)
}
