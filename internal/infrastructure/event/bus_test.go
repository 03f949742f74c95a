package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/flowdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingHandler struct {
	eventTypes []string
	err        error
	panicMsg   string

	mu      sync.Mutex
	handled []shared.DomainEvent
}

func newRecordingHandler(eventTypes ...string) *recordingHandler {
	return &recordingHandler{eventTypes: eventTypes}
}

func (h *recordingHandler) Handle(_ context.Context, e shared.DomainEvent) error {
	h.mu.Lock()
	h.handled = append(h.handled, e)
	h.mu.Unlock()
	if h.panicMsg != "" {
		panic(h.panicMsg)
	}
	return h.err
}

func (h *recordingHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func newStartedBus(t *testing.T) *InMemoryEventBus {
	t.Helper()
	bus := NewInMemoryEventBus(zap.NewNop())
	require.NoError(t, bus.Start(context.Background()))
	return bus
}

func memberAdded(tenantID uuid.UUID) shared.DomainEvent {
	return shared.NewGenericEvent("member.added", "membership", uuid.New(), tenantID, map[string]any{"role": "admin"})
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	bus := newStartedBus(t)
	handler := newRecordingHandler("member.added")
	bus.Subscribe(handler)

	e := memberAdded(uuid.New())
	require.NoError(t, bus.Publish(context.Background(), e, memberAdded(uuid.New())))

	require.Equal(t, 2, handler.count())
	assert.Equal(t, e, handler.handled[0])
}

func TestInMemoryEventBus_ExplicitTypesOverrideHandlerTypes(t *testing.T) {
	bus := newStartedBus(t)
	handler := newRecordingHandler("member.added")
	bus.Subscribe(handler, "role.created")

	_ = bus.Publish(context.Background(), memberAdded(uuid.New()))
	assert.Equal(t, 0, handler.count())

	_ = bus.Publish(context.Background(), shared.NewGenericEvent("role.created", "role", uuid.New(), uuid.New(), nil))
	assert.Equal(t, 1, handler.count())
}

func TestInMemoryEventBus_WildcardHandler(t *testing.T) {
	bus := newStartedBus(t)
	all := newRecordingHandler()
	bus.Subscribe(all)

	_ = bus.Publish(context.Background(),
		memberAdded(uuid.New()),
		shared.NewGenericEvent("pipeline.created", "pipeline", uuid.New(), uuid.New(), nil),
	)
	assert.Equal(t, 2, all.count())
}

func TestInMemoryEventBus_FailingHandlersAreIsolated(t *testing.T) {
	bus := newStartedBus(t)

	failing := newRecordingHandler("member.added")
	failing.err = errors.New("boom")
	panicking := newRecordingHandler("member.added")
	panicking.panicMsg = "nil map"
	healthy := newRecordingHandler("member.added")

	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	err := bus.Publish(context.Background(), memberAdded(uuid.New()))
	require.NoError(t, err)
	assert.Equal(t, 1, failing.count())
	assert.Equal(t, 1, panicking.count())
	assert.Equal(t, 1, healthy.count())
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := newStartedBus(t)
	handler := newRecordingHandler("member.added")
	other := newRecordingHandler()
	bus.Subscribe(handler)
	bus.Subscribe(other)

	_ = bus.Publish(context.Background(), memberAdded(uuid.New()))
	bus.Unsubscribe(handler)
	_ = bus.Publish(context.Background(), memberAdded(uuid.New()))

	assert.Equal(t, 1, handler.count())
	assert.Equal(t, 2, other.count())
}

func TestInMemoryEventBus_StoppedBusDropsEvents(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	handler := newRecordingHandler()
	bus.Subscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), memberAdded(uuid.New())))
	assert.Equal(t, 0, handler.count(), "not started yet")

	require.NoError(t, bus.Start(context.Background()))
	require.NoError(t, bus.Publish(context.Background(), memberAdded(uuid.New())))
	assert.Equal(t, 1, handler.count())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, bus.Stop(ctx))

	require.NoError(t, bus.Publish(context.Background(), memberAdded(uuid.New())))
	assert.Equal(t, 1, handler.count())
}

type blockingHandler struct {
	release chan struct{}
	entered chan struct{}
}

func (h *blockingHandler) Handle(context.Context, shared.DomainEvent) error {
	close(h.entered)
	<-h.release
	return nil
}

func (h *blockingHandler) EventTypes() []string { return nil }

func TestInMemoryEventBus_StopWaitsForInflight(t *testing.T) {
	bus := newStartedBus(t)
	h := &blockingHandler{release: make(chan struct{}), entered: make(chan struct{})}
	bus.Subscribe(h)

	go func() { _ = bus.Publish(context.Background(), memberAdded(uuid.New())) }()
	<-h.entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, bus.Stop(ctx), context.DeadlineExceeded)

	close(h.release)
	require.NoError(t, bus.Stop(context.Background()))
}

func TestInMemoryEventBus_PublishRacingStop(t *testing.T) {
	bus := newStartedBus(t)
	handler := newRecordingHandler()
	bus.Subscribe(handler)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, bus.Publish(context.Background(), memberAdded(uuid.New())))
		}()
	}
	require.NoError(t, bus.Stop(context.Background()))
	wg.Wait()

	delivered := handler.count()
	require.NoError(t, bus.Publish(context.Background(), memberAdded(uuid.New())))
	assert.Equal(t, delivered, handler.count(), "nothing is delivered after Stop returns")
}
