package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/core"
)

func TestBus_SubscribeAll(t *testing.T) {
	bus := New(10)
	defer bus.Close()

	ch := bus.Subscribe()
	bus.Publish(NewTurnStartedEvent("p1", "u1", core.IntentDeciding))

	select {
	case ev := <-ch:
		assert.Equal(t, TypeTurnStarted, ev.EventType())
		assert.Equal(t, "p1", ev.ProjectID())
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestBus_TypeFilter(t *testing.T) {
	bus := New(10)
	defer bus.Close()

	ch := bus.Subscribe(TypeActivity)
	bus.Publish(NewTurnStartedEvent("p1", "u1", core.IntentAsking))
	bus.Publish(NewActivityRecordedEvent(core.ActivityEvent{ID: "a1", ProjectID: "p1"}))

	select {
	case ev := <-ch:
		require.Equal(t, TypeActivity, ev.EventType())
		act := ev.(ActivityRecordedEvent)
		assert.Equal(t, "a1", act.Activity.ID)
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}

	select {
	case ev := <-ch:
		t.Fatalf("unexpected extra event %s", ev.EventType())
	default:
	}
}

func TestBus_FullBufferDropsOldest(t *testing.T) {
	bus := New(2)
	defer bus.Close()

	ch := bus.Subscribe()
	for i := 0; i < 5; i++ {
		bus.Publish(NewTurnFailedEvent("p1", "x"))
	}

	assert.Equal(t, int64(3), bus.DroppedCount())

	// Buffer still holds exactly two events.
	received := 0
	for {
		select {
		case <-ch:
			received++
		default:
			assert.Equal(t, 2, received)
			return
		}
	}
}

func TestBus_PublishAfterCloseIsNoop(t *testing.T) {
	bus := New(10)
	ch := bus.Subscribe()
	bus.Close()

	bus.Publish(NewTurnFailedEvent("p1", "x"))

	_, open := <-ch
	assert.False(t, open)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New(10)
	defer bus.Close()

	ch := bus.Subscribe()
	bus.Unsubscribe(ch)

	bus.Publish(NewTurnFailedEvent("p1", "x"))
	_, open := <-ch
	assert.False(t, open)
}
