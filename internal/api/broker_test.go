package api

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetopt/internal/model"
)

func recv(t *testing.T, ch chan model.ProgressEvent) model.ProgressEvent {
	t.Helper()
	select {
	case evt, ok := <-ch:
		require.True(t, ok, "channel closed")
		return evt
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
	}
	return model.ProgressEvent{}
}

func requireClosed(t *testing.T, ch chan model.ProgressEvent) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel not closed after unsubscribe")
		}
	}
}

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("r1")
	other := b.Subscribe("r2")

	b.Publish("r1", model.ProgressEvent{RunID: "r1", Type: "improved", Objective: 42})
	got := recv(t, ch)
	assert.Equal(t, "improved", got.Type)
	assert.Equal(t, int64(42), got.Objective)
	assert.Empty(t, other)

	b.Unsubscribe("r1", ch)
	requireClosed(t, ch)
	// a second unsubscribe is a no-op
	b.Unsubscribe("r1", ch)
	// publishing to a run without subscribers does nothing
	b.Publish("r1", model.ProgressEvent{Type: "done"})
	b.Unsubscribe("r2", other)
}

func TestBrokerDropsForSlowSubscriber(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("r1")
	for i := 0; i < 100; i++ {
		b.Publish("r1", model.ProgressEvent{Iteration: i})
	}
	assert.Len(t, ch, cap(ch))
	assert.Equal(t, 0, recv(t, ch).Iteration)
	b.Unsubscribe("r1", ch)
}

func TestRedisBroker(t *testing.T) {
	mr := miniredis.RunT(t)
	b, err := NewRedisBroker("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	ch := b.Subscribe("r1")
	b.Publish("r1", model.ProgressEvent{RunID: "r1", Type: "done", Status: model.StatusSolved, Objective: 7})
	got := recv(t, ch)
	assert.Equal(t, "done", got.Type)
	assert.Equal(t, model.StatusSolved, got.Status)
	assert.Equal(t, int64(7), got.Objective)

	b.Unsubscribe("r1", ch)
	requireClosed(t, ch)
}

func TestRedisBrokerUnreachable(t *testing.T) {
	_, err := NewRedisBroker("redis://127.0.0.1:1")
	require.Error(t, err)
}
