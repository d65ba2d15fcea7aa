package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListenCmd_ReceivesEvent(t *testing.T) {
	broker := NewBroker[string]()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := broker.Subscribe(ctx)
	broker.Publish(UpdatedEvent, "saved")

	msg := ListenCmd(ctx, ch)()

	event, ok := msg.(Event[string])
	require.True(t, ok, "msg should be Event[string]")
	require.Equal(t, "saved", event.Payload)
	require.Equal(t, UpdatedEvent, event.Type)
}

func TestListenCmd_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ch := make(chan Event[string])
	msg := ListenCmd(ctx, ch)()

	require.Nil(t, msg, "should return nil when context cancelled")
}

func TestListenCmd_ChannelClosed(t *testing.T) {
	ch := make(chan Event[string])
	close(ch)

	msg := ListenCmd(context.Background(), ch)()

	require.Nil(t, msg, "should return nil when channel closed")
}

func TestContinuousListener_ListenInOrder(t *testing.T) {
	broker := NewBroker[int]()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listener := NewContinuousListener(ctx, broker)

	broker.Publish(CreatedEvent, 1)
	broker.Publish(UpdatedEvent, 2)
	broker.Publish(DeletedEvent, 3)

	for i, want := range []EventType{CreatedEvent, UpdatedEvent, DeletedEvent} {
		msg := listener.Listen()()
		event, ok := msg.(Event[int])
		require.True(t, ok, "msg should be Event[int]")
		require.Equal(t, i+1, event.Payload)
		require.Equal(t, want, event.Type)
	}
}

func TestContinuousListener_ReplaysRetained(t *testing.T) {
	broker := NewBroker[string](WithRetainLast())
	defer broker.Close()

	broker.Publish(UpdatedEvent, "unsaved")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listener := NewContinuousListener(ctx, broker)
	event, ok := listener.Listen()().(Event[string])
	require.True(t, ok)
	require.Equal(t, "unsaved", event.Payload)
}
