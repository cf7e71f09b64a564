package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...interface{}) {}
func (nopLogger) Info(msg string, args ...interface{})  {}
func (nopLogger) Warn(msg string, args ...interface{})  {}
func (nopLogger) Error(msg string, args ...interface{}) {}
func (nopLogger) Fatal(msg string, args ...interface{}) {}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub(nopLogger{})

	c1 := hub.NewClient()
	c2 := hub.NewClient()
	hub.Subscribe(c1, ChannelProgrammes)
	hub.Subscribe(c2, EtudiantChannel(1))

	hub.Broadcast(Message{Channel: ChannelProgrammes, Event: EventProgrammesRefreshed})

	select {
	case msg := <-c1.Outbound:
		assert.Equal(t, EventProgrammesRefreshed, msg.Event)
	default:
		t.Error("subscriber did not receive the broadcast")
	}
	select {
	case msg := <-c2.Outbound:
		t.Errorf("unsubscribed client received %+v", msg)
	default:
	}
}

func TestHub_Broadcast_skipsSlowClients(t *testing.T) {
	hub := NewHub(nopLogger{})

	c := hub.NewClient()
	hub.Subscribe(c, ChannelProgrammes)

	// fill the outbound buffer, then one more; the overflow is dropped
	for i := 0; i < cap(c.Outbound)+1; i++ {
		hub.Broadcast(Message{Channel: ChannelProgrammes, Event: EventSoldeDebited})
	}
	assert.Len(t, c.Outbound, cap(c.Outbound))
}

func TestHub_CloseClient(t *testing.T) {
	hub := NewHub(nopLogger{})

	c := hub.NewClient()
	hub.Subscribe(c, ChannelProgrammes)
	hub.Subscribe(c, EtudiantChannel(3))
	require.Len(t, c.Channels, 2)

	hub.CloseClient(c)
	assert.Empty(t, c.Channels)

	// broadcasting after the close must not panic on the closed channel
	hub.Broadcast(Message{Channel: ChannelProgrammes, Event: EventSoldeDebited})
}
