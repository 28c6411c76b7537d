package realtime

import (
	"aquacare/internal/domain/customer"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeConn struct {
	mu       sync.Mutex
	written  []any
	closed   bool
	writeErr error
}

func (c *fakeConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	c.written = append(c.written, v)
	return nil
}

func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func TestHub_NotifiesOnlyTheOwner(t *testing.T) {
	hub := NewHub(logger)
	alice1, alice2, bob := &fakeConn{}, &fakeConn{}, &fakeConn{}
	hub.Register("alice", alice1)
	hub.Register("alice", alice2)
	hub.Register("bob", bob)

	change := customer.Change{Kind: customer.ChangeCustomerCreated, CustomerID: uuid.New(), Customers: 3}
	hub.NotifySnapshotChanged("alice", change)

	for _, c := range []*fakeConn{alice1, alice2} {
		require.Len(t, c.written, 1)
		msg := c.written[0].(Message)
		assert.Equal(t, EventSnapshotChanged, msg.Event)
		assert.Equal(t, change, msg.Data)
	}
	assert.Empty(t, bob.written)
}

func TestHub_UnregisterClosesConnection(t *testing.T) {
	hub := NewHub(logger)
	conn := &fakeConn{}
	unregister := hub.Register("alice", conn)
	assert.Equal(t, 1, hub.Connections("alice"))

	unregister()
	unregister()

	assert.True(t, conn.closed)
	assert.Equal(t, 0, hub.Connections("alice"))
}

func TestHub_DropsClientsThatFailWrites(t *testing.T) {
	hub := NewHub(logger)
	good := &fakeConn{}
	bad := &fakeConn{writeErr: errors.New("broken pipe")}
	hub.Register("alice", good)
	hub.Register("alice", bad)

	hub.Notify("alice", "ping", nil)

	assert.Len(t, good.written, 1)
	assert.True(t, bad.closed)
	assert.Equal(t, 1, hub.Connections("alice"))
}

func TestHub_NotifyWithoutClientsIsNoop(t *testing.T) {
	hub := NewHub(logger)
	assert.NotPanics(t, func() { hub.Notify("nobody", "ping", nil) })
}

func TestHub_Close(t *testing.T) {
	hub := NewHub(logger)
	a, b := &fakeConn{}, &fakeConn{}
	hub.Register("alice", a)
	hub.Register("bob", b)

	hub.Close()

	assert.True(t, a.closed)
	assert.True(t, b.closed)
	assert.Equal(t, 0, hub.Connections("alice"))
}
