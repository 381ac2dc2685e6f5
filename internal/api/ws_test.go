package api

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// slowConn flags any overlapping WriteJSON calls.
type slowConn struct {
	writing  atomic.Bool
	overlaps atomic.Int32
	writes   atomic.Int32
}

func (c *slowConn) WriteJSON(v any) error {
	if !c.writing.CompareAndSwap(false, true) {
		c.overlaps.Add(1)
		return nil
	}
	time.Sleep(time.Millisecond)
	c.writes.Add(1)
	c.writing.Store(false)
	return nil
}

func (c *slowConn) ReadJSON(v any) error { return nil }
func (c *slowConn) Close() error         { return nil }

func TestHubSerializesWritesPerConnection(t *testing.T) {
	h := newHub()
	conn := &slowConn{}
	h.add("c1", conn)

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				h.broadcast("c1", event{Type: "delta", Data: "x"})
			}
		}()
	}
	wg.Wait()

	if got := conn.overlaps.Load(); got != 0 {
		t.Fatalf("observed %d concurrent writes to one connection", got)
	}
	if got := conn.writes.Load(); got != writers*5 {
		t.Fatalf("writes = %d, want %d", got, writers*5)
	}
}

func TestHubRemoveStopsDelivery(t *testing.T) {
	h := newHub()
	conn := &slowConn{}
	client := h.add("c1", conn)

	h.broadcast("c1", event{Type: "delta"})
	h.remove("c1", client)
	h.broadcast("c1", event{Type: "delta"})

	if got := conn.writes.Load(); got != 1 {
		t.Fatalf("writes after removal = %d, want 1", got)
	}
}
