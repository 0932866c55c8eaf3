package receiver

import (
	"sync"

	"dpftp/internal/channel"
)

// InboxBufferSize bounds how many pending writes a slow ingest task can
// fall behind by before the dispatch loop blocks on that peer.
const InboxBufferSize = 20

// Dispatcher maintains the peer-address → inbox-channel route table. The
// server's receive loop uses it to hand each inbound payload to the
// right per-peer file-writer task; the loop is demultiplexing by
// address, not by connection object, since every peer shares one
// listening socket.
type Dispatcher struct {
	mu         sync.Mutex
	routeTable map[string]channel.Channel[[]byte]
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		routeTable: make(map[string]channel.Channel[[]byte]),
	}
}

// Register creates a buffered inbox channel for addr and stores it in
// the route table. Returns the channel so the caller can hand it to the
// ingest task it is about to spawn.
func (d *Dispatcher) Register(addr string) channel.Channel[[]byte] {
	d.mu.Lock()
	defer d.mu.Unlock()
	ch := channel.New[[]byte](InboxBufferSize)
	d.routeTable[addr] = ch
	return ch
}

// Unregister removes addr from the route table. The channel itself is
// left for the ingest task to finish draining and close.
func (d *Dispatcher) Unregister(addr string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.routeTable, addr)
}

// Route looks up the inbox channel for addr.
func (d *Dispatcher) Route(addr string) (channel.Channel[[]byte], bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ch, ok := d.routeTable[addr]
	return ch, ok
}
