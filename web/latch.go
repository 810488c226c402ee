package web

import (
	"sync"

	"github.com/pmsworks/pms"
)

// ClientLatches hands out one busy flag per client id, so concurrent
// requests from the same browser share it.
type ClientLatches struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

func NewClientLatches() *ClientLatches {
	return &ClientLatches{busy: map[string]struct{}{}}
}

// For returns the latch of clientID.
func (l *ClientLatches) For(clientID string) pms.Latch {
	return clientLatch{reg: l, id: clientID}
}

// Active reports whether clientID has a submission in flight.
func (l *ClientLatches) Active(clientID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.busy[clientID]
	return ok
}

type clientLatch struct {
	reg *ClientLatches
	id  string
}

func (c clientLatch) TryAcquire() bool {
	c.reg.mu.Lock()
	defer c.reg.mu.Unlock()
	if _, ok := c.reg.busy[c.id]; ok {
		return false
	}
	c.reg.busy[c.id] = struct{}{}
	return true
}

func (c clientLatch) Release() {
	c.reg.mu.Lock()
	delete(c.reg.busy, c.id)
	c.reg.mu.Unlock()
}
