package pms

import (
	"context"
	"sync"
)

// SessionObserver keeps the latest session delivered by an IdentitySource.
// It subscribes on construction and stays in the determining state until
// the first notification arrives.
type SessionObserver struct {
	mu          sync.RWMutex
	session     *Session
	determining bool
	ready       chan struct{}
	readyOnce   sync.Once
	closeOnce   sync.Once
	unsubscribe func()
	listeners   []func(*Session)
}

func NewSessionObserver(src IdentitySource) *SessionObserver {
	o := &SessionObserver{
		determining: true,
		ready:       make(chan struct{}),
	}
	o.unsubscribe = src.Subscribe(o.update)
	return o
}

func (o *SessionObserver) update(s *Session) {
	o.mu.Lock()
	o.session = s.clone()
	o.determining = false
	listeners := append([]func(*Session){}, o.listeners...)
	o.mu.Unlock()

	o.readyOnce.Do(func() { close(o.ready) })

	for _, fn := range listeners {
		fn(s.clone())
	}
}

// OnChange registers fn to run after every stored notification.
func (o *SessionObserver) OnChange(fn func(*Session)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.listeners = append(o.listeners, fn)
}

// Session returns a copy of the latest session, nil when absent.
func (o *SessionObserver) Session() *Session {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.session.clone()
}

// Determining is true until the first notification has been stored.
func (o *SessionObserver) Determining() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.determining
}

// Ready is closed once the initial session state is known.
func (o *SessionObserver) Ready() <-chan struct{} {
	return o.ready
}

// Wait blocks until the initial session state is known or ctx is done.
func (o *SessionObserver) Wait(ctx context.Context) (*Session, error) {
	select {
	case <-o.ready:
		return o.Session(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close unsubscribes from the source. It is safe to call more than once.
func (o *SessionObserver) Close() {
	o.closeOnce.Do(func() {
		if o.unsubscribe != nil {
			o.unsubscribe()
		}
	})
}
