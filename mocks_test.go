package pms_test

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pmsworks/pms"
	"github.com/stretchr/testify/mock"
)

// MockIdentitySource implements pms.IdentitySource
type MockIdentitySource struct {
	mock.Mock
}

func (m *MockIdentitySource) Subscribe(fn func(*pms.Session)) func() {
	fn(nil)
	return func() {}
}

func (m *MockIdentitySource) SignInInteractive(ctx context.Context, proof pms.InteractiveProof) (*pms.Session, error) {
	args := m.Called(ctx, proof)
	s, _ := args.Get(0).(*pms.Session)
	return s, args.Error(1)
}

func (m *MockIdentitySource) SignInWithCredentials(ctx context.Context, email, password string) (*pms.Session, error) {
	args := m.Called(ctx, email, password)
	s, _ := args.Get(0).(*pms.Session)
	return s, args.Error(1)
}

func (m *MockIdentitySource) CreateAccount(ctx context.Context, email, password string) (*pms.Session, error) {
	args := m.Called(ctx, email, password)
	s, _ := args.Get(0).(*pms.Session)
	return s, args.Error(1)
}

func (m *MockIdentitySource) UpdateProfile(ctx context.Context, session *pms.Session, profile pms.ProfileUpdate) error {
	args := m.Called(ctx, session, profile)
	return args.Error(0)
}

func (m *MockIdentitySource) SignOut(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// deferredSource holds subscriptions until Deliver is called, like a
// provider that resolves the initial session asynchronously.
type deferredSource struct {
	mu           sync.Mutex
	subs         []func(*pms.Session)
	unsubscribed atomic.Int32
}

func (d *deferredSource) Subscribe(fn func(*pms.Session)) func() {
	d.mu.Lock()
	d.subs = append(d.subs, fn)
	d.mu.Unlock()
	return func() { d.unsubscribed.Add(1) }
}

func (d *deferredSource) Deliver(s *pms.Session) {
	d.mu.Lock()
	subs := append([]func(*pms.Session){}, d.subs...)
	d.mu.Unlock()
	for _, fn := range subs {
		fn(s)
	}
}

func (d *deferredSource) SignInInteractive(context.Context, pms.InteractiveProof) (*pms.Session, error) {
	return nil, nil
}

func (d *deferredSource) SignInWithCredentials(context.Context, string, string) (*pms.Session, error) {
	return nil, nil
}

func (d *deferredSource) CreateAccount(context.Context, string, string) (*pms.Session, error) {
	return nil, nil
}

func (d *deferredSource) UpdateProfile(context.Context, *pms.Session, pms.ProfileUpdate) error {
	return nil
}

func (d *deferredSource) SignOut(context.Context) error {
	return nil
}

// blockingSource holds every sign-in until release is closed.
type blockingSource struct {
	deferredSource
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func newBlockingSource() *blockingSource {
	return &blockingSource{
		entered: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
}

func (b *blockingSource) SignInWithCredentials(context.Context, string, string) (*pms.Session, error) {
	b.calls.Add(1)
	b.entered <- struct{}{}
	<-b.release
	return &pms.Session{UserID: "u1"}, nil
}
