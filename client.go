package pms

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// InteractiveProvider completes a provider-driven sign-in.
type InteractiveProvider interface {
	Name() string
	Complete(ctx context.Context, proof InteractiveProof) (*ExternalProfile, error)
}

// AuthClient is the IdentitySource of one client. It owns the client's
// current session and notifies subscribers when a user signs in or out.
type AuthClient struct {
	directory    *Directory
	interactive  map[string]InteractiveProvider
	logger       Logger
	activitySink ActivitySink

	mu      sync.Mutex
	current *Session
	subs    map[int]func(*Session)
	nextSub int
}

var _ IdentitySource = (*AuthClient)(nil)

type ClientOption func(*AuthClient)

// WithRestoredSession seeds the client with a session carried over from a
// previous request.
func WithRestoredSession(s *Session) ClientOption {
	return func(c *AuthClient) {
		if s.Present() {
			c.current = s.clone()
		}
	}
}

func WithInteractiveProvider(p InteractiveProvider) ClientOption {
	return func(c *AuthClient) {
		if p != nil {
			c.interactive[p.Name()] = p
		}
	}
}

func WithClientLogger(l Logger) ClientOption {
	return func(c *AuthClient) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithActivitySink(sink ActivitySink) ClientOption {
	return func(c *AuthClient) {
		c.activitySink = normalizeActivitySink(sink)
	}
}

func NewAuthClient(dir *Directory, opts ...ClientOption) *AuthClient {
	c := &AuthClient{
		directory:    dir,
		interactive:  map[string]InteractiveProvider{},
		logger:       defLogger{},
		activitySink: noopActivitySink{},
		subs:         map[int]func(*Session){},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Current returns a copy of the client's session.
func (c *AuthClient) Current() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current.clone()
}

// Subscribe registers fn and immediately delivers the current state, the
// way the first auth-state notification resolves the initial session.
func (c *AuthClient) Subscribe(fn func(*Session)) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	current := c.current.clone()
	c.mu.Unlock()

	fn(current)

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

func (c *AuthClient) SignInWithCredentials(ctx context.Context, email, password string) (*Session, error) {
	account, err := c.directory.Authenticate(ctx, email, password)
	if err != nil {
		c.emit(ctx, ActivityEventLoginFailure, "", ProviderPassword, err)
		return nil, err
	}

	if err := abandoned(ctx, "sign_in"); err != nil {
		c.emit(ctx, ActivityEventLoginFailure, "", ProviderPassword, err)
		return nil, err
	}

	session := account.Session()
	c.set(session)
	c.emit(ctx, ActivityEventLoginSuccess, session.UserID, ProviderPassword, nil)
	return session.clone(), nil
}

func (c *AuthClient) CreateAccount(ctx context.Context, email, password string) (*Session, error) {
	account, err := c.directory.Register(ctx, email, password)
	if err != nil {
		c.emit(ctx, ActivityEventSignupFailure, "", ProviderPassword, err)
		return nil, err
	}

	if err := abandoned(ctx, "create_account"); err != nil {
		c.emit(ctx, ActivityEventSignupFailure, "", ProviderPassword, err)
		return nil, err
	}

	session := account.Session()
	c.set(session)
	c.emit(ctx, ActivityEventSignup, session.UserID, ProviderPassword, nil)
	return session.clone(), nil
}

func (c *AuthClient) SignInInteractive(ctx context.Context, proof InteractiveProof) (*Session, error) {
	const op = "sign_in_interactive"

	fail := func(err error) (*Session, error) {
		c.emit(ctx, ActivityEventSocialFailure, "", proof.Provider, err)
		return nil, err
	}

	if proof.Error != "" {
		return fail(NewProviderError(op, CodePopupClosedByUser, goerrors.New(proof.Error, goerrors.CategoryAuth)))
	}

	provider, ok := c.interactive[proof.Provider]
	if !ok {
		return fail(NewProviderError(op, CodeInteractiveFailure, goerrors.New("provider not configured: "+proof.Provider, goerrors.CategoryNotFound)))
	}

	profile, err := provider.Complete(ctx, proof)
	if err != nil {
		if ErrorCode(err) == "" {
			err = NewProviderError(op, CodeInteractiveFailure, err)
		}
		return fail(err)
	}

	account, err := c.directory.Link(ctx, profile)
	if err != nil {
		return fail(err)
	}

	if err := abandoned(ctx, op); err != nil {
		return fail(err)
	}

	session := account.Session()
	session.Provider = provider.Name()
	c.set(session)
	c.emit(ctx, ActivityEventSocialLogin, session.UserID, provider.Name(), nil)
	return session.clone(), nil
}

func (c *AuthClient) UpdateProfile(ctx context.Context, session *Session, profile ProfileUpdate) error {
	if !session.Present() {
		return NewProviderError("update_profile", CodeUserNotFound, goerrors.New("no session", goerrors.CategoryAuth))
	}

	name, err := c.directory.UpdateDisplayName(ctx, session.UserID, profile.DisplayName)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.current.Present() && c.current.UserID == session.UserID {
		c.current.DisplayName = name
	}
	c.mu.Unlock()

	session.DisplayName = name
	c.emit(ctx, ActivityEventProfileUpdated, session.UserID, session.Provider, nil)
	return nil
}

func (c *AuthClient) SignOut(ctx context.Context) error {
	prev := c.Current()
	c.set(nil)
	if prev.Present() {
		c.emit(ctx, ActivityEventLogout, prev.UserID, prev.Provider, nil)
	}
	return nil
}

// abandoned reports a call whose caller already gave up. Its session must
// not be stored: the form has reported a timeout and released its latch.
func abandoned(ctx context.Context, op string) error {
	err := ctx.Err()
	if err == nil {
		return nil
	}
	if goerrors.Is(err, context.DeadlineExceeded) {
		return NewProviderError(op, CodeTimeout, err)
	}
	return NewProviderError(op, CodeInternal, err)
}

// set stores next and notifies subscribers when the signed-in user changed.
func (c *AuthClient) set(next *Session) {
	c.mu.Lock()
	prev := c.current
	c.current = next.clone()
	changed := prev.Present() != next.Present() ||
		(prev.Present() && prev.UserID != next.UserID)
	subs := make([]func(*Session), 0, len(c.subs))
	if changed {
		for _, fn := range c.subs {
			subs = append(subs, fn)
		}
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(next.clone())
	}
}

func (c *AuthClient) emit(ctx context.Context, eventType ActivityEventType, userID, provider string, err error) {
	event := ActivityEvent{
		EventType:  eventType,
		UserID:     userID,
		Provider:   provider,
		Code:       ErrorCode(err),
		Metadata:   map[string]any{},
		OccurredAt: time.Now(),
	}
	if err != nil {
		event.Metadata["error"] = err.Error()
	}

	if rErr := c.activitySink.Record(ctx, event); rErr != nil {
		c.logger.Warn("activity sink record error", "error", rErr)
	}
}
