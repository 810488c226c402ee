package social

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pmsworks/pms"
)

// Flow runs the interactive sign-in round trip for one provider: it builds
// the consent redirect and, on callback, turns the code into a profile.
type Flow struct {
	provider Provider
	states   StateManager
	used     *usedStates
}

var _ pms.InteractiveProvider = (*Flow)(nil)

func NewFlow(provider Provider, states StateManager) *Flow {
	return &Flow{
		provider: provider,
		states:   states,
		used:     newUsedStates(),
	}
}

func (f *Flow) Name() string {
	return f.provider.Name()
}

// Begin returns the provider consent URL. from is restored after the
// callback completes.
func (f *Flow) Begin(from string) (string, error) {
	verifier, err := generateCodeVerifier()
	if err != nil {
		return "", fmt.Errorf("failed to generate code verifier: %w", err)
	}

	token, err := f.states.Encode(&OAuthState{
		Provider:     f.provider.Name(),
		CodeVerifier: verifier,
		From:         pms.SafeReturnPath(from),
		IssuedAt:     time.Now().Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode state: %w", err)
	}

	return f.provider.AuthCodeURL(token, computeCodeChallenge(verifier)), nil
}

// Peek decodes the state without completing the flow. Callers use it to
// recover From before the exchange runs. It does not consume the state.
func (f *Flow) Peek(stateToken string) (*OAuthState, error) {
	state, err := f.states.Decode(stateToken)
	if err != nil {
		return nil, err
	}
	if state.Provider != f.provider.Name() || state.Nonce == "" {
		return nil, ErrInvalidState
	}
	return state, nil
}

// Complete implements pms.InteractiveProvider. A state completes at most
// once; replays fail even while the token is unexpired.
func (f *Flow) Complete(ctx context.Context, proof pms.InteractiveProof) (*pms.ExternalProfile, error) {
	const op = "sign_in_interactive"

	state, err := f.Peek(proof.State)
	if err != nil {
		return nil, pms.NewProviderError(op, pms.CodeInteractiveFailure, err)
	}

	if proof.Code == "" {
		return nil, pms.NewProviderError(op, pms.CodeInteractiveFailure, ErrMissingCode)
	}

	if !f.used.claim(state.Nonce, time.Unix(state.ExpiresAt, 0)) {
		return nil, pms.NewProviderError(op, pms.CodeInteractiveFailure, ErrStateReplayed)
	}

	token, err := f.provider.Exchange(ctx, proof.Code, state.CodeVerifier)
	if err != nil {
		err = wrapProviderError(ErrTokenExchangeFailed, f.provider.Name(), "exchange", err)
		return nil, pms.NewProviderError(op, pms.CodeInteractiveFailure, err)
	}

	profile, err := f.provider.UserInfo(ctx, token)
	if err != nil {
		err = wrapProviderError(ErrUserInfoFailed, f.provider.Name(), "userinfo", err)
		return nil, pms.NewProviderError(op, pms.CodeInteractiveFailure, err)
	}
	return profile, nil
}

// usedStates remembers consumed state nonces until the state would have
// expired anyway.
type usedStates struct {
	mu   sync.Mutex
	seen map[string]time.Time
	now  func() time.Time
}

func newUsedStates() *usedStates {
	return &usedStates{
		seen: map[string]time.Time{},
		now:  time.Now,
	}
}

// claim marks nonce used. It returns false if it was already claimed.
func (u *usedStates) claim(nonce string, expires time.Time) bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	now := u.now()
	for n, exp := range u.seen {
		if now.After(exp) {
			delete(u.seen, n)
		}
	}

	if _, ok := u.seen[nonce]; ok {
		return false
	}
	u.seen[nonce] = expires
	return true
}
