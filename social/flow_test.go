package social

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/pmsworks/pms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	exchangeErr  error
	gotCode      string
	gotVerifier  string
	gotChallenge string
}

func (p *fakeProvider) Name() string { return pms.ProviderGoogle }

func (p *fakeProvider) AuthCodeURL(state, challenge string) string {
	p.gotChallenge = challenge
	return "https://provider.test/auth?" + url.Values{"state": {state}, "code_challenge": {challenge}}.Encode()
}

func (p *fakeProvider) Exchange(_ context.Context, code, verifier string) (*Token, error) {
	p.gotCode = code
	p.gotVerifier = verifier
	if p.exchangeErr != nil {
		return nil, p.exchangeErr
	}
	return &Token{AccessToken: "token"}, nil
}

func (p *fakeProvider) UserInfo(_ context.Context, token *Token) (*pms.ExternalProfile, error) {
	return &pms.ExternalProfile{
		Provider:       pms.ProviderGoogle,
		ProviderUserID: "sub-1",
		Email:          "kim@example.com",
		EmailVerified:  true,
		Name:           "Kim",
	}, nil
}

func beginState(t *testing.T, flow *Flow, from string) string {
	t.Helper()
	redirect, err := flow.Begin(from)
	require.NoError(t, err)

	u, err := url.Parse(redirect)
	require.NoError(t, err)
	return u.Query().Get("state")
}

func TestFlow_BeginAndComplete(t *testing.T) {
	provider := &fakeProvider{}
	flow := NewFlow(provider, NewEncryptedStateManager(testStateKey, testHMACKey, time.Minute))

	state := beginState(t, flow, "/")

	peeked, err := flow.Peek(state)
	require.NoError(t, err)
	assert.Equal(t, "/", peeked.From)
	assert.Equal(t, computeCodeChallenge(peeked.CodeVerifier), provider.gotChallenge)

	profile, err := flow.Complete(context.Background(), pms.InteractiveProof{
		Provider: pms.ProviderGoogle,
		Code:     "auth-code",
		State:    state,
	})
	require.NoError(t, err)
	assert.Equal(t, "sub-1", profile.ProviderUserID)
	assert.Equal(t, "auth-code", provider.gotCode)
	assert.Equal(t, peeked.CodeVerifier, provider.gotVerifier)
}

func TestFlow_BeginRejectsExternalReturnPath(t *testing.T) {
	flow := NewFlow(&fakeProvider{}, NewEncryptedStateManager(testStateKey, testHMACKey, time.Minute))

	state := beginState(t, flow, "https://evil.test/")
	peeked, err := flow.Peek(state)
	require.NoError(t, err)
	assert.Equal(t, "/", peeked.From)
}

func TestFlow_CompleteFailures(t *testing.T) {
	provider := &fakeProvider{}
	flow := NewFlow(provider, NewEncryptedStateManager(testStateKey, testHMACKey, time.Minute))

	_, err := flow.Complete(context.Background(), pms.InteractiveProof{Code: "c", State: "bogus"})
	assert.Equal(t, pms.CodeInteractiveFailure, pms.ErrorCode(err))
	assert.ErrorIs(t, err, ErrInvalidState)

	state := beginState(t, flow, "/")
	_, err = flow.Complete(context.Background(), pms.InteractiveProof{State: state})
	assert.Equal(t, pms.CodeInteractiveFailure, pms.ErrorCode(err))

	provider.exchangeErr = &ProviderError{Provider: "google", Operation: "exchange", Code: "invalid_grant"}
	_, err = flow.Complete(context.Background(), pms.InteractiveProof{Code: "c", State: state})
	assert.Equal(t, pms.CodeInteractiveFailure, pms.ErrorCode(err))

	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "invalid_grant", perr.Code)
	assert.ErrorIs(t, err, ErrTokenExchangeFailed)
}

func TestFlow_CompleteRejectsReplayedState(t *testing.T) {
	provider := &fakeProvider{}
	flow := NewFlow(provider, NewEncryptedStateManager(testStateKey, testHMACKey, time.Minute))

	state := beginState(t, flow, "/")
	proof := pms.InteractiveProof{Provider: pms.ProviderGoogle, Code: "auth-code", State: state}

	_, err := flow.Complete(context.Background(), proof)
	require.NoError(t, err)

	_, err = flow.Peek(state)
	assert.NoError(t, err, "peek does not consume")

	provider.gotCode = ""
	_, err = flow.Complete(context.Background(), proof)
	assert.Equal(t, pms.CodeInteractiveFailure, pms.ErrorCode(err))
	assert.ErrorIs(t, err, ErrStateReplayed)
	assert.Empty(t, provider.gotCode, "replay never reaches the provider")

	other := beginState(t, flow, "/")
	_, err = flow.Complete(context.Background(), pms.InteractiveProof{Code: "c", State: other})
	assert.NoError(t, err)
}

func TestUsedStates_SweepsExpired(t *testing.T) {
	now := time.Unix(1_000, 0)
	used := newUsedStates()
	used.now = func() time.Time { return now }

	assert.True(t, used.claim("a", now.Add(time.Minute)))
	assert.False(t, used.claim("a", now.Add(time.Minute)))
	assert.True(t, used.claim("b", now.Add(time.Hour)))

	now = now.Add(2 * time.Minute)
	assert.True(t, used.claim("c", now.Add(time.Minute)))
	assert.Len(t, used.seen, 2)
	assert.False(t, used.claim("b", now.Add(time.Hour)))
}
