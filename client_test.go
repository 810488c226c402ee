package pms_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/pmsworks/pms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	events []pms.ActivityEvent
}

func (r *recordingSink) Record(_ context.Context, event pms.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingSink) types() []pms.ActivityEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]pms.ActivityEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}

type stubInteractive struct {
	profile *pms.ExternalProfile
	err     error
}

func (s stubInteractive) Name() string { return pms.ProviderGoogle }

func (s stubInteractive) Complete(context.Context, pms.InteractiveProof) (*pms.ExternalProfile, error) {
	return s.profile, s.err
}

func TestAuthClient_SubscribeDeliversCurrent(t *testing.T) {
	dir, _ := newTestDirectory(t)
	restored := &pms.Session{UserID: "u1"}
	client := pms.NewAuthClient(dir, pms.WithRestoredSession(restored))

	var got []*pms.Session
	unsubscribe := client.Subscribe(func(s *pms.Session) { got = append(got, s) })
	defer unsubscribe()

	require.Len(t, got, 1)
	assert.Equal(t, "u1", got[0].UserID)

	restored.UserID = "changed"
	assert.Equal(t, "u1", client.Current().UserID)
}

func TestAuthClient_CredentialLifecycle(t *testing.T) {
	ctx := context.Background()
	dir, _ := newTestDirectory(t)
	sink := &recordingSink{}
	client := pms.NewAuthClient(dir, pms.WithActivitySink(sink))

	var notified []*pms.Session
	unsubscribe := client.Subscribe(func(s *pms.Session) { notified = append(notified, s) })

	session, err := client.CreateAccount(ctx, "kim@example.com", "secret1")
	require.NoError(t, err)
	require.True(t, session.Present())

	require.NoError(t, client.UpdateProfile(ctx, session, pms.ProfileUpdate{DisplayName: "kim"}))
	assert.Equal(t, "kim", session.DisplayName)
	assert.Equal(t, "kim", client.Current().DisplayName)

	require.NoError(t, client.SignOut(ctx))
	assert.Nil(t, client.Current())

	session, err = client.SignInWithCredentials(ctx, "kim@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "kim", session.DisplayName)

	unsubscribe()
	require.NoError(t, client.SignOut(ctx))

	// initial absent, signup, sign out, sign in; nothing after unsubscribe
	require.Len(t, notified, 4)
	assert.Nil(t, notified[0])
	assert.True(t, notified[1].Present())
	assert.Nil(t, notified[2])
	assert.True(t, notified[3].Present())

	assert.Equal(t, []pms.ActivityEventType{
		pms.ActivityEventSignup,
		pms.ActivityEventProfileUpdated,
		pms.ActivityEventLogout,
		pms.ActivityEventLoginSuccess,
		pms.ActivityEventLogout,
	}, sink.types())
}

func TestAuthClient_FailuresKeepSessionAbsent(t *testing.T) {
	ctx := context.Background()
	dir, _ := newTestDirectory(t)
	sink := &recordingSink{}
	client := pms.NewAuthClient(dir, pms.WithActivitySink(sink))

	_, err := client.SignInWithCredentials(ctx, "nobody@example.com", "secret1")
	assert.Equal(t, pms.CodeUserNotFound, pms.ErrorCode(err))

	_, err = client.CreateAccount(ctx, "kim@example.com", "123")
	assert.Equal(t, pms.CodeWeakPassword, pms.ErrorCode(err))

	assert.Nil(t, client.Current())

	err = client.UpdateProfile(ctx, nil, pms.ProfileUpdate{DisplayName: "x"})
	assert.Equal(t, pms.CodeUserNotFound, pms.ErrorCode(err))

	require.Len(t, sink.events, 2)
	assert.Equal(t, pms.ActivityEventLoginFailure, sink.events[0].EventType)
	assert.Equal(t, pms.CodeUserNotFound, sink.events[0].Code)
	assert.Equal(t, pms.ActivityEventSignupFailure, sink.events[1].EventType)
}

func TestAuthClient_SignInInteractive(t *testing.T) {
	ctx := context.Background()
	dir, _ := newTestDirectory(t)

	provider := stubInteractive{profile: &pms.ExternalProfile{
		Provider:       pms.ProviderGoogle,
		ProviderUserID: "g-1",
		Email:          "kim@example.com",
		EmailVerified:  true,
		Name:           "Kim",
	}}
	client := pms.NewAuthClient(dir, pms.WithInteractiveProvider(provider))

	session, err := client.SignInInteractive(ctx, pms.InteractiveProof{Provider: pms.ProviderGoogle, Code: "c"})
	require.NoError(t, err)
	assert.Equal(t, "Kim", session.DisplayName)
	assert.Equal(t, pms.ProviderGoogle, session.Provider)
	assert.Equal(t, session, client.Current())
}

func TestAuthClient_SignInInteractiveFailures(t *testing.T) {
	ctx := context.Background()
	dir, _ := newTestDirectory(t)

	cases := []struct {
		name     string
		provider pms.InteractiveProvider
		proof    pms.InteractiveProof
		code     string
	}{
		{
			name:  "closed by user",
			proof: pms.InteractiveProof{Provider: pms.ProviderGoogle, Error: "access_denied"},
			code:  pms.CodePopupClosedByUser,
		},
		{
			name:  "provider not configured",
			proof: pms.InteractiveProof{Provider: "github"},
			code:  pms.CodeInteractiveFailure,
		},
		{
			name:     "provider error",
			provider: stubInteractive{err: errors.New("exchange failed")},
			proof:    pms.InteractiveProof{Provider: pms.ProviderGoogle},
			code:     pms.CodeInteractiveFailure,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var opts []pms.ClientOption
			if tc.provider != nil {
				opts = append(opts, pms.WithInteractiveProvider(tc.provider))
			}
			client := pms.NewAuthClient(dir, opts...)

			_, err := client.SignInInteractive(ctx, tc.proof)
			assert.Equal(t, tc.code, pms.ErrorCode(err))
			assert.Nil(t, client.Current())
		})
	}
}
