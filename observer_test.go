package pms_test

import (
	"context"
	"testing"
	"time"

	"github.com/pmsworks/pms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionObserver_DeterminingUntilFirstNotification(t *testing.T) {
	src := &deferredSource{}
	obs := pms.NewSessionObserver(src)
	defer obs.Close()

	assert.True(t, obs.Determining())
	assert.Nil(t, obs.Session())

	select {
	case <-obs.Ready():
		t.Fatal("ready before the first notification")
	default:
	}

	src.Deliver(&pms.Session{UserID: "u1", Email: "kim@example.com"})

	assert.False(t, obs.Determining())
	require.NotNil(t, obs.Session())
	assert.Equal(t, "u1", obs.Session().UserID)

	select {
	case <-obs.Ready():
	default:
		t.Fatal("ready not closed")
	}
}

func TestSessionObserver_AbsentNotificationEndsDetermining(t *testing.T) {
	src := &deferredSource{}
	obs := pms.NewSessionObserver(src)
	defer obs.Close()

	src.Deliver(nil)

	assert.False(t, obs.Determining())
	assert.Nil(t, obs.Session())
}

func TestSessionObserver_TracksLatest(t *testing.T) {
	src := &deferredSource{}
	obs := pms.NewSessionObserver(src)
	defer obs.Close()

	var seen []*pms.Session
	obs.OnChange(func(s *pms.Session) { seen = append(seen, s) })

	src.Deliver(&pms.Session{UserID: "u1"})
	src.Deliver(nil)

	assert.Nil(t, obs.Session())
	require.Len(t, seen, 2)
	assert.Equal(t, "u1", seen[0].UserID)
	assert.Nil(t, seen[1])
}

func TestSessionObserver_ReturnsCopies(t *testing.T) {
	src := &deferredSource{}
	obs := pms.NewSessionObserver(src)
	defer obs.Close()

	src.Deliver(&pms.Session{UserID: "u1", DisplayName: "Kim"})

	s := obs.Session()
	s.DisplayName = "changed"
	assert.Equal(t, "Kim", obs.Session().DisplayName)
}

func TestSessionObserver_Wait(t *testing.T) {
	src := &deferredSource{}
	obs := pms.NewSessionObserver(src)
	defer obs.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := obs.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	go src.Deliver(&pms.Session{UserID: "u2"})

	s, err := obs.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u2", s.UserID)
}

func TestSessionObserver_CloseIsIdempotent(t *testing.T) {
	src := &deferredSource{}
	obs := pms.NewSessionObserver(src)

	obs.Close()
	obs.Close()

	assert.Equal(t, int32(1), src.unsubscribed.Load())
}

func TestSessionObserver_SynchronousSource(t *testing.T) {
	obs := pms.NewSessionObserver(&MockIdentitySource{})
	defer obs.Close()

	assert.False(t, obs.Determining())
	assert.Nil(t, obs.Session())
}
