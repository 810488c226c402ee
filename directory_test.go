package pms_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/pmsworks/pms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := pms.OpenDB(context.Background(), dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestDirectory(t *testing.T, opts ...pms.DirectoryOption) (*pms.Directory, pms.Accounts) {
	t.Helper()
	useMinCost(t)

	accounts := pms.NewAccountsRepository(newTestDB(t))
	return pms.NewDirectory(accounts, opts...), accounts
}

func TestDirectory_RegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	dir, _ := newTestDirectory(t)

	created, err := dir.Register(ctx, "Kim@Example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "kim@example.com", created.Email)
	assert.Equal(t, pms.ProviderPassword, created.Provider)

	account, err := dir.Authenticate(ctx, "kim@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, account.ID)
}

func TestDirectory_RegisterErrors(t *testing.T) {
	ctx := context.Background()
	dir, _ := newTestDirectory(t)

	_, err := dir.Register(ctx, "kim@example.com", "secret1")
	require.NoError(t, err)

	cases := []struct {
		name     string
		email    string
		password string
		code     string
	}{
		{"invalid email", "not-an-email", "secret1", pms.CodeInvalidEmail},
		{"weak password", "lee@example.com", "12345", pms.CodeWeakPassword},
		{"duplicate", "KIM@example.com", "secret1", pms.CodeEmailAlreadyInUse},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := dir.Register(ctx, tc.email, tc.password)
			assert.Equal(t, tc.code, pms.ErrorCode(err))
		})
	}
}

func TestDirectory_AuthenticateErrors(t *testing.T) {
	ctx := context.Background()
	dir, accounts := newTestDirectory(t)

	_, err := dir.Register(ctx, "kim@example.com", "secret1")
	require.NoError(t, err)

	_, err = dir.Authenticate(ctx, "bad", "secret1")
	assert.Equal(t, pms.CodeInvalidEmail, pms.ErrorCode(err))

	_, err = dir.Authenticate(ctx, "nobody@example.com", "secret1")
	assert.Equal(t, pms.CodeUserNotFound, pms.ErrorCode(err))

	_, err = dir.Authenticate(ctx, "kim@example.com", "wrong-password")
	assert.Equal(t, pms.CodeWrongPassword, pms.ErrorCode(err))

	account, err := accounts.GetByEmail(ctx, "kim@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, account.LoginAttempts)

	_, err = dir.Authenticate(ctx, "kim@example.com", "secret1")
	require.NoError(t, err)

	account, err = accounts.GetByEmail(ctx, "kim@example.com")
	require.NoError(t, err)
	assert.Zero(t, account.LoginAttempts)
	assert.NotNil(t, account.LoggedInAt)
}

func TestDirectory_HashidIDs(t *testing.T) {
	dir, _ := newTestDirectory(t, pms.WithHashidIDs(true))

	created, err := dir.Register(context.Background(), " Kim@Example.com ", "secret1")
	require.NoError(t, err)

	want, err := hashid.NewUUID("kim@example.com")
	require.NoError(t, err)
	assert.Equal(t, want, created.ID)
}

func TestDirectory_UpdateDisplayNameSanitizes(t *testing.T) {
	ctx := context.Background()
	dir, accounts := newTestDirectory(t)

	created, err := dir.Register(ctx, "kim@example.com", "secret1")
	require.NoError(t, err)

	name, err := dir.UpdateDisplayName(ctx, created.ID.String(), " <b>kim</b><script>x</script> ")
	require.NoError(t, err)
	assert.Equal(t, "kim", name)

	stored, err := accounts.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "kim", stored.DisplayName)

	_, err = dir.UpdateDisplayName(ctx, "not-a-uuid", "x")
	assert.Equal(t, pms.CodeUserNotFound, pms.ErrorCode(err))
}

func TestDirectory_Link(t *testing.T) {
	ctx := context.Background()
	dir, _ := newTestDirectory(t)

	existing, err := dir.Register(ctx, "kim@example.com", "secret1")
	require.NoError(t, err)

	t.Run("links verified email to existing account", func(t *testing.T) {
		account, err := dir.Link(ctx, &pms.ExternalProfile{
			Provider:       pms.ProviderGoogle,
			ProviderUserID: "g-1",
			Email:          "kim@example.com",
			EmailVerified:  true,
		})
		require.NoError(t, err)
		assert.Equal(t, existing.ID, account.ID)
	})

	t.Run("finds linked account by provider id", func(t *testing.T) {
		account, err := dir.Link(ctx, &pms.ExternalProfile{
			Provider:       pms.ProviderGoogle,
			ProviderUserID: "g-1",
		})
		require.NoError(t, err)
		assert.Equal(t, existing.ID, account.ID)
	})

	t.Run("creates new account", func(t *testing.T) {
		account, err := dir.Link(ctx, &pms.ExternalProfile{
			Provider:       pms.ProviderGoogle,
			ProviderUserID: "g-2",
			Email:          "lee@example.com",
			EmailVerified:  true,
		})
		require.NoError(t, err)
		assert.Equal(t, "lee", account.DisplayName)
		assert.Equal(t, pms.ProviderGoogle, account.Provider)
	})

	t.Run("rejects unverified email", func(t *testing.T) {
		_, err := dir.Link(ctx, &pms.ExternalProfile{
			Provider:       pms.ProviderGoogle,
			ProviderUserID: "g-3",
			Email:          "park@example.com",
		})
		assert.Equal(t, pms.CodeInteractiveFailure, pms.ErrorCode(err))
	})

	t.Run("rejects missing profile", func(t *testing.T) {
		_, err := dir.Link(ctx, nil)
		assert.Equal(t, pms.CodeInteractiveFailure, pms.ErrorCode(err))
	})
}
