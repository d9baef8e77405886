package users

import (
	"context"
	"errors"
	"testing"

	"github.com/npezzotti/go-chatrelay/internal/database"
	"github.com/npezzotti/go-chatrelay/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestDirectory(t *testing.T) *Directory {
	repo, err := database.NewSqliteChatRepository(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	d := NewDirectory(repo, testutil.TestLogger(t))
	d.cost = bcrypt.MinCost
	return d
}

func TestRegister(t *testing.T) {
	d := newTestDirectory(t)
	ctx := context.Background()

	u, err := d.Register(ctx, " alice ", "alice@example.com", "s3cret")
	require.NoError(t, err)
	assert.NotZero(t, u.Id)
	assert.Equal(t, "alice", u.Username)
	assert.Empty(t, u.Password, "expected password not to be returned")

	tcases := []struct {
		name     string
		username string
		email    string
		password string
		reason   string
	}{
		{
			name:     "duplicate username",
			username: "alice",
			email:    "other@example.com",
			password: "pw",
			reason:   "Username already exists",
		},
		{
			name:     "duplicate email",
			username: "bob",
			email:    "alice@example.com",
			password: "pw",
			reason:   "Email already exists",
		},
		{
			name:     "missing password",
			username: "bob",
			email:    "bob@example.com",
			reason:   "Username, email and password are required",
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := d.Register(ctx, tc.username, tc.email, tc.password)
			var authErr *AuthError
			require.ErrorAs(t, err, &authErr)
			assert.Equal(t, tc.reason, authErr.Reason)
		})
	}
}

func TestAuthenticate(t *testing.T) {
	d := newTestDirectory(t)
	ctx := context.Background()

	registered, err := d.Register(ctx, "alice", "alice@example.com", "s3cret")
	require.NoError(t, err)

	u, err := d.Authenticate(ctx, "alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, registered.Id, u.Id)

	for _, creds := range [][2]string{{"alice", "wrong"}, {"nobody", "s3cret"}} {
		_, err := d.Authenticate(ctx, creds[0], creds[1])
		var authErr *AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, "Invalid username or password", authErr.Reason)
	}
}

func TestDisplayName(t *testing.T) {
	d := newTestDirectory(t)
	ctx := context.Background()

	u, err := d.Register(ctx, "alice", "alice@example.com", "s3cret")
	require.NoError(t, err)

	name, err := d.DisplayName(ctx, u.Id)
	require.NoError(t, err)
	assert.Equal(t, "alice", name)

	_, err = d.DisplayName(ctx, u.Id+100)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRegisterLookupFailure(t *testing.T) {
	db := &database.MockChatRepository{}
	defer db.AssertExpectations(t)
	d := NewDirectory(db, testutil.TestLogger(t))

	db.On("GetAccountByUsername", mock.Anything, "alice").Return(database.User{}, errors.New("conn refused")).Once()

	_, err := d.Register(context.Background(), "alice", "alice@example.com", "pw")
	require.Error(t, err)
	var authErr *AuthError
	assert.False(t, errors.As(err, &authErr), "expected storage failure not to look like an auth error")
	db.AssertNotCalled(t, "CreateAccount", mock.Anything, mock.Anything)
}
