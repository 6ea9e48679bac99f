package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/K-dubey09/bookstore/internal/models"
)

var secret = []byte("test_secret")

func TestIssueResolveRoundTrip(t *testing.T) {
	user := models.User{ID: 7, Username: "alice", Role: models.RoleSeller}

	raw, err := Issue(user, secret)
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	id := Resolve(raw, secret)
	require.Equal(t, Identity{ID: 7, Username: "alice", Role: models.RoleSeller}, id)
	require.False(t, id.IsAnonymous())
}

func TestResolveGarbageIsAnonymous(t *testing.T) {
	for _, raw := range []string{"", "garbage", "a.b.c", "eyJhbGciOiJIUzI1NiJ9.e30."} {
		id := Resolve(raw, secret)
		require.True(t, id.IsAnonymous(), "raw=%q", raw)
	}
}

func TestResolveExpiredIsAnonymous(t *testing.T) {
	claims := jwt.MapClaims{
		"sub":      uint(1),
		"username": "bob",
		"role":     models.RoleUser,
		"exp":      time.Now().Add(-time.Minute).Unix(),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)

	require.True(t, Resolve(raw, secret).IsAnonymous())
}

func TestResolveWrongKeyIsAnonymous(t *testing.T) {
	raw, err := Issue(models.User{ID: 1, Username: "bob", Role: models.RoleUser}, []byte("other_secret"))
	require.NoError(t, err)

	require.True(t, Resolve(raw, secret).IsAnonymous())
}

func TestResolveWrongAlgIsAnonymous(t *testing.T) {
	// alg=none style token must not resolve.
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": uint(1), "role": models.RoleAdmin,
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	require.True(t, Resolve(raw, secret).IsAnonymous())
}
