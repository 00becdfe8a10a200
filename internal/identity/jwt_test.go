package identity

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndAuthenticate(t *testing.T) {
	p, err := NewJWTProvider("secret", time.Hour)
	require.NoError(t, err)

	token, err := p.Issue("user-1")
	require.NoError(t, err)

	owner, err := p.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", owner)
}

func TestAuthenticateRejects(t *testing.T) {
	p, _ := NewJWTProvider("secret", time.Hour)
	other, _ := NewJWTProvider("other-secret", time.Hour)

	forged, err := other.Issue("user-1")
	require.NoError(t, err)
	_, err = p.Authenticate(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = p.Authenticate("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, _ := NewJWTProvider("secret", -time.Minute)
	token, err := expired.Issue("user-1")
	require.NoError(t, err)
	_, err = p.Authenticate(token)
	assert.ErrorIs(t, err, ErrExpiredToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{StandardClaims: jwt.StandardClaims{Subject: "user-1"}})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = p.Authenticate(unsigned)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	_, err = p.Issue("  ")
	assert.ErrorIs(t, err, ErrNoOwner)
}

func TestNewJWTProviderRequiresSecret(t *testing.T) {
	_, err := NewJWTProvider(" ", time.Hour)
	assert.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer  abc ", "abc", true},
		{"Basic abc", "", false},
		{"Bearer", "", false},
		{"Bearer ", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		token, ok := BearerToken(tc.header)
		assert.Equal(t, tc.ok, ok, tc.header)
		assert.Equal(t, tc.token, token, tc.header)
	}
}
