package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
	"github.com/golang-jwt/jwt/v5"
)

func newIssuer() *TokenIssuer {
	return NewTokenIssuer("smart-goals", []byte("secret"), time.Minute, time.Hour)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	issuer := newIssuer()

	token, expiresAt, err := issuer.AccessToken("session-1")
	assert.Equal(t, nil, err)
	assert.Equal(t, true, expiresAt.After(time.Now()))

	claims, err := issuer.Parse(token)
	assert.Equal(t, nil, err)
	assert.Equal(t, "session-1", claims.Subject)
	assert.Equal(t, "smart-goals", claims.Issuer)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	issuer := newIssuer()
	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, _, err := issuer.AccessToken("session-1")
	assert.Equal(t, nil, err)

	issuer.now = time.Now
	_, err = issuer.Parse(token)
	assert.Equal(t, true, errors.Is(err, jwt.ErrTokenExpired))
}

func TestParseRejectsForeignTokens(t *testing.T) {
	token, _, err := newIssuer().AccessToken("session-1")
	assert.Equal(t, nil, err)

	other := NewTokenIssuer("smart-goals", []byte("another secret"), time.Minute, time.Hour)
	_, err = other.Parse(token)
	assert.NotEqual(t, nil, err)

	otherIssuer := NewTokenIssuer("todo", []byte("secret"), time.Minute, time.Hour)
	_, err = otherIssuer.Parse(token)
	assert.NotEqual(t, nil, err)

	_, err = newIssuer().Parse("not.a.token")
	assert.NotEqual(t, nil, err)
}

func TestRefreshTokensAreDistinct(t *testing.T) {
	issuer := newIssuer()
	a, err := issuer.RefreshToken()
	assert.Equal(t, nil, err)
	b, err := issuer.RefreshToken()
	assert.Equal(t, nil, err)

	assert.NotEqual(t, a, b)
	assert.Equal(t, 43, len(a))
	assert.Equal(t, false, strings.ContainsAny(a, "+/="))
}
