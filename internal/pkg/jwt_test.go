package pkg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuerRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("a-secret", "r-secret", time.Minute, time.Hour)

	pair, err := issuer.GeneratePair(42, "NURSE")
	require.NoError(t, err)

	claims, err := issuer.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), claims.UserID)
	assert.Equal(t, "NURSE", claims.Role)

	refreshClaims, err := issuer.ParseRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), refreshClaims.UserID)
}

func TestTokenIssuerRejectsSwappedTokens(t *testing.T) {
	issuer := NewTokenIssuer("a-secret", "r-secret", time.Minute, time.Hour)
	pair, err := issuer.GeneratePair(1, "ADMIN")
	require.NoError(t, err)

	_, err = issuer.ParseAccess(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = issuer.ParseRefresh(pair.AccessToken)
	assert.ErrorIs(t, err, ErrRefreshInvalid)

	_, err = NewTokenIssuer("other", "r-secret", time.Minute, time.Hour).ParseAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenIssuerExpiry(t *testing.T) {
	issuer := NewTokenIssuer("a-secret", "r-secret", time.Minute, time.Hour)
	issued := time.Now()
	issuer.now = func() time.Time { return issued }
	pair, err := issuer.GeneratePair(7, "NURSE")
	require.NoError(t, err)

	issuer.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = issuer.ParseAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenExpired)

	issuer.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = issuer.ParseRefresh(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrRefreshExpired)
}
