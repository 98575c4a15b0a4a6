package utils

import (
    "testing"
    "time"

    "github.com/golang-jwt/jwt/v5"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestSessionTokenRoundTrip(t *testing.T) {
    tok, err := NewSessionToken("s3cret", "sess-1", "42", "url-param", 30)
    require.NoError(t, err)
    assert.WithinDuration(t, time.Now().Add(30*time.Minute), tok.Exp, 5*time.Second)

    claims, err := ParseSessionToken("s3cret", tok.Token)
    require.NoError(t, err)
    assert.Equal(t, "sess-1", claims.Subject)
    assert.Equal(t, "42", claims.UserID)
    assert.Equal(t, "url-param", claims.Source)
}

func TestParseSessionToken_Rejects(t *testing.T) {
    good, err := NewSessionToken("s3cret", "sess-1", "42", "url-param", 30)
    require.NoError(t, err)

    expired, err := NewSessionToken("s3cret", "sess-1", "42", "url-param", -5)
    require.NoError(t, err)

    noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
        "exp": time.Now().Add(time.Hour).Unix(),
    }).SignedString([]byte("s3cret"))
    require.NoError(t, err)

    unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "sess-1"}).
        SignedString(jwt.UnsafeAllowNoneSignatureType)
    require.NoError(t, err)

    for name, raw := range map[string]string{
        "wrong secret": good.Token,
        "expired":      expired.Token,
        "no subject":   noSubject,
        "alg none":     unsigned,
        "garbage":      "not-a-jwt",
    } {
        t.Run(name, func(t *testing.T) {
            secret := "s3cret"
            if name == "wrong secret" {
                secret = "other"
            }
            _, err := ParseSessionToken(secret, raw)
            assert.ErrorIs(t, err, ErrInvalidSessionToken)
        })
    }
}
