package utils // package utils provides helper functions for session token creation and parsing

import (
    "errors" // sentinel errors for token validation
    "fmt"    // error wrapping
    "time"   // time utilities for generating expirations

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// ErrInvalidSessionToken is returned for tokens that fail signature,
// expiry or claim checks.
var ErrInvalidSessionToken = errors.New("invalid session token")

// SessionToken represents a signed JWT session token along with its expiry.
// The Token field contains the JWT string handed to the renderer, which
// sends it back as "Authorization: Bearer <token>" on every session route.
type SessionToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// SessionClaims are the claims carried by a session token.  Subject is the
// session id; UserID and Source describe the identity resolved at launch.
type SessionClaims struct {
    UserID string `json:"uid,omitempty"`
    Source string `json:"src,omitempty"`
    jwt.RegisteredClaims
}

// NewSessionToken builds and signs an HS256 JWT for a session.  The
// subject (sub) is the session id, uid carries the player's platform id,
// src the strategy that found it, and exp/iat are set from ttlMin.
func NewSessionToken(secret, sessionID, userID, source string, ttlMin int) (SessionToken, error) {
    now := time.Now().UTC()
    // Calculate the expiration time by adding the TTL to the current UTC time.
    exp := now.Add(time.Duration(ttlMin) * time.Minute)
    claims := SessionClaims{
        UserID: userID,
        Source: source,
        RegisteredClaims: jwt.RegisteredClaims{
            Subject:   sessionID,
            IssuedAt:  jwt.NewNumericDate(now),
            ExpiresAt: jwt.NewNumericDate(exp),
        },
    }
    // Sign the token with the provided secret and obtain the string form.
    signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
    if err != nil {
        return SessionToken{}, err
    }
    return SessionToken{Token: signed, Exp: exp}, nil
}

// ParseSessionToken verifies raw with secret and returns its claims.  Only
// HMAC signing methods are accepted and a subject is required.
func ParseSessionToken(secret, raw string) (*SessionClaims, error) {
    claims := &SessionClaims{}
    tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
        // Type assert the signing method to HMAC; reject others.
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
        }
        return []byte(secret), nil
    })
    if err != nil {
        return nil, fmt.Errorf("%w: %v", ErrInvalidSessionToken, err)
    }
    if !tok.Valid || claims.Subject == "" {
        return nil, ErrInvalidSessionToken
    }
    return claims, nil
}
