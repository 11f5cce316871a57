// Package auth implements the simplified credential store and bearer
// token mint/verify contract standing in for a full identity provider.
package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/protegrity/dbps/dbpserr"
)

const tokenTTL = 4 * time.Hour

// Claims is the JWT claim set minted for an authenticated client.
type Claims struct {
	ClientID string `json:"client_id"`
	jwt.RegisteredClaims
}

// Store holds client credentials and mints/verifies bearer tokens.
// When SkipChecks is true, any api_key is accepted for any non-empty
// client_id and every token is accepted without inspection, for local
// development.
type Store struct {
	secret     []byte
	credentials map[string]string // client_id -> api_key
	SkipChecks bool
}

// NewStore builds a Store from a client_id->api_key map and a signing
// secret. An empty credentials map combined with skipChecks=true is the
// documented development mode.
func NewStore(credentials map[string]string, secret []byte, skipChecks bool) *Store {
	creds := make(map[string]string, len(credentials))
	for k, v := range credentials {
		creds[k] = v
	}
	return &Store{secret: secret, credentials: creds, SkipChecks: skipChecks}
}

// MintToken validates client_id/api_key and returns a signed bearer token
// carrying client_id, issued-at, and a 4h expiry.
func (s *Store) MintToken(clientID, apiKey string) (string, time.Time, error) {
	if clientID == "" {
		return "", time.Time{}, dbpserr.NewAuth("auth: client_id must be non-empty")
	}
	if !s.SkipChecks {
		want, ok := s.credentials[clientID]
		if !ok || want != apiKey {
			return "", time.Time{}, dbpserr.NewAuth("auth: invalid credentials")
		}
	}

	now := time.Now()
	expiresAt := now.Add(tokenTTL)
	claims := Claims{
		ClientID: clientID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, dbpserr.NewTransport(err, "auth: failed to sign token")
	}
	return signed, expiresAt, nil
}

// VerifyForEndpoint validates an Authorization header value of the form
// "Bearer <token>". Any failure maps to a single opaque Auth error.
func (s *Store) VerifyForEndpoint(authorizationHeader string) error {
	if s.SkipChecks {
		return nil
	}

	const prefix = "Bearer "
	if !strings.HasPrefix(authorizationHeader, prefix) {
		return dbpserr.NewAuth("auth: unauthorized")
	}
	raw := strings.TrimPrefix(authorizationHeader, prefix)

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, dbpserr.NewAuth("auth: unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return dbpserr.NewAuth("auth: unauthorized")
	}
	return nil
}
