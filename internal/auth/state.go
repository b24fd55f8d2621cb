package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const stateIssuer = "root"

// StateClaims is the payload of the OAuth state parameter.
type StateClaims struct {
	Nonce string `json:"nonce"`
	jwt.RegisteredClaims
}

// IssueState signs a short-lived state token for one login round trip.
func IssueState(key string, ttl time.Duration, now time.Time) (string, error) {
	claims := StateClaims{
		Nonce: uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    stateIssuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
}

// ParseState validates a state token produced by IssueState.
func ParseState(tokenStr, key string) (StateClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &StateClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(key), nil
	}, jwt.WithIssuer(stateIssuer), jwt.WithExpirationRequired())
	if err != nil {
		return StateClaims{}, err
	}
	claims, ok := parsed.Claims.(*StateClaims)
	if !ok || !parsed.Valid || claims.Nonce == "" {
		return StateClaims{}, errors.New("invalid state")
	}
	return *claims, nil
}
