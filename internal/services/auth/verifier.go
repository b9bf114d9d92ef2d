package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mdsim/ratedrps-go/internal/model"
)

// ErrInvalidToken is returned for any token that fails verification
var ErrInvalidToken = errors.New("invalid token")

// Claims is the authenticated identity extracted from a verified token
type Claims struct {
	PlayerID model.PlayerID
	Username string
}

// Verifier checks a bearer token and returns the identity it asserts.
// Verification happens before the websocket upgrade, so a bad token never
// creates any connection state.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// JWTVerifier validates HS256-signed tokens against a shared secret.
// The subject claim is the player id; the username comes from a "username"
// claim with "name" as a fallback.
type JWTVerifier struct {
	secret []byte
}

var _ Verifier = (*JWTVerifier)(nil)

// NewJWTVerifier creates a verifier for the given signing secret
func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

// Verify parses and validates the token and extracts the player identity
func (v *JWTVerifier) Verify(tokenString string) (Claims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}

	sub, err := mapClaims.GetSubject()
	if err != nil || sub == "" {
		return Claims{}, ErrInvalidToken
	}

	username, _ := mapClaims["username"].(string)
	if username == "" {
		username, _ = mapClaims["name"].(string)
	}
	if username == "" {
		username = sub
	}

	return Claims{
		PlayerID: model.PlayerID(sub),
		Username: username,
	}, nil
}

// StaticVerifier maps fixed tokens to identities. Used in tests and local
// development where no token issuer is running.
type StaticVerifier struct {
	Tokens map[string]Claims
}

var _ Verifier = (*StaticVerifier)(nil)

// Verify looks the token up in the static table
func (v *StaticVerifier) Verify(token string) (Claims, error) {
	claims, ok := v.Tokens[token]
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}
