package auth

import (
	"log"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier checks bearer tokens handed over at connect time. A nil
// Verifier, an empty token, or a failed verification all resolve to the
// anonymous identity; establishing a connection is never blocked on auth.
type Verifier struct {
	secret []byte
}

// NewVerifier builds an HMAC verifier. An empty secret returns nil, which
// Verify treats as "auth disabled, everyone is anonymous".
func NewVerifier(secret string) *Verifier {
	if secret == "" {
		return nil
	}
	return &Verifier{secret: []byte(secret)}
}

// Verify resolves a token to a user identity. It returns the token's
// subject claim, or the empty string for anonymous.
func (v *Verifier) Verify(token string) string {
	if v == nil || token == "" {
		return ""
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		log.Printf("token rejected, treating connection as anonymous: %v", err)
		return ""
	}

	sub, err := parsed.Claims.GetSubject()
	if err != nil {
		return ""
	}
	return sub
}
