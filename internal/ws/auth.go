package ws

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the authenticated principal the transport layer attaches to
// a connection. The core never re-checks it.
type Identity struct {
	Subject string
	Role    string
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

var errMissingSubject = errors.New("token has no subject")

// VerifyToken validates an HS256 bearer token and extracts the identity.
func VerifyToken(raw, secret string) (Identity, error) {
	tok, err := jwt.ParseWithClaims(raw, &tokenClaims{}, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return Identity{}, err
	}
	claims := tok.Claims.(*tokenClaims)
	if claims.Subject == "" {
		return Identity{}, errMissingSubject
	}
	return Identity{Subject: claims.Subject, Role: claims.Role}, nil
}

// bearerToken pulls the token from the query string or the Authorization
// header; browser WebSocket clients can only use the former.
func bearerToken(r *http.Request) string {
	if tok := r.URL.Query().Get("token"); tok != "" {
		return tok
	}
	auth := r.Header.Get("Authorization")
	if rest, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return rest
	}
	return ""
}
