package ws

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func TestVerifyToken(t *testing.T) {
	valid := signToken(t, testSecret, jwt.MapClaims{
		"sub":  "scorer-1",
		"role": "scorer",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	id, err := VerifyToken(valid, testSecret)
	require.NoError(t, err)
	require.Equal(t, "scorer-1", id.Subject)
	require.Equal(t, "scorer", id.Role)
}

func TestVerifyTokenFailures(t *testing.T) {
	cases := []struct {
		name  string
		token string
	}{
		{
			name: "wrong secret",
			token: signToken(t, "other-secret", jwt.MapClaims{
				"sub": "x", "exp": time.Now().Add(time.Hour).Unix(),
			}),
		},
		{
			name: "expired",
			token: signToken(t, testSecret, jwt.MapClaims{
				"sub": "x", "exp": time.Now().Add(-time.Hour).Unix(),
			}),
		},
		{
			name: "no subject",
			token: signToken(t, testSecret, jwt.MapClaims{
				"exp": time.Now().Add(time.Hour).Unix(),
			}),
		},
		{name: "garbage", token: "not.a.token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := VerifyToken(tc.token, testSecret)
			require.Error(t, err)
		})
	}
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws?token=from-query", nil)
	require.Equal(t, "from-query", bearerToken(r))

	r = httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Authorization", "Bearer from-header")
	require.Equal(t, "from-header", bearerToken(r))

	// Query wins when both are present.
	r = httptest.NewRequest("GET", "/ws?token=q", nil)
	r.Header.Set("Authorization", "Bearer h")
	require.Equal(t, "q", bearerToken(r))

	r = httptest.NewRequest("GET", "/ws", nil)
	require.Empty(t, bearerToken(r))
}

func TestAcceptOptions(t *testing.T) {
	opts := acceptOptions([]string{"https://tdarts.example.com", "http://localhost:3000"})
	require.False(t, opts.InsecureSkipVerify)
	require.Equal(t, []string{"tdarts.example.com", "localhost:3000"}, opts.OriginPatterns)

	wildcard := acceptOptions([]string{"*"})
	require.True(t, wildcard.InsecureSkipVerify)
	require.Empty(t, wildcard.OriginPatterns)
}
