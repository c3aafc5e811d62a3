package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAuth = AuthConfig{Secret: "test-secret", Issuer: "https://auth.helium.local/", Audience: "helium-monitor"}

func sign(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"iss": testAuth.Issuer,
		"aud": []string{testAuth.Audience},
		"sub": "operator-7",
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}
}

func TestNewJWT(t *testing.T) {
	mw, err := NewJWT(testAuth)
	require.NoError(t, err)

	var subject string
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject = Subject(r)
		w.WriteHeader(http.StatusNoContent)
	}))

	call := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/readings", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	t.Run("should accept a valid token", func(t *testing.T) {
		rec := call(sign(t, testAuth.Secret, validClaims()))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "operator-7", subject)
	})

	t.Run("should reject a missing token", func(t *testing.T) {
		rec := call("")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "authorization header missing")
	})

	t.Run("should reject a token signed with another key", func(t *testing.T) {
		rec := call(sign(t, "other-secret", validClaims()))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("should reject an expired token", func(t *testing.T) {
		claims := validClaims()
		claims["exp"] = time.Now().Add(-time.Hour).Unix()
		rec := call(sign(t, testAuth.Secret, claims))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("should reject the wrong audience", func(t *testing.T) {
		claims := validClaims()
		claims["aud"] = []string{"someone-else"}
		rec := call(sign(t, testAuth.Secret, claims))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestSubject_Anonymous(t *testing.T) {
	assert.Equal(t, "anonymous", Subject(httptest.NewRequest(http.MethodGet, "/", nil)))
}
