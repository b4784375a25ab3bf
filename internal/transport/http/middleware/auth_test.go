package httpmw

import (
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, key *rsa.PrivateKey, claims jwt.StandardClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(UserIDFromCtx(r.Context())))
	})
}

func TestVerifier(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	now := time.Unix(1_700_000_000, 0)
	v := NewVerifier(&key.PublicKey, "auth-service", "cwrk", 30*time.Second)
	v.now = func() time.Time { return now }

	good := jwt.StandardClaims{
		Subject:   "42",
		Issuer:    "auth-service",
		Audience:  "cwrk",
		IssuedAt:  now.Unix(),
		NotBefore: now.Unix(),
		ExpiresAt: now.Add(time.Minute).Unix(),
	}

	sub, err := v.Verify(signToken(t, key, good))
	require.NoError(t, err)
	assert.Equal(t, "42", sub)

	// истёк, но в пределах clockSkew
	skewed := good
	skewed.ExpiresAt = now.Add(-10 * time.Second).Unix()
	_, err = v.Verify(signToken(t, key, skewed))
	assert.NoError(t, err)

	expired := good
	expired.ExpiresAt = now.Add(-time.Minute).Unix()
	_, err = v.Verify(signToken(t, key, expired))
	assert.ErrorIs(t, err, ErrTokenExpired)

	wrongAud := good
	wrongAud.Audience = "other"
	_, err = v.Verify(signToken(t, key, wrongAud))
	assert.ErrorIs(t, err, ErrInvalidAudience)

	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	_, err = v.Verify(signToken(t, other, good))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthMiddleware_DevMode(t *testing.T) {
	h := AuthMiddleware(nil)(echoUser())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer dev")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req.Header.Set("X-User-ID", "u-7")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u-7", w.Body.String())

	// websocket-клиенты передают всё в query
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/?access_token=x&user_id=u-8", nil))
	assert.Equal(t, "u-8", w.Body.String())
}
