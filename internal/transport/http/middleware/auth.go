package httpmw

import (
	"context"
	"crypto/rsa"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cwrk-planet/live-room-service/internal/transport/http/httputil"

	"github.com/golang-jwt/jwt"
)

type ctxKey string

const (
	ctxKeyToken  ctxKey = "token"
	ctxKeyUserID ctxKey = "user_id"
)

var (
	ErrInvalidToken    = errors.New("invalid token")
	ErrInvalidIssuer   = errors.New("invalid issuer")
	ErrInvalidAudience = errors.New("invalid audience")
	ErrTokenExpired    = errors.New("token expired")
	ErrInvalidSubject  = errors.New("invalid subject")
)

// Verifier проверяет access-токены auth-сервиса (RS256).
type Verifier struct {
	public    *rsa.PublicKey
	issuer    string
	audience  string
	clockSkew time.Duration
	now       func() time.Time
}

func NewVerifier(public *rsa.PublicKey, issuer, audience string, clockSkew time.Duration) *Verifier {
	return &Verifier{
		public:    public,
		issuer:    issuer,
		audience:  audience,
		clockSkew: clockSkew,
		now:       time.Now,
	}
}

func LoadRSAPublicKeyFromPEM(path string) (*rsa.PublicKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return jwt.ParseRSAPublicKeyFromPEM(b)
}

// Verify возвращает sub токена.
func (v *Verifier) Verify(tokenStr string) (string, error) {
	claims := &jwt.StandardClaims{}
	// exp/nbf проверяем сами, с допуском clockSkew
	parser := &jwt.Parser{SkipClaimsValidation: true}
	token, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodRS256.Alg() {
			return nil, ErrInvalidToken
		}
		return v.public, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, true) {
		return "", ErrInvalidIssuer
	}
	if v.audience != "" && !claims.VerifyAudience(v.audience, true) {
		return "", ErrInvalidAudience
	}

	now := v.now()
	nbf := time.Unix(claims.NotBefore, 0).Add(-v.clockSkew)
	exp := time.Unix(claims.ExpiresAt, 0).Add(v.clockSkew)
	if claims.ExpiresAt == 0 || now.Before(nbf) || now.After(exp) {
		return "", ErrTokenExpired
	}

	if strings.TrimSpace(claims.Subject) == "" {
		return "", ErrInvalidSubject
	}
	return claims.Subject, nil
}

// AuthMiddleware требует Bearer-токен. С verifier user_id берётся из sub,
// без него (dev) токен не проверяется, user_id — из X-User-ID.
// Для websocket токен и user_id можно передать в query.
func AuthMiddleware(v *Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearer(r)
			if token == "" {
				unauthorized(w, r, "missing bearer token")
				return
			}

			var uid string
			if v != nil {
				sub, err := v.Verify(token)
				if err != nil {
					unauthorized(w, r, err.Error())
					return
				}
				uid = sub
			} else {
				uid = strings.TrimSpace(r.Header.Get("X-User-ID"))
				if uid == "" {
					uid = strings.TrimSpace(r.URL.Query().Get("user_id"))
				}
				if uid == "" {
					unauthorized(w, r, "missing X-User-ID")
					return
				}
			}

			ctx := context.WithValue(r.Context(), ctxKeyToken, token)
			ctx = context.WithValue(ctx, ctxKeyUserID, uid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearer(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return strings.TrimSpace(r.URL.Query().Get("access_token"))
}

func unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	httputil.Error(r.Context(), w, http.StatusUnauthorized, msg, map[string]any{"code": "unauthorized"})
}

// UserIDFromCtx — пусто, если запрос прошёл без AuthMiddleware.
func UserIDFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyUserID).(string); ok {
		return v
	}
	return ""
}
