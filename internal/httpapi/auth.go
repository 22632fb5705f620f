package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/nlukin/sheet-orders/internal/config"
)

type ctxKey int

const subjectKey ctxKey = 0

// TokenVerifier checks the Bearer token issued by the external auth
// provider. Only signature, issuer and audience are verified here; user
// management lives entirely on the provider's side.
type TokenVerifier struct {
	secret   []byte
	issuer   string
	audience string
	logger   *zap.Logger
}

func NewTokenVerifier(cfg config.Auth, logger *zap.Logger) *TokenVerifier {
	return &TokenVerifier{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		logger:   logger,
	}
}

func (v *TokenVerifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
		if v.issuer != "" {
			opts = append(opts, jwt.WithIssuer(v.issuer))
		}
		if v.audience != "" {
			opts = append(opts, jwt.WithAudience(v.audience))
		}

		token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return v.secret, nil
		}, opts...)
		if err != nil || !token.Valid {
			v.logger.Warn("token rejected", zap.Error(err))
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		sub, _ := token.Claims.GetSubject()
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), subjectKey, sub)))
	})
}

// Subject returns the authenticated subject stored by the middleware.
func Subject(ctx context.Context) string {
	sub, _ := ctx.Value(subjectKey).(string)
	return sub
}
