package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/superset-studio/einvoice-vault/internal/auth"
)

type ctxKey int

const claimsKey ctxKey = iota

var (
	errNoBearer      = errors.New("missing bearer token")
	errNoSubjectUser = errors.New("token has no user")
)

// unauthorized writes the 401 every protected route answers with.
func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="einvoice"`)
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

func bearerToken(r *http.Request) (string, error) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", errNoBearer
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errNoBearer
	}
	return token, nil
}

// RequireUser rejects requests without a valid session token and puts the
// token's claims in the request context for GetUserInfo.
func RequireUser(jwtSvc *auth.JWTService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				unauthorized(w)
				return
			}

			claims, err := jwtSvc.ValidateToken(token)
			if err == nil && claims.UserID == uuid.Nil {
				err = errNoSubjectUser
			}
			if err != nil {
				slog.Debug("rejected session token", "error", err, "path", r.URL.Path)
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
		})
	}
}

// GetUserInfo returns the claims RequireUser stored, or nil outside a protected route.
func GetUserInfo(ctx context.Context) *auth.JWTClaims {
	claims, _ := ctx.Value(claimsKey).(*auth.JWTClaims)
	return claims
}
