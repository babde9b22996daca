package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"

	"zafo-tickets/internal/logger"
	"zafo-tickets/internal/utils"
)

type contextKey string

const userIDKey contextKey = "user_id"

// AnonymousUser is recorded as requester when authentication is skipped and
// the request carries no readable token.
const AnonymousUser = "anonymous"

// Middleware verifies bearer tokens against the issuer's published keys.
func Middleware(ctx context.Context, issuer string, log *logger.Logger) (func(http.Handler) http.Handler, error) {
	if issuer == "" {
		return nil, fmt.Errorf("OIDC issuer not configured")
	}
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("discover OIDC provider: %w", err)
	}
	return VerifierMiddleware(provider.Verifier(&oidc.Config{SkipClientIDCheck: true}), log), nil
}

func VerifierMiddleware(verifier *oidc.IDTokenVerifier, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawToken, err := ExtractTokenFromRequest(r)
			if err != nil {
				unauthorized(w, err.Error())
				return
			}

			idToken, err := verifier.Verify(r.Context(), rawToken)
			if err != nil {
				log.LogSecurity("TOKEN_REJECTED", fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
				unauthorized(w, "invalid token")
				return
			}

			var claims struct {
				Sub string `json:"sub"`
			}
			if err := idToken.Claims(&claims); err != nil || claims.Sub == "" {
				unauthorized(w, "token has no subject")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), claims.Sub)))
		})
	}
}

// SkipMiddleware trusts the caller. The subject of an unverified token is
// still recorded when one is present.
func SkipMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := AnonymousUser
			if raw, err := ExtractTokenFromRequest(r); err == nil {
				if sub, err := ExtractUserIDFromJWT(raw); err == nil {
					userID = sub
				}
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func UserID(ctx context.Context) string {
	if uid, ok := ctx.Value(userIDKey).(string); ok {
		return uid
	}
	return ""
}

func unauthorized(w http.ResponseWriter, reason string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse("Unauthorized", strings.TrimSpace(reason)))
}
