package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	dErrors "charak/pkg/domain-errors"
	"charak/pkg/requestcontext"
)

// JWTClaims is the transport-level view of a validated token.
type JWTClaims struct {
	Subject  string
	Role     string
	ClinicID string
	JTI      string
}

// JWTValidator validates a bearer token and returns its claims.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// RequireAuth validates the Authorization header and stores the
// caller's identity in the request context.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				logger.WarnContext(r.Context(), "unauthorized access - missing token",
					"request_id", GetRequestID(r.Context()))
				unauthorized(w)
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(r.Context(), "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(r.Context()))
				unauthorized(w)
				return
			}

			ctx := requestcontext.WithActor(r.Context(), claims.Role)
			ctx = requestcontext.WithSubject(ctx, claims.Subject)
			ctx = requestcontext.WithClinicID(ctx, claims.ClinicID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects authenticated callers whose role is not in the
// allowed set. Must run after RequireAuth.
func RequireRole(logger *slog.Logger, roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := requestcontext.Actor(r.Context())
			if !allowed[actor] {
				logger.WarnContext(r.Context(), "forbidden - role not allowed",
					"actor", actor,
					"path", r.URL.Path,
					"request_id", GetRequestID(r.Context()))
				writeStatus(w, http.StatusForbidden, string(dErrors.CodeForbidden))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetActor retrieves the authenticated actor role from the context.
func GetActor(ctx context.Context) string {
	return requestcontext.Actor(ctx)
}

// GetSubject retrieves the authenticated subject from the context.
func GetSubject(ctx context.Context) string {
	return requestcontext.Subject(ctx)
}

// GetClinicID retrieves the clinic scope from the context.
func GetClinicID(ctx context.Context) string {
	return requestcontext.ClinicID(ctx)
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	after, ok := strings.CutPrefix(header, prefix)
	if !ok {
		return "", false
	}
	token := strings.TrimSpace(after)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="charak"`)
	writeStatus(w, http.StatusUnauthorized, string(dErrors.CodeUnauthorized))
}

func writeStatus(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + code + `"}`))
}
