package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sakif/studytrackr/internal/model"
)

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue uses any as the key type. A package-private type means
// only this package can create a key of type contextKey, so only this package
// can read or write the identity in the context.
type contextKey string

const identityKey contextKey = "identity"

// Messages written by RequireAuth. The three cases stay distinguishable for
// the client; all of them are 401.
const (
	msgNoToken       = "no token provided"
	msgInvalidHeader = "invalid authorization header"
	msgInvalidToken  = "invalid or expired token"
)

// RequireAuth is a middleware that enforces authentication on protected routes.
//
// It reads the token from "Authorization: Bearer <token>", validates it and
// stores the decoded Identity in the request context. If the header is
// missing, malformed, or the token fails validation, it returns 401 and stops
// the chain.
//
// The identity is trusted as-is for the rest of the request: the role is
// never re-checked against the users table.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeAuthError(w, http.StatusUnauthorized, "unauthenticated", msgNoToken)
				return
			}

			tokenStr, ok := bearerToken(header)
			if !ok {
				writeAuthError(w, http.StatusUnauthorized, "unauthenticated", msgInvalidHeader)
				return
			}

			id, err := tokens.Validate(tokenStr)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "unauthenticated", msgInvalidToken)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireRole gates a route to a fixed set of roles. It must run after
// RequireAuth; a request without an identity is treated as forbidden.
func RequireRole(roles ...model.Role) func(http.Handler) http.Handler {
	allowed := make(map[model.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				writeAuthError(w, http.StatusForbidden, "forbidden", "forbidden")
				return
			}
			if _, ok := allowed[id.Role]; !ok {
				writeAuthError(w, http.StatusForbidden, "forbidden", "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext retrieves the authenticated caller from the request context.
//
// Returns (Identity{}, false) if the request is anonymous.
//
// Usage in handlers:
//
//	caller, ok := auth.IdentityFromContext(r.Context())
//	if !ok {
//	    // anonymous request
//	}
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.UserID != ""
}

// bearerToken splits "Bearer <token>" and returns the token. The scheme is
// matched case-insensitively.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.Contains(token, " ") {
		return "", false
	}
	return token, true
}

func writeAuthError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   kind,
		"message": message,
	})
}
