package httppresentation

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/Zhima-Mochi/foodorder/internal/observability"
	"github.com/Zhima-Mochi/foodorder/internal/observability/logctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	headerAuthorization = "Authorization"
	headerLegacyToken   = "token"
	headerAPIKey        = "X-API-KEY"
	bearerPrefix        = "Bearer "

	msgNotAuthorized = "not authorized"
)

// Authenticator resolves a bearer credential to a user id.
type Authenticator interface {
	Authenticate(ctx context.Context, credential string) (string, error)
}

type userIDKey struct{}

func contextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// userIDFromContext returns the identity set by requireUser.
func userIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}

// credential reads "Authorization: Bearer <jwt>", falling back to the bare
// token header older clients send.
func credential(r *http.Request) string {
	if v := r.Header.Get(headerAuthorization); v != "" {
		if len(v) > len(bearerPrefix) && strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
			return strings.TrimSpace(v[len(bearerPrefix):])
		}
		return ""
	}
	return strings.TrimSpace(r.Header.Get(headerLegacyToken))
}

// requireUser answers 401 unless the request carries a valid credential, and
// otherwise stores the user id on the context and the request logger.
func (h *Handler) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := h.auth.Authenticate(r.Context(), credential(r))
		if err != nil || userID == "" {
			writeMessage(w, http.StatusUnauthorized, false, msgNotAuthorized)
			return
		}
		trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("user.id", userID))
		ctx := contextWithUserID(r.Context(), userID)
		ctx = logctx.WithFields(ctx, h.log, observability.F("user_id", userID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin compares X-API-KEY with the configured key. With no key
// configured every admin request is refused.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get(headerAPIKey)
		if h.adminKey == "" || got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.adminKey)) != 1 {
			logctx.FromOr(r.Context(), h.log).Warn("admin_key_rejected",
				observability.F("route", routeFromContext(r.Context())),
			)
			writeMessage(w, http.StatusUnauthorized, false, msgNotAuthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
