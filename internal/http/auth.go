package http

import (
	"context"
	"net/http"

	"spendlens/internal/identity"
	"spendlens/internal/log"
)

// Authenticator resolves a bearer token to the owner it was issued for.
type Authenticator interface {
	Authenticate(token string) (string, error)
}

type ownerKey struct{}

// OwnerFromContext returns the authenticated owner of the request.
func OwnerFromContext(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey{}).(string)
	return owner
}

// requireOwner rejects requests without a valid bearer token and stores the
// token's owner in the request context.
func requireOwner(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := identity.BearerToken(r.Header.Get("Authorization"))
			if !ok {
				UnauthorizedError("authentication required").Write(w)
				return
			}
			owner, err := auth.Authenticate(token)
			if err != nil {
				log.FromContext(r.Context()).WarnContext(r.Context(), "Rejected bearer token",
					log.FieldPath, r.URL.Path, log.FieldError, err)
				UnauthorizedError("authentication required").Write(w)
				return
			}

			ctx := context.WithValue(r.Context(), ownerKey{}, owner)
			logger := log.FromContext(ctx).With(log.FieldOwnerID, owner)
			next.ServeHTTP(w, r.WithContext(log.NewContext(ctx, logger)))
		})
	}
}
