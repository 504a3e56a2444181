package middleware

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/sahayak/teacher-portal/backend/internal/auth"
	"github.com/sahayak/teacher-portal/backend/internal/response"
)

// RequireAuth validates the session cookie and injects the user id into the
// request context. Requests without a valid session stop here.
func RequireAuth(gateway *auth.Gateway, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(auth.SessionCookie)
			if err != nil {
				response.Fail(w, r, http.StatusUnauthorized, response.ErrUnauthenticated)
				return
			}

			uid, err := gateway.Authenticate(r.Context(), cookie.Value)
			if err != nil {
				if !errors.Is(err, auth.ErrNotAuthenticated) {
					log.Error().Err(err).Msg("session lookup failed")
				}
				response.Fail(w, r, http.StatusUnauthorized, response.ErrUnauthenticated)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), uid)))
		})
	}
}
