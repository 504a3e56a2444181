package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/sahayak/teacher-portal/backend/internal/auth"
	"github.com/sahayak/teacher-portal/backend/internal/response"
)

// Guard is a per-key mutual exclusion lease.
type Guard interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// SingleFlight rejects a second submission of the same action by the same
// user while the first is still running. ttl bounds how long a crashed
// request can hold the lease.
func SingleFlight(guard Guard, action string, ttl time.Duration, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			uid := auth.UserIDFrom(r.Context())
			if uid == "" {
				next.ServeHTTP(w, r)
				return
			}

			key := "inflight:" + uid + ":" + action
			ok, err := guard.Acquire(r.Context(), key, ttl)
			if err != nil {
				// Without the guard the request still runs.
				log.Warn().Err(err).Str("key", key).Msg("in-flight guard unavailable")
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				response.Fail(w, r, http.StatusConflict, response.ErrRequestInFlight)
				return
			}
			defer func() {
				if err := guard.Release(context.WithoutCancel(r.Context()), key); err != nil {
					log.Warn().Err(err).Str("key", key).Msg("in-flight guard release failed")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
