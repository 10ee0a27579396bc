package shared

import (
	"context"
	"net/http"
	"strconv"
)

type contextKey string

const actorKey contextKey = "actor_id"

// ActorHeader identifies the acting user on API calls. Authentication itself is
// handled upstream of this service; the id is trusted attribution for audit fields.
const ActorHeader = "X-Actor-Id"

// ContextWithActor stores the acting user id.
func ContextWithActor(ctx context.Context, actorID int64) context.Context {
	return context.WithValue(ctx, actorKey, actorID)
}

// ActorFromContext returns the acting user id, zero when absent.
func ActorFromContext(ctx context.Context) int64 {
	if v, ok := ctx.Value(actorKey).(int64); ok {
		return v
	}
	return 0
}

// ActorMiddleware lifts the actor header into the request context.
func ActorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if raw := r.Header.Get(ActorHeader); raw != "" {
			if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
				r = r.WithContext(ContextWithActor(r.Context(), id))
			}
		}
		next.ServeHTTP(w, r)
	})
}
