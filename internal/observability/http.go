package observability

import (
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

const defaultCollectionInterval = 15 * time.Second

func (om *ObservabilityManager) collectionInterval() time.Duration {
	if om.cfg.Metrics.CollectionInterval > 0 {
		return om.cfg.Metrics.CollectionInterval
	}
	return defaultCollectionInterval
}

// SessionSpanMiddleware starts a span per matched route and tags session
// routes with the session id. It must run inside the mux
// so the pattern and path values are set.
func SessionSpanMiddleware(om *ObservabilityManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !om.enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := om.Tracer("resumecvpro.http").Start(r.Context(), r.Pattern)
			defer span.End()

			span.SetAttributes(
				attribute.String("http.route", r.Pattern),
				attribute.String("user_agent.original", r.UserAgent()),
			)
			if id := r.PathValue("id"); id != "" && strings.Contains(r.Pattern, "/sessions/") {
				span.SetAttributes(attribute.String("resumecvpro.session.id", id))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
