package web

import (
	"net"
	"net/http"

	"github.com/JonMunkholm/leadcrm/internal/core"
)

// withRequestMeta adds IP and User-Agent to the request context for audit logging.
func withRequestMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := core.ContextWithRequestMeta(r.Context(), core.RequestMeta{
			IPAddress: clientIP(r),
			UserAgent: r.UserAgent(),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// clientIP returns the host part of RemoteAddr, which TrustedRealIP has
// already rewritten for requests arriving through a trusted proxy.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// leadScope reads the caller's role and id from the query string.
func leadScope(r *http.Request) core.LeadScope {
	q := r.URL.Query()
	return core.LeadScope{
		Role:   core.Role(q.Get("role")),
		UserID: q.Get("user_id"),
	}
}
