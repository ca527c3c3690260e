// Package requesttime provides middleware for request-scoped time.
// Every hit recorded while serving one request carries the same timestamp.
package requesttime

import (
	"net/http"
	"time"

	"webring/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request
// and stores it in the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
