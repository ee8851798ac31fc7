package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"cookieboy-api/pkg/apierror"
)

// Recovery turns panics into a 500 response and logs the stack.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				log.Printf("[Recovery] PANIC rid=%s: %v\n%s", GetRequestID(r.Context()), err, debug.Stack())
				apierror.InternalError("internal server error").Write(w)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
