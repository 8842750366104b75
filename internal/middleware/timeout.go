package middleware

import (
	"fmt"
	"net/http"
	"time"
)

func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	// http.TimeoutHandler writes this body verbatim with a 503 status.
	message := fmt.Sprintf(`{"statusCode":%d,"message":"request timed out","error":{"code":"REQUEST_TIMEOUT","message":"request timed out"}}`, http.StatusServiceUnavailable)

	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, message)
	}
}
