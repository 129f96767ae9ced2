package http

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"tesoreria/internal/core"
)

const maxSearchLength = 100

// sanitizeInput strips control characters, trims whitespace and caps the length.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	if utf8.RuneCountInString(result) > maxSearchLength {
		result = string([]rune(result)[:maxSearchLength])
	}
	return result
}

// handleNotFound answers unknown routes with the API envelope.
func handleNotFound(w http.ResponseWriter, r *http.Request) {
	NewResponse().Fail(http.StatusNotFound, core.KindNotFound, "no route for "+r.Method+" "+r.URL.Path).Write(w)
}

func handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	NewResponse().Fail(http.StatusMethodNotAllowed, core.KindValidation, "method "+r.Method+" not allowed").Write(w)
}

// handleRateLimited is the rate limiter's rejection response; Retry-After is already set.
func handleRateLimited(w http.ResponseWriter, r *http.Request) {
	NewResponse().
		Fail(http.StatusTooManyRequests, core.KindTransport, "rate limit exceeded, try again later").
		Write(w)
}
