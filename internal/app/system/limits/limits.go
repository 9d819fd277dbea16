// internal/app/system/limits/limits.go
package limits

import "net/http"

// Request body size limits.
const (
	// MaxFormBody caps url-encoded form posts. The largest form is a person
	// with notes and a long organization checklist.
	MaxFormBody = 256 << 10 // 256 KB
)

// Body caps the request body of every non-GET request at n bytes. Reading
// past the cap fails, and ParseForm then reports an error.
func Body(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil && r.Method != http.MethodGet && r.Method != http.MethodHead {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}
