package middleware

import (
	"net/http"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// APIKeyHeader carries the caller's key. "Authorization: Bearer <key>" is also accepted.
const APIKeyHeader = "X-API-Key"

// APIKeyMiddleware admits requests whose key matches hash, a bcrypt hash.
// An empty hash disables the check.
func APIKeyMiddleware(hash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if hash == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := requestKey(r)
			if key == "" {
				http.Error(w, "Missing API key", http.StatusUnauthorized)
				return
			}

			if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)); err != nil {
				http.Error(w, "Invalid API key", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func requestKey(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get(APIKeyHeader)); key != "" {
		return key
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

var allowed = map[string]struct{}{
	"http://localhost:5173":    {},
	"http://localhost:5174":    {},
	"http://localhost:8501":    {},
	"https://sustainasite.app": {},
}

func init() {
	// CORS_ORIGINS adds comma-separated origins to the allow-list
	for _, origin := range strings.Split(os.Getenv("CORS_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			allowed[origin] = struct{}{}
		}
	}
}

func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		// Echo the origin back only if it's on our allow-list
		if _, ok := allowed[origin]; ok {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin") // important for caches
			w.Header().Set("Access-Control-Allow-Methods",
				"GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers",
				"Content-Type, Authorization, "+APIKeyHeader)
		}

		w.Header().Set("Access-Control-Expose-Headers", "Server-Timing")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// OriginAllowed reports whether origin is on the CORS allow-list.
func OriginAllowed(origin string) bool {
	_, ok := allowed[origin]
	return ok
}
