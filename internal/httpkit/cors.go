package httpkit

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CORSOptions configures the browser access rules. The API uses no cookies,
// so credentials are never allowed.
type CORSOptions struct {
	// AllowedOrigins lists exact origins; "*" allows any.
	AllowedOrigins []string
	// ExtraHeaders are accepted and exposed besides Content-Type and Accept.
	ExtraHeaders []string
	MaxAge       time.Duration
}

const corsMethods = "GET, POST, OPTIONS"

// CORS echoes allowed origins back and answers every preflight with 204.
func CORS(opt CORSOptions) func(http.Handler) http.Handler {
	anyOrigin := false
	origins := make(map[string]struct{}, len(opt.AllowedOrigins))
	for _, o := range opt.AllowedOrigins {
		if o == "*" {
			anyOrigin = true
		}
		origins[o] = struct{}{}
	}

	allowHeaders := strings.Join(append([]string{"Content-Type", "Accept"}, opt.ExtraHeaders...), ", ")
	exposeHeaders := strings.Join(opt.ExtraHeaders, ", ")

	maxAge := opt.MaxAge
	if maxAge <= 0 {
		maxAge = 10 * time.Minute
	}
	maxAgeSeconds := strconv.Itoa(int(maxAge.Seconds()))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := r.Header.Get("Origin"); origin != "" {
				_, listed := origins[origin]
				if anyOrigin || listed {
					h := w.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
					h.Set("Access-Control-Allow-Methods", corsMethods)
					h.Set("Access-Control-Allow-Headers", allowHeaders)
					h.Set("Access-Control-Max-Age", maxAgeSeconds)
					if exposeHeaders != "" {
						h.Set("Access-Control-Expose-Headers", exposeHeaders)
					}
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
