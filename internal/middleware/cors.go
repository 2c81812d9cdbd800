package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

var (
	corsMethods        = strings.Join([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}, ", ")
	corsRequestHeaders = strings.Join([]string{"Authorization", "Content-Type", "Accept", RequestIDHeader}, ", ")
)

// DefaultCORSMaxAge is how long browsers may cache a preflight answer.
const DefaultCORSMaxAge = 10 * time.Minute

// CORSOptions configures CORS for the dashboard front end.
type CORSOptions struct {
	// Origins lists allowed origins. "*" allows any origin. Entries are
	// matched case-insensitively and a trailing slash is ignored.
	Origins []string
	MaxAge  time.Duration
}

// CORS answers preflight requests and tags responses for allowed origins.
// Credentials are never allowed: the API authenticates with bearer tokens,
// not cookies. Requests without an Origin header pass through untouched.
func CORS(opts CORSOptions) func(http.Handler) http.Handler {
	anyOrigin := false
	allowed := make(map[string]struct{}, len(opts.Origins))
	for _, origin := range opts.Origins {
		origin = normalizeOrigin(origin)
		switch origin {
		case "":
		case "*":
			anyOrigin = true
		default:
			allowed[origin] = struct{}{}
		}
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = DefaultCORSMaxAge
	}
	maxAge := strconv.Itoa(int(opts.MaxAge / time.Second))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Add("Vary", "Origin")
			_, ok := allowed[normalizeOrigin(origin)]
			preflight := r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""

			if !ok && !anyOrigin {
				if preflight {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Expose-Headers", RequestIDHeader)

			if preflight {
				w.Header().Set("Access-Control-Allow-Methods", corsMethods)
				w.Header().Set("Access-Control-Allow-Headers", corsRequestHeaders)
				w.Header().Set("Access-Control-Max-Age", maxAge)
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func normalizeOrigin(origin string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(origin), "/"))
}
