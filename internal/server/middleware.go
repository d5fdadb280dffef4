package server

import (
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/vango-dev/site/internal/route"
)

// Cache-Control values set by CachePolicy.
const (
	CachePrivate = "private, no-store"
	CachePublic  = "public, max-age=60, stale-while-revalidate=300"
)

// AccessLog logs one line per request. Scrapes and probes log at debug.
func AccessLog(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelInfo
			switch {
			case status >= http.StatusInternalServerError:
				level = slog.LevelError
			case !traced(r):
				level = slog.LevelDebug
			}
			logger.LogAttrs(r.Context(), level, "request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", chimw.GetReqID(r.Context())),
			)
		})
	}
}

// Canonical redirects non-canonical page paths with 308, keeping the
// query, and rejects paths that cannot be canonicalized with 400.
func Canonical(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, changed, err := route.Canonicalize(r.URL.EscapedPath())
		if err != nil {
			http.Error(w, "Invalid path", http.StatusBadRequest)
			return
		}
		if changed {
			if r.URL.RawQuery != "" {
				p += "?" + r.URL.RawQuery
			}
			http.Redirect(w, r, p, http.StatusPermanentRedirect)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// VaryForwarded adds the proxy headers the page origin is read from to
// Vary, so shared caches key on them.
func VaryForwarded(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Forwarded, X-Forwarded-Host, X-Forwarded-Proto")
		next.ServeHTTP(w, r)
	})
}

// CachePolicy marks responses to cookie-free requests as publicly cacheable
// and everything else as private. Handlers may override it, as error
// responses do.
func CachePolicy(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Cookie") != "" {
			w.Header().Set("Cache-Control", CachePrivate)
		} else {
			w.Header().Set("Cache-Control", CachePublic)
		}
		w.Header().Add("Vary", "Cookie")
		next.ServeHTTP(w, r)
	})
}
