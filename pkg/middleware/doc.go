// Package middleware provides the observability middleware for the site's
// HTTP server.
//
// This package includes:
//   - OpenTelemetry request tracing and span helpers for render code
//   - Prometheus request metrics and recording functions for renders,
//     prefetches, lead submissions and prerendered pages
//
// Both middlewares are plain func(http.Handler) http.Handler and are meant
// to be mounted on a chi router, which supplies the route pattern used for
// metric labels:
//
//	r := chi.NewRouter()
//	r.Use(middleware.OpenTelemetry())
//	r.Use(middleware.Prometheus())
//	r.Handle("/metrics", promhttp.Handler())
//
// # Context Propagation
//
// The tracing middleware stores its span in the request context. Anything
// that receives r.Context() (the SSR renderer, database drivers, outgoing
// HTTP clients) inherits the trace:
//
//	ctx, span := middleware.StartSpan(r.Context(), "blog.list")
//	posts, err := repo.ListPosts(ctx, in)
//	middleware.EndSpan(span, err)
package middleware
