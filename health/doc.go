// Package health reports whether the service can answer analysis requests.
//
// Checkers cover the pieces a request depends on: the classifier handle, the
// inference sidecar, the result cache and process memory. An Aggregator runs
// them together and folds the results into one Status; the cache checker
// only ever degrades the service because a cache outage never fails a
// request.
//
// The HTTP handlers back the /healthz, /readyz and /health routes:
//
//	r.Get("/healthz", health.LivenessHandler())
//	r.Get("/readyz", health.ReadinessHandler(agg))
//	r.Get("/health", health.DetailedHandler(agg))
//	r.Get("/health/{name}", health.SingleCheckHandler(agg))
package health
