// Package auth authenticates callers of the analysis API and signs the
// service's own requests to the inference sidecar.
//
// Inbound requests may carry a bearer JWT or an X-API-Key header; a
// CompositeAuthenticator tries each in turn and Middleware rejects requests
// none of them accept. Outbound, TokenSigner mints short-lived HS256 tokens
// scoped to the sidecar's audience.
package auth
