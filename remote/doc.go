// Package remote talks to the inference sidecar that hosts the classifier
// and its explainers.
//
// Client implements pipeline.Model and pipeline.Explainer over JSON/HTTP.
// Every call runs through a resilience.Executor: a circuit breaker, retries
// with backoff for transport failures and 5xx replies, and a per-attempt
// timeout. 4xx replies are never retried.
//
// Endpoints, relative to Config.BaseURL:
//
//	POST /v1/models/{name}:predict    {"instances":[tensor]}  -> {"predictions":[[p0,p1,p2,p3]]}
//	POST /v1/explain/saliency         {"instance":tensor}     -> {"map":[[...]]}
//	POST /v1/explain/attribution      {"instance":tensor,"num_features":5}
//	                                  -> {"features":[{"segment":3,"weight":0.4}],"image":"<base64 png>"}
//	GET  /v1/models/{name}            readiness
package remote
