// Package pipeline answers classify, interpret and analyze requests for
// uploaded brain MRI scans.
//
// An Orchestrator derives a content key for the request, serves it from a
// ResultStore when a stored record satisfies the requested variant, and
// otherwise runs decode, predict and explain through injected Decoder,
// Model and Explainer collaborators. A full analysis stored for a scan also
// answers later classify and interpret requests for the same bytes.
//
// Every failure leaves the package as a *Error whose Kind is one of a
// closed set. Store failures are logged and never fail a request.
package pipeline
