// Package httpapi serves the classify, interpret and analyze operations over
// HTTP.
//
// Routes:
//
//	GET  /                 {"status":"OK"}
//	POST /api/classify     multipart field "file"
//	POST /api/interpret    multipart field "file"
//	POST /api/analyze      multipart field "file"
//	GET  /healthz, /readyz, /health, /health/{name}
//	GET  /metrics
//
// Failures are written as {"detail": ..., "error_code": ...} with the status
// chosen by the pipeline error kind.
package httpapi
