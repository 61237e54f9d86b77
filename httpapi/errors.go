package httpapi

import (
	"errors"
	"net/http"

	"github.com/jonwraymond/neuroscan/auth"
	"github.com/jonwraymond/neuroscan/observe"
	"github.com/jonwraymond/neuroscan/pipeline"
	"github.com/jonwraymond/neuroscan/resilience"
)

// Error codes written in the error_code field.
const (
	CodeInvalidImage    = "INVALID_IMAGE"
	CodeInvalidSize     = "INVALID_SIZE"
	CodeModelError      = "MODEL_ERROR"
	CodeExplainerError  = "EXPLAINER_ERROR"
	CodeCacheError      = "CACHE_ERROR"
	CodeInternalError   = "INTERNAL_ERROR"
	CodeOverloaded      = "OVERLOADED"
	CodeMissingFile     = "MISSING_FILE"
	CodeFileTooLarge    = "FILE_TOO_LARGE"
	CodeRateLimited     = "RATE_LIMITED"
	CodeUnauthorized    = "UNAUTHORIZED"
)

// errorBody is the JSON shape of every failure response.
type errorBody struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code"`
}

// statusFor maps an orchestrator failure to an HTTP status, an error code
// and a client-safe message.
func statusFor(err error) (int, string, string) {
	if errors.Is(err, resilience.ErrBulkheadFull) {
		return http.StatusServiceUnavailable, CodeOverloaded, "server is busy, retry later"
	}

	switch pipeline.KindOf(err) {
	case pipeline.InvalidContent:
		return http.StatusBadRequest, CodeInvalidImage, "invalid image: " + cause(err)
	case pipeline.UnsupportedSize:
		return http.StatusBadRequest, CodeInvalidSize, "unsupported image size: " + cause(err)
	case pipeline.ModelFailure:
		return http.StatusInternalServerError, CodeModelError, "model prediction failed"
	case pipeline.ExplainerFailure:
		return http.StatusInternalServerError, CodeExplainerError, "explanation failed"
	case pipeline.StoreUnavailable:
		return http.StatusServiceUnavailable, CodeCacheError, "result cache unavailable"
	}
	return http.StatusInternalServerError, CodeInternalError, "internal server error"
}

// cause returns the collaborator's message without the pipeline prefix.
func cause(err error) string {
	var pe *pipeline.Error
	if errors.As(err, &pe) && pe.Err != nil {
		return pe.Err.Error()
	}
	return err.Error()
}

// authFailure answers requests rejected by auth.Middleware.
func (s *Server) authFailure(w http.ResponseWriter, r *http.Request, err error) {
	if auth.IsCredentialError(err) {
		w.Header().Set("WWW-Authenticate", `Bearer realm="neuroscan"`)
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, err.Error())
		return
	}
	s.logger.Error(r.Context(), "authentication failed", observe.F("error", err.Error()))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal server error")
}
