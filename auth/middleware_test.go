package auth

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func principalHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, PrincipalFromContext(r.Context()))
	})
}

func TestMiddleware(t *testing.T) {
	store := NewMemoryAPIKeyStore()
	store.AddKey("k1", "radiology", "sk_valid")
	a := NewAPIKeyAuthenticator(APIKeyConfig{}, store)

	tests := []struct {
		name       string
		auth       Authenticator
		key        string
		wantStatus int
		wantBody   string
	}{
		{name: "accepted", auth: a, key: "sk_valid", wantStatus: http.StatusOK, wantBody: "radiology"},
		{name: "rejected", auth: a, key: "sk_bad", wantStatus: http.StatusUnauthorized},
		{name: "missing", auth: a, wantStatus: http.StatusUnauthorized},
		{name: "disabled", auth: nil, wantStatus: http.StatusOK, wantBody: "anonymous"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Middleware(tt.auth, nil)(principalHandler())
			req := httptest.NewRequest(http.MethodPost, "/api/classify", nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestMiddleware_FailureHandler(t *testing.T) {
	a := NewAPIKeyAuthenticator(APIKeyConfig{}, brokenStore{})

	var got error
	h := Middleware(a, func(w http.ResponseWriter, _ *http.Request, err error) {
		got = err
		w.WriteHeader(http.StatusInternalServerError)
	})(principalHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/classify", nil)
	req.Header.Set("X-API-Key", "anything")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got == nil || IsCredentialError(got) {
		t.Errorf("failure error = %v, want an internal error", got)
	}
}

func TestIsCredentialError(t *testing.T) {
	if !IsCredentialError(fmt.Errorf("wrapped: %w", ErrTokenExpired)) {
		t.Error("wrapped ErrTokenExpired not recognized")
	}
	if IsCredentialError(errors.New("boom")) {
		t.Error("arbitrary error treated as credential error")
	}
}
