package auth

import (
	"errors"
	"net/http"
)

// FailureHandler writes the response for a request that failed
// authentication. err is an auth sentinel for rejected credentials and
// anything else for internal failures.
type FailureHandler func(w http.ResponseWriter, r *http.Request, err error)

// Middleware authenticates each request with a and attaches the resulting
// Identity to its context. A nil a lets every request through as
// AnonymousIdentity. A nil onFailure replies with a bare 401.
func Middleware(a Authenticator, onFailure FailureHandler) func(http.Handler) http.Handler {
	if onFailure == nil {
		onFailure = func(w http.ResponseWriter, _ *http.Request, _ error) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if a == nil {
				next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), AnonymousIdentity())))
				return
			}

			req := &AuthRequest{Headers: r.Header, Resource: r.URL.Path}
			if !a.Supports(r.Context(), req) {
				onFailure(w, r, ErrMissingCredentials)
				return
			}

			result, err := a.Authenticate(r.Context(), req)
			if err != nil {
				onFailure(w, r, err)
				return
			}
			if !result.Authenticated {
				onFailure(w, r, result.Error)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), result.Identity)))
		})
	}
}

// IsCredentialError reports whether err means the caller's credentials
// were missing or rejected.
func IsCredentialError(err error) bool {
	for _, target := range []error{ErrMissingCredentials, ErrInvalidCredentials, ErrTokenExpired, ErrTokenMalformed} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
