package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func keyRequest(key string) *AuthRequest {
	h := http.Header{}
	if key != "" {
		h.Set("X-API-Key", key)
	}
	return &AuthRequest{Headers: h}
}

func TestAPIKeyAuthenticator_Authenticate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryAPIKeyStore()
	store.AddKey("k1", "radiology", "sk_live_valid")
	store.Add(&APIKeyInfo{
		ID:        "k2",
		KeyHash:   HashAPIKey("sk_live_old"),
		Principal: "legacy",
		ExpiresAt: now.Add(-time.Hour),
	})

	a := NewAPIKeyAuthenticator(APIKeyConfig{Now: func() time.Time { return now }}, store)

	tests := []struct {
		name          string
		key           string
		wantPrincipal string
		wantErr       error
	}{
		{name: "valid", key: "sk_live_valid", wantPrincipal: "radiology"},
		{name: "surrounding space", key: " sk_live_valid ", wantPrincipal: "radiology"},
		{name: "unknown", key: "sk_live_nope", wantErr: ErrInvalidCredentials},
		{name: "expired", key: "sk_live_old", wantErr: ErrTokenExpired},
		{name: "missing", key: "", wantErr: ErrMissingCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := a.Authenticate(context.Background(), keyRequest(tt.key))
			if err != nil {
				t.Fatalf("Authenticate() error = %v", err)
			}
			if tt.wantErr != nil {
				if result.Authenticated || !errors.Is(result.Error, tt.wantErr) {
					t.Errorf("result = %+v, want failure %v", result, tt.wantErr)
				}
				return
			}
			if !result.Authenticated {
				t.Fatalf("Authenticate() rejected: %v", result.Error)
			}
			if result.Identity.Principal != tt.wantPrincipal {
				t.Errorf("Principal = %q, want %q", result.Identity.Principal, tt.wantPrincipal)
			}
			if result.Identity.Claims["key_id"] != "k1" {
				t.Errorf("key_id = %v, want k1", result.Identity.Claims["key_id"])
			}
		})
	}
}

func TestMemoryAPIKeyStore(t *testing.T) {
	store := NewMemoryAPIKeyStore()
	store.AddKey("k1", "p", "raw")
	if store.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", store.Len())
	}
	info, _ := store.Lookup(context.Background(), HashAPIKey("raw"))
	if info == nil || info.ID != "k1" {
		t.Fatalf("Lookup() = %+v, want k1", info)
	}
	store.Remove(HashAPIKey("raw"))
	if info, _ := store.Lookup(context.Background(), HashAPIKey("raw")); info != nil {
		t.Errorf("Lookup() after Remove = %+v, want nil", info)
	}
}

func TestHashAPIKey_Stable(t *testing.T) {
	if HashAPIKey("abc") != HashAPIKey("abc") {
		t.Error("HashAPIKey is not deterministic")
	}
	if HashAPIKey("abc") == "abc" {
		t.Error("HashAPIKey returned the raw key")
	}
}
