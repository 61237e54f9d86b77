package auth_test

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jonwraymond/neuroscan/auth"
)

func ExampleNewAPIKeyAuthenticator() {
	store := auth.NewMemoryAPIKeyStore()
	store.AddKey("key-1", "radiology", "sk_live_abc123")

	a := auth.NewAPIKeyAuthenticator(auth.APIKeyConfig{}, store)

	h := http.Header{}
	h.Set("X-API-Key", "sk_live_abc123")
	result, _ := a.Authenticate(context.Background(), &auth.AuthRequest{Headers: h})

	fmt.Println(result.Authenticated, result.Identity.Principal)
	// Output:
	// true radiology
}

func ExampleTokenSigner() {
	signer, _ := auth.NewTokenSigner(auth.SignerConfig{
		Key:      []byte("shared-secret"),
		Subject:  "neuroscan-api",
		Audience: "inference",
	})
	token, _ := signer.Token()

	verifier := auth.NewJWTAuthenticator(auth.JWTConfig{Audience: "inference"},
		auth.NewStaticKeyProvider([]byte("shared-secret")))

	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	result, _ := verifier.Authenticate(context.Background(), &auth.AuthRequest{Headers: h})

	fmt.Println(result.Identity.Principal)
	// Output:
	// neuroscan-api
}
