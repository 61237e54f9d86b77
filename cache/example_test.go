package cache_test

import (
	"context"
	"fmt"
	"time"

	"github.com/jonwraymond/neuroscan/cache"
)

func ExampleNewMemoryCache() {
	c := cache.NewMemoryCache()
	ctx := context.Background()

	_ = c.Set(ctx, "my-key", []byte("hello"), 5*time.Minute)

	value, ok, _ := c.Get(ctx, "my-key")
	if ok {
		fmt.Println("Value:", string(value))
	}
	// Output:
	// Value: hello
}

func ExampleDeriveKey() {
	key, _ := cache.DeriveKey("neuroscan", "classification", []byte("abc"))
	fmt.Println(key[:35])
	fmt.Println("digest length:", len(key)-len("neuroscan:classification:"))

	_, err := cache.DeriveKey("neuroscan", "classification", nil)
	fmt.Println(err)
	// Output:
	// neuroscan:classification:ba7816bf8f
	// digest length: 64
	// cache: content is empty
}

func ExamplePolicy_EffectiveTTL() {
	policy := cache.Policy{
		DefaultTTL: 5 * time.Minute,
		MaxTTL:     1 * time.Hour,
	}

	fmt.Println("No override:", policy.EffectiveTTL(0))
	fmt.Println("10min override:", policy.EffectiveTTL(10*time.Minute))
	fmt.Println("2hr override (clamped):", policy.EffectiveTTL(2*time.Hour))
	// Output:
	// No override: 5m0s
	// 10min override: 10m0s
	// 2hr override (clamped): 1h0m0s
}
