package security

import (
	"sync"
	"testing"

	"github.com/Arch3nemy7/face-recognition-service/internal/config"
)

func TestTokenVerifier(t *testing.T) {
	t.Run("DisabledWithoutToken", func(t *testing.T) {
		v := NewTokenVerifier("")
		if v.Enabled() {
			t.Error("empty token should disable auth")
		}
		if !v.Verify("") {
			t.Error("disabled verifier should accept everything")
		}
	})

	t.Run("AcceptsMatchingBearer", func(t *testing.T) {
		v := NewTokenVerifier("s3cret")
		if !v.Verify("Bearer s3cret") {
			t.Error("matching bearer token rejected")
		}
	})

	t.Run("RejectsWrongToken", func(t *testing.T) {
		v := NewTokenVerifier("s3cret")
		for _, header := range []string{"", "Bearer wrong", "s3cret", "Basic s3cret", "Bearer "} {
			if v.Verify(header) {
				t.Errorf("header %q should be rejected", header)
			}
		}
	})
}

func TestRateLimiter(t *testing.T) {
	t.Run("DisabledAllowsAll", func(t *testing.T) {
		cfg := config.GetDefaults().Security
		cfg.RateLimit.Enabled = false
		r := NewRateLimiter(&cfg)
		for i := 0; i < 100; i++ {
			if !r.Allow("10.0.0.1") {
				t.Fatal("disabled limiter rejected a request")
			}
		}
	})

	t.Run("BurstExhaustion", func(t *testing.T) {
		cfg := config.GetDefaults().Security
		cfg.RateLimit.Enabled = true
		cfg.RateLimit.RequestsPerSec = 0.001
		cfg.RateLimit.Burst = 3
		r := NewRateLimiter(&cfg)

		for i := 0; i < 3; i++ {
			if !r.Allow("10.0.0.2") {
				t.Fatalf("request %d within burst was rejected", i)
			}
		}
		if r.Allow("10.0.0.2") {
			t.Error("request beyond burst was allowed")
		}

		// Other clients have their own buckets
		if !r.Allow("10.0.0.3") {
			t.Error("separate client was rejected")
		}
	})

	t.Run("ConcurrentSameClient", func(t *testing.T) {
		cfg := config.GetDefaults().Security
		cfg.RateLimit.Enabled = true
		cfg.RateLimit.RequestsPerSec = 1000
		cfg.RateLimit.Burst = 1000
		r := NewRateLimiter(&cfg)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					r.Allow("10.0.0.4")
				}
			}()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				r.CleanupOldBuckets()
			}
		}()
		wg.Wait()

		if !r.Allow("10.0.0.4") {
			t.Error("request within generous burst was rejected")
		}
	})
}
