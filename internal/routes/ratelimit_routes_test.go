package routes

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"bus_ticketing/internal/middleware"
)

func searchFrom(h *harness, remoteAddr, forwardedFor string) int {
	req := httptest.NewRequest(http.MethodGet, "/routes", nil)
	req.RemoteAddr = remoteAddr
	req.Header.Set("X-Forwarded-For", forwardedFor)
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w.Code
}

func TestFareLimitIgnoresForwardedForByDefault(t *testing.T) {
	rl := middleware.NewRateLimiter(2)
	t.Cleanup(rl.Stop)
	h := newHarnessWith(t, func(d *Deps) { d.FareLimiter = rl })

	allowed := 0
	for i := 0; i < 10; i++ {
		if searchFrom(h, "203.0.113.9:40000", fmt.Sprintf("198.51.100.%d", i+1)) == http.StatusOK {
			allowed++
		}
	}
	assert.Equal(t, 2, allowed, "rotating X-Forwarded-For from one connection address shares one bucket")
}

func TestFareLimitUsesForwardedForFromTrustedProxy(t *testing.T) {
	rl := middleware.NewRateLimiter(2)
	t.Cleanup(rl.Stop)
	h := newHarnessWith(t, func(d *Deps) {
		d.FareLimiter = rl
		d.TrustedProxies = []string{"10.0.0.0/8"}
	})

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, searchFrom(h, "10.1.2.3:40000", fmt.Sprintf("198.51.100.%d", i+1)))
	}
	assert.Equal(t, http.StatusOK, searchFrom(h, "10.1.2.3:40000", "198.51.100.1"))
	assert.Equal(t, http.StatusTooManyRequests, searchFrom(h, "10.1.2.3:40000", "198.51.100.1"))
}
