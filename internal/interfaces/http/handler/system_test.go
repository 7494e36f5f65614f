package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSystemEngine(h *SystemHandler) *gin.Engine {
	engine := newTestEngine(nil)
	engine.GET("/health", h.Health)
	engine.GET("/ready", h.Ready)
	engine.GET("/system/info", h.GetSystemInfo)
	return engine
}

func decodeHealth(t *testing.T, body []byte) HealthResponse {
	t.Helper()
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp
}

func TestSystemHandler_Health(t *testing.T) {
	h := NewSystemHandler("PharmaPOS API", "1.2.0",
		WithHealthCheck("database", func(context.Context) error { return errors.New("down") }))

	w := doRequest(newSystemEngine(h), http.MethodGet, "/health", nil)

	// liveness never runs dependency checks
	assertStatus(t, w, http.StatusOK)
	assert.Equal(t, "healthy", decodeHealth(t, w.Body.Bytes()).Status)
}

func TestSystemHandler_Ready(t *testing.T) {
	t.Run("all dependencies up", func(t *testing.T) {
		h := NewSystemHandler("PharmaPOS API", "1.2.0",
			WithHealthCheck("database", func(context.Context) error { return nil }),
			WithHealthCheck("redis", func(context.Context) error { return nil }))

		w := doRequest(newSystemEngine(h), http.MethodGet, "/ready", nil)

		assertStatus(t, w, http.StatusOK)
		resp := decodeHealth(t, w.Body.Bytes())
		assert.Equal(t, "ready", resp.Status)
		assert.Equal(t, map[string]string{"database": "ok", "redis": "ok"}, resp.Checks)
	})

	t.Run("one dependency down", func(t *testing.T) {
		h := NewSystemHandler("PharmaPOS API", "1.2.0",
			WithHealthCheck("database", func(context.Context) error { return nil }),
			WithHealthCheck("redis", func(context.Context) error { return errors.New("dial tcp: connection refused") }))

		w := doRequest(newSystemEngine(h), http.MethodGet, "/ready", nil)

		assertStatus(t, w, http.StatusServiceUnavailable)
		resp := decodeHealth(t, w.Body.Bytes())
		assert.Equal(t, "unavailable", resp.Status)
		assert.Equal(t, "ok", resp.Checks["database"])
		assert.Equal(t, "dial tcp: connection refused", resp.Checks["redis"])
	})

	t.Run("checks share a deadline", func(t *testing.T) {
		h := NewSystemHandler("PharmaPOS API", "1.2.0",
			WithHealthCheck("database", func(ctx context.Context) error {
				_, ok := ctx.Deadline()
				if !ok {
					return errors.New("no deadline")
				}
				return nil
			}))

		w := doRequest(newSystemEngine(h), http.MethodGet, "/ready", nil)

		assertStatus(t, w, http.StatusOK)
	})
}

func TestSystemHandler_GetSystemInfo(t *testing.T) {
	h := NewSystemHandler("PharmaPOS API", "1.2.0",
		WithHealthCheck("redis", func(context.Context) error { return nil }),
		WithHealthCheck("database", func(context.Context) error { return nil }),
		WithRealtimeClients(func() int { return 4 }))
	h.startTime = time.Now().Add(-90 * time.Minute)

	w := doRequest(newSystemEngine(h), http.MethodGet, "/system/info", nil)

	assertStatus(t, w, http.StatusOK)
	var info SystemInfoResponse
	decodeData(t, w, &info)
	assert.Equal(t, "PharmaPOS API", info.Name)
	assert.Equal(t, "1.2.0", info.Version)
	assert.NotEmpty(t, info.GoVersion)
	assert.Equal(t, "1h30m0s", info.Uptime)
	assert.Positive(t, info.Goroutines)
	require.NotNil(t, info.RealtimeClients)
	assert.Equal(t, 4, *info.RealtimeClients)
	assert.Equal(t, []string{"database", "redis"}, info.Dependencies)
}

func TestSystemHandler_GetSystemInfoWithoutRealtime(t *testing.T) {
	h := NewSystemHandler("PharmaPOS API", "1.2.0")

	w := doRequest(newSystemEngine(h), http.MethodGet, "/system/info", nil)

	assertStatus(t, w, http.StatusOK)
	var info SystemInfoResponse
	decodeData(t, w, &info)
	assert.Nil(t, info.RealtimeClients)
	assert.Empty(t, info.Dependencies)
}
