package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pharmapos/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
)

func serveSwagger(cfg config.SwaggerConfig, jwt gin.HandlerFunc, remoteAddr, token string) int {
	r := gin.New()
	r.GET("/swagger/*any", SwaggerProtection(cfg, jwt), okHandler)
	req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
	req.RemoteAddr = remoteAddr
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestSwaggerProtection(t *testing.T) {
	svc := newTestJWTService(15 * time.Minute)
	pair, _ := newTestTokenPair(t, svc)
	jwt := JWTAuthMiddlewareWithConfig(JWTMiddlewareConfig{JWTService: svc})

	tests := []struct {
		name   string
		cfg    config.SwaggerConfig
		remote string
		token  string
		want   int
	}{
		{"disabled", config.SwaggerConfig{}, "10.0.0.5:5000", "", http.StatusNotFound},
		{"open", config.SwaggerConfig{Enabled: true}, "203.0.113.9:5000", "", http.StatusOK},
		{"allowed cidr", config.SwaggerConfig{Enabled: true, AllowedIPs: []string{"10.0.0.0/24"}}, "10.0.0.5:5000", "", http.StatusOK},
		{"allowed ip", config.SwaggerConfig{Enabled: true, AllowedIPs: []string{"192.168.1.10"}}, "192.168.1.10:5000", "", http.StatusOK},
		{"denied ip", config.SwaggerConfig{Enabled: true, AllowedIPs: []string{"10.0.0.0/24"}}, "10.0.1.5:5000", "", http.StatusForbidden},
		{"auth missing", config.SwaggerConfig{Enabled: true, RequireAuth: true}, "10.0.0.5:5000", "", http.StatusUnauthorized},
		{"auth valid", config.SwaggerConfig{Enabled: true, RequireAuth: true}, "10.0.0.5:5000", pair.AccessToken, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, serveSwagger(tt.cfg, jwt, tt.remote, tt.token))
		})
	}
}

func TestParseAllowList(t *testing.T) {
	ips, nets := parseAllowList([]string{" 10.0.0.1 ", "172.16.0.0/12", "not-an-ip", "300.0.0.0/8"})
	assert.Len(t, ips, 1)
	assert.Len(t, nets, 1)
}
