package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext(headers map[string]string) *gin.Context {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:5555"
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	c.Request = req
	return c
}

func TestGetRealIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"real ip header", map[string]string{"X-Real-IP": "203.0.113.7"}, "203.0.113.7"},
		{"private real ip ignored", map[string]string{"X-Real-IP": "10.0.0.2", "X-Forwarded-For": "198.51.100.4"}, "198.51.100.4"},
		{"first public forwarded", map[string]string{"X-Forwarded-For": "10.1.1.1, 198.51.100.9, 203.0.113.1"}, "198.51.100.9"},
		{"all private forwarded", map[string]string{"X-Forwarded-For": "10.1.1.1, 192.168.0.3"}, "10.1.1.1"},
		{"remote addr fallback", nil, "192.0.2.10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetRealIP(testContext(tt.headers)))
		})
	}
}

func TestParseUserAgent(t *testing.T) {
	desktop := ParseUserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	assert.Equal(t, "desktop", desktop.DeviceType)
	assert.Equal(t, "Chrome", desktop.Browser)
	assert.False(t, desktop.IsBot)

	tablet := ParseUserAgent("Mozilla/5.0 (iPad; CPU OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1")
	assert.Equal(t, "tablet", tablet.DeviceType)

	unknown := ParseUserAgent("")
	assert.Equal(t, "unknown", unknown.DeviceType)
	assert.Equal(t, "Unknown", unknown.Browser)
}

func TestClientFromRequest(t *testing.T) {
	c := testContext(map[string]string{
		"X-Real-IP":  "203.0.113.7",
		"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	})
	client := ClientFromRequest(c)
	assert.Equal(t, "203.0.113.7", client.IP)
	assert.Equal(t, "desktop", client.DeviceType)
	assert.Equal(t, "Chrome", client.Browser)
}

func TestGenerateJWTSecret(t *testing.T) {
	a, err := GenerateJWTSecret()
	require.NoError(t, err)
	b, err := GenerateJWTSecret()
	require.NoError(t, err)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}
