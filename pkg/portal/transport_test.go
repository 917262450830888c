package portal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"example.com/HoloTools/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestTransportPreservesErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"Reason":"no such endpoint"}`))
	}))
	defer srv.Close()

	res := NewTransport(nil).Get(context.Background(), srv.URL+"/api/os/info", nil)
	assert.False(t, res.Success)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Contains(t, string(res.Body), "no such endpoint")
}

func TestTransportNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // 连接将被拒绝

	res := NewTransport(nil).Get(context.Background(), srv.URL+"/", nil)
	assert.False(t, res.Success)
	assert.Equal(t, 0, res.StatusCode)
	assert.Nil(t, res.Body)
}

func TestTransportSendsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "CSRF-Token=tok", r.Header.Get("Cookie"))
		assert.Equal(t, "tok", r.Header.Get("X-Csrf-Token"))
	}))
	defer srv.Close()

	headers := map[string]string{
		"cookie":       "CSRF-Token=tok",
		"x-csrf-token": "tok",
	}
	res := NewTransport(nil).Get(context.Background(), srv.URL+"/", headers)
	assert.True(t, res.Success)
}

func TestBaseURL(t *testing.T) {
	cases := []struct {
		name string
		dev  models.Device
		want string
	}{
		{"https带端口", models.Device{Address: "192.168.1.10", Port: 443, UseTLS: true}, "https://192.168.1.10:443"},
		{"http回环", models.Device{Address: "127.0.0.1", Port: 10080}, "http://127.0.0.1:10080"},
		{"省略端口", models.Device{Address: "holo.local", UseTLS: true}, "https://holo.local"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, BaseURL(tc.dev))
		})
	}
}

func TestDeviceKey(t *testing.T) {
	assert.Equal(t, "192.168.1.10:443", DeviceKey(models.Device{Address: "192.168.1.10", Port: 443}))
}
