package portal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newPortalClient 启动一个模拟 Device Portal 的服务器并返回其客户端
// handler 处理除认证握手之外的所有请求
func newPortalClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			w.Header().Set("Set-Cookie", "CSRF-Token=test-token; Path=/")
			return
		}
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return NewClient(testDevice(t, srv)), srv
}

const packagesBody = `{
	"InstalledPackages": [
		{
			"Name": "ContosoViewer",
			"PackageFamilyName": "Contoso.Viewer_abcdef123",
			"PackageFullName": "Contoso.Viewer_1.2.0.0_x86__abcdef123",
			"PackageRelativeId": "Contoso.Viewer_abcdef123!App",
			"Publisher": "CN=Contoso",
			"Version": {"Major": 1, "Minor": 2, "Build": 0, "Revision": 0}
		}
	]
}`

func TestFindPackageCaseInsensitive(t *testing.T) {
	client, _ := newPortalClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/appx/packagemanager/packages", r.URL.Path)
		w.Write([]byte(packagesBody))
	})

	pkg, err := client.FindPackage(context.Background(), "CONTOSO.VIEWER_ABCDEF123")
	require.NoError(t, err)
	assert.Equal(t, "ContosoViewer", pkg.Name)
	assert.Equal(t, "Contoso.Viewer_1.2.0.0_x86__abcdef123", pkg.PackageFullName)
}

func TestFindPackageNotFound(t *testing.T) {
	client, _ := newPortalClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(packagesBody))
	})

	_, err := client.FindPackage(context.Background(), "Fabrikam.App_xyz")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIsRunningMatchesSubstring(t *testing.T) {
	client, _ := newPortalClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Processes":[{"ImageName":"ContosoViewer.exe","ProcessId":42}]}`))
	})

	running, err := client.IsRunning(context.Background(), "ContosoViewer")
	require.NoError(t, err)
	assert.True(t, running)

	running, err = client.IsRunning(context.Background(), "FabrikamApp")
	require.NoError(t, err)
	assert.False(t, running)
}

func TestLaunchEncodesIdentifiers(t *testing.T) {
	var launchQuery map[string][]string
	client, _ := newPortalClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/taskmanager/app":
			assert.Equal(t, http.MethodPost, r.Method)
			launchQuery = r.URL.Query()
		case "/api/resourcemanager/processes":
			w.Write([]byte(`{"Processes":[{"ImageName":"ContosoViewer.exe"}]}`))
		default:
			t.Errorf("意外的请求路径: %s", r.URL.Path)
		}
	})

	pkg := &AppPackage{
		Name:              "ContosoViewer",
		PackageRelativeID: "Contoso.Viewer_abcdef123!App",
		PackageFullName:   "Contoso.Viewer_1.2.0.0_x86__abcdef123",
	}
	running, err := client.Launch(context.Background(), pkg)
	require.NoError(t, err)
	assert.True(t, running)

	appid, err := DecodeAppID(launchQuery["appid"][0])
	require.NoError(t, err)
	assert.Equal(t, pkg.PackageRelativeID, appid)

	fullName, err := DecodeAppID(launchQuery["package"][0])
	require.NoError(t, err)
	assert.Equal(t, pkg.PackageFullName, fullName)
}

func TestGetJSONDecodeError(t *testing.T) {
	client, _ := newPortalClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	})

	_, err := client.OSInfo(context.Background())
	require.Error(t, err)
	// 解码失败是独立的错误类型,不等同于请求失败
	assert.NotErrorIs(t, err, ErrRequestFailed)
	assert.Contains(t, err.Error(), "解析响应失败")
}

func TestCallAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(testDevice(t, srv))
	_, err := client.OSInfo(context.Background())
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestUninstallRequestShape(t *testing.T) {
	client, _ := newPortalClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/app/packagemanager/package", r.URL.Path)
		assert.Equal(t, "Contoso.Viewer_1.2.0.0_x86__abcdef123", r.URL.Query().Get("package"))
	})

	err := client.Uninstall(context.Background(), "Contoso.Viewer_1.2.0.0_x86__abcdef123")
	assert.NoError(t, err)
}

func TestEncodeDecodeAppID(t *testing.T) {
	id := "Contoso.Viewer_abcdef123!App"
	decoded, err := DecodeAppID(EncodeAppID(id))
	require.NoError(t, err)
	assert.Equal(t, id, decoded)

	_, err = DecodeAppID("!!!not-base64!!!")
	assert.Error(t, err)
}

func TestBatteryChargePercent(t *testing.T) {
	assert.Equal(t, 75, BatteryState{RemainingCapacity: 75, MaximumCapacity: 100}.ChargePercent())
	assert.Equal(t, -1, BatteryState{}.ChargePercent())
}

func TestWaitForRebootExhaustsPolicy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(testDevice(t, srv))
	err := client.WaitForReboot(context.Background(), RetryPolicy{MaxAttempts: 3, Interval: time.Millisecond})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "重启超时")
}
