package portal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeInstallFixture 在临时目录中布置一套完整的安装文件:
// app.appx、app.cer 和 Dependencies/x86 下的两个依赖包
func writeInstallFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	depsDir := filepath.Join(dir, "Dependencies", "x86")
	require.NoError(t, os.MkdirAll(depsDir, 0755))

	files := map[string]string{
		filepath.Join(dir, "app.appx"):         "appx-payload",
		filepath.Join(dir, "app.cer"):          "cert-payload",
		filepath.Join(depsDir, "runtime.appx"): "dep-a",
		filepath.Join(depsDir, "vclibs.appx"):  "dep-b",
	}
	for path, content := range files {
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return filepath.Join(dir, "app.appx")
}

func TestDecodeInstallState(t *testing.T) {
	cases := []struct {
		name       string
		body       string
		wantStatus InstallStatus
		wantReason string
	}{
		{"空响应体", "", Installing, ""},
		{"无法解码", "<html>busy</html>", Installing, ""},
		{"Success为null", `{"Code":0,"Reason":""}`, Installing, ""},
		{"安装成功", `{"Success":true}`, InstallSuccess, ""},
		{"安装失败", `{"Success":false,"Reason":"签名无效","CodeText":"CERT_E_UNTRUSTEDROOT"}`,
			InstallFail, "签名无效 (CERT_E_UNTRUSTEDROOT)"},
		{"失败无错误码", `{"Success":false,"Reason":"磁盘已满"}`, InstallFail, "磁盘已满"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, reason := decodeInstallState([]byte(tc.body))
			assert.Equal(t, tc.wantStatus, status)
			assert.Equal(t, tc.wantReason, reason)
		})
	}
}

func TestInstallMissingDependenciesNoNetworkCall(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	dir := t.TempDir()
	appx := filepath.Join(dir, "app.appx")
	require.NoError(t, os.WriteFile(appx, []byte("payload"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.cer"), []byte("cert"), 0644))
	// 故意不创建 Dependencies/x86

	client := NewClient(testDevice(t, srv))
	status, err := client.Install(context.Background(), appx, InstallOptions{})
	assert.Equal(t, InstallFail, status)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "依赖目录不可读")
	assert.Equal(t, int32(0), calls.Load(), "本地文件错误不应触发任何网络调用")
}

func TestInstallMissingCertNoNetworkCall(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	dir := t.TempDir()
	appx := filepath.Join(dir, "app.appx")
	require.NoError(t, os.WriteFile(appx, []byte("payload"), 0644))

	client := NewClient(testDevice(t, srv))
	status, err := client.Install(context.Background(), appx, InstallOptions{})
	assert.Equal(t, InstallFail, status)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "证书文件不可读")
	assert.Equal(t, int32(0), calls.Load())
}

func TestInstallUploadsAllFilesAsMultipart(t *testing.T) {
	var fieldNames []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.Header().Set("Set-Cookie", "CSRF-Token=tok; Path=/")
		case "/api/app/packagemanager/package":
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "app.appx", r.URL.Query().Get("package"))
			if err := r.ParseMultipartForm(32 << 20); err != nil {
				t.Errorf("解析multipart表单失败: %v", err)
				return
			}
			for name := range r.MultipartForm.File {
				fieldNames = append(fieldNames, name)
			}
		default:
			t.Errorf("意外的请求路径: %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	appx := writeInstallFixture(t)
	client := NewClient(testDevice(t, srv))

	status, err := client.Install(context.Background(), appx, InstallOptions{})
	require.NoError(t, err)
	// 未开启 Wait 时上传成功即返回,状态仍是安装中
	assert.Equal(t, Installing, status)
	// 表单字段名与文件名一致
	assert.ElementsMatch(t, []string{"app.appx", "app.cer", "runtime.appx", "vclibs.appx"}, fieldNames)
}

func TestInstallWaitReachesSuccess(t *testing.T) {
	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.Header().Set("Set-Cookie", "CSRF-Token=tok; Path=/")
		case "/api/app/packagemanager/package":
		case "/api/app/packagemanager/state":
			if polls.Add(1) < 3 {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			w.Write([]byte(`{"Success":true}`))
		}
	}))
	defer srv.Close()

	appx := writeInstallFixture(t)
	client := NewClient(testDevice(t, srv))

	status, err := client.Install(context.Background(), appx, InstallOptions{
		Wait:   true,
		Policy: RetryPolicy{MaxAttempts: 10, Interval: time.Millisecond, TreatPollErrorAsPending: true},
	})
	require.NoError(t, err)
	assert.Equal(t, InstallSuccess, status)
	assert.GreaterOrEqual(t, polls.Load(), int32(3))
}

func TestWaitForInstallExhaustsPolicy(t *testing.T) {
	client, _ := newPortalClient(t, func(w http.ResponseWriter, r *http.Request) {
		// Success 始终为 null,安装永远不结束
		w.Write([]byte(`{"Code":0}`))
	})

	status, err := client.WaitForInstall(context.Background(),
		RetryPolicy{MaxAttempts: 3, Interval: time.Millisecond, TreatPollErrorAsPending: true})
	assert.Equal(t, Installing, status)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 次轮询")
}

func TestWaitForInstallPollErrorTerminates(t *testing.T) {
	client, _ := newPortalClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	status, err := client.WaitForInstall(context.Background(),
		RetryPolicy{MaxAttempts: 5, Interval: time.Millisecond})
	assert.Equal(t, InstallFail, status)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "安装状态失败")
}

func TestWaitForInstallReportsDeviceFailure(t *testing.T) {
	client, _ := newPortalClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Success":false,"Reason":"部署被拒绝","CodeText":"E_FAIL"}`))
	})

	status, err := client.WaitForInstall(context.Background(),
		RetryPolicy{MaxAttempts: 5, Interval: time.Millisecond, TreatPollErrorAsPending: true})
	assert.Equal(t, InstallFail, status)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "部署被拒绝")
}

func TestCollectInstallFilesStableOrder(t *testing.T) {
	appx := writeInstallFixture(t)

	files, err := collectInstallFiles(appx, "", "")
	require.NoError(t, err)
	require.Len(t, files, 4)
	// 包和证书在前,依赖按文件名排序
	assert.Equal(t, "app.appx", filepath.Base(files[0]))
	assert.Equal(t, "app.cer", filepath.Base(files[1]))
	assert.Equal(t, "runtime.appx", filepath.Base(files[2]))
	assert.Equal(t, "vclibs.appx", filepath.Base(files[3]))
}
