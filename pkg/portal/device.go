package portal

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"example.com/HoloTools/pkg/models"
	"example.com/HoloTools/utils"
)

var (
	// ErrAuthFailed 表示认证无法建立(凭据错误或设备不可达)
	ErrAuthFailed = errors.New("认证失败")
	// ErrRequestFailed 表示请求到达了设备但未成功
	ErrRequestFailed = errors.New("请求未成功")
	// ErrNotFound 表示目标应用/资源在设备上不存在
	ErrNotFound = errors.New("目标不存在")
)

// Client 是单台设备的 Device Portal 操作句柄
type Client struct {
	dev       models.Device
	transport *Transport
	auth      *Authenticator
}

type Option func(*Client)

// WithTransport 替换默认传输层(用于自定义超时或测试)
func WithTransport(t *Transport) Option {
	return func(c *Client) {
		c.transport = t
	}
}

// WithAuthenticator 共享认证器,多个 Client 可以复用同一份会话缓存
func WithAuthenticator(a *Authenticator) Option {
	return func(c *Client) {
		c.auth = a
	}
}

func NewClient(dev models.Device, opts ...Option) *Client {
	c := &Client{dev: dev}
	for _, opt := range opts {
		opt(c)
	}
	if c.transport == nil {
		c.transport = NewTransport(nil)
	}
	if c.auth == nil {
		c.auth = NewAuthenticator(c.transport)
	}
	return c
}

// Device 返回当前句柄对应的设备配置
func (c *Client) Device() models.Device {
	return c.dev
}

// call 先确保认证,再向设备发起请求
func (c *Client) call(ctx context.Context, method, path string, body io.Reader, contentType string) (Result, error) {
	if !c.auth.EnsureAuthenticated(ctx, c.dev) {
		return Result{}, fmt.Errorf("%w: %s", ErrAuthFailed, DeviceKey(c.dev))
	}
	res := c.transport.Do(ctx, method, BaseURL(c.dev)+path, c.auth.Headers(c.dev), body, contentType)
	return res, nil
}

// getJSON 发起 GET 并解析 JSON 响应
// 解码失败和请求失败是两种不同的错误,不混为一谈
func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	res, err := c.call(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("%w: HTTP %d", ErrRequestFailed, res.StatusCode)
	}
	if err := json.Unmarshal(res.Body, v); err != nil {
		return fmt.Errorf("解析响应失败: %w", err)
	}
	return nil
}

// post 发起无响应体需求的 POST
func (c *Client) post(ctx context.Context, path string) error {
	res, err := c.call(ctx, http.MethodPost, path, nil, "")
	if err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("%w: HTTP %d: %s", ErrRequestFailed, res.StatusCode, strings.TrimSpace(string(res.Body)))
	}
	return nil
}

// OSInfo 获取操作系统信息
func (c *Client) OSInfo(ctx context.Context) (*OSInfo, error) {
	var info OSInfo
	if err := c.getJSON(ctx, "/api/os/info", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// MachineName 获取设备显示名称
func (c *Client) MachineName(ctx context.Context) (string, error) {
	var resp machineNameResponse
	if err := c.getJSON(ctx, "/api/os/machinename", &resp); err != nil {
		return "", err
	}
	return resp.ComputerName, nil
}

// Battery 获取电池状态
func (c *Client) Battery(ctx context.Context) (*BatteryState, error) {
	var state BatteryState
	if err := c.getJSON(ctx, "/api/power/battery", &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// PowerState 获取电源状态
func (c *Client) PowerState(ctx context.Context) (*PowerState, error) {
	var state PowerState
	if err := c.getJSON(ctx, "/api/power/state", &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// Restart 重启设备,立即返回
// 如需等待设备恢复,组合使用 WaitForReboot
func (c *Client) Restart(ctx context.Context) error {
	return c.post(ctx, "/api/control/restart")
}

// Shutdown 关闭设备
func (c *Client) Shutdown(ctx context.Context) error {
	return c.post(ctx, "/api/control/shutdown")
}

// WaitForReboot 轮询电源状态端点直到设备重新响应
// 轮询次数和间隔由 policy 限定,不会无限等待
func (c *Client) WaitForReboot(ctx context.Context, policy RetryPolicy) error {
	interval := policy.Interval
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
		if policy.Backoff > 1 {
			interval = time.Duration(float64(interval) * policy.Backoff)
		}

		// 重启过程中会话随设备失效,每轮丢弃重建
		c.auth.Reset(c.dev)
		if _, err := c.PowerState(ctx); err == nil {
			return nil
		}
	}
	return fmt.Errorf("等待设备 %s 重启超时 (%d 次轮询)", DeviceKey(c.dev), policy.MaxAttempts)
}

// Processes 获取进程列表
func (c *Client) Processes(ctx context.Context) ([]Process, error) {
	var resp processListResponse
	if err := c.getJSON(ctx, "/api/resourcemanager/processes", &resp); err != nil {
		return nil, err
	}
	return resp.Processes, nil
}

// IsRunning 按镜像名子串匹配判断进程是否在运行
func (c *Client) IsRunning(ctx context.Context, imageName string) (bool, error) {
	processes, err := c.Processes(ctx)
	if err != nil {
		return false, err
	}
	for _, p := range processes {
		if strings.Contains(p.ImageName, imageName) {
			return true, nil
		}
	}
	return false, nil
}

// InstalledPackages 获取已安装应用列表
func (c *Client) InstalledPackages(ctx context.Context) ([]AppPackage, error) {
	var resp packageListResponse
	if err := c.getJSON(ctx, "/api/appx/packagemanager/packages", &resp); err != nil {
		return nil, err
	}
	return resp.InstalledPackages, nil
}

// FindPackage 按包族名精确匹配(忽略大小写)解析一个已安装应用
func (c *Client) FindPackage(ctx context.Context, familyName string) (*AppPackage, error) {
	packages, err := c.InstalledPackages(ctx)
	if err != nil {
		return nil, err
	}
	for _, pkg := range packages {
		if strings.EqualFold(pkg.PackageFamilyName, familyName) {
			return &pkg, nil
		}
	}
	return nil, fmt.Errorf("%w: 包族名 %s", ErrNotFound, familyName)
}

// Launch 启动应用
// Device Portal 要求 appid 和 package 参数做 base64 编码
// 启动请求成功后还需确认进程确实在运行
func (c *Client) Launch(ctx context.Context, pkg *AppPackage) (bool, error) {
	path := fmt.Sprintf("/api/taskmanager/app?appid=%s&package=%s",
		url.QueryEscape(EncodeAppID(pkg.PackageRelativeID)),
		url.QueryEscape(EncodeAppID(pkg.PackageFullName)))
	if err := c.post(ctx, path); err != nil {
		return false, err
	}
	return c.IsRunning(ctx, pkg.Name)
}

// Kill 终止应用
func (c *Client) Kill(ctx context.Context, pkg *AppPackage) error {
	path := fmt.Sprintf("/api/taskmanager/app?package=%s",
		url.QueryEscape(EncodeAppID(pkg.PackageFullName)))
	res, err := c.call(ctx, http.MethodDelete, path, nil, "")
	if err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("%w: HTTP %d", ErrRequestFailed, res.StatusCode)
	}
	return nil
}

// Uninstall 卸载应用,package 为包全名
func (c *Client) Uninstall(ctx context.Context, packageFullName string) error {
	path := "/api/app/packagemanager/package?package=" + url.QueryEscape(packageFullName)
	res, err := c.call(ctx, http.MethodDelete, path, nil, "")
	if err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("%w: HTTP %d: %s", ErrRequestFailed, res.StatusCode, strings.TrimSpace(string(res.Body)))
	}
	return nil
}

// DownloadLog 下载应用的 UnityPlayer.log 到 dir 下
// 文件名带设备标识和时间戳,返回写入的完整路径
func (c *Client) DownloadLog(ctx context.Context, packageFullName, dir string) (string, error) {
	path := fmt.Sprintf(
		"/api/filesystem/apps/file?knownfolderid=LocalAppData&filename=UnityPlayer.log&packagefullname=%s&path=%s",
		url.QueryEscape(packageFullName), url.QueryEscape(`\TempState`))
	res, err := c.call(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return "", err
	}
	if !res.Success {
		return "", fmt.Errorf("%w: HTTP %d", ErrRequestFailed, res.StatusCode)
	}

	if dir == "" {
		dir = os.TempDir()
	}
	name := fmt.Sprintf("%s_%s_UnityPlayer.log",
		strings.ReplaceAll(DeviceKey(c.dev), ":", "_"),
		time.Now().Format("20060102_150405"))
	out := filepath.Join(dir, name)
	if err := os.WriteFile(out, res.Body, 0644); err != nil {
		return "", fmt.Errorf("写入日志文件失败: %w", err)
	}
	utils.Logger.Info("日志已下载", "device", DeviceKey(c.dev), "path", out)
	return out, nil
}

// IPConfig 获取网络适配器配置
func (c *Client) IPConfig(ctx context.Context) (*IPConfig, error) {
	var cfg IPConfig
	if err := c.getJSON(ctx, "/api/networking/ipconfig", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// WifiInterfaces 获取无线网卡列表
func (c *Client) WifiInterfaces(ctx context.Context) ([]WifiInterface, error) {
	var resp wifiInterfacesResponse
	if err := c.getJSON(ctx, "/api/wifi/interfaces", &resp); err != nil {
		return nil, err
	}
	return resp.Interfaces, nil
}

// WifiNetworks 扫描指定网卡可见的无线网络
func (c *Client) WifiNetworks(ctx context.Context, interfaceGUID string) ([]WifiNetwork, error) {
	var resp wifiNetworksResponse
	path := "/api/wifi/networks?interface=" + url.QueryEscape(interfaceGUID)
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.AvailableNetworks, nil
}

// WifiConnect 连接指定无线网络,key 为空时使用已保存的配置文件
func (c *Client) WifiConnect(ctx context.Context, interfaceGUID, ssid, key string) error {
	path := fmt.Sprintf("/api/wifi/network?interface=%s&ssid=%s&op=connect&createprofile=yes",
		url.QueryEscape(interfaceGUID), url.QueryEscape(ssid))
	if key != "" {
		path += "&key=" + url.QueryEscape(key)
	}
	return c.post(ctx, path)
}

// EncodeAppID 对应用标识做 base64 编码(Device Portal 的参数约定)
func EncodeAppID(id string) string {
	return base64.StdEncoding.EncodeToString([]byte(id))
}

// DecodeAppID 解码 base64 形式的应用标识
func DecodeAppID(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
