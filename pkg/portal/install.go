package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"time"

	"example.com/HoloTools/utils"
	"github.com/schollz/progressbar/v3"
)

// InstallStatus 是安装轮询的状态机状态
type InstallStatus int

const (
	// Installing 安装仍在进行,也是"结果未知/重试"的折叠态
	Installing InstallStatus = iota
	// InstallSuccess 终态: 安装成功
	InstallSuccess
	// InstallFail 终态: 设备报告安装失败
	InstallFail
)

func (s InstallStatus) String() string {
	switch s {
	case InstallSuccess:
		return "成功"
	case InstallFail:
		return "失败"
	default:
		return "安装中"
	}
}

// RetryPolicy 限定轮询循环的次数和间隔
// TreatPollErrorAsPending 为 true 时,状态查询本身的失败折叠回 Installing
// 继续轮询(与设备重启等瞬时不可达共存);为 false 时查询失败立即终止
type RetryPolicy struct {
	MaxAttempts             int
	Interval                time.Duration
	Backoff                 float64 // 每轮间隔的放大系数,<=1 表示固定间隔
	TreatPollErrorAsPending bool
}

// DefaultInstallPolicy 安装等待的默认策略: 2秒间隔轮询,最多5分钟
func DefaultInstallPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:             150,
		Interval:                2 * time.Second,
		TreatPollErrorAsPending: true,
	}
}

// DefaultRebootPolicy 重启等待的默认策略: 5秒起步指数退避,最多约3分钟
func DefaultRebootPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 20,
		Interval:    5 * time.Second,
		Backoff:     1.1,
	}
}

// InstallOptions 控制安装流程
type InstallOptions struct {
	CertPath     string // 证书路径,为空时取包旁的同名 .cer 文件
	DepsDir      string // 依赖目录,为空时取包旁的 Dependencies/x86
	Wait         bool   // 上传后阻塞轮询直到终态
	ShowProgress bool   // 上传时渲染进度条
	Policy       RetryPolicy
}

// Install 上传安装包并(可选)等待安装完成
// 任何本地文件错误都会在发起网络调用之前返回 InstallFail
func (c *Client) Install(ctx context.Context, appxPath string, opts InstallOptions) (InstallStatus, error) {
	files, err := collectInstallFiles(appxPath, opts.CertPath, opts.DepsDir)
	if err != nil {
		return InstallFail, err
	}

	body, contentType, err := buildMultipart(files)
	if err != nil {
		return InstallFail, err
	}

	var reader io.Reader = bytes.NewReader(body)
	if opts.ShowProgress {
		bar := progressbar.DefaultBytes(int64(len(body)), fmt.Sprintf("上传 %s", filepath.Base(appxPath)))
		reader = io.TeeReader(reader, bar)
	}

	path := "/api/app/packagemanager/package?package=" + url.QueryEscape(filepath.Base(appxPath))
	res, err := c.call(ctx, http.MethodPost, path, reader, contentType)
	if err != nil {
		return InstallFail, err
	}
	if !res.Success {
		return InstallFail, fmt.Errorf("%w: 上传安装包返回 HTTP %d: %s",
			ErrRequestFailed, res.StatusCode, string(res.Body))
	}

	if !opts.Wait {
		return Installing, nil
	}
	policy := opts.Policy
	if policy.MaxAttempts == 0 {
		policy = DefaultInstallPolicy()
	}
	return c.WaitForInstall(ctx, policy)
}

// InstallState 查询一次安装状态
// 第二个返回值是设备报告的失败原因,第三个返回值表示这次查询本身是否成功
func (c *Client) InstallState(ctx context.Context) (InstallStatus, string, bool) {
	res, err := c.call(ctx, http.MethodGet, "/api/app/packagemanager/state", nil, "")
	if err != nil || !res.Success {
		return Installing, "", false
	}
	status, reason := decodeInstallState(res.Body)
	return status, reason, true
}

// WaitForInstall 轮询安装状态直到终态或策略耗尽
func (c *Client) WaitForInstall(ctx context.Context, policy RetryPolicy) (InstallStatus, error) {
	interval := policy.Interval
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		status, reason, polled := c.InstallState(ctx)
		if !polled && !policy.TreatPollErrorAsPending {
			return InstallFail, fmt.Errorf("查询设备 %s 安装状态失败", DeviceKey(c.dev))
		}
		switch status {
		case InstallSuccess:
			return InstallSuccess, nil
		case InstallFail:
			return InstallFail, fmt.Errorf("设备 %s 安装失败: %s", DeviceKey(c.dev), reason)
		}

		select {
		case <-ctx.Done():
			return Installing, ctx.Err()
		case <-time.After(interval):
		}
		if policy.Backoff > 1 {
			interval = time.Duration(float64(interval) * policy.Backoff)
		}
	}
	return Installing, fmt.Errorf("等待设备 %s 安装完成超时 (%d 次轮询)", DeviceKey(c.dev), policy.MaxAttempts)
}

// decodeInstallState 解析状态端点的响应体
// 空响应体(204)或无法解码的内容都视为仍在安装
func decodeInstallState(body []byte) (InstallStatus, string) {
	if len(body) == 0 {
		return Installing, ""
	}
	var state installStateResponse
	if err := json.Unmarshal(body, &state); err != nil {
		utils.Logger.Debug("安装状态响应无法解码,视为安装中", "err", err)
		return Installing, ""
	}
	if state.Success == nil {
		return Installing, ""
	}
	if *state.Success {
		return InstallSuccess, ""
	}
	reason := state.Reason
	if state.CodeText != "" {
		reason = fmt.Sprintf("%s (%s)", reason, state.CodeText)
	}
	utils.Logger.Warn("设备报告安装失败", "reason", state.Reason, "code", state.Code, "codeText", state.CodeText)
	return InstallFail, reason
}

// collectInstallFiles 收集上传所需的全部文件:
// 安装包本体、同名 .cer 证书、以及包旁 Dependencies/x86 下的所有依赖
// 返回的列表顺序稳定,字段名即文件名
func collectInstallFiles(appxPath, certPath, depsDir string) ([]string, error) {
	if _, err := os.Stat(appxPath); err != nil {
		return nil, fmt.Errorf("安装包不可读: %w", err)
	}

	if certPath == "" {
		ext := filepath.Ext(appxPath)
		certPath = appxPath[:len(appxPath)-len(ext)] + ".cer"
	}
	if _, err := os.Stat(certPath); err != nil {
		return nil, fmt.Errorf("证书文件不可读: %w", err)
	}

	if depsDir == "" {
		depsDir = filepath.Join(filepath.Dir(appxPath), "Dependencies", "x86")
	}
	entries, err := os.ReadDir(depsDir)
	if err != nil {
		return nil, fmt.Errorf("依赖目录不可读: %w", err)
	}

	files := []string{appxPath, certPath}
	var deps []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		deps = append(deps, filepath.Join(depsDir, entry.Name()))
	}
	sort.Strings(deps)
	return append(files, deps...), nil
}

// buildMultipart 将所有文件完整读入内存,组装 multipart 表单
// 失败时不会发起任何网络调用
func buildMultipart(files []string) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("读取 %s 失败: %w", path, err)
		}
		name := filepath.Base(path)
		part, err := writer.CreateFormFile(name, name)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(data); err != nil {
			return nil, "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}
