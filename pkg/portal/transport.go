package portal

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"

	"example.com/HoloTools/pkg/models"
	"example.com/HoloTools/utils"
)

// Result 是一次 Device Portal 请求的统一结果
// HTTP层面的失败(4xx/5xx/网络错误)不会作为 error 抛出,
// 而是以 Success=false 体现,响应体保留用于诊断
type Result struct {
	Success    bool
	StatusCode int // 网络失败时为 0
	Body       []byte
	Header     http.Header
}

// Transport 负责与 Device Portal 的底层 HTTP 通信
type Transport struct {
	httpClient *http.Client
}

// TransportConfig 传输层配置
type TransportConfig struct {
	Timeout       time.Duration
	TLSSkipVerify bool // Device Portal 使用自签名证书,默认跳过校验
}

// NewTransport 创建传输层实例,config 为 nil 时使用默认配置
func NewTransport(config *TransportConfig) *Transport {
	if config == nil {
		config = &TransportConfig{
			Timeout:       30 * time.Second,
			TLSSkipVerify: true,
		}
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: config.TLSSkipVerify,
		},
	}

	return &Transport{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
	}
}

// Do 发起一次请求,body 可以为 nil
// contentType 非空时设置 Content-Type 请求头
func (t *Transport) Do(ctx context.Context, method, rawURL string, headers map[string]string, body io.Reader, contentType string) Result {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		utils.Logger.Debug("构造请求失败", "url", rawURL, "err", err)
		return Result{}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		utils.Logger.Debug("请求失败", "method", method, "url", rawURL, "err", err)
		return Result{}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		utils.Logger.Debug("读取响应失败", "url", rawURL, "err", err)
		return Result{StatusCode: resp.StatusCode, Header: resp.Header}
	}

	return Result{
		Success:    resp.StatusCode >= 200 && resp.StatusCode < 300,
		StatusCode: resp.StatusCode,
		Body:       data,
		Header:     resp.Header,
	}
}

// Get 发起 GET 请求
func (t *Transport) Get(ctx context.Context, rawURL string, headers map[string]string) Result {
	return t.Do(ctx, http.MethodGet, rawURL, headers, nil, "")
}

// Post 发起 POST 请求
func (t *Transport) Post(ctx context.Context, rawURL string, headers map[string]string, body io.Reader, contentType string) Result {
	return t.Do(ctx, http.MethodPost, rawURL, headers, body, contentType)
}

// Delete 发起 DELETE 请求
func (t *Transport) Delete(ctx context.Context, rawURL string, headers map[string]string) Result {
	return t.Do(ctx, http.MethodDelete, rawURL, headers, nil, "")
}

// BaseURL 根据设备配置拼接基础 URL
func BaseURL(dev models.Device) string {
	scheme := "http"
	if dev.UseTLS {
		scheme = "https"
	}
	if dev.Port == 0 {
		return fmt.Sprintf("%s://%s", scheme, dev.Address)
	}
	return fmt.Sprintf("%s://%s:%d", scheme, dev.Address, dev.Port)
}

// DeviceKey 生成设备的会话缓存键
func DeviceKey(dev models.Device) string {
	return fmt.Sprintf("%s:%d", dev.Address, dev.Port)
}
