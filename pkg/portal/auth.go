package portal

import (
	"context"
	"encoding/base64"
	"maps"
	"net/http"
	"strings"
	"sync"

	"example.com/HoloTools/pkg/models"
	"example.com/HoloTools/pkg/utils/concurrent"
	"example.com/HoloTools/utils"
	"golang.org/x/sync/singleflight"
)

// csrfCookiePrefix 是 Device Portal 在 Set-Cookie 中下发的令牌前缀
// 捕获时剥离该前缀,回发时原样拼回
const csrfCookiePrefix = "CSRF-Token="

// session 缓存单台设备的认证请求头
// 会话在进程生命周期内视为有效,过期只能由后续调用的失败暴露
type session struct {
	mu      sync.Mutex
	headers map[string]string
}

func (s *session) set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.headers[key] = value
}

func (s *session) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.headers[key]
	return ok
}

// snapshot 返回请求头的副本,避免调用方和认证握手并发读写同一个 map
func (s *session) snapshot() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.headers))
	maps.Copy(out, s.headers)
	return out
}

// Authenticator 负责建立并缓存每台设备的 CSRF 会话
type Authenticator struct {
	transport *Transport
	sessions  *concurrent.Map[string, *session]
	// 合并针对同一台未认证设备的并发握手,避免重复认证互相覆盖
	sf singleflight.Group
}

func NewAuthenticator(t *Transport) *Authenticator {
	return &Authenticator{
		transport: t,
		sessions:  concurrent.NewMap[string, *session](concurrent.HashString),
	}
}

// EnsureAuthenticated 保证设备已建立认证会话
// 返回 false 表示本次无法继续访问该设备(凭据错误或设备不可达)
func (a *Authenticator) EnsureAuthenticated(ctx context.Context, dev models.Device) bool {
	if dev.Address == "" || dev.User == "" {
		utils.Logger.Warn("设备缺少地址或用户名,无法认证", "device", DeviceKey(dev))
		return false
	}

	sess := a.sessionFor(dev)
	// 凭据可能已被用户修改,每次都重新计算 Basic Auth
	sess.set("Authorization", basicAuth(dev.User, dev.Password))

	// 已有 cookie 时直接视为已认证,不发起网络调用
	if sess.has("cookie") {
		return true
	}

	v, _, _ := a.sf.Do(DeviceKey(dev), func() (interface{}, error) {
		// 双重检查: 并发调用可能已经完成了握手
		if sess.has("cookie") {
			return true, nil
		}

		res := a.transport.Get(ctx, BaseURL(dev)+"/", sess.snapshot())
		if res.StatusCode == http.StatusUnauthorized {
			utils.Logger.Warn("认证失败: 用户名或密码错误", "device", DeviceKey(dev))
			return false, nil
		}
		if !res.Success {
			utils.Logger.Debug("认证请求未成功", "device", DeviceKey(dev), "status", res.StatusCode)
			return false, nil
		}

		token := ExtractCSRFToken(res.Header.Get("Set-Cookie"))
		if token != "" {
			sess.set("cookie", csrfCookiePrefix+token)
			sess.set("x-csrf-token", token)
		}
		// 令牌为空时不写入 cookie/csrf 头,本次调用本身是成功的
		return true, nil
	})
	return v.(bool)
}

// Headers 返回设备当前会话的请求头副本
func (a *Authenticator) Headers(dev models.Device) map[string]string {
	return a.sessionFor(dev).snapshot()
}

// Reset 丢弃设备的缓存会话,下次调用会重新握手
func (a *Authenticator) Reset(dev models.Device) {
	a.sessions.Remove(DeviceKey(dev))
}

func (a *Authenticator) sessionFor(dev models.Device) *session {
	key := DeviceKey(dev)
	if s, ok := a.sessions.Get(key); ok {
		return s
	}
	// 并发创建时所有调用方共享同一个会话对象
	return a.sessions.SetIfAbsent(key, &session{headers: make(map[string]string)})
}

// ExtractCSRFToken 从 Set-Cookie 值中提取 CSRF 令牌
// 只做字面前缀匹配,分号后的 cookie 属性全部忽略
func ExtractCSRFToken(setCookie string) string {
	idx := strings.Index(setCookie, csrfCookiePrefix)
	if idx == -1 {
		return ""
	}
	token := setCookie[idx+len(csrfCookiePrefix):]
	if semi := strings.Index(token, ";"); semi != -1 {
		token = token[:semi]
	}
	return strings.TrimSpace(token)
}

func basicAuth(user, password string) string {
	cred := base64.StdEncoding.EncodeToString([]byte(user + ":" + password))
	return "Basic " + cred
}
