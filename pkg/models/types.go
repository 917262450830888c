package models

// LocalDeviceName 是通过USB配对的本机回环设备的固定名称
// 该设备始终排在设备列表首位,且凭据只会发往回环地址
const LocalDeviceName = "usb"

// Device 定义一台通过 Windows Device Portal 管理的设备
type Device struct {
	Alias []string `yaml:"alias,omitempty"`
	Tags  []string `yaml:"tags,omitempty"` // 用于分组批量操作

	Address string `yaml:"address"` // IP 或 域名
	Port    uint16 `yaml:"port"`
	UseTLS  bool   `yaml:"use_tls"` // Device Portal 通常使用自签名 HTTPS

	User     string `yaml:"user"`
	Password string `yaml:"password,omitempty"` // 落盘前由 Store 加密

	// 首次认证成功后缓存的设备显示名称
	MachineName string `yaml:"machine_name,omitempty"`
}

// IsLocal 判断是否是USB回环设备
func (d Device) IsLocal() bool {
	return d.Address == "127.0.0.1" || d.Address == "localhost"
}

// DeviceFilter 用于批量操作时筛选设备
type DeviceFilter struct {
	Names []string // 精确匹配名称
	Tags  []string // 包含任意 Tag 即匹配
}
