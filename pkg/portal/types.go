package portal

// Device Portal 各端点的响应结构
// 字段名与设备返回的 JSON 保持一致(设备返回 PascalCase)

// OSInfo 对应 GET /api/os/info
type OSInfo struct {
	ComputerName string `json:"ComputerName"`
	Language     string `json:"Language"`
	OsEdition    string `json:"OsEdition"`
	OsEditionID  int    `json:"OsEditionId"`
	OsVersion    string `json:"OsVersion"`
	Platform     string `json:"Platform"`
}

// machineNameResponse 对应 GET /api/os/machinename
type machineNameResponse struct {
	ComputerName string `json:"ComputerName"`
}

// BatteryState 对应 GET /api/power/battery
// 设备用 0/1 表示布尔量
type BatteryState struct {
	AcOnline          int   `json:"AcOnline"`
	BatteryPresent    int   `json:"BatteryPresent"`
	Charging          int   `json:"Charging"`
	DefaultAlert1     int   `json:"DefaultAlert1"`
	DefaultAlert2     int   `json:"DefaultAlert2"`
	EstimatedTime     int64 `json:"EstimatedTime"`
	MaximumCapacity   int64 `json:"MaximumCapacity"`
	RemainingCapacity int64 `json:"RemainingCapacity"`
}

// ChargePercent 返回 0-100 的电量百分比,容量未知时返回 -1
func (b BatteryState) ChargePercent() int {
	if b.MaximumCapacity <= 0 {
		return -1
	}
	return int(b.RemainingCapacity * 100 / b.MaximumCapacity)
}

// PowerState 对应 GET /api/power/state
type PowerState struct {
	LowPowerState          bool `json:"LowPowerState"`
	LowPowerStateAvailable bool `json:"LowPowerStateAvailable"`
}

// Process 是进程列表中的一项
type Process struct {
	ImageName       string  `json:"ImageName"`
	PID             int     `json:"ProcessId"`
	UserName        string  `json:"UserName"`
	PackageFullName string  `json:"PackageFullName"`
	IsRunning       bool    `json:"IsRunning"`
	CPUUsage        float64 `json:"CPUUsage"`
}

// processListResponse 对应 GET /api/resourcemanager/processes
type processListResponse struct {
	Processes []Process `json:"Processes"`
}

// PackageVersion 是安装包版本号
type PackageVersion struct {
	Build    int `json:"Build"`
	Major    int `json:"Major"`
	Minor    int `json:"Minor"`
	Revision int `json:"Revision"`
}

// AppPackage 是已安装应用的描述
type AppPackage struct {
	Name              string         `json:"Name"`
	PackageFamilyName string         `json:"PackageFamilyName"`
	PackageFullName   string         `json:"PackageFullName"`
	PackageRelativeID string         `json:"PackageRelativeId"`
	Publisher         string         `json:"Publisher"`
	Version           PackageVersion `json:"Version"`
}

// packageListResponse 对应 GET /api/appx/packagemanager/packages
type packageListResponse struct {
	InstalledPackages []AppPackage `json:"InstalledPackages"`
}

// installStateResponse 对应 GET /api/app/packagemanager/state
// Success 为 null/缺失 表示安装仍在进行
type installStateResponse struct {
	Code     int    `json:"Code"`
	CodeText string `json:"CodeText"`
	Reason   string `json:"Reason"`
	Success  *bool  `json:"Success"`
}

// IPAddress 是适配器上的一个地址
type IPAddress struct {
	Address string `json:"IpAddress"`
	Mask    string `json:"Mask"`
}

// Adapter 是一块网络适配器
type Adapter struct {
	Name            string      `json:"Name"`
	Description     string      `json:"Description"`
	HardwareAddress string      `json:"HardwareAddress"`
	Type            string      `json:"Type"`
	IPAddresses     []IPAddress `json:"IpAddresses"`
	Gateways        []IPAddress `json:"Gateways"`
}

// IPConfig 对应 GET /api/networking/ipconfig
type IPConfig struct {
	Adapters []Adapter `json:"Adapters"`
}

// WifiInterface 是一块无线网卡
type WifiInterface struct {
	Description string `json:"Description"`
	GUID        string `json:"GUID"`
	Index       int    `json:"Index"`
}

// wifiInterfacesResponse 对应 GET /api/wifi/interfaces
type wifiInterfacesResponse struct {
	Interfaces []WifiInterface `json:"Interfaces"`
}

// WifiNetwork 是扫描到的一个无线网络
type WifiNetwork struct {
	SSID             string `json:"SSID"`
	SecurityEnabled  bool   `json:"SecurityEnabled"`
	SignalQuality    int    `json:"SignalQuality"`
	AlreadyConnected bool   `json:"AlreadyConnected"`
	ProfileAvailable bool   `json:"ProfileAvailable"`
}

// wifiNetworksResponse 对应 GET /api/wifi/networks
type wifiNetworksResponse struct {
	AvailableNetworks []WifiNetwork `json:"AvailableNetworks"`
}
