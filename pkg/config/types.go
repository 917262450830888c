package config

import (
	"example.com/HoloTools/pkg/models"
	"example.com/HoloTools/pkg/utils/concurrent"
)

// Configuration 对应 yaml 文件的顶层结构
type Configuration struct {
	Devices *concurrent.Map[string, models.Device] `yaml:"devices"`
}

// NewConfiguration 创建一个空的配置
func NewConfiguration() *Configuration {
	return &Configuration{
		Devices: concurrent.NewMap[string, models.Device](concurrent.HashString),
	}
}

// ConfigProvider 定义命令层获取设备数据的接口
type ConfigProvider interface {
	GetDevice(name string) (models.Device, bool)
	AddDevice(name string, d models.Device)
	DeleteDevice(name string)
	ListDevices() map[string]models.Device
	GetDevicesByTag(tag string) map[string]models.Device
	Find(input string) string
}
