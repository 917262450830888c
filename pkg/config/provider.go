package config

import (
	"fmt"
	"slices"

	"example.com/HoloTools/pkg/models"
	"example.com/HoloTools/pkg/utils/concurrent"
)

type Provider struct {
	cfg         *Configuration
	lookupIndex *concurrent.Map[string, string]
}

func NewProvider(cfg *Configuration) ConfigProvider {
	provider := Provider{
		cfg:         cfg,
		lookupIndex: concurrent.NewMap[string, string](concurrent.HashString),
	}
	provider.init()
	return provider
}

// add 将设备及其所有标识符加入索引
func (cp Provider) add(name string) {
	dev, ok := cp.GetDevice(name)
	if !ok {
		return
	}
	cp.lookupIndex.Set(name, name)
	cp.lookupIndex.Set(dev.Address, name)
	cp.lookupIndex.Set(fmt.Sprintf("%s:%d", dev.Address, dev.Port), name)
	if dev.MachineName != "" {
		cp.lookupIndex.Set(dev.MachineName, name)
	}
	for _, alias := range dev.Alias {
		if alias == "" {
			continue
		}
		cp.lookupIndex.Set(alias, name)
	}
}

// Find 匹配用户输入(名称 / 别名 / 地址 / 设备显示名)
func (cp Provider) Find(input string) string {
	if name, ok := cp.lookupIndex.Get(input); ok {
		return name
	}
	return ""
}

func (cp Provider) GetDevice(name string) (models.Device, bool) {
	return cp.cfg.Devices.Get(name)
}

func (cp Provider) AddDevice(name string, dev models.Device) {
	// 更新设备时先清掉旧标识,避免改过的地址或显示名仍能解析到该设备
	cp.purge(name)
	cp.cfg.Devices.Set(name, dev)
	cp.add(name)
}

func (cp Provider) DeleteDevice(name string) {
	if _, ok := cp.cfg.Devices.Get(name); !ok {
		return
	}
	cp.cfg.Devices.Remove(name)
	cp.purge(name)
}

// purge 从索引中删除指向该设备的所有标识
func (cp Provider) purge(name string) {
	for _, key := range cp.lookupIndex.Keys() {
		if val, ok := cp.lookupIndex.Get(key); ok && val == name {
			cp.lookupIndex.Remove(key)
		}
	}
}

func (cp Provider) ListDevices() map[string]models.Device {
	devices := make(map[string]models.Device)
	for _, k := range cp.cfg.Devices.Keys() {
		if v, ok := cp.cfg.Devices.Get(k); ok {
			devices[k] = v
		}
	}
	return devices
}

func (cp Provider) GetDevicesByTag(tag string) map[string]models.Device {
	devices := make(map[string]models.Device)
	for _, k := range cp.cfg.Devices.Keys() {
		if v, ok := cp.cfg.Devices.Get(k); ok && slices.Contains(v.Tags, tag) {
			devices[k] = v
		}
	}
	return devices
}

func (cp Provider) init() {
	for _, name := range cp.cfg.Devices.Keys() {
		cp.add(name)
	}
}

// SortedNames 返回稳定排序的设备名称列表
// USB 回环设备固定排在首位
func SortedNames(devices map[string]models.Device) []string {
	names := make([]string, 0, len(devices))
	for k := range devices {
		if k == models.LocalDeviceName {
			continue
		}
		names = append(names, k)
	}
	slices.Sort(names)
	if _, ok := devices[models.LocalDeviceName]; ok {
		names = append([]string{models.LocalDeviceName}, names...)
	}
	return names
}
