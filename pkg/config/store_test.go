package config

import (
	"os"
	"path/filepath"
	"testing"

	"example.com/HoloTools/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	dir := t.TempDir()
	return NewDefaultStore(filepath.Join(dir, "config.yaml"), filepath.Join(dir, "config.key"))
}

func TestStoreLoadMissingFile(t *testing.T) {
	store := newTestStore(t)

	cfg, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Devices.Count())
}

func TestStoreRoundTripEncryptsPassword(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	store := NewDefaultStore(path, filepath.Join(dir, "config.key"))

	cfg := NewConfiguration()
	cfg.Devices.Set("lab1", models.Device{
		Address:  "192.168.1.10",
		Port:     443,
		UseTLS:   true,
		User:     "admin",
		Password: "hunter2",
		Tags:     []string{"lab"},
	})
	require.NoError(t, store.Save(cfg))

	// 落盘内容不包含明文密码
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hunter2")
	assert.Contains(t, string(data), "ENC:")

	// 内存中的配置不受序列化影响
	dev, ok := cfg.Devices.Get("lab1")
	require.True(t, ok)
	assert.Equal(t, "hunter2", dev.Password)

	loaded, err := store.Load()
	require.NoError(t, err)
	dev, ok = loaded.Devices.Get("lab1")
	require.True(t, ok)
	assert.Equal(t, "hunter2", dev.Password)
	assert.Equal(t, uint16(443), dev.Port)
	assert.True(t, dev.UseTLS)
	assert.Equal(t, []string{"lab"}, dev.Tags)
}

func TestStorePassphraseDerivedKey(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "config.key")
	store := NewDefaultStore(filepath.Join(dir, "config.yaml"), keyPath)
	t.Setenv(PassphraseEnv, "correct horse battery staple")

	cfg := NewConfiguration()
	cfg.Devices.Set("lab1", models.Device{Address: "10.0.0.1", User: "admin", Password: "hunter2"})
	require.NoError(t, store.Save(cfg))

	// 口令模式下不读写磁盘上的密钥文件
	_, err := os.Stat(keyPath)
	assert.True(t, os.IsNotExist(err))

	loaded, err := store.Load()
	require.NoError(t, err)
	dev, ok := loaded.Devices.Get("lab1")
	require.True(t, ok)
	assert.Equal(t, "hunter2", dev.Password)

	// 口令不对时配置无法解密
	t.Setenv(PassphraseEnv, "wrong passphrase")
	_, err = store.Load()
	assert.Error(t, err)
}

func TestStoreSaveReportsWriteFailure(t *testing.T) {
	dir := t.TempDir()
	// 用一个普通文件挡住配置目录,MkdirAll 必然失败
	blocker := filepath.Join(dir, "blocked")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	store := NewDefaultStore(filepath.Join(blocker, "config.yaml"), filepath.Join(dir, "config.key"))
	err := store.Save(NewConfiguration())
	assert.Error(t, err)
}

func TestProviderFindByAnyIdentifier(t *testing.T) {
	cfg := NewConfiguration()
	cfg.Devices.Set("lab1", models.Device{
		Alias:       []string{"front-desk"},
		Address:     "192.168.1.10",
		Port:        443,
		MachineName: "HOLOLENS-A1B2",
	})
	provider := NewProvider(cfg)

	for _, input := range []string{"lab1", "front-desk", "192.168.1.10", "192.168.1.10:443", "HOLOLENS-A1B2"} {
		assert.Equal(t, "lab1", provider.Find(input), "输入 %s 应解析到 lab1", input)
	}
	assert.Equal(t, "", provider.Find("unknown"))
}

func TestProviderAddDevicePurgesStaleIdentifiers(t *testing.T) {
	cfg := NewConfiguration()
	cfg.Devices.Set("lab1", models.Device{
		Address:     "192.168.1.10",
		Port:        443,
		MachineName: "HOLOLENS-OLD",
	})
	provider := NewProvider(cfg)

	dev, ok := provider.GetDevice("lab1")
	require.True(t, ok)
	dev.Address = "192.168.1.99"
	dev.MachineName = ""
	provider.AddDevice("lab1", dev)

	assert.Equal(t, "lab1", provider.Find("192.168.1.99"))
	// 旧地址和旧显示名不再解析到该设备
	assert.Equal(t, "", provider.Find("192.168.1.10"))
	assert.Equal(t, "", provider.Find("192.168.1.10:443"))
	assert.Equal(t, "", provider.Find("HOLOLENS-OLD"))
}

func TestProviderDeleteDeviceClearsIndex(t *testing.T) {
	cfg := NewConfiguration()
	cfg.Devices.Set("lab1", models.Device{Address: "192.168.1.10", Port: 443})
	provider := NewProvider(cfg)

	provider.DeleteDevice("lab1")
	assert.Equal(t, "", provider.Find("192.168.1.10"))
	_, ok := provider.GetDevice("lab1")
	assert.False(t, ok)
}

func TestProviderGetDevicesByTag(t *testing.T) {
	cfg := NewConfiguration()
	cfg.Devices.Set("lab1", models.Device{Address: "10.0.0.1", Tags: []string{"lab", "demo"}})
	cfg.Devices.Set("lab2", models.Device{Address: "10.0.0.2", Tags: []string{"lab"}})
	cfg.Devices.Set("office", models.Device{Address: "10.0.0.3", Tags: []string{"office"}})
	provider := NewProvider(cfg)

	devices := provider.GetDevicesByTag("lab")
	assert.Len(t, devices, 2)
	assert.Contains(t, devices, "lab1")
	assert.Contains(t, devices, "lab2")
}

func TestSortedNamesUsbFirst(t *testing.T) {
	devices := map[string]models.Device{
		"zeta":                 {},
		"alpha":                {},
		models.LocalDeviceName: {Address: "127.0.0.1", Port: 10080},
	}
	assert.Equal(t, []string{models.LocalDeviceName, "alpha", "zeta"}, SortedNames(devices))
}
