package config

import (
	"fmt"
	"os"
	"path/filepath"

	"example.com/HoloTools/pkg/crypto"
	"example.com/HoloTools/pkg/models"
	"gopkg.in/yaml.v3"
)

type Store interface {
	Load() (*Configuration, error)
	Save(cfg *Configuration) error
}

type defaultStore struct {
	Path    string
	KeyPath string // 用于加解密配置文件中的敏感字段
}

func NewDefaultStore(path, keyPath string) Store {
	return &defaultStore{
		Path:    path,
		KeyPath: keyPath,
	}
}

func (s *defaultStore) Load() (*Configuration, error) {
	// 1. 读取文件
	// 2. yaml.Unmarshal
	// 3. 遍历 Devices，解密 Password 字段
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			// 首次运行时配置文件尚不存在
			return NewConfiguration(), nil
		}
		return nil, err
	}

	cfg := NewConfiguration()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if cfg.Devices == nil {
		cfg.Devices = NewConfiguration().Devices
	}

	crypter, err := s.crypter()
	if err != nil {
		return nil, err
	}
	for _, name := range cfg.Devices.Keys() {
		dev, ok := cfg.Devices.Get(name)
		if !ok || !crypto.IsEncrypted(dev.Password) {
			continue
		}
		plain, err := crypter.Decrypt(dev.Password)
		if err != nil {
			return nil, fmt.Errorf("解密设备 %s 的密码失败: %w", name, err)
		}
		dev.Password = plain
		cfg.Devices.Set(name, dev)
	}
	return cfg, nil
}

func (s *defaultStore) Save(cfg *Configuration) error {
	// 1. 遍历 Devices，加密敏感字段
	// 2. yaml.Marshal
	// 3. 写入文件
	crypter, err := s.crypter()
	if err != nil {
		return err
	}

	// 内存中的明文密码不动，序列化时使用加密后的副本
	snapshot := NewConfiguration()
	var encErr error
	cfg.Devices.IterCb(func(name string, dev models.Device) bool {
		if dev.Password != "" && !crypto.IsEncrypted(dev.Password) {
			enc, err := crypter.Encrypt(dev.Password)
			if err != nil {
				encErr = fmt.Errorf("加密设备 %s 的密码失败: %w", name, err)
				return false
			}
			dev.Password = enc
		}
		snapshot.Devices.Set(name, dev)
		return true
	})
	if encErr != nil {
		return encErr
	}

	data, err := yaml.Marshal(snapshot)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0700); err != nil {
		return err
	}
	return os.WriteFile(s.Path, data, 0600)
}

// PassphraseEnv 指定配置加密口令的环境变量
// 设置后密钥由口令经 scrypt 派生,不再读写磁盘上的密钥文件 (适合CI等无状态环境)
const PassphraseEnv = "HTOOL_PASSPHRASE"

// 口令派生使用的固定盐值,更换会使已有配置无法解密
var passphraseSalt = []byte("htool.config.v1")

func (s *defaultStore) crypter() (*crypto.Crypter, error) {
	if pass := os.Getenv(PassphraseEnv); pass != "" {
		key, err := crypto.DeriveKey(pass, passphraseSalt)
		if err != nil {
			return nil, fmt.Errorf("从口令派生密钥失败: %w", err)
		}
		return crypto.NewCrypter(key)
	}
	key, err := crypto.LoadOrGenerateKey(s.KeyPath)
	if err != nil {
		return nil, err
	}
	return crypto.NewCrypter(key)
}
