/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	cmdutils "example.com/HoloTools/cmd/utils"
	"example.com/HoloTools/cmd/version"
	"example.com/HoloTools/pkg/config"
	"example.com/HoloTools/pkg/models"
	"example.com/HoloTools/utils"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "htool [command] [flags]",
	Short: "htool(Holo Tools)是一个命令行工具,用于HoloLens设备的部署和日常管理",
	Long: `htool(Holo Tools)是一个命令行工具,
通过 Windows Device Portal 的 REST API 管理 HoloLens / Windows Mixed Reality 设备。
支持查询设备信息、安装/卸载/启动应用、下载应用日志、电源控制和网络配置,
并可按标签分组对多台设备批量执行操作。`,
	Run: func(cmd *cobra.Command, args []string) {
		versionFlag, _ := cmd.Flags().GetBool("version")
		if versionFlag {
			version.PrintFullVersion()
			os.Exit(0)
		}
		cmd.Help() // 显示帮助信息
		os.Exit(0)
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		debugFlag, _ := cmd.Flags().GetBool("debug")
		if debugFlag {
			// 开启调试模式
			utils.Logger.SetLogLevel("debug")
			println("调试模式已开启")
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "显示版本信息")
	rootCmd.PersistentFlags().Bool("debug", false, "开启调试模式")
}

// loadProvider 加载配置文件并构建 Provider
func loadProvider() (config.Store, *config.Configuration, config.ConfigProvider, error) {
	configPath, keyPath := cmdutils.GetConfigFilePath()
	store := config.NewDefaultStore(configPath, keyPath)
	cfg, err := store.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("加载配置文件失败: %v", err)
	}
	return store, cfg, config.NewProvider(cfg), nil
}

// resolveTargets 将筛选条件(设备名列表和标签)解析为设备集合,两者取并集
func resolveTargets(provider config.ConfigProvider, filter models.DeviceFilter) (map[string]models.Device, error) {
	devices := make(map[string]models.Device)
	for _, tag := range filter.Tags {
		if tag == "" {
			continue
		}
		matched := provider.GetDevicesByTag(tag)
		if len(matched) == 0 {
			return nil, fmt.Errorf("标签组 %s 为空或不存在", tag)
		}
		for name, dev := range matched {
			devices[name] = dev
		}
	}

	for _, input := range filter.Names {
		name := provider.Find(input)
		if name == "" {
			return nil, fmt.Errorf("设备 %s 不存在,请先使用 htool device add 添加", input)
		}
		dev, _ := provider.GetDevice(name)
		devices[name] = dev
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("必须指定目标设备或标签组")
	}
	return devices, nil
}

// resolveOne 解析单台设备
func resolveOne(provider config.ConfigProvider, input string) (string, models.Device, error) {
	name := provider.Find(input)
	if name == "" {
		return "", models.Device{}, fmt.Errorf("设备 %s 不存在,请先使用 htool device add 添加", input)
	}
	dev, _ := provider.GetDevice(name)
	return name, dev, nil
}
