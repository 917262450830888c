package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"example.com/HoloTools/pkg/config"
	"example.com/HoloTools/pkg/models"
	"example.com/HoloTools/pkg/portal"
	"github.com/spf13/cobra"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info [device...]",
	Short: "查询设备的系统信息、电量和网络配置",
	Long: `查询设备的系统信息、电量和网络配置。
用法示例:
htool info hololens-1
htool info 192.168.1.20 192.168.1.21
htool info --tag lab`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tag, _ := cmd.Flags().GetString("tag")
		showIP, _ := cmd.Flags().GetBool("ip")

		store, cfg, provider, err := loadProvider()
		if err != nil {
			return err
		}
		devices, err := resolveTargets(provider, models.DeviceFilter{Names: args, Tags: []string{tag}})
		if err != nil {
			return err
		}

		ctx := context.Background()
		transport := portal.NewTransport(nil)
		auth := portal.NewAuthenticator(transport)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "名称\t设备名\t系统版本\t电量\t低功耗")

		configUpdated := false
		for _, name := range config.SortedNames(devices) {
			dev := devices[name]
			client := portal.NewClient(dev, portal.WithTransport(transport), portal.WithAuthenticator(auth))

			info, err := client.OSInfo(ctx)
			if err != nil {
				fmt.Fprintf(w, "%s\t连接失败: %v\t\t\t\n", name, err)
				continue
			}

			// 缓存设备显示名,供后续按名称查找
			if dev.MachineName != info.ComputerName {
				dev.MachineName = info.ComputerName
				provider.AddDevice(name, dev)
				configUpdated = true
			}

			charge := "-"
			if battery, err := client.Battery(ctx); err == nil {
				if pct := battery.ChargePercent(); pct >= 0 {
					charge = fmt.Sprintf("%d%%", pct)
				}
			}
			lowPower := "-"
			if state, err := client.PowerState(ctx); err == nil {
				lowPower = fmt.Sprintf("%v", state.LowPowerState)
			}

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", name, info.ComputerName, info.OsVersion, charge, lowPower)

			if showIP {
				if ipcfg, err := client.IPConfig(ctx); err == nil {
					for _, adapter := range ipcfg.Adapters {
						var addrs []string
						for _, ip := range adapter.IPAddresses {
							addrs = append(addrs, ip.Address)
						}
						fmt.Fprintf(w, "  ↳ %s\t%s\t\t\t\n", adapter.Description, strings.Join(addrs, ", "))
					}
				}
			}
		}
		w.Flush()

		if configUpdated {
			if err := store.Save(cfg); err != nil {
				return fmt.Errorf("缓存设备显示名失败: %w", err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
	infoCmd.Flags().StringP("tag", "t", "", "按标签分组查询")
	infoCmd.Flags().Bool("ip", false, "同时显示网络适配器地址")
}
