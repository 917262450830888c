package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	cmdutils "example.com/HoloTools/cmd/utils"
	"example.com/HoloTools/pkg/portal"
	"github.com/spf13/cobra"
)

func NewCmdWifi() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wifi",
		Short: "管理设备的无线网络",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	cmd.AddCommand(NewCmdWifiInterfaces())
	cmd.AddCommand(NewCmdWifiScan())
	cmd.AddCommand(NewCmdWifiConnect())

	return cmd
}

func NewCmdWifiInterfaces() *cobra.Command {
	return &cobra.Command{
		Use:   "interfaces [device]",
		Short: "列出设备的无线网卡",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := deviceClient(args[0])
			if err != nil {
				return err
			}

			interfaces, err := client.WifiInterfaces(context.Background())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "GUID\t描述")
			for _, iface := range interfaces {
				fmt.Fprintf(w, "%s\t%s\n", iface.GUID, iface.Description)
			}
			w.Flush()
			return nil
		},
	}
}

func NewCmdWifiScan() *cobra.Command {
	var ifaceGUID string
	cmd := &cobra.Command{
		Use:   "scan [device]",
		Short: "扫描设备可见的无线网络",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := deviceClient(args[0])
			if err != nil {
				return err
			}
			ctx := context.Background()

			guid, err := pickInterface(ctx, client, ifaceGUID)
			if err != nil {
				return err
			}
			networks, err := client.WifiNetworks(ctx, guid)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "SSID\t信号\t加密\t已连接")
			for _, n := range networks {
				fmt.Fprintf(w, "%s\t%d%%\t%v\t%v\n", n.SSID, n.SignalQuality, n.SecurityEnabled, n.AlreadyConnected)
			}
			w.Flush()
			return nil
		},
	}
	cmd.Flags().StringVarP(&ifaceGUID, "interface", "i", "", "无线网卡 GUID (默认取第一块)")
	return cmd
}

func NewCmdWifiConnect() *cobra.Command {
	var (
		ifaceGUID string
		ssid      string
		key       string
	)
	cmd := &cobra.Command{
		Use:   "connect [device]",
		Short: "让设备连接指定无线网络",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if ssid == "" {
				return fmt.Errorf("必须指定网络名称 (--ssid)")
			}

			client, err := deviceClient(args[0])
			if err != nil {
				return err
			}
			ctx := context.Background()

			guid, err := pickInterface(ctx, client, ifaceGUID)
			if err != nil {
				return err
			}
			if key == "" {
				pass, err := cmdutils.ReadPasswordFromTerminal(fmt.Sprintf("请输入网络 %s 的密码(直接回车使用已保存的配置): ", ssid))
				if err != nil {
					return err
				}
				key = pass
			}
			if err := client.WifiConnect(ctx, guid, ssid, key); err != nil {
				return err
			}
			fmt.Printf("设备已请求连接网络 %s\n", ssid)
			return nil
		},
	}
	cmd.Flags().StringVarP(&ifaceGUID, "interface", "i", "", "无线网卡 GUID (默认取第一块)")
	cmd.Flags().StringVarP(&ssid, "ssid", "s", "", "网络名称")
	cmd.Flags().StringVarP(&key, "key", "k", "", "网络密码")
	return cmd
}

// pickInterface 在用户未指定网卡时取设备的第一块无线网卡
func pickInterface(ctx context.Context, client *portal.Client, guid string) (string, error) {
	if guid != "" {
		return guid, nil
	}
	interfaces, err := client.WifiInterfaces(ctx)
	if err != nil {
		return "", err
	}
	if len(interfaces) == 0 {
		return "", fmt.Errorf("设备上没有无线网卡")
	}
	return interfaces[0].GUID, nil
}

func init() {
	rootCmd.AddCommand(NewCmdWifi())
}
