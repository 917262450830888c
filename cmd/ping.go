/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"net"
	"time"

	ping "github.com/prometheus-community/pro-bing"
	"github.com/spf13/cobra"
)

// pingCmd represents the ping command
var pingCmd = &cobra.Command{
	Use:   "ping <device|ip> [port]",
	Short: "通过ICMP Ping设备或检查Device Portal端口是否开放",
	Long: `该命令有两种工作模式:
1. ICMP Ping (1个参数):
   当只提供一个设备名或IP时,发送ICMP请求测试网络连通性,
   适合在批量部署前先确认设备在线。
   示例: htool ping hololens-1

2. TCP端口检查 (2个参数):
   当提供设备名/IP和端口号时,尝试建立TCP连接判断端口是否开放。
   不带端口参数但目标是已存储的设备时,默认检查其Device Portal端口。
   示例: htool ping hololens-1 443`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := args[0]
		var port string

		// 已存储的设备按名称解析,并默认检查其 Device Portal 端口
		if _, _, provider, err := loadProvider(); err == nil {
			if name := provider.Find(target); name != "" {
				dev, _ := provider.GetDevice(name)
				target = dev.Address
				if len(args) == 1 {
					port = fmt.Sprintf("%d", dev.Port)
				}
			}
		}
		if len(args) == 2 {
			port = args[1]
		}

		// 情况2: 有端口,进行TCP端口检查
		if port != "" {
			address := net.JoinHostPort(target, port)
			fmt.Printf("正在测试到 %s 的TCP连接...\n", address)

			conn, err := net.DialTimeout("tcp", address, 5*time.Second)
			if err != nil {
				fmt.Printf("设备 %s 的端口 %s 已关闭或被过滤: %v\n", target, port, err)
				return nil // 命令本身执行成功，所以不返回错误
			}
			conn.Close()
			fmt.Printf("设备 %s 的端口 %s 是开放的!\n", target, port)
			return nil
		}

		// 情况1: 只提供了目标,进行ICMP ping
		fmt.Printf("正在通过ICMP Ping %s...\n", target)
		pinger, err := ping.NewPinger(target)
		if err != nil {
			return fmt.Errorf("创建pinger失败: %w", err)
		}

		// 注意: 在 Linux/macOS 上，执行ICMP raw socket需要root权限。
		pinger.SetPrivileged(true)
		pinger.Count = 4
		pinger.Interval = time.Second
		pinger.Timeout = 4 * time.Second

		pinger.OnFinish = func(stats *ping.Statistics) {
			fmt.Printf("\n--- %s 的 ping 统计信息 ---\n", stats.Addr)
			fmt.Printf("%d 个包已发送, %d 个包已接收, %v%% 包丢失\n",
				stats.PacketsSent, stats.PacketsRecv, stats.PacketLoss)
			fmt.Printf("往返行程 最小/平均/最大/标准差 = %v/%v/%v/%v\n",
				stats.MinRtt, stats.AvgRtt, stats.MaxRtt, stats.StdDevRtt)
		}

		return pinger.Run() // 此处会阻塞直到ping结束
	},
}

func init() {
	rootCmd.AddCommand(pingCmd)
}
