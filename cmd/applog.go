package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// applogCmd represents the applog command
var applogCmd = &cobra.Command{
	Use:   "applog [device] [package_family_name]",
	Short: "下载应用在设备上的 UnityPlayer.log",
	Long: `下载应用在设备上的 UnityPlayer.log。
文件保存到 --out 指定的目录(默认系统临时目录),
文件名带设备标识和时间戳,便于对比多台设备的日志。`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		outDir, _ := cmd.Flags().GetString("out")

		client, err := deviceClient(args[0])
		if err != nil {
			return err
		}
		ctx := context.Background()

		pkg, err := client.FindPackage(ctx, args[1])
		if err != nil {
			return err
		}
		path, err := client.DownloadLog(ctx, pkg.PackageFullName, outDir)
		if err != nil {
			return err
		}
		fmt.Printf("日志已保存到: %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(applogCmd)
	applogCmd.Flags().StringP("out", "o", "", "日志保存目录 (默认系统临时目录)")
}
