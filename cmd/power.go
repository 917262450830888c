package cmd

import (
	"context"
	"fmt"

	"example.com/HoloTools/pkg/models"
	"example.com/HoloTools/pkg/portal"
	"example.com/HoloTools/pkg/runner"
	"github.com/spf13/cobra"
)

type PowerOptions struct {
	Tag       string
	Wait      bool
	TaskCount int
}

func NewCmdRestart() *cobra.Command {
	o := &PowerOptions{}
	cmd := &cobra.Command{
		Use:   "restart [device...]",
		Short: "重启一台或多台设备",
		Long: `重启一台或多台设备。
使用 --wait 时会轮询电源状态端点,直到设备重新响应或超出轮询上限。
用法示例:
htool restart hololens-1 --wait
htool restart --tag lab`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, args, func(ctx context.Context, client *portal.Client) error {
				if err := client.Restart(ctx); err != nil {
					return err
				}
				if o.Wait {
					return client.WaitForReboot(ctx, portal.DefaultRebootPolicy())
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&o.Tag, "tag", "t", "", "按标签分组执行")
	cmd.Flags().BoolVarP(&o.Wait, "wait", "w", false, "等待设备重启完成")
	cmd.Flags().IntVar(&o.TaskCount, "task", 3, "并行执行的设备数")
	return cmd
}

func NewCmdShutdown() *cobra.Command {
	o := &PowerOptions{}
	cmd := &cobra.Command{
		Use:   "shutdown [device...]",
		Short: "关闭一台或多台设备",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, args, func(ctx context.Context, client *portal.Client) error {
				return client.Shutdown(ctx)
			})
		},
	}
	cmd.Flags().StringVarP(&o.Tag, "tag", "t", "", "按标签分组执行")
	cmd.Flags().IntVar(&o.TaskCount, "task", 3, "并行执行的设备数")
	return cmd
}

// run 对解析出的设备集合并发执行操作,汇总每台设备的结果
func (o *PowerOptions) run(cmd *cobra.Command, args []string, op func(context.Context, *portal.Client) error) error {
	_, _, provider, err := loadProvider()
	if err != nil {
		return err
	}
	devices, err := resolveTargets(provider, models.DeviceFilter{Names: args, Tags: []string{o.Tag}})
	if err != nil {
		return err
	}

	ctx := context.Background()
	transport := portal.NewTransport(nil)
	auth := portal.NewAuthenticator(transport)

	results := runner.RunParallel(devices, uint(o.TaskCount), func(name string, dev models.Device) error {
		client := portal.NewClient(dev, portal.WithTransport(transport), portal.WithAuthenticator(auth))
		return op(ctx, client)
	})

	failed := 0
	for r := range results {
		if r.Error != nil {
			failed++
			fmt.Printf("[ERROR] %s: %v\n", r.Name, r.Error)
		} else {
			fmt.Printf("[SUCCESS] %s\n", r.Name)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d 台设备操作失败", failed)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(NewCmdRestart())
	rootCmd.AddCommand(NewCmdShutdown())
}
