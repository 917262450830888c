package cmd

import (
	"context"
	"fmt"

	"example.com/HoloTools/global"
	"example.com/HoloTools/pkg/models"
	"example.com/HoloTools/pkg/portal"
	"example.com/HoloTools/pkg/runner"
	"example.com/HoloTools/utils"
	"github.com/spf13/cobra"
)

type InstallOptions struct {
	Tag       string
	CertPath  string
	DepsDir   string
	Wait      bool
	TaskCount int
	Replace   string
}

func NewCmdInstall() *cobra.Command {
	o := &InstallOptions{}
	cmd := &cobra.Command{
		Use:   "install [appx_path] [device...]",
		Short: "将APPX安装包部署到一台或多台设备",
		Long: `将APPX安装包部署到一台或多台设备。
会同时上传包旁的同名 .cer 证书和 Dependencies/x86 目录下的全部依赖。
本地文件缺失时立即失败,不会联网。
用法示例:
htool install build/MyApp.appx hololens-1 --wait
htool install build/MyApp.appx --tag lab --task 5
htool install build/MyApp.appx hololens-1 --replace Contoso.MyApp_1.0.0.0_x86__abcd1234`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appxPath := args[0]
			targets := args[1:]

			_, _, provider, err := loadProvider()
			if err != nil {
				return err
			}
			devices, err := resolveTargets(provider, models.DeviceFilter{Names: targets, Tags: []string{o.Tag}})
			if err != nil {
				return err
			}

			ctx := context.Background()
			transport := portal.NewTransport(nil)
			auth := portal.NewAuthenticator(transport)

			// 多设备并行时进度条会互相覆盖,只在单设备且交互式终端下渲染
			showProgress := len(devices) == 1 && global.IsTerminal

			results := runner.RunParallel(devices, uint(o.TaskCount), func(name string, dev models.Device) error {
				client := portal.NewClient(dev, portal.WithTransport(transport), portal.WithAuthenticator(auth))

				if o.Replace != "" {
					// 先卸载旧版本,设备上没有旧版本不算错误
					if pkg, err := client.FindPackage(ctx, o.Replace); err == nil {
						if err := client.Uninstall(ctx, pkg.PackageFullName); err != nil {
							utils.Logger.Warn("卸载旧版本失败,继续安装", "device", name, "err", err)
						}
					}
				}

				status, err := client.Install(ctx, appxPath, portal.InstallOptions{
					CertPath:     o.CertPath,
					DepsDir:      o.DepsDir,
					Wait:         o.Wait,
					ShowProgress: showProgress,
					Policy:       portal.DefaultInstallPolicy(),
				})
				if err != nil {
					return err
				}
				if o.Wait && status != portal.InstallSuccess {
					return fmt.Errorf("安装状态: %s", status)
				}
				return nil
			})

			failed := 0
			for r := range results {
				if r.Error != nil {
					failed++
					fmt.Printf("[ERROR] %s: %v\n", r.Name, r.Error)
				} else if o.Wait {
					fmt.Printf("[SUCCESS] %s 安装完成\n", r.Name)
				} else {
					fmt.Printf("[SUCCESS] %s 上传完成,安装在后台继续\n", r.Name)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d 台设备安装失败", failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&o.Tag, "tag", "t", "", "按标签分组部署")
	cmd.Flags().StringVar(&o.CertPath, "cert", "", "证书路径 (默认为包旁的同名 .cer)")
	cmd.Flags().StringVar(&o.DepsDir, "deps", "", "依赖目录 (默认为包旁的 Dependencies/x86)")
	cmd.Flags().BoolVarP(&o.Wait, "wait", "w", false, "阻塞等待安装完成")
	cmd.Flags().IntVar(&o.TaskCount, "task", 3, "并行部署的设备数")
	cmd.Flags().StringVar(&o.Replace, "replace", "", "安装前先按包族名卸载旧版本")

	return cmd
}

func NewCmdUninstall() *cobra.Command {
	var tag string
	var taskCount int
	cmd := &cobra.Command{
		Use:   "uninstall [package_family_name] [device...]",
		Short: "从一台或多台设备卸载应用",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			familyName := args[0]
			targets := args[1:]

			_, _, provider, err := loadProvider()
			if err != nil {
				return err
			}
			devices, err := resolveTargets(provider, models.DeviceFilter{Names: targets, Tags: []string{tag}})
			if err != nil {
				return err
			}

			ctx := context.Background()
			transport := portal.NewTransport(nil)
			auth := portal.NewAuthenticator(transport)

			results := runner.RunParallel(devices, uint(taskCount), func(name string, dev models.Device) error {
				client := portal.NewClient(dev, portal.WithTransport(transport), portal.WithAuthenticator(auth))
				pkg, err := client.FindPackage(ctx, familyName)
				if err != nil {
					return err
				}
				return client.Uninstall(ctx, pkg.PackageFullName)
			})

			if failed := runner.Collect(results); len(failed) > 0 {
				for _, r := range failed {
					fmt.Printf("[ERROR] %s: %v\n", r.Name, r.Error)
				}
				return fmt.Errorf("%d 台设备卸载失败", len(failed))
			}
			fmt.Println("卸载完成")
			return nil
		},
	}
	cmd.Flags().StringVarP(&tag, "tag", "t", "", "按标签分组执行")
	cmd.Flags().IntVar(&taskCount, "task", 3, "并行执行的设备数")
	return cmd
}

func init() {
	rootCmd.AddCommand(NewCmdInstall())
	rootCmd.AddCommand(NewCmdUninstall())
}
