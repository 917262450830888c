package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"example.com/HoloTools/pkg/portal"
	"github.com/spf13/cobra"
)

func NewCmdApp() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "app",
		Short: "管理设备上的应用",
		Long:  `管理设备上已安装的应用。支持列出、启动、终止和运行状态查询。`,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	cmd.AddCommand(NewCmdAppList())
	cmd.AddCommand(NewCmdAppLaunch())
	cmd.AddCommand(NewCmdAppKill())
	cmd.AddCommand(NewCmdAppRunning())

	return cmd
}

func NewCmdAppList() *cobra.Command {
	return &cobra.Command{
		Use:   "list [device]",
		Short: "列出设备上已安装的应用",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := deviceClient(args[0])
			if err != nil {
				return err
			}

			packages, err := client.InstalledPackages(context.Background())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "应用\t包族名\t版本\t发布者")
			for _, pkg := range packages {
				fmt.Fprintf(w, "%s\t%s\t%d.%d.%d.%d\t%s\n",
					pkg.Name, pkg.PackageFamilyName,
					pkg.Version.Major, pkg.Version.Minor, pkg.Version.Build, pkg.Version.Revision,
					pkg.Publisher)
			}
			w.Flush()
			return nil
		},
	}
}

func NewCmdAppLaunch() *cobra.Command {
	return &cobra.Command{
		Use:   "launch [device] [package_family_name]",
		Short: "启动设备上的应用",
		Long: `按包族名启动设备上的应用(忽略大小写)。
启动请求发出后会确认进程确实在运行。`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := deviceClient(args[0])
			if err != nil {
				return err
			}
			ctx := context.Background()

			pkg, err := client.FindPackage(ctx, args[1])
			if err != nil {
				return err
			}
			running, err := client.Launch(ctx, pkg)
			if err != nil {
				return err
			}
			if !running {
				return fmt.Errorf("应用 %s 启动请求已接受,但进程未在运行", pkg.Name)
			}
			fmt.Printf("应用 %s 已启动\n", pkg.Name)
			return nil
		},
	}
}

func NewCmdAppKill() *cobra.Command {
	return &cobra.Command{
		Use:   "kill [device] [package_family_name]",
		Short: "终止设备上的应用",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := deviceClient(args[0])
			if err != nil {
				return err
			}
			ctx := context.Background()

			pkg, err := client.FindPackage(ctx, args[1])
			if err != nil {
				return err
			}
			if err := client.Kill(ctx, pkg); err != nil {
				return err
			}
			fmt.Printf("应用 %s 已终止\n", pkg.Name)
			return nil
		},
	}
}

func NewCmdAppRunning() *cobra.Command {
	return &cobra.Command{
		Use:   "running [device] [image_name]",
		Short: "按进程镜像名查询应用是否在运行",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := deviceClient(args[0])
			if err != nil {
				return err
			}

			running, err := client.IsRunning(context.Background(), args[1])
			if err != nil {
				return err
			}
			if running {
				fmt.Printf("%s 正在运行\n", args[1])
			} else {
				fmt.Printf("%s 未在运行\n", args[1])
			}
			return nil
		},
	}
}

// deviceClient 解析单台设备并创建 Portal 客户端
func deviceClient(input string) (*portal.Client, error) {
	_, _, provider, err := loadProvider()
	if err != nil {
		return nil, err
	}
	_, dev, err := resolveOne(provider, input)
	if err != nil {
		return nil, err
	}
	return portal.NewClient(dev), nil
}

func init() {
	rootCmd.AddCommand(NewCmdApp())
}
