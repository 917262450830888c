package cmd

import (
	"context"
	"fmt"
	"strings"

	"example.com/HoloTools/cmd/version"
	"example.com/HoloTools/pkg/portal"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "以MCP服务器模式运行,向AI助手暴露设备操作",
	Long: `以MCP(Model Context Protocol)服务器模式运行,通过标准输入输出通信。
AI助手可以通过该服务器列出设备、查询设备信息、部署和启动应用。
配置示例(claude等客户端的mcpServers): {"command": "htool", "args": ["mcp"]}`,
	RunE: func(cmd *cobra.Command, args []string) error {
		server := mcp.NewServer(&mcp.Implementation{
			Name:    "htool",
			Version: version.Version,
		}, nil)

		registerTools(server)
		return server.Run(cmd.Context(), &mcp.StdioTransport{})
	},
}

type listDevicesArgs struct {
	Tag string `json:"tag,omitempty" jsonschema:"按标签筛选设备,为空时列出全部"`
}

type deviceArgs struct {
	Device string `json:"device" jsonschema:"设备名称、别名或IP地址"`
}

type installArgs struct {
	Device   string `json:"device" jsonschema:"设备名称、别名或IP地址"`
	AppxPath string `json:"appx_path" jsonschema:"本地APPX安装包路径"`
	Wait     bool   `json:"wait,omitempty" jsonschema:"是否阻塞等待安装完成"`
}

type appArgs struct {
	Device     string `json:"device" jsonschema:"设备名称、别名或IP地址"`
	FamilyName string `json:"package_family_name" jsonschema:"应用的包族名,忽略大小写"`
}

func registerTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_devices",
		Description: "列出已存储的HoloLens设备",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args listDevicesArgs) (*mcp.CallToolResult, any, error) {
		_, _, provider, err := loadProvider()
		if err != nil {
			return nil, nil, err
		}
		devices := provider.ListDevices()
		if args.Tag != "" {
			devices = provider.GetDevicesByTag(args.Tag)
		}

		var sb strings.Builder
		for name, dev := range devices {
			fmt.Fprintf(&sb, "%s: %s:%d (用户 %s, 标签 %s)\n",
				name, dev.Address, dev.Port, dev.User, strings.Join(dev.Tags, ","))
		}
		if sb.Len() == 0 {
			sb.WriteString("没有找到已存储的设备")
		}
		return textResult(sb.String()), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "device_info",
		Description: "查询设备的系统信息和电量",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args deviceArgs) (*mcp.CallToolResult, any, error) {
		client, err := deviceClient(args.Device)
		if err != nil {
			return nil, nil, err
		}
		info, err := client.OSInfo(ctx)
		if err != nil {
			return nil, nil, err
		}
		out := fmt.Sprintf("设备名: %s\n系统版本: %s\n平台: %s", info.ComputerName, info.OsVersion, info.Platform)
		if battery, err := client.Battery(ctx); err == nil {
			if pct := battery.ChargePercent(); pct >= 0 {
				out += fmt.Sprintf("\n电量: %d%%", pct)
			}
		}
		return textResult(out), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "install_app",
		Description: "将本地APPX安装包部署到设备(自动附带同名证书和Dependencies/x86依赖)",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args installArgs) (*mcp.CallToolResult, any, error) {
		client, err := deviceClient(args.Device)
		if err != nil {
			return nil, nil, err
		}
		status, err := client.Install(ctx, args.AppxPath, portal.InstallOptions{
			Wait:   args.Wait,
			Policy: portal.DefaultInstallPolicy(),
		})
		if err != nil {
			return nil, nil, err
		}
		return textResult(fmt.Sprintf("安装状态: %s", status)), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "launch_app",
		Description: "按包族名启动设备上的应用",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args appArgs) (*mcp.CallToolResult, any, error) {
		client, err := deviceClient(args.Device)
		if err != nil {
			return nil, nil, err
		}
		pkg, err := client.FindPackage(ctx, args.FamilyName)
		if err != nil {
			return nil, nil, err
		}
		running, err := client.Launch(ctx, pkg)
		if err != nil {
			return nil, nil, err
		}
		if !running {
			return textResult(fmt.Sprintf("应用 %s 启动请求已接受,但进程未在运行", pkg.Name)), nil, nil
		}
		return textResult(fmt.Sprintf("应用 %s 已启动", pkg.Name)), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "uninstall_app",
		Description: "按包族名从设备卸载应用",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args appArgs) (*mcp.CallToolResult, any, error) {
		client, err := deviceClient(args.Device)
		if err != nil {
			return nil, nil, err
		}
		pkg, err := client.FindPackage(ctx, args.FamilyName)
		if err != nil {
			return nil, nil, err
		}
		if err := client.Uninstall(ctx, pkg.PackageFullName); err != nil {
			return nil, nil, err
		}
		return textResult(fmt.Sprintf("应用 %s 已卸载", pkg.Name)), nil, nil
	})
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
