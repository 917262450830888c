package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	cmdutils "example.com/HoloTools/cmd/utils"
	"example.com/HoloTools/pkg/config"
	"example.com/HoloTools/pkg/models"
	"example.com/HoloTools/utils"
	"github.com/spf13/cobra"
)

func NewCmdDevice() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "device",
		Aliases: []string{"dev", "devices"},
		Short:   "管理存储的设备信息",
		Long:    `管理存储的 HoloLens 设备连接信息。支持列出、添加、修改和删除操作。`,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	cmd.AddCommand(NewCmdDeviceList())
	cmd.AddCommand(NewCmdDeviceAdd())
	cmd.AddCommand(NewCmdDeviceEdit())
	cmd.AddCommand(NewCmdDeviceDelete())
	cmd.AddCommand(NewCmdDeviceTag())
	cmd.AddCommand(NewCmdDeviceTags())

	return cmd
}

func NewCmdDeviceList() *cobra.Command {
	var tagFilter string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "列出所有存储的设备",
		Run: func(cmd *cobra.Command, args []string) {
			_, _, provider, err := loadProvider()
			if err != nil {
				fmt.Println(err)
				return
			}

			var devices map[string]models.Device
			if tagFilter != "" {
				devices = provider.GetDevicesByTag(tagFilter)
			} else {
				devices = provider.ListDevices()
			}

			if len(devices) == 0 {
				if tagFilter != "" {
					fmt.Printf("没有找到带有标签 %s 的设备。\n", tagFilter)
				} else {
					fmt.Println("没有找到已存储的设备。")
				}
				return
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "名称\t别名\t地址\t用户\t协议\t设备名\t标签")

			// USB 回环设备固定排在首位,其余按名称排序
			for _, name := range config.SortedNames(devices) {
				dev := devices[name]
				scheme := "http"
				if dev.UseTLS {
					scheme = "https"
				}
				fmt.Fprintf(w, "%s\t%s\t%s:%d\t%s\t%s\t%s\t%s\n",
					name,
					strings.Join(dev.Alias, ", "),
					dev.Address, dev.Port,
					dev.User,
					scheme,
					dev.MachineName,
					strings.Join(dev.Tags, ", "),
				)
			}
			w.Flush()
		},
	}
	cmd.Flags().StringVarP(&tagFilter, "tag", "t", "", "按标签筛选设备")
	return cmd
}

func NewCmdDeviceAdd() *cobra.Command {
	var (
		address  string
		port     uint16
		user     string
		password string
		noTLS    bool
		usb      bool
		alias    []string
		tags     []string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "添加一台新设备",
		Long: `添加一台新设备。
使用 --usb 添加通过USB配对的本机回环设备(127.0.0.1:10080,HTTP),
该设备始终排在设备列表首位。`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, provider, err := loadProvider()
			if err != nil {
				return err
			}

			if usb {
				// USB 回环设备: 凭据只发往回环地址
				address = "127.0.0.1"
				if port == 0 {
					port = 10080
				}
				noTLS = true
			}
			if address == "" {
				return fmt.Errorf("必须指定设备地址 (--address)")
			}
			// 地址允许写成 host:port 形式
			if host, p := cmdutils.ParseHost(address); p != 0 {
				address = host
				if port == 0 {
					port = p
				}
			}
			if port == 0 {
				if noTLS {
					port = 80
				} else {
					port = 443
				}
			}
			if user == "" {
				return fmt.Errorf("必须指定 Device Portal 用户名 (--user)")
			}
			// 明文 HTTP 下凭据不加密传输,只对回环地址放行
			if noTLS && !(models.Device{Address: address}).IsLocal() {
				fmt.Println("警告: 对非回环地址使用 HTTP,凭据将以明文传输")
			}
			if !cmdutils.IsValidIP(address) {
				utils.Logger.Debug("地址不是IP,将按域名解析", "address", address)
			}
			if password == "" {
				pass, err := cmdutils.ReadPasswordFromTerminal(fmt.Sprintf("请输入用户 %s 的密码: ", user))
				if err != nil {
					return err
				}
				password = pass
			}

			name := fmt.Sprintf("%s:%d", address, port)
			if usb {
				name = models.LocalDeviceName
			}
			if _, ok := provider.GetDevice(name); ok {
				return fmt.Errorf("设备 %s 已存在", name)
			}

			provider.AddDevice(name, models.Device{
				Address:  address,
				Port:     port,
				UseTLS:   !noTLS,
				User:     user,
				Password: password,
				Alias:    alias,
				Tags:     tags,
			})

			if err := store.Save(cfg); err != nil {
				return fmt.Errorf("保存配置文件失败: %v", err)
			}

			fmt.Printf("成功添加设备: %s\n", name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&address, "address", "H", "", "设备 IP 或域名")
	cmd.Flags().Uint16VarP(&port, "port", "p", 0, "Device Portal 端口 (默认 https 443 / http 80)")
	cmd.Flags().StringVarP(&user, "user", "u", "", "Device Portal 用户名")
	cmd.Flags().StringVarP(&password, "password", "P", "", "Device Portal 密码")
	cmd.Flags().BoolVar(&noTLS, "no-tls", false, "使用 HTTP 而非 HTTPS")
	cmd.Flags().BoolVar(&usb, "usb", false, "添加USB配对的本机回环设备")
	cmd.Flags().StringSliceVarP(&alias, "alias", "a", []string{}, "设备别名 (逗号分隔)")
	cmd.Flags().StringSliceVarP(&tags, "tags", "t", []string{}, "设备标签 (逗号分隔)")

	return cmd
}

func NewCmdDeviceEdit() *cobra.Command {
	var (
		address  string
		port     uint16
		user     string
		password string
		alias    []string
	)

	cmd := &cobra.Command{
		Use:   "edit [name]",
		Short: "修改已存储设备的信息",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, provider, err := loadProvider()
			if err != nil {
				return err
			}

			name, dev, err := resolveOne(provider, args[0])
			if err != nil {
				return err
			}

			updated := false
			if address != "" {
				dev.Address = address
				updated = true
			}
			if port != 0 {
				dev.Port = port
				updated = true
			}
			if user != "" {
				dev.User = user
				updated = true
			}
			if password != "" {
				dev.Password = password
				updated = true
			}
			if cmd.Flags().Changed("alias") {
				dev.Alias = alias
				updated = true
			}

			if !updated {
				fmt.Println("未提供任何修改项")
				return nil
			}

			// 地址变化意味着缓存的显示名可能不再匹配
			if address != "" {
				dev.MachineName = ""
			}
			provider.AddDevice(name, dev)
			if err := store.Save(cfg); err != nil {
				return err
			}
			fmt.Printf("成功更新设备信息: %s\n", name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&address, "address", "H", "", "修改设备 IP 或域名")
	cmd.Flags().Uint16VarP(&port, "port", "p", 0, "修改 Device Portal 端口")
	cmd.Flags().StringVarP(&user, "user", "u", "", "修改用户名")
	cmd.Flags().StringVarP(&password, "password", "P", "", "修改密码")
	cmd.Flags().StringSliceVarP(&alias, "alias", "a", []string{}, "修改设备别名 (覆盖原有别名)")

	return cmd
}

func NewCmdDeviceDelete() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [name]",
		Short: "删除一台存储的设备",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, provider, err := loadProvider()
			if err != nil {
				return err
			}

			name, _, err := resolveOne(provider, args[0])
			if err != nil {
				return err
			}

			provider.DeleteDevice(name)
			if err := store.Save(cfg); err != nil {
				return fmt.Errorf("保存配置文件失败: %v", err)
			}

			fmt.Printf("成功删除设备: %s\n", name)
			return nil
		},
	}
}

func NewCmdDeviceTag() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "管理设备的标签",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add [tag_name] [device1,device2...]",
		Short: "将设备加入标签组",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editTags(args[0], args[1], true)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "remove [tag_name] [device1,device2...]",
		Short: "从指定标签移除设备",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editTags(args[0], args[1], false)
		},
	})

	return cmd
}

func editTags(tagName, deviceList string, add bool) error {
	tagName = strings.TrimSpace(tagName)
	if tagName == "" {
		return fmt.Errorf("标签名称不能为空")
	}

	store, cfg, provider, err := loadProvider()
	if err != nil {
		return err
	}

	updatedCount := 0
	for _, input := range strings.Split(deviceList, ",") {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		name, dev, err := resolveOne(provider, input)
		if err != nil {
			fmt.Printf("警告: 设备 %s 不存在，跳过\n", input)
			continue
		}

		exists := false
		for _, t := range dev.Tags {
			if t == tagName {
				exists = true
				break
			}
		}

		if add && !exists {
			dev.Tags = append(dev.Tags, tagName)
			provider.AddDevice(name, dev)
			updatedCount++
		} else if !add && exists {
			newTags := make([]string, 0, len(dev.Tags))
			for _, t := range dev.Tags {
				if t != tagName {
					newTags = append(newTags, t)
				}
			}
			dev.Tags = newTags
			provider.AddDevice(name, dev)
			updatedCount++
		}
	}

	if updatedCount == 0 {
		fmt.Println("未对任何设备进行更改")
		return nil
	}
	if err := store.Save(cfg); err != nil {
		return err
	}
	if add {
		fmt.Printf("成功将 %d 台设备加入标签组 [%s]\n", updatedCount, tagName)
	} else {
		fmt.Printf("成功从 %d 台设备中移除了标签 [%s]\n", updatedCount, tagName)
	}
	return nil
}

func NewCmdDeviceTags() *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "列出所有标签及对应的设备数量",
		Run: func(cmd *cobra.Command, args []string) {
			_, _, provider, err := loadProvider()
			if err != nil {
				fmt.Println(err)
				return
			}

			tagMap := make(map[string]int)
			for _, dev := range provider.ListDevices() {
				for _, tag := range dev.Tags {
					tagMap[tag]++
				}
			}

			if len(tagMap) == 0 {
				fmt.Println("当前没有已定义的标签。")
				return
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "标签\t设备数量")
			tags := make([]string, 0, len(tagMap))
			for t := range tagMap {
				tags = append(tags, t)
			}
			sort.Strings(tags)
			for _, t := range tags {
				fmt.Fprintf(w, "%s\t%d\n", t, tagMap[t])
			}
			w.Flush()
		},
	}
}

func init() {
	rootCmd.AddCommand(NewCmdDevice())
}
