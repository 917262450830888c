package version

import "fmt"

// 编译时通过 ldflags 注入,开发环境下保持默认值
var (
	Version   = "dev"     // 版本号 (e.g. v1.0.0)
	Commit    = "none"    // Git Commit Hash
	BuildTime = "unknown" // 编译时间
)

// PrintFullVersion 打印 htool 的详细版本信息
func PrintFullVersion() {
	fmt.Printf("htool %s\n", Version)
	fmt.Printf("Git Commit: %s\n", Commit)
	fmt.Printf("Build Time: %s\n", BuildTime)
}
