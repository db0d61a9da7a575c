// launchctl 是 LaunchGPT 的运维命令行工具：离线渲染模型输出、签发与检查会话令牌。
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
