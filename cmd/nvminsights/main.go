// Package main provides the AI-assisted error-annotation CLI.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ZacharyZcR/NVMPatch/internal/insights"
	"github.com/fatih/color"
)

var timeoutSecs = flag.Uint("timeout", 30, "API 请求超时（秒）")

func main() {
	flag.Parse()

	if flag.NArg() < 2 {
		printUsage()
		os.Exit(1)
	}

	errorMessage := flag.Arg(0)
	sourcePath := flag.Arg(1)

	if err := run(errorMessage, sourcePath); err != nil {
		red := color.New(color.FgRed, color.Bold)
		_, _ = red.Fprintf(os.Stderr, "\n错误: %v\n\n", err)
		os.Exit(1)
	}
}

func run(errorMessage, sourcePath string) error {
	content, err := os.ReadFile(sourcePath)
	if err != nil {
		return fmt.Errorf("读取源文件失败: %w", err)
	}

	client, err := insights.NewClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(*timeoutSecs)*time.Second)
	defer cancel()

	cyan := color.New(color.FgCyan)
	_, _ = cyan.Println("正在请求修复建议...")

	fixes, err := client.FixSuggestions(ctx, errorMessage, string(content))
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("API 请求超时 (%d 秒)", *timeoutSecs)
	}
	if err != nil {
		return err
	}

	if len(fixes) == 0 {
		yellow := color.New(color.FgYellow)
		_, _ = yellow.Println("⚠️  回复中没有可用的 C 代码修复建议")
		return nil
	}

	green := color.New(color.FgGreen)
	for i, fix := range fixes {
		if len(fixes) > 1 {
			fmt.Printf("/* Fix %d: */\n", i)
		}
		_, _ = green.Println(fix)
	}
	return nil
}

func printUsage() {
	cyan := color.New(color.FgCyan, color.Bold)
	_, _ = cyan.Println("\nnvminsights - AI 编译错误修复建议工具")

	fmt.Println("\n用法:")
	fmt.Println("  nvminsights [选项] <错误信息> <源文件路径>")

	fmt.Println("\n选项:")
	fmt.Println("  -timeout <秒>   API 请求超时（默认: 30）")

	fmt.Println("\n环境变量:")
	fmt.Println("  OPENAI_API_KEY  OpenAI API 密钥（必需）")

	fmt.Println("\n示例:")
	fmt.Println("  nvminsights \"main.c:12: error: expected ';'\" main.c")
	fmt.Println("  nvminsights -timeout 60 \"$(cat build.log)\" src/driver.c")
	fmt.Println()
}
