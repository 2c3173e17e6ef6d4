// Package main provides the NVMPatch CLI tool.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ZacharyZcR/NVMPatch/internal/cli"
	"github.com/ZacharyZcR/NVMPatch/internal/nvm"
	"github.com/fatih/color"
)

var (
	nvmPath      = flag.String("nvm", "", "MGV NVM 镜像路径")
	payloadPath  = flag.String("z", "", "用于替换的新 Zephyr 镜像路径")
	outputPath   = flag.String("o", "", "输出 NVM 文件路径")
	layoutPath   = flag.String("layout", "", "容器布局描述文件 (TOML，默认使用内置 MGV IMC 布局)")
	inspectOnly  = flag.Bool("inspect", false, "仅解析指针链并打印报告，不写出文件")
	enforceLimit = flag.Bool("limit", false, "拒绝大于原载荷槽位的替换镜像")
	verbose      = flag.Bool("v", false, "详细模式：显示原始指针高低位")
)

func main() {
	flag.Parse()

	if *nvmPath == "" {
		printUsage()
		os.Exit(1)
	}

	var err error
	if *inspectOnly {
		err = inspectImage()
	} else {
		err = injectImage()
	}

	if err != nil {
		red := color.New(color.FgRed, color.Bold)
		_, _ = red.Fprintf(os.Stderr, "\n错误: %v\n\n", err)
		os.Exit(1)
	}
}

func loadLayout() (nvm.Layout, error) {
	if *layoutPath == "" {
		return nvm.DefaultLayout(), nil
	}
	return nvm.LoadLayout(*layoutPath)
}

func inspectImage() error {
	layout, err := loadLayout()
	if err != nil {
		return err
	}

	res, err := nvm.Inspect(*nvmPath, layout)
	if err != nil {
		return err
	}

	reporter := cli.NewReporter(res)
	reporter.SetVerbose(*verbose)
	reporter.Print()
	return nil
}

func injectImage() error {
	if *payloadPath == "" || *outputPath == "" {
		return fmt.Errorf("注入模式需要同时指定 -z 和 -o")
	}

	layout, err := loadLayout()
	if err != nil {
		return err
	}

	reader, err := nvm.Open(*nvmPath)
	if err != nil {
		return err
	}
	defer func() { _ = reader.Close() }()

	cyan := color.New(color.FgCyan)
	_, _ = cyan.Println("正在解析指针链...")

	res, err := nvm.NewResolver(reader, layout).Resolve()
	if err != nil {
		return err
	}

	reporter := cli.NewReporter(res)
	reporter.SetVerbose(*verbose)
	reporter.Print()

	composer := nvm.NewComposer(reader, res)
	if *enforceLimit {
		composer.MaxPayload = res.Payload2Size
	}

	_, _ = cyan.Printf("正在注入替换镜像: %s -> 0x%X...\n", *payloadPath, res.InjectionPoint)
	if err := composer.ComposeFile(*payloadPath, *outputPath); err != nil {
		return err
	}

	green := color.New(color.FgGreen, color.Bold)
	_, _ = green.Printf("\n✓ 注入完成: %s\n\n", *outputPath)
	return nil
}

func printUsage() {
	cyan := color.New(color.FgCyan, color.Bold)
	_, _ = cyan.Println("\nNVMPatch - MGV NVM 镜像注入工具")

	fmt.Println("\n注入模式用法:")
	fmt.Println("  nvmpatch -nvm <镜像> -z <替换镜像> -o <输出文件>")

	fmt.Println("\n解析模式用法:")
	fmt.Println("  nvmpatch -inspect -nvm <镜像>")

	fmt.Println("\n选项:")
	fmt.Println("  -nvm <路径>       MGV NVM 镜像路径")
	fmt.Println("  -z <路径>         用于替换的新 Zephyr 镜像路径")
	fmt.Println("  -o <路径>         输出 NVM 文件路径（原镜像不会被修改）")
	fmt.Println("  -layout <路径>    容器布局描述文件 (TOML，默认: 内置 MGV IMC 布局)")
	fmt.Println("  -inspect          仅解析指针链并打印报告")
	fmt.Println("  -limit            拒绝大于原载荷槽位的替换镜像")
	fmt.Println("  -v                详细模式：显示原始指针高低位")

	fmt.Println("\n示例:")
	fmt.Println("  # 解析镜像")
	fmt.Println("  nvmpatch -inspect -nvm nvm-image.bin")
	fmt.Println("  nvmpatch -inspect -v -nvm nvm-image.bin")
	fmt.Println("\n  # 注入新的 Zephyr 镜像")
	fmt.Println("  nvmpatch -nvm nvm-image.bin -z zephyr.bin -o nvm-patched.bin")
	fmt.Println("  nvmpatch -limit -nvm nvm-image.bin -z zephyr.bin -o nvm-patched.bin")
	fmt.Println("\n  # 使用其他容器版本的布局")
	fmt.Println("  nvmpatch -layout rev2.toml -nvm nvm-image.bin -z zephyr.bin -o out.bin")
	fmt.Println()
}
