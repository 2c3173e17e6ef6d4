// Package main provides the build-step validator/runner CLI.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ZacharyZcR/NVMPatch/internal/steps"
	"github.com/fatih/color"
)

var (
	validateOnly = flag.Bool("validate", false, "仅校验步骤文件结构")
	showCount    = flag.Bool("count", false, "打印步骤数量")
	verifyAll    = flag.Bool("verify", false, "校验所有步骤的工作目录和执行命令")
	runSteps     = flag.Bool("run", false, "按索引顺序执行所有步骤")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	if err := dispatch(flag.Arg(0)); err != nil {
		red := color.New(color.FgRed, color.Bold)
		_, _ = red.Fprintf(os.Stderr, "\n错误: %v\n\n", err)
		os.Exit(1)
	}
}

func dispatch(path string) error {
	manager, err := steps.Load(path)
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen)

	switch {
	case *showCount:
		fmt.Println(manager.Count())
		return nil
	case *verifyAll:
		return verifySteps(manager)
	case *runSteps:
		cyan := color.New(color.FgCyan)
		_, _ = cyan.Printf("正在执行 %d 个步骤...\n", manager.Count())
		if err := steps.NewRunner(manager).Run(); err != nil {
			return err
		}
		_, _ = green.Println("✓ 所有步骤执行完成")
		return nil
	case *validateOnly:
		fallthrough
	default:
		// Load already validated the file.
		_, _ = green.Printf("✓ 步骤文件有效 (%d 个步骤)\n", manager.Count())
		return nil
	}
}

func verifySteps(manager *steps.Manager) error {
	green := color.New(color.FgGreen)
	for _, step := range manager.Steps() {
		if err := manager.VerifyWorkPath(step.Index); err != nil {
			return fmt.Errorf("步骤 %d (%s): %w", step.Index, step.Description, err)
		}
		if err := manager.VerifyCommand(step.Index); err != nil {
			return fmt.Errorf("步骤 %d (%s): %w", step.Index, step.Description, err)
		}
		_, _ = green.Printf("✓ 步骤 %d: %s\n", step.Index, step.Description)
	}
	return nil
}

func printUsage() {
	cyan := color.New(color.FgCyan, color.Bold)
	_, _ = cyan.Println("\nnvmsteps - 构建步骤校验与执行工具")

	fmt.Println("\n用法:")
	fmt.Println("  nvmsteps [选项] <步骤JSON文件>")

	fmt.Println("\n选项:")
	fmt.Println("  -validate   仅校验步骤文件结构（默认行为）")
	fmt.Println("  -count      打印步骤数量")
	fmt.Println("  -verify     校验所有步骤的工作目录和执行命令")
	fmt.Println("  -run        按索引顺序执行所有步骤")

	fmt.Println("\n示例:")
	fmt.Println("  nvmsteps build_steps.json")
	fmt.Println("  nvmsteps -count build_steps.json")
	fmt.Println("  nvmsteps -verify build_steps.json")
	fmt.Println("  nvmsteps -run build_steps.json")
	fmt.Println()
}
