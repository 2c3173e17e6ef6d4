// Package cli provides command-line interface utilities.
package cli

import (
	"fmt"

	"github.com/ZacharyZcR/NVMPatch/internal/nvm"
	"github.com/fatih/color"
)

// Reporter formats and prints a pointer chain resolution.
type Reporter struct {
	res     *nvm.Resolution
	verbose bool
}

// NewReporter creates a new reporter for the given resolution.
func NewReporter(res *nvm.Resolution) *Reporter {
	return &Reporter{res: res}
}

// SetVerbose enables verbose mode (show the raw pointer halves).
func (r *Reporter) SetVerbose(verbose bool) {
	r.verbose = verbose
}

// Print outputs the complete resolution report.
func (r *Reporter) Print() {
	r.printHeader()
	r.printBasicInfo()
	r.printChain()
}

func (r *Reporter) printHeader() {
	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Println("\n╔════════════════════════════════════════╗")
	cyan.Println("║         NVMPatch 解析报告              ║")
	cyan.Println("╚════════════════════════════════════════╝")
}

func (r *Reporter) printBasicInfo() {
	yellow := color.New(color.FgYellow, color.Bold)
	yellow.Println("\n【基本信息】")

	fmt.Printf("  %-20s: %s\n", "镜像路径", r.res.FilePath)
	fmt.Printf("  %-20s: %s\n", "镜像大小", formatSize(r.res.FileSize))
}

func (r *Reporter) printChain() {
	yellow := color.New(color.FgYellow, color.Bold)
	yellow.Println("\n【指针链】")

	if r.verbose {
		fmt.Printf("  %-20s: 0x%04X\n", "指针高位", r.res.PtrHigh)
		fmt.Printf("  %-20s: 0x%04X\n", "指针低位", r.res.PtrLow)
	}
	fmt.Printf("  %-20s: 0x%X\n", "尺寸字段地址", r.res.PointerAddress)
	fmt.Printf("  %-20s: %s\n", "首块大小", formatSize(r.res.FirstBlobSize))
	fmt.Printf("  %-20s: 0x%X\n", "载荷对偏移", r.res.PayloadPairOffset)
	fmt.Printf("  %-20s: %s\n", "载荷1大小", formatSize(r.res.Payload1Size))

	green := color.New(color.FgGreen, color.Bold)
	fmt.Printf("  %-20s: ", "注入点")
	green.Printf("0x%X\n", r.res.InjectionPoint)

	fmt.Printf("  %-20s: %s\n", "载荷2大小", formatSize(r.res.Payload2Size))
	fmt.Printf("  %-20s: 0x%X\n", "载荷结束偏移", r.res.OldPayloadEnd)

	remaining := r.res.FileSize - r.res.OldPayloadEnd
	fmt.Printf("  %-20s: %s\n", "尾部数据", formatSize(remaining))
	fmt.Println()
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
