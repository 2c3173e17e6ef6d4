// Package main provides the NVMPatch GUI application.
package main

import (
	"fmt"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/ZacharyZcR/NVMPatch/internal/nvm"
)

func main() {
	myApp := app.New()
	myWindow := myApp.NewWindow("NVMPatch - MGV NVM 镜像注入工具")
	myWindow.Resize(fyne.NewSize(800, 600))

	// File paths
	imageEntry := widget.NewEntry()
	imageEntry.SetPlaceHolder("选择 NVM 镜像...")
	payloadEntry := widget.NewEntry()
	payloadEntry.SetPlaceHolder("选择替换镜像...")
	outputEntry := widget.NewEntry()
	outputEntry.SetPlaceHolder("选择输出文件...")

	// Resolution output
	resolutionOutput := widget.NewMultiLineEntry()
	resolutionOutput.SetPlaceHolder("解析结果将显示在这里...")
	resolutionOutput.Disable()

	// Status label
	statusLabel := widget.NewLabel("就绪")

	imageButton := widget.NewButton("选择文件", func() {
		dialog.ShowFileOpen(func(file fyne.URIReadCloser, err error) {
			if err != nil || file == nil {
				return
			}
			defer func() { _ = file.Close() }()
			imageEntry.SetText(file.URI().Path())
		}, myWindow)
	})

	payloadButton := widget.NewButton("选择文件", func() {
		dialog.ShowFileOpen(func(file fyne.URIReadCloser, err error) {
			if err != nil || file == nil {
				return
			}
			defer func() { _ = file.Close() }()
			payloadEntry.SetText(file.URI().Path())
		}, myWindow)
	})

	outputButton := widget.NewButton("选择文件", func() {
		dialog.ShowFileSave(func(file fyne.URIWriteCloser, err error) {
			if err != nil || file == nil {
				return
			}
			defer func() { _ = file.Close() }()
			outputEntry.SetText(file.URI().Path())
		}, myWindow)
	})

	// Inspect button
	inspectButton := widget.NewButton("解析", func() {
		if imageEntry.Text == "" {
			dialog.ShowError(fmt.Errorf("请先选择 NVM 镜像"), myWindow)
			return
		}

		statusLabel.SetText("正在解析...")
		go func() {
			result, err := inspectImage(imageEntry.Text)
			if err != nil {
				dialog.ShowError(err, myWindow)
				statusLabel.SetText("解析失败")
				return
			}
			resolutionOutput.SetText(result)
			statusLabel.SetText("解析完成")
		}()
	})

	// Inject button
	injectButton := widget.NewButton("注入", func() {
		if imageEntry.Text == "" || payloadEntry.Text == "" || outputEntry.Text == "" {
			dialog.ShowError(fmt.Errorf("请先选择镜像、替换镜像和输出文件"), myWindow)
			return
		}

		statusLabel.SetText("正在注入...")
		go func() {
			err := injectImage(imageEntry.Text, payloadEntry.Text, outputEntry.Text)
			if err != nil {
				dialog.ShowError(err, myWindow)
				statusLabel.SetText("注入失败")
				return
			}
			dialog.ShowInformation("成功", fmt.Sprintf("已写出 %s", outputEntry.Text), myWindow)
			statusLabel.SetText("注入完成")
		}()
	})

	// Layout
	pathBox := container.NewVBox(
		widget.NewLabel("NVM 镜像:"),
		container.NewBorder(nil, nil, nil, imageButton, imageEntry),
		widget.NewLabel("替换镜像:"),
		container.NewBorder(nil, nil, nil, payloadButton, payloadEntry),
		widget.NewLabel("输出文件:"),
		container.NewBorder(nil, nil, nil, outputButton, outputEntry),
		widget.NewSeparator(),
		container.NewGridWithColumns(2, inspectButton, injectButton),
	)

	mainContent := container.NewBorder(
		pathBox,
		container.NewVBox(
			widget.NewSeparator(),
			statusLabel,
		),
		nil,
		nil,
		container.NewVScroll(resolutionOutput),
	)

	myWindow.SetContent(mainContent)
	myWindow.ShowAndRun()
}

func inspectImage(imagePath string) (string, error) {
	res, err := nvm.Inspect(imagePath, nvm.DefaultLayout())
	if err != nil {
		return "", err
	}

	// Format output
	var output strings.Builder
	output.WriteString(fmt.Sprintf("镜像路径: %s\n", res.FilePath))
	output.WriteString(fmt.Sprintf("镜像大小: %d 字节\n", res.FileSize))
	output.WriteString(fmt.Sprintf("\n指针高位: 0x%04X\n", res.PtrHigh))
	output.WriteString(fmt.Sprintf("指针低位: 0x%04X\n", res.PtrLow))
	output.WriteString(fmt.Sprintf("尺寸字段地址: 0x%X\n", res.PointerAddress))
	output.WriteString(fmt.Sprintf("首块大小: 0x%X 字节\n", res.FirstBlobSize))
	output.WriteString(fmt.Sprintf("载荷对偏移: 0x%X\n", res.PayloadPairOffset))
	output.WriteString(fmt.Sprintf("载荷1大小: 0x%X 字节\n", res.Payload1Size))
	output.WriteString(fmt.Sprintf("\n注入点: 0x%X\n", res.InjectionPoint))
	output.WriteString(fmt.Sprintf("载荷2大小: 0x%X 字节\n", res.Payload2Size))
	output.WriteString(fmt.Sprintf("载荷结束偏移: 0x%X\n", res.OldPayloadEnd))

	return output.String(), nil
}

func injectImage(imagePath, payloadPath, outputPath string) error {
	reader, err := nvm.Open(imagePath)
	if err != nil {
		return err
	}
	defer func() { _ = reader.Close() }()

	res, err := nvm.NewResolver(reader, nvm.DefaultLayout()).Resolve()
	if err != nil {
		return err
	}

	return nvm.NewComposer(reader, res).ComposeFile(payloadPath, outputPath)
}
