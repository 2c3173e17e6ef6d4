package nvm

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// Composer builds the output image around a resolved injection point. The
// source image is never touched; the output is written to a temporary file
// next to the destination and renamed into place only after every byte has
// been written and synced.
type Composer struct {
	reader *Reader
	res    *Resolution

	// MaxPayload, when positive, rejects replacement payloads larger than
	// this many bytes. The original tool carried this guard but never
	// enforced it; it is opt-in here.
	MaxPayload int64
}

// NewComposer creates a composer for the given image and resolution.
func NewComposer(r *Reader, res *Resolution) *Composer {
	return &Composer{reader: r, res: res}
}

// PayloadWords returns the container's word-count encoding of a payload
// length: sizes are stored in 16-bit words, odd lengths round up.
func PayloadWords(n int64) uint64 {
	return uint64((n + 1) / 2)
}

// ComposeFile reads the replacement payload from payloadPath and writes the
// rebuilt image to outputPath.
func (c *Composer) ComposeFile(payloadPath, outputPath string) error {
	payload, err := os.ReadFile(payloadPath)
	if err != nil {
		return fmt.Errorf("读取替换镜像失败: %w", err)
	}
	return c.Compose(payload, outputPath)
}

// Compose writes image[0:injection_point] ++ <word-count header> ++ payload
// ++ image[old_payload_end:] to outputPath. Bytes outside the replaced
// region are preserved exactly.
func (c *Composer) Compose(payload []byte, outputPath string) error {
	res := c.res
	if res.InjectionPoint < 0 || res.InjectionPoint > res.OldPayloadEnd || res.OldPayloadEnd > c.reader.FileSize() {
		return &LayoutError{Field: "old_payload_end", Value: res.OldPayloadEnd, Limit: c.reader.FileSize()}
	}
	if c.MaxPayload > 0 && int64(len(payload)) > c.MaxPayload {
		return fmt.Errorf("替换镜像大小 (%d 字节) 超过原载荷槽位大小 (%d 字节)", len(payload), c.MaxPayload)
	}
	if PayloadWords(int64(len(payload))) > math.MaxUint32 {
		return fmt.Errorf("替换镜像过大: %d 字节无法编码为4字节字数头", len(payload))
	}

	tmpPath := outputPath + ".tmp"
	out, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		return fmt.Errorf("创建输出文件失败: %w", err)
	}

	if err := c.writeOutput(out, payload); err != nil {
		_ = out.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	if err := out.Sync(); err != nil {
		_ = out.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("同步输出文件失败: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("关闭输出文件失败: %w", err)
	}

	if err := os.Rename(tmpPath, outputPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("替换输出文件失败: %w", err)
	}
	return nil
}

func (c *Composer) writeOutput(out *os.File, payload []byte) error {
	src := c.reader.RawFile()
	res := c.res

	prefix := io.NewSectionReader(src, 0, res.InjectionPoint)
	if _, err := io.Copy(out, prefix); err != nil {
		return fmt.Errorf("复制注入点之前的数据失败: %w", err)
	}

	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], uint32(PayloadWords(int64(len(payload)))))
	if _, err := out.Write(header[:]); err != nil {
		return fmt.Errorf("写入载荷大小头失败: %w", err)
	}

	if _, err := out.Write(payload); err != nil {
		return fmt.Errorf("写入替换载荷失败: %w", err)
	}

	suffix := io.NewSectionReader(src, res.OldPayloadEnd, c.reader.FileSize()-res.OldPayloadEnd)
	if _, err := io.Copy(out, suffix); err != nil {
		return fmt.Errorf("复制原载荷之后的数据失败: %w", err)
	}
	return nil
}
