// Package nvm locates and replaces the embedded payload inside an MGV NVM
// firmware image by walking the container's stored pointer chain.
package nvm

import (
	"encoding/binary"
	"fmt"
	"os"
)

// Reader provides bounds-checked little-endian field access to an NVM
// image file.
type Reader struct {
	file     *os.File
	filepath string
	filesize int64
}

// Open opens an NVM image file for reading.
func Open(filepath string) (*Reader, error) {
	f, err := os.Open(filepath)
	if err != nil {
		return nil, fmt.Errorf("打开镜像文件失败: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("获取文件信息失败: %w", err)
	}

	return &Reader{
		file:     f,
		filepath: filepath,
		filesize: stat.Size(),
	}, nil
}

// Close closes the underlying image file.
func (r *Reader) Close() error {
	return r.file.Close()
}

// RawFile returns the underlying file handle.
func (r *Reader) RawFile() *os.File {
	return r.file
}

// FilePath returns the image file path.
func (r *Reader) FilePath() string {
	return r.filepath
}

// FileSize returns the image size in bytes.
func (r *Reader) FileSize() int64 {
	return r.filesize
}

// ReadField reads an unsigned little-endian field of the given width (2 or
// 4 bytes) at the given byte offset. Reads past the image extent return a
// *BoundsError.
func (r *Reader) ReadField(offset int64, width int) (uint64, error) {
	if width != 2 && width != 4 {
		return 0, fmt.Errorf("不支持的字段宽度: %d 字节", width)
	}
	if offset < 0 || offset+int64(width) > r.filesize {
		return 0, &BoundsError{Offset: offset, Width: width, FileSize: r.filesize}
	}

	buf := make([]byte, width)
	if _, err := r.file.ReadAt(buf, offset); err != nil {
		return 0, fmt.Errorf("读取偏移 0x%X 处的字段失败: %w", offset, err)
	}

	if width == 2 {
		return uint64(binary.LittleEndian.Uint16(buf)), nil
	}
	return uint64(binary.LittleEndian.Uint32(buf)), nil
}
