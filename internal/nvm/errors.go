package nvm

import "fmt"

// BoundsError indicates that a field read would touch bytes outside the
// image's extent.
type BoundsError struct {
	Offset   int64
	Width    int
	FileSize int64
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("读取越界: 偏移 0x%X + %d 字节超出镜像大小 0x%X",
		e.Offset, e.Width, e.FileSize)
}

// LayoutError indicates that a value read from the image violates the
// expected container layout, e.g. a size field that runs past the end of
// the image. It usually means the image is a different container revision
// than the configured layout describes.
type LayoutError struct {
	Field string
	Value int64
	Limit int64
}

func (e *LayoutError) Error() string {
	return fmt.Sprintf("镜像布局异常: 字段 %s 的值 0x%X 超出允许范围 0x%X (镜像版本不匹配?)",
		e.Field, e.Value, e.Limit)
}
