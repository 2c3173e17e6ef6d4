package nvm

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Layout describes one revision of the MGV NVM container: every word offset
// and header width the pointer chain depends on. All *Words fields are in
// 16-bit words, the container's native addressing unit; convert with
// WordsToBytes before using them as file positions.
type Layout struct {
	// HighPtrWords and LowPtrWords are the word offsets of the two 2-byte
	// halves of the U-Boot pointer (high half at the higher offset).
	HighPtrWords int64 `toml:"high_ptr_words"`
	LowPtrWords  int64 `toml:"low_ptr_words"`

	// InnerSectionWords is the word offset of the active bank, added to the
	// combined pointer before dereferencing.
	InnerSectionWords int64 `toml:"inner_section_words"`

	// BlobHeaderBytes is the distance from the end of the first sub-blob to
	// the packed payload pair: the 4-byte size field itself plus one more
	// 4-byte header observed in shipped images. Layout-specific and not
	// verified against a formal format description.
	BlobHeaderBytes int64 `toml:"blob_header_bytes"`

	// PayloadHeaderBytes is the width of each payload's word-count size
	// header inside the packed pair.
	PayloadHeaderBytes int64 `toml:"payload_header_bytes"`
}

// DefaultLayout returns the layout of the MGV IMC NVM container revision
// this tool was written against. The pointer offsets come from the image's
// fields CSV (Init_Module_, UBOOT_Pointer_L).
func DefaultLayout() Layout {
	return Layout{
		HighPtrWords:       0x38EA,
		LowPtrWords:        0x38E9,
		InnerSectionWords:  0x3800,
		BlobHeaderBytes:    8,
		PayloadHeaderBytes: 4,
	}
}

// LoadLayout reads a layout description from a TOML file. Fields absent
// from the file keep their default values, so a layout file only needs to
// state what differs from the built-in revision.
func LoadLayout(path string) (Layout, error) {
	layout := DefaultLayout()
	if _, err := toml.DecodeFile(path, &layout); err != nil {
		return Layout{}, fmt.Errorf("解析布局文件失败: %w", err)
	}
	if err := layout.Validate(); err != nil {
		return Layout{}, err
	}
	return layout, nil
}

// Validate rejects layouts with negative offsets or header widths.
func (l Layout) Validate() error {
	fields := map[string]int64{
		"high_ptr_words":       l.HighPtrWords,
		"low_ptr_words":        l.LowPtrWords,
		"inner_section_words":  l.InnerSectionWords,
		"blob_header_bytes":    l.BlobHeaderBytes,
		"payload_header_bytes": l.PayloadHeaderBytes,
	}
	for name, v := range fields {
		if v < 0 {
			return fmt.Errorf("布局字段 %s 不能为负数: %d", name, v)
		}
	}
	return nil
}

// WordsToBytes converts a word offset or word count to bytes. Stored fields
// are at most 32 bits wide, so doubling in 64-bit arithmetic cannot wrap.
func WordsToBytes(words int64) int64 {
	return words * 2
}
