package nvm

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestBoundsErrorMessage(t *testing.T) {
	err := &BoundsError{Offset: 0x27004, Width: 4, FileSize: 0x4000}

	msg := err.Error()
	for _, want := range []string{"0x27004", "4", "0x4000"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}

func TestLayoutErrorMessage(t *testing.T) {
	err := &LayoutError{Field: "first_blob_size", Value: 0x10000, Limit: 0x400}

	msg := err.Error()
	for _, want := range []string{"first_blob_size", "0x10000", "0x400"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}

func TestErrorsSurviveWrapping(t *testing.T) {
	wrapped := fmt.Errorf("读取载荷2大小字段失败: %w", &BoundsError{Offset: 8, Width: 4, FileSize: 10})

	var boundsErr *BoundsError
	if !errors.As(wrapped, &boundsErr) {
		t.Fatal("errors.As failed to recover *BoundsError through wrap")
	}
	if boundsErr.Offset != 8 {
		t.Errorf("Offset = %d, want 8", boundsErr.Offset)
	}

	var layoutErr *LayoutError
	if errors.As(wrapped, &layoutErr) {
		t.Error("errors.As matched *LayoutError on a bounds failure")
	}
}
