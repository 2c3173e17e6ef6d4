package nvm

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// imageBuilder constructs synthetic NVM images for tests.
type imageBuilder struct {
	data []byte
}

func newImageBuilder(size int) *imageBuilder {
	b := &imageBuilder{data: make([]byte, size)}
	// Non-zero fill so byte-preservation failures are visible.
	for i := range b.data {
		b.data[i] = byte(i*7 + 3)
	}
	return b
}

func (b *imageBuilder) putUint16(off int64, v uint16) {
	binary.LittleEndian.PutUint16(b.data[off:], v)
}

func (b *imageBuilder) putUint32(off int64, v uint32) {
	binary.LittleEndian.PutUint32(b.data[off:], v)
}

func (b *imageBuilder) write(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "image.bin")
	if err := os.WriteFile(path, b.data, 0666); err != nil {
		t.Fatalf("writing test image: %v", err)
	}
	return path
}

// testLayout is a container layout small enough that the whole pointer
// chain fits in a 256-byte test image.
func testLayout() Layout {
	return Layout{
		HighPtrWords:       0x11,
		LowPtrWords:        0x10,
		InnerSectionWords:  0x20,
		BlobHeaderBytes:    8,
		PayloadHeaderBytes: 4,
	}
}

// buildChain writes a complete pointer chain into the builder: the two
// pointer halves, the first sub-blob's size field, and the packed payload
// pair's two size headers. Returns the expected resolution offsets.
func buildChain(b *imageBuilder, l Layout, high, low uint16, blobWords, p1Words, p2Words uint32) (injectionPoint, oldPayloadEnd int64) {
	b.putUint16(WordsToBytes(l.HighPtrWords), high)
	b.putUint16(WordsToBytes(l.LowPtrWords), low)

	pointerAddr := WordsToBytes(int64(high)<<16 + int64(low) + l.InnerSectionWords)
	b.putUint32(pointerAddr, blobWords)

	pairOffset := pointerAddr + WordsToBytes(int64(blobWords)) + l.BlobHeaderBytes
	b.putUint32(pairOffset, p1Words)

	injectionPoint = pairOffset + l.PayloadHeaderBytes + WordsToBytes(int64(p1Words))
	b.putUint32(injectionPoint, p2Words)

	oldPayloadEnd = injectionPoint + l.PayloadHeaderBytes + WordsToBytes(int64(p2Words))
	return injectionPoint, oldPayloadEnd
}

func openTestImage(t *testing.T, path string) *Reader {
	t.Helper()
	reader, err := Open(path)
	if err != nil {
		t.Fatalf("Open(%s): %v", path, err)
	}
	t.Cleanup(func() { _ = reader.Close() })
	return reader
}
