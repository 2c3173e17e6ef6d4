package nvm

import "fmt"

// Resolution records every intermediate of the pointer chain walk, so the
// CLI report can show how the injection point was derived.
type Resolution struct {
	FilePath string
	FileSize int64

	// PtrHigh and PtrLow are the raw 2-byte pointer halves.
	PtrHigh uint64
	PtrLow  uint64

	// PointerAddress is the byte offset of the first sub-blob's size field.
	PointerAddress int64

	// FirstBlobSize is the first sub-blob's size in bytes.
	FirstBlobSize int64

	// PayloadPairOffset is the byte offset of the packed payload pair:
	// <payload1 size><payload1 data><payload2 size><payload2 data>.
	PayloadPairOffset int64
	Payload1Size      int64

	// InjectionPoint is the byte offset of the second payload's size
	// header, where the replacement's header must be written.
	InjectionPoint int64
	Payload2Size   int64

	// OldPayloadEnd is the byte offset one past the second payload's data.
	OldPayloadEnd int64
}

// Resolver walks the container's stored pointer chain to locate the
// embedded payload.
type Resolver struct {
	reader *Reader
	layout Layout
}

// NewResolver creates a resolver over the given image using the given
// container layout.
func NewResolver(r *Reader, layout Layout) *Resolver {
	return &Resolver{reader: r, layout: layout}
}

// Resolve walks the pointer chain and returns the injection point and the
// end of the payload it replaces. Reads outside the image return a
// *BoundsError; size fields inconsistent with the remaining image length
// return a *LayoutError. Resolve never guesses past a value it cannot
// account for.
func (rv *Resolver) Resolve() (*Resolution, error) {
	res := &Resolution{
		FilePath: rv.reader.FilePath(),
		FileSize: rv.reader.FileSize(),
	}

	high, err := rv.reader.ReadField(WordsToBytes(rv.layout.HighPtrWords), 2)
	if err != nil {
		return nil, fmt.Errorf("读取指针高位失败: %w", err)
	}
	low, err := rv.reader.ReadField(WordsToBytes(rv.layout.LowPtrWords), 2)
	if err != nil {
		return nil, fmt.Errorf("读取指针低位失败: %w", err)
	}
	res.PtrHigh = high
	res.PtrLow = low

	combinedWords := int64(high)<<16 + int64(low) + rv.layout.InnerSectionWords
	res.PointerAddress = WordsToBytes(combinedWords)

	blobWords, err := rv.reader.ReadField(res.PointerAddress, 4)
	if err != nil {
		return nil, fmt.Errorf("读取首块大小字段失败: %w", err)
	}
	res.FirstBlobSize = WordsToBytes(int64(blobWords))
	if err := rv.checkSize("first_blob_size", res.FirstBlobSize, res.PointerAddress); err != nil {
		return nil, err
	}

	res.PayloadPairOffset = res.PointerAddress + res.FirstBlobSize + rv.layout.BlobHeaderBytes

	p1Words, err := rv.reader.ReadField(res.PayloadPairOffset, 4)
	if err != nil {
		return nil, fmt.Errorf("读取载荷1大小字段失败: %w", err)
	}
	res.Payload1Size = WordsToBytes(int64(p1Words))
	if err := rv.checkSize("payload1_size", res.Payload1Size, res.PayloadPairOffset); err != nil {
		return nil, err
	}

	res.InjectionPoint = res.PayloadPairOffset + rv.layout.PayloadHeaderBytes + res.Payload1Size

	p2Words, err := rv.reader.ReadField(res.InjectionPoint, 4)
	if err != nil {
		return nil, fmt.Errorf("读取载荷2大小字段失败: %w", err)
	}
	res.Payload2Size = WordsToBytes(int64(p2Words))

	res.OldPayloadEnd = res.InjectionPoint + rv.layout.PayloadHeaderBytes + res.Payload2Size
	if res.OldPayloadEnd > res.FileSize {
		return nil, &LayoutError{
			Field: "payload2_size",
			Value: res.Payload2Size,
			Limit: res.FileSize - res.InjectionPoint - rv.layout.PayloadHeaderBytes,
		}
	}

	return res, nil
}

// checkSize rejects a size field whose data would run past the image end.
// base is the offset of the size field itself.
func (rv *Resolver) checkSize(field string, size, base int64) error {
	if size < 0 {
		return &LayoutError{Field: field, Value: size, Limit: 0}
	}
	remaining := rv.reader.FileSize() - base
	if size > remaining {
		return &LayoutError{Field: field, Value: size, Limit: remaining}
	}
	return nil
}

// Inspect opens the image, resolves the pointer chain, and closes the
// image again. Convenience for report-only callers.
func Inspect(path string, layout Layout) (*Resolution, error) {
	reader, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	return NewResolver(reader, layout).Resolve()
}
