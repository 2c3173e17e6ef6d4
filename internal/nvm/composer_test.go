package nvm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// composeFixture resolves the standard hand-traced chain and returns the
// reader, resolution, and original image bytes.
func composeFixture(t *testing.T) (*Reader, *Resolution, []byte) {
	t.Helper()
	b := newImageBuilder(0x100)
	buildChain(b, testLayout(), 0, 0x30, 0x10, 6, 8)
	original := append([]byte(nil), b.data...)
	reader := openTestImage(t, b.write(t))

	res, err := NewResolver(reader, testLayout()).Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	return reader, res, original
}

func composeTo(t *testing.T, c *Composer, payload []byte) []byte {
	t.Helper()
	outPath := filepath.Join(t.TempDir(), "out.bin")
	if err := c.Compose(payload, outPath); err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if _, err := os.Stat(outPath + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temporary file left behind: %v", err)
	}
	out, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	return out
}

func TestComposeHeaderWordCount(t *testing.T) {
	reader, res, _ := composeFixture(t)

	tests := []struct {
		name       string
		payloadLen int
		wantWords  uint32
	}{
		{"empty payload", 0, 0},
		{"even length", 16, 8},
		{"odd length rounds up", 7, 4},
		{"single byte", 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := bytes.Repeat([]byte{0xAB}, tt.payloadLen)
			out := composeTo(t, NewComposer(reader, res), payload)

			header := binary.LittleEndian.Uint32(out[res.InjectionPoint:])
			if header != tt.wantWords {
				t.Errorf("header = %d words, want %d", header, tt.wantWords)
			}
		})
	}
}

func TestComposePreservesSurroundingBytes(t *testing.T) {
	reader, res, original := composeFixture(t)

	for _, payloadLen := range []int{4, 16, 64, 7} {
		payload := bytes.Repeat([]byte{0x5C}, payloadLen)
		out := composeTo(t, NewComposer(reader, res), payload)

		wantLen := res.InjectionPoint + 4 + int64(payloadLen) + (int64(len(original)) - res.OldPayloadEnd)
		if int64(len(out)) != wantLen {
			t.Fatalf("payload %d bytes: output length = %d, want %d", payloadLen, len(out), wantLen)
		}
		if !bytes.Equal(out[:res.InjectionPoint], original[:res.InjectionPoint]) {
			t.Errorf("payload %d bytes: prefix modified", payloadLen)
		}
		payloadStart := res.InjectionPoint + 4
		if !bytes.Equal(out[payloadStart:payloadStart+int64(payloadLen)], payload) {
			t.Errorf("payload %d bytes: payload bytes differ", payloadLen)
		}
		if !bytes.Equal(out[payloadStart+int64(payloadLen):], original[res.OldPayloadEnd:]) {
			t.Errorf("payload %d bytes: suffix modified", payloadLen)
		}
	}
}

func TestComposeRoundTrip(t *testing.T) {
	reader, res, original := composeFixture(t)

	// Re-injecting the original payload must reproduce the image exactly.
	payload := original[res.InjectionPoint+4 : res.OldPayloadEnd]
	out := composeTo(t, NewComposer(reader, res), payload)

	if !bytes.Equal(out, original) {
		t.Error("round-trip output differs from the original image")
	}
}

func TestComposeFile(t *testing.T) {
	reader, res, original := composeFixture(t)

	payload := []byte{1, 2, 3, 4, 5}
	payloadPath := filepath.Join(t.TempDir(), "payload.bin")
	if err := os.WriteFile(payloadPath, payload, 0666); err != nil {
		t.Fatal(err)
	}
	outPath := filepath.Join(t.TempDir(), "out.bin")

	if err := NewComposer(reader, res).ComposeFile(payloadPath, outPath); err != nil {
		t.Fatalf("ComposeFile: %v", err)
	}
	out, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out[:res.InjectionPoint], original[:res.InjectionPoint]) {
		t.Error("prefix modified")
	}
	if binary.LittleEndian.Uint32(out[res.InjectionPoint:]) != 3 {
		t.Errorf("header = %d words, want 3", binary.LittleEndian.Uint32(out[res.InjectionPoint:]))
	}
}

func TestComposeMaxPayload(t *testing.T) {
	reader, res, _ := composeFixture(t)

	c := NewComposer(reader, res)
	c.MaxPayload = res.Payload2Size
	outPath := filepath.Join(t.TempDir(), "out.bin")

	err := c.Compose(bytes.Repeat([]byte{0}, int(res.Payload2Size)+1), outPath)
	if err == nil {
		t.Fatal("Compose accepted a payload larger than the limit")
	}
	if _, statErr := os.Stat(outPath); !os.IsNotExist(statErr) {
		t.Error("output file created despite rejected payload")
	}

	// Exactly at the limit is allowed.
	if err := c.Compose(bytes.Repeat([]byte{0}, int(res.Payload2Size)), outPath); err != nil {
		t.Fatalf("Compose at the limit: %v", err)
	}
}

func TestComposeRejectsInvalidResolution(t *testing.T) {
	reader, res, _ := composeFixture(t)

	bad := *res
	bad.OldPayloadEnd = reader.FileSize() + 1
	err := NewComposer(reader, &bad).Compose([]byte{1}, filepath.Join(t.TempDir(), "out.bin"))
	var layoutErr *LayoutError
	if !errors.As(err, &layoutErr) {
		t.Fatalf("Compose error = %v, want *LayoutError", err)
	}
}

func TestPayloadWords(t *testing.T) {
	tests := []struct {
		n    int64
		want uint64
	}{
		{0, 0}, {1, 1}, {2, 1}, {3, 2}, {7, 4}, {8, 4}, {1023, 512},
	}
	for _, tt := range tests {
		if got := PayloadWords(tt.n); got != tt.want {
			t.Errorf("PayloadWords(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}
