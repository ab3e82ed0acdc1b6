package compression_test

import (
	"bytes"
	"crypto/rand"
	"errors"
	"io"
	"testing"

	"github.com/noxer/bytewriter"

	"github.com/dargueta/ext2shell/utilities/compression"
)

type rle8Case struct {
	name   string
	input  []byte
	output []byte
}

// These cases are shaped like ext2 block contents: a run of zero bytes (the
// padding at the tail of a sparse directory block), a run of a repeated
// non-zero byte (a freshly zeroed-then-filled bitmap block), and a run long
// enough to need more than one escape triplet (a full 1024-byte zero block).
func TestCompressRLE8_BlockShapedInputs(t *testing.T) {
	cases := []rle8Case{
		{"empty", []byte{}, []byte{}},
		{"no_repeats", []byte{0x01, 0x02, 0x03, 0x04}, []byte{0x01, 0x02, 0x03, 0x04}},
		{"bare_pair", []byte{0xFF, 0xFF}, []byte{0xFF, 0xFF, 0}},
		{
			"dirent_tail_padding",
			[]byte{0x12, 0x34, 0, 0, 0, 0, 0},
			[]byte{0x12, 0x34, 0, 0, 3},
		},
		{
			"bitmap_fill_byte",
			bytes.Repeat([]byte{0xAA}, 6),
			[]byte{0xAA, 0xAA, 4},
		},
		{
			"full_zero_block",
			make([]byte, 1024),
			[]byte{0, 0, 255, 0, 0, 255, 0, 0, 255, 0, 0, 251},
		},
		{
			"run_of_exactly_257",
			bytes.Repeat([]byte{7}, 257),
			[]byte{7, 7, 255},
		},
		{
			"run_of_258",
			bytes.Repeat([]byte{7}, 258),
			[]byte{7, 7, 255, 7},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			runRLE8CompressCase(t, tc)
		})
	}
}

func TestRLE8RoundTrip_RandomBlock(t *testing.T) {
	data := make([]byte, 1024)
	rand.Read(data)
	runRLE8RoundTrip(t, data)
}

func TestRLE8RoundTrip_AllZeroBlock(t *testing.T) {
	runRLE8RoundTrip(t, make([]byte, 1024))
}

func TestRLE8RoundTrip_UniformNonZeroBlock(t *testing.T) {
	runRLE8RoundTrip(t, bytes.Repeat([]byte{0x7E}, 1024))
}

func TestRLE8RoundTrip_Empty(t *testing.T) {
	runRLE8RoundTrip(t, []byte{})
}

func TestRLE8Decompress_TruncatedRunMissingCount(t *testing.T) {
	// A run marker (two repeated bytes) with nothing after it: the decoder
	// must fail rather than guess a repeat count.
	data := []byte{0x42, 0x9, 0x9}
	out := make([]byte, 16)
	writer := bytewriter.New(out)

	_, err := compression.DecompressRLE8(bytes.NewReader(data), writer)
	if err == nil {
		t.Fatal("expected an error decoding a truncated run, got none")
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expected error to wrap io.ErrUnexpectedEOF, got: %s", err.Error())
	}
}

func runRLE8CompressCase(t *testing.T, tc rle8Case) {
	out := make([]byte, len(tc.output)*2+8)
	writer := bytewriter.New(out)

	n, err := compression.CompressRLE8(bytes.NewReader(tc.input), writer)
	if err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}
	if n != int64(len(tc.output)) {
		t.Errorf("wrote %d bytes, want %d", n, len(tc.output))
	}
	if !bytes.Equal(tc.output, out[:n]) {
		t.Errorf("got %q, want %q", out[:n], tc.output)
	}
}

func runRLE8RoundTrip(t *testing.T, original []byte) {
	compressed := make([]byte, len(original)*2+8)
	compressedWriter := bytewriter.New(compressed)

	n, err := compression.CompressRLE8(bytes.NewReader(original), compressedWriter)
	if err != nil {
		t.Fatalf("compress failed: %s", err.Error())
	}
	t.Logf("compressed %d bytes to %d", len(original), n)

	restored := make([]byte, len(original))
	restoredWriter := bytewriter.New(restored)

	n, err = compression.DecompressRLE8(bytes.NewReader(compressed[:n]), restoredWriter)
	if err != nil {
		t.Fatalf("decompress failed: %s", err.Error())
	}
	if n != int64(len(original)) {
		t.Errorf("decompressed size %d, want %d", n, len(original))
	}
	if !bytes.Equal(original, restored) {
		t.Error("decompressed data doesn't match original")
	}
}
