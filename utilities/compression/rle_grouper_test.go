package compression_test

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dargueta/ext2shell/utilities/compression"
)

// stubbornReader is an io.ByteScanner that serves bytes from Data and, once
// exhausted, always returns Err instead of io.EOF -- for exercising the
// grouper's error propagation (a failing block device read, say) separately
// from ordinary end-of-stream.
type stubbornReader struct {
	Data *bytes.Reader
	Err  error
}

func (r stubbornReader) ReadByte() (byte, error) {
	b, err := r.Data.ReadByte()
	if err == nil {
		return b, nil
	}
	if errors.Is(err, io.EOF) {
		return 0, r.Err
	}
	panic(fmt.Errorf("unexpected error from underlying reader: %w", err))
}

func (r stubbornReader) UnreadByte() error {
	return r.Data.UnreadByte()
}

type groupCase struct {
	name string
	data []byte
	want compression.ByteRun
}

// These mirror the byte patterns an ext2 bitmap or dirent-padding block
// actually produces: an empty block, a lone set bit, and a run of cleared
// bits.
var singleRunCases = []groupCase{
	{"empty_block", []byte{}, compression.InvalidRLERun},
	{"two_clear_bits_then_set", []byte{0, 0, 1, 0, 0, 0, 0}, compression.ByteRun{Byte: 0, RunLength: 2}},
	{"single_set_byte", []byte{0x06, 0x01, 0x05, 0x14, 0x1f}, compression.ByteRun{Byte: 0x06, RunLength: 1}},
	{"all_same_byte", bytes.Repeat([]byte{0x09}, 6), compression.ByteRun{Byte: 0x09, RunLength: 6}},
}

func TestRLEGrouperGetNextRun_SingleCall(t *testing.T) {
	for _, tc := range singleRunCases {
		t.Run(tc.name, func(t *testing.T) {
			grouper := compression.NewRLEGrouperFromByteScanner(bytes.NewReader(tc.data))
			got, _ := grouper.GetNextRun()
			assert.Equal(t, tc.want, got)
		})
	}
}

type groupSequenceCase struct {
	name string
	data []byte
	runs []compression.ByteRun
}

var sequenceCases = []groupSequenceCase{
	{"empty", []byte{}, []compression.ByteRun{compression.InvalidRLERun}},
	{
		"sparse_directory_padding",
		[]byte{1, 9, 4, 4, 4, 4, 4, 6, 6, 0, 1, 0, 0, 0},
		[]compression.ByteRun{
			{Byte: 1, RunLength: 1}, {Byte: 9, RunLength: 1}, {Byte: 4, RunLength: 5},
			{Byte: 6, RunLength: 2}, {Byte: 0, RunLength: 1}, {Byte: 1, RunLength: 1},
			{Byte: 0, RunLength: 3}, compression.InvalidRLERun,
		},
	},
	{
		"leading_run",
		[]byte{1, 1, 1, 127},
		[]compression.ByteRun{{Byte: 1, RunLength: 3}, {Byte: 127, RunLength: 1}, compression.InvalidRLERun},
	},
	{
		"trailing_run",
		[]byte{127, 127, 1, 1, 1},
		[]compression.ByteRun{{Byte: 127, RunLength: 2}, {Byte: 1, RunLength: 3}, compression.InvalidRLERun},
	},
	{
		"trailing_run_with_single_after",
		[]byte{127, 127, 1, 1, 1, 1, 3},
		[]compression.ByteRun{
			{Byte: 127, RunLength: 2}, {Byte: 1, RunLength: 4}, {Byte: 3, RunLength: 1},
			compression.InvalidRLERun,
		},
	},
}

func TestRLEGrouperGetNextRun_FullSequences(t *testing.T) {
	for _, tc := range sequenceCases {
		t.Run(tc.name, func(t *testing.T) {
			grouper := compression.NewRLEGrouperFromByteScanner(bytes.NewReader(tc.data))
			hitEOF := false

			for i, want := range tc.runs {
				require.Falsef(t, hitEOF, "grouper hit EOF early, on run %d", i)

				got, err := grouper.GetNextRun()
				assert.Equalf(t, want, got, "run %d is wrong", i)

				if want == compression.InvalidRLERun {
					assert.ErrorIs(t, err, io.EOF, "expected io.EOF sentinel error")
					hitEOF = true
				}
			}
			assert.True(t, hitEOF, "never hit EOF sentinel")
		})
	}
}

func TestRLEGrouperGetNextRun_ErrorOnFirstRead(t *testing.T) {
	wantErr := errors.New("simulated device read error")
	reader := stubbornReader{Data: bytes.NewReader(nil), Err: wantErr}

	grouper := compression.NewRLEGrouperFromByteScanner(reader)
	got, err := grouper.GetNextRun()

	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, compression.InvalidRLERun, got)
}

func TestRLEGrouperGetNextRun_ErrorAfterLastRun(t *testing.T) {
	wantErr := errors.New("simulated device read error")
	reader := stubbornReader{Data: bytes.NewReader([]byte{1, 1, 1, 2, 2, 3}), Err: wantErr}
	grouper := compression.NewRLEGrouperFromByteScanner(reader)

	got, err := grouper.GetNextRun()
	require.NoError(t, err)
	assert.Equal(t, compression.ByteRun{Byte: 1, RunLength: 3}, got)

	got, err = grouper.GetNextRun()
	require.NoError(t, err)
	assert.Equal(t, compression.ByteRun{Byte: 2, RunLength: 2}, got)

	got, err = grouper.GetNextRun()
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, compression.InvalidRLERun, got)
}

func TestRLEGrouperGetNextRun_ErrorMidRun(t *testing.T) {
	wantErr := errors.New("simulated device read error")
	reader := stubbornReader{Data: bytes.NewReader([]byte{1, 1, 1, 2, 2}), Err: wantErr}
	grouper := compression.NewRLEGrouperFromByteScanner(reader)

	got, err := grouper.GetNextRun()
	require.NoError(t, err)
	assert.Equal(t, compression.ByteRun{Byte: 1, RunLength: 3}, got)

	_, err = grouper.GetNextRun()
	assert.ErrorIs(t, err, wantErr)
}
