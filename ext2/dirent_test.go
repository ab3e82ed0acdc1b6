package ext2

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDirentFootprint(t *testing.T) {
	e := &DirectoryEntry{Name: "abc"}
	require.Equal(t, Align4(DirentHeaderSize+3), e.Footprint())
}

func TestEncodeParseDirentRoundTrip(t *testing.T) {
	buf := make([]byte, BlockSize)
	e := &DirectoryEntry{Inode: 12, RecLen: 16, NameLen: 5, FileType: FileTypeRegular, Name: "hello"}
	require.NoError(t, EncodeDirentAt(buf, 0, e))

	parsed, err := ParseDirentAt(buf, 0)
	require.NoError(t, err)
	require.Equal(t, e.Inode, parsed.Inode)
	require.Equal(t, e.RecLen, parsed.RecLen)
	require.Equal(t, e.Name, parsed.Name)
	require.Equal(t, e.FileType, parsed.FileType)
}

func TestEncodeDirentRejectsOversizedName(t *testing.T) {
	buf := make([]byte, BlockSize)
	e := &DirectoryEntry{Inode: 1, RecLen: 8, NameLen: 20, FileType: FileTypeRegular, Name: "this-name-is-too-long"}
	require.Error(t, EncodeDirentAt(buf, 0, e))
}

func TestParseDirentStopsAtZeroRecLen(t *testing.T) {
	buf := make([]byte, BlockSize) // all-zero: inode=0, rec_len=0
	parsed, err := ParseDirentAt(buf, 0)
	require.NoError(t, err)
	require.Equal(t, uint16(0), parsed.RecLen)
}
