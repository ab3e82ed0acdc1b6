package direntedit

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dargueta/ext2shell/ext2"
)

func newRootBlock(t *testing.T) ([]byte, uint32) {
	buf := make([]byte, ext2.BlockSize)
	size := uint32(0)
	require.NoError(t, Insert(buf, &size, ".", 2, ext2.FileTypeDirectory))
	require.NoError(t, Insert(buf, &size, "..", 2, ext2.FileTypeDirectory))
	return buf, size
}

func TestInsertAndLookup(t *testing.T) {
	buf, size := newRootBlock(t)
	require.NoError(t, Insert(buf, &size, "hello.txt", 12, ext2.FileTypeRegular))

	entry, _, err := Lookup(buf, size, "hello.txt")
	require.NoError(t, err)
	require.Equal(t, uint32(12), entry.Inode)
	require.Equal(t, uint8(ext2.FileTypeRegular), entry.FileType)
	require.NoError(t, ValidateBlock(buf))
}

func TestLookupMissingReturnsNotFound(t *testing.T) {
	buf, size := newRootBlock(t)
	_, _, err := Lookup(buf, size, "nope")
	require.Error(t, err)
}

func TestDeleteLastRecordCoalescesIntoPrevious(t *testing.T) {
	buf, size := newRootBlock(t)
	require.NoError(t, Insert(buf, &size, "a", 12, ext2.FileTypeRegular))
	require.NoError(t, Insert(buf, &size, "b", 13, ext2.FileTypeRegular))

	require.NoError(t, Delete(buf, "b"))
	require.NoError(t, ValidateBlock(buf))

	_, _, err := Lookup(buf, ext2.BlockSize, "b")
	require.Error(t, err)

	entry, _, err := Lookup(buf, ext2.BlockSize, "a")
	require.NoError(t, err)
	require.Equal(t, uint32(12), entry.Inode)
}

func TestDeleteNonLastRecordShiftsTail(t *testing.T) {
	buf, size := newRootBlock(t)
	require.NoError(t, Insert(buf, &size, "a", 12, ext2.FileTypeRegular))
	require.NoError(t, Insert(buf, &size, "b", 13, ext2.FileTypeRegular))
	require.NoError(t, Insert(buf, &size, "c", 14, ext2.FileTypeRegular))

	require.NoError(t, Delete(buf, "b"))
	require.NoError(t, ValidateBlock(buf))

	_, _, err := Lookup(buf, ext2.BlockSize, "b")
	require.Error(t, err)

	a, _, err := Lookup(buf, ext2.BlockSize, "a")
	require.NoError(t, err)
	require.Equal(t, uint32(12), a.Inode)

	c, _, err := Lookup(buf, ext2.BlockSize, "c")
	require.NoError(t, err)
	require.Equal(t, uint32(14), c.Inode)
}

func TestInsertReusesTombstone(t *testing.T) {
	buf, _ := newRootBlock(t)

	// Manually plant a tombstone spanning the rest of the block, the shape
	// a deleted single-record directory leaves behind. ".." is shrunk to its
	// footprint first so the walk reaches the tombstone as its own record.
	dotdot := &ext2.DirectoryEntry{Inode: 2, RecLen: 12, NameLen: 2, FileType: ext2.FileTypeDirectory, Name: ".."}
	require.NoError(t, ext2.EncodeDirentAt(buf, 12, dotdot))
	tombstone := &ext2.DirectoryEntry{Inode: 0, RecLen: ext2.BlockSize - 24}
	require.NoError(t, ext2.EncodeDirentAt(buf, 24, tombstone))
	size := uint32(ext2.BlockSize)

	require.NoError(t, Insert(buf, &size, "new", 99, ext2.FileTypeRegular))
	entry, _, err := Lookup(buf, ext2.BlockSize, "new")
	require.NoError(t, err)
	require.Equal(t, uint32(99), entry.Inode)
	require.NoError(t, ValidateBlock(buf))
}

func TestInsertFailsWhenDirectoryFull(t *testing.T) {
	buf, size := newRootBlock(t)
	var err error
	for i := 0; i < 200 && err == nil; i++ {
		err = Insert(buf, &size, longName(i), uint32(i+100), ext2.FileTypeRegular)
	}
	require.Error(t, err)
	require.ErrorContains(t, err, "no room")
}

func longName(i int) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz"
	return "file-" + string(alphabet[i%len(alphabet)]) + string(alphabet[(i/len(alphabet))%len(alphabet)])
}

func TestLiveEntryCount(t *testing.T) {
	buf, size := newRootBlock(t)
	count, err := LiveEntryCount(buf)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	require.NoError(t, Insert(buf, &size, "x", 50, ext2.FileTypeRegular))
	count, err = LiveEntryCount(buf)
	require.NoError(t, err)
	require.Equal(t, 3, count)
}
