package engine_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dargueta/ext2shell/ext2"
	"github.com/dargueta/ext2shell/voerr"
	"github.com/dargueta/ext2shell/volumetest"
)

func TestTouchThenLsThenRm(t *testing.T) {
	vol := volumetest.Build(t)

	require.NoError(t, vol.Touch("hello.txt"))

	entries, err := vol.Ls("")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "hello.txt", entries[0].Name)
	require.Equal(t, uint8(ext2.FileTypeRegular), entries[0].FileType)

	require.NoError(t, vol.Rm("hello.txt"))
	entries, err = vol.Ls("")
	require.NoError(t, err)
	require.Len(t, entries, 0)
}

func TestTouchTwiceFailsWithAlreadyExists(t *testing.T) {
	vol := volumetest.Build(t)
	require.NoError(t, vol.Touch("a"))
	require.ErrorIs(t, vol.Touch("a"), voerr.ErrAlreadyExists)

	entries, err := vol.Ls("")
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestLsOnFileReturnsItsOwnEntry(t *testing.T) {
	vol := volumetest.Build(t)
	require.NoError(t, vol.Touch("hello.txt"))

	entries, err := vol.Ls("hello.txt")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "hello.txt", entries[0].Name)
	require.Equal(t, uint8(ext2.FileTypeRegular), entries[0].FileType)
}

func TestCatReturnsEmptyForFreshFile(t *testing.T) {
	vol := volumetest.Build(t)
	require.NoError(t, vol.Touch("empty.txt"))

	data, err := vol.Cat("empty.txt")
	require.NoError(t, err)
	require.Empty(t, data)
}

func TestMkdirRmdirLinkCountRoundTrip(t *testing.T) {
	vol := volumetest.Build(t)

	rootAttrBefore, err := vol.Attr(".")
	require.NoError(t, err)

	require.NoError(t, vol.Mkdir("sub"))
	rootAttrAfterMkdir, err := vol.Attr(".")
	require.NoError(t, err)
	require.Equal(t, rootAttrBefore.LinksCount+1, rootAttrAfterMkdir.LinksCount)

	entries, err := vol.Ls("")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, uint8(ext2.FileTypeDirectory), entries[0].FileType)

	require.NoError(t, vol.Rmdir("sub"))
	rootAttrAfterRmdir, err := vol.Attr(".")
	require.NoError(t, err)
	require.Equal(t, rootAttrBefore.LinksCount, rootAttrAfterRmdir.LinksCount)

	entries, err = vol.Ls("")
	require.NoError(t, err)
	require.Len(t, entries, 0)
}

func TestRmdirFailsWhenNotEmpty(t *testing.T) {
	vol := volumetest.Build(t)
	require.NoError(t, vol.Mkdir("sub"))
	require.NoError(t, vol.Cd("sub"))
	require.NoError(t, vol.Touch("file"))
	require.NoError(t, vol.Cd(".."))

	err := vol.Rmdir("sub")
	require.Error(t, err)
}

func TestCdAndPwd(t *testing.T) {
	vol := volumetest.Build(t)
	require.NoError(t, vol.Mkdir("sub"))
	require.NoError(t, vol.Cd("sub"))
	require.Equal(t, "/sub", vol.Pwd())

	require.NoError(t, vol.Cd(".."))
	require.Equal(t, "/", vol.Pwd())
}

func TestRenameInPlace(t *testing.T) {
	vol := volumetest.Build(t)
	require.NoError(t, vol.Touch("old.txt"))
	require.NoError(t, vol.Rename("old.txt", "new.txt"))

	entries, err := vol.Ls("")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "new.txt", entries[0].Name)
}

func TestRenameToExistingNameFails(t *testing.T) {
	vol := volumetest.Build(t)
	require.NoError(t, vol.Touch("a"))
	require.NoError(t, vol.Touch("b"))
	require.Error(t, vol.Rename("a", "b"))
}

func TestMvAcrossDirectoriesUpdatesLinkCounts(t *testing.T) {
	vol := volumetest.Build(t)
	require.NoError(t, vol.Mkdir("src"))
	require.NoError(t, vol.Mkdir("dst"))
	require.NoError(t, vol.Cd("src"))
	require.NoError(t, vol.Mkdir("child"))
	require.NoError(t, vol.Cd(".."))

	srcBefore, err := vol.Attr("src")
	require.NoError(t, err)
	dstBefore, err := vol.Attr("dst")
	require.NoError(t, err)

	require.NoError(t, vol.Mv("src/child", "dst/child"))

	srcAfter, err := vol.Attr("src")
	require.NoError(t, err)
	dstAfter, err := vol.Attr("dst")
	require.NoError(t, err)
	require.Equal(t, srcBefore.LinksCount-1, srcAfter.LinksCount)
	require.Equal(t, dstBefore.LinksCount+1, dstAfter.LinksCount)

	require.NoError(t, vol.Cd("dst"))
	entries, err := vol.Ls("")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "child", entries[0].Name)

	// The moved directory's ".." must now point back at dst, not src.
	require.NoError(t, vol.Cd("child"))
	require.Equal(t, "/dst/child", vol.Pwd())
	require.NoError(t, vol.Cd(".."))
	require.Equal(t, "/dst", vol.Pwd())
}

func TestMvAndMvBackRoundTrip(t *testing.T) {
	vol := volumetest.Build(t)
	require.NoError(t, vol.Mkdir("a"))
	require.NoError(t, vol.Mkdir("b"))
	require.NoError(t, vol.Touch("a/file"))

	require.NoError(t, vol.Mv("a/file", "b/file"))
	require.NoError(t, vol.Mv("b/file", "a/file"))

	require.NoError(t, vol.Cd("a"))
	entries, err := vol.Ls("")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "file", entries[0].Name)
}

func TestCpCopiesContentIndependently(t *testing.T) {
	vol := volumetest.Build(t)
	require.NoError(t, vol.Touch("src"))
	require.NoError(t, vol.Cp("src", "dst"))

	entries, err := vol.Ls("")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.NotEqual(t, entries[0].Inode, entries[1].Inode)

	srcData, err := vol.Cat("src")
	require.NoError(t, err)
	dstData, err := vol.Cat("dst")
	require.NoError(t, err)
	require.Equal(t, srcData, dstData)
}

func TestNameBoundary255And256Bytes(t *testing.T) {
	vol := volumetest.Build(t)

	name255 := strings.Repeat("x", 255)
	require.NoError(t, vol.Touch(name255))

	name256 := strings.Repeat("y", 256)
	require.Error(t, vol.Touch(name256))
}

func TestInfoAndInfoCSVProduceOutput(t *testing.T) {
	vol := volumetest.Build(t)

	var buf bytes.Buffer
	require.NoError(t, vol.Info(&buf))
	require.Contains(t, buf.String(), "Magic:")

	buf.Reset()
	require.NoError(t, vol.InfoCSV(&buf))
	require.Contains(t, buf.String(), "magic")
}

func TestConsistencyCheckPassesOnFreshImage(t *testing.T) {
	vol := volumetest.Build(t)
	require.NoError(t, vol.Mkdir("sub"))
	require.NoError(t, vol.Touch("file"))

	require.NoError(t, vol.CheckConsistency())
}

func TestConsistencyCheckCatchesUsedDirsMismatch(t *testing.T) {
	vol := volumetest.Build(t)
	require.NoError(t, vol.Mkdir("sub"))
	require.NoError(t, vol.CheckConsistency())

	vol.GroupDescs[0].UsedDirsCount++
	require.Error(t, vol.CheckConsistency())
}

func TestRmdirRestoresUsedDirsConsistency(t *testing.T) {
	vol := volumetest.Build(t)
	require.NoError(t, vol.Mkdir("sub"))
	require.NoError(t, vol.Rmdir("sub"))

	require.NoError(t, vol.CheckConsistency())
}
