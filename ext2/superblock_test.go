package ext2

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSuperblockEncodeDecodeRoundTrip(t *testing.T) {
	sb := &Superblock{
		InodesCount:     128,
		BlocksCount:     256,
		FreeBlocksCount: 200,
		FreeInodesCount: 120,
		FirstDataBlock:  1,
		BlocksPerGroup:  256,
		FragsPerGroup:   256,
		InodesPerGroup:  128,
		Magic:           SuperblockMagic,
		RevLevel:        RevisionGood,
	}
	copy(sb.VolumeName[:], "testvol")

	buf := sb.Encode()
	require.Len(t, buf, BlockSize)

	decoded, err := DecodeSuperblock(buf)
	require.NoError(t, err)
	require.Equal(t, sb.InodesCount, decoded.InodesCount)
	require.Equal(t, sb.BlocksCount, decoded.BlocksCount)
	require.Equal(t, sb.FreeBlocksCount, decoded.FreeBlocksCount)
	require.Equal(t, sb.Magic, decoded.Magic)
	require.Equal(t, "testvol", decoded.VolumeNameString())
}

func TestDecodeSuperblockRejectsBadMagic(t *testing.T) {
	sb := &Superblock{BlocksPerGroup: 1, InodesPerGroup: 1, Magic: 0x1234}
	buf := sb.Encode()
	_, err := DecodeSuperblock(buf)
	require.Error(t, err)
}

func TestGroupCount(t *testing.T) {
	sb := &Superblock{BlocksCount: 100, BlocksPerGroup: 30}
	require.Equal(t, uint32(4), sb.GroupCount())
}

func TestInodeSizeOnDiskRevisionGood(t *testing.T) {
	sb := &Superblock{RevLevel: RevisionGood, InodeSize: 256}
	require.Equal(t, uint16(DefaultRevisionInodeSize), sb.InodeSizeOnDisk())
}

func TestInodeSizeOnDiskRevisionDynamic(t *testing.T) {
	sb := &Superblock{RevLevel: RevisionDynamic, InodeSize: 256}
	require.Equal(t, uint16(256), sb.InodeSizeOnDisk())
}
