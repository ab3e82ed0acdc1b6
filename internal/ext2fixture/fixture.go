// Package ext2fixture builds a minimal, valid, single-group in-memory ext2
// image for internal package tests that need a real Device and superblock
// but can't depend on the engine package (that would create an import
// cycle, since engine itself depends on these internal packages).
package ext2fixture

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"

	"github.com/dargueta/ext2shell/ext2"
	"github.com/dargueta/ext2shell/internal/blockdev"
	"github.com/dargueta/ext2shell/internal/direntedit"
	"github.com/dargueta/ext2shell/internal/inodeio"
)

// Layout mirrors volumetest's: one group, 24 blocks, root directory at
// block 9 seeded with "." and "..".
const (
	TotalBlocks    = 24
	InodesPerGroup = 32
	BlockBitmapNum = 3
	InodeBitmapNum = 4
	InodeTableNum  = 5
	InodeTableLen  = 4
	RootBlockNum   = 9
	FirstFreeBlock = 10
)

// Fixture bundles everything a test needs to call into internal packages
// directly.
type Fixture struct {
	Dev  *blockdev.Device
	Sb   *ext2.Superblock
	Bgdt []ext2.GroupDescriptor
}

// Build constructs the image described above and returns a Fixture wired to
// it.
func Build(t *testing.T) Fixture {
	t.Helper()

	raw := make([]byte, TotalBlocks*ext2.BlockSize)
	stream := bytesextra.NewReadWriteSeeker(raw)
	dev := blockdev.New(stream)

	sb := &ext2.Superblock{
		InodesCount:     InodesPerGroup,
		BlocksCount:     TotalBlocks,
		FreeBlocksCount: TotalBlocks - FirstFreeBlock,
		FreeInodesCount: InodesPerGroup - 2,
		FirstDataBlock:  1,
		BlocksPerGroup:  TotalBlocks,
		FragsPerGroup:   TotalBlocks,
		InodesPerGroup:  InodesPerGroup,
		Magic:           ext2.SuperblockMagic,
		RevLevel:        ext2.RevisionGood,
	}

	// Blocks 1..RootBlockNum (superblock, BGDT, bitmaps, inode table, root
	// directory) are in use; bit b stands for block b+FirstDataBlock.
	blockBitmap := make([]byte, ext2.BlockSize)
	for bit := 0; bit < FirstFreeBlock-1; bit++ {
		setBit(blockBitmap, bit)
	}
	require.NoError(t, dev.WriteBlock(BlockBitmapNum, blockBitmap))

	inodeBitmap := make([]byte, ext2.BlockSize)
	setBit(inodeBitmap, 0)
	setBit(inodeBitmap, 1)
	require.NoError(t, dev.WriteBlock(InodeBitmapNum, inodeBitmap))

	gd := ext2.GroupDescriptor{
		BlockBitmap:     BlockBitmapNum,
		InodeBitmap:     InodeBitmapNum,
		InodeTable:      InodeTableNum,
		FreeBlocksCount: uint16(TotalBlocks - FirstFreeBlock),
		FreeInodesCount: InodesPerGroup - 2,
		UsedDirsCount:   1,
	}

	require.NoError(t, dev.WriteSuperblock(sb))
	require.NoError(t, dev.WriteGroupDescriptor(0, &gd))

	for b := uint32(InodeTableNum); b < InodeTableNum+InodeTableLen; b++ {
		require.NoError(t, dev.WriteBlock(b, make([]byte, ext2.BlockSize)))
	}

	bgdt := []ext2.GroupDescriptor{gd}

	rootDirBlock := make([]byte, ext2.BlockSize)
	size := uint32(0)
	require.NoError(t, direntedit.Insert(rootDirBlock, &size, ".", ext2.RootInode, ext2.FileTypeDirectory))
	require.NoError(t, direntedit.Insert(rootDirBlock, &size, "..", ext2.RootInode, ext2.FileTypeDirectory))
	require.NoError(t, dev.WriteBlock(RootBlockNum, rootDirBlock))

	rootInode := &ext2.Inode{
		Mode:       ext2.ModeDirectory | ext2.DefaultDirPerm,
		LinksCount: 2,
		Size:       size,
		Blocks:     ext2.BlockSize / 512,
	}
	rootInode.Block[0] = RootBlockNum
	require.NoError(t, inodeio.Write(dev, sb, bgdt, ext2.RootInode, rootInode))

	for b := FirstFreeBlock; b < TotalBlocks; b++ {
		require.NoError(t, dev.WriteBlock(uint32(b), make([]byte, ext2.BlockSize)))
	}

	return Fixture{Dev: dev, Sb: sb, Bgdt: bgdt}
}

func setBit(buf []byte, bit int) {
	buf[bit/8] |= 1 << uint(bit%8)
}
