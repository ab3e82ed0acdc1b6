// Package blocktree walks the 12 direct + single/double/triple indirect
// block pointers of an inode: reader.go yields the file's byte stream
// (spec.md §4.5), freer.go releases every block the tree references
// (spec.md §4.6).
package blocktree

import (
	"github.com/noxer/bytewriter"

	"github.com/dargueta/ext2shell/ext2"
	"github.com/dargueta/ext2shell/internal/blockdev"
)

const pointersPerBlock = ext2.PointersPerIndirectBlock

// singleRangeEnd / doubleRangeEnd / tripleRangeEnd are the exclusive upper
// logical block indices of the spans each indirection level covers,
// following directly after the 12 direct pointers.
var (
	singleRangeEnd = ext2.NumDirectBlocks + pointersPerBlock
	doubleRangeEnd = singleRangeEnd + pointersPerBlock*pointersPerBlock
	tripleRangeEnd = doubleRangeEnd + pointersPerBlock*pointersPerBlock*pointersPerBlock
)

// ReadFile returns the first inode.Size bytes of the file's data, reading
// through holes as zeroes. It never allocates blocks.
func ReadFile(dev *blockdev.Device, inode *ext2.Inode) ([]byte, error) {
	out := make([]byte, inode.Size)
	if inode.Size == 0 {
		return out, nil
	}

	w := bytewriter.New(out)
	totalBlocks := (int(inode.Size) + ext2.BlockSize - 1) / ext2.BlockSize

	for logical := 0; logical < totalBlocks; logical++ {
		physical, err := BlockPointerAt(dev, inode, uint32(logical))
		if err != nil {
			return nil, err
		}

		block, err := dev.ReadBlock(physical)
		if err != nil {
			return nil, err
		}

		remaining := int(inode.Size) - logical*ext2.BlockSize
		n := ext2.BlockSize
		if remaining < n {
			n = remaining
		}
		if _, err := w.Write(block[:n]); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// BlockPointerAt maps a logical block index to its physical block number
// (0 meaning a hole) by walking the appropriate indirection level. Any zero
// pointer encountered partway down the tree makes everything beneath it a
// hole too.
func BlockPointerAt(dev *blockdev.Device, inode *ext2.Inode, logical uint32) (uint32, error) {
	l := int(logical)

	switch {
	case l < ext2.NumDirectBlocks:
		return inode.Block[l], nil

	case l < singleRangeEnd:
		return indirectLookup(dev, inode.Block[ext2.SingleIndirectIdx], l-ext2.NumDirectBlocks)

	case l < doubleRangeEnd:
		rel := l - singleRangeEnd
		outerIdx := rel / pointersPerBlock
		innerIdx := rel % pointersPerBlock
		outerPtr, err := indirectLookup(dev, inode.Block[ext2.DoubleIndirectIdx], outerIdx)
		if err != nil || outerPtr == 0 {
			return 0, err
		}
		return indirectLookup(dev, outerPtr, innerIdx)

	case l < tripleRangeEnd:
		rel := l - doubleRangeEnd
		outerIdx := rel / (pointersPerBlock * pointersPerBlock)
		mid := rel % (pointersPerBlock * pointersPerBlock)
		midIdx := mid / pointersPerBlock
		innerIdx := mid % pointersPerBlock

		outerPtr, err := indirectLookup(dev, inode.Block[ext2.TripleIndirectIdx], outerIdx)
		if err != nil || outerPtr == 0 {
			return 0, err
		}
		midPtr, err := indirectLookup(dev, outerPtr, midIdx)
		if err != nil || midPtr == 0 {
			return 0, err
		}
		return indirectLookup(dev, midPtr, innerIdx)

	default:
		return 0, nil
	}
}

// indirectLookup reads the idx'th uint32 out of the indirection block
// pointed to by blockNum. blockNum == 0 means the whole subtree is a hole.
func indirectLookup(dev *blockdev.Device, blockNum uint32, idx int) (uint32, error) {
	if blockNum == 0 {
		return 0, nil
	}
	block, err := dev.ReadBlock(blockNum)
	if err != nil {
		return 0, err
	}
	offset := idx * 4
	return uint32(block[offset]) | uint32(block[offset+1])<<8 |
		uint32(block[offset+2])<<16 | uint32(block[offset+3])<<24, nil
}
