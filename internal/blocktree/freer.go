package blocktree

import (
	"github.com/sirupsen/logrus"

	"github.com/dargueta/ext2shell/ext2"
	"github.com/dargueta/ext2shell/internal/bitmapio"
	"github.com/dargueta/ext2shell/internal/blockdev"
)

// FreeBlockTree releases every non-zero data block and indirection block
// reachable from inode, post-order (a data block is freed before the
// indirection block that pointed to it, so the indirection block's
// contents stay valid while it's still being read). All 15 pointers are
// zeroed and Blocks is reset to 0.
func FreeBlockTree(dev *blockdev.Device, sb *ext2.Superblock, bgdt []ext2.GroupDescriptor, log logrus.FieldLogger, inode *ext2.Inode) error {
	for i := 0; i < ext2.NumDirectBlocks; i++ {
		if inode.Block[i] != 0 {
			if err := bitmapio.DeallocateBlock(dev, sb, bgdt, log, inode.Block[i]); err != nil {
				return err
			}
			inode.Block[i] = 0
		}
	}

	if err := freeIndirectLevel(dev, sb, bgdt, log, inode.Block[ext2.SingleIndirectIdx], 0); err != nil {
		return err
	}
	if err := freeIndirectLevel(dev, sb, bgdt, log, inode.Block[ext2.DoubleIndirectIdx], 1); err != nil {
		return err
	}
	if err := freeIndirectLevel(dev, sb, bgdt, log, inode.Block[ext2.TripleIndirectIdx], 2); err != nil {
		return err
	}

	inode.Block[ext2.SingleIndirectIdx] = 0
	inode.Block[ext2.DoubleIndirectIdx] = 0
	inode.Block[ext2.TripleIndirectIdx] = 0
	inode.Blocks = 0
	return nil
}

// freeIndirectLevel recursively frees the subtree rooted at blockNum, where
// level 0 means blockNum's entries are data blocks, level 1 means they're
// single-indirect blocks, and level 2 means they're double-indirect blocks.
// blockNum itself is freed last.
func freeIndirectLevel(dev *blockdev.Device, sb *ext2.Superblock, bgdt []ext2.GroupDescriptor, log logrus.FieldLogger, blockNum uint32, level int) error {
	if blockNum == 0 {
		return nil
	}

	block, err := dev.ReadBlock(blockNum)
	if err != nil {
		return err
	}

	for idx := 0; idx < pointersPerBlock; idx++ {
		offset := idx * 4
		ptr := uint32(block[offset]) | uint32(block[offset+1])<<8 |
			uint32(block[offset+2])<<16 | uint32(block[offset+3])<<24
		if ptr == 0 {
			continue
		}

		if level == 0 {
			if err := bitmapio.DeallocateBlock(dev, sb, bgdt, log, ptr); err != nil {
				return err
			}
		} else if err := freeIndirectLevel(dev, sb, bgdt, log, ptr, level-1); err != nil {
			return err
		}
	}

	return bitmapio.DeallocateBlock(dev, sb, bgdt, log, blockNum)
}
