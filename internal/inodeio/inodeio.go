// Package inodeio translates an inode number into its (group, slot offset)
// location in the inode table and performs the read-modify-write needed to
// read or update one inode record.
package inodeio

import (
	"fmt"

	"github.com/dargueta/ext2shell/ext2"
	"github.com/dargueta/ext2shell/internal/blockdev"
	"github.com/dargueta/ext2shell/voerr"
)

// Locate computes the group index, slot index within that group, and the
// absolute byte offset of inode n's slot in the image.
func Locate(sb *ext2.Superblock, bgdt []ext2.GroupDescriptor, n uint32) (group, slot uint32, byteOffset int64, err error) {
	if n == 0 {
		return 0, 0, 0, voerr.ErrInvalidImage.WithMessage("inode 0 is never valid")
	}

	group = (n - 1) / sb.InodesPerGroup
	slot = (n - 1) % sb.InodesPerGroup
	if int(group) >= len(bgdt) {
		return 0, 0, 0, voerr.ErrInvalidImage.WithMessage(
			fmt.Sprintf("inode %d maps to out-of-range group %d", n, group))
	}

	inodeSize := int64(sb.InodeSizeOnDisk())
	byteOffset = int64(bgdt[group].InodeTable)*ext2.BlockSize + int64(slot)*inodeSize
	return group, slot, byteOffset, nil
}

// Read loads inode n from the table. The declared on-disk inode size may
// exceed 128 bytes (revision 1); only the first 128 bytes are decoded. Write
// preserves the rest of the slot when the inode is written back.
func Read(dev *blockdev.Device, sb *ext2.Superblock, bgdt []ext2.GroupDescriptor, n uint32) (*ext2.Inode, error) {
	_, _, offset, err := Locate(sb, bgdt, n)
	if err != nil {
		return nil, err
	}

	buf, err := readAt(dev, offset, int(sb.InodeSizeOnDisk()))
	if err != nil {
		return nil, err
	}
	return ext2.DecodeInode(buf)
}

// Write flushes inode n back to its table slot. When the declared on-disk
// inode size is larger than 128 bytes, the full slot is read first so the
// bytes beyond the fixed-layout portion are preserved verbatim, per
// spec.md's read-modify-write guidance for revision-1 images.
func Write(dev *blockdev.Device, sb *ext2.Superblock, bgdt []ext2.GroupDescriptor, n uint32, in *ext2.Inode) error {
	_, _, offset, err := Locate(sb, bgdt, n)
	if err != nil {
		return err
	}

	slotSize := int(sb.InodeSizeOnDisk())
	slot, err := readAt(dev, offset, slotSize)
	if err != nil {
		return err
	}
	copy(slot[:ext2.RawInodeSize], in.Encode())
	return writeAt(dev, offset, slot)
}

// readAt/writeAt operate across the 1024-byte block granularity the device
// exposes, since an inode slot rarely aligns with a block boundary.
func readAt(dev *blockdev.Device, offset int64, length int) ([]byte, error) {
	out := make([]byte, length)
	startBlock := uint32(offset / ext2.BlockSize)
	endBlock := uint32((offset + int64(length) - 1) / ext2.BlockSize)

	for b := startBlock; b <= endBlock; b++ {
		block, err := dev.ReadBlock(b)
		if err != nil {
			return nil, err
		}

		blockStart := int64(b) * ext2.BlockSize
		copyFromBlock(out, block, offset, int64(length), blockStart)
	}
	return out, nil
}

func writeAt(dev *blockdev.Device, offset int64, data []byte) error {
	length := int64(len(data))
	startBlock := uint32(offset / ext2.BlockSize)
	endBlock := uint32((offset + length - 1) / ext2.BlockSize)

	for b := startBlock; b <= endBlock; b++ {
		block, err := dev.ReadBlock(b)
		if err != nil {
			return err
		}

		blockStart := int64(b) * ext2.BlockSize
		copyIntoBlock(block, data, offset, length, blockStart)

		if err := dev.WriteBlock(b, block); err != nil {
			return err
		}
	}
	return nil
}

func copyFromBlock(dst, block []byte, offset, length, blockStart int64) {
	rangeStart := max64(offset, blockStart)
	rangeEnd := min64(offset+length, blockStart+ext2.BlockSize)
	if rangeEnd <= rangeStart {
		return
	}
	copy(dst[rangeStart-offset:rangeEnd-offset], block[rangeStart-blockStart:rangeEnd-blockStart])
}

func copyIntoBlock(block, src []byte, offset, length, blockStart int64) {
	rangeStart := max64(offset, blockStart)
	rangeEnd := min64(offset+length, blockStart+ext2.BlockSize)
	if rangeEnd <= rangeStart {
		return
	}
	copy(block[rangeStart-blockStart:rangeEnd-blockStart], src[rangeStart-offset:rangeEnd-offset])
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
