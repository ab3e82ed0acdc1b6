// Package bitmapio implements the bitmap allocator and freer described in
// spec.md §4.3: scan group-descriptor free counts, read the relevant bitmap
// block, find (or clear) the first matching bit, and write bitmap +
// descriptor + superblock back in that order.
package bitmapio

import (
	"fmt"

	"github.com/boljen/go-bitmap"
	"github.com/sirupsen/logrus"

	"github.com/dargueta/ext2shell/ext2"
	"github.com/dargueta/ext2shell/internal/blockdev"
	"github.com/dargueta/ext2shell/voerr"
)

// Kind distinguishes which bitmap/counters an allocation touches.
type Kind int

const (
	KindInode Kind = iota
	KindBlock
)

// AllocateInode finds and claims the first free inode slot, ascending group
// order, and returns its 1-based global inode number.
func AllocateInode(dev *blockdev.Device, sb *ext2.Superblock, bgdt []ext2.GroupDescriptor, log logrus.FieldLogger) (uint32, error) {
	bit, group, err := allocate(dev, sb, bgdt, log, KindInode)
	if err != nil {
		return 0, err
	}
	return group*sb.InodesPerGroup + bit + 1, nil
}

// AllocateBlock finds and claims the first free data block, ascending group
// order, and returns its global block number.
func AllocateBlock(dev *blockdev.Device, sb *ext2.Superblock, bgdt []ext2.GroupDescriptor, log logrus.FieldLogger) (uint32, error) {
	bit, group, err := allocate(dev, sb, bgdt, log, KindBlock)
	if err != nil {
		return 0, err
	}
	return group*sb.BlocksPerGroup + sb.FirstDataBlock + bit, nil
}

func allocate(dev *blockdev.Device, sb *ext2.Superblock, bgdt []ext2.GroupDescriptor, log logrus.FieldLogger, kind Kind) (bit, group uint32, err error) {
	log = nonNilLogger(log)

	for g := uint32(0); g < uint32(len(bgdt)); g++ {
		desc := &bgdt[g]
		freeCount := freeCounterFor(desc, kind)
		if freeCount == 0 {
			continue
		}

		bitmapBlock, err := readBitmapBlock(dev, desc, kind)
		if err != nil {
			return 0, 0, err
		}

		bm := bitmap.Bitmap(bitmapBlock)
		limit := limitFor(sb, kind)
		foundBit, found := firstClearBit(bm, limit)
		if !found {
			// The descriptor claims free slots but the bitmap scan found
			// none: the on-disk counters and bitmap have drifted apart.
			// Log it and zero the in-memory counter so this group isn't
			// reselected, then keep looking at the next group.
			log.WithFields(logrus.Fields{
				"group": g,
				"kind":  kindName(kind),
			}).Warn("group descriptor claims free slots but bitmap scan found none; zeroing counter")
			setFreeCounterFor(desc, kind, 0)
			continue
		}

		bm.Set(foundBit, true)
		if err := writeBitmapBlock(dev, desc, kind, bitmapBlock); err != nil {
			return 0, 0, err
		}

		setFreeCounterFor(desc, kind, freeCounterFor(desc, kind)-1)
		decrementSuperblockCounter(sb, kind)

		if err := dev.WriteGroupDescriptor(int(g), desc); err != nil {
			return 0, 0, err
		}
		if err := dev.WriteSuperblock(sb); err != nil {
			return 0, 0, err
		}

		return uint32(foundBit), g, nil
	}

	return 0, 0, voerr.ErrNoSpaceOnDevice.WithMessage(fmt.Sprintf("no free %s available", kindName(kind)))
}

// DeallocateInode clears inode n's bitmap bit and restores its counters.
// Inode 0 and the root inode are refused, per spec.md.
func DeallocateInode(dev *blockdev.Device, sb *ext2.Superblock, bgdt []ext2.GroupDescriptor, log logrus.FieldLogger, n uint32) error {
	if n == 0 || n == ext2.RootInode {
		return voerr.ErrInvalidImage.WithMessage("refusing to free inode 0 or the root inode")
	}
	group := (n - 1) / sb.InodesPerGroup
	bit := (n - 1) % sb.InodesPerGroup
	return deallocate(dev, sb, bgdt, log, KindInode, group, bit)
}

// DeallocateBlock clears block n's bitmap bit and restores its counters.
// Block 0 is refused, per spec.md.
func DeallocateBlock(dev *blockdev.Device, sb *ext2.Superblock, bgdt []ext2.GroupDescriptor, log logrus.FieldLogger, n uint32) error {
	if n == 0 {
		return voerr.ErrInvalidImage.WithMessage("refusing to free block 0")
	}
	group := (n - sb.FirstDataBlock) / sb.BlocksPerGroup
	bit := (n - sb.FirstDataBlock) % sb.BlocksPerGroup
	return deallocate(dev, sb, bgdt, log, KindBlock, group, bit)
}

func deallocate(dev *blockdev.Device, sb *ext2.Superblock, bgdt []ext2.GroupDescriptor, log logrus.FieldLogger, kind Kind, group, bit uint32) error {
	log = nonNilLogger(log)

	if int(group) >= len(bgdt) {
		return voerr.ErrInvalidImage.WithMessage(fmt.Sprintf("group %d out of range", group))
	}
	desc := &bgdt[group]

	bitmapBlock, err := readBitmapBlock(dev, desc, kind)
	if err != nil {
		return err
	}
	bm := bitmap.Bitmap(bitmapBlock)

	if !bm.Get(int(bit)) {
		// Double-free: reported, not fatal.
		log.WithFields(logrus.Fields{
			"group": group,
			"kind":  kindName(kind),
			"bit":   bit,
		}).Warn("double-free detected; bit was already clear")
	}
	bm.Set(int(bit), false)

	if err := writeBitmapBlock(dev, desc, kind, bitmapBlock); err != nil {
		return err
	}

	setFreeCounterFor(desc, kind, freeCounterFor(desc, kind)+1)
	incrementSuperblockCounter(sb, kind)

	if err := dev.WriteGroupDescriptor(int(group), desc); err != nil {
		return err
	}
	return dev.WriteSuperblock(sb)
}

func firstClearBit(bm bitmap.Bitmap, limit uint32) (int, bool) {
	for i := 0; i < int(limit); i++ {
		if !bm.Get(i) {
			return i, true
		}
	}
	return 0, false
}

func limitFor(sb *ext2.Superblock, kind Kind) uint32 {
	if kind == KindInode {
		return sb.InodesPerGroup
	}
	return sb.BlocksPerGroup
}

func readBitmapBlock(dev *blockdev.Device, desc *ext2.GroupDescriptor, kind Kind) ([]byte, error) {
	if kind == KindInode {
		return dev.ReadBlock(desc.InodeBitmap)
	}
	return dev.ReadBlock(desc.BlockBitmap)
}

func writeBitmapBlock(dev *blockdev.Device, desc *ext2.GroupDescriptor, kind Kind, buf []byte) error {
	if kind == KindInode {
		return dev.WriteBlock(desc.InodeBitmap, buf)
	}
	return dev.WriteBlock(desc.BlockBitmap, buf)
}

func freeCounterFor(desc *ext2.GroupDescriptor, kind Kind) uint16 {
	if kind == KindInode {
		return desc.FreeInodesCount
	}
	return desc.FreeBlocksCount
}

func setFreeCounterFor(desc *ext2.GroupDescriptor, kind Kind, v uint16) {
	if kind == KindInode {
		desc.FreeInodesCount = v
	} else {
		desc.FreeBlocksCount = v
	}
}

func decrementSuperblockCounter(sb *ext2.Superblock, kind Kind) {
	if kind == KindInode {
		sb.FreeInodesCount--
	} else {
		sb.FreeBlocksCount--
	}
}

func incrementSuperblockCounter(sb *ext2.Superblock, kind Kind) {
	if kind == KindInode {
		sb.FreeInodesCount++
	} else {
		sb.FreeBlocksCount++
	}
}

// GroupOfInode returns which group inode n belongs to, the same arithmetic
// AllocateInode/DeallocateInode use internally.
func GroupOfInode(sb *ext2.Superblock, n uint32) uint32 {
	return (n - 1) / sb.InodesPerGroup
}

// IncrementUsedDirs bumps group's used-dirs counter and persists the
// descriptor, for mkdir's "increment the new group's used-dirs counter".
func IncrementUsedDirs(dev *blockdev.Device, bgdt []ext2.GroupDescriptor, group uint32) error {
	bgdt[group].UsedDirsCount++
	return dev.WriteGroupDescriptor(int(group), &bgdt[group])
}

// DecrementUsedDirs is IncrementUsedDirs's inverse, for rmdir's "decrement
// the target group's used-dirs counter". It refuses to underflow past zero.
func DecrementUsedDirs(dev *blockdev.Device, bgdt []ext2.GroupDescriptor, group uint32) error {
	if bgdt[group].UsedDirsCount > 0 {
		bgdt[group].UsedDirsCount--
	}
	return dev.WriteGroupDescriptor(int(group), &bgdt[group])
}

func kindName(kind Kind) string {
	if kind == KindInode {
		return "inode"
	}
	return "block"
}

func nonNilLogger(log logrus.FieldLogger) logrus.FieldLogger {
	if log == nil {
		return logrus.StandardLogger()
	}
	return log
}
