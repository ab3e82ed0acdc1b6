package engine

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/dargueta/ext2shell/ext2"
	"github.com/dargueta/ext2shell/internal/direntedit"
	"github.com/dargueta/ext2shell/internal/inodeio"
)

// CheckConsistency walks the volume and verifies these spec.md §8
// properties: the superblock's free counters agree with the sum of the
// per-group free counters, the sum of per-group used-dirs counters equals
// the actual number of directory inodes reachable from root, every
// directory block's rec_len sum equals BlockSize, and every live directory
// entry's footprint fits its rec_len. It does not cross-check the inode and
// block bitmaps against directory records or block trees. Every violation
// found is collected
// rather than stopping at the first; the caller gets a single
// *multierror.Error (nil if the volume is clean).
func (v *Volume) CheckConsistency() error {
	var result *multierror.Error

	var sumFreeBlocks, sumFreeInodes uint32
	for i, desc := range v.GroupDescs {
		sumFreeBlocks += uint32(desc.FreeBlocksCount)
		sumFreeInodes += uint32(desc.FreeInodesCount)
		if desc.BlockBitmap == 0 || desc.InodeBitmap == 0 || desc.InodeTable == 0 {
			result = multierror.Append(result, fmt.Errorf("group %d has a zero bitmap/table pointer", i))
		}
	}
	if sumFreeBlocks != v.Superblock.FreeBlocksCount {
		result = multierror.Append(result, fmt.Errorf(
			"superblock free block count %d disagrees with group sum %d",
			v.Superblock.FreeBlocksCount, sumFreeBlocks))
	}
	if sumFreeInodes != v.Superblock.FreeInodesCount {
		result = multierror.Append(result, fmt.Errorf(
			"superblock free inode count %d disagrees with group sum %d",
			v.Superblock.FreeInodesCount, sumFreeInodes))
	}

	var dirCount uint32
	result = v.walkDirectories(ext2.RootInode, "/", result, &dirCount)

	var sumUsedDirs uint32
	for _, desc := range v.GroupDescs {
		sumUsedDirs += uint32(desc.UsedDirsCount)
	}
	if sumUsedDirs != dirCount {
		result = multierror.Append(result, fmt.Errorf(
			"group used-dirs sum %d disagrees with actual directory inode count %d",
			sumUsedDirs, dirCount))
	}

	if result == nil || len(result.Errors) == 0 {
		return nil
	}
	return result
}

type mvChild struct {
	name  string
	inode uint32
}

// walkDirectories recursively validates every directory block reachable
// from root, skipping "." and ".." to avoid infinite recursion, appending
// any problems found onto acc and returning the (possibly new) accumulator.
// dirCount is bumped once per directory inode actually visited, including
// root, so the caller can check it against the sum of used-dirs counters.
func (v *Volume) walkDirectories(inodeNum uint32, dirPath string, acc *multierror.Error, dirCount *uint32) *multierror.Error {
	in, err := inodeio.Read(v.device, v.Superblock, v.GroupDescs, inodeNum)
	if err != nil {
		return multierror.Append(acc, fmt.Errorf("%s: %w", dirPath, err))
	}
	if !in.IsDirectory() {
		return acc
	}
	*dirCount++

	block, err := v.device.ReadBlock(in.Block[0])
	if err != nil {
		return multierror.Append(acc, fmt.Errorf("%s: %w", dirPath, err))
	}

	if err := direntedit.ValidateBlock(block); err != nil {
		acc = multierror.Append(acc, fmt.Errorf("%s: %w", dirPath, err))
	}

	var children []mvChild
	err = direntedit.Iterate(block, in.Size, func(_ int, e *ext2.DirectoryEntry) (bool, error) {
		if e.Inode == 0 || e.Name == "." || e.Name == ".." {
			return false, nil
		}
		if e.FileType == ext2.FileTypeDirectory {
			children = append(children, mvChild{e.Name, e.Inode})
		}
		return false, nil
	})
	if err != nil {
		return multierror.Append(acc, fmt.Errorf("%s: %w", dirPath, err))
	}

	for _, c := range children {
		acc = v.walkDirectories(c.inode, dirPath+c.name+"/", acc, dirCount)
	}

	return acc
}
