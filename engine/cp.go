package engine

import (
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/dargueta/ext2shell/ext2"
	"github.com/dargueta/ext2shell/internal/bitmapio"
	"github.com/dargueta/ext2shell/internal/blocktree"
	"github.com/dargueta/ext2shell/internal/direntedit"
	"github.com/dargueta/ext2shell/internal/inodeio"
	"github.com/dargueta/ext2shell/internal/pathresolve"
	"github.com/dargueta/ext2shell/voerr"
)

// Cp copies the regular file at srcPath to dstPath, allocating fresh blocks
// for the copy rather than sharing the source's. If any step after the
// inode allocation fails, up to and including writing the destination
// directory block, every block and the inode allocated so far are rolled
// back and their deallocation errors, if any, are collected with the
// triggering error via go-multierror. A failure writing the destination
// parent's inode afterwards is returned without rollback.
func (v *Volume) Cp(srcPath, dstPath string) error {
	srcRes, err := pathresolve.Resolve(v.device, v.Superblock, v.GroupDescs, v.cwdInode, srcPath)
	if err != nil {
		return err
	}
	srcIn, err := inodeio.Read(v.device, v.Superblock, v.GroupDescs, srcRes.Inode)
	if err != nil {
		return err
	}
	if !srcIn.IsRegular() {
		return voerr.ErrNotAFile
	}

	data, err := blocktree.ReadFile(v.device, srcIn)
	if err != nil {
		return err
	}

	dstParentPath, dstLeaf := splitParentLeaf(dstPath)
	if err := validateLeafName(dstLeaf); err != nil {
		return err
	}
	dstParentRes, err := pathresolve.Resolve(v.device, v.Superblock, v.GroupDescs, v.cwdInode, dstParentPath)
	if err != nil {
		return err
	}
	dstParentIn, err := inodeio.Read(v.device, v.Superblock, v.GroupDescs, dstParentRes.Inode)
	if err != nil {
		return err
	}
	if !dstParentIn.IsDirectory() {
		return voerr.ErrNotADirectory
	}

	dstParentBlock, err := v.device.ReadBlock(dstParentIn.Block[0])
	if err != nil {
		return err
	}
	if _, _, err := direntedit.Lookup(dstParentBlock, dstParentIn.Size, dstLeaf); err == nil {
		return voerr.ErrAlreadyExists
	}

	newInodeNum, err := bitmapio.AllocateInode(v.device, v.Superblock, v.GroupDescs, v.Logger)
	if err != nil {
		return err
	}

	var allocatedBlocks []uint32
	rollback := func(cause error) error {
		result := multierror.Append(nil, cause)
		for _, b := range allocatedBlocks {
			if derr := bitmapio.DeallocateBlock(v.device, v.Superblock, v.GroupDescs, v.Logger, b); derr != nil {
				result = multierror.Append(result, derr)
			}
		}
		if derr := bitmapio.DeallocateInode(v.device, v.Superblock, v.GroupDescs, v.Logger, newInodeNum); derr != nil {
			result = multierror.Append(result, derr)
		}
		return result
	}

	newIn := &ext2.Inode{Mode: ext2.ModeRegular | ext2.DefaultFilePerm, LinksCount: 1, Size: uint32(len(data))}

	numBlocks := (len(data) + ext2.BlockSize - 1) / ext2.BlockSize
	if numBlocks > ext2.NumDirectBlocks {
		return rollback(voerr.ErrNotSupported.WithMessage("cp of files needing indirect blocks is not supported"))
	}

	for i := 0; i < numBlocks; i++ {
		blockNum, err := bitmapio.AllocateBlock(v.device, v.Superblock, v.GroupDescs, v.Logger)
		if err != nil {
			return rollback(err)
		}
		allocatedBlocks = append(allocatedBlocks, blockNum)

		chunk := make([]byte, ext2.BlockSize)
		start := i * ext2.BlockSize
		end := start + ext2.BlockSize
		if end > len(data) {
			end = len(data)
		}
		copy(chunk, data[start:end])

		if err := v.device.WriteBlock(blockNum, chunk); err != nil {
			return rollback(err)
		}
		newIn.Block[i] = blockNum
	}
	newIn.Blocks = uint32(numBlocks) * (ext2.BlockSize / 512)

	now := time.Now()
	newIn.Touch(now)
	if err := inodeio.Write(v.device, v.Superblock, v.GroupDescs, newInodeNum, newIn); err != nil {
		return rollback(err)
	}

	dstSize := dstParentIn.Size
	if err := direntedit.Insert(dstParentBlock, &dstSize, dstLeaf, newInodeNum, ext2.FileTypeRegular); err != nil {
		return rollback(err)
	}
	if err := v.device.WriteBlock(dstParentIn.Block[0], dstParentBlock); err != nil {
		return rollback(err)
	}

	dstParentIn.Size = dstSize
	dstParentIn.Touch(now)
	return inodeio.Write(v.device, v.Superblock, v.GroupDescs, dstParentRes.Inode, dstParentIn)
}
