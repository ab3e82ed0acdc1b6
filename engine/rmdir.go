package engine

import (
	"time"

	"github.com/dargueta/ext2shell/internal/bitmapio"
	"github.com/dargueta/ext2shell/internal/blocktree"
	"github.com/dargueta/ext2shell/internal/direntedit"
	"github.com/dargueta/ext2shell/internal/inodeio"
	"github.com/dargueta/ext2shell/internal/pathresolve"
	"github.com/dargueta/ext2shell/voerr"
)

// Rmdir removes an empty directory (holding only "." and ".."). Per
// spec.md's Open Question resolution, it decrements the parent's link
// count, since the removed child's ".." entry was one of the parent's
// links.
func (v *Volume) Rmdir(targetPath string) error {
	parentPath, leaf := splitParentLeaf(targetPath)
	if leaf == "" || leaf == "." || leaf == ".." {
		return voerr.ErrInvalidName.WithMessage("cannot remove '.' or '..'")
	}

	parentRes, err := pathresolve.Resolve(v.device, v.Superblock, v.GroupDescs, v.cwdInode, parentPath)
	if err != nil {
		return err
	}
	parentIn, err := inodeio.Read(v.device, v.Superblock, v.GroupDescs, parentRes.Inode)
	if err != nil {
		return err
	}
	if !parentIn.IsDirectory() {
		return voerr.ErrNotADirectory
	}

	parentBlock, err := v.device.ReadBlock(parentIn.Block[0])
	if err != nil {
		return err
	}

	entry, _, err := direntedit.Lookup(parentBlock, parentIn.Size, leaf)
	if err != nil {
		return voerr.ErrNotFound
	}

	childIn, err := inodeio.Read(v.device, v.Superblock, v.GroupDescs, entry.Inode)
	if err != nil {
		return err
	}
	if !childIn.IsDirectory() {
		return voerr.ErrNotADirectory
	}

	childBlock, err := v.device.ReadBlock(childIn.Block[0])
	if err != nil {
		return err
	}
	liveCount, err := direntedit.LiveEntryCount(childBlock)
	if err != nil {
		return err
	}
	if liveCount > 2 {
		return voerr.ErrDirectoryNotEmpty
	}

	if err := direntedit.Delete(parentBlock, leaf); err != nil {
		return err
	}
	if err := v.device.WriteBlock(parentIn.Block[0], parentBlock); err != nil {
		return err
	}

	if err := blocktree.FreeBlockTree(v.device, v.Superblock, v.GroupDescs, v.Logger, childIn); err != nil {
		return err
	}
	if err := bitmapio.DeallocateInode(v.device, v.Superblock, v.GroupDescs, v.Logger, entry.Inode); err != nil {
		return err
	}
	group := bitmapio.GroupOfInode(v.Superblock, entry.Inode)
	if err := bitmapio.DecrementUsedDirs(v.device, v.GroupDescs, group); err != nil {
		return err
	}

	now := time.Now()
	if parentIn.LinksCount > 0 {
		parentIn.LinksCount--
	}
	parentIn.Touch(now)
	return inodeio.Write(v.device, v.Superblock, v.GroupDescs, parentRes.Inode, parentIn)
}
