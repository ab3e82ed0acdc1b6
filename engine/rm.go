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

// Rm unlinks a regular file. When its link count drops to zero, its data
// blocks and inode are freed.
func (v *Volume) Rm(targetPath string) error {
	parentPath, leaf := splitParentLeaf(targetPath)
	if leaf == "" {
		return voerr.ErrInvalidName.WithMessage("path has no leaf component")
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

	block, err := v.device.ReadBlock(parentIn.Block[0])
	if err != nil {
		return err
	}

	entry, _, err := direntedit.Lookup(block, parentIn.Size, leaf)
	if err != nil {
		return voerr.ErrNotFound
	}

	targetIn, err := inodeio.Read(v.device, v.Superblock, v.GroupDescs, entry.Inode)
	if err != nil {
		return err
	}
	if !targetIn.IsRegular() {
		return voerr.ErrNotAFile
	}

	if err := direntedit.Delete(block, leaf); err != nil {
		return err
	}
	if err := v.device.WriteBlock(parentIn.Block[0], block); err != nil {
		return err
	}

	now := time.Now()

	if targetIn.LinksCount > 0 {
		targetIn.LinksCount--
	}
	if targetIn.LinksCount == 0 {
		if err := blocktree.FreeBlockTree(v.device, v.Superblock, v.GroupDescs, v.Logger, targetIn); err != nil {
			return err
		}
		targetIn.DeleteTime = ext2EncodeNow(now)
		if err := inodeio.Write(v.device, v.Superblock, v.GroupDescs, entry.Inode, targetIn); err != nil {
			return err
		}
		if err := bitmapio.DeallocateInode(v.device, v.Superblock, v.GroupDescs, v.Logger, entry.Inode); err != nil {
			return err
		}
	} else {
		targetIn.ChangeTime = ext2EncodeNow(now)
		if err := inodeio.Write(v.device, v.Superblock, v.GroupDescs, entry.Inode, targetIn); err != nil {
			return err
		}
	}

	parentIn.Touch(now)
	return inodeio.Write(v.device, v.Superblock, v.GroupDescs, parentRes.Inode, parentIn)
}
