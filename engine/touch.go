package engine

import (
	"time"

	"github.com/dargueta/ext2shell/ext2"
	"github.com/dargueta/ext2shell/internal/bitmapio"
	"github.com/dargueta/ext2shell/internal/direntedit"
	"github.com/dargueta/ext2shell/internal/inodeio"
	"github.com/dargueta/ext2shell/internal/pathresolve"
	"github.com/dargueta/ext2shell/voerr"
)

// Touch creates an empty regular file at targetPath. It fails with
// voerr.ErrAlreadyExists if the leaf is already present, the same as
// Mkdir does for its own leaf.
func (v *Volume) Touch(targetPath string) error {
	parentPath, leaf := splitParentLeaf(targetPath)
	if err := validateLeafName(leaf); err != nil {
		return err
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

	if _, _, err := direntedit.Lookup(block, parentIn.Size, leaf); err == nil {
		return voerr.ErrAlreadyExists
	}

	now := time.Now()

	newInodeNum, err := bitmapio.AllocateInode(v.device, v.Superblock, v.GroupDescs, v.Logger)
	if err != nil {
		return err
	}

	newIn := &ext2.Inode{
		Mode:       ext2.ModeRegular | ext2.DefaultFilePerm,
		LinksCount: 1,
	}
	newIn.Touch(now)

	size := parentIn.Size
	if err := direntedit.Insert(block, &size, leaf, newInodeNum, ext2.FileTypeRegular); err != nil {
		_ = bitmapio.DeallocateInode(v.device, v.Superblock, v.GroupDescs, v.Logger, newInodeNum)
		return err
	}

	if err := inodeio.Write(v.device, v.Superblock, v.GroupDescs, newInodeNum, newIn); err != nil {
		return err
	}
	if err := v.device.WriteBlock(parentIn.Block[0], block); err != nil {
		return err
	}

	parentIn.Size = size
	parentIn.Touch(now)
	return inodeio.Write(v.device, v.Superblock, v.GroupDescs, parentRes.Inode, parentIn)
}
