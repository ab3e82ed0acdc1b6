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

// Mkdir creates a new, empty directory at targetPath, seeded with "." and
// "..", and bumps the parent's link count for the child's "..".
func (v *Volume) Mkdir(targetPath string) error {
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

	parentBlock, err := v.device.ReadBlock(parentIn.Block[0])
	if err != nil {
		return err
	}
	if _, _, err := direntedit.Lookup(parentBlock, parentIn.Size, leaf); err == nil {
		return voerr.ErrAlreadyExists
	}

	newInodeNum, err := bitmapio.AllocateInode(v.device, v.Superblock, v.GroupDescs, v.Logger)
	if err != nil {
		return err
	}
	newBlockNum, err := bitmapio.AllocateBlock(v.device, v.Superblock, v.GroupDescs, v.Logger)
	if err != nil {
		_ = bitmapio.DeallocateInode(v.device, v.Superblock, v.GroupDescs, v.Logger, newInodeNum)
		return err
	}

	now := time.Now()

	childBlock := make([]byte, ext2.BlockSize)
	childSize := uint32(0)
	if err := direntedit.Insert(childBlock, &childSize, ".", newInodeNum, ext2.FileTypeDirectory); err != nil {
		v.rollbackMkdir(newInodeNum, newBlockNum)
		return err
	}
	if err := direntedit.Insert(childBlock, &childSize, "..", parentRes.Inode, ext2.FileTypeDirectory); err != nil {
		v.rollbackMkdir(newInodeNum, newBlockNum)
		return err
	}
	if err := v.device.WriteBlock(newBlockNum, childBlock); err != nil {
		v.rollbackMkdir(newInodeNum, newBlockNum)
		return err
	}

	newIn := &ext2.Inode{
		Mode:       ext2.ModeDirectory | ext2.DefaultDirPerm,
		LinksCount: 2,
		Size:       childSize,
		Blocks:     ext2.BlockSize / 512,
	}
	newIn.Block[0] = newBlockNum
	newIn.Touch(now)
	if err := inodeio.Write(v.device, v.Superblock, v.GroupDescs, newInodeNum, newIn); err != nil {
		v.rollbackMkdir(newInodeNum, newBlockNum)
		return err
	}

	parentSize := parentIn.Size
	if err := direntedit.Insert(parentBlock, &parentSize, leaf, newInodeNum, ext2.FileTypeDirectory); err != nil {
		v.rollbackMkdir(newInodeNum, newBlockNum)
		return err
	}
	if err := v.device.WriteBlock(parentIn.Block[0], parentBlock); err != nil {
		return err
	}

	parentIn.Size = parentSize
	parentIn.LinksCount++
	parentIn.Touch(now)
	if err := inodeio.Write(v.device, v.Superblock, v.GroupDescs, parentRes.Inode, parentIn); err != nil {
		return err
	}

	group := bitmapio.GroupOfInode(v.Superblock, newInodeNum)
	return bitmapio.IncrementUsedDirs(v.device, v.GroupDescs, group)
}

func (v *Volume) rollbackMkdir(inodeNum, blockNum uint32) {
	_ = bitmapio.DeallocateBlock(v.device, v.Superblock, v.GroupDescs, v.Logger, blockNum)
	_ = bitmapio.DeallocateInode(v.device, v.Superblock, v.GroupDescs, v.Logger, inodeNum)
}
