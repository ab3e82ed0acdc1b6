package engine

import (
	"time"

	"github.com/dargueta/ext2shell/ext2"
	"github.com/dargueta/ext2shell/internal/direntedit"
	"github.com/dargueta/ext2shell/internal/inodeio"
	"github.com/dargueta/ext2shell/internal/pathresolve"
	"github.com/dargueta/ext2shell/voerr"
)

// Rename changes a directory entry's name in place, without moving it to a
// different directory. The new name must fit inside the existing record's
// rec_len (align4(8 + len(newName)) <= rec_len); if it doesn't, Rename
// fails with voerr.ErrDirectoryFull rather than relocating the record.
func (v *Volume) Rename(targetPath, newName string) error {
	if err := validateLeafName(newName); err != nil {
		return err
	}

	parentPath, oldName := splitParentLeaf(targetPath)
	if oldName == "" || oldName == "." || oldName == ".." {
		return voerr.ErrInvalidName.WithMessage("cannot rename '.' or '..'")
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

	entry, offset, err := direntedit.Lookup(block, parentIn.Size, oldName)
	if err != nil {
		return voerr.ErrNotFound
	}
	if _, _, err := direntedit.Lookup(block, parentIn.Size, newName); err == nil {
		return voerr.ErrAlreadyExists
	}

	need := ext2.Align4(ext2.DirentHeaderSize + len(newName))
	if need > int(entry.RecLen) {
		return voerr.ErrDirectoryFull
	}

	renamed := &ext2.DirectoryEntry{
		Inode: entry.Inode, RecLen: entry.RecLen,
		NameLen: uint8(len(newName)), FileType: entry.FileType, Name: newName,
	}
	if err := ext2.EncodeDirentAt(block, offset, renamed); err != nil {
		return err
	}

	if err := v.device.WriteBlock(parentIn.Block[0], block); err != nil {
		return err
	}

	parentIn.Touch(time.Now())
	return inodeio.Write(v.device, v.Superblock, v.GroupDescs, parentRes.Inode, parentIn)
}
