package engine

import (
	"github.com/dargueta/ext2shell/internal/blocktree"
	"github.com/dargueta/ext2shell/internal/inodeio"
	"github.com/dargueta/ext2shell/internal/pathresolve"
	"github.com/dargueta/ext2shell/voerr"
)

// Cat returns the full contents of the regular file at targetPath.
func (v *Volume) Cat(targetPath string) ([]byte, error) {
	res, err := pathresolve.Resolve(v.device, v.Superblock, v.GroupDescs, v.cwdInode, targetPath)
	if err != nil {
		return nil, err
	}

	in, err := inodeio.Read(v.device, v.Superblock, v.GroupDescs, res.Inode)
	if err != nil {
		return nil, err
	}
	if !in.IsRegular() {
		return nil, voerr.ErrNotAFile
	}

	return blocktree.ReadFile(v.device, in)
}
