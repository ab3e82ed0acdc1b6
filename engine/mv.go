package engine

import (
	"time"

	"github.com/dargueta/ext2shell/ext2"
	"github.com/dargueta/ext2shell/internal/direntedit"
	"github.com/dargueta/ext2shell/internal/inodeio"
	"github.com/dargueta/ext2shell/internal/pathresolve"
	"github.com/dargueta/ext2shell/voerr"
)

// Mv moves (or renames) a file or directory. If dstPath resolves to an
// existing directory, the source is moved into it keeping its original leaf
// name; if dstPath does not exist, dstPath's own leaf name is used. An
// existing non-directory at dstPath fails with voerr.ErrAlreadyExists.
func (v *Volume) Mv(srcPath, dstPath string) error {
	srcParentPath, srcLeaf := splitParentLeaf(srcPath)
	if srcLeaf == "" || srcLeaf == "." || srcLeaf == ".." {
		return voerr.ErrInvalidName.WithMessage("cannot move '.' or '..'")
	}

	srcParentRes, err := pathresolve.Resolve(v.device, v.Superblock, v.GroupDescs, v.cwdInode, srcParentPath)
	if err != nil {
		return err
	}
	srcParentIn, err := inodeio.Read(v.device, v.Superblock, v.GroupDescs, srcParentRes.Inode)
	if err != nil {
		return err
	}
	if !srcParentIn.IsDirectory() {
		return voerr.ErrNotADirectory
	}
	srcParentBlock, err := v.device.ReadBlock(srcParentIn.Block[0])
	if err != nil {
		return err
	}
	srcEntry, _, err := direntedit.Lookup(srcParentBlock, srcParentIn.Size, srcLeaf)
	if err != nil {
		return voerr.ErrNotFound
	}

	dstParentInodeNum, dstParentIn, dstLeaf, err := v.resolveMvDestination(dstPath, srcLeaf)
	if err != nil {
		return err
	}

	dstParentBlock := srcParentBlock
	sameDir := dstParentInodeNum == srcParentRes.Inode
	if !sameDir {
		dstParentBlock, err = v.device.ReadBlock(dstParentIn.Block[0])
		if err != nil {
			return err
		}
	}
	if _, _, err := direntedit.Lookup(dstParentBlock, dstParentIn.Size, dstLeaf); err == nil {
		return voerr.ErrAlreadyExists
	}

	if err := direntedit.Delete(srcParentBlock, srcLeaf); err != nil {
		return err
	}

	dstSize := dstParentIn.Size
	if err := direntedit.Insert(dstParentBlock, &dstSize, dstLeaf, srcEntry.Inode, srcEntry.FileType); err != nil {
		// Undo the delete so the source isn't left orphaned.
		restoreSize := srcParentIn.Size
		_ = direntedit.Insert(srcParentBlock, &restoreSize, srcLeaf, srcEntry.Inode, srcEntry.FileType)
		return err
	}
	dstParentIn.Size = dstSize

	now := time.Now()

	if !sameDir {
		if err := v.device.WriteBlock(srcParentIn.Block[0], srcParentBlock); err != nil {
			return err
		}
		if err := v.device.WriteBlock(dstParentIn.Block[0], dstParentBlock); err != nil {
			return err
		}

		if srcEntry.FileType == ext2.FileTypeDirectory {
			if err := v.rewriteDotDot(srcEntry.Inode, dstParentInodeNum); err != nil {
				return err
			}
			if srcParentIn.LinksCount > 0 {
				srcParentIn.LinksCount--
			}
			dstParentIn.LinksCount++

			// Used-dirs counters (bg_used_dirs_count) are attributed to
			// whichever group holds a directory's own inode, the same
			// attribution mkdir/rmdir use. mv never reallocates
			// srcEntry.Inode, so it stays in the same group its whole
			// life and no group's counter needs adjusting here.
		}

		srcParentIn.Touch(now)
		if err := inodeio.Write(v.device, v.Superblock, v.GroupDescs, srcParentRes.Inode, srcParentIn); err != nil {
			return err
		}
	} else {
		if err := v.device.WriteBlock(srcParentIn.Block[0], srcParentBlock); err != nil {
			return err
		}
	}

	dstParentIn.Touch(now)
	return inodeio.Write(v.device, v.Superblock, v.GroupDescs, dstParentInodeNum, dstParentIn)
}

// resolveMvDestination figures out the destination parent inode and the
// leaf name the moved entry will carry there.
func (v *Volume) resolveMvDestination(dstPath, srcLeaf string) (uint32, *ext2.Inode, string, error) {
	res, err := pathresolve.Resolve(v.device, v.Superblock, v.GroupDescs, v.cwdInode, dstPath)
	if err == nil {
		in, err := inodeio.Read(v.device, v.Superblock, v.GroupDescs, res.Inode)
		if err != nil {
			return 0, nil, "", err
		}
		if in.IsDirectory() {
			return res.Inode, in, srcLeaf, nil
		}
		return 0, nil, "", voerr.ErrAlreadyExists
	}

	parentPath, leaf := splitParentLeaf(dstPath)
	if err := validateLeafName(leaf); err != nil {
		return 0, nil, "", err
	}
	parentRes, err := pathresolve.Resolve(v.device, v.Superblock, v.GroupDescs, v.cwdInode, parentPath)
	if err != nil {
		return 0, nil, "", err
	}
	in, err := inodeio.Read(v.device, v.Superblock, v.GroupDescs, parentRes.Inode)
	if err != nil {
		return 0, nil, "", err
	}
	if !in.IsDirectory() {
		return 0, nil, "", voerr.ErrNotADirectory
	}
	return parentRes.Inode, in, leaf, nil
}

// rewriteDotDot finds childInode's ".." record, confirms its name is
// literally "..", and repoints it at newParentInode without touching its
// rec_len.
func (v *Volume) rewriteDotDot(childInode, newParentInode uint32) error {
	childIn, err := inodeio.Read(v.device, v.Superblock, v.GroupDescs, childInode)
	if err != nil {
		return err
	}
	childBlock, err := v.device.ReadBlock(childIn.Block[0])
	if err != nil {
		return err
	}

	entry, offset, err := direntedit.Lookup(childBlock, childIn.Size, "..")
	if err != nil || entry.Name != ".." {
		return voerr.ErrInvalidImage.WithMessage("directory has no valid '..' entry")
	}

	entry.Inode = newParentInode
	if err := ext2.EncodeDirentAt(childBlock, offset, entry); err != nil {
		return err
	}
	return v.device.WriteBlock(childIn.Block[0], childBlock)
}
