package engine

import (
	"path"

	"github.com/dargueta/ext2shell/ext2"
	"github.com/dargueta/ext2shell/internal/pathresolve"
	"github.com/dargueta/ext2shell/voerr"
)

// Cd changes the working directory. An empty targetPath resets to the root,
// per spec.md's Open Question resolution for a bare `cd`.
func (v *Volume) Cd(targetPath string) error {
	if targetPath == "" {
		v.cwdInode = ext2.RootInode
		v.cwdPath = "/"
		return nil
	}

	res, err := pathresolve.Resolve(v.device, v.Superblock, v.GroupDescs, v.cwdInode, targetPath)
	if err != nil {
		return err
	}
	if res.FileType != ext2.FileTypeDirectory && res.FileType != ext2.FileTypeUnknown {
		return voerr.ErrNotADirectory
	}

	v.cwdInode = res.Inode
	v.cwdPath = joinCwdPath(v.cwdPath, targetPath)
	return nil
}

// joinCwdPath computes the new textual cwd path for display purposes only;
// it never affects resolution, which always starts over from cwdInode.
func joinCwdPath(current, targetPath string) string {
	var joined string
	if len(targetPath) > 0 && targetPath[0] == '/' {
		joined = targetPath
	} else {
		joined = path.Join(current, targetPath)
	}
	joined = path.Clean(joined)
	if joined == "" {
		joined = "/"
	}
	return joined
}
