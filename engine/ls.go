package engine

import (
	"fmt"
	"io"
	"sort"

	"github.com/dargueta/ext2shell/ext2"
	"github.com/dargueta/ext2shell/internal/direntedit"
	"github.com/dargueta/ext2shell/internal/inodeio"
	"github.com/dargueta/ext2shell/internal/pathresolve"
)

// DirentSummary is one entry of an Ls result.
type DirentSummary struct {
	Name     string
	Inode    uint32
	FileType uint8
}

// Ls lists the contents of targetPath (the cwd if empty), skipping "." and
// "..", per spec.md's Open Question resolution. If targetPath names a
// regular file rather than a directory, it returns that file's own name as
// a single-entry result, matching comando_ls's behavior for a file operand.
func (v *Volume) Ls(targetPath string) ([]DirentSummary, error) {
	if targetPath == "" {
		targetPath = "."
	}

	res, err := pathresolve.Resolve(v.device, v.Superblock, v.GroupDescs, v.cwdInode, targetPath)
	if err != nil {
		return nil, err
	}

	in, err := inodeio.Read(v.device, v.Superblock, v.GroupDescs, res.Inode)
	if err != nil {
		return nil, err
	}
	if !in.IsDirectory() {
		_, leaf := splitParentLeaf(targetPath)
		if leaf == "" || leaf == "." || leaf == ".." {
			leaf = targetPath
		}
		return []DirentSummary{{Name: leaf, Inode: res.Inode, FileType: in.DirentFileType()}}, nil
	}

	block, err := v.device.ReadBlock(in.Block[0])
	if err != nil {
		return nil, err
	}

	var out []DirentSummary
	err = direntedit.Iterate(block, in.Size, func(_ int, e *ext2.DirectoryEntry) (bool, error) {
		if e.Inode == 0 {
			return false, nil
		}
		if e.Name == "." || e.Name == ".." {
			return false, nil
		}
		out = append(out, DirentSummary{Name: e.Name, Inode: e.Inode, FileType: e.FileType})
		return false, nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// PrintLs writes an Ls result the way the shell's `ls` command renders it:
// one name per line, directories suffixed with "/".
func PrintLs(out io.Writer, entries []DirentSummary) {
	for _, e := range entries {
		if e.FileType == ext2.FileTypeDirectory {
			fmt.Fprintf(out, "%s/\n", e.Name)
		} else {
			fmt.Fprintf(out, "%s\n", e.Name)
		}
	}
}
