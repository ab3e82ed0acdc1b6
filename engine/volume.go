// Package engine composes the on-disk model (ext2), the block device, the
// bitmap allocator, inode table I/O, the block tree, the directory editor,
// and the path resolver into the command handlers spec.md §4.9 describes:
// info, ls, cat, attr, pwd, cd, touch, mkdir, rm, rmdir, rename, mv, cp.
//
// Every mutating handler owns its own write-through ordering: it updates
// the in-memory superblock/BGDT cache and flushes every touched region
// (bitmap, descriptor, superblock, inode, directory block) to the image
// before returning success, per spec.md §5's ordering guarantee.
package engine

import (
	"io"
	"os"
	"path"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/dargueta/ext2shell/ext2"
	"github.com/dargueta/ext2shell/internal/blockdev"
	"github.com/dargueta/ext2shell/voerr"
)

// Volume is the owning context for one open ext2 image: the cached
// superblock and BGDT, the current working directory, and the device used
// to reach the backing file. There is no process-wide state; every command
// handler is a method on *Volume.
type Volume struct {
	device *blockdev.Device
	closer io.Closer

	Superblock *ext2.Superblock
	GroupDescs []ext2.GroupDescriptor

	ImagePath string
	cwdInode  uint32
	cwdPath   string

	Logger logrus.FieldLogger
}

// Open loads the superblock and group descriptor table of the image at
// imagePath, opened read/write, and rejects it if the magic isn't 0xEF53.
func Open(imagePath string) (*Volume, error) {
	f, err := os.OpenFile(imagePath, os.O_RDWR, 0)
	if err != nil {
		return nil, voerr.ErrIOFailed.WrapError(err)
	}

	vol, err := openFromFile(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	vol.closer = f
	vol.ImagePath = imagePath
	return vol, nil
}

// openFromFile loads the superblock and BGDT from an already-open file
// without deciding who owns closing it; Open and OpenCompressed each wire
// up their own closer afterward.
func openFromFile(f *os.File) (*Volume, error) {
	dev := blockdev.New(f)
	sb, err := dev.ReadSuperblock()
	if err != nil {
		return nil, err
	}

	bgdt, err := dev.ReadGroupDescriptorTable(sb.GroupCount())
	if err != nil {
		return nil, err
	}

	return &Volume{
		device:     dev,
		Superblock: sb,
		GroupDescs: bgdt,
		ImagePath:  f.Name(),
		cwdInode:   ext2.RootInode,
		cwdPath:    "/",
		Logger:     logrus.StandardLogger(),
	}, nil
}

// OpenWithDevice wires a Volume directly to an already-open device, for
// tests that build images in memory rather than on disk.
func OpenWithDevice(dev *blockdev.Device, imagePath string) (*Volume, error) {
	sb, err := dev.ReadSuperblock()
	if err != nil {
		return nil, err
	}
	bgdt, err := dev.ReadGroupDescriptorTable(sb.GroupCount())
	if err != nil {
		return nil, err
	}
	return &Volume{
		device:     dev,
		Superblock: sb,
		GroupDescs: bgdt,
		ImagePath:  imagePath,
		cwdInode:   ext2.RootInode,
		cwdPath:    "/",
		Logger:     logrus.StandardLogger(),
	}, nil
}

func (v *Volume) Close() error {
	if v.closer == nil {
		return nil
	}
	return v.closer.Close()
}

// Cwd returns the cached cwd inode number and its textual path.
func (v *Volume) Cwd() (uint32, string) {
	return v.cwdInode, v.cwdPath
}

// ImageBasename is used by the REPL prompt.
func (v *Volume) ImageBasename() string {
	return path.Base(v.ImagePath)
}

// splitParentLeaf splits an operand path into its parent directory path and
// leaf name, the way touch/mkdir/rm/etc. need to.
func splitParentLeaf(p string) (parent, leaf string) {
	parent, leaf = path.Split(strings.TrimSuffix(p, "/"))
	if parent == "" {
		parent = "."
	}
	return parent, leaf
}

// validateLeafName enforces spec.md's touch/mkdir naming rule: non-empty,
// at most 255 bytes, and without a literal "/".
func validateLeafName(name string) error {
	if name == "" {
		return voerr.ErrInvalidName.WithMessage("name must not be empty")
	}
	if len(name) > ext2.MaxNameLength {
		return voerr.ErrInvalidName.WithMessage("name exceeds 255 bytes")
	}
	if strings.Contains(name, "/") {
		return voerr.ErrInvalidName.WithMessage("name must not contain '/'")
	}
	return nil
}
