package engine

import (
	"fmt"
	"io"
	"strings"

	"github.com/dargueta/ext2shell/ext2"
	"github.com/dargueta/ext2shell/internal/inodeio"
	"github.com/dargueta/ext2shell/internal/pathresolve"
)

// Attrs mirrors the fields original_source/main.c's `attr` command prints:
// inode number, mode (numeric and symbolic), uid/gid, size, link count,
// block count, the four timestamps, flags, and all 15 block pointers.
type Attrs struct {
	Inode       uint32
	Mode        uint16
	UID         uint16
	GID         uint16
	LinksCount  uint16
	Size        uint32
	AccessTime  uint32
	ChangeTime  uint32
	ModifyTime  uint32
	DeleteTime  uint32
	BlocksCount uint32
	Flags       uint32
	BlockPtrs   [ext2.NumBlockPointers]uint32
}

// Attr resolves targetPath and reads its inode's attributes.
func (v *Volume) Attr(targetPath string) (Attrs, error) {
	res, err := pathresolve.Resolve(v.device, v.Superblock, v.GroupDescs, v.cwdInode, targetPath)
	if err != nil {
		return Attrs{}, err
	}

	in, err := inodeio.Read(v.device, v.Superblock, v.GroupDescs, res.Inode)
	if err != nil {
		return Attrs{}, err
	}

	return Attrs{
		Inode:       res.Inode,
		Mode:        in.Mode,
		UID:         in.UID,
		GID:         in.GID,
		LinksCount:  in.LinksCount,
		Size:        in.Size,
		AccessTime:  in.AccessTime,
		ChangeTime:  in.ChangeTime,
		ModifyTime:  in.ModifyTime,
		DeleteTime:  in.DeleteTime,
		BlocksCount: in.Blocks,
		Flags:       in.Flags,
		BlockPtrs:   in.Block,
	}, nil
}

// permString renders the low 9 mode bits the way `ls -l` does, e.g.
// "rwxr-xr-x".
func permString(mode uint16) string {
	const chars = "rwxrwxrwx"
	var b strings.Builder
	for i := 0; i < 9; i++ {
		bit := uint16(1) << uint(8-i)
		if mode&bit != 0 {
			b.WriteByte(chars[i])
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}

// typeChar returns the single-character type indicator `ls -l` prefixes a
// permission string with.
func typeChar(mode uint16) byte {
	switch mode & ext2.ModeFormatMask {
	case ext2.ModeDirectory:
		return 'd'
	case ext2.ModeRegular:
		return '-'
	default:
		return '?'
	}
}

// PrintAttr renders an Attrs value the way `attr` prints it: one
// "field: value" line per field, in the original tool's field order.
func PrintAttr(out io.Writer, a Attrs) {
	fmt.Fprintf(out, "Inode: %d\n", a.Inode)
	fmt.Fprintf(out, "Mode: %#o (%c%s)\n", a.Mode, typeChar(a.Mode), permString(a.Mode))
	fmt.Fprintf(out, "UID/GID: %d/%d\n", a.UID, a.GID)
	fmt.Fprintf(out, "Links: %d\n", a.LinksCount)
	fmt.Fprintf(out, "Size: %d\n", a.Size)
	fmt.Fprintf(out, "Blocks: %d (%d 1024-byte blocks)\n", a.BlocksCount, a.BlocksCount/(ext2.BlockSize/512))
	fmt.Fprintf(out, "Flags: %#x\n", a.Flags)
	fmt.Fprintf(out, "Access: %s\n", ext2.DecodeTimestamp(a.AccessTime).Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Change: %s\n", ext2.DecodeTimestamp(a.ChangeTime).Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Modify: %s\n", ext2.DecodeTimestamp(a.ModifyTime).Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Delete: %s\n", ext2.DecodeTimestamp(a.DeleteTime).Format("2006-01-02 15:04:05"))
	fmt.Fprint(out, "Block pointers:")
	for _, ptr := range a.BlockPtrs {
		fmt.Fprintf(out, " %d", ptr)
	}
	fmt.Fprintln(out)
}
