package ext2

import (
	"bytes"
	"encoding/binary"
	"time"

	"github.com/dargueta/ext2shell/voerr"
)

// Inode is the fixed 128-byte on-disk inode record. Fields beyond this
// layout that a revision-1 image may carry in a larger slot are not
// represented here; inodeio preserves them via read-modify-write.
type Inode struct {
	Mode        uint16
	UID         uint16
	Size        uint32
	AccessTime  uint32
	ChangeTime  uint32
	ModifyTime  uint32
	DeleteTime  uint32
	GID         uint16
	LinksCount  uint16
	Blocks      uint32 // 512-byte units allocated
	Flags       uint32
	OSD1        uint32
	Block       [NumBlockPointers]uint32
	Generation  uint32
	FileACL     uint32
	DirACL      uint32
	FragAddr    uint32
	OSD2        [12]byte
}

// DecodeInode parses exactly the first RawInodeSize bytes of an inode slot.
func DecodeInode(buf []byte) (*Inode, error) {
	if len(buf) < RawInodeSize {
		return nil, voerr.ErrInvalidImage.WithMessage("inode buffer shorter than 128 bytes")
	}
	var in Inode
	if err := binary.Read(bytes.NewReader(buf[:RawInodeSize]), binary.LittleEndian, &in); err != nil {
		return nil, voerr.ErrInvalidImage.WrapError(err)
	}
	return &in, nil
}

// Encode serializes the fixed 128-byte portion of the inode.
func (in *Inode) Encode() []byte {
	buf := &bytes.Buffer{}
	buf.Grow(RawInodeSize)
	_ = binary.Write(buf, binary.LittleEndian, in)
	return buf.Bytes()
}

func (in *Inode) FileType() uint16 {
	return in.Mode & ModeFormatMask
}

func (in *Inode) IsDirectory() bool {
	return in.FileType() == ModeDirectory
}

func (in *Inode) IsRegular() bool {
	return in.FileType() == ModeRegular
}

// DirentFileType maps this inode's mode to the file-type hint stored in
// directory entries.
func (in *Inode) DirentFileType() uint8 {
	switch in.FileType() {
	case ModeRegular:
		return FileTypeRegular
	case ModeDirectory:
		return FileTypeDirectory
	case ModeCharDevice:
		return FileTypeCharDevice
	case ModeBlockDevice:
		return FileTypeBlockDevice
	case ModeFIFO:
		return FileTypeFIFO
	case ModeSocket:
		return FileTypeSocket
	case ModeSymlink:
		return FileTypeSymlink
	default:
		return FileTypeUnknown
	}
}

// Permissions returns the low 12 permission bits.
func (in *Inode) Permissions() uint16 {
	return in.Mode & ModePermMask
}

func EncodeTimestamp(t time.Time) uint32 {
	return uint32(t.Unix())
}

func DecodeTimestamp(v uint32) time.Time {
	return time.Unix(int64(v), 0).UTC()
}

// Touch stamps access/change/modify time to now, leaving DeleteTime
// untouched.
func (in *Inode) Touch(now time.Time) {
	ts := EncodeTimestamp(now)
	in.AccessTime = ts
	in.ChangeTime = ts
	in.ModifyTime = ts
}
