package ext2

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/dargueta/ext2shell/voerr"
)

// SuperblockByteOffset is the fixed byte offset of the superblock in the
// image, regardless of block size: the first 1024 bytes are unused boot
// code.
const SuperblockByteOffset = 1024

// Superblock is the decoded, in-memory form of the raw on-disk superblock.
// Every field below exists in the real ext2 superblock at the byte offset
// implied by its position in the struct; the trailing Reserved array pads
// the struct out to exactly one block (1024 bytes) so consumers can decode
// it directly with encoding/binary.
type Superblock struct {
	InodesCount      uint32
	BlocksCount      uint32
	ReservedBlocks   uint32
	FreeBlocksCount  uint32
	FreeInodesCount  uint32
	FirstDataBlock   uint32
	LogBlockSize     uint32
	LogFragSize      uint32
	BlocksPerGroup   uint32
	FragsPerGroup    uint32
	InodesPerGroup   uint32
	MountTime        uint32
	WriteTime        uint32
	MountCount       uint16
	MaxMountCount    uint16
	Magic            uint16
	State            uint16
	Errors           uint16
	MinorRevLevel    uint16
	LastCheck        uint32
	CheckInterval    uint32
	CreatorOS        uint32
	RevLevel         uint32
	DefResUID        uint16
	DefResGID        uint16

	// -- EXT2_DYNAMIC_REV fields --
	FirstInode      uint32
	InodeSize       uint16
	BlockGroupNum   uint16
	FeatureCompat   uint32
	FeatureIncompat uint32
	FeatureROCompat uint32
	UUID            [16]byte
	VolumeName      [16]byte
	LastMounted     [64]byte
	AlgoBitmap      uint32

	PreallocBlocks    uint8
	PreallocDirBlocks uint8
	Padding1          uint16

	JournalUUID      [16]byte
	JournalInum      uint32
	JournalDev       uint32
	LastOrphan       uint32
	HashSeed         [4]uint32
	DefHashVersion   uint8
	ReservedCharPad  uint8
	ReservedWordPad  uint16
	DefaultMountOpts uint32
	FirstMetaBG      uint32

	Reserved [760]byte
}

// DecodeSuperblock parses exactly one BlockSize-byte buffer (conventionally
// the bytes at SuperblockByteOffset) into a Superblock, rejecting any image
// whose magic isn't 0xEF53.
func DecodeSuperblock(buf []byte) (*Superblock, error) {
	if len(buf) != BlockSize {
		return nil, voerr.ErrInvalidImage.WithMessage(
			fmt.Sprintf("superblock buffer must be %d bytes, got %d", BlockSize, len(buf)))
	}

	var sb Superblock
	if err := binary.Read(bytes.NewReader(buf), binary.LittleEndian, &sb); err != nil {
		return nil, voerr.ErrInvalidImage.WrapError(err)
	}

	if err := sb.Validate(); err != nil {
		return nil, err
	}
	return &sb, nil
}

// Encode serializes the superblock back into a BlockSize-byte buffer ready
// to be written at SuperblockByteOffset.
func (sb *Superblock) Encode() []byte {
	buf := &bytes.Buffer{}
	buf.Grow(BlockSize)
	// binary.Write never fails for a fixed-layout struct of fixed-size
	// fields written to a growable buffer.
	_ = binary.Write(buf, binary.LittleEndian, sb)
	return buf.Bytes()
}

// Validate checks that the magic is 0xEF53 and that blocks_per_group and
// inodes_per_group are nonzero. It does not check the free counters.
func (sb *Superblock) Validate() error {
	if sb.Magic != SuperblockMagic {
		return voerr.ErrInvalidImage.WithMessage(
			fmt.Sprintf("bad magic: want 0x%04X, got 0x%04X", SuperblockMagic, sb.Magic))
	}
	if sb.BlocksPerGroup == 0 || sb.InodesPerGroup == 0 {
		return voerr.ErrInvalidImage.WithMessage("blocks_per_group and inodes_per_group must be nonzero")
	}
	return nil
}

// GroupCount returns the number of block groups, ceil(BlocksCount / BlocksPerGroup).
func (sb *Superblock) GroupCount() uint32 {
	return (sb.BlocksCount + sb.BlocksPerGroup - 1) / sb.BlocksPerGroup
}

// InodeSizeOnDisk is the number of bytes occupied by one inode table slot:
// 128 for revision 0, the superblock's declared size otherwise (never less
// than 128).
func (sb *Superblock) InodeSizeOnDisk() uint16 {
	if sb.RevLevel == RevisionGood {
		return DefaultRevisionInodeSize
	}
	if sb.InodeSize < DefaultRevisionInodeSize {
		return DefaultRevisionInodeSize
	}
	return sb.InodeSize
}

// VolumeNameString trims trailing NUL bytes from the fixed-size volume name.
func (sb *Superblock) VolumeNameString() string {
	return cString(sb.VolumeName[:])
}

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
