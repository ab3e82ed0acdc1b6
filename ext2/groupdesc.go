package ext2

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/dargueta/ext2shell/voerr"
)

// GroupDescriptor is one entry of the block group descriptor table (BGDT).
// The table begins at the block immediately following the superblock and
// holds one fixed 32-byte record per group.
type GroupDescriptor struct {
	BlockBitmap     uint32
	InodeBitmap     uint32
	InodeTable      uint32
	FreeBlocksCount uint16
	FreeInodesCount uint16
	UsedDirsCount   uint16
	Padding         uint16
	Reserved        [3]uint32
}

// DescriptorTableByteOffset returns the byte offset of group descriptor k
// in the image.
func DescriptorTableByteOffset(k int) int64 {
	return SuperblockByteOffset + BlockSize + int64(k)*RawGroupDescriptorSize
}

// DecodeGroupDescriptorTable parses groupCount contiguous 32-byte records.
func DecodeGroupDescriptorTable(buf []byte, groupCount uint32) ([]GroupDescriptor, error) {
	want := int(groupCount) * RawGroupDescriptorSize
	if len(buf) < want {
		return nil, voerr.ErrInvalidImage.WithMessage(
			fmt.Sprintf("group descriptor table truncated: need %d bytes, have %d", want, len(buf)))
	}

	table := make([]GroupDescriptor, groupCount)
	r := bytes.NewReader(buf)
	for i := range table {
		if err := binary.Read(r, binary.LittleEndian, &table[i]); err != nil {
			return nil, voerr.ErrInvalidImage.WrapError(err)
		}
	}
	return table, nil
}

// Encode serializes one group descriptor to its fixed 32-byte form.
func (gd *GroupDescriptor) Encode() []byte {
	buf := &bytes.Buffer{}
	buf.Grow(RawGroupDescriptorSize)
	_ = binary.Write(buf, binary.LittleEndian, gd)
	return buf.Bytes()
}
