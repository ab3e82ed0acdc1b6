// Package blockdev is the single place that touches the host file
// descriptor backing an ext2 image. It knows nothing about superblocks,
// inodes, or directories -- only fixed-size 1024-byte blocks, plus raw byte
// ranges for the superblock and group descriptor table.
package blockdev

import (
	"fmt"
	"io"

	"github.com/dargueta/ext2shell/ext2"
	"github.com/dargueta/ext2shell/voerr"
)

// Device wraps an io.ReaderAt/io.WriterAt over an ext2 image.
// *os.File satisfies this.
type Device struct {
	stream ReadWriteSeekerAt
}

// ReadWriteSeekerAt is the set of operations Device needs from the backing
// image. *os.File implements it directly.
type ReadWriteSeekerAt interface {
	io.ReaderAt
	io.WriterAt
}

func New(stream ReadWriteSeekerAt) *Device {
	return &Device{stream: stream}
}

// ReadBlock returns the contents of block n. Block 0 is the sparse "hole"
// convention: it always reads as 1024 zero bytes without touching the
// stream, so callers never need to special-case a zero pointer.
func (d *Device) ReadBlock(n uint32) ([]byte, error) {
	if n == 0 {
		return make([]byte, ext2.BlockSize), nil
	}

	buf := make([]byte, ext2.BlockSize)
	nRead, err := d.stream.ReadAt(buf, int64(n)*ext2.BlockSize)
	if err != nil && err != io.EOF {
		return nil, voerr.ErrIOFailed.WrapError(err)
	}
	if nRead != ext2.BlockSize {
		return nil, voerr.ErrIOFailed.WithMessage(
			fmt.Sprintf("short read on block %d: got %d of %d bytes", n, nRead, ext2.BlockSize))
	}
	return buf, nil
}

// WriteBlock writes exactly 1024 bytes to block n. Writing to block 0 is an
// error: it's the reserved "hole" block and must never actually be mutated.
func (d *Device) WriteBlock(n uint32, buf []byte) error {
	if n == 0 {
		return voerr.ErrIOFailed.WithMessage("refusing to write to block 0")
	}
	if len(buf) != ext2.BlockSize {
		return voerr.ErrIOFailed.WithMessage(
			fmt.Sprintf("write buffer must be exactly %d bytes, got %d", ext2.BlockSize, len(buf)))
	}

	nWritten, err := d.stream.WriteAt(buf, int64(n)*ext2.BlockSize)
	if err != nil {
		return voerr.ErrIOFailed.WrapError(err)
	}
	if nWritten != ext2.BlockSize {
		return voerr.ErrIOFailed.WithMessage(
			fmt.Sprintf("short write on block %d: wrote %d of %d bytes", n, nWritten, ext2.BlockSize))
	}
	return nil
}

// ReadSuperblock reads the fixed-size superblock struct at its fixed byte
// offset (1024), independent of block size.
func (d *Device) ReadSuperblock() (*ext2.Superblock, error) {
	buf := make([]byte, ext2.BlockSize)
	n, err := d.stream.ReadAt(buf, ext2.SuperblockByteOffset)
	if err != nil && err != io.EOF {
		return nil, voerr.ErrIOFailed.WrapError(err)
	}
	if n != len(buf) {
		return nil, voerr.ErrIOFailed.WithMessage("short read on superblock")
	}
	return ext2.DecodeSuperblock(buf)
}

// WriteSuperblock flushes sb back to its fixed byte offset.
func (d *Device) WriteSuperblock(sb *ext2.Superblock) error {
	buf := sb.Encode()
	n, err := d.stream.WriteAt(buf, ext2.SuperblockByteOffset)
	if err != nil {
		return voerr.ErrIOFailed.WrapError(err)
	}
	if n != len(buf) {
		return voerr.ErrIOFailed.WithMessage("short write on superblock")
	}
	return nil
}

// ReadGroupDescriptorTable reads the whole BGDT, which begins at the block
// immediately following the superblock.
func (d *Device) ReadGroupDescriptorTable(groupCount uint32) ([]ext2.GroupDescriptor, error) {
	size := int(groupCount) * ext2.RawGroupDescriptorSize
	buf := make([]byte, size)
	n, err := d.stream.ReadAt(buf, ext2.DescriptorTableByteOffset(0))
	if err != nil && err != io.EOF {
		return nil, voerr.ErrIOFailed.WrapError(err)
	}
	if n != size {
		return nil, voerr.ErrIOFailed.WithMessage("short read on group descriptor table")
	}
	return ext2.DecodeGroupDescriptorTable(buf, groupCount)
}

// WriteGroupDescriptor flushes a single group descriptor entry back to disk.
func (d *Device) WriteGroupDescriptor(index int, gd *ext2.GroupDescriptor) error {
	buf := gd.Encode()
	n, err := d.stream.WriteAt(buf, ext2.DescriptorTableByteOffset(index))
	if err != nil {
		return voerr.ErrIOFailed.WrapError(err)
	}
	if n != len(buf) {
		return voerr.ErrIOFailed.WithMessage("short write on group descriptor")
	}
	return nil
}
