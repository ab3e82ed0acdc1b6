package ext2

import (
	"encoding/binary"

	"github.com/dargueta/ext2shell/voerr"
)

// DirentHeaderSize is the fixed portion of a directory entry record before
// its variable-length name: inode(4) + rec_len(2) + name_len(1) + file_type(1).
const DirentHeaderSize = 8

// DirectoryEntry is one variable-length record of a directory data block.
// A zero Inode marks a tombstone: the slot's rec_len is kept so the space
// can be reused by a later insert.
type DirectoryEntry struct {
	Inode    uint32
	RecLen   uint16
	NameLen  uint8
	FileType uint8
	Name     string
}

// Footprint is the minimum number of bytes this entry actually needs:
// align4(8 + name_len). RecLen may be larger, leaving reusable slack.
func (e *DirectoryEntry) Footprint() int {
	return Align4(DirentHeaderSize + len(e.Name))
}

// ParseDirentAt decodes one record from buf at the given byte offset. The
// caller is responsible for stopping iteration once RecLen would carry the
// offset past the end of the block; a RecLen of 0 is returned as-is so
// callers can treat it as end-of-block rather than panicking on malformed
// data, per spec.md's "never panics on malformed on-disk data".
func ParseDirentAt(buf []byte, offset int) (*DirectoryEntry, error) {
	if offset < 0 || offset+DirentHeaderSize > len(buf) {
		return nil, voerr.ErrInvalidImage.WithMessage("directory entry header runs past block end")
	}

	inode := binary.LittleEndian.Uint32(buf[offset : offset+4])
	recLen := binary.LittleEndian.Uint16(buf[offset+4 : offset+6])
	nameLen := buf[offset+6]
	fileType := buf[offset+7]

	if recLen == 0 {
		return &DirectoryEntry{Inode: inode, RecLen: 0, NameLen: nameLen, FileType: fileType}, nil
	}

	nameStart := offset + DirentHeaderSize
	nameEnd := nameStart + int(nameLen)
	if nameEnd > len(buf) || nameEnd > offset+int(recLen) {
		return nil, voerr.ErrInvalidImage.WithMessage("directory entry name runs past its record")
	}

	return &DirectoryEntry{
		Inode:    inode,
		RecLen:   recLen,
		NameLen:  nameLen,
		FileType: fileType,
		Name:     string(buf[nameStart:nameEnd]),
	}, nil
}

// EncodeDirentAt writes e into buf at offset using e.RecLen as the record's
// on-disk span (not just its footprint), so any reused tombstone or split
// slack is preserved.
func EncodeDirentAt(buf []byte, offset int, e *DirectoryEntry) error {
	if offset < 0 || offset+int(e.RecLen) > len(buf) {
		return voerr.ErrInvalidImage.WithMessage("directory entry write runs past block end")
	}
	if e.Footprint() > int(e.RecLen) {
		return voerr.ErrInvalidImage.WithMessage("directory entry name doesn't fit in rec_len")
	}

	binary.LittleEndian.PutUint32(buf[offset:offset+4], e.Inode)
	binary.LittleEndian.PutUint16(buf[offset+4:offset+6], e.RecLen)
	buf[offset+6] = byte(len(e.Name))
	buf[offset+7] = e.FileType
	copy(buf[offset+8:offset+8+len(e.Name)], e.Name)
	return nil
}
