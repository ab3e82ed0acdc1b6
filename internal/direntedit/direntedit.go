// Package direntedit implements spec.md §4.7: parsing a single 1024-byte
// directory data block into variable-length records, looking entries up by
// name, inserting new records (reusing tombstones or splitting slack before
// appending), and deleting records by coalescing their rec_len into a
// neighbour.
package direntedit

import (
	"github.com/dargueta/ext2shell/ext2"
	"github.com/dargueta/ext2shell/voerr"
)

// Lookup performs a linear scan of buf (up to size bytes) for name,
// returning the matching entry and its byte offset.
func Lookup(buf []byte, size uint32, name string) (*ext2.DirectoryEntry, int, error) {
	var found *ext2.DirectoryEntry
	foundOffset := -1

	err := Iterate(buf, size, func(offset int, e *ext2.DirectoryEntry) (bool, error) {
		if e.Inode != 0 && int(e.NameLen) == len(name) && e.Name == name {
			found = e
			foundOffset = offset
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return nil, -1, err
	}
	if found == nil {
		return nil, -1, voerr.ErrNotFound
	}
	return found, foundOffset, nil
}

// Iterate walks every record in buf up to size bytes, calling visit with
// each record's offset. visit returns (stop, err); a rec_len of 0 halts
// iteration rather than erroring, treating it as end-of-block per
// spec.md's malformed-data handling.
func Iterate(buf []byte, size uint32, visit func(offset int, e *ext2.DirectoryEntry) (bool, error)) error {
	offset := 0
	limit := int(size)
	if limit > ext2.BlockSize {
		limit = ext2.BlockSize
	}

	for offset < limit {
		e, err := ext2.ParseDirentAt(buf, offset)
		if err != nil {
			return err
		}
		if e.RecLen == 0 {
			break
		}

		stop, err := visit(offset, e)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
		offset += int(e.RecLen)
	}
	return nil
}

// Insert adds a (name, inode, fileType) record to the directory block,
// trying in order: reuse a tombstone big enough to hold it, split the
// trailing slack of a live record, or append at the end of size. size is
// updated in place when an append grows it. Fails with ErrDirectoryFull if
// none of those succeed.
func Insert(buf []byte, size *uint32, name string, inodeNum uint32, fileType uint8) error {
	need := ext2.Align4(ext2.DirentHeaderSize + len(name))

	// 1. Reuse a tombstone with enough rec_len.
	tombstoneOffset := -1
	var tombstoneRecLen uint16
	err := Iterate(buf, *size, func(offset int, e *ext2.DirectoryEntry) (bool, error) {
		if e.Inode == 0 && int(e.RecLen) >= need {
			tombstoneOffset = offset
			tombstoneRecLen = e.RecLen
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return err
	}
	if tombstoneOffset >= 0 {
		entry := &ext2.DirectoryEntry{
			Inode: inodeNum, RecLen: tombstoneRecLen,
			NameLen: uint8(len(name)), FileType: fileType, Name: name,
		}
		return ext2.EncodeDirentAt(buf, tombstoneOffset, entry)
	}

	// 2. Split the slack of a live record whose footprint leaves enough
	// room.
	splitOffset := -1
	var splitEntry *ext2.DirectoryEntry
	var splitSlack int
	err = Iterate(buf, *size, func(offset int, e *ext2.DirectoryEntry) (bool, error) {
		if e.Inode == 0 {
			return false, nil
		}
		slack := int(e.RecLen) - e.Footprint()
		if slack >= need {
			splitOffset = offset
			splitEntry = e
			splitSlack = slack
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return err
	}
	if splitOffset >= 0 {
		shrunk := &ext2.DirectoryEntry{
			Inode: splitEntry.Inode, RecLen: uint16(splitEntry.Footprint()),
			NameLen: splitEntry.NameLen, FileType: splitEntry.FileType, Name: splitEntry.Name,
		}
		if err := ext2.EncodeDirentAt(buf, splitOffset, shrunk); err != nil {
			return err
		}

		newOffset := splitOffset + splitEntry.Footprint()
		newEntry := &ext2.DirectoryEntry{
			Inode: inodeNum, RecLen: uint16(splitSlack),
			NameLen: uint8(len(name)), FileType: fileType, Name: name,
		}
		return ext2.EncodeDirentAt(buf, newOffset, newEntry)
	}

	// 3. Append at the current end of the directory's data.
	if int(*size)+need <= ext2.BlockSize {
		newEntry := &ext2.DirectoryEntry{
			Inode: inodeNum, RecLen: uint16(ext2.BlockSize - int(*size)),
			NameLen: uint8(len(name)), FileType: fileType, Name: name,
		}
		if err := ext2.EncodeDirentAt(buf, int(*size), newEntry); err != nil {
			return err
		}
		*size = ext2.BlockSize
		return nil
	}

	return voerr.ErrDirectoryFull
}

// Delete removes the record matching name. If it's the block's last record
// (its span reaches the block end), the previous record's rec_len absorbs
// it -- or, if it's also the first record, it's tombstoned in place.
// Otherwise the trailing bytes are shifted left over the deleted record and
// the new last record's rec_len is extended to cover the vacated tail. The
// block's total footprint (rec_len sum) is always exactly ext2.BlockSize
// afterward.
func Delete(buf []byte, name string) error {
	entry, offset, err := Lookup(buf, ext2.BlockSize, name)
	if err != nil {
		return err
	}

	dLen := int(entry.RecLen)
	isLast := offset+dLen == ext2.BlockSize

	if isLast {
		if offset == 0 {
			tomb := &ext2.DirectoryEntry{Inode: 0, RecLen: entry.RecLen}
			return ext2.EncodeDirentAt(buf, offset, tomb)
		}

		prevOffset, prevEntry, err := findRecordEndingAt(buf, offset)
		if err != nil {
			return err
		}
		prevEntry.RecLen += entry.RecLen
		return ext2.EncodeDirentAt(buf, prevOffset, prevEntry)
	}

	tailStart := offset + dLen
	tailLen := ext2.BlockSize - tailStart
	copy(buf[offset:offset+tailLen], buf[tailStart:ext2.BlockSize])

	newBoundary := ext2.BlockSize - dLen
	lastOffset, lastEntry, err := findRecordEndingAt(buf, newBoundary)
	if err != nil {
		return err
	}
	lastEntry.RecLen += uint16(dLen)
	return ext2.EncodeDirentAt(buf, lastOffset, lastEntry)
}

// findRecordEndingAt walks from the start of the block and returns the
// record whose span ends exactly at boundary.
func findRecordEndingAt(buf []byte, boundary int) (int, *ext2.DirectoryEntry, error) {
	var resultOffset = -1
	var resultEntry *ext2.DirectoryEntry

	err := Iterate(buf, ext2.BlockSize, func(offset int, e *ext2.DirectoryEntry) (bool, error) {
		if offset+int(e.RecLen) == boundary {
			resultOffset = offset
			resultEntry = e
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return -1, nil, err
	}
	if resultOffset < 0 {
		return -1, nil, voerr.ErrInvalidImage.WithMessage("directory block has no record ending at expected boundary")
	}
	return resultOffset, resultEntry, nil
}

// ValidateBlock checks the testable properties spec.md §8 requires of every
// directory block: offsets advance by rec_len, the final record's end is
// exactly the block end, the sum of rec_len is exactly BlockSize, and every
// live record's footprint fits within its rec_len.
func ValidateBlock(buf []byte) error {
	offset := 0
	for offset < ext2.BlockSize {
		e, err := ext2.ParseDirentAt(buf, offset)
		if err != nil {
			return err
		}
		if e.RecLen == 0 {
			return voerr.ErrInvalidImage.WithMessage("directory block contains a zero rec_len before the block end")
		}
		if e.Inode != 0 && e.Footprint() > int(e.RecLen) {
			return voerr.ErrInvalidImage.WithMessage("live directory record's footprint exceeds its rec_len")
		}
		offset += int(e.RecLen)
	}
	if offset != ext2.BlockSize {
		return voerr.ErrInvalidImage.WithMessage("directory block's rec_len sum doesn't equal the block size")
	}
	return nil
}

// LiveEntryCount returns the number of non-tombstone records in the block,
// used by rmdir to confirm a directory holds only "." and "..".
func LiveEntryCount(buf []byte) (int, error) {
	count := 0
	err := Iterate(buf, ext2.BlockSize, func(_ int, e *ext2.DirectoryEntry) (bool, error) {
		if e.Inode != 0 {
			count++
		}
		return false, nil
	})
	return count, err
}
