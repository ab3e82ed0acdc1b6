package engine

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/dargueta/ext2shell/ext2"
)

// infoRow is the shape serialized by `info --csv`; struct tags are reused
// directly by gocsv the same way the teacher's disks package tags
// DiskGeometry for its geometry table.
type infoRow struct {
	Magic          string `csv:"magic"`
	BlockSize      int    `csv:"block_size"`
	InodesCount    uint32 `csv:"inodes_count"`
	BlocksCount    uint32 `csv:"blocks_count"`
	FreeInodes     uint32 `csv:"free_inodes"`
	FreeBlocks     uint32 `csv:"free_blocks"`
	InodesPerGroup uint32 `csv:"inodes_per_group"`
	BlocksPerGroup uint32 `csv:"blocks_per_group"`
	GroupCount     uint32 `csv:"group_count"`
	VolumeName     string `csv:"volume_name"`
	RevLevel       uint32 `csv:"rev_level"`
	InodeSize      uint16 `csv:"inode_size"`
}

func (v *Volume) infoRow() infoRow {
	sb := v.Superblock
	return infoRow{
		Magic:          fmt.Sprintf("0x%04X", sb.Magic),
		BlockSize:      1024,
		InodesCount:    sb.InodesCount,
		BlocksCount:    sb.BlocksCount,
		FreeInodes:     sb.FreeInodesCount,
		FreeBlocks:     sb.FreeBlocksCount,
		InodesPerGroup: sb.InodesPerGroup,
		BlocksPerGroup: sb.BlocksPerGroup,
		GroupCount:     sb.GroupCount(),
		VolumeName:     sb.VolumeNameString(),
		RevLevel:       sb.RevLevel,
		InodeSize:      sb.InodeSizeOnDisk(),
	}
}

// Info prints the cached superblock fields. It never touches the image.
func (v *Volume) Info(out io.Writer) error {
	sb := v.Superblock
	row := v.infoRow()

	fmt.Fprintf(out, "Magic: %s\n", row.Magic)
	fmt.Fprintf(out, "Block size: %d\n", row.BlockSize)
	fmt.Fprintf(out, "Inodes: %d total, %d free\n", row.InodesCount, row.FreeInodes)
	fmt.Fprintf(out, "Blocks: %d total, %d free\n", row.BlocksCount, row.FreeBlocks)
	fmt.Fprintf(out, "Inodes per group: %d\n", row.InodesPerGroup)
	fmt.Fprintf(out, "Blocks per group: %d\n", row.BlocksPerGroup)
	fmt.Fprintf(out, "Group count: %d\n", row.GroupCount)
	fmt.Fprintf(out, "Revision: %d\n", row.RevLevel)
	fmt.Fprintf(out, "Inode size: %d\n", row.InodeSize)
	if row.VolumeName != "" {
		fmt.Fprintf(out, "Volume name: %s\n", row.VolumeName)
	}
	fmt.Fprintf(out, "Last mount time: %s\n", ext2.DecodeTimestamp(sb.MountTime).Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Last write time: %s\n", ext2.DecodeTimestamp(sb.WriteTime).Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Mount count: %d / %d\n", sb.MountCount, sb.MaxMountCount)
	return nil
}

// InfoCSV serializes the superblock fields as a single-row CSV, the
// --csv variant of `info`.
func (v *Volume) InfoCSV(out io.Writer) error {
	csvText, err := gocsv.MarshalString([]infoRow{v.infoRow()})
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, csvText)
	return err
}
