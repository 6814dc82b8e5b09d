// Package types holds the on-disk constants and fixed-layout structures of a
// bootable MBR/FAT32 disk image.
package types

// Disk geometry
const (
	// SectorSize is the logical sector size of every image produced (bytes)
	SectorSize = 512

	// PartitionOffset is the byte offset of the single partition (LBA 32)
	PartitionOffset = 0x4000

	// PartitionStartSector is PartitionOffset expressed in sectors
	PartitionStartSector = PartitionOffset / SectorSize

	// ReservedMarginSectors is added to the stage2 size to get the reserved
	// sector count. Covers the VBR, FSInfo sector, backup boot sector and slack.
	ReservedMarginSectors = 10

	// Stage2SectorOffset is where the stage2 blob starts, relative to the partition start
	Stage2SectorOffset = 10
)

// Master Boot Record layout (sector 0)
const (
	// PreservedRegionOffset is the start of the disk signature + partition table + boot signature
	PreservedRegionOffset = 0x1B8

	// PreservedRegionSize covers [0x1B8, 0x200)
	PreservedRegionSize = SectorSize - PreservedRegionOffset

	// DiskSignatureOffset is the optional 32-bit disk signature
	DiskSignatureOffset = 0x1B8

	// PartitionTableOffset is the first of the four 16-byte partition entries
	PartitionTableOffset = 0x1BE

	// PartitionEntrySize is the size of one MBR partition entry
	PartitionEntrySize = 16

	// BootSignatureOffset holds 0x55 0xAA
	BootSignatureOffset = 0x1FE

	// BootCodeSize is the room left for boot code before the preserved region
	BootCodeSize = PreservedRegionOffset
)

// BootSignature is the two-byte marker that ends a bootable sector
var BootSignature = [2]byte{0x55, 0xAA}

// BIOS Parameter Block offsets, relative to the start of the volume boot record
const (
	BPBReservedSectorsOffset = 0x0E
	BPBTotalSectors16Offset  = 0x13
	BPBHiddenSectorsOffset   = 0x1C
	BPBTotalSectors32Offset  = 0x20
	BPBSectorsPerFAT32Offset = 0x24
)

// MaxTotalSectors16 is the largest sector count the 16-bit total field can hold
const MaxTotalSectors16 = 0xFFFF

// FATBytesPerSector is the per-sector multiplier used when sizing the FAT
const FATBytesPerSector = 32

// BPBField describes one geometry field of the BIOS Parameter Block
type BPBField struct {
	Name   string
	Offset int64 // absolute image offset
	Width  int   // bytes, little-endian
}

// Geometry field names
const (
	FieldReservedSectors = "reserved_sectors"
	FieldTotalSectors16  = "total_sectors_16"
	FieldHiddenSectors   = "hidden_sectors"
	FieldTotalSectors32  = "total_sectors_32"
	FieldSectorsPerFAT32 = "sectors_per_fat32"
)

// GeometryFields lists the BPB fields computed for the image, at their
// absolute offsets for a volume starting at PartitionOffset.
var GeometryFields = []BPBField{
	{Name: FieldReservedSectors, Offset: PartitionOffset + BPBReservedSectorsOffset, Width: 2},
	{Name: FieldTotalSectors16, Offset: PartitionOffset + BPBTotalSectors16Offset, Width: 2},
	{Name: FieldHiddenSectors, Offset: PartitionOffset + BPBHiddenSectorsOffset, Width: 4},
	{Name: FieldTotalSectors32, Offset: PartitionOffset + BPBTotalSectors32Offset, Width: 4},
	{Name: FieldSectorsPerFAT32, Offset: PartitionOffset + BPBSectorsPerFAT32Offset, Width: 4},
}

// GeometryField returns the field with the given name
func GeometryField(name string) (BPBField, bool) {
	for _, f := range GeometryFields {
		if f.Name == name {
			return f, true
		}
	}
	return BPBField{}, false
}
