package types

import (
	"encoding/binary"
	"fmt"
)

// Partition type identifiers
const (
	PartitionTypeEmpty    = 0x00
	PartitionTypeFAT32CHS = 0x0B
	PartitionTypeFAT32LBA = 0x0C
)

// PartitionEntry is one 16-byte MBR partition table entry
type PartitionEntry struct {
	Status      uint8 // 0x80 active, 0x00 inactive
	FirstCHS    [3]byte
	Type        uint8
	LastCHS     [3]byte
	StartLBA    uint32
	SectorCount uint32
}

// DefaultPartitionEntry is the entry stamped at 0x1BE.
//
// SectorCount is a fixed value and is not derived from the image size; the
// external partitioner normally writes its own entry first.
var DefaultPartitionEntry = PartitionEntry{
	Status:      0x00,
	FirstCHS:    [3]byte{0x00, 0x21, 0x00},
	Type:        PartitionTypeFAT32CHS,
	LastCHS:     [3]byte{0xF0, 0xE4, 0xCC},
	StartLBA:    PartitionStartSector,
	SectorCount: 0x00EE7FE0,
}

// MarshalBinary encodes the entry in its on-disk form
func (p PartitionEntry) MarshalBinary() ([]byte, error) {
	buf := make([]byte, PartitionEntrySize)
	buf[0] = p.Status
	copy(buf[1:4], p.FirstCHS[:])
	buf[4] = p.Type
	copy(buf[5:8], p.LastCHS[:])
	binary.LittleEndian.PutUint32(buf[8:12], p.StartLBA)
	binary.LittleEndian.PutUint32(buf[12:16], p.SectorCount)
	return buf, nil
}

// UnmarshalBinary decodes an on-disk entry
func (p *PartitionEntry) UnmarshalBinary(data []byte) error {
	if len(data) < PartitionEntrySize {
		return fmt.Errorf("partition entry too short: %d bytes, need %d", len(data), PartitionEntrySize)
	}
	p.Status = data[0]
	copy(p.FirstCHS[:], data[1:4])
	p.Type = data[4]
	copy(p.LastCHS[:], data[5:8])
	p.StartLBA = binary.LittleEndian.Uint32(data[8:12])
	p.SectorCount = binary.LittleEndian.Uint32(data[12:16])
	return nil
}

// IsEmpty reports whether the entry describes no partition
func (p PartitionEntry) IsEmpty() bool {
	return p.Type == PartitionTypeEmpty && p.StartLBA == 0 && p.SectorCount == 0
}

// IsActive reports whether the bootable flag is set
func (p PartitionEntry) IsActive() bool {
	return p.Status&0x80 != 0
}

// StartOffset returns the partition start in bytes
func (p PartitionEntry) StartOffset() int64 {
	return int64(p.StartLBA) * SectorSize
}
