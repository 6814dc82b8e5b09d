package disk

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/deploymenttheory/go-bootimage/internal/types"
	"github.com/deploymenttheory/go-bootimage/pkg/app"
)

// Geometry holds the BPB values computed for an image
type Geometry struct {
	TotalPartitionSectors uint32 `json:"total_partition_sectors" yaml:"total_partition_sectors"`
	ReservedSectors       uint16 `json:"reserved_sectors" yaml:"reserved_sectors"`
	HiddenSectors         uint32 `json:"hidden_sectors" yaml:"hidden_sectors"`
	TotalSectors16        uint16 `json:"total_sectors_16" yaml:"total_sectors_16"`
	TotalSectors32        uint32 `json:"total_sectors_32" yaml:"total_sectors_32"`
	SectorsPerFAT         uint32 `json:"sectors_per_fat" yaml:"sectors_per_fat"`
}

// ComputeGeometry derives the BPB fields for an image of imageSize bytes whose
// single partition starts at types.PartitionOffset and runs to the end.
// Callers keep the partition under 2^32 sectors; larger counts are truncated.
//
// SectorsPerFAT is ceil((total - reserved) * 32 / 512). This is not the
// FAT32 cluster-entry formula; boot code reading these images expects it as is.
func ComputeGeometry(imageSize int64, reservedSectors uint16) Geometry {
	total := (imageSize - types.PartitionOffset) / types.SectorSize

	g := Geometry{
		TotalPartitionSectors: uint32(total),
		ReservedSectors:       reservedSectors,
		HiddenSectors:         types.PartitionOffset / types.SectorSize,
	}

	if total > types.MaxTotalSectors16 {
		g.TotalSectors16 = 0
		g.TotalSectors32 = uint32(total)
	} else {
		g.TotalSectors16 = uint16(total)
		g.TotalSectors32 = 0
	}

	free := total - int64(reservedSectors)
	g.SectorsPerFAT = uint32((free*types.FATBytesPerSector + types.SectorSize - 1) / types.SectorSize)

	return g
}

// fieldValues maps each geometry field name to its value
func (g Geometry) fieldValues() map[string]uint32 {
	return map[string]uint32{
		types.FieldReservedSectors: uint32(g.ReservedSectors),
		types.FieldTotalSectors16:  uint32(g.TotalSectors16),
		types.FieldHiddenSectors:   g.HiddenSectors,
		types.FieldTotalSectors32:  g.TotalSectors32,
		types.FieldSectorsPerFAT32: g.SectorsPerFAT,
	}
}

// WriteGeometry computes the geometry for this image and writes each BPB field
// at its absolute offset.
func (img *Image) WriteGeometry(reservedSectors uint16) (Geometry, error) {
	if total := (img.size - types.PartitionOffset) / types.SectorSize; total > math.MaxUint32 {
		return Geometry{}, app.Errorf(app.ErrCodeConfiguration,
			"image %s has %d partition sectors, more than the 32-bit total field holds", img.path, total)
	}
	g := ComputeGeometry(img.size, reservedSectors)
	values := g.fieldValues()

	for _, field := range types.GeometryFields {
		if _, err := img.WriteAt(encodeField(field, values[field.Name]), field.Offset); err != nil {
			return Geometry{}, fmt.Errorf("failed to write %s: %w", field.Name, err)
		}
	}
	return g, nil
}

// ReadGeometry decodes the BPB fields currently present in the image
func (img *Image) ReadGeometry() (Geometry, error) {
	var g Geometry
	for _, field := range types.GeometryFields {
		raw, err := img.readRegion(field.Offset, field.Width)
		if err != nil {
			return Geometry{}, fmt.Errorf("failed to read %s: %w", field.Name, err)
		}
		v := decodeField(raw)
		switch field.Name {
		case types.FieldReservedSectors:
			g.ReservedSectors = uint16(v)
		case types.FieldTotalSectors16:
			g.TotalSectors16 = uint16(v)
		case types.FieldHiddenSectors:
			g.HiddenSectors = v
		case types.FieldTotalSectors32:
			g.TotalSectors32 = v
		case types.FieldSectorsPerFAT32:
			g.SectorsPerFAT = v
		}
	}

	if g.TotalSectors16 != 0 {
		g.TotalPartitionSectors = uint32(g.TotalSectors16)
	} else {
		g.TotalPartitionSectors = g.TotalSectors32
	}
	return g, nil
}

func encodeField(field types.BPBField, v uint32) []byte {
	buf := make([]byte, field.Width)
	switch field.Width {
	case 2:
		binary.LittleEndian.PutUint16(buf, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(buf, v)
	}
	return buf
}

func decodeField(raw []byte) uint32 {
	switch len(raw) {
	case 2:
		return uint32(binary.LittleEndian.Uint16(raw))
	case 4:
		return binary.LittleEndian.Uint32(raw)
	}
	return 0
}
