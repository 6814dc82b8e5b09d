package disk

import (
	"fmt"

	"github.com/deploymenttheory/go-bootimage/internal/types"
)

// Layout is the decoded boot structure of an image
type Layout struct {
	Path          string               `json:"path" yaml:"path"`
	Size          int64                `json:"size" yaml:"size"`
	Partition     types.PartitionEntry `json:"partition" yaml:"partition"`
	BootSignature [2]byte              `json:"boot_signature" yaml:"boot_signature"`
	Geometry      Geometry             `json:"geometry" yaml:"geometry"`
}

// Inspect reads the partition entry, boot signature and BPB fields of img
func Inspect(img *Image) (*Layout, error) {
	if img.size < types.PartitionOffset+types.SectorSize {
		return nil, fmt.Errorf("image %s is %d bytes, too small to hold a volume at 0x%x",
			img.path, img.size, types.PartitionOffset)
	}

	sector0, err := img.readRegion(0, types.SectorSize)
	if err != nil {
		return nil, err
	}

	layout := &Layout{
		Path: img.path,
		Size: img.size,
	}
	if err := layout.Partition.UnmarshalBinary(sector0[types.PartitionTableOffset:]); err != nil {
		return nil, err
	}
	copy(layout.BootSignature[:], sector0[types.BootSignatureOffset:])

	layout.Geometry, err = img.ReadGeometry()
	if err != nil {
		return nil, err
	}
	return layout, nil
}

// Validate returns every way the layout departs from what the bootloader expects
func (l *Layout) Validate() []string {
	var issues []string

	if l.Size%types.SectorSize != 0 {
		issues = append(issues, fmt.Sprintf("image size %d is not a multiple of %d", l.Size, types.SectorSize))
	}
	if l.BootSignature != types.BootSignature {
		issues = append(issues, fmt.Sprintf("boot signature is %02x %02x, want 55 aa", l.BootSignature[0], l.BootSignature[1]))
	}
	if l.Partition.StartLBA != types.PartitionStartSector {
		issues = append(issues, fmt.Sprintf("partition starts at LBA %d, want %d", l.Partition.StartLBA, types.PartitionStartSector))
	}

	g := l.Geometry
	if g.HiddenSectors != types.PartitionStartSector {
		issues = append(issues, fmt.Sprintf("hidden sectors is %d, want %d", g.HiddenSectors, types.PartitionStartSector))
	}
	switch {
	case g.TotalSectors16 != 0 && g.TotalSectors32 != 0:
		issues = append(issues, "both total sector fields are set")
	case g.TotalSectors16 == 0 && g.TotalSectors32 == 0:
		issues = append(issues, "neither total sector field is set")
	}

	if l.Size >= types.PartitionOffset {
		want := ComputeGeometry(l.Size, g.ReservedSectors)
		if g.TotalPartitionSectors != want.TotalPartitionSectors {
			issues = append(issues, fmt.Sprintf("total sectors is %d, image holds %d", g.TotalPartitionSectors, want.TotalPartitionSectors))
		}
		if g.SectorsPerFAT != want.SectorsPerFAT {
			issues = append(issues, fmt.Sprintf("sectors per FAT is %d, want %d", g.SectorsPerFAT, want.SectorsPerFAT))
		}
	}

	return issues
}
