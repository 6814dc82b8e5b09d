package disk

import (
	"github.com/deploymenttheory/go-bootimage/internal/types"
	"github.com/deploymenttheory/go-bootimage/pkg/app"
)

// WriteMBR copies boot code into sector 0 while keeping the partition table.
//
// The 80 bytes at [0x1B8, 0x200) are captured before the write and put back
// afterwards, so only [0, 0x1B8) ends up carrying the blob. A blob shorter
// than a sector leaves the rest of sector 0 as it was.
func (img *Image) WriteMBR(blob []byte) error {
	if len(blob) > types.SectorSize {
		return app.Errorf(app.ErrCodeIO, "MBR blob is %d bytes, larger than one %d-byte sector", len(blob), types.SectorSize)
	}

	table, err := img.readRegion(types.PreservedRegionOffset, types.PreservedRegionSize)
	if err != nil {
		return err
	}

	if _, err := img.WriteAt(blob, 0); err != nil {
		return err
	}

	if _, err := img.WriteAt(table, types.PreservedRegionOffset); err != nil {
		return err
	}
	return nil
}

// WritePartitionEntry stamps types.DefaultPartitionEntry into the first partition slot
func (img *Image) WritePartitionEntry() error {
	return img.writePartitionEntry(types.DefaultPartitionEntry)
}

func (img *Image) writePartitionEntry(entry types.PartitionEntry) error {
	buf, err := entry.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = img.WriteAt(buf, types.PartitionTableOffset)
	return err
}
