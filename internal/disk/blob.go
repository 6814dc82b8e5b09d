package disk

import (
	"fmt"

	"github.com/deploymenttheory/go-bootimage/internal/types"
)

// WriteBlob copies blob verbatim into the image starting at the given sector.
// A blob that would run past the end of the image is rejected before anything
// is written.
func (img *Image) WriteBlob(blob []byte, sector int64) error {
	if _, err := img.WriteAt(blob, sector*types.SectorSize); err != nil {
		return fmt.Errorf("failed to write %d-byte blob at sector %d: %w", len(blob), sector, err)
	}
	return nil
}

// WriteVBR writes a volume boot record template at the given sector without
// losing the geometry already in the image.
//
// The BPB fields listed in types.GeometryFields are read first, the template
// is written over the whole region, and the saved fields are put back. Every
// other byte of the region comes from the template.
func (img *Image) WriteVBR(blob []byte, sector int64) error {
	saved := make([][]byte, len(types.GeometryFields))
	for i, field := range types.GeometryFields {
		raw, err := img.readRegion(field.Offset, field.Width)
		if err != nil {
			return fmt.Errorf("failed to save %s: %w", field.Name, err)
		}
		saved[i] = raw
	}

	if err := img.WriteBlob(blob, sector); err != nil {
		return err
	}

	for i, field := range types.GeometryFields {
		if _, err := img.WriteAt(saved[i], field.Offset); err != nil {
			return fmt.Errorf("failed to restore %s: %w", field.Name, err)
		}
	}
	return nil
}
