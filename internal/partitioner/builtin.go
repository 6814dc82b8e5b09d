package partitioner

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/spf13/afero"

	"github.com/deploymenttheory/go-bootimage/internal/helpers"
	"github.com/deploymenttheory/go-bootimage/internal/types"
	"github.com/deploymenttheory/go-bootimage/pkg/app"
)

// Builtin writes the partition table entry and boot signature itself instead
// of calling out to parted. It does not format the volume.
type Builtin struct {
	Fs afero.Fs
}

// Partition writes one FAT32 (LBA) entry spanning Start to the end of the image,
// followed by the 0x55AA signature. Only the "-1s" end is supported.
func (b *Builtin) Partition(ctx context.Context, req Request) error {
	if err := ctx.Err(); err != nil {
		return app.NewError(app.ErrCodeExternalTool, "builtin partitioner cancelled", err)
	}
	if req.End != DefaultEnd {
		return app.Errorf(app.ErrCodeExternalTool, "builtin partitioner only supports end %q, got %q", DefaultEnd, req.End)
	}

	start, err := helpers.ParseSize(req.Start)
	if err != nil {
		return err
	}
	if start%types.SectorSize != 0 {
		return app.Errorf(app.ErrCodeExternalTool, "partition start %s is not sector aligned", req.Start)
	}

	fs := b.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	f, err := fs.OpenFile(req.ImagePath, os.O_RDWR, 0)
	if err != nil {
		return app.NewError(app.ErrCodeIO, fmt.Sprintf("failed to open image %s", req.ImagePath), err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return app.NewError(app.ErrCodeIO, fmt.Sprintf("failed to stat image %s", req.ImagePath), err)
	}
	if info.Size() <= start {
		return app.Errorf(app.ErrCodeExternalTool, "image %s of %d bytes ends before partition start %s",
			req.ImagePath, info.Size(), req.Start)
	}

	entry := types.PartitionEntry{
		Status:      0x80,
		Type:        types.PartitionTypeFAT32LBA,
		StartLBA:    uint32(start / types.SectorSize),
		SectorCount: uint32((info.Size() - start) / types.SectorSize),
	}
	buf, err := entry.MarshalBinary()
	if err != nil {
		return err
	}

	table := make([]byte, types.SectorSize-types.PartitionTableOffset)
	copy(table, buf)
	binary.LittleEndian.PutUint16(table[types.BootSignatureOffset-types.PartitionTableOffset:], 0xAA55)

	if _, err := f.WriteAt(table, types.PartitionTableOffset); err != nil {
		return app.NewError(app.ErrCodeIO, "failed to write partition table", err)
	}
	return nil
}
