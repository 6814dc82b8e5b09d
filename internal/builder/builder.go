// Package builder sequences the steps that turn three boot blobs into a
// bootable disk image.
package builder

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/deploymenttheory/go-bootimage/internal/disk"
	"github.com/deploymenttheory/go-bootimage/internal/helpers"
	"github.com/deploymenttheory/go-bootimage/internal/partitioner"
	"github.com/deploymenttheory/go-bootimage/internal/types"
	"github.com/deploymenttheory/go-bootimage/pkg/app"
)

// Config holds the inputs of one build
type Config struct {
	ImagePath  string
	SizeBytes  int64
	MBRPath    string
	VBRPath    string
	Stage2Path string

	// Passed through to the partitioner
	PartitionStart string
	PartitionEnd   string
	Label          string
}

// Report summarises a finished build
type Report struct {
	BuildID       uuid.UUID     `json:"build_id" yaml:"build_id"`
	ImagePath     string        `json:"image_path" yaml:"image_path"`
	ImageSize     int64         `json:"image_size" yaml:"image_size"`
	Stage2Sectors int64         `json:"stage2_sectors" yaml:"stage2_sectors"`
	VBRSector     int64         `json:"vbr_sector" yaml:"vbr_sector"`
	Stage2Sector  int64         `json:"stage2_sector" yaml:"stage2_sector"`
	Geometry      disk.Geometry `json:"geometry" yaml:"geometry"`
	Duration      Duration      `json:"duration" yaml:"duration"`
}

// Duration is a build time that encodes as a string such as "346ms" in every output format
type Duration time.Duration

func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalJSON encodes the duration as a quoted string
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts the string form written by MarshalJSON
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML encodes the duration as a string
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// Builder produces disk images
type Builder struct {
	fs          afero.Fs
	partitioner partitioner.Partitioner
	logger      logrus.FieldLogger
}

// Option configures a Builder
type Option func(*Builder)

// WithFs sets the filesystem blobs are read from and the image is written to
func WithFs(fs afero.Fs) Option {
	return func(b *Builder) {
		b.fs = fs
	}
}

// WithPartitioner sets the partitioner invoked after allocation
func WithPartitioner(p partitioner.Partitioner) Option {
	return func(b *Builder) {
		b.partitioner = p
	}
}

// WithLogger sets the logger
func WithLogger(logger logrus.FieldLogger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// New creates a Builder. Without options it works on the OS filesystem with
// the default partition script.
func New(opts ...Option) *Builder {
	b := &Builder{}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = app.DiscardLogger()
	}
	if b.fs == nil {
		b.fs = afero.NewOsFs()
	}
	if b.partitioner == nil {
		b.partitioner = partitioner.NewCommand(partitioner.DefaultCommand, b.logger)
	}
	return b
}

type blobs struct {
	mbr, vbr, stage2 []byte
}

// Build runs the whole pipeline once. There is no rollback: on error the
// image at cfg.ImagePath is left in whatever state the failing step reached.
func (b *Builder) Build(ctx context.Context, cfg Config) (*Report, error) {
	started := time.Now()
	report := &Report{
		BuildID:   uuid.New(),
		ImagePath: cfg.ImagePath,
		ImageSize: cfg.SizeBytes,
	}
	log := b.logger.WithField("build_id", report.BuildID.String())

	in, err := b.readBlobs(cfg)
	if err != nil {
		return nil, err
	}

	report.Stage2Sectors = helpers.SectorsFor(int64(len(in.stage2)), types.SectorSize)
	reserved := report.Stage2Sectors + types.ReservedMarginSectors
	report.VBRSector = types.PartitionStartSector
	report.Stage2Sector = types.PartitionStartSector + types.Stage2SectorOffset

	if err := checkFits(cfg.SizeBytes, reserved, int64(len(in.stage2))); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"step":     "allocate",
		"path":     cfg.ImagePath,
		"size":     helpers.FormatSize(cfg.SizeBytes),
		"reserved": reserved,
	}).Info("allocating image")
	img, err := disk.Allocate(b.fs, cfg.ImagePath, cfg.SizeBytes)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.WithField("step", "partition").Info("creating partition")
	req := partitioner.Request{
		ImagePath:       cfg.ImagePath,
		Start:           orDefault(cfg.PartitionStart, partitioner.DefaultStart),
		End:             orDefault(cfg.PartitionEnd, partitioner.DefaultEnd),
		ReservedSectors: uint16(reserved),
		Label:           orDefault(cfg.Label, partitioner.DefaultLabel),
	}
	if err := b.partitioner.Partition(ctx, req); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{"step": "mbr", "bytes": len(in.mbr)}).Info("writing MBR boot code")
	if err := img.WriteMBR(in.mbr); err != nil {
		return nil, err
	}

	log.WithField("step", "geometry").Info("writing partition entry and geometry")
	if err := img.WritePartitionEntry(); err != nil {
		return nil, err
	}
	report.Geometry, err = img.WriteGeometry(uint16(reserved))
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"total_sectors":   report.Geometry.TotalPartitionSectors,
		"sectors_per_fat": report.Geometry.SectorsPerFAT,
	}).Debug("geometry computed")

	log.WithFields(logrus.Fields{
		"step":   "vbr",
		"sector": report.VBRSector,
		"bytes":  len(in.vbr),
	}).Info("writing VBR")
	if err := img.WriteVBR(in.vbr, report.VBRSector); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"step":   "stage2",
		"sector": report.Stage2Sector,
		"bytes":  len(in.stage2),
	}).Info("writing stage2")
	if err := img.WriteBlob(in.stage2, report.Stage2Sector); err != nil {
		return nil, err
	}

	report.Duration = Duration(time.Since(started))
	log.WithField("duration", report.Duration.String()).Info("image built")
	return report, nil
}

// readBlobs loads all three inputs before the image is touched
func (b *Builder) readBlobs(cfg Config) (*blobs, error) {
	var in blobs
	for _, src := range []struct {
		name string
		path string
		dst  *[]byte
	}{
		{"MBR", cfg.MBRPath, &in.mbr},
		{"VBR", cfg.VBRPath, &in.vbr},
		{"stage2", cfg.Stage2Path, &in.stage2},
	} {
		data, err := afero.ReadFile(b.fs, src.path)
		if err != nil {
			return nil, app.NewError(app.ErrCodeIO, fmt.Sprintf("failed to read %s blob %s", src.name, src.path), err)
		}
		*src.dst = data
	}
	return &in, nil
}

// checkFits rejects sizes whose volume could not hold its reserved area and stage2
func checkFits(size, reserved, stage2Len int64) error {
	if reserved > math.MaxUint16 {
		return app.Errorf(app.ErrCodeConfiguration,
			"stage2 needs %d reserved sectors, more than the BPB can hold", reserved)
	}
	stage2End := int64(types.PartitionOffset) + types.Stage2SectorOffset*types.SectorSize + stage2Len
	volumeEnd := int64(types.PartitionOffset) + (reserved+1)*types.SectorSize
	need := stage2End
	if volumeEnd > need {
		need = volumeEnd
	}
	if size < need {
		return app.Errorf(app.ErrCodeConfiguration,
			"image size %s is too small: the volume needs at least %d bytes", helpers.FormatSize(size), need)
	}

	// Total sectors and sectors per FAT are 32-bit BPB fields.
	total := (size - types.PartitionOffset) / types.SectorSize
	if total > math.MaxUint32 {
		return app.Errorf(app.ErrCodeConfiguration,
			"image size %s gives %d partition sectors, more than the BPB can hold", helpers.FormatSize(size), total)
	}
	spf := ((total-reserved)*types.FATBytesPerSector + types.SectorSize - 1) / types.SectorSize
	if spf > math.MaxUint32 {
		return app.Errorf(app.ErrCodeConfiguration,
			"image size %s needs %d sectors per FAT, more than the BPB can hold", helpers.FormatSize(size), spf)
	}
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
