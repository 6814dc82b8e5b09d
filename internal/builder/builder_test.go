package builder

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/deploymenttheory/go-bootimage/internal/disk"
	"github.com/deploymenttheory/go-bootimage/internal/partitioner"
	"github.com/deploymenttheory/go-bootimage/internal/types"
	"github.com/deploymenttheory/go-bootimage/pkg/app"
)

const (
	mib       = 1024 * 1024
	imagePath = "/build/disk.img"
)

// recordingPartitioner remembers the request and optionally delegates or fails
type recordingPartitioner struct {
	next  partitioner.Partitioner
	err   error
	calls []partitioner.Request
}

func (r *recordingPartitioner) Partition(ctx context.Context, req partitioner.Request) error {
	r.calls = append(r.calls, req)
	if r.err != nil {
		return r.err
	}
	if r.next != nil {
		return r.next.Partition(ctx, req)
	}
	return nil
}

type fixture struct {
	fs     afero.Fs
	mbr    []byte
	vbr    []byte
	stage2 []byte
	cfg    Config
}

func randomBytes(seed int64, n int) []byte {
	buf := make([]byte, n)
	rand.New(rand.NewSource(seed)).Read(buf)
	return buf
}

func newFixture(t *testing.T, size int64, stage2Len int) *fixture {
	t.Helper()
	f := &fixture{
		fs:     afero.NewMemMapFs(),
		mbr:    randomBytes(1, types.SectorSize),
		vbr:    randomBytes(2, types.SectorSize),
		stage2: randomBytes(3, stage2Len),
	}
	require.NoError(t, afero.WriteFile(f.fs, "/blobs/mbr.bin", f.mbr, 0o644))
	require.NoError(t, afero.WriteFile(f.fs, "/blobs/vbr.bin", f.vbr, 0o644))
	require.NoError(t, afero.WriteFile(f.fs, "/blobs/stage2.bin", f.stage2, 0o644))

	f.cfg = Config{
		ImagePath:  imagePath,
		SizeBytes:  size,
		MBRPath:    "/blobs/mbr.bin",
		VBRPath:    "/blobs/vbr.bin",
		Stage2Path: "/blobs/stage2.bin",
	}
	return f
}

func (f *fixture) image(t *testing.T) []byte {
	t.Helper()
	data, err := afero.ReadFile(f.fs, imagePath)
	require.NoError(t, err)
	return data
}

func TestBuildEndToEnd(t *testing.T) {
	f := newFixture(t, 64*mib, 3072)
	rec := &recordingPartitioner{next: &partitioner.Builtin{Fs: f.fs}}

	b := New(WithFs(f.fs), WithPartitioner(rec))
	report, err := b.Build(context.Background(), f.cfg)
	require.NoError(t, err)

	// partitioner contract
	require.Len(t, rec.calls, 1)
	assert.Equal(t, partitioner.Request{
		ImagePath:       imagePath,
		Start:           "16KiB",
		End:             "-1s",
		ReservedSectors: 16,
		Label:           "ROS",
	}, rec.calls[0])

	// report
	assert.NotEqual(t, [16]byte{}, [16]byte(report.BuildID))
	assert.Equal(t, int64(6), report.Stage2Sectors)
	assert.Equal(t, int64(32), report.VBRSector)
	assert.Equal(t, int64(42), report.Stage2Sector)
	assert.Equal(t, disk.Geometry{
		TotalPartitionSectors: 131040,
		ReservedSectors:       16,
		HiddenSectors:         32,
		TotalSectors16:        0,
		TotalSectors32:        131040,
		SectorsPerFAT:         8189,
	}, report.Geometry)

	data := f.image(t)
	require.Len(t, data, 64*mib)

	// MBR boot code, then the partition table and signature
	assert.Equal(t, f.mbr[:types.BootCodeSize], data[:types.BootCodeSize])
	entry, err := types.DefaultPartitionEntry.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, entry, data[types.PartitionTableOffset:types.PartitionTableOffset+types.PartitionEntrySize])
	assert.Equal(t, []byte{0x55, 0xAA}, data[types.BootSignatureOffset:types.SectorSize])

	// VBR carries the template except for the patched geometry
	vbr := data[types.PartitionOffset : types.PartitionOffset+types.SectorSize]
	patched := map[int]bool{}
	for _, field := range types.GeometryFields {
		for i := 0; i < field.Width; i++ {
			patched[int(field.Offset-types.PartitionOffset)+i] = true
		}
	}
	for i := range vbr {
		if !patched[i] {
			require.Equal(t, f.vbr[i], vbr[i], "VBR byte 0x%x", i)
		}
	}

	// stage2 after VBR + FSInfo + backup
	start := types.PartitionOffset + 10*types.SectorSize
	assert.Equal(t, f.stage2, data[start:start+len(f.stage2)])

	img, err := disk.Open(f.fs, imagePath)
	require.NoError(t, err)
	layout, err := disk.Inspect(img)
	require.NoError(t, err)
	assert.Equal(t, report.Geometry, layout.Geometry)
	assert.Empty(t, layout.Validate())
}

func TestBuildSmallImageUses16BitTotal(t *testing.T) {
	f := newFixture(t, 16*mib, 1)
	b := New(WithFs(f.fs), WithPartitioner(&partitioner.Builtin{Fs: f.fs}))

	report, err := b.Build(context.Background(), f.cfg)
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.Stage2Sectors)
	assert.Equal(t, uint16(11), report.Geometry.ReservedSectors)
	assert.Equal(t, uint16(32736), report.Geometry.TotalSectors16)
	assert.Zero(t, report.Geometry.TotalSectors32)
}

func TestBuildPassesPartitionerSettings(t *testing.T) {
	f := newFixture(t, 1*mib, 512)
	f.cfg.Label = "RESCUE"
	f.cfg.PartitionStart = "16kib"
	rec := &recordingPartitioner{}

	_, err := New(WithFs(f.fs), WithPartitioner(rec)).Build(context.Background(), f.cfg)
	require.NoError(t, err)
	require.Len(t, rec.calls, 1)
	assert.Equal(t, "RESCUE", rec.calls[0].Label)
	assert.Equal(t, "16kib", rec.calls[0].Start)
	assert.Equal(t, uint16(11), rec.calls[0].ReservedSectors)
}

func TestBuildMissingBlob(t *testing.T) {
	for _, missing := range []string{"mbr", "vbr", "stage2"} {
		t.Run(missing, func(t *testing.T) {
			f := newFixture(t, 1*mib, 512)
			require.NoError(t, f.fs.Remove("/blobs/"+missing+".bin"))
			rec := &recordingPartitioner{}

			_, err := New(WithFs(f.fs), WithPartitioner(rec)).Build(context.Background(), f.cfg)
			require.Error(t, err)
			assert.True(t, app.IsCode(err, app.ErrCodeIO))
			assert.Empty(t, rec.calls)

			exists, err := afero.Exists(f.fs, imagePath)
			require.NoError(t, err)
			assert.False(t, exists, "image must not be created when an input is missing")
		})
	}
}

func TestBuildPartitionerFailureAborts(t *testing.T) {
	f := newFixture(t, 1*mib, 512)
	toolErr := app.NewError(app.ErrCodeExternalTool, "partitioner ./part.sh exited with status 1", errors.New("exit status 1"))
	rec := &recordingPartitioner{err: toolErr}

	_, err := New(WithFs(f.fs), WithPartitioner(rec)).Build(context.Background(), f.cfg)
	require.Error(t, err)
	assert.True(t, app.IsCode(err, app.ErrCodeExternalTool))

	// nothing after the partition step ran
	data := f.image(t)
	assert.Equal(t, make([]byte, len(data)), data)
}

func TestBuildImageTooSmall(t *testing.T) {
	tests := []struct {
		name      string
		size      int64
		stage2Len int
	}{
		{name: "smaller than partition offset", size: 8 * 1024, stage2Len: 512},
		{name: "stage2 past end", size: types.PartitionOffset + 16*types.SectorSize, stage2Len: 8 * types.SectorSize},
		{name: "zero", size: 0, stage2Len: 512},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.size, tt.stage2Len)
			_, err := New(WithFs(f.fs), WithPartitioner(&recordingPartitioner{})).Build(context.Background(), f.cfg)
			require.Error(t, err)
			assert.True(t, app.IsCode(err, app.ErrCodeConfiguration))
		})
	}
}

func TestBuildImageTooLarge(t *testing.T) {
	tests := []struct {
		name string
		size int64
	}{
		{name: "4096 GiB", size: 4096 * 1024 * mib},
		{name: "one sector past the 32-bit total", size: types.PartitionOffset + (math.MaxUint32+1)*types.SectorSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.size, 512)
			rec := &recordingPartitioner{}
			_, err := New(WithFs(f.fs), WithPartitioner(rec)).Build(context.Background(), f.cfg)
			require.Error(t, err)
			assert.True(t, app.IsCode(err, app.ErrCodeConfiguration))
			assert.Empty(t, rec.calls)

			exists, err := afero.Exists(f.fs, imagePath)
			require.NoError(t, err)
			assert.False(t, exists)
		})
	}
}

func TestCheckFitsSectorLimit(t *testing.T) {
	largest := int64(types.PartitionOffset) + math.MaxUint32*types.SectorSize
	assert.NoError(t, checkFits(largest, 16, 3072))

	err := checkFits(largest+types.SectorSize, 16, 3072)
	require.Error(t, err)
	assert.True(t, app.IsCode(err, app.ErrCodeConfiguration))
}

func TestBuildUnalignedSize(t *testing.T) {
	f := newFixture(t, 1*mib+100, 512)
	_, err := New(WithFs(f.fs), WithPartitioner(&recordingPartitioner{})).Build(context.Background(), f.cfg)
	require.Error(t, err)
	assert.True(t, app.IsCode(err, app.ErrCodeConfiguration))
}

func TestBuildCancelled(t *testing.T) {
	f := newFixture(t, 1*mib, 512)
	rec := &recordingPartitioner{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(WithFs(f.fs), WithPartitioner(rec)).Build(ctx, f.cfg)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rec.calls)
}

func TestNewDefaults(t *testing.T) {
	b := New()
	assert.IsType(t, afero.NewOsFs(), b.fs)
	cmd, ok := b.partitioner.(*partitioner.Command)
	require.True(t, ok)
	assert.Equal(t, partitioner.DefaultCommand, cmd.Path)
	assert.NotNil(t, b.logger)
}

func TestDurationEncoding(t *testing.T) {
	d := Duration(346 * time.Millisecond)

	data, err := json.Marshal(Report{Duration: d})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"duration":"346ms"`)

	var decoded Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, d, decoded.Duration)

	out, err := yaml.Marshal(Report{Duration: d})
	require.NoError(t, err)
	assert.Contains(t, string(out), "duration: 346ms")

	assert.Error(t, json.Unmarshal([]byte(`{"duration":"soon"}`), &decoded))
}
