package disk

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"

	"github.com/deploymenttheory/go-bootimage/internal/types"
	"github.com/deploymenttheory/go-bootimage/pkg/app"
)

// zeroChunk is the write unit used when filling a new image
const zeroChunk = 64 * 1024

// Image is a fixed-size disk image file.
//
// Image holds no open handle. Every read or write opens the file, performs one
// positioned transfer and closes it again, so a failure at any step leaves no
// descriptor behind.
type Image struct {
	fs   afero.Fs
	path string
	size int64
}

// Allocate creates (or truncates) the file at path and fills it with size zero bytes
func Allocate(fs afero.Fs, path string, size int64) (*Image, error) {
	if size <= 0 || size%types.SectorSize != 0 {
		return nil, app.Errorf(app.ErrCodeConfiguration,
			"image size %d is not a positive multiple of %d", size, types.SectorSize)
	}

	f, err := fs.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, app.NewError(app.ErrCodeIO, fmt.Sprintf("failed to create image %s", path), err)
	}

	if err := writeZeros(f, size); err != nil {
		f.Close()
		return nil, app.NewError(app.ErrCodeIO, fmt.Sprintf("failed to fill image %s", path), err)
	}

	if err := f.Close(); err != nil {
		return nil, app.NewError(app.ErrCodeIO, fmt.Sprintf("failed to close image %s", path), err)
	}

	return &Image{fs: fs, path: path, size: size}, nil
}

func writeZeros(w io.Writer, size int64) error {
	buf := make([]byte, zeroChunk)
	for remaining := size; remaining > 0; {
		n := int64(len(buf))
		if remaining < n {
			n = remaining
		}
		if _, err := w.Write(buf[:n]); err != nil {
			return err
		}
		remaining -= n
	}
	return nil
}

// Open returns an Image for an existing file, taking its size from the file itself
func Open(fs afero.Fs, path string) (*Image, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return nil, app.NewError(app.ErrCodeIO, fmt.Sprintf("failed to stat image %s", path), err)
	}
	if info.IsDir() {
		return nil, app.Errorf(app.ErrCodeIO, "%s is a directory", path)
	}
	return &Image{fs: fs, path: path, size: info.Size()}, nil
}

// Path returns the image file path
func (img *Image) Path() string {
	return img.path
}

// Size returns the image size in bytes
func (img *Image) Size() int64 {
	return img.size
}

// Sectors returns the number of whole sectors in the image
func (img *Image) Sectors() int64 {
	return img.size / types.SectorSize
}

// checkRange rejects transfers that would leave [0, size)
func (img *Image) checkRange(off int64, n int) error {
	if off < 0 || off+int64(n) > img.size {
		return app.Errorf(app.ErrCodeIO,
			"range [0x%x, 0x%x) is outside image %s of %d bytes", off, off+int64(n), img.path, img.size)
	}
	return nil
}

// ReadAt reads len(p) bytes at absolute offset off
func (img *Image) ReadAt(p []byte, off int64) (int, error) {
	if err := img.checkRange(off, len(p)); err != nil {
		return 0, err
	}

	f, err := img.fs.Open(img.path)
	if err != nil {
		return 0, app.NewError(app.ErrCodeIO, fmt.Sprintf("failed to open image %s", img.path), err)
	}
	defer f.Close()

	n, err := f.ReadAt(p, off)
	if err != nil && !(err == io.EOF && n == len(p)) {
		return n, app.NewError(app.ErrCodeIO, fmt.Sprintf("short read at 0x%x", off), err)
	}
	return n, nil
}

// WriteAt writes p at absolute offset off. The file is never created or
// truncated here; it must already exist at its allocated size.
func (img *Image) WriteAt(p []byte, off int64) (n int, err error) {
	if err := img.checkRange(off, len(p)); err != nil {
		return 0, err
	}

	f, err := img.fs.OpenFile(img.path, os.O_WRONLY, 0)
	if err != nil {
		return 0, app.NewError(app.ErrCodeIO, fmt.Sprintf("failed to open image %s", img.path), err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = app.NewError(app.ErrCodeIO, fmt.Sprintf("failed to close image %s", img.path), cerr)
		}
	}()

	n, err = f.WriteAt(p, off)
	if err != nil {
		return n, app.NewError(app.ErrCodeIO, fmt.Sprintf("short write at 0x%x", off), err)
	}
	return n, nil
}

// readRegion returns a copy of n bytes at off
func (img *Image) readRegion(off int64, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := img.ReadAt(buf, off); err != nil {
		return nil, err
	}
	return buf, nil
}
