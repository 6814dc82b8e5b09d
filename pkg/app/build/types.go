package build

import (
	"strings"

	"github.com/deploymenttheory/go-bootimage/internal/builder"
	"github.com/deploymenttheory/go-bootimage/pkg/app"
)

// Request represents one image build as given on the command line
type Request struct {
	ImagePath  string
	SizeValue  int64
	SizeUnit   string
	MBRPath    string
	VBRPath    string
	Stage2Path string

	// Partitioner selection
	Partitioner    string
	PartitionStart string
	PartitionEnd   string
	Label          string
}

// Validate ensures every required input is present
func (r *Request) Validate() error {
	required := []struct{ name, value string }{
		{"image path", r.ImagePath},
		{"size unit", r.SizeUnit},
		{"MBR blob", r.MBRPath},
		{"VBR blob", r.VBRPath},
		{"stage2 blob", r.Stage2Path},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return app.Errorf(app.ErrCodeInvalidInput, "%s is required", f.name)
		}
	}
	if r.SizeValue <= 0 {
		return app.Errorf(app.ErrCodeInvalidInput, "size must be positive, got %d", r.SizeValue)
	}
	return nil
}

// Response is the report of a finished build
type Response = builder.Report
