package inspect

import (
	"strings"

	"github.com/deploymenttheory/go-bootimage/internal/disk"
	"github.com/deploymenttheory/go-bootimage/pkg/app"
)

// Request names the image to inspect
type Request struct {
	ImagePath string
}

// Response is the decoded layout together with any problems found
type Response struct {
	Layout *disk.Layout `json:"layout" yaml:"layout"`
	Issues []string     `json:"issues" yaml:"issues"`
}

// Valid reports whether no issues were found
func (r *Response) Valid() bool {
	return len(r.Issues) == 0
}

// Handle processes an inspect request
func Handle(ctx *app.Context, req *Request) (*Response, error) {
	if strings.TrimSpace(req.ImagePath) == "" {
		return nil, app.Errorf(app.ErrCodeInvalidInput, "image path is required")
	}

	img, err := disk.Open(ctx.Fs, req.ImagePath)
	if err != nil {
		return nil, err
	}

	layout, err := disk.Inspect(img)
	if err != nil {
		return nil, app.NewError(app.ErrCodeIO, "failed to inspect image", err)
	}

	resp := &Response{Layout: layout, Issues: layout.Validate()}
	if resp.Issues == nil {
		resp.Issues = []string{}
	}
	ctx.Logger.WithField("issues", len(resp.Issues)).Debug("inspection complete")
	return resp, nil
}
