package build

import (
	"github.com/deploymenttheory/go-bootimage/internal/builder"
	"github.com/deploymenttheory/go-bootimage/internal/helpers"
	"github.com/deploymenttheory/go-bootimage/internal/partitioner"
	"github.com/deploymenttheory/go-bootimage/pkg/app"
)

// Handle processes a build request
func Handle(ctx *app.Context, req *Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	size, err := helpers.ToBytes(req.SizeValue, req.SizeUnit)
	if err != nil {
		return nil, err
	}

	ctx.Logger.WithField("partitioner", req.Partitioner).Debug("starting build")

	b := builder.New(
		builder.WithFs(ctx.Fs),
		builder.WithLogger(ctx.Logger),
		builder.WithPartitioner(partitioner.New(req.Partitioner, ctx.Fs, ctx.Logger)),
	)

	return b.Build(ctx, builder.Config{
		ImagePath:      req.ImagePath,
		SizeBytes:      size,
		MBRPath:        req.MBRPath,
		VBRPath:        req.VBRPath,
		Stage2Path:     req.Stage2Path,
		PartitionStart: req.PartitionStart,
		PartitionEnd:   req.PartitionEnd,
		Label:          req.Label,
	})
}
