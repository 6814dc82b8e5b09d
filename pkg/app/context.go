package app

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Context holds application-wide configuration and state
type Context struct {
	context.Context

	// Output preferences
	OutputFormat string
	Verbose      bool

	// Logger receives progress from every step
	Logger *logrus.Logger

	// Fs is where images and blobs live
	Fs afero.Fs
}

// NewContext creates a new application context on the OS filesystem
func NewContext(parent context.Context) *Context {
	if parent == nil {
		parent = context.Background()
	}
	return &Context{
		Context: parent,
		Logger:  DiscardLogger(),
		Fs:      afero.NewOsFs(),
	}
}

// WithCancel creates a cancellable context
func (c *Context) WithCancel() (*Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(c.Context)
	newCtx := *c
	newCtx.Context = ctx
	return &newCtx, cancel
}
