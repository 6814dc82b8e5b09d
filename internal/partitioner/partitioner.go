// Package partitioner runs the external tool that carves the bootable
// partition out of a freshly allocated image.
package partitioner

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/deploymenttheory/go-bootimage/pkg/app"
)

// Defaults matching the project's partition script
const (
	DefaultCommand = "./buildScripts/part.sh"
	DefaultStart   = "16KiB"
	DefaultEnd     = "-1s" // last sector of the device
	DefaultLabel   = "ROS"

	// BuiltinCommand selects the Builtin partitioner
	BuiltinCommand = "builtin"
)

// Request describes the partition to create
type Request struct {
	ImagePath       string
	Start           string
	End             string
	ReservedSectors uint16
	Label           string
}

// Args returns the positional arguments handed to the tool
func (r Request) Args() []string {
	return []string{
		r.ImagePath,
		r.Start,
		r.End,
		strconv.FormatUint(uint64(r.ReservedSectors), 10),
		r.Label,
	}
}

// Partitioner creates the single bootable partition inside an image
type Partitioner interface {
	Partition(ctx context.Context, req Request) error
}

// Command runs an external program such as a parted/mkfs.fat wrapper script
type Command struct {
	Path   string
	Logger logrus.FieldLogger
}

// NewCommand returns a Command for path, falling back to DefaultCommand
func NewCommand(path string, logger logrus.FieldLogger) *Command {
	if path == "" {
		path = DefaultCommand
	}
	if logger == nil {
		logger = app.DiscardLogger()
	}
	return &Command{Path: path, Logger: logger}
}

// Partition runs the tool and waits for it. Any failure, including a non-zero
// exit status, is returned as an external tool error carrying the tool output.
func (c *Command) Partition(ctx context.Context, req Request) error {
	args := req.Args()
	log := c.Logger.WithFields(logrus.Fields{
		"tool": c.Path,
		"args": strings.Join(args, " "),
	})
	log.Debug("running partitioner")

	cmd := exec.CommandContext(ctx, c.Path, args...)
	out, err := cmd.CombinedOutput()

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		log.Debug(scanner.Text())
	}

	if err != nil {
		msg := fmt.Sprintf("partitioner %s failed", c.Path)
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			msg = fmt.Sprintf("partitioner %s exited with status %d", c.Path, exitErr.ExitCode())
		}
		if trimmed := strings.TrimSpace(string(out)); trimmed != "" {
			msg += "\n" + trimmed
		}
		return app.NewError(app.ErrCodeExternalTool, msg, err)
	}
	return nil
}

// New returns the partitioner selected by command: BuiltinCommand for the
// in-process Builtin partitioner working on fs, anything else is a program path.
func New(command string, fs afero.Fs, logger logrus.FieldLogger) Partitioner {
	if strings.EqualFold(strings.TrimSpace(command), BuiltinCommand) {
		return &Builtin{Fs: fs}
	}
	return NewCommand(command, logger)
}
