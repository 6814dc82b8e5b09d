package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-bootimage/pkg/app/inspect"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <image>",
	Short: "Decode and check the boot layout of a built image",
	Long: `Read the partition entry, boot signature and BIOS Parameter Block geometry
of an image and report anything that would stop the boot chain from finding
its volume.

Examples:
  bootimage inspect disk.img
  bootimage inspect disk.img -o json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInspect(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, imagePath string) error {
	ctx := newAppContext(cmd)

	response, err := inspect.Handle(ctx, &inspect.Request{ImagePath: imagePath})
	if err != nil {
		return err
	}

	if !quiet {
		if err := inspect.FormatOutput(cmd.OutOrStdout(), response, ctx.OutputFormat); err != nil {
			return err
		}
	}

	if !response.Valid() {
		return fmt.Errorf("%s: %d layout issue(s) found", imagePath, len(response.Issues))
	}
	return nil
}
