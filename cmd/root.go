package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/deploymenttheory/go-bootimage/internal/config"
	"github.com/deploymenttheory/go-bootimage/pkg/app"
	"github.com/deploymenttheory/go-bootimage/pkg/app/build"
)

var (
	// Global output flags
	verbose      bool
	quiet        bool
	outputFormat string
	configFile   string

	settings  = viper.New()
	appConfig *config.Config
	logger    = app.DiscardLogger()
)

var rootCmd = &cobra.Command{
	Use:   "bootimage <image> <size> <unit> <mbr> <vbr> <stage2>",
	Short: "Build a bootable FAT32 disk image from boot sector blobs",
	Long: `bootimage assembles a raw disk image for a legacy BIOS boot chain.

It allocates a zero-filled image, has the partitioning tool create and format
a FAT32 volume at 16 KiB, installs the MBR boot code while keeping the disk
signature and partition table, patches the volume's BIOS Parameter Block,
installs the VBR while keeping that geometry, and writes the stage 2 loader
into the volume's reserved sectors.

Examples:
  # 64 MiB image using the partitioning script
  bootimage disk.img 64 MiB mbr.bin vbr.bin stage2.bin

  # Same, without any external tool
  bootimage disk.img 64 MiB mbr.bin vbr.bin stage2.bin --partitioner builtin

  # Check the result
  bootimage inspect disk.img`,
	Version:           version,
	Args:              cobra.ExactArgs(6),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadSettings,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBuild(cmd, args)
	},
}

// Execute adds all child commands to the root command and runs it until
// completion or an interrupt.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (default searches ./bootimage.yaml, $HOME/.bootimage, /etc/bootimage)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	flags.BoolVarP(&quiet, "quiet", "q", false, "suppress the report")
	flags.StringVarP(&outputFormat, "output", "o", "table", "output format (table, json, yaml)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", app.LogFormatText, "log format (text, json)")

	rootCmd.Flags().String("partitioner", "", "partitioning tool path, or \"builtin\" to write the table in-process")
	rootCmd.Flags().String("label", "", "volume label passed to the partitioning tool")

	bindFlag(config.KeyLogLevel, flags.Lookup("log-level"))
	bindFlag(config.KeyLogFormat, flags.Lookup("log-format"))
	bindFlag(config.KeyPartitionerCommand, rootCmd.Flags().Lookup("partitioner"))
	bindFlag(config.KeyLabel, rootCmd.Flags().Lookup("label"))
}

// loadSettings reads configuration and builds the shared logger before any command runs
func loadSettings(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(settings, configFile)
	if err != nil {
		return err
	}

	level := cfg.Log.Level
	if verbose {
		level = logrus.DebugLevel.String()
	}
	l, err := app.NewLogger(level, cfg.Log.Format)
	if err != nil {
		return err
	}

	appConfig = cfg
	logger = l
	return nil
}

func newAppContext(cmd *cobra.Command) *app.Context {
	ctx := app.NewContext(cmd.Context())
	ctx.OutputFormat = outputFormat
	ctx.Verbose = verbose
	ctx.Logger = logger
	return ctx
}

func runBuild(cmd *cobra.Command, args []string) error {
	sizeValue, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return app.NewError(app.ErrCodeInvalidInput, fmt.Sprintf("size %q is not an integer", args[1]), err)
	}

	ctx := newAppContext(cmd)

	request := &build.Request{
		ImagePath:      args[0],
		SizeValue:      sizeValue,
		SizeUnit:       args[2],
		MBRPath:        args[3],
		VBRPath:        args[4],
		Stage2Path:     args[5],
		Partitioner:    appConfig.Partitioner.Command,
		PartitionStart: appConfig.Partitioner.Start,
		PartitionEnd:   appConfig.Partitioner.End,
		Label:          appConfig.Label,
	}

	response, err := build.Handle(ctx, request)
	if err != nil {
		return err
	}

	if quiet {
		return nil
	}
	return build.FormatOutput(cmd.OutOrStdout(), response, ctx.OutputFormat)
}

func bindFlag(key string, flag *pflag.Flag) {
	if err := settings.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}
