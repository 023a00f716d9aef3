// Package main provides the vibe-roi command-line tool.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-roi/internal/roi"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// usageError marks errors caused by bad arguments or flags.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// usageArgs wraps a cobra argument validator so its failures exit with
// ExitUsage.
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var ue usageError
		if errors.As(err, &ue) {
			fmt.Fprintf(os.Stderr, "Run '%s --help' for usage.\n", root.Name())
			return ExitUsage
		}
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "Hint: Check that the file path is correct\n")
		}
		return ExitError
	}
	return ExitSuccess
}

// cli holds state shared by all subcommands.
type cli struct {
	cfgFile string
	verbose bool
	logger  *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "vibe-roi",
		Short: "vibe-roi - discontinuous genomic features",
		Long: `Read, convert and store discontinuous genomic features such as spliced
transcripts and gapped alignments in BED, GTF2, GFF3 and PSL formats.`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(c.cfgFile); err != nil {
				return err
			}
			logger, err := newLogger(c.verbose)
			if err != nil {
				return err
			}
			c.logger = logger
			roi.SetLogger(logger)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = c.logger.Sync()
		},
	}
	root.SetVersionTemplate("vibe-roi version {{.Version}}\n")
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err}
	})

	root.PersistentFlags().StringVar(&c.cfgFile, "config", "", "Config file (default: ~/.vibe-roi.yaml)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Verbose logging")

	root.AddCommand(newConvertCmd(c))
	root.AddCommand(newFastaCmd(c))
	root.AddCommand(newCountsCmd(c))
	root.AddCommand(newStoreCmd(c))
	root.AddCommand(newConfigCmd())

	return root
}

func setDefaults() {
	viper.SetDefault("log.level", "info")
	viper.SetDefault("convert.workers", 0)
	viper.SetDefault("bed.extra_columns", 0)
	viper.SetDefault("bed.score_as_float", false)
	viper.SetDefault("gff3.rna_type", "mRNA")
	viper.SetDefault("gtf.no_escape", false)
	if home, err := os.UserHomeDir(); err == nil {
		viper.SetDefault("store.path", filepath.Join(home, ".vibe-roi", "features.duckdb"))
	}
}

// initConfig loads ~/.vibe-roi.yaml (or cfgFile) and VIBE_ROI_* environment
// variables. A missing default config file is not an error.
func initConfig(cfgFile string) error {
	setDefaults()
	viper.SetEnvPrefix("VIBE_ROI")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if _, err := os.Stat(cfgFile); errors.Is(err, os.ErrNotExist) {
			return nil
		}
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".vibe-roi")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// newLogger builds a console logger at log.level, or a development logger
// at debug level when verbose is set.
func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopmentConfig().Build()
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	level, err := zap.ParseAtomicLevel(viper.GetString("log.level"))
	if err != nil {
		return nil, usageError{fmt.Errorf("log.level: %w", err)}
	}
	cfg.Level = level
	return cfg.Build()
}

// bindFlags binds the named flags of cmd to viper keys. Binding happens
// when the command runs so that commands sharing a key don't clash.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for flag, key := range keys {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("binding --%s: %w", flag, err)
		}
	}
	return nil
}

// addInputFlags declares the flags shared by commands that read features.
func addInputFlags(fs *pflag.FlagSet, from *string, transcripts *bool) {
	fs.StringVar(from, "from", "", "Input format: bed, gtf, gff3, psl, bowtie (default: from file extension)")
	fs.BoolVar(transcripts, "transcripts", false, "Read features as transcripts (GTF2/GFF3 lines are assembled by transcript)")
	fs.Int("extra-columns", 0, "Number of extra BED columns after column 12")
}
