package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/inodb/vibe-roi/internal/convert"
	"github.com/inodb/vibe-roi/internal/output"
	"github.com/inodb/vibe-roi/internal/reader"
	"github.com/inodb/vibe-roi/internal/roi"
	"github.com/inodb/vibe-roi/internal/store"
)

const importBatchSize = 1000

func newStoreCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Import features into and export them from a DuckDB store",
		Long:  "Manage a DuckDB database of features. The database path is store.path (default ~/.vibe-roi/features.duckdb).",
		Args:  usageArgs(cobra.NoArgs),
	}
	cmd.PersistentFlags().String("db", "", "DuckDB file (default: store.path)")

	cmd.AddCommand(newStoreImportCmd(c))
	cmd.AddCommand(newStoreExportCmd(c))
	return cmd
}

func openStore(cmd *cobra.Command) (*store.Store, error) {
	if err := viper.BindPFlag("store.path", cmd.Flag("db")); err != nil {
		return nil, err
	}
	path := viper.GetString("store.path")
	if path == "" {
		return nil, usageError{fmt.Errorf("no store path: use --db or set store.path")}
	}
	return store.Open(path)
}

func newStoreImportCmd(c *cli) *cobra.Command {
	var (
		from        string
		transcripts bool
		force       bool
	)

	cmd := &cobra.Command{
		Use:   "import [flags] <input-file>...",
		Short: "Import features from annotation files",
		Long: `Import features into the store, replacing features with the same name.
Files already imported are skipped unless they changed on disk or --force is set.`,
		Example: `  vibe-roi store import --transcripts gencode.v46.gtf.gz
  vibe-roi store import --db peaks.duckdb peaks1.bed peaks2.bed`,
		Args: usageArgs(cobra.MinimumNArgs(1)),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd, map[string]string{"extra-columns": "bed.extra_columns"})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			for _, path := range args {
				if err := importFile(cmd.Context(), s, path, from, transcripts, force, c.logger); err != nil {
					return err
				}
			}
			n, err := s.Count()
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Store holds %d features\n", n)
			return nil
		},
	}

	fs := cmd.Flags()
	addInputFlags(fs, &from, &transcripts)
	fs.BoolVar(&force, "force", false, "Import even if the file is unchanged since the last import")

	return cmd
}

// importFile reads path in one goroutine and writes batches of features to
// s in another.
func importFile(ctx context.Context, s *store.Store, path, from string, transcripts, force bool, logger *zap.Logger) error {
	var fp store.FileFingerprint
	if path != "-" {
		var err error
		if fp, err = store.StatFile(path); err != nil {
			return err
		}
		if !force {
			ok, err := s.SourceUpToDate(fp)
			if err != nil {
				return err
			}
			if ok {
				logger.Info("source unchanged, skipping", zap.String("file", path))
				return nil
			}
		}
	}

	r, err := openInput(path, from, transcripts, logger)
	if err != nil {
		return err
	}
	defer r.Close()

	g, ctx := errgroup.WithContext(ctx)
	batches := make(chan []roi.Feature, 4)

	g.Go(func() error {
		defer close(batches)
		batch := make([]roi.Feature, 0, importBatchSize)
		for {
			f, err := r.Next()
			if err != nil {
				return err
			}
			if f == nil {
				break
			}
			batch = append(batch, f)
			if len(batch) < importBatchSize {
				continue
			}
			select {
			case batches <- batch:
			case <-ctx.Done():
				return ctx.Err()
			}
			batch = make([]roi.Feature, 0, importBatchSize)
		}
		if len(batch) > 0 {
			select {
			case batches <- batch:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	n := 0
	g.Go(func() error {
		for batch := range batches {
			if err := s.WriteFeatures(batch); err != nil {
				return fmt.Errorf("importing %s: %w", path, err)
			}
			n += len(batch)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("imported features", zap.String("file", path), zap.Int("features", n))

	if path == "-" {
		return nil
	}
	return s.RecordSource(fp, n)
}

func newStoreExportCmd(c *cli) *cobra.Command {
	var (
		to         string
		outputPath string
		chrom      string
		region     string
	)

	cmd := &cobra.Command{
		Use:   "export [flags]",
		Short: "Write stored features in an interval format",
		Example: `  vibe-roi store export -t gtf -o all.gtf
  vibe-roi store export --chrom chr12 -t bed
  vibe-roi store export --region chr7:55019017-55211628`,
		Args: usageArgs(cobra.NoArgs),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd, map[string]string{
				"workers":  "convert.workers",
				"rna-type": "gff3.rna_type",
			})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			features, err := selectFeatures(s, chrom, region)
			if err != nil {
				return err
			}

			out, closeOut, err := openOutput(cmd, outputPath)
			if err != nil {
				return fmt.Errorf("creating output file: %w", err)
			}
			defer closeOut()

			w, err := output.New(out, to, writerConfig())
			if err != nil {
				return usageError{err}
			}
			opts := convert.Options{Workers: viper.GetInt("convert.workers")}
			if _, err := writeAll(cmd, reader.NewSliceReader(features), w, opts, c.logger); err != nil {
				return err
			}
			return closeOut()
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&to, "to", "t", output.FormatBED, "Output format: bed, gtf, gff3, psl")
	fs.StringVarP(&outputPath, "output", "o", "", "Output file (default: stdout)")
	fs.StringVar(&chrom, "chrom", "", "Only export features on this chromosome")
	fs.StringVar(&region, "region", "", "Only export features overlapping chrom:start-end (1-based, inclusive)")
	fs.Int("workers", 0, "Formatting goroutines (default: number of CPUs)")
	fs.String("rna-type", "mRNA", "GFF3 type of transcript lines")

	return cmd
}

func selectFeatures(s *store.Store, chrom, region string) ([]roi.Feature, error) {
	switch {
	case region != "":
		ch, start, end, err := parseRegion(region)
		if err != nil {
			return nil, usageError{err}
		}
		return s.FeaturesOverlapping(ch, start, end)
	case chrom != "":
		return s.FeaturesByChrom(chrom)
	}
	return s.Features()
}

// parseRegion parses chrom:start-end with 1-based inclusive coordinates
// into a half-open 0-based range.
func parseRegion(region string) (string, int, int, error) {
	i := strings.LastIndexByte(region, ':')
	if i <= 0 {
		return "", 0, 0, fmt.Errorf("invalid region %q: want chrom:start-end", region)
	}
	startStr, endStr, ok := strings.Cut(region[i+1:], "-")
	if !ok {
		return "", 0, 0, fmt.Errorf("invalid region %q: want chrom:start-end", region)
	}
	start, err := strconv.Atoi(strings.ReplaceAll(startStr, ",", ""))
	if err != nil {
		return "", 0, 0, fmt.Errorf("invalid region start %q: %w", startStr, err)
	}
	end, err := strconv.Atoi(strings.ReplaceAll(endStr, ",", ""))
	if err != nil {
		return "", 0, 0, fmt.Errorf("invalid region end %q: %w", endStr, err)
	}
	if start < 1 || end < start {
		return "", 0, 0, fmt.Errorf("invalid region %q: bad bounds", region)
	}
	return region[:i], start - 1, end, nil
}
