package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-roi/internal/convert"
	"github.com/inodb/vibe-roi/internal/genome"
	"github.com/inodb/vibe-roi/internal/output"
	"github.com/inodb/vibe-roi/internal/reader"
	"github.com/inodb/vibe-roi/internal/roi"
)

var errFromRequired = errors.New("--from is required when reading stdin")

type convertOptions struct {
	from        string
	to          string
	outputPath  string
	transcripts bool
	skipErrors  bool
	antisense   bool
	genomePath  string
	unstranded  bool
}

func newConvertCmd(c *cli) *cobra.Command {
	var o convertOptions

	cmd := &cobra.Command{
		Use:   "convert [flags] <input-file>",
		Short: "Convert features between BED, GTF2, GFF3 and PSL",
		Long: `Convert features between interval formats.

The input format is taken from the file extension unless --from is given.
Use '-' to read from stdin. Features are written in input order.`,
		Example: `  vibe-roi convert -t gtf transcripts.bed
  vibe-roi convert --transcripts -t bed -o out.bed gencode.gtf.gz
  vibe-roi convert -t gff3 --rna-type lnc_RNA lncrna.bed
  cat in.psl | vibe-roi convert --from psl -t bed -`,
		Args: usageArgs(cobra.ExactArgs(1)),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd, map[string]string{
				"workers":        "convert.workers",
				"extra-columns":  "bed.extra_columns",
				"score-as-float": "bed.score_as_float",
				"rna-type":       "gff3.rna_type",
				"no-escape":      "gtf.no_escape",
			})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, c, args[0], &o)
		},
	}

	fs := cmd.Flags()
	addInputFlags(fs, &o.from, &o.transcripts)
	fs.StringVarP(&o.to, "to", "t", output.FormatBED, "Output format: bed, gtf, gff3, psl, fasta")
	fs.StringVarP(&o.outputPath, "output", "o", "", "Output file (default: stdout)")
	fs.Int("workers", 0, "Formatting goroutines (default: number of CPUs)")
	fs.Bool("score-as-float", false, "Write BED scores as floats")
	fs.String("rna-type", "mRNA", "GFF3 type of transcript lines")
	fs.Bool("no-escape", false, "Do not percent-encode GTF2/GFF3 attribute values")
	fs.BoolVar(&o.skipErrors, "skip-errors", false, "Skip features that cannot be written in the output format")
	fs.BoolVar(&o.antisense, "antisense", false, "Write the antisense of every feature")
	fs.StringVar(&o.genomePath, "genome", "", "Genome FASTA (required for fasta output)")
	fs.BoolVar(&o.unstranded, "unstranded", false, "Do not reverse-complement minus-strand sequence")

	return cmd
}

func runConvert(cmd *cobra.Command, c *cli, inputPath string, o *convertOptions) error {
	cfg := writerConfig()
	if o.to == output.FormatFASTA {
		if o.genomePath == "" {
			return usageError{errors.New("--genome is required for fasta output")}
		}
		g, err := genome.LoadFASTA(o.genomePath)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Loaded %d sequences from %s\n", len(g.Chromosomes()), o.genomePath)
		cfg.Sequences = g
		cfg.Stranded = !o.unstranded
	}

	r, err := openInput(inputPath, o.from, o.transcripts, c.logger)
	if err != nil {
		return err
	}
	defer r.Close()

	out, closeOut, err := openOutput(cmd, o.outputPath)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer closeOut()

	w, err := output.New(out, o.to, cfg)
	if err != nil {
		return usageError{err}
	}

	opts := convert.Options{
		Workers:    viper.GetInt("convert.workers"),
		SkipErrors: o.skipErrors,
	}
	if o.antisense {
		opts.Transform = antisense
	}

	stats, err := writeAll(cmd, r, w, opts, c.logger)
	if err != nil {
		return err
	}
	if stats.Skipped > 0 {
		c.logger.Warn("features skipped", zap.Int("skipped", stats.Skipped))
	}
	return closeOut()
}

// writeAll writes the header, converts every feature of r and flushes w.
func writeAll(cmd *cobra.Command, r reader.FeatureReader, w *output.FeatureWriter, opts convert.Options, logger *zap.Logger) (convert.Stats, error) {
	if err := w.WriteHeader(); err != nil {
		return convert.Stats{}, fmt.Errorf("writing header: %w", err)
	}
	stats, err := convert.Convert(cmd.Context(), r, w, opts, logger)
	if err != nil {
		return stats, err
	}
	if err := w.Flush(); err != nil {
		return stats, fmt.Errorf("flushing output: %w", err)
	}
	return stats, nil
}

// antisense keeps the name of f on its antisense chain.
func antisense(f roi.Feature) (roi.Feature, error) {
	a := f.AsChain().Antisense()
	a.Attr().SetString(roi.KeyID, f.Name())
	return a, nil
}
