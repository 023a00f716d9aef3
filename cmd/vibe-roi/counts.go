package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/vibe-roi/internal/genome"
	"github.com/inodb/vibe-roi/internal/output"
	"github.com/inodb/vibe-roi/internal/reader"
	"github.com/inodb/vibe-roi/internal/roi"
)

type countsOptions struct {
	from        string
	transcripts bool
	outputPath  string
	plusPath    string
	minusPath   string
	maskPath    string
	region      string
}

func newCountsCmd(c *cli) *cobra.Command {
	var o countsOptions

	cmd := &cobra.Command{
		Use:   "counts [flags] <input-file>",
		Short: "Sum bedGraph values over each feature",
		Long: `Sum the values of a bedGraph track over the positions of every feature.

With --minus, --bedgraph holds plus-strand values and --minus holds
minus-strand values. Positions covered by --mask features are excluded
from the sums. --region restricts the output to one feature part: cds,
utr5 or utr3 (transcripts only).`,
		Example: `  vibe-roi counts --bedgraph coverage.bg peaks.bed
  vibe-roi counts --bedgraph fwd.bg --minus rev.bg --transcripts --region cds gencode.gtf`,
		Args: usageArgs(cobra.ExactArgs(1)),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd, map[string]string{"extra-columns": "bed.extra_columns"})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCounts(cmd, c, args[0], &o)
		},
	}

	fs := cmd.Flags()
	addInputFlags(fs, &o.from, &o.transcripts)
	fs.StringVarP(&o.outputPath, "output", "o", "", "Output file (default: stdout)")
	fs.StringVarP(&o.plusPath, "bedgraph", "b", "", "bedGraph track (plus strand when --minus is set)")
	fs.StringVar(&o.minusPath, "minus", "", "Minus-strand bedGraph track")
	fs.StringVar(&o.maskPath, "mask", "", "BED file of positions to exclude")
	fs.StringVar(&o.region, "region", "", "Feature part to count: cds, utr5 or utr3")
	_ = cmd.MarkFlagRequired("bedgraph")

	return cmd
}

func runCounts(cmd *cobra.Command, c *cli, inputPath string, o *countsOptions) error {
	part, err := regionPart(o.region)
	if err != nil {
		return err
	}
	if part != nil && !o.transcripts {
		return usageError{fmt.Errorf("--region %s requires --transcripts", o.region)}
	}

	provider, stranded, err := loadCounts(o.plusPath, o.minusPath)
	if err != nil {
		return err
	}

	var masks []roi.Feature
	if o.maskPath != "" {
		masks, err = readMasks(o.maskPath, c.logger)
		if err != nil {
			return err
		}
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

	tw := output.NewTabWriter(out)
	if err := tw.WriteHeader(); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	n := 0
	for {
		f, err := r.Next()
		if err != nil {
			return err
		}
		if f == nil {
			break
		}
		if part != nil {
			if f, err = part(f); err != nil {
				return err
			}
		}
		ch := f.AsChain()
		for _, m := range masks {
			if err := maskOverlap(ch, m.AsChain()); err != nil {
				return err
			}
		}
		counts, err := ch.MaskedCounts(provider, stranded)
		if err != nil {
			return fmt.Errorf("counts for %s: %w", f.Name(), err)
		}
		if err := tw.Write(f, counts); err != nil {
			return fmt.Errorf("writing %s: %w", f.Name(), err)
		}
		n++
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flushing output: %w", err)
	}
	c.logger.Info("counted features", zap.Int("features", n))
	return closeOut()
}

// loadCounts loads a single track, or a stranded pair when minusPath is set.
func loadCounts(plusPath, minusPath string) (roi.CountsProvider, bool, error) {
	plus, err := genome.LoadBedGraph(plusPath)
	if err != nil {
		return nil, false, err
	}
	if minusPath == "" {
		return plus, false, nil
	}
	minus, err := genome.LoadBedGraph(minusPath)
	if err != nil {
		return nil, false, err
	}
	return genome.StrandedCounts{Plus: plus, Minus: minus}, true, nil
}

// regionPart maps a --region value to the sub-chain it selects.
func regionPart(region string) (func(roi.Feature) (roi.Feature, error), error) {
	var get func(*roi.Transcript, *roi.Attributes) (*roi.Chain, error)
	switch region {
	case "":
		return nil, nil
	case "cds":
		get = (*roi.Transcript).CDS
	case "utr5":
		get = (*roi.Transcript).UTR5
	case "utr3":
		get = (*roi.Transcript).UTR3
	default:
		return nil, usageError{fmt.Errorf("unknown region %q", region)}
	}
	return func(f roi.Feature) (roi.Feature, error) {
		t, ok := f.(*roi.Transcript)
		if !ok {
			return nil, fmt.Errorf("%s is not a transcript", f.Name())
		}
		sub, err := get(t, nil)
		if err != nil {
			return nil, fmt.Errorf("%s of %s: %w", region, f.Name(), err)
		}
		sub.Attr().SetString(roi.KeyID, t.Name())
		return sub, nil
	}, nil
}

func readMasks(path string, logger *zap.Logger) ([]roi.Feature, error) {
	r, err := openInput(path, "", false, logger)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	masks, err := reader.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading masks: %w", err)
	}
	return masks, nil
}

// maskOverlap masks the positions of ch that m covers. Masks on another
// chromosome or strand are ignored.
func maskOverlap(ch, m *roi.Chain) error {
	if !ch.UnstrandedOverlaps(m) {
		return nil
	}
	var segs []roi.Segment
	for _, s := range m.Segments() {
		s.Strand = ch.Strand()
		segs = append(segs, s)
	}
	return ch.AddMasks(segs...)
}
