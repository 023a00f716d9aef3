package main

import (
	"github.com/spf13/cobra"

	"github.com/inodb/vibe-roi/internal/output"
)

func newFastaCmd(c *cli) *cobra.Command {
	o := convertOptions{to: output.FormatFASTA}

	cmd := &cobra.Command{
		Use:   "fasta [flags] <input-file>",
		Short: "Write the spliced sequence of each feature as FASTA",
		Long: `Fetch the spliced sequence of every feature from a genome FASTA file.
Minus-strand features are reverse-complemented unless --unstranded is set.`,
		Example: `  vibe-roi fasta --genome GRCh38.fa.gz transcripts.bed
  vibe-roi fasta --genome GRCh38.fa --transcripts -o tx.fa gencode.gtf`,
		Args: usageArgs(cobra.ExactArgs(1)),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd, map[string]string{
				"workers":       "convert.workers",
				"extra-columns": "bed.extra_columns",
			})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, c, args[0], &o)
		},
	}

	fs := cmd.Flags()
	addInputFlags(fs, &o.from, &o.transcripts)
	fs.StringVarP(&o.outputPath, "output", "o", "", "Output file (default: stdout)")
	fs.Int("workers", 0, "Formatting goroutines (default: number of CPUs)")
	fs.StringVarP(&o.genomePath, "genome", "g", "", "Genome FASTA file (.gz allowed)")
	fs.BoolVar(&o.unstranded, "unstranded", false, "Do not reverse-complement minus-strand sequence")
	fs.BoolVar(&o.skipErrors, "skip-errors", false, "Skip features whose sequence cannot be fetched")
	_ = cmd.MarkFlagRequired("genome")

	return cmd
}
