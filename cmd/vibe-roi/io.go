package main

import (
	"io"
	"os"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-roi/internal/format"
	"github.com/inodb/vibe-roi/internal/output"
	"github.com/inodb/vibe-roi/internal/reader"
)

// inputFormat resolves the --from flag, falling back to the file extension.
func inputFormat(path, from string) (reader.Format, error) {
	if from != "" {
		f, err := reader.ParseFormat(from)
		if err != nil {
			return "", usageError{err}
		}
		return f, nil
	}
	if path == "-" {
		return "", usageError{errFromRequired}
	}
	f, err := reader.FormatFromPath(path)
	if err != nil {
		return "", usageError{err}
	}
	return f, nil
}

// openInput opens path for reading. With transcripts set, GTF2 and GFF3
// files are assembled into transcripts before the first feature is returned.
func openInput(path, from string, transcripts bool, logger *zap.Logger) (reader.FeatureReader, error) {
	f, err := inputFormat(path, from)
	if err != nil {
		return nil, err
	}

	opts := &reader.Options{Transcripts: transcripts}
	if n := viper.GetInt("bed.extra_columns"); n > 0 {
		opts.Columns = format.CustomColumns(n)
	}

	if transcripts && (f == reader.FormatGTF || f == reader.FormatGFF3) {
		txs, err := reader.ReadTranscripts(path, f, opts, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("assembled transcripts", zap.String("file", path), zap.Int("transcripts", len(txs)))
		return reader.TranscriptReader(txs), nil
	}

	r, err := reader.Open(path, f, opts)
	if err != nil {
		return nil, err
	}
	r.SetLogger(logger)
	return r, nil
}

// openOutput returns the command's stdout for "" or "-", otherwise it
// creates the named file. The returned close func may be called more than
// once; later calls report the result of the first.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	closeOnce := sync.OnceValue(f.Close)
	return f, closeOnce, nil
}

// writerConfig builds output options from the loaded configuration.
func writerConfig() *output.Config {
	return &output.Config{
		BED: &format.BEDOptions{
			ScoreAsFloat: viper.GetBool("bed.score_as_float"),
		},
		GFF: &format.GFFOptions{
			NoEscape: viper.GetBool("gtf.no_escape"),
		},
		RNAType: viper.GetString("gff3.rna_type"),
	}
}
