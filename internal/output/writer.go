// Package output provides feature output writers.
package output

import (
	"bufio"
	"fmt"
	"io"

	"github.com/inodb/vibe-roi/internal/format"
	"github.com/inodb/vibe-roi/internal/roi"
)

// Output format names.
const (
	FormatBED   = "bed"
	FormatGTF   = "gtf"
	FormatGFF3  = "gff3"
	FormatPSL   = "psl"
	FormatFASTA = "fasta"
)

// Config holds the per-format options used by New.
type Config struct {
	BED *format.BEDOptions
	GFF *format.GFFOptions
	// RNAType is the GFF3 type of transcript parent lines.
	RNAType string
	// Sequences is required for FASTA output.
	Sequences roi.SequenceProvider
	Stranded  bool
}

// FeatureWriter writes features in one text format.
type FeatureWriter struct {
	w      *bufio.Writer
	header string
	format func(roi.Feature) (string, error)
}

// New creates a writer for the named format.
func New(w io.Writer, name string, cfg *Config) (*FeatureWriter, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	switch name {
	case FormatBED:
		return NewBEDWriter(w, cfg.BED), nil
	case FormatGTF:
		return NewGTFWriter(w, cfg.GFF), nil
	case FormatGFF3:
		return NewGFF3Writer(w, cfg.RNAType, cfg.GFF), nil
	case FormatPSL:
		return NewPSLWriter(w), nil
	case FormatFASTA:
		if cfg.Sequences == nil {
			return nil, fmt.Errorf("create fasta writer: no genome sequence")
		}
		return NewFASTAWriter(w, cfg.Sequences, cfg.Stranded), nil
	}
	return nil, fmt.Errorf("unknown output format %q", name)
}

// NewBEDWriter creates a BED12 writer.
func NewBEDWriter(w io.Writer, opts *format.BEDOptions) *FeatureWriter {
	return &FeatureWriter{
		w: bufio.NewWriter(w),
		format: func(f roi.Feature) (string, error) {
			return format.FormatBED(f, opts), nil
		},
	}
}

// NewGTFWriter creates a GTF2 writer. Transcripts are written with their
// CDS, start_codon and stop_codon lines.
func NewGTFWriter(w io.Writer, opts *format.GFFOptions) *FeatureWriter {
	return &FeatureWriter{
		w: bufio.NewWriter(w),
		format: func(f roi.Feature) (string, error) {
			if t, ok := f.(*roi.Transcript); ok {
				return format.FormatTranscriptGTF(t, opts)
			}
			return format.FormatGTF(f, opts), nil
		},
	}
}

// NewGFF3Writer creates a GFF3 writer. Transcripts are written as a parent
// line of type rnaType with exon, UTR and CDS children.
func NewGFF3Writer(w io.Writer, rnaType string, opts *format.GFFOptions) *FeatureWriter {
	return &FeatureWriter{
		w:      bufio.NewWriter(w),
		header: "##gff-version 3\n",
		format: func(f roi.Feature) (string, error) {
			if t, ok := f.(*roi.Transcript); ok {
				return format.FormatTranscriptGFF3(t, rnaType, opts)
			}
			return format.FormatGFF3(f, opts)
		},
	}
}

// NewPSLWriter creates a header-less PSL writer.
func NewPSLWriter(w io.Writer) *FeatureWriter {
	return &FeatureWriter{
		w:      bufio.NewWriter(w),
		format: format.FormatPSL,
	}
}

type fastaFormatter interface {
	FASTA(p roi.SequenceProvider, stranded bool) (string, error)
}

// NewFASTAWriter creates a writer emitting each feature's spliced sequence.
func NewFASTAWriter(w io.Writer, seqs roi.SequenceProvider, stranded bool) *FeatureWriter {
	return &FeatureWriter{
		w: bufio.NewWriter(w),
		format: func(f roi.Feature) (string, error) {
			if ff, ok := f.(fastaFormatter); ok {
				return ff.FASTA(seqs, stranded)
			}
			return f.AsChain().FASTA(seqs, stranded)
		},
	}
}

// WriteHeader writes the format header, if the format has one.
func (fw *FeatureWriter) WriteHeader() error {
	if fw.header == "" {
		return nil
	}
	_, err := fw.w.WriteString(fw.header)
	return err
}

// Format renders f without writing it.
func (fw *FeatureWriter) Format(f roi.Feature) (string, error) {
	s, err := fw.format(f)
	if err != nil {
		return "", fmt.Errorf("format %s: %w", f.Name(), err)
	}
	return s, nil
}

// Write formats and writes a single feature.
func (fw *FeatureWriter) Write(f roi.Feature) error {
	s, err := fw.Format(f)
	if err != nil {
		return err
	}
	return fw.WriteFormatted(s)
}

// WriteFormatted writes text produced by Format.
func (fw *FeatureWriter) WriteFormatted(s string) error {
	_, err := fw.w.WriteString(s)
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (fw *FeatureWriter) Flush() error {
	return fw.w.Flush()
}
