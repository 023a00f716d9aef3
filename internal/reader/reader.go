// Package reader reads features from BED, GTF2, GFF3, PSL and bowtie files,
// and assembles transcripts from GTF2 and GFF3 feature lines.
package reader

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/inodb/vibe-roi/internal/format"
	"github.com/inodb/vibe-roi/internal/roi"
)

// Format names an annotation file format.
type Format string

// Supported formats.
const (
	FormatBED    Format = "bed"
	FormatGTF    Format = "gtf"
	FormatGFF3   Format = "gff3"
	FormatPSL    Format = "psl"
	FormatBowtie Format = "bowtie"
)

// ParseFormat resolves a format name, accepting common aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "bed", "bed12":
		return FormatBED, nil
	case "gtf", "gtf2":
		return FormatGTF, nil
	case "gff", "gff3":
		return FormatGFF3, nil
	case "psl":
		return FormatPSL, nil
	case "bowtie":
		return FormatBowtie, nil
	}
	return "", fmt.Errorf("unknown format %q", s)
}

// FormatFromPath guesses the format from a file extension, ignoring a
// trailing .gz.
func FormatFromPath(path string) (Format, error) {
	ext := filepath.Ext(strings.TrimSuffix(path, ".gz"))
	if ext == "" {
		return "", fmt.Errorf("no extension on %q", path)
	}
	return ParseFormat(ext[1:])
}

// FeatureReader is implemented by readers that yield one feature at a time.
type FeatureReader interface {
	// Next reads the next feature.
	// Returns nil, nil when there are no more features.
	Next() (roi.Feature, error)

	// Close releases the underlying file.
	Close() error

	// LineNumber returns the number of the last line read.
	LineNumber() int
}

// Options controls how lines are turned into features.
type Options struct {
	// Columns describes extra BED columns following the BED fields.
	Columns []format.Column
	// Transcripts makes BED and PSL lines yield *roi.Transcript.
	Transcripts bool
}

// MalformedFileError reports a line that could not be parsed.
type MalformedFileError struct {
	Filename string
	Line     int
	Err      error
}

func (e *MalformedFileError) Error() string {
	return fmt.Sprintf("%s line %d: %v", e.Filename, e.Line, e.Err)
}

func (e *MalformedFileError) Unwrap() error { return e.Err }

// LineReader reads features from a line-oriented annotation file.
type LineReader struct {
	reader     *bufio.Reader
	file       *os.File
	gzipReader *gzip.Reader
	name       string
	format     Format
	parse      func(string) (roi.Feature, error)
	lineNumber int
	done       bool
	logger     *zap.Logger
}

// Open opens path for reading in format f. A path of "-" reads stdin.
// Gzip input is detected from its magic bytes.
func Open(path string, f Format, opts *Options) (*LineReader, error) {
	if path == "-" {
		return NewLineReader(os.Stdin, "<stdin>", f, opts)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s file: %w", f, err)
	}
	r, err := NewLineReader(file, path, f, opts)
	if err != nil {
		file.Close()
		return nil, err
	}
	r.file = file
	return r, nil
}

// NewLineReader reads features in format f from r. name is used in error
// messages.
func NewLineReader(r io.Reader, name string, f Format, opts *Options) (*LineReader, error) {
	if opts == nil {
		opts = &Options{}
	}
	parse, err := lineParser(f, opts)
	if err != nil {
		return nil, err
	}
	lr := &LineReader{name: name, format: f, parse: parse, logger: zap.NewNop()}

	br := bufio.NewReaderSize(r, 64*1024)
	magic, err := br.Peek(2)
	if err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		lr.gzipReader, err = gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		br = bufio.NewReaderSize(lr.gzipReader, 64*1024)
	}
	lr.reader = br
	return lr, nil
}

func lineParser(f Format, opts *Options) (func(string) (roi.Feature, error), error) {
	switch f {
	case FormatBED:
		if opts.Transcripts {
			return func(line string) (roi.Feature, error) { return format.ParseBEDTranscript(line, opts.Columns) }, nil
		}
		return func(line string) (roi.Feature, error) { return format.ParseBED(line, opts.Columns) }, nil
	case FormatPSL:
		if opts.Transcripts {
			return func(line string) (roi.Feature, error) { return format.ParsePSLTranscript(line) }, nil
		}
		return func(line string) (roi.Feature, error) { return format.ParsePSL(line) }, nil
	case FormatBowtie:
		return func(line string) (roi.Feature, error) { return format.ParseBowtie(line) }, nil
	case FormatGTF:
		return func(line string) (roi.Feature, error) { return format.ParseGTF(line) }, nil
	case FormatGFF3:
		return func(line string) (roi.Feature, error) { return format.ParseGFF3(line) }, nil
	}
	return nil, fmt.Errorf("unknown format %q", f)
}

// SetLogger sets the logger used for skipped lines.
func (r *LineReader) SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	r.logger = l
}

// Next reads the next feature, skipping blank lines, comments and BED
// track or browser lines. A GFF3 ##FASTA directive ends the features.
func (r *LineReader) Next() (roi.Feature, error) {
	for !r.done {
		line, err := r.reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("read %s: %w", r.name, err)
		}
		if err == io.EOF {
			r.done = true
			if line == "" {
				break
			}
		}
		r.lineNumber++

		line = strings.TrimRight(line, "\r\n")
		if r.skip(line) {
			continue
		}
		f, perr := r.parse(line)
		if perr != nil {
			return nil, &MalformedFileError{Filename: r.name, Line: r.lineNumber, Err: perr}
		}
		return f, nil
	}
	return nil, nil
}

func (r *LineReader) skip(line string) bool {
	switch {
	case strings.TrimSpace(line) == "":
		return true
	case r.format == FormatGFF3 && strings.HasPrefix(line, "##FASTA"):
		r.logger.Debug("stopping at FASTA section", zap.String("file", r.name), zap.Int("line", r.lineNumber))
		r.done = true
		return true
	case strings.HasPrefix(line, "#"):
		return true
	case r.format == FormatBED && (strings.HasPrefix(line, "track") || strings.HasPrefix(line, "browser")):
		r.logger.Debug("skipping header line", zap.String("file", r.name), zap.Int("line", r.lineNumber))
		return true
	}
	return false
}

// LineNumber returns the number of the last line read.
func (r *LineReader) LineNumber() int {
	return r.lineNumber
}

// Close closes the reader and underlying file.
func (r *LineReader) Close() error {
	if r.gzipReader != nil {
		r.gzipReader.Close()
	}
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// ReadAll drains r. On error the features read so far are returned with it.
func ReadAll(r FeatureReader) ([]roi.Feature, error) {
	var out []roi.Feature
	for {
		f, err := r.Next()
		if err != nil {
			return out, err
		}
		if f == nil {
			return out, nil
		}
		out = append(out, f)
	}
}
