package output

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/vibe-roi/internal/roi"
)

// TabWriter writes one tab-delimited row of count totals per feature.
type TabWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewTabWriter creates a new tab-delimited writer.
func NewTabWriter(w io.Writer) *TabWriter {
	return &TabWriter{
		w: bufio.NewWriter(w),
		columns: []string{
			"#region_name",
			"region",
			"gene",
			"length",
			"masked_length",
			"counts",
			"counts_per_nt",
		},
	}
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(tw.columns, "\t") + "\n")
	return err
}

// Write writes the row for f. counts holds the feature's masked count
// vector.
func (tw *TabWriter) Write(f roi.Feature, counts roi.MaskedArray) error {
	c := f.AsChain()
	total := counts.Sum()
	unmasked := len(counts.Unmasked())

	// Fully masked features have no per-nucleotide density.
	density := "-"
	if unmasked > 0 {
		density = strconv.FormatFloat(total/float64(unmasked), 'g', 6, 64)
	}

	values := []string{
		f.Name(),
		c.String(),
		f.Gene(),
		strconv.Itoa(c.Length()),
		strconv.Itoa(c.MaskedLength()),
		strconv.FormatFloat(total, 'f', -1, 64),
		density,
	}

	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}
