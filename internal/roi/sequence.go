package roi

import (
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// SequenceProvider returns the genomic sequence of chrom in [start, end).
type SequenceProvider interface {
	Get(chrom string, start, end int) (string, error)
}

// CountsProvider returns one value per position of seg, in genomic order.
type CountsProvider interface {
	Counts(seg Segment) ([]float64, error)
}

var complement = [256]byte{
	'A': 'T', 'T': 'A', 'C': 'G', 'G': 'C', 'N': 'N', 'U': 'A',
	'a': 't', 't': 'a', 'c': 'g', 'g': 'c', 'n': 'n', 'u': 'a',
	'R': 'Y', 'Y': 'R', 'K': 'M', 'M': 'K', 'S': 'S', 'W': 'W',
	'r': 'y', 'y': 'r', 'k': 'm', 'm': 'k', 's': 's', 'w': 'w',
	'B': 'V', 'V': 'B', 'D': 'H', 'H': 'D',
	'b': 'v', 'v': 'b', 'd': 'h', 'h': 'd',
	'-': '-', '.': '.',
}

// ReverseComplement returns the reverse complement of a nucleotide
// sequence. IUPAC ambiguity codes are complemented; unknown bytes become N.
func ReverseComplement(seq string) string {
	n := len(seq)
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		c := complement[seq[n-1-i]]
		if c == 0 {
			c = 'N'
		}
		out[i] = c
	}
	return string(out)
}

// Sequence returns the spliced sequence of the chain. With stranded set,
// minus-strand chains are reverse complemented. A chain with no segments
// yields "" and logs a warning.
func (c *Chain) Sequence(p SequenceProvider, stranded bool) (string, error) {
	if c.index.length == 0 {
		logger.Warn("sequence requested for zero-length chain", zap.String("chain", c.Name()))
		return "", nil
	}
	var b strings.Builder
	b.Grow(c.index.length)
	for _, s := range c.index.segments {
		seq, err := p.Get(s.Chrom, s.Start, s.End)
		if err != nil {
			return "", fmt.Errorf("fetch sequence %s: %w", s, err)
		}
		b.WriteString(seq)
	}
	if stranded && c.strand == StrandMinus {
		return ReverseComplement(b.String()), nil
	}
	return b.String(), nil
}

// FASTA renders the chain's sequence as a FASTA record named by Name.
func (c *Chain) FASTA(p SequenceProvider, stranded bool) (string, error) {
	return fastaRecord(c.Name(), c, p, stranded)
}

func fastaRecord(name string, c *Chain, p SequenceProvider, stranded bool) (string, error) {
	seq, err := c.Sequence(p, stranded)
	if err != nil {
		return "", err
	}
	return ">" + name + "\n" + seq + "\n", nil
}

// Counts returns one value per chain position, in spliced order. With
// stranded set, values on minus-strand chains run 5' to 3'. A chain with
// no segments yields an empty vector and logs a warning.
func (c *Chain) Counts(p CountsProvider, stranded bool) ([]float64, error) {
	if c.index.length == 0 {
		logger.Warn("counts requested for zero-length chain", zap.String("chain", c.Name()))
		return []float64{}, nil
	}
	out := make([]float64, 0, c.index.length)
	for _, s := range c.index.segments {
		v, err := p.Counts(s)
		if err != nil {
			return nil, fmt.Errorf("fetch counts %s: %w", s, err)
		}
		if len(v) != s.Len() {
			return nil, fmt.Errorf("fetch counts %s: got %d values: %w", s, len(v), ErrInvalidInput)
		}
		out = append(out, v...)
	}
	if stranded && c.strand == StrandMinus {
		slices.Reverse(out)
	}
	return out, nil
}

// MaskedArray is a count vector with a parallel mask. Mask[i] is true when
// position i is excluded.
type MaskedArray struct {
	Values []float64
	Mask   []bool
}

// Len returns the number of positions.
func (m MaskedArray) Len() int { return len(m.Values) }

// Unmasked returns the values whose positions are not masked.
func (m MaskedArray) Unmasked() []float64 {
	var out []float64
	for i, v := range m.Values {
		if !m.Mask[i] {
			out = append(out, v)
		}
	}
	return out
}

// Sum adds the unmasked values.
func (m MaskedArray) Sum() float64 {
	var total float64
	for _, v := range m.Unmasked() {
		total += v
	}
	return total
}

// MaskedCounts is Counts with masked positions flagged.
func (c *Chain) MaskedCounts(p CountsProvider, stranded bool) (MaskedArray, error) {
	values, err := c.Counts(p, stranded)
	if err != nil {
		return MaskedArray{}, err
	}
	mask := make([]bool, len(values))
	for i := range mask {
		mask[i] = true
	}
	for _, pos := range c.MaskedPositionList() {
		x, err := c.ChainCoordinate(c.chrom, pos, c.strand, stranded)
		if err != nil {
			return MaskedArray{}, err
		}
		mask[x] = false
	}
	return MaskedArray{Values: values, Mask: mask}, nil
}
