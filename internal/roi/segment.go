// Package roi models discontinuous genomic features (regions of interest).
package roi

import (
	"cmp"
	"fmt"
)

// Strand is the chromosome strand of a segment or chain.
type Strand byte

const (
	StrandPlus       Strand = '+'
	StrandMinus      Strand = '-'
	StrandUnstranded Strand = '.'
)

// ParseStrand converts "+", "-" or "." to a Strand.
func ParseStrand(s string) (Strand, error) {
	switch s {
	case "+":
		return StrandPlus, nil
	case "-":
		return StrandMinus, nil
	case ".":
		return StrandUnstranded, nil
	}
	return 0, fmt.Errorf("parse strand %q: %w", s, ErrInvalidInput)
}

// String returns the one-character strand symbol.
func (s Strand) String() string {
	if s == 0 {
		return "."
	}
	return string(rune(s))
}

// Opposite returns the antisense strand. Unstranded stays unstranded.
func (s Strand) Opposite() Strand {
	switch s {
	case StrandPlus:
		return StrandMinus
	case StrandMinus:
		return StrandPlus
	}
	return StrandUnstranded
}

// Segment is a single contiguous region of a chromosome.
// Coordinates are 0-based and half-open.
type Segment struct {
	Chrom  string
	Start  int
	End    int
	Strand Strand
}

// NewSegment returns a segment, rejecting negative or inverted coordinates.
func NewSegment(chrom string, start, end int, strand Strand) (Segment, error) {
	if start < 0 || end < start {
		return Segment{}, fmt.Errorf("segment %s:%d-%d: %w", chrom, start, end, ErrInvalidInput)
	}
	switch strand {
	case StrandPlus, StrandMinus, StrandUnstranded:
	default:
		return Segment{}, fmt.Errorf("segment strand %q: %w", rune(strand), ErrInvalidInput)
	}
	return Segment{Chrom: chrom, Start: start, End: end, Strand: strand}, nil
}

// Len returns the number of positions covered by the segment.
func (s Segment) Len() int {
	return s.End - s.Start
}

// Contains reports whether o lies entirely within s on the same chromosome.
func (s Segment) Contains(o Segment) bool {
	return s.Chrom == o.Chrom && o.Start >= s.Start && o.End <= s.End
}

// Overlaps reports whether s and o share at least one position on the same
// chromosome. Strand is not considered.
func (s Segment) Overlaps(o Segment) bool {
	return s.Chrom == o.Chrom && s.Start < o.End && o.Start < s.End
}

// String renders the segment as chrom:start-end(strand).
func (s Segment) String() string {
	return fmt.Sprintf("%s:%d-%d(%s)", s.Chrom, s.Start, s.End, s.Strand)
}

// CompareSegments orders segments lexically by chrom, start, end and strand.
func CompareSegments(a, b Segment) int {
	if c := cmp.Compare(a.Chrom, b.Chrom); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Start, b.Start); c != 0 {
		return c
	}
	if c := cmp.Compare(a.End, b.End); c != 0 {
		return c
	}
	return cmp.Compare(a.Strand, b.Strand)
}
