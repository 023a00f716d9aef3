package roi

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Region is anything the chain algebra accepts as its other operand.
// A Segment is lifted to a one-segment chain before comparison.
type Region interface {
	regionChain() *Chain
}

// Feature is a chain-backed annotation that names itself. Chain and
// Transcript implement it with their own naming rules.
type Feature interface {
	Region
	AsChain() *Chain
	Name() string
	Gene() string
}

func (s Segment) regionChain() *Chain {
	c := &Chain{attr: NewAttributes()}
	c.attr.SetString(KeyType, "exon")
	_ = c.AddSegments(s)
	return c
}

// Chain is a possibly discontinuous genomic feature: a minimal, sorted list
// of segments sharing one chromosome and strand, a set of masked positions
// and an attribute map.
//
// Mutation is not synchronized. Concurrent reads of a chain that is not
// being mutated are safe.
type Chain struct {
	chrom  string
	strand Strand
	masks  []Segment
	index  positionIndex
	attr   *Attributes
}

// NewChain returns a chain covering segs. attr is deep copied; type
// defaults to "exon".
func NewChain(attr *Attributes, segs ...Segment) (*Chain, error) {
	c := &Chain{attr: attr.Clone()}
	if !c.attr.Has(KeyType) {
		c.attr.SetString(KeyType, "exon")
	}
	if err := c.AddSegments(segs...); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Chain) regionChain() *Chain { return c }

// AsChain returns c.
func (c *Chain) AsChain() *Chain { return c }

// Attr returns the chain's attribute map. Callers may modify it.
func (c *Chain) Attr() *Attributes { return c.attr }

// Chrom returns the chromosome, or "" for a chain that was never populated.
func (c *Chain) Chrom() string { return c.chrom }

// Strand returns the chain's strand, or 0 for a chain that was never populated.
func (c *Chain) Strand() Strand { return c.strand }

// Segments returns a copy of the chain's segments in ascending order.
func (c *Chain) Segments() []Segment { return slices.Clone(c.index.segments) }

// NumSegments returns the number of segments.
func (c *Chain) NumSegments() int { return len(c.index.segments) }

// Length returns the number of positions covered by the chain.
func (c *Chain) Length() int { return c.index.length }

// checkCompatible verifies that segs share one chromosome and strand with
// each other and with the chain, if it has been populated.
func (c *Chain) checkCompatible(what string, segs []Segment) error {
	chrom, strand := c.chrom, c.strand
	if len(c.index.segments) == 0 && len(c.masks) == 0 {
		chrom, strand = segs[0].Chrom, segs[0].Strand
	}
	for _, s := range segs {
		if s.Start < 0 || s.End < s.Start {
			return fmt.Errorf("add %s %s: %w", what, s, ErrInvalidInput)
		}
		if s.Chrom != chrom || s.Strand != strand {
			return fmt.Errorf("add %s %s to %s(%s): %w", what, s, chrom, strand, ErrInvalidInput)
		}
	}
	return nil
}

// AddSegments unions segs into the chain. All segments must share the
// chain's chromosome and strand.
func (c *Chain) AddSegments(segs ...Segment) error {
	if len(segs) == 0 {
		return nil
	}
	if err := c.checkCompatible("segment", segs); err != nil {
		return err
	}
	chrom, strand := c.chrom, c.strand
	if len(c.index.segments) == 0 {
		chrom, strand = segs[0].Chrom, segs[0].Strand
	}
	merged := mergeSegments(chrom, strand, append(c.Segments(), segs...))
	if len(merged) == 0 {
		return nil
	}
	c.chrom, c.strand = chrom, strand
	c.index = buildIndex(merged)
	c.masks = intersectSegments(c.masks, merged)
	return nil
}

// AddMasks masks the positions of segs that fall within the chain.
// Positions outside the chain are discarded.
func (c *Chain) AddMasks(segs ...Segment) error {
	if len(segs) == 0 {
		return nil
	}
	if err := c.checkCompatible("mask", segs); err != nil {
		return err
	}
	if len(c.index.segments) == 0 {
		return nil
	}
	merged := mergeSegments(c.chrom, c.strand, append(slices.Clone(c.masks), segs...))
	c.masks = intersectSegments(merged, c.index.segments)
	return nil
}

// ResetMasks removes all masks.
func (c *Chain) ResetMasks() { c.masks = nil }

// Masks returns a copy of the masked segments.
func (c *Chain) Masks() []Segment { return slices.Clone(c.masks) }

// MasksAsChain returns the masked positions as a chain with no attributes.
func (c *Chain) MasksAsChain() *Chain {
	m, _ := NewChain(nil, c.masks...)
	return m
}

// MaskedSegments returns the segments left once masked positions are removed.
func (c *Chain) MaskedSegments() []Segment {
	return subtractSegments(c.index.segments, c.masks)
}

// MaskedLength returns the number of unmasked positions.
func (c *Chain) MaskedLength() int {
	n := c.index.length
	for _, m := range c.masks {
		n -= m.Len()
	}
	return n
}

// PositionList returns every genomic position of the chain in ascending order.
func (c *Chain) PositionList() []int {
	return expandPositions(c.index.segments)
}

// MaskedPositionList returns the unmasked positions in ascending order.
func (c *Chain) MaskedPositionList() []int {
	return expandPositions(c.MaskedSegments())
}

func expandPositions(segs []Segment) []int {
	var out []int
	for _, s := range segs {
		for p := s.Start; p < s.End; p++ {
			out = append(out, p)
		}
	}
	return out
}

// Span returns the single segment from the first start to the last end.
// It reports false for a chain with no segments.
func (c *Chain) Span() (Segment, bool) {
	segs := c.index.segments
	if len(segs) == 0 {
		return Segment{}, false
	}
	return Segment{Chrom: c.chrom, Start: segs[0].Start, End: segs[len(segs)-1].End, Strand: c.strand}, true
}

// Junctions returns the gaps between consecutive segments.
func (c *Chain) Junctions() []Segment {
	segs := c.index.segments
	var out []Segment
	for i := 1; i < len(segs); i++ {
		out = append(out, Segment{Chrom: c.chrom, Start: segs[i-1].End, End: segs[i].Start, Strand: c.strand})
	}
	return out
}

// ChainCoordinate converts a genomic position to a spliced offset. With
// stranded set, offsets on minus-strand chains count from the 3' end of
// the genome, i.e. from the feature's 5' end.
func (c *Chain) ChainCoordinate(chrom string, pos int, strand Strand, stranded bool) (int, error) {
	if chrom != c.chrom || strand != c.strand {
		return 0, fmt.Errorf("chain coordinate of %s:%d(%s) in %s: %w", chrom, pos, strand, c, ErrInvalidInput)
	}
	x, ok := c.index.offset(pos)
	if !ok {
		return 0, fmt.Errorf("chain coordinate of %s:%d in %s: %w", chrom, pos, c, ErrOutOfRange)
	}
	if stranded && c.strand == StrandMinus {
		x = c.index.length - x - 1
	}
	return x, nil
}

// GenomicCoordinate converts a spliced offset back to a genomic position.
func (c *Chain) GenomicCoordinate(x int, stranded bool) (int, error) {
	if x < 0 || x >= c.index.length {
		return 0, fmt.Errorf("genomic coordinate of %d in %s (length %d): %w", x, c, c.index.length, ErrOutOfRange)
	}
	if stranded && c.strand == StrandMinus {
		x = c.index.length - x - 1
	}
	return c.index.position(x), nil
}

// Subchain returns the part of the chain between spliced offsets start
// and end. Attributes are deep copied, ID is set to "<name>_subchain" and
// extra is applied last.
func (c *Chain) Subchain(start, end int, stranded bool, extra *Attributes) (*Chain, error) {
	return c.subchain(start, end, stranded, c.Name()+"_subchain", extra)
}

func (c *Chain) subchain(start, end int, stranded bool, id string, extra *Attributes) (*Chain, error) {
	if start < 0 || end > c.index.length || start > end {
		return nil, fmt.Errorf("subchain [%d, %d) of %s (length %d): %w", start, end, c, c.index.length, ErrOutOfRange)
	}
	lo, hi := start, end
	if stranded && c.strand == StrandMinus {
		lo, hi = c.index.length-end, c.index.length-start
	}
	attr := c.attr.Clone()
	attr.SetString(KeyID, id)
	attr.Update(extra)
	return NewChain(attr, c.index.slice(lo, hi)...)
}

// nullSubchain is subchain with possibly undefined bounds.
func (c *Chain) nullSubchain(start, end NullInt, stranded bool, id string, extra *Attributes) (*Chain, error) {
	if !start.Valid || !end.Valid {
		return nil, fmt.Errorf("subchain of %s: %w", c, ErrMissingArgument)
	}
	return c.subchain(start.Int, end.Int, stranded, id, extra)
}

// UnstrandedOverlaps reports whether c and r share a position, ignoring strand.
func (c *Chain) UnstrandedOverlaps(r Region) bool {
	o := r.regionChain()
	return c.chrom == o.chrom && anyOverlap(c.index.segments, o.index.segments)
}

// Overlaps reports whether c and r share a position on the same strand.
func (c *Chain) Overlaps(r Region) bool {
	o := r.regionChain()
	return c.strand == o.strand && c.UnstrandedOverlaps(o)
}

// AntisenseOverlaps reports whether c and r share a position on opposite
// strands. A chain or region on strand "." is never antisense, even
// against a stranded one.
func (c *Chain) AntisenseOverlaps(r Region) bool {
	o := r.regionChain()
	return c.strand != StrandUnstranded && o.strand == c.strand.Opposite() && c.UnstrandedOverlaps(o)
}

func (c *Chain) sameFrame(o *Chain) bool {
	return len(c.index.segments) > 0 && len(o.index.segments) > 0 &&
		c.chrom == o.chrom && c.strand == o.strand
}

// Covers reports whether every position of r is in c, on the same strand.
func (c *Chain) Covers(r Region) bool {
	o := r.regionChain()
	return c.sameFrame(o) && coversSegments(c.index.segments, o.index.segments)
}

// Contains reports whether r fits inside c with compatible structure. A
// single segment must sit inside one segment of c. A multi-segment region
// must be covered by c and its junctions must match a contiguous run of
// c's junctions.
func (c *Chain) Contains(r Region) bool {
	o := r.regionChain()
	if !c.sameFrame(o) || o.index.length > c.index.length {
		return false
	}
	if len(o.index.segments) == 1 {
		s := o.index.segments[0]
		for _, mine := range c.index.segments {
			if mine.Contains(s) {
				return true
			}
		}
		return false
	}
	if !coversSegments(c.index.segments, o.index.segments) {
		return false
	}
	mine, theirs := c.Junctions(), o.Junctions()
	i := slices.Index(mine, theirs[0])
	return i >= 0 && i+len(theirs) <= len(mine) && slices.Equal(mine[i:i+len(theirs)], theirs)
}

// Equal reports whether c and r cover the same positions on the same
// chromosome and strand. Chains with no segments are never equal.
func (c *Chain) Equal(r Region) bool {
	o := r.regionChain()
	return c.sameFrame(o) && slices.Equal(c.index.segments, o.index.segments)
}

// SharesSegmentsWith returns the segments that c and r have in common
// exactly, as opposed to sharing positions.
func (c *Chain) SharesSegmentsWith(r Region) []Segment {
	o := r.regionChain()
	if !c.sameFrame(o) {
		return nil
	}
	var out []Segment
	for _, s := range o.index.segments {
		if _, found := slices.BinarySearchFunc(c.index.segments, s, CompareSegments); found {
			out = append(out, s)
		}
	}
	return out
}

// Antisense returns a copy of the chain on the opposite strand, with no
// attributes other than the default type.
func (c *Chain) Antisense() *Chain {
	segs := c.Segments()
	for i := range segs {
		segs[i].Strand = c.strand.Opposite()
	}
	a, _ := NewChain(nil, segs...)
	return a
}

// Clone returns a deep copy.
func (c *Chain) Clone() *Chain {
	return &Chain{
		chrom:  c.chrom,
		strand: c.strand,
		masks:  slices.Clone(c.masks),
		index:  buildIndex(c.Segments()),
		attr:   c.attr.Clone(),
	}
}

// Name returns the first of the ID, Name and name attributes, or the
// chain's string form.
func (c *Chain) Name() string {
	return firstAttr(c.attr, c.String(), KeyID, KeyName, KeyNameLower)
}

// Gene returns the gene_id or Parent attribute, or "gene_<name>".
func (c *Chain) Gene() string {
	return geneName(c.attr, c.Name())
}

func firstAttr(attr *Attributes, fallback string, keys ...string) string {
	for _, k := range keys {
		if v, ok := attr.GetString(k); ok {
			return v
		}
	}
	return fallback
}

func geneName(attr *Attributes, name string) string {
	if v, ok := attr.GetString(KeyGeneID); ok {
		return v
	}
	if v, ok := attr.Get(KeyParent); ok {
		parents := v.Strings()
		slices.Sort(parents)
		return strings.Join(parents, ",")
	}
	return "gene_" + name
}

// String renders the chain as chrom:s1-e1^s2-e2(strand), or "na" when it
// has no segments.
func (c *Chain) String() string {
	segs := c.index.segments
	if len(segs) == 0 {
		return "na"
	}
	var b strings.Builder
	b.WriteString(c.chrom)
	b.WriteByte(':')
	for i, s := range segs {
		if i > 0 {
			b.WriteByte('^')
		}
		b.WriteString(strconv.Itoa(s.Start))
		b.WriteByte('-')
		b.WriteString(strconv.Itoa(s.End))
	}
	b.WriteByte('(')
	b.WriteString(c.strand.String())
	b.WriteByte(')')
	return b.String()
}

var chainPattern = regexp.MustCompile(`^([^:]+):([0-9^-]+)\(([+.-])\)$`)

// ParseChain parses the String form of a chain. "na", "none" and the empty
// string yield an empty chain.
func ParseChain(s string) (*Chain, error) {
	switch strings.TrimSpace(s) {
	case "", "na", "none", "None":
		return NewChain(nil)
	}
	m := chainPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return nil, fmt.Errorf("parse chain %q: %w", s, ErrInvalidInput)
	}
	strand, err := ParseStrand(m[3])
	if err != nil {
		return nil, fmt.Errorf("parse chain %q: %w", s, err)
	}
	var segs []Segment
	for _, part := range strings.Split(m[2], "^") {
		lo, hi, ok := strings.Cut(part, "-")
		if !ok {
			return nil, fmt.Errorf("parse chain %q: segment %q: %w", s, part, ErrInvalidInput)
		}
		start, err1 := strconv.Atoi(lo)
		end, err2 := strconv.Atoi(hi)
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("parse chain %q: segment %q: %w", s, part, ErrInvalidInput)
		}
		seg, err := NewSegment(m[1], start, end, strand)
		if err != nil {
			return nil, fmt.Errorf("parse chain %q: %w", s, err)
		}
		segs = append(segs, seg)
	}
	return NewChain(nil, segs...)
}

// CompareChains orders features by chromosome, span, strand, length and
// name. Empty chains sort first.
func CompareChains(a, b Feature) int {
	ca, cb := a.AsChain(), b.AsChain()
	if c := cmp.Compare(ca.chrom, cb.chrom); c != 0 {
		return c
	}
	sa, _ := ca.Span()
	sb, _ := cb.Span()
	if c := cmp.Compare(sa.Start, sb.Start); c != 0 {
		return c
	}
	if c := cmp.Compare(sa.End, sb.End); c != 0 {
		return c
	}
	if c := cmp.Compare(ca.strand, cb.strand); c != 0 {
		return c
	}
	if c := cmp.Compare(ca.Length(), cb.Length()); c != 0 {
		return c
	}
	return cmp.Compare(a.Name(), b.Name())
}

// SortFeatures sorts features in place by CompareChains.
func SortFeatures[F Feature](fs []F) {
	slices.SortStableFunc(fs, func(a, b F) int { return CompareChains(a, b) })
}
