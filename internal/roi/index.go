package roi

import (
	"cmp"
	"slices"
	"sort"
)

// positionIndex maps genomic positions of a sorted, disjoint segment list
// to 0-based spliced offsets assigned in ascending genomic order. Strand is
// not considered here; stranded callers reflect the offset themselves.
type positionIndex struct {
	segments []Segment
	// offsets[i] is the number of positions before segments[i].
	offsets []int
	length  int
}

func buildIndex(segments []Segment) positionIndex {
	idx := positionIndex{segments: segments, offsets: make([]int, len(segments))}
	for i, s := range segments {
		idx.offsets[i] = idx.length
		idx.length += s.Len()
	}
	return idx
}

// segmentAt returns the index of the segment holding pos, or -1.
func (idx positionIndex) segmentAt(pos int) int {
	i := sort.Search(len(idx.segments), func(i int) bool { return idx.segments[i].End > pos })
	if i == len(idx.segments) || pos < idx.segments[i].Start {
		return -1
	}
	return i
}

// offset returns the unstranded spliced offset of a genomic position.
func (idx positionIndex) offset(pos int) (int, bool) {
	i := idx.segmentAt(pos)
	if i < 0 {
		return 0, false
	}
	return idx.offsets[i] + pos - idx.segments[i].Start, true
}

// position returns the genomic position of an unstranded spliced offset,
// which must lie in [0, length).
func (idx positionIndex) position(x int) int {
	i := sort.Search(len(idx.offsets), func(i int) bool { return idx.offsets[i] > x }) - 1
	return idx.segments[i].Start + x - idx.offsets[i]
}

// slice returns the genomic segments covering unstranded offsets [lo, hi).
func (idx positionIndex) slice(lo, hi int) []Segment {
	var out []Segment
	for i, s := range idx.segments {
		off := idx.offsets[i]
		a, b := max(lo, off), min(hi, off+s.Len())
		if a >= b {
			continue
		}
		out = append(out, Segment{Chrom: s.Chrom, Start: s.Start + a - off, End: s.Start + b - off, Strand: s.Strand})
	}
	return out
}

// mergeSegments returns the minimal sorted segment list covering the union
// of positions in segs. Overlapping and abutting segments are joined and
// empty segments are dropped.
func mergeSegments(chrom string, strand Strand, segs []Segment) []Segment {
	sorted := make([]Segment, 0, len(segs))
	for _, s := range segs {
		if s.Len() > 0 {
			sorted = append(sorted, Segment{Chrom: chrom, Start: s.Start, End: s.End, Strand: strand})
		}
	}
	slices.SortFunc(sorted, func(a, b Segment) int { return cmp.Compare(a.Start, b.Start) })

	var out []Segment
	for _, s := range sorted {
		if n := len(out); n > 0 && s.Start <= out[n-1].End {
			out[n-1].End = max(out[n-1].End, s.End)
			continue
		}
		out = append(out, s)
	}
	return out
}

// intersectSegments returns the positions shared by two minimal lists.
func intersectSegments(a, b []Segment) []Segment {
	var out []Segment
	for i, j := 0, 0; i < len(a) && j < len(b); {
		lo, hi := max(a[i].Start, b[j].Start), min(a[i].End, b[j].End)
		if lo < hi {
			out = append(out, Segment{Chrom: a[i].Chrom, Start: lo, End: hi, Strand: a[i].Strand})
		}
		if a[i].End < b[j].End {
			i++
		} else {
			j++
		}
	}
	return out
}

// subtractSegments returns the positions of a that are not in b.
func subtractSegments(a, b []Segment) []Segment {
	var out []Segment
	j := 0
	for _, s := range a {
		cur := s.Start
		for j < len(b) && b[j].End <= cur {
			j++
		}
		for k := j; k < len(b) && b[k].Start < s.End; k++ {
			if b[k].Start > cur {
				out = append(out, Segment{Chrom: s.Chrom, Start: cur, End: b[k].Start, Strand: s.Strand})
			}
			cur = max(cur, b[k].End)
		}
		if cur < s.End {
			out = append(out, Segment{Chrom: s.Chrom, Start: cur, End: s.End, Strand: s.Strand})
		}
	}
	return out
}

// coversSegments reports whether every position of b is in a. Both lists
// must be minimal, so each segment of b has to sit inside one of a.
func coversSegments(a, b []Segment) bool {
	i := 0
	for _, s := range b {
		for i < len(a) && a[i].End < s.End {
			i++
		}
		if i == len(a) || a[i].Start > s.Start {
			return false
		}
	}
	return true
}

func anyOverlap(a, b []Segment) bool {
	for i, j := 0, 0; i < len(a) && j < len(b); {
		if a[i].Start < b[j].End && b[j].Start < a[i].End {
			return true
		}
		if a[i].End < b[j].End {
			i++
		} else {
			j++
		}
	}
	return false
}
