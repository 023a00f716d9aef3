package genome

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/inodb/vibe-roi/internal/roi"
)

type interval struct {
	start, end int
	value      float64
}

// BedGraph holds a coverage track. Positions not covered by any record
// count as zero.
type BedGraph struct {
	intervals map[string][]interval
}

// LoadBedGraph reads a bedGraph file. Files ending in .gz are decompressed.
func LoadBedGraph(path string) (*BedGraph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bedGraph file: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}
	return ReadBedGraph(reader)
}

// ReadBedGraph parses bedGraph content: chrom, start, end and value
// columns. Track, browser and comment lines are skipped.
func ReadBedGraph(r io.Reader) (*BedGraph, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	bg := &BedGraph{intervals: make(map[string][]interval)}
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "track") || strings.HasPrefix(line, "browser") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			return nil, fmt.Errorf("bedGraph line %d: expected 4 columns, got %d", lineNum, len(fields))
		}
		start, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("bedGraph line %d: parse start: %w", lineNum, err)
		}
		end, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, fmt.Errorf("bedGraph line %d: parse end: %w", lineNum, err)
		}
		value, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return nil, fmt.Errorf("bedGraph line %d: parse value: %w", lineNum, err)
		}
		bg.intervals[fields[0]] = append(bg.intervals[fields[0]], interval{start: start, end: end, value: value})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan bedGraph: %w", err)
	}

	for _, ivs := range bg.intervals {
		slices.SortFunc(ivs, func(a, b interval) int { return a.start - b.start })
	}
	return bg, nil
}

// Counts returns one value per position of seg. Overlapping records add.
func (bg *BedGraph) Counts(seg roi.Segment) ([]float64, error) {
	out := make([]float64, seg.Len())
	ivs := bg.intervals[seg.Chrom]
	// Records are sorted by start, so everything from the first record
	// starting at or after seg.End can be ignored.
	stop, _ := slices.BinarySearchFunc(ivs, seg.End, func(iv interval, pos int) int { return iv.start - pos })
	for _, iv := range ivs[:stop] {
		lo, hi := max(iv.start, seg.Start), min(iv.end, seg.End)
		for p := lo; p < hi; p++ {
			out[p-seg.Start] += iv.value
		}
	}
	return out, nil
}

// StrandedCounts picks a track by the strand of the requested segment.
// Unstranded segments read the plus track.
type StrandedCounts struct {
	Plus  roi.CountsProvider
	Minus roi.CountsProvider
}

// Counts implements roi.CountsProvider.
func (s StrandedCounts) Counts(seg roi.Segment) ([]float64, error) {
	p := s.Plus
	if seg.Strand == roi.StrandMinus {
		p = s.Minus
	}
	if p == nil {
		return nil, fmt.Errorf("counts for %s: no track for strand %s", seg, seg.Strand)
	}
	return p.Counts(seg)
}
