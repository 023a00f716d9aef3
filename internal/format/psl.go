package format

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/inodb/vibe-roi/internal/roi"
)

const pslFormat = "psl"

// PSL attribute keys, in column order.
const (
	KeyMatchLength    = "match_length"
	KeyMismatches     = "mismatches"
	KeyRepMatches     = "rep_matches"
	KeyN              = "N"
	KeyQueryGapCount  = "query_gap_count"
	KeyQueryGapBases  = "query_gap_bases"
	KeyTargetGapCount = "target_gap_count"
	KeyTargetGapBases = "target_gap_bases"
	KeyStrand         = "strand"
	KeyQueryName      = "query_name"
	KeyQueryLength    = "query_length"
	KeyQueryStart     = "query_start"
	KeyQueryEnd       = "query_end"
	KeyTargetName     = "target_name"
	KeyTargetLength   = "target_length"
	KeyTargetStart    = "target_start"
	KeyTargetEnd      = "target_end"
	KeyQStarts        = "q_starts"
	KeyTStarts        = "t_starts"
)

// pslScalars lists columns 1 to 17. Columns 9, 10 and 14 hold text.
var pslScalars = []string{
	KeyMatchLength, KeyMismatches, KeyRepMatches, KeyN,
	KeyQueryGapCount, KeyQueryGapBases, KeyTargetGapCount, KeyTargetGapBases,
	KeyStrand, KeyQueryName, KeyQueryLength, KeyQueryStart, KeyQueryEnd,
	KeyTargetName, KeyTargetLength, KeyTargetStart, KeyTargetEnd,
}

func pslTextColumn(key string) bool {
	return key == KeyStrand || key == KeyQueryName || key == KeyTargetName
}

// ParsePSL parses a 21-column PSL line into a chain with one segment per
// aligned block on the target.
func ParsePSL(line string) (*roi.Chain, error) {
	items := strings.Split(strings.TrimSpace(line), "\t")
	if len(items) < 21 {
		return nil, malformed(pslFormat, "expected 21 columns, got %d", len(items))
	}
	attr := roi.NewAttributes()
	attr.SetString(roi.KeyType, "alignment")
	for i, key := range pslScalars {
		if pslTextColumn(key) {
			attr.SetString(key, items[i])
			continue
		}
		v, err := parseInt(pslFormat, key, items[i])
		if err != nil {
			return nil, err
		}
		attr.SetInt(key, v)
	}
	attr.SetString(roi.KeyID, items[9])

	sizes, err := parseIntList(pslFormat, "blockSizes", items[18])
	if err != nil {
		return nil, err
	}
	qStarts, err := parseIntList(pslFormat, "qStarts", items[19])
	if err != nil {
		return nil, err
	}
	tStarts, err := parseIntList(pslFormat, "tStarts", items[20])
	if err != nil {
		return nil, err
	}
	if len(sizes) != len(tStarts) {
		return nil, malformed(pslFormat, "%d block sizes for %d target starts", len(sizes), len(tStarts))
	}
	attr.Set(KeyQStarts, roi.IntsValue(qStarts))
	attr.Set(KeyTStarts, roi.IntsValue(tStarts))

	strand, err := pslTargetStrand(items[8])
	if err != nil {
		return nil, err
	}
	segs := make([]roi.Segment, len(sizes))
	for i := range sizes {
		segs[i] = roi.Segment{Chrom: items[13], Start: tStarts[i], End: tStarts[i] + sizes[i], Strand: strand}
	}
	c, err := roi.NewChain(attr, segs...)
	if err != nil {
		return nil, malformed(pslFormat, "%v", err)
	}
	return c, nil
}

// pslTargetStrand reads the strand column. Translated alignments carry two
// characters, the second giving the target strand.
func pslTargetStrand(s string) (roi.Strand, error) {
	if len(s) == 2 {
		s = s[1:]
	}
	strand, err := roi.ParseStrand(s)
	if err != nil {
		return 0, malformed(pslFormat, "strand %q", s)
	}
	return strand, nil
}

// ParsePSLTranscript parses a PSL line as a non-coding transcript.
func ParsePSLTranscript(line string) (*roi.Transcript, error) {
	c, err := ParsePSL(line)
	if err != nil {
		return nil, err
	}
	return roi.NewTranscript(c.Attr(), c.Segments()...)
}

// FormatPSL renders f as a PSL line. Every PSL attribute must be present.
func FormatPSL(f roi.Feature) (string, error) {
	c := f.AsChain()
	attr := c.Attr()
	fields := make([]string, 0, 21)
	for _, key := range pslScalars {
		v, ok := attr.GetString(key)
		if !ok {
			return "", errors.Wrapf(roi.ErrExportPrecondition, "psl export of %s: missing attribute %q", f.Name(), key)
		}
		fields = append(fields, v)
	}
	qStarts, ok := attr.GetInts(KeyQStarts)
	if !ok {
		return "", errors.Wrapf(roi.ErrExportPrecondition, "psl export of %s: missing attribute %q", f.Name(), KeyQStarts)
	}
	tStarts, ok := attr.GetInts(KeyTStarts)
	if !ok {
		return "", errors.Wrapf(roi.ErrExportPrecondition, "psl export of %s: missing attribute %q", f.Name(), KeyTStarts)
	}

	segs := c.Segments()
	sizes := make([]int, len(segs))
	for i, s := range segs {
		sizes[i] = s.Len()
	}
	fields = append(fields,
		strconv.Itoa(len(segs)),
		joinInts(sizes),
		joinInts(qStarts),
		joinInts(tStarts),
	)
	return strings.Join(fields, "\t") + "\n", nil
}
