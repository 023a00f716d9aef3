package format

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/inodb/vibe-roi/internal/roi"
)

const (
	gtfFormat  = "gtf"
	gff3Format = "gff3"
)

// Keys that describe the line itself rather than the feature and are never
// written to column 9.
var (
	gtfExcluded = []string{
		roi.KeySource, roi.KeyParent, roi.KeyScore, roi.KeyPhase,
		roi.KeyCDSGenomeStart, roi.KeyCDSGenomeEnd, roi.KeyThickStart, roi.KeyThickEnd,
		roi.KeyType, roi.KeyColor, roi.KeyBEDXColumnOrder,
	}
	gff3Excluded = []string{
		roi.KeySource, roi.KeyScore, roi.KeyPhase,
		roi.KeyCDSGenomeStart, roi.KeyCDSGenomeEnd, roi.KeyThickStart, roi.KeyThickEnd,
		roi.KeyType, roi.KeyBEDXColumnOrder,
	}
)

// GFFOptions controls GTF2 and GFF3 output.
type GFFOptions struct {
	// FeatureType overrides the type attribute in column 3.
	FeatureType string
	// NoEscape writes column 9 values without percent-encoding.
	NoEscape bool
	// Excludes names further attributes to leave out of column 9.
	Excludes []string
}

func (o *GFFOptions) featureType(attr *roi.Attributes) string {
	if o != nil && o.FeatureType != "" {
		return o.FeatureType
	}
	t, _ := attr.GetString(roi.KeyType)
	return t
}

// parseGFFLine reads the eight positional columns shared by GTF2 and GFF3
// into a one-segment chain. tokens parses column 9.
func parseGFFLine(format, line string, tokens func(string) *roi.Attributes) (*roi.Chain, error) {
	items := splitLine(line)
	if len(items) < 8 {
		return nil, malformed(format, "expected 9 columns, got %d", len(items))
	}
	start, err := parseInt(format, "start", items[3])
	if err != nil {
		return nil, err
	}
	end, err := parseInt(format, "end", items[4])
	if err != nil {
		return nil, err
	}
	strand, err := roi.ParseStrand(items[6])
	if err != nil {
		return nil, malformed(format, "strand %q", items[6])
	}

	attr := roi.NewAttributes()
	if len(items) > 8 {
		attr = tokens(items[8])
	}
	attr.SetString(roi.KeySource, items[1])
	attr.SetString(roi.KeyType, items[2])
	if items[5] != "." {
		if score, err := strconv.ParseFloat(items[5], 64); err == nil {
			attr.Set(roi.KeyScore, roi.FloatValue(score))
		}
	}
	if items[7] != "." {
		phase, err := parseInt(format, "phase", items[7])
		if err != nil {
			return nil, err
		}
		attr.SetInt(roi.KeyPhase, phase)
	}

	seg, err := roi.NewSegment(items[0], start-1, end, strand)
	if err != nil {
		return nil, malformed(format, "%v", err)
	}
	return roi.NewChain(attr, seg)
}

// ParseGTF parses one GTF2 line into a one-segment chain.
func ParseGTF(line string) (*roi.Chain, error) {
	return parseGFFLine(gtfFormat, line, ParseGTF2Tokens)
}

// ParseGFF3 parses one GFF3 line into a one-segment chain.
func ParseGFF3(line string) (*roi.Chain, error) {
	return parseGFFLine(gff3Format, line, ParseGFF3Tokens)
}

// gffColumns renders columns 1 to 8 for one segment of c. CDS phase is
// taken from the phase or frame attribute of a one-segment chain and is
// otherwise computed from the segment's unstranded offset in the chain.
func gffColumns(c *roi.Chain, seg roi.Segment, featureType string) []string {
	attr := c.Attr()
	phase := "."
	if featureType == "CDS" {
		if v, ok := attr.GetString(roi.KeyPhase); ok && c.NumSegments() == 1 {
			phase = v
		} else if v, ok := attr.GetString(roi.KeyFrame); ok && c.NumSegments() == 1 {
			phase = v
		} else {
			x, _ := c.ChainCoordinate(seg.Chrom, seg.Start, seg.Strand, false)
			phase = strconv.Itoa((3 - x%3) % 3)
		}
	}
	source, ok := attr.GetString(roi.KeySource)
	if !ok {
		source = "."
	}
	score := "."
	if v, ok := attr.Get(roi.KeyScore); ok {
		score = v.String()
		if f, ok := v.Float(); ok {
			score = floatString(f)
		}
	}
	return []string{
		seg.Chrom,
		source,
		featureType,
		strconv.Itoa(seg.Start + 1),
		strconv.Itoa(seg.End),
		score,
		seg.Strand.String(),
		phase,
	}
}

// FormatGTF renders f as one GTF2 line per segment. gene_id and
// transcript_id are filled from the feature's naming when absent.
func FormatGTF(f roi.Feature, opts *GFFOptions) string {
	if opts == nil {
		opts = &GFFOptions{}
	}
	c := f.AsChain()
	if c.NumSegments() == 0 {
		return ""
	}
	attr := c.Attr().Clone()
	if !attr.Has(roi.KeyTranscriptID) {
		attr.SetString(roi.KeyTranscriptID, f.Name())
	}
	if !attr.Has(roi.KeyGeneID) {
		attr.SetString(roi.KeyGeneID, f.Gene())
	}
	featureType := opts.featureType(c.Attr())
	col9 := GTF2Tokens(attr, append(append([]string{}, gtfExcluded...), opts.Excludes...), !opts.NoEscape)

	var b strings.Builder
	for _, seg := range c.Segments() {
		b.WriteString(strings.Join(gffColumns(c, seg, featureType), "\t"))
		b.WriteByte('\t')
		b.WriteString(col9)
		b.WriteByte('\n')
	}
	return b.String()
}

// FormatGFF3 renders a one-segment feature as a GFF3 line. Multi-segment
// features must be written one part at a time, or as a transcript.
func FormatGFF3(f roi.Feature, opts *GFFOptions) (string, error) {
	if opts == nil {
		opts = &GFFOptions{}
	}
	c := f.AsChain()
	switch c.NumSegments() {
	case 0:
		return "", nil
	case 1:
	default:
		return "", errors.Wrapf(roi.ErrExportPrecondition, "gff3 export of %d-segment feature %s", c.NumSegments(), f.Name())
	}
	seg := c.Segments()[0]
	cols := gffColumns(c, seg, opts.featureType(c.Attr()))
	col9 := GFF3Tokens(c.Attr(), append(append([]string{}, gff3Excluded...), opts.Excludes...), !opts.NoEscape)
	return strings.Join(cols, "\t") + "\t" + col9 + "\n", nil
}
