package format

import (
	"math"
	"strconv"
	"strings"

	"github.com/inodb/vibe-roi/internal/roi"
)

const bedFormat = "bed"

// ParseBED parses a BED4 to BED12 line, optionally followed by extra
// columns described by cols. The itemRgb column is stored as a hex colour;
// a thick region that is empty, missing or negative collapses to chromStart.
func ParseBED(line string, cols []Column) (*roi.Chain, error) {
	items := splitLine(line)
	n := len(items) - len(cols)
	if n < 3 {
		return nil, malformed(bedFormat, "need at least 3 BED columns, found %d", n)
	}
	if n > 12 {
		return nil, malformed(bedFormat, "found %d BED columns with %d extra columns", n, len(cols))
	}

	chrom := items[0]
	chromStart, err := parseInt(bedFormat, "chromStart", items[1])
	if err != nil {
		return nil, err
	}
	chromEnd, err := parseInt(bedFormat, "chromEnd", items[2])
	if err != nil {
		return nil, err
	}
	strand := roi.StrandUnstranded
	if n > 5 {
		if strand, err = roi.ParseStrand(items[5]); err != nil {
			return nil, malformed(bedFormat, "strand %q", items[5])
		}
	}

	attr := roi.NewAttributes()
	if n > 3 {
		attr.SetString(roi.KeyID, items[3])
	} else {
		attr.SetString(roi.KeyID, roi.Segment{Chrom: chrom, Start: chromStart, End: chromEnd, Strand: strand}.String())
	}
	if n > 4 {
		if score, err := strconv.ParseFloat(items[4], 64); err == nil {
			attr.Set(roi.KeyScore, roi.FloatValue(score))
		}
	}

	thickStart, thickEnd := roi.NullInt{}, roi.NullInt{}
	if n > 6 {
		if v, err := strconv.Atoi(items[6]); err == nil {
			thickStart = roi.Int(v)
		}
	}
	if n > 7 {
		if v, err := strconv.Atoi(items[7]); err == nil {
			thickEnd = roi.Int(v)
		}
	}
	if !thickStart.Valid || !thickEnd.Valid || thickStart.Int == thickEnd.Int || thickStart.Int < 0 || thickEnd.Int < 0 {
		thickStart, thickEnd = roi.Int(chromStart), roi.Int(chromStart)
	}
	attr.SetInt(roi.KeyThickStart, thickStart.Int)
	attr.SetInt(roi.KeyThickEnd, thickEnd.Int)

	color := "0,0,0"
	if n > 8 {
		color = items[8]
	}
	hex, err := RGBToHex(color)
	if err != nil {
		hex = DefaultColor
	}
	attr.SetString(roi.KeyColor, hex)

	segs := []roi.Segment{{Chrom: chrom, Start: chromStart, End: chromEnd, Strand: strand}}
	if n > 9 {
		if segs, err = parseBlocks(chrom, chromStart, chromEnd, strand, items[9:n]); err != nil {
			return nil, err
		}
	}

	if len(cols) > 0 {
		names := make([]string, len(cols))
		for i, c := range cols {
			v, err := c.parse(items[n+i])
			if err != nil {
				return nil, malformed(bedFormat, "column %s: %v", c.Name, err)
			}
			attr.Set(c.Name, v)
			names[i] = c.Name
		}
		attr.Set(roi.KeyBEDXColumnOrder, roi.StringsValue(names))
	}

	c, err := roi.NewChain(attr, segs...)
	if err != nil {
		return nil, malformed(bedFormat, "%v", err)
	}
	return c, nil
}

// parseBlocks reads blockCount, blockSizes and blockStarts. Missing
// trailing columns take single-block defaults.
func parseBlocks(chrom string, chromStart, chromEnd int, strand roi.Strand, items []string) ([]roi.Segment, error) {
	count, err := parseInt(bedFormat, "blockCount", items[0])
	if err != nil {
		return nil, err
	}
	sizes, starts := []int{chromEnd - chromStart}, []int{0}
	if len(items) > 1 {
		if sizes, err = parseIntList(bedFormat, "blockSizes", items[1]); err != nil {
			return nil, err
		}
	}
	if len(items) > 2 {
		if starts, err = parseIntList(bedFormat, "blockStarts", items[2]); err != nil {
			return nil, err
		}
	}
	if count < 1 || count != len(sizes) || count != len(starts) {
		return nil, malformed(bedFormat, "blockCount %d does not match block lists (%d sizes, %d starts)", count, len(sizes), len(starts))
	}
	segs := make([]roi.Segment, count)
	for i := range segs {
		start := chromStart + starts[i]
		segs[i] = roi.Segment{Chrom: chrom, Start: start, End: start + sizes[i], Strand: strand}
	}
	return segs, nil
}

// ParseBEDTranscript parses a BED line as a transcript whose coding region
// is given by thickStart and thickEnd. An empty thick region means the
// transcript is non-coding.
func ParseBEDTranscript(line string, cols []Column) (*roi.Transcript, error) {
	c, err := ParseBED(line, cols)
	if err != nil {
		return nil, err
	}
	attr := c.Attr().Clone()
	attr.Delete(roi.KeyType)
	ts, _ := attr.GetInt(roi.KeyThickStart)
	te, _ := attr.GetInt(roi.KeyThickEnd)
	attr.Delete(roi.KeyThickStart)
	attr.Delete(roi.KeyThickEnd)
	if ts != te {
		attr.SetInt(roi.KeyCDSGenomeStart, ts)
		attr.SetInt(roi.KeyCDSGenomeEnd, te)
	}
	t, err := roi.NewTranscript(attr, c.Segments()...)
	if err != nil {
		return nil, malformed(bedFormat, "%v", err)
	}
	return t, nil
}

// BEDOptions controls BED output. The zero value writes integer scores,
// thick bounds and colour from the feature's attributes, and any extra
// columns in the order they were read.
type BEDOptions struct {
	ThickStart   roi.NullInt
	ThickEnd     roi.NullInt
	Color        string
	ScoreAsFloat bool

	// ExtraColumns names attributes to append after column 12. Nil uses
	// the order recorded at parse time; an empty slice writes none.
	ExtraColumns []string
}

// FormatBED renders f as a BED12 line, plus extra columns, ending in a
// newline. Transcripts use their coding region as the thick region. A
// feature with no segments renders as "".
func FormatBED(f roi.Feature, opts *BEDOptions) string {
	if opts == nil {
		opts = &BEDOptions{}
	}
	c := f.AsChain()
	segs := c.Segments()
	if len(segs) == 0 {
		return ""
	}
	attr := c.Attr()
	span, _ := c.Span()

	thickStart, thickEnd := opts.ThickStart, opts.ThickEnd
	if t, ok := f.(*roi.Transcript); ok {
		if !thickStart.Valid {
			thickStart = t.CDSGenomeStart()
		}
		if !thickEnd.Valid {
			thickEnd = t.CDSGenomeEnd()
		}
	}
	if !thickStart.Valid {
		thickStart = roi.Int(span.Start)
		if v, ok := attr.GetInt(roi.KeyThickStart); ok {
			thickStart = roi.Int(v)
		}
	}
	if !thickEnd.Valid {
		thickEnd = roi.Int(span.Start)
		if v, ok := attr.GetInt(roi.KeyThickEnd); ok {
			thickEnd = roi.Int(v)
		}
	}

	color := opts.Color
	if color == "" {
		color, _ = attr.GetString(roi.KeyColor)
		if color == "" {
			color = DefaultColor
		}
	}
	if rgb, err := HexToRGB(color); err == nil {
		color = rgb
	}

	sizes := make([]int, len(segs))
	starts := make([]int, len(segs))
	for i, s := range segs {
		sizes[i] = s.Len()
		starts[i] = s.Start - span.Start
	}

	fields := []string{
		c.Chrom(),
		strconv.Itoa(span.Start),
		strconv.Itoa(span.End),
		f.Name(),
		formatScore(attr, opts.ScoreAsFloat),
		c.Strand().String(),
		strconv.Itoa(thickStart.Int),
		strconv.Itoa(thickEnd.Int),
		color,
		strconv.Itoa(len(segs)),
		joinInts(sizes),
		joinInts(starts),
	}

	extra := opts.ExtraColumns
	if extra == nil {
		if v, ok := attr.Get(roi.KeyBEDXColumnOrder); ok {
			extra = v.Strings()
		}
	}
	for _, k := range extra {
		v, _ := attr.GetString(k)
		fields = append(fields, v)
	}
	return strings.Join(fields, "\t") + "\n"
}

// formatScore renders the score attribute. Missing or non-numeric scores
// are 0; integer output rounds half to even.
func formatScore(attr *roi.Attributes, asFloat bool) string {
	var score float64
	if v, ok := attr.Get(roi.KeyScore); ok {
		if f, ok := v.Float(); ok && !math.IsNaN(f) && !math.IsInf(f, 0) {
			score = f
		}
	}
	if !asFloat {
		return strconv.Itoa(int(math.RoundToEven(score)))
	}
	return floatString(score)
}

// floatString formats f in shortest form, keeping a ".0" on whole numbers.
func floatString(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if math.IsNaN(f) || math.IsInf(f, 0) || strings.ContainsAny(s, ".e") {
		return s
	}
	return s + ".0"
}
