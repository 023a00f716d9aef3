package format

import (
	"fmt"
	"strings"

	"github.com/inodb/vibe-roi/internal/roi"
)

// DefaultRNAType is the GFF3 type given to transcript parent features.
const DefaultRNAType = "mRNA"

// FormatTranscriptGTF renders a transcript as GTF2 exon lines followed, for
// coding transcripts, by CDS lines that exclude the stop codon and by
// start_codon and stop_codon lines.
func FormatTranscriptGTF(t *roi.Transcript, opts *GFFOptions) (string, error) {
	if opts == nil {
		opts = &GFFOptions{}
	}
	exonOpts := *opts
	if exonOpts.FeatureType == "" {
		exonOpts.FeatureType = "exon"
	}
	var b strings.Builder
	b.WriteString(FormatGTF(t, &exonOpts))

	cds, err := t.CDS(nil)
	if err != nil {
		return "", err
	}
	if cds.NumSegments() == 0 {
		return b.String(), nil
	}

	child := t.Attr().Clone()
	child.Delete(roi.KeyType)
	child.SetString(roi.KeyTranscriptID, t.Name())
	child.SetString(roi.KeyGeneID, t.Gene())

	n := cds.Length()
	if n < 3 {
		return "", fmt.Errorf("gtf export of %s: %d nt coding region has no room for start and stop codons: %w",
			t.Name(), n, roi.ErrExportPrecondition)
	}
	lo, hi := 0, n-3
	if t.Strand() == roi.StrandMinus {
		lo, hi = 3, n
	}
	parts := []struct {
		featureType string
		start, end  int
		stranded    bool
	}{
		{"CDS", lo, hi, false},
		{"start_codon", 0, 3, true},
		{"stop_codon", n - 3, n, true},
	}
	for _, p := range parts {
		sub, err := cds.Subchain(p.start, p.end, p.stranded, nil)
		if err != nil {
			return "", fmt.Errorf("format %s of %s: %w", p.featureType, t.Name(), err)
		}
		c, err := roi.NewChain(child, sub.Segments()...)
		if err != nil {
			return "", err
		}
		b.WriteString(FormatGTF(c, &GFFOptions{FeatureType: p.featureType, NoEscape: opts.NoEscape, Excludes: opts.Excludes}))
	}
	return b.String(), nil
}

// FormatTranscriptGFF3 renders a transcript as a GFF3 block: a parent
// feature of type rnaType spanning the transcript, one exon child per
// segment and, for coding transcripts, five_prime_UTR, CDS and
// three_prime_UTR children. Child IDs are "<transcript>:<type>:<n>".
func FormatTranscriptGFF3(t *roi.Transcript, rnaType string, opts *GFFOptions) (string, error) {
	span, ok := t.Span()
	if !ok {
		return "", nil
	}
	if rnaType == "" {
		rnaType = DefaultRNAType
	}
	o := GFFOptions{}
	if opts != nil {
		o = GFFOptions{NoEscape: opts.NoEscape, Excludes: opts.Excludes}
	}
	tid := t.Name()

	var b strings.Builder
	parent, err := roi.NewChain(roi.StringAttributes(roi.KeyID, tid, roi.KeyParent, t.Gene(), roi.KeyType, rnaType), span)
	if err != nil {
		return "", err
	}
	if err := writeGFF3(&b, parent, &o); err != nil {
		return "", err
	}

	child := t.Attr().Clone()
	child.Delete(roi.KeyID)
	child.SetString(roi.KeyParent, tid)
	child.SetString(roi.KeyType, "exon")
	for n, seg := range t.Segments() {
		child.SetString(roi.KeyID, fmt.Sprintf("%s:exon:%d", tid, n))
		if err := writeGFF3Segment(&b, child, seg, &o); err != nil {
			return "", err
		}
	}
	if !t.IsCoding() {
		return b.String(), nil
	}

	utr5, err := t.UTR5(nil)
	if err != nil {
		return "", err
	}
	cds, err := t.CDS(nil)
	if err != nil {
		return "", err
	}
	utr3, err := t.UTR3(nil)
	if err != nil {
		return "", err
	}
	for _, part := range []struct {
		featureType string
		chain       *roi.Chain
	}{
		{"five_prime_UTR", utr5},
		{"CDS", cds},
		{"three_prime_UTR", utr3},
	} {
		child.SetString(roi.KeyType, part.featureType)
		for n, seg := range part.chain.Segments() {
			child.SetString(roi.KeyID, fmt.Sprintf("%s:%s:%d", tid, part.featureType, n))
			child.Delete(roi.KeyPhase)
			if part.featureType == "CDS" {
				child.SetInt(roi.KeyPhase, cdsPhase(part.chain, seg))
			}
			if err := writeGFF3Segment(&b, child, seg, &o); err != nil {
				return "", err
			}
		}
	}
	return b.String(), nil
}

// cdsPhase returns the GFF3 phase of one CDS segment: the number of bases
// to skip from its 5' end to reach the next codon boundary.
func cdsPhase(cds *roi.Chain, seg roi.Segment) int {
	pos := seg.Start
	if seg.Strand == roi.StrandMinus {
		pos = seg.End - 1
	}
	x, _ := cds.ChainCoordinate(seg.Chrom, pos, seg.Strand, true)
	return (3 - x%3) % 3
}

func writeGFF3Segment(b *strings.Builder, attr *roi.Attributes, seg roi.Segment, opts *GFFOptions) error {
	c, err := roi.NewChain(attr, seg)
	if err != nil {
		return err
	}
	return writeGFF3(b, c, opts)
}

func writeGFF3(b *strings.Builder, c *roi.Chain, opts *GFFOptions) error {
	line, err := FormatGFF3(c, opts)
	if err != nil {
		return err
	}
	b.WriteString(line)
	return nil
}
