package reader

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/inodb/vibe-roi/internal/roi"
)

// Keys that describe a single feature line and are dropped when lines are
// merged into a transcript.
var lineOnlyKeys = []string{
	roi.KeyType, roi.KeyScore, roi.KeyPhase, roi.KeyFrame,
	"exon_number", "exon_id", roi.KeyID, roi.KeyParent,
}

// transcriptParts accumulates the lines belonging to one transcript.
type transcriptParts struct {
	attr   *roi.Attributes
	exons  []roi.Segment
	coding []roi.Segment
	other  []roi.Segment
}

func (p *transcriptParts) cdsBounds() (int, int, bool) {
	if len(p.coding) == 0 {
		return 0, 0, false
	}
	lo, hi := p.coding[0].Start, p.coding[0].End
	for _, s := range p.coding[1:] {
		lo = min(lo, s.Start)
		hi = max(hi, s.End)
	}
	return lo, hi, true
}

// build creates the transcript. Without exon lines the exons are the union
// of the coding and UTR parts.
func (p *transcriptParts) build(id string) (*roi.Transcript, error) {
	attr := p.attr.Clone()
	exons := p.exons
	if len(exons) == 0 {
		exons = append(append([]roi.Segment{}, p.coding...), p.other...)
	}
	if lo, hi, ok := p.cdsBounds(); ok {
		attr.SetInt(roi.KeyCDSGenomeStart, lo)
		attr.SetInt(roi.KeyCDSGenomeEnd, hi)
	}
	t, err := roi.NewTranscript(attr, exons...)
	if err != nil {
		return nil, fmt.Errorf("assemble transcript %s: %w", id, err)
	}
	return t, nil
}

func lineAttributes(c *roi.Chain) *roi.Attributes {
	attr := c.Attr().Clone()
	for _, k := range lineOnlyKeys {
		attr.Delete(k)
	}
	return attr
}

// assembler collects parts keyed by transcript in order of first sight.
type assembler struct {
	order  []string
	parts  map[string]*transcriptParts
	logger *zap.Logger
}

func newAssembler(logger *zap.Logger) *assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &assembler{parts: make(map[string]*transcriptParts), logger: logger}
}

func (a *assembler) get(id string) *transcriptParts {
	p, ok := a.parts[id]
	if !ok {
		p = &transcriptParts{}
		a.parts[id] = p
		a.order = append(a.order, id)
	}
	return p
}

func (a *assembler) transcripts() ([]*roi.Transcript, error) {
	out := make([]*roi.Transcript, 0, len(a.order))
	for _, id := range a.order {
		p := a.parts[id]
		if len(p.exons) == 0 && len(p.coding) == 0 && len(p.other) == 0 {
			a.logger.Debug("transcript has no parts", zap.String("transcript", id))
			continue
		}
		t, err := p.build(id)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	roi.SortFeatures(out)
	return out, nil
}

// AssembleGTF2 groups GTF2 exon, CDS, start_codon and stop_codon lines by
// transcript_id. The coding region spans every CDS and codon line, so the
// stop codon is included. Lines without a transcript_id are skipped.
func AssembleGTF2(r FeatureReader, logger *zap.Logger) ([]*roi.Transcript, error) {
	a := newAssembler(logger)
	for {
		f, err := r.Next()
		if err != nil {
			return nil, err
		}
		if f == nil {
			break
		}
		c := f.AsChain()
		attr := c.Attr()
		tid, ok := attr.GetString(roi.KeyTranscriptID)
		if !ok || tid == "" {
			continue
		}
		typ, _ := attr.GetString(roi.KeyType)
		switch typ {
		case "transcript":
			p := a.get(tid)
			p.attr = lineAttributes(c)
			continue
		case "exon", "CDS", "start_codon", "stop_codon":
		default:
			a.logger.Debug("skipping feature type", zap.String("type", typ), zap.Int("line", r.LineNumber()))
			continue
		}

		p := a.get(tid)
		if p.attr == nil {
			p.attr = lineAttributes(c)
		}
		if typ == "exon" {
			p.exons = append(p.exons, c.Segments()...)
		} else {
			p.coding = append(p.coding, c.Segments()...)
		}
	}
	return a.transcripts()
}

// gff3Parts are the GFF3 child types assembled into transcripts.
var gff3Parts = map[string]bool{
	"exon": true, "CDS": true,
	"five_prime_UTR": true, "three_prime_UTR": true,
	"5UTR": true, "3UTR": true,
}

// AssembleGFF3 groups exon, CDS and UTR lines under each of their Parent
// features. The parent's own attributes, when present, become the
// transcript's. Without exon children, exons are built from the CDS and
// UTR children.
func AssembleGFF3(r FeatureReader, logger *zap.Logger) ([]*roi.Transcript, error) {
	a := newAssembler(logger)
	parents := make(map[string]*roi.Attributes)
	for {
		f, err := r.Next()
		if err != nil {
			return nil, err
		}
		if f == nil {
			break
		}
		c := f.AsChain()
		attr := c.Attr()
		typ, _ := attr.GetString(roi.KeyType)
		if !gff3Parts[typ] {
			if id, ok := attr.GetString(roi.KeyID); ok {
				pa := attr.Clone()
				pa.Delete(roi.KeyScore)
				pa.Delete(roi.KeyPhase)
				parents[id] = pa
			}
			continue
		}
		pv, ok := attr.Get(roi.KeyParent)
		if !ok {
			a.logger.Debug("skipping orphan feature", zap.String("type", typ), zap.Int("line", r.LineNumber()))
			continue
		}
		for _, parent := range pv.Strings() {
			p := a.get(parent)
			switch typ {
			case "exon":
				p.exons = append(p.exons, c.Segments()...)
			case "CDS":
				p.coding = append(p.coding, c.Segments()...)
			default:
				p.other = append(p.other, c.Segments()...)
			}
		}
	}
	for _, id := range a.order {
		p := a.parts[id]
		if pa, ok := parents[id]; ok {
			p.attr = pa
			continue
		}
		p.attr = roi.StringAttributes(roi.KeyID, id)
	}
	return a.transcripts()
}

// ReadTranscripts opens path and assembles its transcripts. GTF2 and GFF3
// files are assembled from their parts; BED and PSL lines are read one
// transcript per line.
func ReadTranscripts(path string, f Format, opts *Options, logger *zap.Logger) ([]*roi.Transcript, error) {
	o := Options{Transcripts: true}
	if opts != nil {
		o.Columns = opts.Columns
	}
	r, err := Open(path, f, &o)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	r.SetLogger(logger)

	switch f {
	case FormatGTF:
		return AssembleGTF2(r, logger)
	case FormatGFF3:
		return AssembleGFF3(r, logger)
	case FormatBED, FormatPSL:
		var out []*roi.Transcript
		for {
			feat, err := r.Next()
			if err != nil {
				return nil, err
			}
			if feat == nil {
				return out, nil
			}
			out = append(out, feat.(*roi.Transcript))
		}
	}
	return nil, fmt.Errorf("read transcripts: %s has no transcript model", f)
}
