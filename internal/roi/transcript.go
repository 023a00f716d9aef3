package roi

import (
	"errors"
	"fmt"
	"strconv"
)

// NullInt is an int that may be undefined.
type NullInt struct {
	Int   int
	Valid bool
}

// Int returns a defined NullInt.
func Int(i int) NullInt { return NullInt{Int: i, Valid: true} }

func (n NullInt) String() string {
	if !n.Valid {
		return "none"
	}
	return strconv.Itoa(n.Int)
}

// Transcript is a chain with an optional coding region. The coding region
// is given in genomic coordinates; spliced, strand-oriented CDS offsets
// are derived from it after every structural change.
type Transcript struct {
	*Chain

	cdsGenomeStart NullInt
	cdsGenomeEnd   NullInt
	cdsStart       NullInt
	cdsEnd         NullInt
}

// NewTranscript returns a transcript covering segs. The coding region is
// read from the cds_genome_start and cds_genome_end attributes when both
// are present; type defaults to "mRNA".
func NewTranscript(attr *Attributes, segs ...Segment) (*Transcript, error) {
	a := attr.Clone()
	if !a.Has(KeyType) {
		a.SetString(KeyType, "mRNA")
	}
	c, err := NewChain(a, segs...)
	if err != nil {
		return nil, err
	}
	t := &Transcript{Chain: c}
	if v, ok := a.GetInt(KeyCDSGenomeStart); ok {
		t.cdsGenomeStart = Int(v)
	}
	if v, ok := a.GetInt(KeyCDSGenomeEnd); ok {
		t.cdsGenomeEnd = Int(v)
	}
	if err := t.update(); err != nil {
		return nil, err
	}
	return t, nil
}

// IsCoding reports whether both genomic CDS bounds are defined.
func (t *Transcript) IsCoding() bool {
	return t.cdsGenomeStart.Valid && t.cdsGenomeEnd.Valid
}

// CDSGenomeStart returns the genomic start of the coding region.
func (t *Transcript) CDSGenomeStart() NullInt { return t.cdsGenomeStart }

// CDSGenomeEnd returns the genomic, half-open end of the coding region.
func (t *Transcript) CDSGenomeEnd() NullInt { return t.cdsGenomeEnd }

// CDSStart returns the spliced, strand-oriented start of the coding region.
func (t *Transcript) CDSStart() NullInt { return t.cdsStart }

// CDSEnd returns the spliced, strand-oriented end of the coding region.
func (t *Transcript) CDSEnd() NullInt { return t.cdsEnd }

// SetCDS sets the genomic coding region and recomputes the CDS offsets.
func (t *Transcript) SetCDS(start, end int) error {
	if end < start {
		return fmt.Errorf("set cds %d-%d on %s: %w", start, end, t.Name(), ErrInvalidInput)
	}
	prevStart, prevEnd := t.cdsGenomeStart, t.cdsGenomeEnd
	t.cdsGenomeStart, t.cdsGenomeEnd = Int(start), Int(end)
	if err := t.update(); err != nil {
		t.cdsGenomeStart, t.cdsGenomeEnd = prevStart, prevEnd
		_ = t.update()
		return err
	}
	t.attr.SetInt(KeyCDSGenomeStart, start)
	t.attr.SetInt(KeyCDSGenomeEnd, end)
	return nil
}

// ClearCDS makes the transcript non-coding.
func (t *Transcript) ClearCDS() {
	t.cdsGenomeStart, t.cdsGenomeEnd = NullInt{}, NullInt{}
	t.cdsStart, t.cdsEnd = NullInt{}, NullInt{}
	t.attr.Delete(KeyCDSGenomeStart)
	t.attr.Delete(KeyCDSGenomeEnd)
}

// AddSegments unions segs into the transcript and recomputes CDS offsets.
func (t *Transcript) AddSegments(segs ...Segment) error {
	if err := t.Chain.AddSegments(segs...); err != nil {
		return err
	}
	return t.update()
}

// update derives the spliced CDS bounds from the genomic ones. A genomic
// end that falls on an exon boundary is not a chain position, so the
// last coding base is looked up instead and one is added.
func (t *Transcript) update() error {
	t.cdsStart, t.cdsEnd = NullInt{}, NullInt{}
	if !t.IsCoding() || t.NumSegments() == 0 {
		return nil
	}
	gs, ge := t.cdsGenomeStart.Int, t.cdsGenomeEnd.Int
	chrom, strand := t.chrom, t.strand
	coord := func(pos int) (int, error) {
		return t.ChainCoordinate(chrom, pos, strand, true)
	}
	var start, end int
	if strand == StrandMinus {
		s, err := coord(ge - 1)
		if err != nil {
			return fmt.Errorf("cds end of %s: %w", t.Name(), err)
		}
		e, err := coord(gs)
		if err != nil {
			return fmt.Errorf("cds start of %s: %w", t.Name(), err)
		}
		start, end = s, e+1
	} else {
		s, err := coord(gs)
		if err != nil {
			return fmt.Errorf("cds start of %s: %w", t.Name(), err)
		}
		e, err := coord(ge)
		if errors.Is(err, ErrOutOfRange) {
			e, err = coord(ge - 1)
			e++
		}
		if err != nil {
			return fmt.Errorf("cds end of %s: %w", t.Name(), err)
		}
		start, end = s, e
	}
	t.cdsStart, t.cdsEnd = Int(start), Int(end)
	return nil
}

// Name returns the first of the transcript_id, ID, Name and name
// attributes, or the chain's string form.
func (t *Transcript) Name() string {
	return firstAttr(t.attr, t.String(), KeyTranscriptID, KeyID, KeyName, KeyNameLower)
}

// Gene returns the gene_id or Parent attribute, or "gene_<name>".
func (t *Transcript) Gene() string {
	return geneName(t.attr, t.Name())
}

// Subchain is Chain.Subchain with the transcript's name in the derived ID.
func (t *Transcript) Subchain(start, end int, stranded bool, extra *Attributes) (*Chain, error) {
	return t.subchain(start, end, stranded, t.Name()+"_subchain", extra)
}

// FASTA renders the transcript's sequence as a FASTA record named by Name.
func (t *Transcript) FASTA(p SequenceProvider, stranded bool) (string, error) {
	return fastaRecord(t.Name(), t.Chain, p, stranded)
}

// Clone returns a deep copy.
func (t *Transcript) Clone() *Transcript {
	out := *t
	out.Chain = t.Chain.Clone()
	return &out
}

// CDS returns the coding region as a chain, or an empty chain for a
// non-coding transcript. The stop codon is included.
func (t *Transcript) CDS(extra *Attributes) (*Chain, error) {
	if !t.IsCoding() {
		return NewChain(nil)
	}
	name := t.Name()
	attr := NewAttributes()
	attr.SetInt(KeyThickStart, t.cdsGenomeStart.Int)
	attr.SetInt(KeyThickEnd, t.cdsGenomeEnd.Int)
	attr.SetInt(KeyCDSStart, t.cdsStart.Int)
	attr.SetInt(KeyCDSEnd, t.cdsEnd.Int)
	attr.SetInt(KeyCDSGenomeStart, t.cdsGenomeStart.Int)
	attr.SetInt(KeyCDSGenomeEnd, t.cdsGenomeEnd.Int)
	attr.SetString(KeyTranscriptID, name)
	attr.SetString(KeyType, "CDS")
	attr.SetString(KeyGeneID, t.Gene())
	attr.Update(extra)
	return t.nullSubchain(t.cdsStart, t.cdsEnd, true, name+"_CDS", attr)
}

// UTR5 returns the 5' untranslated region, or an empty chain for a
// non-coding transcript.
func (t *Transcript) UTR5(extra *Attributes) (*Chain, error) {
	if !t.IsCoding() {
		return NewChain(nil)
	}
	return t.nullSubchain(Int(0), t.cdsStart, true, t.Name()+"_5UTR", t.utrAttr("5UTR", extra))
}

// UTR3 returns the 3' untranslated region, or an empty chain for a
// non-coding transcript.
func (t *Transcript) UTR3(extra *Attributes) (*Chain, error) {
	if !t.IsCoding() {
		return NewChain(nil)
	}
	return t.nullSubchain(t.cdsEnd, Int(t.Length()), true, t.Name()+"_3UTR", t.utrAttr("3UTR", extra))
}

func (t *Transcript) utrAttr(typ string, extra *Attributes) *Attributes {
	attr := NewAttributes()
	attr.SetString(KeyType, typ)
	attr.SetString(KeyGeneID, t.Gene())
	attr.SetString(KeyTranscriptID, t.Name())
	attr.Update(extra)
	return attr
}
