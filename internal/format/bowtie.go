package format

import (
	"github.com/inodb/vibe-roi/internal/roi"
)

const bowtieFormat = "bowtie"

// Attribute keys set on alignments read from bowtie output.
const (
	KeySeqAsAligned = "seq_as_aligned"
	KeyQualStr      = "qualstr"
	KeyMismatchStr  = "mismatch_str"
)

// ParseBowtie parses a line of bowtie's legacy alignment output into a
// one-segment chain covering the aligned read.
func ParseBowtie(line string) (*roi.Chain, error) {
	items := splitLine(line)
	if len(items) < 7 {
		return nil, malformed(bowtieFormat, "expected at least 7 columns, got %d", len(items))
	}
	strand, err := roi.ParseStrand(items[1])
	if err != nil {
		return nil, malformed(bowtieFormat, "strand %q", items[1])
	}
	coord, err := parseInt(bowtieFormat, "offset", items[3])
	if err != nil {
		return nil, err
	}
	var mismatches string
	if len(items) > 7 {
		mismatches = items[7]
	}

	attr := roi.NewAttributes()
	attr.SetString(KeySeqAsAligned, items[4])
	attr.SetString(KeyQualStr, items[5])
	attr.SetString(KeyMismatchStr, mismatches)
	attr.SetString(roi.KeyType, "alignment")
	attr.SetString(roi.KeyID, items[0])

	seg, err := roi.NewSegment(items[2], coord, coord+len(items[4]), strand)
	if err != nil {
		return nil, malformed(bowtieFormat, "%v", err)
	}
	return roi.NewChain(attr, seg)
}
