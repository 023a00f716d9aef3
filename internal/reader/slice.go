package reader

import "github.com/inodb/vibe-roi/internal/roi"

// SliceReader yields features held in memory, such as assembled
// transcripts or features loaded from a store.
type SliceReader struct {
	features []roi.Feature
	pos      int
}

// NewSliceReader creates a reader over features.
func NewSliceReader(features []roi.Feature) *SliceReader {
	return &SliceReader{features: features}
}

// TranscriptReader creates a reader over transcripts.
func TranscriptReader(txs []*roi.Transcript) *SliceReader {
	features := make([]roi.Feature, len(txs))
	for i, t := range txs {
		features[i] = t
	}
	return NewSliceReader(features)
}

// Next implements FeatureReader.
func (r *SliceReader) Next() (roi.Feature, error) {
	if r.pos >= len(r.features) {
		return nil, nil
	}
	f := r.features[r.pos]
	r.pos++
	return f, nil
}

// LineNumber returns the number of features read so far.
func (r *SliceReader) LineNumber() int { return r.pos }

// Close implements FeatureReader.
func (r *SliceReader) Close() error { return nil }
