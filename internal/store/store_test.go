package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-roi/internal/roi"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func maskedChain(t *testing.T) *roi.Chain {
	t.Helper()
	attr := roi.StringAttributes(roi.KeyID, "c1", roi.KeyGeneID, "g1")
	attr.SetInt("rank", 3)
	attr.Set("blocks", roi.IntsValue([]int{1, 2}))
	attr.Set(roi.KeyParent, roi.StringsValue([]string{"p1", "p2"}))
	c, err := roi.NewChain(attr,
		roi.Segment{Chrom: "chr1", Start: 100, End: 200, Strand: roi.StrandMinus},
		roi.Segment{Chrom: "chr1", Start: 300, End: 400, Strand: roi.StrandMinus},
	)
	require.NoError(t, err)
	require.NoError(t, c.AddMasks(roi.Segment{Chrom: "chr1", Start: 150, End: 160, Strand: roi.StrandMinus}))
	return c
}

func codingTranscript(t *testing.T, id string, start int) *roi.Transcript {
	t.Helper()
	attr := roi.StringAttributes(roi.KeyTranscriptID, id)
	attr.SetInt(roi.KeyCDSGenomeStart, start+10)
	attr.SetInt(roi.KeyCDSGenomeEnd, start+90)
	tx, err := roi.NewTranscript(attr,
		roi.Segment{Chrom: "chr2", Start: start, End: start + 50, Strand: roi.StrandPlus},
		roi.Segment{Chrom: "chr2", Start: start + 60, End: start + 100, Strand: roi.StrandPlus},
	)
	require.NoError(t, err)
	return tx
}

func TestOpenClose(t *testing.T) {
	s := openInMemory(t)
	assert.NotNil(t, s.DB())

	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestWriteAndLookupChain(t *testing.T) {
	s := openInMemory(t)
	c := maskedChain(t)
	require.NoError(t, s.WriteFeatures([]roi.Feature{c}))

	got, err := s.LookupFeature("c1")
	require.NoError(t, err)
	gc, ok := got.(*roi.Chain)
	require.True(t, ok)

	assert.Equal(t, c.Segments(), gc.Segments())
	assert.Equal(t, c.Masks(), gc.Masks())
	assert.Equal(t, 190, gc.MaskedLength())
	assert.True(t, c.Attr().Equal(gc.Attr()))
	assert.Equal(t, c.Attr().Keys(), gc.Attr().Keys())
	assert.Equal(t, "g1", gc.Gene())
}

func TestWriteAndLookupTranscript(t *testing.T) {
	s := openInMemory(t)
	tx := codingTranscript(t, "t1", 1000)
	nc, err := roi.NewTranscript(roi.StringAttributes(roi.KeyTranscriptID, "nc1"),
		roi.Segment{Chrom: "chr2", Start: 0, End: 10, Strand: roi.StrandPlus})
	require.NoError(t, err)
	require.NoError(t, s.WriteFeatures([]roi.Feature{tx, nc}))

	got, err := s.LookupFeature("t1")
	require.NoError(t, err)
	gt, ok := got.(*roi.Transcript)
	require.True(t, ok)
	assert.Equal(t, tx.Segments(), gt.Segments())
	assert.Equal(t, roi.Int(1010), gt.CDSGenomeStart())
	assert.Equal(t, roi.Int(1090), gt.CDSGenomeEnd())
	assert.Equal(t, tx.CDSStart(), gt.CDSStart())
	assert.Equal(t, tx.CDSEnd(), gt.CDSEnd())

	got, err = s.LookupFeature("nc1")
	require.NoError(t, err)
	assert.False(t, got.(*roi.Transcript).IsCoding())
}

func TestLookupFeature_NotFound(t *testing.T) {
	s := openInMemory(t)
	_, err := s.LookupFeature("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWriteFeatures_Replaces(t *testing.T) {
	s := openInMemory(t)
	require.NoError(t, s.WriteFeatures([]roi.Feature{codingTranscript(t, "t1", 1000)}))
	require.NoError(t, s.WriteFeatures([]roi.Feature{codingTranscript(t, "t1", 5000)}))

	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.LookupFeature("t1")
	require.NoError(t, err)
	span, _ := got.AsChain().Span()
	assert.Equal(t, 5000, span.Start)
}

func TestAppendFeatures(t *testing.T) {
	s := openInMemory(t)
	feats := []roi.Feature{
		codingTranscript(t, "t1", 1000),
		codingTranscript(t, "t2", 3000),
		maskedChain(t),
	}
	require.NoError(t, s.AppendFeatures(feats))

	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got, err := s.LookupFeature("t2")
	require.NoError(t, err)
	assert.True(t, got.(*roi.Transcript).IsCoding())
}

func TestFeaturesByChrom(t *testing.T) {
	s := openInMemory(t)
	require.NoError(t, s.WriteFeatures([]roi.Feature{
		codingTranscript(t, "late", 5000),
		maskedChain(t),
		codingTranscript(t, "early", 1000),
	}))

	feats, err := s.FeaturesByChrom("chr2")
	require.NoError(t, err)
	require.Len(t, feats, 2)
	assert.Equal(t, "early", feats[0].Name())
	assert.Equal(t, "late", feats[1].Name())

	all, err := s.Features()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c1", all[0].Name())

	overlapping, err := s.FeaturesOverlapping("chr2", 1090, 1200)
	require.NoError(t, err)
	require.Len(t, overlapping, 1)
	assert.Equal(t, "early", overlapping[0].Name())

	none, err := s.FeaturesOverlapping("chr2", 1100, 1200)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestClear(t *testing.T) {
	s := openInMemory(t)
	require.NoError(t, s.WriteFeatures([]roi.Feature{maskedChain(t)}))
	require.NoError(t, s.Clear())

	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSourceFingerprint(t *testing.T) {
	s := openInMemory(t)
	path := filepath.Join(t.TempDir(), "a.bed")
	require.NoError(t, os.WriteFile(path, []byte("chr1\t0\t10\n"), 0o644))

	fp, err := StatFile(path)
	require.NoError(t, err)

	ok, err := s.SourceUpToDate(fp)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.RecordSource(fp, 1))
	ok, err = s.SourceUpToDate(fp)
	require.NoError(t, err)
	assert.True(t, ok)

	changed := fp
	changed.ModTime = fp.ModTime.Add(time.Second)
	ok, err = s.SourceUpToDate(changed)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = StatFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "features.duckdb")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.WriteFeatures([]roi.Feature{maskedChain(t)}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
