package genome

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-roi/internal/roi"
)

const testGenome = `>chr1 test chromosome
AAAAACCCCC
GGGGGTTTTT
>chr2
ACGT
`

func TestReadFASTA(t *testing.T) {
	g, err := ReadFASTA(strings.NewReader(testGenome))
	require.NoError(t, err)

	assert.Equal(t, []string{"chr1", "chr2"}, g.Chromosomes())
	assert.Equal(t, 20, g.Length("chr1"))
	assert.Equal(t, 0, g.Length("chrX"))

	seq, err := g.Get("chr1", 3, 12)
	require.NoError(t, err)
	assert.Equal(t, "AACCCCCGG", seq)

	_, err = g.Get("chr1", 15, 25)
	assert.ErrorIs(t, err, roi.ErrOutOfRange)
	_, err = g.Get("chrX", 0, 1)
	assert.ErrorIs(t, err, roi.ErrOutOfRange)
}

func TestFASTA_ChainSequence(t *testing.T) {
	g, err := ReadFASTA(strings.NewReader(testGenome))
	require.NoError(t, err)

	plus, err := roi.NewChain(roi.StringAttributes(roi.KeyID, "p"),
		roi.Segment{Chrom: "chr1", Start: 0, End: 2, Strand: roi.StrandPlus},
		roi.Segment{Chrom: "chr1", Start: 18, End: 20, Strand: roi.StrandPlus},
	)
	require.NoError(t, err)
	seq, err := plus.Sequence(g, true)
	require.NoError(t, err)
	assert.Equal(t, "AATT", seq)

	minus, err := roi.NewChain(roi.StringAttributes(roi.KeyID, "m"),
		roi.Segment{Chrom: "chr2", Start: 0, End: 3, Strand: roi.StrandMinus},
	)
	require.NoError(t, err)
	seq, err = minus.Sequence(g, true)
	require.NoError(t, err)
	assert.Equal(t, "CGT", seq)
	seq, err = minus.Sequence(g, false)
	require.NoError(t, err)
	assert.Equal(t, "ACG", seq)
}

func TestLoadFASTA_Gzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genome.fa.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(testGenome))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	g, err := LoadFASTA(path)
	require.NoError(t, err)
	seq, err := g.Get("chr2", 0, 4)
	require.NoError(t, err)
	assert.Equal(t, "ACGT", seq)

	_, err = LoadFASTA(filepath.Join(t.TempDir(), "missing.fa"))
	assert.Error(t, err)
}

const testBedGraph = `track type=bedGraph
chr1	0	5	1
chr1	3	8	2.5
chr1	20	30	4
chr2	0	10	7
`

func TestBedGraph_Counts(t *testing.T) {
	bg, err := ReadBedGraph(strings.NewReader(testBedGraph))
	require.NoError(t, err)

	tests := []struct {
		name string
		seg  roi.Segment
		want []float64
	}{
		{"overlapping records add", roi.Segment{Chrom: "chr1", Start: 2, End: 6}, []float64{1, 3.5, 3.5, 2.5}},
		{"gap is zero", roi.Segment{Chrom: "chr1", Start: 7, End: 10}, []float64{2.5, 0, 0}},
		{"record ends at segment start", roi.Segment{Chrom: "chr1", Start: 30, End: 32}, []float64{0, 0}},
		{"unknown chromosome", roi.Segment{Chrom: "chrX", Start: 0, End: 2}, []float64{0, 0}},
		{"empty segment", roi.Segment{Chrom: "chr2", Start: 4, End: 4}, []float64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := bg.Counts(tt.seg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBedGraph_ChainCounts(t *testing.T) {
	bg, err := ReadBedGraph(strings.NewReader(testBedGraph))
	require.NoError(t, err)

	c, err := roi.NewChain(nil,
		roi.Segment{Chrom: "chr1", Start: 4, End: 6, Strand: roi.StrandMinus},
		roi.Segment{Chrom: "chr1", Start: 20, End: 21, Strand: roi.StrandMinus},
	)
	require.NoError(t, err)
	got, err := c.Counts(bg, true)
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 2.5, 3.5}, got)
}

func TestReadBedGraph_Malformed(t *testing.T) {
	tests := []string{
		"chr1\t0\t5\n",
		"chr1\tx\t5\t1\n",
		"chr1\t0\t5\tabc\n",
	}
	for _, in := range tests {
		_, err := ReadBedGraph(strings.NewReader(in))
		assert.Error(t, err, in)
	}
}

func TestStrandedCounts(t *testing.T) {
	plus, err := ReadBedGraph(strings.NewReader("chr1\t0\t10\t1\n"))
	require.NoError(t, err)
	minus, err := ReadBedGraph(strings.NewReader("chr1\t0\t10\t9\n"))
	require.NoError(t, err)
	sc := StrandedCounts{Plus: plus, Minus: minus}

	got, err := sc.Counts(roi.Segment{Chrom: "chr1", Start: 0, End: 2, Strand: roi.StrandMinus})
	require.NoError(t, err)
	assert.Equal(t, []float64{9, 9}, got)

	got, err = sc.Counts(roi.Segment{Chrom: "chr1", Start: 0, End: 1, Strand: roi.StrandUnstranded})
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, got)

	_, err = StrandedCounts{Plus: plus}.Counts(roi.Segment{Chrom: "chr1", Start: 0, End: 1, Strand: roi.StrandMinus})
	assert.Error(t, err)
}
