package reader

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/inodb/vibe-roi/internal/format"
	"github.com/inodb/vibe-roi/internal/roi"
)

const bedInput = `track name=test
browser position chr1:1-1000
# comment

chr1	100	500	tx1	0	+	150	450	255,0,0	2	100,200,	0,200,
chr2	10	20	tx2	0	-
`

func TestLineReader_BED(t *testing.T) {
	r, err := NewLineReader(strings.NewReader(bedInput), "test.bed", FormatBED, nil)
	require.NoError(t, err)
	defer r.Close()

	f, err := r.Next()
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, "tx1", f.Name())
	assert.Equal(t, 2, f.AsChain().NumSegments())
	assert.Equal(t, 5, r.LineNumber())

	f, err = r.Next()
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, "tx2", f.Name())
	assert.Equal(t, roi.StrandMinus, f.AsChain().Strand())

	f, err = r.Next()
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestLineReader_BEDTranscripts(t *testing.T) {
	r, err := NewLineReader(strings.NewReader(bedInput), "test.bed", FormatBED, &Options{Transcripts: true})
	require.NoError(t, err)

	feats, err := ReadAll(r)
	require.NoError(t, err)
	require.Len(t, feats, 2)

	tx, ok := feats[0].(*roi.Transcript)
	require.True(t, ok)
	assert.True(t, tx.IsCoding())
	assert.False(t, feats[1].(*roi.Transcript).IsCoding())
}

func TestLineReader_ExtraColumns(t *testing.T) {
	in := "chr1\t0\t10\tx\tfoo\t3\n"
	r, err := NewLineReader(strings.NewReader(in), "x.bed", FormatBED, &Options{
		Columns: []format.Column{{Name: "gene"}, {Name: "rank", Parse: format.IntColumn}},
	})
	require.NoError(t, err)
	f, err := r.Next()
	require.NoError(t, err)
	rank, ok := f.AsChain().Attr().GetInt("rank")
	require.True(t, ok)
	assert.Equal(t, 3, rank)
}

func TestLineReader_NoTrailingNewline(t *testing.T) {
	r, err := NewLineReader(strings.NewReader("chr1\t0\t10\tlast"), "x.bed", FormatBED, nil)
	require.NoError(t, err)
	feats, err := ReadAll(r)
	require.NoError(t, err)
	require.Len(t, feats, 1)
	assert.Equal(t, "last", feats[0].Name())
}

func TestLineReader_MalformedLine(t *testing.T) {
	tests := []struct {
		name string
		bad  string
	}{
		{"bad start", "chr1\tx\t10\tbad"},
		{"negative block count", "chr1\t0\t100\tbad\t0\t+\t0\t0\t0\t-1\t10,\t0,"},
		{"block count mismatch", "chr1\t0\t100\tbad\t0\t+\t0\t0\t0\t3\t10,20,\t0,50,"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := "chr1\t0\t10\tok\n" + tt.bad + "\n"
			r, err := NewLineReader(strings.NewReader(in), "bad.bed", FormatBED, nil)
			require.NoError(t, err)

			feats, err := ReadAll(r)
			require.Error(t, err)
			assert.Len(t, feats, 1)

			var mfe *MalformedFileError
			require.True(t, errors.As(err, &mfe))
			assert.Equal(t, "bad.bed", mfe.Filename)
			assert.Equal(t, 2, mfe.Line)
			assert.ErrorIs(t, err, format.ErrMalformedLine)
			assert.Contains(t, err.Error(), "bad.bed line 2")
		})
	}
}

func TestLineReader_GFF3StopsAtFASTA(t *testing.T) {
	in := "##gff-version 3\n" +
		"chr1\t.\tgene\t1\t100\t.\t+\t.\tID=g1\n" +
		"##FASTA\n" +
		">chr1\nACGT\n"
	core, logs := observer.New(zap.DebugLevel)
	r, err := NewLineReader(strings.NewReader(in), "x.gff3", FormatGFF3, nil)
	require.NoError(t, err)
	r.SetLogger(zap.New(core))

	feats, err := ReadAll(r)
	require.NoError(t, err)
	require.Len(t, feats, 1)
	assert.Equal(t, "g1", feats[0].Name())
	assert.Equal(t, 1, logs.FilterMessage("stopping at FASTA section").Len())
}

func TestLineReader_PSLAndBowtie(t *testing.T) {
	psl := "50\t0\t0\t0\t0\t0\t1\t100\t+\tread1\t50\t0\t50\tchr1\t1000\t100\t250\t2\t20,30,\t0,20,\t100,220,\n"
	r, err := NewLineReader(strings.NewReader(psl), "x.psl", FormatPSL, &Options{Transcripts: true})
	require.NoError(t, err)
	f, err := r.Next()
	require.NoError(t, err)
	_, ok := f.(*roi.Transcript)
	assert.True(t, ok)

	r, err = NewLineReader(strings.NewReader("read1\t+\tchr2\t100\tACGT\tIIII\t0\t\n"), "x.bowtie", FormatBowtie, nil)
	require.NoError(t, err)
	f, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, "read1", f.Name())
	assert.Equal(t, 4, f.AsChain().Length())
}

func TestOpen_Gzip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "regions.bed.gz")
	file, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(file)
	_, err = gz.Write([]byte("chr1\t0\t10\ta\nchr1\t20\t30\tb\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, file.Close())

	r, err := Open(path, FormatBED, nil)
	require.NoError(t, err)
	defer r.Close()
	feats, err := ReadAll(r)
	require.NoError(t, err)
	require.Len(t, feats, 2)
	assert.Equal(t, "b", feats[1].Name())
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.bed"), FormatBED, nil)
	assert.Error(t, err)

	_, err = NewLineReader(strings.NewReader(""), "x", Format("sam"), nil)
	assert.Error(t, err)
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"a.bed", FormatBED},
		{"a.bed.gz", FormatBED},
		{"a.gtf.gz", FormatGTF},
		{"a.gff", FormatGFF3},
		{"a.GFF3", FormatGFF3},
		{"a.psl", FormatPSL},
		{"a.bowtie", FormatBowtie},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatFromPath(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	_, err := FormatFromPath("noext")
	assert.Error(t, err)
	_, err = FormatFromPath("a.sam")
	assert.Error(t, err)
}
