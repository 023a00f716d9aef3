package reader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-roi/internal/roi"
)

const gtfInput = `#!genome-build test
chr1	test	gene	101	500	.	+	.	gene_id "g1";
chr1	test	transcript	101	500	.	+	.	gene_id "g1"; transcript_id "t1"; gene_name "ABC";
chr1	test	exon	101	200	.	+	.	gene_id "g1"; transcript_id "t1"; exon_number "1";
chr1	test	exon	301	500	.	+	.	gene_id "g1"; transcript_id "t1"; exon_number "2";
chr1	test	CDS	151	200	.	+	0	gene_id "g1"; transcript_id "t1"; exon_number "1";
chr1	test	CDS	301	447	.	+	1	gene_id "g1"; transcript_id "t1"; exon_number "2";
chr1	test	start_codon	151	153	.	+	0	gene_id "g1"; transcript_id "t1";
chr1	test	stop_codon	448	450	.	+	0	gene_id "g1"; transcript_id "t1";
chr1	test	exon	1001	1100	.	-	.	gene_id "g2"; transcript_id "t2";
chr1	test	exon	901	950	.	-	.	gene_id "g2"; transcript_id "t2";
`

func TestAssembleGTF2(t *testing.T) {
	r, err := NewLineReader(strings.NewReader(gtfInput), "test.gtf", FormatGTF, nil)
	require.NoError(t, err)

	txs, err := AssembleGTF2(r, nil)
	require.NoError(t, err)
	require.Len(t, txs, 2)

	t1 := txs[0]
	assert.Equal(t, "t1", t1.Name())
	assert.Equal(t, "g1", t1.Gene())
	assert.Equal(t, "chr1:100-200^300-500(+)", t1.String())
	require.True(t, t1.IsCoding())
	assert.Equal(t, roi.Int(150), t1.CDSGenomeStart())
	assert.Equal(t, roi.Int(450), t1.CDSGenomeEnd())
	cds, err := t1.CDS(nil)
	require.NoError(t, err)
	assert.Equal(t, 200, cds.Length())

	name, _ := t1.Attr().GetString("gene_name")
	assert.Equal(t, "ABC", name)
	assert.False(t, t1.Attr().Has("exon_number"))
	typ, _ := t1.Attr().GetString(roi.KeyType)
	assert.Equal(t, "mRNA", typ)

	t2 := txs[1]
	assert.Equal(t, "t2", t2.Name())
	assert.Equal(t, "chr1:900-950^1000-1100(-)", t2.String())
	assert.False(t, t2.IsCoding())
}

func TestAssembleGTF2_MinusStrandStopCodon(t *testing.T) {
	in := "chr1\t.\texon\t101\t200\t.\t-\t.\ttranscript_id \"m1\";\n" +
		"chr1\t.\tCDS\t121\t180\t.\t-\t0\ttranscript_id \"m1\";\n" +
		"chr1\t.\tstop_codon\t118\t120\t.\t-\t0\ttranscript_id \"m1\";\n"
	r, err := NewLineReader(strings.NewReader(in), "m.gtf", FormatGTF, nil)
	require.NoError(t, err)

	txs, err := AssembleGTF2(r, nil)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, roi.Int(117), txs[0].CDSGenomeStart())
	assert.Equal(t, roi.Int(180), txs[0].CDSGenomeEnd())
	assert.Equal(t, "gene_m1", txs[0].Gene())
}

func TestAssembleGTF2_CDSOutsideExons(t *testing.T) {
	in := "chr1\t.\texon\t101\t200\t.\t+\t.\ttranscript_id \"bad\";\n" +
		"chr1\t.\tCDS\t301\t400\t.\t+\t0\ttranscript_id \"bad\";\n"
	r, err := NewLineReader(strings.NewReader(in), "bad.gtf", FormatGTF, nil)
	require.NoError(t, err)

	_, err = AssembleGTF2(r, nil)
	assert.ErrorIs(t, err, roi.ErrOutOfRange)
	assert.Contains(t, err.Error(), "bad")
}

const gff3Input = `##gff-version 3
chr1	test	gene	101	500	.	+	.	ID=g1;Name=ABC
chr1	test	mRNA	101	500	.	+	.	ID=t1;Parent=g1
chr1	test	exon	101	200	.	+	.	ID=t1:exon:0;Parent=t1
chr1	test	exon	301	500	.	+	.	ID=t1:exon:1;Parent=t1
chr1	test	five_prime_UTR	101	150	.	+	.	Parent=t1
chr1	test	CDS	151	200	.	+	0	ID=cds1;Parent=t1
chr1	test	CDS	301	450	.	+	1	ID=cds1;Parent=t1
chr1	test	three_prime_UTR	451	500	.	+	.	Parent=t1
chr1	test	mRNA	1001	1400	.	-	.	ID=t2;Parent=g2
chr1	test	CDS	1101	1200	.	-	0	Parent=t2
chr1	test	five_prime_UTR	1201	1400	.	-	.	Parent=t2
chr1	test	three_prime_UTR	1001	1100	.	-	.	Parent=t2
`

func TestAssembleGFF3(t *testing.T) {
	r, err := NewLineReader(strings.NewReader(gff3Input), "test.gff3", FormatGFF3, nil)
	require.NoError(t, err)

	txs, err := AssembleGFF3(r, nil)
	require.NoError(t, err)
	require.Len(t, txs, 2)

	t1 := txs[0]
	assert.Equal(t, "t1", t1.Name())
	assert.Equal(t, "g1", t1.Gene())
	assert.Equal(t, "chr1:100-200^300-500(+)", t1.String())
	assert.Equal(t, roi.Int(150), t1.CDSGenomeStart())
	assert.Equal(t, roi.Int(450), t1.CDSGenomeEnd())
	typ, _ := t1.Attr().GetString(roi.KeyType)
	assert.Equal(t, "mRNA", typ)

	// Exons are rebuilt from CDS and UTR parts.
	t2 := txs[1]
	assert.Equal(t, "t2", t2.Name())
	assert.Equal(t, "chr1:1000-1400(-)", t2.String())
	assert.Equal(t, roi.Int(1100), t2.CDSGenomeStart())
	assert.Equal(t, roi.Int(1200), t2.CDSGenomeEnd())
	utr5, err := t2.UTR5(nil)
	require.NoError(t, err)
	assert.Equal(t, 200, utr5.Length())
}

func TestAssembleGFF3_MissingParentFeature(t *testing.T) {
	in := "chr1\t.\texon\t1\t10\t.\t+\t.\tParent=orphan\n"
	r, err := NewLineReader(strings.NewReader(in), "x.gff3", FormatGFF3, nil)
	require.NoError(t, err)

	txs, err := AssembleGFF3(r, nil)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "orphan", txs[0].Name())
	assert.False(t, txs[0].IsCoding())
}

func TestReadTranscripts(t *testing.T) {
	dir := t.TempDir()
	gtf := filepath.Join(dir, "a.gtf")
	require.NoError(t, os.WriteFile(gtf, []byte(gtfInput), 0o644))
	bed := filepath.Join(dir, "a.bed")
	require.NoError(t, os.WriteFile(bed, []byte(bedInput), 0o644))

	txs, err := ReadTranscripts(gtf, FormatGTF, nil, nil)
	require.NoError(t, err)
	assert.Len(t, txs, 2)

	txs, err = ReadTranscripts(bed, FormatBED, nil, nil)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.True(t, txs[0].IsCoding())

	_, err = ReadTranscripts(bed, FormatBowtie, nil, nil)
	assert.Error(t, err)
}
