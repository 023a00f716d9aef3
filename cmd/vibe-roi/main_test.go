package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args against a private config file
// and returns what it wrote to stdout.
func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append([]string{"--config", filepath.Join(dir, "config.yaml")}, args...))
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const twoFeatures = "chr1\t0\t10\ta\t0\t+\nchr1\t20\t30\tb\t0\t-\n"

func TestConvertCmd(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "in.bed", twoFeatures)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "bed to bed",
			args: []string{"convert", in},
			want: "chr1\t0\t10\ta\t0\t+\t0\t0\t0,0,0\t1\t10,\t0,\n" +
				"chr1\t20\t30\tb\t0\t-\t20\t20\t0,0,0\t1\t10,\t0,\n",
		},
		{
			name: "antisense",
			args: []string{"convert", "--antisense", in},
			want: "chr1\t0\t10\ta\t0\t-\t0\t0\t0,0,0\t1\t10,\t0,\n" +
				"chr1\t20\t30\tb\t0\t+\t20\t20\t0,0,0\t1\t10,\t0,\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := execute(t, dir, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConvertCmd_OutputFile(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "in.bed", twoFeatures)
	outPath := filepath.Join(dir, "out.gtf")

	stdout, err := execute(t, dir, "convert", "-t", "gtf", "-o", outPath, in)
	require.NoError(t, err)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "chr1\t.\texon\t1\t10\t0.0\t+\t.\tgene_id \"gene_a\"; transcript_id \"a\";")
}

func TestConvertCmd_StdinNeedsFormat(t *testing.T) {
	_, err := execute(t, t.TempDir(), "convert", "-")
	var ue usageError
	require.ErrorAs(t, err, &ue)
	assert.ErrorIs(t, err, errFromRequired)
}

func TestFastaCmd(t *testing.T) {
	dir := t.TempDir()
	genome := writeFile(t, dir, "genome.fa", ">chr1\nAACCGGTTAA\n")
	in := writeFile(t, dir, "in.bed", "chr1\t0\t4\tx\t0\t-\nchr1\t6\t10\ty\t0\t+\n")

	got, err := execute(t, dir, "fasta", "--genome", genome, in)
	require.NoError(t, err)
	assert.Equal(t, ">x\nGGTT\n>y\nTTAA\n", got)

	got, err = execute(t, dir, "fasta", "--genome", genome, "--unstranded", in)
	require.NoError(t, err)
	assert.Equal(t, ">x\nAACC\n>y\nTTAA\n", got)
}

func TestCountsCmd(t *testing.T) {
	dir := t.TempDir()
	bg := writeFile(t, dir, "cov.bg", "chr1\t0\t5\t1\nchr1\t5\t10\t2\n")
	in := writeFile(t, dir, "in.bed", "chr1\t0\t10\ta\t0\t+\n")
	mask := writeFile(t, dir, "mask.bed", "chr1\t0\t5\tm\n")

	header := "#region_name\tregion\tgene\tlength\tmasked_length\tcounts\tcounts_per_nt\n"
	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "plain",
			args: []string{"counts", "--bedgraph", bg, in},
			want: header + "a\tchr1:0-10(+)\tgene_a\t10\t10\t15\t1.5\n",
		},
		{
			name: "masked",
			args: []string{"counts", "--bedgraph", bg, "--mask", mask, in},
			want: header + "a\tchr1:0-10(+)\tgene_a\t10\t5\t10\t2\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := execute(t, dir, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCountsCmd_RegionNeedsTranscripts(t *testing.T) {
	dir := t.TempDir()
	bg := writeFile(t, dir, "cov.bg", "chr1\t0\t5\t1\n")
	in := writeFile(t, dir, "in.bed", "chr1\t0\t10\ta\t0\t+\n")

	_, err := execute(t, dir, "counts", "--bedgraph", bg, "--region", "cds", in)
	var ue usageError
	assert.ErrorAs(t, err, &ue)
}

func TestStoreCmd(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "features.duckdb")
	in := writeFile(t, dir, "in.bed", twoFeatures)

	_, err := execute(t, dir, "store", "import", "--db", db, in)
	require.NoError(t, err)
	// Unchanged files are skipped.
	_, err = execute(t, dir, "store", "import", "--db", db, in)
	require.NoError(t, err)

	got, err := execute(t, dir, "store", "export", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "chr1\t0\t10\ta\t0\t+\t0\t0\t0,0,0\t1\t10,\t0,\n"+
		"chr1\t20\t30\tb\t0\t-\t20\t20\t0,0,0\t1\t10,\t0,\n", got)

	got, err = execute(t, dir, "store", "export", "--db", db, "--region", "chr1:25-40")
	require.NoError(t, err)
	assert.Equal(t, "chr1\t20\t30\tb\t0\t-\t20\t20\t0,0,0\t1\t10,\t0,\n", got)
}

func TestConfigCmd(t *testing.T) {
	dir := t.TempDir()

	got, err := execute(t, dir, "config", "set", "gff3.rna_type", "lnc_RNA")
	require.NoError(t, err)
	assert.Contains(t, got, "Set gff3.rna_type = lnc_RNA")

	got, err = execute(t, dir, "config", "get", "gff3.rna_type")
	require.NoError(t, err)
	assert.Equal(t, "lnc_RNA\n", got)

	got, err = execute(t, dir, "config")
	require.NoError(t, err)
	assert.Contains(t, got, "rna_type: lnc_RNA")
}

func TestParseRegion(t *testing.T) {
	tests := []struct {
		in         string
		chrom      string
		start, end int
		wantErr    bool
	}{
		{in: "chr1:1-10", chrom: "chr1", start: 0, end: 10},
		{in: "chr7:55,019,017-55,211,628", chrom: "chr7", start: 55019016, end: 55211628},
		{in: "HLA-A*01:01:1-5", chrom: "HLA-A*01:01", start: 0, end: 5},
		{in: "chr1", wantErr: true},
		{in: "chr1:10", wantErr: true},
		{in: "chr1:0-10", wantErr: true},
		{in: "chr1:10-5", wantErr: true},
		{in: "chr1:a-5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			chrom, start, end, err := parseRegion(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.chrom, chrom)
			assert.Equal(t, tt.start, start)
			assert.Equal(t, tt.end, end)
		})
	}
}

func TestRun_ExitCodes(t *testing.T) {
	t.Cleanup(viper.Reset)
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")

	tests := []struct {
		name string
		args []string
		want int
	}{
		{name: "version", args: []string{"--version"}, want: ExitSuccess},
		{name: "missing argument", args: []string{"--config", cfg, "convert"}, want: ExitUsage},
		{name: "unknown flag", args: []string{"--config", cfg, "convert", "--bogus", "x.bed"}, want: ExitUsage},
		{name: "unknown output format", args: []string{"--config", cfg, "convert", "-t", "xyz", writeFile(t, dir, "a.bed", twoFeatures)}, want: ExitUsage},
		{name: "missing file", args: []string{"--config", cfg, "convert", filepath.Join(dir, "missing.bed")}, want: ExitError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			assert.Equal(t, tt.want, run(tt.args))
		})
	}
}

func TestOpenOutput_CloseTwice(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"file", filepath.Join(t.TempDir(), "out.bed")},
		{"stdout", "-"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{}
			cmd.SetOut(&bytes.Buffer{})
			w, closeOut, err := openOutput(cmd, tt.path)
			require.NoError(t, err)
			_, err = w.Write([]byte("chr1\t0\t10\n"))
			require.NoError(t, err)
			assert.NoError(t, closeOut())
			assert.NoError(t, closeOut())
		})
	}
}
