// Package genome provides sequence and count lookups for chains, backed by
// a genome FASTA file and bedGraph coverage tracks.
package genome

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/inodb/vibe-roi/internal/roi"
)

// FASTA holds a genome in memory, one sequence per chromosome.
type FASTA struct {
	sequences map[string]string
}

// LoadFASTA reads a genome FASTA file. Files ending in .gz are
// decompressed.
func LoadFASTA(path string) (*FASTA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open FASTA file: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}
	return ReadFASTA(reader)
}

// ReadFASTA parses FASTA content. A record's name is its header up to the
// first whitespace.
func ReadFASTA(r io.Reader) (*FASTA, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	g := &FASTA{sequences: make(map[string]string)}
	var name string
	var seq strings.Builder
	flush := func() {
		if name != "" {
			g.sequences[name] = seq.String()
		}
		seq.Reset()
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, ">") {
			flush()
			name = recordName(line)
			continue
		}
		seq.WriteString(strings.TrimSpace(line))
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan FASTA: %w", err)
	}
	return g, nil
}

func recordName(header string) string {
	header = strings.TrimPrefix(header, ">")
	if fields := strings.Fields(header); len(fields) > 0 {
		return fields[0]
	}
	return ""
}

// Get returns the bases in [start, end) of chrom.
func (g *FASTA) Get(chrom string, start, end int) (string, error) {
	seq, ok := g.sequences[chrom]
	if !ok {
		return "", fmt.Errorf("get sequence: chromosome %q not in genome: %w", chrom, roi.ErrOutOfRange)
	}
	if start < 0 || end > len(seq) || start > end {
		return "", fmt.Errorf("get sequence %s:%d-%d of %d bases: %w", chrom, start, end, len(seq), roi.ErrOutOfRange)
	}
	return seq[start:end], nil
}

// Length returns the length of chrom, or 0 if it is unknown.
func (g *FASTA) Length(chrom string) int {
	return len(g.sequences[chrom])
}

// Chromosomes returns the loaded chromosome names in sorted order.
func (g *FASTA) Chromosomes() []string {
	names := make([]string, 0, len(g.sequences))
	for n := range g.sequences {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
