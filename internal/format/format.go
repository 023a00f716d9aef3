// Package format encodes and decodes chains as lines of BED, GTF2, GFF3,
// PSL and bowtie text.
package format

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrMalformedLine is wrapped by every parse failure in this package.
var ErrMalformedLine = errors.New("malformed line")

func malformed(format, msg string, args ...any) error {
	return errors.Wrapf(ErrMalformedLine, format+": "+msg, args...)
}

// splitLine splits a tab-delimited line after stripping its line ending.
func splitLine(line string) []string {
	return strings.Split(strings.TrimRight(line, "\r\n"), "\t")
}

func parseInt(format, column, s string) (int, error) {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, malformed(format, "%s %q is not an integer", column, s)
	}
	return i, nil
}

// parseIntList parses a comma separated list such as "10,20,30,".
func parseIntList(format, column, s string) ([]int, error) {
	var out []int
	for _, f := range strings.Split(strings.Trim(s, ","), ",") {
		if f == "" {
			continue
		}
		i, err := parseInt(format, column, f)
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, nil
}

// joinInts renders ints as a comma separated list with a trailing comma.
func joinInts(v []int) string {
	var b strings.Builder
	for _, i := range v {
		b.WriteString(strconv.Itoa(i))
		b.WriteByte(',')
	}
	return b.String()
}
