package format

import (
	"fmt"
	"strconv"

	"github.com/inodb/vibe-roi/internal/roi"
)

// Column describes one extra, non-BED column of a BED X+Y file.
// A nil Parse stores the raw text.
type Column struct {
	Name  string
	Parse func(string) (roi.Value, error)
}

func (c Column) parse(s string) (roi.Value, error) {
	if c.Parse == nil {
		return roi.StringValue(s), nil
	}
	return c.Parse(s)
}

// CustomColumns returns n string columns named custom0..custom<n-1>.
func CustomColumns(n int) []Column {
	out := make([]Column, n)
	for i := range out {
		out[i] = Column{Name: fmt.Sprintf("custom%d", i)}
	}
	return out
}

// NamedColumns returns string columns with the given names.
func NamedColumns(names ...string) []Column {
	out := make([]Column, len(names))
	for i, n := range names {
		out[i] = Column{Name: n}
	}
	return out
}

// IntColumn parses a column as an integer.
func IntColumn(s string) (roi.Value, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return roi.Value{}, err
	}
	return roi.IntValue(i), nil
}

// FloatColumn parses a column as a float.
func FloatColumn(s string) (roi.Value, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return roi.Value{}, err
	}
	return roi.FloatValue(f), nil
}
