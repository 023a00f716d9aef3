package format

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/inodb/vibe-roi/internal/roi"
)

const (
	gtf2Reserved = "\";\t\n\r%"
	gff3Reserved = ";=&,\t\n\r%"
)

// escape percent-encodes reserved and control characters.
func escape(s, reserved string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x20 || c == 0x7f || strings.IndexByte(reserved, c) >= 0 {
			fmt.Fprintf(&b, "%%%02X", c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// unescape decodes %XX sequences. Malformed sequences are kept verbatim.
func unescape(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) {
			if v, err := strconv.ParseUint(s[i+1:i+3], 16, 8); err == nil {
				b.WriteByte(byte(v))
				i += 2
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// GTF2Tokens renders column 9 of a GTF2 line. gene_id and transcript_id
// come first, followed by the remaining keys in sorted order.
func GTF2Tokens(attr *roi.Attributes, excludes []string, esc bool) string {
	var tokens []string
	add := func(k string) {
		v, _ := attr.GetString(k)
		if esc {
			v = escape(v, gtf2Reserved)
		}
		tokens = append(tokens, k+" \""+v+"\";")
	}
	for _, k := range []string{roi.KeyGeneID, roi.KeyTranscriptID} {
		if attr.Has(k) && !slices.Contains(excludes, k) {
			add(k)
		}
	}
	for _, k := range sortedKeys(attr, excludes, roi.KeyGeneID, roi.KeyTranscriptID) {
		add(k)
	}
	return strings.Join(tokens, " ")
}

// GFF3Tokens renders column 9 of a GFF3 line. ID, Name and Parent come
// first, followed by the remaining keys in sorted order. List values are
// written comma separated.
func GFF3Tokens(attr *roi.Attributes, excludes []string, esc bool) string {
	var tokens []string
	add := func(k string) {
		v, _ := attr.Get(k)
		vals := v.Strings()
		if esc {
			for i := range vals {
				vals[i] = escape(vals[i], gff3Reserved)
			}
		}
		tokens = append(tokens, k+"="+strings.Join(vals, ","))
	}
	first := []string{roi.KeyID, roi.KeyName, roi.KeyParent}
	for _, k := range first {
		if attr.Has(k) && !slices.Contains(excludes, k) {
			add(k)
		}
	}
	for _, k := range sortedKeys(attr, excludes, first...) {
		add(k)
	}
	return strings.Join(tokens, ";")
}

func sortedKeys(attr *roi.Attributes, excludes []string, skip ...string) []string {
	var keys []string
	for _, k := range attr.Keys() {
		if slices.Contains(excludes, k) || slices.Contains(skip, k) {
			continue
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// ParseGTF2Tokens parses a GTF2 attribute column: key "value"; key "value";
// Repeated keys keep the last value.
func ParseGTF2Tokens(s string) *roi.Attributes {
	attr := roi.NewAttributes()
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idx := strings.IndexAny(part, " \t")
		if idx == -1 {
			continue
		}
		key := part[:idx]
		value := strings.Trim(strings.TrimSpace(part[idx+1:]), "\"")
		attr.SetString(key, unescape(value))
	}
	return attr
}

// ParseGFF3Tokens parses a GFF3 attribute column: key=value;key=value.
// Parent is always stored as a list, since features may have several.
func ParseGFF3Tokens(s string) *roi.Attributes {
	attr := roi.NewAttributes()
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		key = unescape(strings.TrimSpace(key))
		if key == roi.KeyParent {
			var parents []string
			for _, p := range strings.Split(value, ",") {
				parents = append(parents, unescape(p))
			}
			attr.Set(key, roi.StringsValue(parents))
			continue
		}
		attr.SetString(key, unescape(value))
	}
	return attr
}
