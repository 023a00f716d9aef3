package format

import (
	"fmt"
	"strconv"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// DefaultColor is used when an itemRgb value cannot be parsed.
const DefaultColor = "#000000"

// RGBToHex converts an itemRgb triple such as "255,0,0" to "#ff0000".
func RGBToHex(rgb string) (string, error) {
	parts := strings.Split(strings.Trim(rgb, "() "), ",")
	if len(parts) != 3 {
		return "", fmt.Errorf("parse color %q: want 3 components", rgb)
	}
	var c [3]float64
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || v < 0 || v > 255 {
			return "", fmt.Errorf("parse color %q: bad component %q", rgb, p)
		}
		c[i] = float64(v) / 255
	}
	return colorful.Color{R: c[0], G: c[1], B: c[2]}.Hex(), nil
}

// HexToRGB converts a hex colour such as "#ff0000" to "255,0,0".
func HexToRGB(hex string) (string, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return "", fmt.Errorf("parse color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return fmt.Sprintf("%d,%d,%d", r, g, b), nil
}
