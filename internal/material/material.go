// Package material maps the builder's metal and carat selection to the
// colors and scale the ring renderer uses.
package material

import (
	"image/color"
	"strconv"
	"strings"
)

// Defaults used when the builder has no selection.
const (
	DefaultMetal = "#D4AF37"
	DefaultCarat = 1.0
)

// Metal is one entry of the builder's metal palette.
type Metal struct {
	Name      string `json:"name"`
	Hex       string `json:"hex"`
	Highlight string `json:"highlight"`
}

// Palette lists the metals the builder offers, with the brighter variant
// used for the specular sheen.
var Palette = []Metal{
	{Name: "Yellow Gold", Hex: "#D4AF37", Highlight: "#F9E8A0"},
	{Name: "White Gold", Hex: "#E8E8E8", Highlight: "#FFFFFF"},
	{Name: "Rose Gold", Hex: "#B76E79", Highlight: "#F4C2C2"},
	{Name: "Platinum", Hex: "#E5E4E2", Highlight: "#F8F8F6"},
	{Name: "Silver", Hex: "#C0C0C0", Highlight: "#F2F2F2"},
}

var highlights = func() map[string]string {
	m := make(map[string]string, len(Palette))
	for _, metal := range Palette {
		m[strings.ToUpper(metal.Hex)] = metal.Highlight
	}
	return m
}()

// Parameters are the render inputs derived from a selection.
type Parameters struct {
	BaseHex      string
	HighlightHex string
	Base         color.NRGBA
	Highlight    color.NRGBA
	GemScale     float64
}

// Resolve derives render parameters from a metal hex and carat size.
// Unknown metals keep their own color as highlight; carat <= 0 becomes 1.
func Resolve(metalHex string, carat float64) Parameters {
	if carat <= 0 {
		carat = DefaultCarat
	}

	highlight, ok := highlights[strings.ToUpper(strings.TrimSpace(metalHex))]
	if !ok {
		highlight = metalHex
	}

	base, ok := ParseHex(metalHex)
	if !ok {
		base, _ = ParseHex(DefaultMetal)
	}
	hl, ok := ParseHex(highlight)
	if !ok {
		hl = base
	}

	return Parameters{
		BaseHex:      metalHex,
		HighlightHex: highlight,
		Base:         base,
		Highlight:    hl,
		GemScale:     carat,
	}
}

// ParseHex parses #RGB or #RRGGBB (leading # optional) into an opaque color.
func ParseHex(s string) (color.NRGBA, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return color.NRGBA{}, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.NRGBA{}, false
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, true
}
