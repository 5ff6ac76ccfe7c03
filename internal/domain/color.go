package domain

import "strings"

// ColorTransparent marks a card without a flat color.
const ColorTransparent = "transparent"

// CardColors lists the palette offered when tagging a card, light variants first.
var CardColors = []string{
	ColorTransparent,
	"#FCA5A5",
	"#FDBA74",
	"#FDE047",
	"#86EFAC",
	"#93C5FD",
	"#C4B5FD",
	"#F0ABFC",
	"#E5E7EB",
}

var darkCardColors = map[string]string{
	"#FCA5A5": "#450A0A",
	"#FDBA74": "#431407",
	"#FDE047": "#422006",
	"#86EFAC": "#052E16",
	"#93C5FD": "#172554",
	"#C4B5FD": "#2E1065",
	"#F0ABFC": "#500724",
	"#E5E7EB": "#1F2937",
}

// AdaptiveColor maps a stored flat color to the variant used on light or dark backgrounds.
func AdaptiveColor(color string, dark bool) string {
	color = strings.TrimSpace(color)
	if color == "" || strings.EqualFold(color, ColorTransparent) {
		return ColorTransparent
	}
	if !dark {
		return color
	}
	if mapped, ok := darkCardColors[strings.ToUpper(color)]; ok {
		return mapped
	}
	return color
}

// NextCardColor cycles through CardColors, starting over for unknown values.
func NextCardColor(color string) string {
	color = strings.TrimSpace(color)
	if color == "" {
		color = ColorTransparent
	}
	for idx, candidate := range CardColors {
		if strings.EqualFold(candidate, color) {
			return CardColors[(idx+1)%len(CardColors)]
		}
	}
	return CardColors[0]
}
