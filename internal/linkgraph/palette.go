package linkgraph

// NeutralColor marks bridge and orphan nodes in sovereignty views.
const NeutralColor = "#9ca3af"

// DefaultPalette is the color cycle for sovereigns and collections.
var DefaultPalette = []string{
	"#6366f1",
	"#f59e0b",
	"#10b981",
	"#ef4444",
	"#3b82f6",
	"#ec4899",
	"#14b8a6",
	"#8b5cf6",
	"#f97316",
	"#84cc16",
}

func paletteColor(palette []string, i int) string {
	if len(palette) == 0 {
		palette = DefaultPalette
	}
	return palette[i%len(palette)]
}
