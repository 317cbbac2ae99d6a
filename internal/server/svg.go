package server

import (
	"fmt"
	"strings"

	"epochwatch/internal/chart"
)

// renderSVG draws the overlay as a minimal SVG document: trailing epochs
// first (oldest underneath), the current epoch on top at full opacity.
func renderSVG(o chart.Overlay, opts chart.Options) []byte {
	width := opts.Width
	if width <= 0 {
		width = chart.DefaultWidth
	}
	height := opts.Height
	if height <= 0 {
		height = chart.DefaultHeight
	}

	var b strings.Builder
	fmt.Fprintf(&b,
		`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.0f %.0f" width="%.0f" height="%.0f">`,
		width, height, width, height)
	b.WriteByte('\n')

	for i := len(o.Trailing) - 1; i >= 0; i-- {
		line := o.Trailing[i]
		if line.Path == "" {
			continue
		}
		fmt.Fprintf(&b,
			`<path d="%s" fill="none" stroke="currentColor" stroke-width="2" stroke-opacity="%.2f" data-epoch="%d"/>`,
			line.Path, line.Opacity, line.Epoch)
		b.WriteByte('\n')
	}

	if o.CurrentPath != "" {
		fmt.Fprintf(&b,
			`<path d="%s" fill="none" stroke="currentColor" stroke-width="2" stroke-opacity="1"/>`,
			o.CurrentPath)
		b.WriteByte('\n')
	}

	b.WriteString(`</svg>`)
	return []byte(b.String())
}
