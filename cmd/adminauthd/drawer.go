package main

import (
	"bytes"
	"fmt"
	"math/rand"
)

// svgDrawer renders challenge codes as a small SVG document. Good enough
// for development; deployments swap in a raster captcha library through the
// same interface.
type svgDrawer struct{}

func (svgDrawer) Draw(code string, width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid captcha dimensions %dx%d", width, height)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d">`, width, height)
	fmt.Fprintf(&buf, `<rect width="100%%" height="100%%" fill="#f5f5f5"/>`)

	// A couple of strike-through lines so the text is not trivially OCRable.
	for i := 0; i < 3; i++ {
		fmt.Fprintf(&buf, `<line x1="0" y1="%d" x2="%d" y2="%d" stroke="#c0c0c0"/>`,
			rand.Intn(height), width, rand.Intn(height))
	}

	step := width / (len(code) + 1)
	for i, ch := range code {
		x := step * (i + 1)
		y := height/2 + rand.Intn(height/4) - height/8
		rot := rand.Intn(30) - 15
		fmt.Fprintf(&buf, `<text x="%d" y="%d" font-size="%d" font-family="monospace" fill="#333" transform="rotate(%d %d %d)">%c</text>`,
			x, y, height/2, rot, x, y, ch)
	}
	buf.WriteString(`</svg>`)

	return buf.Bytes(), nil
}
