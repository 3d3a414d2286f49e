package render

import (
	"image/color"
	"io"

	"git.sr.ht/~sbinet/gg"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/kerrigan/pkg/metrics"
)

var (
	colorBackdrop = color.RGBA{0xff, 0xff, 0xff, 0xff}
	colorText     = color.RGBA{0x11, 0x11, 0x11, 0xff}
	colorSubtle   = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorStroke   = color.RGBA{0xff, 0xff, 0xff, 0xff}
)

// PNG draws the scene as a PNG image.
func PNG(w io.Writer, scene Scene) error {
	defer metrics.Timer(metrics.RenderFrame)()
	width, height := scene.size()
	dc := gg.NewContext(width, height)
	dc.SetColor(colorBackdrop)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	links, nodes := scene.frame()
	for _, l := range links {
		c := scene.Encoder.LinkColor(l.link)
		dc.SetColor(c)
		dc.SetLineWidth(l.width)
		dc.DrawLine(l.x1, l.y1, l.x2, l.y2)
		dc.Stroke()
		if tip, left, right, ok := arrowHead(l.x1, l.y1, l.x2, l.y2); ok {
			dc.NewSubPath()
			dc.MoveTo(tip[0], tip[1])
			dc.LineTo(left[0], left[1])
			dc.LineTo(right[0], right[1])
			dc.ClosePath()
			dc.Fill()
		}
	}

	for _, n := range nodes {
		dc.SetColor(scene.Encoder.NodeColor(n.node, scene.Search))
		dc.DrawCircle(n.x, n.y, NodeRadius)
		dc.FillPreserve()
		dc.SetColor(colorStroke)
		dc.SetLineWidth(1.5)
		dc.Stroke()
		dc.SetColor(colorText)
		dc.DrawStringAnchored(n.label, n.x, n.y, 0.5, 0.5)
	}

	if scene.Title != "" {
		dc.SetColor(colorSubtle)
		dc.DrawStringAnchored(scene.Title, 12, 16, 0, 0.5)
	}
	return dc.EncodePNG(w)
}
