package render

import (
	"fmt"
	"io"

	svg "github.com/ajstarks/svgo"

	"github.com/vanderheijden86/kerrigan/pkg/encode"
	"github.com/vanderheijden86/kerrigan/pkg/metrics"
)

// SVG draws the scene as an SVG document.
func SVG(w io.Writer, scene Scene) error {
	defer metrics.Timer(metrics.RenderFrame)()
	width, height := scene.size()
	canvas := svg.New(w)
	canvas.Start(width, height)
	canvas.Rect(0, 0, width, height, fmt.Sprintf("fill:%s", encode.CSS(colorBackdrop)))

	links, nodes := scene.frame()
	canvas.Gid("links")
	for _, l := range links {
		canvas.Line(int(l.x1), int(l.y1), int(l.x2), int(l.y2),
			fmt.Sprintf("stroke:%s;stroke-width:%.2f;stroke-opacity:0.8", l.color, l.width))
		if tip, left, right, ok := arrowHead(l.x1, l.y1, l.x2, l.y2); ok {
			canvas.Polygon(
				[]int{int(tip[0]), int(left[0]), int(right[0])},
				[]int{int(tip[1]), int(left[1]), int(right[1])},
				fmt.Sprintf("fill:%s", l.color),
			)
		}
	}
	canvas.Gend()

	fontSize := encode.LabelSize(1)
	canvas.Gid("nodes")
	for _, n := range nodes {
		fill := encode.CSS(scene.Encoder.NodeColor(n.node, scene.Search))
		canvas.Circle(int(n.x), int(n.y), int(NodeRadius),
			fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1.5", fill, encode.CSS(colorStroke)))
		canvas.Text(int(n.x), int(n.y), n.label,
			fmt.Sprintf("fill:%s;font-size:%.0fpx;font-family:sans-serif;text-anchor:middle;dominant-baseline:central",
				encode.CSS(colorText), fontSize))
	}
	canvas.Gend()

	if scene.Title != "" {
		canvas.Text(12, 20, scene.Title,
			fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", encode.CSS(colorSubtle)))
	}
	canvas.End()
	return nil
}
