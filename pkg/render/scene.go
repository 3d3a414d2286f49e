// Package render draws a filtered graph to static PNG and SVG images.
package render

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/kerrigan/pkg/encode"
	"github.com/vanderheijden86/kerrigan/pkg/filter"
	"github.com/vanderheijden86/kerrigan/pkg/layout"
	"github.com/vanderheijden86/kerrigan/pkg/model"
)

const (
	// NodeRadius is the drawn circle radius in pixels.
	NodeRadius = 10.0
	// ArrowLength is the length of the direction marker at a link's target end.
	ArrowLength = 6.0

	padding       = 40.0
	defaultWidth  = 960
	defaultHeight = 640
)

// Viewport is the output surface. Scale zooms around the center.
type Viewport struct {
	Width  int
	Height int
	Scale  float64
}

// Scene is everything needed to draw one frame.
type Scene struct {
	Graph     *filter.FilteredGraph
	Positions map[model.NodeID]layout.Point
	Encoder   encode.Encoder
	Search    string
	Viewport  Viewport
	Title     string
}

func (s Scene) size() (int, int) {
	w, h := s.Viewport.Width, s.Viewport.Height
	if w <= 0 {
		w = defaultWidth
	}
	if h <= 0 {
		h = defaultHeight
	}
	return w, h
}

// projector maps simulation coordinates onto the viewport, fitting the
// bounding box of all positions inside the padded surface.
type projector struct {
	cx, cy     float64
	k          float64
	offX, offY float64
}

func (s Scene) projector() projector {
	w, h := s.size()
	min, max, ok := layout.Bounds(s.Positions)
	if !ok {
		return projector{k: 1, offX: float64(w) / 2, offY: float64(h) / 2}
	}
	spanX, spanY := max.X-min.X, max.Y-min.Y
	availX, availY := float64(w)-2*padding, float64(h)-2*padding
	k := 1.0
	if spanX > 0 || spanY > 0 {
		k = math.Min(availX/math.Max(spanX, 1), availY/math.Max(spanY, 1))
	}
	k *= encode.NormalizeScale(s.Viewport.Scale)
	return projector{
		cx:   min.X + spanX/2,
		cy:   min.Y + spanY/2,
		k:    k,
		offX: float64(w) / 2,
		offY: float64(h) / 2,
	}
}

func (p projector) at(pt layout.Point) (float64, float64) {
	return (pt.X-p.cx)*p.k + p.offX, (pt.Y-p.cy)*p.k + p.offY
}

type drawnLink struct {
	x1, y1, x2, y2 float64
	width          float64
	color          string
	link           model.Link
}

type drawnNode struct {
	x, y  float64
	label string
	node  model.Node
}

// frame resolves the scene into screen-space primitives shared by both
// renderers. Nodes without a position are skipped, as are links touching them.
func (s Scene) frame() ([]drawnLink, []drawnNode) {
	if s.Graph == nil {
		return nil, nil
	}
	proj := s.projector()
	nodes := make([]drawnNode, 0, len(s.Graph.Nodes))
	for _, n := range s.Graph.Nodes {
		pt, ok := s.Positions[n.ID]
		if !ok {
			continue
		}
		x, y := proj.at(pt)
		nodes = append(nodes, drawnNode{x: x, y: y, label: n.DisplayLabel(), node: n})
	}
	links := make([]drawnLink, 0, len(s.Graph.Links))
	for _, l := range s.Graph.Links {
		src, ok1 := s.Positions[l.Source]
		dst, ok2 := s.Positions[l.Target]
		if !ok1 || !ok2 {
			continue
		}
		x1, y1 := proj.at(src)
		x2, y2 := proj.at(dst)
		links = append(links, drawnLink{
			x1: x1, y1: y1, x2: x2, y2: y2,
			width: s.Encoder.LinkWidth(l),
			color: encode.CSS(s.Encoder.LinkColor(l)),
			link:  l,
		})
	}
	return links, nodes
}

// arrowHead returns the three corners of the direction marker that sits on
// the rim of the target node.
func arrowHead(x1, y1, x2, y2 float64) (tip, left, right [2]float64, ok bool) {
	dx, dy := x2-x1, y2-y1
	d := math.Hypot(dx, dy)
	if d <= NodeRadius {
		return tip, left, right, false
	}
	ux, uy := dx/d, dy/d
	tx, ty := x2-ux*NodeRadius, y2-uy*NodeRadius
	bx, by := tx-ux*ArrowLength, ty-uy*ArrowLength
	half := ArrowLength / 2
	tip = [2]float64{tx, ty}
	left = [2]float64{bx - uy*half, by + ux*half}
	right = [2]float64{bx + uy*half, by - ux*half}
	return tip, left, right, true
}

// Format is an output image type.
type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

// FormatFor infers the format from a file extension. Unknown or missing
// extensions default to SVG.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".png") {
		return FormatPNG
	}
	return FormatSVG
}

// SaveFile renders the scene to path. An empty format is inferred from the
// extension; a path without extension gets ".svg" appended.
func SaveFile(path string, format Format, scene Scene) error {
	if path == "" {
		return fmt.Errorf("output path is required")
	}
	format = Format(strings.ToLower(strings.TrimPrefix(string(format), ".")))
	if format == "" {
		format = FormatFor(path)
		if filepath.Ext(path) == "" {
			path += ".svg"
		}
	}
	if format != FormatSVG && format != FormatPNG {
		return fmt.Errorf("unsupported format %q (want svg or png)", format)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if format == FormatPNG {
		err = PNG(f, scene)
	} else {
		err = SVG(f, scene)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}
	return nil
}

// SaveAll renders the scene to every path concurrently.
func SaveAll(ctx context.Context, paths []string, scene Scene) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, p := range paths {
		p := p
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return SaveFile(p, "", scene)
		})
	}
	return g.Wait()
}
