package ui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/kerrigan/pkg/encode"
	"github.com/vanderheijden86/kerrigan/pkg/filter"
	"github.com/vanderheijden86/kerrigan/pkg/layout"
	"github.com/vanderheijden86/kerrigan/pkg/metrics"
	"github.com/vanderheijden86/kerrigan/pkg/model"
)

const (
	nodeGlyph     = '●'
	linkGlyph     = '·'
	maxLabelWidth = 16
	// cellAspect is the height/width ratio of a terminal cell.
	cellAspect = 2.0
	// nodeRadius matches the radius used by the static renderers.
	nodeRadius = 10.0
)

// projection maps simulation coordinates onto the canvas cells. One scale is
// used for both axes (corrected for cell aspect) so the layout is not skewed.
type projection struct {
	minX, minY float64
	scale      float64 // cells per world unit, horizontally
	offX, offY float64
}

func newProjection(pos map[model.NodeID]layout.Point, width, height int) (projection, bool) {
	lo, hi, ok := layout.Bounds(pos)
	if !ok || width < 3 || height < 3 {
		return projection{}, false
	}
	spanX := math.Max(hi.X-lo.X, 1)
	spanY := math.Max(hi.Y-lo.Y, 1)
	usableW := float64(width - 2)
	usableH := float64(height - 2)
	scale := math.Min(usableW/spanX, usableH*cellAspect/spanY)
	if !(scale > 0) || math.IsInf(scale, 0) {
		scale = 1
	}
	return projection{
		minX:  lo.X,
		minY:  lo.Y,
		scale: scale,
		offX:  1 + (usableW-spanX*scale)/2,
		offY:  1 + (usableH-spanY*scale/cellAspect)/2,
	}, true
}

func (p projection) toCell(pt layout.Point) (int, int) {
	col := p.offX + (pt.X-p.minX)*p.scale
	row := p.offY + (pt.Y-p.minY)*p.scale/cellAspect
	return int(math.Round(col)), int(math.Round(row))
}

func (p projection) toWorld(col, row int) (float64, float64) {
	x := p.minX + (float64(col)-p.offX)/p.scale
	y := p.minY + (float64(row)-p.offY)*cellAspect/p.scale
	return x, y
}

type cell struct {
	r     rune
	color lipgloss.TerminalColor
	bold  bool
	cont  bool // right half of a wide rune
	node  bool
}

// Canvas draws the filtered graph into a grid of terminal cells.
type Canvas struct {
	theme     Theme
	enc       encode.Encoder
	width     int
	height    int
	graph     *filter.FilteredGraph
	positions map[model.NodeID]layout.Point
	search    string
	cursor    int
	proj      projection
	projOK    bool
}

// NewCanvas returns an empty canvas.
func NewCanvas(theme Theme, enc encode.Encoder) Canvas {
	return Canvas{theme: theme, enc: enc, cursor: -1}
}

// SetSize updates the drawable area.
func (c *Canvas) SetSize(width, height int) {
	c.width, c.height = width, height
	c.reproject()
}

// SetGraph replaces the graph being drawn. The cursor is kept on the same
// node id when it survives.
func (c *Canvas) SetGraph(fg *filter.FilteredGraph) {
	var prev model.NodeID
	hadCursor := false
	if n, ok := c.CursorNode(); ok {
		prev, hadCursor = n.ID, true
	}
	c.graph = fg
	c.cursor = -1
	if hadCursor && fg != nil {
		for i, n := range fg.Nodes {
			if n.ID == prev {
				c.cursor = i
				break
			}
		}
	}
}

// SetPositions replaces the node positions and recomputes the projection.
func (c *Canvas) SetPositions(pos map[model.NodeID]layout.Point) {
	c.positions = pos
	c.reproject()
}

// SetSearch changes the highlight term.
func (c *Canvas) SetSearch(term string) {
	c.search = term
}

func (c *Canvas) reproject() {
	c.proj, c.projOK = newProjection(c.positions, c.width, c.height)
}

// MoveCursor moves the node cursor by delta, wrapping around.
func (c *Canvas) MoveCursor(delta int) {
	if c.graph == nil || len(c.graph.Nodes) == 0 {
		c.cursor = -1
		return
	}
	n := len(c.graph.Nodes)
	if c.cursor < 0 {
		if delta < 0 {
			c.cursor = n - 1
		} else {
			c.cursor = 0
		}
		return
	}
	c.cursor = ((c.cursor+delta)%n + n) % n
}

// CursorNode returns the node under the keyboard cursor.
func (c Canvas) CursorNode() (model.Node, bool) {
	if c.graph == nil || c.cursor < 0 || c.cursor >= len(c.graph.Nodes) {
		return model.Node{}, false
	}
	return c.graph.Nodes[c.cursor], true
}

// WorldAt converts a canvas cell into simulation coordinates and returns a
// hit radius covering roughly one and a half cells.
func (c Canvas) WorldAt(col, row int) (x, y, radius float64, ok bool) {
	if !c.projOK || col < 0 || row < 0 || col >= c.width || row >= c.height {
		return 0, 0, 0, false
	}
	x, y = c.proj.toWorld(col, row)
	radius = math.Max(nodeRadius, 1.5*cellAspect/c.proj.scale)
	return x, y, radius, true
}

// View renders the canvas.
func (c Canvas) View() string {
	defer metrics.Timer(metrics.RenderFrame)()
	if c.width <= 0 || c.height <= 0 {
		return ""
	}
	if c.graph == nil || len(c.graph.Nodes) == 0 || !c.projOK {
		msg := c.theme.MutedText.Render("No nodes to display")
		return lipgloss.Place(c.width, c.height, lipgloss.Center, lipgloss.Center, msg)
	}

	grid := make([][]cell, c.height)
	for i := range grid {
		grid[i] = make([]cell, c.width)
	}

	for _, l := range c.graph.Links {
		if l.Source == l.Target {
			continue
		}
		sp, ok1 := c.positions[l.Source]
		tp, ok2 := c.positions[l.Target]
		if !ok1 || !ok2 {
			continue
		}
		c.drawLink(grid, sp, tp, EncodedColor(c.enc.LinkColor(l)))
	}

	for i, n := range c.graph.Nodes {
		pt, ok := c.positions[n.ID]
		if !ok {
			continue
		}
		col, row := c.proj.toCell(pt)
		if !c.inside(col, row) {
			continue
		}
		grid[row][col] = cell{r: nodeGlyph, color: EncodedColor(c.enc.NodeColor(n, c.search)), bold: i == c.cursor, node: true}
	}

	for i, n := range c.graph.Nodes {
		pt, ok := c.positions[n.ID]
		if !ok {
			continue
		}
		col, row := c.proj.toCell(pt)
		c.drawLabel(grid, n.DisplayLabel(), col, row+1, i == c.cursor)
	}

	lines := make([]string, c.height)
	for i, row := range grid {
		lines[i] = c.renderRow(row)
	}
	return strings.Join(lines, "\n")
}

func (c Canvas) inside(col, row int) bool {
	return col >= 0 && row >= 0 && col < c.width && row < c.height
}

// drawLink plots a Bresenham line and marks the last cell before the target
// with a direction arrow.
func (c Canvas) drawLink(grid [][]cell, from, to layout.Point, color lipgloss.TerminalColor) {
	x0, y0 := c.proj.toCell(from)
	x1, y1 := c.proj.toCell(to)
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	errAcc := dx + dy
	lastX, lastY := -1, -1
	for {
		if x0 == x1 && y0 == y1 {
			break
		}
		if c.inside(x0, y0) && !grid[y0][x0].node {
			grid[y0][x0] = cell{r: linkGlyph, color: color}
			lastX, lastY = x0, y0
		}
		e2 := 2 * errAcc
		if e2 >= dy {
			errAcc += dy
			x0 += sx
		}
		if e2 <= dx {
			errAcc += dx
			y0 += sy
		}
	}
	if lastX >= 0 {
		grid[lastY][lastX] = cell{r: arrowFor(x1-lastX, y1-lastY), color: color}
	}
}

func (c Canvas) drawLabel(grid [][]cell, label string, col, row int, bold bool) {
	if row < 0 || row >= c.height {
		return
	}
	label = truncateRunesHelper(label, maxLabelWidth, "…")
	w := runewidth.StringWidth(label)
	x := clampInt(col-w/2, 0, max(c.width-w, 0))
	for _, r := range label {
		rw := runewidth.RuneWidth(r)
		if x >= 0 && x+rw <= c.width && !grid[row][x].node {
			grid[row][x] = cell{r: r, color: ColorText, bold: bold}
			if rw == 2 {
				grid[row][x+1] = cell{cont: true}
			}
		}
		x += rw
	}
}

func (c Canvas) renderRow(row []cell) string {
	var sb strings.Builder
	var run strings.Builder
	var runCell cell
	flush := func() {
		if run.Len() == 0 {
			return
		}
		if runCell.color == nil {
			sb.WriteString(run.String())
		} else {
			st := c.theme.Renderer.NewStyle().Foreground(runCell.color)
			if runCell.bold {
				st = st.Bold(true).Reverse(runCell.node)
			}
			sb.WriteString(st.Render(run.String()))
		}
		run.Reset()
	}
	for i, cl := range row {
		if cl.cont {
			continue
		}
		if i == 0 || cl.color != runCell.color || cl.bold != runCell.bold || cl.node != runCell.node {
			flush()
			runCell = cl
		}
		if cl.r == 0 {
			run.WriteByte(' ')
		} else {
			run.WriteRune(cl.r)
		}
	}
	flush()
	return sb.String()
}

func arrowFor(dx, dy int) rune {
	switch {
	case dx > 0 && dy == 0:
		return '→'
	case dx < 0 && dy == 0:
		return '←'
	case dx == 0 && dy > 0:
		return '↓'
	case dx == 0 && dy < 0:
		return '↑'
	case dx > 0 && dy > 0:
		return '↘'
	case dx > 0 && dy < 0:
		return '↗'
	case dx < 0 && dy > 0:
		return '↙'
	default:
		return '↖'
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
