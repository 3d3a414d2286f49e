// Package layout positions graph nodes with a velocity-Verlet force
// simulation: many-body repulsion, link springs and a centering translation.
//
// The integration follows the d3-force conventions so layouts look the same
// as the browser dashboard: alpha cools geometrically toward zero, each tick
// applies forces scaled by alpha and then damps velocities by VelocityDecay.
package layout

import (
	"math"
	"math/rand"

	"github.com/vanderheijden86/kerrigan/pkg/filter"
	"github.com/vanderheijden86/kerrigan/pkg/metrics"
	"github.com/vanderheijden86/kerrigan/pkg/model"
)

// DefaultLinkDistance is the spring length used when no distance function is
// supplied.
const DefaultLinkDistance = 30.0

const (
	initialRadius = 10.0
	distanceMin2  = 1.0
)

var initialAngle = math.Pi * (3 - math.Sqrt(5))

// Point is a position in simulation space.
type Point struct {
	X, Y float64
}

// Params tunes the simulation.
type Params struct {
	VelocityDecay float64
	AlphaDecay    float64
	AlphaMin      float64
	// Reheat is the alpha a running simulation is raised to when the graph
	// changes. The first graph always starts at alpha 1.
	Reheat float64
	// Charge is the many-body strength; negative values repel.
	Charge float64
	// LinkStrength overrides the per-link spring stiffness when > 0.
	// Zero uses 1/min(degree(source), degree(target)).
	LinkStrength float64
	Center       bool
	Width        float64
	Height       float64
}

// DefaultParams mirrors the dashboard's tuned values.
func DefaultParams() Params {
	return Params{
		VelocityDecay: 0.2,
		AlphaDecay:    0.05,
		AlphaMin:      0.001,
		Reheat:        0.3,
		Charge:        -30,
		Center:        true,
	}
}

type body struct {
	id           model.NodeID
	x, y, vx, vy float64
}

type spring struct {
	source, target int
	distance       float64
	strength       float64
	bias           float64
}

// Simulation holds node state between ticks. It is not safe for concurrent
// use; the TUI drives it from the bubbletea update loop and the server builds
// one per request.
type Simulation struct {
	params  Params
	bodies  []body
	index   map[model.NodeID]int
	springs []spring
	alpha   float64
	rng     *rand.Rand
	started bool
}

// New creates an empty simulation.
func New(p Params) *Simulation {
	def := DefaultParams()
	if p.VelocityDecay <= 0 || p.VelocityDecay > 1 {
		p.VelocityDecay = def.VelocityDecay
	}
	if p.AlphaDecay <= 0 || p.AlphaDecay >= 1 {
		p.AlphaDecay = def.AlphaDecay
	}
	if p.AlphaMin <= 0 {
		p.AlphaMin = def.AlphaMin
	}
	if p.Reheat <= 0 || p.Reheat > 1 {
		p.Reheat = def.Reheat
	}
	return &Simulation{
		params: p,
		index:  make(map[model.NodeID]int),
		rng:    rand.New(rand.NewSource(1)),
	}
}

// Params returns the effective parameters.
func (s *Simulation) Params() Params { return s.params }

// SetGraph replaces the simulated graph. Nodes whose ids were already present
// keep their position and velocity; new nodes are placed on a phyllotaxis
// spiral around the center. Links whose endpoints are missing are ignored.
func (s *Simulation) SetGraph(fg *filter.FilteredGraph, distance func(model.Link) float64) {
	if distance == nil {
		distance = func(model.Link) float64 { return DefaultLinkDistance }
	}
	var nodes []model.Node
	var links []model.Link
	if fg != nil {
		nodes, links = fg.Nodes, fg.Links
	}

	cx, cy := s.center()
	bodies := make([]body, 0, len(nodes))
	index := make(map[model.NodeID]int, len(nodes))
	for i, n := range nodes {
		if _, dup := index[n.ID]; dup {
			continue
		}
		b := body{id: n.ID}
		if old, ok := s.index[n.ID]; ok {
			b = s.bodies[old]
		} else {
			r := initialRadius * math.Sqrt(0.5+float64(i))
			a := float64(i) * initialAngle
			b.x = cx + r*math.Cos(a)
			b.y = cy + r*math.Sin(a)
		}
		index[n.ID] = len(bodies)
		bodies = append(bodies, b)
	}

	springs := make([]spring, 0, len(links))
	count := make([]int, len(bodies))
	for _, l := range links {
		si, ok1 := index[l.Source]
		ti, ok2 := index[l.Target]
		if !ok1 || !ok2 || si == ti {
			continue
		}
		d := distance(l)
		if math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
			d = 0
		}
		springs = append(springs, spring{source: si, target: ti, distance: d})
		count[si]++
		count[ti]++
	}
	for i := range springs {
		sp := &springs[i]
		cs, ct := float64(count[sp.source]), float64(count[sp.target])
		sp.bias = cs / (cs + ct)
		if s.params.LinkStrength > 0 {
			sp.strength = s.params.LinkStrength
		} else {
			sp.strength = 1 / math.Min(cs, ct)
		}
	}

	s.bodies, s.index, s.springs = bodies, index, springs
	if !s.started {
		s.alpha = 1
		s.started = len(bodies) > 0
	} else if s.alpha < s.params.Reheat {
		s.alpha = s.params.Reheat
	}
}

// Alpha returns the current temperature.
func (s *Simulation) Alpha() float64 { return s.alpha }

// Active reports whether further ticks would still move nodes.
func (s *Simulation) Active() bool {
	return len(s.bodies) > 0 && s.alpha >= s.params.AlphaMin
}

// Len returns the number of simulated nodes.
func (s *Simulation) Len() int { return len(s.bodies) }

// Tick advances the simulation one step. Ticking an empty graph does nothing.
func (s *Simulation) Tick() {
	if len(s.bodies) == 0 {
		return
	}
	defer metrics.Timer(metrics.LayoutTick)()

	s.alpha += (0 - s.alpha) * s.params.AlphaDecay

	s.applyLinks()
	s.applyCharge()

	decay := 1 - s.params.VelocityDecay
	for i := range s.bodies {
		b := &s.bodies[i]
		b.vx *= decay
		b.vy *= decay
		b.x += b.vx
		b.y += b.vy
	}
	if s.params.Center {
		s.applyCenter()
	}
}

// Run ticks until the simulation cools below AlphaMin or maxTicks is reached.
// It returns the number of ticks performed.
func (s *Simulation) Run(maxTicks int) int {
	n := 0
	for n < maxTicks && s.Active() {
		s.Tick()
		n++
	}
	return n
}

// Positions returns a snapshot of every node position.
func (s *Simulation) Positions() map[model.NodeID]Point {
	out := make(map[model.NodeID]Point, len(s.bodies))
	for _, b := range s.bodies {
		out[b.id] = Point{X: b.x, Y: b.y}
	}
	return out
}

// NodeAt returns the node closest to (x, y) within radius. Ties go to the
// node drawn last, which is the one on top.
func (s *Simulation) NodeAt(x, y, radius float64) (model.NodeID, bool) {
	best := -1
	bestD := radius * radius
	for i, b := range s.bodies {
		dx, dy := b.x-x, b.y-y
		if d := dx*dx + dy*dy; d <= bestD {
			best, bestD = i, d
		}
	}
	if best < 0 {
		return "", false
	}
	return s.bodies[best].id, true
}

func (s *Simulation) center() (float64, float64) {
	return s.params.Width / 2, s.params.Height / 2
}

func (s *Simulation) jiggle() float64 {
	return (s.rng.Float64() - 0.5) * 1e-6
}

func (s *Simulation) applyLinks() {
	for _, sp := range s.springs {
		src, dst := &s.bodies[sp.source], &s.bodies[sp.target]
		x := dst.x + dst.vx - src.x - src.vx
		y := dst.y + dst.vy - src.y - src.vy
		if x == 0 {
			x = s.jiggle()
		}
		if y == 0 {
			y = s.jiggle()
		}
		l := math.Sqrt(x*x + y*y)
		l = (l - sp.distance) / l * s.alpha * sp.strength
		x *= l
		y *= l
		dst.vx -= x * sp.bias
		dst.vy -= y * sp.bias
		src.vx += x * (1 - sp.bias)
		src.vy += y * (1 - sp.bias)
	}
}

func (s *Simulation) applyCharge() {
	if s.params.Charge == 0 {
		return
	}
	k := s.params.Charge * s.alpha
	for i := range s.bodies {
		bi := &s.bodies[i]
		for j := range s.bodies {
			if i == j {
				continue
			}
			bj := &s.bodies[j]
			x, y := bj.x-bi.x, bj.y-bi.y
			if x == 0 {
				x = s.jiggle()
			}
			if y == 0 {
				y = s.jiggle()
			}
			l := x*x + y*y
			if l < distanceMin2 {
				l = math.Sqrt(distanceMin2 * l)
			}
			bi.vx += x * k / l
			bi.vy += y * k / l
		}
	}
}

func (s *Simulation) applyCenter() {
	var sx, sy float64
	for _, b := range s.bodies {
		sx += b.x
		sy += b.y
	}
	cx, cy := s.center()
	n := float64(len(s.bodies))
	sx = sx/n - cx
	sy = sy/n - cy
	for i := range s.bodies {
		s.bodies[i].x -= sx
		s.bodies[i].y -= sy
	}
}

// Bounds returns the bounding box of all positions. ok is false for an empty
// simulation.
func Bounds(pos map[model.NodeID]Point) (min, max Point, ok bool) {
	for _, p := range pos {
		if !ok {
			min, max, ok = p, p, true
			continue
		}
		min.X = math.Min(min.X, p.X)
		min.Y = math.Min(min.Y, p.Y)
		max.X = math.Max(max.X, p.X)
		max.Y = math.Max(max.Y, p.Y)
	}
	return min, max, ok
}
