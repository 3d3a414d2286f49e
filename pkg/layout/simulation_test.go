package layout_test

import (
	"math"
	"testing"

	"github.com/vanderheijden86/kerrigan/pkg/encode"
	"github.com/vanderheijden86/kerrigan/pkg/filter"
	"github.com/vanderheijden86/kerrigan/pkg/layout"
	"github.com/vanderheijden86/kerrigan/pkg/model"
	"github.com/vanderheijden86/kerrigan/pkg/testutil"
)

func derive(doc *model.GraphDocument) *filter.FilteredGraph {
	return filter.NewEngine(filter.AllPredicates).Derive(doc, filter.DefaultThresholds())
}

func TestEmptyGraphIsNoop(t *testing.T) {
	sim := layout.New(layout.DefaultParams())
	sim.SetGraph(nil, nil)
	sim.Tick()
	if sim.Len() != 0 || sim.Active() {
		t.Fatalf("empty simulation should be inactive")
	}
	if n := sim.Run(100); n != 0 {
		t.Errorf("Run on empty graph ticked %d times", n)
	}
	if _, _, ok := layout.Bounds(sim.Positions()); ok {
		t.Errorf("empty positions should have no bounds")
	}
}

func TestNodesWithoutLinks(t *testing.T) {
	doc := &model.GraphDocument{Nodes: testutil.NewGraphGenerator(1).Nodes(5)}
	sim := layout.New(layout.DefaultParams())
	sim.SetGraph(derive(doc), nil)
	sim.Run(50)
	pos := sim.Positions()
	if len(pos) != 5 {
		t.Fatalf("expected 5 positions, got %d", len(pos))
	}
	for id, p := range pos {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) {
			t.Errorf("node %s has NaN position", id)
		}
	}
}

func TestSimulationCools(t *testing.T) {
	doc := testutil.NewGraphGenerator(3).Random(20, 40)
	sim := layout.New(layout.DefaultParams())
	sim.SetGraph(derive(doc), encode.New(encode.DefaultConfig()).LinkDistance)
	if sim.Alpha() != 1 {
		t.Fatalf("first graph should start hot, alpha=%v", sim.Alpha())
	}
	ticks := sim.Run(10000)
	if sim.Active() {
		t.Fatalf("simulation still active after %d ticks", ticks)
	}
	// alpha_n = 0.95^n, so cooling to 0.001 takes ceil(log(0.001)/log(0.95)) ticks.
	want := int(math.Ceil(math.Log(0.001) / math.Log(0.95)))
	if ticks != want {
		t.Errorf("ticks = %d, want %d", ticks, want)
	}
}

func TestSetGraphPreservesPositions(t *testing.T) {
	doc := testutil.NewGraphGenerator(7).Chain(6)
	sim := layout.New(layout.DefaultParams())
	sim.SetGraph(derive(doc), nil)
	sim.Run(1000)
	before := sim.Positions()

	thresholds := filter.DefaultThresholds().With(model.AttrStrength, 0.5)
	sim.SetGraph(filter.NewEngine(filter.StrengthOnly).Derive(doc, thresholds), nil)
	after := sim.Positions()
	for id, p := range before {
		if after[id] != p {
			t.Errorf("node %s moved on SetGraph: %v -> %v", id, p, after[id])
		}
	}
	if got := sim.Alpha(); got != 0.3 {
		t.Errorf("reheat alpha = %v, want 0.3", got)
	}
}

func TestCenterForceKeepsCentroid(t *testing.T) {
	p := layout.DefaultParams()
	p.Width, p.Height = 800, 600
	sim := layout.New(p)
	sim.SetGraph(derive(testutil.NewGraphGenerator(2).Random(12, 20)), nil)
	sim.Run(200)

	var sx, sy float64
	pos := sim.Positions()
	for _, pt := range pos {
		sx += pt.X
		sy += pt.Y
	}
	n := float64(len(pos))
	if math.Abs(sx/n-400) > 1e-6 || math.Abs(sy/n-300) > 1e-6 {
		t.Errorf("centroid = (%v, %v), want (400, 300)", sx/n, sy/n)
	}
}

func TestSpringsApproachDistance(t *testing.T) {
	doc := &model.GraphDocument{
		Nodes: []model.Node{{ID: "a"}, {ID: "b"}},
		Links: []model.Link{{Source: "a", Target: "b", Strength: 1, Time: 1}},
	}
	p := layout.DefaultParams()
	p.Charge = 0
	sim := layout.New(p)
	sim.SetGraph(derive(doc), encode.New(encode.DefaultConfig()).LinkDistance)
	sim.Run(10000)

	pos := sim.Positions()
	a, b := pos["a"], pos["b"]
	d := math.Hypot(a.X-b.X, a.Y-b.Y)
	if d < 50 || d > 150 {
		t.Errorf("distance after cooling = %v, expected near 100", d)
	}
}

func TestNodeAt(t *testing.T) {
	doc := &model.GraphDocument{Nodes: []model.Node{{ID: "a"}, {ID: "b"}}}
	sim := layout.New(layout.DefaultParams())
	sim.SetGraph(derive(doc), nil)
	pa := sim.Positions()["a"]

	id, ok := sim.NodeAt(pa.X+1, pa.Y, 3)
	if !ok || id != "a" {
		t.Errorf("NodeAt near a = %q, %v", id, ok)
	}
	if _, ok := sim.NodeAt(pa.X+1000, pa.Y, 3); ok {
		t.Errorf("NodeAt far away should miss")
	}
}

func TestNegativeAndNaNDistancesAreSafe(t *testing.T) {
	doc := &model.GraphDocument{
		Nodes: []model.Node{{ID: "a"}, {ID: "b"}, {ID: "c"}},
		Links: []model.Link{
			{Source: "a", Target: "b", Time: -5},
			{Source: "b", Target: "c", Time: math.NaN()},
			{Source: "c", Target: "c"},
		},
	}
	sim := layout.New(layout.DefaultParams())
	sim.SetGraph(derive(doc), func(l model.Link) float64 { return l.Time * 100 })
	sim.Run(300)
	for id, p := range sim.Positions() {
		if math.IsNaN(p.X) || math.IsInf(p.Y, 0) {
			t.Errorf("node %s diverged: %v", id, p)
		}
	}
}

func BenchmarkTick200(b *testing.B) {
	doc := testutil.NewGraphGenerator(1).Random(200, 400)
	sim := layout.New(layout.DefaultParams())
	sim.SetGraph(derive(doc), nil)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sim.Tick()
	}
}
