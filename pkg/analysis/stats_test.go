package analysis_test

import (
	"math"
	"testing"

	"github.com/vanderheijden86/kerrigan/pkg/analysis"
	"github.com/vanderheijden86/kerrigan/pkg/filter"
	"github.com/vanderheijden86/kerrigan/pkg/model"
)

func twoComponents() *filter.FilteredGraph {
	doc := &model.GraphDocument{
		Nodes: []model.Node{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}, {ID: "e"}, {ID: "lonely"}},
		Links: []model.Link{
			{Source: "a", Target: "b", Strength: 1, Time: 1, Risk: 2},
			{Source: "b", Target: "c", Strength: 0.5, Time: 3, Risk: 4},
			{Source: "c", Target: "a", Strength: 0, Time: 5, Risk: 6},
			{Source: "d", Target: "e", Strength: -0.5, Time: 7, Risk: 8},
			{Source: "e", Target: "e", Strength: 1, Time: 9, Risk: 10},
		},
	}
	return filter.NewEngine(filter.AllPredicates).Derive(doc, filter.Thresholds{MinStrength: -1})
}

func TestAnalyzeComponents(t *testing.T) {
	s := analysis.Analyze(twoComponents())
	if s.NodeCount != 6 || s.LinkCount != 5 {
		t.Fatalf("counts = %d nodes %d links", s.NodeCount, s.LinkCount)
	}
	if len(s.Components) != 3 {
		t.Fatalf("expected 3 components, got %v", s.Components)
	}
	if got := s.Components[0]; len(got) != 3 || got[0] != "a" {
		t.Errorf("largest component = %v", got)
	}
	if iso := s.Isolated(); len(iso) != 1 || iso[0] != "lonely" {
		t.Errorf("isolated = %v", iso)
	}
}

func TestAnalyzeDegreesCountSelfLoops(t *testing.T) {
	s := analysis.Analyze(twoComponents())
	e := s.Node("e")
	if e.InDegree != 2 || e.OutDegree != 1 {
		t.Errorf("e degrees = in %d out %d", e.InDegree, e.OutDegree)
	}
	if e.ComponentSize != 2 {
		t.Errorf("e component size = %d", e.ComponentSize)
	}
	if got := s.Node("a").MeanStrength; got != 0.5 {
		t.Errorf("a mean strength = %v, want 0.5", got)
	}
	if (s.Node("missing") != analysis.NodeStats{}) {
		t.Errorf("unknown node should have zero stats")
	}
}

func TestAnalyzeAttributes(t *testing.T) {
	s := analysis.Analyze(twoComponents())
	risk := s.Attributes[model.AttrRisk]
	if risk.N != 5 || risk.Min != 2 || risk.Max != 10 || risk.Mean != 6 || risk.Median != 6 {
		t.Errorf("risk stats = %+v", risk)
	}
	if math.Abs(risk.StdDev-math.Sqrt(10)) > 1e-9 {
		t.Errorf("risk std = %v, want sqrt(10)", risk.StdDev)
	}
}

func TestPageRankSumsToOne(t *testing.T) {
	s := analysis.Analyze(twoComponents())
	var sum float64
	for _, id := range s.TopByPageRank(-1) {
		sum += s.Node(id).PageRank
	}
	if math.Abs(sum-1) > 1e-3 {
		t.Errorf("pagerank sum = %v", sum)
	}
	if top := s.TopByPageRank(2); len(top) != 2 {
		t.Errorf("TopByPageRank(2) = %v", top)
	}
}

func TestAnalyzeNilAndEmpty(t *testing.T) {
	for _, fg := range []*filter.FilteredGraph{nil, {}} {
		s := analysis.Analyze(fg)
		if s.NodeCount != 0 || len(s.Components) != 0 || len(s.TopByPageRank(5)) != 0 {
			t.Errorf("expected empty stats, got %+v", s)
		}
	}
}
