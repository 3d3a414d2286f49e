// Package analysis computes structural statistics over the visible subgraph:
// degrees, PageRank, weakly connected components and attribute summaries.
package analysis

import (
	"sort"

	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/stat"

	"github.com/vanderheijden86/kerrigan/pkg/filter"
	"github.com/vanderheijden86/kerrigan/pkg/model"
)

// AttributeStats summarizes one numeric link attribute.
type AttributeStats struct {
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Median float64 `json:"median"`
	Max    float64 `json:"max"`
}

// NodeStats describes one node within the visible subgraph.
type NodeStats struct {
	InDegree      int     `json:"in_degree"`
	OutDegree     int     `json:"out_degree"`
	PageRank      float64 `json:"pagerank"`
	ComponentSize int     `json:"component_size"`
	MeanStrength  float64 `json:"mean_strength"`
}

// Stats holds the results of analyzing a filtered graph.
type Stats struct {
	NodeCount  int                                `json:"node_count"`
	LinkCount  int                                `json:"link_count"`
	Components [][]model.NodeID                   `json:"components"`
	Attributes map[model.Attribute]AttributeStats `json:"attributes"`

	inDegree  map[model.NodeID]int
	outDegree map[model.NodeID]int
	pageRank  map[model.NodeID]float64
	component map[model.NodeID]int
	strengths map[model.NodeID][]float64
}

// Analyze builds gonum graphs for the filtered view and computes every
// statistic up front. A nil graph yields empty stats.
func Analyze(fg *filter.FilteredGraph) *Stats {
	s := &Stats{
		Attributes: make(map[model.Attribute]AttributeStats, 3),
		inDegree:   make(map[model.NodeID]int),
		outDegree:  make(map[model.NodeID]int),
		pageRank:   make(map[model.NodeID]float64),
		component:  make(map[model.NodeID]int),
		strengths:  make(map[model.NodeID][]float64),
	}
	if fg == nil {
		return s
	}

	directed := simple.NewDirectedGraph()
	undirected := simple.NewUndirectedGraph()
	idToNode := make(map[model.NodeID]int64, len(fg.Nodes))
	nodeToID := make(map[int64]model.NodeID, len(fg.Nodes))
	for _, n := range fg.Nodes {
		if _, dup := idToNode[n.ID]; dup {
			continue
		}
		gn := directed.NewNode()
		directed.AddNode(gn)
		undirected.AddNode(simple.Node(gn.ID()))
		idToNode[n.ID] = gn.ID()
		nodeToID[gn.ID()] = n.ID
	}
	s.NodeCount = len(idToNode)

	values := map[model.Attribute][]float64{}
	for _, l := range fg.Links {
		u, ok1 := idToNode[l.Source]
		v, ok2 := idToNode[l.Target]
		if !ok1 || !ok2 {
			continue
		}
		s.LinkCount++
		s.outDegree[l.Source]++
		s.inDegree[l.Target]++
		s.strengths[l.Source] = append(s.strengths[l.Source], l.Strength)
		if l.Target != l.Source {
			s.strengths[l.Target] = append(s.strengths[l.Target], l.Strength)
		}
		for _, a := range []model.Attribute{model.AttrStrength, model.AttrTime, model.AttrRisk} {
			values[a] = append(values[a], l.Value(a))
		}
		// simple graphs reject self edges; loops still count toward degree.
		if u == v {
			continue
		}
		directed.SetEdge(directed.NewEdge(directed.Node(u), directed.Node(v)))
		undirected.SetEdge(undirected.NewEdge(undirected.Node(u), undirected.Node(v)))
	}

	for a, xs := range values {
		s.Attributes[a] = summarize(xs)
	}

	if s.NodeCount > 0 {
		for id, pr := range network.PageRank(directed, 0.85, 1e-6) {
			s.pageRank[nodeToID[id]] = pr
		}
	}

	for _, cc := range topo.ConnectedComponents(undirected) {
		ids := make([]model.NodeID, 0, len(cc))
		for _, n := range cc {
			ids = append(ids, nodeToID[n.ID()])
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		s.Components = append(s.Components, ids)
	}
	sort.SliceStable(s.Components, func(i, j int) bool {
		if len(s.Components[i]) != len(s.Components[j]) {
			return len(s.Components[i]) > len(s.Components[j])
		}
		return s.Components[i][0] < s.Components[j][0]
	})
	for i, cc := range s.Components {
		for _, id := range cc {
			s.component[id] = i
		}
	}
	return s
}

func summarize(xs []float64) AttributeStats {
	if len(xs) == 0 {
		return AttributeStats{}
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	mean, std := stat.MeanStdDev(sorted, nil)
	if len(sorted) < 2 {
		std = 0
	}
	return AttributeStats{
		N:      len(sorted),
		Mean:   mean,
		StdDev: std,
		Min:    sorted[0],
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		Max:    sorted[len(sorted)-1],
	}
}

// Node returns the statistics for one node. Unknown ids yield zero values.
func (s *Stats) Node(id model.NodeID) NodeStats {
	ns := NodeStats{
		InDegree:  s.inDegree[id],
		OutDegree: s.outDegree[id],
		PageRank:  s.pageRank[id],
	}
	if i, ok := s.component[id]; ok {
		ns.ComponentSize = len(s.Components[i])
	}
	if xs := s.strengths[id]; len(xs) > 0 {
		ns.MeanStrength = stat.Mean(xs, nil)
	}
	return ns
}

// Isolated returns the ids of nodes without any visible link, sorted.
func (s *Stats) Isolated() []model.NodeID {
	var out []model.NodeID
	for _, cc := range s.Components {
		if len(cc) == 1 && s.inDegree[cc[0]] == 0 && s.outDegree[cc[0]] == 0 {
			out = append(out, cc[0])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// TopByPageRank returns up to n node ids ordered by descending PageRank, ties
// broken by id.
func (s *Stats) TopByPageRank(n int) []model.NodeID {
	ids := make([]model.NodeID, 0, len(s.pageRank))
	for id := range s.pageRank {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		const eps = 1e-9
		if d := s.pageRank[ids[i]] - s.pageRank[ids[j]]; d > eps || d < -eps {
			return d > 0
		}
		return ids[i] < ids[j]
	})
	if n >= 0 && len(ids) > n {
		ids = ids[:n]
	}
	return ids
}
