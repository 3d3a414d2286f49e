// Package testutil provides deterministic graph fixtures and assertions shared
// by the package tests.
package testutil

import (
	"fmt"
	"math/rand"

	"github.com/vanderheijden86/kerrigan/pkg/model"
)

var labels = []string{"Alpha", "Beta", "Gamma", "Delta", "Epsilon", "Zeta", "Eta", "Theta"}

// GraphGenerator builds synthetic GraphDocuments. The same seed always yields
// the same document.
type GraphGenerator struct {
	rng *rand.Rand
}

// NewGraphGenerator creates a generator for the given seed.
func NewGraphGenerator(seed int64) *GraphGenerator {
	return &GraphGenerator{rng: rand.New(rand.NewSource(seed))}
}

// Nodes returns n nodes with ids "n0".."n{n-1}".
func (g *GraphGenerator) Nodes(n int) []model.Node {
	nodes := make([]model.Node, n)
	for i := range nodes {
		label := fmt.Sprintf("%s-%d", labels[i%len(labels)], i)
		nodes[i] = model.Node{
			ID:      model.NodeID(fmt.Sprintf("n%d", i)),
			Label:   label,
			Content: fmt.Sprintf("Details for **%s**.", label),
		}
	}
	return nodes
}

// Link returns a link between two existing ids with attributes drawn from
// their declared domains.
func (g *GraphGenerator) Link(src, dst model.NodeID) model.Link {
	return model.Link{
		Source:   src,
		Target:   dst,
		Strength: g.rng.Float64()*2 - 1,
		Time:     float64(g.rng.Intn(50)),
		Risk:     float64(g.rng.Intn(101)) / 10,
	}
}

// Random returns a document with the requested node and link counts. Every
// link references existing nodes.
func (g *GraphGenerator) Random(nodeCount, linkCount int) *model.GraphDocument {
	doc := &model.GraphDocument{Nodes: g.Nodes(nodeCount)}
	if nodeCount == 0 {
		return doc
	}
	doc.Links = make([]model.Link, linkCount)
	for i := range doc.Links {
		src := doc.Nodes[g.rng.Intn(nodeCount)].ID
		dst := doc.Nodes[g.rng.Intn(nodeCount)].ID
		doc.Links[i] = g.Link(src, dst)
	}
	return doc
}

// Chain returns n nodes linked n0 -> n1 -> ... with strength rising from -1 to 1.
func (g *GraphGenerator) Chain(n int) *model.GraphDocument {
	doc := &model.GraphDocument{Nodes: g.Nodes(n)}
	for i := 1; i < n; i++ {
		l := g.Link(doc.Nodes[i-1].ID, doc.Nodes[i].ID)
		if n > 2 {
			l.Strength = -1 + 2*float64(i-1)/float64(n-2)
		}
		doc.Links = append(doc.Links, l)
	}
	return doc
}
