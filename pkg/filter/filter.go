// Package filter derives the visible subgraph from a loaded GraphDocument and
// a set of minimum-value thresholds.
//
// Nodes are never filtered; only links are. Derivation is a single pass over
// the links and never touches the source document.
package filter

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/vanderheijden86/kerrigan/pkg/metrics"
	"github.com/vanderheijden86/kerrigan/pkg/model"
)

// Predicate is a set of active threshold checks.
type Predicate uint8

const (
	PredStrength Predicate = 1 << iota
	PredTime
	PredRisk

	StrengthOnly  = PredStrength
	AllPredicates = PredStrength | PredTime | PredRisk
)

// Has reports whether p includes every check in q.
func (p Predicate) Has(q Predicate) bool {
	return p&q == q
}

func (p Predicate) String() string {
	var names []string
	if p.Has(PredStrength) {
		names = append(names, string(model.AttrStrength))
	}
	if p.Has(PredTime) {
		names = append(names, string(model.AttrTime))
	}
	if p.Has(PredRisk) {
		names = append(names, string(model.AttrRisk))
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "+")
}

// ParsePredicates converts attribute names into a predicate set.
func ParsePredicates(names []string) (Predicate, error) {
	var p Predicate
	for _, name := range names {
		switch model.Attribute(strings.ToLower(strings.TrimSpace(name))) {
		case model.AttrStrength:
			p |= PredStrength
		case model.AttrTime:
			p |= PredTime
		case model.AttrRisk:
			p |= PredRisk
		default:
			return 0, fmt.Errorf("unknown filter predicate %q", name)
		}
	}
	return p, nil
}

// Thresholds holds the minimum values a link must meet, plus the node search
// term. SearchTerm does not affect filtering; it drives node highlighting.
type Thresholds struct {
	MinStrength float64
	MinTime     float64
	MinRisk     float64
	SearchTerm  string
}

// DefaultThresholds returns the values a freshly mounted page starts with.
func DefaultThresholds() Thresholds {
	return Thresholds{}
}

// Get returns the threshold for an attribute.
func (t Thresholds) Get(a model.Attribute) float64 {
	switch a {
	case model.AttrTime:
		return t.MinTime
	case model.AttrRisk:
		return t.MinRisk
	default:
		return t.MinStrength
	}
}

// With returns a copy with the threshold for a replaced. Non-finite values
// keep the previous threshold.
func (t Thresholds) With(a model.Attribute, v float64) Thresholds {
	switch a {
	case model.AttrTime:
		t.MinTime = SanitizeThreshold(v, t.MinTime)
	case model.AttrRisk:
		t.MinRisk = SanitizeThreshold(v, t.MinRisk)
	default:
		t.MinStrength = SanitizeThreshold(v, t.MinStrength)
	}
	return t
}

// FilteredGraph is the derived, renderable view of a document.
// Nodes aliases the document's node slice; Links is freshly allocated.
type FilteredGraph struct {
	Nodes []model.Node
	Links []model.Link
}

// Engine applies a configurable subset of threshold predicates.
type Engine struct {
	Active Predicate
}

// NewEngine returns an engine with the given predicates active.
func NewEngine(active Predicate) Engine {
	return Engine{Active: active}
}

// Includes reports whether a link passes every active threshold.
func (e Engine) Includes(l model.Link, t Thresholds) bool {
	if e.Active.Has(PredStrength) && !(l.Strength >= t.MinStrength) {
		return false
	}
	if e.Active.Has(PredTime) && !(l.Time >= t.MinTime) {
		return false
	}
	if e.Active.Has(PredRisk) && !(l.Risk >= t.MinRisk) {
		return false
	}
	return true
}

// Derive returns the filtered graph, or nil when no document is loaded.
func (e Engine) Derive(doc *model.GraphDocument, t Thresholds) *FilteredGraph {
	if doc == nil {
		return nil
	}
	defer metrics.Timer(metrics.FilterDerive)()

	t.MinStrength = SanitizeThreshold(t.MinStrength, 0)
	t.MinTime = SanitizeThreshold(t.MinTime, 0)
	t.MinRisk = SanitizeThreshold(t.MinRisk, 0)

	links := make([]model.Link, 0, len(doc.Links))
	for _, l := range doc.Links {
		if e.Includes(l, t) {
			links = append(links, l)
		}
	}
	return &FilteredGraph{Nodes: doc.Nodes, Links: links}
}

// SanitizeThreshold returns v when it is a finite number and prev otherwise.
// A non-finite prev degrades to 0.
func SanitizeThreshold(v, prev float64) float64 {
	if isFinite(v) {
		return v
	}
	if isFinite(prev) {
		return prev
	}
	return 0
}

// ParseThreshold parses user-typed text. Anything that is not a finite number
// yields the previous value.
func ParseThreshold(text string, prev float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return SanitizeThreshold(math.NaN(), prev)
	}
	return SanitizeThreshold(v, prev)
}

// StrengthFromPercent converts a percent slider value (-100..100) into the
// canonical strength domain [-1, 1].
func StrengthFromPercent(pct float64) float64 {
	return pct / 100
}

// StrengthToPercent is the inverse of StrengthFromPercent.
func StrengthToPercent(s float64) float64 {
	return s * 100
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
