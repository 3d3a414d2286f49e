package model

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// NodeID identifies a node. Datasets use both numeric and string ids, so the
// JSON form accepts either. Numbers are canonicalized, so 1, 1.0 and 1e0 all
// name node "1"; plain integer literals keep their text exactly.
type NodeID string

// UnmarshalJSON accepts `"a"` and `1` alike.
func (id *NodeID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("node id cannot be null")
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decoding node id: %w", err)
		}
		*id = NodeID(s)
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("node id must be a string or number, got %s", data)
	}
	if bytes.ContainsAny(data, ".eE") {
		*id = NodeID(strconv.FormatFloat(v, 'f', -1, 64))
		return nil
	}
	*id = NodeID(data)
	return nil
}

// MarshalJSON always writes the id as a string.
func (id NodeID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(id))
}

// Node is a labeled entity in the graph.
type Node struct {
	ID      NodeID `json:"id"`
	Label   string `json:"label"`
	Content string `json:"content"`
}

// DisplayLabel returns the label, falling back to the id for unlabeled nodes.
func (n Node) DisplayLabel() string {
	if strings.TrimSpace(n.Label) == "" {
		return string(n.ID)
	}
	return n.Label
}

// Link is a directed relation carrying three numeric attributes.
// Strength is canonically in [-1, 1], Time >= 0 and Risk in [0, 10].
type Link struct {
	Source   NodeID  `json:"source"`
	Target   NodeID  `json:"target"`
	Strength float64 `json:"strength"`
	Time     float64 `json:"time"`
	Risk     float64 `json:"risk"`
}

// Attribute names a numeric link attribute.
type Attribute string

const (
	AttrStrength Attribute = "strength"
	AttrTime     Attribute = "time"
	AttrRisk     Attribute = "risk"
)

// IsValid returns true if the attribute is a recognized value
func (a Attribute) IsValid() bool {
	switch a {
	case AttrStrength, AttrTime, AttrRisk:
		return true
	}
	return false
}

// Value returns the link's value for the given attribute.
func (l Link) Value(a Attribute) float64 {
	switch a {
	case AttrTime:
		return l.Time
	case AttrRisk:
		return l.Risk
	default:
		return l.Strength
	}
}

// GraphDocument is the dataset as loaded. It is treated as immutable once
// loading completes.
type GraphDocument struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
}

// NodeIndex maps each node id to its position in Nodes.
func (d *GraphDocument) NodeIndex() map[NodeID]int {
	idx := make(map[NodeID]int, len(d.Nodes))
	for i, n := range d.Nodes {
		if _, dup := idx[n.ID]; !dup {
			idx[n.ID] = i
		}
	}
	return idx
}

// Node returns the node with the given id.
func (d *GraphDocument) Node(id NodeID) (Node, bool) {
	for _, n := range d.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// DanglingLink is a link whose endpoint does not reference a known node.
type DanglingLink struct {
	Index   int
	Link    Link
	Missing []NodeID
}

func (d DanglingLink) String() string {
	missing := make([]string, len(d.Missing))
	for i, id := range d.Missing {
		missing[i] = string(id)
	}
	return fmt.Sprintf("link %d (%s -> %s) references unknown node(s) %s",
		d.Index, d.Link.Source, d.Link.Target, strings.Join(missing, ", "))
}

// ValidationError collects structural problems found in a GraphDocument.
type ValidationError struct {
	DuplicateIDs []NodeID
	Dangling     []DanglingLink
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.DuplicateIDs) > 0 {
		ids := make([]string, len(e.DuplicateIDs))
		for i, id := range e.DuplicateIDs {
			ids[i] = string(id)
		}
		parts = append(parts, fmt.Sprintf("duplicate node ids: %s", strings.Join(ids, ", ")))
	}
	if len(e.Dangling) > 0 {
		parts = append(parts, fmt.Sprintf("%d dangling link(s), first: %s", len(e.Dangling), e.Dangling[0]))
	}
	return "invalid graph document: " + strings.Join(parts, "; ")
}

// HasDuplicates reports whether node identity is broken.
func (e *ValidationError) HasDuplicates() bool {
	return len(e.DuplicateIDs) > 0
}

// Validate checks node id uniqueness and link endpoint references.
// It returns nil for a well-formed document and a *ValidationError otherwise.
func (d *GraphDocument) Validate() error {
	seen := make(map[NodeID]bool, len(d.Nodes))
	verr := &ValidationError{}
	for _, n := range d.Nodes {
		if seen[n.ID] {
			verr.DuplicateIDs = append(verr.DuplicateIDs, n.ID)
			continue
		}
		seen[n.ID] = true
	}
	for i, l := range d.Links {
		var missing []NodeID
		if !seen[l.Source] {
			missing = append(missing, l.Source)
		}
		if !seen[l.Target] && l.Target != l.Source {
			missing = append(missing, l.Target)
		}
		if len(missing) > 0 {
			verr.Dangling = append(verr.Dangling, DanglingLink{Index: i, Link: l, Missing: missing})
		}
	}
	if len(verr.DuplicateIDs) == 0 && len(verr.Dangling) == 0 {
		return nil
	}
	return verr
}

// WithoutLinks returns a shallow copy of the document that omits the links at
// the given indices. Nodes share the original backing array.
func (d *GraphDocument) WithoutLinks(drop map[int]bool) *GraphDocument {
	if len(drop) == 0 {
		return d
	}
	links := make([]Link, 0, len(d.Links)-len(drop))
	for i, l := range d.Links {
		if !drop[i] {
			links = append(links, l)
		}
	}
	return &GraphDocument{Nodes: d.Nodes, Links: links}
}
