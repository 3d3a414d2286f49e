package model

import (
	"errors"
	"testing"

	json "github.com/goccy/go-json"
)

func TestNodeID_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    NodeID
		wantErr bool
	}{
		{"String", `"alpha"`, "alpha", false},
		{"Integer", `1`, "1", false},
		{"Float", `2.5`, "2.5", false},
		{"IntegralFloat", `1.0`, "1", false},
		{"Exponent", `1e2`, "100", false},
		{"BigInteger", `12345678901234567890`, "12345678901234567890", false},
		{"Bool", `true`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id NodeID
			err := json.Unmarshal([]byte(tt.input), &id)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %s", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if id != tt.want {
				t.Errorf("got %q, want %q", id, tt.want)
			}
		})
	}
}

func TestGraphDocument_DecodeMixedIDs(t *testing.T) {
	raw := `{"nodes":[{"id":1,"label":"A"},{"id":"2","label":"B"}],
	         "links":[{"source":1,"target":"2","strength":0.5,"time":10,"risk":2}]}`
	var doc GraphDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(doc.Nodes) != 2 || len(doc.Links) != 1 {
		t.Fatalf("unexpected shape: %d nodes, %d links", len(doc.Nodes), len(doc.Links))
	}
	if doc.Links[0].Source != "1" || doc.Links[0].Target != "2" {
		t.Errorf("link endpoints = %q -> %q", doc.Links[0].Source, doc.Links[0].Target)
	}
	if err := doc.Validate(); err != nil {
		t.Errorf("expected valid document, got %v", err)
	}
}

func TestGraphDocument_ValidateDangling(t *testing.T) {
	doc := GraphDocument{
		Nodes: []Node{{ID: "a"}, {ID: "b"}},
		Links: []Link{
			{Source: "a", Target: "b"},
			{Source: "a", Target: "zz"},
			{Source: "yy", Target: "yy"},
		},
	}
	err := doc.Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if verr.HasDuplicates() {
		t.Errorf("no duplicates expected")
	}
	if len(verr.Dangling) != 2 {
		t.Fatalf("expected 2 dangling links, got %d", len(verr.Dangling))
	}
	if verr.Dangling[0].Index != 1 || verr.Dangling[0].Missing[0] != "zz" {
		t.Errorf("unexpected first dangling entry: %+v", verr.Dangling[0])
	}
	if len(verr.Dangling[1].Missing) != 1 {
		t.Errorf("self-loop to unknown node should report one missing id, got %v", verr.Dangling[1].Missing)
	}
}

func TestGraphDocument_ValidateDuplicates(t *testing.T) {
	doc := GraphDocument{Nodes: []Node{{ID: "a"}, {ID: "a"}}}
	err := doc.Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) || !verr.HasDuplicates() {
		t.Fatalf("expected duplicate id error, got %v", err)
	}
}

func TestGraphDocument_WithoutLinks(t *testing.T) {
	doc := &GraphDocument{
		Nodes: []Node{{ID: "a"}, {ID: "b"}},
		Links: []Link{{Source: "a", Target: "b"}, {Source: "b", Target: "a"}},
	}
	trimmed := doc.WithoutLinks(map[int]bool{0: true})
	if len(trimmed.Links) != 1 || trimmed.Links[0].Source != "b" {
		t.Fatalf("unexpected links: %+v", trimmed.Links)
	}
	if len(doc.Links) != 2 {
		t.Errorf("source document mutated")
	}
	if &trimmed.Nodes[0] != &doc.Nodes[0] {
		t.Errorf("nodes should share backing array")
	}
	if doc.WithoutLinks(nil) != doc {
		t.Errorf("empty drop set should return the same document")
	}
}

func TestNode_DisplayLabel(t *testing.T) {
	if got := (Node{ID: "7"}).DisplayLabel(); got != "7" {
		t.Errorf("DisplayLabel() = %q, want id fallback", got)
	}
	if got := (Node{ID: "7", Label: "Seven"}).DisplayLabel(); got != "Seven" {
		t.Errorf("DisplayLabel() = %q", got)
	}
}

func TestLink_Value(t *testing.T) {
	l := Link{Strength: 0.3, Time: 4, Risk: 7}
	if l.Value(AttrStrength) != 0.3 || l.Value(AttrTime) != 4 || l.Value(AttrRisk) != 7 {
		t.Errorf("Value() mismatch for %+v", l)
	}
	if !AttrRisk.IsValid() || Attribute("weight").IsValid() {
		t.Errorf("IsValid mismatch")
	}
}

func TestGraphDocument_FloatLinkMatchesIntegerNode(t *testing.T) {
	raw := `{"nodes":[{"id":1,"label":"A"},{"id":2,"label":"B"}],
	         "links":[{"source":1.0,"target":2e0,"strength":0.5,"time":1,"risk":1}]}`
	var doc GraphDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := doc.Validate(); err != nil {
		t.Fatalf("link with float ids should resolve: %v", err)
	}
	if doc.Links[0].Source != "1" || doc.Links[0].Target != "2" {
		t.Errorf("link = %+v", doc.Links[0])
	}
}
