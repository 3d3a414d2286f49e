package testutil

import (
	"os"
	"path/filepath"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/kerrigan/pkg/model"
)

// AssertNoDanglingLinks verifies every link endpoint references a node.
func AssertNoDanglingLinks(t *testing.T, doc *model.GraphDocument) {
	t.Helper()
	idx := doc.NodeIndex()
	for i, l := range doc.Links {
		if _, ok := idx[l.Source]; !ok {
			t.Errorf("link %d: unknown source %q", i, l.Source)
		}
		if _, ok := idx[l.Target]; !ok {
			t.Errorf("link %d: unknown target %q", i, l.Target)
		}
	}
}

// AssertLinkSubset verifies that links is an order-preserving subsequence of
// doc.Links.
func AssertLinkSubset(t *testing.T, doc *model.GraphDocument, links []model.Link) {
	t.Helper()
	j := 0
	for _, l := range doc.Links {
		if j < len(links) && links[j] == l {
			j++
		}
	}
	if j != len(links) {
		t.Errorf("links are not an ordered subset of the document (matched %d of %d)", j, len(links))
	}
}

// WriteDataset writes doc as JSON into dir and returns the file path.
func WriteDataset(t *testing.T, dir string, doc *model.GraphDocument) string {
	t.Helper()
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal dataset: %v", err)
	}
	path := filepath.Join(dir, "graph_data.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	return path
}
