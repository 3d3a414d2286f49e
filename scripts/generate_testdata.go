//go:build ignore

// generate_testdata.go creates graph datasets for benchmarking the layout
// and filter pipeline.
// Usage: go run scripts/generate_testdata.go
//
// Creates:
//
//	tests/testdata/graph/small.json   (50 nodes)
//	tests/testdata/graph/medium.json  (500 nodes)
//	tests/testdata/graph/large.json   (2000 nodes)
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/kerrigan/pkg/model"
	"github.com/vanderheijden86/kerrigan/pkg/testutil"
)

type datasetSpec struct {
	name   string
	nodes  int
	degree int
}

var datasets = []datasetSpec{
	{"small", 50, 3},
	{"medium", 500, 2},
	{"large", 2000, 2},
}

func main() {
	outputDir := "tests/testdata/graph"
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	for _, ds := range datasets {
		fmt.Printf("Generating %s dataset (%d nodes)...\n", ds.name, ds.nodes)

		gen := testutil.NewGraphGenerator(int64(ds.nodes))
		doc := gen.Random(ds.nodes, ds.nodes*ds.degree)
		addRealisticContent(doc)

		if err := doc.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Generated %s is invalid: %v\n", ds.name, err)
			os.Exit(1)
		}
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode %s: %v\n", ds.name, err)
			os.Exit(1)
		}

		outputPath := filepath.Join(outputDir, ds.name+".json")
		if err := os.WriteFile(outputPath, data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", outputPath, err)
			os.Exit(1)
		}

		fmt.Printf("  Written %s (%d bytes, %d links)\n", outputPath, len(data), len(doc.Links))
	}

	fmt.Println("\nDone! Graph datasets created in", outputDir)
}

func addRealisticContent(doc *model.GraphDocument) {
	labels := []string{
		"Treasury desk",
		"Credit book",
		"FX hedge",
		"Equity basket",
		"Rates swap",
		"Commodity lane",
		"Liquidity pool",
		"Counterparty",
	}

	contents := []string{
		"Primary exposure holder.\n\n- settles T+2\n- reviewed quarterly",
		"Secondary position.\n\n**Limits:** soft cap on notional.",
		"Hedging leg for upstream risk.",
	}

	for i := range doc.Nodes {
		doc.Nodes[i].Label = fmt.Sprintf("%s %d", labels[i%len(labels)], i)
		doc.Nodes[i].Content = contents[i%len(contents)]
	}
}
