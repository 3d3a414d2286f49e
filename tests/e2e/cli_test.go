package main_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestVersionFlag(t *testing.T) {
	out, err := runKerrigan(t, t.TempDir(), "-version")
	if err != nil {
		t.Fatalf("-version failed: %v\n%s", err, out)
	}
	if !strings.HasPrefix(string(out), "kerrigan v") {
		t.Errorf("unexpected version output: %q", out)
	}
}

func TestHelpFlag(t *testing.T) {
	out, err := runKerrigan(t, t.TempDir(), "-help")
	if err != nil {
		t.Fatalf("-help failed: %v\n%s", err, out)
	}
	for _, want := range []string{"Usage: kerrigan", "-export", "-serve", "-min-strength"} {
		if !strings.Contains(string(out), want) {
			t.Errorf("help missing %q:\n%s", want, out)
		}
	}
}

func TestWatchRequiresExport(t *testing.T) {
	out, err := runKerrigan(t, t.TempDir(), "-watch")
	if err == nil {
		t.Fatalf("expected failure, got:\n%s", out)
	}
	if !strings.Contains(string(out), "-watch requires -export") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestExportWritesPNGAndSVG(t *testing.T) {
	dir := writeWorkspace(t, sampleDataset)
	png := filepath.Join(dir, "out.png")
	svg := filepath.Join(dir, "out.svg")

	out, err := runKerrigan(t, dir, "-export", png+","+svg, "-search", "alp")
	if err != nil {
		t.Fatalf("export failed: %v\n%s", err, out)
	}
	if !strings.Contains(string(out), "Rendered 3 node(s)") {
		t.Errorf("missing summary line:\n%s", out)
	}
	if !strings.Contains(string(out), "dropped") {
		t.Errorf("dangling link should be reported:\n%s", out)
	}

	pngData, err := os.ReadFile(png)
	if err != nil {
		t.Fatalf("read png: %v", err)
	}
	if !bytes.HasPrefix(pngData, []byte("\x89PNG")) {
		t.Error("png output lacks PNG signature")
	}

	svgData, err := os.ReadFile(svg)
	if err != nil {
		t.Fatalf("read svg: %v", err)
	}
	if !strings.Contains(string(svgData), "<svg") || !strings.Contains(string(svgData), "Alpha") {
		t.Errorf("svg missing expected content:\n%.300s", svgData)
	}
}

func TestExportRejectsDanglingWhenConfigured(t *testing.T) {
	dir := writeWorkspace(t, sampleDataset)
	writeConfig(t, dir, "dataset:\n  dangling: reject\n")

	out, err := runKerrigan(t, dir, "-export", filepath.Join(dir, "out.svg"))
	if err == nil {
		t.Fatalf("expected reject policy to fail the export:\n%s", out)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "out.svg")); statErr == nil {
		t.Error("no file should be written when the load fails")
	}
}

func TestExportMissingDataset(t *testing.T) {
	dir := t.TempDir()
	out, err := runKerrigan(t, dir, "-data", filepath.Join(dir, "nope.json"), "-export", filepath.Join(dir, "out.svg"))
	if err == nil {
		t.Fatalf("expected failure for missing dataset:\n%s", out)
	}
}

func TestInvalidConfigFailsFast(t *testing.T) {
	dir := writeWorkspace(t, sampleDataset)
	writeConfig(t, dir, "encode:\n  color_by: size\n")

	out, err := runKerrigan(t, dir, "-export", filepath.Join(dir, "out.svg"))
	if err == nil {
		t.Fatalf("expected config validation failure:\n%s", out)
	}
	if !strings.Contains(string(out), "Error loading config") {
		t.Errorf("unexpected output:\n%s", out)
	}
}
