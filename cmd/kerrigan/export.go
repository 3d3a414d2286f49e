package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/vanderheijden86/kerrigan/pkg/config"
	"github.com/vanderheijden86/kerrigan/pkg/debug"
	"github.com/vanderheijden86/kerrigan/pkg/encode"
	"github.com/vanderheijden86/kerrigan/pkg/filter"
	"github.com/vanderheijden86/kerrigan/pkg/layout"
	"github.com/vanderheijden86/kerrigan/pkg/loader"
	"github.com/vanderheijden86/kerrigan/pkg/render"
	"github.com/vanderheijden86/kerrigan/pkg/watcher"
)

// exportLayoutTicks bounds the simulation for a static render.
const exportLayoutTicks = 300

// exportJob renders the filtered dataset to one or more image files.
type exportJob struct {
	source  string
	paths   []string
	opts    loader.Options
	cfg     config.Config
	thresh  filter.Thresholds
	timeout time.Duration
}

func splitPaths(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// thresholdsFromFlags applies the same guard as the slider fields: text that
// is not a finite number leaves the threshold at 0.
func thresholdsFromFlags(strength, minTime, risk, search string) filter.Thresholds {
	t := filter.DefaultThresholds()
	t.MinStrength = filter.ParseThreshold(strength, t.MinStrength)
	t.MinTime = filter.ParseThreshold(minTime, t.MinTime)
	t.MinRisk = filter.ParseThreshold(risk, t.MinRisk)
	t.SearchTerm = search
	return t
}

// run fetches the dataset once and renders every path.
func (j exportJob) run(ctx context.Context) error {
	if len(j.paths) == 0 {
		return fmt.Errorf("no output paths given")
	}
	fetchCtx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()
	res, err := loader.Fetch(fetchCtx, j.source, j.opts)
	if err != nil {
		return err
	}
	for _, d := range res.Dropped {
		debug.Warn("dropped %s", d)
	}

	fg := filter.NewEngine(j.cfg.Predicates()).Derive(res.Doc, j.thresh)
	enc := encode.New(j.cfg.Encoder())
	sim := layout.New(j.cfg.LayoutParams())
	sim.SetGraph(fg, enc.LinkDistance)
	sim.Run(exportLayoutTicks)

	scene := render.Scene{
		Graph:     fg,
		Positions: sim.Positions(),
		Encoder:   enc,
		Search:    j.thresh.SearchTerm,
		Title:     j.source,
	}
	start := time.Now()
	if err := render.SaveAll(ctx, j.paths, scene); err != nil {
		return err
	}
	debug.LogTiming("export render", time.Since(start))
	fmt.Fprintf(os.Stderr, "Rendered %d node(s), %d link(s) to %s\n", len(fg.Nodes), len(fg.Links), strings.Join(j.paths, ", "))
	return nil
}

// watch renders once, then again after every change to the dataset file
// until ctx is cancelled. Render errors after the first are reported and
// watching continues.
func (j exportJob) watch(ctx context.Context) error {
	if loader.IsRemote(j.source) {
		return fmt.Errorf("-watch needs a local dataset file, got %s", j.source)
	}
	if err := j.run(ctx); err != nil {
		return err
	}

	w, err := watcher.New(j.source)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()
	mode := "fsnotify"
	if w.Polling() {
		mode = "polling"
	}
	fmt.Fprintf(os.Stderr, "Watching %s (%s), Ctrl+C to stop\n", j.source, mode)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-w.Events():
			switch ev.Kind {
			case watcher.Failed:
				fmt.Fprintf(os.Stderr, "Watch error: %v\n", ev.Err)
			case watcher.Changed:
				if err := j.run(ctx); err != nil {
					fmt.Fprintf(os.Stderr, "Error exporting: %v\n", err)
				}
			}
		}
	}
}
