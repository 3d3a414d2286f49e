package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/kerrigan/pkg/config"
	"github.com/vanderheijden86/kerrigan/pkg/debug"
	"github.com/vanderheijden86/kerrigan/pkg/filter"
	"github.com/vanderheijden86/kerrigan/pkg/loader"
	"github.com/vanderheijden86/kerrigan/pkg/server"
	"github.com/vanderheijden86/kerrigan/pkg/session"
	"github.com/vanderheijden86/kerrigan/pkg/store"
	"github.com/vanderheijden86/kerrigan/pkg/ui"
	"github.com/vanderheijden86/kerrigan/pkg/version"
)

func main() {
	cpuProfile := flag.String("cpu-profile", "", "Write CPU profile to file")
	help := flag.Bool("help", false, "Show help")
	versionFlag := flag.Bool("version", false, "Show version")
	dataFlag := flag.String("data", "", "Dataset URL or path (default: $KERRIGAN_DATA or ./graph_data.json)")
	configFlag := flag.String("config", "", "Config file (default: ~/.config/kerrigan/config.yaml)")
	exportFlag := flag.String("export", "", "Render to comma-separated .png/.svg paths and exit")
	watchFlag := flag.Bool("watch", false, "With -export: re-render whenever the dataset file changes")
	serveFlag := flag.String("serve", "", "Serve the dataset and renders on this address (e.g. :8080)")
	addRecord := flag.Bool("add-record", false, "Insert a document into the record store via a form")
	initConfig := flag.Bool("init-config", false, "Write the default config file and exit")
	minStrength := flag.String("min-strength", "0", "Minimum link strength for -export, in [-1, 1]")
	minTime := flag.String("min-time", "0", "Minimum link time for -export")
	minRisk := flag.String("min-risk", "0", "Minimum link risk for -export")
	search := flag.String("search", "", "Highlight nodes whose label contains this text (-export)")
	flag.Parse()

	// CPU profiling support
	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not start CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	if *help {
		fmt.Println("Usage: kerrigan [options]")
		fmt.Println("\nAn interactive relationship-graph explorer.")
		flag.PrintDefaults()
		return
	}

	if *versionFlag {
		fmt.Printf("kerrigan %s\n", version.Version)
		return
	}

	if *watchFlag && *exportFlag == "" {
		fmt.Fprintln(os.Stderr, "Error: -watch requires -export")
		os.Exit(2)
	}

	if *initConfig {
		path, err := writeDefaultConfig(*configFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s\n", path)
		return
	}

	cfg, err := loadConfig(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *addRecord {
		if err := runAddRecord(ctx, cfg.Store.Path); err != nil {
			fmt.Fprintf(os.Stderr, "Error adding record: %v\n", err)
			os.Exit(1)
		}
		return
	}

	explicit := *dataFlag
	if explicit == "" {
		explicit = cfg.Dataset.Source
	}
	if explicit == "" && *serveFlag != "" {
		explicit = cfg.Server.DataFile
	}
	source, err := loader.ResolveSource(explicit, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if loader.IsRemote(source) {
		source = loader.JoinURL(source)
	}
	loaderOpts := loader.Options{Dangling: cfg.DanglingPolicy()}

	switch {
	case *exportFlag != "":
		job := exportJob{
			source:  source,
			paths:   splitPaths(*exportFlag),
			opts:    loaderOpts,
			cfg:     cfg,
			thresh:  thresholdsFromFlags(*minStrength, *minTime, *minRisk, *search),
			timeout: loader.DefaultTimeout,
		}
		if *watchFlag {
			err = job.watch(ctx)
		} else {
			err = job.run(ctx)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error exporting: %v\n", err)
			os.Exit(1)
		}

	case *serveFlag != "":
		st := openStore(cfg.Store.Path)
		if st != nil {
			defer st.Close()
		}
		srv := server.New(server.Options{
			Loader:      loader.New(source, loaderOpts),
			Store:       st,
			Predicates:  cfg.Predicates(),
			Encode:      cfg.Encoder(),
			Layout:      cfg.LayoutParams(),
			CORSOrigins: cfg.Server.CORSOrigins,
		})
		fmt.Fprintf(os.Stderr, "Serving %s on %s\n", source, *serveFlag)
		if err := srv.ListenAndServe(ctx, *serveFlag); err != nil {
			fmt.Fprintf(os.Stderr, "Error serving: %v\n", err)
			os.Exit(1)
		}

	default:
		sess := session.Resolve(cfg.Session.User, nil)
		st := openStore(cfg.Store.Path)
		if st != nil {
			defer st.Close()
		}
		m, err := ui.NewModel(ui.Options{
			Context:     ctx,
			Loader:      loader.New(source, loaderOpts),
			Session:     sess,
			Store:       st,
			Predicates:  cfg.Predicates(),
			Encoder:     cfg.Encoder(),
			Layout:      cfg.LayoutParams(),
			Thresholds:  filter.DefaultThresholds(),
			HideSliders: cfg.UI.HideSliders,
			Timeframe:   cfg.UI.Timeframe,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			if errors.Is(err, session.ErrNoUser) {
				fmt.Fprintf(os.Stderr, "Set session.user in the config or %s.\n", session.UserEnvVar)
			}
			os.Exit(1)
		}
		if err := runTUIProgram(m); err != nil {
			fmt.Printf("Error running kerrigan: %v\n", err)
			os.Exit(1)
		}
	}
}

func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

// writeDefaultConfig refuses to overwrite an existing file.
func writeDefaultConfig(path string) (string, error) {
	if path == "" {
		path = config.ConfigPath()
	}
	if path == "" {
		return "", errors.New("cannot determine config directory")
	}
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("%s already exists", path)
	}
	return path, config.SaveTo(config.DefaultConfig(), path)
}

// openStore opens the record store. The UI and server work without one, so
// failures are logged and nil is returned.
func openStore(path string) *store.Store {
	if path == "" {
		return nil
	}
	st, err := store.Open(path)
	if err != nil {
		debug.Warn("record store unavailable: %v", err)
		return nil
	}
	return st
}

// logFileName lives in the data directory and collects log output while the
// TUI owns the terminal.
const logFileName = "kerrigan.log"

// redirectLogs sends debug output to the log file until the returned restore
// func is called. If the file cannot be opened the output is discarded.
func redirectLogs(dir string) (restore func()) {
	restore = func() { debug.SetOutput(os.Stderr) }
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err == nil {
			f, err := os.OpenFile(filepath.Join(dir, logFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err == nil {
				debug.SetOutput(f)
				return func() {
					debug.SetOutput(os.Stderr)
					f.Close()
				}
			}
		}
	}
	debug.SetOutput(io.Discard)
	return restore
}

func runTUIProgram(m ui.Model) error {
	restoreLogs := redirectLogs(config.DataDir())
	defer restoreLogs()

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated tests: set KERRIGAN_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("KERRIGAN_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}

				p.Quit()
			}()
		}
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	return err
}
