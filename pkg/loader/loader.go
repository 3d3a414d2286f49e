// Package loader fetches the graph dataset exactly once and decodes it into a
// model.GraphDocument.
package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/kerrigan/pkg/debug"
	"github.com/vanderheijden86/kerrigan/pkg/metrics"
	"github.com/vanderheijden86/kerrigan/pkg/model"
)

// ErrHTTPStatus is wrapped by errors for non-2xx dataset responses.
var ErrHTTPStatus = errors.New("unexpected HTTP status")

// DefaultMaxBytes caps the dataset size (64MB).
const DefaultMaxBytes = 64 << 20

// DefaultTimeout bounds a remote fetch when the caller supplies no client.
const DefaultTimeout = 30 * time.Second

// DanglingPolicy decides what happens to links referencing unknown nodes.
type DanglingPolicy string

const (
	// DanglingDrop removes offending links and logs a warning for each.
	DanglingDrop DanglingPolicy = "drop"
	// DanglingReject fails the whole load.
	DanglingReject DanglingPolicy = "reject"
)

// IsValid returns true if the policy is a recognized value
func (p DanglingPolicy) IsValid() bool {
	return p == DanglingDrop || p == DanglingReject
}

// Options configures a fetch.
type Options struct {
	Client   *http.Client
	Dangling DanglingPolicy
	MaxBytes int64
}

func (o Options) withDefaults() Options {
	if o.Client == nil {
		o.Client = &http.Client{Timeout: DefaultTimeout}
	}
	if !o.Dangling.IsValid() {
		o.Dangling = DanglingDrop
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = DefaultMaxBytes
	}
	return o
}

// Result is a successfully loaded dataset.
type Result struct {
	Source  string
	Doc     *model.GraphDocument
	Dropped []model.DanglingLink
}

// Fetch loads the dataset from an http(s) URL or a file path.
func Fetch(ctx context.Context, source string, opts Options) (*Result, error) {
	defer metrics.Timer(metrics.DatasetLoad)()
	defer debug.LogEnterExit("loader.Fetch " + source)()
	opts = opts.withDefaults()

	var body io.ReadCloser
	if IsRemote(source) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, fmt.Errorf("building request for %s: %w", source, err)
		}
		req.Header.Set("Accept", "application/json")
		resp, err := opts.Client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetching %s: %w", source, err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			resp.Body.Close()
			return nil, fmt.Errorf("network response was not ok: %s: %w", resp.Status, ErrHTTPStatus)
		}
		body = resp.Body
	} else {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("opening dataset: %w", err)
		}
		body = f
	}
	defer body.Close()

	res, err := Decode(io.LimitReader(body, opts.MaxBytes+1), opts)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", source, err)
	}
	res.Source = source
	debug.LogIf(len(res.Dropped) > 0, "%s: kept %d of %d links", source,
		len(res.Doc.Links), len(res.Doc.Links)+len(res.Dropped))
	return res, nil
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode parses a dataset document and applies the dangling-link policy.
func Decode(r io.Reader, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading dataset: %w", err)
	}
	if int64(len(data)) > opts.MaxBytes {
		return nil, fmt.Errorf("dataset exceeds %d bytes", opts.MaxBytes)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	var doc model.GraphDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing dataset: %w", err)
	}
	if doc.Nodes == nil {
		doc.Nodes = []model.Node{}
	}
	if doc.Links == nil {
		doc.Links = []model.Link{}
	}

	res := &Result{Doc: &doc}
	verr := doc.Validate()
	if verr == nil {
		return res, nil
	}
	var ve *model.ValidationError
	if !errors.As(verr, &ve) {
		return nil, verr
	}
	if ve.HasDuplicates() || opts.Dangling == DanglingReject {
		return nil, ve
	}

	drop := make(map[int]bool, len(ve.Dangling))
	for _, d := range ve.Dangling {
		debug.Warn("dropping %s", d)
		drop[d.Index] = true
	}
	res.Doc = doc.WithoutLinks(drop)
	res.Dropped = ve.Dangling
	return res, nil
}

// State is the lifecycle of a Loader.
type State int

const (
	StatePending State = iota
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "pending"
	}
}

// Loader performs a single fetch and remembers its outcome. Calling Load
// again returns the first outcome without refetching.
type Loader struct {
	source string
	opts   Options

	once   sync.Once
	mu     sync.RWMutex
	state  State
	result *Result
	err    error
}

// New creates a Loader for the given source.
func New(source string, opts Options) *Loader {
	return &Loader{source: source, opts: opts}
}

// Source returns the dataset location.
func (l *Loader) Source() string { return l.source }

// Load fetches the dataset on first call.
func (l *Loader) Load(ctx context.Context) (*Result, error) {
	l.once.Do(func() {
		res, err := Fetch(ctx, l.source, l.opts)
		l.mu.Lock()
		defer l.mu.Unlock()
		if err != nil {
			debug.Warn("error loading graph data: %v", err)
			l.state, l.err = StateFailed, err
			return
		}
		l.state, l.result = StateReady, res
	})
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.result, l.err
}

// State reports the current lifecycle state.
func (l *Loader) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}
