package loader_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/vanderheijden86/kerrigan/pkg/loader"
	"github.com/vanderheijden86/kerrigan/pkg/model"
	"github.com/vanderheijden86/kerrigan/pkg/testutil"
)

const scenario = `{"nodes":[{"id":1,"label":"A"},{"id":2,"label":"B"}],
"links":[{"source":1,"target":2,"strength":0.5,"time":10,"risk":2}]}`

func TestFetchHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(scenario))
	}))
	defer srv.Close()

	res, err := loader.Fetch(context.Background(), srv.URL+"/graph_data.json", loader.Options{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(res.Doc.Nodes) != 2 || len(res.Doc.Links) != 1 {
		t.Fatalf("unexpected document: %+v", res.Doc)
	}
	if res.Doc.Links[0].Source != "1" {
		t.Errorf("numeric ids should decode as strings, got %q", res.Doc.Links[0].Source)
	}
}

func TestFetchHTTPNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := loader.Fetch(context.Background(), srv.URL, loader.Options{})
	if !errors.Is(err, loader.ErrHTTPStatus) {
		t.Fatalf("expected ErrHTTPStatus, got %v", err)
	}
	if !strings.Contains(err.Error(), "404 Not Found") {
		t.Errorf("error should include status text, got %q", err.Error())
	}
}

func TestFetchFile(t *testing.T) {
	doc := testutil.NewGraphGenerator(5).Random(6, 12)
	path := testutil.WriteDataset(t, t.TempDir(), doc)

	res, err := loader.Fetch(context.Background(), path, loader.Options{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(res.Doc.Links) != 12 || res.Source != path {
		t.Errorf("unexpected result: %d links from %s", len(res.Doc.Links), res.Source)
	}
}

func TestFetchMissingFile(t *testing.T) {
	if _, err := loader.Fetch(context.Background(), "/does/not/exist.json", loader.Options{}); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestFetchCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := loader.Fetch(ctx, "graph_data.json", loader.Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDecodeMalformed(t *testing.T) {
	if _, err := loader.Decode(strings.NewReader(`{"nodes": [`), loader.Options{}); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestDecodeStripsBOM(t *testing.T) {
	res, err := loader.Decode(strings.NewReader("\xEF\xBB\xBF"+scenario), loader.Options{})
	if err != nil {
		t.Fatalf("Decode with BOM: %v", err)
	}
	if len(res.Doc.Nodes) != 2 {
		t.Errorf("expected 2 nodes")
	}
}

func TestDecodeEmptyDocument(t *testing.T) {
	res, err := loader.Decode(strings.NewReader(`{}`), loader.Options{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if res.Doc.Nodes == nil || res.Doc.Links == nil {
		t.Errorf("empty document should have non-nil slices")
	}
}

const dangling = `{"nodes":[{"id":"a"},{"id":"b"}],
"links":[{"source":"a","target":"b","strength":1},{"source":"a","target":"ghost","strength":1}]}`

func TestDecodeDanglingDrop(t *testing.T) {
	res, err := loader.Decode(strings.NewReader(dangling), loader.Options{Dangling: loader.DanglingDrop})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(res.Doc.Links) != 1 || res.Doc.Links[0].Target != "b" {
		t.Fatalf("expected dangling link dropped, got %+v", res.Doc.Links)
	}
	if len(res.Dropped) != 1 || res.Dropped[0].Missing[0] != "ghost" {
		t.Errorf("unexpected dropped report: %+v", res.Dropped)
	}
	testutil.AssertNoDanglingLinks(t, res.Doc)
}

func TestDecodeDanglingReject(t *testing.T) {
	_, err := loader.Decode(strings.NewReader(dangling), loader.Options{Dangling: loader.DanglingReject})
	var verr *model.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestDecodeDuplicateIDsAlwaysFail(t *testing.T) {
	_, err := loader.Decode(strings.NewReader(`{"nodes":[{"id":1},{"id":1}],"links":[]}`), loader.Options{})
	if err == nil {
		t.Fatal("duplicate ids must fail even with the drop policy")
	}
}

func TestDecodeMaxBytes(t *testing.T) {
	if _, err := loader.Decode(strings.NewReader(scenario), loader.Options{MaxBytes: 10}); err == nil {
		t.Fatal("expected size limit error")
	}
}

func TestLoaderFetchesOnce(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(scenario))
	}))
	defer srv.Close()

	l := loader.New(srv.URL, loader.Options{})
	if l.State() != loader.StatePending {
		t.Fatalf("new loader should be pending")
	}
	for i := 0; i < 3; i++ {
		if _, err := l.Load(context.Background()); err != nil {
			t.Fatalf("Load: %v", err)
		}
	}
	if hits.Load() != 1 {
		t.Errorf("expected exactly one fetch, got %d", hits.Load())
	}
	if l.State() != loader.StateReady {
		t.Errorf("state = %v, want ready", l.State())
	}
}

func TestLoaderFailedState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	l := loader.New(srv.URL, loader.Options{})
	if _, err := l.Load(context.Background()); err == nil {
		t.Fatal("expected failure")
	}
	if l.State() != loader.StateFailed || l.State().String() != "failed" {
		t.Errorf("state = %v, want failed", l.State())
	}
}
