package ui

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/vanderheijden86/kerrigan/pkg/filter"
	"github.com/vanderheijden86/kerrigan/pkg/loader"
	"github.com/vanderheijden86/kerrigan/pkg/model"
	"github.com/vanderheijden86/kerrigan/pkg/session"
	"github.com/vanderheijden86/kerrigan/pkg/store"
	"github.com/vanderheijden86/kerrigan/pkg/testutil"
)

func scenarioDoc() *model.GraphDocument {
	return &model.GraphDocument{
		Nodes: []model.Node{
			{ID: "1", Label: "Alpha", Content: "first"},
			{ID: "2", Label: "Beta", Content: "second"},
		},
		Links: []model.Link{{Source: "1", Target: "2", Strength: 0.5, Time: 10, Risk: 2}},
	}
}

func newTestModel(t *testing.T) Model {
	t.Helper()
	m, err := NewModel(Options{
		Loader:  loader.New("testdata/graph_data.json", loader.Options{}),
		Session: session.New("tester"),
	})
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	return m
}

func loaded(t *testing.T, m Model, doc *model.GraphDocument) Model {
	t.Helper()
	next, _ := m.Update(DatasetLoadedMsg{Generation: 0, Result: &loader.Result{Doc: doc}})
	return next.(Model)
}

func press(m Model, keys ...string) Model {
	for _, k := range keys {
		next, _ := m.Update(keyMsg(k))
		m = next.(Model)
	}
	return m
}

func TestNewModelRequiresUser(t *testing.T) {
	_, err := NewModel(Options{
		Loader:  loader.New("x.json", loader.Options{}),
		Session: session.New(""),
	})
	if !errors.Is(err, session.ErrNoUser) {
		t.Fatalf("expected ErrNoUser, got %v", err)
	}
	if _, err := NewModel(Options{Loader: loader.New("x.json", loader.Options{})}); !errors.Is(err, session.ErrNoUser) {
		t.Fatalf("expected ErrNoUser for nil session, got %v", err)
	}
}

func TestLoadingScreenUntilDataset(t *testing.T) {
	m := newTestModel(t)
	if m.LoadState() != loader.StatePending {
		t.Fatalf("expected pending, got %s", m.LoadState())
	}
	if !strings.Contains(ansi.Strip(m.View()), "Loading...") {
		t.Error("expected loading screen")
	}
	if m.Filtered() != nil {
		t.Error("no filtered graph before load")
	}
}

func TestFailedLoadScreen(t *testing.T) {
	m := newTestModel(t)
	next, _ := m.Update(DatasetLoadedMsg{Err: errors.New("network response was not ok: 404 Not Found")})
	m = next.(Model)
	if m.LoadState() != loader.StateFailed {
		t.Fatalf("expected failed, got %s", m.LoadState())
	}
	view := ansi.Strip(m.View())
	if !strings.Contains(view, "Failed to load dataset") || !strings.Contains(view, "404") {
		t.Errorf("expected failure screen with error text, got\n%s", view)
	}

	// Keys other than quit do nothing; there is no retry.
	m = press(m, "r", "s")
	if m.LoadState() != loader.StateFailed {
		t.Error("state changed after keys on failure screen")
	}
}

func TestStaleGenerationIgnored(t *testing.T) {
	m := newTestModel(t)
	next, _ := m.Update(DatasetLoadedMsg{Generation: 7, Result: &loader.Result{Doc: scenarioDoc()}})
	m = next.(Model)
	if m.LoadState() != loader.StatePending {
		t.Fatalf("stale load applied: %s", m.LoadState())
	}
}

func TestLoadedDerivesGraphAndStartsLayout(t *testing.T) {
	m := newTestModel(t)
	next, cmd := m.Update(DatasetLoadedMsg{Result: &loader.Result{Doc: scenarioDoc()}})
	m = next.(Model)
	if m.LoadState() != loader.StateReady {
		t.Fatalf("expected ready, got %s", m.LoadState())
	}
	if fg := m.Filtered(); fg == nil || len(fg.Nodes) != 2 || len(fg.Links) != 1 {
		t.Fatalf("unexpected filtered graph %+v", m.Filtered())
	}
	if cmd == nil {
		t.Error("expected a layout tick command")
	}
	if !strings.Contains(ansi.Strip(m.View()), "Adjust Values") {
		t.Error("sliders should be visible on mount")
	}
}

func TestDroppedLinksReported(t *testing.T) {
	m := newTestModel(t)
	res := &loader.Result{Doc: scenarioDoc(), Dropped: []model.DanglingLink{{Index: 1}}}
	next, _ := m.Update(DatasetLoadedMsg{Result: res})
	m = next.(Model)
	if !strings.Contains(m.statusMsg, "Dropped 1") || !m.statusIsError {
		t.Errorf("expected dropped-link warning, got %q", m.statusMsg)
	}
}

func TestStrengthSliderRefilters(t *testing.T) {
	m := loaded(t, newTestModel(t), scenarioDoc())

	// Focus strength, type 60 (percent) and commit.
	m = press(m, "tab", "backspace", "backspace", "backspace", "6", "0", "enter")
	if got := m.Thresholds().MinStrength; got != 0.6 {
		t.Fatalf("MinStrength = %v, want 0.6", got)
	}
	if n := len(m.Filtered().Links); n != 0 {
		t.Fatalf("expected no links at 0.6, got %d", n)
	}
	if n := len(m.Filtered().Nodes); n != 2 {
		t.Fatalf("nodes must not be filtered, got %d", n)
	}

	m = press(m, "backspace", "backspace", "4", "0", "enter")
	if n := len(m.Filtered().Links); n != 1 {
		t.Fatalf("expected the link back at 0.4, got %d", n)
	}
}

func TestSearchHighlightsWithoutRefilter(t *testing.T) {
	m := loaded(t, newTestModel(t), scenarioDoc())
	before := m.Filtered()
	m = press(m, "shift+tab", "a")
	if m.Thresholds().SearchTerm != "a" {
		t.Fatalf("search term = %q", m.Thresholds().SearchTerm)
	}
	if m.Filtered() != before {
		t.Error("search should not re-derive the graph")
	}
	if m.canvas.search != "a" {
		t.Error("canvas did not receive the search term")
	}
}

func TestSliderKeysDoNotLeakWhileFocused(t *testing.T) {
	m := loaded(t, newTestModel(t), scenarioDoc())
	m = press(m, "shift+tab", "q", "s")
	if !m.ViewState().SlidersVisible {
		t.Error("'s' typed into search toggled the panel")
	}
	if m.Thresholds().SearchTerm != "qs" {
		t.Errorf("expected search 'qs', got %q", m.Thresholds().SearchTerm)
	}
}

func TestNodeSelectedSwitchesTabAndFiresCallbacks(t *testing.T) {
	m := loaded(t, newTestModel(t), scenarioDoc())
	var selected []model.NodeID
	var tabs []Tab
	m.OnNodeSelected = func(n model.Node) { selected = append(selected, n.ID) }
	m.OnTabChanged = func(tab Tab) { tabs = append(tabs, tab) }

	next, _ := m.Update(NodeSelectedMsg{Node: scenarioDoc().Nodes[1]})
	m = next.(Model)

	v := m.ViewState()
	if v.ActiveTab != TabDetails || v.Selected == nil || v.Selected.ID != "2" {
		t.Fatalf("unexpected view state %+v", v)
	}
	if len(selected) != 1 || selected[0] != "2" {
		t.Errorf("OnNodeSelected calls = %v", selected)
	}
	if len(tabs) != 1 || tabs[0] != TabDetails {
		t.Errorf("OnTabChanged calls = %v", tabs)
	}
	if view := ansi.Strip(m.View()); !strings.Contains(view, "Node Details") || !strings.Contains(view, "Beta") {
		t.Errorf("details view missing node\n%s", view)
	}
}

func TestDetailsWithoutSelection(t *testing.T) {
	m := loaded(t, newTestModel(t), scenarioDoc())
	m = press(m, "1")
	if m.ViewState().ActiveTab != TabDetails {
		t.Fatal("expected Details tab")
	}
	if !strings.Contains(ansi.Strip(m.View()), noSelectionText) {
		t.Error("expected empty-selection hint")
	}
}

func TestEnterSelectsCursorNode(t *testing.T) {
	m := loaded(t, newTestModel(t), scenarioDoc())
	m = press(m, "right")
	_, cmd := m.Update(keyMsg("enter"))
	if cmd == nil {
		t.Fatal("expected a selection command")
	}
	msg, ok := cmd().(NodeSelectedMsg)
	if !ok || msg.Node.ID != "1" {
		t.Fatalf("expected NodeSelectedMsg for node 1, got %#v", msg)
	}
}

func TestToggleSlidersKeepsThresholds(t *testing.T) {
	m := loaded(t, newTestModel(t), scenarioDoc())
	m = press(m, "tab", "right", "esc")
	want := m.Thresholds()
	m = press(m, "s")
	if m.ViewState().SlidersVisible {
		t.Fatal("expected sliders hidden")
	}
	if !strings.Contains(ansi.Strip(m.View()), "Show Sliders") {
		t.Error("expected collapsed affordance")
	}
	m = press(m, "s")
	if m.Thresholds() != want {
		t.Errorf("thresholds changed across toggle: %+v vs %+v", m.Thresholds(), want)
	}
}

func TestAnalyticsTimeframeCycles(t *testing.T) {
	m := loaded(t, newTestModel(t), scenarioDoc())
	m = press(m, "]", "]")
	if got := m.analytics.Timeframe(); got != "1M" {
		t.Errorf("timeframe = %s, want 1M", got)
	}
	m = press(m, "[", "[", "[")
	if got := m.analytics.Timeframe(); got != "Max" {
		t.Errorf("timeframe = %s, want Max", got)
	}
}

func TestInsertRecord(t *testing.T) {
	st, err := store.Open(store.MemoryPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	m, err := NewModel(Options{
		Loader:  loader.New("x.json", loader.Options{}),
		Session: session.New("tester"),
		Store:   st,
	})
	if err != nil {
		t.Fatal(err)
	}
	m = loaded(t, m, scenarioDoc())

	_, cmd := m.Update(keyMsg("i"))
	if cmd == nil {
		t.Fatal("expected insert command")
	}
	res, ok := cmd().(RecordInsertedMsg)
	if !ok || res.Err != nil {
		t.Fatalf("insert failed: %#v", res)
	}
	recs, err := st.List(t.Context(), 10)
	if err != nil || len(recs) != 1 {
		t.Fatalf("expected one record, got %v (%v)", recs, err)
	}
	if recs[0].Name != store.PlaceholderText || recs[0].Description != store.PlaceholderText {
		t.Errorf("unexpected record %+v", recs[0])
	}
}

func TestInsertWithoutStore(t *testing.T) {
	m := loaded(t, newTestModel(t), scenarioDoc())
	next, cmd := m.Update(keyMsg("i"))
	m = next.(Model)
	if cmd != nil || !m.statusIsError {
		t.Errorf("expected an error status without a store, got %q", m.statusMsg)
	}
}

func TestRecordFor(t *testing.T) {
	if r := RecordFor(nil); r.Name != "Test" || r.Description != "Test" {
		t.Errorf("placeholder record = %+v", r)
	}
	n := model.Node{ID: "1", Label: "Alpha", Content: "body"}
	if r := RecordFor(&n); r.Name != "Alpha" || r.Description != "body" {
		t.Errorf("selected record = %+v", r)
	}
	empty := model.Node{ID: "9"}
	if r := RecordFor(&empty); r.Name != "9" || r.Description != "Test" {
		t.Errorf("record for unlabeled node = %+v", r)
	}
}

func TestSignOutUnmounts(t *testing.T) {
	m := newTestModel(t)
	m = loaded(t, m, scenarioDoc())
	m = press(m, session.SignOutKey)
	if !m.SignedOut() {
		t.Fatal("expected signed out")
	}
	if m.session.Present() {
		t.Error("session still has a user")
	}
	if !strings.Contains(ansi.Strip(m.View()), "Signed out") {
		t.Error("expected signed-out screen")
	}

	// A late tick from the old generation is ignored.
	next, cmd := m.Update(layoutTickMsg{generation: 0})
	if cmd != nil {
		t.Error("stale tick scheduled another tick")
	}
	_ = next
}

func TestLayoutTicksUntilSettled(t *testing.T) {
	doc := testutil.NewGraphGenerator(3).Random(12, 20)
	m := loaded(t, newTestModel(t), doc)
	ticks := 0
	for ; ticks < 2000; ticks++ {
		next, cmd := m.Update(layoutTickMsg{generation: m.generation})
		m = next.(Model)
		if cmd == nil {
			break
		}
	}
	if ticks == 2000 {
		t.Fatal("layout never settled")
	}
	if m.ticking {
		t.Error("ticking flag left set")
	}
}

func TestMouseClickHitTest(t *testing.T) {
	m := loaded(t, newTestModel(t), scenarioDoc())
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = next.(Model)
	for i := 0; i < 300; i++ {
		next, _ = m.Update(layoutTickMsg{generation: m.generation})
		m = next.(Model)
	}

	pos, ok := m.sim.Positions()["2"]
	if !ok {
		t.Fatal("node 2 not simulated")
	}
	col, row := m.canvas.proj.toCell(pos)
	_, cmd := m.Update(tea.MouseMsg{
		X:      col + m.canvasX,
		Y:      row + m.canvasY,
		Action: tea.MouseActionPress,
		Button: tea.MouseButtonLeft,
	})
	if cmd == nil {
		t.Fatal("expected click on node to produce a command")
	}
	if msg, ok := cmd().(NodeSelectedMsg); !ok || msg.Node.ID != "2" {
		t.Fatalf("expected node 2 selected, got %#v", msg)
	}
}

func TestViewRendersOnWideAndNarrowTerminals(t *testing.T) {
	for _, size := range []tea.WindowSizeMsg{{Width: 140, Height: 40}, {Width: 60, Height: 30}} {
		m := loaded(t, newTestModel(t), scenarioDoc())
		next, _ := m.Update(size)
		m = next.(Model)
		view := ansi.Strip(m.View())
		for _, want := range []string{"kerrigan", "signed in as tester", "Graph", "Details", "Portfolio Analytics"} {
			if !strings.Contains(view, want) {
				t.Errorf("%dx%d view missing %q", size.Width, size.Height, want)
			}
		}
	}
}

func TestPredicatesLimitSliders(t *testing.T) {
	m, err := NewModel(Options{
		Loader:     loader.New("x.json", loader.Options{}),
		Session:    session.New("tester"),
		Predicates: filter.StrengthOnly,
	})
	if err != nil {
		t.Fatal(err)
	}
	m = loaded(t, m, scenarioDoc())
	view := ansi.Strip(m.View())
	if strings.Contains(view, "Min Risk") {
		t.Error("risk slider shown with strength-only predicates")
	}
}

func TestFooterShowsThresholdsWhileSlidersHidden(t *testing.T) {
	m := loaded(t, newTestModel(t), scenarioDoc())
	next, _ := m.Update(tea.WindowSizeMsg{Width: 160, Height: 40})
	m = next.(Model)

	if strings.Contains(ansi.Strip(m.renderFooter()), "strength≥") {
		t.Error("summary should stay out of the footer while the panel is visible")
	}
	m = press(m, "s")
	if footer := ansi.Strip(m.renderFooter()); !strings.Contains(footer, "strength≥0%") {
		t.Errorf("footer missing threshold summary: %q", footer)
	}
}

func TestFooterNamesFocusedSlider(t *testing.T) {
	m := loaded(t, newTestModel(t), scenarioDoc())
	next, _ := m.Update(tea.WindowSizeMsg{Width: 160, Height: 40})
	m = press(next.(Model), "tab")

	if footer := ansi.Strip(m.renderFooter()); !strings.HasPrefix(footer, "Min Strength") {
		t.Errorf("footer should lead with the focused control: %q", footer)
	}
}

func TestQuitCancelsInFlightLoad(t *testing.T) {
	m := newTestModel(t)
	_, cmd := m.Update(keyMsg("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if m.ctx.Err() == nil {
		t.Error("quitting should cancel the load context")
	}
}

func TestLoadDatasetCmdHonoursCancellation(t *testing.T) {
	release := make(chan struct{})
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer upstream.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	msg := LoadDatasetCmd(ctx, loader.New(upstream.URL, loader.Options{}), 3)().(DatasetLoadedMsg)
	if msg.Err == nil || !errors.Is(msg.Err, context.Canceled) {
		t.Fatalf("expected cancellation error, got %v", msg.Err)
	}
	if msg.Generation != 3 {
		t.Errorf("generation = %d", msg.Generation)
	}
}
