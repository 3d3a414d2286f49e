package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/kerrigan/pkg/analysis"
	"github.com/vanderheijden86/kerrigan/pkg/debug"
	"github.com/vanderheijden86/kerrigan/pkg/encode"
	"github.com/vanderheijden86/kerrigan/pkg/filter"
	"github.com/vanderheijden86/kerrigan/pkg/layout"
	"github.com/vanderheijden86/kerrigan/pkg/loader"
	"github.com/vanderheijden86/kerrigan/pkg/model"
	"github.com/vanderheijden86/kerrigan/pkg/session"
	"github.com/vanderheijden86/kerrigan/pkg/store"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	// frameInterval paces layout ticks at roughly 30 fps.
	frameInterval = time.Second / 30
	// ticksPerFrame advances the simulation faster than it is drawn.
	ticksPerFrame = 2
	// sideBySideMin is the narrowest terminal that puts the slider panel
	// beside the canvas instead of above it.
	sideBySideMin = 100
)

// DatasetLoadedMsg reports the outcome of the one-shot dataset fetch.
// Messages from an older generation are ignored.
type DatasetLoadedMsg struct {
	Generation int
	Result     *loader.Result
	Err        error
}

// NodeSelectedMsg is produced by a click or enter on a node.
type NodeSelectedMsg struct {
	Node model.Node
}

// RecordInsertedMsg reports a completed record insert.
type RecordInsertedMsg struct {
	ID  int64
	Err error
}

type layoutTickMsg struct {
	generation int
}

// Options wires the page to its collaborators.
type Options struct {
	// Context bounds the dataset fetch. It defaults to context.Background
	// and is cancelled when the page quits.
	Context    context.Context
	Loader     *loader.Loader
	Session    *session.Session
	Store      *store.Store // optional
	Predicates filter.Predicate
	Encoder    encode.Config
	Layout     layout.Params
	Thresholds filter.Thresholds
	// HideSliders starts with the slider panel minimized.
	HideSliders bool
	Timeframe   string
}

// Model is the page: it owns the dataset, thresholds, view state and the
// simulation, and is the only place state changes.
type Model struct {
	theme   Theme
	loader  *loader.Loader
	session *session.Session
	store   *store.Store

	engine filter.Engine
	enc    encode.Encoder
	sim    *layout.Simulation

	ctx        context.Context
	cancel     context.CancelFunc
	generation int
	loadState  loader.State
	loadErr    error
	doc        *model.GraphDocument
	filtered   *filter.FilteredGraph
	stats      *analysis.Stats
	ticking    bool
	signedOut  bool

	view      ViewState
	sliders   SliderPanel
	canvas    Canvas
	detail    DetailPanel
	analytics AnalyticsStrip

	width, height int
	canvasX       int
	canvasY       int
	hovered       string

	statusMsg     string
	statusIsError bool

	// OnNodeSelected is called after a node becomes selected.
	OnNodeSelected func(model.Node)
	// OnTabChanged is called after the active tab changes.
	OnTabChanged func(Tab)
}

// NewModel builds the page. It refuses to mount without a signed-in user.
func NewModel(opts Options) (Model, error) {
	if opts.Session == nil {
		return Model{}, session.ErrNoUser
	}
	if err := opts.Session.Require(); err != nil {
		return Model{}, fmt.Errorf("mount dashboard: %w", err)
	}
	if opts.Loader == nil {
		return Model{}, fmt.Errorf("mount dashboard: no dataset loader")
	}
	if opts.Predicates == 0 {
		opts.Predicates = filter.AllPredicates
	}

	theme := DefaultTheme(lipgloss.DefaultRenderer())
	enc := encode.New(opts.Encoder)
	parent := opts.Context
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	m := Model{
		theme:     theme,
		ctx:       ctx,
		cancel:    cancel,
		loader:    opts.Loader,
		session:   opts.Session,
		store:     opts.Store,
		engine:    filter.NewEngine(opts.Predicates),
		enc:       enc,
		sim:       layout.New(opts.Layout),
		loadState: loader.StatePending,
		view:      NewViewState(),
		sliders:   NewSliderPanel(opts.Predicates, opts.Thresholds, theme),
		canvas:    NewCanvas(theme, enc),
		detail:    NewDetailPanel(theme, defaultWidth, defaultHeight-4),
		analytics: NewAnalyticsStrip(theme, opts.Timeframe),
		width:     defaultWidth,
		height:    defaultHeight,
	}
	if opts.HideSliders {
		m.view = m.view.ToggleSliders()
	}
	m.layoutPanes()
	return m, nil
}

// LoadDatasetCmd fetches the dataset once and reports back. Cancelling ctx
// aborts an in-flight request.
func LoadDatasetCmd(ctx context.Context, l *loader.Loader, generation int) tea.Cmd {
	return func() tea.Msg {
		res, err := l.Load(ctx)
		return DatasetLoadedMsg{Generation: generation, Result: res, Err: err}
	}
}

// InsertRecordCmd stores a record without waiting on the page.
func InsertRecordCmd(s *store.Store, rec store.Record) tea.Cmd {
	return func() tea.Msg {
		id, err := s.Insert(context.Background(), rec)
		return RecordInsertedMsg{ID: id, Err: err}
	}
}

func layoutTickCmd(generation int) tea.Cmd {
	return tea.Tick(frameInterval, func(time.Time) tea.Msg {
		return layoutTickMsg{generation: generation}
	})
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		LoadDatasetCmd(m.ctx, m.loader, m.generation),
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case DatasetLoadedMsg:
		if msg.Generation != m.generation || m.signedOut {
			debug.Log("ui: ignoring dataset from generation %d", msg.Generation)
			return m, nil
		}
		if msg.Err != nil {
			m.loadState, m.loadErr = loader.StateFailed, msg.Err
			return m, nil
		}
		m.loadState = loader.StateReady
		m.doc = msg.Result.Doc
		m.sliders = m.sliders.SetTimeRange(m.doc)
		if n := len(msg.Result.Dropped); n > 0 {
			m.setStatus(fmt.Sprintf("Dropped %d dangling link(s)", n), true)
		}
		cmds = append(cmds, m.refilter())

	case layoutTickMsg:
		if msg.generation != m.generation {
			return m, nil
		}
		for i := 0; i < ticksPerFrame && m.sim.Active(); i++ {
			m.sim.Tick()
		}
		m.canvas.SetPositions(m.sim.Positions())
		if m.sim.Active() {
			return m, layoutTickCmd(m.generation)
		}
		m.ticking = false
		return m, nil

	case NodeSelectedMsg:
		m.selectNode(msg.Node)
		return m, nil

	case RecordInsertedMsg:
		if msg.Err != nil {
			debug.Warn("insert record: %v", msg.Err)
			m.setStatus(fmt.Sprintf("Insert failed: %v", msg.Err), true)
		} else {
			m.setStatus(fmt.Sprintf("Inserted document #%d", msg.ID), false)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layoutPanes()
		return m, nil

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, m.quit()
	}
	if m.signedOut || m.loadState != loader.StateReady {
		if key == "q" {
			return m, m.quit()
		}
		return m, nil
	}

	m.statusMsg = ""

	if m.view.ActiveTab == TabGraph && m.view.SlidersVisible && (m.sliders.Focused() || key == "tab" || key == "shift+tab") {
		prev := m.sliders.Thresholds()
		var cmd tea.Cmd
		var changed bool
		m.sliders, cmd, changed = m.sliders.Update(msg)
		if changed {
			refilter := m.thresholdsChanged(prev)
			return m, tea.Batch(cmd, refilter)
		}
		return m, cmd
	}

	switch key {
	case "q":
		return m, m.quit()
	case "s":
		m.view = m.view.ToggleSliders()
		if !m.view.SlidersVisible {
			m.sliders = m.sliders.Blur()
		}
		m.layoutPanes()
	case "1":
		m.switchTab(TabDetails)
	case "2":
		m.switchTab(TabGraph)
	case "t":
		if m.view.ActiveTab == TabGraph {
			m.switchTab(TabDetails)
		} else {
			m.switchTab(TabGraph)
		}
	case "esc":
		if m.view.ActiveTab == TabDetails {
			m.switchTab(TabGraph)
		}
	case "left", "h":
		if m.view.ActiveTab == TabGraph {
			m.canvas.MoveCursor(-1)
			m.updateHoverFromCursor()
		}
	case "right", "l":
		if m.view.ActiveTab == TabGraph {
			m.canvas.MoveCursor(1)
			m.updateHoverFromCursor()
		}
	case "enter":
		if m.view.ActiveTab == TabGraph {
			if n, ok := m.canvas.CursorNode(); ok {
				return m, selectNodeCmd(n)
			}
		}
	case "[":
		m.analytics = m.analytics.Cycle(-1)
	case "]":
		m.analytics = m.analytics.Cycle(1)
	case "y":
		m.copySelected()
	case "i":
		cmd := m.insertRecord()
		return m, cmd
	case session.SignOutKey:
		m.signOut()
	default:
		if m.view.ActiveTab == TabDetails {
			var cmd tea.Cmd
			m.detail, cmd = m.detail.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.loadState != loader.StateReady || m.signedOut || m.view.ActiveTab != TabGraph {
		return m, nil
	}
	x, y, r, ok := m.canvas.WorldAt(msg.X-m.canvasX, msg.Y-m.canvasY)
	if !ok {
		m.hovered = ""
		return m, nil
	}
	id, hit := m.sim.NodeAt(x, y, r)
	var node model.Node
	if hit {
		node, hit = m.doc.Node(id)
	}

	switch {
	case msg.Action == tea.MouseActionMotion:
		m.hovered = ""
		if hit {
			m.hovered = node.DisplayLabel()
		}
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		if hit {
			return m, selectNodeCmd(node)
		}
	}
	return m, nil
}

func selectNodeCmd(n model.Node) tea.Cmd {
	return func() tea.Msg { return NodeSelectedMsg{Node: n} }
}

// thresholdsChanged re-derives the graph when a numeric threshold moved and
// only re-highlights when the search term changed.
func (m *Model) thresholdsChanged(prev filter.Thresholds) tea.Cmd {
	cur := m.sliders.Thresholds()
	if cur.MinStrength == prev.MinStrength && cur.MinTime == prev.MinTime && cur.MinRisk == prev.MinRisk {
		m.canvas.SetSearch(cur.SearchTerm)
		return nil
	}
	return m.refilter()
}

// refilter derives the visible graph, feeds it to the simulation and starts
// the tick loop if it is not already running.
func (m *Model) refilter() tea.Cmd {
	t := m.sliders.Thresholds()
	m.filtered = m.engine.Derive(m.doc, t)
	m.stats = analysis.Analyze(m.filtered)
	m.sim.SetGraph(m.filtered, m.enc.LinkDistance)
	debug.Log("refilter: simulating %d nodes", m.sim.Len())
	m.canvas.SetGraph(m.filtered)
	m.canvas.SetSearch(t.SearchTerm)
	m.canvas.SetPositions(m.sim.Positions())
	if m.view.Selected != nil {
		m.detail.SetNode(m.view.Selected, m.filtered, m.stats)
	}
	if m.ticking || !m.sim.Active() {
		return nil
	}
	m.ticking = true
	return layoutTickCmd(m.generation)
}

func (m *Model) selectNode(n model.Node) {
	prevTab := m.view.ActiveTab
	m.view = m.view.SelectNode(n)
	m.detail.SetNode(m.view.Selected, m.filtered, m.stats)
	if m.OnNodeSelected != nil {
		m.OnNodeSelected(n)
	}
	if prevTab != m.view.ActiveTab && m.OnTabChanged != nil {
		m.OnTabChanged(m.view.ActiveTab)
	}
}

func (m *Model) switchTab(t Tab) {
	if m.view.ActiveTab == t {
		return
	}
	m.view = m.view.SwitchTab(t)
	if t == TabDetails {
		m.detail.SetNode(m.view.Selected, m.filtered, m.stats)
	}
	if m.OnTabChanged != nil {
		m.OnTabChanged(t)
	}
}

func (m *Model) updateHoverFromCursor() {
	if n, ok := m.canvas.CursorNode(); ok {
		m.hovered = n.DisplayLabel()
	}
}

func (m *Model) copySelected() {
	if m.view.Selected == nil {
		m.setStatus("No node selected", true)
		return
	}
	text := m.view.Selected.Content
	if text == "" {
		text = m.view.Selected.DisplayLabel()
	}
	if err := clipboard.WriteAll(text); err != nil {
		m.setStatus(fmt.Sprintf("Clipboard error: %v", err), true)
		return
	}
	m.setStatus(fmt.Sprintf("Copied %s to clipboard", m.view.Selected.DisplayLabel()), false)
}

// RecordFor builds the document inserted by the insert action.
func RecordFor(selected *model.Node) store.Record {
	rec := store.Record{Name: store.PlaceholderText, Description: store.PlaceholderText}
	if selected == nil {
		return rec
	}
	rec.Name = selected.DisplayLabel()
	if selected.Content != "" {
		rec.Description = selected.Content
	}
	return rec
}

func (m *Model) insertRecord() tea.Cmd {
	if m.store == nil {
		m.setStatus("No record store configured", true)
		return nil
	}
	return InsertRecordCmd(m.store, RecordFor(m.view.Selected))
}

// quit aborts any in-flight fetch before the program exits.
func (m Model) quit() tea.Cmd {
	m.cancel()
	return tea.Quit
}

func (m *Model) signOut() {
	m.cancel()
	m.session.SignOut()
	m.signedOut = true
	m.generation++
	m.ticking = false
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.statusMsg, m.statusIsError = msg, isErr
}

// layoutPanes recomputes the canvas and detail sizes for the terminal.
func (m *Model) layoutPanes() {
	// header, tab bar, divider, analytics (2), footer
	bodyH := m.height - 6
	if bodyH < 3 {
		bodyH = 3
	}
	canvasW, canvasH := m.width, bodyH
	m.canvasX, m.canvasY = 0, 2
	if panel := m.sliderView(); panel != "" {
		pw, ph := lipgloss.Width(panel), lipgloss.Height(panel)
		if m.width >= sideBySideMin {
			canvasW = m.width - pw
		} else {
			canvasH = bodyH - ph
			m.canvasY += ph
		}
	}
	m.canvas.SetSize(max(canvasW, 1), max(canvasH, 1))
	m.detail.SetSize(m.width, max(m.height-4, 1))
}

func (m Model) sliderView() string {
	if m.view.SlidersVisible {
		return m.sliders.View()
	}
	return m.sliders.CollapsedView()
}

// renderGlobalHeader renders the single-line global header bar.
func (m Model) renderGlobalHeader() string {
	appName := lipgloss.NewStyle().Bold(true).Foreground(ColorText).Render("kerrigan")
	sep := lipgloss.NewStyle().Foreground(ColorMuted).Render(" | ")

	userStyle := lipgloss.NewStyle().Foreground(ColorSuccess)
	if !m.session.Present() {
		userStyle = lipgloss.NewStyle().Foreground(ColorWarning)
	}
	rightParts := userStyle.Render(m.session.Header())

	source := "no dataset"
	if m.loader != nil {
		source = m.loader.Source()
	}
	room := m.width - lipgloss.Width(appName+sep) - lipgloss.Width(rightParts) - 1
	leftParts := appName + sep + lipgloss.NewStyle().Foreground(ColorSubtext).Render(truncateRunesHelper(source, room, "…"))

	fillerWidth := m.width - lipgloss.Width(leftParts) - lipgloss.Width(rightParts)
	if fillerWidth < 1 {
		fillerWidth = 1
	}
	filler := lipgloss.NewStyle().Width(fillerWidth).Render("")

	headerBg := lipgloss.NewStyle().
		Width(m.width).
		Background(ColorBgHighlight)

	return headerBg.MaxWidth(m.width).Render(leftParts + filler + rightParts)
}

func (m Model) renderTabBar() string {
	tabs := []Tab{TabDetails, TabGraph}
	parts := make([]string, len(tabs))
	for i, t := range tabs {
		label := fmt.Sprintf("%d %s", i+1, t)
		if t == m.view.ActiveTab {
			parts[i] = m.theme.TabActive.Render(label)
		} else {
			parts[i] = m.theme.TabIdle.Render(label)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m Model) renderLoadingScreen() string {
	titleStyle := lipgloss.NewStyle().Foreground(ColorText).Bold(true)
	subStyle := lipgloss.NewStyle().Foreground(ColorMuted)

	lines := []string{titleStyle.Render("Loading...")}
	if m.loader != nil {
		lines = append(lines, "", subStyle.Render(m.loader.Source()))
	}
	content := lipgloss.JoinVertical(lipgloss.Center, lines...)
	return lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
}

func (m Model) renderFailedScreen() string {
	titleStyle := lipgloss.NewStyle().Foreground(ColorDanger).Bold(true)
	errStyle := lipgloss.NewStyle().Foreground(ColorSubtext).Width(min(m.width-4, 80))
	subStyle := lipgloss.NewStyle().Foreground(ColorMuted)

	content := lipgloss.JoinVertical(lipgloss.Center,
		titleStyle.Render("Failed to load dataset"),
		"",
		errStyle.Render(fmt.Sprint(m.loadErr)),
		"",
		subStyle.Render("press q to quit"),
	)
	return lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
}

func (m Model) renderSignedOut() string {
	content := lipgloss.JoinVertical(lipgloss.Center,
		lipgloss.NewStyle().Foreground(ColorText).Bold(true).Render("Signed out"),
		"",
		lipgloss.NewStyle().Foreground(ColorMuted).Render("press q to quit"),
	)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func (m Model) renderGraphTab() string {
	canvas := m.canvas.View()
	body := canvas
	if panel := m.sliderView(); panel != "" {
		if m.width >= sideBySideMin {
			body = lipgloss.JoinHorizontal(lipgloss.Top, canvas, panel)
		} else {
			body = lipgloss.JoinVertical(lipgloss.Left, panel, canvas)
		}
	}
	return body + "\n" + RenderDivider(m.width) + "\n" + m.analytics.View(m.stats, m.doc, m.width)
}

// renderFooter shows the status message, or the hovered node and key hints.
func (m Model) renderFooter() string {
	if m.statusMsg != "" {
		style := lipgloss.NewStyle().Background(ColorSuccessBg).Foreground(ColorSuccess).Bold(true).Padding(0, 1)
		prefix := "✓ "
		if m.statusIsError {
			style = lipgloss.NewStyle().Background(ColorDangerBg).Foreground(ColorDanger).Bold(true).Padding(0, 1)
			prefix = "✗ "
		}
		return lipgloss.NewStyle().MaxWidth(m.width).Render(style.Render(prefix + m.statusMsg))
	}

	var hints string
	if m.view.ActiveTab == TabGraph {
		if m.sliders.Focused() {
			hints = m.theme.Label.Render(m.sliders.FocusedLabel()) + "  " +
				RenderKeyHints([2]string{"tab", "next"}, [2]string{"←/→", "adjust"}, [2]string{"enter", "apply"}, [2]string{"esc", "done"})
		} else {
			hints = RenderKeyHints([2]string{"←/→", "node"}, [2]string{"enter", "select"}, [2]string{"tab", "sliders"}, [2]string{"s", "toggle"}, [2]string{"i", "insert"}, [2]string{"q", "quit"})
			if !m.view.SlidersVisible {
				hints = m.theme.MutedText.Render(m.sliders.Summary()) + "  " + hints
			}
		}
	} else {
		hints = RenderKeyHints([2]string{"esc", "graph"}, [2]string{"y", "copy"}, [2]string{"i", "insert"}, [2]string{"q", "quit"})
	}
	if m.hovered != "" {
		hover := m.theme.InfoBold.Render(truncateRunesHelper(m.hovered, 30, "…"))
		hints = hover + "  " + hints
	}
	return lipgloss.NewStyle().MaxWidth(m.width).Render(hints)
}

func (m Model) View() string {
	if m.signedOut {
		return m.renderSignedOut()
	}
	header := m.renderGlobalHeader()

	var body string
	switch m.loadState {
	case loader.StatePending:
		return header + "\n" + m.renderLoadingScreen()
	case loader.StateFailed:
		return header + "\n" + m.renderFailedScreen()
	}

	if m.view.ActiveTab == TabDetails {
		body = m.detail.View()
	} else {
		body = m.renderGraphTab()
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, m.renderTabBar(), body, m.renderFooter())
}

// ViewState returns the tab/selection state.
func (m Model) ViewState() ViewState { return m.view }

// Thresholds returns the current thresholds.
func (m Model) Thresholds() filter.Thresholds { return m.sliders.Thresholds() }

// Filtered returns the current derived graph, nil until the dataset loads.
func (m Model) Filtered() *filter.FilteredGraph { return m.filtered }

// LoadState reports the dataset lifecycle.
func (m Model) LoadState() loader.State { return m.loadState }

// SignedOut reports whether the user signed out of this page.
func (m Model) SignedOut() bool { return m.signedOut }
