package ui

import (
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/kerrigan/pkg/filter"
	"github.com/vanderheijden86/kerrigan/pkg/model"
)

const sliderBarWidth = 20

// slider is one threshold control: a bar nudged with ←/→ and a number field
// committed with enter. Strength is edited in percent.
type slider struct {
	attr    model.Attribute
	label   string
	step    float64
	min     float64
	max     float64
	percent bool
	input   textinput.Model
}

func newSlider(attr model.Attribute, label string, step, lo, hi float64, percent bool) slider {
	ti := textinput.New()
	ti.Placeholder = "0"
	ti.CharLimit = 12
	ti.Width = 8
	ti.Prompt = ""
	return slider{attr: attr, label: label, step: step, min: lo, max: hi, percent: percent, input: ti}
}

// display converts a threshold into the unit shown to the user.
func (s slider) display(v float64) float64 {
	if s.percent {
		return filter.StrengthToPercent(v)
	}
	return v
}

// threshold converts a displayed value back into the attribute domain.
func (s slider) threshold(v float64) float64 {
	if s.percent {
		return filter.StrengthFromPercent(v)
	}
	return v
}

func formatValue(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}

// SliderPanel holds the threshold controls and the search field. It owns the
// authoritative Thresholds value for the page.
type SliderPanel struct {
	theme      Theme
	sliders    []slider
	search     textinput.Model
	focus      int // -1 blurred, 0..len(sliders)-1 a slider, len(sliders) search
	thresholds filter.Thresholds
}

// NewSliderPanel builds controls for the active predicates only.
func NewSliderPanel(active filter.Predicate, t filter.Thresholds, theme Theme) SliderPanel {
	var sliders []slider
	if active.Has(filter.PredStrength) {
		sliders = append(sliders, newSlider(model.AttrStrength, "Min Strength", 1, -100, 100, true))
	}
	if active.Has(filter.PredTime) {
		sliders = append(sliders, newSlider(model.AttrTime, "Min Time", 1, 0, 100, false))
	}
	if active.Has(filter.PredRisk) {
		sliders = append(sliders, newSlider(model.AttrRisk, "Min Risk", 0.1, 0, 10, false))
	}

	search := textinput.New()
	search.Placeholder = "Search node..."
	search.CharLimit = 100
	search.Width = 30
	search.SetValue(t.SearchTerm)

	p := SliderPanel{theme: theme, sliders: sliders, search: search, focus: -1, thresholds: t}
	p.syncInputs()
	return p
}

// Thresholds returns the current thresholds.
func (p SliderPanel) Thresholds() filter.Thresholds {
	return p.thresholds
}

// Focused reports whether a control has keyboard focus. While focused the
// panel consumes every key except ctrl+c.
func (p SliderPanel) Focused() bool {
	return p.focus >= 0
}

// FocusedLabel names the control with focus, or "" when blurred.
func (p SliderPanel) FocusedLabel() string {
	switch {
	case p.focus < 0:
		return ""
	case p.focus < len(p.sliders):
		return p.sliders[p.focus].label
	default:
		return "Search"
	}
}

// SetTimeRange widens the time slider to cover the dataset.
func (p SliderPanel) SetTimeRange(doc *model.GraphDocument) SliderPanel {
	if doc == nil {
		return p
	}
	hi := 0.0
	for _, l := range doc.Links {
		if l.Time > hi && !math.IsInf(l.Time, 0) {
			hi = l.Time
		}
	}
	for i := range p.sliders {
		if p.sliders[i].attr == model.AttrTime {
			p.sliders[i].max = math.Max(1, math.Ceil(hi))
		}
	}
	return p
}

// Blur drops keyboard focus.
func (p SliderPanel) Blur() SliderPanel {
	p.focus = -1
	p.applyFocus()
	return p
}

// Update handles a key. changed reports whether the thresholds moved.
func (p SliderPanel) Update(msg tea.KeyMsg) (SliderPanel, tea.Cmd, bool) {
	n := len(p.sliders) + 1
	switch msg.String() {
	case "tab":
		p.focus = (p.focus + 1) % n
		p.applyFocus()
		return p, nil, false
	case "shift+tab":
		if p.focus <= 0 {
			p.focus = n - 1
		} else {
			p.focus--
		}
		p.applyFocus()
		return p, nil, false
	case "esc":
		return p.Blur(), nil, false
	}

	if p.focus < 0 {
		return p, nil, false
	}

	if p.focus == len(p.sliders) {
		prev := p.search.Value()
		var cmd tea.Cmd
		p.search, cmd = p.search.Update(msg)
		if p.search.Value() != prev {
			p.thresholds.SearchTerm = p.search.Value()
			return p, cmd, true
		}
		return p, cmd, false
	}

	s := &p.sliders[p.focus]
	switch msg.String() {
	case "left", "right":
		cur := s.display(p.thresholds.Get(s.attr))
		if msg.String() == "left" {
			cur -= s.step
		} else {
			cur += s.step
		}
		cur = math.Max(s.min, math.Min(s.max, math.Round(cur/s.step)*s.step))
		p.thresholds = p.thresholds.With(s.attr, s.threshold(cur))
		p.syncInputs()
		return p, nil, true
	case "enter":
		prev := s.display(p.thresholds.Get(s.attr))
		v := filter.ParseThreshold(s.input.Value(), prev)
		p.thresholds = p.thresholds.With(s.attr, s.threshold(v))
		p.syncInputs()
		return p, nil, true
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return p, cmd, false
}

func (p *SliderPanel) applyFocus() {
	for i := range p.sliders {
		if i == p.focus {
			p.sliders[i].input.Focus()
		} else {
			p.sliders[i].input.Blur()
		}
	}
	if p.focus == len(p.sliders) {
		p.search.Focus()
	} else {
		p.search.Blur()
	}
}

func (p *SliderPanel) syncInputs() {
	for i := range p.sliders {
		s := &p.sliders[i]
		s.input.SetValue(formatValue(s.display(p.thresholds.Get(s.attr))))
	}
}

// View renders the expanded panel.
func (p SliderPanel) View() string {
	t := p.theme
	var lines []string
	lines = append(lines, t.InfoBold.Render("Adjust Values")+"  "+t.MutedText.Render("[s] minimize"))

	for i, s := range p.sliders {
		v := s.display(p.thresholds.Get(s.attr))
		frac := 0.0
		if s.max > s.min {
			frac = (v - s.min) / (s.max - s.min)
		}
		unit := ""
		if s.percent {
			unit = "%"
		}
		label := padRight(s.label+":", 14)
		if i == p.focus {
			label = t.Selected.Render(label)
		} else {
			label = t.Label.Render(label)
		}
		lines = append(lines, label+" "+RenderMiniBar(frac, sliderBarWidth, t)+" "+s.input.View()+unit)
	}

	searchLabel := padRight("Search:", 14)
	if p.focus == len(p.sliders) {
		searchLabel = t.Selected.Render(searchLabel)
	} else {
		searchLabel = t.Label.Render(searchLabel)
	}
	lines = append(lines, searchLabel+" "+p.search.View())

	return t.Panel.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// CollapsedView renders the affordance shown while the panel is hidden.
func (p SliderPanel) CollapsedView() string {
	return p.theme.Panel.Render(p.theme.MutedText.Render("[s] Show Sliders"))
}

// Summary is a one-line description of the active thresholds.
func (p SliderPanel) Summary() string {
	parts := make([]string, 0, len(p.sliders)+1)
	for _, s := range p.sliders {
		unit := ""
		if s.percent {
			unit = "%"
		}
		parts = append(parts, string(s.attr)+"≥"+formatValue(s.display(p.thresholds.Get(s.attr)))+unit)
	}
	if p.thresholds.SearchTerm != "" {
		parts = append(parts, "search:"+strconv.Quote(p.thresholds.SearchTerm))
	}
	return strings.Join(parts, "  ")
}
