package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/kerrigan/pkg/analysis"
	"github.com/vanderheijden86/kerrigan/pkg/model"
)

// Timeframes are the selectable analytics windows.
var Timeframes = []string{"1D", "5D", "1M", "1Y", "5Y", "Max"}

// AnalyticsStrip is the "Portfolio Analytics" footer of the Graph tab. The
// timeframe is presentational; the figures summarize the visible links.
type AnalyticsStrip struct {
	theme     Theme
	timeframe int
}

// NewAnalyticsStrip starts on the named timeframe, or the first one.
func NewAnalyticsStrip(theme Theme, timeframe string) AnalyticsStrip {
	a := AnalyticsStrip{theme: theme}
	for i, tf := range Timeframes {
		if tf == timeframe {
			a.timeframe = i
		}
	}
	return a
}

// Timeframe returns the selected window label.
func (a AnalyticsStrip) Timeframe() string {
	return Timeframes[a.timeframe]
}

// Cycle moves the selection by delta, wrapping around.
func (a AnalyticsStrip) Cycle(delta int) AnalyticsStrip {
	n := len(Timeframes)
	a.timeframe = ((a.timeframe+delta)%n + n) % n
	return a
}

// topRanked is how many nodes the strip lists by PageRank.
const topRanked = 3

// View renders the strip for the given stats. doc supplies display labels for
// the top-ranked nodes and may be nil.
func (a AnalyticsStrip) View(stats *analysis.Stats, doc *model.GraphDocument, width int) string {
	t := a.theme
	tabs := make([]string, len(Timeframes))
	for i, tf := range Timeframes {
		if i == a.timeframe {
			tabs[i] = t.TabActive.Render(tf)
		} else {
			tabs[i] = t.TabIdle.Render(tf)
		}
	}
	title := t.InfoBold.Render("Portfolio Analytics")
	top := lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", strings.Join(tabs, ""))

	var figures string
	if stats == nil {
		figures = t.MutedText.Render("no data")
	} else {
		s := stats.Attributes[model.AttrStrength]
		r := stats.Attributes[model.AttrRisk]
		line := fmt.Sprintf(
			"%d nodes · %d links · %d components · %d isolated · strength μ %.2f · risk μ %.1f",
			stats.NodeCount, stats.LinkCount, len(stats.Components), len(stats.Isolated()), s.Mean, r.Mean)
		if top := topLabels(stats, doc); len(top) > 0 {
			line += " · top: " + strings.Join(top, ", ")
		}
		figures = t.MutedText.Render(line)
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(top + "\n" + figures)
}

func topLabels(stats *analysis.Stats, doc *model.GraphDocument) []string {
	ids := stats.TopByPageRank(topRanked)
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
		if doc == nil {
			continue
		}
		if n, ok := doc.Node(id); ok {
			out[i] = n.DisplayLabel()
		}
	}
	return out
}
