package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/vanderheijden86/kerrigan/pkg/analysis"
	"github.com/vanderheijden86/kerrigan/pkg/filter"
	"github.com/vanderheijden86/kerrigan/pkg/model"
)

const noSelectionText = "Click on a node to see its details"

// DetailPanel shows the selected node's label, content and its position in
// the visible subgraph.
type DetailPanel struct {
	theme      Theme
	vp         viewport.Model
	mdRenderer *glamour.TermRenderer
	wrap       int
}

// NewDetailPanel creates the panel with a markdown renderer sized for width.
func NewDetailPanel(theme Theme, width, height int) DetailPanel {
	d := DetailPanel{theme: theme, vp: viewport.New(width, height)}
	d.setRenderer(width)
	return d
}

func (d *DetailPanel) setRenderer(width int) {
	wrap := clampInt(width-4, 20, 100)
	if d.mdRenderer != nil && wrap == d.wrap {
		return
	}
	// A nil renderer falls back to raw markdown.
	r, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	d.mdRenderer, d.wrap = r, wrap
}

// SetSize resizes the viewport.
func (d *DetailPanel) SetSize(width, height int) {
	d.vp.Width, d.vp.Height = width, height
	d.setRenderer(width)
}

// SetNode refreshes the content. A nil node shows the empty-selection hint.
func (d *DetailPanel) SetNode(n *model.Node, fg *filter.FilteredGraph, stats *analysis.Stats) {
	if n == nil {
		d.vp.SetContent(d.theme.MutedText.Render(noSelectionText))
		d.vp.GotoTop()
		return
	}
	md := NodeMarkdown(*n, fg, stats)
	out := md
	if d.mdRenderer != nil {
		if rendered, err := d.mdRenderer.Render(md); err == nil {
			out = rendered
		}
	}
	d.vp.SetContent(out)
	d.vp.GotoTop()
}

// Update forwards scrolling keys to the viewport.
func (d DetailPanel) Update(msg tea.Msg) (DetailPanel, tea.Cmd) {
	var cmd tea.Cmd
	d.vp, cmd = d.vp.Update(msg)
	return d, cmd
}

// View renders the panel.
func (d DetailPanel) View() string {
	header := d.theme.InfoBold.Render("Node Details")
	return header + "\n" + d.vp.View()
}

// NodeMarkdown builds the markdown body for a node. Links are those visible
// under the current thresholds.
func NodeMarkdown(n model.Node, fg *filter.FilteredGraph, stats *analysis.Stats) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s\n\n", n.DisplayLabel())
	fmt.Fprintf(&sb, "`%s`\n\n", n.ID)
	if strings.TrimSpace(n.Content) != "" {
		fmt.Fprintf(&sb, "**Content:** %s\n\n", n.Content)
	} else {
		sb.WriteString("**Content:** _none_\n\n")
	}

	if stats != nil {
		ns := stats.Node(n.ID)
		sb.WriteString("| Metric | Value |\n|---|---|\n")
		fmt.Fprintf(&sb, "| In | %d |\n", ns.InDegree)
		fmt.Fprintf(&sb, "| Out | %d |\n", ns.OutDegree)
		fmt.Fprintf(&sb, "| PageRank | %.4f |\n", ns.PageRank)
		fmt.Fprintf(&sb, "| Component | %d nodes |\n", ns.ComponentSize)
		fmt.Fprintf(&sb, "| Mean strength | %.2f |\n\n", ns.MeanStrength)
	}

	if fg == nil {
		return sb.String()
	}
	var out []string
	for _, l := range fg.Links {
		if l.Source == n.ID {
			out = append(out, fmt.Sprintf("- → `%s` strength %.2f, time %.2f, risk %.1f", l.Target, l.Strength, l.Time, l.Risk))
		}
	}
	if len(out) > 0 {
		sb.WriteString("### Visible links\n\n")
		sb.WriteString(strings.Join(out, "\n"))
		sb.WriteString("\n")
	}
	return sb.String()
}
