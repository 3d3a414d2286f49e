package ui

import "github.com/vanderheijden86/kerrigan/pkg/model"

// Tab identifies the visible view.
type Tab int

const (
	TabGraph Tab = iota
	TabDetails
)

func (t Tab) String() string {
	switch t {
	case TabDetails:
		return "Details"
	default:
		return "Graph"
	}
}

// ViewState is the tab/selection/slider-visibility state of the page.
// Transitions return a new value and never touch the thresholds.
type ViewState struct {
	ActiveTab      Tab
	Selected       *model.Node
	SlidersVisible bool
}

// NewViewState returns the state of a freshly mounted page.
func NewViewState() ViewState {
	return ViewState{ActiveTab: TabGraph, SlidersVisible: true}
}

// SelectNode records the selection and switches to Details in one step, so
// no observer sees the new selection with the old tab.
func (v ViewState) SelectNode(n model.Node) ViewState {
	v.Selected = &n
	v.ActiveTab = TabDetails
	return v
}

// SwitchTab changes the active tab. Selection is kept.
func (v ViewState) SwitchTab(t Tab) ViewState {
	v.ActiveTab = t
	return v
}

// ToggleSliders flips slider panel visibility.
func (v ViewState) ToggleSliders() ViewState {
	v.SlidersVisible = !v.SlidersVisible
	return v
}
