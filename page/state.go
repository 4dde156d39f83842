// Package page holds the action category page: the per-session working copy
// of a category's actions and the controller that submits it.
package page

import (
	"errors"

	"github.com/yu23ki14/Footprint-Jibungoto/domain"
)

// ErrUnknownAction is returned when an interaction names an id that is not in
// the working list.
var ErrUnknownAction = errors.New("unknown action")

// State is the page-local view state. It is serialised between requests, so
// every field is exported.
type State struct {
	Category   domain.Category `json:"category"`
	Open       bool            `json:"open"`
	Loading    bool            `json:"loading"`
	Actions    []domain.Action `json:"categorizeActions"`
	SelectedID *int            `json:"selectedActionId,omitempty"`
}

// NewState returns an empty state for the category.
func NewState(category domain.Category) *State {
	return &State{Category: category, Actions: []domain.Action{}}
}

// Load replaces the working list with a copy of the category's actions.
func (s *State) Load(catalog domain.Catalog) {
	s.Actions = domain.CloneActions(catalog[s.Category])
	s.Open = false
	s.SelectedID = nil
}

// ToggleCheck sets the checked flag of one action.
func (s *State) ToggleCheck(id int, checked bool) error {
	next, ok := domain.WithChecked(s.Actions, id, checked)
	if !ok {
		return ErrUnknownAction
	}
	s.Actions = next
	return nil
}

// Select targets the rate dialog at an action and opens it.
func (s *State) Select(id int) error {
	if _, ok := domain.Find(s.Actions, id); !ok {
		return ErrUnknownAction
	}
	s.SelectedID = &id
	s.Open = true
	return nil
}

// CloseDialog hides the rate dialog.
func (s *State) CloseDialog() {
	s.Open = false
}

// ChangeRate overwrites the chosen rate of one action. The dialog is closed
// even when the id is unknown.
func (s *State) ChangeRate(id int, rate float64) error {
	s.Open = false
	next, ok := domain.WithRate(s.Actions, id, rate)
	if !ok {
		return ErrUnknownAction
	}
	s.Actions = next
	return nil
}

// SubmitDisabled mirrors the completion button: nothing checked or a
// submission already running.
func (s *State) SubmitDisabled() bool {
	return !domain.AnyChecked(s.Actions) || s.Loading
}

// Eligible reports whether a submission would be sent. Returning users
// (profile present) always qualify; first-time users need a rate on every
// action.
func (s *State) Eligible(profile *domain.Profile) bool {
	return profile != nil || domain.RatesComplete(s.Actions)
}

// Rates returns the actionIntensityRates payload in list order.
func (s *State) Rates() []*float64 {
	return domain.IntensityRates(s.Actions)
}

// CheckedIDs lists the ids of checked actions in list order.
func (s *State) CheckedIDs() []int {
	ids := []int{}
	for _, a := range s.Actions {
		if a.Checked {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

// Dialog describes the rate dialog for rendering.
type Dialog struct {
	Visible  bool    `json:"visible"`
	ActionID int     `json:"actionId"`
	Rate     float64 `json:"rate"`
	Unit     string  `json:"unit,omitempty"`
}

// Dialog returns the dialog view. It is only visible while open and when the
// selected action has a catalog default to start from.
func (s *State) Dialog() Dialog {
	if s.SelectedID == nil {
		return Dialog{}
	}
	action, ok := domain.Find(s.Actions, *s.SelectedID)
	if !ok || action.IntensityRate == nil || action.IntensityRate.DefaultValue == nil {
		return Dialog{}
	}
	d := Dialog{
		Visible:  s.Open,
		ActionID: action.ID,
		Rate:     *action.IntensityRate.Effective(),
		Unit:     action.IntensityRate.Unit,
	}
	return d
}
