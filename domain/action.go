package domain

// IntensityRate describes how strongly an action applies. DefaultValue is
// supplied by the catalog, Value is the user's choice.
type IntensityRate struct {
	DefaultValue *float64 `json:"defaultValue" yaml:"defaultValue"`
	Value        *float64 `json:"value" yaml:"value,omitempty"`
	Unit         string   `json:"unit,omitempty" yaml:"unit,omitempty"`
}

// Effective returns the chosen value, falling back to the default. It
// returns nil when neither is set.
func (r *IntensityRate) Effective() *float64 {
	if r == nil {
		return nil
	}
	if r.Value != nil {
		return r.Value
	}
	return r.DefaultValue
}

func (r *IntensityRate) clone() *IntensityRate {
	if r == nil {
		return nil
	}
	out := &IntensityRate{Unit: r.Unit}
	if r.DefaultValue != nil {
		out.DefaultValue = Float(*r.DefaultValue)
	}
	if r.Value != nil {
		out.Value = Float(*r.Value)
	}
	return out
}

// Action is a single selectable behaviour within a category.
type Action struct {
	ID            int            `json:"id" yaml:"id"`
	Title         string         `json:"title" yaml:"title"`
	Description   string         `json:"description,omitempty" yaml:"description,omitempty"`
	Checked       bool           `json:"checked" yaml:"-"`
	IntensityRate *IntensityRate `json:"actionIntensityRate" yaml:"intensityRate,omitempty"`
}

// Clone returns a deep copy so callers never share rate pointers.
func (a Action) Clone() Action {
	a.IntensityRate = a.IntensityRate.clone()
	return a
}

// Catalog maps each category to its ordered action list.
type Catalog map[Category][]Action

// CloneActions deep copies a list. A nil input yields an empty list.
func CloneActions(actions []Action) []Action {
	out := make([]Action, len(actions))
	for i := range actions {
		out[i] = actions[i].Clone()
	}
	return out
}

// WithChecked returns a new list where only the action with the given id has
// its checked flag replaced. The second result reports whether the id exists.
func WithChecked(actions []Action, id int, checked bool) ([]Action, bool) {
	out := CloneActions(actions)
	for i := range out {
		if out[i].ID == id {
			out[i].Checked = checked
			return out, true
		}
	}
	return out, false
}

// WithRate returns a new list where only the action with the given id has
// its chosen rate replaced. An absent rate object is created on demand.
func WithRate(actions []Action, id int, rate float64) ([]Action, bool) {
	out := CloneActions(actions)
	for i := range out {
		if out[i].ID != id {
			continue
		}
		if out[i].IntensityRate == nil {
			out[i].IntensityRate = &IntensityRate{}
		}
		out[i].IntensityRate.Value = Float(rate)
		return out, true
	}
	return out, false
}

// AnyChecked reports whether at least one action is selected.
func AnyChecked(actions []Action) bool {
	for _, a := range actions {
		if a.Checked {
			return true
		}
	}
	return false
}

// IntensityRates collects the effective rate of every action in list order.
// Entries are nil where an action has no rate at all.
func IntensityRates(actions []Action) []*float64 {
	rates := make([]*float64, len(actions))
	for i := range actions {
		if eff := actions[i].IntensityRate.Effective(); eff != nil {
			rates[i] = Float(*eff)
		}
	}
	return rates
}

// RatesComplete reports whether no entry of IntensityRates would be nil.
func RatesComplete(actions []Action) bool {
	for i := range actions {
		if actions[i].IntensityRate.Effective() == nil {
			return false
		}
	}
	return true
}

// Find returns the action with the given id.
func Find(actions []Action, id int) (Action, bool) {
	for _, a := range actions {
		if a.ID == id {
			return a, true
		}
	}
	return Action{}, false
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
