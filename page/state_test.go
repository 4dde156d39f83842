package page

import (
	"errors"
	"testing"

	"github.com/yu23ki14/Footprint-Jibungoto/domain"
)

func mobilityCatalog() domain.Catalog {
	return domain.Catalog{
		domain.Mobility: {
			{ID: 1, Title: "Walk short trips", IntensityRate: &domain.IntensityRate{DefaultValue: domain.Float(3), Unit: "km"}},
			{ID: 2, Title: "Car sharing"},
			{ID: 3, Title: "Take the train", IntensityRate: &domain.IntensityRate{DefaultValue: domain.Float(10), Unit: "km"}},
		},
		domain.Food: {
			{ID: 1, Title: "Local vegetables", IntensityRate: &domain.IntensityRate{DefaultValue: domain.Float(1)}},
		},
	}
}

func loadedState(t *testing.T) *State {
	t.Helper()
	s := NewState(domain.Mobility)
	s.Load(mobilityCatalog())
	return s
}

func TestLoadCopiesCategoryList(t *testing.T) {
	catalog := mobilityCatalog()
	s := NewState(domain.Mobility)
	s.Load(catalog)

	if len(s.Actions) != 3 {
		t.Fatalf("expected 3 actions, got %d", len(s.Actions))
	}
	if err := s.ChangeRate(1, 8); err != nil {
		t.Fatalf("change rate: %v", err)
	}
	if catalog[domain.Mobility][0].IntensityRate.Value != nil {
		t.Fatalf("catalog entry was aliased by the working copy")
	}
}

func TestLoadMissingCategoryYieldsEmptyList(t *testing.T) {
	s := NewState(domain.Housing)
	s.Load(mobilityCatalog())
	if s.Actions == nil || len(s.Actions) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", s.Actions)
	}
	if !s.SubmitDisabled() {
		t.Fatalf("expected submit disabled for empty list")
	}
}

func TestToggleCheckOnlyChangesTarget(t *testing.T) {
	s := loadedState(t)
	if err := s.ToggleCheck(3, true); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	before := append([]domain.Action(nil), s.Actions...)

	if err := s.ToggleCheck(2, true); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	for i, a := range s.Actions {
		if a.ID == 2 {
			if !a.Checked {
				t.Fatalf("expected action 2 checked")
			}
			continue
		}
		if a.Checked != before[i].Checked {
			t.Fatalf("action %d changed from %v to %v", a.ID, before[i].Checked, a.Checked)
		}
	}

	if err := s.ToggleCheck(3, false); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if s.Actions[2].Checked || !s.Actions[1].Checked {
		t.Fatalf("unexpected flags after uncheck: %#v", s.Actions)
	}
}

func TestToggleCheckUnknownAction(t *testing.T) {
	s := loadedState(t)
	if err := s.ToggleCheck(42, true); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
}

func TestChangeRateTargetsOneActionAndClosesDialog(t *testing.T) {
	s := loadedState(t)
	if err := s.Select(1); err != nil {
		t.Fatalf("select: %v", err)
	}
	if !s.Open {
		t.Fatalf("expected dialog open after select")
	}

	if err := s.ChangeRate(1, 7); err != nil {
		t.Fatalf("change rate: %v", err)
	}
	if s.Open {
		t.Fatalf("expected dialog closed after rate change")
	}
	if got := *s.Actions[0].IntensityRate.Value; got != 7 {
		t.Fatalf("expected rate 7, got %v", got)
	}
	if s.Actions[2].IntensityRate.Value != nil {
		t.Fatalf("expected other action rate untouched")
	}
}

func TestChangeRateUnknownActionStillClosesDialog(t *testing.T) {
	s := loadedState(t)
	_ = s.Select(1)
	if err := s.ChangeRate(99, 1); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
	if s.Open {
		t.Fatalf("expected dialog closed")
	}
}

func TestSubmitDisabled(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(*State)
		want    bool
	}{
		{name: "nothing_checked", prepare: func(*State) {}, want: true},
		{name: "one_checked", prepare: func(s *State) { _ = s.ToggleCheck(2, true) }, want: false},
		{name: "in_flight", prepare: func(s *State) {
			_ = s.ToggleCheck(2, true)
			s.Loading = true
		}, want: true},
		{name: "empty_list", prepare: func(s *State) { s.Actions = nil }, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := loadedState(t)
			tt.prepare(s)
			if got := s.SubmitDisabled(); got != tt.want {
				t.Fatalf("SubmitDisabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEligible(t *testing.T) {
	s := loadedState(t)
	if s.Eligible(nil) {
		t.Fatalf("expected first-time user with missing rate to be ineligible")
	}
	if !s.Eligible(&domain.Profile{ID: "p"}) {
		t.Fatalf("expected returning user to be eligible")
	}
	_ = s.ChangeRate(2, 5)
	if !s.Eligible(nil) {
		t.Fatalf("expected complete rates to be eligible")
	}
}

func TestDialogVisibility(t *testing.T) {
	s := loadedState(t)
	if s.Dialog().Visible {
		t.Fatalf("dialog visible without selection")
	}

	_ = s.Select(2)
	if s.Dialog().Visible {
		t.Fatalf("dialog visible for action without default rate")
	}

	_ = s.Select(3)
	d := s.Dialog()
	if !d.Visible || d.ActionID != 3 || d.Rate != 10 || d.Unit != "km" {
		t.Fatalf("unexpected dialog %#v", d)
	}

	_ = s.ChangeRate(3, 4)
	_ = s.Select(3)
	if got := s.Dialog().Rate; got != 4 {
		t.Fatalf("expected dialog to show chosen value 4, got %v", got)
	}

	s.CloseDialog()
	if s.Dialog().Visible {
		t.Fatalf("dialog visible after close")
	}
}
