package domain

import (
	"errors"
	"strconv"

	"github.com/bytedance/sonic"
)

const (
	fieldID                   = "id"
	fieldActionIntensityRates = "actionIntensityRates"
	fieldEstimate             = "estimate"
)

// ErrProfileWithoutID is returned when a decoded profile carries no usable id.
var ErrProfileWithoutID = errors.New("profile without id")

// Profile is the user's record owned by the profile backend. Only the id is
// interpreted here; every other attribute is carried through untouched.
type Profile struct {
	ID         string
	Attributes map[string]any
}

func (p *Profile) UnmarshalJSON(data []byte) error {
	attrs := map[string]any{}
	if err := sonic.Unmarshal(data, &attrs); err != nil {
		return err
	}
	switch id := attrs[fieldID].(type) {
	case string:
		p.ID = id
	case float64:
		p.ID = strconv.FormatFloat(id, 'f', -1, 64)
	}
	if p.ID == "" {
		return ErrProfileWithoutID
	}
	p.Attributes = attrs
	return nil
}

func (p Profile) MarshalJSON() ([]byte, error) {
	attrs := make(map[string]any, len(p.Attributes)+1)
	for k, v := range p.Attributes {
		attrs[k] = v
	}
	if p.ID != "" {
		if _, ok := attrs[fieldID]; !ok {
			attrs[fieldID] = p.ID
		}
	}
	return sonic.Marshal(attrs)
}

// ProfileUpdate is the PUT body: the existing profile merged with the
// collected rates and the estimate flag.
type ProfileUpdate map[string]any

// NewProfileUpdate merges the existing profile (which may be nil) with the
// rates. The profile's own attribute map is not modified.
func NewProfileUpdate(profile *Profile, rates []*float64) ProfileUpdate {
	update := ProfileUpdate{}
	if profile != nil {
		for k, v := range profile.Attributes {
			update[k] = v
		}
		if profile.ID != "" {
			if _, ok := update[fieldID]; !ok {
				update[fieldID] = profile.ID
			}
		}
	}
	if rates == nil {
		rates = []*float64{}
	}
	update[fieldActionIntensityRates] = rates
	update[fieldEstimate] = true
	return update
}

// Rates returns the intensity rates carried by the update.
func (u ProfileUpdate) Rates() []*float64 {
	rates, _ := u[fieldActionIntensityRates].([]*float64)
	return rates
}
