package api

import (
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"

	"github.com/yu23ki14/Footprint-Jibungoto/domain"
	"github.com/yu23ki14/Footprint-Jibungoto/page"
)

const postFormMaxSize = "16K"

// Form fields accepted by the action routes.
const (
	fieldID      = "id"
	fieldChecked = "checked"
	fieldRate    = "rate"
)

// pageResponse is the JSON view of the page for API clients.
type pageResponse struct {
	Category         domain.Category `json:"category"`
	Actions          []domain.Action `json:"categorizeActions"`
	Open             bool            `json:"open"`
	Loading          bool            `json:"loading"`
	SelectedActionID *int            `json:"selectedActionId,omitempty"`
	SubmitDisabled   bool            `json:"submitDisabled"`
	Dialog           page.Dialog     `json:"dialog"`
}

// completeResponse is returned to JSON clients after a successful submission.
type completeResponse struct {
	Redirect string `json:"redirect"`
}

func newPageResponse(s *page.State) pageResponse {
	return pageResponse{
		Category:         s.Category,
		Actions:          s.Actions,
		Open:             s.Open,
		Loading:          s.Loading,
		SelectedActionID: s.SelectedID,
		SubmitDisabled:   s.SubmitDisabled(),
		Dialog:           s.Dialog(),
	}
}

// sonicSerializer encodes echo JSON responses with sonic.
type sonicSerializer struct{}

func (sonicSerializer) Serialize(c echo.Context, i any, indent string) error {
	enc := sonic.ConfigStd.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (sonicSerializer) Deserialize(c echo.Context, i any) error {
	err := sonic.ConfigStd.NewDecoder(c.Request().Body).Decode(i)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json").SetInternal(err)
	}
	return nil
}
