package api

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/yu23ki14/Footprint-Jibungoto/domain"
	"github.com/yu23ki14/Footprint-Jibungoto/page"
	"github.com/yu23ki14/Footprint-Jibungoto/profiles"
)

const completeRoute = "/category/:category/action/complete"

// Deps bundles what the handlers need.
type Deps struct {
	Page          Controller
	Sessions      SessionStore
	Profiles      ProfileReader
	InFlight      InFlightGuard
	Auth          Authenticator
	Log           *log.Logger
	SecureCookies bool
}

type handlers struct {
	page     Controller
	sessions SessionStore
	profiles ProfileReader
	inflight InFlightGuard
	log      *log.Logger
}

// Register wires up all page routes on the provided Echo instance.
func Register(e *echo.Echo, d Deps) {
	if d.Log == nil {
		panic("api.Register: logger is nil")
	}
	if e.Renderer == nil {
		e.Renderer = newRenderer()
	}
	e.JSONSerializer = sonicSerializer{}
	h := &handlers{
		page:     d.Page,
		sessions: d.Sessions,
		profiles: d.Profiles,
		inflight: d.InFlight,
		log:      d.Log,
	}

	e.GET("/healthz", healthz())

	g := e.Group("/category/:category",
		categoryMiddleware(),
		authMiddleware(d.Auth),
		SessionMiddleware(d.SecureCookies),
	)
	g.GET("/action", h.show)
	g.GET("/completion", h.completion)

	post := g.Group("/action", middleware.BodyLimit(postFormMaxSize))
	post.POST("/check", h.check)
	post.POST("/select", h.selectAction)
	post.POST("/close", h.closeDialog)
	post.POST("/rate", h.changeRate)
	post.POST("/complete", h.complete)
}

// StaticPaths lists the pages to pre-render: one action page per category.
func StaticPaths() []string {
	categories := domain.Categories()
	paths := make([]string, 0, len(categories))
	for _, c := range categories {
		paths = append(paths, c.ActionPath())
	}
	return paths
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

// state returns the session's working copy, loading the category fresh
// when the session has none yet. Loading is derived from the guard.
func (h *handlers) state(c echo.Context) (*page.State, error) {
	ctx := c.Request().Context()
	sid := sessionID(c)
	category := categoryOf(c)

	s, err := h.sessions.Load(ctx, sid, category)
	if err != nil {
		return nil, err
	}
	if s == nil {
		s = h.page.Load(ctx, category)
	}
	active, err := h.inflight.Active(ctx, sid)
	if err != nil {
		h.log.WithError(err).WithField("session", sid).Warn("in-flight lookup failed")
	}
	s.Loading = active
	return s, nil
}

func (h *handlers) save(c echo.Context, s *page.State) error {
	return h.sessions.Save(c.Request().Context(), sessionID(c), s)
}

func (h *handlers) show(c echo.Context) error {
	s, err := h.state(c)
	if err != nil {
		return h.storeFailure(c, "load", err)
	}
	if err := h.save(c, s); err != nil {
		return h.storeFailure(c, "save", err)
	}
	return h.render(c, http.StatusOK, s)
}

func (h *handlers) completion(c echo.Context) error {
	category := categoryOf(c)
	view := completionView{Category: category, ActionPath: category.ActionPath()}
	if wantsJSON(c) {
		return c.JSON(http.StatusOK, map[string]any{"category": category})
	}
	return c.Render(http.StatusOK, completionTemplate, view)
}

func (h *handlers) check(c echo.Context) error {
	id, err := formInt(c, fieldID)
	if err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}
	checked, err := strconv.ParseBool(strings.TrimSpace(c.FormValue(fieldChecked)))
	if err != nil {
		return c.String(http.StatusBadRequest, "invalid checked")
	}
	return h.mutate(c, func(s *page.State) error { return s.ToggleCheck(id, checked) })
}

func (h *handlers) selectAction(c echo.Context) error {
	id, err := formInt(c, fieldID)
	if err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}
	return h.mutate(c, func(s *page.State) error { return s.Select(id) })
}

func (h *handlers) closeDialog(c echo.Context) error {
	return h.mutate(c, func(s *page.State) error {
		s.CloseDialog()
		return nil
	})
}

func (h *handlers) changeRate(c echo.Context) error {
	id, err := formInt(c, fieldID)
	if err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}
	rate, err := strconv.ParseFloat(strings.TrimSpace(c.FormValue(fieldRate)), 64)
	if err != nil || rate < 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return c.String(http.StatusBadRequest, "invalid rate")
	}
	return h.mutate(c, func(s *page.State) error { return s.ChangeRate(id, rate) })
}

// mutate applies one interaction to the working copy. Ids that are not on
// the page leave it unchanged, and so does everything while a submission is
// in flight since the completion overwrites the working copy when it ends.
func (h *handlers) mutate(c echo.Context, apply func(*page.State) error) error {
	s, err := h.state(c)
	if err != nil {
		return h.storeFailure(c, "load", err)
	}
	if s.Loading {
		h.log.WithField("session", sessionID(c)).Debug("interaction ignored: submission in flight")
		return h.afterPost(c, s)
	}
	if err := apply(s); err != nil {
		if !errors.Is(err, page.ErrUnknownAction) {
			return err
		}
		h.log.WithField("session", sessionID(c)).Debug("interaction ignored: unknown action")
	}
	if err := h.save(c, s); err != nil {
		return h.storeFailure(c, "save", err)
	}
	return h.afterPost(c, s)
}

func (h *handlers) complete(c echo.Context) (err error) {
	category := categoryOf(c)
	metrics, ctx := newCompleteRequestMetrics(c.Request().Context(), h.log, completeRoute, string(category))
	c.SetRequest(c.Request().WithContext(ctx))
	defer func() {
		metrics.Log(c.Response().Status, err)
	}()

	sid := sessionID(c)
	s, err := h.state(c)
	if err != nil {
		metrics.SetErrorStage("session_load")
		return h.storeFailure(c, "load", err)
	}
	metrics.SetActionsChecked(len(s.CheckedIDs()))
	if s.SubmitDisabled() {
		metrics.SetOutcome(page.OutcomeDisabled.String())
		return h.afterPost(c, s)
	}

	acquired, gerr := h.inflight.Begin(ctx, sid)
	if gerr != nil {
		metrics.SetErrorStage("inflight")
		h.log.WithError(gerr).WithField("session", sid).Error("in-flight guard failed")
		return c.String(http.StatusInternalServerError, "internal error")
	}
	if !acquired {
		s.Loading = true
		metrics.SetOutcome(page.OutcomeDisabled.String())
		return h.afterPost(c, s)
	}
	defer h.release(ctx, sid)

	identity := identityOf(c)
	profileCtx := profiles.WithBearer(ctx, identity.Token)
	fetchStart := time.Now()
	profile, perr := h.profiles.GetProfile(profileCtx, identity.UserID)
	metrics.ObserveProfileFetch(time.Since(fetchStart), profile != nil)
	if perr != nil {
		// Only a missing profile may fall back to the user id; writing
		// over an unreadable one would replace it wholesale.
		metrics.SetErrorStage("profile_fetch")
		metrics.SetOutcome(page.OutcomeFailed.String())
		h.log.WithError(perr).WithField("user", identity.UserID).Error("profile fetch failed")
		s.Loading = false
		if serr := h.save(c, s); serr != nil {
			return h.storeFailure(c, "save", serr)
		}
		return h.afterPost(c, s)
	}

	submitStart := time.Now()
	res := h.page.Complete(profileCtx, s, profile, identity.UserID)
	metrics.ObserveSubmit(time.Since(submitStart))
	metrics.SetOutcome(res.Outcome.String())

	if res.Outcome == page.OutcomeNavigate {
		if derr := h.sessions.Discard(ctx, sid, category); derr != nil {
			h.log.WithError(derr).WithField("session", sid).Warn("session discard failed")
		}
		if wantsJSON(c) {
			return c.JSON(http.StatusOK, completeResponse{Redirect: res.Redirect})
		}
		return c.Redirect(http.StatusSeeOther, res.Redirect)
	}
	if res.Outcome == page.OutcomeFailed {
		metrics.SetErrorStage("submit")
	}

	s.Loading = false
	if serr := h.save(c, s); serr != nil {
		metrics.SetErrorStage("session_save")
		return h.storeFailure(c, "save", serr)
	}
	return h.afterPost(c, s)
}

// release drops the in-flight marker even when the request was cancelled,
// otherwise the page stays locked until the marker expires.
func (h *handlers) release(ctx context.Context, sid string) {
	if err := h.inflight.End(context.WithoutCancel(ctx), sid); err != nil {
		h.log.WithError(err).WithField("session", sid).Warn("in-flight release failed")
	}
}

// afterPost answers an interaction: JSON clients get the page view, browsers
// are sent back to the page.
func (h *handlers) afterPost(c echo.Context, s *page.State) error {
	if wantsJSON(c) {
		return c.JSON(http.StatusOK, newPageResponse(s))
	}
	return c.Redirect(http.StatusSeeOther, s.Category.ActionPath())
}

func (h *handlers) render(c echo.Context, status int, s *page.State) error {
	view := newPageResponse(s)
	if wantsJSON(c) {
		return c.JSON(status, view)
	}
	return c.Render(status, actionTemplate, view)
}

func (h *handlers) storeFailure(c echo.Context, op string, err error) error {
	h.log.WithError(err).WithFields(log.Fields{
		"session": sessionID(c),
		"op":      op,
	}).Error("session store failed")
	return c.String(http.StatusInternalServerError, "internal error")
}

func wantsJSON(c echo.Context) bool {
	return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}

func formInt(c echo.Context, field string) (int, error) {
	raw := strings.TrimSpace(c.FormValue(field))
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("invalid " + field)
	}
	return v, nil
}
