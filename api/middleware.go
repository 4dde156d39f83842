package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/yu23ki14/Footprint-Jibungoto/domain"
)

const (
	sessionCookie = "action_session"

	ctxSession  = "session"
	ctxCategory = "category"
	ctxIdentity = "identity"
)

// SessionMiddleware makes sure every request carries a session id, issuing
// a new cookie when the browser has none or presents a malformed one.
func SessionMiddleware(secure bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := ""
			if cookie, err := c.Cookie(sessionCookie); err == nil {
				if parsed, perr := uuid.Parse(cookie.Value); perr == nil {
					id = parsed.String()
				}
			}
			if id == "" {
				id = uuid.NewString()
				c.SetCookie(&http.Cookie{
					Name:     sessionCookie,
					Value:    id,
					Path:     "/",
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			c.Set(ctxSession, id)
			return next(c)
		}
	}
}

// categoryMiddleware resolves the :category path parameter. Categories
// outside the fixed set are not served.
func categoryMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			category, ok := domain.ParseCategory(c.Param("category"))
			if !ok {
				return echo.ErrNotFound
			}
			c.Set(ctxCategory, category)
			return next(c)
		}
	}
}

func authMiddleware(auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, err := auth.Identify(authorizationFromRequest(c.Request()))
			if err != nil {
				return c.String(http.StatusUnauthorized, err.Error())
			}
			c.Set(ctxIdentity, id)
			return next(c)
		}
	}
}

func sessionID(c echo.Context) string {
	id, _ := c.Get(ctxSession).(string)
	return id
}

func categoryOf(c echo.Context) domain.Category {
	category, _ := c.Get(ctxCategory).(domain.Category)
	return category
}

func identityOf(c echo.Context) Identity {
	id, _ := c.Get(ctxIdentity).(Identity)
	return id
}
