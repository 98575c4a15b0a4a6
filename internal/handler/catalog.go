package handler

import (
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"
    "golang.org/x/sync/errgroup"

    "github.com/iliyamo/ggame-miniapp/internal/gameapi"
    "github.com/iliyamo/ggame-miniapp/internal/model"
)

// CatalogHandler serves the knowledge-base reads: universes, seasons,
// items and templates.  Responses do not depend on the player and are
// cached by the Redis middleware.
type CatalogHandler struct{}

// Overview is the combined catalogue.
type Overview struct {
    Universes     []model.AnimeUniverse `json:"universes"`
    Seasons       []model.Season        `json:"seasons"`
    Items         []model.Item          `json:"items"`
    CardTemplates []model.CardTemplate  `json:"card_templates"`
}

func queryFilter(c echo.Context) gameapi.Filter {
    f := gameapi.Filter{}
    for k, v := range c.QueryParams() {
        if len(v) > 0 {
            f[k] = v[0]
        }
    }
    return f
}

// Universes handles GET /v1/catalog/universes.
func (h *CatalogHandler) Universes(c echo.Context) error {
    s, err := currentSession(c)
    if err != nil {
        return err
    }
    out, err := s.API.GetAnimeUniverses(c.Request().Context())
    if err != nil {
        return backendError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": nonNil(out)})
}

// Seasons handles GET /v1/catalog/seasons?universe=<id>.
func (h *CatalogHandler) Seasons(c echo.Context) error {
    s, err := currentSession(c)
    if err != nil {
        return err
    }
    var universe int64
    if raw := c.QueryParam("universe"); raw != "" {
        universe, err = strconv.ParseInt(raw, 10, 64)
        if err != nil || universe < 0 {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid universe"})
        }
    }
    out, err := s.API.GetSeasons(c.Request().Context(), universe)
    if err != nil {
        return backendError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": nonNil(out)})
}

// Items handles GET /v1/catalog/items.  Query parameters are passed to
// the backend as filters.
func (h *CatalogHandler) Items(c echo.Context) error {
    s, err := currentSession(c)
    if err != nil {
        return err
    }
    out, err := s.API.GetItems(c.Request().Context(), queryFilter(c))
    if err != nil {
        return backendError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": nonNil(out)})
}

// Overview handles GET /v1/catalog/overview.  The four reads run
// concurrently; the first failure cancels the rest and is returned.
func (h *CatalogHandler) Overview(c echo.Context) error {
    s, err := currentSession(c)
    if err != nil {
        return err
    }

    var out Overview
    g, ctx := errgroup.WithContext(c.Request().Context())
    g.Go(func() (err error) {
        out.Universes, err = s.API.GetAnimeUniverses(ctx)
        return err
    })
    g.Go(func() (err error) {
        out.Seasons, err = s.API.GetSeasons(ctx, 0)
        return err
    })
    g.Go(func() (err error) {
        out.Items, err = s.API.GetItems(ctx, nil)
        return err
    })
    g.Go(func() (err error) {
        out.CardTemplates, err = s.API.GetCardTemplates(ctx, nil)
        return err
    })
    if err := g.Wait(); err != nil {
        return backendError(c, err)
    }

    out.Universes = nonNil(out.Universes)
    out.Seasons = nonNil(out.Seasons)
    out.Items = nonNil(out.Items)
    out.CardTemplates = nonNil(out.CardTemplates)
    return c.JSON(http.StatusOK, out)
}

func nonNil[T any](s []T) []T {
    if s == nil {
        return []T{}
    }
    return s
}
