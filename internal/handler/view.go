package handler

import (
    "fmt"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/ggame-miniapp/internal/model"
    "github.com/iliyamo/ggame-miniapp/internal/viewstate"
)

// ViewHandler exposes a session's view store.  Reads and mutations always
// answer 200 with the resulting view; a failed operation shows up in the
// view's error field, exactly as the store records it.
type ViewHandler struct{}

// Derived holds the computed getters of the view store.
type Derived struct {
    UserCoins   int64           `json:"user_coins"`
    UserGems    int64           `json:"user_gems"`
    DeckStats   model.DeckStats `json:"deck_stats"`
    IsDeckValid bool            `json:"is_deck_valid"`
}

// ViewResponse is the body of every view route.  OK is set only on
// mutation routes.
type ViewResponse struct {
    OK      *bool               `json:"ok,omitempty"`
    State   viewstate.ViewState `json:"state"`
    Derived Derived             `json:"derived"`
}

func render(c echo.Context, v *viewstate.Store, ok *bool) error {
    return c.JSON(http.StatusOK, ViewResponse{
        OK:    ok,
        State: v.Snapshot(),
        Derived: Derived{
            UserCoins:   v.UserCoins(),
            UserGems:    v.UserGems(),
            DeckStats:   v.DeckStats(),
            IsDeckValid: v.IsDeckValid(),
        },
    })
}

// read wraps a store read into a handler that renders the view afterwards.
func read(fn func(v *viewstate.Store, c echo.Context)) echo.HandlerFunc {
    return func(c echo.Context) error {
        s, err := currentSession(c)
        if err != nil {
            return err
        }
        if fn != nil {
            fn(s.View, c)
        }
        return render(c, s.View, nil)
    }
}

// Get handles GET /v1/view.
func (h *ViewHandler) Get(c echo.Context) error { return read(nil)(c) }

// FetchProfile handles POST /v1/view/profile.
func (h *ViewHandler) FetchProfile(c echo.Context) error {
    return read(func(v *viewstate.Store, c echo.Context) { v.FetchUserProfile(c.Request().Context()) })(c)
}

// FetchUser handles POST /v1/view/user.
func (h *ViewHandler) FetchUser(c echo.Context) error {
    return read(func(v *viewstate.Store, c echo.Context) { v.FetchUser(c.Request().Context()) })(c)
}

// FetchDeck handles POST /v1/view/deck.
func (h *ViewHandler) FetchDeck(c echo.Context) error {
    return read(func(v *viewstate.Store, c echo.Context) { v.FetchDeck(c.Request().Context()) })(c)
}

// FetchInventory handles POST /v1/view/inventory.
func (h *ViewHandler) FetchInventory(c echo.Context) error {
    return read(func(v *viewstate.Store, c echo.Context) { v.FetchInventory(c.Request().Context()) })(c)
}

// FetchTemplates handles POST /v1/view/templates.
func (h *ViewHandler) FetchTemplates(c echo.Context) error {
    return read(func(v *viewstate.Store, c echo.Context) { v.FetchCardTemplates(c.Request().Context()) })(c)
}

// ClearError handles DELETE /v1/view/error.
func (h *ViewHandler) ClearError(c echo.Context) error {
    return read(func(v *viewstate.Store, _ echo.Context) { v.ClearError() })(c)
}

type addCardBody struct {
    CardID   int64 `json:"card_id"`
    Position int   `json:"position"`
}

// AddCard handles POST /v1/view/deck/cards.
func (h *ViewHandler) AddCard(c echo.Context) error {
    s, err := currentSession(c)
    if err != nil {
        return err
    }
    var body addCardBody
    if err := c.Bind(&body); err != nil || body.CardID <= 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "card_id is required"})
    }
    if !validPosition(body.Position) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": positionHint})
    }
    ok := s.View.AddCardToDeck(c.Request().Context(), body.CardID, body.Position)
    return render(c, s.View, &ok)
}

var positionHint = fmt.Sprintf("position must be between 1 and %d", model.MaxDeckCards)

// validPosition reports whether pos names a deck slot.
func validPosition(pos int) bool { return pos >= 1 && pos <= model.MaxDeckCards }

// RemoveCard handles DELETE /v1/view/deck/cards/:position.
func (h *ViewHandler) RemoveCard(c echo.Context) error {
    s, err := currentSession(c)
    if err != nil {
        return err
    }
    pos, err := strconv.Atoi(c.Param("position"))
    if err != nil || !validPosition(pos) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": positionHint})
    }
    ok := s.View.RemoveCardFromDeck(c.Request().Context(), pos)
    return render(c, s.View, &ok)
}

// Acquire handles POST /v1/view/shop/acquire with {"template_id": n}.
func (h *ViewHandler) Acquire(c echo.Context) error {
    s, err := currentSession(c)
    if err != nil {
        return err
    }
    var body struct {
        TemplateID int64 `json:"template_id"`
    }
    if err := c.Bind(&body); err != nil || body.TemplateID <= 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "template_id is required"})
    }
    ok := s.View.AcquireCard(c.Request().Context(), body.TemplateID)
    return render(c, s.View, &ok)
}

// Sell handles POST /v1/view/cards/:id/sell.
func (h *ViewHandler) Sell(c echo.Context) error {
    s, err := currentSession(c)
    if err != nil {
        return err
    }
    id, err := strconv.ParseInt(c.Param("id"), 10, 64)
    if err != nil || id <= 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid card id"})
    }
    ok := s.View.SellCard(c.Request().Context(), id)
    return render(c, s.View, &ok)
}
