// Package gameapi is the typed catalogue of game backend operations.
// Every method is a single pipeline call; errors come back exactly as the
// pipeline produced them.
package gameapi

import (
	"context"
	"net/url"
	"strconv"

	"github.com/iliyamo/ggame-miniapp/internal/model"
	"github.com/iliyamo/ggame-miniapp/internal/pipeline"
)

// Requester is the part of the pipeline the client uses.
type Requester interface {
	DoJSON(ctx context.Context, rc pipeline.RequestContext, out any) error
	DoCollection(ctx context.Context, rc pipeline.RequestContext, out any) error
	Identity(ctx context.Context) (string, bool, error)
	RequireIdentity(ctx context.Context) (string, error)
}

const (
	pathDecks            = "/cards/decks/"
	pathActiveDeck       = "/cards/decks/active_deck/"
	pathAddCard          = "/cards/decks/add_card/"
	pathRemoveCard       = "/cards/decks/remove_card/"
	pathTemplates        = "/cards/templates/"
	pathInstances        = "/cards/instances/"
	pathAcquireCard      = "/cards/instances/acquire_card/"
	pathUniverses        = "/cards/universes/"
	pathSeasons          = "/cards/seasons/"
	pathInventory        = "/inventory/inventory/"
	pathInventorySummary = "/inventory/inventory/summary/"
	pathItems            = "/inventory/items/"
	pathProfile          = "/users/profile/"
)

// Client exposes the backend operations used by the view layer.
type Client struct {
	req Requester
}

// New returns a Client sending through req.
func New(req Requester) *Client {
	return &Client{req: req}
}

// Filter is an optional set of query parameters for catalogue reads.
type Filter map[string]string

func (f Filter) values() url.Values {
	if len(f) == 0 {
		return nil
	}
	q := make(url.Values, len(f))
	for k, v := range f {
		if v != "" {
			q.Set(k, v)
		}
	}
	return q
}

// GetDeck returns the player's deck.
func (c *Client) GetDeck(ctx context.Context) (*model.Deck, error) {
	var d model.Deck
	if err := c.req.DoJSON(ctx, pipeline.Get(pathDecks, nil), &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// GetActiveDeck returns the deck flagged active.
func (c *Client) GetActiveDeck(ctx context.Context) (*model.Deck, error) {
	var d model.Deck
	if err := c.req.DoJSON(ctx, pipeline.Get(pathActiveDeck, nil), &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// UpdateDeck replaces the player's deck.
func (c *Client) UpdateDeck(ctx context.Context, deck model.Deck) (*model.Deck, error) {
	var d model.Deck
	if err := c.req.DoJSON(ctx, pipeline.Put(pathDecks, deck), &d); err != nil {
		return nil, err
	}
	return &d, nil
}

type addCardRequest struct {
	CardID   int64 `json:"card_id"`
	Position int   `json:"position"`
}

// AddCardToDeck places a card at a 1-based deck position.
func (c *Client) AddCardToDeck(ctx context.Context, cardID int64, position int) (*model.Deck, error) {
	var d model.Deck
	body := addCardRequest{CardID: cardID, Position: position}
	if err := c.req.DoJSON(ctx, pipeline.Post(pathAddCard, body), &d); err != nil {
		return nil, err
	}
	return &d, nil
}

type removeCardRequest struct {
	Position int `json:"position"`
}

// RemoveCardFromDeck empties a deck position.
func (c *Client) RemoveCardFromDeck(ctx context.Context, position int) (*model.Deck, error) {
	var d model.Deck
	if err := c.req.DoJSON(ctx, pipeline.Post(pathRemoveCard, removeCardRequest{Position: position}), &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// GetCardTemplates lists shop templates, optionally filtered.
func (c *Client) GetCardTemplates(ctx context.Context, f Filter) ([]model.CardTemplate, error) {
	var out []model.CardTemplate
	if err := c.req.DoCollection(ctx, pipeline.Get(pathTemplates, f.values()), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetUserCards lists the cards the player owns.
func (c *Client) GetUserCards(ctx context.Context) ([]model.CardInstance, error) {
	var out []model.CardInstance
	if err := c.req.DoCollection(ctx, pipeline.Get(pathInstances, nil), &out); err != nil {
		return nil, err
	}
	return out, nil
}

type acquireRequest struct {
	TemplateID int64 `json:"template_id"`
}

// AcquireCard buys a new card rolled from a template.
func (c *Client) AcquireCard(ctx context.Context, templateID int64) (*model.CardInstance, error) {
	var card model.CardInstance
	if err := c.req.DoJSON(ctx, pipeline.Post(pathAcquireCard, acquireRequest{TemplateID: templateID}), &card); err != nil {
		return nil, err
	}
	return &card, nil
}

// SellCard sells an owned card.
func (c *Client) SellCard(ctx context.Context, cardID int64) (*model.SaleResult, error) {
	var res model.SaleResult
	endpoint := pathInstances + strconv.FormatInt(cardID, 10) + "/sell_card/"
	if err := c.req.DoJSON(ctx, pipeline.Post(endpoint, nil), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// GetInventory lists the player's item stacks.
func (c *Client) GetInventory(ctx context.Context) ([]model.InventoryEntry, error) {
	var out []model.InventoryEntry
	if err := c.req.DoCollection(ctx, pipeline.Get(pathInventory, nil), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetInventorySummary aggregates the player's inventory.
func (c *Client) GetInventorySummary(ctx context.Context) (*model.InventorySummary, error) {
	var s model.InventorySummary
	if err := c.req.DoJSON(ctx, pipeline.Get(pathInventorySummary, nil), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetItems lists the item shop, optionally filtered.
func (c *Client) GetItems(ctx context.Context, f Filter) ([]model.Item, error) {
	var out []model.Item
	if err := c.req.DoCollection(ctx, pipeline.Get(pathItems, f.values()), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetAnimeUniverses lists all universes.
func (c *Client) GetAnimeUniverses(ctx context.Context) ([]model.AnimeUniverse, error) {
	var out []model.AnimeUniverse
	if err := c.req.DoCollection(ctx, pipeline.Get(pathUniverses, nil), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetSeasons lists seasons. A universeID of zero lists every universe.
func (c *Client) GetSeasons(ctx context.Context, universeID int64) ([]model.Season, error) {
	var q url.Values
	if universeID != 0 {
		q = url.Values{"universe": {strconv.FormatInt(universeID, 10)}}
	}
	var out []model.Season
	if err := c.req.DoCollection(ctx, pipeline.Get(pathSeasons, q), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetUserProfile returns the aggregate of user, deck and owned cards for
// the stored identity. Without a stored identity the backend falls back
// to the authenticated user.
func (c *Client) GetUserProfile(ctx context.Context) (*model.Profile, error) {
	id, ok, err := c.req.Identity(ctx)
	if err != nil {
		return nil, err
	}
	var q url.Values
	if ok {
		q = url.Values{"telegram_id": {id}}
	}
	var p model.Profile
	if err := c.req.DoJSON(ctx, pipeline.Get(pathProfile, q), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetCurrentUser looks the stored identity up by its platform id.
func (c *Client) GetCurrentUser(ctx context.Context) (*model.User, error) {
	id, err := c.req.RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	var u model.User
	if err := c.req.DoJSON(ctx, pipeline.Get("/users/by_telegram/"+url.PathEscape(id)+"/", nil), &u); err != nil {
		return nil, err
	}
	return &u, nil
}
