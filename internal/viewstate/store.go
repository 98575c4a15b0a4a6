// Package viewstate holds the fetched domain entities of one session and
// sequences the refetches that follow every mutation.
//
// Operations never return errors. A failure is recorded in the Error
// field and previously fetched data stays in place. Each state field
// carries a request generation; a response that was overtaken by a newer
// request for the same field is dropped.
package viewstate

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/iliyamo/ggame-miniapp/internal/gameapi"
	"github.com/iliyamo/ggame-miniapp/internal/model"
	"github.com/iliyamo/ggame-miniapp/internal/pipeline"
	"github.com/iliyamo/ggame-miniapp/internal/queue"
)

// API is the set of backend operations the store drives. *gameapi.Client
// implements it.
type API interface {
	GetCurrentUser(ctx context.Context) (*model.User, error)
	GetUserProfile(ctx context.Context) (*model.Profile, error)
	GetDeck(ctx context.Context) (*model.Deck, error)
	GetInventory(ctx context.Context) ([]model.InventoryEntry, error)
	GetCardTemplates(ctx context.Context, f gameapi.Filter) ([]model.CardTemplate, error)
	AddCardToDeck(ctx context.Context, cardID int64, position int) (*model.Deck, error)
	RemoveCardFromDeck(ctx context.Context, position int) (*model.Deck, error)
	AcquireCard(ctx context.Context, templateID int64) (*model.CardInstance, error)
	SellCard(ctx context.Context, cardID int64) (*model.SaleResult, error)
}

// Notifier receives an event after every successful mutation.
type Notifier interface {
	Notify(ctx context.Context, ev queue.ViewEvent) error
}

// ViewState is a point-in-time copy of the store.
type ViewState struct {
	User          *model.User            `json:"user"`
	Deck          *model.Deck            `json:"deck"`
	Inventory     []model.InventoryEntry `json:"inventory"`
	CardTemplates []model.CardTemplate   `json:"card_templates"`
	Loading       bool                   `json:"loading"`
	Error         *pipeline.APIError     `json:"error"`
}

type field int

const (
	fieldUser field = iota
	fieldDeck
	fieldInventory
	fieldTemplates
	numFields
)

// Store is the single source of truth for a session's view.
type Store struct {
	api      API
	log      *zap.Logger
	notifier Notifier
	session  string
	userID   string

	mu        sync.Mutex
	user      *model.User
	deck      *model.Deck
	inventory []model.InventoryEntry
	templates []model.CardTemplate
	err       *pipeline.APIError
	inflight  int
	gen       [numFields]uint64
}

// Option customizes a Store.
type Option func(*Store)

// WithLogger sets the store's logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithNotifier sets the mutation event sink.
func WithNotifier(n Notifier) Option { return func(s *Store) { s.notifier = n } }

// WithSession tags emitted events with the session and player ids.
func WithSession(sessionID, userID string) Option {
	return func(s *Store) {
		s.session = sessionID
		s.userID = userID
	}
}

// New returns an empty Store backed by api.
func New(api API, opts ...Option) *Store {
	s := &Store{
		api:       api,
		log:       zap.NewNop(),
		inventory: []model.InventoryEntry{},
		templates: []model.CardTemplate{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// begin marks an operation in flight; the returned func undoes it.
func (s *Store) begin() func() {
	s.mu.Lock()
	s.inflight++
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.inflight--
		s.mu.Unlock()
	}
}

// issue starts a new request generation for each field.
func (s *Store) issue(fields ...field) [numFields]uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range fields {
		s.gen[f]++
	}
	return s.gen
}

// current reports whether the generation taken at issue time is still the
// newest for f. Callers hold s.mu.
func (s *Store) current(f field, issued [numFields]uint64) bool {
	return s.gen[f] == issued[f]
}

func (s *Store) fail(op string, err error) {
	apiErr := pipeline.Normalize(err)
	s.log.Warn("view operation failed", zap.String("op", op), zap.Error(apiErr))
	s.mu.Lock()
	s.err = apiErr
	s.mu.Unlock()
}

// failFetch records a read failure unless every field it was issued for
// has since been requested again.
func (s *Store) failFetch(op string, err error, issued [numFields]uint64, fields ...field) {
	apiErr := pipeline.Normalize(err)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range fields {
		if s.current(f, issued) {
			s.log.Warn("view operation failed", zap.String("op", op), zap.Error(apiErr))
			s.err = apiErr
			return
		}
	}
	s.log.Debug("superseded failure dropped", zap.String("op", op), zap.Error(apiErr))
}

// FetchUser refreshes the player record.
func (s *Store) FetchUser(ctx context.Context) {
	defer s.begin()()
	s.fetchUser(ctx)
}

func (s *Store) fetchUser(ctx context.Context) bool {
	issued := s.issue(fieldUser)
	u, err := s.api.GetCurrentUser(ctx)
	if err != nil {
		s.failFetch("fetch_user", err, issued, fieldUser)
		return false
	}
	s.mu.Lock()
	if s.current(fieldUser, issued) {
		s.user = u
	}
	s.mu.Unlock()
	return true
}

// FetchUserProfile refreshes user, deck and inventory from the profile
// aggregate. The three fields change together under one lock.
func (s *Store) FetchUserProfile(ctx context.Context) {
	defer s.begin()()
	issued := s.issue(fieldUser, fieldDeck, fieldInventory)
	p, err := s.api.GetUserProfile(ctx)
	if err != nil {
		s.failFetch("fetch_user_profile", err, issued, fieldUser, fieldDeck, fieldInventory)
		return
	}
	cards := p.Cards
	if cards == nil {
		cards = []model.InventoryEntry{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current(fieldUser, issued) {
		s.user = p.User
	}
	if s.current(fieldDeck, issued) {
		s.deck = p.Deck
	}
	if s.current(fieldInventory, issued) {
		s.inventory = cards
	}
}

// FetchDeck refreshes the deck.
func (s *Store) FetchDeck(ctx context.Context) {
	defer s.begin()()
	s.fetchDeck(ctx)
}

func (s *Store) fetchDeck(ctx context.Context) bool {
	issued := s.issue(fieldDeck)
	d, err := s.api.GetDeck(ctx)
	if err != nil {
		s.failFetch("fetch_deck", err, issued, fieldDeck)
		return false
	}
	s.mu.Lock()
	if s.current(fieldDeck, issued) {
		s.deck = d
	}
	s.mu.Unlock()
	return true
}

// FetchInventory refreshes the inventory.
func (s *Store) FetchInventory(ctx context.Context) {
	defer s.begin()()
	s.fetchInventory(ctx)
}

func (s *Store) fetchInventory(ctx context.Context) bool {
	issued := s.issue(fieldInventory)
	inv, err := s.api.GetInventory(ctx)
	if err != nil {
		s.failFetch("fetch_inventory", err, issued, fieldInventory)
		return false
	}
	if inv == nil {
		inv = []model.InventoryEntry{}
	}
	s.mu.Lock()
	if s.current(fieldInventory, issued) {
		s.inventory = inv
	}
	s.mu.Unlock()
	return true
}

// FetchCardTemplates refreshes the shop templates.
func (s *Store) FetchCardTemplates(ctx context.Context) {
	defer s.begin()()
	issued := s.issue(fieldTemplates)
	tpls, err := s.api.GetCardTemplates(ctx, nil)
	if err != nil {
		s.failFetch("fetch_card_templates", err, issued, fieldTemplates)
		return
	}
	if tpls == nil {
		tpls = []model.CardTemplate{}
	}
	s.mu.Lock()
	if s.current(fieldTemplates, issued) {
		s.templates = tpls
	}
	s.mu.Unlock()
}

// AddCardToDeck places a card and then rereads the deck. The mutation's
// own response is ignored. It reports whether the mutation succeeded.
func (s *Store) AddCardToDeck(ctx context.Context, cardID int64, position int) bool {
	defer s.begin()()
	if _, err := s.api.AddCardToDeck(ctx, cardID, position); err != nil {
		s.fail("add_card_to_deck", err)
		return false
	}
	s.fetchDeck(ctx)
	s.emit(ctx, queue.ViewEvent{Kind: queue.KindCardAdded, CardID: cardID, Position: position})
	return true
}

// RemoveCardFromDeck empties a deck position and then rereads the deck.
func (s *Store) RemoveCardFromDeck(ctx context.Context, position int) bool {
	defer s.begin()()
	if _, err := s.api.RemoveCardFromDeck(ctx, position); err != nil {
		s.fail("remove_card_from_deck", err)
		return false
	}
	s.fetchDeck(ctx)
	s.emit(ctx, queue.ViewEvent{Kind: queue.KindCardRemoved, Position: position})
	return true
}

// AcquireCard buys a card, then rereads the deck and the user.
func (s *Store) AcquireCard(ctx context.Context, templateID int64) bool {
	defer s.begin()()
	card, err := s.api.AcquireCard(ctx, templateID)
	if err != nil {
		s.fail("acquire_card", err)
		return false
	}
	s.fetchDeck(ctx)
	s.fetchUser(ctx)

	ev := queue.ViewEvent{Kind: queue.KindCardAcquired, TemplateID: templateID}
	if card != nil {
		ev.CardID = card.ID
	}
	s.emit(ctx, ev)
	return true
}

// SellCard sells a card, then rereads the user and the inventory.
func (s *Store) SellCard(ctx context.Context, cardID int64) bool {
	defer s.begin()()
	res, err := s.api.SellCard(ctx, cardID)
	if err != nil {
		s.fail("sell_card", err)
		return false
	}
	s.fetchUser(ctx)
	s.fetchInventory(ctx)

	ev := queue.ViewEvent{Kind: queue.KindCardSold, CardID: cardID}
	if res != nil {
		ev.CoinsEarned = res.CoinsEarned
	}
	s.emit(ctx, ev)
	return true
}

func (s *Store) emit(ctx context.Context, ev queue.ViewEvent) {
	if s.notifier == nil {
		return
	}
	ev.SessionID = s.session
	ev.UserID = s.userID
	ev.Coins = s.UserCoins()
	ev.Stamp()
	if err := s.notifier.Notify(ctx, ev); err != nil {
		s.log.Warn("view event not delivered", zap.String("kind", string(ev.Kind)), zap.Error(err))
	}
}

// ClearError resets the error field.
func (s *Store) ClearError() {
	s.mu.Lock()
	s.err = nil
	s.mu.Unlock()
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	vs := ViewState{
		Inventory:     append([]model.InventoryEntry(nil), s.inventory...),
		CardTemplates: append([]model.CardTemplate(nil), s.templates...),
		Loading:       s.inflight > 0,
		Error:         s.err,
	}
	if vs.Inventory == nil {
		vs.Inventory = []model.InventoryEntry{}
	}
	if vs.CardTemplates == nil {
		vs.CardTemplates = []model.CardTemplate{}
	}
	if s.user != nil {
		u := *s.user
		vs.User = &u
	}
	if s.deck != nil {
		d := *s.deck
		d.Cards = append([]model.DeckCard(nil), s.deck.Cards...)
		vs.Deck = &d
	}
	return vs
}

// Loading reports whether any operation is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight > 0
}

// UserCoins is the player's coin balance, zero before the user is known.
func (s *Store) UserCoins() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return 0
	}
	return s.user.Coins
}

// UserGems is the player's hard currency, which the backend calls gold.
func (s *Store) UserGems() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return 0
	}
	return s.user.Gold
}

// DeckStats is the deck's summed stats, zero when unknown.
func (s *Store) DeckStats() model.DeckStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deck == nil || s.deck.TotalStats == nil {
		return model.DeckStats{}
	}
	return *s.deck.TotalStats
}

// IsDeckValid reports the backend's verdict on the deck, false when unknown.
func (s *Store) IsDeckValid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deck != nil && s.deck.IsValidDeck != nil && s.deck.IsValidDeck.Valid
}
