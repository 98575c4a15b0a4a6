package model

// MaxDeckCards is the number of slots in a deck. Positions are 1-based.
const MaxDeckCards = 3

// Deck is the player's battle deck.
//
// Fields:
//  ID          – decks.id
//  Name        – display name
//  IsActive    – whether this deck is the one used in battles
//  Cards       – occupied slots, ordered by position
//  TotalStats  – summed stats of the cards in the deck
//  IsValidDeck – backend verdict on whether the deck can be used
type Deck struct {
    ID          int64      `json:"id,omitempty"`
    Name        string     `json:"name,omitempty"`
    IsActive    bool       `json:"is_active,omitempty"`
    Cards       []DeckCard `json:"cards"`
    TotalStats  *DeckStats `json:"total_stats,omitempty"`
    IsValidDeck *Validity  `json:"is_valid_deck,omitempty"`
}

// DeckCard places a card instance at a deck position.
type DeckCard struct {
    Position int           `json:"position"`
    Card     *CardInstance `json:"card,omitempty"`
}

// DeckStats sums the stats of all cards in a deck.
type DeckStats struct {
    Health  int `json:"health"`
    Attack  int `json:"attack"`
    Defense int `json:"defense"`
}

// Validity is a boolean verdict with an optional reason.
type Validity struct {
    Valid   bool   `json:"valid"`
    Message string `json:"message,omitempty"`
}
