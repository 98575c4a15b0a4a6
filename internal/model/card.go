package model

// Element is the elemental affinity of a card template.
type Element string

const (
    ElementFire    Element = "fire"
    ElementWater   Element = "water"
    ElementEarth   Element = "earth"
    ElementAir     Element = "air"
    ElementLight   Element = "light"
    ElementDark    Element = "dark"
    ElementNeutral Element = "neutral"
)

// CardTemplate describes a card that can be acquired from the shop.
// Stat ranges bound the values rolled for each instance.
type CardTemplate struct {
    ID                int64   `json:"id"`
    Name              string  `json:"name"`
    Description       string  `json:"description,omitempty"`
    ImageURL          string  `json:"image_url,omitempty"`
    AnimeUniverse     int64   `json:"anime_universe,omitempty"`
    AnimeUniverseName string  `json:"anime_universe_name,omitempty"`
    Season            int64   `json:"season,omitempty"`
    SeasonName        string  `json:"season_name,omitempty"`
    Element           Element `json:"element,omitempty"`
    HealthMin         int     `json:"health_min"`
    HealthMax         int     `json:"health_max"`
    AttackMin         int     `json:"attack_min"`
    AttackMax         int     `json:"attack_max"`
    DefenseMin        int     `json:"defense_min"`
    DefenseMax        int     `json:"defense_max"`
    CoinCost          int64   `json:"coin_cost"`
    GoldCost          int64   `json:"gold_cost"`
    SellPrice         int64   `json:"sell_price"`
}

// CardInstance is a card owned by a player, rolled from a template.
type CardInstance struct {
    ID            int64         `json:"id"`
    Template      *CardTemplate `json:"template"`
    Owner         int64         `json:"owner,omitempty"`
    OwnerUsername string        `json:"owner_username,omitempty"`
    Health        int           `json:"health"`
    Attack        int           `json:"attack"`
    Defense       int           `json:"defense"`
    CurrentHealth int           `json:"current_health"`
    IsAlive       bool          `json:"is_alive"`
    IsInDeck      bool          `json:"is_in_deck"`
    Level         int           `json:"level"`
    Experience    int           `json:"experience"`
    AcquiredAt    string        `json:"acquired_at,omitempty"`
    LastUsed      string        `json:"last_used,omitempty"`
}

// SaleResult is the body returned after selling a card.
type SaleResult struct {
    Message     string `json:"message"`
    CoinsEarned int64  `json:"coins_earned"`
}
