package model

import (
    "bytes"
    "encoding/json"
)

// Item is a catalogue entry of the item shop.
type Item struct {
    ID          int64  `json:"id"`
    Name        string `json:"name"`
    Description string `json:"description,omitempty"`
    Rarity      string `json:"rarity,omitempty"`
    ItemType    string `json:"item_type,omitempty"`
    CoinCost    int64  `json:"coin_cost"`
    GoldCost    int64  `json:"gold_cost"`
    MaxStack    int    `json:"max_stack"`
    IsStackable bool   `json:"is_stackable"`
}

// InventoryItem is a stack of items owned by a player.
type InventoryItem struct {
    ID             int64  `json:"id"`
    Player         int64  `json:"player,omitempty"`
    PlayerUsername string `json:"player_username,omitempty"`
    Item           *Item  `json:"item"`
    Quantity       int    `json:"quantity"`
    AcquiredAt     string `json:"acquired_at,omitempty"`
}

// InventorySummary aggregates a player's inventory by type and rarity.
type InventorySummary struct {
    TotalItems       int            `json:"total_items"`
    TotalUniqueItems int            `json:"total_unique_items"`
    ItemsByType      map[string]int `json:"items_by_type"`
    ItemsByRarity    map[string]int `json:"items_by_rarity"`
}

// InventoryEntry is one row of the inventory view. The inventory endpoint
// returns item stacks while the profile aggregate returns owned cards;
// exactly one of Item and Card is set after decoding.
type InventoryEntry struct {
    Item *InventoryItem
    Card *CardInstance
}

// UnmarshalJSON decodes a row as a card when it carries a "template"
// field and as an item stack otherwise.
func (e *InventoryEntry) UnmarshalJSON(b []byte) error {
    if isNull(b) {
        return nil
    }
    var fields map[string]json.RawMessage
    if err := json.Unmarshal(b, &fields); err != nil {
        return err
    }
    *e = InventoryEntry{}
    if _, ok := fields["template"]; ok {
        var c CardInstance
        if err := json.Unmarshal(b, &c); err != nil {
            return err
        }
        e.Card = &c
        return nil
    }
    var it InventoryItem
    if err := json.Unmarshal(b, &it); err != nil {
        return err
    }
    e.Item = &it
    return nil
}

// MarshalJSON writes back whichever shape the entry holds.
func (e InventoryEntry) MarshalJSON() ([]byte, error) {
    switch {
    case e.Card != nil:
        return json.Marshal(e.Card)
    case e.Item != nil:
        return json.Marshal(e.Item)
    }
    return []byte("null"), nil
}

// IsZero reports whether the entry holds neither shape, as happens for a
// JSON null row.
func (e InventoryEntry) IsZero() bool { return e.Card == nil && e.Item == nil }

var nullJSON = []byte("null")

func isNull(b []byte) bool { return bytes.Equal(bytes.TrimSpace(b), nullJSON) }
