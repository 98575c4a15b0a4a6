// Package queue defines message payloads exchanged over the message broker.
package queue

import "time"

// ViewEventKind names the mutation that produced a ViewEvent.
type ViewEventKind string

const (
    KindCardAdded    ViewEventKind = "deck.card_added"
    KindCardRemoved  ViewEventKind = "deck.card_removed"
    KindCardAcquired ViewEventKind = "card.acquired"
    KindCardSold     ViewEventKind = "card.sold"
)

// ViewEvent is published after a mutation and its refetches succeeded.
// It carries enough information for downstream consumers to log, notify
// or feed analytics without calling the game backend again.
type ViewEvent struct {
    Kind        ViewEventKind `json:"kind"`
    SessionID   string        `json:"session_id"`
    UserID      string        `json:"user_id"`
    CardID      int64         `json:"card_id,omitempty"`
    TemplateID  int64         `json:"template_id,omitempty"`
    Position    int           `json:"position,omitempty"`
    CoinsEarned int64         `json:"coins_earned,omitempty"`
    Coins       int64         `json:"coins"`
    OccurredAt  string        `json:"occurred_at"`
}

// Stamp sets OccurredAt to now in RFC3339 UTC if it is empty.
func (e *ViewEvent) Stamp() {
    if e.OccurredAt == "" {
        e.OccurredAt = time.Now().UTC().Format(time.RFC3339)
    }
}
