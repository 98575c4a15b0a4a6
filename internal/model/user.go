package model

// User represents a player profile as returned by the game backend.
// The backend keys players by their Telegram identifier; ID is the
// backend's own primary key.
//
// Fields:
//  ID            – backend primary key.
//  TelegramID    – platform-issued identifier of the player.
//  Username      – Telegram username (may be empty).
//  FirstName     – Telegram first name.
//  LastName      – Telegram last name.
//  Coins         – soft currency balance.
//  Gold          – hard currency balance (the renderer labels it "gems").
//  TotalPoints   – accumulated score.
//  TotalGames    – games played.
//  GamesWon      – games won.
//  CurrentStreak – current win streak.
//  BestStreak    – best win streak.
//  Language      – preferred UI language.
type User struct {
    ID            int64  `json:"id"`                            // users.id
    TelegramID    int64  `json:"telegram_id"`                   // users.telegram_id
    Username      string `json:"username_telegram,omitempty"`   // users.username_telegram
    FirstName     string `json:"first_name_telegram,omitempty"` // users.first_name_telegram
    LastName      string `json:"last_name_telegram,omitempty"`  // users.last_name_telegram
    Coins         int64  `json:"coins"`                         // users.coins
    Gold          int64  `json:"gold"`                          // users.gold
    TotalPoints   int64  `json:"total_points"`                  // users.total_points
    TotalGames    int64  `json:"total_games"`                   // users.total_games
    GamesWon      int64  `json:"games_won"`                     // users.games_won
    CurrentStreak int64  `json:"current_streak"`                // users.current_streak
    BestStreak    int64  `json:"best_streak"`                   // users.best_streak
    Language      string `json:"language,omitempty"`            // users.language
    LastActivity  string `json:"last_activity,omitempty"`       // users.last_activity (RFC3339)
}

// Profile is the aggregate returned by the profile endpoint: the player,
// their deck and their card collection in one response.
type Profile struct {
    User  *User            `json:"user"`
    Deck  *Deck            `json:"deck"`
    Cards []InventoryEntry `json:"cards"`
}
