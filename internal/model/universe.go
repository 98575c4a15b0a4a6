package model

// AnimeUniverse groups card templates by the franchise they come from.
type AnimeUniverse struct {
    ID           int64  `json:"id"`
    Name         string `json:"name"`
    Description  string `json:"description,omitempty"`
    LogoURL      string `json:"logo_url,omitempty"`
    IsActive     bool   `json:"is_active"`
    SeasonsCount int    `json:"seasons_count"`
}

// Season is a release wave inside an anime universe.
type Season struct {
    ID                int64  `json:"id"`
    AnimeUniverse     int64  `json:"anime_universe"`
    AnimeUniverseName string `json:"anime_universe_name,omitempty"`
    Name              string `json:"name"`
    SeasonNumber      int    `json:"season_number"`
    IsActive          bool   `json:"is_active"`
}
