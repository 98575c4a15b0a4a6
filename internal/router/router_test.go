package router

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ggame-miniapp/internal/config"
	"github.com/iliyamo/ggame-miniapp/internal/credential"
	"github.com/iliyamo/ggame-miniapp/internal/handler"
	"github.com/iliyamo/ggame-miniapp/internal/identity"
	"github.com/iliyamo/ggame-miniapp/internal/middleware"
	"github.com/iliyamo/ggame-miniapp/internal/session"
)

const secret = "router-secret"

// gameBackend is a tiny in-memory stand-in for the game backend.
type gameBackend struct {
	mu    sync.Mutex
	seen  []string
	auth  []string
	cards map[int]int64 // position -> card id
	coins int64
}

func (b *gameBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seen = append(b.seen, r.Method+" "+r.URL.Path)
	b.auth = append(b.auth, r.Header.Get("Authorization"))
	w.Header().Set("Content-Type", "application/json")

	deck := func() string {
		cards := []map[string]any{}
		for pos, id := range b.cards {
			cards = append(cards, map[string]any{"position": pos, "card": map[string]any{"id": id}})
		}
		out, _ := json.Marshal(map[string]any{
			"id": 1, "cards": cards,
			"total_stats":   map[string]int{"health": 10 * len(cards)},
			"is_valid_deck": map[string]any{"valid": len(cards) == 3},
		})
		return string(out)
	}

	switch r.Method + " " + r.URL.Path {
	case "POST /api/cards/decks/add_card/":
		var body struct {
			CardID   int64 `json:"card_id"`
			Position int   `json:"position"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if _, taken := b.cards[body.Position]; taken {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":"position is occupied"}`)
			return
		}
		b.cards[body.Position] = body.CardID
		_, _ = io.WriteString(w, `{"id":1,"cards":[]}`)
	case "GET /api/cards/decks/":
		_, _ = io.WriteString(w, deck())
	case "POST /api/cards/instances/9/sell_card/":
		b.coins += 25
		_, _ = io.WriteString(w, `{"message":"sold","coins_earned":25}`)
	case "GET /api/users/by_telegram/42/":
		_, _ = io.WriteString(w, `{"id":1,"telegram_id":42,"coins":`+itoa(b.coins)+`,"gold":3}`)
	case "GET /api/inventory/inventory/":
		_, _ = io.WriteString(w, `{"count":0,"results":[]}`)
	case "GET /api/cards/universes/":
		_, _ = io.WriteString(w, `[{"id":1,"name":"Naruto"}]`)
	case "GET /api/cards/seasons/":
		_, _ = io.WriteString(w, `{"results":[{"id":2,"anime_universe":1,"name":"S1"}]}`)
	case "GET /api/inventory/items/":
		_, _ = io.WriteString(w, `[]`)
	case "GET /api/cards/templates/":
		_, _ = io.WriteString(w, `[{"id":5,"name":"Rin"}]`)
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"detail":"Not found."}`)
	}
}

func itoa(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func setup(t *testing.T) (*echo.Echo, *gameBackend) {
	t.Helper()
	gb := &gameBackend{cards: map[int]int64{}, coins: 300}
	srv := httptest.NewServer(gb)
	t.Cleanup(srv.Close)

	mgr := session.NewManager(credential.MemoryFactory(), identity.NewResolver(identity.Options{HeaderColor: "#141420", BackgroundColor: "#0a0a0f"}), session.Config{
		APIBaseURL: srv.URL + "/api",
		AuthScheme: "Bearer",
		Secret:     secret,
		TTLMin:     10,
	})
	auth := middleware.SessionAuth(secret, mgr)
	// no Redis: both become pass-through
	limit := middleware.NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil, nil)
	cache := middleware.NewRedisCache(config.CacheConfig{Enabled: true}, nil, nil)

	e := echo.New()
	RegisterRoutes(e, &handler.HealthHandler{Sessions: mgr})
	RegisterLaunch(e, &handler.LaunchHandler{Sessions: mgr}, auth)
	RegisterView(e, &handler.ViewHandler{}, auth, limit)
	RegisterCatalog(e, &handler.CatalogHandler{}, auth, cache)
	return e, gb
}

func do(t *testing.T, e *echo.Echo, method, path, token, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var out map[string]any
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func launch(t *testing.T, e *echo.Echo, body string) map[string]any {
	t.Helper()
	rec, out := do(t, e, http.MethodPost, "/v1/launch", "", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	e, _ := setup(t)
	rec, out := do(t, e, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", out["status"])
}

func TestLaunch_URLParam(t *testing.T) {
	e, _ := setup(t)
	out := launch(t, e, `{"query":"?user_id=42"}`)
	assert.NotEmpty(t, out["session_token"])
	assert.Equal(t, map[string]any{"raw_id": "42", "source": "url-param"}, out["identity"])
	assert.Equal(t, []any{}, out["host_calls"])
	assert.NotContains(t, out, "theme")
}

func TestLaunch_HostSDK(t *testing.T) {
	e, _ := setup(t)
	out := launch(t, e, `{"query":"","host":{"theme_params":{"bg_color":"#000000"},"init_data_unsafe":{"user":{"id":777}}}}`)
	assert.Equal(t, map[string]any{"raw_id": "777", "source": "host-sdk"}, out["identity"])

	calls, ok := out["host_calls"].([]any)
	require.True(t, ok)
	methods := make([]string, 0, len(calls))
	for _, c := range calls {
		methods = append(methods, c.(map[string]any)["method"].(string))
	}
	assert.Equal(t, []string{"ready", "expand", "applyTheme", "setHeaderColor", "setBackgroundColor"}, methods)
	assert.Equal(t, map[string]any{"bg_color": "#000000"}, out["theme"])
}

func TestLaunch_BadBody(t *testing.T) {
	e, _ := setup(t)
	rec, _ := do(t, e, http.MethodPost, "/v1/launch", "", `{"query":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestViewFlow(t *testing.T) {
	e, gb := setup(t)
	token := launch(t, e, `{"query":"user_id=42"}`)["session_token"].(string)

	rec, out := do(t, e, http.MethodPost, "/v1/view/deck/cards", token, `{"card_id":7,"position":2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["ok"])
	state := out["state"].(map[string]any)
	cards := state["deck"].(map[string]any)["cards"].([]any)
	require.Len(t, cards, 1)
	assert.Equal(t, float64(2), cards[0].(map[string]any)["position"])
	assert.Equal(t, float64(10), out["derived"].(map[string]any)["deck_stats"].(map[string]any)["health"])

	rec, out = do(t, e, http.MethodPost, "/v1/view/deck/cards", token, `{"card_id":8,"position":2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, out["ok"])
	state = out["state"].(map[string]any)
	assert.Equal(t, "position is occupied", state["error"].(map[string]any)["message"])
	assert.Len(t, state["deck"].(map[string]any)["cards"], 1, "failed mutation keeps the deck")

	_, out = do(t, e, http.MethodDelete, "/v1/view/error", token, "")
	assert.Nil(t, out["state"].(map[string]any)["error"])

	_, out = do(t, e, http.MethodPost, "/v1/view/cards/9/sell", token, "")
	assert.Equal(t, true, out["ok"])
	assert.Equal(t, float64(325), out["derived"].(map[string]any)["user_coins"])
	assert.Equal(t, float64(3), out["derived"].(map[string]any)["user_gems"])

	gb.mu.Lock()
	defer gb.mu.Unlock()
	assert.Equal(t, []string{
		"POST /api/cards/decks/add_card/", "GET /api/cards/decks/",
		"POST /api/cards/decks/add_card/",
		"POST /api/cards/instances/9/sell_card/", "GET /api/users/by_telegram/42/", "GET /api/inventory/inventory/",
	}, gb.seen)
	for _, a := range gb.auth {
		assert.Equal(t, "Bearer tg_token_42", a)
	}
}

func TestViewRequiresSession(t *testing.T) {
	e, _ := setup(t)
	rec, _ := do(t, e, http.MethodGet, "/v1/view", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec, _ = do(t, e, http.MethodGet, "/v1/catalog/universes", "garbage", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBadMutationInput(t *testing.T) {
	e, _ := setup(t)
	token := launch(t, e, `{"query":"user_id=42"}`)["session_token"].(string)
	rec, _ := do(t, e, http.MethodDelete, "/v1/view/deck/cards/first", token, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	for _, pos := range []string{"0", "4", "-1"} {
		rec, _ = do(t, e, http.MethodDelete, "/v1/view/deck/cards/"+pos, token, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, pos)
	}
	for _, body := range []string{`{"card_id":7}`, `{"card_id":7,"position":0}`, `{"card_id":7,"position":4}`, `{"position":1}`} {
		rec, _ = do(t, e, http.MethodPost, "/v1/view/deck/cards", token, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	rec, _ = do(t, e, http.MethodPost, "/v1/view/shop/acquire", token, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = do(t, e, http.MethodPost, "/v1/view/cards/x/sell", token, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCatalog(t *testing.T) {
	e, _ := setup(t)
	token := launch(t, e, `{"query":"user_id=42"}`)["session_token"].(string)

	rec, out := do(t, e, http.MethodGet, "/v1/catalog/overview", token, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, out["universes"], 1)
	assert.Len(t, out["seasons"], 1)
	assert.Equal(t, []any{}, out["items"])
	assert.Len(t, out["card_templates"], 1)

	rec, out = do(t, e, http.MethodGet, "/v1/catalog/seasons?universe=1", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, out["items"], 1)

	rec, _ = do(t, e, http.MethodGet, "/v1/catalog/seasons?universe=abc", token, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCredentialAndLogout(t *testing.T) {
	e, gb := setup(t)
	token := launch(t, e, `{"query":"user_id=42"}`)["session_token"].(string)

	rec, _ := do(t, e, http.MethodPut, "/v1/session/credential", token, `{"credential":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = do(t, e, http.MethodPut, "/v1/session/credential", token, `{"credential":"issued"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	do(t, e, http.MethodPost, "/v1/view/deck", token, "")
	gb.mu.Lock()
	assert.Equal(t, "Bearer issued", gb.auth[len(gb.auth)-1])
	gb.mu.Unlock()

	rec, _ = do(t, e, http.MethodPost, "/v1/logout", token, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec, _ = do(t, e, http.MethodGet, "/v1/view", token, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
