package identity

import (
	"sync"
)

// HostRuntime is the mini-app SDK handle exposed by the chat platform. All
// calls are best-effort.
type HostRuntime interface {
	Ready() error
	Expand() error
	SetHeaderColor(hex string) error
	SetBackgroundColor(hex string) error
	ThemeParams() ThemeParams
	InitDataUnsafe() InitData
}

// ThemeApplier is implemented by runtimes that can restyle the app with
// the host's color scheme.
type ThemeApplier interface {
	ApplyTheme(ThemeParams) error
}

// ThemeParams are the host's color scheme.
type ThemeParams struct {
	BgColor          string `json:"bg_color,omitempty"`
	SecondaryBgColor string `json:"secondary_bg_color,omitempty"`
	TextColor        string `json:"text_color,omitempty"`
	HintColor        string `json:"hint_color,omitempty"`
	LinkColor        string `json:"link_color,omitempty"`
	ButtonColor      string `json:"button_color,omitempty"`
	ButtonTextColor  string `json:"button_text_color,omitempty"`
	AccentTextColor  string `json:"accent_text_color,omitempty"`
	HeaderBgColor    string `json:"header_bg_color,omitempty"`
}

// InitData is the host's unverified launch data.
type InitData struct {
	QueryID    string    `json:"query_id,omitempty"`
	User       *InitUser `json:"user,omitempty"`
	AuthDate   int64     `json:"auth_date,omitempty"`
	StartParam string    `json:"start_param,omitempty"`
}

// InitUser is the player as described by the host.
type InitUser struct {
	ID           FlexibleID `json:"id"`
	FirstName    string     `json:"first_name,omitempty"`
	LastName     string     `json:"last_name,omitempty"`
	Username     string     `json:"username,omitempty"`
	LanguageCode string     `json:"language_code,omitempty"`
}

// HostSnapshot is a HostRuntime built from the JSON the renderer posts at
// launch. Lifecycle and color calls are recorded rather than performed;
// the renderer replays them against the real SDK.
type HostSnapshot struct {
	Theme    ThemeParams `json:"theme_params"`
	InitData InitData    `json:"init_data_unsafe"`

	mu      sync.Mutex
	calls   []HostCall
	applied *ThemeParams
}

// HostCall is one recorded SDK invocation.
type HostCall struct {
	Method string `json:"method"`
	Arg    string `json:"arg,omitempty"`
}

func (h *HostSnapshot) record(method, arg string) error {
	h.mu.Lock()
	h.calls = append(h.calls, HostCall{Method: method, Arg: arg})
	h.mu.Unlock()
	return nil
}

func (h *HostSnapshot) Ready() error                        { return h.record("ready", "") }
func (h *HostSnapshot) Expand() error                       { return h.record("expand", "") }
func (h *HostSnapshot) SetHeaderColor(hex string) error     { return h.record("setHeaderColor", hex) }
func (h *HostSnapshot) SetBackgroundColor(hex string) error { return h.record("setBackgroundColor", hex) }
func (h *HostSnapshot) ThemeParams() ThemeParams            { return h.Theme }
func (h *HostSnapshot) InitDataUnsafe() InitData            { return h.InitData }

// ApplyTheme records that the renderer should restyle itself with t.
func (h *HostSnapshot) ApplyTheme(t ThemeParams) error {
	h.mu.Lock()
	h.applied = &t
	h.mu.Unlock()
	return h.record("applyTheme", "")
}

// AppliedTheme returns the theme passed to ApplyTheme, if any.
func (h *HostSnapshot) AppliedTheme() (ThemeParams, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.applied == nil {
		return ThemeParams{}, false
	}
	return *h.applied, true
}

// Calls returns the recorded invocations in order.
func (h *HostSnapshot) Calls() []HostCall {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]HostCall, len(h.calls))
	copy(out, h.calls)
	return out
}
