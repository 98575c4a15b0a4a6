package identity

import (
	"encoding/json"
	"strings"

	"go.uber.org/zap"
)

// Strategy is one way of finding the player id. Resolve reports ok == false
// to let the next strategy try; it never fails outright.
type Strategy interface {
	Source() Source
	Resolve(env Environment) (rawID string, ok bool)
}

// PayloadStrategy reads the user id out of the host-encoded init data
// carried in the launch URL. With a bot token set, unsigned or tampered
// payloads are ignored.
type PayloadStrategy struct {
	BotToken string
	Hooks    Hooks
}

func (PayloadStrategy) Source() Source { return SourceHostPayload }

func (s PayloadStrategy) Resolve(env Environment) (string, bool) {
	raw := env.Query.Get(ParamInitData)
	if raw == "" {
		return "", false
	}
	log := s.Hooks.logger()
	values, err := parseInitData(raw)
	if err != nil {
		log.Debug("host payload unreadable", zap.Error(err))
		return "", false
	}
	if s.BotToken != "" {
		if err := verifyInitData(values, s.BotToken); err != nil {
			log.Warn("host payload rejected", zap.Error(err))
			return "", false
		}
	}
	var user struct {
		ID FlexibleID `json:"id"`
	}
	if err := json.Unmarshal([]byte(values.Get("user")), &user); err != nil {
		log.Debug("host payload user unreadable", zap.Error(err))
		return "", false
	}
	if user.ID == "" {
		return "", false
	}
	return user.ID.String(), true
}

// URLParamStrategy takes the user id verbatim from the user_id parameter.
type URLParamStrategy struct{}

func (URLParamStrategy) Source() Source { return SourceURLParam }

func (URLParamStrategy) Resolve(env Environment) (string, bool) {
	id := strings.TrimSpace(env.Query.Get(ParamUserID))
	return id, id != ""
}

// HostSDKStrategy drives the host runtime's lifecycle and reads the user
// from its init data. Lifecycle and theme failures are logged and ignored.
type HostSDKStrategy struct {
	HeaderColor     string
	BackgroundColor string
	Hooks           Hooks
}

func (HostSDKStrategy) Source() Source { return SourceHostSDK }

func (s HostSDKStrategy) Resolve(env Environment) (string, bool) {
	h := env.Host
	if h == nil {
		return "", false
	}
	s.Hooks.bestEffort("ready", h.Ready)
	s.Hooks.bestEffort("expand", h.Expand)
	if ta, ok := h.(ThemeApplier); ok {
		s.Hooks.bestEffort("apply_theme", func() error { return ta.ApplyTheme(h.ThemeParams()) })
	}
	if s.HeaderColor != "" {
		s.Hooks.bestEffort("set_header_color", func() error { return h.SetHeaderColor(s.HeaderColor) })
	}
	if s.BackgroundColor != "" {
		s.Hooks.bestEffort("set_background_color", func() error { return h.SetBackgroundColor(s.BackgroundColor) })
	}

	var data InitData
	s.Hooks.bestEffort("init_data", func() error {
		data = h.InitDataUnsafe()
		return nil
	})
	if data.User == nil || data.User.ID == "" {
		return "", false
	}
	return data.User.ID.String(), true
}

// FallbackStrategy always succeeds: the test_user parameter when given,
// FallbackUserID otherwise.
type FallbackStrategy struct{}

func (FallbackStrategy) Source() Source { return SourceFallbackTest }

func (FallbackStrategy) Resolve(env Environment) (string, bool) {
	if id := strings.TrimSpace(env.Query.Get(ParamTestUser)); id != "" {
		return id, true
	}
	return FallbackUserID, true
}
