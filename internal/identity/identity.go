// Package identity decides who the current player is from whatever the host
// environment provides, and derives the credential the gateway presents to
// the game backend on the player's behalf.
package identity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Source records which strategy produced an identity.
type Source string

const (
	SourceHostSDK      Source = "host-sdk"
	SourceURLParam     Source = "url-param"
	SourceHostPayload  Source = "host-encoded-payload"
	SourceFallbackTest Source = "fallback-test-identity"
)

// Launch query parameters the resolver reads.
const (
	ParamInitData = "tgWebAppData"
	ParamUserID   = "user_id"
	ParamTestUser = "test_user"
)

// FallbackUserID is the placeholder identity used when nothing else is
// available, so the app stays usable without a host.
const FallbackUserID = "123456789"

// UserIdentity is the resolved player. It is a value type; a session keeps
// the one it resolved at launch for its whole lifetime.
type UserIdentity struct {
	RawID  string `json:"raw_id"`
	Source Source `json:"source,omitempty"`
}

// Credential is the opaque bearer value sent to the backend.
type Credential struct {
	Value string `json:"-"`
}

// Resolution pairs an identity with the credential derived from it.
type Resolution struct {
	Identity   UserIdentity
	Credential Credential
}

// PrefixPolicy chooses the credential prefix per source. HostSDK, when
// set, overrides Default for host SDK identities only.
type PrefixPolicy struct {
	Default string
	HostSDK string
}

// DefaultPrefixes uses one prefix for every source.
func DefaultPrefixes() PrefixPolicy { return PrefixPolicy{Default: "tg_token_"} }

// LegacyPrefixes keeps "test_token_" for host SDK identities, as earlier
// clients did.
func LegacyPrefixes() PrefixPolicy {
	return PrefixPolicy{Default: "tg_token_", HostSDK: "test_token_"}
}

// For returns the prefix for identities coming from src.
func (p PrefixPolicy) For(src Source) string {
	if src == SourceHostSDK && p.HostSDK != "" {
		return p.HostSDK
	}
	return p.Default
}

// Derive builds the credential for id.
func (p PrefixPolicy) Derive(id UserIdentity) Credential {
	return Credential{Value: p.For(id.Source) + id.RawID}
}

// Environment is everything the host gives the app at launch. Host is nil
// when the app runs outside the host runtime, which is a normal condition.
type Environment struct {
	Query url.Values
	Host  HostRuntime
}

// EnvironmentFromQuery parses a raw launch query ("a=1&b=2", with or
// without a leading '?').
func EnvironmentFromQuery(raw string, host HostRuntime) (Environment, error) {
	q, err := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	if err != nil {
		return Environment{}, fmt.Errorf("parse launch query: %w", err)
	}
	return Environment{Query: q, Host: host}, nil
}

// FlexibleID decodes an id given either as a JSON number or a JSON string.
// Numbers keep their literal text so large ids survive unchanged.
type FlexibleID string

func (f *FlexibleID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexibleID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id is neither number nor string: %w", err)
	}
	*f = FlexibleID(n.String())
	return nil
}

func (f FlexibleID) String() string { return string(f) }
