package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"sort"
	"strings"
)

var (
	errNoUserField = errors.New("init data has no user field")
	errNoHash      = errors.New("init data has no hash")
	errBadHash     = errors.New("init data hash mismatch")
)

// parseInitData reads a host-encoded payload as a query string. Payloads
// that arrive percent-encoded one extra time are decoded once more before
// giving up.
func parseInitData(raw string) (url.Values, error) {
	values, err := url.ParseQuery(raw)
	if err == nil && values.Has("user") {
		return values, nil
	}
	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		return nil, err
	}
	values, err = url.ParseQuery(decoded)
	if err != nil {
		return nil, err
	}
	if !values.Has("user") {
		return nil, errNoUserField
	}
	return values, nil
}

// initDataHash computes the hex signature the host attaches to init data:
// HMAC-SHA256 of the sorted "key=value" lines (hash excluded), keyed with
// HMAC-SHA256("WebAppData", botToken).
func initDataHash(values url.Values, botToken string) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+values.Get(k))
	}

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))
	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(mac.Sum(nil))
}

// verifyInitData checks the payload signature against botToken.
func verifyInitData(values url.Values, botToken string) error {
	got := values.Get("hash")
	if got == "" {
		return errNoHash
	}
	want := initDataHash(values, botToken)
	if !hmac.Equal([]byte(strings.ToLower(got)), []byte(want)) {
		return errBadHash
	}
	return nil
}
