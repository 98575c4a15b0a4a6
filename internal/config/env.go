package config

import (
    "os"
    "strconv"
    "strings"
    "time"
)

// Small readers shared by the Load* functions.  Each returns its default
// when the variable is unset, empty or unparsable.

func getenv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

func envBool(key string, def bool) bool {
    switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
    case "1", "true", "yes", "on":
        return true
    case "0", "false", "no", "off":
        return false
    }
    return def
}

func envInt(key string, def int) int {
    if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil {
        return n
    }
    return def
}

func envDur(key string, def time.Duration) time.Duration {
    if d, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key))); err == nil {
        return d
    }
    return def
}

// envList splits a comma separated variable, dropping blanks.
func envList(key, def string) []string {
    var out []string
    for _, p := range strings.Split(getenv(key, def), ",") {
        if p = strings.TrimSpace(p); p != "" {
            out = append(out, p)
        }
    }
    return out
}
