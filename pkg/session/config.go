package session

import (
	"net/url"
	"strconv"
	"strings"
)

// Mode selects how the presentation layer behaves for a session.
type Mode string

const (
	ModeNormal  Mode = "normal"
	ModeMinimal Mode = "minimal"
	ModePreview Mode = "preview"
	ModeDev     Mode = "dev"
)

// ParseMode maps a query value to a Mode. Unknown values are ModeNormal.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minimal":
		return ModeMinimal
	case "preview", "screenshot":
		return ModePreview
	case "dev", "dvp":
		return ModeDev
	default:
		return ModeNormal
	}
}

// Config is read once from the deep-link query parameters and never
// mutated afterwards.
type Config struct {
	Lang string `json:"lang"`
	Dest string `json:"dest,omitempty"`
	Mode Mode   `json:"mode"`
	Mute bool   `json:"mute"`
}

// Default matches a viewer arriving without query parameters: English,
// normal mode and muted until the first interaction.
func Default() Config {
	return Config{Lang: "en", Mode: ModeNormal, Mute: true}
}

// FromQuery builds a Config from lang, dest, mode and mute.
func FromQuery(q url.Values) Config {
	cfg := Default()
	if lang := strings.TrimSpace(q.Get("lang")); lang != "" {
		cfg.Lang = lang
	}
	cfg.Dest = strings.TrimSpace(q.Get("dest"))
	if q.Has("mode") {
		cfg.Mode = ParseMode(q.Get("mode"))
	}
	if q.Has("mute") {
		cfg.Mute = parseBool(q.Get("mute"), cfg.Mute)
	}
	return cfg
}

// Normalize fills unset fields with defaults.
func (c Config) Normalize() Config {
	if c.Lang == "" {
		c.Lang = "en"
	}
	c.Mode = ParseMode(string(c.Mode))
	c.Dest = strings.TrimSpace(c.Dest)
	return c
}

// StartsRotating reports whether the session opens in the read-only preview
// rotation instead of at rest.
func (c Config) StartsRotating() bool {
	return c.Mode == ModePreview || c.Dest != ""
}

// Strict reports whether programmer errors should surface instead of being
// ignored.
func (c Config) Strict() bool {
	return c.Mode == ModeDev
}

func parseBool(s string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "1", "yes", "on":
		return true
	case "0", "no", "off":
		return false
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return fallback
	}
	return b
}
