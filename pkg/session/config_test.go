package session

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromQuery(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected Config
		rotating bool
	}{
		{
			name:     "no parameters",
			query:    "",
			expected: Config{Lang: "en", Mode: ModeNormal, Mute: true},
		},
		{
			name:     "deep link",
			query:    "lang=fr&dest=statue&mute=false",
			expected: Config{Lang: "fr", Dest: "statue", Mode: ModeNormal, Mute: false},
			rotating: true,
		},
		{
			name:     "preview mode",
			query:    "mode=preview",
			expected: Config{Lang: "en", Mode: ModePreview, Mute: true},
			rotating: true,
		},
		{
			name:     "legacy mode names",
			query:    "mode=dvp&mute=0",
			expected: Config{Lang: "en", Mode: ModeDev, Mute: false},
		},
		{
			name:     "unknown mode and bad mute",
			query:    "mode=arc&mute=maybe",
			expected: Config{Lang: "en", Mode: ModeNormal, Mute: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			assert.NoError(t, err)
			cfg := FromQuery(q)
			assert.Equal(t, tt.expected, cfg)
			assert.Equal(t, tt.rotating, cfg.StartsRotating())
		})
	}
}

func TestConfig_Normalize(t *testing.T) {
	cfg := Config{Dest: " hall ", Mode: "DEV"}.Normalize()
	assert.Equal(t, "en", cfg.Lang)
	assert.Equal(t, "hall", cfg.Dest)
	assert.Equal(t, ModeDev, cfg.Mode)
	assert.True(t, cfg.Strict())
}
