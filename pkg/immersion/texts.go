package immersion

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FallbackLang is used when the requested language has no entry.
const FallbackLang = "en"

var defaultTexts = map[string]string{
	"play":        "Play",
	"pause":       "Pause",
	"closeWindow": "Close",
	"start":       "Start",
	"loading":     "Loading...",
}

// matchLang returns the index of the entry best matching lang, falling back
// to English and then to the first entry. It returns -1 for no entries.
func matchLang(langs []string, lang string) int {
	if len(langs) == 0 {
		return -1
	}
	tags := make([]language.Tag, 0, len(langs))
	for _, l := range langs {
		tags = append(tags, language.Make(l))
	}
	want, err := language.Parse(lang)
	if err == nil {
		_, idx, conf := language.NewMatcher(tags).Match(want)
		if conf != language.No {
			return idx
		}
	}
	for i, l := range langs {
		if l == FallbackLang {
			return i
		}
	}
	return 0
}

// LocalizeTexts merges the UI strings for lang over the built-in defaults.
// The chosen language is stored under the "lang" key.
func LocalizeTexts(entries []map[string]string, lang string) map[string]string {
	out := make(map[string]string, len(defaultTexts)+1)
	for k, v := range defaultTexts {
		out[k] = v
	}
	out["lang"] = FallbackLang

	langs := make([]string, len(entries))
	for i, e := range entries {
		langs[i] = e["lang"]
	}
	idx := matchLang(langs, lang)
	if idx < 0 {
		if lang != "" {
			out["lang"] = lang
		}
		return out
	}
	for k, v := range entries[idx] {
		out[k] = v
	}
	if out["lang"] == "" {
		out["lang"] = FallbackLang
	}
	return out
}

// LocalizeWaypoint picks the waypoint strings for lang.
func LocalizeWaypoint(entries []LocalizedText, lang string) (LocalizedText, bool) {
	langs := make([]string, len(entries))
	for i, e := range entries {
		langs[i] = e.Lang
	}
	idx := matchLang(langs, lang)
	if idx < 0 {
		return LocalizedText{}, false
	}
	return entries[idx], true
}

// DefaultLabel is the sign text of a waypoint without authored text.
func DefaultLabel(kind Kind, ui map[string]string) string {
	if s, ok := ui[string(kind)]; ok && s != "" {
		return s
	}
	tag := language.Make(ui["lang"])
	return cases.Title(tag).String(string(kind))
}
