// Package lang normalizes the language identifiers clients and providers use
// ("es", "Spanish", "español", "es-MX") to a two-letter code.
package lang

import "strings"

const Default = "en"

type language struct {
	code    string
	name    string
	aliases []string
}

var known = []language{
	{code: "en", name: "English", aliases: []string{"english", "inglés", "anglais"}},
	{code: "es", name: "Spanish", aliases: []string{"spanish", "español", "espanol", "castellano"}},
	{code: "fr", name: "French", aliases: []string{"french", "français", "francais"}},
	{code: "de", name: "German", aliases: []string{"german", "deutsch"}},
	{code: "it", name: "Italian", aliases: []string{"italian", "italiano"}},
	{code: "pt", name: "Portuguese", aliases: []string{"portuguese", "português", "portugues"}},
}

var byKey = func() map[string]language {
	m := make(map[string]language, len(known)*4)
	for _, l := range known {
		m[l.code] = l
		for _, a := range l.aliases {
			m[a] = l
		}
	}
	return m
}()

// Normalize returns the language code for a code, regional tag or name.
// Matching is case-insensitive; ok is false for unrecognized input.
func Normalize(v string) (code string, ok bool) {
	key := strings.ToLower(strings.TrimSpace(v))
	if key == "" {
		return "", false
	}
	if l, found := byKey[key]; found {
		return l.code, true
	}
	// Regional tags such as "es-MX" or "pt_BR".
	if i := strings.IndexAny(key, "-_"); i > 0 {
		if l, found := byKey[key[:i]]; found {
			return l.code, true
		}
	}
	return "", false
}

// Name returns the English display name for a code, or "" when unknown.
func Name(code string) string {
	if l, ok := byKey[strings.ToLower(strings.TrimSpace(code))]; ok {
		return l.name
	}
	return ""
}

// DisplayName resolves free-form input to a display name. Unknown values are
// passed through trimmed; empty input yields the default language.
func DisplayName(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return Name(Default)
	}
	if code, ok := Normalize(v); ok {
		return Name(code)
	}
	return v
}
