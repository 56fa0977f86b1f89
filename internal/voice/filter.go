package voice

import (
	"strings"
	"unicode"

	"github.com/ent0n29/storyteller/internal/lang"
)

// Accent labels that imply a language when the provider omits a code.
var accentLanguage = map[string]string{
	"american":   "en",
	"british":    "en",
	"australian": "en",
	"irish":      "en",
	"canadian":   "en",
	"castilian":  "es",
	"mexican":    "es",
	"argentine":  "es",
	"parisian":   "fr",
	"québécois":  "fr",
	"brazilian":  "pt",
}

// LanguageFilter keeps voices whose language code or free-text labels match
// one of the supported languages. Matching is case-insensitive; an empty
// filter keeps everything.
type LanguageFilter struct {
	codes map[string]struct{}
	words []string
}

func NewLanguageFilter(supported []string) LanguageFilter {
	f := LanguageFilter{codes: make(map[string]struct{})}
	for _, s := range supported {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if code, ok := lang.Normalize(s); ok {
			f.codes[code] = struct{}{}
			f.words = append(f.words, strings.ToLower(lang.Name(code)))
			continue
		}
		f.words = append(f.words, s)
	}
	return f
}

func (f LanguageFilter) Empty() bool {
	return len(f.codes) == 0 && len(f.words) == 0
}

// Match reports whether v speaks a supported language. A language tag or
// language label decides on its own; accent and description are consulted
// only for untagged voices, and free text matches whole words only.
func (f LanguageFilter) Match(v Voice) bool {
	if f.Empty() {
		return true
	}
	for _, tag := range []string{v.LanguageTag, v.Labels["language"]} {
		if strings.TrimSpace(tag) != "" {
			return f.matchText(tag)
		}
	}
	accent := strings.ToLower(strings.TrimSpace(v.Labels["accent"]))
	if code, ok := accentLanguage[accent]; ok {
		return f.hasCode(code)
	}
	return f.matchText(accent) || f.matchText(v.Labels["description"])
}

func (f LanguageFilter) matchText(text string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return false
	}
	if f.matchWord(text) {
		return true
	}
	for _, tok := range strings.FieldsFunc(text, func(r rune) bool { return !unicode.IsLetter(r) }) {
		if f.matchWord(tok) {
			return true
		}
	}
	return false
}

func (f LanguageFilter) matchWord(w string) bool {
	if code, ok := lang.Normalize(w); ok && f.hasCode(code) {
		return true
	}
	if code, ok := accentLanguage[w]; ok && f.hasCode(code) {
		return true
	}
	for _, word := range f.words {
		if word == w {
			return true
		}
	}
	return false
}

func (f LanguageFilter) hasCode(code string) bool {
	_, ok := f.codes[code]
	return ok
}

func (f LanguageFilter) Apply(voices []Voice) []Voice {
	out := make([]Voice, 0, len(voices))
	for _, v := range voices {
		if f.Match(v) {
			out = append(out, v)
		}
	}
	return out
}
