package narration

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	fencedCodeRe   = regexp.MustCompile("(?s)```.*?```")
	inlineCodeRe   = regexp.MustCompile("`[^`]*`")
	markdownLinkRe = regexp.MustCompile(`\[(.*?)\]\((.*?)\)`)
	bareURLRe      = regexp.MustCompile(`https?://\S+`)
)

var markupStripper = strings.NewReplacer(
	"*", " ",
	"_", " ",
	"#", " ",
	"~", " ",
	"|", " ",
	"<", " ",
	">", " ",
)

// SpeakableText strips markdown, links and emoji from a generated passage so
// the narrator does not read them aloud. Letters in any script are kept.
func SpeakableText(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	raw = fencedCodeRe.ReplaceAllString(raw, " ")
	raw = inlineCodeRe.ReplaceAllString(raw, " ")
	raw = markdownLinkRe.ReplaceAllString(raw, "$1")
	raw = bareURLRe.ReplaceAllString(raw, " ")
	raw = markupStripper.Replace(raw)

	var b strings.Builder
	b.Grow(len(raw))
	space := true
	for _, r := range raw {
		switch {
		case unicode.IsSpace(r):
			if !space {
				b.WriteByte(' ')
				space = true
			}
		case unicode.IsControl(r), r == '\u200d', r == '\ufe0f':
		case unicode.In(r, unicode.So, unicode.Sk):
			// emoji
		default:
			b.WriteRune(r)
			space = false
		}
	}
	return strings.TrimSpace(b.String())
}
