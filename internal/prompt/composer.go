package prompt

import (
	"fmt"
	"strings"
	"time"

	"github.com/ent0n29/storyteller/internal/lang"
	"github.com/ent0n29/storyteller/internal/session"
)

const (
	DefaultUserName = "the listener"
	DefaultLevel    = "beginner"
)

// Identity describes who the story is told to.
type Identity struct {
	UserName string `json:"userName"`
	Language string `json:"language"`
	Level    string `json:"level"`
	Module   string `json:"module,omitempty"`
}

// Composer builds the single system message that leads every generation.
// The zero value is usable; Clock adds a part-of-day hint when set.
type Composer struct {
	Clock func() time.Time
}

func NewComposer(clock func() time.Time) *Composer {
	return &Composer{Clock: clock}
}

func (c *Composer) SystemMessage(id Identity) session.Turn {
	name := strings.TrimSpace(id.UserName)
	if name == "" {
		name = DefaultUserName
	}
	language := lang.DisplayName(id.Language)
	level := strings.TrimSpace(id.Level)
	if level == "" {
		level = DefaultLevel
	}

	var b strings.Builder
	b.WriteString("You are a personal storyteller narrating an interactive story that introduces artificial intelligence. ")
	fmt.Fprintf(&b, "Address the listener by name (%s). ", name)
	fmt.Fprintf(&b, "Speak only in %s. ", language)
	fmt.Fprintf(&b, "Match the listener's level (%s)", level)
	if hint := levelHint(level); hint != "" {
		b.WriteString(": ")
		b.WriteString(hint)
	}
	b.WriteString(". ")
	b.WriteString(TopicInstruction(id.Module))
	if c != nil && c.Clock != nil {
		fmt.Fprintf(&b, " It is %s for the listener; let the scene reflect that.", partOfDay(c.Clock()))
	}
	b.WriteString(" Keep it engaging and friendly, and end with a question that invites the listener to continue.")

	return session.Turn{Role: session.RoleSystem, Content: b.String()}
}

// Compose returns [system] ++ history ++ [user(prompt)]. System turns already
// present in history are dropped so the sequence leads with exactly one.
func (c *Composer) Compose(id Identity, history []session.Turn, userPrompt string) []session.Turn {
	out := make([]session.Turn, 0, len(history)+2)
	out = append(out, c.SystemMessage(id))
	for _, t := range history {
		if t.Role == session.RoleSystem {
			continue
		}
		out = append(out, t)
	}
	out = append(out, session.Turn{Role: session.RoleUser, Content: userPrompt})
	return out
}

func levelHint(level string) string {
	switch strings.ToLower(level) {
	case "beginner":
		return "short sentences, everyday words, explain every new idea with a familiar example"
	case "intermediate":
		return "natural pacing, introduce a few technical terms and define them in context"
	case "advanced":
		return "rich vocabulary and precise terminology, assume the basics are known"
	default:
		return ""
	}
}

func partOfDay(t time.Time) string {
	switch h := t.Hour(); {
	case h >= 5 && h < 12:
		return "morning"
	case h >= 12 && h < 17:
		return "afternoon"
	case h >= 17 && h < 21:
		return "evening"
	default:
		return "night"
	}
}
