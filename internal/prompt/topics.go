package prompt

import (
	"slices"
	"strings"
)

const genericTopic = "Choose an approachable everyday situation where artificial intelligence helps people, and build the story around it."

var topics = map[string]string{
	"what-is-ai":       "Explain what artificial intelligence is through a character who meets a helpful machine for the first time.",
	"machine-learning": "Show how a machine learns from examples, with the listener helping to teach it.",
	"neural-networks":  "Describe a neural network as a town of tiny messengers passing notes, and follow one message through it.",
	"language-models":  "Follow a talking assistant as it predicts the next word, and reveal how it learned to speak.",
	"computer-vision":  "Tell the story of a camera that learns to recognise objects on a busy street.",
	"ethics":           "Present a dilemma about fairness or privacy in an AI system and let the listener weigh the choices.",
	"everyday-ai":      "Walk through a normal day and point out each place artificial intelligence quietly helps.",
}

// Topics lists the recognised module keys in sorted order.
func Topics() []string {
	out := make([]string, 0, len(topics))
	for k := range topics {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// TopicInstruction maps a module key to its instruction; unknown and empty
// keys get the generic instruction.
func TopicInstruction(module string) string {
	key := strings.ToLower(strings.TrimSpace(module))
	key = strings.ReplaceAll(key, "_", "-")
	key = strings.ReplaceAll(key, " ", "-")
	if s, ok := topics[key]; ok {
		return s
	}
	return genericTopic
}
