package story

import (
	"strings"

	"github.com/ent0n29/storyteller/internal/lang"
	"github.com/ent0n29/storyteller/internal/prompt"
)

// GenericPassage is served when no pre-written passage exists for the
// listener's language and level.
const GenericPassage = "Once upon a time, a curious mind asked a machine to tell a story, and together they began to learn."

type passageKey struct {
	language string
	level    string
}

// Passages is the last tier of the chain. It never fails.
type Passages struct {
	byKey    map[passageKey]string
	fallback string
}

var defaultPassages = map[passageKey]string{
	{"en", "beginner"}:     "Once upon a time, a small robot learned to read. Every day it looked at many pictures and found patterns. That is how artificial intelligence learns: from examples. What would you like the robot to learn next?",
	{"en", "intermediate"}: "In a quiet lab, a model studied millions of sentences until it could guess the next word with surprising skill. It did not understand the world the way you do, but it found patterns no person could count. Where should our story take this model next?",
	{"en", "advanced"}:     "Deep inside a data center, a neural network adjusted billions of weights, nudging each one to reduce its error on the next example. Out of that slow optimization emerged something that looked a lot like understanding. Which part of its training would you like to explore?",
	{"es", "beginner"}:     "Había una vez un pequeño robot que aprendía a leer. Cada día miraba muchas imágenes y encontraba patrones. Así aprende la inteligencia artificial: con ejemplos. ¿Qué quieres que aprenda el robot ahora?",
	{"es", "intermediate"}: "En un laboratorio tranquilo, un modelo estudió millones de frases hasta poder adivinar la siguiente palabra. No entendía el mundo como tú, pero encontraba patrones que nadie podría contar. ¿Hacia dónde llevamos a este modelo?",
	{"es", "advanced"}:     "En lo profundo de un centro de datos, una red neuronal ajustaba miles de millones de pesos para reducir su error en cada ejemplo. De esa lenta optimización surgió algo muy parecido a la comprensión. ¿Qué parte de su entrenamiento quieres explorar?",
	{"fr", "beginner"}:     "Il était une fois un petit robot qui apprenait à lire. Chaque jour, il regardait beaucoup d'images et trouvait des motifs. C'est ainsi que l'intelligence artificielle apprend : avec des exemples. Que veux-tu que le robot apprenne ensuite ?",
	{"fr", "intermediate"}: "Dans un laboratoire calme, un modèle a étudié des millions de phrases jusqu'à deviner le mot suivant. Il ne comprenait pas le monde comme toi, mais il trouvait des motifs que personne ne pourrait compter. Où emmenons-nous ce modèle ?",
	{"fr", "advanced"}:     "Au cœur d'un centre de données, un réseau de neurones ajustait des milliards de poids pour réduire son erreur à chaque exemple. De cette lente optimisation est née une forme de compréhension. Quelle partie de son entraînement veux-tu explorer ?",
	{"de", "beginner"}:     "Es war einmal ein kleiner Roboter, der lesen lernte. Jeden Tag sah er viele Bilder und fand Muster. So lernt künstliche Intelligenz: aus Beispielen. Was soll der Roboter als Nächstes lernen?",
	{"it", "beginner"}:     "C'era una volta un piccolo robot che imparava a leggere. Ogni giorno guardava tante immagini e trovava degli schemi. Così impara l'intelligenza artificiale: dagli esempi. Cosa vuoi che impari il robot adesso?",
	{"pt", "beginner"}:     "Era uma vez um pequeno robô que aprendia a ler. Todos os dias ele olhava muitas imagens e encontrava padrões. É assim que a inteligência artificial aprende: com exemplos. O que você quer que o robô aprenda agora?",
}

// DefaultPassages returns the built-in passage library.
func DefaultPassages() *Passages {
	return NewPassages(nil, GenericPassage)
}

// NewPassages layers overrides (keyed "lang/level") over the built-in library.
func NewPassages(overrides map[string]string, fallback string) *Passages {
	p := &Passages{byKey: make(map[passageKey]string, len(defaultPassages)+len(overrides)), fallback: strings.TrimSpace(fallback)}
	if p.fallback == "" {
		p.fallback = GenericPassage
	}
	for k, v := range defaultPassages {
		p.byKey[k] = v
	}
	for raw, text := range overrides {
		language, level, ok := strings.Cut(raw, "/")
		if !ok || strings.TrimSpace(text) == "" {
			continue
		}
		p.byKey[keyFor(language, level)] = strings.TrimSpace(text)
	}
	return p
}

// Select returns the passage for (language, level), or the generic one.
// Both inputs are free-form: "Spanish", "es" and "es-MX" select the same entry.
func (p *Passages) Select(language, level string) string {
	if text, ok := p.byKey[keyFor(language, level)]; ok {
		return text
	}
	return p.fallback
}

func keyFor(language, level string) passageKey {
	code, ok := lang.Normalize(language)
	if !ok {
		if strings.TrimSpace(language) == "" {
			code = lang.Default
		} else {
			code = strings.ToLower(strings.TrimSpace(language))
		}
	}
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		level = prompt.DefaultLevel
	}
	return passageKey{language: code, level: level}
}
