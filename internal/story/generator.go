// Package story runs the generation fallback chain: primary model, secondary
// model, then a pre-written passage for the listener's language and level.
package story

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ent0n29/storyteller/internal/journal"
	"github.com/ent0n29/storyteller/internal/llm"
	"github.com/ent0n29/storyteller/internal/observability"
	"github.com/ent0n29/storyteller/internal/policy"
	"github.com/ent0n29/storyteller/internal/prompt"
	"github.com/ent0n29/storyteller/internal/reliability"
	"github.com/ent0n29/storyteller/internal/session"
)

type Tier string

const (
	TierPrimary   Tier = "primary"
	TierSecondary Tier = "secondary"
	TierStatic    Tier = "static"
)

// ErrAllTiersFailed is only reachable when the static tier is disabled.
var ErrAllTiersFailed = errors.New("all generation tiers failed")

// Request is one generation call. A nil Messages slice means "use the stored
// history for SessionID"; a non-nil one replaces it.
type Request struct {
	Prompt    string
	SessionID string
	Messages  []session.Turn
	Identity  prompt.Identity
}

type Result struct {
	Text  string
	Tier  Tier
	Model string
}

// Attempt is the outcome of one model tier: usable text or a tagged failure.
type Attempt struct {
	Text    string
	Failure reliability.FailureKind
	Err     error
}

func (a Attempt) OK() bool { return a.Failure == reliability.FailureNone }

type Config struct {
	Params      llm.Params
	CallTimeout time.Duration
	// RedactJournal strips PII from prompts before they are journaled.
	RedactJournal bool
	// DisableStatic turns off the last tier; used by the CLI to surface
	// provider problems instead of masking them.
	DisableStatic bool
}

type Generator struct {
	primary   llm.Model
	secondary llm.Model
	composer  *prompt.Composer
	sessions  session.Store
	passages  *Passages
	journal   journal.Store
	metrics   *observability.Metrics
	logger    *zap.Logger
	cfg       Config
}

// Option customizes a Generator.
type Option func(*Generator)

func WithJournal(j journal.Store) Option { return func(g *Generator) { g.journal = j } }

func WithMetrics(m *observability.Metrics) Option { return func(g *Generator) { g.metrics = m } }

func WithLogger(l *zap.Logger) Option { return func(g *Generator) { g.logger = l } }

func WithPassages(p *Passages) Option { return func(g *Generator) { g.passages = p } }

func WithComposer(c *prompt.Composer) Option { return func(g *Generator) { g.composer = c } }

// NewGenerator builds the chain. secondary may be nil, in which case a failed
// primary goes straight to the static tier.
func NewGenerator(primary, secondary llm.Model, sessions session.Store, cfg Config, opts ...Option) *Generator {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 15 * time.Second
	}
	g := &Generator{
		primary:   primary,
		secondary: secondary,
		composer:  prompt.NewComposer(nil),
		sessions:  sessions,
		passages:  DefaultPassages(),
		logger:    zap.NewNop(),
		cfg:       cfg,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns the first usable passage. Model-tier successes are
// appended to the session as user and assistant turns; static passages are not.
func (g *Generator) Generate(ctx context.Context, req Request) (Result, error) {
	sessionID := strings.TrimSpace(req.SessionID)
	history := req.Messages
	if history == nil && sessionID != "" && g.sessions != nil {
		history = g.sessions.Load(sessionID)
	}
	messages := g.composer.Compose(req.Identity, history, req.Prompt)
	logger := g.logger.With(zap.String("session_id", sessionID))

	tiers := []struct {
		tier  Tier
		model llm.Model
	}{
		{TierPrimary, g.primary},
		{TierSecondary, g.secondary},
	}
	for _, t := range tiers {
		if t.model == nil {
			continue
		}
		attempt := g.attempt(ctx, t.model, messages)
		if attempt.OK() {
			res := Result{Text: attempt.Text, Tier: t.tier, Model: t.model.Name()}
			g.persist(sessionID, history, req.Prompt, res.Text, logger)
			g.record(ctx, req, res, logger)
			g.countTier(res.Tier)
			return res, nil
		}
		if g.metrics != nil {
			g.metrics.GenerationFailures.WithLabelValues(string(t.tier), string(attempt.Failure)).Inc()
		}
		logger.Warn("generation tier failed",
			zap.String("tier", string(t.tier)),
			zap.String("model", t.model.Name()),
			zap.String("failure", string(attempt.Failure)),
			zap.Error(attempt.Err),
		)
		// The caller is gone; no tier can reach it.
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
	}

	if g.cfg.DisableStatic {
		return Result{}, ErrAllTiersFailed
	}
	res := Result{Text: g.passages.Select(req.Identity.Language, req.Identity.Level), Tier: TierStatic}
	g.record(ctx, req, res, logger)
	g.countTier(res.Tier)
	return res, nil
}

func (g *Generator) attempt(ctx context.Context, model llm.Model, messages []session.Turn) Attempt {
	callCtx, cancel := context.WithTimeout(ctx, g.cfg.CallTimeout)
	defer cancel()

	started := time.Now()
	text, err := model.Complete(callCtx, messages, g.cfg.Params)
	if g.metrics != nil {
		g.metrics.ObserveProviderCall("llm", "complete", time.Since(started))
	}
	if err != nil {
		kind := reliability.Classify(err)
		if g.metrics != nil {
			g.metrics.ProviderErrors.WithLabelValues("llm", string(kind)).Inc()
		}
		return Attempt{Failure: kind, Err: err}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Attempt{Failure: reliability.FailureEmpty, Err: fmt.Errorf("%s returned no text", model.Name())}
	}
	return Attempt{Text: text}
}

func (g *Generator) persist(sessionID string, history []session.Turn, userPrompt, text string, logger *zap.Logger) {
	if sessionID == "" || g.sessions == nil {
		return
	}
	turns := make([]session.Turn, 0, len(history)+2)
	turns = append(turns, history...)
	turns = append(turns,
		session.Turn{Role: session.RoleUser, Content: userPrompt},
		session.Turn{Role: session.RoleAssistant, Content: text},
	)
	if err := g.sessions.Save(sessionID, turns); err != nil {
		// History came from the client and failed validation; the passage
		// itself is still good.
		logger.Warn("session persist failed", zap.Error(err))
	}
}

func (g *Generator) record(ctx context.Context, req Request, res Result, logger *zap.Logger) {
	if g.journal == nil {
		return
	}
	promptText := req.Prompt
	redacted := false
	if g.cfg.RedactJournal {
		promptText, redacted = policy.RedactPII(promptText)
	}
	entry := journal.Entry{
		SessionID:   strings.TrimSpace(req.SessionID),
		UserName:    req.Identity.UserName,
		Language:    req.Identity.Language,
		Level:       req.Identity.Level,
		Module:      req.Identity.Module,
		Tier:        string(res.Tier),
		Model:       res.Model,
		Prompt:      promptText,
		Text:        res.Text,
		PIIRedacted: redacted,
	}
	if err := g.journal.Record(context.WithoutCancel(ctx), entry); err != nil {
		logger.Warn("journal record failed", zap.Error(err))
	}
}

func (g *Generator) countTier(t Tier) {
	if g.metrics != nil {
		g.metrics.GenerationTiers.WithLabelValues(string(t)).Inc()
	}
}
