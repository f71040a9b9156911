// Package explain asks a hosted language model to narrate a ranked
// prediction. Failures never escape: every outcome is a Result.
package explain

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/Skufu/symptomdx/internal/diagnostics"
	"github.com/Skufu/symptomdx/internal/metrics"
	"github.com/Skufu/symptomdx/pkg/logger"
)

const DisabledMessage = "AI explanation is disabled. Set DIAG_AI_API_KEY environment variable to enable."

// Result carries either an explanation or an error message.
type Result struct {
	Explanation string `json:"explanation,omitempty"`
	Error       string `json:"error,omitempty"`
}

// OK reports whether an explanation was produced.
func (r Result) OK() bool {
	return r.Error == "" && r.Explanation != ""
}

// Config tunes a Generator.
type Config struct {
	Model      string
	Timeout    time.Duration
	RatePerMin float64
	CacheTTL   time.Duration
}

// Generator produces explanations through a Completer.
type Generator struct {
	completer Completer
	cache     Cache
	limiter   *rate.Limiter
	cfg       Config
	log       *logger.Logger
}

// NewGenerator wires a Generator. A nil completer yields a disabled
// generator; cache may be nil.
func NewGenerator(completer Completer, cache Cache, cfg Config, log *logger.Logger) *Generator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	if log == nil {
		log = logger.Get()
	}
	g := &Generator{
		completer: completer,
		cache:     cache,
		cfg:       cfg,
		log:       log.With("component", "explain"),
	}
	if cfg.RatePerMin > 0 {
		burst := max(1, int(cfg.RatePerMin/10))
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerMin/60), burst)
	}
	return g
}

// Enabled reports whether explanations can be requested.
func (g *Generator) Enabled() bool {
	return g != nil && g.completer != nil
}

// Generate explains ranked for the patient in p.
func (g *Generator) Generate(ctx context.Context, p Payload, ranked []diagnostics.Prediction) Result {
	if !g.Enabled() {
		metrics.RecordExplanation("disabled", 0)
		return Result{Error: DisabledMessage}
	}

	prompt := FormatPrompt(p, ranked)
	key := cacheKey(g.cfg.Model, prompt)
	if g.cache != nil {
		cached, ok, err := g.cache.Get(ctx, key)
		if err != nil {
			g.log.Warnw("explanation cache read failed", "error", err)
		} else if ok {
			metrics.RecordExplanation("cached", 0)
			return Result{Explanation: cached}
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	if g.limiter != nil {
		if err := g.limiter.Wait(callCtx); err != nil {
			return g.fail(err, 0)
		}
	}

	start := time.Now()
	text, err := g.completer.Complete(callCtx, systemPrompt, prompt)
	if err != nil {
		return g.fail(err, time.Since(start))
	}
	metrics.RecordExplanation("success", time.Since(start))

	if g.cache != nil {
		if err := g.cache.Set(ctx, key, text, g.cfg.CacheTTL); err != nil {
			g.log.Warnw("explanation cache write failed", "error", err)
		}
	}
	return Result{Explanation: text}
}

func (g *Generator) fail(err error, latency time.Duration) Result {
	metrics.RecordExplanation("error", latency)
	g.log.Warnw("explanation failed", "error", err)
	return Result{Error: "Failed to generate explanation: " + err.Error()}
}
