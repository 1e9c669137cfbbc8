// Package gateway wraps a single call to the external reasoning engine with
// prompt layering, a fixed timeout, a defined failure taxonomy, two cache
// tiers, and a demo/sandbox path.
package gateway

import (
	"context"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/execboard/boardroom/internal/domain"
	"github.com/execboard/boardroom/internal/engine"
	"github.com/execboard/boardroom/internal/evidence"
	"github.com/execboard/boardroom/internal/tokens"
)

const (
	// callTimeout bounds every engine call. A timeout is reported as a
	// Timeout failure, distinct from a provider-reported error.
	callTimeout = 30 * time.Second

	// fastCacheSize bounds the in-process cache tier.
	fastCacheSize = 1024
)

// Request describes one gateway invocation.
type Request struct {
	Role     domain.Role
	Scenario string
	// Context is the accumulated discussion context, including prior-round
	// and current-round responses.
	Context  string
	Evidence *evidence.Bundle
	// Demo routes the call to the canned engine and enables canned fallback
	// on real failures. Non-demo callers never receive canned data.
	Demo bool
}

// Option configures the Gateway.
type Option func(*Gateway)

// WithSharedCache attaches the second cache tier.
func WithSharedCache(c SharedCache) Option {
	return func(g *Gateway) { g.shared = c }
}

// WithModel sets the model identifier requested from the engine.
func WithModel(model string) Option {
	return func(g *Gateway) { g.model = model }
}

// WithGenerationOptions sets the per-call engine options.
func WithGenerationOptions(opts engine.Options) Option {
	return func(g *Gateway) { g.genOpts = opts }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) { g.logger = logger }
}

// WithTimeout overrides the call timeout. Tests use this; production keeps
// the default.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.timeout = d }
}

// WithDemoEngine replaces the canned engine serving demo callers.
func WithDemoEngine(eng engine.Engine) Option {
	return func(g *Gateway) { g.demo = eng }
}

// Gateway invokes the reasoning engine for one role at a time.
type Gateway struct {
	engine  engine.Engine
	demo    engine.Engine
	fast    *expirable.LRU[string, *domain.AgentResponse]
	shared  SharedCache
	counter *tokens.Counter
	model   string
	genOpts engine.Options
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a Gateway around the given engine.
func New(eng engine.Engine, opts ...Option) *Gateway {
	g := &Gateway{
		engine:  eng,
		demo:    engine.NewDemoEngine(),
		fast:    expirable.NewLRU[string, *domain.AgentResponse](fastCacheSize, nil, CacheTTL),
		counter: tokens.NewCounter(),
		model:   "gpt-4o",
		genOpts: engine.Options{Temperature: 0.7},
		timeout: callTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Respond generates one role's answer. The returned response is immutable;
// the caller appends it to the round and the running context. All failures
// are terminal for this single call.
func (g *Gateway) Respond(ctx context.Context, req Request) (*domain.AgentResponse, error) {
	key := cacheKey(req.Role, req.Scenario, req.Context)

	if resp, ok := g.fast.Get(key); ok {
		return resp, nil
	}
	if g.shared != nil {
		if resp, ok := g.shared.Get(ctx, key); ok {
			g.fast.Add(key, resp)
			return resp, nil
		}
	}

	// Demo callers run the same prompt/timeout/parsing path against the
	// canned engine, falling back to the fixed per-role text on any
	// failure. Non-demo callers never receive canned data.
	if req.Demo {
		raw, err := g.generate(ctx, g.demo, req)
		if err != nil {
			g.logger.Warn("demo engine failed, serving canned fallback",
				slog.String("role", string(req.Role)),
				slog.String("error", err.Error()))
			resp := g.cannedResponse(req.Role)
			g.store(ctx, key, resp)
			return resp, nil
		}
		resp := g.buildResponse(req.Role, raw, g.demo.Name())
		g.store(ctx, key, resp)
		return resp, nil
	}

	raw, err := g.generate(ctx, g.engine, req)
	if err != nil {
		return nil, err
	}

	resp := g.buildResponse(req.Role, raw, g.model)
	g.store(ctx, key, resp)
	return resp, nil
}

// generate races the engine call against the fixed timeout so a stalled
// engine cannot hold the session past the bound.
func (g *Gateway) generate(ctx context.Context, eng engine.Engine, req Request) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	prompt := BuildPrompt(req.Role, req.Scenario, req.Context, req.Evidence)

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := eng.Generate(callCtx, prompt, g.model, g.genOpts)
		done <- result{text, err}
	}()

	select {
	case <-callCtx.Done():
		if ctx.Err() != nil {
			// Caller cancellation, not our bound.
			return "", domain.ErrTimeout("call canceled").WithRole(req.Role)
		}
		return "", domain.ErrTimeout("engine call exceeded 30s bound").WithRole(req.Role)
	case r := <-done:
		if r.err != nil {
			g.logger.Warn("engine call failed",
				slog.String("role", string(req.Role)),
				slog.String("error_type", string(domain.TypeOf(r.err))),
				slog.String("error", r.err.Error()))
			return "", r.err
		}
		return r.text, nil
	}
}

func (g *Gateway) cannedResponse(role domain.Role) *domain.AgentResponse {
	text := engine.CannedResponse(role)
	return &domain.AgentResponse{
		Role:       role,
		Text:       text,
		Model:      "demo",
		TokenCount: g.counter.Count(g.model, text),
		CreatedAt:  time.Now(),
	}
}

// buildResponse parses the structured metadata block out of the raw output
// and strips it from the displayed text. model is the identifier recorded on
// the response: the configured model, or the demo engine's name.
func (g *Gateway) buildResponse(role domain.Role, raw, model string) *domain.AgentResponse {
	meta, text := domain.ExtractMetadata(raw)
	return &domain.AgentResponse{
		Role:       role,
		Text:       text,
		Model:      model,
		TokenCount: g.counter.Count(g.model, text),
		CreatedAt:  time.Now(),
		Metadata:   meta,
	}
}

func (g *Gateway) store(ctx context.Context, key string, resp *domain.AgentResponse) {
	g.fast.Add(key, resp)
	if g.shared != nil {
		g.shared.Set(ctx, key, resp, CacheTTL)
	}
}
