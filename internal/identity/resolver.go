package identity

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/iliyamo/ggame-miniapp/internal/credential"
)

// Hooks carries what resolution reports through. Logger is optional.
type Hooks struct {
	Logger *zap.Logger
}

func (h Hooks) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

// bestEffort runs fn, logging an error or a panic instead of propagating it.
func (h Hooks) bestEffort(step string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			h.logger().Warn("host call panicked", zap.String("step", step), zap.Any("panic", r))
		}
	}()
	if err := fn(); err != nil {
		h.logger().Warn("host call failed", zap.String("step", step), zap.Error(err))
	}
}

// Options configure the default strategy chain.
type Options struct {
	BotToken        string
	HeaderColor     string
	BackgroundColor string
	Prefixes        PrefixPolicy
	Hooks           Hooks
}

// Resolver walks an ordered list of strategies; the first that finds an id
// wins. If none does, the fallback identity is used.
type Resolver struct {
	strategies []Strategy
	prefixes   PrefixPolicy
	hooks      Hooks
}

// NewResolver builds the standard chain: host payload, user_id parameter,
// host SDK, fallback.
func NewResolver(opts Options) *Resolver {
	return NewResolverWith([]Strategy{
		PayloadStrategy{BotToken: opts.BotToken, Hooks: opts.Hooks},
		URLParamStrategy{},
		HostSDKStrategy{HeaderColor: opts.HeaderColor, BackgroundColor: opts.BackgroundColor, Hooks: opts.Hooks},
		FallbackStrategy{},
	}, opts.Prefixes, opts.Hooks)
}

// NewResolverWith builds a resolver over a custom chain. An empty prefix
// policy falls back to DefaultPrefixes.
func NewResolverWith(strategies []Strategy, prefixes PrefixPolicy, hooks Hooks) *Resolver {
	if prefixes.Default == "" {
		prefixes.Default = DefaultPrefixes().Default
	}
	return &Resolver{strategies: strategies, prefixes: prefixes, hooks: hooks}
}

// Order lists the sources in the order they are tried.
func (r *Resolver) Order() []Source {
	out := make([]Source, 0, len(r.strategies))
	for _, s := range r.strategies {
		out = append(out, s.Source())
	}
	return out
}

// Resolve finds the identity for env and derives its credential. It does
// not touch any store.
func (r *Resolver) Resolve(env Environment) Resolution {
	if env.Query == nil {
		env.Query = map[string][]string{}
	}
	id := UserIdentity{RawID: FallbackUserID, Source: SourceFallbackTest}
	for _, s := range r.strategies {
		if raw, ok := s.Resolve(env); ok {
			id = UserIdentity{RawID: raw, Source: s.Source()}
			break
		}
	}
	r.hooks.logger().Info("identity resolved",
		zap.String("source", string(id.Source)), zap.String("user_id", id.RawID))
	return Resolution{Identity: id, Credential: r.prefixes.Derive(id)}
}

// Apply resolves env and writes the identity and credential to store.
// Applying the same environment twice leaves the store unchanged.
func (r *Resolver) Apply(ctx context.Context, env Environment, store credential.Store) (Resolution, error) {
	res := r.Resolve(env)
	if err := store.Set(ctx, credential.KeyUserIdentity, res.Identity.RawID); err != nil {
		return Resolution{}, fmt.Errorf("store identity: %w", err)
	}
	if err := store.Set(ctx, credential.KeyAccessCredential, res.Credential.Value); err != nil {
		return Resolution{}, fmt.Errorf("store credential: %w", err)
	}
	return res, nil
}
