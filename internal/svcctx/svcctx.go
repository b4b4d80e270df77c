// Package svcctx passes the services a notewise command needs through its
// context. The root command builds them once in PersistentPreRunE; every
// subcommand reads them back with the accessors here.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/jackzampolin/notewise/internal/config"
	"github.com/jackzampolin/notewise/internal/home"
	"github.com/jackzampolin/notewise/internal/prompts"
	"github.com/jackzampolin/notewise/internal/providers"
)

// Services is built at startup from the config file and the notewise home.
type Services struct {
	Registry *providers.Registry
	Config   *config.Manager
	Prompts  *prompts.Resolver
	Logger   *slog.Logger
	Home     *home.Dir
}

type ctxKey struct{}

func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// ServicesFrom returns nil for a context that never went through
// WithServices, such as the one a unit test starts with.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(ctxKey{}).(*Services)
	return s
}

func pick[T any](ctx context.Context, get func(*Services) T) T {
	var zero T
	s := ServicesFrom(ctx)
	if s == nil {
		return zero
	}
	return get(s)
}

func RegistryFrom(ctx context.Context) *providers.Registry {
	return pick(ctx, func(s *Services) *providers.Registry { return s.Registry })
}

func ConfigFrom(ctx context.Context) *config.Manager {
	return pick(ctx, func(s *Services) *config.Manager { return s.Config })
}

func PromptsFrom(ctx context.Context) *prompts.Resolver {
	return pick(ctx, func(s *Services) *prompts.Resolver { return s.Prompts })
}

func HomeFrom(ctx context.Context) *home.Dir {
	return pick(ctx, func(s *Services) *home.Dir { return s.Home })
}

// LoggerFrom never returns nil; without services it is slog.Default.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if l := pick(ctx, func(s *Services) *slog.Logger { return s.Logger }); l != nil {
		return l
	}
	return slog.Default()
}
