package svcctx

import (
	"context"
	"log/slog"
	"testing"

	"github.com/jackzampolin/notewise/internal/home"
	"github.com/jackzampolin/notewise/internal/prompts"
	"github.com/jackzampolin/notewise/internal/providers"
)

func TestServices(t *testing.T) {
	t.Run("empty context", func(t *testing.T) {
		ctx := context.Background()
		if ServicesFrom(ctx) != nil || RegistryFrom(ctx) != nil || ConfigFrom(ctx) != nil || PromptsFrom(ctx) != nil || HomeFrom(ctx) != nil {
			t.Error("expected nil services")
		}
		if LoggerFrom(ctx) != slog.Default() {
			t.Error("LoggerFrom should fall back to slog.Default")
		}
	})

	t.Run("attached services", func(t *testing.T) {
		dir, _ := home.New(t.TempDir())
		s := &Services{
			Registry: providers.NewRegistry(),
			Prompts:  prompts.NewResolver(nil, nil),
			Logger:   slog.New(slog.DiscardHandler),
			Home:     dir,
		}
		ctx := WithServices(context.Background(), s)

		if ServicesFrom(ctx) != s || RegistryFrom(ctx) != s.Registry || PromptsFrom(ctx) != s.Prompts || HomeFrom(ctx) != dir {
			t.Error("services not returned from context")
		}
		if LoggerFrom(ctx) != s.Logger {
			t.Error("LoggerFrom returned the wrong logger")
		}
	})
}
