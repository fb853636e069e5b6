// Package commands holds the built-in command set registered at startup.
package commands

import (
	"context"
	"time"

	"sentinel-panel/internal/command"

	"go.uber.org/zap"
)

// ActivityRecorder persists dashboard activity rows.
type ActivityRecorder interface {
	Record(ctx context.Context, kind, message, guildID, userID string)
}

type Deps struct {
	Palette   command.Palette
	Moderator Moderator
	Activity  ActivityRecorder
	// Latency reports the gateway heartbeat round trip.
	Latency  func() time.Duration
	OwnerIDs []string
	Logger   *zap.Logger
}

// Register adds help, ping and kick to registry.
func Register(registry *command.Registry, deps Deps) error {
	if deps.Palette == (command.Palette{}) {
		deps.Palette = command.DefaultPalette
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	for _, desc := range []command.Descriptor{
		Help(registry, deps.Palette),
		Ping(deps.Latency, deps.Palette),
		Kick(deps),
	} {
		if err := registry.Register(desc); err != nil {
			return err
		}
	}
	return nil
}
