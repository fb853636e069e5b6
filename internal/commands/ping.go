package commands

import (
	"context"
	"fmt"
	"time"

	"sentinel-panel/internal/command"
)

func Ping(latency func() time.Duration, palette command.Palette) command.Descriptor {
	return command.Descriptor{
		Name:        "ping",
		Description: "Replies with Pong! and shows bot latency",
		Category:    defaultCategory,
		Handler: command.HandlerFunc(func(ctx context.Context, cmd *command.Context) error {
			start := time.Now()
			if err := cmd.ReplyText("Pinging...", false); err != nil {
				return err
			}
			roundTrip := time.Since(start).Milliseconds()

			var gateway int64
			if latency != nil {
				gateway = latency().Milliseconds()
			}

			embed := command.Embed(
				"🏓 Pong!",
				fmt.Sprintf("**Bot Latency:** %dms\n**API Latency:** %dms", roundTrip, gateway),
				latencyColor(roundTrip, palette),
			)
			return cmd.EditReply(command.Response{Embeds: embedList(embed)})
		}),
	}
}

func latencyColor(ms int64, palette command.Palette) int {
	switch {
	case ms < 100:
		return palette.Success
	case ms < 200:
		return palette.Warning
	default:
		return palette.Error
	}
}
