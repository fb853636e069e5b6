package bot

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"sentinel-panel/internal/activity"
	"sentinel-panel/internal/command"
	"sentinel-panel/internal/config"
	"sentinel-panel/internal/dispatch"
	"sentinel-panel/internal/stats"
	"sentinel-panel/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const presence = "over the server"

type Bot struct {
	cfg      config.Config
	logger   *zap.Logger
	session  *discordgo.Session
	activity *activity.Logger
	router   *dispatch.Router
	registry *command.Registry
	platform *Platform

	ready   atomic.Bool
	readyAt atomic.Int64
}

func New(cfg config.Config, logger *zap.Logger, activityLog *activity.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	b := &Bot{
		cfg:      cfg,
		logger:   logger,
		session:  session,
		activity: activityLog,
		platform: &Platform{session: session},
	}
	if b.activity != nil && cfg.ActivityChannelID != "" {
		b.activity.SetNotifier(func(ctx context.Context, entry storage.Activity) {
			if entry.Type != activity.TypeModeration {
				return
			}
			b.notifyActivity(entry)
		})
	}
	return b, nil
}

// Platform is the command.Platform backed by this bot's gateway session.
func (b *Bot) Platform() *Platform {
	return b.platform
}

// Start wires gateway events to router, opens the gateway and syncs the
// registry's slash commands.
func (b *Bot) Start(router *dispatch.Router, registry *command.Registry) error {
	b.router = router
	b.registry = registry

	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onResumed)
	b.session.AddHandler(b.onDisconnect)
	b.session.AddHandler(b.onInteractionCreate)
	b.session.AddHandler(b.onMessageCreate)

	if err := b.session.Open(); err != nil {
		return err
	}

	if !b.cfg.Commands.Sync {
		return nil
	}
	if err := b.registerCommands(); err != nil {
		return fmt.Errorf("sync commands: %w", err)
	}
	return nil
}

// Close shuts the gateway down, giving up when ctx is done first.
func (b *Bot) Close(ctx context.Context) error {
	b.ready.Store(false)
	if b.session == nil {
		return nil
	}
	return closeWithin(ctx, b.session.Close)
}

func closeWithin(ctx context.Context, closeFn func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- closeFn()
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("close gateway: %w", ctx.Err())
	}
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.ready.Store(true)
	b.readyAt.Store(time.Now().UnixNano())
	b.logger.Info("discord ready",
		zap.String("user", event.User.Username),
		zap.Int("guilds", len(event.Guilds)),
	)

	if err := session.UpdateWatchStatus(0, presence); err != nil {
		b.logger.Warn("presence update failed", zap.Error(err))
	}
	if b.activity != nil {
		b.activity.Record(context.Background(), activity.TypeConnection,
			fmt.Sprintf("Bot connected as %s", event.User.Username), "", "")
	}
}

func (b *Bot) onResumed(_ *discordgo.Session, _ *discordgo.Resumed) {
	b.ready.Store(true)
	b.logger.Info("discord session resumed")
}

func (b *Bot) onDisconnect(_ *discordgo.Session, _ *discordgo.Disconnect) {
	b.ready.Store(false)
	b.logger.Warn("discord gateway disconnected")
}

func (b *Bot) onInteractionCreate(_ *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.Type != discordgo.InteractionApplicationCommand || b.router == nil {
		return
	}
	if err := b.router.HandleInteraction(context.Background(), interaction); err != nil {
		b.logDispatchError(err)
	}
}

func (b *Bot) onMessageCreate(_ *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author == nil || msg.Author.Bot || b.router == nil {
		return
	}
	if err := b.router.HandleMessage(context.Background(), msg); err != nil {
		b.logDispatchError(err)
	}
}

// The router already logs failures with full context; the rest is noise from
// ordinary chat.
func (b *Bot) logDispatchError(err error) {
	switch {
	case errors.Is(err, dispatch.ErrUnknownCommand), errors.Is(err, dispatch.ErrCooldownActive), errors.Is(err, dispatch.ErrInteractionOnly):
		b.logger.Debug("dispatch skipped", zap.Error(err))
	case errors.Is(err, dispatch.ErrExecutionFailed):
	default:
		b.logger.Warn("dispatch error", zap.Error(err))
	}
}

func (b *Bot) notifyActivity(entry storage.Activity) {
	embed := command.Embed("🛡️ Moderation", entry.Message, b.cfg.Colors.Warning)
	if entry.GuildID != "" {
		embed.Fields = append(embed.Fields, command.Field("Guild", entry.GuildID, true))
	}
	if entry.UserID != "" {
		embed.Fields = append(embed.Fields, command.Field("Moderator", "<@"+entry.UserID+">", true))
	}
	if _, err := b.session.ChannelMessageSendEmbed(b.cfg.ActivityChannelID, embed); err != nil {
		b.logger.Warn("activity notify failed", zap.String("channel_id", b.cfg.ActivityChannelID), zap.Error(err))
	}
}

// Ready, Guilds, Uptime and Latency make the bot a stats.Source.

func (b *Bot) Ready() bool {
	return b.ready.Load()
}

func (b *Bot) Guilds() []stats.Guild {
	state := b.session.State
	state.RLock()
	defer state.RUnlock()

	out := make([]stats.Guild, 0, len(state.Guilds))
	for _, guild := range state.Guilds {
		if guild == nil {
			continue
		}
		out = append(out, stats.Guild{
			ID:          guild.ID,
			Name:        guild.Name,
			Icon:        guild.Icon,
			OwnerID:     guild.OwnerID,
			MemberCount: guild.MemberCount,
		})
	}
	return out
}

func (b *Bot) Uptime() time.Duration {
	at := b.readyAt.Load()
	if at == 0 {
		return 0
	}
	return time.Since(time.Unix(0, at))
}

func (b *Bot) Latency() time.Duration {
	return b.session.HeartbeatLatency()
}
