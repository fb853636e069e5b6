package dispatch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"sentinel-panel/internal/command"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

var (
	ErrUnknownCommand  = errors.New("dispatch: unknown command")
	ErrCooldownActive  = errors.New("dispatch: cooldown active")
	ErrExecutionFailed = errors.New("dispatch: command execution failed")
	ErrInteractionOnly = errors.New("dispatch: command is interaction only")
)

const genericErrorMessage = "There was an error executing this command!"

// ActivityRecorder receives a row for every successful command run.
type ActivityRecorder interface {
	Record(ctx context.Context, kind, message, guildID, userID string)
}

type Config struct {
	Prefix  string
	Palette command.Palette

	// DefaultCooldown applies to descriptors without their own cooldown.
	DefaultCooldown time.Duration
}

type Router struct {
	cfg       Config
	registry  *command.Registry
	platform  command.Platform
	cooldowns *CooldownTable
	activity  ActivityRecorder
	logger    *zap.Logger
}

func NewRouter(cfg Config, registry *command.Registry, platform command.Platform, cooldowns *CooldownTable, activity ActivityRecorder, logger *zap.Logger) *Router {
	if cfg.Prefix == "" {
		cfg.Prefix = "!"
	}
	if cfg.Palette == (command.Palette{}) {
		cfg.Palette = command.DefaultPalette
	}
	if cfg.DefaultCooldown <= 0 {
		cfg.DefaultCooldown = command.DefaultCooldown
	}
	if cooldowns == nil {
		cooldowns = NewCooldownTable()
	}
	return &Router{
		cfg:       cfg,
		registry:  registry,
		platform:  platform,
		cooldowns: cooldowns,
		activity:  activity,
		logger:    logger,
	}
}

func (r *Router) HandleInteraction(ctx context.Context, event *discordgo.InteractionCreate) error {
	if event == nil || event.Interaction == nil || event.Type != discordgo.InteractionApplicationCommand {
		return nil
	}
	name := event.ApplicationCommandData().Name
	desc, ok := r.registry.Resolve(name)
	if !ok {
		r.logger.Warn("no command matching interaction", zap.String("command", name))
		return fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}

	cmd := command.FromInteraction(r.platform, desc, event)
	return r.run(ctx, desc, cmd)
}

func (r *Router) HandleMessage(ctx context.Context, event *discordgo.MessageCreate) error {
	if event == nil || event.Message == nil || event.Author == nil || event.Author.Bot {
		return nil
	}
	if !strings.HasPrefix(event.Content, r.cfg.Prefix) {
		return nil
	}
	args := strings.Fields(strings.TrimPrefix(event.Content, r.cfg.Prefix))
	if len(args) == 0 {
		return nil
	}
	name := strings.ToLower(args[0])
	desc, ok := r.registry.Resolve(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}

	cmd := command.FromMessage(r.platform, desc, event, args[1:])
	if desc.InteractionOnly {
		text := fmt.Sprintf("This command is only available as a slash command. Use `/%s` instead.", desc.Name)
		if err := cmd.ReplyEmbed(r.cfg.Palette.ErrorEmbed(text), true); err != nil {
			r.logger.Warn("interaction-only notice failed", zap.String("command", desc.Name), zap.Error(err))
		}
		return ErrInteractionOnly
	}
	return r.run(ctx, desc, cmd)
}

func (r *Router) run(ctx context.Context, desc *command.Descriptor, cmd *command.Context) error {
	cooldown := desc.Cooldown
	if cooldown <= 0 {
		cooldown = r.cfg.DefaultCooldown
	}
	if left, ok := r.cooldowns.Acquire(desc.Name, cmd.UserID, cooldown); !ok {
		secs := math.Max(math.Ceil(left.Seconds()*10)/10, 0.1)
		text := fmt.Sprintf("Please wait %.1f more seconds before reusing the `%s` command.", secs, desc.Name)
		if err := cmd.ReplyEmbed(r.cfg.Palette.WarningEmbed(text), true); err != nil {
			r.logger.Warn("cooldown notice failed", zap.String("command", desc.Name), zap.Error(err))
		}
		return ErrCooldownActive
	}

	start := time.Now()
	if err := r.invoke(ctx, desc, cmd); err != nil {
		r.logger.Error("command failed",
			zap.String("command", desc.Name),
			zap.String("source", cmd.Source.String()),
			zap.String("user_id", cmd.UserID),
			zap.String("guild_id", cmd.GuildID),
			zap.Error(err),
		)
		if replyErr := cmd.Respond(command.Response{
			Embeds:    []*discordgo.MessageEmbed{r.cfg.Palette.ErrorEmbed(genericErrorMessage)},
			Ephemeral: true,
		}); replyErr != nil {
			r.logger.Error("could not send error message", zap.String("command", desc.Name), zap.Error(replyErr))
		}
		return fmt.Errorf("%w: %s: %v", ErrExecutionFailed, desc.Name, err)
	}

	r.logger.Info("command executed",
		zap.String("command", desc.Name),
		zap.String("source", cmd.Source.String()),
		zap.String("user_id", cmd.UserID),
		zap.String("guild_id", cmd.GuildID),
		zap.Duration("took", time.Since(start)),
	)
	if r.activity != nil {
		r.activity.Record(ctx, "command", fmt.Sprintf("%s used /%s", userTag(cmd.User), desc.Name), cmd.GuildID, cmd.UserID)
	}
	return nil
}

func (r *Router) invoke(ctx context.Context, desc *command.Descriptor, cmd *command.Context) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return desc.Handler.Invoke(ctx, cmd)
}

func userTag(user *discordgo.User) string {
	if user == nil {
		return "unknown"
	}
	if user.Discriminator != "" && user.Discriminator != "0" {
		return user.Username + "#" + user.Discriminator
	}
	return user.Username
}
