package commands

import (
	"context"
	"fmt"

	"sentinel-panel/internal/activity"
	"sentinel-panel/internal/command"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const defaultReason = "No reason provided"

// Moderator is the guild management surface kick needs on top of
// command.Platform.
type Moderator interface {
	Guild(guildID string) (*discordgo.Guild, error)
	Kick(guildID, userID, reason string) error
	DirectMessage(userID string, msg *discordgo.MessageSend) error
	BotUserID() string
}

type kick struct {
	palette   command.Palette
	moderator Moderator
	activity  ActivityRecorder
	owners    map[string]struct{}
	logger    *zap.Logger
}

func Kick(deps Deps) command.Descriptor {
	k := &kick{
		palette:   deps.Palette,
		moderator: deps.Moderator,
		activity:  deps.Activity,
		owners:    make(map[string]struct{}, len(deps.OwnerIDs)),
		logger:    deps.Logger,
	}
	if k.palette == (command.Palette{}) {
		k.palette = command.DefaultPalette
	}
	if k.logger == nil {
		k.logger = zap.NewNop()
	}
	for _, id := range deps.OwnerIDs {
		k.owners[id] = struct{}{}
	}

	return command.Descriptor{
		Name:        "kick",
		Description: "Kick a member from the server",
		Category:    "Moderation",
		Usage:       "/kick <target> [reason]",
		Options: []command.Option{
			{Name: "target", Description: "The member to kick", Type: command.OptionUser, Required: true},
			{Name: "reason", Description: "Reason for the kick", Type: command.OptionString},
		},
		DefaultMemberPermissions: discordgo.PermissionKickMembers,
		Handler:                  command.HandlerFunc(k.invoke),
	}
}

func (k *kick) refuse(cmd *command.Context, message string) error {
	return cmd.ReplyEmbed(k.palette.ErrorEmbed(message), true)
}

func (k *kick) invoke(ctx context.Context, cmd *command.Context) error {
	if cmd.GuildID == "" {
		return k.refuse(cmd, "This command can only be used in a server.")
	}
	if k.moderator == nil {
		return k.refuse(cmd, "Moderation is not available right now.")
	}

	target, ok := cmd.Options().Member("target")
	if !ok || target.User == nil {
		return k.refuse(cmd, "User not found or not a member of this server.")
	}
	reason, ok := cmd.Options().String("reason")
	if !ok || reason == "" {
		reason = defaultReason
	}

	if target.User.ID == cmd.UserID {
		return k.refuse(cmd, "You cannot kick yourself!")
	}

	guild, err := k.moderator.Guild(cmd.GuildID)
	if err != nil {
		k.logger.Warn("kick guild lookup failed", zap.String("guild_id", cmd.GuildID), zap.Error(err))
		return k.refuse(cmd, "Failed to kick the user. Please check my permissions.")
	}

	platform := cmd.Platform()
	invoker := cmd.Member
	if invoker == nil || len(invoker.Roles) == 0 {
		if fetched, err := platform.Member(cmd.GuildID, cmd.UserID); err == nil && fetched != nil {
			invoker = fetched
		}
	}

	_, botOwner := k.owners[cmd.UserID]
	guildOwner := guild.OwnerID == cmd.UserID
	if !botOwner && !guildOwner {
		perms := memberPermissions(platform, cmd.GuildID, invoker)
		if perms&(discordgo.PermissionKickMembers|discordgo.PermissionAdministrator) == 0 {
			return k.refuse(cmd, "You need the Kick Members permission to use this command.")
		}
	}

	if !k.kickable(platform, guild, target) {
		return k.refuse(cmd, "I cannot kick this user. They may have higher permissions than me.")
	}
	if !guildOwner && highestPosition(platform, cmd.GuildID, target) >= highestPosition(platform, cmd.GuildID, invoker) {
		return k.refuse(cmd, "You cannot kick someone with higher or equal permissions!")
	}

	// DMs are best effort; closed DMs never block the kick.
	notice := command.Embed("👢 You have been kicked", fmt.Sprintf("You have been kicked from **%s**", guild.Name), k.palette.Warning,
		command.Field("Reason", reason, true),
		command.Field("Moderator", tag(cmd.User), true),
	)
	if err := k.moderator.DirectMessage(target.User.ID, &discordgo.MessageSend{Embeds: embedList(notice)}); err != nil {
		k.logger.Debug("kick notice not delivered", zap.String("user_id", target.User.ID), zap.Error(err))
	}

	if err := k.moderator.Kick(cmd.GuildID, target.User.ID, reason); err != nil {
		k.logger.Warn("kick failed",
			zap.String("guild_id", cmd.GuildID),
			zap.String("target_id", target.User.ID),
			zap.Error(err),
		)
		return k.refuse(cmd, "Failed to kick the user. Please check my permissions.")
	}

	if k.activity != nil {
		k.activity.Record(ctx, activity.TypeModeration,
			fmt.Sprintf("%s kicked by %s: %s", tag(target.User), tag(cmd.User), reason),
			cmd.GuildID, cmd.UserID)
	}

	embed := k.palette.SuccessEmbed(fmt.Sprintf("**%s** has been kicked from the server.", tag(target.User)))
	embed.Fields = append(embed.Fields,
		command.Field("Reason", reason, true),
		command.Field("Moderator", tag(cmd.User), true),
	)
	return cmd.ReplyEmbed(embed, false)
}

// kickable mirrors Discord's own rule: the guild owner is untouchable and the
// bot's top role must sit strictly above the target's.
func (k *kick) kickable(platform command.Platform, guild *discordgo.Guild, target *discordgo.Member) bool {
	botID := k.moderator.BotUserID()
	if target.User.ID == guild.OwnerID || target.User.ID == botID {
		return false
	}
	self, err := platform.Member(guild.ID, botID)
	if err != nil || self == nil {
		return false
	}
	return highestPosition(platform, guild.ID, self) > highestPosition(platform, guild.ID, target)
}

func highestPosition(platform command.Platform, guildID string, member *discordgo.Member) int {
	if member == nil {
		return 0
	}
	highest := 0
	for _, roleID := range member.Roles {
		role, err := platform.Role(guildID, roleID)
		if err != nil || role == nil {
			continue
		}
		if role.Position > highest {
			highest = role.Position
		}
	}
	return highest
}

// memberPermissions prefers the permission set Discord computes for
// interactions and otherwise folds @everyone with the member's roles.
func memberPermissions(platform command.Platform, guildID string, member *discordgo.Member) int64 {
	if member == nil {
		return 0
	}
	if member.Permissions != 0 {
		return member.Permissions
	}
	var perms int64
	if everyone, err := platform.Role(guildID, guildID); err == nil && everyone != nil {
		perms |= everyone.Permissions
	}
	for _, roleID := range member.Roles {
		role, err := platform.Role(guildID, roleID)
		if err != nil || role == nil {
			continue
		}
		perms |= role.Permissions
	}
	return perms
}

func tag(user *discordgo.User) string {
	if user == nil {
		return "unknown"
	}
	if user.Discriminator == "" || user.Discriminator == "0" {
		return user.Username
	}
	return user.Username + "#" + user.Discriminator
}

func embedList(embeds ...*discordgo.MessageEmbed) []*discordgo.MessageEmbed {
	return embeds
}
