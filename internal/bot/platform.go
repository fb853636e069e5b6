package bot

import (
	"errors"

	"github.com/bwmarrin/discordgo"
)

var ErrRoleNotFound = errors.New("bot: role not found")

// Platform adapts *discordgo.Session to command.Platform. Lookups read the
// gateway state cache first and fall back to REST.
type Platform struct {
	session *discordgo.Session
}

func (p *Platform) Respond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse) error {
	return p.session.InteractionRespond(interaction, resp)
}

func (p *Platform) EditResponse(interaction *discordgo.Interaction, edit *discordgo.WebhookEdit) (*discordgo.Message, error) {
	return p.session.InteractionResponseEdit(interaction, edit)
}

func (p *Platform) FollowUp(interaction *discordgo.Interaction, params *discordgo.WebhookParams) (*discordgo.Message, error) {
	return p.session.FollowupMessageCreate(interaction, true, params)
}

func (p *Platform) Send(channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	return p.session.ChannelMessageSendComplex(channelID, msg)
}

func (p *Platform) Typing(channelID string) error {
	return p.session.ChannelTyping(channelID)
}

func (p *Platform) User(userID string) (*discordgo.User, error) {
	return p.session.User(userID)
}

func (p *Platform) Member(guildID, userID string) (*discordgo.Member, error) {
	if member, err := p.session.State.Member(guildID, userID); err == nil {
		return member, nil
	}
	member, err := p.session.GuildMember(guildID, userID)
	if err != nil {
		return nil, err
	}
	_ = p.session.State.MemberAdd(member)
	return member, nil
}

func (p *Platform) Channel(channelID string) (*discordgo.Channel, error) {
	if channel, err := p.session.State.Channel(channelID); err == nil {
		return channel, nil
	}
	return p.session.Channel(channelID)
}

func (p *Platform) Role(guildID, roleID string) (*discordgo.Role, error) {
	if role, err := p.session.State.Role(guildID, roleID); err == nil {
		return role, nil
	}
	roles, err := p.session.GuildRoles(guildID)
	if err != nil {
		return nil, err
	}
	for _, role := range roles {
		if role.ID == roleID {
			return role, nil
		}
	}
	return nil, ErrRoleNotFound
}

// Guild, Kick, DirectMessage and BotUserID implement commands.Moderator.

func (b *Bot) Guild(guildID string) (*discordgo.Guild, error) {
	if guild, err := b.session.State.Guild(guildID); err == nil {
		return guild, nil
	}
	return b.session.Guild(guildID)
}

func (b *Bot) Kick(guildID, userID, reason string) error {
	return b.session.GuildMemberDeleteWithReason(guildID, userID, reason)
}

func (b *Bot) DirectMessage(userID string, msg *discordgo.MessageSend) error {
	channel, err := b.session.UserChannelCreate(userID)
	if err != nil {
		return err
	}
	_, err = b.session.ChannelMessageSendComplex(channel.ID, msg)
	return err
}

func (b *Bot) BotUserID() string {
	if b.session.State == nil || b.session.State.User == nil {
		return ""
	}
	return b.session.State.User.ID
}
