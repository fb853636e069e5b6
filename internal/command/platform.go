package command

import "github.com/bwmarrin/discordgo"

// Platform is the slice of the Discord client the dispatch layer needs.
// internal/bot adapts *discordgo.Session to it.
type Platform interface {
	Respond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse) error
	EditResponse(interaction *discordgo.Interaction, edit *discordgo.WebhookEdit) (*discordgo.Message, error)
	FollowUp(interaction *discordgo.Interaction, params *discordgo.WebhookParams) (*discordgo.Message, error)
	Send(channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error)
	Typing(channelID string) error
	User(userID string) (*discordgo.User, error)
	Member(guildID, userID string) (*discordgo.Member, error)
	Channel(channelID string) (*discordgo.Channel, error)
	Role(guildID, roleID string) (*discordgo.Role, error)
}
