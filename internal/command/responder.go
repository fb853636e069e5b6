package command

import "github.com/bwmarrin/discordgo"

type interactionResponder struct {
	platform    Platform
	interaction *discordgo.Interaction
}

func flagsFor(ephemeral bool) discordgo.MessageFlags {
	if ephemeral {
		return discordgo.MessageFlagsEphemeral
	}
	return 0
}

func (r *interactionResponder) reply(resp Response) error {
	return r.platform.Respond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: resp.Content,
			Embeds:  resp.Embeds,
			Flags:   flagsFor(resp.Ephemeral),
		},
	})
}

func (r *interactionResponder) followUp(resp Response) error {
	_, err := r.platform.FollowUp(r.interaction, &discordgo.WebhookParams{
		Content: resp.Content,
		Embeds:  resp.Embeds,
		Flags:   flagsFor(resp.Ephemeral),
	})
	return err
}

func (r *interactionResponder) editReply(resp Response) error {
	content := resp.Content
	embeds := resp.Embeds
	if embeds == nil {
		embeds = []*discordgo.MessageEmbed{}
	}
	_, err := r.platform.EditResponse(r.interaction, &discordgo.WebhookEdit{
		Content: &content,
		Embeds:  &embeds,
	})
	return err
}

func (r *interactionResponder) deferReply(ephemeral bool) error {
	return r.platform.Respond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: flagsFor(ephemeral)},
	})
}

// messageResponder emulates interaction replies with plain channel messages.
type messageResponder struct {
	platform Platform
	message  *discordgo.Message
}

func (r *messageResponder) reply(resp Response) error {
	_, err := r.platform.Send(r.message.ChannelID, &discordgo.MessageSend{
		Content:   resp.Content,
		Embeds:    resp.Embeds,
		Reference: r.message.Reference(),
	})
	return err
}

func (r *messageResponder) followUp(resp Response) error {
	_, err := r.platform.Send(r.message.ChannelID, &discordgo.MessageSend{
		Content: resp.Content,
		Embeds:  resp.Embeds,
	})
	return err
}

// Text channels cannot edit another user's invocation, so an edit is a new
// message.
func (r *messageResponder) editReply(resp Response) error {
	return r.followUp(resp)
}

func (r *messageResponder) deferReply(bool) error {
	return r.platform.Typing(r.message.ChannelID)
}
