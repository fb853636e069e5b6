// Package commandtest provides an in-memory command.Platform for tests.
package commandtest

import (
	"errors"
	"sync"

	"github.com/bwmarrin/discordgo"
)

var ErrNotFound = errors.New("commandtest: not found")

type Sent struct {
	ChannelID string
	Message   *discordgo.MessageSend
}

type Platform struct {
	mu sync.Mutex

	Users    map[string]*discordgo.User
	Members  map[string]*discordgo.Member
	Channels map[string]*discordgo.Channel
	Roles    map[string]*discordgo.Role

	Responses []*discordgo.InteractionResponse
	Edits     []*discordgo.WebhookEdit
	FollowUps []*discordgo.WebhookParams
	Sent      []Sent
	Typings   []string

	RespondErr error
}

func New() *Platform {
	return &Platform{
		Users:    make(map[string]*discordgo.User),
		Members:  make(map[string]*discordgo.Member),
		Channels: make(map[string]*discordgo.Channel),
		Roles:    make(map[string]*discordgo.Role),
	}
}

func (p *Platform) Respond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.RespondErr != nil {
		return p.RespondErr
	}
	p.Responses = append(p.Responses, resp)
	return nil
}

func (p *Platform) EditResponse(_ *discordgo.Interaction, edit *discordgo.WebhookEdit) (*discordgo.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Edits = append(p.Edits, edit)
	return &discordgo.Message{}, nil
}

func (p *Platform) FollowUp(_ *discordgo.Interaction, params *discordgo.WebhookParams) (*discordgo.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.FollowUps = append(p.FollowUps, params)
	return &discordgo.Message{}, nil
}

func (p *Platform) Send(channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Sent = append(p.Sent, Sent{ChannelID: channelID, Message: msg})
	return &discordgo.Message{ChannelID: channelID, Content: msg.Content}, nil
}

func (p *Platform) Typing(channelID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Typings = append(p.Typings, channelID)
	return nil
}

func (p *Platform) User(userID string) (*discordgo.User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if user, ok := p.Users[userID]; ok {
		return user, nil
	}
	return nil, ErrNotFound
}

func (p *Platform) Member(guildID, userID string) (*discordgo.Member, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if member, ok := p.Members[guildID+":"+userID]; ok {
		return member, nil
	}
	return nil, ErrNotFound
}

func (p *Platform) Channel(channelID string) (*discordgo.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if channel, ok := p.Channels[channelID]; ok {
		return channel, nil
	}
	return nil, ErrNotFound
}

func (p *Platform) Role(guildID, roleID string) (*discordgo.Role, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if role, ok := p.Roles[guildID+":"+roleID]; ok {
		return role, nil
	}
	return nil, ErrNotFound
}

func (p *Platform) AddMember(guildID string, member *discordgo.Member) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Members[guildID+":"+member.User.ID] = member
	p.Users[member.User.ID] = member.User
}

// Outbound counts every message-producing call.
func (p *Platform) Outbound() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Responses) + len(p.Edits) + len(p.FollowUps) + len(p.Sent)
}

func (p *Platform) LastSent() (Sent, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Sent) == 0 {
		return Sent{}, false
	}
	return p.Sent[len(p.Sent)-1], true
}

func (p *Platform) LastResponse() (*discordgo.InteractionResponse, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Responses) == 0 {
		return nil, false
	}
	return p.Responses[len(p.Responses)-1], true
}

// SlashCommand builds an application command interaction event.
func SlashCommand(name, guildID, channelID string, user *discordgo.User, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			ID:        "interaction-" + name,
			Type:      discordgo.InteractionApplicationCommand,
			GuildID:   guildID,
			ChannelID: channelID,
			Member:    &discordgo.Member{User: user, GuildID: guildID},
			Data: discordgo.ApplicationCommandInteractionData{
				Name:    name,
				Options: opts,
			},
		},
	}
}

func TextMessage(content, guildID, channelID string, author *discordgo.User) *discordgo.MessageCreate {
	return &discordgo.MessageCreate{
		Message: &discordgo.Message{
			ID:        "message-1",
			Content:   content,
			GuildID:   guildID,
			ChannelID: channelID,
			Author:    author,
			Member:    &discordgo.Member{},
		},
	}
}
