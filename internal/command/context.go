package command

import (
	"sync"

	"github.com/bwmarrin/discordgo"
)

type Source int

const (
	SourceInteraction Source = iota
	SourceMessage
)

func (s Source) String() string {
	if s == SourceMessage {
		return "message"
	}
	return "interaction"
}

// Response is the platform-neutral reply body. Ephemeral has no effect on the
// text path.
type Response struct {
	Content   string
	Embeds    []*discordgo.MessageEmbed
	Ephemeral bool
}

type responder interface {
	reply(Response) error
	followUp(Response) error
	editReply(Response) error
	deferReply(ephemeral bool) error
}

// Context is what a handler sees for one invocation, whichever way the command
// arrived.
type Context struct {
	Name      string
	Source    Source
	UserID    string
	GuildID   string
	ChannelID string
	User      *discordgo.User
	Member    *discordgo.Member

	// Interaction is set on the slash path, Message on the prefix path.
	Interaction *discordgo.InteractionCreate
	Message     *discordgo.MessageCreate

	options   Options
	responder responder
	platform  Platform

	mu       sync.Mutex
	replied  bool
	deferred bool
}

func FromInteraction(platform Platform, desc *Descriptor, event *discordgo.InteractionCreate) *Context {
	user := event.User
	if event.Member != nil && event.Member.User != nil {
		user = event.Member.User
	}
	data := event.ApplicationCommandData()

	ctx := &Context{
		Name:        desc.Name,
		Source:      SourceInteraction,
		GuildID:     event.GuildID,
		ChannelID:   event.ChannelID,
		User:        user,
		Member:      event.Member,
		Interaction: event,
		platform:    platform,
		options:     newInteractionOptions(platform, event.GuildID, data),
		responder:   &interactionResponder{platform: platform, interaction: event.Interaction},
	}
	if user != nil {
		ctx.UserID = user.ID
	}
	return ctx
}

// FromMessage builds a Context for a prefix command. args excludes the
// command name itself.
func FromMessage(platform Platform, desc *Descriptor, event *discordgo.MessageCreate, args []string) *Context {
	ctx := &Context{
		Name:      desc.Name,
		Source:    SourceMessage,
		GuildID:   event.GuildID,
		ChannelID: event.ChannelID,
		User:      event.Author,
		Member:    event.Member,
		Message:   event,
		platform:  platform,
		options:   newPositionalOptions(platform, desc, event.GuildID, args),
		responder: &messageResponder{platform: platform, message: event.Message},
	}
	if event.Author != nil {
		ctx.UserID = event.Author.ID
		if ctx.Member != nil && ctx.Member.User == nil {
			ctx.Member.User = event.Author
		}
	}
	return ctx
}

func (c *Context) Options() Options {
	return c.options
}

func (c *Context) Platform() Platform {
	return c.platform
}

func (c *Context) Replied() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.replied
}

func (c *Context) Deferred() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deferred
}

func (c *Context) Reply(resp Response) error {
	if err := c.responder.reply(resp); err != nil {
		return err
	}
	c.mu.Lock()
	c.replied = true
	c.mu.Unlock()
	return nil
}

func (c *Context) FollowUp(resp Response) error {
	return c.responder.followUp(resp)
}

// EditReply replaces the initial reply on the slash path. On the text path it
// posts an additional message. If nothing has been sent yet it behaves like
// Reply.
func (c *Context) EditReply(resp Response) error {
	if !c.Replied() && !c.Deferred() {
		return c.Reply(resp)
	}
	if err := c.responder.editReply(resp); err != nil {
		return err
	}
	c.mu.Lock()
	c.replied = true
	c.mu.Unlock()
	return nil
}

func (c *Context) Defer(ephemeral bool) error {
	if err := c.responder.deferReply(ephemeral); err != nil {
		return err
	}
	c.mu.Lock()
	c.deferred = true
	c.mu.Unlock()
	return nil
}

func (c *Context) ReplyText(content string, ephemeral bool) error {
	return c.Reply(Response{Content: content, Ephemeral: ephemeral})
}

func (c *Context) ReplyEmbed(embed *discordgo.MessageEmbed, ephemeral bool) error {
	return c.Reply(Response{Embeds: []*discordgo.MessageEmbed{embed}, Ephemeral: ephemeral})
}

// Respond sends resp as a follow-up when the invocation has already been
// answered or deferred, and as the initial reply otherwise.
func (c *Context) Respond(resp Response) error {
	if c.Replied() || c.Deferred() {
		return c.FollowUp(resp)
	}
	return c.Reply(resp)
}
