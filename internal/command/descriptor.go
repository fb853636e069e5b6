package command

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
)

// DefaultCooldown applies when a descriptor leaves Cooldown unset.
const DefaultCooldown = 3 * time.Second

type OptionType = discordgo.ApplicationCommandOptionType

const (
	OptionString  = discordgo.ApplicationCommandOptionString
	OptionInteger = discordgo.ApplicationCommandOptionInteger
	OptionNumber  = discordgo.ApplicationCommandOptionNumber
	OptionBoolean = discordgo.ApplicationCommandOptionBoolean
	OptionUser    = discordgo.ApplicationCommandOptionUser
	OptionChannel = discordgo.ApplicationCommandOptionChannel
	OptionRole    = discordgo.ApplicationCommandOptionRole
)

type Option struct {
	Name        string
	Description string
	Type        OptionType
	Required    bool
}

type Handler interface {
	Invoke(ctx context.Context, cmd *Context) error
}

type HandlerFunc func(ctx context.Context, cmd *Context) error

func (f HandlerFunc) Invoke(ctx context.Context, cmd *Context) error {
	return f(ctx, cmd)
}

type Descriptor struct {
	Name        string
	Description string
	Category    string
	Usage       string
	Aliases     []string
	Cooldown    time.Duration
	Options     []Option
	// InteractionOnly commands refuse prefix invocation with a pointer to the
	// slash form.
	InteractionOnly          bool
	DefaultMemberPermissions int64
	Handler                  Handler
}

func (d Descriptor) EffectiveCooldown() time.Duration {
	if d.Cooldown <= 0 {
		return DefaultCooldown
	}
	return d.Cooldown
}

func (d Descriptor) optionIndex(name string) int {
	for i, opt := range d.Options {
		if opt.Name == name {
			return i
		}
	}
	return -1
}

// ApplicationCommand converts the descriptor into the shape Discord expects
// when syncing slash commands.
func (d Descriptor) ApplicationCommand() *discordgo.ApplicationCommand {
	cmd := &discordgo.ApplicationCommand{
		Name:        d.Name,
		Description: d.Description,
	}
	if d.DefaultMemberPermissions != 0 {
		perms := d.DefaultMemberPermissions
		cmd.DefaultMemberPermissions = &perms
	}
	for _, opt := range d.Options {
		cmd.Options = append(cmd.Options, &discordgo.ApplicationCommandOption{
			Type:        opt.Type,
			Name:        opt.Name,
			Description: opt.Description,
			Required:    opt.Required,
		})
	}
	return cmd
}
