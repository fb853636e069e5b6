package command

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// Options resolves named command options. Every accessor reports false when
// the option is absent or cannot be coerced to the requested type.
type Options interface {
	Raw(name string) (string, bool)
	String(name string) (string, bool)
	Int(name string) (int64, bool)
	Float(name string) (float64, bool)
	Bool(name string) (bool, bool)
	User(name string) (*discordgo.User, bool)
	Member(name string) (*discordgo.Member, bool)
	Channel(name string) (*discordgo.Channel, bool)
	Role(name string) (*discordgo.Role, bool)
}

var (
	userMention    = regexp.MustCompile(`^<@!?(\d+)>$`)
	channelMention = regexp.MustCompile(`^<#(\d+)>$`)
	roleMention    = regexp.MustCompile(`^<@&(\d+)>$`)
)

var truthy = map[string]struct{}{"true": {}, "1": {}, "yes": {}, "y": {}}

type interactionOptions struct {
	platform Platform
	guildID  string
	byName   map[string]*discordgo.ApplicationCommandInteractionDataOption
	resolved *discordgo.ApplicationCommandInteractionDataResolved
}

func newInteractionOptions(platform Platform, guildID string, data discordgo.ApplicationCommandInteractionData) *interactionOptions {
	opts := &interactionOptions{
		platform: platform,
		guildID:  guildID,
		byName:   make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(data.Options)),
		resolved: data.Resolved,
	}
	for _, opt := range data.Options {
		if opt != nil {
			opts.byName[opt.Name] = opt
		}
	}
	return opts
}

func (o *interactionOptions) Raw(name string) (string, bool) {
	opt, ok := o.byName[name]
	if !ok || opt.Value == nil {
		return "", false
	}
	if s, ok := opt.Value.(string); ok {
		return s, true
	}
	return fmt.Sprint(opt.Value), true
}

func (o *interactionOptions) String(name string) (string, bool) {
	opt, ok := o.byName[name]
	if !ok {
		return "", false
	}
	value, ok := opt.Value.(string)
	return value, ok
}

func (o *interactionOptions) Int(name string) (int64, bool) {
	opt, ok := o.byName[name]
	if !ok {
		return 0, false
	}
	value, ok := opt.Value.(float64)
	if !ok {
		return 0, false
	}
	return int64(value), true
}

func (o *interactionOptions) Float(name string) (float64, bool) {
	opt, ok := o.byName[name]
	if !ok {
		return 0, false
	}
	value, ok := opt.Value.(float64)
	return value, ok
}

func (o *interactionOptions) Bool(name string) (bool, bool) {
	opt, ok := o.byName[name]
	if !ok {
		return false, false
	}
	value, ok := opt.Value.(bool)
	return value, ok
}

func (o *interactionOptions) snowflake(name string) (string, bool) {
	id, ok := o.String(name)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

func (o *interactionOptions) User(name string) (*discordgo.User, bool) {
	id, ok := o.snowflake(name)
	if !ok {
		return nil, false
	}
	if o.resolved != nil {
		if user, ok := o.resolved.Users[id]; ok && user != nil {
			return user, true
		}
	}
	return lookupUser(o.platform, id)
}

func (o *interactionOptions) Member(name string) (*discordgo.Member, bool) {
	id, ok := o.snowflake(name)
	if !ok {
		return nil, false
	}
	if o.resolved != nil {
		if member, ok := o.resolved.Members[id]; ok && member != nil {
			// Resolved members omit the user object.
			if member.User == nil {
				member.User = o.resolved.Users[id]
			}
			if member.GuildID == "" {
				member.GuildID = o.guildID
			}
			return member, true
		}
	}
	return lookupMember(o.platform, o.guildID, id)
}

func (o *interactionOptions) Channel(name string) (*discordgo.Channel, bool) {
	id, ok := o.snowflake(name)
	if !ok {
		return nil, false
	}
	if o.resolved != nil {
		if channel, ok := o.resolved.Channels[id]; ok && channel != nil {
			return channel, true
		}
	}
	return lookupChannel(o.platform, id)
}

func (o *interactionOptions) Role(name string) (*discordgo.Role, bool) {
	id, ok := o.snowflake(name)
	if !ok {
		return nil, false
	}
	if o.resolved != nil {
		if role, ok := o.resolved.Roles[id]; ok && role != nil {
			return role, true
		}
	}
	return lookupRole(o.platform, o.guildID, id)
}

// positionalOptions backs the prefix shim: an option's value is the argument
// at the option's declared index. Options are matched by name only.
type positionalOptions struct {
	platform Platform
	desc     *Descriptor
	guildID  string
	args     []string
}

func newPositionalOptions(platform Platform, desc *Descriptor, guildID string, args []string) *positionalOptions {
	return &positionalOptions{platform: platform, desc: desc, guildID: guildID, args: args}
}

func (o *positionalOptions) Raw(name string) (string, bool) {
	idx := o.desc.optionIndex(name)
	if idx < 0 || idx >= len(o.args) || o.args[idx] == "" {
		return "", false
	}
	return o.args[idx], true
}

func (o *positionalOptions) String(name string) (string, bool) {
	return o.Raw(name)
}

func (o *positionalOptions) Int(name string) (int64, bool) {
	raw, ok := o.Raw(name)
	if !ok {
		return 0, false
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

func (o *positionalOptions) Float(name string) (float64, bool) {
	raw, ok := o.Raw(name)
	if !ok {
		return 0, false
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}

// Bool treats a present token outside the truthy set as false.
func (o *positionalOptions) Bool(name string) (bool, bool) {
	raw, ok := o.Raw(name)
	if !ok {
		return false, false
	}
	_, yes := truthy[strings.ToLower(raw)]
	return yes, true
}

func (o *positionalOptions) mention(name string, pattern *regexp.Regexp) (string, bool) {
	raw, ok := o.Raw(name)
	if !ok {
		return "", false
	}
	match := pattern.FindStringSubmatch(raw)
	if match == nil {
		return "", false
	}
	return match[1], true
}

func (o *positionalOptions) User(name string) (*discordgo.User, bool) {
	id, ok := o.mention(name, userMention)
	if !ok {
		return nil, false
	}
	return lookupUser(o.platform, id)
}

func (o *positionalOptions) Member(name string) (*discordgo.Member, bool) {
	id, ok := o.mention(name, userMention)
	if !ok {
		return nil, false
	}
	return lookupMember(o.platform, o.guildID, id)
}

func (o *positionalOptions) Channel(name string) (*discordgo.Channel, bool) {
	id, ok := o.mention(name, channelMention)
	if !ok {
		return nil, false
	}
	return lookupChannel(o.platform, id)
}

func (o *positionalOptions) Role(name string) (*discordgo.Role, bool) {
	id, ok := o.mention(name, roleMention)
	if !ok {
		return nil, false
	}
	return lookupRole(o.platform, o.guildID, id)
}

func lookupUser(platform Platform, id string) (*discordgo.User, bool) {
	if platform == nil {
		return nil, false
	}
	user, err := platform.User(id)
	if err != nil || user == nil {
		return nil, false
	}
	return user, true
}

func lookupMember(platform Platform, guildID, id string) (*discordgo.Member, bool) {
	if platform == nil || guildID == "" {
		return nil, false
	}
	member, err := platform.Member(guildID, id)
	if err != nil || member == nil {
		return nil, false
	}
	return member, true
}

func lookupChannel(platform Platform, id string) (*discordgo.Channel, bool) {
	if platform == nil {
		return nil, false
	}
	channel, err := platform.Channel(id)
	if err != nil || channel == nil {
		return nil, false
	}
	return channel, true
}

func lookupRole(platform Platform, guildID, id string) (*discordgo.Role, bool) {
	if platform == nil || guildID == "" {
		return nil, false
	}
	role, err := platform.Role(guildID, id)
	if err != nil || role == nil {
		return nil, false
	}
	return role, true
}
