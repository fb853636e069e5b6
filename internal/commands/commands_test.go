package commands

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"sentinel-panel/internal/activity"
	"sentinel-panel/internal/command"
	"sentinel-panel/internal/command/commandtest"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/require"
)

type fakeModerator struct {
	guild   *discordgo.Guild
	botID   string
	kickErr error
	dmErr   error

	kicked []string
	dms    []string
}

func (f *fakeModerator) Guild(string) (*discordgo.Guild, error) { return f.guild, nil }
func (f *fakeModerator) BotUserID() string                     { return f.botID }

func (f *fakeModerator) Kick(_, userID, _ string) error {
	if f.kickErr != nil {
		return f.kickErr
	}
	f.kicked = append(f.kicked, userID)
	return nil
}

func (f *fakeModerator) DirectMessage(userID string, _ *discordgo.MessageSend) error {
	if f.dmErr != nil {
		return f.dmErr
	}
	f.dms = append(f.dms, userID)
	return nil
}

type recordedActivity struct {
	kind, message, guildID, userID string
}

type fakeActivity struct {
	mu      sync.Mutex
	entries []recordedActivity
}

func (f *fakeActivity) Record(_ context.Context, kind, message, guildID, userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, recordedActivity{kind, message, guildID, userID})
}

var (
	modUser    = &discordgo.User{ID: "mod", Username: "moderator"}
	targetUser = &discordgo.User{ID: "target", Username: "troublemaker"}
)

type kickHarness struct {
	platform  *commandtest.Platform
	moderator *fakeModerator
	activity  *fakeActivity
	registry  *command.Registry
}

func newKickHarness(t *testing.T, ownerIDs ...string) *kickHarness {
	t.Helper()
	platform := commandtest.New()
	platform.Roles["g1:r-bot"] = &discordgo.Role{ID: "r-bot", Position: 10}
	platform.Roles["g1:r-mod"] = &discordgo.Role{ID: "r-mod", Position: 5, Permissions: discordgo.PermissionKickMembers}
	platform.Roles["g1:r-helper"] = &discordgo.Role{ID: "r-helper", Position: 5}
	platform.Roles["g1:r-user"] = &discordgo.Role{ID: "r-user", Position: 1}
	platform.AddMember("g1", &discordgo.Member{User: &discordgo.User{ID: "bot", Bot: true}, Roles: []string{"r-bot"}})
	platform.AddMember("g1", &discordgo.Member{User: modUser, Roles: []string{"r-mod"}})
	platform.AddMember("g1", &discordgo.Member{User: targetUser, Roles: []string{"r-user"}})

	h := &kickHarness{
		platform:  platform,
		moderator: &fakeModerator{guild: &discordgo.Guild{ID: "g1", Name: "Test Guild", OwnerID: "owner"}, botID: "bot"},
		activity:  &fakeActivity{},
		registry:  command.NewRegistry(),
	}
	require.NoError(t, Register(h.registry, Deps{
		Moderator: h.moderator,
		Activity:  h.activity,
		Latency:   func() time.Duration { return 42 * time.Millisecond },
		OwnerIDs:  ownerIDs,
	}))
	h.registry.Seal()
	return h
}

func (h *kickHarness) slash(t *testing.T, name string, user *discordgo.User, opts ...*discordgo.ApplicationCommandInteractionDataOption) {
	t.Helper()
	desc, ok := h.registry.Resolve(name)
	require.True(t, ok)
	cmd := command.FromInteraction(h.platform, desc, commandtest.SlashCommand(name, "g1", "c1", user, opts...))
	require.NoError(t, desc.Handler.Invoke(context.Background(), cmd))
}

func option(name string, kind command.OptionType, value any) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: kind, Value: value}
}

func (h *kickHarness) lastEmbed(t *testing.T) (*discordgo.MessageEmbed, bool) {
	t.Helper()
	resp, ok := h.platform.LastResponse()
	require.True(t, ok)
	require.NotEmpty(t, resp.Data.Embeds)
	return resp.Data.Embeds[0], resp.Data.Flags&discordgo.MessageFlagsEphemeral != 0
}

func TestRegisterBuiltins(t *testing.T) {
	h := newKickHarness(t)
	require.Equal(t, 3, h.registry.Len())

	desc, ok := h.registry.Resolve("h")
	require.True(t, ok)
	require.Equal(t, "help", desc.Name)

	kickDesc, ok := h.registry.Resolve("kick")
	require.True(t, ok)
	app := kickDesc.ApplicationCommand()
	require.NotNil(t, app.DefaultMemberPermissions)
	require.Equal(t, int64(discordgo.PermissionKickMembers), *app.DefaultMemberPermissions)
	require.True(t, app.Options[0].Required)
}

func TestHelpOverviewGroupsByCategory(t *testing.T) {
	h := newKickHarness(t)
	h.slash(t, "help", modUser)

	embed, ephemeral := h.lastEmbed(t)
	require.False(t, ephemeral)
	require.Equal(t, "🤖 Bot Commands", embed.Title)
	require.Len(t, embed.Fields, 3)
	require.Equal(t, "General (2)", embed.Fields[0].Name)
	require.Contains(t, embed.Fields[0].Value, "`/ping` - Replies with Pong!")
	require.Equal(t, "Moderation (1)", embed.Fields[1].Name)
	require.Equal(t, "Need more help?", embed.Fields[2].Name)
}

func TestHelpForCommand(t *testing.T) {
	h := newKickHarness(t)
	h.slash(t, "help", modUser, option("command", command.OptionString, "kick"))

	embed, _ := h.lastEmbed(t)
	require.Equal(t, "Help: /kick", embed.Title)
	require.Equal(t, "`/kick <target> [reason]`", embed.Fields[0].Value)
	require.Equal(t, "Moderation", embed.Fields[1].Value)
	require.Equal(t, "3s", embed.Fields[2].Value)
}

func TestHelpUnknownCommandIsEphemeral(t *testing.T) {
	h := newKickHarness(t)
	h.slash(t, "help", modUser, option("command", command.OptionString, "nope"))

	embed, ephemeral := h.lastEmbed(t)
	require.True(t, ephemeral)
	require.Equal(t, "❌ Command Not Found", embed.Title)
}

func TestHelpOnTextPathResolvesAlias(t *testing.T) {
	h := newKickHarness(t)
	desc, ok := h.registry.Resolve("commands")
	require.True(t, ok)

	event := commandtest.TextMessage("!commands h", "g1", "c1", modUser)
	cmd := command.FromMessage(h.platform, desc, event, []string{"h"})
	require.NoError(t, desc.Handler.Invoke(context.Background(), cmd))

	sent, ok := h.platform.LastSent()
	require.True(t, ok)
	require.Equal(t, "Help: /help", sent.Message.Embeds[0].Title)
	require.NotNil(t, sent.Message.Reference)
}

func TestPingRepliesThenEdits(t *testing.T) {
	h := newKickHarness(t)
	h.slash(t, "ping", modUser)

	resp, ok := h.platform.LastResponse()
	require.True(t, ok)
	require.Equal(t, "Pinging...", resp.Data.Content)

	require.Len(t, h.platform.Edits, 1)
	edit := h.platform.Edits[0]
	require.Equal(t, "", *edit.Content)
	require.Equal(t, "🏓 Pong!", (*edit.Embeds)[0].Title)
	require.Contains(t, (*edit.Embeds)[0].Description, "**API Latency:** 42ms")
}

func TestKickSucceeds(t *testing.T) {
	h := newKickHarness(t)
	h.slash(t, "kick", modUser,
		option("target", command.OptionUser, "target"),
		option("reason", command.OptionString, "spam"),
	)

	require.Equal(t, []string{"target"}, h.moderator.kicked)
	require.Equal(t, []string{"target"}, h.moderator.dms)
	require.Len(t, h.activity.entries, 1)
	require.Equal(t, recordedActivity{
		kind:    activity.TypeModeration,
		message: "troublemaker kicked by moderator: spam",
		guildID: "g1",
		userID:  "mod",
	}, h.activity.entries[0])

	embed, ephemeral := h.lastEmbed(t)
	require.False(t, ephemeral)
	require.Equal(t, "✅ Success", embed.Title)
	require.Equal(t, "spam", embed.Fields[0].Value)
}

func TestKickDefaultsReasonAndSurvivesClosedDMs(t *testing.T) {
	h := newKickHarness(t)
	h.moderator.dmErr = errors.New("cannot send messages to this user")
	h.slash(t, "kick", modUser, option("target", command.OptionUser, "target"))

	require.Equal(t, []string{"target"}, h.moderator.kicked)
	require.Contains(t, h.activity.entries[0].message, defaultReason)
}

func TestKickRefusals(t *testing.T) {
	cases := []struct {
		name    string
		invoker *discordgo.User
		setup   func(h *kickHarness)
		target  string
		message string
	}{
		{
			name:    "missing member",
			invoker: modUser,
			target:  "ghost",
			message: "User not found or not a member of this server.",
		},
		{
			name:    "self",
			invoker: modUser,
			target:  "mod",
			message: "You cannot kick yourself!",
		},
		{
			name:    "no permission",
			invoker: &discordgo.User{ID: "helper", Username: "helper"},
			setup: func(h *kickHarness) {
				h.platform.AddMember("g1", &discordgo.Member{User: &discordgo.User{ID: "helper", Username: "helper"}, Roles: []string{"r-helper"}})
			},
			target:  "target",
			message: "You need the Kick Members permission to use this command.",
		},
		{
			name:    "guild owner target",
			invoker: modUser,
			setup: func(h *kickHarness) {
				h.platform.AddMember("g1", &discordgo.Member{User: &discordgo.User{ID: "owner"}})
			},
			target:  "owner",
			message: "I cannot kick this user. They may have higher permissions than me.",
		},
		{
			name:    "equal role",
			invoker: modUser,
			setup: func(h *kickHarness) {
				h.platform.AddMember("g1", &discordgo.Member{User: &discordgo.User{ID: "peer"}, Roles: []string{"r-helper"}})
			},
			target:  "peer",
			message: "You cannot kick someone with higher or equal permissions!",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newKickHarness(t)
			if tc.setup != nil {
				tc.setup(h)
			}
			h.slash(t, "kick", tc.invoker, option("target", command.OptionUser, tc.target))

			embed, ephemeral := h.lastEmbed(t)
			require.True(t, ephemeral)
			require.Equal(t, tc.message, embed.Description)
			require.Empty(t, h.moderator.kicked)
			require.Empty(t, h.activity.entries)
		})
	}
}

func TestKickOwnerIDBypassesPermission(t *testing.T) {
	helper := &discordgo.User{ID: "helper", Username: "helper"}
	h := newKickHarness(t, "helper")
	h.platform.AddMember("g1", &discordgo.Member{User: helper, Roles: []string{"r-helper"}})

	h.slash(t, "kick", helper, option("target", command.OptionUser, "target"))
	require.Equal(t, []string{"target"}, h.moderator.kicked)
}

func TestKickFailureIsReportedWithoutActivity(t *testing.T) {
	h := newKickHarness(t)
	h.moderator.kickErr = errors.New("missing permissions")
	h.slash(t, "kick", modUser, option("target", command.OptionUser, "target"))

	embed, ephemeral := h.lastEmbed(t)
	require.True(t, ephemeral)
	require.Equal(t, "Failed to kick the user. Please check my permissions.", embed.Description)
	require.Empty(t, h.activity.entries)
}

func TestKickRequiresGuild(t *testing.T) {
	h := newKickHarness(t)
	desc, _ := h.registry.Resolve("kick")
	event := commandtest.SlashCommand("kick", "", "dm", modUser, option("target", command.OptionUser, "target"))
	event.Member = nil
	event.User = modUser
	cmd := command.FromInteraction(h.platform, desc, event)
	require.NoError(t, desc.Handler.Invoke(context.Background(), cmd))

	embed, _ := h.lastEmbed(t)
	require.Equal(t, "This command can only be used in a server.", embed.Description)
}
