package command_test

import (
	"testing"

	"sentinel-panel/internal/command"
	"sentinel-panel/internal/command/commandtest"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/require"
)

func TestMessageContextResponses(t *testing.T) {
	platform := commandtest.New()
	desc := &command.Descriptor{Name: "ping"}
	msg := commandtest.TextMessage("!ping", "g1", "c1", &discordgo.User{ID: "1"})
	ctx := command.FromMessage(platform, desc, msg, nil)

	require.NoError(t, ctx.Reply(command.Response{Content: "Pinging..."}))
	first, _ := platform.LastSent()
	require.NotNil(t, first.Message.Reference, "reply should reference the invoking message")
	require.Equal(t, "message-1", first.Message.Reference.MessageID)

	require.NoError(t, ctx.EditReply(command.Response{Content: "Pong"}))
	require.Len(t, platform.Sent, 2, "edit posts a new message")
	require.Nil(t, platform.Sent[1].Message.Reference)

	require.NoError(t, ctx.Defer(false))
	require.Equal(t, []string{"c1"}, platform.Typings)
	require.True(t, ctx.Replied())
	require.True(t, ctx.Deferred())
}

func TestInteractionContextResponses(t *testing.T) {
	platform := commandtest.New()
	desc := &command.Descriptor{Name: "ping"}
	event := commandtest.SlashCommand("ping", "g1", "c1", &discordgo.User{ID: "1"})
	ctx := command.FromInteraction(platform, desc, event)

	// Nothing sent yet, so Respond replies.
	require.NoError(t, ctx.Respond(command.Response{Content: "hi", Ephemeral: true}))
	resp, ok := platform.LastResponse()
	require.True(t, ok)
	require.Equal(t, discordgo.MessageFlagsEphemeral, resp.Data.Flags)

	require.NoError(t, ctx.EditReply(command.Response{Content: "edited"}))
	require.Len(t, platform.Edits, 1)
	require.Equal(t, "edited", *platform.Edits[0].Content)

	require.NoError(t, ctx.Respond(command.Response{Content: "more"}))
	require.Len(t, platform.FollowUps, 1, "follow-up after reply")
}

func TestEditReplyBeforeReplyActsAsReply(t *testing.T) {
	platform := commandtest.New()
	event := commandtest.SlashCommand("ping", "g1", "c1", &discordgo.User{ID: "1"})
	ctx := command.FromInteraction(platform, &command.Descriptor{Name: "ping"}, event)

	require.NoError(t, ctx.EditReply(command.Response{Content: "x"}))
	require.Len(t, platform.Responses, 1)
	require.Empty(t, platform.Edits)
}
