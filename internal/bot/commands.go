package bot

import (
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// commandClient is the application command slice of *discordgo.Session.
type commandClient interface {
	ApplicationCommands(appID, guildID string, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
	ApplicationCommandCreate(appID, guildID string, cmd *discordgo.ApplicationCommand, options ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error)
	ApplicationCommandEdit(appID, guildID, cmdID string, cmd *discordgo.ApplicationCommand, options ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error)
	ApplicationCommandDelete(appID, guildID, cmdID string, options ...discordgo.RequestOption) error
}

type syncResult struct {
	Created int
	Edited  int
	Deleted int
}

func (b *Bot) registerCommands() error {
	var commands []*discordgo.ApplicationCommand
	for _, desc := range b.registry.List() {
		commands = append(commands, desc.ApplicationCommand())
	}

	var guildIDs []string
	if b.cfg.Commands.GuildID == "" {
		b.session.State.RLock()
		for _, guild := range b.session.State.Guilds {
			if guild != nil {
				guildIDs = append(guildIDs, guild.ID)
			}
		}
		b.session.State.RUnlock()
	}

	result, err := syncCommands(b.session, b.session.State.User.ID, b.cfg.Commands.GuildID, commands, guildIDs)
	if err != nil {
		return err
	}
	b.logger.Info("application commands synced",
		zap.String("scope", scopeName(b.cfg.Commands.GuildID)),
		zap.Int("created", result.Created),
		zap.Int("edited", result.Edited),
		zap.Int("deleted", result.Deleted),
	)
	return nil
}

// syncCommands makes the commands registered under guildID (global when
// empty) match commands. Commands are matched by name; stale ones are
// removed. For a global sync, stale guild-scoped copies in staleGuilds are
// removed too.
func syncCommands(client commandClient, appID, guildID string, commands []*discordgo.ApplicationCommand, staleGuilds []string) (syncResult, error) {
	var result syncResult

	existing, err := client.ApplicationCommands(appID, guildID)
	if err != nil {
		for _, cmd := range commands {
			if _, err := client.ApplicationCommandCreate(appID, guildID, cmd); err != nil {
				return result, err
			}
			result.Created++
		}
		return result, nil
	}

	existingByName := make(map[string]*discordgo.ApplicationCommand, len(existing))
	for _, cmd := range existing {
		existingByName[cmd.Name] = cmd
	}

	desired := make(map[string]struct{}, len(commands))
	for _, cmd := range commands {
		desired[cmd.Name] = struct{}{}
		if current, ok := existingByName[cmd.Name]; ok {
			if _, err := client.ApplicationCommandEdit(appID, guildID, current.ID, cmd); err != nil {
				return result, err
			}
			result.Edited++
			continue
		}
		if _, err := client.ApplicationCommandCreate(appID, guildID, cmd); err != nil {
			return result, err
		}
		result.Created++
	}

	for _, cmd := range existing {
		if _, ok := desired[cmd.Name]; ok {
			continue
		}
		if err := client.ApplicationCommandDelete(appID, guildID, cmd.ID); err == nil {
			result.Deleted++
		}
	}

	if guildID != "" {
		return result, nil
	}
	for _, staleGuild := range staleGuilds {
		guildCmds, err := client.ApplicationCommands(appID, staleGuild)
		if err != nil {
			continue
		}
		for _, cmd := range guildCmds {
			if _, ok := desired[cmd.Name]; ok {
				continue
			}
			if err := client.ApplicationCommandDelete(appID, staleGuild, cmd.ID); err == nil {
				result.Deleted++
			}
		}
	}
	return result, nil
}

func scopeName(guildID string) string {
	if guildID == "" {
		return "global"
	}
	return "guild:" + guildID
}
