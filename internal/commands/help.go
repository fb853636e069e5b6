package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"sentinel-panel/internal/command"

	"github.com/bwmarrin/discordgo"
)

const (
	defaultCategory = "General"
	fieldValueLimit = 1024
)

func Help(registry *command.Registry, palette command.Palette) command.Descriptor {
	return command.Descriptor{
		Name:        "help",
		Description: "Shows help information for commands",
		Category:    defaultCategory,
		Usage:       "/help [command]",
		Aliases:     []string{"h", "commands"},
		Options: []command.Option{
			{Name: "command", Description: "Get help for a specific command", Type: command.OptionString},
		},
		Handler: command.HandlerFunc(func(ctx context.Context, cmd *command.Context) error {
			if name, ok := cmd.Options().String("command"); ok && name != "" {
				return helpFor(cmd, registry, palette, name)
			}
			return cmd.ReplyEmbed(overview(registry.List(), palette), false)
		}),
	}
}

func helpFor(cmd *command.Context, registry *command.Registry, palette command.Palette, name string) error {
	desc, ok := registry.Resolve(name)
	if !ok {
		embed := command.Embed("❌ Command Not Found", fmt.Sprintf("No command with name `%s` was found.", name), palette.Error)
		return cmd.ReplyEmbed(embed, true)
	}

	fields := []*discordgo.MessageEmbedField{
		command.Field("Usage", "`"+usageOf(*desc)+"`", true),
		command.Field("Category", categoryOf(*desc), true),
		command.Field("Cooldown", fmt.Sprintf("%gs", desc.EffectiveCooldown().Seconds()), true),
	}
	if len(desc.Aliases) > 0 {
		fields = append(fields, command.Field("Aliases", strings.Join(desc.Aliases, ", "), true))
	}
	if desc.InteractionOnly {
		fields = append(fields, command.Field("Note", "Slash command only", false))
	}
	return cmd.ReplyEmbed(command.Embed("Help: /"+desc.Name, desc.Description, palette.Default, fields...), false)
}

func overview(descs []command.Descriptor, palette command.Palette) *discordgo.MessageEmbed {
	byCategory := make(map[string][]command.Descriptor)
	for _, desc := range descs {
		category := categoryOf(desc)
		byCategory[category] = append(byCategory[category], desc)
	}
	categories := make([]string, 0, len(byCategory))
	for category := range byCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	embed := command.Embed("🤖 Bot Commands", "Here are all available commands:", palette.Info)
	for _, category := range categories {
		lines := make([]string, 0, len(byCategory[category]))
		for _, desc := range byCategory[category] {
			lines = append(lines, fmt.Sprintf("`/%s` - %s", desc.Name, desc.Description))
		}
		embed.Fields = append(embed.Fields, command.Field(
			fmt.Sprintf("%s (%d)", category, len(lines)),
			truncate(strings.Join(lines, "\n"), fieldValueLimit),
			false,
		))
	}
	embed.Fields = append(embed.Fields, command.Field(
		"Need more help?",
		"Use `/help <command>` for detailed information about a specific command.",
		false,
	))
	return embed
}

func categoryOf(desc command.Descriptor) string {
	if desc.Category == "" {
		return defaultCategory
	}
	return desc.Category
}

func usageOf(desc command.Descriptor) string {
	if desc.Usage == "" {
		return "/" + desc.Name
	}
	return desc.Usage
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-3]) + "..."
}
