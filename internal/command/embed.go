package command

import (
	"time"

	"github.com/bwmarrin/discordgo"
)

type Palette struct {
	Success int
	Error   int
	Warning int
	Info    int
	Default int
}

var DefaultPalette = Palette{
	Success: 0x00FF00,
	Error:   0xFF0000,
	Warning: 0xFFAA00,
	Info:    0x0099FF,
	Default: 0x7289DA,
}

func Embed(title, description string, color int, fields ...*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields:      fields,
	}
}

func Field(name, value string, inline bool) *discordgo.MessageEmbedField {
	return &discordgo.MessageEmbedField{Name: name, Value: value, Inline: inline}
}

func (p Palette) ErrorEmbed(description string) *discordgo.MessageEmbed {
	return Embed("❌ Error", description, p.Error)
}

func (p Palette) SuccessEmbed(description string) *discordgo.MessageEmbed {
	return Embed("✅ Success", description, p.Success)
}

func (p Palette) WarningEmbed(description string) *discordgo.MessageEmbed {
	return Embed("⚠️ Warning", description, p.Warning)
}
