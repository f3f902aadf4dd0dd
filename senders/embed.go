package senders

import (
	"path/filepath"

	"github.com/bwmarrin/discordgo"
	"github.com/fiffu/stobot/lib/models"
)

// Discord rejects embeds over these sizes.
const (
	maxTitleRunes       = 256
	maxDescriptionRunes = 4096
	maxFooterRunes      = 2048
)

func PostEmbed(post models.Post) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		URL:         post.URL,
		Title:       truncate(post.Title, maxTitleRunes),
		Description: truncate(post.Summary, maxDescriptionRunes),
	}
	if post.ThumbnailURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: post.ThumbnailURL}
	}
	if icon := post.PrimaryIcon(); icon != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: AttachmentURL(icon)}
	}
	return embed
}

func WikiEmbed(card models.WikiCard) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       truncate(card.Title, maxTitleRunes),
		Description: truncate(card.Description, maxDescriptionRunes),
		Color:       card.Color,
		Footer:      &discordgo.MessageEmbedFooter{Text: truncate(card.Footer, maxFooterRunes)},
	}
}

// AttachmentURL refers to a file uploaded alongside the message.
func AttachmentURL(path string) string {
	return "attachment://" + filepath.Base(path)
}

// PostedMessage keeps the parts of m that may carry article ids.
func PostedMessage(m *discordgo.Message) models.PostedMessage {
	posted := models.PostedMessage{Content: m.Content}
	for _, embed := range m.Embeds {
		if embed != nil && embed.URL != "" {
			posted.EmbedURLs = append(posted.EmbedURLs, embed.URL)
		}
	}
	return posted
}

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}
