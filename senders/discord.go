package senders

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/bwmarrin/discordgo"
	"github.com/fiffu/stobot/lib/models"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

type DiscordSender struct {
	log     *zap.Logger
	session *discordgo.Session
}

func (d *DiscordSender) RecentMessages(ctx context.Context, channelID uint64, limit int) ([]models.PostedMessage, error) {
	msgs, err := d.session.ChannelMessages(channelKey(channelID), limit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: channel messages: %w", models.ErrFetch, err)
	}
	return lo.Map(msgs, func(m *discordgo.Message, _ int) models.PostedMessage {
		return PostedMessage(m)
	}), nil
}

// SendPost posts one news item with its primary platform icon attached.
func (d *DiscordSender) SendPost(ctx context.Context, channelID uint64, post models.Post) (string, error) {
	files, closeFiles := d.IconFiles([]string{post.PrimaryIcon()})
	defer closeFiles()

	embed := PostEmbed(post)
	if len(files) == 0 {
		embed.Image = nil
	}

	msg, err := d.session.ChannelMessageSendComplex(channelKey(channelID), &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
		Files:  files,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("sending article %s: %w", post.ArticleID, err)
	}
	return msg.ID, nil
}

// IconFiles opens the icons at paths for upload. Missing icons are skipped.
// The returned func closes every opened file.
func (d *DiscordSender) IconFiles(paths []string) ([]*discordgo.File, func()) {
	var files []*discordgo.File
	var closers []io.Closer
	for _, path := range lo.Uniq(paths) {
		if path == "" {
			continue
		}
		f, err := os.Open(path)
		if errors.Is(err, os.ErrNotExist) {
			d.log.Sugar().Warnw("Platform icon not found", "path", path)
			continue
		}
		if err != nil {
			d.log.Sugar().Warnw("Failed to open platform icon", "path", path, "err", err)
			continue
		}
		closers = append(closers, f)
		files = append(files, &discordgo.File{
			Name:        filepath.Base(path),
			ContentType: "image/png",
			Reader:      f,
		})
	}
	return files, func() {
		for _, c := range closers {
			c.Close()
		}
	}
}

func channelKey(channelID uint64) string {
	return strconv.FormatUint(channelID, 10)
}
