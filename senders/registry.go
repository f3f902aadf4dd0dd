package senders

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/fiffu/stobot/lib/models"
	"go.uber.org/zap"
)

type Sender interface {
	RecentMessages(ctx context.Context, channelID uint64, limit int) ([]models.PostedMessage, error)
	SendPost(ctx context.Context, channelID uint64, post models.Post) (string, error)
	IconFiles(paths []string) ([]*discordgo.File, func())
}

var _ Sender = (*DiscordSender)(nil)

func NewSender(log *zap.Logger, session *discordgo.Session) Sender {
	return &DiscordSender{log, session}
}
