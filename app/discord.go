package app

import (
	"context"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/fiffu/stobot/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const intents = discordgo.IntentsGuildMessages |
	discordgo.IntentsDirectMessages |
	discordgo.IntentsGuildIntegrations

func NewDiscordSession(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, transport http.RoundTripper) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}
	session.Identify.Intents = intents
	session.Client.Transport = transport

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Sugar().Info("Connecting to Discord")
			return session.Open()
		},
		OnStop: func(ctx context.Context) error {
			log.Sugar().Info("Closing Discord session")
			return session.Close()
		},
	})
	return session, nil
}
