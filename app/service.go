package app

import (
	"context"
	"net/http"
	"time"

	"github.com/fiffu/stobot/config"
	"github.com/fiffu/stobot/lib"
	"github.com/fiffu/stobot/lib/journal"
	"github.com/fiffu/stobot/lib/models"
	"github.com/fiffu/stobot/lib/newsapi"
	"github.com/fiffu/stobot/lib/poller"
	"github.com/fiffu/stobot/lib/registry"
	"github.com/fiffu/stobot/lib/wiki"
	"github.com/fiffu/stobot/senders"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func NewRegistry(cfg *config.Config, log *zap.Logger) (*registry.Registry, error) {
	return registry.Load(cfg.ChannelsPath, log)
}

func NewSourceTime(cfg *config.Config) (*models.SourceTime, error) {
	return models.NewSourceTime(cfg.SourceTimezone)
}

func NewNewsClient(cfg *config.Config, transport http.RoundTripper) *newsapi.Client {
	return newsapi.New(cfg.NewsEndpoint, transport)
}

func NewWikiClient(cfg *config.Config, log *zap.Logger, transport http.RoundTripper) *wiki.Client {
	return wiki.New(cfg.WikiBaseURL, transport, log)
}

func NewJournal(db *gorm.DB, log *zap.Logger) (*journal.Journal, error) {
	return journal.New(db, log)
}

func NewService(
	cfg *config.Config,
	log *zap.Logger,
	reg *registry.Registry,
	news *newsapi.Client,
	wikiClient *wiki.Client,
	j *journal.Journal,
	clock *models.SourceTime,
) *lib.Service {
	return lib.NewService(cfg, log, reg, news, wikiClient, j, clock)
}

func NewPoller(
	lc fx.Lifecycle,
	cfg *config.Config,
	log *zap.Logger,
	news *newsapi.Client,
	sender senders.Sender,
	reg *registry.Registry,
	j *journal.Journal,
	clock *models.SourceTime,
) *poller.Poller {
	p := poller.New(log, news, sender, reg, j, clock, poller.Settings{
		Interval:      cfg.PollInterval(),
		TickTimeout:   max(cfg.PollInterval(), time.Minute),
		PollCount:     cfg.PollCount,
		FreshAge:      cfg.FreshAge(),
		Lookback:      cfg.MsgCount,
		ArticlePrefix: cfg.ArticleURLPrefix,
		StaticDir:     cfg.StaticDir,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			p.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Sugar().Info("Trying to stop poller")
			p.Stop()
			return nil
		},
	})
	return p
}
