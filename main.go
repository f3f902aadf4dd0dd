package main

import (
	"net/http"
	"os"
	"time"

	"github.com/fiffu/stobot/app"
	"github.com/fiffu/stobot/config"
	"github.com/fiffu/stobot/lib/poller"
	"github.com/fiffu/stobot/senders"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func NewLogger() (*zap.Logger, error) {
	switch os.Getenv("ENVIRONMENT") {
	default:
		return zap.NewDevelopment()

	case "production":
		logCfg := zap.NewProductionConfig()
		logCfg.EncoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			t = t.UTC()
			zapcore.ISO8601TimeEncoder(t, enc)
		}
		return logCfg.Build()
	}
}

func main() {
	fx.New(
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),

		fx.Provide(NewLogger),
		fx.Provide(config.NewConfig),

		fx.Provide(app.NewTransport),
		fx.Provide(app.NewDatabase),
		fx.Provide(app.NewDiscordSession),
		fx.Provide(senders.NewSender),

		fx.Provide(app.NewRegistry),
		fx.Provide(app.NewSourceTime),
		fx.Provide(app.NewNewsClient),
		fx.Provide(app.NewWikiClient),
		fx.Provide(app.NewJournal),
		fx.Provide(app.NewService),
		fx.Provide(app.NewPoller),
		fx.Provide(app.NewCommandRouter),
		fx.Provide(app.NewAPI),

		fx.Invoke(func(*poller.Poller, *app.CommandRouter, *http.Server) {}),
	).Run()
}
