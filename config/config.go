package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/caarlos0/env/v11"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	maxMsgCount      = 100 // Discord returns at most 100 messages per history request
	maxQueryItems    = 10  // Discord allows at most 10 embeds per message
	pollPeriodEnvVar = "POLL_PERIOD"
)

type Config struct {
	Env            string `env:"ENVIRONMENT" arg:"-"`
	DiscordToken   string `env:"DISCORD_TOKEN" arg:"--token" help:"Discord bot token"`
	BasicAuthCreds string `env:"BASIC_AUTH_CREDS" arg:"-"`

	ChannelsPath  string `env:"CHANNELS_PATH" envDefault:"channels.txt" arg:"-c,--channels-path" help:"path to saved channels"`
	PollPeriod    uint32 `arg:"--poll-period" default:"10" help:"seconds between checks for news"`
	PollCount     uint32 `env:"POLL_COUNT" envDefault:"20" arg:"--poll-count" help:"number of news items to fetch per poll"`
	FreshSeconds  uint32 `env:"FRESH_SECONDS" envDefault:"120" arg:"-f,--fresh-seconds" help:"maximum age in seconds of a news item to be posted"`
	MsgCount      int    `env:"MSG_COUNT" envDefault:"50" arg:"-m,--msg-count" help:"recent channel messages to check for already posted news (max 100)"`
	QueryMaxItems int    `env:"QUERY_MAX_ITEMS" envDefault:"10" arg:"--query-max-items" help:"maximum items in a news or patch notes reply (max 10)"`

	NewsEndpoint     string `env:"NEWS_ENDPOINT" envDefault:"https://api.arcgames.com/v1.0/games/sto/news" arg:"--news-endpoint"`
	ArticleURLPrefix string `env:"ARTICLE_URL_PREFIX" envDefault:"https://playstartrekonline.com/en/news/article/" arg:"--article-url-prefix"`
	WikiBaseURL      string `env:"WIKI_BASE_URL" envDefault:"https://stowiki.net" arg:"--wiki-base-url"`
	StaticDir        string `env:"STATIC_DIR" envDefault:"static" arg:"--static-dir" help:"directory holding platform icons"`
	SourceTimezone   string `env:"SOURCE_TIMEZONE" envDefault:"America/Los_Angeles" arg:"--source-timezone" help:"timezone of news timestamps"`
	JournalPath      string `env:"JOURNAL_PATH" envDefault:"stobot.sqlite" arg:"--journal-path" help:"sqlite file for the delivery journal"`
	ServerPort       int    `env:"SERVER_PORT" envDefault:"8080" arg:"--server-port" help:"status API port, 0 disables"`

	log   *zap.Logger
	creds map[string]string
}

func NewConfig(lc fx.Lifecycle, log *zap.Logger) (*Config, error) {
	cfg, err := Parse(os.Args[1:], env.ToMap(os.Environ()))
	if errors.Is(err, arg.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		return nil, err
	}
	cfg.log = log

	log.Sugar().Infow("Loaded config",
		"channels_path", cfg.ChannelsPath,
		"poll_period", cfg.PollPeriod,
		"poll_count", cfg.PollCount,
		"fresh_seconds", cfg.FreshSeconds,
		"msg_count", cfg.MsgCount,
		"query_max_items", cfg.QueryMaxItems,
		"api_users", len(cfg.creds),
	)
	return cfg, nil
}

// Parse reads settings from environ, then from args. POLL_PERIOD is only read
// here: a numeric value wins over --poll-period, anything else is ignored.
func Parse(args []string, environ map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	p, err := arg.NewParser(arg.Config{Program: "stobot"}, cfg)
	if err != nil {
		return nil, err
	}
	if err := p.Parse(args); err != nil {
		if errors.Is(err, arg.ErrHelp) {
			p.WriteHelp(os.Stdout)
		}
		return nil, err
	}

	if raw, ok := environ[pollPeriodEnvVar]; ok {
		if v, err := strconv.ParseUint(raw, 10, 32); err == nil {
			cfg.PollPeriod = uint32(v)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	creds, err := cfg.parseCreds()
	if err != nil {
		return nil, err
	}
	cfg.creds = creds

	return cfg, nil
}

func (cfg *Config) Validate() error {
	switch {
	case cfg.DiscordToken == "":
		return errors.New("DISCORD_TOKEN envvar or --token must be set")
	case cfg.PollPeriod == 0:
		return errors.New("poll period must be at least 1 second")
	case cfg.MsgCount < 1 || cfg.MsgCount > maxMsgCount:
		return fmt.Errorf("msg count must be between 1 and %d, got %d", maxMsgCount, cfg.MsgCount)
	case cfg.QueryMaxItems < 1 || cfg.QueryMaxItems > maxQueryItems:
		return fmt.Errorf("query max items must be between 1 and %d, got %d", maxQueryItems, cfg.QueryMaxItems)
	case cfg.ServerPort < 0:
		return fmt.Errorf("invalid server port %d", cfg.ServerPort)
	}
	return nil
}

// GetCreds returns the status API users, or nil when BASIC_AUTH_CREDS is unset.
func (cfg *Config) GetCreds() map[string]string {
	return cfg.creds
}

func (cfg *Config) parseCreds() (map[string]string, error) {
	if strings.TrimSpace(cfg.BasicAuthCreds) == "" {
		return nil, nil
	}

	result := make(map[string]string)
	for _, cred := range strings.Split(cfg.BasicAuthCreds, ",") {
		userPass := strings.Split(cred, ":")
		if len(userPass) != 2 || strings.TrimSpace(userPass[0]) == "" {
			return nil, fmt.Errorf("failed to parse '%s', each credential should be delimited by a colon -- user1:pass1,user2:pass2", cred)
		}

		user, pass := userPass[0], userPass[1]
		result[strings.Trim(user, " ")] = strings.Trim(pass, " ")
	}

	return result, nil
}

func (cfg *Config) IsProduction() bool {
	return cfg.Env == "production"
}

func (cfg *Config) PollInterval() time.Duration {
	return time.Duration(cfg.PollPeriod) * time.Second
}

func (cfg *Config) FreshAge() time.Duration {
	return time.Duration(cfg.FreshSeconds) * time.Second
}
