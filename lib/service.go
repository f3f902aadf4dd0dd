package lib

import (
	"context"
	"strings"
	"time"

	"github.com/fiffu/stobot/config"
	"github.com/fiffu/stobot/lib/journal"
	"github.com/fiffu/stobot/lib/models"
	"github.com/fiffu/stobot/lib/newsapi"
	"github.com/fiffu/stobot/lib/registry"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

type NewsFetcher interface {
	Fetch(ctx context.Context, q newsapi.Query) (*models.NewsCollection, error)
}

type WikiLookup interface {
	Lookup(ctx context.Context, query string) (models.WikiCard, error)
}

type DeliveryLog interface {
	LastFor(ctx context.Context, channelID uint64) (*journal.Delivery, error)
}

// Reply is the platform-independent answer to a command.
type Reply struct {
	Content string
	Posts   []models.Post
	Card    *models.WikiCard
	Public  bool
}

// Icons lists the primary icon of every post once, in post order.
func (r Reply) Icons() []string {
	icons := lo.FilterMap(r.Posts, func(p models.Post, _ int) (string, bool) {
		icon := p.PrimaryIcon()
		return icon, icon != ""
	})
	return lo.Uniq(icons)
}

type Service struct {
	cfg      *config.Config
	log      *zap.Logger
	registry *registry.Registry

	*registration
	*newsQuery
	*wikiSearch
}

func NewService(
	cfg *config.Config,
	log *zap.Logger,
	reg *registry.Registry,
	news NewsFetcher,
	wiki WikiLookup,
	deliveries DeliveryLog,
	clock *models.SourceTime,
) *Service {
	return &Service{
		cfg, log, reg,
		&registration{cfg, log, reg, deliveries},
		&newsQuery{cfg, log, reg, news, clock, time.Now},
		&wikiSearch{log, wiki},
	}
}

func formatPlatforms(p models.Platforms) string {
	return strings.Join(p, ", ")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
