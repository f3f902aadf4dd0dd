package lib

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fiffu/stobot/config"
	"github.com/fiffu/stobot/lib/delivery"
	"github.com/fiffu/stobot/lib/models"
	"github.com/fiffu/stobot/lib/newsapi"
	"github.com/fiffu/stobot/lib/registry"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const (
	queryFetchLimit = 20
	minWeeks        = 1
	maxWeeks        = 52
)

type newsQuery struct {
	cfg      *config.Config
	log      *zap.Logger
	registry *registry.Registry
	news     NewsFetcher
	clock    *models.SourceTime
	now      func() time.Time
}

// ClampWeeks maps a user-supplied week count into [1, 52]. Zero means the
// option was omitted.
func ClampWeeks(weeks int64) uint32 {
	return uint32(lo.Clamp(weeks, minWeeks, maxWeeks))
}

// News lists recent announcements, leaving out patch notes.
func (svc *newsQuery) News(ctx context.Context, channelID uint64, platformsCSV string, weeks int64) Reply {
	return svc.query(ctx, channelID, platformsCSV, ClampWeeks(weeks), models.TagNews, []string{models.TagPatchNotes})
}

func (svc *newsQuery) PatchNotes(ctx context.Context, channelID uint64, platformsCSV string, weeks int64) Reply {
	return svc.query(ctx, channelID, platformsCSV, ClampWeeks(weeks), models.TagPatchNotes, nil)
}

func (svc *newsQuery) query(ctx context.Context, channelID uint64, platformsCSV string, weeks uint32, tag string, exclude []string) Reply {
	platforms := models.ParsePlatforms(platformsCSV)
	if platforms.Empty() {
		platforms = svc.registry.Platforms(channelID)
	}
	svc.log.Sugar().Infow("Fetching news", "channel_id", channelID, "tag", tag, "platforms", platforms.String(), "weeks", weeks)

	coll, err := svc.fetch(ctx, tag, platforms)
	if err != nil {
		if !errors.Is(err, models.ErrFilterEmpty) {
			svc.log.Sugar().Errorw("Failed to fetch news", "tag", tag, "err", err)
		}
		return Reply{Content: fmt.Sprintf("No news found for platforms: %s", formatPlatforms(platforms))}
	}

	items := delivery.Select(coll.Items(), delivery.WeeksRule(weeks, exclude, svc.cfg.QueryMaxItems), svc.clock, svc.now())
	weekWord := plural(int(weeks), "week", "weeks")
	if len(items) == 0 {
		return Reply{Content: fmt.Sprintf("No %s found from the last %d %s for platforms: %s",
			kindOf(tag), weeks, weekWord, formatPlatforms(platforms))}
	}

	posts := lo.Map(items, func(item models.NewsItem, _ int) models.Post {
		return models.NewPost(item, platforms, svc.cfg.ArticleURLPrefix, svc.cfg.StaticDir)
	})
	content := fmt.Sprintf("**%s (last %d %s)**: Found %d %s from the last %d %s (Platforms: %s)",
		titleOf(tag), weeks, weekWord,
		len(items), plural(len(items), "item", "items"),
		weeks, weekWord, formatPlatforms(platforms))
	return Reply{Content: content, Posts: posts}
}

func (svc *newsQuery) fetch(ctx context.Context, tag string, platforms models.Platforms) (*models.NewsCollection, error) {
	coll, err := svc.news.Fetch(ctx, newsapi.Query{Tag: tag, Limit: queryFetchLimit})
	if err != nil {
		return nil, err
	}
	if !coll.FilterPlatforms(platforms) {
		return nil, models.ErrFilterEmpty
	}
	return coll, nil
}

func kindOf(tag string) string {
	switch tag {
	case models.TagPatchNotes:
		return "patch notes"
	case models.TagNews:
		return "news"
	default:
		return "announcements"
	}
}

func titleOf(tag string) string {
	if tag == models.TagPatchNotes {
		return "STO Patch Notes"
	}
	return "STO News"
}
