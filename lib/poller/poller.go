// Package poller periodically delivers fresh news to every registered channel.
package poller

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/fiffu/stobot/lib/delivery"
	"github.com/fiffu/stobot/lib/models"
	"github.com/fiffu/stobot/lib/newsapi"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

type NewsSource interface {
	Fetch(ctx context.Context, q newsapi.Query) (*models.NewsCollection, error)
}

type Messenger interface {
	RecentMessages(ctx context.Context, channelID uint64, limit int) ([]models.PostedMessage, error)
	SendPost(ctx context.Context, channelID uint64, post models.Post) (string, error)
}

// Channels yields the registered channels and their platform filters as one
// consistent view.
type Channels interface {
	Snapshot() map[uint64]models.Platforms
}

type Journal interface {
	Record(ctx context.Context, channelID uint64, post models.Post, at time.Time) error
}

type Settings struct {
	Interval      time.Duration // Time between ticks
	TickTimeout   time.Duration // Upper bound for one tick across all channels
	PollCount     uint32        // Items requested from the news API per channel
	FreshAge      time.Duration // Items older (or newer) than this are not posted
	Lookback      int           // Recent channel messages scanned for already-posted ids
	ArticlePrefix string
	StaticDir     string
}

type Poller struct {
	log       *zap.Logger
	news      NewsSource
	messenger Messenger
	channels  Channels
	journal   Journal
	clock     *models.SourceTime
	extractor *delivery.Extractor
	settings  Settings
	now       func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(
	log *zap.Logger,
	news NewsSource,
	messenger Messenger,
	channels Channels,
	journal Journal,
	clock *models.SourceTime,
	settings Settings,
) *Poller {
	if settings.TickTimeout <= 0 {
		settings.TickTimeout = time.Minute
	}
	return &Poller{
		log:       log,
		news:      news,
		messenger: messenger,
		channels:  channels,
		journal:   journal,
		clock:     clock,
		extractor: delivery.NewExtractor(settings.ArticlePrefix),
		settings:  settings,
		now:       time.Now,
	}
}

type pollMetrics struct {
	delivered int
	skipped   int
	errored   int
}

func (m *pollMetrics) Add(other *pollMetrics) {
	m.delivered += other.delivered
	m.skipped += other.skipped
	m.errored += other.errored
}

// tickerWithImmediateTick forwards ticks until ctx is done. Stopping the
// ticker alone never closes its channel.
func (p *Poller) tickerWithImmediateTick(ctx context.Context, interval time.Duration) *time.Ticker {
	withImmediateTick := make(chan time.Time, 1)

	ticker := time.NewTicker(interval)
	tickerC := ticker.C
	go func() {
		withImmediateTick <- time.Now()
		for {
			select {
			case <-ctx.Done():
				return
			case c := <-tickerC:
				select {
				case withImmediateTick <- c:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	ticker.C = withImmediateTick
	return ticker
}

// Start launches the poll loop in the background. The first tick fires
// immediately.
func (p *Poller) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.run(ctx)
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)

	ticker := p.tickerWithImmediateTick(ctx, p.settings.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Sugar().Info("Poller stopped")
			return

		case <-ticker.C:
			if ctx.Err() != nil {
				continue
			}
			p.PollOnce()
		}
	}
}

// Stop prevents further ticks and waits for the one in flight.
func (p *Poller) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
}

// PollOnce runs one tick over all registered channels. In-flight requests are
// bounded by TickTimeout and are not interrupted by Stop.
func (p *Poller) PollOnce() {
	p.mu.Lock()
	defer p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), p.settings.TickTimeout)
	defer cancel()

	tickID := uuid.NewString()
	log := p.log.With(zap.String("tick_id", tickID))
	startedAt := p.now()

	snapshot := p.channels.Snapshot()
	channels := lo.Keys(snapshot)
	slices.Sort(channels)

	metrics := &pollMetrics{}
	for _, channelID := range channels {
		m, err := p.pollChannel(ctx, log, channelID, snapshot[channelID])
		if err != nil {
			log.Sugar().Errorw("Failed to poll channel", "channel_id", channelID, "err", err)
		}
		metrics.Add(m)
	}

	if len(channels) > 0 {
		args := make([]any, 0)
		if metrics.delivered != 0 {
			args = append(args, "delivered", metrics.delivered)
		}
		if metrics.skipped != 0 {
			args = append(args, "skipped", metrics.skipped)
		}
		if metrics.errored != 0 {
			args = append(args, "errored", metrics.errored)
		}
		args = append(args, "elapsed_msecs", int(p.now().Sub(startedAt).Milliseconds()))

		log.Sugar().Infow(
			fmt.Sprintf("Processed %d channels", len(channels)),
			args...,
		)
	}
}

func (p *Poller) pollChannel(ctx context.Context, log *zap.Logger, channelID uint64, platforms models.Platforms) (*pollMetrics, error) {
	var m = &pollMetrics{}
	var errMetric = &pollMetrics{errored: 1}

	coll, err := p.news.Fetch(ctx, newsapi.Query{Limit: p.settings.PollCount})
	if err != nil {
		return errMetric, err
	}
	if !coll.FilterPlatforms(platforms) {
		return m, nil
	}

	history, err := p.messenger.RecentMessages(ctx, channelID, p.settings.Lookback)
	if err != nil {
		return errMetric, fmt.Errorf("reading channel history: %w", err)
	}
	seen := p.extractor.ArticleIDs(history)

	now := p.now()
	items := delivery.Select(coll.Items(), delivery.FreshRule(seen, p.settings.FreshAge, 0), p.clock, now)
	m.skipped = coll.Len() - len(items)

	for _, item := range items {
		post := models.NewPost(item, platforms, p.settings.ArticlePrefix, p.settings.StaticDir)
		log.Sugar().Infow("Sending news", "channel_id", channelID, "article_id", item.ID, "platforms", platforms.String())

		if _, err := p.messenger.SendPost(ctx, channelID, post); err != nil {
			log.Sugar().Errorw("Failed to send news", "channel_id", channelID, "article_id", item.ID, "err", err)
			m.errored++
			continue
		}
		m.delivered++

		if p.journal == nil {
			continue
		}
		if err := p.journal.Record(ctx, channelID, post, p.now()); err != nil {
			log.Sugar().Warnw("Failed to journal delivery", "channel_id", channelID, "article_id", item.ID, "err", err)
		}
	}
	return m, nil
}
