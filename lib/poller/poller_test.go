package poller

import (
	"context"
	"errors"
	"maps"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/fiffu/stobot/lib/models"
	"github.com/fiffu/stobot/lib/newsapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeNews struct {
	items []models.NewsItem
	err   error
	calls int
	mu    sync.Mutex
}

func (f *fakeNews) Fetch(ctx context.Context, q newsapi.Query) (*models.NewsCollection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	items := append([]models.NewsItem(nil), f.items...)
	return &models.NewsCollection{News: items}, nil
}

type sent struct {
	channelID uint64
	post      models.Post
}

type fakeMessenger struct {
	mu         sync.Mutex
	history    map[uint64][]models.PostedMessage
	historyErr map[uint64]error
	sendErr    map[models.ArticleID]error
	sent       []sent
	onSend     func(channelID uint64)
}

func (f *fakeMessenger) RecentMessages(ctx context.Context, channelID uint64, limit int) ([]models.PostedMessage, error) {
	if err := f.historyErr[channelID]; err != nil {
		return nil, err
	}
	return f.history[channelID], nil
}

func (f *fakeMessenger) SendPost(ctx context.Context, channelID uint64, post models.Post) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.sendErr[post.ArticleID]; err != nil {
		return "", err
	}
	f.sent = append(f.sent, sent{channelID, post})
	if f.onSend != nil {
		f.onSend(channelID)
	}
	return "msg", nil
}

func (f *fakeMessenger) sentTo(channelID uint64) []models.ArticleID {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []models.ArticleID
	for _, s := range f.sent {
		if s.channelID == channelID {
			ids = append(ids, s.post.ArticleID)
		}
	}
	return ids
}

type fakeChannels map[uint64]models.Platforms

func (f fakeChannels) Snapshot() map[uint64]models.Platforms {
	return maps.Clone(f)
}

// mutableChannels counts snapshots and lets a test unregister mid-tick.
type mutableChannels struct {
	mu        sync.Mutex
	view      fakeChannels
	snapshots int
}

func (c *mutableChannels) Snapshot() map[uint64]models.Platforms {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots++
	return c.view.Snapshot()
}

func (c *mutableChannels) unregister(channelID uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.view, channelID)
}

type fakeJournal struct {
	mu      sync.Mutex
	records []models.ArticleID
}

func (f *fakeJournal) Record(ctx context.Context, channelID uint64, post models.Post, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, post.ArticleID)
	return nil
}

type fixture struct {
	poller    *Poller
	news      *fakeNews
	messenger *fakeMessenger
	journal   *fakeJournal
}

func newFixture(t *testing.T, channels Channels) *fixture {
	t.Helper()
	clock, err := models.NewSourceTime(models.DefaultSourceTimezone)
	require.NoError(t, err)
	now := time.Date(2024, 6, 20, 12, 0, 0, 0, clock.Location())
	fresh := now.Format(models.UpdatedLayout)
	stale := now.Add(-time.Hour).Format(models.UpdatedLayout)

	f := &fixture{
		news: &fakeNews{items: []models.NewsItem{
			{ID: 100, Title: "seen", Platforms: []string{"pc"}, Updated: fresh},
			{ID: 101, Title: "pc news", Platforms: []string{"pc"}, Updated: fresh},
			{ID: 102, Title: "console news", Platforms: []string{"xbox", "ps"}, Updated: fresh},
			{ID: 103, Title: "old news", Platforms: []string{"pc"}, Updated: stale},
		}},
		messenger: &fakeMessenger{
			history:    map[uint64][]models.PostedMessage{},
			historyErr: map[uint64]error{},
			sendErr:    map[models.ArticleID]error{},
		},
		journal: &fakeJournal{},
	}
	f.poller = New(zap.NewNop(), f.news, f.messenger, channels, f.journal, clock, Settings{
		Interval:      time.Hour,
		PollCount:     20,
		FreshAge:      2 * time.Minute,
		Lookback:      50,
		ArticlePrefix: models.DefaultArticlePrefix,
		StaticDir:     "static",
	})
	f.poller.now = func() time.Time { return now }
	return f
}

func TestPollOnceDeliversNewFreshItems(t *testing.T) {
	f := newFixture(t, fakeChannels{
		1: models.NewPlatforms("pc"),
		2: models.NewPlatforms("xbox"),
	})
	f.messenger.history[1] = []models.PostedMessage{
		{EmbedURLs: []string{models.DefaultArticlePrefix + "100"}},
	}

	f.poller.PollOnce()

	assert.Equal(t, []models.ArticleID{101}, f.messenger.sentTo(1))
	assert.Equal(t, []models.ArticleID{102}, f.messenger.sentTo(2))
	assert.ElementsMatch(t, []models.ArticleID{101, 102}, f.journal.records)

	for _, s := range f.messenger.sent {
		if s.channelID == 2 {
			assert.Equal(t, []string{"static/xbox.png"}, s.post.Icons)
			assert.Equal(t, models.DefaultArticlePrefix+"102", s.post.URL)
		}
	}
}

func TestPollOnceIsolatesChannelFailures(t *testing.T) {
	f := newFixture(t, fakeChannels{
		1: models.NewPlatforms("pc"),
		2: models.NewPlatforms("pc"),
		3: models.NewPlatforms("pc"),
	})
	f.messenger.historyErr[1] = errors.New("missing access")

	f.poller.PollOnce()

	assert.Empty(t, f.messenger.sentTo(1))
	assert.Equal(t, []models.ArticleID{100, 101}, f.messenger.sentTo(2))
	assert.Equal(t, []models.ArticleID{100, 101}, f.messenger.sentTo(3))
}

func TestPollOnceContinuesAfterSendFailure(t *testing.T) {
	f := newFixture(t, fakeChannels{1: models.NewPlatforms("pc")})
	f.messenger.sendErr[100] = errors.New("rate limited")

	f.poller.PollOnce()

	assert.Equal(t, []models.ArticleID{101}, f.messenger.sentTo(1))
	assert.Equal(t, []models.ArticleID{101}, f.journal.records)
}

func TestPollOnceFetchFailure(t *testing.T) {
	f := newFixture(t, fakeChannels{1: models.NewPlatforms("pc"), 2: models.NewPlatforms("ps")})
	f.news.err = models.ErrFetch

	f.poller.PollOnce()

	assert.Empty(t, f.messenger.sent)
	assert.Equal(t, 2, f.news.calls)
}

func TestStartStop(t *testing.T) {
	f := newFixture(t, fakeChannels{1: models.NewPlatforms("pc")})

	f.poller.Start()
	assert.Eventually(t, func() bool {
		return len(f.messenger.sentTo(1)) == 2
	}, time.Second, 10*time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		f.poller.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}

func TestPollOnceUsesOneRegistryView(t *testing.T) {
	channels := &mutableChannels{view: fakeChannels{
		1: models.NewPlatforms("pc"),
		2: models.NewPlatforms("xbox"),
	}}
	f := newFixture(t, channels)
	f.messenger.onSend = func(channelID uint64) {
		if channelID == 1 {
			channels.unregister(2)
		}
	}

	f.poller.PollOnce()

	assert.Equal(t, 1, channels.snapshots)
	assert.Equal(t, []models.ArticleID{100, 101}, f.messenger.sentTo(1))
	assert.Equal(t, []models.ArticleID{102}, f.messenger.sentTo(2))

	f.poller.PollOnce()

	assert.Equal(t, 2, channels.snapshots)
	assert.Equal(t, []models.ArticleID{102}, f.messenger.sentTo(2))
}

func TestStartStopReleasesGoroutines(t *testing.T) {
	f := newFixture(t, fakeChannels{})
	before := runtime.NumGoroutine()

	for i := 0; i < 20; i++ {
		f.poller.Start()
		f.poller.Stop()
	}

	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before
	}, time.Second, 10*time.Millisecond)
}
