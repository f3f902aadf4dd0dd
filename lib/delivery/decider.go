// Package delivery decides which fetched news items still need to be posted.
package delivery

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/fiffu/stobot/lib/models"
	"github.com/samber/lo"
)

var markerPattern = regexp.MustCompile(`ID:(\d+)`)

// IDSet holds article ids already visible in a channel.
type IDSet map[models.ArticleID]struct{}

func NewIDSet(ids ...models.ArticleID) IDSet {
	set := make(IDSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (s IDSet) Has(id models.ArticleID) bool {
	_, ok := s[id]
	return ok
}

// Extractor finds article ids in posted messages, either in an embed URL
// under the article prefix or in an explicit ID:<digits> marker.
type Extractor struct {
	urlPattern *regexp.Regexp
}

func NewExtractor(articlePrefix string) *Extractor {
	prefix := articlePrefix
	if i := strings.Index(prefix, "://"); i >= 0 {
		prefix = prefix[i+3:]
	}
	return &Extractor{
		urlPattern: regexp.MustCompile(regexp.QuoteMeta(prefix) + `(\d+)`),
	}
}

func (e *Extractor) ArticleIDs(messages []models.PostedMessage) IDSet {
	set := make(IDSet)
	for _, msg := range messages {
		for _, url := range msg.EmbedURLs {
			e.collect(set, e.urlPattern, url)
		}
		e.collect(set, markerPattern, msg.Content)
	}
	return set
}

func (e *Extractor) collect(set IDSet, pattern *regexp.Regexp, text string) {
	for _, match := range pattern.FindAllStringSubmatch(text, -1) {
		id, err := strconv.ParseUint(match[1], 10, 64)
		if err != nil {
			continue
		}
		set[models.ArticleID(id)] = struct{}{}
	}
}

// Rule describes one selection pass. Exactly one of MaxAge or Weeks applies:
// polling uses a short freshness window, queries use a week window.
type Rule struct {
	Seen        IDSet
	MaxAge      time.Duration
	Weeks       uint32
	ExcludeTags []string
	Limit       int
}

// FreshRule is used by the poll loop.
func FreshRule(seen IDSet, maxAge time.Duration, limit int) Rule {
	return Rule{Seen: seen, MaxAge: maxAge, Limit: limit}
}

// WeeksRule is used by on-demand queries.
func WeeksRule(weeks uint32, excludeTags []string, limit int) Rule {
	return Rule{Weeks: weeks, ExcludeTags: excludeTags, Limit: limit}
}

func (r Rule) accepts(item models.NewsItem, clock *models.SourceTime, now time.Time) bool {
	if r.Seen.Has(item.ID) {
		return false
	}
	if lo.Contains(r.ExcludeTags, item.Tag()) {
		return false
	}
	if r.Weeks > 0 {
		return clock.IsWithinWeeks(item.Updated, now, r.Weeks)
	}
	return clock.IsFresh(item.Updated, now, r.MaxAge)
}

// Select returns the items accepted by rule, in source order, stopping after
// rule.Limit items when Limit is positive.
func Select(items []models.NewsItem, rule Rule, clock *models.SourceTime, now time.Time) []models.NewsItem {
	var out []models.NewsItem
	for _, item := range items {
		if rule.Limit > 0 && len(out) >= rule.Limit {
			break
		}
		if rule.accepts(item, clock, now) {
			out = append(out, item)
		}
	}
	return out
}
