package models

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

const (
	TagPatchNotes = "patch-notes"
	TagNews       = "star-trek-online"

	thumbnailKind = "img_microsite_thumbnail"
)

// ArticleID accepts both JSON numbers and numeric strings.
type ArticleID uint64

func (id *ArticleID) UnmarshalJSON(b []byte) error {
	raw := string(bytes.Trim(bytes.TrimSpace(b), `"`))
	v, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return fmt.Errorf("article id %s: %w", b, err)
	}
	*id = ArticleID(v)
	return nil
}

func (id ArticleID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

type Image struct {
	URL string `json:"url"`
}

type NewsItem struct {
	ID        ArticleID        `json:"id"`
	Title     string           `json:"title"`
	Summary   string           `json:"summary"`
	Platforms []string         `json:"platforms"`
	Updated   string           `json:"updated"`
	Images    map[string]Image `json:"images"`
}

// Equal compares items by article id only.
func (item NewsItem) Equal(other NewsItem) bool {
	return item.ID == other.ID
}

func (item NewsItem) ThumbnailURL() string {
	return item.Images[thumbnailKind].URL
}

// Tag guesses the article category from its title.
func (item NewsItem) Tag() string {
	if strings.Contains(item.Title, "Patch Notes") {
		return TagPatchNotes
	}
	return TagNews
}

// NewsCollection is one batch of items as returned by the API, in API order.
type NewsCollection struct {
	News []NewsItem `json:"news"`
}

// FilterPlatforms drops items that share no platform with platforms and
// reports whether anything is left.
func (c *NewsCollection) FilterPlatforms(platforms Platforms) bool {
	c.News = lo.Filter(c.News, func(item NewsItem, _ int) bool {
		return Matches(item.Platforms, platforms)
	})
	return len(c.News) > 0
}

func (c *NewsCollection) Items() []NewsItem {
	return c.News
}

func (c *NewsCollection) Len() int {
	return len(c.News)
}
