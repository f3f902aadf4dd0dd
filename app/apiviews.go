package app

import (
	"sort"
	"strconv"
	"time"

	"github.com/fiffu/stobot/lib/journal"
	"github.com/fiffu/stobot/lib/models"
)

// Channel ids are rendered as strings since they overflow JSON numbers.
type ChannelView struct {
	ID        string   `json:"id"`
	Platforms []string `json:"platforms"`
}

type DeliveryView struct {
	ChannelID   string `json:"channel_id"`
	ArticleID   uint64 `json:"article_id"`
	Title       string `json:"title"`
	DeliveredAt string `json:"delivered_at"`
}

func (view ChannelView) From(channelID uint64, platforms models.Platforms) ChannelView {
	return ChannelView{
		ID:        strconv.FormatUint(channelID, 10),
		Platforms: []string(platforms),
	}
}

func (view DeliveryView) From(entity journal.Delivery) DeliveryView {
	return DeliveryView{
		ChannelID:   strconv.FormatUint(entity.ChannelID, 10),
		ArticleID:   entity.ArticleID,
		Title:       entity.Title,
		DeliveredAt: isoformat(entity.DeliveredAt),
	}
}

// ChannelViews lists channels in ascending id order.
func ChannelViews(snapshot map[uint64]models.Platforms) []ChannelView {
	ids := make([]uint64, 0, len(snapshot))
	for id := range snapshot {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]ChannelView, len(ids))
	for i, id := range ids {
		out[i] = ChannelView{}.From(id, snapshot[id])
	}
	return out
}

type Fromable[Entity any, Repr any] interface {
	From(Entity) Repr
}

func FromMany[T any, U Fromable[T, U]](elems []T) []U {
	out := make([]U, len(elems))
	for i, t := range elems {
		var u U
		out[i] = u.From(t)
	}
	return out
}

func isoformat(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
