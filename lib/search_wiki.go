package lib

import (
	"context"
	"errors"

	"github.com/fiffu/stobot/lib/models"
	"go.uber.org/zap"
)

type wikiSearch struct {
	log  *zap.Logger
	wiki WikiLookup
}

// Wiki answers a wiki search. shared replies are visible to the whole channel.
func (svc *wikiSearch) Wiki(ctx context.Context, query string, shared bool) Reply {
	card, err := svc.wiki.Lookup(ctx, query)
	if errors.Is(err, models.ErrInvalidInput) {
		return Reply{Content: "Please provide a search term for the STOWiki."}
	}
	if err != nil {
		svc.log.Sugar().Errorw("Wiki lookup failed", "query", query, "err", err)
		return Reply{Content: "STOWiki search is unavailable right now."}
	}
	return Reply{Card: &card, Public: shared}
}
