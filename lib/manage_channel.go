package lib

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fiffu/stobot/config"
	"github.com/fiffu/stobot/lib/models"
	"github.com/fiffu/stobot/lib/registry"
	"go.uber.org/zap"
)

const helpText = "📖 **Available Commands**\n" +
	"**Admin Commands** (requires Administrator permission):\n" +
	"• `/stobot_register` - Register this channel for STO news\n" +
	"• `/stobot_unregister` - Unregister this channel\n" +
	"• `/stobot_status` - Show current configuration\n" +
	"• `/stobot_setplatforms <platforms>` - Set monitored platforms (comma-separated, e.g., pc,ps,xbox)\n\n" +
	"**General Commands**:\n" +
	"• `/stobot_news [platforms](Defaults to all Platforms) [weeks](Defaults to 1 Week)` - Show recent STO news (excluding patch notes)\n" +
	"• `/stobot_patchnotes [platforms](Defaults to all Platforms) [weeks](Defaults to 1 Week)` - Show recent STO patch notes\n" +
	"• `/stobot_wiki <query>` - Search STOWiki.net for information (private reply)\n" +
	"• `/stobot_wiki_shared <query>` - Search STOWiki.net for information (shared in channel)\n" +
	"• `/stobot_help` - Show this help message"

type registration struct {
	cfg        *config.Config
	log        *zap.Logger
	registry   *registry.Registry
	deliveries DeliveryLog
}

func (svc *registration) Register(ctx context.Context, channelID uint64) Reply {
	added, err := svc.registry.Register(channelID)
	if err != nil {
		svc.log.Sugar().Errorw("Failed to save channels", "channel_id", channelID, "err", err)
	}
	if added {
		svc.log.Sugar().Infow("Registered channel", "channel_id", channelID)
	}
	return Reply{Content: fmt.Sprintf("This channel (ID: %d) will now have STO news posted.", channelID)}
}

func (svc *registration) Unregister(ctx context.Context, channelID uint64) Reply {
	removed, err := svc.registry.Unregister(channelID)
	if err != nil {
		svc.log.Sugar().Errorw("Failed to save channels", "channel_id", channelID, "err", err)
	}
	if removed {
		svc.log.Sugar().Infow("Removed channel", "channel_id", channelID)
	}
	return Reply{Content: fmt.Sprintf("This channel (ID: %d) will no longer have STO news posted.", channelID)}
}

func (svc *registration) Status(ctx context.Context, channelID uint64) Reply {
	var b strings.Builder
	b.WriteString("📊 **Bot Status**\n")
	fmt.Fprintf(&b, "• Polling Period: %d seconds\n", svc.cfg.PollPeriod)

	if !svc.registry.IsRegistered(channelID) {
		b.WriteString("• This Channel: Not Registered\n")
		b.WriteString("• Use `/stobot_register` to register this channel")
		return Reply{Content: b.String()}
	}

	fmt.Fprintf(&b, "• This Channel's Platforms: %s\n", formatPlatforms(svc.registry.Platforms(channelID)))
	b.WriteString("• This Channel: Registered")

	last, err := svc.deliveries.LastFor(ctx, channelID)
	switch {
	case err != nil:
		svc.log.Sugar().Warnw("Failed to read last delivery", "channel_id", channelID, "err", err)
	case last != nil:
		fmt.Fprintf(&b, "\n• Last Posted: %s (%s)", last.Title, last.DeliveredAt.UTC().Format(time.RFC1123))
	}
	return Reply{Content: b.String()}
}

func (svc *registration) Help() Reply {
	return Reply{Content: helpText}
}

// SetPlatforms replaces the platforms of channelID with the comma-separated
// csv. present is false when the command option was not supplied at all.
func (svc *registration) SetPlatforms(ctx context.Context, channelID uint64, csv string, present bool) Reply {
	if !present {
		return Reply{Content: "Missing platforms parameter"}
	}

	platforms := models.ParsePlatforms(csv)
	err := svc.registry.SetPlatforms(channelID, platforms)
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return Reply{Content: "Platform list cannot be empty."}
	case err != nil:
		svc.log.Sugar().Errorw("Failed to save channels", "channel_id", channelID, "err", err)
	}

	svc.log.Sugar().Infow("Updated channel platforms", "channel_id", channelID, "platforms", platforms.String())
	return Reply{Content: fmt.Sprintf("Monitored platforms for this channel updated to %s.", formatPlatforms(platforms))}
}
