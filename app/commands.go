package app

import (
	"context"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/fiffu/stobot/lib"
	"github.com/fiffu/stobot/lib/models"
	"github.com/fiffu/stobot/senders"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const commandTimeout = 30 * time.Second

const (
	cmdRegister     = "stobot_register"
	cmdUnregister   = "stobot_unregister"
	cmdStatus       = "stobot_status"
	cmdSetPlatforms = "stobot_setplatforms"
	cmdHelp         = "stobot_help"
	cmdNews         = "stobot_news"
	cmdPatchNotes   = "stobot_patchnotes"
	cmdWiki         = "stobot_wiki"
	cmdWikiShared   = "stobot_wiki_shared"
)

// Commands are the slash commands registered on every ready event.
func Commands() []*discordgo.ApplicationCommand {
	admin := int64(discordgo.PermissionAdministrator)
	minWeeks := 1.0

	platformsOpt := func(required bool, desc string) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "platforms",
			Description: desc,
			Required:    required,
		}
	}
	weeksOpt := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        "weeks",
		Description: "Number of weeks to look back (default 1)",
		MinValue:    &minWeeks,
		MaxValue:    52,
	}
	queryOpt := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "query",
		Description: "What to search for",
		Required:    true,
	}

	return []*discordgo.ApplicationCommand{
		{Name: cmdRegister, Description: "Register this channel for STO news", DefaultMemberPermissions: &admin},
		{Name: cmdUnregister, Description: "Unregister this channel from STO news", DefaultMemberPermissions: &admin},
		{Name: cmdStatus, Description: "Show the bot configuration for this channel", DefaultMemberPermissions: &admin},
		{
			Name:                     cmdSetPlatforms,
			Description:              "Set monitored platforms for this channel",
			DefaultMemberPermissions: &admin,
			Options:                  []*discordgo.ApplicationCommandOption{platformsOpt(true, "Comma-separated platforms, e.g. pc,ps,xbox")},
		},
		{Name: cmdHelp, Description: "Show available commands"},
		{
			Name:        cmdNews,
			Description: "Show recent STO news (excluding patch notes)",
			Options:     []*discordgo.ApplicationCommandOption{platformsOpt(false, "Comma-separated platforms (defaults to this channel's)"), weeksOpt},
		},
		{
			Name:        cmdPatchNotes,
			Description: "Show recent STO patch notes",
			Options:     []*discordgo.ApplicationCommandOption{platformsOpt(false, "Comma-separated platforms (defaults to this channel's)"), weeksOpt},
		},
		{
			Name:        cmdWiki,
			Description: "Search STOWiki.net for information (private reply)",
			Options:     []*discordgo.ApplicationCommandOption{queryOpt},
		},
		{
			Name:        cmdWikiShared,
			Description: "Search STOWiki.net for information (shared in channel)",
			Options:     []*discordgo.ApplicationCommandOption{queryOpt},
		},
	}
}

// deferred commands call out to the network before they can answer.
var deferred = map[string]bool{
	cmdNews:       true,
	cmdPatchNotes: true,
	cmdWiki:       true,
	cmdWikiShared: true,
}

type CommandRouter struct {
	log    *zap.Logger
	svc    *lib.Service
	sender senders.Sender
}

func NewCommandRouter(log *zap.Logger, session *discordgo.Session, svc *lib.Service, sender senders.Sender) *CommandRouter {
	r := &CommandRouter{log, svc, sender}
	session.AddHandler(r.onReady)
	session.AddHandler(r.onInteraction)
	return r
}

func (r *CommandRouter) onReady(s *discordgo.Session, evt *discordgo.Ready) {
	r.log.Sugar().Infow("Bot connected", "user", evt.User.Username, "user_id", evt.User.ID)

	cmds, err := s.ApplicationCommandBulkOverwrite(evt.User.ID, "", Commands())
	if err != nil {
		r.log.Sugar().Errorw("Failed to register slash commands", "err", err)
		return
	}
	r.log.Sugar().Infow("Registered slash commands", "count", len(cmds))
}

func (r *CommandRouter) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()
	channelID, err := strconv.ParseUint(i.ChannelID, 10, 64)
	if err != nil {
		r.log.Sugar().Warnw("Interaction without a usable channel", "channel_id", i.ChannelID)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	opts := options(data.Options)
	public := data.Name == cmdWikiShared

	if deferred[data.Name] {
		err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{Flags: flags(public)},
		}, discordgo.WithContext(ctx))
		if err != nil {
			r.log.Sugar().Errorw("Failed to defer interaction", "command", data.Name, "err", err)
			return
		}
	}

	reply := r.dispatch(ctx, data.Name, channelID, opts)

	files, closeFiles := r.sender.IconFiles(reply.Icons())
	defer closeFiles()
	embeds := replyEmbeds(reply, files)

	if deferred[data.Name] {
		_, err = s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
			Content: reply.Content,
			Embeds:  embeds,
			Files:   files,
			Flags:   flags(reply.Public),
		}, discordgo.WithContext(ctx))
	} else {
		err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: reply.Content,
				Embeds:  embeds,
				Files:   files,
				Flags:   flags(reply.Public),
			},
		}, discordgo.WithContext(ctx))
	}
	if err != nil {
		r.log.Sugar().Errorw("Failed to answer interaction", "command", data.Name, "channel_id", channelID, "err", err)
	}
}

func (r *CommandRouter) dispatch(ctx context.Context, name string, channelID uint64, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) lib.Reply {
	switch name {
	case cmdRegister:
		return r.svc.Register(ctx, channelID)
	case cmdUnregister:
		return r.svc.Unregister(ctx, channelID)
	case cmdStatus:
		return r.svc.Status(ctx, channelID)
	case cmdHelp:
		return r.svc.Help()
	case cmdSetPlatforms:
		opt, ok := opts["platforms"]
		if !ok {
			return r.svc.SetPlatforms(ctx, channelID, "", false)
		}
		return r.svc.SetPlatforms(ctx, channelID, opt.StringValue(), true)
	case cmdNews:
		return r.svc.News(ctx, channelID, stringOpt(opts, "platforms"), intOpt(opts, "weeks"))
	case cmdPatchNotes:
		return r.svc.PatchNotes(ctx, channelID, stringOpt(opts, "platforms"), intOpt(opts, "weeks"))
	case cmdWiki:
		return r.svc.Wiki(ctx, stringOpt(opts, "query"), false)
	case cmdWikiShared:
		return r.svc.Wiki(ctx, stringOpt(opts, "query"), true)
	default:
		return lib.Reply{Content: "Unknown command"}
	}
}

// replyEmbeds renders reply, dropping icon images whose file could not be attached.
func replyEmbeds(reply lib.Reply, files []*discordgo.File) []*discordgo.MessageEmbed {
	attached := lo.SliceToMap(files, func(f *discordgo.File) (string, bool) {
		return senders.AttachmentURL(f.Name), true
	})

	embeds := lo.Map(reply.Posts, func(post models.Post, _ int) *discordgo.MessageEmbed {
		embed := senders.PostEmbed(post)
		if embed.Image != nil && !attached[embed.Image.URL] {
			embed.Image = nil
		}
		return embed
	})
	if reply.Card != nil {
		embeds = append(embeds, senders.WikiEmbed(*reply.Card))
	}
	return embeds
}

func options(opts []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	return lo.KeyBy(opts, func(opt *discordgo.ApplicationCommandInteractionDataOption) string {
		return opt.Name
	})
}

func stringOpt(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	if opt, ok := opts[name]; ok {
		return opt.StringValue()
	}
	return ""
}

func intOpt(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) int64 {
	if opt, ok := opts[name]; ok {
		return opt.IntValue()
	}
	return 0
}

func flags(public bool) discordgo.MessageFlags {
	if public {
		return 0
	}
	return discordgo.MessageFlagsEphemeral
}
