package app

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/fiffu/stobot/lib"
	"github.com/fiffu/stobot/lib/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommands(t *testing.T) {
	cmds := Commands()

	byName := map[string]*discordgo.ApplicationCommand{}
	for _, cmd := range cmds {
		byName[cmd.Name] = cmd
	}
	require.Len(t, byName, 9)

	for _, name := range []string{cmdRegister, cmdUnregister, cmdStatus, cmdSetPlatforms} {
		require.NotNil(t, byName[name].DefaultMemberPermissions, name)
		assert.Equal(t, int64(discordgo.PermissionAdministrator), *byName[name].DefaultMemberPermissions, name)
	}
	for _, name := range []string{cmdHelp, cmdNews, cmdPatchNotes, cmdWiki, cmdWikiShared} {
		assert.Nil(t, byName[name].DefaultMemberPermissions, name)
	}

	weeks := byName[cmdNews].Options[1]
	assert.Equal(t, "weeks", weeks.Name)
	require.NotNil(t, weeks.MinValue)
	assert.Equal(t, 1.0, *weeks.MinValue)
	assert.Equal(t, 52.0, weeks.MaxValue)
}

func TestFlags(t *testing.T) {
	assert.Equal(t, discordgo.MessageFlagsEphemeral, flags(false))
	assert.Equal(t, discordgo.MessageFlags(0), flags(true))
}

func TestReplyEmbedsDropsUnattachedIcons(t *testing.T) {
	reply := lib.Reply{
		Posts: []models.Post{
			{Title: "a", Icons: []string{"static/pc.png"}},
			{Title: "b", Icons: []string{"static/xbox.png"}},
		},
		Card: &models.WikiCard{Title: "card"},
	}
	files := []*discordgo.File{{Name: "pc.png"}}

	embeds := replyEmbeds(reply, files)
	require.Len(t, embeds, 3)
	require.NotNil(t, embeds[0].Image)
	assert.Equal(t, "attachment://pc.png", embeds[0].Image.URL)
	assert.Nil(t, embeds[1].Image)
	assert.Equal(t, "card", embeds[2].Title)
}

func TestOptions(t *testing.T) {
	opts := options([]*discordgo.ApplicationCommandInteractionDataOption{
		{Name: "platforms", Type: discordgo.ApplicationCommandOptionString, Value: "pc,ps"},
		{Name: "weeks", Type: discordgo.ApplicationCommandOptionInteger, Value: float64(3)},
	})

	assert.Equal(t, "pc,ps", stringOpt(opts, "platforms"))
	assert.Equal(t, int64(3), intOpt(opts, "weeks"))
	assert.Equal(t, "", stringOpt(opts, "query"))
	assert.Equal(t, int64(0), intOpt(opts, "missing"))
}
