package status

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/SHIBINSOJU/SHOT-MC/internal/probe"
	"github.com/SHIBINSOJU/SHOT-MC/internal/store"
)

// Button custom IDs on the managed status message.
const (
	RefreshButtonID    = "status-refresh"
	PlayerListButtonID = "status-player-list"
)

const (
	colorOnline  = 0x57F287
	colorOffline = 0xED4245
)

// Content is a renderable status message.
type Content struct {
	Embed      *discordgo.MessageEmbed
	Components []discordgo.MessageComponent
}

// Render turns a record and a probe outcome into display content. It is
// pure: identical inputs produce identical output. The embed timestamp comes
// from the probe outcome, not the clock.
func Render(rec *store.GuildConfig, st *probe.Status) *Content {
	embed := &discordgo.MessageEmbed{
		Title:     orDefault(rec.DisplayName, "Server Status"),
		Timestamp: st.CheckedAt.UTC().Format(time.RFC3339),
	}
	if rec.ThumbnailURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: rec.ThumbnailURL}
	}
	if rec.BannerURL != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: rec.BannerURL}
	}

	if st.Online {
		embed.Color = colorOnline
		embed.Description = rec.Description
		embed.Fields = []*discordgo.MessageEmbedField{
			{Name: "Address", Value: fmt.Sprintf("`%s:%d`", rec.ServerIP, rec.ServerPort), Inline: true},
			{Name: "Players", Value: fmt.Sprintf("%d/%d", st.OnlinePlayers, st.MaxPlayers), Inline: true},
			{Name: "Version", Value: orDash(st.VersionName), Inline: true},
		}
		if st.MOTD != "" {
			embed.Fields = append([]*discordgo.MessageEmbedField{
				{Name: "MOTD", Value: st.MOTD},
			}, embed.Fields...)
		}
		if st.Latency > 0 {
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
				Name: "Latency", Value: fmt.Sprintf("%dms", st.Latency.Milliseconds()), Inline: true,
			})
		}
	} else {
		embed.Color = colorOffline
		embed.Description = "The server is currently offline."
		embed.Fields = []*discordgo.MessageEmbedField{
			{Name: "Address", Value: fmt.Sprintf("`%s:%d`", rec.ServerIP, rec.ServerPort), Inline: true},
		}
	}

	return &Content{
		Embed: embed,
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						CustomID: RefreshButtonID,
						Label:    "Refresh",
						Style:    discordgo.SecondaryButton,
					},
					discordgo.Button{
						CustomID: PlayerListButtonID,
						Label:    "Player List",
						Style:    discordgo.SecondaryButton,
						Disabled: !st.Online,
					},
				},
			},
		},
	}
}

func orDash(s string) string {
	return orDefault(s, "unknown")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
