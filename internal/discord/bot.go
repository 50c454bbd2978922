package discord

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/SHIBINSOJU/SHOT-MC/internal/mojang"
	"github.com/SHIBINSOJU/SHOT-MC/internal/probe"
	"github.com/SHIBINSOJU/SHOT-MC/internal/rcon"
	"github.com/SHIBINSOJU/SHOT-MC/internal/status"
	"github.com/SHIBINSOJU/SHOT-MC/internal/store"
)

const interactionTimeout = 15 * time.Second

// Bot routes Discord interactions onto the store, the reconciler, and the
// scheduler registry.
type Bot struct {
	session    *discordgo.Session
	store      *store.Store
	reconciler *status.Reconciler
	registry   *status.Registry
	rcon       rcon.Executor
	mojang     *mojang.Client
	log        zerolog.Logger
}

func NewBot(session *discordgo.Session, st *store.Store, reconciler *status.Reconciler,
	registry *status.Registry, rconExec rcon.Executor, mojangClient *mojang.Client, log zerolog.Logger) *Bot {
	return &Bot{
		session:    session,
		store:      st,
		reconciler: reconciler,
		registry:   registry,
		rcon:       rconExec,
		mojang:     mojangClient,
		log:        log.With().Str("component", "discord").Logger(),
	}
}

// Open registers the interaction handler and connects the gateway session.
func (b *Bot) Open() error {
	b.session.Identify.Intents = discordgo.IntentsGuilds
	b.session.AddHandler(b.onInteraction)
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	return nil
}

func (b *Bot) Close() error {
	return b.session.Close()
}

// onInteraction is the single error boundary for all interactive triggers:
// a failing handler gets an ephemeral failure reply and never takes the
// gateway loop down.
func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	defer func() {
		if rec := recover(); rec != nil {
			b.log.Error().Interface("panic", rec).Msg("interaction handler panicked")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	var err error
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		err = b.handleCommand(ctx, i)
	case discordgo.InteractionMessageComponent:
		err = b.handleComponent(ctx, i)
	default:
		return
	}
	if err != nil {
		b.log.Error().Err(err).Str("guild_id", i.GuildID).Msg("interaction failed")
		b.replyEphemeral(i, "There was an error while executing this command!")
	}
}

func (b *Bot) handleCommand(ctx context.Context, i *discordgo.InteractionCreate) error {
	data := i.ApplicationCommandData()
	switch data.Name {
	case "setup-server":
		return b.handleSetupServer(i, data)
	case "setup-display":
		return b.handleSetupDisplay(i, data)
	case "setup-rcon":
		return b.handleSetupRcon(i, data)
	case "setup-status-channel":
		return b.handleSetupStatusChannel(ctx, i, data)
	case "setup-status-interval":
		return b.handleSetupInterval(i, data)
	case "status-unsubscribe":
		return b.handleUnsubscribe(i)
	case "status":
		return b.handleStatus(ctx, i)
	case "players":
		return b.handlePlayers(ctx, i)
	case "whitelist":
		return b.handleWhitelist(ctx, i, data)
	case "skin":
		return b.handleSkin(ctx, i, data)
	case "uuid":
		return b.handleUUID(ctx, i, data)
	case "help":
		return b.handleHelp(i)
	default:
		b.log.Warn().Str("command", data.Name).Msg("unknown command")
		return nil
	}
}

func (b *Bot) handleComponent(ctx context.Context, i *discordgo.InteractionCreate) error {
	customID := i.MessageComponentData().CustomID
	switch {
	case customID == status.RefreshButtonID:
		return b.handleRefresh(ctx, i)
	case strings.HasPrefix(customID, status.PlayerListButtonID):
		return b.handlePlayerList(ctx, i, customID)
	default:
		return nil
	}
}

// --- configuration commands ---

func (b *Bot) handleSetupServer(i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) error {
	opts := optionMap(data.Options)
	ip := opts["ip"].StringValue()
	port := int(opts["port"].IntValue())
	edition := opts["edition"].StringValue()

	if err := b.store.SetServer(i.GuildID, ip, port, edition); err != nil {
		switch {
		case errors.Is(err, store.ErrInvalidPort):
			return b.replyEphemeral(i, "The port must be between 1 and 65535.")
		case errors.Is(err, store.ErrInvalidEdition):
			return b.replyEphemeral(i, "The edition must be either Java or Bedrock.")
		default:
			return err
		}
	}
	b.rearmIfSubscribed(i.GuildID)
	return b.replyEphemeral(i, "Server details have been set up successfully!")
}

func (b *Bot) handleSetupDisplay(i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) error {
	opts := optionMap(data.Options)
	str := func(name string) string {
		if o, ok := opts[name]; ok {
			return o.StringValue()
		}
		return ""
	}

	err := b.store.SetDisplay(i.GuildID, str("name"), str("description"),
		str("banner-url"), str("thumbnail-url"))
	if err != nil {
		return err
	}
	b.rearmIfSubscribed(i.GuildID)
	return b.replyEphemeral(i, "Display settings have been updated!")
}

func (b *Bot) handleSetupRcon(i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) error {
	opts := optionMap(data.Options)
	port := int(opts["port"].IntValue())
	password := opts["password"].StringValue()

	if err := b.store.SetRcon(i.GuildID, port, password); err != nil {
		if errors.Is(err, store.ErrInvalidPort) {
			return b.replyEphemeral(i, "The RCON port must be between 1 and 65535.")
		}
		return err
	}
	return b.replyEphemeral(i, "RCON details have been set up successfully!")
}

func (b *Bot) handleSetupStatusChannel(ctx context.Context, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) error {
	opts := optionMap(data.Options)
	channel := opts["channel"].ChannelValue(nil)

	rec, err := b.store.FindByGuild(i.GuildID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && !rec.Configured()) {
		return b.replyEphemeral(i, "The server has not been set up yet. Please use `/setup-server` first.")
	}
	if err != nil {
		return err
	}

	if err := b.store.SetStatusChannel(i.GuildID, channel.ID); err != nil {
		return err
	}
	b.registry.Ensure(i.GuildID, rec.Interval())
	return b.replyEphemeral(i, fmt.Sprintf("Status channel has been set to <#%s>!", channel.ID))
}

func (b *Bot) handleSetupInterval(i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) error {
	opts := optionMap(data.Options)
	seconds := opts["interval"].IntValue()
	interval := time.Duration(seconds) * time.Second

	if err := b.store.SetInterval(i.GuildID, interval); err != nil {
		if errors.Is(err, store.ErrIntervalTooShort) {
			return b.replyEphemeral(i, fmt.Sprintf("The update interval must be at least %d seconds.",
				int(b.store.IntervalFloor().Seconds())))
		}
		return err
	}
	b.rearmIfSubscribed(i.GuildID)
	return b.replyEphemeral(i, fmt.Sprintf("Status update interval has been set to %d seconds!", seconds))
}

func (b *Bot) handleUnsubscribe(i *discordgo.InteractionCreate) error {
	if err := b.store.ClearSubscription(i.GuildID); err != nil {
		return err
	}
	b.registry.Remove(i.GuildID)
	return b.replyEphemeral(i, "Live status updates have been stopped.")
}

// rearmIfSubscribed restarts the guild's timer so configuration changes take
// effect immediately instead of on the next old-interval tick.
func (b *Bot) rearmIfSubscribed(guildID string) {
	rec, err := b.store.FindByGuild(guildID)
	if err != nil || !rec.Subscribed() {
		return
	}
	b.registry.Ensure(guildID, rec.Interval())
}

// --- interactive status commands ---

func (b *Bot) handleStatus(ctx context.Context, i *discordgo.InteractionCreate) error {
	rec, st, err := b.probeForInteraction(ctx, i)
	if rec == nil || err != nil {
		return err
	}
	if !st.Online {
		return b.replyEphemeral(i, "Could not reach the server. Please ensure the server is online and the IP/port are correct.")
	}
	content := status.Render(rec, st)
	return b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{content.Embed},
		},
	})
}

func (b *Bot) handlePlayers(ctx context.Context, i *discordgo.InteractionCreate) error {
	rec, st, err := b.probeForInteraction(ctx, i)
	if rec == nil || err != nil {
		return err
	}
	if !st.Online {
		return b.replyEphemeral(i, "Could not reach the server. Please ensure the server is online and the IP/port are correct.")
	}

	list := "No players online."
	if len(st.Players) > 0 {
		names := make([]string, len(st.Players))
		for n, p := range st.Players {
			names[n] = p.Name
		}
		list = strings.Join(names, ", ")
	}
	embed := &discordgo.MessageEmbed{
		Title:       "Online Players",
		Color:       0x5865F2,
		Description: list,
		Timestamp:   st.CheckedAt.UTC().Format(time.RFC3339),
	}
	return b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
}

// probeForInteraction resolves the record and probes the server. A nil record
// means the "not configured" reply was already sent.
func (b *Bot) probeForInteraction(ctx context.Context, i *discordgo.InteractionCreate) (*store.GuildConfig, *probe.Status, error) {
	rec, err := b.store.FindByGuild(i.GuildID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && !rec.Configured()) {
		return nil, nil, b.replyEphemeral(i, "The server has not been set up yet. Please use `/setup-server` first.")
	}
	if err != nil {
		return nil, nil, err
	}
	return rec, b.reconciler.Probe(ctx, rec), nil
}

func (b *Bot) handleWhitelist(ctx context.Context, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) error {
	rec, err := b.store.FindByGuild(i.GuildID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && !rec.RconConfigured()) {
		return b.replyEphemeral(i, "RCON has not been set up yet. Please use `/setup-rcon` first.")
	}
	if err != nil {
		return err
	}

	sub := data.Options[0]
	username := optionMap(sub.Options)["username"].StringValue()

	cmd, err := rcon.WhitelistCommand(sub.Name, username)
	if errors.Is(err, rcon.ErrInvalidUsername) {
		return b.replyEphemeral(i, fmt.Sprintf("`%s` is not a valid Minecraft username.", username))
	}
	if err != nil {
		return err
	}

	resp, err := b.rcon.Exec(ctx, rec.ServerIP, rec.RconPort, rec.RconPassword, cmd)
	if err != nil {
		b.log.Warn().Err(err).Str("guild_id", i.GuildID).Msg("rcon command failed")
		return b.replyEphemeral(i, "There was an error while sending the RCON command. Please ensure the server is online and RCON is configured correctly.")
	}
	if resp == "" {
		resp = "Done."
	}
	return b.replyEphemeral(i, truncate(resp, 2000))
}

// --- profile commands ---

func (b *Bot) handleSkin(ctx context.Context, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) error {
	username := optionMap(data.Options)["username"].StringValue()
	profile, err := b.mojang.Lookup(ctx, username)
	if errors.Is(err, mojang.ErrProfileNotFound) {
		return b.replyEphemeral(i, fmt.Sprintf("Could not find a player with the username `%s`.", username))
	}
	if err != nil {
		return err
	}
	return b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: fmt.Sprintf("Here is the skin for `%s`: %s", profile.Name, profile.SkinURL()),
			Embeds: []*discordgo.MessageEmbed{{
				Image: &discordgo.MessageEmbedImage{URL: profile.BodyRenderURL()},
			}},
		},
	})
}

func (b *Bot) handleUUID(ctx context.Context, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) error {
	username := optionMap(data.Options)["username"].StringValue()
	profile, err := b.mojang.Lookup(ctx, username)
	if errors.Is(err, mojang.ErrProfileNotFound) {
		return b.replyEphemeral(i, fmt.Sprintf("Could not find a player with the username `%s`.", username))
	}
	if err != nil {
		return err
	}
	return b.reply(i, fmt.Sprintf("The UUID of `%s` is `%s`.", profile.Name, profile.ID))
}

func (b *Bot) handleHelp(i *discordgo.InteractionCreate) error {
	var sb strings.Builder
	sb.WriteString("**Available Commands:**\n")
	for _, cmd := range commandDefinitions() {
		fmt.Fprintf(&sb, "`/%s` - %s\n", cmd.Name, cmd.Description)
	}
	return b.replyEphemeral(i, sb.String())
}

// --- buttons ---

// handleRefresh runs a full reconcile so the managed message updates, then
// acks the press ephemerally.
func (b *Bot) handleRefresh(ctx context.Context, i *discordgo.InteractionCreate) error {
	if err := b.deferEphemeral(i); err != nil {
		return err
	}
	st, err := b.reconciler.Reconcile(ctx, i.GuildID)
	if err != nil {
		return err
	}
	msg := "Status refreshed."
	if st == nil {
		msg = "This server is no longer configured for status updates."
	}
	return b.editResponse(i, msg, nil, nil)
}

const playersPerPage = 10

func (b *Bot) handlePlayerList(ctx context.Context, i *discordgo.InteractionCreate, customID string) error {
	// First click opens a fresh ephemeral reply; page turns update it.
	page := 0
	if rest, ok := strings.CutPrefix(customID, status.PlayerListButtonID+"-page-"); ok {
		page, _ = strconv.Atoi(rest)
		if err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseDeferredMessageUpdate,
		}); err != nil {
			return err
		}
	} else if err := b.deferEphemeral(i); err != nil {
		return err
	}

	rec, err := b.store.FindByGuild(i.GuildID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && !rec.Configured()) {
		return b.editResponse(i, "Server config not found.", nil, nil)
	}
	if err != nil {
		return err
	}

	st := b.reconciler.Probe(ctx, rec)
	if !st.Online || len(st.Players) == 0 {
		return b.editResponse(i, "No players are currently online.", nil, nil)
	}

	totalPages := (len(st.Players) + playersPerPage - 1) / playersPerPage
	if page < 0 {
		page = 0
	}
	if page >= totalPages {
		page = totalPages - 1
	}

	start := page * playersPerPage
	end := min(start+playersPerPage, len(st.Players))

	var sb strings.Builder
	for n, p := range st.Players[start:end] {
		fmt.Fprintf(&sb, "`%d.` %s\n", start+n+1, strings.ReplaceAll(p.Name, "_", "\\_"))
	}

	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Player List (%d / %d)", st.OnlinePlayers, st.MaxPlayers),
		Description: sb.String(),
		Color:       0x5865F2,
		Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Page %d of %d", page+1, totalPages)},
	}
	components := []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					CustomID: fmt.Sprintf("%s-page-%d", status.PlayerListButtonID, page-1),
					Label:    "Back",
					Style:    discordgo.SecondaryButton,
					Disabled: page == 0,
				},
				discordgo.Button{
					CustomID: fmt.Sprintf("%s-page-%d", status.PlayerListButtonID, page+1),
					Label:    "Next",
					Style:    discordgo.SecondaryButton,
					Disabled: page+1 >= totalPages,
				},
			},
		},
	}
	return b.editResponse(i, "", []*discordgo.MessageEmbed{embed}, components)
}

// --- reply helpers ---

func (b *Bot) reply(i *discordgo.InteractionCreate, content string) error {
	return b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content},
	})
}

func (b *Bot) replyEphemeral(i *discordgo.InteractionCreate, content string) error {
	return b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

func (b *Bot) deferEphemeral(i *discordgo.InteractionCreate) error {
	return b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
}

func (b *Bot) editResponse(i *discordgo.InteractionCreate, content string,
	embeds []*discordgo.MessageEmbed, components []discordgo.MessageComponent) error {
	edit := &discordgo.WebhookEdit{Content: &content}
	if embeds != nil {
		edit.Embeds = &embeds
	}
	if components != nil {
		edit.Components = &components
	}
	_, err := b.session.InteractionResponseEdit(i.Interaction, edit)
	return err
}

func optionMap(opts []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, o := range opts {
		m[o.Name] = o
	}
	return m
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
