package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/SHIBINSOJU/SHOT-MC/internal/status"
)

// Messenger adapts a discordgo session to the reconciler's sink contract,
// folding Discord's unknown-channel/unknown-message errors into
// status.ErrNotFound so only genuine reference loss triggers self-heal.
type Messenger struct {
	s *discordgo.Session
}

func NewMessenger(s *discordgo.Session) *Messenger {
	return &Messenger{s: s}
}

func (m *Messenger) ResolveChannel(ctx context.Context, channelID string) error {
	_, err := m.s.Channel(channelID, discordgo.WithContext(ctx))
	return mapNotFound(err)
}

func (m *Messenger) FetchMessage(ctx context.Context, channelID, messageID string) error {
	_, err := m.s.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	return mapNotFound(err)
}

func (m *Messenger) Send(ctx context.Context, channelID string, c *status.Content) (string, error) {
	msg, err := m.s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{c.Embed},
		Components: c.Components,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", mapNotFound(err)
	}
	return msg.ID, nil
}

func (m *Messenger) Edit(ctx context.Context, channelID, messageID string, c *status.Content) error {
	embeds := []*discordgo.MessageEmbed{c.Embed}
	_, err := m.s.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    channelID,
		ID:         messageID,
		Embeds:     &embeds,
		Components: &c.Components,
	}, discordgo.WithContext(ctx))
	return mapNotFound(err)
}

func mapNotFound(err error) error {
	if err == nil {
		return nil
	}
	var rerr *discordgo.RESTError
	if errors.As(err, &rerr) && rerr.Message != nil {
		switch rerr.Message.Code {
		case discordgo.ErrCodeUnknownChannel, discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownGuild:
			return fmt.Errorf("%w: %v", status.ErrNotFound, err)
		}
	}
	return err
}
