package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

func commandDefinitions() []*discordgo.ApplicationCommand {
	manageGuild := int64(discordgo.PermissionManageServer)

	return []*discordgo.ApplicationCommand{
		{
			Name:                     "setup-server",
			Description:              "Sets up the Minecraft server details.",
			DefaultMemberPermissions: &manageGuild,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "ip",
					Description: "The IP address or hostname of the server.",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "port",
					Description: "The port of the server.",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "edition",
					Description: "The edition of the server.",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "Java", Value: "java"},
						{Name: "Bedrock", Value: "bedrock"},
					},
				},
			},
		},
		{
			Name:                     "setup-display",
			Description:              "Customizes how the status embed presents the server.",
			DefaultMemberPermissions: &manageGuild,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "name",
					Description: "The display name shown on the status embed.",
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "description",
					Description: "A short description of the server.",
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "banner-url",
					Description: "URL of a banner image for the embed.",
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "thumbnail-url",
					Description: "URL of a thumbnail image for the embed.",
				},
			},
		},
		{
			Name:                     "setup-rcon",
			Description:              "Sets up the RCON details for the server.",
			DefaultMemberPermissions: &manageGuild,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "port",
					Description: "The RCON port.",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "password",
					Description: "The RCON password.",
					Required:    true,
				},
			},
		},
		{
			Name:                     "setup-status-channel",
			Description:              "Sets the channel for live server status updates.",
			DefaultMemberPermissions: &manageGuild,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:         discordgo.ApplicationCommandOptionChannel,
					Name:         "channel",
					Description:  "The channel to send status updates to.",
					Required:     true,
					ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
				},
			},
		},
		{
			Name:                     "setup-status-interval",
			Description:              "Sets the update interval for the live status message.",
			DefaultMemberPermissions: &manageGuild,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "interval",
					Description: "The update interval in seconds.",
					Required:    true,
				},
			},
		},
		{
			Name:                     "status-unsubscribe",
			Description:              "Stops the live status message updates.",
			DefaultMemberPermissions: &manageGuild,
		},
		{
			Name:        "status",
			Description: "Displays the live status of the Minecraft server.",
		},
		{
			Name:        "players",
			Description: "Displays the list of online players.",
		},
		{
			Name:                     "whitelist",
			Description:              "Manages the server whitelist.",
			DefaultMemberPermissions: &manageGuild,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add",
					Description: "Adds a player to the whitelist.",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "username",
							Description: "The username of the player to add.",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "remove",
					Description: "Removes a player from the whitelist.",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "username",
							Description: "The username of the player to remove.",
							Required:    true,
						},
					},
				},
			},
		},
		{
			Name:        "skin",
			Description: "Shows the Minecraft skin of a player.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "username",
					Description: "The username of the player.",
					Required:    true,
				},
			},
		},
		{
			Name:        "uuid",
			Description: "Fetches the Minecraft UUID of a player.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "username",
					Description: "The username of the player.",
					Required:    true,
				},
			},
		},
		{
			Name:        "help",
			Description: "Lists all available commands.",
		},
	}
}

// SyncCommands overwrites the application's slash-command set. An empty
// guildID registers globally.
func SyncCommands(s *discordgo.Session, appID, guildID string) error {
	if _, err := s.ApplicationCommandBulkOverwrite(appID, guildID, commandDefinitions()); err != nil {
		return fmt.Errorf("overwrite commands: %w", err)
	}
	return nil
}

// RemoveCommands clears the application's slash-command set.
func RemoveCommands(s *discordgo.Session, appID, guildID string) error {
	if _, err := s.ApplicationCommandBulkOverwrite(appID, guildID, []*discordgo.ApplicationCommand{}); err != nil {
		return fmt.Errorf("remove commands: %w", err)
	}
	return nil
}
