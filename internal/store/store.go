package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound         = errors.New("guild not configured")
	ErrIntervalTooShort = errors.New("update interval below minimum")
	ErrInvalidEdition   = errors.New("edition must be java or bedrock")
	ErrInvalidPort      = errors.New("port must be between 1 and 65535")
)

const (
	EditionJava    = "java"
	EditionBedrock = "bedrock"
)

// GuildConfig is one guild's registered server and status subscription.
type GuildConfig struct {
	GuildID         string `json:"guild_id"`
	ServerIP        string `json:"server_ip"`
	ServerPort      int    `json:"server_port"`
	ServerEdition   string `json:"server_edition"`
	DisplayName     string `json:"display_name,omitempty"`
	Description     string `json:"description,omitempty"`
	BannerURL       string `json:"banner_url,omitempty"`
	ThumbnailURL    string `json:"thumbnail_url,omitempty"`
	RconPort        int    `json:"rcon_port"`
	RconPassword    string `json:"-"`
	StatusChannelID string `json:"status_channel_id,omitempty"`
	StatusMessageID string `json:"status_message_id,omitempty"`
	UpdateInterval  int64  `json:"update_interval_ms"` // milliseconds
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

// Configured reports whether the guild has server connection details.
func (g *GuildConfig) Configured() bool {
	return g != nil && g.ServerIP != "" && g.ServerPort > 0
}

// Subscribed reports whether the guild has a status channel set.
func (g *GuildConfig) Subscribed() bool {
	return g != nil && g.StatusChannelID != ""
}

// RconConfigured reports whether RCON details are present.
func (g *GuildConfig) RconConfigured() bool {
	return g != nil && g.RconPort > 0 && g.RconPassword != ""
}

// Interval returns the refresh interval as a duration.
func (g *GuildConfig) Interval() time.Duration {
	return time.Duration(g.UpdateInterval) * time.Millisecond
}

type Store struct {
	db            *sql.DB
	intervalFloor time.Duration
}

func New(db *sql.DB, intervalFloor time.Duration) *Store {
	return &Store{db: db, intervalFloor: intervalFloor}
}

const guildColumns = `guild_id, server_ip, server_port, server_edition,
	display_name, description, banner_url, thumbnail_url, rcon_port, rcon_password,
	status_channel_id, status_message_id, update_interval_ms, created_at, updated_at`

func scanGuild(row interface{ Scan(...any) error }) (*GuildConfig, error) {
	var g GuildConfig
	err := row.Scan(&g.GuildID, &g.ServerIP, &g.ServerPort, &g.ServerEdition,
		&g.DisplayName, &g.Description, &g.BannerURL, &g.ThumbnailURL, &g.RconPort,
		&g.RconPassword, &g.StatusChannelID, &g.StatusMessageID, &g.UpdateInterval,
		&g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// FindByGuild returns the record for one guild, or ErrNotFound.
func (s *Store) FindByGuild(guildID string) (*GuildConfig, error) {
	row := s.db.QueryRow(`SELECT `+guildColumns+` FROM guilds WHERE guild_id = ?`, guildID)
	g, err := scanGuild(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find guild: %w", err)
	}
	return g, nil
}

// FindAllSubscribed returns every guild with a status channel set.
func (s *Store) FindAllSubscribed() ([]*GuildConfig, error) {
	rows, err := s.db.Query(`SELECT ` + guildColumns + ` FROM guilds WHERE status_channel_id != ''`)
	if err != nil {
		return nil, fmt.Errorf("query subscribed guilds: %w", err)
	}
	defer rows.Close()

	guilds := []*GuildConfig{}
	for rows.Next() {
		g, err := scanGuild(rows)
		if err != nil {
			return nil, fmt.Errorf("scan guild: %w", err)
		}
		guilds = append(guilds, g)
	}
	return guilds, rows.Err()
}

// FindAll returns every configured guild.
func (s *Store) FindAll() ([]*GuildConfig, error) {
	rows, err := s.db.Query(`SELECT ` + guildColumns + ` FROM guilds ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query guilds: %w", err)
	}
	defer rows.Close()

	guilds := []*GuildConfig{}
	for rows.Next() {
		g, err := scanGuild(rows)
		if err != nil {
			return nil, fmt.Errorf("scan guild: %w", err)
		}
		guilds = append(guilds, g)
	}
	return guilds, rows.Err()
}

// SetServer upserts the connection details for a guild.
func (s *Store) SetServer(guildID, ip string, port int, edition string) error {
	if port < 1 || port > 65535 {
		return ErrInvalidPort
	}
	if edition != EditionJava && edition != EditionBedrock {
		return ErrInvalidEdition
	}
	_, err := s.db.Exec(`INSERT INTO guilds (guild_id, server_ip, server_port, server_edition)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			server_ip = excluded.server_ip,
			server_port = excluded.server_port,
			server_edition = excluded.server_edition,
			updated_at = CURRENT_TIMESTAMP`,
		guildID, ip, port, edition)
	if err != nil {
		return fmt.Errorf("set server: %w", err)
	}
	return nil
}

// SetRcon upserts the RCON details for a guild.
func (s *Store) SetRcon(guildID string, port int, password string) error {
	if port < 1 || port > 65535 {
		return ErrInvalidPort
	}
	_, err := s.db.Exec(`INSERT INTO guilds (guild_id, rcon_port, rcon_password)
		VALUES (?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			rcon_port = excluded.rcon_port,
			rcon_password = excluded.rcon_password,
			updated_at = CURRENT_TIMESTAMP`,
		guildID, port, password)
	if err != nil {
		return fmt.Errorf("set rcon: %w", err)
	}
	return nil
}

// SetDisplay upserts the presentation fields. They are owned entirely by the
// guild's admins; the reconciler passes them through untouched.
func (s *Store) SetDisplay(guildID, name, description, bannerURL, thumbnailURL string) error {
	_, err := s.db.Exec(`INSERT INTO guilds (guild_id, display_name, description, banner_url, thumbnail_url)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			display_name = excluded.display_name,
			description = excluded.description,
			banner_url = excluded.banner_url,
			thumbnail_url = excluded.thumbnail_url,
			updated_at = CURRENT_TIMESTAMP`,
		guildID, name, description, bannerURL, thumbnailURL)
	if err != nil {
		return fmt.Errorf("set display: %w", err)
	}
	return nil
}

// SetStatusChannel subscribes a guild to status updates in a channel. Any
// previously tracked message belongs to the old channel, so the message ref
// is cleared together with the change.
func (s *Store) SetStatusChannel(guildID, channelID string) error {
	_, err := s.db.Exec(`INSERT INTO guilds (guild_id, status_channel_id, status_message_id)
		VALUES (?, ?, '')
		ON CONFLICT(guild_id) DO UPDATE SET
			status_channel_id = excluded.status_channel_id,
			status_message_id = '',
			updated_at = CURRENT_TIMESTAMP`,
		guildID, channelID)
	if err != nil {
		return fmt.Errorf("set status channel: %w", err)
	}
	return nil
}

// SetInterval sets the refresh interval. Values below the floor are rejected
// here, never clamped later.
func (s *Store) SetInterval(guildID string, interval time.Duration) error {
	if interval < s.intervalFloor {
		return ErrIntervalTooShort
	}
	_, err := s.db.Exec(`INSERT INTO guilds (guild_id, update_interval_ms)
		VALUES (?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			update_interval_ms = excluded.update_interval_ms,
			updated_at = CURRENT_TIMESTAMP`,
		guildID, interval.Milliseconds())
	if err != nil {
		return fmt.Errorf("set interval: %w", err)
	}
	return nil
}

// IntervalFloor returns the configured minimum refresh interval.
func (s *Store) IntervalFloor() time.Duration {
	return s.intervalFloor
}

// SetMessageID records the managed status message after a successful send.
func (s *Store) SetMessageID(guildID, messageID string) error {
	_, err := s.db.Exec(`UPDATE guilds SET status_message_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE guild_id = ?`, messageID, guildID)
	if err != nil {
		return fmt.Errorf("set message id: %w", err)
	}
	return nil
}

// ClearMessageID drops a dangling message ref; the channel ref stays.
func (s *Store) ClearMessageID(guildID string) error {
	_, err := s.db.Exec(`UPDATE guilds SET status_message_id = '', updated_at = CURRENT_TIMESTAMP
		WHERE guild_id = ?`, guildID)
	if err != nil {
		return fmt.Errorf("clear message id: %w", err)
	}
	return nil
}

// ClearSubscription drops both channel and message refs. The record itself is
// never deleted; an empty channel ref is the unsubscribed state.
func (s *Store) ClearSubscription(guildID string) error {
	_, err := s.db.Exec(`UPDATE guilds SET status_channel_id = '', status_message_id = '',
		updated_at = CURRENT_TIMESTAMP WHERE guild_id = ?`, guildID)
	if err != nil {
		return fmt.Errorf("clear subscription: %w", err)
	}
	return nil
}
