package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/SHIBINSOJU/SHOT-MC/internal/config"
	"github.com/SHIBINSOJU/SHOT-MC/internal/db"
	"github.com/SHIBINSOJU/SHOT-MC/internal/discord"
	"github.com/SHIBINSOJU/SHOT-MC/internal/mojang"
	"github.com/SHIBINSOJU/SHOT-MC/internal/probe"
	"github.com/SHIBINSOJU/SHOT-MC/internal/rcon"
	"github.com/SHIBINSOJU/SHOT-MC/internal/server"
	"github.com/SHIBINSOJU/SHOT-MC/internal/status"
	"github.com/SHIBINSOJU/SHOT-MC/internal/store"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "shotmc",
	Short: "A Discord bot that keeps a live Minecraft server status in your server.",
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot and the ops HTTP API.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return serve(cfg)
	},
}

var removeCommands bool

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Sync (or remove) the slash-command set with Discord.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		session, err := newSession(cfg)
		if err != nil {
			return err
		}
		if removeCommands {
			if err := discord.RemoveCommands(session, cfg.ApplicationID, cfg.GuildID); err != nil {
				return err
			}
			log.Info().Msg("slash commands removed")
			return nil
		}
		if err := discord.SyncCommands(session, cfg.ApplicationID, cfg.GuildID); err != nil {
			return err
		}
		log.Info().Msg("slash commands registered")
		return nil
	},
}

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./shotmc.yaml)")
	registerCmd.Flags().BoolVar(&removeCommands, "remove", false, "remove all registered slash commands")
	rootCmd.AddCommand(serveCmd, registerCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	return cfg, nil
}

func newSession(cfg *config.Config) (*discordgo.Session, error) {
	if cfg.BotToken == "" {
		return nil, errors.New("bot token not configured (SHOTMC_BOT_TOKEN)")
	}
	session, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

func serve(cfg *config.Config) error {
	database, err := db.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		return err
	}

	session, err := newSession(cfg)
	if err != nil {
		return err
	}

	prober := probe.Get(cfg.ProbeBackend)
	if prober == nil {
		return fmt.Errorf("unknown probe backend %q", cfg.ProbeBackend)
	}

	st := store.New(database, cfg.IntervalFloor)
	feed := status.NewFeed()
	sink := discord.NewMessenger(session)
	reconciler := status.NewReconciler(st, prober, sink, feed, cfg.ProbeTimeout, cfg.SinkTimeout, log.Logger)
	registry := status.NewRegistry(st, reconciler, log.Logger)

	bot := discord.NewBot(session, st, reconciler, registry,
		rcon.NewClient(cfg.ProbeTimeout), mojang.NewClient(), log.Logger)
	if err := bot.Open(); err != nil {
		return err
	}
	defer bot.Close()
	log.Info().Str("probe_backend", cfg.ProbeBackend).Msg("gateway connected")

	if err := registry.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer registry.Stop()

	srv, err := server.New(cfg, database, st, feed, func() bool { return session.DataReady }, log.Logger)
	if err != nil {
		return fmt.Errorf("create ops server: %w", err)
	}
	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("ops API listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ops server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
