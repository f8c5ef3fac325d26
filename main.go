package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"teraBridgeBot/internal/bot"
	"teraBridgeBot/internal/config"
	"teraBridgeBot/internal/logger"
	"teraBridgeBot/internal/token"
	"teraBridgeBot/internal/web"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// cfg is declared at the package level to allow Cobra to bind flags directly to its fields.
var cfg config.Configuration

func main() {
	log := logger.NewDefault("teraBridgeBot: ")

	config.InitializeViper(log)

	rootCmd := &cobra.Command{
		Use:   "teraBridgeBot",
		Short: "Telegram bot that resolves TeraBox share links and relays the files",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return viper.BindPFlags(cmd.Flags())
		},
		Run: func(cmd *cobra.Command, args []string) {
			cfg = config.LoadConfig(log)
			log.SetLevel(logger.ParseLogLevel(cfg.LogLevel))

			issuer := token.NewIssuer(cfg.TokenSecret, cfg.TokenTTL)
			webServer := web.NewServer(&cfg, issuer, log)

			b, err := bot.NewTelegramBot(&cfg, issuer, webServer.GetWSManager(), log)
			if err != nil {
				log.Fatalf("Error initializing Telegram bot: %v", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			go func() {
				if err := webServer.Start(); err != nil {
					log.Errorf("Web server stopped: %v", err)
				}
				stop()
			}()

			go func() {
				if err := b.Run(); err != nil {
					log.Errorf("Bot stopped: %v", err)
				}
				stop()
			}()

			log.Info("Bot is running. Press Ctrl+C to exit.")
			<-ctx.Done()

			log.Info("Shutdown signal received, initiating graceful shutdown...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := webServer.Shutdown(shutdownCtx); err != nil {
				log.Errorf("Web server shutdown error: %v", err)
			}
			b.Stop()
		},
	}

	rootCmd.Flags().IntVar(&cfg.ApiID, "api_id", 0, "Telegram API ID (required)")
	rootCmd.Flags().StringVar(&cfg.ApiHash, "api_hash", "", "Telegram API Hash (required)")
	rootCmd.Flags().StringVar(&cfg.BotToken, "bot_token", "", "Telegram Bot Token (required)")
	rootCmd.Flags().StringVar(&cfg.BaseURL, "base_url", "", "Base URL for the web player (required)")
	rootCmd.Flags().StringVar(&cfg.Port, "port", "8080", "Port for the web server")
	rootCmd.Flags().StringVar(&cfg.DownloadDirectory, "download_directory", ".downloads", "Directory for spooled downloads and the database")
	rootCmd.Flags().StringVar(&cfg.DatabasePath, "database_path", "", "Path to the SQLite database (defaults inside the download directory)")
	rootCmd.Flags().StringVar(&cfg.DumpChannelID, "dump_channel_id", "", "Channel ID that receives an archive copy of every relayed file")
	rootCmd.Flags().StringVar(&cfg.SizeThreshold, "size_threshold", "50MB", "Files at or above this size are not relayed directly")
	rootCmd.Flags().StringVar(&cfg.RapidAPIBase, "rapid_api_base", "", "Base URL of the keyed resolver API")
	rootCmd.Flags().StringVar(&cfg.RapidAPIKey, "rapid_api_key", "", "API key for the keyed resolver")
	rootCmd.Flags().StringVar(&cfg.CloudfetchAPIBase, "cloudfetch_api_base", "", "Base URL of the unkeyed resolver API")
	rootCmd.Flags().StringVar(&cfg.FallbackResolver, "fallback_resolver", "cloudfetch", "Resolver to retry oversized files with")
	rootCmd.Flags().DurationVar(&cfg.ResolverTimeout, "resolver_timeout", 20*time.Second, "Per-resolver request timeout")
	rootCmd.Flags().DurationVar(&cfg.TransferTimeout, "transfer_timeout", 5*time.Minute, "Watchdog for a whole download")
	rootCmd.Flags().BoolVar(&cfg.AcceptPartial, "accept_partial", false, "Keep partially downloaded files on watchdog expiry")
	rootCmd.Flags().StringVar(&cfg.TokenSecret, "token_secret", "", "HMAC secret for player access tokens (required)")
	rootCmd.Flags().DurationVar(&cfg.TokenTTL, "token_ttl", time.Hour, "Lifetime of player access tokens")
	rootCmd.Flags().String("resolver_priority", "rapid,cloudfetch", "Comma-separated resolver preference order")
	rootCmd.Flags().StringVar(&cfg.LogLevel, "log_level", "", "Log level: DEBUG, INFO, WARNING, ERROR")
	rootCmd.Flags().BoolVar(&cfg.DebugMode, "debug_mode", false, "Enable debug logging")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
