package bot

import (
	"database/sql"
	"fmt"
	"time"

	"teraBridgeBot/internal/cache"
	"teraBridgeBot/internal/config"
	"teraBridgeBot/internal/data"
	"teraBridgeBot/internal/logger"
	"teraBridgeBot/internal/resolver"
	"teraBridgeBot/internal/token"
	"teraBridgeBot/internal/transfer"
	"teraBridgeBot/internal/web"

	"github.com/celestix/gotgproto"
	"github.com/celestix/gotgproto/dispatcher/handlers"
	"github.com/celestix/gotgproto/dispatcher/handlers/filters"
	"github.com/celestix/gotgproto/sessionMaker"
	_ "github.com/glebarez/go-sqlite"
	"github.com/glebarez/sqlite"
)

const descriptorCacheTTLSeconds = 3600

// TelegramBot accepts share links in private chats, resolves them through
// the configured upstream APIs, and relays the files back.
type TelegramBot struct {
	config         *config.Configuration
	tgClient       *gotgproto.Client
	logger         *logger.Logger
	userRepository *data.UserRepository
	db             *sql.DB

	arbiter     *resolver.Arbiter
	transferMgr *transfer.Manager
	sessions    *transfer.SessionRegistry
	issuer      *token.Issuer
	descCache   *cache.DescriptorCache
	wsManager   *web.WebSocketManager
}

// NewTelegramBot creates a new instance of TelegramBot. The token issuer
// and WebSocket manager are shared with the web server.
func NewTelegramBot(cfg *config.Configuration, issuer *token.Issuer, wsManager *web.WebSocketManager, log *logger.Logger) (*TelegramBot, error) {
	dsn := fmt.Sprintf("file:%s?mode=rwc", cfg.DatabasePath)
	tgClient, err := gotgproto.NewClient(
		cfg.ApiID,
		cfg.ApiHash,
		gotgproto.ClientTypeBot(cfg.BotToken),
		&gotgproto.ClientOpts{
			InMemory:         true,
			Session:          sessionMaker.SqlSession(sqlite.Open(dsn)),
			DisableCopyright: true,
		})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram client: %w", err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	userRepository := data.NewUserRepository(db)
	if err := userRepository.InitDB(); err != nil {
		return nil, err
	}

	adapters := buildAdapters(cfg)
	if len(adapters) == 0 {
		return nil, fmt.Errorf("no resolver adapters configured")
	}

	sessions := transfer.NewSessionRegistry(time.Hour, 10*time.Minute)
	transferMgr := transfer.NewManager(transfer.Options{
		DownloadDir: cfg.DownloadDirectory,
		// Streams that outgrow the relay threshold abort instead of
		// filling the spool with a file we would refuse to send anyway.
		MaxBytes:      cfg.SizeThresholdVal,
		Watchdog:      cfg.TransferTimeout,
		AcceptPartial: cfg.AcceptPartial,
		UserAgent:     resolver.BrowserUserAgent,
		Referer:       "https://www.terabox.com/",
	}, sessions, log)

	return &TelegramBot{
		config:         cfg,
		tgClient:       tgClient,
		logger:         log,
		userRepository: userRepository,
		db:             db,
		arbiter:        resolver.NewArbiter(adapters, cfg.ResolverPriority, log),
		transferMgr:    transferMgr,
		sessions:       sessions,
		issuer:         issuer,
		descCache:      cache.NewDescriptorCache(descriptorCacheTTLSeconds),
		wsManager:      wsManager,
	}, nil
}

func buildAdapters(cfg *config.Configuration) []resolver.Adapter {
	var adapters []resolver.Adapter
	if cfg.RapidAPIBase != "" {
		adapters = append(adapters, resolver.NewRapidAdapter(cfg.RapidAPIBase, cfg.RapidAPIKey, cfg.ResolverTimeout))
	}
	if cfg.CloudfetchAPIBase != "" {
		adapters = append(adapters, resolver.NewCloudfetchAdapter(cfg.CloudfetchAPIBase, cfg.ResolverTimeout))
	}
	return adapters
}

// Run starts the Telegram bot and blocks until the client stops.
func (b *TelegramBot) Run() error {
	b.logger.Infof("Starting Telegram bot (@%s)...", b.tgClient.Self.Username)

	b.registerHandlers()

	if err := b.tgClient.Idle(); err != nil {
		return fmt.Errorf("telegram client stopped: %w", err)
	}
	return nil
}

// Stop releases the bot's background resources.
func (b *TelegramBot) Stop() {
	b.sessions.Stop()
	b.tgClient.Stop()
	b.db.Close()
}

func (b *TelegramBot) registerHandlers() {
	clientDispatcher := b.tgClient.Dispatcher
	clientDispatcher.AddHandler(handlers.NewCommand("start", b.handleStartCommand))
	clientDispatcher.AddHandler(handlers.NewCommand("help", b.handleHelpCommand))
	clientDispatcher.AddHandler(handlers.NewCommand("stats", b.handleStatsCommand))
	clientDispatcher.AddHandler(handlers.NewCommand("ban", b.handleBanCommand))
	clientDispatcher.AddHandler(handlers.NewCommand("unban", b.handleUnbanCommand))
	clientDispatcher.AddHandler(handlers.NewCallbackQuery(filters.CallbackQuery.Prefix("cb_"), b.handleCallbackQuery))
	clientDispatcher.AddHandler(handlers.NewMessage(filters.Message.Text, b.handleTextMessage))
}
