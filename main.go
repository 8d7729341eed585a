package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"reimubot/pkg/bot"
	"reimubot/pkg/cache"
	"reimubot/pkg/chat"
	"reimubot/pkg/config"
	"reimubot/pkg/economy"
	"reimubot/pkg/ledger"
	"reimubot/pkg/logger"
	"reimubot/pkg/memory"
	"reimubot/pkg/shrine"
	"reimubot/pkg/surreal"
)

func main() {
	if run() {
		reexec()
	}
}

// run starts the bot and blocks until it is stopped. It reports whether the
// owner asked for a restart.
func run() bool {
	// Console logging until the configured sinks are known.
	if err := logger.Initialize(config.Default().Logging); err != nil {
		panic(err)
	}

	// Load config.yml
	cfg, err := config.LoadConfig("config.yml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	if err := logger.Initialize(cfg.Logging); err != nil {
		logger.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync()

	// Load .env for secrets
	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, relying on environment variables")
	}

	secrets, err := config.LoadSecrets()
	if err != nil {
		logger.Fatal("Failed to load secrets", zap.Error(err))
	}

	ctx := context.Background()

	var redisCache *cache.Cache
	if secrets.RedisURL != "" {
		redisCache, err = cache.NewRedisCache(secrets.RedisURL, cfg.Storage.CachePrefix)
		if err != nil {
			logger.Warn("Redis unavailable, running without cache or shared locks", zap.Error(err))
			redisCache = nil
		} else {
			defer redisCache.Close()
			logger.Info("Connected to Redis")
		}
	}

	// Ledger: SQLite, serialized per account, optionally cached in Redis.
	sqlStore, err := ledger.OpenSQLite(cfg.Storage.SQLitePath)
	if err != nil {
		logger.Fatal("Failed to open ledger", zap.String("path", cfg.Storage.SQLitePath), zap.Error(err))
	}
	defer sqlStore.Close()

	var (
		locker ledger.Locker = ledger.NewKeyedMutex(cfg.Storage.LockWait)
		store  ledger.Store
	)
	if redisCache != nil {
		locker = ledger.MultiLocker{locker, ledger.NewRedisLocker(redisCache, cfg.Storage.LockTTL, cfg.Storage.LockWait)}
	}
	store = ledger.NewLockedStore(sqlStore, locker)
	if redisCache != nil {
		store = ledger.NewCachedStore(store, redisCache, cfg.Storage.BalanceTTL)
	}

	rules := cfg.Rules()
	service := shrine.NewService(store, economy.NewEngine(rules, nil), nil)

	models := append([]string{cfg.Chat.Model}, cfg.Chat.FallbackModels...)
	chatClient := chat.NewClient(secrets.ChatAPIURL, secrets.ChatAPIKeys, chat.Settings{
		Models:      models,
		Temperature: cfg.ModelSettings.Temperature,
		TopP:        cfg.ModelSettings.TopP,
		MaxTokens:   cfg.Chat.MaxTokens,
		Timeout:     cfg.Chat.RequestTimeout,
	})

	// Conversation memory: SurrealDB when configured, otherwise in process.
	var memoryStore memory.Store
	if secrets.Surreal.Enabled() {
		s := secrets.Surreal
		logger.Info("Connecting to SurrealDB",
			zap.String("url", s.URL()),
			zap.String("namespace", s.Namespace),
			zap.String("database", s.Database))
		surrealClient, err := surreal.NewClient(ctx, s.URL(), s.User, s.Pass, s.Namespace, s.Database)
		if err != nil {
			logger.Fatal("Failed to connect to SurrealDB", zap.Error(err))
		}
		defer surrealClient.Close()

		memoryStore = memory.NewSurrealStore(ctx, surrealClient, cfg.Chat.PermanentAfter)
	} else {
		logger.Warn("SurrealDB not configured, conversation memory will not persist")
		memoryStore = memory.NewLocalStore(cfg.Chat.PermanentAfter)
	}
	if redisCache != nil {
		memoryStore = memory.NewCachedStore(memoryStore, redisCache)
	}

	handler := bot.NewHandler(service, chatClient, memoryStore, cfg.Chat, secrets.AuthorID)
	handler.SetDrawPenalty(rules.DrawPenalty)

	// restart is true when the bot should re-exec itself after stopping.
	stop := make(chan bool, 1)
	handler.SetLifecycle(
		func() { signalStop(stop, false) },
		func() { signalStop(stop, true) },
	)

	// Create Discord Session
	dg, err := discordgo.New("Bot " + secrets.DiscordToken)
	if err != nil {
		logger.Fatal("Error creating Discord session", zap.Error(err))
	}
	dg.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentMessageContent

	dg.AddHandler(handler.Ready)
	dg.AddHandler(handler.MessageCreate)
	dg.AddHandler(handler.InteractionCreate)

	if err := dg.Open(); err != nil {
		logger.Fatal("Error opening connection", zap.Error(err))
	}

	registeredCommands, err := bot.RegisterSlashCommands(dg, secrets.GuildID)
	if err != nil {
		logger.Error("Error registering slash commands", zap.Error(err))
	}

	logger.Info("Reimu is now running. Press CTRL-C to exit.")

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM)

	restart := false
	select {
	case sig := <-sc:
		logger.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case restart = <-stop:
	}

	bot.UnregisterSlashCommands(dg, secrets.GuildID, registeredCommands)
	if err := dg.Close(); err != nil {
		logger.Warn("Error closing Discord session", zap.Error(err))
	}

	return restart
}

func signalStop(stop chan<- bool, restart bool) {
	select {
	case stop <- restart:
	default:
	}
}

// reexec replaces the process with a fresh copy of the same binary.
func reexec() {
	exe, err := os.Executable()
	if err != nil {
		logger.Error("Restart failed: cannot locate executable", zap.Error(err))
		return
	}
	logger.Info("Restarting", zap.String("executable", exe))
	logger.Sync()
	// Give the gateway a moment to see the disconnect.
	time.Sleep(time.Second)
	if err := syscall.Exec(exe, os.Args, os.Environ()); err != nil {
		logger.Error("Restart failed", zap.Error(err))
	}
}
