package deps

import (
	"github.com/bwise1/gunaso/config"
	"github.com/bwise1/gunaso/internal/db"
	"github.com/bwise1/gunaso/internal/forwarding"
	"github.com/bwise1/gunaso/util"
	"github.com/bwise1/gunaso/util/cache"
	"github.com/bwise1/gunaso/util/logger"
	"github.com/bwise1/gunaso/util/storage"
	"github.com/bwise1/gunaso/util/websockets"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type Dependencies struct {
	DB         *db.DB
	Storage    storage.FileStore
	Cache      *cache.Client
	WebSocket  *websockets.WebSocketManager
	Forwarding *forwarding.Engine
}

func New(cfg *config.Config) *Dependencies {
	database, err := db.New(cfg.Dsn)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	engine, err := forwarding.Load(cfg.ForwardingRulesFile)
	if err != nil {
		logger.Fatal("failed to load forwarding rules", zap.Error(err))
	}

	store, err := storage.New(cfg)
	if err != nil {
		logger.Fatal("failed to initialise evidence storage", zap.Error(err))
	}

	// tracking still works without redis, just uncached and unthrottled
	redisClient, err := cache.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Warn("redis unavailable, running without cache", zap.Error(err))
		redisClient = nil
	}

	websocket := websockets.NewWebSocketManager()
	websocket.ValidateID = util.ValidTrackingID

	return &Dependencies{
		DB:         database,
		Storage:    store,
		Cache:      redisClient,
		WebSocket:  websocket,
		Forwarding: engine,
	}
}

func (d *Dependencies) Pool() *pgxpool.Pool {
	return d.DB.Pool()
}

func (d *Dependencies) Close() {
	if d.Cache != nil {
		if err := d.Cache.Close(); err != nil {
			logger.Warn("closing redis", zap.Error(err))
		}
	}
	d.DB.Close()
}
