package main

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/viab/viab-backend/internal/api"
	"github.com/viab/viab-backend/internal/config"
	"github.com/viab/viab-backend/internal/database"
	"github.com/viab/viab-backend/internal/knowledge"
	"github.com/viab/viab-backend/internal/memory"
	"github.com/viab/viab-backend/internal/providers"
	"github.com/viab/viab-backend/internal/providers/openai"
	"github.com/viab/viab-backend/internal/repository/postgres"
	"github.com/viab/viab-backend/internal/services"
	"github.com/viab/viab-backend/internal/staging"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	if err := database.RunMigrations(cfg.Database); err != nil {
		logrus.WithError(err).Fatal("Failed to run migrations")
	}

	store, err := buildStore(cfg, db)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize memory store")
	}
	defer store.Close()

	registry := providers.NewRegistry()
	for role, agentCfg := range cfg.Agents {
		provider, err := openai.NewProvider(role, agentCfg)
		if err != nil {
			logrus.WithError(err).WithField("role", role).Fatal("Failed to initialize agent provider")
		}
		registry.Register(role, provider)
		logrus.WithFields(logrus.Fields{"role": role, "model": agentCfg.Model}).Info("Registered agent")
	}

	var retriever knowledge.Retriever
	if cfg.Knowledge.Enabled {
		embeddingKey := cfg.Knowledge.QdrantAPIKey
		if visualizer, ok := cfg.Agents[providers.RoleVisualizer]; ok && visualizer.APIKey != "" {
			embeddingKey = visualizer.APIKey
		}
		r, err := knowledge.NewQdrantRetriever(cfg.Knowledge, embeddingKey)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to connect to knowledge base")
		}
		defer r.Close()
		retriever = r
	}

	stager, err := staging.New(cfg.Staging.TempDir)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize upload staging")
	}

	svc := services.NewServices(
		cfg,
		registry,
		store,
		postgres.NewSessionRepository(db.DB),
		postgres.NewTranscriptRepository(db.DB),
		retriever,
	)

	app := fiber.New(fiber.Config{
		AppName:      "VIAB Backend",
		BodyLimit:    64 * 1024 * 1024, // architectural PDFs run large
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, DELETE, OPTIONS",
	}))

	api.SetupRoutes(app, svc, stager, db.DB)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logrus.WithField("addr", addr).Info("VIAB backend starting")
	if err := app.Listen(addr); err != nil {
		logrus.WithError(err).Fatal("Server stopped")
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error(), "code": code})
}

func buildStore(cfg *config.Config, db *database.DB) (memory.Store, error) {
	switch memory.StoreType(cfg.Memory.Driver) {
	case memory.StoreTypeRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.Memory.RedisAddr})
		return memory.NewStore(memory.StoreTypeRedis,
			memory.WithRedisClient(client),
			memory.WithRedisTTL(time.Duration(cfg.Memory.RedisTTL)*time.Hour),
		)
	case memory.StoreTypeMemory:
		return memory.NewStore(memory.StoreTypeMemory)
	default:
		return memory.NewStore(memory.StoreTypePostgres, memory.WithDB(db.DB))
	}
}
