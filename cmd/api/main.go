package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"relay/application/ports"
	"relay/application/services"
	"relay/infrastructure/config"
	dynamorepo "relay/infrastructure/persistence/dynamodb"
	"relay/infrastructure/persistence/memory"
	"relay/interfaces/http/rest"
	"relay/interfaces/http/rest/controllers"
	"relay/pkg/di"
	"relay/pkg/interceptor"
	"relay/pkg/pipeline"
	"relay/pkg/routing"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	container, err := buildContainer(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to wire application", zap.Error(err))
	}

	p, err := buildPipeline(container, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to build pipeline", zap.Error(err))
	}

	server := rest.NewServer(p, logger, rest.Options{
		Addr:       cfg.ServerAddress,
		EnableCORS: cfg.EnableCORS,
	})

	logger.Info("starting api",
		zap.String("environment", cfg.Environment),
		zap.String("persistence", cfg.PersistenceBackend),
	)

	if err := server.Run(ctx); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	if level, err := zap.ParseAtomicLevel(cfg.LogLevel); err == nil {
		zapCfg.Level = level
	}
	return zapCfg.Build()
}

// buildContainer registers every constructor and resolves the object graph.
// Registration order is irrelevant; the container derives it from the
// constructor signatures.
func buildContainer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*di.Container, error) {
	registry := di.NewRegistry()

	if err := registry.ProvideValue(cfg); err != nil {
		return nil, err
	}
	if err := registry.ProvideValue(logger); err != nil {
		return nil, err
	}
	if err := registry.Provide(provideNoteRepository); err != nil {
		return nil, err
	}
	if err := registry.Provide(services.NewNoteService); err != nil {
		return nil, err
	}
	if err := registry.Provide(controllers.NewNoteController); err != nil {
		return nil, err
	}

	return registry.Build(ctx)
}

// provideNoteRepository selects the persistence backend from configuration.
func provideNoteRepository(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.NoteRepository, error) {
	switch cfg.PersistenceBackend {
	case config.BackendDynamoDB:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, err
		}
		client := awsdynamodb.NewFromConfig(awsCfg)
		return dynamorepo.NewNoteRepository(client, cfg.DynamoDBTable, cfg.IndexName, logger), nil
	default:
		return memory.NewNoteRepository(), nil
	}
}

// buildPipeline assembles the route table and interceptor chain from the
// wired container.
func buildPipeline(container *di.Container, cfg *config.Config, logger *zap.Logger) (*pipeline.Pipeline, error) {
	table := routing.NewTable(routing.NewChiMatcher())

	if err := table.Register("GET", "/health", healthHandler, nil); err != nil {
		return nil, err
	}

	noteController, err := di.Resolve[*controllers.NoteController](container)
	if err != nil {
		return nil, err
	}
	if err := noteController.RegisterRoutes(table); err != nil {
		return nil, err
	}

	chain := pipeline.NewChain(interceptor.NewLogging(logger))
	if cfg.JWTSecret != "" {
		if err := chain.Use(interceptor.NewAuth(cfg.JWTSecret, cfg.JWTIssuer, logger, "/health")); err != nil {
			return nil, err
		}
	}
	if err := chain.Use(interceptor.NewRateLimit(cfg.RateLimitBurst, cfg.RateLimitInterval, nil)); err != nil {
		return nil, err
	}

	return pipeline.New(table, chain, logger), nil
}

func healthHandler(ctx context.Context, _ interface{}) (interface{}, error) {
	return map[string]string{"status": "healthy"}, nil
}
