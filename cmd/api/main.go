package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethanbaker/receptionist/internal/api"
	"github.com/ethanbaker/receptionist/internal/metrics"
	"github.com/ethanbaker/receptionist/internal/orchestrator"
	"github.com/ethanbaker/receptionist/internal/stores/db"
	knowledge_store "github.com/ethanbaker/receptionist/internal/stores/knowledge"
	session_store "github.com/ethanbaker/receptionist/internal/stores/session"
	tenant_store "github.com/ethanbaker/receptionist/internal/stores/tenant"
	"github.com/ethanbaker/receptionist/pkg/booking"
	"github.com/ethanbaker/receptionist/pkg/knowledge"
	"github.com/ethanbaker/receptionist/pkg/llm"
	"github.com/ethanbaker/receptionist/pkg/prompt"
	"github.com/ethanbaker/receptionist/pkg/session"
	"github.com/ethanbaker/receptionist/pkg/tenant"
	"github.com/ethanbaker/receptionist/pkg/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Start the API server
func main() {
	// Find env file
	envFile := ".env"
	if os.Getenv("ENV_FILE") != "" {
		envFile = os.Getenv("ENV_FILE")
	}

	// Load global config
	cfg := utils.NewConfigFromEnv(envFile)

	logger, err := utils.NewLogger(cfg.GetWithDefault("LOG_LEVEL", "info"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Receptionist stopped", zap.Error(err))
	}
}

// components are the storage backed collaborators, either MySQL or in-memory
type components struct {
	directory tenant.Directory
	sessions  session.Store
	index     knowledge.Index
	add       knowledge.AddFunc
	close     func()
}

func run(ctx context.Context, cfg *utils.Config, logger *zap.Logger) error {
	recorder := metrics.NewRecorder()

	comps, err := buildComponents(cfg, logger)
	if err != nil {
		return err
	}
	defer comps.close()

	// Knowledge retrieval
	embedder := knowledge.NewOpenAIEmbedder(cfg.Get("OPENAI_API_KEY"), cfg.Get("EMBEDDING_MODEL"))
	if path := cfg.Get("KNOWLEDGE_FILE"); path != "" {
		docs, err := knowledge.LoadDocumentsFile(path)
		if err != nil {
			return err
		}
		stored, err := knowledge.Ingest(ctx, embedder, comps.add, docs)
		if err != nil {
			return fmt.Errorf("failed to seed knowledge: %w", err)
		}
		logger.Info("Seeded knowledge", zap.Int("documents", stored))
	}

	// Session expiry
	janitor, err := session.NewJanitor(comps.sessions, cfg.GetWithDefault("SESSION_SWEEP_SPEC", session.DefaultSweepSpec), logger)
	if err != nil {
		return err
	}
	janitor.OnEvict(recorder.AddEvicted)
	janitor.Start()
	defer janitor.Stop()

	orch, err := orchestrator.New(orchestrator.Deps{
		Directory: comps.directory,
		Sessions:  comps.sessions,
		Retriever: knowledge.NewEmbeddingRetriever(embedder, comps.index),
		Generator: buildGenerator(cfg, logger),
		Booker: booking.NewDispatcher(booking.Options{
			Timeout: cfg.GetDurationWithDefault("BOOKING_TIMEOUT", booking.DefaultTimeout),
		}),
		Metrics: recorder,
		Logger:  logger,
	}, orchestrator.Config{
		HistoryLimit:      cfg.GetIntWithDefault("HISTORY_LIMIT", prompt.MaxHistoryTurns),
		TopK:              cfg.GetIntWithDefault("KNOWLEDGE_TOP_K", knowledge.DefaultTopK),
		GenerationTimeout: cfg.GetDurationWithDefault("GENERATION_TIMEOUT", orchestrator.DefaultGenerationTimeout),
		RetrievalTimeout:  cfg.GetDurationWithDefault("RETRIEVAL_TIMEOUT", orchestrator.DefaultRetrievalTimeout),
		BookingTimeout:    cfg.GetDurationWithDefault("BOOKING_TIMEOUT", orchestrator.DefaultBookingTimeout),
		Instructions:      utils.LoadPromptWithFallback(cfg.Get("RECEPTIONIST_SYSPROMPT_PATH"), prompt.DefaultInstructions),
	})
	if err != nil {
		return err
	}

	return api.Start(ctx, cfg, api.Deps{Orchestrator: orch, Metrics: recorder, Logger: logger})
}

// buildComponents uses MySQL when a database is configured, otherwise in-memory stores
// seeded from TENANTS_FILE
func buildComponents(cfg *utils.Config, logger *zap.Logger) (*components, error) {
	ttl := cfg.GetDurationWithDefault("SESSION_TTL", session.DefaultTTL)

	dsn, ok, err := db.DSNFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	if !ok {
		logger.Warn("No database configured, using in-memory stores")

		directory, err := loadMemoryDirectory(cfg.Get("TENANTS_FILE"))
		if err != nil {
			return nil, err
		}
		index := knowledge.NewMemoryIndex()

		return &components{
			directory: directory,
			sessions:  session.NewInMemoryStore(ttl),
			index:     index,
			add:       index.AddTo(),
			close:     func() {},
		}, nil
	}

	conn, err := db.Open(dsn)
	if err != nil {
		return nil, err
	}
	closeConn := func(conn *gorm.DB) {
		if err := db.Close(conn); err != nil {
			logger.Warn("Failed to close database", zap.Error(err))
		}
	}

	directory, err := tenant_store.NewMySqlDirectory(conn)
	if err != nil {
		closeConn(conn)
		return nil, err
	}
	sessions, err := session_store.NewMySqlStore(conn, ttl)
	if err != nil {
		closeConn(conn)
		return nil, err
	}
	index, err := knowledge_store.NewMySqlIndex(conn)
	if err != nil {
		closeConn(conn)
		return nil, err
	}

	// Tenants from a seed file are upserted into the database
	if path := cfg.Get("TENANTS_FILE"); path != "" {
		seed, err := tenant.LoadDirectoryFile(path)
		if err != nil {
			closeConn(conn)
			return nil, err
		}
		for _, p := range seed.All() {
			if err := directory.Put(context.Background(), p); err != nil {
				closeConn(conn)
				return nil, err
			}
		}
	}

	return &components{
		directory: directory,
		sessions:  sessions,
		index:     index,
		add:       index.Add,
		close:     func() { closeConn(conn) },
	}, nil
}

func loadMemoryDirectory(path string) (*tenant.MemoryDirectory, error) {
	if path == "" {
		return tenant.NewMemoryDirectory()
	}
	return tenant.LoadDirectoryFile(path)
}

// buildGenerator picks the response generator backend
func buildGenerator(cfg *utils.Config, logger *zap.Logger) llm.Generator {
	model := cfg.GetWithDefault("MODEL", llm.DefaultModel)

	if cfg.Get("GENERATOR_BACKEND") == "agents" {
		logger.Info("Using agents generator", zap.String("model", model))
		return llm.NewAgentGenerator(model)
	}

	logger.Info("Using chat completions generator", zap.String("model", model))
	return llm.NewChatGenerator(llm.ChatOptions{
		APIKey:      cfg.Get("OPENAI_API_KEY"),
		Model:       model,
		Temperature: cfg.GetFloatWithDefault("TEMPERATURE", llm.DefaultTemperature),
		MaxTokens:   cfg.GetIntWithDefault("MAX_TOKENS", llm.DefaultMaxTokens),
	})
}
