package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/peachbot/peachbot/internal/config"
	"github.com/peachbot/peachbot/internal/core"
	"github.com/peachbot/peachbot/internal/providers/glm"
	"github.com/peachbot/peachbot/internal/service/chat"
	"github.com/peachbot/peachbot/internal/storage/chromem"
	"github.com/peachbot/peachbot/internal/storage/sqlite"
	"github.com/peachbot/peachbot/pkg/log"
	"github.com/peachbot/peachbot/pkg/srv"
)

// deps wires every collaborator the commands need. Construction failures are
// fatal; a half-initialized bot is worse than no bot.
type deps struct {
	appCfg   *config.AppConfig
	manager  *chat.Manager
	users    core.UserRepository
	sessions core.SessionRepository
	cleanups []srv.Service
}

func buildDeps(ctx context.Context) *deps {
	logger := log.FromCtx(ctx)

	if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
		logger.Fatal().Err(err).Msg("failed to init env")
	}

	appCfg := config.NewAppConfig(ctx)
	glmCfg := config.NewGLMConfig(ctx)

	db, err := sqlite.NewDB(ctx, appCfg.GetDatabasePath())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}

	client := glm.NewClient(glmCfg)

	store, err := chromem.New(appCfg.GetMemoryPath(), client)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize memory store")
	}

	personas, err := chat.LoadPersonas(ctx, appCfg.GetPersonaPath())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load personas")
	}

	users := sqlite.NewUserRepo(db)
	sessions := sqlite.NewSessionRepo(db)
	manager := chat.NewManager(appCfg, client, client, store, sessions, personas)

	return &deps{
		appCfg:   appCfg,
		manager:  manager,
		users:    users,
		sessions: sessions,
		cleanups: []srv.Service{srv.NewCleanup(db.Close)},
	}
}

func initEnv(ctx context.Context, runtimePath string) error {
	logger := log.FromCtx(ctx)
	envFile := filepath.Join(runtimePath, ".env")

	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warn().Err(err).Str("path", envFile).Msg("failed to load .env file")
		return err
	}

	logger.Debug().Str("path", envFile).Msg("loaded .env file")
	return nil
}
